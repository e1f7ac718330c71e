package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"finkid-backend/internal/model"
	"finkid-backend/internal/pkg/db"
)

// ActivityRepository handles the append-only expense and saving ledgers.
type ActivityRepository struct {
	q db.Querier
}

// NewActivityRepository creates a new ActivityRepository instance.
func NewActivityRepository(q db.Querier) *ActivityRepository {
	return &ActivityRepository{q: q}
}

// WithTx returns a copy bound to the given transaction.
func (r *ActivityRepository) WithTx(tx pgx.Tx) *ActivityRepository {
	return &ActivityRepository{q: tx}
}

// InsertExpense appends one expense row.
func (r *ActivityRepository) InsertExpense(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, category string, description *string) (*model.Expense, error) {
	const query = `
		INSERT INTO expenses (id, user_id, amount, category, description, logged_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, user_id, amount, category, description, logged_at
	`

	var e model.Expense
	err := r.q.QueryRow(ctx, query, uuid.New(), userID, amount, category, description).Scan(
		&e.ID, &e.UserID, &e.Amount, &e.Category, &e.Description, &e.LoggedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert expense: %w", err)
	}
	return &e, nil
}

// ListExpenses returns a user's expenses, newest first.
func (r *ActivityRepository) ListExpenses(ctx context.Context, userID uuid.UUID, limit int) ([]*model.Expense, error) {
	const query = `
		SELECT id, user_id, amount, category, description, logged_at
		FROM expenses
		WHERE user_id = $1
		ORDER BY logged_at DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*model.Expense
	for rows.Next() {
		var e model.Expense
		err := rows.Scan(&e.ID, &e.UserID, &e.Amount, &e.Category, &e.Description, &e.LoggedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expenses: %w", err)
	}
	return expenses, nil
}

// InsertSaving appends one saving row.
func (r *ActivityRepository) InsertSaving(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, source *string) (*model.Saving, error) {
	const query = `
		INSERT INTO savings (id, user_id, amount, source, logged_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, user_id, amount, source, logged_at
	`

	var s model.Saving
	err := r.q.QueryRow(ctx, query, uuid.New(), userID, amount, source).Scan(
		&s.ID, &s.UserID, &s.Amount, &s.Source, &s.LoggedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert saving: %w", err)
	}
	return &s, nil
}

// ListSavings returns a user's savings, newest first.
func (r *ActivityRepository) ListSavings(ctx context.Context, userID uuid.UUID, limit int) ([]*model.Saving, error) {
	const query = `
		SELECT id, user_id, amount, source, logged_at
		FROM savings
		WHERE user_id = $1
		ORDER BY logged_at DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list savings: %w", err)
	}
	defer rows.Close()

	var savings []*model.Saving
	for rows.Next() {
		var s model.Saving
		err := rows.Scan(&s.ID, &s.UserID, &s.Amount, &s.Source, &s.LoggedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan saving: %w", err)
		}
		savings = append(savings, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating savings: %w", err)
	}
	return savings, nil
}
