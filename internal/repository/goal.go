package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"finkid-backend/internal/model"
	"finkid-backend/internal/pkg/db"
)

// GoalRepository handles savings goal persistence.
type GoalRepository struct {
	q db.Querier
}

// NewGoalRepository creates a new GoalRepository instance.
func NewGoalRepository(q db.Querier) *GoalRepository {
	return &GoalRepository{q: q}
}

// WithTx returns a copy bound to the given transaction.
func (r *GoalRepository) WithTx(tx pgx.Tx) *GoalRepository {
	return &GoalRepository{q: tx}
}

const goalColumns = `id, user_id, title, description, target_amount, current_amount, completed, completed_at, created_at, updated_at`

func scanGoal(row pgx.Row) (*model.Goal, error) {
	var g model.Goal
	err := row.Scan(&g.ID, &g.UserID, &g.Title, &g.Description, &g.TargetAmount,
		&g.CurrentAmount, &g.Completed, &g.CompletedAt, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// Create inserts a new goal with zero progress.
func (r *GoalRepository) Create(ctx context.Context, userID uuid.UUID, title string, targetAmount decimal.Decimal, description *string) (*model.Goal, error) {
	const query = `
		INSERT INTO goals (id, user_id, title, description, target_amount, current_amount, completed, completed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 0, FALSE, NULL, NOW(), NOW())
		RETURNING ` + goalColumns

	goal, err := scanGoal(r.q.QueryRow(ctx, query, uuid.New(), userID, title, description, targetAmount))
	if err != nil {
		return nil, fmt.Errorf("failed to create goal: %w", err)
	}
	return goal, nil
}

// GetByID retrieves a goal scoped to its owner.
func (r *GoalRepository) GetByID(ctx context.Context, goalID, userID uuid.UUID) (*model.Goal, error) {
	const query = `SELECT ` + goalColumns + ` FROM goals WHERE id = $1 AND user_id = $2`

	goal, err := scanGoal(r.q.QueryRow(ctx, query, goalID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGoalNotFound
		}
		return nil, fmt.Errorf("failed to get goal: %w", err)
	}
	return goal, nil
}

// GetForUpdate retrieves a goal holding its row lock. Must run inside a
// transaction.
func (r *GoalRepository) GetForUpdate(ctx context.Context, goalID, userID uuid.UUID) (*model.Goal, error) {
	const query = `SELECT ` + goalColumns + ` FROM goals WHERE id = $1 AND user_id = $2 FOR UPDATE`

	goal, err := scanGoal(r.q.QueryRow(ctx, query, goalID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGoalNotFound
		}
		return nil, fmt.Errorf("failed to lock goal: %w", err)
	}
	return goal, nil
}

// List returns a user's goals, newest first, optionally filtered by
// completion state.
func (r *GoalRepository) List(ctx context.Context, userID uuid.UUID, completed *bool) ([]*model.Goal, error) {
	query := `SELECT ` + goalColumns + ` FROM goals WHERE user_id = $1`
	args := []any{userID}
	if completed != nil {
		query += ` AND completed = $2`
		args = append(args, *completed)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list goals: %w", err)
	}
	defer rows.Close()

	var goals []*model.Goal
	for rows.Next() {
		var g model.Goal
		err := rows.Scan(&g.ID, &g.UserID, &g.Title, &g.Description, &g.TargetAmount,
			&g.CurrentAmount, &g.Completed, &g.CompletedAt, &g.CreatedAt, &g.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan goal: %w", err)
		}
		goals = append(goals, &g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating goals: %w", err)
	}
	return goals, nil
}

// ListRecentIncomplete returns up to limit incomplete goals, newest
// first, used to build the adventure goal context.
func (r *GoalRepository) ListRecentIncomplete(ctx context.Context, userID uuid.UUID, limit int) ([]*model.Goal, error) {
	const query = `
		SELECT ` + goalColumns + `
		FROM goals
		WHERE user_id = $1 AND NOT completed
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list incomplete goals: %w", err)
	}
	defer rows.Close()

	var goals []*model.Goal
	for rows.Next() {
		var g model.Goal
		err := rows.Scan(&g.ID, &g.UserID, &g.Title, &g.Description, &g.TargetAmount,
			&g.CurrentAmount, &g.Completed, &g.CompletedAt, &g.CreatedAt, &g.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan goal: %w", err)
		}
		goals = append(goals, &g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating goals: %w", err)
	}
	return goals, nil
}

// UpdateProgress writes the accumulated amount of an open goal.
func (r *GoalRepository) UpdateProgress(ctx context.Context, id uuid.UUID, currentAmount decimal.Decimal) error {
	const query = `
		UPDATE goals
		SET current_amount = $2, updated_at = NOW()
		WHERE id = $1 AND NOT completed
	`
	if _, err := r.q.Exec(ctx, query, id, currentAmount); err != nil {
		return fmt.Errorf("failed to update goal progress: %w", err)
	}
	return nil
}

// Complete flips the completion bit once; completed goals never revert.
func (r *GoalRepository) Complete(ctx context.Context, id uuid.UUID, completedAt time.Time) (bool, error) {
	const query = `
		UPDATE goals
		SET completed = TRUE, completed_at = $2, updated_at = NOW()
		WHERE id = $1 AND NOT completed
	`

	result, err := r.q.Exec(ctx, query, id, completedAt)
	if err != nil {
		return false, fmt.Errorf("failed to complete goal: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// Delete removes a goal scoped to its owner.
func (r *GoalRepository) Delete(ctx context.Context, goalID, userID uuid.UUID) error {
	const query = `DELETE FROM goals WHERE id = $1 AND user_id = $2`

	result, err := r.q.Exec(ctx, query, goalID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete goal: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrGoalNotFound
	}
	return nil
}
