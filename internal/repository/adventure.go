package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"finkid-backend/internal/model"
	"finkid-backend/internal/pkg/db"
)

// AdventureRepository handles AI adventure persistence. The evaluation
// write is guarded on the unsubmitted state so the submitted → submitted
// transition can never happen.
type AdventureRepository struct {
	q db.Querier
}

// NewAdventureRepository creates a new AdventureRepository instance.
func NewAdventureRepository(q db.Querier) *AdventureRepository {
	return &AdventureRepository{q: q}
}

// WithTx returns a copy bound to the given transaction.
func (r *AdventureRepository) WithTx(tx pgx.Tx) *AdventureRepository {
	return &AdventureRepository{q: tx}
}

const adventureColumns = `id, user_id, scenario, choices, selected_choice_index, feedback, scores, generation_trace_id, evaluation_trace_id, created_at, evaluated_at`

func scanAdventure(row pgx.Row) (*model.Adventure, error) {
	var a model.Adventure
	err := row.Scan(&a.ID, &a.UserID, &a.Scenario, &a.Choices, &a.SelectedChoiceIndex,
		&a.Feedback, &a.Scores, &a.GenerationTraceID, &a.EvaluationTraceID,
		&a.CreatedAt, &a.EvaluatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Create inserts a freshly generated, unsubmitted adventure.
func (r *AdventureRepository) Create(ctx context.Context, userID uuid.UUID, scenario string, choices []string, generationTraceID string) (*model.Adventure, error) {
	const query = `
		INSERT INTO adventures (id, user_id, scenario, choices, selected_choice_index, feedback, scores, generation_trace_id, evaluation_trace_id, created_at, evaluated_at)
		VALUES ($1, $2, $3, $4, NULL, NULL, NULL, $5, NULL, NOW(), NULL)
		RETURNING ` + adventureColumns

	a, err := scanAdventure(r.q.QueryRow(ctx, query, uuid.New(), userID, scenario, choices, generationTraceID))
	if err != nil {
		return nil, fmt.Errorf("failed to create adventure: %w", err)
	}
	return a, nil
}

// GetByID retrieves an adventure scoped to its owner.
func (r *AdventureRepository) GetByID(ctx context.Context, id, userID uuid.UUID) (*model.Adventure, error) {
	const query = `SELECT ` + adventureColumns + ` FROM adventures WHERE id = $1 AND user_id = $2`

	a, err := scanAdventure(r.q.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAdventureNotFound
		}
		return nil, fmt.Errorf("failed to get adventure: %w", err)
	}
	return a, nil
}

// ListByUser returns a user's adventures, newest first.
func (r *AdventureRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*model.Adventure, error) {
	const query = `
		SELECT ` + adventureColumns + `
		FROM adventures
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list adventures: %w", err)
	}
	defer rows.Close()

	var adventures []*model.Adventure
	for rows.Next() {
		var a model.Adventure
		err := rows.Scan(&a.ID, &a.UserID, &a.Scenario, &a.Choices, &a.SelectedChoiceIndex,
			&a.Feedback, &a.Scores, &a.GenerationTraceID, &a.EvaluationTraceID,
			&a.CreatedAt, &a.EvaluatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan adventure: %w", err)
		}
		adventures = append(adventures, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating adventures: %w", err)
	}
	return adventures, nil
}

// SubmitEvaluation writes the entire evaluation in one statement,
// guarded on the adventure still being unsubmitted. Returns false when
// the guard did not match (already submitted, possibly by a racing
// request).
func (r *AdventureRepository) SubmitEvaluation(ctx context.Context, id, userID uuid.UUID, choiceIndex int, feedback string, scores map[string]float64, evaluationTraceID string, evaluatedAt time.Time) (*model.Adventure, bool, error) {
	const query = `
		UPDATE adventures
		SET selected_choice_index = $3,
		    feedback = $4,
		    scores = $5,
		    evaluation_trace_id = $6,
		    evaluated_at = $7
		WHERE id = $1 AND user_id = $2 AND selected_choice_index IS NULL
		RETURNING ` + adventureColumns

	a, err := scanAdventure(r.q.QueryRow(ctx, query, id, userID, choiceIndex, feedback, scores, evaluationTraceID, evaluatedAt))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to submit evaluation: %w", err)
	}
	return a, true, nil
}
