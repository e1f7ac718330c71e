package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"finkid-backend/internal/model"
	"finkid-backend/internal/pkg/db"
)

// ProfileRepository handles profile persistence.
type ProfileRepository struct {
	q db.Querier
}

// NewProfileRepository creates a new ProfileRepository instance.
func NewProfileRepository(q db.Querier) *ProfileRepository {
	return &ProfileRepository{q: q}
}

// WithTx returns a copy bound to the given transaction.
func (r *ProfileRepository) WithTx(tx pgx.Tx) *ProfileRepository {
	return &ProfileRepository{q: tx}
}

const profileColumns = `id, user_id, age, allowance, currency, onboarding_completed, created_at, updated_at`

func scanProfile(row pgx.Row) (*model.Profile, error) {
	var p model.Profile
	err := row.Scan(&p.ID, &p.UserID, &p.Age, &p.Allowance, &p.Currency,
		&p.OnboardingCompleted, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts a profile for the user. The unique user_id constraint
// rejects a second profile.
func (r *ProfileRepository) Create(ctx context.Context, userID uuid.UUID, age int, allowance decimal.Decimal, currency string) (*model.Profile, error) {
	const query = `
		INSERT INTO profiles (id, user_id, age, allowance, currency, onboarding_completed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, FALSE, NOW(), NOW())
		RETURNING ` + profileColumns

	profile, err := scanProfile(r.q.QueryRow(ctx, query, uuid.New(), userID, age, allowance, currency))
	if err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}
	return profile, nil
}

// GetByUserID retrieves the profile for a user.
func (r *ProfileRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Profile, error) {
	const query = `SELECT ` + profileColumns + ` FROM profiles WHERE user_id = $1`

	profile, err := scanProfile(r.q.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return profile, nil
}

// CompleteOnboarding flips onboarding_completed to true.
func (r *ProfileRepository) CompleteOnboarding(ctx context.Context, userID uuid.UUID) error {
	const query = `
		UPDATE profiles
		SET onboarding_completed = TRUE, updated_at = NOW()
		WHERE user_id = $1
	`

	result, err := r.q.Exec(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("failed to complete onboarding: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrProfileNotFound
	}
	return nil
}
