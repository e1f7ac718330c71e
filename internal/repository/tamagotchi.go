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

// TamagotchiRepository handles virtual pet persistence.
type TamagotchiRepository struct {
	q db.Querier
}

// NewTamagotchiRepository creates a new TamagotchiRepository instance.
func NewTamagotchiRepository(q db.Querier) *TamagotchiRepository {
	return &TamagotchiRepository{q: q}
}

// WithTx returns a copy bound to the given transaction.
func (r *TamagotchiRepository) WithTx(tx pgx.Tx) *TamagotchiRepository {
	return &TamagotchiRepository{q: tx}
}

const tamagotchiColumns = `id, user_id, character_id, name, hunger, happiness, health, last_fed_at, created_at, updated_at`

func scanTamagotchi(row pgx.Row) (*model.Tamagotchi, error) {
	var t model.Tamagotchi
	err := row.Scan(&t.ID, &t.UserID, &t.CharacterID, &t.Name,
		&t.Hunger, &t.Happiness, &t.Health, &t.LastFedAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Create inserts the user's tamagotchi with the onboarding stats. The
// unique user_id constraint rejects a second pet.
func (r *TamagotchiRepository) Create(ctx context.Context, userID, characterID uuid.UUID, name string) (*model.Tamagotchi, error) {
	const query = `
		INSERT INTO tamagotchis (id, user_id, character_id, name, hunger, happiness, health, last_fed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 50, 50, 100, NULL, NOW(), NOW())
		RETURNING ` + tamagotchiColumns

	t, err := scanTamagotchi(r.q.QueryRow(ctx, query, uuid.New(), userID, characterID, name))
	if err != nil {
		return nil, fmt.Errorf("failed to create tamagotchi: %w", err)
	}
	return t, nil
}

// GetByUserID retrieves the user's tamagotchi.
func (r *TamagotchiRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Tamagotchi, error) {
	const query = `SELECT ` + tamagotchiColumns + ` FROM tamagotchis WHERE user_id = $1`

	t, err := scanTamagotchi(r.q.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTamagotchiNotFound
		}
		return nil, fmt.Errorf("failed to get tamagotchi: %w", err)
	}
	return t, nil
}

// GetForUpdate retrieves the user's tamagotchi holding its row lock.
// Must run inside a transaction.
func (r *TamagotchiRepository) GetForUpdate(ctx context.Context, userID uuid.UUID) (*model.Tamagotchi, error) {
	const query = `SELECT ` + tamagotchiColumns + ` FROM tamagotchis WHERE user_id = $1 FOR UPDATE`

	t, err := scanTamagotchi(r.q.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTamagotchiNotFound
		}
		return nil, fmt.Errorf("failed to lock tamagotchi: %w", err)
	}
	return t, nil
}

// UpdateStats writes the post-feed stat triple and last-fed time.
func (r *TamagotchiRepository) UpdateStats(ctx context.Context, id uuid.UUID, hunger, happiness, health int, lastFedAt time.Time) (*model.Tamagotchi, error) {
	const query = `
		UPDATE tamagotchis
		SET hunger = $2, happiness = $3, health = $4, last_fed_at = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + tamagotchiColumns

	t, err := scanTamagotchi(r.q.QueryRow(ctx, query, id, hunger, happiness, health, lastFedAt))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTamagotchiNotFound
		}
		return nil, fmt.Errorf("failed to update tamagotchi stats: %w", err)
	}
	return t, nil
}

// Rename updates the pet's name.
func (r *TamagotchiRepository) Rename(ctx context.Context, userID uuid.UUID, name string) (*model.Tamagotchi, error) {
	const query = `
		UPDATE tamagotchis
		SET name = $2, updated_at = NOW()
		WHERE user_id = $1
		RETURNING ` + tamagotchiColumns

	t, err := scanTamagotchi(r.q.QueryRow(ctx, query, userID, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTamagotchiNotFound
		}
		return nil, fmt.Errorf("failed to rename tamagotchi: %w", err)
	}
	return t, nil
}

// ExistsForUser reports whether the user already has a tamagotchi.
func (r *TamagotchiRepository) ExistsForUser(ctx context.Context, userID uuid.UUID) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM tamagotchis WHERE user_id = $1)`

	var exists bool
	if err := r.q.QueryRow(ctx, query, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check tamagotchi existence: %w", err)
	}
	return exists, nil
}
