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

// MissionRepository handles the daily mission catalog and per-user
// mission progress. Progress and requirements maps live in JSONB.
type MissionRepository struct {
	q db.Querier
}

// NewMissionRepository creates a new MissionRepository instance.
func NewMissionRepository(q db.Querier) *MissionRepository {
	return &MissionRepository{q: q}
}

// WithTx returns a copy bound to the given transaction.
func (r *MissionRepository) WithTx(tx pgx.Tx) *MissionRepository {
	return &MissionRepository{q: tx}
}

const missionColumns = `id, title, description, mission_type, requirements, reward_coins, active_date`

func scanMission(row pgx.Row) (*model.Mission, error) {
	var m model.Mission
	err := row.Scan(&m.ID, &m.Title, &m.Description, &m.MissionType,
		&m.Requirements, &m.RewardCoins, &m.ActiveDate)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetByActiveDate retrieves the mission active on the given UTC day.
func (r *MissionRepository) GetByActiveDate(ctx context.Context, day time.Time) (*model.Mission, error) {
	const query = `SELECT ` + missionColumns + ` FROM missions WHERE active_date = $1::date`

	m, err := scanMission(r.q.QueryRow(ctx, query, day.UTC().Format("2006-01-02")))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMissionNotFound
		}
		return nil, fmt.Errorf("failed to get active mission: %w", err)
	}
	return m, nil
}

// GetByID retrieves one mission.
func (r *MissionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Mission, error) {
	const query = `SELECT ` + missionColumns + ` FROM missions WHERE id = $1`

	m, err := scanMission(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMissionNotFound
		}
		return nil, fmt.Errorf("failed to get mission: %w", err)
	}
	return m, nil
}

// Insert adds a mission to the catalog (seeding).
func (r *MissionRepository) Insert(ctx context.Context, title, description, missionType string, requirements map[string]int, rewardCoins decimal.Decimal, activeDate time.Time) (*model.Mission, error) {
	const query = `
		INSERT INTO missions (id, title, description, mission_type, requirements, reward_coins, active_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7::date)
		ON CONFLICT (active_date) DO UPDATE SET active_date = EXCLUDED.active_date
		RETURNING ` + missionColumns

	m, err := scanMission(r.q.QueryRow(ctx, query, uuid.New(), title, description,
		missionType, requirements, rewardCoins, activeDate.UTC().Format("2006-01-02")))
	if err != nil {
		return nil, fmt.Errorf("failed to insert mission: %w", err)
	}
	return m, nil
}

// CountOnOrAfter returns how many missions are scheduled from the given
// day onward, used to decide whether seeding is needed.
func (r *MissionRepository) CountOnOrAfter(ctx context.Context, day time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM missions WHERE active_date >= $1::date`

	var count int
	if err := r.q.QueryRow(ctx, query, day.UTC().Format("2006-01-02")).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count missions: %w", err)
	}
	return count, nil
}

const userMissionColumns = `id, user_id, mission_id, progress, completed, completed_at, created_at`

func scanUserMission(row pgx.Row) (*model.UserMission, error) {
	var um model.UserMission
	err := row.Scan(&um.ID, &um.UserID, &um.MissionID, &um.Progress,
		&um.Completed, &um.CompletedAt, &um.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &um, nil
}

// UpsertUserMission lazily creates the user's progress row for a
// mission and returns it. Existing rows are returned unchanged.
func (r *MissionRepository) UpsertUserMission(ctx context.Context, userID, missionID uuid.UUID) (*model.UserMission, error) {
	const insert = `
		INSERT INTO user_missions (id, user_id, mission_id, progress, completed, completed_at, created_at)
		VALUES ($1, $2, $3, '{}'::jsonb, FALSE, NULL, NOW())
		ON CONFLICT (user_id, mission_id) DO NOTHING
	`
	if _, err := r.q.Exec(ctx, insert, uuid.New(), userID, missionID); err != nil {
		return nil, fmt.Errorf("failed to upsert user mission: %w", err)
	}

	const query = `SELECT ` + userMissionColumns + ` FROM user_missions WHERE user_id = $1 AND mission_id = $2`
	um, err := scanUserMission(r.q.QueryRow(ctx, query, userID, missionID))
	if err != nil {
		return nil, fmt.Errorf("failed to get user mission: %w", err)
	}
	return um, nil
}

// GetUserMissionForUpdate upserts the progress row and locks it. Must
// run inside a transaction.
func (r *MissionRepository) GetUserMissionForUpdate(ctx context.Context, userID, missionID uuid.UUID) (*model.UserMission, error) {
	const insert = `
		INSERT INTO user_missions (id, user_id, mission_id, progress, completed, completed_at, created_at)
		VALUES ($1, $2, $3, '{}'::jsonb, FALSE, NULL, NOW())
		ON CONFLICT (user_id, mission_id) DO NOTHING
	`
	if _, err := r.q.Exec(ctx, insert, uuid.New(), userID, missionID); err != nil {
		return nil, fmt.Errorf("failed to upsert user mission: %w", err)
	}

	const query = `SELECT ` + userMissionColumns + ` FROM user_missions WHERE user_id = $1 AND mission_id = $2 FOR UPDATE`
	um, err := scanUserMission(r.q.QueryRow(ctx, query, userID, missionID))
	if err != nil {
		return nil, fmt.Errorf("failed to lock user mission: %w", err)
	}
	return um, nil
}

// UpdateProgress writes the progress map of an incomplete user mission.
func (r *MissionRepository) UpdateProgress(ctx context.Context, id uuid.UUID, progress map[string]int) error {
	const query = `UPDATE user_missions SET progress = $2 WHERE id = $1 AND NOT completed`

	if _, err := r.q.Exec(ctx, query, id, progress); err != nil {
		return fmt.Errorf("failed to update mission progress: %w", err)
	}
	return nil
}

// Complete flips the completion bit. The WHERE clause keeps the
// transition one-shot: rows already completed are untouched and the
// caller must not credit the reward when no row was updated.
func (r *MissionRepository) Complete(ctx context.Context, id uuid.UUID, completedAt time.Time) (bool, error) {
	const query = `
		UPDATE user_missions
		SET completed = TRUE, completed_at = $2
		WHERE id = $1 AND NOT completed
	`

	result, err := r.q.Exec(ctx, query, id, completedAt)
	if err != nil {
		return false, fmt.Errorf("failed to complete mission: %w", err)
	}
	return result.RowsAffected() > 0, nil
}
