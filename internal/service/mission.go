package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"finkid-backend/internal/apperr"
	"finkid-backend/internal/mission"
	"finkid-backend/internal/model"
	"finkid-backend/internal/pkg/db"
	"finkid-backend/internal/repository"
)

// TodayResult is the daily mission view for one user.
type TodayResult struct {
	Mission     *model.Mission
	UserMission *model.UserMission
	ProgressPct float64
}

// LogResult is the outcome of logging an expense or saving. Mission
// fields are zero-valued when no mission is active today.
type LogResult struct {
	Expense     *model.Expense
	Saving      *model.Saving
	ProgressPct float64
	Completed   bool
}

// MissionService is the mission engine: daily mission resolution,
// activity logging with transactional progress updates, and the
// exactly-once completion reward.
type MissionService struct {
	pool         *db.Pool
	missionRepo  *repository.MissionRepository
	activityRepo *repository.ActivityRepository
	walletSvc    *WalletService
	registry     *mission.Registry
	now          func() time.Time
}

// NewMissionService creates a new MissionService instance.
func NewMissionService(pool *db.Pool, missionRepo *repository.MissionRepository, activityRepo *repository.ActivityRepository, walletSvc *WalletService, registry *mission.Registry) *MissionService {
	return &MissionService{
		pool:         pool,
		missionRepo:  missionRepo,
		activityRepo: activityRepo,
		walletSvc:    walletSvc,
		registry:     registry,
		now:          time.Now,
	}
}

// Today returns the mission active on the current UTC day with the
// user's progress, lazily creating the progress row on first fetch.
func (s *MissionService) Today(ctx context.Context, userID uuid.UUID) (*TodayResult, error) {
	m, err := s.missionRepo.GetByActiveDate(ctx, s.now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrMissionNotFound) {
			return nil, apperr.New(apperr.KindNoActiveMission, "No mission active today")
		}
		return nil, err
	}

	um, err := s.missionRepo.UpsertUserMission(ctx, userID, m.ID)
	if err != nil {
		return nil, err
	}

	pct := s.registry.Progress(m.MissionType, m.Requirements, um.Progress)
	if um.Completed {
		pct = 100
	}
	return &TodayResult{Mission: m, UserMission: um, ProgressPct: pct}, nil
}

// LogExpense appends an expense row and advances today's mission in the
// same transaction. Logging never fails for an absent mission.
func (s *MissionService) LogExpense(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, category string, description *string) (*LogResult, error) {
	if !amount.IsPositive() {
		return nil, apperr.New(apperr.KindInvalidAmount, "Amount must be greater than zero")
	}
	if category == "" {
		return nil, apperr.Validation([]apperr.FieldError{{Field: "category", Message: "Category is required"}})
	}

	var result LogResult
	err := db.RunInTx(ctx, s.pool.Pool, func(tx pgx.Tx) error {
		expense, err := s.activityRepo.WithTx(tx).InsertExpense(ctx, userID, amount, category, description)
		if err != nil {
			return err
		}
		result.Expense = expense

		pct, completed, err := s.advanceProgressTx(ctx, tx, userID, model.ProgressKeyExpenseCount)
		if err != nil {
			return err
		}
		result.ProgressPct, result.Completed = pct, completed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// LogSaving appends a saving row and advances today's mission in the
// same transaction.
func (s *MissionService) LogSaving(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, source *string) (*LogResult, error) {
	if !amount.IsPositive() {
		return nil, apperr.New(apperr.KindInvalidAmount, "Amount must be greater than zero")
	}

	var result LogResult
	err := db.RunInTx(ctx, s.pool.Pool, func(tx pgx.Tx) error {
		saving, err := s.activityRepo.WithTx(tx).InsertSaving(ctx, userID, amount, source)
		if err != nil {
			return err
		}
		result.Saving = saving

		pct, completed, err := s.advanceProgressTx(ctx, tx, userID, model.ProgressKeySavingCount)
		if err != nil {
			return err
		}
		result.ProgressPct, result.Completed = pct, completed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// RecordCareTx advances a tamagotchi_care mission from inside the feed
// transaction.
func (s *MissionService) RecordCareTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (float64, bool, error) {
	return s.advanceProgressTx(ctx, tx, userID, model.ProgressKeyFeedCount)
}

// advanceProgressTx increments the given progress counter on today's
// mission, if one exists and counts that key, and fires the one-shot
// completion transition crediting the reward. It reports the resulting
// progress percentage and completion state.
func (s *MissionService) advanceProgressTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, key string) (float64, bool, error) {
	missionRepo := s.missionRepo.WithTx(tx)

	m, err := missionRepo.GetByActiveDate(ctx, s.now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrMissionNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}

	um, err := missionRepo.GetUserMissionForUpdate(ctx, userID, m.ID)
	if err != nil {
		return 0, false, err
	}

	if um.Completed {
		return 100, true, nil
	}

	progress := um.Progress
	if progress == nil {
		progress = make(map[string]int)
	}
	if s.registry.Counts(m.MissionType, key) {
		progress[key]++
		if err := missionRepo.UpdateProgress(ctx, um.ID, progress); err != nil {
			return 0, false, err
		}
	}

	pct := s.registry.Progress(m.MissionType, m.Requirements, progress)
	if pct < 100 {
		return pct, false, nil
	}

	transitioned, err := missionRepo.Complete(ctx, um.ID, s.now().UTC())
	if err != nil {
		return 0, false, err
	}
	if transitioned && m.RewardCoins.IsPositive() {
		_, err := s.walletSvc.CreditTx(ctx, tx, userID, m.RewardCoins, model.TxTypeMissionReward,
			fmt.Sprintf("Completed mission: %s", m.Title))
		if err != nil {
			return 0, false, err
		}
		log.Info().
			Str("user_id", userID.String()).
			Str("mission", m.Title).
			Str("reward", m.RewardCoins.StringFixed(2)).
			Msg("Mission completed")
	}
	return 100, true, nil
}

// Expenses returns the user's expense history, newest first.
func (s *MissionService) Expenses(ctx context.Context, userID uuid.UUID, limit int) ([]*model.Expense, error) {
	return s.activityRepo.ListExpenses(ctx, userID, normalizeLimit(limit, 20, 100))
}

// Savings returns the user's saving history, newest first.
func (s *MissionService) Savings(ctx context.Context, userID uuid.UUID, limit int) ([]*model.Saving, error) {
	return s.activityRepo.ListSavings(ctx, userID, normalizeLimit(limit, 20, 100))
}

func normalizeLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
