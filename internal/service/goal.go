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
	"finkid-backend/internal/model"
	"finkid-backend/internal/pkg/db"
	"finkid-backend/internal/repository"
)

// goalBonusRate is the share of the target credited on completion,
// floored to whole coins.
var goalBonusRate = decimal.NewFromFloat(0.1)

// ProgressResult is the outcome of adding goal progress.
type ProgressResult struct {
	Goal         *model.Goal
	ProgressPct  float64
	BonusAwarded *decimal.Decimal
}

// GoalService is the goal engine: CRUD plus transactional progress with
// the one-shot completion bonus.
type GoalService struct {
	pool      *db.Pool
	goalRepo  *repository.GoalRepository
	walletSvc *WalletService
	now       func() time.Time
}

// NewGoalService creates a new GoalService instance.
func NewGoalService(pool *db.Pool, goalRepo *repository.GoalRepository, walletSvc *WalletService) *GoalService {
	return &GoalService{pool: pool, goalRepo: goalRepo, walletSvc: walletSvc, now: time.Now}
}

// Create inserts a new goal.
func (s *GoalService) Create(ctx context.Context, userID uuid.UUID, title string, targetAmount decimal.Decimal, description *string) (*model.Goal, error) {
	if title == "" {
		return nil, apperr.Validation([]apperr.FieldError{{Field: "title", Message: "Title is required"}})
	}
	if !targetAmount.IsPositive() {
		return nil, apperr.New(apperr.KindInvalidAmount, "Target amount must be greater than zero")
	}
	return s.goalRepo.Create(ctx, userID, title, targetAmount, description)
}

// List returns all of the user's goals.
func (s *GoalService) List(ctx context.Context, userID uuid.UUID) ([]*model.Goal, error) {
	return s.goalRepo.List(ctx, userID, nil)
}

// ListActive returns the user's incomplete goals.
func (s *GoalService) ListActive(ctx context.Context, userID uuid.UUID) ([]*model.Goal, error) {
	completed := false
	return s.goalRepo.List(ctx, userID, &completed)
}

// ListCompleted returns the user's completed goals.
func (s *GoalService) ListCompleted(ctx context.Context, userID uuid.UUID) ([]*model.Goal, error) {
	completed := true
	return s.goalRepo.List(ctx, userID, &completed)
}

// AddProgress accumulates amount toward the goal. Reaching the target
// completes the goal and credits the bonus, all in one transaction; a
// completed goal rejects further progress.
func (s *GoalService) AddProgress(ctx context.Context, goalID, userID uuid.UUID, amount decimal.Decimal) (*ProgressResult, error) {
	if !amount.IsPositive() {
		return nil, apperr.New(apperr.KindInvalidAmount, "Amount must be greater than zero")
	}

	var result ProgressResult
	err := db.RunInTx(ctx, s.pool.Pool, func(tx pgx.Tx) error {
		goalRepo := s.goalRepo.WithTx(tx)

		goal, err := goalRepo.GetForUpdate(ctx, goalID, userID)
		if err != nil {
			if errors.Is(err, repository.ErrGoalNotFound) {
				return apperr.New(apperr.KindNotFound, "Goal not found")
			}
			return err
		}
		if goal.Completed {
			return apperr.New(apperr.KindAlreadyCompleted, "Goal already completed")
		}

		goal.CurrentAmount = goal.CurrentAmount.Add(amount)
		if err := goalRepo.UpdateProgress(ctx, goal.ID, goal.CurrentAmount); err != nil {
			return err
		}

		pct := progressPercent(goal.CurrentAmount, goal.TargetAmount)

		if goal.CurrentAmount.GreaterThanOrEqual(goal.TargetAmount) {
			completedAt := s.now().UTC()
			transitioned, err := goalRepo.Complete(ctx, goal.ID, completedAt)
			if err != nil {
				return err
			}
			if transitioned {
				goal.Completed = true
				goal.CompletedAt = &completedAt

				bonus := goal.TargetAmount.Mul(goalBonusRate).Floor()
				if bonus.IsPositive() {
					_, err := s.walletSvc.CreditTx(ctx, tx, userID, bonus, model.TxTypeGoalBonus,
						fmt.Sprintf("Completed goal: %s", goal.Title))
					if err != nil {
						return err
					}
					result.BonusAwarded = &bonus
				}
			}
		}

		result.Goal = goal
		result.ProgressPct = pct
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.BonusAwarded != nil {
		log.Info().
			Str("user_id", userID.String()).
			Str("goal", result.Goal.Title).
			Str("bonus", result.BonusAwarded.StringFixed(2)).
			Msg("Goal completed")
	}
	return &result, nil
}

// Delete removes a goal scoped to its owner.
func (s *GoalService) Delete(ctx context.Context, goalID, userID uuid.UUID) error {
	err := s.goalRepo.Delete(ctx, goalID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrGoalNotFound) {
			return apperr.New(apperr.KindNotFound, "Goal not found")
		}
		return err
	}
	return nil
}

// progressPercent returns min(100, 100*current/target).
func progressPercent(current, target decimal.Decimal) float64 {
	if !target.IsPositive() {
		return 100
	}
	pct, _ := current.Div(target).Mul(decimal.NewFromInt(100)).Float64()
	if pct > 100 {
		return 100
	}
	return pct
}
