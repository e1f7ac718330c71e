package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"finkid-backend/internal/apperr"
	"finkid-backend/internal/model"
	"finkid-backend/internal/pkg/db"
	"finkid-backend/internal/repository"
)

// Feed arithmetic constants: happiness gains half the nutrition, and a
// well-fed pet (hunger below the threshold) slowly regains health.
const (
	wellFedHungerThreshold = 30
	wellFedHealthGain      = 5
	statMin                = 0
	statMax                = 100
)

// FeedResult is the stat triple after a feed.
type FeedResult struct {
	Tamagotchi *model.Tamagotchi
	MissionPct float64
	MissionHit bool
}

// TamagotchiService is the pet engine: state reads, the feed
// transaction consuming inventory, and renaming.
type TamagotchiService struct {
	pool           *db.Pool
	tamagotchiRepo *repository.TamagotchiRepository
	catalogRepo    *repository.CatalogRepository
	inventoryRepo  *repository.InventoryRepository
	shopSvc        *ShopService
	missionSvc     *MissionService
}

// NewTamagotchiService creates a new TamagotchiService instance.
func NewTamagotchiService(
	pool *db.Pool,
	tamagotchiRepo *repository.TamagotchiRepository,
	catalogRepo *repository.CatalogRepository,
	inventoryRepo *repository.InventoryRepository,
	shopSvc *ShopService,
	missionSvc *MissionService,
) *TamagotchiService {
	return &TamagotchiService{
		pool:           pool,
		tamagotchiRepo: tamagotchiRepo,
		catalogRepo:    catalogRepo,
		inventoryRepo:  inventoryRepo,
		shopSvc:        shopSvc,
		missionSvc:     missionSvc,
	}
}

// Get returns the user's tamagotchi.
func (s *TamagotchiService) Get(ctx context.Context, userID uuid.UUID) (*model.Tamagotchi, error) {
	t, err := s.tamagotchiRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrTamagotchiNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "Tamagotchi not found")
		}
		return nil, err
	}
	return t, nil
}

// Feed consumes one unit of an owned food and applies its nutrition to
// the pet's stats. The stat update, the inventory decrement, and any
// tamagotchi_care mission progress share one transaction.
func (s *TamagotchiService) Feed(ctx context.Context, userID, foodID uuid.UUID) (*FeedResult, error) {
	var result FeedResult
	err := db.RunInTx(ctx, s.pool.Pool, func(tx pgx.Tx) error {
		t, err := s.tamagotchiRepo.WithTx(tx).GetForUpdate(ctx, userID)
		if err != nil {
			if errors.Is(err, repository.ErrTamagotchiNotFound) {
				return apperr.New(apperr.KindNotFound, "Tamagotchi not found")
			}
			return err
		}

		food, err := s.catalogRepo.WithTx(tx).GetFood(ctx, foodID)
		if err != nil {
			if errors.Is(err, repository.ErrFoodNotFound) {
				return apperr.New(apperr.KindNotFound, "Food not found")
			}
			return err
		}

		owns, err := s.inventoryRepo.WithTx(tx).Owns(ctx, userID, model.ItemTypeFood, foodID)
		if err != nil {
			return err
		}
		if !owns {
			return apperr.New(apperr.KindForbidden, "You don't own that food")
		}

		hunger, happiness, health := applyFeed(t.Hunger, t.Happiness, t.Health, food.NutritionValue)
		now := s.missionSvc.now().UTC()
		updated, err := s.tamagotchiRepo.WithTx(tx).UpdateStats(ctx, t.ID, hunger, happiness, health, now)
		if err != nil {
			return err
		}
		result.Tamagotchi = updated

		if err := s.shopSvc.ConsumeItemTx(ctx, tx, userID, foodID, model.ItemTypeFood, 1); err != nil {
			return err
		}

		pct, hit, err := s.missionSvc.RecordCareTx(ctx, tx, userID)
		if err != nil {
			return err
		}
		result.MissionPct, result.MissionHit = pct, hit
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("user_id", userID.String()).
		Int("hunger", result.Tamagotchi.Hunger).
		Int("happiness", result.Tamagotchi.Happiness).
		Int("health", result.Tamagotchi.Health).
		Msg("Tamagotchi fed")
	return &result, nil
}

// Rename changes the pet's name.
func (s *TamagotchiService) Rename(ctx context.Context, userID uuid.UUID, name string) (*model.Tamagotchi, error) {
	if name == "" || len(name) > 50 {
		return nil, apperr.Validation([]apperr.FieldError{{Field: "name", Message: "Must be 1-50 characters"}})
	}

	t, err := s.tamagotchiRepo.Rename(ctx, userID, name)
	if err != nil {
		if errors.Is(err, repository.ErrTamagotchiNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "Tamagotchi not found")
		}
		return nil, err
	}
	return t, nil
}

// applyFeed computes the post-feed stat triple from the nutrition value.
// Hunger drops by the nutrition, happiness rises by half of it, and
// health regenerates only once hunger is below the well-fed threshold.
func applyFeed(hunger, happiness, health, nutrition int) (int, int, int) {
	hunger = clampStat(hunger - nutrition)
	happiness = clampStat(happiness + nutrition/2)
	if hunger < wellFedHungerThreshold {
		health = clampStat(health + wellFedHealthGain)
	}
	return hunger, happiness, health
}

func clampStat(v int) int {
	if v < statMin {
		return statMin
	}
	if v > statMax {
		return statMax
	}
	return v
}
