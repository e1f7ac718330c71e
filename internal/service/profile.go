package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"finkid-backend/internal/apperr"
	"finkid-backend/internal/catalog"
	"finkid-backend/internal/model"
	"finkid-backend/internal/pkg/db"
	"finkid-backend/internal/repository"
)

// OnboardingResult is the outcome of choosing a starter character.
type OnboardingResult struct {
	Tamagotchi *model.Tamagotchi
	Character  *model.Character
}

// ProfileService handles profile creation and starter onboarding.
type ProfileService struct {
	pool           *db.Pool
	profileRepo    *repository.ProfileRepository
	catalogRepo    *repository.CatalogRepository
	tamagotchiRepo *repository.TamagotchiRepository
	inventoryRepo  *repository.InventoryRepository
}

// NewProfileService creates a new ProfileService instance.
func NewProfileService(
	pool *db.Pool,
	profileRepo *repository.ProfileRepository,
	catalogRepo *repository.CatalogRepository,
	tamagotchiRepo *repository.TamagotchiRepository,
	inventoryRepo *repository.InventoryRepository,
) *ProfileService {
	return &ProfileService{
		pool:           pool,
		profileRepo:    profileRepo,
		catalogRepo:    catalogRepo,
		tamagotchiRepo: tamagotchiRepo,
		inventoryRepo:  inventoryRepo,
	}
}

// Create inserts the user's profile. A second profile is a conflict.
func (s *ProfileService) Create(ctx context.Context, userID uuid.UUID, age int, allowance decimal.Decimal, currency string) (*model.Profile, error) {
	if age < 5 || age > 18 {
		return nil, apperr.Validation([]apperr.FieldError{{Field: "age", Message: "Must be between 5 and 18"}})
	}
	if !allowance.IsPositive() {
		return nil, apperr.New(apperr.KindInvalidAmount, "Allowance must be greater than zero")
	}
	if currency == "" {
		currency = DefaultCurrency
	}

	profile, err := s.profileRepo.Create(ctx, userID, age, allowance, currency)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, apperr.New(apperr.KindConflict, "Profile already exists")
		}
		return nil, err
	}
	return profile, nil
}

// Get returns the user's profile.
func (s *ProfileService) Get(ctx context.Context, userID uuid.UUID) (*model.Profile, error) {
	profile, err := s.profileRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "Profile not found")
		}
		return nil, err
	}
	return profile, nil
}

// ListStarterCharacters returns the characters eligible for onboarding.
func (s *ProfileService) ListStarterCharacters(ctx context.Context) ([]*model.Character, error) {
	return s.catalogRepo.ListStarterCharacters(ctx)
}

// ChooseStarterCharacter creates the user's tamagotchi from a starter
// character, completes onboarding, and seeds the starting inventory —
// all in one transaction.
func (s *ProfileService) ChooseStarterCharacter(ctx context.Context, userID, characterID uuid.UUID) (*OnboardingResult, error) {
	var result *OnboardingResult
	err := db.RunInTx(ctx, s.pool.Pool, func(tx pgx.Tx) error {
		character, err := s.catalogRepo.WithTx(tx).GetCharacter(ctx, characterID)
		if err != nil {
			if errors.Is(err, repository.ErrCharacterNotFound) {
				return apperr.New(apperr.KindNotFound, "Character not found")
			}
			return err
		}
		if !character.IsStarter {
			return apperr.New(apperr.KindInvalidStarter, "Character is not a starter")
		}

		tamRepo := s.tamagotchiRepo.WithTx(tx)
		exists, err := tamRepo.ExistsForUser(ctx, userID)
		if err != nil {
			return err
		}
		if exists {
			return apperr.New(apperr.KindConflict, "Starter character already chosen")
		}

		tamagotchi, err := tamRepo.Create(ctx, userID, character.ID, character.Name)
		if err != nil {
			if db.IsUniqueViolation(err) {
				return apperr.New(apperr.KindConflict, "Starter character already chosen")
			}
			return err
		}

		if err := s.profileRepo.WithTx(tx).CompleteOnboarding(ctx, userID); err != nil {
			if errors.Is(err, repository.ErrProfileNotFound) {
				return apperr.New(apperr.KindNotFound, "Profile not found")
			}
			return err
		}

		invRepo := s.inventoryRepo.WithTx(tx)
		if err := invRepo.AddCharacter(ctx, userID, character.ID); err != nil {
			return err
		}
		if err := invRepo.AddFood(ctx, userID, catalog.StarterFoodID, catalog.StarterFoodQuantity); err != nil {
			return err
		}

		result = &OnboardingResult{Tamagotchi: tamagotchi, Character: character}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("user_id", userID.String()).
		Str("character", result.Character.Name).
		Msg("Onboarding completed")
	return result, nil
}
