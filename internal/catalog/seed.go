// Package catalog holds the seed data for the character, food and
// mission catalogs. Seeding is idempotent: fixed ids let the inserts
// no-op on restart.
package catalog

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"finkid-backend/internal/model"
)

// Fixed seed identifiers. StarterFoodID is the food granted to a new
// player when the starter character is chosen.
var (
	CharacterMimoID   = uuid.MustParse("7b3e1a52-0f04-4c1d-9a8e-1d2f3a4b5c6d")
	CharacterKikoID   = uuid.MustParse("8c4f2b63-1a15-4d2e-8b9f-2e3a4b5c6d7e")
	CharacterLunaID   = uuid.MustParse("9d5a3c74-2b26-4e3f-9caa-3f4b5c6d7e8f")
	CharacterRajaID   = uuid.MustParse("ae6b4d85-3c37-4f4a-8dbb-4a5c6d7e8f9a")
	FoodAppleID       = uuid.MustParse("bf7c5e96-4d48-4a5b-9ecc-5b6d7e8f9a0b")
	FoodBananaID      = uuid.MustParse("c08d6fa7-5e59-4b6c-8fdd-6c7e8f9a0b1c")
	FoodRiceID        = uuid.MustParse("d19e70b8-6f6a-4c7d-9aee-7d8f9a0b1c2d")
	FoodPizzaID       = uuid.MustParse("e2af81c9-7a7b-4d8e-8bff-8e9a0b1c2d3e")
	FoodSateID        = uuid.MustParse("f3b092da-8b8c-4e9f-9c00-9f0b1c2d3e4f")
)

// StarterFoodID is stacked (10 units) into the inventory of every
// player completing onboarding.
var StarterFoodID = FoodAppleID

// StarterFoodQuantity is the onboarding food grant.
const StarterFoodQuantity = 10

// Characters returns the character catalog seed.
func Characters() []*model.Character {
	return []*model.Character{
		{ID: CharacterMimoID, Name: "Mimo", ImageURL: "/assets/characters/mimo.png", IsStarter: true, Price: decimal.Zero},
		{ID: CharacterKikoID, Name: "Kiko", ImageURL: "/assets/characters/kiko.png", IsStarter: true, Price: decimal.Zero},
		{ID: CharacterLunaID, Name: "Luna", ImageURL: "/assets/characters/luna.png", IsStarter: true, Price: decimal.Zero},
		{ID: CharacterRajaID, Name: "Raja", ImageURL: "/assets/characters/raja.png", IsStarter: false, Price: decimal.NewFromInt(100)},
	}
}

// Foods returns the food catalog seed.
func Foods() []*model.Food {
	return []*model.Food{
		{ID: FoodAppleID, Name: "Apel", NutritionValue: 10, Price: decimal.NewFromInt(5), ImageURL: "/assets/foods/apel.png"},
		{ID: FoodBananaID, Name: "Pisang", NutritionValue: 8, Price: decimal.NewFromInt(4), ImageURL: "/assets/foods/pisang.png"},
		{ID: FoodRiceID, Name: "Nasi Goreng", NutritionValue: 20, Price: decimal.NewFromInt(12), ImageURL: "/assets/foods/nasi-goreng.png"},
		{ID: FoodPizzaID, Name: "Pizza", NutritionValue: 25, Price: decimal.NewFromInt(15), ImageURL: "/assets/foods/pizza.png"},
		{ID: FoodSateID, Name: "Sate", NutritionValue: 18, Price: decimal.NewFromInt(10), ImageURL: "/assets/foods/sate.png"},
	}
}

// MissionSeed is one day of the rotating mission schedule.
type MissionSeed struct {
	Title        string
	Description  string
	MissionType  string
	Requirements map[string]int
	RewardCoins  decimal.Decimal
}

// MissionRotation returns the repeating daily mission schedule. Day N
// gets entry N modulo the rotation length.
func MissionRotation() []MissionSeed {
	return []MissionSeed{
		{
			Title:        "Catat Pengeluaranmu",
			Description:  "Catat 3 pengeluaran hari ini",
			MissionType:  model.MissionTypeExpenseTracking,
			Requirements: map[string]int{model.ProgressKeyExpenseCount: 3},
			RewardCoins:  decimal.NewFromInt(10),
		},
		{
			Title:        "Ayo Menabung",
			Description:  "Catat 2 tabungan hari ini",
			MissionType:  model.MissionTypeSavingTracking,
			Requirements: map[string]int{model.ProgressKeySavingCount: 2},
			RewardCoins:  decimal.NewFromInt(15),
		},
		{
			Title:        "Rawat Hewanmu",
			Description:  "Beri makan hewan peliharaanmu 2 kali",
			MissionType:  model.MissionTypeTamagotchiCare,
			Requirements: map[string]int{model.ProgressKeyFeedCount: 2},
			RewardCoins:  decimal.NewFromInt(12),
		},
		{
			Title:        "Atur Uangmu",
			Description:  "Catat 2 pengeluaran dan 1 tabungan",
			MissionType:  model.MissionTypeCombined,
			Requirements: map[string]int{model.ProgressKeyExpenseCount: 2, model.ProgressKeySavingCount: 1},
			RewardCoins:  decimal.NewFromInt(20),
		},
	}
}
