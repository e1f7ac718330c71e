// Package model defines the data models for the financial literacy game backend.
package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// User is a registered player account.
type User struct {
	ID           uuid.UUID `db:"id"`
	Username     string    `db:"username"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// Profile holds the onboarding data collected after registration.
// One profile per user.
type Profile struct {
	ID                  uuid.UUID       `db:"id"`
	UserID              uuid.UUID       `db:"user_id"`
	Age                 int             `db:"age"`
	Allowance           decimal.Decimal `db:"allowance"`
	Currency            string          `db:"currency"`
	OnboardingCompleted bool            `db:"onboarding_completed"`
	CreatedAt           time.Time       `db:"created_at"`
	UpdatedAt           time.Time       `db:"updated_at"`
}

// Character is a catalog entry a tamagotchi can be created from.
type Character struct {
	ID        uuid.UUID       `db:"id"`
	Name      string          `db:"name"`
	ImageURL  string          `db:"image_url"`
	IsStarter bool            `db:"is_starter"`
	Price     decimal.Decimal `db:"price"`
}

// Food is a catalog entry consumable by feeding.
type Food struct {
	ID             uuid.UUID       `db:"id"`
	Name           string          `db:"name"`
	NutritionValue int             `db:"nutrition_value"`
	Price          decimal.Decimal `db:"price"`
	ImageURL       string          `db:"image_url"`
}

// Tamagotchi is a user's virtual pet. Stats are kept in [0,100] by
// storage CHECK constraints and by the feed arithmetic.
type Tamagotchi struct {
	ID          uuid.UUID  `db:"id"`
	UserID      uuid.UUID  `db:"user_id"`
	CharacterID uuid.UUID  `db:"character_id"`
	Name        string     `db:"name"`
	Hunger      int        `db:"hunger"`
	Happiness   int        `db:"happiness"`
	Health      int        `db:"health"`
	LastFedAt   *time.Time `db:"last_fed_at"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}

// Wallet holds a user's coin balance. Created lazily on first read or
// first credit; balance is non-negative by CHECK constraint.
type Wallet struct {
	ID        uuid.UUID       `db:"id"`
	UserID    uuid.UUID       `db:"user_id"`
	Balance   decimal.Decimal `db:"balance"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}

// WalletTransaction is one row of the append-only ledger. The signed
// amounts over a wallet sum to the wallet's current balance.
type WalletTransaction struct {
	ID              uuid.UUID       `db:"id"`
	WalletID        uuid.UUID       `db:"wallet_id"`
	Amount          decimal.Decimal `db:"amount"`
	TransactionType string          `db:"transaction_type"`
	Description     *string         `db:"description"`
	CreatedAt       time.Time       `db:"created_at"`
}

// InventoryItem is one owned item row. Foods stack via Quantity;
// character ownership is binary, one row with quantity 1.
type InventoryItem struct {
	ID         uuid.UUID `db:"id"`
	UserID     uuid.UUID `db:"user_id"`
	ItemType   string    `db:"item_type"`
	ItemID     uuid.UUID `db:"item_id"`
	Quantity   int       `db:"quantity"`
	AcquiredAt time.Time `db:"acquired_at"`
}

// Mission is a daily catalog mission. Requirements is a tag-specific
// counter map, e.g. {"expenseCount": 3} for expense tracking.
type Mission struct {
	ID           uuid.UUID       `db:"id"`
	Title        string          `db:"title"`
	Description  string          `db:"description"`
	MissionType  string          `db:"mission_type"`
	Requirements map[string]int  `db:"requirements"`
	RewardCoins  decimal.Decimal `db:"reward_coins"`
	ActiveDate   time.Time       `db:"active_date"`
}

// UserMission tracks one user's progress on one mission. Completed is
// monotonic; the reward is credited exactly once on the transition.
type UserMission struct {
	ID          uuid.UUID      `db:"id"`
	UserID      uuid.UUID      `db:"user_id"`
	MissionID   uuid.UUID      `db:"mission_id"`
	Progress    map[string]int `db:"progress"`
	Completed   bool           `db:"completed"`
	CompletedAt *time.Time     `db:"completed_at"`
	CreatedAt   time.Time      `db:"created_at"`
}

// Expense is one logged spending activity.
type Expense struct {
	ID          uuid.UUID       `db:"id"`
	UserID      uuid.UUID       `db:"user_id"`
	Amount      decimal.Decimal `db:"amount"`
	Category    string          `db:"category"`
	Description *string         `db:"description"`
	LoggedAt    time.Time       `db:"logged_at"`
}

// Saving is one logged saving activity.
type Saving struct {
	ID       uuid.UUID       `db:"id"`
	UserID   uuid.UUID       `db:"user_id"`
	Amount   decimal.Decimal `db:"amount"`
	Source   *string         `db:"source"`
	LoggedAt time.Time       `db:"logged_at"`
}

// Goal is a savings goal. Completed never reverts; the completion bonus
// is floor(targetAmount * 0.1), credited once.
type Goal struct {
	ID            uuid.UUID       `db:"id"`
	UserID        uuid.UUID       `db:"user_id"`
	Title         string          `db:"title"`
	Description   *string         `db:"description"`
	TargetAmount  decimal.Decimal `db:"target_amount"`
	CurrentAmount decimal.Decimal `db:"current_amount"`
	Completed     bool            `db:"completed"`
	CompletedAt   *time.Time      `db:"completed_at"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
}

// Adventure is a two-phase AI scenario record. SelectedChoiceIndex is
// write-once: flipping it from nil also writes feedback, scores,
// evaluation trace id and evaluated-at in the same statement.
type Adventure struct {
	ID                  uuid.UUID          `db:"id"`
	UserID              uuid.UUID          `db:"user_id"`
	Scenario            string             `db:"scenario"`
	Choices             []string           `db:"choices"`
	SelectedChoiceIndex *int               `db:"selected_choice_index"`
	Feedback            *string            `db:"feedback"`
	Scores              map[string]float64 `db:"scores"`
	GenerationTraceID   string             `db:"generation_trace_id"`
	EvaluationTraceID   *string            `db:"evaluation_trace_id"`
	CreatedAt           time.Time          `db:"created_at"`
	EvaluatedAt         *time.Time         `db:"evaluated_at"`
}

// Inventory item kinds.
const (
	ItemTypeCharacter = "character"
	ItemTypeFood      = "food"
)

// Transaction types for categorizing wallet balance changes.
const (
	TxTypeMissionReward = "mission_reward" // Mission completion reward
	TxTypeGoalBonus     = "goal_bonus"     // Goal completion bonus
	TxTypeShopPurchase  = "shop_purchase"  // Shop item purchase
	TxTypeAdjustment    = "adjustment"     // Manual balance adjustment
)

// Mission types. The tracking aliases appear in older seed data and are
// treated as equivalent to their log_* counterparts.
const (
	MissionTypeLogExpenses     = "log_expenses"
	MissionTypeExpenseTracking = "expense_tracking"
	MissionTypeLogSavings      = "log_savings"
	MissionTypeSavingTracking  = "saving_tracking"
	MissionTypeCombined        = "combined"
	MissionTypeTamagotchiCare  = "tamagotchi_care"
)

// Progress counter keys shared by missions and their evaluators.
const (
	ProgressKeyExpenseCount = "expenseCount"
	ProgressKeySavingCount  = "savingCount"
	ProgressKeyFeedCount    = "feedCount"
)
