// Service-level integration tests. They exercise the transactional
// engines end to end against a containerized PostgreSQL and a scripted
// fake of the AI subsystem.
package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finkid-backend/internal/aiclient"
	"finkid-backend/internal/apperr"
	"finkid-backend/internal/catalog"
	"finkid-backend/internal/config"
	"finkid-backend/internal/mission"
	"finkid-backend/internal/model"
	"finkid-backend/internal/pkg/db"
	"finkid-backend/internal/repository"
	"finkid-backend/internal/testutil"
)

// env bundles every engine wired against one test database.
type env struct {
	pool       *db.Pool
	users      *repository.UserRepository
	missions   *repository.MissionRepository
	wallets    *repository.WalletRepository
	inventory  *repository.InventoryRepository
	wallet     *WalletService
	profile    *ProfileService
	shop       *ShopService
	mission    *MissionService
	tamagotchi *TamagotchiService
	goal       *GoalService
}

func newEnv(t *testing.T, raw *pgxpool.Pool) *env {
	t.Helper()
	pool := &db.Pool{Pool: raw}

	userRepo := repository.NewUserRepository(raw)
	profileRepo := repository.NewProfileRepository(raw)
	catalogRepo := repository.NewCatalogRepository(raw)
	walletRepo := repository.NewWalletRepository(raw)
	inventoryRepo := repository.NewInventoryRepository(raw)
	tamagotchiRepo := repository.NewTamagotchiRepository(raw)
	missionRepo := repository.NewMissionRepository(raw)
	activityRepo := repository.NewActivityRepository(raw)
	goalRepo := repository.NewGoalRepository(raw)

	walletSvc := NewWalletService(pool, walletRepo, profileRepo)
	shopSvc := NewShopService(pool, catalogRepo, inventoryRepo, walletSvc)
	missionSvc := NewMissionService(pool, missionRepo, activityRepo, walletSvc, mission.NewRegistry())
	return &env{
		pool:       pool,
		users:      userRepo,
		missions:   missionRepo,
		wallets:    walletRepo,
		inventory:  inventoryRepo,
		wallet:     walletSvc,
		profile:    NewProfileService(pool, profileRepo, catalogRepo, tamagotchiRepo, inventoryRepo),
		shop:       shopSvc,
		mission:    missionSvc,
		tamagotchi: NewTamagotchiService(pool, tamagotchiRepo, catalogRepo, inventoryRepo, shopSvc, missionSvc),
		goal:       NewGoalService(pool, goalRepo, walletSvc),
	}
}

func (e *env) newUser(t *testing.T, username string) uuid.UUID {
	t.Helper()
	user, err := e.users.Create(context.Background(), username, username+"@example.com", "hash")
	require.NoError(t, err)
	return user.ID
}

func (e *env) seedCatalog(t *testing.T) {
	t.Helper()
	catalogRepo := repository.NewCatalogRepository(e.pool.Pool)
	for _, c := range catalog.Characters() {
		require.NoError(t, catalogRepo.InsertCharacter(context.Background(), c))
	}
	for _, f := range catalog.Foods() {
		require.NoError(t, catalogRepo.InsertFood(context.Background(), f))
	}
}

// assertLedgerReconciles checks the core wallet invariant: the signed
// ledger sum equals the balance.
func (e *env) assertLedgerReconciles(t *testing.T, userID uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	wallet, err := e.wallets.GetByUserID(ctx, userID)
	require.NoError(t, err)
	sum, err := e.wallets.SumTransactions(ctx, wallet.ID)
	require.NoError(t, err)
	assert.True(t, sum.Equal(wallet.Balance), "ledger sum %s != balance %s", sum, wallet.Balance)
}

// ============================================================================
// Wallet engine
// ============================================================================

func TestWallet_CreditDebitRoundTrip(t *testing.T) {
	raw, cleanup := testutil.SetupTestDB(t)
	defer cleanup()
	e := newEnv(t, raw)
	ctx := context.Background()
	userID := e.newUser(t, "roundtrip")

	_, err := e.wallet.Credit(ctx, userID, decimal.NewFromInt(50), model.TxTypeAdjustment, "grant")
	require.NoError(t, err)
	wallet, err := e.wallet.Debit(ctx, userID, decimal.NewFromInt(50), model.TxTypeAdjustment, "revoke")
	require.NoError(t, err)

	assert.True(t, wallet.Balance.IsZero())
	txs, err := e.wallet.History(ctx, userID, 10)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.True(t, txs[0].Amount.Add(txs[1].Amount).IsZero())
	e.assertLedgerReconciles(t, userID)
}

func TestWallet_DebitBoundaries(t *testing.T) {
	raw, cleanup := testutil.SetupTestDB(t)
	defer cleanup()
	e := newEnv(t, raw)
	ctx := context.Background()
	userID := e.newUser(t, "boundary")

	_, err := e.wallet.Credit(ctx, userID, decimal.NewFromInt(10), model.TxTypeAdjustment, "")
	require.NoError(t, err)

	// Debiting a hair over the balance fails
	_, err = e.wallet.Debit(ctx, userID, decimal.RequireFromString("10.01"), model.TxTypeAdjustment, "")
	assert.True(t, apperr.Is(err, apperr.KindInsufficientFunds), "got %v", err)

	// Debiting the exact balance leaves zero
	wallet, err := e.wallet.Debit(ctx, userID, decimal.NewFromInt(10), model.TxTypeAdjustment, "")
	require.NoError(t, err)
	assert.True(t, wallet.Balance.IsZero())
	e.assertLedgerReconciles(t, userID)
}

func TestWallet_InvalidAmounts(t *testing.T) {
	raw, cleanup := testutil.SetupTestDB(t)
	defer cleanup()
	e := newEnv(t, raw)
	ctx := context.Background()
	userID := e.newUser(t, "invalid")

	_, err := e.wallet.Credit(ctx, userID, decimal.Zero, model.TxTypeAdjustment, "")
	assert.True(t, apperr.Is(err, apperr.KindInvalidAmount))
	_, err = e.wallet.Debit(ctx, userID, decimal.NewFromInt(-5), model.TxTypeAdjustment, "")
	assert.True(t, apperr.Is(err, apperr.KindInvalidAmount))
}

func TestWallet_LazyCreation(t *testing.T) {
	raw, cleanup := testutil.SetupTestDB(t)
	defer cleanup()
	e := newEnv(t, raw)
	userID := e.newUser(t, "lazy")

	balance, err := e.wallet.GetBalance(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, balance.Balance.IsZero())
	assert.Equal(t, DefaultCurrency, balance.Currency)
}

func TestWallet_ConcurrentCreditsSerialize(t *testing.T) {
	raw, cleanup := testutil.SetupTestDB(t)
	defer cleanup()
	e := newEnv(t, raw)
	ctx := context.Background()
	userID := e.newUser(t, "parallel")

	const workers = 8
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		go func() {
			_, err := e.wallet.Credit(ctx, userID, decimal.NewFromInt(10), model.TxTypeAdjustment, "")
			errs <- err
		}()
	}

	// Under repeatable read some workers may lose their single retry
	// and surface Conflict; every committed credit must still be
	// exactly one balance delta plus one ledger row.
	succeeded := 0
	for i := 0; i < workers; i++ {
		err := <-errs
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, apperr.Is(err, apperr.KindConflict), "unexpected error: %v", err)
	}
	require.Greater(t, succeeded, 0)

	balance, err := e.wallet.GetBalance(ctx, userID)
	require.NoError(t, err)
	assert.True(t, balance.Balance.Equal(decimal.NewFromInt(int64(10*succeeded))), "got %s with %d successes", balance.Balance, succeeded)

	txs, err := e.wallet.History(ctx, userID, 100)
	require.NoError(t, err)
	assert.Len(t, txs, succeeded)
	e.assertLedgerReconciles(t, userID)
}

// ============================================================================
// Onboarding and feeding (scenario: register, onboard, feed)
// ============================================================================

func TestOnboardingAndFeedFlow(t *testing.T) {
	raw, cleanup := testutil.SetupTestDB(t)
	defer cleanup()
	e := newEnv(t, raw)
	e.seedCatalog(t)
	ctx := context.Background()
	userID := e.newUser(t, "kid")

	_, err := e.profile.Create(ctx, userID, 10, decimal.NewFromInt(70000), "IDR")
	require.NoError(t, err)

	starters, err := e.profile.ListStarterCharacters(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, starters)

	result, err := e.profile.ChooseStarterCharacter(ctx, userID, starters[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 50, result.Tamagotchi.Hunger)
	assert.Equal(t, 50, result.Tamagotchi.Happiness)
	assert.Equal(t, 100, result.Tamagotchi.Health)

	profile, err := e.profile.Get(ctx, userID)
	require.NoError(t, err)
	assert.True(t, profile.OnboardingCompleted)

	// Onboarding granted 10 starter apples
	item, err := e.inventory.Get(ctx, userID, model.ItemTypeFood, catalog.StarterFoodID)
	require.NoError(t, err)
	assert.Equal(t, catalog.StarterFoodQuantity, item.Quantity)

	// Feeding one apple (nutrition 10): hunger 50→40, happiness 50→55
	feed, err := e.tamagotchi.Feed(ctx, userID, catalog.StarterFoodID)
	require.NoError(t, err)
	assert.Equal(t, 40, feed.Tamagotchi.Hunger)
	assert.Equal(t, 55, feed.Tamagotchi.Happiness)
	assert.Equal(t, 100, feed.Tamagotchi.Health)
	assert.NotNil(t, feed.Tamagotchi.LastFedAt)

	item, err = e.inventory.Get(ctx, userID, model.ItemTypeFood, catalog.StarterFoodID)
	require.NoError(t, err)
	assert.Equal(t, 9, item.Quantity)

	// A second starter pick conflicts
	_, err = e.profile.ChooseStarterCharacter(ctx, userID, starters[0].ID)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestChooseStarter_RejectsNonStarter(t *testing.T) {
	raw, cleanup := testutil.SetupTestDB(t)
	defer cleanup()
	e := newEnv(t, raw)
	e.seedCatalog(t)
	ctx := context.Background()
	userID := e.newUser(t, "nonstarter")

	_, err := e.profile.Create(ctx, userID, 10, decimal.NewFromInt(100), "")
	require.NoError(t, err)

	_, err = e.profile.ChooseStarterCharacter(ctx, userID, catalog.CharacterRajaID)
	assert.True(t, apperr.Is(err, apperr.KindInvalidStarter), "got %v", err)

	_, err = e.profile.ChooseStarterCharacter(ctx, userID, uuid.New())
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestFeed_RequiresOwnership(t *testing.T) {
	raw, cleanup := testutil.SetupTestDB(t)
	defer cleanup()
	e := newEnv(t, raw)
	e.seedCatalog(t)
	ctx := context.Background()
	userID := e.newUser(t, "noowner")

	_, err := e.profile.Create(ctx, userID, 10, decimal.NewFromInt(100), "")
	require.NoError(t, err)
	_, err = e.profile.ChooseStarterCharacter(ctx, userID, catalog.CharacterMimoID)
	require.NoError(t, err)

	// Pizza is in the catalog but not in this player's inventory
	_, err = e.tamagotchi.Feed(ctx, userID, catalog.FoodPizzaID)
	assert.True(t, apperr.Is(err, apperr.KindForbidden), "got %v", err)

	_, err = e.tamagotchi.Feed(ctx, userID, uuid.New())
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestFeed_HungerFloorStillRaisesHappiness(t *testing.T) {
	raw, cleanup := testutil.SetupTestDB(t)
	defer cleanup()
	e := newEnv(t, raw)
	e.seedCatalog(t)
	ctx := context.Background()
	userID := e.newUser(t, "floor")

	_, err := e.profile.Create(ctx, userID, 10, decimal.NewFromInt(100), "")
	require.NoError(t, err)
	_, err = e.profile.ChooseStarterCharacter(ctx, userID, catalog.CharacterMimoID)
	require.NoError(t, err)

	// Feed apples until hunger bottoms out, then once more
	var last *FeedResult
	for i := 0; i < 6; i++ {
		last, err = e.tamagotchi.Feed(ctx, userID, catalog.StarterFoodID)
		require.NoError(t, err)
	}
	assert.Equal(t, 0, last.Tamagotchi.Hunger)
	happinessBefore := last.Tamagotchi.Happiness

	last, err = e.tamagotchi.Feed(ctx, userID, catalog.StarterFoodID)
	require.NoError(t, err)
	assert.Equal(t, 0, last.Tamagotchi.Hunger)
	assert.GreaterOrEqual(t, last.Tamagotchi.Happiness, happinessBefore)
}

// ============================================================================
// Shop engine (scenario: purchase debits wallet and adds inventory)
// ============================================================================

func TestPurchaseFlow(t *testing.T) {
	raw, cleanup := testutil.SetupTestDB(t)
	defer cleanup()
	e := newEnv(t, raw)
	e.seedCatalog(t)
	ctx := context.Background()
	userID := e.newUser(t, "buyer")

	_, err := e.wallet.Credit(ctx, userID, decimal.NewFromInt(50), model.TxTypeMissionReward, "reward")
	require.NoError(t, err)

	// Pizza costs 15
	result, err := e.shop.Purchase(ctx, userID, catalog.FoodPizzaID, model.ItemTypeFood)
	require.NoError(t, err)
	assert.True(t, result.NewBalance.Equal(decimal.NewFromInt(35)), "got %s", result.NewBalance)
	assert.Equal(t, "Pizza", result.Item.Name)

	item, err := e.inventory.Get(ctx, userID, model.ItemTypeFood, catalog.FoodPizzaID)
	require.NoError(t, err)
	assert.Equal(t, 1, item.Quantity)

	// Exactly one +50 and one -15 ledger row
	txs, err := e.wallet.History(ctx, userID, 10)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.True(t, txs[0].Amount.Equal(decimal.NewFromInt(-15)))
	assert.Equal(t, model.TxTypeShopPurchase, txs[0].TransactionType)
	e.assertLedgerReconciles(t, userID)
}

func TestPurchase_InsufficientFundsRollsBack(t *testing.T) {
	raw, cleanup := testutil.SetupTestDB(t)
	defer cleanup()
	e := newEnv(t, raw)
	e.seedCatalog(t)
	ctx := context.Background()
	userID := e.newUser(t, "broke")

	_, err := e.wallet.Credit(ctx, userID, decimal.NewFromInt(5), model.TxTypeAdjustment, "")
	require.NoError(t, err)

	_, err = e.shop.Purchase(ctx, userID, catalog.FoodPizzaID, model.ItemTypeFood)
	assert.True(t, apperr.Is(err, apperr.KindInsufficientFunds))

	// No inventory effect, no ledger row beyond the credit
	_, err = e.inventory.Get(ctx, userID, model.ItemTypeFood, catalog.FoodPizzaID)
	assert.ErrorIs(t, err, repository.ErrItemNotFound)
	txs, err := e.wallet.History(ctx, userID, 10)
	require.NoError(t, err)
	assert.Len(t, txs, 1)
	e.assertLedgerReconciles(t, userID)
}

func TestPurchase_UnknownItem(t *testing.T) {
	raw, cleanup := testutil.SetupTestDB(t)
	defer cleanup()
	e := newEnv(t, raw)
	e.seedCatalog(t)
	userID := e.newUser(t, "ghost")

	_, err := e.shop.Purchase(context.Background(), userID, uuid.New(), model.ItemTypeFood)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestConsumeItem_Errors(t *testing.T) {
	raw, cleanup := testutil.SetupTestDB(t)
	defer cleanup()
	e := newEnv(t, raw)
	e.seedCatalog(t)
	ctx := context.Background()
	userID := e.newUser(t, "consumer")

	err := e.shop.ConsumeItem(ctx, userID, catalog.FoodAppleID, model.ItemTypeFood, 1)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	require.NoError(t, e.inventory.AddFood(ctx, userID, catalog.FoodAppleID, 2))
	err = e.shop.ConsumeItem(ctx, userID, catalog.FoodAppleID, model.ItemTypeFood, 3)
	assert.True(t, apperr.Is(err, apperr.KindInsufficientQuantity))

	require.NoError(t, e.shop.ConsumeItem(ctx, userID, catalog.FoodAppleID, model.ItemTypeFood, 2))
	_, err = e.inventory.Get(ctx, userID, model.ItemTypeFood, catalog.FoodAppleID)
	assert.ErrorIs(t, err, repository.ErrItemNotFound)
}

// ============================================================================
// Mission engine (scenario: completion credits exactly once)
// ============================================================================

func seedTodayMission(t *testing.T, e *env, missionType string, requirements map[string]int, reward int64) *model.Mission {
	t.Helper()
	m, err := e.missions.Insert(context.Background(), "Test mission", "", missionType,
		requirements, decimal.NewFromInt(reward), time.Now().UTC())
	require.NoError(t, err)
	return m
}

func TestMissionCompletion_CreditsExactlyOnce(t *testing.T) {
	raw, cleanup := testutil.SetupTestDB(t)
	defer cleanup()
	e := newEnv(t, raw)
	ctx := context.Background()
	userID := e.newUser(t, "mission3")
	seedTodayMission(t, e, model.MissionTypeExpenseTracking,
		map[string]int{model.ProgressKeyExpenseCount: 3}, 10)

	amount := decimal.NewFromInt(1)
	r1, err := e.mission.LogExpense(ctx, userID, amount, "snack", nil)
	require.NoError(t, err)
	assert.InDelta(t, 100.0/3, r1.ProgressPct, 1e-6)
	assert.False(t, r1.Completed)

	r2, err := e.mission.LogExpense(ctx, userID, amount, "snack", nil)
	require.NoError(t, err)
	assert.False(t, r2.Completed)

	r3, err := e.mission.LogExpense(ctx, userID, amount, "snack", nil)
	require.NoError(t, err)
	assert.Equal(t, float64(100), r3.ProgressPct)
	assert.True(t, r3.Completed)

	balance, err := e.wallet.GetBalance(ctx, userID)
	require.NoError(t, err)
	assert.True(t, balance.Balance.Equal(decimal.NewFromInt(10)))

	// A fourth log still records the expense but never credits again
	r4, err := e.mission.LogExpense(ctx, userID, amount, "snack", nil)
	require.NoError(t, err)
	assert.True(t, r4.Completed)

	balance, err = e.wallet.GetBalance(ctx, userID)
	require.NoError(t, err)
	assert.True(t, balance.Balance.Equal(decimal.NewFromInt(10)), "reward credited twice")

	expenses, err := e.mission.Expenses(ctx, userID, 10)
	require.NoError(t, err)
	assert.Len(t, expenses, 4)
	e.assertLedgerReconciles(t, userID)
}

func TestMissionLogging_WithoutActiveMission(t *testing.T) {
	raw, cleanup := testutil.SetupTestDB(t)
	defer cleanup()
	e := newEnv(t, raw)
	ctx := context.Background()
	userID := e.newUser(t, "nomission")

	// Loggers never fail for absent missions
	result, err := e.mission.LogExpense(ctx, userID, decimal.NewFromInt(5), "snack", nil)
	require.NoError(t, err)
	assert.Equal(t, float64(0), result.ProgressPct)
	assert.False(t, result.Completed)
	assert.NotNil(t, result.Expense)

	// The read endpoint does surface the absence
	_, err = e.mission.Today(ctx, userID)
	assert.True(t, apperr.Is(err, apperr.KindNoActiveMission))
}

func TestMission_SavingTypeIgnoresExpenses(t *testing.T) {
	raw, cleanup := testutil.SetupTestDB(t)
	defer cleanup()
	e := newEnv(t, raw)
	ctx := context.Background()
	userID := e.newUser(t, "savings")
	seedTodayMission(t, e, model.MissionTypeSavingTracking,
		map[string]int{model.ProgressKeySavingCount: 2}, 15)

	r, err := e.mission.LogExpense(ctx, userID, decimal.NewFromInt(1), "snack", nil)
	require.NoError(t, err)
	assert.Equal(t, float64(0), r.ProgressPct, "expense must not advance a saving mission")

	r, err = e.mission.LogSaving(ctx, userID, decimal.NewFromInt(5), nil)
	require.NoError(t, err)
	assert.Equal(t, float64(50), r.ProgressPct)

	r, err = e.mission.LogSaving(ctx, userID, decimal.NewFromInt(5), nil)
	require.NoError(t, err)
	assert.True(t, r.Completed)

	balance, err := e.wallet.GetBalance(ctx, userID)
	require.NoError(t, err)
	assert.True(t, balance.Balance.Equal(decimal.NewFromInt(15)))
}

func TestMission_TamagotchiCareViaFeeding(t *testing.T) {
	raw, cleanup := testutil.SetupTestDB(t)
	defer cleanup()
	e := newEnv(t, raw)
	e.seedCatalog(t)
	ctx := context.Background()
	userID := e.newUser(t, "carer")
	seedTodayMission(t, e, model.MissionTypeTamagotchiCare,
		map[string]int{model.ProgressKeyFeedCount: 2}, 12)

	_, err := e.profile.Create(ctx, userID, 9, decimal.NewFromInt(100), "")
	require.NoError(t, err)
	_, err = e.profile.ChooseStarterCharacter(ctx, userID, catalog.CharacterLunaID)
	require.NoError(t, err)

	feed, err := e.tamagotchi.Feed(ctx, userID, catalog.StarterFoodID)
	require.NoError(t, err)
	assert.Equal(t, float64(50), feed.MissionPct)
	assert.False(t, feed.MissionHit)

	feed, err = e.tamagotchi.Feed(ctx, userID, catalog.StarterFoodID)
	require.NoError(t, err)
	assert.True(t, feed.MissionHit)

	balance, err := e.wallet.GetBalance(ctx, userID)
	require.NoError(t, err)
	assert.True(t, balance.Balance.Equal(decimal.NewFromInt(12)))
	e.assertLedgerReconciles(t, userID)
}

func TestMissionToday_LazyUserMission(t *testing.T) {
	raw, cleanup := testutil.SetupTestDB(t)
	defer cleanup()
	e := newEnv(t, raw)
	ctx := context.Background()
	userID := e.newUser(t, "today")
	m := seedTodayMission(t, e, model.MissionTypeCombined,
		map[string]int{model.ProgressKeyExpenseCount: 2, model.ProgressKeySavingCount: 1}, 20)

	result, err := e.mission.Today(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, m.ID, result.Mission.ID)
	assert.Equal(t, float64(0), result.ProgressPct)
	assert.False(t, result.UserMission.Completed)
}

// ============================================================================
// Goal engine (scenario: bonus is floor(0.1 × target))
// ============================================================================

func TestGoalCompletion_BonusOnce(t *testing.T) {
	raw, cleanup := testutil.SetupTestDB(t)
	defer cleanup()
	e := newEnv(t, raw)
	ctx := context.Background()
	userID := e.newUser(t, "goalie")

	goal, err := e.goal.Create(ctx, userID, "bike", decimal.NewFromInt(1000), nil)
	require.NoError(t, err)

	result, err := e.goal.AddProgress(ctx, goal.ID, userID, decimal.NewFromInt(1000))
	require.NoError(t, err)
	assert.True(t, result.Goal.Completed)
	assert.Equal(t, float64(100), result.ProgressPct)
	require.NotNil(t, result.BonusAwarded)
	assert.True(t, result.BonusAwarded.Equal(decimal.NewFromInt(100)))

	balance, err := e.wallet.GetBalance(ctx, userID)
	require.NoError(t, err)
	assert.True(t, balance.Balance.Equal(decimal.NewFromInt(100)))

	// Further progress is rejected
	_, err = e.goal.AddProgress(ctx, goal.ID, userID, decimal.NewFromInt(1))
	assert.True(t, apperr.Is(err, apperr.KindAlreadyCompleted))

	balance, err = e.wallet.GetBalance(ctx, userID)
	require.NoError(t, err)
	assert.True(t, balance.Balance.Equal(decimal.NewFromInt(100)), "bonus credited twice")
	e.assertLedgerReconciles(t, userID)
}

func TestGoalProgress_PartialThenExact(t *testing.T) {
	raw, cleanup := testutil.SetupTestDB(t)
	defer cleanup()
	e := newEnv(t, raw)
	ctx := context.Background()
	userID := e.newUser(t, "partial")

	goal, err := e.goal.Create(ctx, userID, "book", decimal.NewFromInt(100), nil)
	require.NoError(t, err)

	result, err := e.goal.AddProgress(ctx, goal.ID, userID, decimal.NewFromInt(40))
	require.NoError(t, err)
	assert.False(t, result.Goal.Completed)
	assert.InDelta(t, 40, result.ProgressPct, 1e-9)
	assert.Nil(t, result.BonusAwarded)

	// Exactly meeting the target completes
	result, err = e.goal.AddProgress(ctx, goal.ID, userID, decimal.NewFromInt(60))
	require.NoError(t, err)
	assert.True(t, result.Goal.Completed)
	require.NotNil(t, result.BonusAwarded)
	assert.True(t, result.BonusAwarded.Equal(decimal.NewFromInt(10)))
}

func TestGoal_ScopedToOwner(t *testing.T) {
	raw, cleanup := testutil.SetupTestDB(t)
	defer cleanup()
	e := newEnv(t, raw)
	ctx := context.Background()
	owner := e.newUser(t, "gowner")
	other := e.newUser(t, "gother")

	goal, err := e.goal.Create(ctx, owner, "bike", decimal.NewFromInt(100), nil)
	require.NoError(t, err)

	_, err = e.goal.AddProgress(ctx, goal.ID, other, decimal.NewFromInt(10))
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.True(t, apperr.Is(e.goal.Delete(ctx, goal.ID, other), apperr.KindNotFound))
}

// ============================================================================
// Adventure orchestrator (scenarios: retry, two-phase, invalid choice)
// ============================================================================

// fakeAI scripts the AI subsystem: generate fails with failGenerate
// 5xx responses before succeeding; evaluate always succeeds.
type fakeAI struct {
	failGenerate  int32
	generateCalls int32
	evaluateCalls int32
}

func (f *fakeAI) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/adventure/generate", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.generateCalls, 1)
		if atomic.AddInt32(&f.failGenerate, -1) >= 0 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"scenario":      "Kamu menemukan Rp 10.000",
			"choices":       []string{"Menabung", "Jajan", "Berbagi"},
			"opik_trace_id": "t1",
		})
	})
	mux.HandleFunc("/api/adventure/evaluate", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.evaluateCalls, 1)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"feedback": "Pilihan bagus",
			"scores": map[string]float64{
				"age_appropriateness": 0.9,
				"goal_alignment":      0.95,
				"financial_reasoning": 0.85,
			},
			"opik_trace_id": "t2",
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newAdventureEnv(t *testing.T, raw *pgxpool.Pool, ai *fakeAI) (*env, *AdventureService) {
	t.Helper()
	e := newEnv(t, raw)
	client := aiclient.New(&config.AIServiceConfig{
		URL:        ai.server(t).URL,
		Timeout:    2 * time.Second,
		MaxRetries: 3,
		RetryDelay: time.Millisecond,
	})
	svc := NewAdventureService(e.pool,
		repository.NewAdventureRepository(raw),
		repository.NewProfileRepository(raw),
		repository.NewGoalRepository(raw),
		client)
	return e, svc
}

func TestAdventure_TwoPhaseWithRetry(t *testing.T) {
	raw, cleanup := testutil.SetupTestDB(t)
	defer cleanup()
	ai := &fakeAI{failGenerate: 2}
	e, adventures := newAdventureEnv(t, raw, ai)
	ctx := context.Background()
	userID := e.newUser(t, "adventurer")

	_, err := e.profile.Create(ctx, userID, 10, decimal.NewFromInt(70000), "IDR")
	require.NoError(t, err)
	_, err = e.goal.Create(ctx, userID, "sepeda", decimal.NewFromInt(100000), nil)
	require.NoError(t, err)

	// Two 503s then success
	adventure, err := adventures.Generate(ctx, userID, "")
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&ai.generateCalls))
	assert.Equal(t, "t1", adventure.GenerationTraceID)
	assert.Nil(t, adventure.SelectedChoiceIndex)
	assert.Len(t, adventure.Choices, 3)

	evaluated, err := adventures.SubmitChoice(ctx, userID, adventure.ID, 0)
	require.NoError(t, err)
	require.NotNil(t, evaluated.SelectedChoiceIndex)
	assert.Equal(t, 0, *evaluated.SelectedChoiceIndex)
	assert.Equal(t, "Pilihan bagus", *evaluated.Feedback)
	assert.Equal(t, "t2", *evaluated.EvaluationTraceID)
	assert.InDelta(t, 0.95, evaluated.Scores["goal_alignment"], 1e-9)
	assert.NotNil(t, evaluated.EvaluatedAt)

	// Replay rejects without another AI call
	_, err = adventures.SubmitChoice(ctx, userID, adventure.ID, 0)
	assert.True(t, apperr.Is(err, apperr.KindAlreadySubmitted))
	assert.Equal(t, int32(1), atomic.LoadInt32(&ai.evaluateCalls))
}

func TestAdventure_GenerateExhaustsRetries(t *testing.T) {
	raw, cleanup := testutil.SetupTestDB(t)
	defer cleanup()
	ai := &fakeAI{failGenerate: 99}
	e, adventures := newAdventureEnv(t, raw, ai)
	ctx := context.Background()
	userID := e.newUser(t, "unlucky")

	_, err := e.profile.Create(ctx, userID, 10, decimal.NewFromInt(100), "")
	require.NoError(t, err)

	_, err = adventures.Generate(ctx, userID, "")
	assert.True(t, apperr.Is(err, apperr.KindServiceUnavailable), "got %v", err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&ai.generateCalls))

	history, err := adventures.History(ctx, userID, 10)
	require.NoError(t, err)
	assert.Empty(t, history, "failed generation must not persist an adventure")
}

func TestAdventure_InvalidChoiceLeavesRowUntouched(t *testing.T) {
	raw, cleanup := testutil.SetupTestDB(t)
	defer cleanup()
	ai := &fakeAI{}
	e, adventures := newAdventureEnv(t, raw, ai)
	ctx := context.Background()
	userID := e.newUser(t, "chooser")

	_, err := e.profile.Create(ctx, userID, 10, decimal.NewFromInt(100), "")
	require.NoError(t, err)

	adventure, err := adventures.Generate(ctx, userID, "")
	require.NoError(t, err)

	_, err = adventures.SubmitChoice(ctx, userID, adventure.ID, 5)
	assert.True(t, apperr.Is(err, apperr.KindInvalidChoice))
	_, err = adventures.SubmitChoice(ctx, userID, adventure.ID, -1)
	assert.True(t, apperr.Is(err, apperr.KindInvalidChoice))
	assert.Zero(t, atomic.LoadInt32(&ai.evaluateCalls))

	got, err := adventures.Get(ctx, userID, adventure.ID)
	require.NoError(t, err)
	assert.Nil(t, got.SelectedChoiceIndex)
}

func TestAdventure_RequiresProfile(t *testing.T) {
	raw, cleanup := testutil.SetupTestDB(t)
	defer cleanup()
	ai := &fakeAI{}
	e, adventures := newAdventureEnv(t, raw, ai)
	userID := e.newUser(t, "profileless")

	_, err := adventures.Generate(context.Background(), userID, "")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
