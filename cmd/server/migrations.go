package main

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"finkid-backend/internal/catalog"
	"finkid-backend/internal/pkg/db"
	"finkid-backend/internal/repository"
)

// runMigrations executes the schema migrations. CHECK constraints back
// the domain invariants: non-negative balances, pet stats in [0,100],
// positive activity amounts.
func runMigrations(ctx context.Context, pool *db.Pool) error {
	log.Info().Msg("Running database migrations...")

	migrations := []struct {
		name string
		sql  string
	}{
		{"users", `
			CREATE TABLE IF NOT EXISTS users (
				id UUID PRIMARY KEY,
				username VARCHAR(50) NOT NULL UNIQUE,
				email VARCHAR(255) NOT NULL UNIQUE,
				password_hash TEXT NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
		`},
		{"profiles", `
			CREATE TABLE IF NOT EXISTS profiles (
				id UUID PRIMARY KEY,
				user_id UUID NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
				age INT NOT NULL CHECK (age BETWEEN 5 AND 18),
				allowance NUMERIC(10,2) NOT NULL CHECK (allowance > 0),
				currency CHAR(3) NOT NULL DEFAULT 'IDR',
				onboarding_completed BOOLEAN NOT NULL DEFAULT FALSE,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
		`},
		{"characters", `
			CREATE TABLE IF NOT EXISTS characters (
				id UUID PRIMARY KEY,
				name VARCHAR(100) NOT NULL,
				image_url TEXT NOT NULL DEFAULT '',
				is_starter BOOLEAN NOT NULL DEFAULT FALSE,
				price NUMERIC(10,2) NOT NULL DEFAULT 0 CHECK (price >= 0)
			);
		`},
		{"foods", `
			CREATE TABLE IF NOT EXISTS foods (
				id UUID PRIMARY KEY,
				name VARCHAR(100) NOT NULL,
				nutrition_value INT NOT NULL CHECK (nutrition_value >= 1),
				price NUMERIC(10,2) NOT NULL DEFAULT 0 CHECK (price >= 0),
				image_url TEXT NOT NULL DEFAULT ''
			);
		`},
		{"tamagotchis", `
			CREATE TABLE IF NOT EXISTS tamagotchis (
				id UUID PRIMARY KEY,
				user_id UUID NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
				character_id UUID NOT NULL REFERENCES characters(id),
				name VARCHAR(50) NOT NULL,
				hunger INT NOT NULL DEFAULT 50 CHECK (hunger BETWEEN 0 AND 100),
				happiness INT NOT NULL DEFAULT 50 CHECK (happiness BETWEEN 0 AND 100),
				health INT NOT NULL DEFAULT 100 CHECK (health BETWEEN 0 AND 100),
				last_fed_at TIMESTAMPTZ,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
		`},
		{"wallets", `
			CREATE TABLE IF NOT EXISTS wallets (
				id UUID PRIMARY KEY,
				user_id UUID NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
				balance NUMERIC(10,2) NOT NULL DEFAULT 0 CHECK (balance >= 0),
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
		`},
		{"wallet_transactions", `
			CREATE TABLE IF NOT EXISTS wallet_transactions (
				id UUID PRIMARY KEY,
				wallet_id UUID NOT NULL REFERENCES wallets(id) ON DELETE CASCADE,
				amount NUMERIC(10,2) NOT NULL,
				transaction_type VARCHAR(50) NOT NULL,
				description TEXT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_wallet_transactions_wallet_time
				ON wallet_transactions(wallet_id, created_at DESC);
		`},
		{"user_inventory", `
			CREATE TABLE IF NOT EXISTS user_inventory (
				id UUID PRIMARY KEY,
				user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				item_type VARCHAR(20) NOT NULL CHECK (item_type IN ('character', 'food')),
				item_id UUID NOT NULL,
				quantity INT NOT NULL DEFAULT 0 CHECK (quantity >= 0),
				acquired_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				UNIQUE (user_id, item_type, item_id)
			);
		`},
		{"missions", `
			CREATE TABLE IF NOT EXISTS missions (
				id UUID PRIMARY KEY,
				title VARCHAR(200) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				mission_type VARCHAR(50) NOT NULL,
				requirements JSONB NOT NULL DEFAULT '{}'::jsonb,
				reward_coins NUMERIC(10,2) NOT NULL DEFAULT 0 CHECK (reward_coins >= 0),
				active_date DATE NOT NULL UNIQUE
			);
		`},
		{"user_missions", `
			CREATE TABLE IF NOT EXISTS user_missions (
				id UUID PRIMARY KEY,
				user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				mission_id UUID NOT NULL REFERENCES missions(id) ON DELETE CASCADE,
				progress JSONB NOT NULL DEFAULT '{}'::jsonb,
				completed BOOLEAN NOT NULL DEFAULT FALSE,
				completed_at TIMESTAMPTZ,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				UNIQUE (user_id, mission_id)
			);
		`},
		{"expenses", `
			CREATE TABLE IF NOT EXISTS expenses (
				id UUID PRIMARY KEY,
				user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				amount NUMERIC(10,2) NOT NULL CHECK (amount > 0),
				category VARCHAR(50) NOT NULL,
				description TEXT,
				logged_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_expenses_user_time ON expenses(user_id, logged_at DESC);
		`},
		{"savings", `
			CREATE TABLE IF NOT EXISTS savings (
				id UUID PRIMARY KEY,
				user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				amount NUMERIC(10,2) NOT NULL CHECK (amount > 0),
				source VARCHAR(50),
				logged_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_savings_user_time ON savings(user_id, logged_at DESC);
		`},
		{"goals", `
			CREATE TABLE IF NOT EXISTS goals (
				id UUID PRIMARY KEY,
				user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				title VARCHAR(100) NOT NULL,
				description TEXT,
				target_amount NUMERIC(10,2) NOT NULL CHECK (target_amount > 0),
				current_amount NUMERIC(10,2) NOT NULL DEFAULT 0 CHECK (current_amount >= 0),
				completed BOOLEAN NOT NULL DEFAULT FALSE,
				completed_at TIMESTAMPTZ,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
		`},
		{"adventures", `
			CREATE TABLE IF NOT EXISTS adventures (
				id UUID PRIMARY KEY,
				user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				scenario TEXT NOT NULL,
				choices JSONB NOT NULL,
				selected_choice_index INT,
				feedback TEXT,
				scores JSONB,
				generation_trace_id TEXT NOT NULL,
				evaluation_trace_id TEXT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				evaluated_at TIMESTAMPTZ
			);
			CREATE INDEX IF NOT EXISTS idx_adventures_user_time ON adventures(user_id, created_at DESC);
		`},
	}

	for _, m := range migrations {
		if _, err := pool.Exec(ctx, m.sql); err != nil {
			return err
		}
		log.Info().Str("table", m.name).Msg("Migration applied")
	}

	log.Info().Msg("All migrations completed successfully")
	return nil
}

// seedDays is how far ahead the daily mission schedule is filled.
const seedDays = 30

// seedCatalog fills the character, food, and mission catalogs. Character
// and food inserts use fixed ids and mission inserts are keyed by active
// date, so reseeding on restart leaves existing rows unchanged.
func seedCatalog(ctx context.Context, pool *db.Pool) error {
	catalogRepo := repository.NewCatalogRepository(pool.Pool)
	for _, c := range catalog.Characters() {
		if err := catalogRepo.InsertCharacter(ctx, c); err != nil {
			return err
		}
	}
	for _, f := range catalog.Foods() {
		if err := catalogRepo.InsertFood(ctx, f); err != nil {
			return err
		}
	}

	missionRepo := repository.NewMissionRepository(pool.Pool)
	today := time.Now().UTC().Truncate(24 * time.Hour)
	count, err := missionRepo.CountOnOrAfter(ctx, today)
	if err != nil {
		return err
	}
	if count >= seedDays {
		return nil
	}

	rotation := catalog.MissionRotation()
	for i := 0; i < seedDays; i++ {
		seed := rotation[i%len(rotation)]
		day := today.AddDate(0, 0, i)
		if _, err := missionRepo.Insert(ctx, seed.Title, seed.Description, seed.MissionType,
			seed.Requirements, seed.RewardCoins, day); err != nil {
			return err
		}
	}

	log.Info().Int("days", seedDays).Msg("Mission schedule seeded")
	return nil
}
