// Package testutil spins up the PostgreSQL test container and applies
// the schema for repository- and service-level integration tests.
package testutil

import (
	"context"
	"os/exec"
	"testing"
	"time"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// DockerAvailable checks if Docker is available and running.
func DockerAvailable() bool {
	return exec.Command("docker", "info").Run() == nil
}

// SetupTestDB creates a PostgreSQL container with the schema applied
// and returns a pool plus its cleanup. Skips the test if Docker is
// missing.
func SetupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	t.Helper()
	if !DockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	poolConfig, err := pgxpool.ParseConfig(connStr)
	require.NoError(t, err)
	poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	require.NoError(t, err)

	require.NoError(t, ApplySchema(ctx, pool))

	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}
	return pool, cleanup
}

// ApplySchema creates every table of the persistent state layout,
// mirroring the startup migrations.
func ApplySchema(ctx context.Context, pool *pgxpool.Pool) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			username VARCHAR(50) NOT NULL UNIQUE,
			email VARCHAR(255) NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS profiles (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
			age INT NOT NULL CHECK (age BETWEEN 5 AND 18),
			allowance NUMERIC(10,2) NOT NULL CHECK (allowance > 0),
			currency CHAR(3) NOT NULL DEFAULT 'IDR',
			onboarding_completed BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS characters (
			id UUID PRIMARY KEY,
			name VARCHAR(100) NOT NULL,
			image_url TEXT NOT NULL DEFAULT '',
			is_starter BOOLEAN NOT NULL DEFAULT FALSE,
			price NUMERIC(10,2) NOT NULL DEFAULT 0 CHECK (price >= 0)
		)`,
		`CREATE TABLE IF NOT EXISTS foods (
			id UUID PRIMARY KEY,
			name VARCHAR(100) NOT NULL,
			nutrition_value INT NOT NULL CHECK (nutrition_value >= 1),
			price NUMERIC(10,2) NOT NULL DEFAULT 0 CHECK (price >= 0),
			image_url TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS tamagotchis (
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
		)`,
		`CREATE TABLE IF NOT EXISTS wallets (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
			balance NUMERIC(10,2) NOT NULL DEFAULT 0 CHECK (balance >= 0),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS wallet_transactions (
			id UUID PRIMARY KEY,
			wallet_id UUID NOT NULL REFERENCES wallets(id) ON DELETE CASCADE,
			amount NUMERIC(10,2) NOT NULL,
			transaction_type VARCHAR(50) NOT NULL,
			description TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS user_inventory (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			item_type VARCHAR(20) NOT NULL CHECK (item_type IN ('character', 'food')),
			item_id UUID NOT NULL,
			quantity INT NOT NULL DEFAULT 0 CHECK (quantity >= 0),
			acquired_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (user_id, item_type, item_id)
		)`,
		`CREATE TABLE IF NOT EXISTS missions (
			id UUID PRIMARY KEY,
			title VARCHAR(200) NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			mission_type VARCHAR(50) NOT NULL,
			requirements JSONB NOT NULL DEFAULT '{}'::jsonb,
			reward_coins NUMERIC(10,2) NOT NULL DEFAULT 0 CHECK (reward_coins >= 0),
			active_date DATE NOT NULL UNIQUE
		)`,
		`CREATE TABLE IF NOT EXISTS user_missions (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			mission_id UUID NOT NULL REFERENCES missions(id) ON DELETE CASCADE,
			progress JSONB NOT NULL DEFAULT '{}'::jsonb,
			completed BOOLEAN NOT NULL DEFAULT FALSE,
			completed_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (user_id, mission_id)
		)`,
		`CREATE TABLE IF NOT EXISTS expenses (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			amount NUMERIC(10,2) NOT NULL CHECK (amount > 0),
			category VARCHAR(50) NOT NULL,
			description TEXT,
			logged_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS savings (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			amount NUMERIC(10,2) NOT NULL CHECK (amount > 0),
			source VARCHAR(50),
			logged_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS goals (
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
		)`,
		`CREATE TABLE IF NOT EXISTS adventures (
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
		)`,
	}
	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
