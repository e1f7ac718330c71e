// Package main is the entry point for the finkid game backend.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"finkid-backend/internal/aiclient"
	"finkid-backend/internal/config"
	"finkid-backend/internal/mission"
	"finkid-backend/internal/pkg/db"
	"finkid-backend/internal/repository"
	"finkid-backend/internal/server"
	"finkid-backend/internal/service"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if cfg.JWT.Secret == "" {
		log.Fatal().Msg("JWT_SECRET is required")
	}

	log.Info().Msg("Configuration loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbPool, err := db.NewPool(ctx, &cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	if err := runMigrations(ctx, dbPool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}
	if err := seedCatalog(ctx, dbPool); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed catalog")
	}

	// Repositories
	userRepo := repository.NewUserRepository(dbPool.Pool)
	profileRepo := repository.NewProfileRepository(dbPool.Pool)
	catalogRepo := repository.NewCatalogRepository(dbPool.Pool)
	walletRepo := repository.NewWalletRepository(dbPool.Pool)
	inventoryRepo := repository.NewInventoryRepository(dbPool.Pool)
	tamagotchiRepo := repository.NewTamagotchiRepository(dbPool.Pool)
	missionRepo := repository.NewMissionRepository(dbPool.Pool)
	activityRepo := repository.NewActivityRepository(dbPool.Pool)
	goalRepo := repository.NewGoalRepository(dbPool.Pool)
	adventureRepo := repository.NewAdventureRepository(dbPool.Pool)

	// Services
	authSvc := service.NewAuthService(userRepo, cfg.JWT)
	walletSvc := service.NewWalletService(dbPool, walletRepo, profileRepo)
	profileSvc := service.NewProfileService(dbPool, profileRepo, catalogRepo, tamagotchiRepo, inventoryRepo)
	shopSvc := service.NewShopService(dbPool, catalogRepo, inventoryRepo, walletSvc)
	missionSvc := service.NewMissionService(dbPool, missionRepo, activityRepo, walletSvc, mission.NewRegistry())
	tamagotchiSvc := service.NewTamagotchiService(dbPool, tamagotchiRepo, catalogRepo, inventoryRepo, shopSvc, missionSvc)
	goalSvc := service.NewGoalService(dbPool, goalRepo, walletSvc)
	adventureSvc := service.NewAdventureService(dbPool, adventureRepo, profileRepo, goalRepo, aiclient.New(&cfg.AIService))

	srv := server.New(&server.Dependencies{
		Config:     cfg,
		Pool:       dbPool,
		Auth:       authSvc,
		Profile:    profileSvc,
		Wallet:     walletSvc,
		Shop:       shopSvc,
		Mission:    missionSvc,
		Tamagotchi: tamagotchiSvc,
		Goal:       goalSvc,
		Adventure:  adventureSvc,
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.Listen(); err != nil {
			log.Fatal().Err(err).Msg("HTTP server stopped")
		}
	}()

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	if err := srv.Shutdown(); err != nil {
		log.Error().Err(err).Msg("Failed to shut down cleanly")
	}
	log.Info().Msg("Server stopped gracefully")
}
