package server

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog/log"

	"finkid-backend/internal/config"
	"finkid-backend/internal/pkg/db"
	"finkid-backend/internal/service"
)

// Dependencies holds the services the HTTP surface exposes.
type Dependencies struct {
	Config     *config.Config
	Pool       *db.Pool
	Auth       *service.AuthService
	Profile    *service.ProfileService
	Wallet     *service.WalletService
	Shop       *service.ShopService
	Mission    *service.MissionService
	Tamagotchi *service.TamagotchiService
	Goal       *service.GoalService
	Adventure  *service.AdventureService
}

// Server wraps the Fiber application with its dependencies.
type Server struct {
	app  *fiber.App
	deps *Dependencies
}

// New creates the Fiber application, wires the middleware chain, and
// registers every route under the configured API prefix.
func New(deps *Dependencies) *Server {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return ErrorResponse(c, err)
		},
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: deps.Config.Server.CORSOrigin,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(RequestLogger())

	s := &Server{app: app, deps: deps}
	s.registerRoutes()
	return s
}

// registerRoutes mounts the public and protected route groups.
func (s *Server) registerRoutes() {
	api := s.app.Group(s.deps.Config.Server.APIPrefix)

	api.Get("/health", s.handleHealth)
	api.Post("/auth/register", s.handleRegister)
	api.Post("/auth/login", s.handleLogin)

	protected := api.Group("", AuthGate(s.deps.Config.JWT.Secret)...)

	protected.Post("/profile", s.handleCreateProfile)
	protected.Get("/profile", s.handleGetProfile)
	protected.Get("/characters/starter", s.handleListStarterCharacters)
	protected.Post("/characters/choose", s.handleChooseStarterCharacter)

	protected.Get("/wallet", s.handleGetBalance)
	protected.Get("/wallet/transactions", s.handleWalletHistory)

	protected.Get("/shop/characters", s.handleShopCharacters)
	protected.Get("/shop/foods", s.handleShopFoods)
	protected.Get("/shop/inventory", s.handleShopInventory)
	protected.Post("/shop/buy", s.handleShopBuy)

	protected.Get("/missions/today", s.handleMissionToday)
	protected.Post("/missions/log-expense", s.handleLogExpense)
	protected.Post("/missions/log-saving", s.handleLogSaving)
	protected.Get("/missions/expenses", s.handleListExpenses)
	protected.Get("/missions/savings", s.handleListSavings)

	protected.Get("/tamagotchi", s.handleGetTamagotchi)
	protected.Post("/tamagotchi/feed", s.handleFeedTamagotchi)
	protected.Patch("/tamagotchi/name", s.handleRenameTamagotchi)

	protected.Post("/goals", s.handleCreateGoal)
	protected.Get("/goals", s.handleListGoals)
	protected.Get("/goals/active", s.handleListActiveGoals)
	protected.Get("/goals/completed", s.handleListCompletedGoals)
	protected.Post("/goals/:id/progress", s.handleGoalProgress)
	protected.Delete("/goals/:id", s.handleDeleteGoal)

	protected.Post("/adventure/generate", s.handleGenerateAdventure)
	protected.Post("/adventure/submit-choice", s.handleSubmitChoice)
	protected.Get("/adventure", s.handleAdventureHistory)
	protected.Get("/adventure/:id", s.handleGetAdventure)
}

// handleHealth reports process and database liveness.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	database := "up"
	if err := s.deps.Pool.HealthCheck(c.UserContext()); err != nil {
		log.Warn().Err(err).Msg("Health check: database unreachable")
		database = "down"
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status":   "degraded",
			"database": database,
		})
	}
	return c.JSON(fiber.Map{"status": "ok", "database": database})
}

// App returns the underlying Fiber application, used by tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen starts serving on the configured port.
func (s *Server) Listen() error {
	addr := fmt.Sprintf(":%d", s.deps.Config.Server.Port)
	log.Info().Str("addr", addr).Str("prefix", s.deps.Config.Server.APIPrefix).Msg("HTTP server listening")
	return s.app.Listen(addr)
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown() error {
	log.Info().Msg("Shutting down HTTP server")
	return s.app.Shutdown()
}
