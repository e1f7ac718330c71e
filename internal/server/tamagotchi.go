package server

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"finkid-backend/internal/apperr"
)

type feedRequest struct {
	FoodID string `json:"foodId" validate:"required,uuid"`
}

type renameRequest struct {
	Name string `json:"name" validate:"required,min=1,max=50"`
}

func (s *Server) handleGetTamagotchi(c *fiber.Ctx) error {
	t, err := s.deps.Tamagotchi.Get(c.UserContext(), CurrentUserID(c))
	if err != nil {
		return ErrorResponse(c, err)
	}
	return c.JSON(toTamagotchiResponse(t))
}

func (s *Server) handleFeedTamagotchi(c *fiber.Ctx) error {
	input, err := BindAndValidate[feedRequest](c)
	if err != nil {
		return ErrorResponse(c, err)
	}
	foodID, err := uuid.Parse(input.FoodID)
	if err != nil {
		return ErrorResponse(c, apperr.Validation([]apperr.FieldError{{Field: "foodId", Message: "Must be a valid id"}}))
	}

	result, err := s.deps.Tamagotchi.Feed(c.UserContext(), CurrentUserID(c), foodID)
	if err != nil {
		return ErrorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"hunger":           result.Tamagotchi.Hunger,
		"happiness":        result.Tamagotchi.Happiness,
		"health":           result.Tamagotchi.Health,
		"lastFedAt":        result.Tamagotchi.LastFedAt,
		"missionProgress":  result.MissionPct,
		"missionCompleted": result.MissionHit,
	})
}

func (s *Server) handleRenameTamagotchi(c *fiber.Ctx) error {
	input, err := BindAndValidate[renameRequest](c)
	if err != nil {
		return ErrorResponse(c, err)
	}

	t, err := s.deps.Tamagotchi.Rename(c.UserContext(), CurrentUserID(c), input.Name)
	if err != nil {
		return ErrorResponse(c, err)
	}
	return c.JSON(toTamagotchiResponse(t))
}
