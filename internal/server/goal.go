package server

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"finkid-backend/internal/apperr"
)

type createGoalRequest struct {
	Title        string  `json:"title" validate:"required,min=1,max=100"`
	TargetAmount float64 `json:"targetAmount" validate:"required,gt=0"`
	Description  *string `json:"description" validate:"omitempty,max=255"`
}

type goalProgressRequest struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
}

func (s *Server) handleCreateGoal(c *fiber.Ctx) error {
	input, err := BindAndValidate[createGoalRequest](c)
	if err != nil {
		return ErrorResponse(c, err)
	}

	goal, err := s.deps.Goal.Create(c.UserContext(), CurrentUserID(c),
		input.Title, decimal.NewFromFloat(input.TargetAmount).Round(2), input.Description)
	if err != nil {
		return ErrorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toGoalResponse(goal))
}

func (s *Server) handleListGoals(c *fiber.Ctx) error {
	goals, err := s.deps.Goal.List(c.UserContext(), CurrentUserID(c))
	if err != nil {
		return ErrorResponse(c, err)
	}
	return c.JSON(fiber.Map{"goals": toGoalResponses(goals)})
}

func (s *Server) handleListActiveGoals(c *fiber.Ctx) error {
	goals, err := s.deps.Goal.ListActive(c.UserContext(), CurrentUserID(c))
	if err != nil {
		return ErrorResponse(c, err)
	}
	return c.JSON(fiber.Map{"goals": toGoalResponses(goals)})
}

func (s *Server) handleListCompletedGoals(c *fiber.Ctx) error {
	goals, err := s.deps.Goal.ListCompleted(c.UserContext(), CurrentUserID(c))
	if err != nil {
		return ErrorResponse(c, err)
	}
	return c.JSON(fiber.Map{"goals": toGoalResponses(goals)})
}

func (s *Server) handleGoalProgress(c *fiber.Ctx) error {
	goalID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return ErrorResponse(c, apperr.Validation([]apperr.FieldError{{Field: "id", Message: "Must be a valid id"}}))
	}
	input, err := BindAndValidate[goalProgressRequest](c)
	if err != nil {
		return ErrorResponse(c, err)
	}

	result, err := s.deps.Goal.AddProgress(c.UserContext(), goalID, CurrentUserID(c),
		decimal.NewFromFloat(input.Amount).Round(2))
	if err != nil {
		return ErrorResponse(c, err)
	}

	resp := fiber.Map{
		"goal":          toGoalResponse(result.Goal),
		"currentAmount": result.Goal.CurrentAmount,
		"progressPct":   result.ProgressPct,
		"completed":     result.Goal.Completed,
	}
	if result.BonusAwarded != nil {
		resp["bonusAwarded"] = result.BonusAwarded
	}
	return c.JSON(resp)
}

func (s *Server) handleDeleteGoal(c *fiber.Ctx) error {
	goalID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return ErrorResponse(c, apperr.Validation([]apperr.FieldError{{Field: "id", Message: "Must be a valid id"}}))
	}

	if err := s.deps.Goal.Delete(c.UserContext(), goalID, CurrentUserID(c)); err != nil {
		return ErrorResponse(c, err)
	}
	return c.JSON(fiber.Map{"deleted": true})
}
