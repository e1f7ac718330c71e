package server

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type logExpenseRequest struct {
	Amount      float64 `json:"amount" validate:"required,gt=0"`
	Category    string  `json:"category" validate:"required,max=50"`
	Description *string `json:"description" validate:"omitempty,max=255"`
}

type logSavingRequest struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
	Source *string `json:"source" validate:"omitempty,max=50"`
}

func (s *Server) handleMissionToday(c *fiber.Ctx) error {
	result, err := s.deps.Mission.Today(c.UserContext(), CurrentUserID(c))
	if err != nil {
		return ErrorResponse(c, err)
	}
	return c.JSON(toTodayMissionResponse(result))
}

func (s *Server) handleLogExpense(c *fiber.Ctx) error {
	input, err := BindAndValidate[logExpenseRequest](c)
	if err != nil {
		return ErrorResponse(c, err)
	}

	result, err := s.deps.Mission.LogExpense(c.UserContext(), CurrentUserID(c),
		decimal.NewFromFloat(input.Amount).Round(2), input.Category, input.Description)
	if err != nil {
		return ErrorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"logged":           true,
		"expense":          toExpenseResponse(result.Expense),
		"missionProgress":  result.ProgressPct,
		"missionCompleted": result.Completed,
	})
}

func (s *Server) handleLogSaving(c *fiber.Ctx) error {
	input, err := BindAndValidate[logSavingRequest](c)
	if err != nil {
		return ErrorResponse(c, err)
	}

	result, err := s.deps.Mission.LogSaving(c.UserContext(), CurrentUserID(c),
		decimal.NewFromFloat(input.Amount).Round(2), input.Source)
	if err != nil {
		return ErrorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"logged":           true,
		"saving":           toSavingResponse(result.Saving),
		"missionProgress":  result.ProgressPct,
		"missionCompleted": result.Completed,
	})
}

func (s *Server) handleListExpenses(c *fiber.Ctx) error {
	expenses, err := s.deps.Mission.Expenses(c.UserContext(), CurrentUserID(c), c.QueryInt("limit"))
	if err != nil {
		return ErrorResponse(c, err)
	}
	out := make([]expenseResponse, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, toExpenseResponse(e))
	}
	return c.JSON(fiber.Map{"expenses": out})
}

func (s *Server) handleListSavings(c *fiber.Ctx) error {
	savings, err := s.deps.Mission.Savings(c.UserContext(), CurrentUserID(c), c.QueryInt("limit"))
	if err != nil {
		return ErrorResponse(c, err)
	}
	out := make([]savingResponse, 0, len(savings))
	for _, sv := range savings {
		out = append(out, toSavingResponse(sv))
	}
	return c.JSON(fiber.Map{"savings": out})
}
