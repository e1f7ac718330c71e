package server

import (
	"github.com/gofiber/fiber/v2"
)

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (s *Server) handleRegister(c *fiber.Ctx) error {
	input, err := BindAndValidate[registerRequest](c)
	if err != nil {
		return ErrorResponse(c, err)
	}

	result, err := s.deps.Auth.Register(c.UserContext(), input.Username, input.Email, input.Password)
	if err != nil {
		return ErrorResponse(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"userId": result.UserID,
		"token":  result.Token,
	})
}

func (s *Server) handleLogin(c *fiber.Ctx) error {
	input, err := BindAndValidate[loginRequest](c)
	if err != nil {
		return ErrorResponse(c, err)
	}

	result, err := s.deps.Auth.Login(c.UserContext(), input.Username, input.Password)
	if err != nil {
		return ErrorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"userId": result.UserID,
		"token":  result.Token,
	})
}
