package server

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"finkid-backend/internal/apperr"
)

type generateAdventureRequest struct {
	Context string `json:"context" validate:"omitempty,max=500"`
}

type submitChoiceRequest struct {
	AdventureID string `json:"adventureId" validate:"required,uuid"`
	ChoiceIndex *int   `json:"choiceIndex" validate:"required,min=0"`
}

func (s *Server) handleGenerateAdventure(c *fiber.Ctx) error {
	input, err := BindAndValidate[generateAdventureRequest](c)
	if err != nil {
		return ErrorResponse(c, err)
	}

	adventure, err := s.deps.Adventure.Generate(c.UserContext(), CurrentUserID(c), input.Context)
	if err != nil {
		return ErrorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toAdventureResponse(adventure))
}

func (s *Server) handleSubmitChoice(c *fiber.Ctx) error {
	input, err := BindAndValidate[submitChoiceRequest](c)
	if err != nil {
		return ErrorResponse(c, err)
	}
	adventureID, err := uuid.Parse(input.AdventureID)
	if err != nil {
		return ErrorResponse(c, apperr.Validation([]apperr.FieldError{{Field: "adventureId", Message: "Must be a valid id"}}))
	}

	adventure, err := s.deps.Adventure.SubmitChoice(c.UserContext(), CurrentUserID(c), adventureID, *input.ChoiceIndex)
	if err != nil {
		return ErrorResponse(c, err)
	}
	return c.JSON(toAdventureResponse(adventure))
}

func (s *Server) handleAdventureHistory(c *fiber.Ctx) error {
	adventures, err := s.deps.Adventure.History(c.UserContext(), CurrentUserID(c), c.QueryInt("limit"))
	if err != nil {
		return ErrorResponse(c, err)
	}
	return c.JSON(fiber.Map{"adventures": toAdventureResponses(adventures)})
}

func (s *Server) handleGetAdventure(c *fiber.Ctx) error {
	adventureID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return ErrorResponse(c, apperr.Validation([]apperr.FieldError{{Field: "id", Message: "Must be a valid id"}}))
	}

	adventure, err := s.deps.Adventure.Get(c.UserContext(), CurrentUserID(c), adventureID)
	if err != nil {
		return ErrorResponse(c, err)
	}
	return c.JSON(toAdventureResponse(adventure))
}
