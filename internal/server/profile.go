package server

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"finkid-backend/internal/apperr"
)

type createProfileRequest struct {
	Age       int     `json:"age" validate:"required,min=5,max=18"`
	Allowance float64 `json:"allowance" validate:"required,gt=0"`
	Currency  string  `json:"currency" validate:"omitempty,len=3"`
}

type chooseCharacterRequest struct {
	CharacterID string `json:"characterId" validate:"required,uuid"`
}

func (s *Server) handleCreateProfile(c *fiber.Ctx) error {
	input, err := BindAndValidate[createProfileRequest](c)
	if err != nil {
		return ErrorResponse(c, err)
	}

	profile, err := s.deps.Profile.Create(c.UserContext(), CurrentUserID(c),
		input.Age, decimal.NewFromFloat(input.Allowance).Round(2), input.Currency)
	if err != nil {
		return ErrorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toProfileResponse(profile))
}

func (s *Server) handleGetProfile(c *fiber.Ctx) error {
	profile, err := s.deps.Profile.Get(c.UserContext(), CurrentUserID(c))
	if err != nil {
		return ErrorResponse(c, err)
	}
	return c.JSON(toProfileResponse(profile))
}

func (s *Server) handleListStarterCharacters(c *fiber.Ctx) error {
	characters, err := s.deps.Profile.ListStarterCharacters(c.UserContext())
	if err != nil {
		return ErrorResponse(c, err)
	}
	return c.JSON(fiber.Map{"characters": toCharacterResponses(characters)})
}

func (s *Server) handleChooseStarterCharacter(c *fiber.Ctx) error {
	input, err := BindAndValidate[chooseCharacterRequest](c)
	if err != nil {
		return ErrorResponse(c, err)
	}
	characterID, err := uuid.Parse(input.CharacterID)
	if err != nil {
		return ErrorResponse(c, apperr.Validation([]apperr.FieldError{{Field: "characterId", Message: "Must be a valid id"}}))
	}

	result, err := s.deps.Profile.ChooseStarterCharacter(c.UserContext(), CurrentUserID(c), characterID)
	if err != nil {
		return ErrorResponse(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"tamagotchiId": result.Tamagotchi.ID,
		"tamagotchi":   toTamagotchiResponse(result.Tamagotchi),
		"character":    toCharacterResponse(result.Character),
	})
}
