package server

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"finkid-backend/internal/apperr"
)

type buyRequest struct {
	ItemID   string `json:"itemId" validate:"required,uuid"`
	ItemType string `json:"itemType" validate:"required,oneof=character food"`
}

func (s *Server) handleShopCharacters(c *fiber.Ctx) error {
	characters, err := s.deps.Shop.ListCharacters(c.UserContext())
	if err != nil {
		return ErrorResponse(c, err)
	}
	return c.JSON(fiber.Map{"characters": toCharacterResponses(characters)})
}

func (s *Server) handleShopFoods(c *fiber.Ctx) error {
	foods, err := s.deps.Shop.ListFoods(c.UserContext())
	if err != nil {
		return ErrorResponse(c, err)
	}
	return c.JSON(fiber.Map{"foods": toFoodResponses(foods)})
}

func (s *Server) handleShopInventory(c *fiber.Ctx) error {
	entries, err := s.deps.Shop.GetInventory(c.UserContext(), CurrentUserID(c))
	if err != nil {
		return ErrorResponse(c, err)
	}
	return c.JSON(fiber.Map{"inventory": entries})
}

func (s *Server) handleShopBuy(c *fiber.Ctx) error {
	input, err := BindAndValidate[buyRequest](c)
	if err != nil {
		return ErrorResponse(c, err)
	}
	itemID, err := uuid.Parse(input.ItemID)
	if err != nil {
		return ErrorResponse(c, apperr.Validation([]apperr.FieldError{{Field: "itemId", Message: "Must be a valid id"}}))
	}

	result, err := s.deps.Shop.Purchase(c.UserContext(), CurrentUserID(c), itemID, input.ItemType)
	if err != nil {
		return ErrorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"newBalance": result.NewBalance,
		"item":       result.Item,
	})
}
