package server

import (
	"github.com/gofiber/fiber/v2"
)

func (s *Server) handleGetBalance(c *fiber.Ctx) error {
	balance, err := s.deps.Wallet.GetBalance(c.UserContext(), CurrentUserID(c))
	if err != nil {
		return ErrorResponse(c, err)
	}
	return c.JSON(fiber.Map{
		"balance":  balance.Balance,
		"currency": balance.Currency,
	})
}

func (s *Server) handleWalletHistory(c *fiber.Ctx) error {
	limit := c.QueryInt("limit")
	txs, err := s.deps.Wallet.History(c.UserContext(), CurrentUserID(c), limit)
	if err != nil {
		return ErrorResponse(c, err)
	}
	return c.JSON(fiber.Map{"transactions": toWalletTransactionResponses(txs)})
}
