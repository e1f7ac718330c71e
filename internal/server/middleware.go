package server

import (
	"time"

	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"finkid-backend/internal/apperr"
	"finkid-backend/internal/service"
)

// localUserID is the fiber context key carrying the authenticated user.
const localUserID = "auth_user_id"

// AuthGate verifies the bearer token and resolves the caller's user id.
// The JWT middleware stores the verified token under "user"; the
// resolver translates its claims into a uuid for the handlers.
func AuthGate(secret string) []fiber.Handler {
	verify := jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{Key: []byte(secret)},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return ErrorResponse(c, apperr.Wrap(apperr.KindUnauthorized, "Missing or invalid token", err))
		},
	})

	resolve := func(c *fiber.Ctx) error {
		token, ok := c.Locals("user").(*jwt.Token)
		if !ok {
			return ErrorResponse(c, apperr.New(apperr.KindUnauthorized, "Missing or invalid token"))
		}
		userID, err := service.UserIDFromToken(token)
		if err != nil {
			return ErrorResponse(c, err)
		}
		c.Locals(localUserID, userID)
		return c.Next()
	}

	return []fiber.Handler{verify, resolve}
}

// CurrentUserID returns the authenticated user id set by the auth gate.
func CurrentUserID(c *fiber.Ctx) uuid.UUID {
	if id, ok := c.Locals(localUserID).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}

// RequestLogger logs one line per request with method, path, status,
// duration, and the caller when authenticated.
func RequestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		event := log.Info()
		if err != nil || c.Response().StatusCode() >= 500 {
			event = log.Error()
		}
		if id := CurrentUserID(c); id != uuid.Nil {
			event = event.Str("user_id", id.String())
		}
		event.
			Str("method", c.Method()).
			Str("path", c.OriginalURL()).
			Int("status", c.Response().StatusCode()).
			Dur("duration", time.Since(start)).
			Msg("Request")
		return err
	}
}
