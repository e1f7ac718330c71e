// Package server provides the HTTP boundary: the Fiber application,
// route registration, the auth gate, and the uniform error envelope.
package server

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"finkid-backend/internal/apperr"
)

// ErrorEnvelope is the uniform error response body.
type ErrorEnvelope struct {
	StatusCode       int                `json:"statusCode"`
	Message          string             `json:"message"`
	Error            string             `json:"error"`
	Timestamp        string             `json:"timestamp"`
	Path             string             `json:"path"`
	ValidationErrors []apperr.FieldError `json:"validationErrors,omitempty"`
}

var validate = validator.New()

// ErrorResponse converts a domain error into the envelope. Unclassified
// errors are logged with their cause and folded into Internal without
// leaking details.
func ErrorResponse(c *fiber.Ctx, err error) error {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		log.Error().Err(err).Str("path", c.OriginalURL()).Msg("Unhandled error")
		appErr = apperr.New(apperr.KindInternal, "Internal server error")
	} else if appErr.Kind == apperr.KindInternal || appErr.Err != nil {
		log.Error().Err(err).Str("path", c.OriginalURL()).Msg("Request failed")
	}

	status := apperr.HTTPStatus(appErr.Kind)
	return c.Status(status).JSON(ErrorEnvelope{
		StatusCode:       status,
		Message:          appErr.Message,
		Error:            string(appErr.Kind),
		Timestamp:        time.Now().UTC().Format(time.RFC3339),
		Path:             c.OriginalURL(),
		ValidationErrors: appErr.Fields,
	})
}

// BindAndValidate parses the JSON body into T and runs struct
// validation, converting failures into field-level detail.
func BindAndValidate[T any](c *fiber.Ctx) (*T, error) {
	var input T
	if err := c.BodyParser(&input); err != nil {
		return nil, apperr.Wrap(apperr.KindValidationFailed, "Invalid request body", err)
	}
	if err := validate.Struct(&input); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]apperr.FieldError, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, apperr.FieldError{
					Field:   fe.Field(),
					Message: "Failed validation: " + fe.Tag(),
				})
			}
			return nil, apperr.Validation(fields)
		}
		return nil, apperr.Wrap(apperr.KindValidationFailed, "Validation failed", err)
	}
	return &input, nil
}
