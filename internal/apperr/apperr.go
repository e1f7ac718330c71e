// Package apperr defines the typed error taxonomy shared by all domain
// services and its mapping to HTTP status codes.
package apperr

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Kind classifies a domain failure. Kinds are part of the API surface:
// the short name is echoed in the error envelope.
type Kind string

const (
	KindUnauthorized         Kind = "Unauthorized"
	KindForbidden            Kind = "Forbidden"
	KindNotFound             Kind = "NotFound"
	KindConflict             Kind = "Conflict"
	KindAlreadySubmitted     Kind = "AlreadySubmitted"
	KindAlreadyCompleted     Kind = "AlreadyCompleted"
	KindInvalidAmount        Kind = "InvalidAmount"
	KindInvalidChoice        Kind = "InvalidChoice"
	KindInvalidStarter       Kind = "InvalidStarter"
	KindInsufficientFunds    Kind = "InsufficientFunds"
	KindInsufficientQuantity Kind = "InsufficientQuantity"
	KindNoActiveMission      Kind = "NoActiveMission"
	KindValidationFailed     Kind = "ValidationFailed"
	KindServiceUnavailable   Kind = "ServiceUnavailable"
	KindInternal             Kind = "Internal"
)

// FieldError carries field-level validation detail.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is a classified domain error. Err, when set, is the underlying
// cause and is logged but never exposed to clients.
type Error struct {
	Kind    Kind
	Message string
	Fields  []FieldError
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a classified error with a client-facing message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates a classified error with a formatted client-facing message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies an underlying error. The cause is kept for logging.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Validation creates a ValidationFailed error with field detail.
func Validation(fields []FieldError) *Error {
	return &Error{Kind: KindValidationFailed, Message: "Validation failed", Fields: fields}
}

// KindOf returns the kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// HTTPStatus maps a kind to its HTTP status code.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindUnauthorized:
		return fiber.StatusUnauthorized
	case KindForbidden:
		return fiber.StatusForbidden
	case KindNotFound:
		return fiber.StatusNotFound
	case KindConflict, KindAlreadySubmitted, KindAlreadyCompleted:
		return fiber.StatusConflict
	case KindInvalidAmount, KindInvalidChoice, KindInvalidStarter,
		KindInsufficientFunds, KindInsufficientQuantity,
		KindNoActiveMission, KindValidationFailed:
		return fiber.StatusBadRequest
	case KindServiceUnavailable:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}
