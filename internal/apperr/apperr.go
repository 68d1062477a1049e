package apperr

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrForbidden  = errors.New("forbidden")
)

// Error carries a caller-facing message and the kind it belongs to.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

func Wrap(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) error { return Wrap(ErrValidation, format, args...) }
func NotFound(format string, args ...any) error   { return Wrap(ErrNotFound, format, args...) }
func Conflict(format string, args ...any) error   { return Wrap(ErrConflict, format, args...) }
func Forbidden(format string, args ...any) error  { return Wrap(ErrForbidden, format, args...) }

// FromRow maps pgx.ErrNoRows to a not-found error named after the entity.
func FromRow(err error, entity string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return NotFound("%s not found", entity)
	}
	return err
}

// Status maps an error to the HTTP status the handlers respond with.
func Status(err error) int {
	var fe *fiber.Error
	switch {
	case err == nil:
		return fiber.StatusOK
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, ErrValidation):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, ErrConflict):
		return fiber.StatusConflict
	case errors.Is(err, ErrForbidden):
		return fiber.StatusForbidden
	default:
		return fiber.StatusInternalServerError
	}
}

// Public returns the message safe to show a client.
func Public(err error) string {
	var ae *Error
	var fe *fiber.Error
	switch {
	case errors.As(err, &ae):
		return ae.Message
	case errors.As(err, &fe):
		return fe.Message
	default:
		return "internal error"
	}
}
