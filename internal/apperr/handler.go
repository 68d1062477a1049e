package apperr

import (
	"github.com/gofiber/fiber/v2"
	"github.com/phuslu/log"
)

// Handler renders errors as {"status":"error","message":...}. Internal
// errors are logged with the route and replaced by a generic message.
func Handler(logger *log.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := Status(err)
		if status >= fiber.StatusInternalServerError && logger != nil {
			logger.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("request failed")
		}
		return c.Status(status).JSON(fiber.Map{
			"status":  "error",
			"message": Public(err),
		})
	}
}
