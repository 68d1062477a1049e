package auth

import (
	"slices"
	"strings"
	"time"

	"backend-optikick/internal/user"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// JWTMiddleware validates bearer tokens and stores the caller's id and role
// in locals. Websocket clients may pass the token as ?token= instead.
func JWTMiddleware(secret string) fiber.Handler {
	secretBytes := []byte(secret)
	return func(c *fiber.Ctx) error {
		token := bearerFromHeader(c.Get("Authorization"))
		if token == "" {
			token = c.Query("token")
		}
		if token == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
		}

		claims, err := parseClaims(secretBytes, token)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, err.Error())
		}

		role, err := user.ParseRole(claims.Role)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "token invalid")
		}
		user.SetCurrent(c, claims.UserID, role)
		return c.Next()
	}
}

// RequireRoles rejects callers whose role is not listed. It must run after
// JWTMiddleware.
func RequireRoles(roles ...user.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !slices.Contains(roles, user.CurrentRole(c)) {
			return fiber.NewError(fiber.StatusForbidden, "Unauthorized. Insufficient permissions.")
		}
		return c.Next()
	}
}

// LoginLimiter throttles login attempts per client IP.
func LoginLimiter(perMinute int) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        perMinute,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return fiber.NewError(fiber.StatusTooManyRequests, "too many login attempts")
		},
	})
}

func bearerFromHeader(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
