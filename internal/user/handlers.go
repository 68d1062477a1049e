package user

import (
	"strings"
	"time"

	"backend-optikick/internal/apperr"
	"backend-optikick/internal/validate"

	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes mounts contact search, the per-role profile pages and the
// admin user endpoints.
func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler, gate RoleGate) {
	for _, role := range []Role{RolePlayer, RoleCoach, RoleDoctor} {
		r.Get("/"+string(role)+"/profile", authMiddleware, gate(role), func(c *fiber.Ctx) error {
			p, err := svc.Profile(c.Context(), CurrentID(c), time.Now())
			if err != nil {
				return err
			}
			return c.JSON(fiber.Map{"status": "success", "data": p})
		})
	}

	r.Get("/users/search", authMiddleware, func(c *fiber.Ctx) error {
		q := strings.TrimSpace(c.Query("q"))
		if q == "" {
			return c.JSON(fiber.Map{"users": []Summary{}})
		}
		users, err := svc.Search(c.Context(), CurrentID(c), q)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"users": users})
	})

	admin := r.Group("/admin", authMiddleware, gate(RoleAdmin))

	admin.Get("/users", func(c *fiber.Ctx) error {
		f := ListFilter{Search: strings.TrimSpace(c.Query("search")), Page: c.QueryInt("page", 1)}
		if raw := c.Query("role"); raw != "" {
			role, err := ParseRole(raw)
			if err != nil {
				return apperr.Validation("role must be one of [player coach doctor admin]")
			}
			f.Role = role
		}
		page, err := svc.List(c.Context(), f)
		if err != nil {
			return err
		}
		return c.JSON(page)
	})

	admin.Put("/assignments", func(c *fiber.Ctx) error {
		var a Assignment
		if err := c.BodyParser(&a); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		if err := validate.Struct(a); err != nil {
			return err
		}
		if _, err := svc.GetPlayer(c.Context(), a.PlayerID); err != nil {
			return err
		}
		if err := svc.Assign(c.Context(), a); err != nil {
			return err
		}
		return c.JSON(a)
	})
}
