package team

import (
	"strings"

	"backend-optikick/internal/user"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler, gate user.RoleGate) {
	r.Get("/admin/teams", authMiddleware, gate(user.RoleAdmin), func(c *fiber.Ctx) error {
		page, err := svc.List(c.Context(), strings.TrimSpace(c.Query("search")), c.QueryInt("page", 1))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"status": "success", "data": page})
	})
}
