package dashboard

import (
	"backend-optikick/internal/user"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler, gate user.RoleGate) {
	coach := gate(user.RoleCoach)
	doctor := gate(user.RoleDoctor)

	overview := func(c *fiber.Ctx) error {
		o, err := svc.Overview(c.Context())
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"status": "success", "message": "Dashboard data fetched successfully", "data": o})
	}
	players := func(c *fiber.Ctx) error {
		list, err := svc.Players(c.Context())
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"status": "success", "data": list})
	}

	r.Get("/coach/dashboard", authMiddleware, coach, overview)
	r.Get("/coach/team", authMiddleware, coach, players)
	r.Get("/doctor/dashboard", authMiddleware, doctor, overview)
	r.Get("/doctor/players", authMiddleware, doctor, players)

	r.Get("/player/dashboard", authMiddleware, gate(user.RolePlayer), func(c *fiber.Ctx) error {
		d, err := svc.Player(c.Context(), user.CurrentID(c))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"status": "success", "data": d})
	})

	admin := gate(user.RoleAdmin)
	r.Get("/admin/dashboard", authMiddleware, admin, func(c *fiber.Ctx) error {
		d, err := svc.Admin(c.Context())
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"status": "success", "data": d})
	})
	r.Get("/admin/stats", authMiddleware, admin, func(c *fiber.Ctx) error {
		st, err := svc.Stats(c.Context())
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"status": "success", "data": st})
	})
}
