package program

import (
	"backend-optikick/internal/user"
	"backend-optikick/internal/validate"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler, gate user.RoleGate) {
	player := gate(user.RolePlayer)
	coach := gate(user.RoleCoach)
	doctor := gate(user.RoleDoctor)
	admin := gate(user.RoleAdmin)
	authors := gate(user.RoleDoctor, user.RoleAdmin)

	r.Get("/player/program", authMiddleware, player, func(c *fiber.Ctx) error {
		p, err := svc.Current(c.Context(), user.CurrentID(c))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"status": "success", "data": fiber.Map{"program": p}})
	})

	r.Get("/coach/players/:id/program", authMiddleware, coach, func(c *fiber.Ctx) error {
		p, err := svc.Latest(c.Context(), c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"status": "success", "data": fiber.Map{"program": p}})
	})

	r.Get("/doctor/players/:id/program", authMiddleware, doctor, func(c *fiber.Ctx) error {
		p, err := svc.Reviewed(c.Context(), c.Params("id"))
		if err != nil {
			return err
		}
		msg := "Training program fetched successfully"
		if p == nil {
			msg = "No approved training program available"
		}
		return c.JSON(fiber.Map{"status": "success", "message": msg, "data": fiber.Map{"program": p}})
	})

	r.Put("/doctor/players/:id/program", authMiddleware, doctor, func(c *fiber.Ctx) error {
		var in EditInput
		if err := c.BodyParser(&in); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid program payload")
		}
		if err := validate.Struct(in); err != nil {
			return err
		}
		p, err := svc.Edit(c.Context(), user.CurrentID(c), c.Params("id"), in)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"status": "success", "message": "Training program updated successfully", "data": p})
	})

	r.Post("/doctor/programs/:id/approve", authMiddleware, doctor, func(c *fiber.Ctx) error {
		p, err := svc.Approve(c.Context(), c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"status": "success", "message": "Training program approved", "data": p})
	})

	r.Post("/programs", authMiddleware, authors, func(c *fiber.Ctx) error {
		var in CreateInput
		if err := c.BodyParser(&in); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid program payload")
		}
		if err := validate.Struct(in); err != nil {
			return err
		}
		p, err := svc.Create(c.Context(), user.CurrentID(c), in)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"status": "success", "data": p})
	})

	generate := func(c *fiber.Ctx) error {
		var in GenerateInput
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&in); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "invalid program payload")
			}
		}
		actor := user.User{ID: user.CurrentID(c), Role: user.CurrentRole(c)}
		p, err := svc.Generate(c.Context(), actor, c.Params("id"), in)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"status":  "success",
			"message": "Training program generated and pending doctor approval",
			"data":    p,
		})
	}
	r.Post("/doctor/players/:id/ai-program", authMiddleware, doctor, generate)
	r.Post("/admin/players/:id/ai-program", authMiddleware, admin, generate)
}
