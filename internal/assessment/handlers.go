package assessment

import (
	"backend-optikick/internal/user"
	"backend-optikick/internal/validate"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler, gate user.RoleGate) {
	player := gate(user.RolePlayer)
	doctor := gate(user.RoleDoctor)

	r.Post("/player/assessments", authMiddleware, player, func(c *fiber.Ctx) error {
		var in RequestInput
		if err := c.BodyParser(&in); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid assessment payload")
		}
		if err := validate.Struct(in); err != nil {
			return err
		}
		a, err := svc.Request(c.Context(), user.CurrentID(c), in)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"status":  "success",
			"message": "Assessment request created successfully",
			"data":    fiber.Map{"assessment": a},
		})
	})

	r.Get("/doctor/assessments", authMiddleware, doctor, func(c *fiber.Ctx) error {
		items, err := svc.Pending(c.Context(), user.CurrentID(c))
		if err != nil {
			return err
		}
		msg := "Assessment requests fetched successfully"
		if len(items) == 0 {
			msg = "No pending assessment requests found"
		}
		return c.JSON(fiber.Map{"status": "success", "message": msg, "data": fiber.Map{"assessments": items}})
	})

	r.Get("/doctor/assessments/:id", authMiddleware, doctor, func(c *fiber.Ctx) error {
		d, err := svc.Get(c.Context(), user.CurrentID(c), c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"status": "success", "data": d})
	})

	r.Post("/doctor/assessments/:id/approve", authMiddleware, doctor, func(c *fiber.Ctx) error {
		a, err := svc.Approve(c.Context(), user.CurrentID(c), c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"status":  "success",
			"message": "Assessment approved successfully",
			"data":    fiber.Map{"id": a.ID, "status": a.Status},
		})
	})

	r.Post("/doctor/assessments/:id/reschedule", authMiddleware, doctor, func(c *fiber.Ctx) error {
		var in RescheduleInput
		if err := c.BodyParser(&in); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid reschedule payload")
		}
		if err := validate.Struct(in); err != nil {
			return err
		}
		a, err := svc.Reschedule(c.Context(), user.CurrentID(c), c.Params("id"), in)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"status":  "success",
			"message": "Assessment rescheduled successfully",
			"data":    fiber.Map{"id": a.ID, "status": a.Status, "new_time": a.RequestedAt.Format("2006-01-02 15:04:05")},
		})
	})
}
