package metrics

import (
	"backend-optikick/internal/analysis"
	"backend-optikick/internal/user"
	"backend-optikick/internal/validate"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler, gate user.RoleGate) {
	staff := gate(user.RoleCoach, user.RoleDoctor, user.RoleAdmin)
	player := gate(user.RolePlayer)
	coach := gate(user.RoleCoach)
	doctor := gate(user.RoleDoctor)

	r.Post("/metrics", authMiddleware, staff, func(c *fiber.Ctx) error {
		var req RecordRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid metric payload")
		}
		if err := validate.Struct(req); err != nil {
			return err
		}
		sm, err := svc.Record(c.Context(), req)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"status": "success", "data": sm})
	})

	self := func(c *fiber.Ctx) string { return user.CurrentID(c) }
	param := func(c *fiber.Ctx) string { return c.Params("id") }

	list := func(playerID func(*fiber.Ctx) string) fiber.Handler {
		return func(c *fiber.Ctx) error {
			samples, err := svc.List(c.Context(), playerID(c))
			if err != nil {
				return err
			}
			return c.JSON(fiber.Map{"status": "success", "data": samples})
		}
	}
	latest := func(playerID func(*fiber.Ctx) string) fiber.Handler {
		return func(c *fiber.Ctx) error {
			sm, err := svc.Latest(c.Context(), playerID(c))
			if err != nil {
				return err
			}
			var data any
			if sm != nil {
				data = NewVitals(*sm)
			}
			return c.JSON(fiber.Map{"status": "success", "data": data})
		}
	}
	detail := func(playerID func(*fiber.Ctx) string, allowed []Period, def Period) fiber.Handler {
		return func(c *fiber.Ctx) error {
			metric := analysis.MetricType(c.Params("type"))
			period := ParsePeriod(c.Query("period"), allowed, def)
			d, err := svc.Detail(c.Context(), playerID(c), metric, period)
			if err != nil {
				return err
			}
			return c.JSON(fiber.Map{"status": "success", "data": d})
		}
	}

	r.Get("/player/metrics", authMiddleware, player, list(self))
	r.Get("/player/metrics/latest", authMiddleware, player, latest(self))
	r.Get("/player/metrics/:type", authMiddleware, player, detail(self, AllPeriods, Daily))

	r.Get("/coach/players/:id/metrics", authMiddleware, coach, list(param))
	r.Get("/coach/players/:id/metrics/latest", authMiddleware, coach, latest(param))
	r.Get("/coach/players/:id/metrics/:type", authMiddleware, coach, detail(param, AllPeriods, Daily))

	r.Get("/doctor/players/:id/metrics/latest", authMiddleware, doctor, latest(param))
	r.Get("/doctor/players/:id/metrics/:type", authMiddleware, doctor, detail(param, DoctorPeriods, Weekly))
}
