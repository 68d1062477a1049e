package notify

import (
	"backend-optikick/internal/user"

	"github.com/gofiber/fiber/v2"
)

// ConnectionHeader carries the websocket connection id of the acting client
// so state-change events skip it.
const ConnectionHeader = "X-Connection-ID"

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	g := r.Group("/notifications", authMiddleware)

	list := func(f Filter) fiber.Handler {
		return func(c *fiber.Ctx) error {
			views, err := svc.List(c.Context(), user.CurrentID(c), f)
			if err != nil {
				return err
			}
			return c.JSON(fiber.Map{"notifications": views})
		}
	}
	g.Get("/", list(All))
	g.Get("/unread", list(Unread))
	g.Get("/pinned", list(Pinned))

	g.Get("/unread-count", func(c *fiber.Ctx) error {
		count, err := svc.UnreadCount(c.Context(), user.CurrentID(c))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"count": count})
	})

	g.Post("/read-all", func(c *fiber.Ctx) error {
		n, err := svc.MarkAllRead(c.Context(), user.CurrentID(c), c.Get(ConnectionHeader))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"status": "success", "updated": n})
	})

	g.Get("/:id", func(c *fiber.Ctx) error {
		v, err := svc.Get(c.Context(), user.CurrentID(c), c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(v)
	})

	action := func(fn func(*Service, *fiber.Ctx) error, msg string) fiber.Handler {
		return func(c *fiber.Ctx) error {
			if err := fn(svc, c); err != nil {
				return err
			}
			return c.JSON(fiber.Map{"status": "success", "message": msg})
		}
	}
	g.Post("/:id/read", action(func(s *Service, c *fiber.Ctx) error {
		return s.MarkRead(c.Context(), user.CurrentID(c), c.Params("id"), c.Get(ConnectionHeader))
	}, "Notification marked as read"))
	g.Post("/:id/pin", action(func(s *Service, c *fiber.Ctx) error {
		return s.Pin(c.Context(), user.CurrentID(c), c.Params("id"), c.Get(ConnectionHeader))
	}, "Notification pinned"))
	g.Post("/:id/unpin", action(func(s *Service, c *fiber.Ctx) error {
		return s.Unpin(c.Context(), user.CurrentID(c), c.Params("id"), c.Get(ConnectionHeader))
	}, "Notification unpinned"))
	g.Delete("/:id", action(func(s *Service, c *fiber.Ctx) error {
		return s.Delete(c.Context(), user.CurrentID(c), c.Params("id"), c.Get(ConnectionHeader))
	}, "Notification deleted"))
}
