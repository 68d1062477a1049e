package messaging

import (
	"strings"

	"backend-optikick/internal/notify"
	"backend-optikick/internal/storage"
	"backend-optikick/internal/user"
	"backend-optikick/internal/validate"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	g := r.Group("/messages", authMiddleware)

	g.Get("/conversations", func(c *fiber.Ctx) error {
		convs, err := svc.Conversations(c.Context(), user.CurrentID(c), c.Query("query"))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"status": "success", "data": convs})
	})

	g.Get("/unread-count", func(c *fiber.Ctx) error {
		n, err := svc.UnreadCount(c.Context(), user.CurrentID(c))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"count": n})
	})

	g.Get("/conversation/:userId", func(c *fiber.Ctx) error {
		views, err := svc.History(c.Context(), user.CurrentID(c), c.Params("userId"))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"status": "success", "data": views})
	})

	g.Post("/conversation/:userId", func(c *fiber.Ctx) error {
		var in SendInput
		if err := c.BodyParser(&in); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid message payload")
		}
		if err := validate.Struct(in); err != nil {
			return err
		}
		var file []byte
		if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
			if fh, err := c.FormFile("file"); err == nil {
				if file, err = storage.ReadFile(fh); err != nil {
					return err
				}
			}
		}
		v, err := svc.Send(c.Context(), user.CurrentID(c), c.Params("userId"), c.Get(notify.ConnectionHeader), in, file)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"status": "success",
			"data":   fiber.Map{"message": v, "conversation_id": v.ConversationID},
		})
	})

	g.Post("/:id/read", func(c *fiber.Ctx) error {
		if err := svc.MarkRead(c.Context(), user.CurrentID(c), c.Params("id")); err != nil {
			return err
		}
		return c.JSON(fiber.Map{"status": "success", "message": "Message marked as read"})
	})

	g.Post("/:id/react", func(c *fiber.Ctx) error {
		var in ReactInput
		if err := c.BodyParser(&in); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid reaction payload")
		}
		if err := svc.React(c.Context(), user.CurrentID(c), c.Params("id"), in.Reaction, c.Get(notify.ConnectionHeader)); err != nil {
			return err
		}
		msg := "Reaction added successfully"
		if strings.TrimSpace(in.Reaction) == "" {
			msg = "Reaction removed successfully"
		}
		return c.JSON(fiber.Map{"status": "success", "message": msg})
	})

	g.Delete("/:id", func(c *fiber.Ctx) error {
		if err := svc.Delete(c.Context(), user.CurrentID(c), c.Params("id")); err != nil {
			return err
		}
		return c.JSON(fiber.Map{"status": "success", "message": "Message deleted"})
	})
}
