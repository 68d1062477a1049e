package storage

import (
	"io"
	"mime/multipart"

	"backend-optikick/internal/user"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/upload", authMiddleware, func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "file required")
		}
		data, err := ReadFile(fh)
		if err != nil {
			return err
		}
		obj, err := svc.Store(c.Context(), user.CurrentID(c), Kind(c.FormValue("type")), data)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(obj)
	})
}

// ReadFile loads an uploaded multipart file into memory.
func ReadFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
