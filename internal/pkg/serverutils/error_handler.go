package serverutils

import (
	"errors"

	"realtime-chat-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware maps domain errors to HTTP statuses. Directory
// failures surface at the call site that triggered them; they never touch
// an established session.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		if err == nil {
			return nil
		}

		status := fiber.StatusInternalServerError
		message := "internal server error"

		var fiberErr *fiber.Error
		switch {
		case errors.Is(err, service.ErrRoomNotFound):
			status = fiber.StatusNotFound
			message = err.Error()
		case errors.Is(err, service.ErrRoomExists):
			// The original API answered creates on a taken id with 400.
			status = fiber.StatusBadRequest
			message = err.Error()
		case errors.As(err, &fiberErr):
			status = fiberErr.Code
			message = fiberErr.Message
		}

		return c.Status(status).JSON(fiber.Map{"message": message})
	}
}
