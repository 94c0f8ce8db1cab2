package handlers

import (
	"errors"
	"log"

	"floorplan-studio-backend/internal/persistence"
	"floorplan-studio-backend/internal/scene"

	"github.com/gofiber/fiber/v2"
)

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case scene.IsValidation(err):
		return fiber.StatusBadRequest
	case scene.IsNotFound(err):
		return fiber.StatusNotFound
	case errors.Is(err, persistence.ErrLastPlan):
		return fiber.StatusConflict
	case persistence.IsNetwork(err):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// fail logs err and writes the usual {"error": ...} body. Server errors
// hide the cause behind msg.
func fail(c *fiber.Ctx, err error, msg string) error {
	code := statusFor(err)
	log.Println(err, msg)
	text := err.Error()
	if code == fiber.StatusInternalServerError {
		text = msg
	}
	return c.Status(code).JSON(fiber.Map{
		"error": text,
	})
}
