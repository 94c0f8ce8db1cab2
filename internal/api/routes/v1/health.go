package v1

import (
	"github.com/gofiber/fiber/v2"
)

func registerHealth(r fiber.Router, deps Deps) {
	r.Get("/health", func(c *fiber.Ctx) error {
		svc := deps.Registry.Persistence()
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":        "ok",
			"offline":       svc.Offline(),
			"pending_plans": svc.PendingPlans(),
		})
	})
}
