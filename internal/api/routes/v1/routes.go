package v1

import (
	"floorplan-studio-backend/internal/canvas"
	"floorplan-studio-backend/internal/handlers"

	"github.com/gofiber/fiber/v2"
)

// Deps is what the v1 handlers are built from.
type Deps struct {
	Registry   *canvas.Registry
	Thumbnails handlers.ThumbnailStore
}

func RegisterRoutes(r fiber.Router, deps Deps) {
	registerHealth(r, deps)

	registerPlans(r, deps)
	registerShapes(r, deps)
	registerCanvas(r, deps)
}
