package v1

import (
	"floorplan-studio-backend/internal/handlers"

	"github.com/gofiber/fiber/v2"
)

func registerShapes(r fiber.Router, deps Deps) {
	shapeHandler := handlers.NewShapeHandler(deps.Registry, deps.Thumbnails)

	r.Get("/plans/:planId/shapes", shapeHandler.GetSavedShapes)

	plan := r.Group("/projects/:projectId/plans/:planId")
	plan.Get("/shapes", shapeHandler.GetShapes)
	plan.Put("/shapes", shapeHandler.SaveShapes)
	plan.Post("/shapes", shapeHandler.AddShape)
	plan.Patch("/shapes/:shapeId", shapeHandler.UpdateShape)
	plan.Delete("/shapes/:shapeId", shapeHandler.DeleteShape)

	r.Get("/projects/:projectId/walls/:wallId/elevation", shapeHandler.GetElevation)
	r.Put("/projects/:projectId/shapes/:shapeId/mount", shapeHandler.MountShape)
	r.Delete("/projects/:projectId/shapes/:shapeId/mount", shapeHandler.UnmountShape)
}
