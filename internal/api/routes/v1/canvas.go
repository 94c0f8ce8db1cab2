package v1

import (
	"floorplan-studio-backend/internal/handlers"

	"github.com/gofiber/fiber/v2"
)

func registerCanvas(r fiber.Router, deps Deps) {
	canvasHandler := handlers.NewCanvasHandler(deps.Registry)

	r.Get("/projects/:projectId/canvas/history", canvasHandler.History)
	r.Post("/projects/:projectId/canvas/save", canvasHandler.Save)
	r.Post("/projects/:projectId/canvas/undo", canvasHandler.Undo)
	r.Post("/projects/:projectId/canvas/redo", canvasHandler.Redo)
}
