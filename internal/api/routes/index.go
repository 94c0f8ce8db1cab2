package routes

import (
	"floorplan-studio-backend/internal/api/routes/v1"
	"floorplan-studio-backend/internal/libraries"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func Register(app *fiber.App, deps v1.Deps, hub *libraries.Hub, socket libraries.CanvasMessageProcessor) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Use the Hub-based WebSocket handler
	app.Get("/ws", libraries.WebSocketHandler(hub, socket))

	// API v1 group
	api := app.Group("/api")
	v1Group := api.Group("/v1")

	// Register v1 routes
	v1.RegisterRoutes(v1Group, deps)
}
