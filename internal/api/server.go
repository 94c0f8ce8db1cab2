package api

import (
	"errors"
	"log"

	"floorplan-studio-backend/internal/config"
	"floorplan-studio-backend/internal/persistence"
	"floorplan-studio-backend/internal/scene"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func NewServer(cfg *config.Config) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: errorHandler,
		AppName:      "Floorplan Studio Backend",
		BodyLimit:    cfg.BodyLimitMB * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[HTTP] ${time} ${status} ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	// only upgrade requests may reach /ws
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	return app
}

// errorHandler turns errors that escape a handler into {"error": ...}
// bodies, using the domain error type for the status.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		code = fe.Code
	case scene.IsValidation(err):
		code = fiber.StatusBadRequest
	case scene.IsNotFound(err):
		code = fiber.StatusNotFound
	case persistence.IsNetwork(err):
		code = fiber.StatusServiceUnavailable
	}

	log.Printf("[HTTP] %s %s: %v", c.Method(), c.Path(), err)

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}

func StartServer(app *fiber.App, cfg *config.Config) error {
	log.Printf("🚀 Server starting on port %s\n", cfg.Port)
	return app.Listen(":" + cfg.Port)
}
