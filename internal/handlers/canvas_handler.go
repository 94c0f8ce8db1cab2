package handlers

import (
	"floorplan-studio-backend/internal/canvas"

	"github.com/gofiber/fiber/v2"
)

// CanvasHandler exposes the save/undo/redo commands over HTTP.
type CanvasHandler struct {
	registry *canvas.Registry
}

func NewCanvasHandler(registry *canvas.Registry) *CanvasHandler {
	return &CanvasHandler{registry: registry}
}

func (h *CanvasHandler) commands(c *fiber.Ctx) (canvas.Commands, error) {
	s, err := h.registry.Session(c.UserContext(), c.Params("projectId"))
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (h *CanvasHandler) Save(c *fiber.Ctx) error {
	cmd, err := h.commands(c)
	if err != nil {
		return fail(c, err, "Failed to load project")
	}
	res, err := cmd.Save(c.UserContext())
	if err != nil {
		return fail(c, err, "Failed to save plan")
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"saved":        res.Saved,
		"deleted":      res.Deleted,
		"pending_sync": res.PendingSync,
	})
}

func (h *CanvasHandler) Undo(c *fiber.Ctx) error {
	cmd, err := h.commands(c)
	if err != nil {
		return fail(c, err, "Failed to load project")
	}
	done := cmd.Undo()
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"applied": done,
		"history": cmd.HistoryState(),
	})
}

func (h *CanvasHandler) Redo(c *fiber.Ctx) error {
	cmd, err := h.commands(c)
	if err != nil {
		return fail(c, err, "Failed to load project")
	}
	done := cmd.Redo()
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"applied": done,
		"history": cmd.HistoryState(),
	})
}

func (h *CanvasHandler) History(c *fiber.Ctx) error {
	cmd, err := h.commands(c)
	if err != nil {
		return fail(c, err, "Failed to load project")
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"history": cmd.HistoryState(),
	})
}
