package handlers

import (
	"floorplan-studio-backend/internal/canvas"

	"github.com/gofiber/fiber/v2"
)

type PlanHandler struct {
	registry *canvas.Registry
}

func NewPlanHandler(registry *canvas.Registry) *PlanHandler {
	return &PlanHandler{
		registry: registry,
	}
}

func (h *PlanHandler) session(c *fiber.Ctx) (*canvas.Session, error) {
	return h.registry.Session(c.UserContext(), c.Params("projectId"))
}

// function to list the plans of a project, creating the first one if needed
func (h *PlanHandler) GetPlans(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return fail(c, err, "Failed to load plans")
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"plans":           s.Store.Plans(),
		"current_plan_id": s.Store.CurrentPlanID(),
	})
}

func (h *PlanHandler) CreatePlan(c *fiber.Ctx) error {
	var dto struct {
		Name      string `json:"name"`
		IsDefault bool   `json:"isDefault"`
	}
	if err := c.BodyParser(&dto); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	s, err := h.session(c)
	if err != nil {
		return fail(c, err, "Failed to load plans")
	}
	plan, err := s.CreatePlan(c.UserContext(), dto.Name, dto.IsDefault)
	if err != nil {
		return fail(c, err, "Failed to create plan")
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"plan":    plan,
		"message": "Plan created successfully",
	})
}

// UpdatePlan renames a plan and/or switches the session to it.
func (h *PlanHandler) UpdatePlan(c *fiber.Ctx) error {
	var dto struct {
		Name    *string `json:"name"`
		Current bool    `json:"current"`
	}
	if err := c.BodyParser(&dto); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	s, err := h.session(c)
	if err != nil {
		return fail(c, err, "Failed to load plans")
	}
	planID := c.Params("planId")
	if dto.Name != nil {
		if _, err := s.RenamePlan(c.UserContext(), planID, *dto.Name); err != nil {
			return fail(c, err, "Failed to rename plan")
		}
	}
	resp := fiber.Map{}
	if dto.Current {
		res, err := s.SwitchPlan(c.UserContext(), planID)
		if err != nil {
			return fail(c, err, "Failed to switch plan")
		}
		resp["source"] = res.Source
		resp["degraded"] = res.Degraded
	}
	plan, ok := s.Store.Plan(planID)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Plan not found",
		})
	}
	resp["plan"] = plan
	return c.Status(fiber.StatusOK).JSON(resp)
}

func (h *PlanHandler) SetDefaultPlan(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return fail(c, err, "Failed to load plans")
	}
	if err := s.SetDefaultPlan(c.UserContext(), c.Params("planId")); err != nil {
		return fail(c, err, "Failed to set default plan")
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Default plan updated",
	})
}

func (h *PlanHandler) DeletePlan(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return fail(c, err, "Failed to load plans")
	}
	if err := s.DeletePlan(c.UserContext(), c.Params("planId")); err != nil {
		return fail(c, err, "Failed to delete plan")
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message":         "Plan deleted successfully",
		"current_plan_id": s.Store.CurrentPlanID(),
	})
}

func (h *PlanHandler) MergePlans(c *fiber.Ctx) error {
	var dto struct {
		SourceIDs []string `json:"sourceIds"`
		Name      string   `json:"name"`
	}
	if err := c.BodyParser(&dto); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	s, err := h.session(c)
	if err != nil {
		return fail(c, err, "Failed to load plans")
	}
	res, err := s.MergePlans(c.UserContext(), dto.SourceIDs, dto.Name)
	if err != nil {
		return fail(c, err, "Failed to merge plans")
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"plan":        res.Plan,
		"shape_count": res.ShapeCount,
	})
}
