package v1

import (
	"floorplan-studio-backend/internal/handlers"

	"github.com/gofiber/fiber/v2"
)

func registerPlans(r fiber.Router, deps Deps) {
	planHandler := handlers.NewPlanHandler(deps.Registry)

	r.Get("/projects/:projectId/plans", planHandler.GetPlans)
	r.Post("/projects/:projectId/plans", planHandler.CreatePlan)
	// merge before :planId so it is not captured as an id
	r.Post("/projects/:projectId/plans/merge", planHandler.MergePlans)
	r.Patch("/projects/:projectId/plans/:planId", planHandler.UpdatePlan)
	r.Delete("/projects/:projectId/plans/:planId", planHandler.DeletePlan)
	r.Post("/projects/:projectId/plans/:planId/default", planHandler.SetDefaultPlan)
}
