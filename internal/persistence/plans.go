package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"

	"floorplan-studio-backend/internal/cache"
	"floorplan-studio-backend/internal/models"
	"floorplan-studio-backend/internal/repo"
	"floorplan-studio-backend/internal/scene"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Plan CRUD and merge go to the remote store only; there is no offline
// queue for them.

func (s *Service) checkOnline(op string) error {
	if s.Offline() {
		return &NetworkError{Op: op, Err: ErrOffline}
	}
	return nil
}

func validName(name string) error {
	if strings.TrimSpace(name) == "" {
		return &scene.ValidationError{Field: "name", Reason: "plan name is required"}
	}
	return nil
}

func planLookupErr(op, id string, err error) error {
	if errors.Is(err, repo.ErrNotFound) {
		return &scene.NotFoundError{Entity: "plan", ID: id}
	}
	return &NetworkError{Op: op, Err: err}
}

// CreatePlan creates a plan in the project.
func (s *Service) CreatePlan(ctx context.Context, projectID, name string, isDefault bool) (scene.Plan, error) {
	if err := validName(name); err != nil {
		return scene.Plan{}, err
	}
	if err := s.checkOnline("create plan"); err != nil {
		return scene.Plan{}, err
	}
	rec := &models.Plan{ProjectID: projectID, Name: strings.TrimSpace(name), IsDefault: isDefault}
	if _, err := s.plans.CreatePlan(ctx, rec); err != nil {
		return scene.Plan{}, &NetworkError{Op: "create plan", Err: err}
	}
	s.refreshPlans(ctx, projectID)
	log.Printf("[PERSIST] created plan %s (%q) in %s", rec.ID, rec.Name, projectID)
	return RecordToPlan(*rec), nil
}

// RenamePlan changes a plan's name.
func (s *Service) RenamePlan(ctx context.Context, planID, name string) (scene.Plan, error) {
	if err := validName(name); err != nil {
		return scene.Plan{}, err
	}
	if err := s.checkOnline("rename plan"); err != nil {
		return scene.Plan{}, err
	}
	if err := s.plans.RenamePlan(ctx, planID, strings.TrimSpace(name)); err != nil {
		return scene.Plan{}, planLookupErr("rename plan", planID, err)
	}
	rec, err := s.plans.GetPlan(ctx, planID)
	if err != nil {
		return scene.Plan{}, planLookupErr("rename plan", planID, err)
	}
	s.refreshPlans(ctx, rec.ProjectID)
	return RecordToPlan(rec), nil
}

// SetDefaultPlan makes planID the project's only default plan.
func (s *Service) SetDefaultPlan(ctx context.Context, projectID, planID string) error {
	if err := s.checkOnline("set default plan"); err != nil {
		return err
	}
	if err := s.plans.SetDefaultPlan(ctx, projectID, planID); err != nil {
		return planLookupErr("set default plan", planID, err)
	}
	s.refreshPlans(ctx, projectID)
	return nil
}

// DeletePlan removes a plan and its shapes. The last plan of a project is
// kept. When an archiver is configured the plan's shapes are archived first.
func (s *Service) DeletePlan(ctx context.Context, projectID, planID string) error {
	if err := s.checkOnline("delete plan"); err != nil {
		return err
	}
	rows, err := s.plans.GetPlansByProject(ctx, projectID)
	if err != nil {
		return &NetworkError{Op: "delete plan", Err: err}
	}
	found := false
	for _, r := range rows {
		if r.ID == planID {
			found = true
		}
	}
	if !found {
		return &scene.NotFoundError{Entity: "plan", ID: planID}
	}
	if len(rows) == 1 {
		return ErrLastPlan
	}

	unlock := s.lockPlan(planID)
	defer unlock()

	if s.archiver != nil {
		s.archive(ctx, projectID, planID)
	}
	if err := s.plans.DeletePlan(ctx, planID); err != nil {
		return planLookupErr("delete plan", planID, err)
	}
	if err := s.cache.Delete(ctx, cache.ShapesKey(planID)); err != nil {
		log.Printf("[PERSIST] dropping cached shapes of %s failed: %v", planID, err)
	}
	s.clearPending(planID)
	s.refreshPlans(ctx, projectID)
	log.Printf("[PERSIST] deleted plan %s of %s", planID, projectID)
	return nil
}

func (s *Service) archive(ctx context.Context, projectID, planID string) {
	shapes, err := s.shapes.GetPlanShapes(ctx, planID)
	if err != nil {
		log.Printf("[PERSIST] archive %s: %v", planID, err)
		return
	}
	payload, err := json.Marshal(shapes)
	if err != nil {
		log.Printf("[PERSIST] archive %s: %v", planID, err)
		return
	}
	obj, err := s.archiver.ArchivePlan(ctx, projectID, planID, payload)
	if err != nil {
		log.Printf("[PERSIST] archive %s: %v", planID, err)
		return
	}
	log.Printf("[PERSIST] archived plan %s to %s", planID, obj)
}

// MergeResult is the plan MergePlans created and how many shapes it holds.
type MergeResult struct {
	Plan       scene.Plan
	ShapeCount int
}

// MergePlans creates a new plan holding a copy of every shape of the source
// plans, in source order. Copies get fresh ids; wall mounts are re-pointed
// at the copied walls. Nothing is deduplicated.
func (s *Service) MergePlans(ctx context.Context, projectID string, sourceIDs []string, name string) (MergeResult, error) {
	if len(sourceIDs) == 0 {
		return MergeResult{}, &scene.ValidationError{Field: "sourcePlanIds", Reason: "at least one plan is required"}
	}
	if err := validName(name); err != nil {
		return MergeResult{}, err
	}
	if err := s.checkOnline("merge plans"); err != nil {
		return MergeResult{}, err
	}

	sources := make([][]scene.Shape, len(sourceIDs))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range sourceIDs {
		g.Go(func() error {
			rec, err := s.plans.GetPlan(gctx, id)
			if err != nil {
				return planLookupErr("merge plans", id, err)
			}
			if rec.ProjectID != projectID {
				return &scene.ValidationError{Field: "sourcePlanIds", Reason: "plan " + id + " belongs to another project"}
			}
			rows, err := s.shapes.GetPlanShapes(gctx, id)
			if err != nil {
				return &NetworkError{Op: "merge plans", Err: err}
			}
			sources[i] = recordsToShapes(rows)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return MergeResult{}, err
	}

	plan, err := s.CreatePlan(ctx, projectID, name, false)
	if err != nil {
		return MergeResult{}, err
	}

	var merged []scene.Shape
	for _, shapes := range sources {
		merged = append(merged, copyShapes(shapes, plan.ID)...)
	}
	rows, err := shapesToRecords(projectID, merged)
	if err == nil {
		err = s.shapes.UpsertShapes(ctx, rows)
		if err != nil {
			err = &NetworkError{Op: "merge plans", Err: err}
		}
	}
	if err != nil {
		s.dropPlan(ctx, projectID, plan.ID)
		return MergeResult{}, err
	}
	if err := s.cacheRows(ctx, plan.ID, rows); err != nil {
		log.Printf("[PERSIST] caching merged plan %s failed: %v", plan.ID, err)
	}
	log.Printf("[PERSIST] merged %d plans into %s (%d shapes)", len(sourceIDs), plan.ID, len(rows))
	return MergeResult{Plan: plan, ShapeCount: len(rows)}, nil
}

// dropPlan removes a plan a failed merge left behind.
func (s *Service) dropPlan(ctx context.Context, projectID, planID string) {
	ctx = context.WithoutCancel(ctx)
	if err := s.plans.DeletePlan(ctx, planID); err != nil {
		log.Printf("[PERSIST] rolling back plan %s failed: %v", planID, err)
	}
	s.refreshPlans(ctx, projectID)
}

// copyShapes re-ids one source plan's shapes for planID.
func copyShapes(shapes []scene.Shape, planID string) []scene.Shape {
	ids := make(map[string]string, len(shapes))
	for _, sh := range shapes {
		ids[sh.ID] = uuid.NewString()
	}
	out := make([]scene.Shape, 0, len(shapes))
	for _, sh := range shapes {
		c := sh.Clone()
		c.ID = ids[sh.ID]
		c.PlanID = planID
		if c.WallRelative != nil {
			if nid, ok := ids[c.WallRelative.WallID]; ok {
				c.WallRelative.WallID = nid
			}
		}
		if nid, ok := ids[c.ParentWallID]; ok {
			c.ParentWallID = nid
		}
		out = append(out, c)
	}
	return out
}
