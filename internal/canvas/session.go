// Package canvas composes the scene store, the drag engine and the
// persistence service into one editing session per project, and exposes the
// save/undo/redo command surface the host drives.
package canvas

import (
	"context"
	"log"
	"sync"
	"time"

	"floorplan-studio-backend/internal/drag"
	"floorplan-studio-backend/internal/persistence"
	"floorplan-studio-backend/internal/scene"
)

// Commands is what surrounding chrome (toolbars, keyboard shortcuts, the
// websocket channel) may invoke on a canvas.
type Commands interface {
	Save(ctx context.Context) (persistence.SaveResult, error)
	Undo() bool
	Redo() bool
	HistoryState() scene.HistoryState
	OnHistoryChange(fn func(scene.HistoryState)) func()
}

var _ Commands = (*Session)(nil)

// Session is one project's live canvas.
type Session struct {
	ProjectID string
	Store     *scene.Store
	Drag      *drag.Engine

	persist  *persistence.Service
	autosave *persistence.Autosaver

	mu          sync.Mutex
	lastSave    persistence.SaveResult
	unsubscribe func()
}

func NewSession(projectID string, svc *persistence.Service, autosaveDelay time.Duration) *Session {
	st := scene.NewStore()
	s := &Session{
		ProjectID: projectID,
		Store:     st,
		Drag:      drag.New(st),
		persist:   svc,
	}
	s.autosave = persistence.NewAutosaver(autosaveDelay, func(ctx context.Context, planID string) error {
		_, err := s.SavePlan(ctx, planID)
		return err
	}, s.Drag.Active)
	s.unsubscribe = st.Subscribe(s.onStoreEvent)
	return s
}

func (s *Session) onStoreEvent(ev scene.Event) {
	if !ev.TouchesShapes() {
		return
	}
	plan := ev.PlanID
	if plan == "" {
		plan = s.Store.CurrentPlanID()
	}
	if plan != "" {
		s.autosave.Schedule(plan)
	}
}

// Open loads the project's plans (creating the first one if needed) and the
// current plan's shapes.
func (s *Session) Open(ctx context.Context) (persistence.PlansResult, error) {
	plans, err := s.persist.EnsurePlans(ctx, s.ProjectID)
	if err != nil {
		return plans, err
	}
	s.Store.ReplacePlans(plans.Plans)
	if cur := s.Store.CurrentPlanID(); cur != "" {
		if _, err := s.loadShapes(ctx, cur); err != nil {
			return plans, err
		}
	}
	return plans, nil
}

func (s *Session) loadShapes(ctx context.Context, planID string) (persistence.ShapesResult, error) {
	res, err := s.persist.LoadShapesForPlan(ctx, planID)
	if err != nil {
		return res, err
	}
	n := s.Store.ReplacePlanShapes(planID, res.Shapes)
	if res.Degraded {
		log.Printf("[CANVAS] plan %s loaded from cache (%d shapes)", planID, n)
	}
	return res, nil
}

// SwitchPlan saves any pending edits of the current plan, then makes planID
// current and loads its shapes. A running drag is cancelled by the switch.
func (s *Session) SwitchPlan(ctx context.Context, planID string) (persistence.ShapesResult, error) {
	if _, ok := s.Store.Plan(planID); !ok {
		return persistence.ShapesResult{}, &scene.NotFoundError{Entity: "plan", ID: planID}
	}
	if cur := s.Store.CurrentPlanID(); cur != "" && cur != planID && s.autosave.Pending(cur) {
		if err := s.autosave.Flush(ctx, cur); err != nil {
			log.Printf("[CANVAS] flushing %s before switch: %v", cur, err)
		}
	}
	if err := s.Store.SetCurrentPlanID(planID); err != nil {
		return persistence.ShapesResult{}, err
	}
	return s.loadShapes(ctx, planID)
}

// Save writes the current plan.
func (s *Session) Save(ctx context.Context) (persistence.SaveResult, error) {
	cur := s.Store.CurrentPlanID()
	if cur == "" {
		return persistence.SaveResult{}, &scene.ValidationError{Field: "planId", Reason: "no plan selected"}
	}
	return s.SavePlan(ctx, cur)
}

// SavePlan writes one plan's shapes through the persistence service.
func (s *Session) SavePlan(ctx context.Context, planID string) (persistence.SaveResult, error) {
	res, err := s.persist.SaveShapesForPlan(ctx, s.ProjectID, planID, s.Store.ShapesForPlan(planID))
	if err != nil {
		return res, err
	}
	s.mu.Lock()
	s.lastSave = res
	s.mu.Unlock()
	return res, nil
}

// LastSave returns the outcome of the most recent successful save.
func (s *Session) LastSave() persistence.SaveResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSave
}

// ReplaceShapes installs a complete shape set for a plan, as sent by a
// client, and saves it. It returns how many shapes were accepted.
func (s *Session) ReplaceShapes(ctx context.Context, planID string, shapes []scene.Shape) (int, persistence.SaveResult, error) {
	if _, ok := s.Store.Plan(planID); !ok {
		return 0, persistence.SaveResult{}, &scene.NotFoundError{Entity: "plan", ID: planID}
	}
	n := s.Store.ReplacePlanShapes(planID, shapes)
	res, err := s.SavePlan(ctx, planID)
	return n, res, err
}

func (s *Session) Undo() bool { return s.Store.Undo() }

func (s *Session) Redo() bool { return s.Store.Redo() }

func (s *Session) HistoryState() scene.HistoryState { return s.Store.HistoryState() }

func (s *Session) OnHistoryChange(fn func(scene.HistoryState)) func() {
	return s.Store.OnHistoryChange(fn)
}

// CreatePlan creates a plan remotely and adds it to the session.
func (s *Session) CreatePlan(ctx context.Context, name string, isDefault bool) (scene.Plan, error) {
	p, err := s.persist.CreatePlan(ctx, s.ProjectID, name, isDefault)
	if err != nil {
		return p, err
	}
	return s.Store.AddPlan(p)
}

// RenamePlan renames a plan remotely and in the session.
func (s *Session) RenamePlan(ctx context.Context, planID, name string) (scene.Plan, error) {
	p, err := s.persist.RenamePlan(ctx, planID, name)
	if err != nil {
		return p, err
	}
	if _, ok := s.Store.Plan(planID); ok {
		return s.Store.UpdatePlan(planID, scene.PlanPatch{Name: &p.Name})
	}
	return p, nil
}

// SetDefaultPlan marks planID as the project's default plan.
func (s *Session) SetDefaultPlan(ctx context.Context, planID string) error {
	if err := s.persist.SetDefaultPlan(ctx, s.ProjectID, planID); err != nil {
		return err
	}
	yes := true
	_, err := s.Store.UpdatePlan(planID, scene.PlanPatch{IsDefault: &yes})
	return err
}

// DeletePlan deletes a plan remotely and drops it from the session.
func (s *Session) DeletePlan(ctx context.Context, planID string) error {
	if err := s.persist.DeletePlan(ctx, s.ProjectID, planID); err != nil {
		return err
	}
	if _, ok := s.Store.Plan(planID); !ok {
		return nil
	}
	wasCurrent := s.Store.CurrentPlanID() == planID
	if err := s.Store.DeletePlan(planID); err != nil {
		return err
	}
	if cur := s.Store.CurrentPlanID(); wasCurrent && cur != "" {
		_, err := s.loadShapes(ctx, cur)
		return err
	}
	return nil
}

// MergePlans merges source plans into a new plan and adds it to the session.
func (s *Session) MergePlans(ctx context.Context, sourceIDs []string, name string) (persistence.MergeResult, error) {
	res, err := s.persist.MergePlans(ctx, s.ProjectID, sourceIDs, name)
	if err != nil {
		return res, err
	}
	if _, err := s.Store.AddPlan(res.Plan); err != nil {
		return res, err
	}
	return res, nil
}

// Close stops autosave and detaches the session's listeners. Pending
// autosaves are flushed first.
func (s *Session) Close(ctx context.Context) {
	for _, p := range s.Store.Plans() {
		if s.autosave.Pending(p.ID) {
			if err := s.autosave.Flush(ctx, p.ID); err != nil {
				log.Printf("[CANVAS] final save of %s failed: %v", p.ID, err)
			}
		}
	}
	s.autosave.Stop()
	s.Drag.Close()
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}
