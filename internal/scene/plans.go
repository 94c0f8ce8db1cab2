package scene

import (
	"log"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// PlanPatch renames a plan, replaces its view settings or makes it default.
type PlanPatch struct {
	Name         *string
	IsDefault    *bool
	ViewSettings map[string]any
}

// AddPlan registers a plan. Marking it default clears the flag on the other
// plans of the same project. The first plan becomes current.
func (st *Store) AddPlan(p Plan) (Plan, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if strings.TrimSpace(p.Name) == "" {
		return Plan{}, &ValidationError{Field: "name", Reason: "plan name is required"}
	}
	st.mu.Lock()
	if _, ok := st.plans[p.ID]; ok {
		st.mu.Unlock()
		return Plan{}, &ValidationError{Field: "id", Reason: "plan " + p.ID + " already exists"}
	}
	now := st.now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = now
	}
	if p.IsDefault {
		st.clearDefaultLocked(p.ProjectID)
	}
	st.plans[p.ID] = p.clone()
	st.planOrder = append(st.planOrder, p.ID)
	becameCurrent := false
	if st.currentPlanID == "" {
		st.currentPlanID = p.ID
		becameCurrent = true
	}
	st.mu.Unlock()

	st.emit(Event{Kind: EventPlansChanged, PlanID: p.ID})
	if becameCurrent {
		st.emit(Event{Kind: EventCurrentPlanChanged, PlanID: p.ID})
	}
	return p.clone(), nil
}

// UpdatePlan applies patch to the plan.
func (st *Store) UpdatePlan(id string, patch PlanPatch) (Plan, error) {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return Plan{}, &ValidationError{Field: "name", Reason: "plan name is required"}
	}
	st.mu.Lock()
	p, ok := st.plans[id]
	if !ok {
		st.mu.Unlock()
		err := notFound("plan", id)
		log.Printf("[SCENE] plan update ignored: %v", err)
		return Plan{}, err
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.ViewSettings != nil {
		p.ViewSettings = patch.ViewSettings
	}
	if patch.IsDefault != nil {
		if *patch.IsDefault {
			st.clearDefaultLocked(p.ProjectID)
		}
		p.IsDefault = *patch.IsDefault
	}
	p.UpdatedAt = st.now()
	st.plans[id] = p.clone()
	st.mu.Unlock()

	st.emit(Event{Kind: EventPlansChanged, PlanID: id})
	return p.clone(), nil
}

// DeletePlan drops the plan and every shape on it. Refusing to delete a
// project's last plan is the caller's policy, not the store's. When the
// current plan is deleted the first remaining plan becomes current.
func (st *Store) DeletePlan(id string) error {
	st.mu.Lock()
	if _, ok := st.plans[id]; !ok {
		st.mu.Unlock()
		err := notFound("plan", id)
		log.Printf("[SCENE] plan delete ignored: %v", err)
		return err
	}
	delete(st.plans, id)
	st.planOrder = slices.DeleteFunc(st.planOrder, func(p string) bool { return p == id })
	for _, sid := range slices.Clone(st.order) {
		if st.shapes[sid].PlanID == id {
			st.removeLocked(sid)
		}
	}
	switched := false
	if st.currentPlanID == id {
		st.currentPlanID = ""
		if len(st.planOrder) > 0 {
			st.currentPlanID = st.planOrder[0]
		}
		st.selection = nil
		switched = true
	}
	current := st.currentPlanID
	before := st.hist.state()
	st.hist.undo, st.hist.redo = nil, nil
	after := st.hist.state()
	st.mu.Unlock()

	st.emit(Event{Kind: EventPlansChanged, PlanID: id})
	if switched {
		st.emit(Event{Kind: EventCurrentPlanChanged, PlanID: current})
	}
	st.notifyHistory(before, after)
	return nil
}

// SetCurrentPlanID switches the plan being edited and clears the selection.
func (st *Store) SetCurrentPlanID(id string) error {
	st.mu.Lock()
	if _, ok := st.plans[id]; !ok {
		st.mu.Unlock()
		return notFound("plan", id)
	}
	if st.currentPlanID == id {
		st.mu.Unlock()
		return nil
	}
	st.currentPlanID = id
	st.selection = nil
	st.mu.Unlock()

	st.emit(Event{Kind: EventCurrentPlanChanged, PlanID: id})
	st.emit(Event{Kind: EventSelectionChanged, PlanID: id})
	return nil
}

// ReplacePlans installs the plan list of a freshly loaded project. The
// current plan is kept when it still exists, otherwise the default (or
// first) plan becomes current. Shapes of plans that disappeared are dropped.
func (st *Store) ReplacePlans(plans []Plan) {
	st.mu.Lock()
	prev := st.currentPlanID
	st.plans = make(map[string]Plan, len(plans))
	st.planOrder = st.planOrder[:0]
	defaultID := ""
	for _, p := range plans {
		if p.ID == "" {
			continue
		}
		if _, dup := st.plans[p.ID]; dup {
			continue
		}
		st.plans[p.ID] = p.clone()
		st.planOrder = append(st.planOrder, p.ID)
		if p.IsDefault && defaultID == "" {
			defaultID = p.ID
		}
	}
	for _, sid := range slices.Clone(st.order) {
		if _, ok := st.plans[st.shapes[sid].PlanID]; !ok {
			delete(st.shapes, sid)
			st.order = slices.DeleteFunc(st.order, func(o string) bool { return o == sid })
		}
	}
	if _, ok := st.plans[prev]; !ok {
		st.currentPlanID = defaultID
		if st.currentPlanID == "" && len(st.planOrder) > 0 {
			st.currentPlanID = st.planOrder[0]
		}
		st.selection = nil
	}
	current := st.currentPlanID
	st.pruneSelectionLocked()
	before := st.hist.state()
	st.hist.undo, st.hist.redo = nil, nil
	after := st.hist.state()
	st.mu.Unlock()

	st.emit(Event{Kind: EventPlansChanged})
	if current != prev {
		st.emit(Event{Kind: EventCurrentPlanChanged, PlanID: current})
	}
	st.notifyHistory(before, after)
}

// Plans returns every plan in insertion order.
func (st *Store) Plans() []Plan {
	st.mu.RLock()
	defer st.mu.RUnlock()
	out := make([]Plan, 0, len(st.planOrder))
	for _, id := range st.planOrder {
		out = append(out, st.plans[id].clone())
	}
	return out
}

// Plan returns the plan with the given id.
func (st *Store) Plan(id string) (Plan, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	p, ok := st.plans[id]
	if !ok {
		return Plan{}, false
	}
	return p.clone(), true
}

// CurrentPlanID returns the id of the plan being edited, or "".
func (st *Store) CurrentPlanID() string {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.currentPlanID
}

func (st *Store) clearDefaultLocked(projectID string) {
	for id, p := range st.plans {
		if p.ProjectID == projectID && p.IsDefault {
			p.IsDefault = false
			st.plans[id] = p
		}
	}
}
