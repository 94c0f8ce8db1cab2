package scene

import (
	"slices"
)

// SelectedShapeIDs returns the selection in the order shapes were picked.
func (st *Store) SelectedShapeIDs() []string {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return slices.Clone(st.selection)
}

// IsSelected reports whether id is part of the selection.
func (st *Store) IsSelected(id string) bool {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return slices.Contains(st.selection, id)
}

// SetSelection replaces the selection. Ids that are unknown or belong to a
// different plan than the current one are dropped.
func (st *Store) SetSelection(ids []string) []string {
	st.mu.Lock()
	sel := make([]string, 0, len(ids))
	for _, id := range ids {
		s, ok := st.shapes[id]
		if !ok || s.PlanID != st.currentPlanID || slices.Contains(sel, id) {
			continue
		}
		sel = append(sel, id)
	}
	st.selection = sel
	plan := st.currentPlanID
	st.mu.Unlock()

	st.emit(Event{Kind: EventSelectionChanged, PlanID: plan, ShapeIDs: slices.Clone(sel)})
	return slices.Clone(sel)
}

// ClearSelection empties the selection.
func (st *Store) ClearSelection() {
	st.mu.Lock()
	st.selection = nil
	plan := st.currentPlanID
	st.mu.Unlock()
	st.emit(Event{Kind: EventSelectionChanged, PlanID: plan})
}

// ToggleSelection adds id to the selection or removes it when present.
func (st *Store) ToggleSelection(id string) error {
	st.mu.Lock()
	if i := slices.Index(st.selection, id); i >= 0 {
		st.selection = slices.Delete(st.selection, i, i+1)
	} else {
		s, ok := st.shapes[id]
		if !ok || s.PlanID != st.currentPlanID {
			st.mu.Unlock()
			return notFound("shape", id)
		}
		st.selection = append(st.selection, id)
	}
	sel := slices.Clone(st.selection)
	plan := st.currentPlanID
	st.mu.Unlock()

	st.emit(Event{Kind: EventSelectionChanged, PlanID: plan, ShapeIDs: sel})
	return nil
}

func (st *Store) pruneSelectionLocked() {
	st.selection = slices.DeleteFunc(st.selection, func(id string) bool {
		s, ok := st.shapes[id]
		return !ok || s.PlanID != st.currentPlanID
	})
}
