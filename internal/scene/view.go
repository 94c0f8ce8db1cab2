package scene

import "math"

const (
	MinZoom = 0.1
	MaxZoom = 10
)

// View returns the transient view state.
func (st *Store) View() ViewState {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.view
}

// SetViewMode switches between floor, elevation and 3d projections.
func (st *Store) SetViewMode(mode ViewMode) error {
	switch mode {
	case ViewFloor, ViewElevation, View3D:
	default:
		return &ValidationError{Field: "viewMode", Reason: "unknown mode " + string(mode)}
	}
	st.mu.Lock()
	if st.view.ViewMode == mode {
		st.mu.Unlock()
		return nil
	}
	st.view.ViewMode = mode
	plan := st.currentPlanID
	st.mu.Unlock()

	st.emit(Event{Kind: EventViewModeChanged, PlanID: plan})
	return nil
}

// SetZoom clamps zoom to [MinZoom, MaxZoom].
func (st *Store) SetZoom(zoom float64) error {
	if math.IsNaN(zoom) || math.IsInf(zoom, 0) || zoom <= 0 {
		return &ValidationError{Field: "zoom", Reason: "must be positive"}
	}
	st.mu.Lock()
	st.view.Zoom = math.Min(math.Max(zoom, MinZoom), MaxZoom)
	st.mu.Unlock()
	st.emit(Event{Kind: EventViewChanged})
	return nil
}

// SetPan moves the viewport.
func (st *Store) SetPan(x, y float64) {
	st.mu.Lock()
	st.view.PanX, st.view.PanY = x, y
	st.mu.Unlock()
	st.emit(Event{Kind: EventViewChanged})
}
