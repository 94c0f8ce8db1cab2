package scene

// EventKind names what changed in the store.
type EventKind string

const (
	EventShapeAdded         EventKind = "shape_added"
	EventShapeUpdated       EventKind = "shape_updated"
	EventShapeDeleted       EventKind = "shape_deleted"
	EventShapesMoved        EventKind = "shapes_moved"
	EventOrderChanged       EventKind = "order_changed"
	EventShapesReplaced     EventKind = "shapes_replaced"
	EventHistoryRestored    EventKind = "history_restored"
	EventSelectionChanged   EventKind = "selection_changed"
	EventPlansChanged       EventKind = "plans_changed"
	EventCurrentPlanChanged EventKind = "current_plan_changed"
	EventViewChanged        EventKind = "view_changed"
	EventViewModeChanged    EventKind = "view_mode_changed"
	EventSettingsChanged    EventKind = "settings_changed"
)

// Event is delivered to subscribers after a mutation has been applied.
type Event struct {
	Kind     EventKind
	PlanID   string
	ShapeIDs []string
}

// TouchesShapes reports whether the event changed shape data that a save
// should pick up.
func (e Event) TouchesShapes() bool {
	switch e.Kind {
	case EventShapeAdded, EventShapeUpdated, EventShapeDeleted, EventShapesMoved, EventOrderChanged, EventHistoryRestored:
		return true
	}
	return false
}

// HistoryState tells toolbars whether undo and redo are available.
type HistoryState struct {
	CanUndo bool `json:"canUndo"`
	CanRedo bool `json:"canRedo"`
}

// Subscribe registers fn for every store event. Listeners run synchronously
// on the mutating goroutine, outside the store lock, so they may read the
// store. The returned func removes the listener.
func (st *Store) Subscribe(fn func(Event)) func() {
	st.listenersMu.Lock()
	defer st.listenersMu.Unlock()
	id := st.nextListener
	st.nextListener++
	st.listeners[id] = fn
	return func() {
		st.listenersMu.Lock()
		delete(st.listeners, id)
		st.listenersMu.Unlock()
	}
}

// OnHistoryChange registers fn to be told whenever undo/redo availability
// flips.
func (st *Store) OnHistoryChange(fn func(HistoryState)) func() {
	st.listenersMu.Lock()
	defer st.listenersMu.Unlock()
	id := st.nextListener
	st.nextListener++
	st.historyListeners[id] = fn
	return func() {
		st.listenersMu.Lock()
		delete(st.historyListeners, id)
		st.listenersMu.Unlock()
	}
}

func (st *Store) emit(ev Event) {
	st.listenersMu.Lock()
	fns := make([]func(Event), 0, len(st.listeners))
	for _, fn := range st.listeners {
		fns = append(fns, fn)
	}
	st.listenersMu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (st *Store) emitHistory(hs HistoryState) {
	st.listenersMu.Lock()
	fns := make([]func(HistoryState), 0, len(st.historyListeners))
	for _, fn := range st.historyListeners {
		fns = append(fns, fn)
	}
	st.listenersMu.Unlock()
	for _, fn := range fns {
		fn(hs)
	}
}
