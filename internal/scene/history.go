package scene

import "slices"

// DefaultHistoryDepth bounds how many undo steps are kept.
const DefaultHistoryDepth = 100

type sceneSnapshot struct {
	shapes map[string]Shape
	order  []string
}

type history struct {
	depth int
	undo  []sceneSnapshot
	redo  []sceneSnapshot
}

func (h *history) state() HistoryState {
	return HistoryState{CanUndo: len(h.undo) > 0, CanRedo: len(h.redo) > 0}
}

// snapshotLocked copies the shape collection. Caller holds st.mu.
func (st *Store) snapshotLocked() sceneSnapshot {
	shapes := make(map[string]Shape, len(st.shapes))
	for id, s := range st.shapes {
		shapes[id] = s.Clone()
	}
	return sceneSnapshot{shapes: shapes, order: slices.Clone(st.order)}
}

func (st *Store) restoreLocked(snap sceneSnapshot) {
	st.shapes = snap.shapes
	st.order = snap.order
	st.pruneSelectionLocked()
}

// recordLocked pushes the pre-mutation state and drops the redo stack.
// Caller holds st.mu.
func (st *Store) recordLocked() {
	st.hist.undo = append(st.hist.undo, st.snapshotLocked())
	if over := len(st.hist.undo) - st.hist.depth; over > 0 {
		st.hist.undo = slices.Delete(st.hist.undo, 0, over)
	}
	st.hist.redo = nil
}

// Undo reverts the last shape mutation. It reports false when there is
// nothing to undo.
func (st *Store) Undo() bool {
	st.mu.Lock()
	before := st.hist.state()
	if len(st.hist.undo) == 0 {
		st.mu.Unlock()
		return false
	}
	last := st.hist.undo[len(st.hist.undo)-1]
	st.hist.undo = st.hist.undo[:len(st.hist.undo)-1]
	st.hist.redo = append(st.hist.redo, st.snapshotLocked())
	st.restoreLocked(last)
	after := st.hist.state()
	plan := st.currentPlanID
	st.mu.Unlock()

	st.emit(Event{Kind: EventHistoryRestored, PlanID: plan})
	st.notifyHistory(before, after)
	return true
}

// Redo re-applies the last undone mutation.
func (st *Store) Redo() bool {
	st.mu.Lock()
	before := st.hist.state()
	if len(st.hist.redo) == 0 {
		st.mu.Unlock()
		return false
	}
	next := st.hist.redo[len(st.hist.redo)-1]
	st.hist.redo = st.hist.redo[:len(st.hist.redo)-1]
	st.hist.undo = append(st.hist.undo, st.snapshotLocked())
	st.restoreLocked(next)
	after := st.hist.state()
	plan := st.currentPlanID
	st.mu.Unlock()

	st.emit(Event{Kind: EventHistoryRestored, PlanID: plan})
	st.notifyHistory(before, after)
	return true
}

// HistoryState reports current undo/redo availability.
func (st *Store) HistoryState() HistoryState {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.hist.state()
}

// ClearHistory forgets every undo and redo step.
func (st *Store) ClearHistory() {
	st.mu.Lock()
	before := st.hist.state()
	st.hist.undo, st.hist.redo = nil, nil
	after := st.hist.state()
	st.mu.Unlock()
	st.notifyHistory(before, after)
}

func (st *Store) notifyHistory(before, after HistoryState) {
	if before != after {
		st.emitHistory(after)
	}
}
