// Package drag turns pointer gestures into snapped, optionally
// group-synchronized coordinate commits on the scene store.
package drag

import (
	"errors"
	"log"
	"sync"

	"floorplan-studio-backend/internal/scene"
	"floorplan-studio-backend/internal/units"
)

// ErrNoGesture is returned by Move when no drag is in progress for the shape.
var ErrNoGesture = errors.New("no drag in progress")

type anchor struct {
	start  scene.Point // rendering position when the gesture began
	origin scene.Point // canonical drag origin of the shape
}

type gesture struct {
	leader string
	origin scene.Point
	ref    scene.Point // snap reference relative to origin
	group  bool
}

// Engine runs one gesture at a time: Start, any number of Move calls, then
// End (commit) or Cancel (discard). Offsets are rendering transforms only;
// canonical geometry changes exactly once, at End.
type Engine struct {
	store *scene.Store

	mu       sync.Mutex
	active   *gesture
	offsets  map[string]scene.Point
	snapshot map[string]anchor

	unsubscribe func()
}

// New wires an engine to st. Switching view mode or plan, replacing shapes
// or undoing mid-gesture cancels the gesture.
func New(st *scene.Store) *Engine {
	e := &Engine{
		store:    st,
		offsets:  make(map[string]scene.Point),
		snapshot: make(map[string]anchor),
	}
	e.unsubscribe = st.Subscribe(e.onStoreEvent)
	return e
}

// Close detaches the engine from the store.
func (e *Engine) Close() {
	if e.unsubscribe != nil {
		e.unsubscribe()
	}
}

func (e *Engine) onStoreEvent(ev scene.Event) {
	switch ev.Kind {
	case scene.EventViewModeChanged, scene.EventCurrentPlanChanged, scene.EventShapesReplaced, scene.EventHistoryRestored:
		if e.Active() {
			log.Printf("[DRAG] gesture cancelled by %s", ev.Kind)
			e.Cancel()
		}
	}
}

// Active reports whether a gesture is in progress.
func (e *Engine) Active() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active != nil
}

// Start begins dragging shape id. When id is part of a multi-shape selection
// the rendering position of every selected shape is snapshotted so the group
// moves together; single-shape drags skip the snapshot.
func (e *Engine) Start(id string) error {
	leader, ok := e.store.Shape(id)
	if !ok {
		err := &scene.NotFoundError{Entity: "shape", ID: id}
		log.Printf("[DRAG] start ignored: %v", err)
		return err
	}
	if leader.Locked {
		return &scene.ValidationError{Field: "locked", Reason: "shape " + id + " is locked"}
	}

	selection := e.store.SelectedShapeIDs()
	group := len(selection) > 1 && e.store.IsSelected(id)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active != nil {
		log.Printf("[DRAG] discarding unfinished gesture on %s", e.active.leader)
		e.resetLocked()
	}

	origin := scene.DragOrigin(leader.Geometry)
	g := &gesture{
		leader: id,
		origin: origin,
		ref:    scene.SnapReference(leader.Geometry).Sub(origin),
		group:  group,
	}
	if group {
		for _, sid := range selection {
			s, ok := e.store.Shape(sid)
			if !ok || s.Locked {
				continue
			}
			origin := scene.DragOrigin(s.Geometry)
			e.snapshot[sid] = anchor{start: origin.Add(e.offsets[sid]), origin: origin}
		}
	}
	e.active = g
	return nil
}

// Move applies a candidate node position for the dragged shape and returns
// the resolved (possibly snapped) position. Only the leader snaps; in a group
// drag every other member follows by the same, unsnapped delta. Nothing is
// committed to the store.
func (e *Engine) Move(id string, pos scene.Point) (scene.Point, error) {
	snap := e.snapSize()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active == nil || e.active.leader != id {
		return pos, ErrNoGesture
	}
	resolved := e.active.snap(pos, snap)
	e.applyLocked(resolved)
	return resolved, nil
}

// End resolves the final position once more and commits it: the leader and,
// for group drags, every snapshotted member are translated by their delta in
// one store mutation. An End without a matching Start is a logged no-op.
func (e *Engine) End(id string, pos scene.Point) error {
	snap := e.snapSize()

	e.mu.Lock()
	g := e.active
	if g == nil || g.leader != id {
		e.mu.Unlock()
		log.Printf("[DRAG] end ignored for %s: no gesture started", id)
		return nil
	}
	if _, ok := e.snapshot[id]; g.group && !ok {
		e.resetLocked()
		e.mu.Unlock()
		log.Printf("[DRAG] end ignored for %s: snapshot missing", id)
		return nil
	}

	resolved := g.snap(pos, snap)
	e.applyLocked(resolved)

	deltas := make(map[string]scene.Point, len(e.snapshot)+1)
	deltas[id] = resolved.Sub(g.origin)
	if g.group {
		for sid := range e.snapshot {
			if sid != id {
				deltas[sid] = e.offsets[sid]
			}
		}
	}
	e.resetLocked()
	e.mu.Unlock()

	for sid, d := range deltas {
		if d == (scene.Point{}) {
			delete(deltas, sid)
		}
	}
	if len(deltas) == 0 {
		return nil
	}
	e.store.TranslateShapes(deltas)
	return nil
}

// Cancel discards the gesture and every uncommitted offset.
func (e *Engine) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resetLocked()
}

// Offset returns the transient rendering offset of a shape.
func (e *Engine) Offset(id string) scene.Point {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.offsets[id]
}

// applyLocked sets the leader's offset to the resolved position and moves
// the rest of the group by the same delta. O(selection).
func (e *Engine) applyLocked(resolved scene.Point) {
	g := e.active
	e.offsets[g.leader] = resolved.Sub(g.origin)
	if !g.group {
		return
	}
	lead, ok := e.snapshot[g.leader]
	if !ok {
		return
	}
	delta := resolved.Sub(lead.start)
	for sid, a := range e.snapshot {
		if sid == g.leader {
			continue
		}
		e.offsets[sid] = a.start.Add(delta).Sub(a.origin)
	}
}

func (e *Engine) resetLocked() {
	if e.active != nil {
		delete(e.offsets, e.active.leader)
	}
	for sid := range e.snapshot {
		delete(e.offsets, sid)
	}
	clear(e.snapshot)
	e.active = nil
}

func (e *Engine) snapSize() float64 {
	s := e.store.Settings()
	if !s.SnapEnabled {
		return 0
	}
	return s.SnapSize()
}

// snap resolves a node position so that the leader's snap reference, not
// its node offset, lands on the grid.
func (g *gesture) snap(pos scene.Point, size float64) scene.Point {
	if size <= 0 || g.ref == (scene.Point{}) {
		return snapPoint(pos, size)
	}
	return snapPoint(pos.Add(g.ref), size).Sub(g.ref)
}

func snapPoint(p scene.Point, size float64) scene.Point {
	return scene.Point{X: units.Snap(p.X, size), Y: units.Snap(p.Y, size)}
}
