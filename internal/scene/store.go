// Package scene holds the canonical in-memory state of the canvas: shapes,
// plans, selection, view state and project settings. Every other component
// reads and mutates through a *Store.
package scene

import (
	"log"
	"math"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store is the single mutable scene container. Mutations are applied under a
// write lock so readers never observe a half-applied change; subscribers are
// notified after the lock is released.
type Store struct {
	mu sync.RWMutex

	shapes  map[string]Shape
	order   []string
	retired map[string]struct{}

	plans         map[string]Plan
	planOrder     []string
	currentPlanID string

	selection []string
	view      ViewState
	settings  ProjectSettings
	hist      history

	listenersMu      sync.Mutex
	nextListener     int
	listeners        map[int]func(Event)
	historyListeners map[int]func(HistoryState)

	now func() time.Time
}

// NewStore returns an empty store with default settings.
func NewStore() *Store {
	return &Store{
		shapes:           make(map[string]Shape),
		retired:          make(map[string]struct{}),
		plans:            make(map[string]Plan),
		view:             ViewState{Zoom: 1, ViewMode: ViewFloor},
		settings:         DefaultSettings(),
		hist:             history{depth: DefaultHistoryDepth},
		listeners:        make(map[int]func(Event)),
		historyListeners: make(map[int]func(HistoryState)),
		now:              time.Now,
	}
}

// AddShape inserts s. An empty ID gets a fresh uuid and an empty PlanID means
// the current plan. An id that is or ever was in the store is rejected with a
// ValidationError wrapping ErrDuplicateID. A zero ZIndex places the shape on
// top of its plan.
func (st *Store) AddShape(s Shape) (Shape, error) {
	st.mu.Lock()
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.PlanID == "" {
		s.PlanID = st.currentPlanID
	}
	if err := st.validateNewLocked(s); err != nil {
		st.mu.Unlock()
		log.Printf("[SCENE] add rejected: %v", err)
		return Shape{}, err
	}
	if s.ZIndex == 0 {
		if top, ok := st.topZLocked(s.PlanID); ok {
			s.ZIndex = top + 1
		}
	}
	now := st.now()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now

	before := st.hist.state()
	st.recordLocked()
	stored := s.Clone()
	st.shapes[s.ID] = stored
	st.order = append(st.order, s.ID)
	after := st.hist.state()
	st.mu.Unlock()

	st.emit(Event{Kind: EventShapeAdded, PlanID: s.PlanID, ShapeIDs: []string{s.ID}})
	st.notifyHistory(before, after)
	return stored.Clone(), nil
}

func (st *Store) validateNewLocked(s Shape) error {
	if _, ok := st.shapes[s.ID]; ok {
		return &ValidationError{Field: "id", Reason: s.ID + " already exists", Err: ErrDuplicateID}
	}
	if _, ok := st.retired[s.ID]; ok {
		return &ValidationError{Field: "id", Reason: s.ID + " was used by a deleted shape", Err: ErrDuplicateID}
	}
	if s.PlanID == "" {
		return &ValidationError{Field: "planId", Reason: "no plan selected"}
	}
	if _, ok := st.plans[s.PlanID]; !ok {
		return notFound("plan", s.PlanID)
	}
	if !s.Kind.Valid() {
		return &ValidationError{Field: "type", Reason: "unknown kind " + string(s.Kind)}
	}
	if err := ValidateGeometry(s.Kind, s.Geometry); err != nil {
		return err
	}
	return validateAttributes(s)
}

func validateAttributes(s Shape) error {
	if s.ImageOpacity != nil && (*s.ImageOpacity < 0 || *s.ImageOpacity > 1) {
		return &ValidationError{Field: "imageOpacity", Reason: "must be within [0,1]"}
	}
	for name, v := range map[string]*float64{"thicknessMM": s.ThicknessMM, "heightMM": s.HeightMM} {
		if v != nil && (*v < 0 || math.IsNaN(*v) || math.IsInf(*v, 0)) {
			return &ValidationError{Field: name, Reason: "must be a non-negative length"}
		}
	}
	if s.WallRelative != nil {
		return ValidateWallRelative(*s.WallRelative)
	}
	return nil
}

// ValidateWallRelative checks the numeric sanity of a wall-relative record.
func ValidateWallRelative(wr WallRelativePosition) error {
	if wr.WallID == "" {
		return &ValidationError{Field: "wallRelative.wallId", Reason: "missing"}
	}
	for _, v := range []float64{wr.DistanceFromWallStart, wr.ElevationBottom, wr.Width, wr.Height} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &ValidationError{Field: "wallRelative", Reason: "non-finite value"}
		}
	}
	if wr.DistanceFromWallStart < 0 || wr.ElevationBottom < 0 {
		return &ValidationError{Field: "wallRelative", Reason: "position must be non-negative"}
	}
	if wr.Width < 0 || wr.Height < 0 {
		return &ValidationError{Field: "wallRelative", Reason: "size must be non-negative"}
	}
	return nil
}

// UpdateShape shallow-merges patch into the shape. Fields the patch leaves
// unset are untouched. An unknown id is logged and reported as a
// NotFoundError; an invalid patch leaves the store unchanged.
func (st *Store) UpdateShape(id string, patch ShapePatch) (Shape, error) {
	st.mu.Lock()
	cur, ok := st.shapes[id]
	if !ok {
		st.mu.Unlock()
		err := notFound("shape", id)
		log.Printf("[SCENE] update ignored: %v", err)
		return Shape{}, err
	}
	next := patch.Apply(cur)
	if patch.Geometry != nil {
		if err := ValidateGeometry(next.Kind, next.Geometry); err != nil {
			st.mu.Unlock()
			log.Printf("[SCENE] update %s rejected: %v", id, err)
			return Shape{}, err
		}
	}
	if err := validateAttributes(next); err != nil {
		st.mu.Unlock()
		log.Printf("[SCENE] update %s rejected: %v", id, err)
		return Shape{}, err
	}
	next.UpdatedAt = st.now()

	before := st.hist.state()
	st.recordLocked()
	st.shapes[id] = next
	after := st.hist.state()
	st.mu.Unlock()

	st.emit(Event{Kind: EventShapeUpdated, PlanID: next.PlanID, ShapeIDs: []string{id}})
	st.notifyHistory(before, after)
	return next.Clone(), nil
}

// DeleteShape removes the shape. Its id is never handed out again.
func (st *Store) DeleteShape(id string) error {
	st.mu.Lock()
	cur, ok := st.shapes[id]
	if !ok {
		st.mu.Unlock()
		err := notFound("shape", id)
		log.Printf("[SCENE] delete ignored: %v", err)
		return err
	}
	before := st.hist.state()
	st.recordLocked()
	st.removeLocked(id)
	after := st.hist.state()
	st.mu.Unlock()

	st.emit(Event{Kind: EventShapeDeleted, PlanID: cur.PlanID, ShapeIDs: []string{id}})
	st.notifyHistory(before, after)
	return nil
}

func (st *Store) removeLocked(id string) {
	delete(st.shapes, id)
	st.retired[id] = struct{}{}
	if i := slices.Index(st.order, id); i >= 0 {
		st.order = slices.Delete(st.order, i, i+1)
	}
	if i := slices.Index(st.selection, id); i >= 0 {
		st.selection = slices.Delete(st.selection, i, i+1)
	}
}

// TranslateShapes shifts each listed shape by its delta as one atomic,
// single-undo-step change. Unknown ids are skipped and logged; shapes whose
// geometry cannot be translated are left as they were.
func (st *Store) TranslateShapes(deltas map[string]Point) []string {
	if len(deltas) == 0 {
		return nil
	}
	st.mu.Lock()
	ids := make([]string, 0, len(deltas))
	for id := range deltas {
		if _, ok := st.shapes[id]; ok {
			ids = append(ids, id)
		} else {
			log.Printf("[SCENE] translate skipped: %v", notFound("shape", id))
		}
	}
	if len(ids) == 0 {
		st.mu.Unlock()
		return nil
	}
	sort.Strings(ids)

	before := st.hist.state()
	st.recordLocked()
	now := st.now()
	moved := ids[:0]
	plan := ""
	for _, id := range ids {
		s := st.shapes[id]
		g, err := Translate(s.Geometry, deltas[id])
		if err != nil {
			log.Printf("[SCENE] translate %s skipped: %v", id, err)
			continue
		}
		s.Geometry = g
		s.UpdatedAt = now
		st.shapes[id] = s
		moved = append(moved, id)
		plan = s.PlanID
	}
	after := st.hist.state()
	st.mu.Unlock()

	st.emit(Event{Kind: EventShapesMoved, PlanID: plan, ShapeIDs: slices.Clone(moved)})
	st.notifyHistory(before, after)
	return moved
}

// Shape returns a copy of the shape with the given id.
func (st *Store) Shape(id string) (Shape, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.shapes[id]
	if !ok {
		return Shape{}, false
	}
	return s.Clone(), true
}

// ShapesForPlan returns the plan's shapes in paint order (zIndex, then
// insertion order).
func (st *Store) ShapesForPlan(planID string) []Shape {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.planShapesLocked(planID)
}

// CurrentShapes returns the shapes of the current plan in paint order.
func (st *Store) CurrentShapes() []Shape {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.planShapesLocked(st.currentPlanID)
}

func (st *Store) planShapesLocked(planID string) []Shape {
	out := make([]Shape, 0)
	for _, id := range st.order {
		if s := st.shapes[id]; s.PlanID == planID {
			out = append(out, s.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ZIndex < out[j].ZIndex })
	return out
}

// ReplacePlanShapes swaps the plan's shapes for a freshly loaded set. Shapes
// that fail validation are logged and skipped. Rehydration is not undoable,
// so history is cleared. It returns how many shapes were installed.
func (st *Store) ReplacePlanShapes(planID string, shapes []Shape) int {
	st.mu.Lock()
	if _, ok := st.plans[planID]; !ok {
		st.mu.Unlock()
		log.Printf("[SCENE] replace ignored: %v", notFound("plan", planID))
		return 0
	}
	for _, id := range slices.Clone(st.order) {
		if st.shapes[id].PlanID == planID {
			delete(st.shapes, id)
			st.order = slices.DeleteFunc(st.order, func(o string) bool { return o == id })
		}
	}
	installed := 0
	for _, s := range shapes {
		s.PlanID = planID
		if _, dup := st.shapes[s.ID]; dup || s.ID == "" {
			log.Printf("[SCENE] replace skipped shape %q: duplicate or empty id", s.ID)
			continue
		}
		if err := ValidateGeometry(s.Kind, s.Geometry); err != nil {
			log.Printf("[SCENE] replace skipped shape %s: %v", s.ID, err)
			continue
		}
		if !s.Kind.Valid() {
			log.Printf("[SCENE] replace skipped shape %s: unknown kind %q", s.ID, s.Kind)
			continue
		}
		st.shapes[s.ID] = s.Clone()
		st.order = append(st.order, s.ID)
		installed++
	}
	st.pruneSelectionLocked()
	before := st.hist.state()
	st.hist.undo, st.hist.redo = nil, nil
	after := st.hist.state()
	st.mu.Unlock()

	st.emit(Event{Kind: EventShapesReplaced, PlanID: planID})
	st.notifyHistory(before, after)
	return installed
}

func (st *Store) topZLocked(planID string) (int, bool) {
	top, found := 0, false
	for _, s := range st.shapes {
		if s.PlanID != planID {
			continue
		}
		if !found || s.ZIndex > top {
			top, found = s.ZIndex, true
		}
	}
	return top, found
}
