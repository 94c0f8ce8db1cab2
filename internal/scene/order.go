package scene

import (
	"log"
	"slices"
	"sort"
)

type reorderMove int

const (
	moveForward reorderMove = iota
	moveBackward
	moveToFront
	moveToBack
)

// BringForward swaps the shape with the sibling painted directly above it.
func (st *Store) BringForward(id string) error { return st.reorder(id, moveForward) }

// SendBackward swaps the shape with the sibling painted directly below it.
func (st *Store) SendBackward(id string) error { return st.reorder(id, moveBackward) }

// BringToFront paints the shape above every sibling in its plan.
func (st *Store) BringToFront(id string) error { return st.reorder(id, moveToFront) }

// SendToBack paints the shape below every sibling in its plan.
func (st *Store) SendToBack(id string) error { return st.reorder(id, moveToBack) }

// reorder moves id within its plan's paint order and renumbers the plan's
// zIndex values densely from zero, which also resolves ties left behind by
// imports.
func (st *Store) reorder(id string, move reorderMove) error {
	st.mu.Lock()
	target, ok := st.shapes[id]
	if !ok {
		st.mu.Unlock()
		err := notFound("shape", id)
		log.Printf("[SCENE] reorder ignored: %v", err)
		return err
	}

	siblings := make([]string, 0)
	for _, sid := range st.order {
		if st.shapes[sid].PlanID == target.PlanID {
			siblings = append(siblings, sid)
		}
	}
	sort.SliceStable(siblings, func(i, j int) bool {
		return st.shapes[siblings[i]].ZIndex < st.shapes[siblings[j]].ZIndex
	})

	from := slices.Index(siblings, id)
	to := from
	switch move {
	case moveForward:
		to = min(from+1, len(siblings)-1)
	case moveBackward:
		to = max(from-1, 0)
	case moveToFront:
		to = len(siblings) - 1
	case moveToBack:
		to = 0
	}

	reordered := slices.Delete(slices.Clone(siblings), from, from+1)
	reordered = slices.Insert(reordered, to, id)

	changed := false
	for z, sid := range reordered {
		if st.shapes[sid].ZIndex != z {
			changed = true
			break
		}
	}
	if !changed {
		st.mu.Unlock()
		return nil
	}

	before := st.hist.state()
	st.recordLocked()
	touched := make([]string, 0)
	now := st.now()
	for z, sid := range reordered {
		s := st.shapes[sid]
		if s.ZIndex == z {
			continue
		}
		s.ZIndex = z
		s.UpdatedAt = now
		st.shapes[sid] = s
		touched = append(touched, sid)
	}
	after := st.hist.state()
	st.mu.Unlock()

	st.emit(Event{Kind: EventOrderChanged, PlanID: target.PlanID, ShapeIDs: touched})
	st.notifyHistory(before, after)
	return nil
}
