package scene

import (
	"errors"
	"slices"
	"testing"
)

func newTestStore(t *testing.T) (*Store, Plan) {
	t.Helper()
	st := NewStore()
	p, err := st.AddPlan(Plan{ID: "plan-1", ProjectID: "proj-1", Name: "Ground floor", IsDefault: true})
	if err != nil {
		t.Fatalf("AddPlan: %v", err)
	}
	return st, p
}

func wall(id string, x1, y1, x2, y2 float64) Shape {
	return Shape{ID: id, Kind: KindWall, Geometry: Segment{Start: Point{X: x1, Y: y1}, End: Point{X: x2, Y: y2}}}
}

func rect(id string, left, top, w, h float64) Shape {
	return Shape{ID: id, Kind: KindRectangle, Geometry: Rect{Left: left, Top: top, Width: w, Height: h}}
}

func TestAddShapeDefaultsToCurrentPlan(t *testing.T) {
	st, p := newTestStore(t)
	s, err := st.AddShape(wall("w1", 0, 0, 1000, 0))
	if err != nil {
		t.Fatalf("AddShape: %v", err)
	}
	if s.PlanID != p.ID {
		t.Fatalf("plan = %q, want %q", s.PlanID, p.ID)
	}
	if s.CreatedAt.IsZero() || s.UpdatedAt.IsZero() {
		t.Fatal("timestamps not set")
	}
}

func TestAddShapeGeneratesID(t *testing.T) {
	st, _ := newTestStore(t)
	s, err := st.AddShape(Shape{Kind: KindText, Geometry: Anchor{At: Point{X: 1, Y: 2}}, Text: "Kitchen"})
	if err != nil {
		t.Fatalf("AddShape: %v", err)
	}
	if s.ID == "" {
		t.Fatal("expected generated id")
	}
}

func TestAddShapeRejectsDuplicateAndRetiredIDs(t *testing.T) {
	st, _ := newTestStore(t)
	if _, err := st.AddShape(wall("w1", 0, 0, 10, 0)); err != nil {
		t.Fatalf("AddShape: %v", err)
	}
	_, err := st.AddShape(wall("w1", 5, 5, 10, 10))
	if !errors.Is(err, ErrDuplicateID) || !IsValidation(err) {
		t.Fatalf("duplicate add err = %v", err)
	}
	got, _ := st.Shape("w1")
	if got.Geometry.(Segment).Start.X != 0 {
		t.Fatal("duplicate add must not overwrite the existing shape")
	}

	if err := st.DeleteShape("w1"); err != nil {
		t.Fatalf("DeleteShape: %v", err)
	}
	if _, err := st.AddShape(wall("w1", 0, 0, 10, 0)); !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("re-adding a deleted id err = %v, want ErrDuplicateID", err)
	}
}

func TestAddShapeValidation(t *testing.T) {
	st, _ := newTestStore(t)
	tests := []struct {
		name  string
		shape Shape
	}{
		{"unknown kind", Shape{ID: "a", Kind: "stairs", Geometry: Anchor{}}},
		{"mismatched geometry", Shape{ID: "b", Kind: KindWall, Geometry: Rect{Width: 1, Height: 1}}},
		{"polygon too short", Shape{ID: "c", Kind: KindPolygon, Geometry: Path{Points: []Point{{}, {X: 1}}}}},
		{"negative radius", Shape{ID: "d", Kind: KindCircle, Geometry: Circle{Radius: -1}}},
		{"bad opacity", Shape{ID: "e", Kind: KindImage, Geometry: Rect{Width: 1, Height: 1}, ImageOpacity: Float(2)}},
		{"missing geometry", Shape{ID: "f", Kind: KindText}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := st.AddShape(tt.shape); !IsValidation(err) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
		})
	}
	if _, err := st.AddShape(Shape{ID: "g", PlanID: "missing", Kind: KindText, Geometry: Anchor{}}); !IsNotFound(err) {
		t.Fatalf("unknown plan err = %v, want NotFoundError", err)
	}
}

func TestUpdateShapeMergesOnlyPatchedFields(t *testing.T) {
	st, _ := newTestStore(t)
	orig := rect("r1", 10, 20, 300, 400)
	orig.Name = "Sofa"
	orig.FillColor = "#fff"
	orig.ThicknessMM = Float(12)
	orig.Metadata = map[string]any{"seats": 3}
	if _, err := st.AddShape(orig); err != nil {
		t.Fatalf("AddShape: %v", err)
	}
	before, _ := st.Shape("r1")

	updated, err := st.UpdateShape("r1", ShapePatch{Name: String("Couch"), Locked: boolPtr(true)})
	if err != nil {
		t.Fatalf("UpdateShape: %v", err)
	}
	if updated.Name != "Couch" || !updated.Locked {
		t.Fatalf("patched fields not applied: %+v", updated)
	}
	if updated.FillColor != before.FillColor || *updated.ThicknessMM != 12 || updated.Metadata["seats"] != 3 {
		t.Fatalf("unpatched fields changed: %+v", updated)
	}
	if updated.Geometry != before.Geometry || updated.ZIndex != before.ZIndex {
		t.Fatalf("geometry or order changed: %+v", updated)
	}
}

func TestUpdateShapeUnknownIDIsNoOp(t *testing.T) {
	st, _ := newTestStore(t)
	events := 0
	st.Subscribe(func(Event) { events++ })
	if _, err := st.UpdateShape("ghost", ShapePatch{Name: String("x")}); !IsNotFound(err) {
		t.Fatalf("err = %v, want NotFoundError", err)
	}
	if events != 0 {
		t.Fatalf("no event expected, got %d", events)
	}
	if st.HistoryState().CanUndo {
		t.Fatal("no-op update must not create history")
	}
}

func TestUpdateShapeRejectsInvalidGeometry(t *testing.T) {
	st, _ := newTestStore(t)
	if _, err := st.AddShape(wall("w1", 0, 0, 10, 0)); err != nil {
		t.Fatal(err)
	}
	if _, err := st.UpdateShape("w1", ShapePatch{Geometry: Circle{Radius: 3}}); !IsValidation(err) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	got, _ := st.Shape("w1")
	if _, ok := got.Geometry.(Segment); !ok {
		t.Fatal("store changed after rejected patch")
	}
}

func TestReadsReturnCopies(t *testing.T) {
	st, _ := newTestStore(t)
	if _, err := st.AddShape(Shape{ID: "p1", Kind: KindPolygon, Geometry: Path{Points: []Point{{}, {X: 10}, {X: 10, Y: 10}}}}); err != nil {
		t.Fatal(err)
	}
	got, _ := st.Shape("p1")
	got.Geometry.(Path).Points[0].X = 999
	again, _ := st.Shape("p1")
	if again.Geometry.(Path).Points[0].X != 0 {
		t.Fatal("mutating a returned shape leaked into the store")
	}
}

func TestDeleteShapeRemovesFromSelection(t *testing.T) {
	st, _ := newTestStore(t)
	st.AddShape(wall("w1", 0, 0, 10, 0))
	st.AddShape(wall("w2", 0, 10, 10, 10))
	st.SetSelection([]string{"w1", "w2"})
	if err := st.DeleteShape("w1"); err != nil {
		t.Fatal(err)
	}
	if sel := st.SelectedShapeIDs(); !slices.Equal(sel, []string{"w2"}) {
		t.Fatalf("selection = %v", sel)
	}
	if err := st.DeleteShape("w1"); !IsNotFound(err) {
		t.Fatalf("second delete err = %v", err)
	}
}

func TestSelectionOperations(t *testing.T) {
	st, _ := newTestStore(t)
	st.AddShape(wall("w1", 0, 0, 10, 0))
	st.AddShape(wall("w2", 0, 10, 10, 10))

	if sel := st.SetSelection([]string{"w2", "ghost", "w1", "w2"}); !slices.Equal(sel, []string{"w2", "w1"}) {
		t.Fatalf("SetSelection = %v", sel)
	}
	if err := st.ToggleSelection("w2"); err != nil {
		t.Fatal(err)
	}
	if st.IsSelected("w2") || !st.IsSelected("w1") {
		t.Fatalf("toggle off failed: %v", st.SelectedShapeIDs())
	}
	if err := st.ToggleSelection("ghost"); !IsNotFound(err) {
		t.Fatalf("toggle unknown err = %v", err)
	}
	st.ClearSelection()
	if len(st.SelectedShapeIDs()) != 0 {
		t.Fatal("selection not cleared")
	}
}

func TestReorderWithinPlan(t *testing.T) {
	st, _ := newTestStore(t)
	for _, id := range []string{"a", "b", "c"} {
		if _, err := st.AddShape(rect(id, 0, 0, 1, 1)); err != nil {
			t.Fatal(err)
		}
	}
	order := func() []string {
		var ids []string
		for _, s := range st.CurrentShapes() {
			ids = append(ids, s.ID)
		}
		return ids
	}

	if !slices.Equal(order(), []string{"a", "b", "c"}) {
		t.Fatalf("initial order = %v", order())
	}
	st.BringForward("a")
	if !slices.Equal(order(), []string{"b", "a", "c"}) {
		t.Fatalf("after BringForward = %v", order())
	}
	st.SendToBack("c")
	if !slices.Equal(order(), []string{"c", "b", "a"}) {
		t.Fatalf("after SendToBack = %v", order())
	}
	st.BringToFront("c")
	if !slices.Equal(order(), []string{"b", "a", "c"}) {
		t.Fatalf("after BringToFront = %v", order())
	}
	st.SendBackward("a")
	if !slices.Equal(order(), []string{"a", "b", "c"}) {
		t.Fatalf("after SendBackward = %v", order())
	}
	if err := st.BringForward("ghost"); !IsNotFound(err) {
		t.Fatalf("reorder unknown err = %v", err)
	}
}

func TestReorderIgnoresOtherPlans(t *testing.T) {
	st, _ := newTestStore(t)
	st.AddPlan(Plan{ID: "plan-2", ProjectID: "proj-1", Name: "Upstairs"})
	st.AddShape(rect("a", 0, 0, 1, 1))
	st.AddShape(Shape{ID: "x", PlanID: "plan-2", Kind: KindRectangle, Geometry: Rect{Width: 1, Height: 1}, ZIndex: 50})
	st.AddShape(rect("b", 0, 0, 1, 1))

	st.BringToFront("a")
	a, _ := st.Shape("a")
	b, _ := st.Shape("b")
	x, _ := st.Shape("x")
	if a.ZIndex <= b.ZIndex {
		t.Fatalf("a (%d) should be above b (%d)", a.ZIndex, b.ZIndex)
	}
	if x.ZIndex != 50 {
		t.Fatalf("shape on another plan was renumbered: %d", x.ZIndex)
	}
}

func TestPlanDefaultIsUniquePerProject(t *testing.T) {
	st, _ := newTestStore(t)
	p2, err := st.AddPlan(Plan{ID: "plan-2", ProjectID: "proj-1", Name: "Upstairs", IsDefault: true})
	if err != nil {
		t.Fatal(err)
	}
	other, _ := st.AddPlan(Plan{ID: "plan-x", ProjectID: "proj-2", Name: "Other", IsDefault: true})

	defaults := 0
	for _, p := range st.Plans() {
		if p.ProjectID == "proj-1" && p.IsDefault {
			defaults++
			if p.ID != p2.ID {
				t.Fatalf("unexpected default %s", p.ID)
			}
		}
	}
	if defaults != 1 {
		t.Fatalf("defaults = %d, want 1", defaults)
	}
	if got, _ := st.Plan(other.ID); !got.IsDefault {
		t.Fatal("default of another project must be untouched")
	}

	if _, err := st.UpdatePlan("plan-1", PlanPatch{IsDefault: boolPtr(true), Name: String("Main")}); err != nil {
		t.Fatal(err)
	}
	if got, _ := st.Plan("plan-2"); got.IsDefault {
		t.Fatal("plan-2 should lose default")
	}
	if got, _ := st.Plan("plan-1"); got.Name != "Main" {
		t.Fatalf("rename failed: %q", got.Name)
	}
}

func TestDeletePlanDropsShapesAndSwitchesCurrent(t *testing.T) {
	st, _ := newTestStore(t)
	st.AddPlan(Plan{ID: "plan-2", ProjectID: "proj-1", Name: "Upstairs"})
	st.AddShape(wall("w1", 0, 0, 10, 0))

	var switchedTo string
	st.Subscribe(func(ev Event) {
		if ev.Kind == EventCurrentPlanChanged {
			switchedTo = ev.PlanID
		}
	})
	if err := st.DeletePlan("plan-1"); err != nil {
		t.Fatal(err)
	}
	if _, ok := st.Shape("w1"); ok {
		t.Fatal("shape of deleted plan still present")
	}
	if st.CurrentPlanID() != "plan-2" || switchedTo != "plan-2" {
		t.Fatalf("current = %q, event = %q", st.CurrentPlanID(), switchedTo)
	}
	if err := st.DeletePlan("plan-1"); !IsNotFound(err) {
		t.Fatalf("second delete err = %v", err)
	}
}

func TestSetCurrentPlanClearsSelection(t *testing.T) {
	st, _ := newTestStore(t)
	st.AddPlan(Plan{ID: "plan-2", ProjectID: "proj-1", Name: "Upstairs"})
	st.AddShape(wall("w1", 0, 0, 10, 0))
	st.SetSelection([]string{"w1"})
	if err := st.SetCurrentPlanID("plan-2"); err != nil {
		t.Fatal(err)
	}
	if len(st.SelectedShapeIDs()) != 0 {
		t.Fatal("selection should be cleared on plan switch")
	}
	if err := st.SetCurrentPlanID("nope"); !IsNotFound(err) {
		t.Fatalf("err = %v", err)
	}
}

func TestUndoRedoAndAvailabilityNotifications(t *testing.T) {
	st, _ := newTestStore(t)
	var states []HistoryState
	st.OnHistoryChange(func(hs HistoryState) { states = append(states, hs) })

	st.AddShape(wall("w1", 0, 0, 10, 0))
	st.UpdateShape("w1", ShapePatch{Name: String("North")})

	if !st.Undo() {
		t.Fatal("undo should succeed")
	}
	got, _ := st.Shape("w1")
	if got.Name != "" {
		t.Fatalf("undo did not revert name: %q", got.Name)
	}
	if !st.Redo() {
		t.Fatal("redo should succeed")
	}
	got, _ = st.Shape("w1")
	if got.Name != "North" {
		t.Fatalf("redo did not reapply name: %q", got.Name)
	}
	st.Undo()
	st.Undo()
	if _, ok := st.Shape("w1"); ok {
		t.Fatal("second undo should remove the added wall")
	}
	if st.Undo() {
		t.Fatal("nothing left to undo")
	}

	want := []HistoryState{
		{CanUndo: true},
		{CanUndo: true, CanRedo: true},
		{CanUndo: true},
		{CanUndo: true, CanRedo: true},
		{CanRedo: true},
	}
	if !slices.Equal(states, want) {
		t.Fatalf("history notifications = %+v, want %+v", states, want)
	}
}

func TestNewMutationDropsRedo(t *testing.T) {
	st, _ := newTestStore(t)
	st.AddShape(wall("w1", 0, 0, 10, 0))
	st.Undo()
	st.AddShape(wall("w2", 0, 0, 10, 0))
	if st.HistoryState().CanRedo {
		t.Fatal("redo stack should be cleared by a new mutation")
	}
}

func TestTranslateShapesIsOneUndoStep(t *testing.T) {
	st, _ := newTestStore(t)
	st.AddShape(wall("w1", 0, 0, 100, 0))
	st.AddShape(rect("r1", 200, 200, 10, 10))
	st.ClearHistory()

	moved := st.TranslateShapes(map[string]Point{"w1": {X: 30, Y: 40}, "r1": {X: 30, Y: 40}, "ghost": {X: 1}})
	if !slices.Equal(moved, []string{"r1", "w1"}) {
		t.Fatalf("moved = %v", moved)
	}
	r, _ := st.Shape("r1")
	if g := r.Geometry.(Rect); g.Left != 230 || g.Top != 240 {
		t.Fatalf("rect = %+v", g)
	}
	st.Undo()
	w, _ := st.Shape("w1")
	if g := w.Geometry.(Segment); g.Start.X != 0 || g.End.X != 100 {
		t.Fatalf("undo did not revert both shapes: %+v", g)
	}
	if st.HistoryState().CanUndo {
		t.Fatal("group translate should be a single history entry")
	}
}

func TestReplacePlanShapesSkipsInvalidAndClearsHistory(t *testing.T) {
	st, _ := newTestStore(t)
	st.AddShape(wall("old", 0, 0, 1, 0))
	n := st.ReplacePlanShapes("plan-1", []Shape{
		wall("w1", 0, 0, 10, 0),
		{ID: "bad", Kind: KindCircle, Geometry: Segment{}},
		wall("w1", 5, 5, 6, 6),
	})
	if n != 1 {
		t.Fatalf("installed = %d, want 1", n)
	}
	if _, ok := st.Shape("old"); ok {
		t.Fatal("old shape should be replaced")
	}
	if st.HistoryState().CanUndo {
		t.Fatal("rehydration must clear history")
	}
}

func TestSettingsSetters(t *testing.T) {
	st := NewStore()
	if err := st.SetScale("architectural"); err != nil {
		t.Fatal(err)
	}
	if err := st.SetGridInterval(100); err != nil {
		t.Fatal(err)
	}
	if got := st.SnapSize(); got != 50 {
		t.Fatalf("snap size = %v, want 50", got)
	}
	if err := st.SetScale("huge"); !IsValidation(err) {
		t.Fatalf("err = %v", err)
	}
	if err := st.SetGridInterval(0); !IsValidation(err) {
		t.Fatalf("err = %v", err)
	}
	if err := st.SetUnit("ft"); !IsValidation(err) {
		t.Fatalf("err = %v", err)
	}
	if err := st.SetCanvasSize(-1, 3); !IsValidation(err) {
		t.Fatalf("err = %v", err)
	}

	snap := st.Settings().SnapEnabled
	st.ToggleSnap()
	st.ToggleGrid()
	st.ToggleDimensions()
	st.ToggleAreaLabels()
	s := st.Settings()
	if s.SnapEnabled == snap || s.GridVisible || s.ShowDimensions || s.ShowAreaLabels {
		t.Fatalf("toggles not applied: %+v", s)
	}
}

func TestViewModeEvents(t *testing.T) {
	st := NewStore()
	var kinds []EventKind
	st.Subscribe(func(ev Event) { kinds = append(kinds, ev.Kind) })
	if err := st.SetViewMode(ViewElevation); err != nil {
		t.Fatal(err)
	}
	st.SetViewMode(ViewElevation)
	if err := st.SetViewMode("side"); !IsValidation(err) {
		t.Fatalf("err = %v", err)
	}
	if !slices.Equal(kinds, []EventKind{EventViewModeChanged}) {
		t.Fatalf("events = %v", kinds)
	}
	st.SetZoom(100)
	if st.View().Zoom != MaxZoom {
		t.Fatalf("zoom not clamped: %v", st.View().Zoom)
	}
}

func TestUnsubscribe(t *testing.T) {
	st, _ := newTestStore(t)
	calls := 0
	stop := st.Subscribe(func(Event) { calls++ })
	st.AddShape(wall("w1", 0, 0, 1, 0))
	stop()
	st.AddShape(wall("w2", 0, 0, 1, 0))
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func boolPtr(b bool) *bool { return &b }
