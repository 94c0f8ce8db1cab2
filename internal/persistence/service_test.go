package persistence

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"floorplan-studio-backend/internal/cache"
	"floorplan-studio-backend/internal/models"
	"floorplan-studio-backend/internal/repo"
	"floorplan-studio-backend/internal/scene"
)

var errRemoteDown = errors.New("connection refused")

// flakyRemote is the in-memory repository with a switch that makes every
// call fail.
type flakyRemote struct {
	*repo.Memory
	down       atomic.Bool
	upsertDown atomic.Bool

	inflight    atomic.Int32
	maxInflight atomic.Int32
	delay       time.Duration
}

func newFlaky() *flakyRemote { return &flakyRemote{Memory: repo.NewMemory()} }

func (f *flakyRemote) GetPlansByProject(ctx context.Context, projectID string) ([]models.Plan, error) {
	if f.down.Load() {
		return nil, errRemoteDown
	}
	return f.Memory.GetPlansByProject(ctx, projectID)
}

func (f *flakyRemote) GetPlanShapes(ctx context.Context, planID string) ([]models.PlanShape, error) {
	if f.down.Load() {
		return nil, errRemoteDown
	}
	return f.Memory.GetPlanShapes(ctx, planID)
}

func (f *flakyRemote) UpsertShapes(ctx context.Context, rows []models.PlanShape) error {
	n := f.inflight.Add(1)
	defer f.inflight.Add(-1)
	for {
		m := f.maxInflight.Load()
		if n <= m || f.maxInflight.CompareAndSwap(m, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.down.Load() || f.upsertDown.Load() {
		return errRemoteDown
	}
	return f.Memory.UpsertShapes(ctx, rows)
}

func (f *flakyRemote) DeleteShapesNotIn(ctx context.Context, planID string, keep []string) (int64, error) {
	if f.down.Load() {
		return 0, errRemoteDown
	}
	return f.Memory.DeleteShapesNotIn(ctx, planID, keep)
}

type brokenCache struct{ *cache.MemoryStore }

func (brokenCache) Put(context.Context, string, []byte) error { return errors.New("disk full") }

type recordingArchiver struct {
	mu    sync.Mutex
	plans []string
}

func (r *recordingArchiver) ArchivePlan(_ context.Context, projectID, planID string, payload []byte) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plans = append(r.plans, planID)
	return "archive/" + projectID + "/" + planID + ".json", nil
}

func newService(t *testing.T) (*Service, *flakyRemote) {
	t.Helper()
	remote := newFlaky()
	return NewService(remote, remote, cache.NewMemoryStore()), remote
}

func sampleShapes(planID string) []scene.Shape {
	return []scene.Shape{
		{ID: "wall-1", PlanID: planID, Kind: scene.KindWall, Geometry: scene.Segment{Start: scene.Point{X: 0, Y: 0}, End: scene.Point{X: 1000, Y: 0}}, ThicknessMM: scene.Float(200), ZIndex: 1},
		{ID: "room-1", PlanID: planID, Kind: scene.KindRoom, Geometry: scene.Path{Points: []scene.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}}}, RoomID: "kitchen", FillColor: "#eee", ZIndex: 2},
		{ID: "door-1", PlanID: planID, Kind: scene.KindSymbol, Geometry: scene.Anchor{At: scene.Point{X: 5, Y: 5}}, SymbolType: "door",
			ParentWallID: "wall-1", WallRelative: &scene.WallRelativePosition{WallID: "wall-1", DistanceFromWallStart: 300, Width: 90, Height: 210}, ZIndex: 3,
			Metadata: map[string]any{"swing": "left"}},
		{ID: "img-1", PlanID: planID, Kind: scene.KindImage, Geometry: scene.Rect{Left: 1, Top: 2, Width: 30, Height: 40}, ImageURL: "https://example.com/p.png", ImageOpacity: scene.Float(0.5), Locked: true, ZIndex: 4},
	}
}

func stripTimes(shapes []scene.Shape) []scene.Shape {
	out := make([]scene.Shape, len(shapes))
	for i, s := range shapes {
		s.CreatedAt, s.UpdatedAt = time.Time{}, time.Time{}
		out[i] = s
	}
	return out
}

func byID(shapes []scene.Shape) map[string]scene.Shape {
	m := make(map[string]scene.Shape, len(shapes))
	for _, s := range stripTimes(shapes) {
		m[s.ID] = s
	}
	return m
}

func TestSaveThenLoadWithFailingRemote(t *testing.T) {
	svc, remote := newService(t)
	ctx := context.Background()
	remote.down.Store(true)

	want := sampleShapes("plan-1")
	res, err := svc.SaveShapesForPlan(ctx, "proj", "plan-1", want)
	if err != nil {
		t.Fatalf("SaveShapesForPlan: %v", err)
	}
	if !res.PendingSync || res.Saved != len(want) {
		t.Fatalf("result = %+v, want pending with %d saved", res, len(want))
	}

	got, err := svc.LoadShapesForPlan(ctx, "plan-1")
	if err != nil {
		t.Fatalf("LoadShapesForPlan: %v", err)
	}
	if got.Source != SourceCache || !got.PendingSync {
		t.Fatalf("load = %+v, want cache-sourced pending", got)
	}
	if !reflect.DeepEqual(byID(got.Shapes), byID(want)) {
		t.Fatalf("shapes differ:\n got %+v\nwant %+v", byID(got.Shapes), byID(want))
	}
}

func TestSaveThenLoadRemote(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	want := sampleShapes("plan-1")

	res, err := svc.SaveShapesForPlan(ctx, "proj", "plan-1", want)
	if err != nil || res.PendingSync {
		t.Fatalf("save = %+v, %v", res, err)
	}
	got, err := svc.LoadShapesForPlan(ctx, "plan-1")
	if err != nil {
		t.Fatalf("LoadShapesForPlan: %v", err)
	}
	if got.Source != SourceRemote || got.Degraded {
		t.Fatalf("load = %+v, want remote", got)
	}
	if !reflect.DeepEqual(byID(got.Shapes), byID(want)) {
		t.Fatalf("shapes differ:\n got %+v\nwant %+v", byID(got.Shapes), byID(want))
	}
}

func TestSaveReconcilesDeletions(t *testing.T) {
	svc, remote := newService(t)
	ctx := context.Background()
	shapes := sampleShapes("plan-1")
	if _, err := svc.SaveShapesForPlan(ctx, "proj", "plan-1", shapes); err != nil {
		t.Fatalf("save: %v", err)
	}

	res, err := svc.SaveShapesForPlan(ctx, "proj", "plan-1", shapes[:2])
	if err != nil {
		t.Fatalf("second save: %v", err)
	}
	if res.Deleted != 2 {
		t.Fatalf("deleted = %d, want 2", res.Deleted)
	}
	rows, _ := remote.Memory.GetPlanShapes(ctx, "plan-1")
	if len(rows) != 2 {
		t.Fatalf("remote rows = %d, want 2", len(rows))
	}
}

func TestSaveRejectsForeignShape(t *testing.T) {
	svc, _ := newService(t)
	shapes := sampleShapes("plan-2")
	if _, err := svc.SaveShapesForPlan(context.Background(), "proj", "plan-1", shapes); !scene.IsValidation(err) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestSaveFailsWhenCacheFails(t *testing.T) {
	remote := newFlaky()
	svc := NewService(remote, remote, brokenCache{cache.NewMemoryStore()})
	_, err := svc.SaveShapesForPlan(context.Background(), "proj", "plan-1", sampleShapes("plan-1"))
	if err == nil {
		t.Fatal("expected cache failure to surface")
	}
	if rows, _ := remote.Memory.GetPlanShapes(context.Background(), "plan-1"); len(rows) != 0 {
		t.Fatal("remote written although the cache write failed")
	}
}

func TestRetryPendingSync(t *testing.T) {
	svc, remote := newService(t)
	ctx := context.Background()
	remote.down.Store(true)
	if _, err := svc.SaveShapesForPlan(ctx, "proj", "plan-1", sampleShapes("plan-1")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if got := svc.PendingPlans(); len(got) != 1 || got[0] != "plan-1" {
		t.Fatalf("pending = %v", got)
	}

	if _, err := svc.RetryPendingSync(ctx); err == nil {
		t.Fatal("retry with remote down should fail")
	}

	remote.down.Store(false)
	synced, err := svc.RetryPendingSync(ctx)
	if err != nil {
		t.Fatalf("RetryPendingSync: %v", err)
	}
	if len(synced) != 1 || len(svc.PendingPlans()) != 0 {
		t.Fatalf("synced=%v pending=%v", synced, svc.PendingPlans())
	}
	rows, _ := remote.Memory.GetPlanShapes(ctx, "plan-1")
	if len(rows) != 4 {
		t.Fatalf("remote rows = %d, want 4", len(rows))
	}
}

func TestOfflineSaveAndLoad(t *testing.T) {
	svc, remote := newService(t)
	ctx := context.Background()
	svc.SetOffline(true)

	res, err := svc.SaveShapesForPlan(ctx, "proj", "plan-1", sampleShapes("plan-1"))
	if err != nil || !res.PendingSync {
		t.Fatalf("save = %+v, %v", res, err)
	}
	if rows, _ := remote.Memory.GetPlanShapes(ctx, "plan-1"); len(rows) != 0 {
		t.Fatal("offline save reached the remote")
	}

	empty, err := svc.LoadShapesForPlan(ctx, "never-saved")
	if err != nil || !empty.Degraded || len(empty.Shapes) != 0 {
		t.Fatalf("offline load of unknown plan = %+v, %v", empty, err)
	}

	if _, err := svc.CreatePlan(ctx, "proj", "Basement", false); !errors.Is(err, ErrOffline) || !IsNetwork(err) {
		t.Fatalf("CreatePlan offline: %v", err)
	}
}

func TestLoadPlansFallsBackToCache(t *testing.T) {
	svc, remote := newService(t)
	ctx := context.Background()
	if _, err := svc.CreatePlan(ctx, "proj", "Ground", true); err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}
	if res, err := svc.LoadPlans(ctx, "proj"); err != nil || res.Source != SourceRemote || len(res.Plans) != 1 {
		t.Fatalf("remote load = %+v, %v", res, err)
	}

	remote.down.Store(true)
	res, err := svc.LoadPlans(ctx, "proj")
	if err != nil {
		t.Fatalf("LoadPlans: %v", err)
	}
	if !res.Degraded || res.Source != SourceCache || len(res.Plans) != 1 || res.Plans[0].Name != "Ground" {
		t.Fatalf("degraded load = %+v", res)
	}

	if _, err := svc.LoadPlans(ctx, "other"); !IsNetwork(err) {
		t.Fatalf("uncached project with remote down: %v, want network error", err)
	}
}

func TestLoadShapesRemoteDownCacheMiss(t *testing.T) {
	svc, remote := newService(t)
	remote.down.Store(true)
	_, err := svc.LoadShapesForPlan(context.Background(), "plan-x")
	var ne *NetworkError
	if !errors.As(err, &ne) || !errors.Is(err, errRemoteDown) {
		t.Fatalf("err = %v, want NetworkError wrapping the remote failure", err)
	}
}

func TestEnsurePlansCreatesFirstDefault(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	res, err := svc.EnsurePlans(ctx, "proj")
	if err != nil {
		t.Fatalf("EnsurePlans: %v", err)
	}
	if len(res.Plans) != 1 || !res.Plans[0].IsDefault {
		t.Fatalf("plans = %+v", res.Plans)
	}
	again, err := svc.EnsurePlans(ctx, "proj")
	if err != nil || len(again.Plans) != 1 || again.Plans[0].ID != res.Plans[0].ID {
		t.Fatalf("second EnsurePlans = %+v, %v", again, err)
	}
}

func TestPlanCRUD(t *testing.T) {
	remote := newFlaky()
	arch := &recordingArchiver{}
	svc := NewService(remote, remote, cache.NewMemoryStore(), WithArchiver(arch))
	ctx := context.Background()

	first, err := svc.CreatePlan(ctx, "proj", "Ground", true)
	if err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}
	if err := svc.DeletePlan(ctx, "proj", first.ID); !errors.Is(err, ErrLastPlan) {
		t.Fatalf("delete last plan: %v", err)
	}
	if _, err := svc.CreatePlan(ctx, "proj", "  ", false); !scene.IsValidation(err) {
		t.Fatalf("blank name: %v", err)
	}

	second, err := svc.CreatePlan(ctx, "proj", "Upper", false)
	if err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}
	renamed, err := svc.RenamePlan(ctx, second.ID, "Attic")
	if err != nil || renamed.Name != "Attic" {
		t.Fatalf("RenamePlan = %+v, %v", renamed, err)
	}
	if _, err := svc.RenamePlan(ctx, "ghost", "x"); !scene.IsNotFound(err) {
		t.Fatalf("rename unknown: %v", err)
	}
	if err := svc.SetDefaultPlan(ctx, "proj", second.ID); err != nil {
		t.Fatalf("SetDefaultPlan: %v", err)
	}
	res, _ := svc.LoadPlans(ctx, "proj")
	for _, p := range res.Plans {
		if p.IsDefault != (p.ID == second.ID) {
			t.Fatalf("default flags wrong: %+v", res.Plans)
		}
	}

	if _, err := svc.SaveShapesForPlan(ctx, "proj", first.ID, sampleShapes(first.ID)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := svc.DeletePlan(ctx, "proj", first.ID); err != nil {
		t.Fatalf("DeletePlan: %v", err)
	}
	if len(arch.plans) != 1 || arch.plans[0] != first.ID {
		t.Fatalf("archived = %v", arch.plans)
	}
	if _, err := svc.cache.Get(ctx, cache.ShapesKey(first.ID)); !errors.Is(err, cache.ErrMiss) {
		t.Fatalf("cached shapes kept after delete: %v", err)
	}
	if err := svc.DeletePlan(ctx, "proj", "ghost"); !scene.IsNotFound(err) {
		t.Fatalf("delete unknown: %v", err)
	}
}

func TestMergePlansCount(t *testing.T) {
	svc, remote := newService(t)
	ctx := context.Background()
	a, _ := svc.CreatePlan(ctx, "proj", "A", true)
	b, _ := svc.CreatePlan(ctx, "proj", "B", false)

	aShapes := sampleShapes(a.ID)
	bShapes := []scene.Shape{
		{ID: "b-1", PlanID: b.ID, Kind: scene.KindCircle, Geometry: scene.Circle{Center: scene.Point{X: 1, Y: 1}, Radius: 3}},
		{ID: "b-2", PlanID: b.ID, Kind: scene.KindText, Geometry: scene.Anchor{At: scene.Point{X: 2, Y: 2}}, Text: "Hall"},
	}
	for _, save := range []struct {
		plan   string
		shapes []scene.Shape
	}{{a.ID, aShapes}, {b.ID, bShapes}} {
		if _, err := svc.SaveShapesForPlan(ctx, "proj", save.plan, save.shapes); err != nil {
			t.Fatalf("save %s: %v", save.plan, err)
		}
	}

	res, err := svc.MergePlans(ctx, "proj", []string{a.ID, b.ID}, "Merged")
	if err != nil {
		t.Fatalf("MergePlans: %v", err)
	}
	if res.ShapeCount != len(aShapes)+len(bShapes) {
		t.Fatalf("count = %d, want %d", res.ShapeCount, len(aShapes)+len(bShapes))
	}
	rows, _ := remote.Memory.GetPlanShapes(ctx, res.Plan.ID)
	if len(rows) != res.ShapeCount {
		t.Fatalf("remote rows = %d", len(rows))
	}

	merged := recordsToShapes(rows)
	var wallID string
	for _, s := range merged {
		if s.ID == "wall-1" || s.ID == "b-1" {
			t.Fatalf("source id %s reused", s.ID)
		}
		if s.Kind == scene.KindWall {
			wallID = s.ID
		}
	}
	for _, s := range merged {
		if s.WallRelative != nil && (s.WallRelative.WallID != wallID || s.ParentWallID != wallID) {
			t.Fatalf("mount not re-pointed: %+v (wall %s)", s.WallRelative, wallID)
		}
	}

	if src, _ := remote.Memory.GetPlanShapes(ctx, a.ID); len(src) != len(aShapes) {
		t.Fatal("source plan changed by merge")
	}
}

func TestMergePlansErrors(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	if _, err := svc.MergePlans(ctx, "proj", nil, "M"); !scene.IsValidation(err) {
		t.Fatalf("no sources: %v", err)
	}
	if _, err := svc.MergePlans(ctx, "proj", []string{"ghost"}, "M"); !scene.IsNotFound(err) {
		t.Fatalf("unknown source: %v", err)
	}

	mine, _ := svc.CreatePlan(ctx, "proj", "Mine", true)
	theirs, _ := svc.CreatePlan(ctx, "other", "Theirs", true)
	if _, err := svc.MergePlans(ctx, "proj", []string{mine.ID, theirs.ID}, "M"); !scene.IsValidation(err) {
		t.Fatalf("foreign source: %v", err)
	}
}

func TestMergePlansRollsBackOnUpsertFailure(t *testing.T) {
	svc, remote := newService(t)
	ctx := context.Background()
	a, _ := svc.CreatePlan(ctx, "proj", "A", true)
	b, _ := svc.CreatePlan(ctx, "proj", "B", false)
	if _, err := svc.SaveShapesForPlan(ctx, "proj", a.ID, sampleShapes(a.ID)); err != nil {
		t.Fatalf("save: %v", err)
	}

	remote.upsertDown.Store(true)
	_, err := svc.MergePlans(ctx, "proj", []string{a.ID, b.ID}, "Merged")
	if !IsNetwork(err) {
		t.Fatalf("merge err = %v, want network error", err)
	}

	rows, _ := remote.Memory.GetPlansByProject(ctx, "proj")
	if len(rows) != 2 {
		t.Fatalf("remote plans after failed merge = %d, want 2", len(rows))
	}
	res, err := svc.LoadPlans(ctx, "proj")
	if err != nil {
		t.Fatalf("LoadPlans: %v", err)
	}
	if len(res.Plans) != 2 {
		t.Fatalf("plans after failed merge = %v", res.Plans)
	}
}

func TestSavesSerializedPerPlan(t *testing.T) {
	svc, remote := newService(t)
	remote.delay = 20 * time.Millisecond
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.SaveShapesForPlan(ctx, "proj", "plan-1", sampleShapes("plan-1")); err != nil {
				t.Errorf("save: %v", err)
			}
		}()
	}
	wg.Wait()
	if m := remote.maxInflight.Load(); m != 1 {
		t.Fatalf("max concurrent saves of one plan = %d, want 1", m)
	}
}

func TestCodecRejectsUnknownType(t *testing.T) {
	rec := models.PlanShape{ID: "x", ShapeType: "hexagon", ShapeData: []byte(`{"coordinates":{}}`)}
	if _, err := RecordToShape(rec); err == nil {
		t.Fatal("expected error for unknown shape type")
	}
	bad := scene.Shape{ID: "y", Kind: scene.KindWall, Geometry: scene.Rect{}}
	if _, err := ShapeToRecord("proj", bad); !scene.IsValidation(err) {
		t.Fatalf("mismatched geometry: %v", err)
	}
}

func TestCodecColumns(t *testing.T) {
	s := sampleShapes("plan-1")[1]
	rec, err := ShapeToRecord("proj", s)
	if err != nil {
		t.Fatalf("ShapeToRecord: %v", err)
	}
	if rec.ShapeType != "room" || rec.Color != "#eee" || rec.RoomID == nil || *rec.RoomID != "kitchen" || rec.ProjectID != "proj" {
		t.Fatalf("record = %+v", rec)
	}
}
