// Package persistence mirrors the scene store to a durable local cache and a
// best-effort remote store. The cache is always written first; the remote
// is upserted afterwards and reconciled by deleting rows the save no longer
// contains.
package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"floorplan-studio-backend/internal/cache"
	"floorplan-studio-backend/internal/models"
	"floorplan-studio-backend/internal/repo"
	"floorplan-studio-backend/internal/scene"
)

// Source says which tier served a load.
type Source string

const (
	SourceRemote Source = "remote"
	SourceCache  Source = "cache"
)

// ShapesResult is the outcome of LoadShapesForPlan. Degraded means the
// remote could not be reached and the shapes came from the cache.
type ShapesResult struct {
	Shapes      []scene.Shape
	Source      Source
	Degraded    bool
	PendingSync bool
	CachedAt    time.Time
}

// PlansResult is the outcome of LoadPlans.
type PlansResult struct {
	Plans    []scene.Plan
	Source   Source
	Degraded bool
}

// SaveResult reports how far a save got. A save that reached the cache is a
// success; PendingSync means the remote still has to catch up.
type SaveResult struct {
	Saved       int
	Deleted     int64
	PendingSync bool
}

// Archiver keeps a copy of a plan's shapes before the plan is deleted.
type Archiver interface {
	ArchivePlan(ctx context.Context, projectID, planID string, payload []byte) (string, error)
}

// Option configures a Service.
type Option func(*Service)

// WithArchiver archives plan snapshots on delete.
func WithArchiver(a Archiver) Option {
	return func(s *Service) { s.archiver = a }
}

// Service is the two-tier plan repository.
type Service struct {
	plans  repo.PlanRepoInterface
	shapes repo.PlanShapeRepoInterface
	cache  cache.Store

	archiver Archiver
	offline  atomic.Bool

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	pendingMu sync.Mutex
	pending   map[string]string // plan id -> project id
}

func NewService(plans repo.PlanRepoInterface, shapes repo.PlanShapeRepoInterface, c cache.Store, opts ...Option) *Service {
	s := &Service{
		plans:   plans,
		shapes:  shapes,
		cache:   c,
		locks:   make(map[string]*sync.Mutex),
		pending: make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetOffline makes every operation skip the remote store until cleared.
func (s *Service) SetOffline(offline bool) {
	s.offline.Store(offline)
	log.Printf("[PERSIST] offline=%v", offline)
}

// Offline reports whether the remote store is being skipped.
func (s *Service) Offline() bool { return s.offline.Load() }

// lockPlan serializes saves of one plan.
func (s *Service) lockPlan(planID string) func() {
	s.locksMu.Lock()
	mu, ok := s.locks[planID]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[planID] = mu
	}
	s.locksMu.Unlock()
	mu.Lock()
	return mu.Unlock
}

func (s *Service) remoteErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &NetworkError{Op: op, Err: err}
}

// LoadPlans fetches the project's plans from the remote store and writes
// them through to the cache. When the remote fails, or the service is
// offline, the cached list is returned and marked degraded.
func (s *Service) LoadPlans(ctx context.Context, projectID string) (PlansResult, error) {
	var remoteErr error
	if s.Offline() {
		remoteErr = ErrOffline
	} else {
		rows, err := s.plans.GetPlansByProject(ctx, projectID)
		if err == nil {
			s.cachePlans(ctx, projectID, rows)
			loadsTotal.WithLabelValues("plans", string(SourceRemote)).Inc()
			return PlansResult{Plans: rowsToPlans(rows), Source: SourceRemote}, nil
		}
		remoteErr = err
		log.Printf("[PERSIST] load plans for %s: remote failed, using cache: %v", projectID, err)
	}

	entry, err := s.cache.Get(ctx, cache.PlansKey(projectID))
	if errors.Is(err, cache.ErrMiss) {
		if s.Offline() {
			return PlansResult{Source: SourceCache, Degraded: true}, nil
		}
		return PlansResult{}, s.remoteErr("load plans", remoteErr)
	}
	if err != nil {
		return PlansResult{}, fmt.Errorf("read cached plans: %w", err)
	}
	var rows []models.Plan
	if err := json.Unmarshal(entry.Payload, &rows); err != nil {
		return PlansResult{}, fmt.Errorf("decode cached plans: %w", err)
	}
	loadsTotal.WithLabelValues("plans", string(SourceCache)).Inc()
	return PlansResult{Plans: rowsToPlans(rows), Source: SourceCache, Degraded: true}, nil
}

// EnsurePlans loads the project's plans and, when the project has none,
// creates a first default plan.
func (s *Service) EnsurePlans(ctx context.Context, projectID string) (PlansResult, error) {
	res, err := s.LoadPlans(ctx, projectID)
	if err != nil || len(res.Plans) > 0 || res.Degraded {
		return res, err
	}
	p, err := s.CreatePlan(ctx, projectID, "Plan 1", true)
	if err != nil {
		return res, err
	}
	res.Plans = []scene.Plan{p}
	return res, nil
}

// LoadShapesForPlan fetches the plan's shapes, remote first with cache
// fallback. A plan whose last save has not reached the remote is served
// from the cache, which holds the newer copy.
func (s *Service) LoadShapesForPlan(ctx context.Context, planID string) (ShapesResult, error) {
	pending := s.isPending(planID)
	var remoteErr error
	switch {
	case pending:
	case s.Offline():
		remoteErr = ErrOffline
	default:
		rows, err := s.shapes.GetPlanShapes(ctx, planID)
		if err == nil {
			if err := s.cacheRows(ctx, planID, rows); err != nil {
				log.Printf("[PERSIST] write-through for plan %s failed: %v", planID, err)
			}
			loadsTotal.WithLabelValues("shapes", string(SourceRemote)).Inc()
			return ShapesResult{Shapes: recordsToShapes(rows), Source: SourceRemote}, nil
		}
		remoteErr = err
		log.Printf("[PERSIST] load shapes for %s: remote failed, using cache: %v", planID, err)
	}

	entry, err := s.cache.Get(ctx, cache.ShapesKey(planID))
	if errors.Is(err, cache.ErrMiss) {
		if remoteErr == nil || errors.Is(remoteErr, ErrOffline) {
			return ShapesResult{Source: SourceCache, Degraded: remoteErr != nil, PendingSync: pending}, nil
		}
		return ShapesResult{}, s.remoteErr("load shapes", remoteErr)
	}
	if err != nil {
		return ShapesResult{}, fmt.Errorf("read cached shapes: %w", err)
	}
	var rows []models.PlanShape
	if err := json.Unmarshal(entry.Payload, &rows); err != nil {
		return ShapesResult{}, fmt.Errorf("decode cached shapes: %w", err)
	}
	loadsTotal.WithLabelValues("shapes", string(SourceCache)).Inc()
	return ShapesResult{
		Shapes:      recordsToShapes(rows),
		Source:      SourceCache,
		Degraded:    remoteErr != nil,
		PendingSync: pending,
		CachedAt:    entry.UpdatedAt,
	}, nil
}

// SaveShapesForPlan writes the plan's complete shape set. The cache write
// must succeed; remote failures only raise PendingSync. Saves of the same
// plan never overlap.
func (s *Service) SaveShapesForPlan(ctx context.Context, projectID, planID string, shapes []scene.Shape) (SaveResult, error) {
	start := time.Now()
	defer func() { saveDuration.Observe(time.Since(start).Seconds()) }()

	unlock := s.lockPlan(planID)
	defer unlock()

	shapes = slices.Clone(shapes)
	for i := range shapes {
		if shapes[i].PlanID == "" {
			shapes[i].PlanID = planID
		} else if shapes[i].PlanID != planID {
			savesTotal.WithLabelValues("failed").Inc()
			return SaveResult{}, &scene.ValidationError{Field: "planId", Reason: "shape " + shapes[i].ID + " belongs to plan " + shapes[i].PlanID}
		}
	}
	rows, err := shapesToRecords(projectID, shapes)
	if err != nil {
		savesTotal.WithLabelValues("failed").Inc()
		return SaveResult{}, err
	}
	if err := s.cacheRows(ctx, planID, rows); err != nil {
		savesTotal.WithLabelValues("failed").Inc()
		log.Printf("[PERSIST] save %s: cache write failed: %v", planID, err)
		return SaveResult{}, fmt.Errorf("cache write for plan %s: %w", planID, err)
	}

	res := SaveResult{Saved: len(rows)}
	if s.Offline() {
		s.markPending(planID, projectID)
		res.PendingSync = true
		savesTotal.WithLabelValues("pending").Inc()
		return res, nil
	}
	deleted, err := s.pushRemote(ctx, planID, rows)
	if err != nil {
		log.Printf("[PERSIST] save %s: remote sync deferred: %v", planID, err)
		s.markPending(planID, projectID)
		res.PendingSync = true
		savesTotal.WithLabelValues("pending").Inc()
		return res, nil
	}
	s.clearPending(planID)
	res.Deleted = deleted
	savesTotal.WithLabelValues("synced").Inc()
	return res, nil
}

// pushRemote upserts rows and deletes the plan's remote rows that are not
// among them.
func (s *Service) pushRemote(ctx context.Context, planID string, rows []models.PlanShape) (int64, error) {
	if err := s.shapes.UpsertShapes(ctx, rows); err != nil {
		return 0, &NetworkError{Op: "upsert shapes", Err: err}
	}
	keep := make([]string, 0, len(rows))
	for _, r := range rows {
		keep = append(keep, r.ID)
	}
	n, err := s.shapes.DeleteShapesNotIn(ctx, planID, keep)
	if err != nil {
		return 0, &NetworkError{Op: "reconcile shapes", Err: err}
	}
	if n > 0 {
		remoteDeletesTotal.Add(float64(n))
		log.Printf("[PERSIST] plan %s: removed %d remote shapes", planID, n)
	}
	return n, nil
}

// RetryPendingSync pushes every pending plan's cached shapes to the remote
// store. It returns the plans that are now in sync.
func (s *Service) RetryPendingSync(ctx context.Context) ([]string, error) {
	if s.Offline() {
		return nil, &NetworkError{Op: "retry sync", Err: ErrOffline}
	}
	s.pendingMu.Lock()
	todo := maps.Clone(s.pending)
	s.pendingMu.Unlock()

	var (
		synced []string
		errs   []error
	)
	for _, planID := range slices.Sorted(maps.Keys(todo)) {
		if err := s.retryPlan(ctx, planID); err != nil {
			errs = append(errs, err)
			continue
		}
		synced = append(synced, planID)
	}
	return synced, errors.Join(errs...)
}

func (s *Service) retryPlan(ctx context.Context, planID string) error {
	unlock := s.lockPlan(planID)
	defer unlock()
	entry, err := s.cache.Get(ctx, cache.ShapesKey(planID))
	if err != nil {
		return fmt.Errorf("read cached shapes for %s: %w", planID, err)
	}
	var rows []models.PlanShape
	if err := json.Unmarshal(entry.Payload, &rows); err != nil {
		return fmt.Errorf("decode cached shapes for %s: %w", planID, err)
	}
	if _, err := s.pushRemote(ctx, planID, rows); err != nil {
		return err
	}
	s.clearPending(planID)
	log.Printf("[PERSIST] plan %s synced", planID)
	return nil
}

// PendingPlans lists plans waiting for a remote sync.
func (s *Service) PendingPlans() []string {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	return slices.Sorted(maps.Keys(s.pending))
}

func (s *Service) isPending(planID string) bool {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	_, ok := s.pending[planID]
	return ok
}

func (s *Service) markPending(planID, projectID string) {
	s.pendingMu.Lock()
	s.pending[planID] = projectID
	pendingPlans.Set(float64(len(s.pending)))
	s.pendingMu.Unlock()
}

func (s *Service) clearPending(planID string) {
	s.pendingMu.Lock()
	delete(s.pending, planID)
	pendingPlans.Set(float64(len(s.pending)))
	s.pendingMu.Unlock()
}

func (s *Service) cacheRows(ctx context.Context, planID string, rows []models.PlanShape) error {
	if rows == nil {
		rows = []models.PlanShape{}
	}
	payload, err := json.Marshal(rows)
	if err != nil {
		return err
	}
	return s.cache.Put(ctx, cache.ShapesKey(planID), payload)
}

func (s *Service) cachePlans(ctx context.Context, projectID string, rows []models.Plan) {
	if rows == nil {
		rows = []models.Plan{}
	}
	payload, err := json.Marshal(rows)
	if err == nil {
		err = s.cache.Put(ctx, cache.PlansKey(projectID), payload)
	}
	if err != nil {
		log.Printf("[PERSIST] caching plans of %s failed: %v", projectID, err)
	}
}

// refreshPlans re-reads the project's plan list into the cache after a
// remote plan change.
func (s *Service) refreshPlans(ctx context.Context, projectID string) {
	rows, err := s.plans.GetPlansByProject(ctx, projectID)
	if err != nil {
		log.Printf("[PERSIST] refreshing plans of %s failed: %v", projectID, err)
		return
	}
	s.cachePlans(ctx, projectID, rows)
}

func rowsToPlans(rows []models.Plan) []scene.Plan {
	out := make([]scene.Plan, 0, len(rows))
	for _, r := range rows {
		out = append(out, RecordToPlan(r))
	}
	return out
}
