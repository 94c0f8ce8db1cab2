package repo

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"floorplan-studio-backend/internal/models"

	"github.com/google/uuid"
)

// Memory keeps plans and shapes in process. It backs REMOTE_DRIVER=memory
// and tests; it satisfies both repository interfaces.
type Memory struct {
	mu     sync.Mutex
	plans  map[string]models.Plan
	shapes map[string]models.PlanShape
	now    func() time.Time
}

var (
	_ PlanRepoInterface      = (*Memory)(nil)
	_ PlanShapeRepoInterface = (*Memory)(nil)
)

func NewMemory() *Memory {
	return &Memory{
		plans:  make(map[string]models.Plan),
		shapes: make(map[string]models.PlanShape),
		now:    time.Now,
	}
}

func (m *Memory) CreatePlan(ctx context.Context, plan *models.Plan) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if plan.ID == "" {
		plan.ID = uuid.NewString()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	plan.CreatedAt = now
	plan.UpdatedAt = now
	if plan.IsDefault {
		m.clearDefaultLocked(plan.ProjectID)
	}
	m.plans[plan.ID] = *plan
	return plan.ID, nil
}

func (m *Memory) GetPlansByProject(ctx context.Context, projectID string) ([]models.Plan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Plan
	for _, p := range m.plans {
		if p.ProjectID == projectID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) GetPlan(ctx context.Context, id string) (models.Plan, error) {
	if err := ctx.Err(); err != nil {
		return models.Plan{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.plans[id]
	if !ok {
		return models.Plan{}, ErrNotFound
	}
	return p, nil
}

func (m *Memory) RenamePlan(ctx context.Context, id, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.plans[id]
	if !ok {
		return ErrNotFound
	}
	p.Name = name
	p.UpdatedAt = m.now()
	m.plans[id] = p
	return nil
}

func (m *Memory) DeletePlan(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.plans[id]; !ok {
		return ErrNotFound
	}
	delete(m.plans, id)
	for sid, s := range m.shapes {
		if s.PlanID == id {
			delete(m.shapes, sid)
		}
	}
	return nil
}

func (m *Memory) SetDefaultPlan(ctx context.Context, projectID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.plans[id]
	if !ok || p.ProjectID != projectID {
		return ErrNotFound
	}
	m.clearDefaultLocked(projectID)
	p.IsDefault = true
	p.UpdatedAt = m.now()
	m.plans[id] = p
	return nil
}

func (m *Memory) clearDefaultLocked(projectID string) {
	for id, p := range m.plans {
		if p.ProjectID == projectID && p.IsDefault {
			p.IsDefault = false
			m.plans[id] = p
		}
	}
}

func (m *Memory) GetPlanShapes(ctx context.Context, planID string) ([]models.PlanShape, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.PlanShape
	for _, s := range m.shapes {
		if s.PlanID == planID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) UpsertShapes(ctx context.Context, rows []models.PlanShape) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for _, row := range rows {
		row.UpdatedAt = now
		if existing, ok := m.shapes[row.ID]; ok {
			row.CreatedAt = existing.CreatedAt
		} else {
			row.CreatedAt = now
		}
		row.ShapeData = slices.Clone(row.ShapeData)
		m.shapes[row.ID] = row
	}
	return nil
}

func (m *Memory) DeleteShapesNotIn(ctx context.Context, planID string, keep []string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, s := range m.shapes {
		if s.PlanID == planID && !slices.Contains(keep, id) {
			delete(m.shapes, id)
			n++
		}
	}
	return n, nil
}

func (m *Memory) ClearPlanShapes(ctx context.Context, planID string) error {
	_, err := m.DeleteShapesNotIn(ctx, planID, nil)
	return err
}
