package repo

import (
	"context"
	"errors"
	"os"
	"slices"
	"testing"

	"floorplan-studio-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type backend struct {
	plans  PlanRepoInterface
	shapes PlanShapeRepoInterface
}

func backends(t *testing.T) map[string]backend {
	t.Helper()
	mem := NewMemory()
	out := map[string]backend{"memory": {plans: mem, shapes: mem}}

	dsn := os.Getenv("PLANS_TEST_DB_URL")
	if dsn == "" {
		return out
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	if err := db.AutoMigrate(&models.Plan{}, &models.PlanShape{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	out["postgres"] = backend{plans: NewPlanRepository(db), shapes: NewPlanShapeRepository(db)}
	return out
}

func row(id, planID, project string, data string) models.PlanShape {
	return models.PlanShape{
		ID:        id,
		ProjectID: project,
		PlanID:    planID,
		ShapeType: "wall",
		ShapeData: datatypes.JSON(data),
	}
}

func ids(rows []models.PlanShape) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.ID)
	}
	slices.Sort(out)
	return out
}

func TestPlanLifecycle(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			project := "proj-" + uuid.NewString()

			first := &models.Plan{ProjectID: project, Name: "Ground", IsDefault: true}
			id1, err := b.plans.CreatePlan(ctx, first)
			if err != nil {
				t.Fatalf("CreatePlan: %v", err)
			}
			id2, err := b.plans.CreatePlan(ctx, &models.Plan{ProjectID: project, Name: "Upper", IsDefault: true})
			if err != nil {
				t.Fatalf("CreatePlan: %v", err)
			}

			plans, err := b.plans.GetPlansByProject(ctx, project)
			if err != nil {
				t.Fatalf("GetPlansByProject: %v", err)
			}
			if len(plans) != 2 {
				t.Fatalf("got %d plans, want 2", len(plans))
			}
			defaults := 0
			for _, p := range plans {
				if p.IsDefault {
					defaults++
					if p.ID != id2 {
						t.Fatalf("default = %s, want %s", p.ID, id2)
					}
				}
			}
			if defaults != 1 {
				t.Fatalf("%d default plans", defaults)
			}

			if err := b.plans.SetDefaultPlan(ctx, project, id1); err != nil {
				t.Fatalf("SetDefaultPlan: %v", err)
			}
			p1, err := b.plans.GetPlan(ctx, id1)
			if err != nil || !p1.IsDefault {
				t.Fatalf("GetPlan = %+v, %v", p1, err)
			}

			if err := b.plans.RenamePlan(ctx, id2, "Attic"); err != nil {
				t.Fatalf("RenamePlan: %v", err)
			}
			if p2, _ := b.plans.GetPlan(ctx, id2); p2.Name != "Attic" {
				t.Fatalf("name = %q", p2.Name)
			}

			if err := b.shapes.UpsertShapes(ctx, []models.PlanShape{row(uuid.NewString(), id2, project, `{}`)}); err != nil {
				t.Fatalf("UpsertShapes: %v", err)
			}
			if err := b.plans.DeletePlan(ctx, id2); err != nil {
				t.Fatalf("DeletePlan: %v", err)
			}
			if rows, _ := b.shapes.GetPlanShapes(ctx, id2); len(rows) != 0 {
				t.Fatalf("shapes survived plan delete: %d", len(rows))
			}
			if _, err := b.plans.GetPlan(ctx, id2); !errors.Is(err, ErrNotFound) {
				t.Fatalf("GetPlan after delete: %v", err)
			}
			if err := b.plans.RenamePlan(ctx, id2, "x"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("RenamePlan missing: %v", err)
			}
		})
	}
}

func TestUpsertPreservesCreatedAt(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			plan, project := uuid.NewString(), "proj"
			id := uuid.NewString()

			if err := b.shapes.UpsertShapes(ctx, []models.PlanShape{row(id, plan, project, `{"v":1}`)}); err != nil {
				t.Fatalf("insert: %v", err)
			}
			before, _ := b.shapes.GetPlanShapes(ctx, plan)

			updated := row(id, plan, project, `{"v":2}`)
			updated.Color = "#ff0000"
			if err := b.shapes.UpsertShapes(ctx, []models.PlanShape{updated}); err != nil {
				t.Fatalf("update: %v", err)
			}
			after, _ := b.shapes.GetPlanShapes(ctx, plan)
			if len(after) != 1 {
				t.Fatalf("got %d rows, want 1", len(after))
			}
			if !after[0].CreatedAt.Equal(before[0].CreatedAt) {
				t.Fatalf("created_at changed: %v -> %v", before[0].CreatedAt, after[0].CreatedAt)
			}
			if after[0].Color != "#ff0000" {
				t.Fatalf("color = %q", after[0].Color)
			}
		})
	}
}

func TestDeleteShapesNotIn(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			plan, other := uuid.NewString(), uuid.NewString()
			a, bID, c, d := uuid.NewString(), uuid.NewString(), uuid.NewString(), uuid.NewString()
			rows := []models.PlanShape{row(a, plan, "p", `{}`), row(bID, plan, "p", `{}`), row(c, plan, "p", `{}`), row(d, other, "p", `{}`)}
			if err := b.shapes.UpsertShapes(ctx, rows); err != nil {
				t.Fatalf("UpsertShapes: %v", err)
			}

			n, err := b.shapes.DeleteShapesNotIn(ctx, plan, []string{a})
			if err != nil {
				t.Fatalf("DeleteShapesNotIn: %v", err)
			}
			if n != 2 {
				t.Fatalf("deleted %d, want 2", n)
			}
			got, _ := b.shapes.GetPlanShapes(ctx, plan)
			if !slices.Equal(ids(got), []string{a}) {
				t.Fatalf("remaining = %v", ids(got))
			}
			if kept, _ := b.shapes.GetPlanShapes(ctx, other); len(kept) != 1 {
				t.Fatal("other plan touched")
			}

			if err := b.shapes.ClearPlanShapes(ctx, other); err != nil {
				t.Fatalf("ClearPlanShapes: %v", err)
			}
			if kept, _ := b.shapes.GetPlanShapes(ctx, other); len(kept) != 0 {
				t.Fatal("other plan not cleared")
			}
		})
	}
}

func TestMemoryHonoursContext(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := m.GetPlansByProject(ctx, "p"); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
