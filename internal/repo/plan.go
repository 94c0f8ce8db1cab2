package repo

import (
	"context"
	"errors"
	"time"

	"floorplan-studio-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a plan does not exist.
var ErrNotFound = errors.New("record not found")

// PlanRepo represents the repository for the plan model
type PlanRepo struct {
	db *gorm.DB
}

type PlanRepoInterface interface {
	CreatePlan(ctx context.Context, plan *models.Plan) (string, error)
	GetPlansByProject(ctx context.Context, projectID string) ([]models.Plan, error)
	GetPlan(ctx context.Context, id string) (models.Plan, error)
	RenamePlan(ctx context.Context, id, name string) error
	DeletePlan(ctx context.Context, id string) error
	SetDefaultPlan(ctx context.Context, projectID, id string) error
}

func NewPlanRepository(db *gorm.DB) PlanRepoInterface {
	return &PlanRepo{db: db}
}

// CreatePlan inserts a plan. An empty ID gets a fresh uuid. A default plan
// clears the flag on the rest of the project in the same transaction.
func (r *PlanRepo) CreatePlan(ctx context.Context, plan *models.Plan) (string, error) {
	if plan.ID == "" {
		plan.ID = uuid.NewString()
	}
	now := time.Now()
	plan.CreatedAt = now
	plan.UpdatedAt = now
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if plan.IsDefault {
			if err := clearDefault(tx, plan.ProjectID); err != nil {
				return err
			}
		}
		return tx.Create(plan).Error
	})
	return plan.ID, err
}

// GetPlansByProject returns the project's plans, oldest first
func (r *PlanRepo) GetPlansByProject(ctx context.Context, projectID string) ([]models.Plan, error) {
	var plans []models.Plan
	err := r.db.WithContext(ctx).Where("project_id = ?", projectID).Order("created_at asc").Find(&plans).Error
	return plans, err
}

func (r *PlanRepo) GetPlan(ctx context.Context, id string) (models.Plan, error) {
	var plan models.Plan
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&plan).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return plan, ErrNotFound
	}
	return plan, err
}

func (r *PlanRepo) RenamePlan(ctx context.Context, id, name string) error {
	res := r.db.WithContext(ctx).Model(&models.Plan{}).Where("id = ?", id).
		Updates(map[string]any{"name": name, "updated_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeletePlan removes the plan and its shapes together
func (r *PlanRepo) DeletePlan(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("plan_id = ?", id).Delete(&models.PlanShape{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.Plan{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// SetDefaultPlan makes id the only default plan of the project
func (r *PlanRepo) SetDefaultPlan(ctx context.Context, projectID, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := clearDefault(tx, projectID); err != nil {
			return err
		}
		res := tx.Model(&models.Plan{}).Where("id = ? AND project_id = ?", id, projectID).
			Updates(map[string]any{"is_default": true, "updated_at": time.Now()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func clearDefault(tx *gorm.DB, projectID string) error {
	return tx.Model(&models.Plan{}).
		Where("project_id = ? AND is_default = ?", projectID, true).
		Update("is_default", false).Error
}
