package repo

import (
	"context"
	"errors"
	"time"

	"floorplan-studio-backend/internal/models"

	"gorm.io/gorm"
)

type PlanShapeRepo struct {
	db *gorm.DB
}

type PlanShapeRepoInterface interface {
	GetPlanShapes(ctx context.Context, planID string) ([]models.PlanShape, error)
	UpsertShapes(ctx context.Context, rows []models.PlanShape) error
	DeleteShapesNotIn(ctx context.Context, planID string, keep []string) (int64, error)
	ClearPlanShapes(ctx context.Context, planID string) error
}

// NewPlanShapeRepository returns a new instance of PlanShapeRepo
func NewPlanShapeRepository(db *gorm.DB) PlanShapeRepoInterface {
	return &PlanShapeRepo{db: db}
}

func (r *PlanShapeRepo) GetPlanShapes(ctx context.Context, planID string) ([]models.PlanShape, error) {
	var rows []models.PlanShape
	err := r.db.WithContext(ctx).Where("plan_id = ?", planID).Order("created_at asc").Find(&rows).Error
	return rows, err
}

// UpsertShapes updates rows whose id exists and inserts the rest, in one
// transaction. The original created_at of existing rows is kept.
func (r *PlanShapeRepo) UpsertShapes(ctx context.Context, rows []models.PlanShape) error {
	if len(rows) == 0 {
		return nil
	}
	now := time.Now()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range rows {
			row := rows[i]
			row.UpdatedAt = now

			var existing models.PlanShape
			result := tx.Where("id = ?", row.ID).First(&existing)
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				row.CreatedAt = now
				if err := tx.Create(&row).Error; err != nil {
					return err
				}
				continue
			} else if result.Error != nil {
				return result.Error
			}

			// preserve original CreatedAt
			row.CreatedAt = existing.CreatedAt
			if err := tx.Model(&existing).Select("*").Updates(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteShapesNotIn removes the plan's rows whose id is not in keep.
func (r *PlanShapeRepo) DeleteShapesNotIn(ctx context.Context, planID string, keep []string) (int64, error) {
	q := r.db.WithContext(ctx).Where("plan_id = ?", planID)
	if len(keep) > 0 {
		q = q.Where("id NOT IN ?", keep)
	}
	res := q.Delete(&models.PlanShape{})
	return res.RowsAffected, res.Error
}

func (r *PlanShapeRepo) ClearPlanShapes(ctx context.Context, planID string) error {
	return r.db.WithContext(ctx).Where("plan_id = ?", planID).Delete(&models.PlanShape{}).Error
}
