package models

import (
	"time"

	"gorm.io/datatypes"
)

// Plan represents the floor_plans table
type Plan struct {
	ID           string         `gorm:"primarykey" json:"id"`
	ProjectID    string         `gorm:"index;not null" json:"project_id"`
	Name         string         `gorm:"not null" json:"name"`
	IsDefault    bool           `gorm:"not null;default:false" json:"is_default"`
	ViewSettings datatypes.JSON `json:"view_settings"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

func (Plan) TableName() string { return "floor_plans" }
