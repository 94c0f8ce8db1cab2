package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// PlanShape is one row of the plan_shapes table. Everything that is not a
// column lives in ShapeData.
type PlanShape struct {
	ID          string         `gorm:"primarykey" json:"id"`
	ProjectID   string         `gorm:"index;not null" json:"project_id"`
	PlanID      string         `gorm:"index;not null" json:"plan_id"`
	ShapeType   string         `gorm:"not null" json:"shape_type"`
	Color       string         `json:"color"`
	StrokeColor string         `json:"stroke_color"`
	ShapeData   datatypes.JSON `json:"shape_data"`
	RoomID      *string        `json:"room_id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func (PlanShape) TableName() string { return "plan_shapes" }

// WallRelative is the stored form of a wall mount.
type WallRelative struct {
	WallID                string  `json:"wallId"`
	DistanceFromWallStart float64 `json:"distanceFromWallStart"`
	ElevationBottom       float64 `json:"elevationBottom"`
	Width                 float64 `json:"width"`
	Height                float64 `json:"height"`
}

// ShapeData is the JSON document stored in plan_shapes.shape_data.
type ShapeData struct {
	Coordinates   json.RawMessage `json:"coordinates"`
	StrokeColor   string          `json:"strokeColor,omitempty"`
	FillColor     string          `json:"fillColor,omitempty"`
	Text          string          `json:"text,omitempty"`
	ThicknessMM   *float64        `json:"thicknessMM,omitempty"`
	HeightMM      *float64        `json:"heightMM,omitempty"`
	Name          string          `json:"name,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	SymbolType    string          `json:"symbolType,omitempty"`
	Category      string          `json:"category,omitempty"`
	Metadata      map[string]any  `json:"metadata,omitempty"`
	ImageURL      string          `json:"imageUrl,omitempty"`
	ImageOpacity  *float64        `json:"imageOpacity,omitempty"`
	Locked        bool            `json:"locked"`
	ZIndex        int             `json:"zIndex"`
	ShapeViewMode string          `json:"shapeViewMode,omitempty"`
	ParentWallID  string          `json:"parentWallId,omitempty"`
	WallRelative  *WallRelative   `json:"wallRelative,omitempty"`
	Material      string          `json:"material,omitempty"`
	MaterialColor string          `json:"materialColor,omitempty"`
	Manufacturer  string          `json:"manufacturer,omitempty"`
	ProductCode   string          `json:"productCode,omitempty"`
}
