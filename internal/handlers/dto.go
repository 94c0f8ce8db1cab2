package handlers

import (
	"encoding/json"
	"fmt"

	"floorplan-studio-backend/internal/models"
	"floorplan-studio-backend/internal/persistence"
	"floorplan-studio-backend/internal/scene"
)

// shapePatchDTO is the client form of a partial shape update. Coordinates are
// interpreted according to the kind of the shape being patched.
type shapePatchDTO struct {
	Coordinates json.RawMessage `json:"coordinates"`

	ThicknessMM  *float64 `json:"thicknessMM"`
	HeightMM     *float64 `json:"heightMM"`
	ImageOpacity *float64 `json:"imageOpacity"`

	Name        *string `json:"name"`
	Notes       *string `json:"notes"`
	StrokeColor *string `json:"strokeColor"`
	FillColor   *string `json:"fillColor"`
	Text        *string `json:"text"`
	SymbolType  *string `json:"symbolType"`
	Category    *string `json:"category"`
	ImageURL    *string `json:"imageUrl"`

	ZIndex       *int    `json:"zIndex"`
	Locked       *bool   `json:"locked"`
	RoomID       *string `json:"roomId"`
	ViewMode     *string `json:"shapeViewMode"`
	ParentWallID *string `json:"parentWallId"`

	WallRelative      *scene.WallRelativePosition `json:"wallRelative"`
	ClearWallRelative bool                        `json:"clearWallRelative"`

	Material      *string `json:"material"`
	MaterialColor *string `json:"materialColor"`
	Manufacturer  *string `json:"manufacturer"`
	ProductCode   *string `json:"productCode"`

	Metadata map[string]any `json:"metadata"`
}

func (d shapePatchDTO) toPatch(kind scene.Kind) (scene.ShapePatch, error) {
	p := scene.ShapePatch{
		ThicknessMM:       d.ThicknessMM,
		HeightMM:          d.HeightMM,
		ImageOpacity:      d.ImageOpacity,
		Name:              d.Name,
		Notes:             d.Notes,
		StrokeColor:       d.StrokeColor,
		FillColor:         d.FillColor,
		Text:              d.Text,
		SymbolType:        d.SymbolType,
		Category:          d.Category,
		ImageURL:          d.ImageURL,
		ZIndex:            d.ZIndex,
		Locked:            d.Locked,
		RoomID:            d.RoomID,
		ViewMode:          d.ViewMode,
		ParentWallID:      d.ParentWallID,
		WallRelative:      d.WallRelative,
		ClearWallRelative: d.ClearWallRelative,
		Material:          d.Material,
		MaterialColor:     d.MaterialColor,
		Manufacturer:      d.Manufacturer,
		ProductCode:       d.ProductCode,
		Metadata:          d.Metadata,
	}
	if len(d.Coordinates) > 0 {
		// reuse the stored-row decoder so both paths accept the same shapes
		rec := models.PlanShape{ShapeType: string(kind)}
		raw, err := json.Marshal(models.ShapeData{Coordinates: d.Coordinates})
		if err != nil {
			return p, err
		}
		rec.ShapeData = raw
		s, err := persistence.RecordToShape(rec)
		if err != nil {
			return p, &scene.ValidationError{Field: "coordinates", Reason: err.Error()}
		}
		p.Geometry = s.Geometry
	}
	return p, nil
}

// decodeShape parses a plan_shapes style record sent by a client.
func decodeShape(raw []byte, planID string) (scene.Shape, error) {
	var rec models.PlanShape
	if err := json.Unmarshal(raw, &rec); err != nil {
		return scene.Shape{}, &scene.ValidationError{Field: "shape", Reason: "invalid JSON"}
	}
	if planID != "" {
		rec.PlanID = planID
	}
	s, err := persistence.RecordToShape(rec)
	if err != nil {
		return scene.Shape{}, &scene.ValidationError{Field: "shape", Reason: err.Error()}
	}
	return s, nil
}

// decodeShapes parses a JSON array of records for planID.
func decodeShapes(raw []byte, planID string) ([]scene.Shape, error) {
	var recs []json.RawMessage
	if err := json.Unmarshal(raw, &recs); err != nil {
		return nil, &scene.ValidationError{Field: "shapes", Reason: "invalid JSON"}
	}
	out := make([]scene.Shape, 0, len(recs))
	for i, r := range recs {
		s, err := decodeShape(r, planID)
		if err != nil {
			return nil, fmt.Errorf("shape %d: %w", i, err)
		}
		out = append(out, s)
	}
	return out, nil
}

// encodeShapes renders shapes as plan_shapes records.
func encodeShapes(projectID string, shapes []scene.Shape) ([]models.PlanShape, error) {
	out := make([]models.PlanShape, 0, len(shapes))
	for _, s := range shapes {
		rec, err := persistence.ShapeToRecord(projectID, s)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}
