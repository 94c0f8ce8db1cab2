package persistence

import (
	"encoding/json"
	"fmt"
	"log"

	"floorplan-studio-backend/internal/models"
	"floorplan-studio-backend/internal/scene"

	"gorm.io/datatypes"
)

// ShapeToRecord encodes a shape as a plan_shapes row.
func ShapeToRecord(projectID string, s scene.Shape) (models.PlanShape, error) {
	if !scene.GeometryMatches(s.Kind, s.Geometry) {
		return models.PlanShape{}, &scene.ValidationError{Field: "coordinates", Reason: fmt.Sprintf("%T does not fit kind %q", s.Geometry, s.Kind)}
	}
	coords, err := json.Marshal(s.Geometry)
	if err != nil {
		return models.PlanShape{}, fmt.Errorf("encode coordinates of %s: %w", s.ID, err)
	}
	data := models.ShapeData{
		Coordinates:   coords,
		StrokeColor:   s.StrokeColor,
		FillColor:     s.FillColor,
		Text:          s.Text,
		ThicknessMM:   s.ThicknessMM,
		HeightMM:      s.HeightMM,
		Name:          s.Name,
		Notes:         s.Notes,
		SymbolType:    s.SymbolType,
		Category:      s.Category,
		Metadata:      s.Metadata,
		ImageURL:      s.ImageURL,
		ImageOpacity:  s.ImageOpacity,
		Locked:        s.Locked,
		ZIndex:        s.ZIndex,
		ShapeViewMode: s.ViewMode,
		ParentWallID:  s.ParentWallID,
		Material:      s.Material,
		MaterialColor: s.MaterialColor,
		Manufacturer:  s.Manufacturer,
		ProductCode:   s.ProductCode,
	}
	if wr := s.WallRelative; wr != nil {
		data.WallRelative = &models.WallRelative{
			WallID:                wr.WallID,
			DistanceFromWallStart: wr.DistanceFromWallStart,
			ElevationBottom:       wr.ElevationBottom,
			Width:                 wr.Width,
			Height:                wr.Height,
		}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return models.PlanShape{}, fmt.Errorf("encode shape %s: %w", s.ID, err)
	}
	rec := models.PlanShape{
		ID:          s.ID,
		ProjectID:   projectID,
		PlanID:      s.PlanID,
		ShapeType:   string(s.Kind),
		Color:       s.FillColor,
		StrokeColor: s.StrokeColor,
		ShapeData:   datatypes.JSON(raw),
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
	if s.RoomID != "" {
		room := s.RoomID
		rec.RoomID = &room
	}
	return rec, nil
}

// RecordToShape decodes a plan_shapes row. Unknown shape types are rejected.
func RecordToShape(rec models.PlanShape) (scene.Shape, error) {
	var data models.ShapeData
	if len(rec.ShapeData) > 0 {
		if err := json.Unmarshal(rec.ShapeData, &data); err != nil {
			return scene.Shape{}, fmt.Errorf("decode shape %s: %w", rec.ID, err)
		}
	}
	kind := scene.Kind(rec.ShapeType)
	geom, err := decodeGeometry(kind, data.Coordinates)
	if err != nil {
		return scene.Shape{}, fmt.Errorf("decode coordinates of %s: %w", rec.ID, err)
	}
	s := scene.Shape{
		ID:            rec.ID,
		PlanID:        rec.PlanID,
		Kind:          kind,
		Geometry:      geom,
		ThicknessMM:   data.ThicknessMM,
		HeightMM:      data.HeightMM,
		Name:          data.Name,
		Notes:         data.Notes,
		StrokeColor:   data.StrokeColor,
		FillColor:     data.FillColor,
		Text:          data.Text,
		SymbolType:    data.SymbolType,
		Category:      data.Category,
		ImageURL:      data.ImageURL,
		ImageOpacity:  data.ImageOpacity,
		ZIndex:        data.ZIndex,
		Locked:        data.Locked,
		ViewMode:      data.ShapeViewMode,
		ParentWallID:  data.ParentWallID,
		Material:      data.Material,
		MaterialColor: data.MaterialColor,
		Manufacturer:  data.Manufacturer,
		ProductCode:   data.ProductCode,
		Metadata:      data.Metadata,
		CreatedAt:     rec.CreatedAt,
		UpdatedAt:     rec.UpdatedAt,
	}
	// fall back to the columns when the document carries no colors
	if s.FillColor == "" {
		s.FillColor = rec.Color
	}
	if s.StrokeColor == "" {
		s.StrokeColor = rec.StrokeColor
	}
	if rec.RoomID != nil {
		s.RoomID = *rec.RoomID
	}
	if wr := data.WallRelative; wr != nil {
		s.WallRelative = &scene.WallRelativePosition{
			WallID:                wr.WallID,
			DistanceFromWallStart: wr.DistanceFromWallStart,
			ElevationBottom:       wr.ElevationBottom,
			Width:                 wr.Width,
			Height:                wr.Height,
		}
	}
	return s, nil
}

func decodeGeometry(kind scene.Kind, raw json.RawMessage) (scene.Geometry, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("missing coordinates")
	}
	switch kind {
	case scene.KindWall:
		var g scene.Segment
		err := json.Unmarshal(raw, &g)
		return g, err
	case scene.KindRoom, scene.KindPolygon, scene.KindFreehand:
		var g scene.Path
		err := json.Unmarshal(raw, &g)
		return g, err
	case scene.KindRectangle, scene.KindImage:
		var g scene.Rect
		err := json.Unmarshal(raw, &g)
		return g, err
	case scene.KindCircle:
		var g scene.Circle
		err := json.Unmarshal(raw, &g)
		return g, err
	case scene.KindText, scene.KindSymbol:
		var g scene.Anchor
		err := json.Unmarshal(raw, &g)
		return g, err
	default:
		return nil, fmt.Errorf("unsupported shape type: %s", kind)
	}
}

// recordsToShapes decodes rows, logging and skipping the ones that fail.
func recordsToShapes(rows []models.PlanShape) []scene.Shape {
	out := make([]scene.Shape, 0, len(rows))
	for _, r := range rows {
		s, err := RecordToShape(r)
		if err != nil {
			log.Printf("[PERSIST] skipping row: %v", err)
			continue
		}
		out = append(out, s)
	}
	return out
}

func shapesToRecords(projectID string, shapes []scene.Shape) ([]models.PlanShape, error) {
	out := make([]models.PlanShape, 0, len(shapes))
	for _, s := range shapes {
		r, err := ShapeToRecord(projectID, s)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// PlanToRecord encodes a plan as a floor_plans row.
func PlanToRecord(p scene.Plan) (models.Plan, error) {
	rec := models.Plan{
		ID:        p.ID,
		ProjectID: p.ProjectID,
		Name:      p.Name,
		IsDefault: p.IsDefault,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
	if p.ViewSettings != nil {
		raw, err := json.Marshal(p.ViewSettings)
		if err != nil {
			return models.Plan{}, fmt.Errorf("encode view settings of %s: %w", p.ID, err)
		}
		rec.ViewSettings = datatypes.JSON(raw)
	}
	return rec, nil
}

// RecordToPlan decodes a floor_plans row. Unreadable view settings are
// dropped rather than failing the plan.
func RecordToPlan(rec models.Plan) scene.Plan {
	p := scene.Plan{
		ID:        rec.ID,
		ProjectID: rec.ProjectID,
		Name:      rec.Name,
		IsDefault: rec.IsDefault,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
	if len(rec.ViewSettings) > 0 {
		if err := json.Unmarshal(rec.ViewSettings, &p.ViewSettings); err != nil {
			log.Printf("[PERSIST] plan %s: dropping view settings: %v", rec.ID, err)
			p.ViewSettings = nil
		}
	}
	return p
}
