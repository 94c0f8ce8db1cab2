package scene

import "maps"

// ShapePatch is a partial update. Nil fields are left untouched; Metadata,
// when non-nil, replaces the whole map. ClearWallRelative detaches the shape
// from its wall and wins over WallRelative.
type ShapePatch struct {
	Geometry Geometry

	ThicknessMM  *float64
	HeightMM     *float64
	ImageOpacity *float64

	Name        *string
	Notes       *string
	StrokeColor *string
	FillColor   *string
	Text        *string
	SymbolType  *string
	Category    *string
	ImageURL    *string

	ZIndex       *int
	Locked       *bool
	RoomID       *string
	ViewMode     *string
	ParentWallID *string

	WallRelative      *WallRelativePosition
	ClearWallRelative bool

	Material      *string
	MaterialColor *string
	Manufacturer  *string
	ProductCode   *string

	Metadata map[string]any
}

// String is a convenience for optional string patch fields.
func String(v string) *string { return &v }

// Apply returns a copy of s with the patch merged in.
func (p ShapePatch) Apply(s Shape) Shape {
	out := s.Clone()
	if p.Geometry != nil {
		out.Geometry = cloneGeometry(p.Geometry)
	}
	setFloat(&out.ThicknessMM, p.ThicknessMM)
	setFloat(&out.HeightMM, p.HeightMM)
	setFloat(&out.ImageOpacity, p.ImageOpacity)

	setString(&out.Name, p.Name)
	setString(&out.Notes, p.Notes)
	setString(&out.StrokeColor, p.StrokeColor)
	setString(&out.FillColor, p.FillColor)
	setString(&out.Text, p.Text)
	setString(&out.SymbolType, p.SymbolType)
	setString(&out.Category, p.Category)
	setString(&out.ImageURL, p.ImageURL)
	setString(&out.RoomID, p.RoomID)
	setString(&out.ViewMode, p.ViewMode)
	setString(&out.ParentWallID, p.ParentWallID)
	setString(&out.Material, p.Material)
	setString(&out.MaterialColor, p.MaterialColor)
	setString(&out.Manufacturer, p.Manufacturer)
	setString(&out.ProductCode, p.ProductCode)

	if p.ZIndex != nil {
		out.ZIndex = *p.ZIndex
	}
	if p.Locked != nil {
		out.Locked = *p.Locked
	}
	switch {
	case p.ClearWallRelative:
		out.WallRelative = nil
	case p.WallRelative != nil:
		wr := *p.WallRelative
		out.WallRelative = &wr
	}
	if p.Metadata != nil {
		out.Metadata = maps.Clone(p.Metadata)
	}
	return out
}

func setFloat(dst **float64, v *float64) {
	if v != nil {
		f := *v
		*dst = &f
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
