package scene

import (
	"maps"
	"time"
)

// Kind tags the shape variant.
type Kind string

const (
	KindWall      Kind = "wall"
	KindRoom      Kind = "room"
	KindRectangle Kind = "rectangle"
	KindCircle    Kind = "circle"
	KindText      Kind = "text"
	KindSymbol    Kind = "symbol"
	KindImage     Kind = "image"
	KindPolygon   Kind = "polygon"
	KindFreehand  Kind = "freehand"
)

// Kinds lists every shape kind the engine understands.
func Kinds() []Kind {
	return []Kind{KindWall, KindRoom, KindRectangle, KindCircle, KindText, KindSymbol, KindImage, KindPolygon, KindFreehand}
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindWall, KindRoom, KindRectangle, KindCircle, KindText, KindSymbol, KindImage, KindPolygon, KindFreehand:
		return true
	}
	return false
}

// Point is a canvas coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p shifted by d.
func (p Point) Add(d Point) Point { return Point{X: p.X + d.X, Y: p.Y + d.Y} }

// Sub returns p - q.
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// WallRelativePosition places an object mounted on a wall. Floor and
// elevation views both render from this single record. Every length is in
// canvas units, the same space as the wall's segment.
type WallRelativePosition struct {
	WallID                string  `json:"wallId"`
	DistanceFromWallStart float64 `json:"distanceFromWallStart"`
	ElevationBottom       float64 `json:"elevationBottom"`
	Width                 float64 `json:"width"`
	Height                float64 `json:"height"`
}

// Shape is a single drawable entity on a plan.
type Shape struct {
	ID       string
	PlanID   string
	Kind     Kind
	Geometry Geometry

	ThicknessMM *float64
	HeightMM    *float64
	Name        string
	Notes       string
	StrokeColor string
	FillColor   string
	Text        string
	SymbolType  string
	Category    string

	ImageURL     string
	ImageOpacity *float64

	ZIndex       int
	Locked       bool
	RoomID       string
	ViewMode     string
	ParentWallID string
	WallRelative *WallRelativePosition

	Material      string
	MaterialColor string
	Manufacturer  string
	ProductCode   string

	Metadata map[string]any

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a deep copy of s.
func (s Shape) Clone() Shape {
	c := s
	if s.Geometry != nil {
		c.Geometry = cloneGeometry(s.Geometry)
	}
	c.ThicknessMM = cloneFloat(s.ThicknessMM)
	c.HeightMM = cloneFloat(s.HeightMM)
	c.ImageOpacity = cloneFloat(s.ImageOpacity)
	if s.WallRelative != nil {
		wr := *s.WallRelative
		c.WallRelative = &wr
	}
	if s.Metadata != nil {
		c.Metadata = maps.Clone(s.Metadata)
	}
	return c
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	f := *v
	return &f
}

// Float is a convenience for optional numeric fields.
func Float(v float64) *float64 { return &v }

// ViewMode selects the projection the canvas renders.
type ViewMode string

const (
	ViewFloor     ViewMode = "floor"
	ViewElevation ViewMode = "elevation"
	View3D        ViewMode = "3d"
)

// ViewState is transient and never persisted with shapes.
type ViewState struct {
	Zoom     float64  `json:"zoom"`
	PanX     float64  `json:"panX"`
	PanY     float64  `json:"panY"`
	ViewMode ViewMode `json:"viewMode"`
}

// Plan is one named floor-plan document of a project.
type Plan struct {
	ID           string         `json:"id"`
	ProjectID    string         `json:"projectId"`
	Name         string         `json:"name"`
	IsDefault    bool           `json:"isDefault"`
	ViewSettings map[string]any `json:"viewSettings,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

func (p Plan) clone() Plan {
	c := p
	if p.ViewSettings != nil {
		c.ViewSettings = maps.Clone(p.ViewSettings)
	}
	return c
}
