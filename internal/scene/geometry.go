package scene

import (
	"fmt"
	"math"
	"slices"
)

// Geometry is the per-kind coordinate payload. The set of implementations is
// closed: Segment, Path, Rect, Circle and Anchor.
type Geometry interface {
	geometry()
}

// Segment is a wall's centerline.
type Segment struct {
	Start Point `json:"start"`
	End   Point `json:"end"`
}

// Path is an ordered point list (rooms, polygons, freehand strokes).
type Path struct {
	Points []Point `json:"points"`
}

// Rect is an axis-aligned box anchored at its top-left corner.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Circle is a center and radius.
type Circle struct {
	Center Point   `json:"center"`
	Radius float64 `json:"radius"`
}

// Anchor is the single insertion point of text and symbols.
type Anchor struct {
	At Point `json:"at"`
}

func (Segment) geometry() {}
func (Path) geometry()    {}
func (Rect) geometry()    {}
func (Circle) geometry()  {}
func (Anchor) geometry()  {}

// Length returns the segment length.
func (s Segment) Length() float64 {
	return math.Hypot(s.End.X-s.Start.X, s.End.Y-s.Start.Y)
}

// GeometryMatches reports whether g is the payload type kind k carries.
func GeometryMatches(k Kind, g Geometry) bool {
	switch g.(type) {
	case Segment:
		return k == KindWall
	case Path:
		return k == KindRoom || k == KindPolygon || k == KindFreehand
	case Rect:
		return k == KindRectangle || k == KindImage
	case Circle:
		return k == KindCircle
	case Anchor:
		return k == KindText || k == KindSymbol
	}
	return false
}

// Translate shifts every coordinate of g by d. Unknown geometry types are an
// error so a new kind cannot be dragged until it is handled here.
func Translate(g Geometry, d Point) (Geometry, error) {
	switch v := g.(type) {
	case Segment:
		return Segment{Start: v.Start.Add(d), End: v.End.Add(d)}, nil
	case Path:
		pts := make([]Point, len(v.Points))
		for i, p := range v.Points {
			pts[i] = p.Add(d)
		}
		return Path{Points: pts}, nil
	case Rect:
		v.Left += d.X
		v.Top += d.Y
		return v, nil
	case Circle:
		v.Center = v.Center.Add(d)
		return v, nil
	case Anchor:
		v.At = v.At.Add(d)
		return v, nil
	}
	return nil, fmt.Errorf("translate: unsupported geometry %T", g)
}

// DragOrigin is the position a rendering node starts a drag from. Line-based
// shapes are drawn with absolute points and a zero node offset; boxes, circles
// and anchored shapes are positioned by their reference point.
func DragOrigin(g Geometry) Point {
	switch v := g.(type) {
	case Rect:
		return Point{X: v.Left, Y: v.Top}
	case Circle:
		return v.Center
	case Anchor:
		return v.At
	}
	return Point{}
}

// SnapReference is the point of g that grid snapping aligns: the first
// vertex of walls and paths, the drag origin of everything else.
func SnapReference(g Geometry) Point {
	switch v := g.(type) {
	case Segment:
		return v.Start
	case Path:
		if len(v.Points) > 0 {
			return v.Points[0]
		}
	}
	return DragOrigin(g)
}

// ValidateGeometry checks that g suits kind k and holds finite, sensible
// numbers.
func ValidateGeometry(k Kind, g Geometry) error {
	if g == nil {
		return &ValidationError{Field: "coordinates", Reason: "missing"}
	}
	if !GeometryMatches(k, g) {
		return &ValidationError{Field: "coordinates", Reason: fmt.Sprintf("%T does not fit kind %q", g, k)}
	}
	var nums []float64
	switch v := g.(type) {
	case Segment:
		nums = []float64{v.Start.X, v.Start.Y, v.End.X, v.End.Y}
	case Path:
		min := 1
		if k == KindRoom || k == KindPolygon {
			min = 3
		}
		if len(v.Points) < min {
			return &ValidationError{Field: "coordinates", Reason: fmt.Sprintf("%s needs at least %d points", k, min)}
		}
		for _, p := range v.Points {
			nums = append(nums, p.X, p.Y)
		}
	case Rect:
		if v.Width < 0 || v.Height < 0 {
			return &ValidationError{Field: "coordinates", Reason: "negative size"}
		}
		nums = []float64{v.Left, v.Top, v.Width, v.Height}
	case Circle:
		if v.Radius < 0 {
			return &ValidationError{Field: "coordinates", Reason: "negative radius"}
		}
		nums = []float64{v.Center.X, v.Center.Y, v.Radius}
	case Anchor:
		nums = []float64{v.At.X, v.At.Y}
	}
	for _, n := range nums {
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return &ValidationError{Field: "coordinates", Reason: "non-finite value"}
		}
	}
	return nil
}

func cloneGeometry(g Geometry) Geometry {
	if p, ok := g.(Path); ok {
		return Path{Points: slices.Clone(p.Points)}
	}
	return g
}
