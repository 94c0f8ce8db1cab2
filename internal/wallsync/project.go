// Package wallsync maps objects mounted on walls between the canonical
// wall-relative record and the floor and elevation projections.
package wallsync

import (
	"fmt"
	"math"

	"floorplan-studio-backend/internal/scene"
)

// Placement is a wall-mounted object projected into floor-view coordinates.
type Placement struct {
	WallID string
	// Position is the point distanceFromWallStart along the wall.
	Position scene.Point
	// End is where the object's width ends along the wall.
	End scene.Point
	// Center is halfway between Position and End.
	Center    scene.Point
	Direction scene.Point // unit vector from wall start to wall end
	Normal    scene.Point // Direction rotated 90° counter-clockwise
	Angle     float64     // degrees, atan2 of Direction
	Width     float64
	Height    float64
}

// Footprint returns the four floor-view corners of the object when it is
// depth units deep, centred on the wall line.
func (p Placement) Footprint(depth float64) [4]scene.Point {
	h := depth / 2
	off := scene.Point{X: p.Normal.X * h, Y: p.Normal.Y * h}
	return [4]scene.Point{
		p.Position.Add(off),
		p.End.Add(off),
		p.End.Sub(off),
		p.Position.Sub(off),
	}
}

// ElevationBox is the object as drawn in the wall's side view: X runs along
// the wall from its start, Bottom/Top are heights above the floor.
type ElevationBox struct {
	X      float64 `json:"x"`
	Bottom float64 `json:"bottom"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Top    float64 `json:"top"`
}

// WallRelativeToWorld walks rel.DistanceFromWallStart along the wall from its
// start endpoint. Width and height pass through untouched. It fails for
// shapes that are not walls and for zero-length walls.
func WallRelativeToWorld(wall scene.Shape, rel scene.WallRelativePosition) (Placement, error) {
	seg, ok := wall.Geometry.(scene.Segment)
	if wall.Kind != scene.KindWall || !ok {
		return Placement{}, &scene.ValidationError{Field: "wallId", Reason: fmt.Sprintf("shape %s is a %s, not a wall", wall.ID, wall.Kind)}
	}
	length := seg.Length()
	if length == 0 || math.IsNaN(length) {
		return Placement{}, &scene.ValidationError{Field: "wallId", Reason: "wall " + wall.ID + " has zero length"}
	}
	dir := scene.Point{X: (seg.End.X - seg.Start.X) / length, Y: (seg.End.Y - seg.Start.Y) / length}
	along := func(d float64) scene.Point {
		return scene.Point{X: seg.Start.X + dir.X*d, Y: seg.Start.Y + dir.Y*d}
	}
	return Placement{
		WallID:    wall.ID,
		Position:  along(rel.DistanceFromWallStart),
		End:       along(rel.DistanceFromWallStart + rel.Width),
		Center:    along(rel.DistanceFromWallStart + rel.Width/2),
		Direction: dir,
		Normal:    scene.Point{X: -dir.Y, Y: dir.X},
		Angle:     math.Atan2(dir.Y, dir.X) * 180 / math.Pi,
		Width:     rel.Width,
		Height:    rel.Height,
	}, nil
}

// Elevation returns the side-view box. Elevation is a different projection
// of the same record, so the values are used as stored.
func Elevation(rel scene.WallRelativePosition) ElevationBox {
	return ElevationBox{
		X:      rel.DistanceFromWallStart,
		Bottom: rel.ElevationBottom,
		Width:  rel.Width,
		Height: rel.Height,
		Top:    rel.ElevationBottom + rel.Height,
	}
}

// ProjectOntoWall returns how far along the wall the foot of the
// perpendicular from p lies, and p's distance from the wall line.
func ProjectOntoWall(seg scene.Segment, p scene.Point) (along, dist float64) {
	length := seg.Length()
	if length == 0 {
		return 0, math.Hypot(p.X-seg.Start.X, p.Y-seg.Start.Y)
	}
	dx, dy := (seg.End.X-seg.Start.X)/length, (seg.End.Y-seg.Start.Y)/length
	vx, vy := p.X-seg.Start.X, p.Y-seg.Start.Y
	along = vx*dx + vy*dy
	dist = math.Abs(vx*dy - vy*dx)
	return along, dist
}
