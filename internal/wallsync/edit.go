package wallsync

import (
	"cmp"
	"math"
	"slices"

	"floorplan-studio-backend/internal/scene"
	"floorplan-studio-backend/internal/units"
)

// Mounted is a wall-mounted shape with both of its projections.
type Mounted struct {
	Shape     scene.Shape
	Floor     Placement
	Elevation ElevationBox
	// Footprint uses the wall's thickness as depth, in canvas units.
	Footprint [4]scene.Point
}

// WallView is the elevation view of one wall. Length and Height are in
// canvas units like the object boxes; HeightMM is the stored wall height.
type WallView struct {
	Wall     scene.Shape
	Length   float64
	Height   float64
	HeightMM float64
	Objects  []Mounted
}

// ElevationPatch edits a mounted object from the elevation view. Nil fields
// are left as stored.
type ElevationPatch struct {
	DistanceFromWallStart *float64
	ElevationBottom       *float64
	Width                 *float64
	Height                *float64
}

func wallOf(st *scene.Store, s scene.Shape) (scene.Shape, error) {
	if s.WallRelative == nil {
		return scene.Shape{}, &scene.ValidationError{Field: "wallRelative", Reason: "shape " + s.ID + " is not mounted on a wall"}
	}
	wall, ok := st.Shape(s.WallRelative.WallID)
	if !ok {
		return scene.Shape{}, &scene.NotFoundError{Entity: "wall", ID: s.WallRelative.WallID}
	}
	return wall, nil
}

// Resolve projects a mounted shape into the floor view. A shape whose wall
// has been deleted yields a NotFoundError.
func Resolve(st *scene.Store, shapeID string) (Mounted, error) {
	s, ok := st.Shape(shapeID)
	if !ok {
		return Mounted{}, &scene.NotFoundError{Entity: "shape", ID: shapeID}
	}
	wall, err := wallOf(st, s)
	if err != nil {
		return Mounted{}, err
	}
	return mount(st, wall, s)
}

func mount(st *scene.Store, wall, s scene.Shape) (Mounted, error) {
	p, err := WallRelativeToWorld(wall, *s.WallRelative)
	if err != nil {
		return Mounted{}, err
	}
	var depth float64
	if wall.ThicknessMM != nil {
		depth = *wall.ThicknessMM * st.Settings().Scale.PixelsPerMM()
	}
	return Mounted{
		Shape:     s,
		Floor:     p,
		Elevation: Elevation(*s.WallRelative),
		Footprint: p.Footprint(depth),
	}, nil
}

// ElevationView lists every object mounted on wallID, ordered by distance
// from the wall start.
func ElevationView(st *scene.Store, wallID string) (WallView, error) {
	wall, ok := st.Shape(wallID)
	if !ok {
		return WallView{}, &scene.NotFoundError{Entity: "wall", ID: wallID}
	}
	seg, ok := wall.Geometry.(scene.Segment)
	if wall.Kind != scene.KindWall || !ok {
		return WallView{}, &scene.ValidationError{Field: "wallId", Reason: "shape " + wallID + " is not a wall"}
	}
	view := WallView{Wall: wall, Length: seg.Length()}
	if wall.HeightMM != nil {
		view.HeightMM = *wall.HeightMM
		view.Height = units.MMToPixels(view.HeightMM, st.Settings().Scale)
	}
	for _, s := range st.ShapesForPlan(wall.PlanID) {
		if s.WallRelative == nil || s.WallRelative.WallID != wallID {
			continue
		}
		m, err := mount(st, wall, s)
		if err != nil {
			return WallView{}, err
		}
		view.Objects = append(view.Objects, m)
	}
	slices.SortStableFunc(view.Objects, func(a, b Mounted) int {
		return cmp.Compare(a.Elevation.X, b.Elevation.X)
	})
	return view, nil
}

// Attach mounts shapeID on wallID. The distance is clamped so the object
// stays on the wall.
func Attach(st *scene.Store, shapeID, wallID string, rel scene.WallRelativePosition) (scene.Shape, error) {
	wall, ok := st.Shape(wallID)
	if !ok {
		return scene.Shape{}, &scene.NotFoundError{Entity: "wall", ID: wallID}
	}
	seg, ok := wall.Geometry.(scene.Segment)
	if wall.Kind != scene.KindWall || !ok {
		return scene.Shape{}, &scene.ValidationError{Field: "wallId", Reason: "shape " + wallID + " is not a wall"}
	}
	if s, ok := st.Shape(shapeID); ok && s.PlanID != wall.PlanID {
		return scene.Shape{}, &scene.ValidationError{Field: "wallId", Reason: "wall is on another plan"}
	}
	rel.WallID = wallID
	rel.DistanceFromWallStart = clampAlong(rel.DistanceFromWallStart, rel.Width, seg.Length())
	return st.UpdateShape(shapeID, scene.ShapePatch{
		WallRelative: &rel,
		ParentWallID: scene.String(wallID),
	})
}

// Detach removes the wall-relative record. The shape keeps its own geometry.
func Detach(st *scene.Store, shapeID string) (scene.Shape, error) {
	return st.UpdateShape(shapeID, scene.ShapePatch{
		ClearWallRelative: true,
		ParentWallID:      scene.String(""),
	})
}

// UpdateFromElevation writes an elevation-view edit back to the record; the
// floor view follows on the next Resolve.
func UpdateFromElevation(st *scene.Store, shapeID string, patch ElevationPatch) (scene.Shape, error) {
	s, ok := st.Shape(shapeID)
	if !ok {
		return scene.Shape{}, &scene.NotFoundError{Entity: "shape", ID: shapeID}
	}
	if s.WallRelative == nil {
		return scene.Shape{}, &scene.ValidationError{Field: "wallRelative", Reason: "shape " + shapeID + " is not mounted on a wall"}
	}
	rel := *s.WallRelative
	if patch.DistanceFromWallStart != nil {
		rel.DistanceFromWallStart = *patch.DistanceFromWallStart
	}
	if patch.ElevationBottom != nil {
		rel.ElevationBottom = *patch.ElevationBottom
	}
	if patch.Width != nil {
		rel.Width = *patch.Width
	}
	if patch.Height != nil {
		rel.Height = *patch.Height
	}
	return st.UpdateShape(shapeID, scene.ShapePatch{WallRelative: &rel})
}

// MoveAlongWall slides a mounted object so its centre sits at the foot of
// the perpendicular from p, clamped to the wall's extent. Elevation and size
// are kept.
func MoveAlongWall(st *scene.Store, shapeID string, p scene.Point) (scene.Shape, error) {
	s, ok := st.Shape(shapeID)
	if !ok {
		return scene.Shape{}, &scene.NotFoundError{Entity: "shape", ID: shapeID}
	}
	wall, err := wallOf(st, s)
	if err != nil {
		return scene.Shape{}, err
	}
	seg, ok := wall.Geometry.(scene.Segment)
	if !ok || seg.Length() == 0 {
		return scene.Shape{}, &scene.ValidationError{Field: "wallId", Reason: "wall " + wall.ID + " has no extent"}
	}
	along, _ := ProjectOntoWall(seg, p)
	rel := *s.WallRelative
	rel.DistanceFromWallStart = clampAlong(along-rel.Width/2, rel.Width, seg.Length())
	return st.UpdateShape(shapeID, scene.ShapePatch{WallRelative: &rel})
}

// Retag changes the category of a mounted object. Position is untouched.
func Retag(st *scene.Store, shapeID, category string) (scene.Shape, error) {
	return st.UpdateShape(shapeID, scene.ShapePatch{Category: scene.String(category)})
}

func clampAlong(d, width, length float64) float64 {
	return math.Min(math.Max(d, 0), math.Max(length-width, 0))
}
