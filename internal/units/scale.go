package units

import (
	"fmt"
	"math"
	"strings"
)

// Scale is a named drawing scale preset.
type Scale string

const (
	ScaleArchitectural Scale = "architectural"
	ScaleDetailed      Scale = "detailed"
	ScaleStandard      Scale = "standard"
	ScaleOverview      Scale = "overview"
)

// DefaultScale is used when a project has not picked a preset yet.
const DefaultScale = ScaleStandard

type preset struct {
	pixelsPerMM float64
	gridMM      float64
}

var presets = map[Scale]preset{
	ScaleArchitectural: {pixelsPerMM: 0.5, gridMM: 100},
	ScaleDetailed:      {pixelsPerMM: 0.2, gridMM: 250},
	ScaleStandard:      {pixelsPerMM: 0.1, gridMM: 500},
	ScaleOverview:      {pixelsPerMM: 0.02, gridMM: 2000},
}

// Scales lists the presets from most to least zoomed in.
func Scales() []Scale {
	return []Scale{ScaleArchitectural, ScaleDetailed, ScaleStandard, ScaleOverview}
}

// ParseScale resolves a preset name, case-insensitively.
func ParseScale(name string) (Scale, error) {
	s := Scale(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := presets[s]; !ok {
		return "", fmt.Errorf("unknown scale %q", name)
	}
	return s, nil
}

// Valid reports whether s is a known preset.
func (s Scale) Valid() bool {
	_, ok := presets[s]
	return ok
}

// PixelsPerMM returns the fixed ratio of the preset. Unknown presets fall back
// to the default scale.
func (s Scale) PixelsPerMM() float64 {
	if p, ok := presets[s]; ok {
		return p.pixelsPerMM
	}
	return presets[DefaultScale].pixelsPerMM
}

// RecommendedGridMM returns the grid interval that reads well at this scale.
func (s Scale) RecommendedGridMM() float64 {
	if p, ok := presets[s]; ok {
		return p.gridMM
	}
	return presets[DefaultScale].gridMM
}

// MMToPixels converts a canonical length to canvas pixels.
func MMToPixels(mm float64, s Scale) float64 {
	return mm * s.PixelsPerMM()
}

// PixelsToMM converts canvas pixels back to millimeters.
func PixelsToMM(px float64, s Scale) float64 {
	return px / s.PixelsPerMM()
}

// CanvasPixels converts a canvas dimension in meters to pixels.
func CanvasPixels(meters float64, s Scale) float64 {
	return MMToPixels(meters*1000, s)
}

// SnapSize is the grid increment in pixels that dragged positions round to.
func SnapSize(gridMM, pixelsPerMM float64) float64 {
	return gridMM * pixelsPerMM
}

// Snap rounds v to the nearest multiple of size. A non-positive size disables
// snapping.
func Snap(v, size float64) float64 {
	if size <= 0 || math.IsNaN(size) || math.IsInf(size, 0) {
		return v
	}
	return math.Round(v/size) * size
}
