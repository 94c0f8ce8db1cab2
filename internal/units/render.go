package units

import "math"

// GridLevel is one tier of the background grid.
type GridLevel struct {
	IntervalMM float64
	Opacity    float64
	LineWidth  float64
}

// minGridSpacingPx hides tiers whose lines would be closer than this on screen.
const minGridSpacingPx = 4

// ScaleFactor is the preset's pixel density relative to the standard preset.
func ScaleFactor(s Scale) float64 {
	return s.PixelsPerMM() / presets[ScaleStandard].pixelsPerMM
}

// StrokeWidth scales a base line width for the active preset, damped so that
// walls stay legible at both ends of the preset range.
func StrokeWidth(base float64, s Scale) float64 {
	f := math.Sqrt(ScaleFactor(s))
	return base * math.Min(math.Max(f, 0.5), 2)
}

// GridLevels returns the visible grid tiers, finest first: the minor grid, a
// major grid every five intervals and a meter grid when it is coarser than
// the major one. Tiers too dense for the current zoom are dropped.
func GridLevels(s Scale, gridMM, zoom float64) []GridLevel {
	if gridMM <= 0 {
		gridMM = s.RecommendedGridMM()
	}
	if zoom <= 0 {
		zoom = 1
	}
	weight := StrokeWidth(1, s)
	candidates := []GridLevel{
		{IntervalMM: gridMM, Opacity: 0.15, LineWidth: 0.5 * weight},
		{IntervalMM: gridMM * 5, Opacity: 0.3, LineWidth: 0.75 * weight},
	}
	if gridMM*5 < 1000 {
		candidates = append(candidates, GridLevel{IntervalMM: 1000, Opacity: 0.45, LineWidth: weight})
	}

	levels := make([]GridLevel, 0, len(candidates))
	for _, l := range candidates {
		if l.IntervalMM*s.PixelsPerMM()*zoom < minGridSpacingPx {
			continue
		}
		levels = append(levels, l)
	}
	return levels
}
