package scene

import (
	"math"

	"floorplan-studio-backend/internal/units"
)

// ProjectSettings controls presentation and snapping. Canonical geometry is
// stored the same way whatever these say.
type ProjectSettings struct {
	Scale              units.Scale `json:"scale"`
	Unit               units.Unit  `json:"unit"`
	GridIntervalMM     float64     `json:"gridInterval"`
	GridVisible        bool        `json:"showGrid"`
	SnapEnabled        bool        `json:"snapToGrid"`
	CanvasWidthMeters  float64     `json:"canvasWidthMeters"`
	CanvasHeightMeters float64     `json:"canvasHeightMeters"`
	ShowDimensions     bool        `json:"showDimensions"`
	ShowAreaLabels     bool        `json:"showAreaLabels"`
}

// DefaultSettings returns the settings a fresh project starts with.
func DefaultSettings() ProjectSettings {
	return ProjectSettings{
		Scale:              units.DefaultScale,
		Unit:               units.MM,
		GridIntervalMM:     units.DefaultScale.RecommendedGridMM(),
		GridVisible:        true,
		SnapEnabled:        true,
		CanvasWidthMeters:  30,
		CanvasHeightMeters: 20,
		ShowDimensions:     true,
		ShowAreaLabels:     true,
	}
}

// SnapSize is the grid increment in canvas pixels.
func (s ProjectSettings) SnapSize() float64 {
	return units.SnapSize(s.GridIntervalMM, s.Scale.PixelsPerMM())
}

// SetScale switches the scale preset.
func (st *Store) SetScale(scale units.Scale) error {
	if !scale.Valid() {
		return &ValidationError{Field: "scale", Reason: "unknown preset " + string(scale)}
	}
	st.mutateSettings(func(s *ProjectSettings) { s.Scale = scale })
	return nil
}

// SetUnit switches the display unit.
func (st *Store) SetUnit(u units.Unit) error {
	if _, err := units.ParseUnit(string(u)); err != nil {
		return &ValidationError{Field: "unit", Reason: err.Error()}
	}
	st.mutateSettings(func(s *ProjectSettings) { s.Unit = u })
	return nil
}

// SetGridInterval sets the grid spacing in millimeters.
func (st *Store) SetGridInterval(mm float64) error {
	if mm <= 0 || math.IsNaN(mm) || math.IsInf(mm, 0) {
		return &ValidationError{Field: "gridInterval", Reason: "must be a positive length"}
	}
	st.mutateSettings(func(s *ProjectSettings) { s.GridIntervalMM = mm })
	return nil
}

func (st *Store) ToggleGrid() {
	st.mutateSettings(func(s *ProjectSettings) { s.GridVisible = !s.GridVisible })
}

func (st *Store) ToggleSnap() {
	st.mutateSettings(func(s *ProjectSettings) { s.SnapEnabled = !s.SnapEnabled })
}

func (st *Store) ToggleDimensions() {
	st.mutateSettings(func(s *ProjectSettings) { s.ShowDimensions = !s.ShowDimensions })
}

func (st *Store) ToggleAreaLabels() {
	st.mutateSettings(func(s *ProjectSettings) { s.ShowAreaLabels = !s.ShowAreaLabels })
}

// SetCanvasSize sets the drawable area in meters.
func (st *Store) SetCanvasSize(widthMeters, heightMeters float64) error {
	if widthMeters <= 0 || heightMeters <= 0 {
		return &ValidationError{Field: "canvasSize", Reason: "must be positive"}
	}
	st.mutateSettings(func(s *ProjectSettings) {
		s.CanvasWidthMeters = widthMeters
		s.CanvasHeightMeters = heightMeters
	})
	return nil
}

// ReplaceSettings installs settings loaded from elsewhere.
func (st *Store) ReplaceSettings(s ProjectSettings) error {
	if !s.Scale.Valid() {
		return &ValidationError{Field: "scale", Reason: "unknown preset " + string(s.Scale)}
	}
	if s.GridIntervalMM <= 0 {
		return &ValidationError{Field: "gridInterval", Reason: "must be a positive length"}
	}
	st.mutateSettings(func(cur *ProjectSettings) { *cur = s })
	return nil
}

// Settings returns the current project settings.
func (st *Store) Settings() ProjectSettings {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.settings
}

// SnapSize returns the snap increment for the current settings.
func (st *Store) SnapSize() float64 {
	return st.Settings().SnapSize()
}

func (st *Store) mutateSettings(fn func(*ProjectSettings)) {
	st.mu.Lock()
	fn(&st.settings)
	st.mu.Unlock()
	st.emit(Event{Kind: EventSettingsChanged})
}
