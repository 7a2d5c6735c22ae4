package classify

import "github.com/rotisserie/eris"

// maxSaneUncertaintyM is the ceiling above which a stated or augmented
// coordinate uncertainty is treated as absurd: buffering is skipped and
// the record falls back to administrative-unit area.
const maxSaneUncertaintyM = 5_000_000

// Thresholds are the numeric knobs of the decision procedure. All
// values are validated once before any record is processed.
type Thresholds struct {
	// MinCoordUncerForPreciseM is the largest augmented uncertainty
	// (meters) still classified precise. Required.
	MinCoordUncerForPreciseM float64
	// MaxPrecisionUncerForceCountyM is the augmented uncertainty at
	// which a county tighter than the uncertainty circle takes over.
	MaxPrecisionUncerForceCountyM float64
	// MaxPrecisionUncerForceStateM is the analogous state threshold.
	MaxPrecisionUncerForceStateM float64
	// MaxAreaKM2 caps the representative area a usable record may
	// have. Zero means unbounded.
	MaxAreaKM2 float64
}

// DefaultThresholds returns the documented defaults with the required
// precise threshold filled in.
func DefaultThresholds(minCoordUncerForPreciseM float64) Thresholds {
	return Thresholds{
		MinCoordUncerForPreciseM:      minCoordUncerForPreciseM,
		MaxPrecisionUncerForceCountyM: 100,
		MaxPrecisionUncerForceStateM:  500,
	}
}

// Validate rejects inconsistent configuration before any processing.
func (t Thresholds) Validate() error {
	if t.MinCoordUncerForPreciseM <= 0 {
		return eris.New("classify: minCoordUncerForPreciseM is required and must be positive")
	}
	if t.MaxPrecisionUncerForceCountyM >= t.MaxPrecisionUncerForceStateM {
		return eris.Errorf("classify: force-county threshold %v must be below force-state threshold %v",
			t.MaxPrecisionUncerForceCountyM, t.MaxPrecisionUncerForceStateM)
	}
	if t.MaxAreaKM2 < 0 {
		return eris.New("classify: maxAreaKm2 must be non-negative")
	}
	return nil
}

// withinMaxArea reports whether an area passes the usability cap.
func (t Thresholds) withinMaxArea(km2 float64) bool {
	return t.MaxAreaKM2 == 0 || km2 <= t.MaxAreaKM2
}
