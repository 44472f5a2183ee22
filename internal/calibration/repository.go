package calibration

import (
	"github.com/lox/etofusion/internal/models"
)

// Repository is the durable boundary for learned calibrations. Injected
// rather than global so independent orchestrators and tests can carry
// their own state.
type Repository interface {
	// LoadNearby returns persisted calibrations whose grid cell is
	// within one cell of the given coordinates.
	LoadNearby(lat, lon float64) ([]models.RegionalCalibration, error)

	// Save upserts one entry keyed by (region, provider, season).
	Save(cal models.RegionalCalibration) error
}
