package provider

import (
	"errors"
	"fmt"
)

// UnavailableError means a single vendor could not serve the request:
// missing or rejected API key, rate limit, or outage. Recoverable in an
// ensemble (the provider is skipped), fatal in single-provider mode.
type UnavailableError struct {
	Provider string
	Reason   string
	Err      error
}

func (e *UnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("provider %s unavailable: %s: %v", e.Provider, e.Reason, e.Err)
	}
	return fmt.Sprintf("provider %s unavailable: %s", e.Provider, e.Reason)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// IsUnavailable reports whether err is (or wraps) an UnavailableError.
func IsUnavailable(err error) bool {
	var ue *UnavailableError
	return errors.As(err, &ue)
}

// Caller errors, rejected before any network call is made.
var (
	ErrInvalidCoordinates = errors.New("invalid coordinates: latitude must be in [-90, 90] and longitude in [-180, 180]")
	ErrInvalidDateRange   = errors.New("invalid date range: start must not be after end")
)

// ValidateCoordinates rejects out-of-range lat/lon.
func ValidateCoordinates(lat, lon float64) error {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return ErrInvalidCoordinates
	}
	return nil
}
