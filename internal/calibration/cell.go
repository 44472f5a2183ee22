// Package calibration learns per-region, per-provider, per-season
// correction factors from ground-truth feedback and applies them to
// provider estimates.
package calibration

import (
	"fmt"
	"math"
	"time"

	"github.com/lox/etofusion/internal/models"
)

// CellID maps coordinates onto a 0.5 x 0.5 degree grid cell, e.g.
// (19.97, 73.78) -> "19.5,73.5". Deterministic so the same farm always
// lands in the same cell.
func CellID(lat, lon float64) string {
	cellLat := math.Floor(lat*2) / 2
	cellLon := math.Floor(lon*2) / 2
	return fmt.Sprintf("%.1f,%.1f", cellLat, cellLon)
}

// SeasonOf buckets a date by calendar month: Dec-Feb winter, Mar-May
// summer, Jun-Sep monsoon, Oct-Nov post-monsoon.
func SeasonOf(date time.Time) models.Season {
	switch date.Month() {
	case time.December, time.January, time.February:
		return models.SeasonWinter
	case time.March, time.April, time.May:
		return models.SeasonSummer
	case time.June, time.July, time.August, time.September:
		return models.SeasonMonsoon
	default:
		return models.SeasonPostMonsoon
	}
}

// Key is the composite lookup key for one calibration entry.
func Key(cellID, provider string, season models.Season) string {
	return cellID + "|" + provider + "|" + string(season)
}
