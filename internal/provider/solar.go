package provider

import (
	"math"
	"time"
)

// Solar geometry helpers (FAO-56 chapter 3) for vendors that report
// cloud cover instead of measured radiation.

const solarConstant = 0.0820 // MJ/m2/min

// extraterrestrialRadiation returns Ra in MJ/m2/day for a latitude and
// date (FAO-56 eq. 21).
func extraterrestrialRadiation(lat float64, date time.Time) float64 {
	j := float64(date.YearDay())
	phi := lat * math.Pi / 180

	dr := 1 + 0.033*math.Cos(2*math.Pi/365*j)
	decl := 0.409 * math.Sin(2*math.Pi/365*j-1.39)

	x := -math.Tan(phi) * math.Tan(decl)
	// Polar day/night: clamp the sunset hour angle argument.
	if x < -1 {
		x = -1
	} else if x > 1 {
		x = 1
	}
	ws := math.Acos(x)

	return 24 * 60 / math.Pi * solarConstant * dr *
		(ws*math.Sin(phi)*math.Sin(decl) + math.Cos(phi)*math.Cos(decl)*math.Sin(ws))
}

// daylightHours returns the maximum possible sunshine duration N in
// hours (FAO-56 eq. 34).
func daylightHours(lat float64, date time.Time) float64 {
	j := float64(date.YearDay())
	phi := lat * math.Pi / 180
	decl := 0.409 * math.Sin(2*math.Pi/365*j-1.39)

	x := -math.Tan(phi) * math.Tan(decl)
	if x < -1 {
		x = -1
	} else if x > 1 {
		x = 1
	}
	return 24 / math.Pi * math.Acos(x)
}

// radiationFromClouds estimates Rs in MJ/m2/day from cloud cover
// percent using the Angstrom relation with default coefficients,
// treating (1 - clouds/100) as relative sunshine.
func radiationFromClouds(lat float64, date time.Time, cloudsPct float64) float64 {
	sunFraction := 1 - cloudsPct/100
	if sunFraction < 0 {
		sunFraction = 0
	} else if sunFraction > 1 {
		sunFraction = 1
	}
	return (0.25 + 0.50*sunFraction) * extraterrestrialRadiation(lat, date)
}
