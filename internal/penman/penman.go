// Package penman implements the FAO-56 Penman-Monteith reference
// evapotranspiration equation over daily meteorological inputs.
package penman

import (
	"math"
)

// Psychrometric constant at sea-level standard pressure, kPa/degC.
const gamma = 0.067

// SaturationVaporPressure returns es(T) in kPa for a temperature in
// degrees C (FAO-56 eq. 11).
func SaturationVaporPressure(tempC float64) float64 {
	return 0.6108 * math.Exp(17.27*tempC/(tempC+237.3))
}

// ETo computes daily reference evapotranspiration in mm/day from daily
// max/min temperature (degC), mean relative humidity (%), wind speed at
// 2m (m/s) and shortwave radiation (MJ/m2/day). The result is clamped
// to zero; a negative ETo has no physical meaning for irrigation.
func ETo(tempMax, tempMin, humidityMean, windSpeed, solarRadiation float64) float64 {
	tempMean := (tempMax + tempMin) / 2

	esMax := SaturationVaporPressure(tempMax)
	esMin := SaturationVaporPressure(tempMin)
	es := (esMax + esMin) / 2
	ea := es * humidityMean / 100

	esMean := SaturationVaporPressure(tempMean)
	delta := 4098 * esMean / math.Pow(tempMean+237.3, 2)

	num := 0.408*delta*solarRadiation + gamma*900*windSpeed*(es-ea)/(tempMean+273)
	den := delta + gamma*(1+0.34*windSpeed)

	eto := num / den
	if eto < 0 {
		return 0
	}
	return eto
}
