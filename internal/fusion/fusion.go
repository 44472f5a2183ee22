// Package fusion substitutes local sensor readings for provider values
// and recomputes ETo from the refined inputs.
package fusion

import (
	"fmt"

	"github.com/lox/etofusion/internal/models"
	"github.com/lox/etofusion/internal/penman"
)

// Policy placeholders until per-sensor precision is modeled.
const (
	DefaultConfidence     = 0.9
	DefaultEstimatedError = 5.0 // percent
)

// Refiner overrides meteorological inputs with local sensor data.
// Confidence and EstimatedError default to the package constants and
// can be tuned per deployment.
type Refiner struct {
	Confidence     float64
	EstimatedError float64
}

func NewRefiner() *Refiner {
	return &Refiner{
		Confidence:     DefaultConfidence,
		EstimatedError: DefaultEstimatedError,
	}
}

// Refine recomputes ETo with each present sensor field substituted for
// the provider value. Solar radiation always stays from the API since
// local pyranometers are assumed unavailable. Each substitution is
// recorded as a correction entry in application order.
func (r *Refiner) Refine(obs models.WeatherObservation, sensor models.LocalSensorReading) *models.EnhancedEToResult {
	tempMax := obs.TemperatureMax
	tempMin := obs.TemperatureMin
	humidity := obs.RelativeHumidityMean
	windSpeed := obs.WindSpeed

	var corrections []models.Correction

	if sensor.TemperatureMax != nil && sensor.TemperatureMin != nil {
		corrections = append(corrections, models.Correction{
			Type:       "sensor-temperature",
			Adjustment: *sensor.TemperatureMax - tempMax,
			Reason:     fmt.Sprintf("local %s temperature replaced API value %.1f/%.1f C", sensor.Source, tempMax, tempMin),
		})
		tempMax = *sensor.TemperatureMax
		tempMin = *sensor.TemperatureMin
	}
	if sensor.Humidity != nil {
		corrections = append(corrections, models.Correction{
			Type:       "sensor-humidity",
			Adjustment: *sensor.Humidity - humidity,
			Reason:     fmt.Sprintf("local %s humidity replaced API value %.0f%%", sensor.Source, humidity),
		})
		humidity = *sensor.Humidity
	}
	if sensor.WindSpeed != nil {
		corrections = append(corrections, models.Correction{
			Type:       "sensor-wind",
			Adjustment: *sensor.WindSpeed - windSpeed,
			Reason:     fmt.Sprintf("local %s wind speed replaced API value %.1f m/s", sensor.Source, windSpeed),
		})
		windSpeed = *sensor.WindSpeed
	}

	eto := penman.ETo(tempMax, tempMin, humidity, windSpeed, obs.ShortwaveRadiationSum)

	return &models.EnhancedEToResult{
		ETo:        eto,
		Confidence: r.Confidence,
		Method:     models.MethodSensorFusion,
		Contributors: []models.Contributor{
			{Provider: obs.Provider, ETo: obs.ETo, Weight: 1},
		},
		Corrections: corrections,
		Metadata: models.ResultMetadata{
			ProvidersUsed:   []string{obs.Provider},
			HasLocalSensors: true,
			EstimatedError:  r.EstimatedError,
		},
	}
}
