// Package pattern applies a nearest-neighbor style correction from a
// rolling history of (API vs measured) pairs matched on weather
// similarity. Deliberately a transparent statistic, not a trained model.
package pattern

import (
	"math"

	"github.com/lox/etofusion/internal/models"
)

// Match tolerances and data thresholds.
const (
	minHistory       = 10
	tempToleranceC   = 5.0
	humidityTolerance = 15.0
)

// Sample is one historical comparison of an API estimate against a
// measurement, tagged with the conditions it was taken under.
type Sample struct {
	APIETo      float64
	MeasuredETo float64
	Temperature float64
	Humidity    float64
	Season      models.Season
}

// Conditions describes the situation a correction is requested for.
type Conditions struct {
	Temperature float64
	Humidity    float64
	Season      models.Season
}

// Result carries the corrected value, how sure we are of it, and how
// many historical samples matched.
type Result struct {
	ETo        float64
	Confidence float64
	Matches    int
	Corrected  bool
}

// Correct scales eto by the mean measured/api ratio over historical
// samples similar to the current conditions. With too little history or
// no similar samples the input passes through with a low confidence so
// the caller can fall back gracefully.
func Correct(eto float64, cond Conditions, history []Sample) Result {
	if len(history) < minHistory {
		return Result{ETo: eto, Confidence: 0.3}
	}

	var ratioSum float64
	var matches int
	for _, s := range history {
		if s.Season != cond.Season {
			continue
		}
		if math.Abs(s.Temperature-cond.Temperature) >= tempToleranceC {
			continue
		}
		if math.Abs(s.Humidity-cond.Humidity) >= humidityTolerance {
			continue
		}
		if s.APIETo == 0 {
			continue
		}
		ratioSum += s.MeasuredETo / s.APIETo
		matches++
	}

	if matches == 0 {
		return Result{ETo: eto, Confidence: 0.5}
	}

	confidence := float64(matches) / 20
	if confidence > 0.9 {
		confidence = 0.9
	}

	return Result{
		ETo:        eto * ratioSum / float64(matches),
		Confidence: confidence,
		Matches:    matches,
		Corrected:  true,
	}
}
