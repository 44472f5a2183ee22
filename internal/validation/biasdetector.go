package validation

import (
	"math"
	"time"
)

// Bias detection thresholds.
const (
	minBiasPoints = 3
	biasThreshold = 0.5 // mm/day
)

// BiasPoint is one day in the rolling window. ValidatedETo is nil for
// days with no ground truth.
type BiasPoint struct {
	Date         time.Time
	APIETo       float64
	ValidatedETo *float64
}

// BiasReport is the systematic-bias summary over a window.
type BiasReport struct {
	HasBias    bool    `json:"hasBias"`
	MeanBias   float64 `json:"meanBias"` // mm/day, positive = API overestimates
	StdDev     float64 `json:"stddev"`
	Confidence float64 `json:"confidence"`
	Samples    int     `json:"samples"`
}

// DetectBias looks for persistent systematic error over the validated
// points in the window. Fewer than three validated points yields a
// no-bias, zero-confidence report rather than an error.
func DetectBias(window []BiasPoint) BiasReport {
	var biases []float64
	for _, p := range window {
		if p.ValidatedETo == nil {
			continue
		}
		biases = append(biases, p.APIETo-*p.ValidatedETo)
	}

	if len(biases) < minBiasPoints {
		return BiasReport{Samples: len(biases)}
	}

	n := float64(len(biases))
	var sum float64
	for _, b := range biases {
		sum += b
	}
	mean := sum / n

	var sqDiff float64
	for _, b := range biases {
		sqDiff += (b - mean) * (b - mean)
	}
	stddev := math.Sqrt(sqDiff / n)

	confidence := 1 - stddev/math.Max(math.Abs(mean), 1)
	if confidence < 0 {
		confidence = 0
	}

	return BiasReport{
		HasBias:    math.Abs(mean) > biasThreshold,
		MeanBias:   mean,
		StdDev:     stddev,
		Confidence: confidence,
		Samples:    len(biases),
	}
}
