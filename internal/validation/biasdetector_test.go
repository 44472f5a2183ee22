package validation

import (
	"math"
	"testing"
	"time"
)

func f64(v float64) *float64 { return &v }

func biasWindow(pairs ...[2]float64) []BiasPoint {
	window := make([]BiasPoint, len(pairs))
	for i, p := range pairs {
		window[i] = BiasPoint{
			Date:         time.Date(2024, 6, i+1, 0, 0, 0, 0, time.UTC),
			APIETo:       p[0],
			ValidatedETo: f64(p[1]),
		}
	}
	return window
}

func TestDetectBiasTooFewPoints(t *testing.T) {
	window := []BiasPoint{
		{APIETo: 5, ValidatedETo: f64(4)},
		{APIETo: 5, ValidatedETo: f64(4)},
		{APIETo: 5}, // unvalidated, does not count
	}

	report := DetectBias(window)
	if report.HasBias {
		t.Error("HasBias = true, want false with <3 validated points")
	}
	if report.Confidence != 0 {
		t.Errorf("Confidence = %v, want 0", report.Confidence)
	}
	if report.Samples != 2 {
		t.Errorf("Samples = %d, want 2", report.Samples)
	}
}

func TestDetectBiasConsistentOverestimate(t *testing.T) {
	report := DetectBias(biasWindow([2]float64{5, 4}, [2]float64{6, 5}, [2]float64{5.5, 4.5}))

	if !report.HasBias {
		t.Error("HasBias = false, want true for consistent +1 bias")
	}
	if math.Abs(report.MeanBias-1.0) > 1e-9 {
		t.Errorf("MeanBias = %v, want 1.0", report.MeanBias)
	}
	// zero scatter around the bias -> full confidence
	if math.Abs(report.Confidence-1.0) > 1e-9 {
		t.Errorf("Confidence = %v, want 1.0", report.Confidence)
	}
}

func TestDetectBiasBelowThreshold(t *testing.T) {
	report := DetectBias(biasWindow([2]float64{5, 4.7}, [2]float64{6, 5.7}, [2]float64{5.5, 5.2}))

	if report.HasBias {
		t.Errorf("HasBias = true for mean bias %v, want false below 0.5", report.MeanBias)
	}
}

func TestDetectBiasNoisyWindowLowConfidence(t *testing.T) {
	// Large scatter, near-zero mean: no bias, low confidence.
	report := DetectBias(biasWindow([2]float64{5, 2}, [2]float64{5, 8}, [2]float64{5, 5}))

	if report.HasBias {
		t.Error("HasBias = true, want false for noise without direction")
	}
	if report.Confidence > 0.1 {
		t.Errorf("Confidence = %v, want near 0 for noisy window", report.Confidence)
	}
}
