package penman

import (
	"math"
	"testing"
)

func TestSaturationVaporPressure(t *testing.T) {
	tests := []struct {
		name  string
		tempC float64
		want  float64
	}{
		{"zero C", 0, 0.6108},
		{"20 C", 20, 2.338},
		{"35 C", 35, 5.623},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SaturationVaporPressure(tt.tempC)
			if math.Abs(got-tt.want) > 0.01 {
				t.Errorf("SaturationVaporPressure(%v) = %v, want ~%v", tt.tempC, got, tt.want)
			}
		})
	}
}

func TestEToNonNegative(t *testing.T) {
	tests := []struct {
		name                                     string
		tMax, tMin, humidity, wind, solar float64
	}{
		{"hot dry windy", 42, 28, 20, 6, 28},
		{"cold humid calm", 4, -2, 98, 0, 1},
		{"saturated no radiation", 10, 8, 100, 0, 0},
		{"tropical monsoon", 32, 26, 85, 2, 14},
		{"zero everything", 0, 0, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ETo(tt.tMax, tt.tMin, tt.humidity, tt.wind, tt.solar)
			if got < 0 {
				t.Errorf("ETo = %v, want >= 0", got)
			}
		})
	}
}

func TestEToTypicalSummerDay(t *testing.T) {
	// Warm, moderately dry day with strong radiation should land in the
	// 4-8 mm/day range typical for semi-arid agriculture.
	got := ETo(34, 22, 45, 2.5, 22)
	if got < 4 || got > 8 {
		t.Errorf("ETo = %v, want within [4, 8]", got)
	}
}

func TestEToMonotonicInRadiation(t *testing.T) {
	low := ETo(30, 20, 60, 2, 10)
	high := ETo(30, 20, 60, 2, 20)
	if high <= low {
		t.Errorf("ETo with more radiation = %v, want > %v", high, low)
	}
}

func TestEToDeterministic(t *testing.T) {
	a := ETo(28.5, 17.2, 55, 1.8, 18.4)
	b := ETo(28.5, 17.2, 55, 1.8, 18.4)
	if a != b {
		t.Errorf("ETo not deterministic: %v != %v", a, b)
	}
}
