package validation

import (
	"math"

	"github.com/lox/etofusion/internal/models"
)

// Crop stress thresholds. A mismatch between 0.15 and 0.2 is neither
// accurate nor large enough to suggest a correction.
const (
	stressAccurateBelow = 0.15
	stressCorrectAbove  = 0.2
	stressCorrectionPct = 0.10
)

// StressCheck is a directional accuracy signal derived from observed
// versus expected crop stress.
type StressCheck struct {
	IsAccurate          bool    `json:"isAccurate"`
	SuggestedCorrection float64 `json:"suggestedCorrection"` // mm/day, 0 when none
}

// ValidateStress compares forecast-driven expected stress against the
// stress the farmer observed. More stress than expected means the ETo
// was underestimated, so the suggested correction raises it.
func ValidateStress(eto float64, feedback models.CropStressFeedback) StressCheck {
	diff := feedback.ActualStress - feedback.ExpectedStress

	check := StressCheck{
		IsAccurate: math.Abs(diff) < stressAccurateBelow,
	}
	if math.Abs(diff) > stressCorrectAbove {
		correction := eto * stressCorrectionPct
		if diff < 0 {
			correction = -correction
		}
		check.SuggestedCorrection = correction
	}
	return check
}
