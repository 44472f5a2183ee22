package enhance

import (
	"github.com/lox/etofusion/internal/models"
)

// StrategyContext describes what a caller has available for a request.
type StrategyContext struct {
	HasLocalSensors    bool
	HasCalibration     bool // a calibration entry with confidence > 0.5 exists
	ValidationSamples  int  // historical (api, measured) pairs on hand
	AvailableProviders int
}

// Recommendation is advisory: the suggested method and the accuracy
// band it has historically delivered.
type Recommendation struct {
	Method           models.Method `json:"method"`
	ExpectedAccuracy string        `json:"expectedAccuracy"`
	Rationale        string        `json:"rationale"`
}

// RecommendStrategy suggests the most accurate method the caller's
// inputs support. Pure function of the context; fixed priority order.
func RecommendStrategy(ctx StrategyContext) Recommendation {
	switch {
	case ctx.HasLocalSensors:
		return Recommendation{
			Method:           models.MethodSensorFusion,
			ExpectedAccuracy: "±5%",
			Rationale:        "local sensors override the least reliable API inputs",
		}
	case ctx.HasCalibration && ctx.AvailableProviders >= 2:
		return Recommendation{
			Method:           models.MethodCalibrated,
			ExpectedAccuracy: "±5-8%",
			Rationale:        "calibrated ensemble removes both random and systematic error",
		}
	case ctx.ValidationSamples >= 20:
		return Recommendation{
			Method:           models.MethodMLCorrected,
			ExpectedAccuracy: "±8-10%",
			Rationale:        "enough history for similarity-matched correction",
		}
	case ctx.AvailableProviders >= 2:
		return Recommendation{
			Method:           models.MethodEnsembleAverage,
			ExpectedAccuracy: "±10-12%",
			Rationale:        "provider averaging reduces random error",
		}
	default:
		return Recommendation{
			Method:           models.MethodSingleProvider,
			ExpectedAccuracy: "±15-20%",
			Rationale:        "no redundancy or history available",
		}
	}
}
