package models

import (
	"time"
)

// Season buckets used for regional calibration keys. Derived from the
// calendar month; see calibration.SeasonOf.
type Season string

const (
	SeasonWinter      Season = "winter"       // Dec-Feb
	SeasonSummer      Season = "summer"       // Mar-May
	SeasonMonsoon     Season = "monsoon"      // Jun-Sep
	SeasonPostMonsoon Season = "post-monsoon" // Oct-Nov
)

// Method identifies which pipeline produced an EnhancedEToResult.
type Method string

const (
	MethodSingleProvider   Method = "single-provider"
	MethodEnsembleAverage  Method = "ensemble-average"
	MethodWeightedEnsemble Method = "weighted-ensemble"
	MethodSensorFusion     Method = "sensor-fusion"
	MethodMLCorrected      Method = "ml-corrected"
	MethodCalibrated       Method = "regionally-calibrated"
)

// SensorSource tags where a local sensor reading came from.
type SensorSource string

const (
	SensorManual  SensorSource = "manual"
	SensorIoT     SensorSource = "iot"
	SensorStation SensorSource = "station"
)

// WeatherObservation is one provider's normalized daily record.
// Immutable once built by an adapter.
type WeatherObservation struct {
	Date                  time.Time
	TemperatureMax        float64 // degrees C
	TemperatureMin        float64
	TemperatureMean       float64
	RelativeHumidityMax   float64 // percent
	RelativeHumidityMin   float64
	RelativeHumidityMean  float64
	WindSpeed             float64 // m/s at 2m
	PrecipitationSum      float64 // mm
	ShortwaveRadiationSum float64 // MJ/m2/day
	SunshineDuration      float64 // hours
	ETo                   float64 // mm/day, FAO-56
	Latitude              float64
	Longitude             float64
	Elevation             float64 // meters
	Timezone              string
	Provider              string
}

// LocalSensorReading carries farm-side measurements that can override
// provider values before ETo is recomputed. All fields optional.
type LocalSensorReading struct {
	Date           time.Time
	TemperatureMax *float64 // degrees C
	TemperatureMin *float64
	Humidity       *float64 // percent
	WindSpeed      *float64 // m/s
	SolarRadiation *float64 // MJ/m2/day
	Rainfall       *float64 // mm
	Source         SensorSource
}

// RegionalCalibration is the learned correction for one
// (region cell, provider, season) key.
type RegionalCalibration struct {
	RegionCellID     string
	Provider         string
	Season           Season
	CorrectionFactor float64 // multiplicative, starts at 1.0
	Bias             float64 // additive mm/day, starts at 0
	SampleSize       int
	Confidence       float64 // min(0.95, sampleSize/30)
	LastUpdated      time.Time
}

// ValidationRecord pairs one provider estimate against a ground-truth
// measurement for the same date.
type ValidationRecord struct {
	Date         time.Time
	Provider     string
	APIETo       float64
	MeasuredETo  float64
	Error        float64 // api - measured, mm/day
	ErrorPercent float64
}

// Contributor is one provider's share of an ensemble result.
// Weights across a result sum to 1.
type Contributor struct {
	Provider string  `json:"provider"`
	ETo      float64 `json:"eto"`
	Weight   float64 `json:"weight"`
}

// Correction records one adjustment applied on the way to a final
// estimate, in application order.
type Correction struct {
	Type       string  `json:"type"`
	Adjustment float64 `json:"adjustment"` // mm/day
	Reason     string  `json:"reason"`
}

// ResultMetadata describes how an estimate was produced.
type ResultMetadata struct {
	ProvidersUsed          []string `json:"providersUsed"`
	HasLocalSensors        bool     `json:"hasLocalSensors"`
	HasRegionalCalibration bool     `json:"hasRegionalCalibration"`
	EstimatedError         float64  `json:"estimatedErrorPercent"`
}

// EnhancedEToResult is the fully annotated estimate returned to callers.
type EnhancedEToResult struct {
	ETo          float64        `json:"eto"` // mm/day
	Confidence   float64        `json:"confidence"`
	Method       Method         `json:"method"`
	Contributors []Contributor  `json:"contributors"`
	Corrections  []Correction   `json:"corrections"`
	Metadata     ResultMetadata `json:"metadata"`
}

// CropStressFeedback is farmer-reported outcome data used to validate
// past estimates.
type CropStressFeedback struct {
	Date             time.Time
	FarmID           string
	ExpectedStress   float64 // 0-1
	ActualStress     float64 // 0-1
	IrrigationAmount float64 // mm applied
	SoilMoisture     *float64
	CropStage        string
}

// ValidationStats summarizes a provider's accuracy against a set of
// station measurements.
type ValidationStats struct {
	Provider        string  `json:"provider"`
	MeanBias        float64 `json:"meanBias"` // mm/day, positive = overestimates
	MeanBiasPercent float64 `json:"meanBiasPercent"`
	RMSE            float64 `json:"rmse"`
	MAE             float64 `json:"mae"`
	R2              float64 `json:"r2"`
	SampleSize      int     `json:"sampleSize"`
	Recommendation  string  `json:"recommendation"`
}
