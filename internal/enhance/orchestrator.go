// Package enhance composes providers, ensemble averaging, regional
// calibration, sensor fusion, and pattern correction into one auditable
// ETo estimate per request.
package enhance

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/lox/etofusion/internal/calibration"
	"github.com/lox/etofusion/internal/ensemble"
	"github.com/lox/etofusion/internal/fusion"
	"github.com/lox/etofusion/internal/metrics"
	"github.com/lox/etofusion/internal/models"
	"github.com/lox/etofusion/internal/pattern"
	"github.com/lox/etofusion/internal/provider"
	"github.com/lox/etofusion/internal/validation"
)

// Defaults for the single-provider path before any enhancement.
const (
	singleProviderConfidence = 0.7
	singleProviderError      = 15.0 // percent

	// Calibration and pattern corrections are only adopted above these
	// confidence thresholds.
	calibrationMinConfidence = 0.5
	patternMinConfidence     = 0.6

	minEstimatedError = 5.0 // percent floor after calibration
)

// Options select which enhancement stages run for a request.
type Options struct {
	// UseEnsemble fetches from every registered provider in parallel
	// instead of a single selected one.
	UseEnsemble bool

	// ProviderWeights switches the ensemble to a weighted mean.
	ProviderWeights map[string]float64

	// Provider pins the single-provider path to a specific adapter,
	// bypassing accuracy-based selection.
	Provider string

	// LocalSensor, when set, replaces matching meteorological inputs
	// and recomputes ETo.
	LocalSensor *models.LocalSensorReading

	// UseRegionalCalibration applies the learned per-cell correction.
	UseRegionalCalibration bool

	// HistoricalValidations feeds the pattern correction stage.
	HistoricalValidations []pattern.Sample
}

// Orchestrator is the exported surface of the accuracy engine. Safe for
// concurrent use; all mutable state lives in the calibration store and
// the accuracy history, both independently locked.
type Orchestrator struct {
	registry     *provider.Registry
	combiner     *ensemble.Combiner
	calibrations *calibration.Store
	refiner      *fusion.Refiner
	selector     *validation.Selector

	mu       sync.Mutex
	accuracy map[string]validation.AccuracyRecord
}

func New(registry *provider.Registry, calibrations *calibration.Store) *Orchestrator {
	return &Orchestrator{
		registry:     registry,
		combiner:     ensemble.NewCombiner(registry),
		calibrations: calibrations,
		refiner:      fusion.NewRefiner(),
		selector:     validation.NewSelector(registry.Names()),
		accuracy:     make(map[string]validation.AccuracyRecord),
	}
}

// GetEnhancedETo runs the enhancement pipeline for one location and
// date. Caller errors (bad coordinates, zero date) are rejected before
// any network call.
func (o *Orchestrator) GetEnhancedETo(ctx context.Context, lat, lon float64, date time.Time, opts Options) (*models.EnhancedEToResult, error) {
	if err := provider.ValidateCoordinates(lat, lon); err != nil {
		return nil, err
	}
	if date.IsZero() {
		return nil, provider.ErrInvalidDateRange
	}

	var result *models.EnhancedEToResult
	var err error
	if opts.UseEnsemble {
		result, err = o.ensemblePath(ctx, lat, lon, date, opts)
	} else {
		result, err = o.singlePath(ctx, lat, lon, date, opts)
	}
	if err != nil {
		return nil, err
	}

	metrics.EnhancementsTotal.WithLabelValues(string(result.Method)).Inc()
	return result, nil
}

func (o *Orchestrator) ensemblePath(ctx context.Context, lat, lon float64, date time.Time, opts Options) (*models.EnhancedEToResult, error) {
	result, err := o.combiner.Combine(ctx, lat, lon, date, opts.ProviderWeights)
	if err != nil {
		return nil, err
	}

	if opts.UseRegionalCalibration && len(result.Contributors) > 0 {
		// The ensemble has no single provider identity; the first
		// contributor's calibration stands in for the group.
		applied := o.calibrations.Apply(result.ETo, result.Contributors[0].Provider, lat, lon, date)
		if applied.Found && applied.Confidence > calibrationMinConfidence {
			result.Corrections = append(result.Corrections, models.Correction{
				Type:       "regional-calibration",
				Adjustment: applied.Correction,
				Reason: fmt.Sprintf("learned correction for cell %s, %s season (confidence %.2f)",
					calibration.CellID(lat, lon), calibration.SeasonOf(date), applied.Confidence),
			})
			result.ETo = applied.ETo
			result.Metadata.HasRegionalCalibration = true
			result.Metadata.EstimatedError *= 1 - applied.Confidence*0.5
		}
	}

	return result, nil
}

func (o *Orchestrator) singlePath(ctx context.Context, lat, lon float64, date time.Time, opts Options) (*models.EnhancedEToResult, error) {
	name := opts.Provider
	if name == "" {
		o.mu.Lock()
		history := make(map[string]validation.AccuracyRecord, len(o.accuracy))
		for k, v := range o.accuracy {
			history[k] = v
		}
		o.mu.Unlock()
		name = o.selector.Best(history)
	}

	p := o.registry.Get(name)
	if p == nil {
		return nil, &provider.UnavailableError{Provider: name, Reason: "not registered"}
	}

	obs, err := p.GetWeatherData(ctx, lat, lon, date, date)
	if err != nil {
		return nil, err
	}
	if len(obs) == 0 {
		return nil, &provider.UnavailableError{Provider: name, Reason: "no data for requested date"}
	}
	observation := obs[0]

	result := &models.EnhancedEToResult{
		ETo:        observation.ETo,
		Confidence: singleProviderConfidence,
		Method:     models.MethodSingleProvider,
		Contributors: []models.Contributor{
			{Provider: name, ETo: observation.ETo, Weight: 1},
		},
		Metadata: models.ResultMetadata{
			ProvidersUsed:  []string{name},
			EstimatedError: singleProviderError,
		},
	}

	if opts.LocalSensor != nil {
		result = o.refiner.Refine(observation, *opts.LocalSensor)
	}

	if opts.UseRegionalCalibration {
		applied := o.calibrations.Apply(result.ETo, name, lat, lon, date)
		if applied.Found && applied.Confidence > calibrationMinConfidence {
			result.Corrections = append(result.Corrections, models.Correction{
				Type:       "regional-calibration",
				Adjustment: applied.Correction,
				Reason: fmt.Sprintf("learned correction for cell %s, %s season (confidence %.2f)",
					calibration.CellID(lat, lon), calibration.SeasonOf(date), applied.Confidence),
			})
			result.ETo = applied.ETo
			result.Method = models.MethodCalibrated
			result.Metadata.HasRegionalCalibration = true
			result.Metadata.EstimatedError = result.Metadata.EstimatedError * (1 - applied.Confidence)
			if result.Metadata.EstimatedError < minEstimatedError {
				result.Metadata.EstimatedError = minEstimatedError
			}
		}
	}

	if len(opts.HistoricalValidations) >= 10 {
		cond := pattern.Conditions{
			Temperature: observation.TemperatureMean,
			Humidity:    observation.RelativeHumidityMean,
			Season:      calibration.SeasonOf(date),
		}
		corrected := pattern.Correct(result.ETo, cond, opts.HistoricalValidations)
		if corrected.Corrected && corrected.Confidence > patternMinConfidence {
			result.Corrections = append(result.Corrections, models.Correction{
				Type:       "pattern-correction",
				Adjustment: corrected.ETo - result.ETo,
				Reason:     fmt.Sprintf("matched %d similar historical conditions", corrected.Matches),
			})
			result.ETo = corrected.ETo
			result.Method = models.MethodMLCorrected
			if corrected.Confidence > result.Confidence {
				result.Confidence = corrected.Confidence
			}
		}
	}

	return result, nil
}

// AddCalibrationData feeds one ground-truth measurement into the online
// calibration learner.
func (o *Orchestrator) AddCalibrationData(providerName string, lat, lon float64, date time.Time, apiETo, measuredETo float64) error {
	if err := provider.ValidateCoordinates(lat, lon); err != nil {
		return err
	}
	cal := o.calibrations.Update(providerName, lat, lon, date, apiETo, measuredETo)
	log.Printf("calibration: %s cell=%s season=%s factor=%.3f bias=%.3f n=%d",
		providerName, cal.RegionCellID, cal.Season, cal.CorrectionFactor, cal.Bias, cal.SampleSize)
	return nil
}

// ValidateProvider fetches the provider's estimates for the dates
// covered by the station observations and scores them. The resulting
// accuracy record also feeds future provider selection.
func (o *Orchestrator) ValidateProvider(ctx context.Context, providerName string, station []models.WeatherObservation, lat, lon float64) (models.ValidationStats, error) {
	if err := provider.ValidateCoordinates(lat, lon); err != nil {
		return models.ValidationStats{}, err
	}
	if len(station) == 0 {
		return models.ValidationStats{}, &validation.InsufficientDataError{Needed: 2, Got: 0}
	}

	p := o.registry.Get(providerName)
	if p == nil {
		return models.ValidationStats{}, &provider.UnavailableError{Provider: providerName, Reason: "not registered"}
	}

	start, end := dateSpan(station)
	estimates, err := p.GetWeatherData(ctx, lat, lon, start, end)
	if err != nil {
		return models.ValidationStats{}, err
	}

	stats, err := validation.Stats(providerName, validation.Records(providerName, estimates, station))
	if err != nil {
		return models.ValidationStats{}, err
	}

	o.mu.Lock()
	o.accuracy[providerName] = validation.AccuracyRecord{
		ErrorMetric: stats.RMSE,
		SampleSize:  stats.SampleSize,
	}
	o.mu.Unlock()

	return stats, nil
}

// CompareProviders scores several providers against the same station
// record and picks the best by RMSE. Providers that fail to fetch are
// skipped, not fatal.
func (o *Orchestrator) CompareProviders(ctx context.Context, providers []string, station []models.WeatherObservation, lat, lon float64) (validation.Comparison, error) {
	if err := provider.ValidateCoordinates(lat, lon); err != nil {
		return validation.Comparison{}, err
	}
	if len(station) == 0 {
		return validation.Comparison{}, &validation.InsufficientDataError{Needed: 2, Got: 0}
	}

	start, end := dateSpan(station)
	estimates := make(map[string][]models.WeatherObservation, len(providers))
	for _, name := range providers {
		p := o.registry.Get(name)
		if p == nil {
			log.Printf("compare: provider %s not registered, skipping", name)
			continue
		}
		est, err := p.GetWeatherData(ctx, lat, lon, start, end)
		if err != nil {
			log.Printf("compare: provider %s failed, skipping: %v", name, err)
			continue
		}
		estimates[name] = est
	}

	cmp := validation.Compare(estimates, station)

	o.mu.Lock()
	for _, v := range cmp.Validations {
		o.accuracy[v.Provider] = validation.AccuracyRecord{
			ErrorMetric: v.RMSE,
			SampleSize:  v.SampleSize,
		}
	}
	o.mu.Unlock()

	return cmp, nil
}

func dateSpan(obs []models.WeatherObservation) (start, end time.Time) {
	start, end = obs[0].Date, obs[0].Date
	for _, s := range obs[1:] {
		if s.Date.Before(start) {
			start = s.Date
		}
		if s.Date.After(end) {
			end = s.Date
		}
	}
	return start, end
}
