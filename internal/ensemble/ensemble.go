// Package ensemble merges same-day ETo estimates from multiple
// providers into a single estimate with a variance-derived confidence.
package ensemble

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/lox/etofusion/internal/metrics"
	"github.com/lox/etofusion/internal/models"
	"github.com/lox/etofusion/internal/provider"
)

// NoProvidersError is fatal: every provider in the ensemble failed.
// Individual failures are preserved for diagnostics.
type NoProvidersError struct {
	Errs error
}

func (e *NoProvidersError) Error() string {
	return fmt.Sprintf("no providers available: %v", e.Errs)
}

func (e *NoProvidersError) Unwrap() error {
	return e.Errs
}

// Combiner fans requests out to a provider registry and combines the
// successful results. Partial success is fine; one success is enough.
type Combiner struct {
	registry *provider.Registry
	timeout  time.Duration
}

func NewCombiner(registry *provider.Registry) *Combiner {
	return &Combiner{
		registry: registry,
		timeout:  30 * time.Second,
	}
}

type fetchResult struct {
	provider string
	eto      float64
}

// Combine fetches the given date from every registered provider in
// parallel and averages the successful estimates. When weights is
// non-nil a weighted mean is used instead, with weights normalized over
// the providers that actually responded.
func (c *Combiner) Combine(ctx context.Context, lat, lon float64, date time.Time, weights map[string]float64) (*models.EnhancedEToResult, error) {
	if err := provider.ValidateCoordinates(lat, lon); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results []fetchResult
		errs    *multierror.Error
	)

	for _, p := range c.registry.All() {
		p := p
		wg.Add(1)
		go func() {
			defer wg.Done()

			obs, err := p.GetWeatherData(ctx, lat, lon, date, date)
			if err != nil {
				// Skip and continue; partial success is allowed.
				log.Printf("ensemble: provider %s failed for (%.4f, %.4f): %v", p.Name(), lat, lon, err)
				mu.Lock()
				errs = multierror.Append(errs, err)
				mu.Unlock()
				return
			}
			if len(obs) == 0 {
				mu.Lock()
				errs = multierror.Append(errs, fmt.Errorf("provider %s returned no data", p.Name()))
				mu.Unlock()
				return
			}

			mu.Lock()
			results = append(results, fetchResult{provider: p.Name(), eto: obs[0].ETo})
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(results) == 0 {
		return nil, &NoProvidersError{Errs: errs.ErrorOrNil()}
	}

	// Goroutine completion order is nondeterministic; keep contributor
	// order stable for callers and tests.
	sort.Slice(results, func(i, j int) bool { return results[i].provider < results[j].provider })

	metrics.EnsembleProviders.Observe(float64(len(results)))

	if weights != nil {
		return combineWeighted(results, weights), nil
	}
	return combineSimple(results), nil
}

func combineSimple(results []fetchResult) *models.EnhancedEToResult {
	n := float64(len(results))

	var sum float64
	for _, r := range results {
		sum += r.eto
	}
	mean := sum / n

	var sqDiff float64
	for _, r := range results {
		sqDiff += (r.eto - mean) * (r.eto - mean)
	}
	stddev := math.Sqrt(sqDiff / n)

	contributors := make([]models.Contributor, 0, len(results))
	providers := make([]string, 0, len(results))
	for _, r := range results {
		contributors = append(contributors, models.Contributor{Provider: r.provider, ETo: r.eto, Weight: 1 / n})
		providers = append(providers, r.provider)
	}

	confidence, errPct := spread(mean, stddev)

	return &models.EnhancedEToResult{
		ETo:          mean,
		Confidence:   confidence,
		Method:       models.MethodEnsembleAverage,
		Contributors: contributors,
		Metadata: models.ResultMetadata{
			ProvidersUsed:  providers,
			EstimatedError: errPct,
		},
	}
}

func combineWeighted(results []fetchResult, weights map[string]float64) *models.EnhancedEToResult {
	// Normalize over the providers that succeeded. A provider absent
	// from the weight map gets zero weight.
	var total float64
	for _, r := range results {
		total += weights[r.provider]
	}
	if total == 0 {
		// Degenerate weight set; fall back to the simple mean.
		return combineSimple(results)
	}

	norm := make(map[string]float64, len(results))
	for _, r := range results {
		norm[r.provider] = weights[r.provider] / total
	}

	var mean float64
	for _, r := range results {
		mean += norm[r.provider] * r.eto
	}

	var variance float64
	for _, r := range results {
		variance += norm[r.provider] * (r.eto - mean) * (r.eto - mean)
	}
	stddev := math.Sqrt(variance)

	contributors := make([]models.Contributor, 0, len(results))
	providers := make([]string, 0, len(results))
	for _, r := range results {
		contributors = append(contributors, models.Contributor{Provider: r.provider, ETo: r.eto, Weight: norm[r.provider]})
		providers = append(providers, r.provider)
	}

	confidence, errPct := spread(mean, stddev)

	return &models.EnhancedEToResult{
		ETo:          mean,
		Confidence:   confidence,
		Method:       models.MethodWeightedEnsemble,
		Contributors: contributors,
		Metadata: models.ResultMetadata{
			ProvidersUsed:  providers,
			EstimatedError: errPct,
		},
	}
}

// spread converts a mean/stddev pair into the confidence and estimated
// error percentage. Confidence floors at zero for high-disagreement
// ensembles; the error percentage is still reported so callers can
// decide to reject.
func spread(mean, stddev float64) (confidence, errPct float64) {
	if mean <= 0 {
		if stddev == 0 {
			return 1, 0
		}
		return 0, 100
	}
	confidence = 1 - stddev/mean
	if confidence < 0 {
		confidence = 0
	}
	return confidence, stddev / mean * 100
}
