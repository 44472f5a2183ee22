// Package provider adapts vendor weather APIs to a common observation
// record. Adapters convert vendor units and compute FAO-56 ETo when the
// vendor does not supply it.
package provider

import (
	"context"
	"time"

	"github.com/lox/etofusion/internal/models"
)

// Provider is the contract every vendor adapter satisfies. Failures are
// reported as *UnavailableError so callers can tell a vendor outage
// apart from a caller mistake.
type Provider interface {
	Name() string

	// GetWeatherData returns one observation per day over [start, end].
	GetWeatherData(ctx context.Context, lat, lon float64, start, end time.Time) ([]models.WeatherObservation, error)

	// GetCurrentWeatherData returns the most recent daily observation.
	GetCurrentWeatherData(ctx context.Context, lat, lon float64) (*models.WeatherObservation, error)

	// GetWeatherForecast returns up to days forward-looking observations.
	GetWeatherForecast(ctx context.Context, lat, lon float64, days int) ([]models.WeatherObservation, error)

	// GetHourlySolarRadiation returns hourly shortwave radiation in
	// MJ/m2 for the given date, or nil if the vendor has no hourly
	// radiation product.
	GetHourlySolarRadiation(ctx context.Context, lat, lon float64, date time.Time) ([]float64, error)
}

// Registry is an explicitly constructed, ordered set of providers.
// Order matters: it is the fallback preference used when no accuracy
// history exists.
type Registry struct {
	providers []Provider
	byName    map[string]Provider
}

func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{byName: make(map[string]Provider)}
	for _, p := range providers {
		r.providers = append(r.providers, p)
		r.byName[p.Name()] = p
	}
	return r
}

// Get returns the named provider, or nil if not registered.
func (r *Registry) Get(name string) Provider {
	return r.byName[name]
}

// All returns providers in registration order.
func (r *Registry) All() []Provider {
	return r.providers
}

// Names returns provider names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for _, p := range r.providers {
		names = append(names, p.Name())
	}
	return names
}

func (r *Registry) Len() int {
	return len(r.providers)
}
