package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/lox/etofusion/internal/httputil"
	"github.com/lox/etofusion/internal/models"
	"github.com/lox/etofusion/internal/penman"
)

const openWeatherName = "openweather"

// OpenWeather adapts the OpenWeatherMap One Call daily API. The vendor
// reports no radiation or ETo, so shortwave radiation is estimated from
// cloud cover and ETo is computed locally.
type OpenWeather struct {
	apiKey  string
	baseURL string
	fetch   *fetcher
}

func NewOpenWeather(apiKey string) *OpenWeather {
	return &OpenWeather{
		apiKey:  apiKey,
		baseURL: "https://api.openweathermap.org/data/3.0/onecall",
		fetch:   newFetcher(openWeatherName, httputil.NewClient()),
	}
}

// NewOpenWeatherWithBase is used by tests to point at a stub server.
func NewOpenWeatherWithBase(apiKey, baseURL string, client *http.Client) *OpenWeather {
	return &OpenWeather{
		apiKey:  apiKey,
		baseURL: baseURL,
		fetch:   newFetcher(openWeatherName, client),
	}
}

func (w *OpenWeather) Name() string { return openWeatherName }

type openWeatherResponse struct {
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Timezone string  `json:"timezone"`
	Daily    []struct {
		Dt   int64 `json:"dt"`
		Temp struct {
			Min float64 `json:"min"`
			Max float64 `json:"max"`
			Day float64 `json:"day"`
		} `json:"temp"`
		Humidity  float64  `json:"humidity"`
		WindSpeed float64  `json:"wind_speed"` // m/s with units=metric
		Clouds    float64  `json:"clouds"`     // percent
		Rain      *float64 `json:"rain"`
	} `json:"daily"`
}

func (w *OpenWeather) GetWeatherData(ctx context.Context, lat, lon float64, start, end time.Time) ([]models.WeatherObservation, error) {
	if err := ValidateCoordinates(lat, lon); err != nil {
		return nil, err
	}
	if start.After(end) {
		return nil, ErrInvalidDateRange
	}

	all, err := w.fetchDaily(ctx, lat, lon)
	if err != nil {
		return nil, err
	}

	startDay := start.Truncate(24 * time.Hour)
	endDay := end.Truncate(24 * time.Hour)
	var out []models.WeatherObservation
	for _, obs := range all {
		if obs.Date.Before(startDay) || obs.Date.After(endDay) {
			continue
		}
		out = append(out, obs)
	}
	if len(out) == 0 {
		return nil, &UnavailableError{Provider: openWeatherName, Reason: "no daily data covering requested range"}
	}
	return out, nil
}

func (w *OpenWeather) GetCurrentWeatherData(ctx context.Context, lat, lon float64) (*models.WeatherObservation, error) {
	if err := ValidateCoordinates(lat, lon); err != nil {
		return nil, err
	}
	all, err := w.fetchDaily(ctx, lat, lon)
	if err != nil {
		return nil, err
	}
	return &all[0], nil
}

func (w *OpenWeather) GetWeatherForecast(ctx context.Context, lat, lon float64, days int) ([]models.WeatherObservation, error) {
	if err := ValidateCoordinates(lat, lon); err != nil {
		return nil, err
	}
	all, err := w.fetchDaily(ctx, lat, lon)
	if err != nil {
		return nil, err
	}
	if days < len(all) {
		all = all[:days]
	}
	return all, nil
}

// GetHourlySolarRadiation returns nil: OpenWeatherMap has no radiation
// product on this plan.
func (w *OpenWeather) GetHourlySolarRadiation(ctx context.Context, lat, lon float64, date time.Time) ([]float64, error) {
	return nil, nil
}

func (w *OpenWeather) fetchDaily(ctx context.Context, lat, lon float64) ([]models.WeatherObservation, error) {
	if w.apiKey == "" {
		return nil, &UnavailableError{Provider: openWeatherName, Reason: "missing API key"}
	}

	url := fmt.Sprintf("%s?lat=%.4f&lon=%.4f&exclude=current,minutely,hourly,alerts&units=metric&appid=%s",
		w.baseURL, lat, lon, w.apiKey)

	body, err := w.fetch.getJSON(ctx, url)
	if err != nil {
		return nil, err
	}

	var data openWeatherResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, &UnavailableError{Provider: openWeatherName, Reason: "malformed response", Err: err}
	}
	if len(data.Daily) == 0 {
		return nil, &UnavailableError{Provider: openWeatherName, Reason: "empty daily series"}
	}

	obs := make([]models.WeatherObservation, 0, len(data.Daily))
	for _, d := range data.Daily {
		date := time.Unix(d.Dt, 0).UTC().Truncate(24 * time.Hour)
		solar := radiationFromClouds(data.Lat, date, d.Clouds)

		o := models.WeatherObservation{
			Date:                  date,
			TemperatureMax:        d.Temp.Max,
			TemperatureMin:        d.Temp.Min,
			TemperatureMean:       (d.Temp.Max + d.Temp.Min) / 2,
			RelativeHumidityMax:   d.Humidity,
			RelativeHumidityMin:   d.Humidity,
			RelativeHumidityMean:  d.Humidity,
			WindSpeed:             d.WindSpeed,
			ShortwaveRadiationSum: solar,
			SunshineDuration:      daylightHours(data.Lat, date) * (1 - d.Clouds/100),
			Latitude:              data.Lat,
			Longitude:             data.Lon,
			Timezone:              data.Timezone,
			Provider:              openWeatherName,
		}
		if d.Rain != nil {
			o.PrecipitationSum = *d.Rain
		}
		o.ETo = penman.ETo(o.TemperatureMax, o.TemperatureMin, o.RelativeHumidityMean, o.WindSpeed, o.ShortwaveRadiationSum)

		obs = append(obs, o)
	}
	return obs, nil
}
