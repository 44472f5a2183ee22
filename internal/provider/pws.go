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

// PWS adapts a Weather Underground personal weather station's daily
// summary feed. A station is fixed at construction; the lat/lon on each
// call is validated but the station's own coordinates are reported.
// WU metric units: wind in km/h, solar radiation in W/m2.
type PWS struct {
	apiKey    string
	stationID string
	baseURL   string
	fetch     *fetcher
}

func NewPWS(apiKey, stationID string) *PWS {
	return &PWS{
		apiKey:    apiKey,
		stationID: stationID,
		baseURL:   "https://api.weather.com/v2/pws",
		fetch:     newFetcher("pws", httputil.NewClient()),
	}
}

// NewPWSWithBase is used by tests to point at a stub server.
func NewPWSWithBase(apiKey, stationID, baseURL string, client *http.Client) *PWS {
	return &PWS{
		apiKey:    apiKey,
		stationID: stationID,
		baseURL:   baseURL,
		fetch:     newFetcher("pws", client),
	}
}

func (p *PWS) Name() string { return "pws-" + p.stationID }

type pwsDailyResponse struct {
	Summaries []struct {
		StationID    string   `json:"stationID"`
		Tz           string   `json:"tz"`
		ObsTimeUtc   string   `json:"obsTimeUtc"`
		Epoch        int64    `json:"epoch"`
		Lat          float64  `json:"lat"`
		Lon          float64  `json:"lon"`
		HumidityHigh *float64 `json:"humidityHigh"`
		HumidityLow  *float64 `json:"humidityLow"`
		HumidityAvg  *float64 `json:"humidityAvg"`
		SolarRadHigh *float64 `json:"solarRadiationHigh"`
		Metric       *struct {
			TempHigh      *float64 `json:"tempHigh"`
			TempLow       *float64 `json:"tempLow"`
			TempAvg       *float64 `json:"tempAvg"`
			WindspeedAvg  *float64 `json:"windspeedAvg"`
			PrecipTotal   *float64 `json:"precipTotal"`
		} `json:"metric"`
	} `json:"summaries"`
}

func (p *PWS) GetWeatherData(ctx context.Context, lat, lon float64, start, end time.Time) ([]models.WeatherObservation, error) {
	if err := ValidateCoordinates(lat, lon); err != nil {
		return nil, err
	}
	if start.After(end) {
		return nil, ErrInvalidDateRange
	}
	if p.apiKey == "" {
		return nil, &UnavailableError{Provider: p.Name(), Reason: "missing API key"}
	}

	url := fmt.Sprintf("%s/dailysummary/7day?stationId=%s&format=json&units=m&apiKey=%s",
		p.baseURL, p.stationID, p.apiKey)

	body, err := p.fetch.getJSON(ctx, url)
	if err != nil {
		return nil, err
	}

	var data pwsDailyResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, &UnavailableError{Provider: p.Name(), Reason: "malformed response", Err: err}
	}
	if len(data.Summaries) == 0 {
		return nil, &UnavailableError{Provider: p.Name(), Reason: fmt.Sprintf("no summaries returned for %s", p.stationID)}
	}

	startDay := start.Truncate(24 * time.Hour)
	endDay := end.Truncate(24 * time.Hour)

	var out []models.WeatherObservation
	for _, s := range data.Summaries {
		date := time.Unix(s.Epoch, 0).UTC().Truncate(24 * time.Hour)
		if date.Before(startDay) || date.After(endDay) {
			continue
		}

		o := models.WeatherObservation{
			Date:      date,
			Latitude:  s.Lat,
			Longitude: s.Lon,
			Timezone:  s.Tz,
			Provider:  p.Name(),
		}
		if s.HumidityHigh != nil {
			o.RelativeHumidityMax = *s.HumidityHigh
		}
		if s.HumidityLow != nil {
			o.RelativeHumidityMin = *s.HumidityLow
		}
		if s.HumidityAvg != nil {
			o.RelativeHumidityMean = *s.HumidityAvg
		}
		if s.SolarRadHigh != nil {
			// Peak W/m2 over the day -> MJ/m2/day
			o.ShortwaveRadiationSum = *s.SolarRadHigh * 0.0864
		}
		if s.Metric != nil {
			if s.Metric.TempHigh != nil {
				o.TemperatureMax = *s.Metric.TempHigh
			}
			if s.Metric.TempLow != nil {
				o.TemperatureMin = *s.Metric.TempLow
			}
			if s.Metric.TempAvg != nil {
				o.TemperatureMean = *s.Metric.TempAvg
			} else {
				o.TemperatureMean = (o.TemperatureMax + o.TemperatureMin) / 2
			}
			if s.Metric.WindspeedAvg != nil {
				o.WindSpeed = *s.Metric.WindspeedAvg / 3.6 // km/h -> m/s
			}
			if s.Metric.PrecipTotal != nil {
				o.PrecipitationSum = *s.Metric.PrecipTotal
			}
		}
		o.ETo = penman.ETo(o.TemperatureMax, o.TemperatureMin, o.RelativeHumidityMean, o.WindSpeed, o.ShortwaveRadiationSum)

		out = append(out, o)
	}

	if len(out) == 0 {
		return nil, &UnavailableError{Provider: p.Name(), Reason: "no summaries covering requested range"}
	}
	return out, nil
}

func (p *PWS) GetCurrentWeatherData(ctx context.Context, lat, lon float64) (*models.WeatherObservation, error) {
	now := time.Now().UTC()
	obs, err := p.GetWeatherData(ctx, lat, lon, now.AddDate(0, 0, -1), now)
	if err != nil {
		return nil, err
	}
	return &obs[len(obs)-1], nil
}

// GetWeatherForecast returns unavailable: a personal weather station
// only reports history.
func (p *PWS) GetWeatherForecast(ctx context.Context, lat, lon float64, days int) ([]models.WeatherObservation, error) {
	return nil, &UnavailableError{Provider: p.Name(), Reason: "station has no forecast product"}
}

// GetHourlySolarRadiation returns nil: daily summaries only.
func (p *PWS) GetHourlySolarRadiation(ctx context.Context, lat, lon float64, date time.Time) ([]float64, error) {
	return nil, nil
}
