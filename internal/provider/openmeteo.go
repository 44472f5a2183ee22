package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lox/etofusion/internal/httputil"
	"github.com/lox/etofusion/internal/models"
)

const openMeteoName = "open-meteo"

// OpenMeteo adapts the Open-Meteo forecast API. It is the only vendor
// here that reports FAO-56 ETo natively, so no recomputation is needed.
type OpenMeteo struct {
	baseURL string
	fetch   *fetcher
}

func NewOpenMeteo() *OpenMeteo {
	return &OpenMeteo{
		baseURL: "https://api.open-meteo.com/v1/forecast",
		fetch:   newFetcher(openMeteoName, httputil.NewClient()),
	}
}

// NewOpenMeteoWithBase is used by tests to point at a stub server.
func NewOpenMeteoWithBase(baseURL string, client *http.Client) *OpenMeteo {
	return &OpenMeteo{
		baseURL: baseURL,
		fetch:   newFetcher(openMeteoName, client),
	}
}

func (o *OpenMeteo) Name() string { return openMeteoName }

var openMeteoDailyVars = []string{
	"temperature_2m_max",
	"temperature_2m_min",
	"temperature_2m_mean",
	"relative_humidity_2m_max",
	"relative_humidity_2m_min",
	"relative_humidity_2m_mean",
	"windspeed_10m_max",
	"precipitation_sum",
	"shortwave_radiation_sum",
	"sunshine_duration",
	"et0_fao_evapotranspiration",
}

type openMeteoResponse struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Elevation float64 `json:"elevation"`
	Timezone  string  `json:"timezone"`
	Daily     struct {
		Time                    []string   `json:"time"`
		TempMax                 []*float64 `json:"temperature_2m_max"`
		TempMin                 []*float64 `json:"temperature_2m_min"`
		TempMean                []*float64 `json:"temperature_2m_mean"`
		HumidityMax             []*float64 `json:"relative_humidity_2m_max"`
		HumidityMin             []*float64 `json:"relative_humidity_2m_min"`
		HumidityMean            []*float64 `json:"relative_humidity_2m_mean"`
		WindSpeedMax            []*float64 `json:"windspeed_10m_max"`
		PrecipitationSum        []*float64 `json:"precipitation_sum"`
		ShortwaveRadiationSum   []*float64 `json:"shortwave_radiation_sum"`
		SunshineDuration        []*float64 `json:"sunshine_duration"`
		ET0FAOEvapotranspiration []*float64 `json:"et0_fao_evapotranspiration"`
	} `json:"daily"`
	Hourly struct {
		Time               []string   `json:"time"`
		ShortwaveRadiation []*float64 `json:"shortwave_radiation"`
	} `json:"hourly"`
}

func (o *OpenMeteo) GetWeatherData(ctx context.Context, lat, lon float64, start, end time.Time) ([]models.WeatherObservation, error) {
	if err := ValidateCoordinates(lat, lon); err != nil {
		return nil, err
	}
	if start.After(end) {
		return nil, ErrInvalidDateRange
	}

	values := url.Values{}
	values.Set("latitude", fmt.Sprintf("%.4f", lat))
	values.Set("longitude", fmt.Sprintf("%.4f", lon))
	values.Set("daily", strings.Join(openMeteoDailyVars, ","))
	values.Set("timezone", "auto")
	values.Set("start_date", start.Format("2006-01-02"))
	values.Set("end_date", end.Format("2006-01-02"))

	return o.fetchDaily(ctx, values)
}

func (o *OpenMeteo) GetCurrentWeatherData(ctx context.Context, lat, lon float64) (*models.WeatherObservation, error) {
	today := time.Now().UTC()
	obs, err := o.GetWeatherData(ctx, lat, lon, today, today)
	if err != nil {
		return nil, err
	}
	if len(obs) == 0 {
		return nil, &UnavailableError{Provider: openMeteoName, Reason: "no observation for today"}
	}
	return &obs[len(obs)-1], nil
}

func (o *OpenMeteo) GetWeatherForecast(ctx context.Context, lat, lon float64, days int) ([]models.WeatherObservation, error) {
	if err := ValidateCoordinates(lat, lon); err != nil {
		return nil, err
	}

	values := url.Values{}
	values.Set("latitude", fmt.Sprintf("%.4f", lat))
	values.Set("longitude", fmt.Sprintf("%.4f", lon))
	values.Set("daily", strings.Join(openMeteoDailyVars, ","))
	values.Set("timezone", "auto")
	values.Set("forecast_days", fmt.Sprintf("%d", days))

	return o.fetchDaily(ctx, values)
}

func (o *OpenMeteo) GetHourlySolarRadiation(ctx context.Context, lat, lon float64, date time.Time) ([]float64, error) {
	if err := ValidateCoordinates(lat, lon); err != nil {
		return nil, err
	}

	values := url.Values{}
	values.Set("latitude", fmt.Sprintf("%.4f", lat))
	values.Set("longitude", fmt.Sprintf("%.4f", lon))
	values.Set("hourly", "shortwave_radiation")
	values.Set("timezone", "auto")
	values.Set("start_date", date.Format("2006-01-02"))
	values.Set("end_date", date.Format("2006-01-02"))

	body, err := o.fetch.getJSON(ctx, o.baseURL+"?"+values.Encode())
	if err != nil {
		return nil, err
	}

	var data openMeteoResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, &UnavailableError{Provider: openMeteoName, Reason: "malformed response", Err: err}
	}

	// W/m2 over an hourly interval -> MJ/m2: x * 3600 / 1e6
	out := make([]float64, 0, len(data.Hourly.ShortwaveRadiation))
	for _, w := range data.Hourly.ShortwaveRadiation {
		if w == nil {
			out = append(out, 0)
			continue
		}
		out = append(out, *w*3600/1e6)
	}
	return out, nil
}

func (o *OpenMeteo) fetchDaily(ctx context.Context, values url.Values) ([]models.WeatherObservation, error) {
	body, err := o.fetch.getJSON(ctx, o.baseURL+"?"+values.Encode())
	if err != nil {
		return nil, err
	}

	var data openMeteoResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, &UnavailableError{Provider: openMeteoName, Reason: "malformed response", Err: err}
	}
	if len(data.Daily.Time) == 0 {
		return nil, &UnavailableError{Provider: openMeteoName, Reason: "empty daily series"}
	}

	obs := make([]models.WeatherObservation, 0, len(data.Daily.Time))
	for i, day := range data.Daily.Time {
		date, err := time.Parse("2006-01-02", day)
		if err != nil {
			return nil, &UnavailableError{Provider: openMeteoName, Reason: "bad date in response", Err: err}
		}

		o := models.WeatherObservation{
			Date:      date,
			Latitude:  data.Latitude,
			Longitude: data.Longitude,
			Elevation: data.Elevation,
			Timezone:  data.Timezone,
			Provider:  openMeteoName,
		}
		o.TemperatureMax = deref(data.Daily.TempMax, i)
		o.TemperatureMin = deref(data.Daily.TempMin, i)
		o.TemperatureMean = deref(data.Daily.TempMean, i)
		if o.TemperatureMean == 0 && (o.TemperatureMax != 0 || o.TemperatureMin != 0) {
			o.TemperatureMean = (o.TemperatureMax + o.TemperatureMin) / 2
		}
		o.RelativeHumidityMax = deref(data.Daily.HumidityMax, i)
		o.RelativeHumidityMin = deref(data.Daily.HumidityMin, i)
		o.RelativeHumidityMean = deref(data.Daily.HumidityMean, i)
		o.WindSpeed = deref(data.Daily.WindSpeedMax, i) / 3.6 // km/h -> m/s
		o.PrecipitationSum = deref(data.Daily.PrecipitationSum, i)
		o.ShortwaveRadiationSum = deref(data.Daily.ShortwaveRadiationSum, i) // already MJ/m2
		o.SunshineDuration = deref(data.Daily.SunshineDuration, i) / 3600    // seconds -> hours
		o.ETo = deref(data.Daily.ET0FAOEvapotranspiration, i)

		obs = append(obs, o)
	}
	return obs, nil
}

func deref(vals []*float64, i int) float64 {
	if i >= len(vals) || vals[i] == nil {
		return 0
	}
	return *vals[i]
}
