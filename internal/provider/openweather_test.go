package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func setupOpenWeatherStub(t *testing.T, handler http.HandlerFunc) *OpenWeather {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOpenWeatherWithBase("test-key", srv.URL, srv.Client())
}

func TestOpenWeatherMissingAPIKey(t *testing.T) {
	w := NewOpenWeather("")
	_, err := w.GetCurrentWeatherData(context.Background(), 19.0, 73.0)
	if !IsUnavailable(err) {
		t.Fatalf("err = %v, want UnavailableError before any network call", err)
	}
}

func TestOpenWeatherComputesETo(t *testing.T) {
	day := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	w := setupOpenWeatherStub(t, func(rw http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("appid"); got != "test-key" {
			t.Errorf("appid = %q, want test-key", got)
		}
		if got := r.URL.Query().Get("units"); got != "metric" {
			t.Errorf("units = %q, want metric", got)
		}
		fmt.Fprintf(rw, `{
			"lat": 19.08, "lon": 73.2, "timezone": "Asia/Kolkata",
			"daily": [{
				"dt": %d,
				"temp": {"min": 24, "max": 32, "day": 28},
				"humidity": 70,
				"wind_speed": 2.5,
				"clouds": 40
			}]
		}`, day.Unix())
	})

	obs, err := w.GetWeatherData(context.Background(), 19.08, 73.2, day, day)
	if err != nil {
		t.Fatalf("GetWeatherData: %v", err)
	}
	if len(obs) != 1 {
		t.Fatalf("got %d observations, want 1", len(obs))
	}

	o := obs[0]
	if o.Provider != "openweather" {
		t.Errorf("Provider = %q, want openweather", o.Provider)
	}
	if o.TemperatureMean != 28 {
		t.Errorf("TemperatureMean = %v, want 28", o.TemperatureMean)
	}
	// No radiation product: shortwave must come from the cloud-cover
	// estimate, and ETo from the local calculation.
	if o.ShortwaveRadiationSum <= 0 {
		t.Errorf("ShortwaveRadiationSum = %v, want > 0", o.ShortwaveRadiationSum)
	}
	if o.ETo <= 0 {
		t.Errorf("ETo = %v, want > 0 for a warm June day", o.ETo)
	}
	if o.SunshineDuration <= 0 {
		t.Errorf("SunshineDuration = %v, want > 0 at 40%% clouds", o.SunshineDuration)
	}
}

func TestOpenWeatherNoDataInRange(t *testing.T) {
	day := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	w := setupOpenWeatherStub(t, func(rw http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(rw, `{"lat": 19, "lon": 73, "daily": [{"dt": %d, "temp": {"min": 24, "max": 32}}]}`, day.Unix())
	})

	_, err := w.GetWeatherData(context.Background(), 19, 73, day.AddDate(0, 1, 0), day.AddDate(0, 1, 2))
	if !IsUnavailable(err) {
		t.Errorf("err = %v, want UnavailableError for uncovered range", err)
	}
}

func TestOpenWeatherForecastTruncates(t *testing.T) {
	base := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	w := setupOpenWeatherStub(t, func(rw http.ResponseWriter, r *http.Request) {
		fmt.Fprint(rw, `{"lat": 19, "lon": 73, "daily": [`)
		for i := 0; i < 8; i++ {
			if i > 0 {
				fmt.Fprint(rw, ",")
			}
			fmt.Fprintf(rw, `{"dt": %d, "temp": {"min": 24, "max": 32}, "humidity": 70, "wind_speed": 2, "clouds": 20}`,
				base.AddDate(0, 0, i).Unix())
		}
		fmt.Fprint(rw, `]}`)
	})

	obs, err := w.GetWeatherForecast(context.Background(), 19, 73, 3)
	if err != nil {
		t.Fatalf("GetWeatherForecast: %v", err)
	}
	if len(obs) != 3 {
		t.Errorf("got %d days, want 3", len(obs))
	}
}
