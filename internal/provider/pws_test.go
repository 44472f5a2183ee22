package provider

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPWSGetWeatherData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("stationId"); got != "ITEST1" {
			t.Errorf("stationId = %q, want ITEST1", got)
		}
		w.Write([]byte(`{
			"summaries": [{
				"stationID": "ITEST1",
				"tz": "Asia/Kolkata",
				"epoch": 1718409600,
				"lat": 19.08,
				"lon": 73.19,
				"humidityHigh": 92,
				"humidityLow": 58,
				"humidityAvg": 75,
				"solarRadiationHigh": 250,
				"metric": {
					"tempHigh": 33.1,
					"tempLow": 25.8,
					"tempAvg": 29.0,
					"windspeedAvg": 10.8,
					"precipTotal": 4.5
				}
			}]
		}`))
	}))
	defer server.Close()

	p := NewPWSWithBase("test-key", "ITEST1", server.URL, server.Client())
	obs, err := p.GetWeatherData(context.Background(), 19.08, 73.19, testDate, testDate)
	if err != nil {
		t.Fatalf("GetWeatherData: %v", err)
	}
	if len(obs) != 1 {
		t.Fatalf("len(obs) = %d, want 1", len(obs))
	}

	o := obs[0]
	if math.Abs(o.WindSpeed-3.0) > 1e-9 {
		t.Errorf("WindSpeed = %v, want 3.0 (10.8 km/h converted)", o.WindSpeed)
	}
	if math.Abs(o.ShortwaveRadiationSum-21.6) > 1e-9 {
		t.Errorf("ShortwaveRadiationSum = %v, want 21.6 (250 W/m2 x 0.0864)", o.ShortwaveRadiationSum)
	}
	if o.ETo <= 0 {
		t.Errorf("ETo = %v, want computed > 0", o.ETo)
	}
	if o.Provider != "pws-ITEST1" {
		t.Errorf("Provider = %q, want pws-ITEST1", o.Provider)
	}
}

func TestPWSMissingAPIKey(t *testing.T) {
	p := NewPWS("", "ITEST1")
	_, err := p.GetWeatherData(context.Background(), 19.08, 73.19, testDate, testDate)
	if !IsUnavailable(err) {
		t.Errorf("err = %v, want UnavailableError for missing key", err)
	}
}

func TestPWSNoForecastProduct(t *testing.T) {
	p := NewPWS("test-key", "ITEST1")
	_, err := p.GetWeatherForecast(context.Background(), 19.08, 73.19, 7)
	if !IsUnavailable(err) {
		t.Errorf("err = %v, want UnavailableError", err)
	}
}
