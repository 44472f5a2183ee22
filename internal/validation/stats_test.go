package validation

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/lox/etofusion/internal/models"
)

func day(d int) time.Time {
	return time.Date(2024, 6, d, 0, 0, 0, 0, time.UTC)
}

func obsSeries(provider string, etos ...float64) []models.WeatherObservation {
	out := make([]models.WeatherObservation, len(etos))
	for i, e := range etos {
		out[i] = models.WeatherObservation{Date: day(i + 1), ETo: e, Provider: provider}
	}
	return out
}

func TestRecordsMatchesByDate(t *testing.T) {
	estimates := obsSeries("open-meteo", 5.0, 5.5, 6.0)
	station := []models.WeatherObservation{
		{Date: day(1), ETo: 4.8},
		{Date: day(3), ETo: 5.7},
		{Date: day(9), ETo: 9.9}, // no estimate for this date
	}

	records := Records("open-meteo", estimates, station)
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}
	if math.Abs(records[0].Error-0.2) > 1e-9 {
		t.Errorf("records[0].Error = %v, want 0.2", records[0].Error)
	}
	if records[0].Provider != "open-meteo" {
		t.Errorf("Provider = %q, want open-meteo", records[0].Provider)
	}
}

func TestStatsInsufficientData(t *testing.T) {
	_, err := Stats("open-meteo", nil)
	var insufficient *InsufficientDataError
	if !errors.As(err, &insufficient) {
		t.Fatalf("err = %v, want *InsufficientDataError", err)
	}
}

func TestStatsKnownValues(t *testing.T) {
	records := []models.ValidationRecord{
		{APIETo: 5.0, MeasuredETo: 4.0, Error: 1.0},
		{APIETo: 5.0, MeasuredETo: 6.0, Error: -1.0},
		{APIETo: 6.0, MeasuredETo: 5.0, Error: 1.0},
		{APIETo: 4.0, MeasuredETo: 5.0, Error: -1.0},
	}

	stats, err := Stats("open-meteo", records)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.MeanBias != 0 {
		t.Errorf("MeanBias = %v, want 0", stats.MeanBias)
	}
	if stats.MAE != 1.0 {
		t.Errorf("MAE = %v, want 1.0", stats.MAE)
	}
	if stats.RMSE != 1.0 {
		t.Errorf("RMSE = %v, want 1.0", stats.RMSE)
	}
	if stats.SampleSize != 4 {
		t.Errorf("SampleSize = %d, want 4", stats.SampleSize)
	}
}

func TestStatsPerfectProvider(t *testing.T) {
	records := []models.ValidationRecord{
		{APIETo: 4.0, MeasuredETo: 4.0},
		{APIETo: 5.0, MeasuredETo: 5.0},
		{APIETo: 6.0, MeasuredETo: 6.0},
	}

	stats, err := Stats("open-meteo", records)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.RMSE != 0 {
		t.Errorf("RMSE = %v, want 0", stats.RMSE)
	}
	if stats.R2 != 1.0 {
		t.Errorf("R2 = %v, want 1.0", stats.R2)
	}
	if !strings.HasPrefix(stats.Recommendation, "excellent") {
		t.Errorf("Recommendation = %q, want excellent band", stats.Recommendation)
	}
}

func TestCompareSelectsLowestRMSE(t *testing.T) {
	station := obsSeries("station", 5.0, 5.5, 6.0, 5.2)

	// "good" is ~0.3 off each day, "rough" ~0.8.
	estimates := map[string][]models.WeatherObservation{
		"good":  obsSeries("good", 5.3, 5.8, 6.3, 5.5),
		"rough": obsSeries("rough", 5.8, 6.3, 6.8, 6.0),
	}

	cmp := Compare(estimates, station)
	if cmp.BestProvider != "good" {
		t.Errorf("BestProvider = %q, want good", cmp.BestProvider)
	}
	if len(cmp.Validations) != 2 {
		t.Fatalf("Validations = %d, want 2", len(cmp.Validations))
	}
	if cmp.Validations[0].Provider != "good" {
		t.Errorf("validations not sorted by RMSE: first = %q", cmp.Validations[0].Provider)
	}
	if !strings.Contains(cmp.Report, "Best provider: good") {
		t.Errorf("report missing best provider line:\n%s", cmp.Report)
	}
}

func TestCompareNoUsableProviders(t *testing.T) {
	station := obsSeries("station", 5.0)

	cmp := Compare(map[string][]models.WeatherObservation{}, station)
	if cmp.BestProvider != "" {
		t.Errorf("BestProvider = %q, want empty", cmp.BestProvider)
	}
	if !strings.Contains(cmp.Report, "No providers") {
		t.Errorf("report = %q, want explanation", cmp.Report)
	}
}
