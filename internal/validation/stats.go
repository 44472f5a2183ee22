// Package validation turns ground-truth comparisons into accuracy
// statistics, bias signals, and provider rankings.
package validation

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/lox/etofusion/internal/models"
)

// InsufficientDataError is non-fatal: callers fall back to a
// lower-confidence method rather than failing the request.
type InsufficientDataError struct {
	Needed int
	Got    int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient validation data: need %d samples, got %d", e.Needed, e.Got)
}

// Records pairs provider estimates with station measurements by date.
// Only dates present on both sides produce a ValidationRecord.
func Records(providerName string, estimates, station []models.WeatherObservation) []models.ValidationRecord {
	byDate := make(map[string]models.WeatherObservation, len(station))
	for _, s := range station {
		byDate[s.Date.Format("2006-01-02")] = s
	}

	var records []models.ValidationRecord
	for _, e := range estimates {
		s, ok := byDate[e.Date.Format("2006-01-02")]
		if !ok {
			continue
		}
		rec := models.ValidationRecord{
			Date:        e.Date,
			Provider:    providerName,
			APIETo:      e.ETo,
			MeasuredETo: s.ETo,
			Error:       e.ETo - s.ETo,
		}
		if s.ETo != 0 {
			rec.ErrorPercent = rec.Error / s.ETo * 100
		}
		records = append(records, rec)
	}
	return records
}

// Stats computes the standard regression-accuracy summary over matched
// records. At least two records are required for a meaningful R2.
func Stats(providerName string, records []models.ValidationRecord) (models.ValidationStats, error) {
	if len(records) < 2 {
		return models.ValidationStats{}, &InsufficientDataError{Needed: 2, Got: len(records)}
	}

	n := float64(len(records))

	var biasSum, absSum, sqSum, measuredSum float64
	for _, r := range records {
		biasSum += r.Error
		absSum += math.Abs(r.Error)
		sqSum += r.Error * r.Error
		measuredSum += r.MeasuredETo
	}

	meanBias := biasSum / n
	measuredMean := measuredSum / n

	var ssTot float64
	for _, r := range records {
		ssTot += (r.MeasuredETo - measuredMean) * (r.MeasuredETo - measuredMean)
	}

	r2 := 0.0
	if ssTot > 0 {
		r2 = 1 - sqSum/ssTot
	}

	stats := models.ValidationStats{
		Provider:   providerName,
		MeanBias:   meanBias,
		RMSE:       math.Sqrt(sqSum / n),
		MAE:        absSum / n,
		R2:         r2,
		SampleSize: len(records),
	}
	if measuredMean != 0 {
		stats.MeanBiasPercent = meanBias / measuredMean * 100
	}
	stats.Recommendation = recommendation(stats.RMSE)
	return stats, nil
}

func recommendation(rmse float64) string {
	switch {
	case rmse < 0.5:
		return "excellent: suitable as the primary provider"
	case rmse < 1.0:
		return "good: usable standalone, better in an ensemble"
	case rmse < 1.5:
		return "fair: use only with regional calibration"
	default:
		return "poor: use only as an ensemble member"
	}
}

// Comparison ranks several providers against the same station record.
type Comparison struct {
	Validations  []models.ValidationStats `json:"validations"`
	BestProvider string                   `json:"bestProvider"`
	Report       string                   `json:"report"`
}

// Compare validates each provider's estimates against the station
// observations and selects the lowest-RMSE provider. Providers without
// enough matched data are skipped.
func Compare(estimates map[string][]models.WeatherObservation, station []models.WeatherObservation) Comparison {
	var validations []models.ValidationStats
	for name, est := range estimates {
		stats, err := Stats(name, Records(name, est, station))
		if err != nil {
			continue
		}
		validations = append(validations, stats)
	}

	sort.Slice(validations, func(i, j int) bool { return validations[i].RMSE < validations[j].RMSE })

	cmp := Comparison{Validations: validations}
	if len(validations) > 0 {
		cmp.BestProvider = validations[0].Provider
	}
	cmp.Report = buildReport(validations)
	return cmp
}

func buildReport(validations []models.ValidationStats) string {
	if len(validations) == 0 {
		return "No providers had enough matched data to compare."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Provider comparison over %d provider(s), generated %s\n\n",
		len(validations), time.Now().UTC().Format("2006-01-02"))
	for i, v := range validations {
		marker := "  "
		if i == 0 {
			marker = "* "
		}
		fmt.Fprintf(&b, "%s%s: RMSE %.2f mm/day, MAE %.2f, bias %+.2f (%.1f%%), R2 %.2f over %d samples\n",
			marker, v.Provider, v.RMSE, v.MAE, v.MeanBias, v.MeanBiasPercent, v.R2, v.SampleSize)
		fmt.Fprintf(&b, "    %s\n", v.Recommendation)
	}
	fmt.Fprintf(&b, "\nBest provider: %s (lowest RMSE)\n", validations[0].Provider)
	return b.String()
}
