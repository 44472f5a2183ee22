package validation

import (
	"sort"
)

// minSelectorSamples is the history a provider needs before its accuracy
// record is trusted for ranking.
const minSelectorSamples = 5

// AccuracyRecord is a provider's historical error summary for one
// region/season, as tracked by the orchestrator.
type AccuracyRecord struct {
	ErrorMetric float64 // lower is better, e.g. RMSE in mm/day
	SampleSize  int
}

// Selector ranks providers by historical accuracy, falling back to a
// fixed quality ordering when no provider has enough history.
type Selector struct {
	staticRanking []string
}

// NewSelector takes the static best-first ranking used when accuracy
// history is missing or too thin.
func NewSelector(staticRanking []string) *Selector {
	return &Selector{staticRanking: staticRanking}
}

// Best returns the provider with the lowest error metric among those
// with at least minSelectorSamples history. With no qualifying history
// the static ranking's first entry wins.
func (s *Selector) Best(history map[string]AccuracyRecord) string {
	type ranked struct {
		name   string
		metric float64
	}

	var qualified []ranked
	for name, rec := range history {
		if rec.SampleSize >= minSelectorSamples {
			qualified = append(qualified, ranked{name: name, metric: rec.ErrorMetric})
		}
	}

	if len(qualified) == 0 {
		if len(s.staticRanking) == 0 {
			return ""
		}
		return s.staticRanking[0]
	}

	sort.Slice(qualified, func(i, j int) bool {
		if qualified[i].metric != qualified[j].metric {
			return qualified[i].metric < qualified[j].metric
		}
		return qualified[i].name < qualified[j].name
	})
	return qualified[0].name
}

// StaticRanking returns the configured fallback ordering.
func (s *Selector) StaticRanking() []string {
	return s.staticRanking
}
