package calibration

import (
	"log"
	"sync"
	"time"

	"github.com/lox/etofusion/internal/metrics"
	"github.com/lox/etofusion/internal/models"
)

// EMA learning rate for the online update.
const alpha = 0.2

// Applied is the outcome of looking up and applying a calibration.
type Applied struct {
	ETo        float64 // calibrated estimate, mm/day
	Correction float64 // calibrated - input, mm/day
	Confidence float64 // 0 when no entry exists
	Found      bool
}

// Store holds learned calibrations for concurrent use across requests.
// Updates for one (region, provider, season) key are serialized on a
// per-entry mutex; reads copy under the entry lock so callers see a
// stable snapshot. Entries are never deleted here; retention is an
// external policy concern.
type Store struct {
	mu       sync.RWMutex
	entries  map[string]*entry
	hydrated map[string]bool // cells already loaded from the repository

	repo Repository // optional durable boundary, may be nil
}

type entry struct {
	mu  sync.Mutex
	cal models.RegionalCalibration
}

// NewStore creates an empty store. repo may be nil for purely in-memory
// operation; when set, every update is persisted through it and
// persistence failures degrade to a log line.
func NewStore(repo Repository) *Store {
	return &Store{
		entries:  make(map[string]*entry),
		hydrated: make(map[string]bool),
		repo:     repo,
	}
}

// Hydrate loads previously persisted calibrations near a location into
// memory. Called lazily on the first Apply or Update touching a cell;
// a repository failure is non-fatal, the store just starts cold.
func (s *Store) Hydrate(lat, lon float64) {
	if s.repo == nil {
		return
	}
	cals, err := s.repo.LoadNearby(lat, lon)
	if err != nil {
		log.Printf("calibration: load nearby (%.4f, %.4f) failed, starting cold: %v", lat, lon, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cal := range cals {
		key := Key(cal.RegionCellID, cal.Provider, cal.Season)
		if _, ok := s.entries[key]; !ok {
			s.entries[key] = &entry{cal: cal}
		}
	}
	if len(cals) > 0 {
		log.Printf("calibration: hydrated %d entries near (%.4f, %.4f)", len(cals), lat, lon)
	}
}

func (s *Store) ensureHydrated(lat, lon float64) {
	if s.repo == nil {
		return
	}
	cell := CellID(lat, lon)
	s.mu.RLock()
	done := s.hydrated[cell]
	s.mu.RUnlock()
	if done {
		return
	}
	s.Hydrate(lat, lon)
	s.mu.Lock()
	s.hydrated[cell] = true
	s.mu.Unlock()
}

// Apply looks up the calibration for (cell, provider, season) and
// applies it to eto. With no entry the input passes through unchanged
// with zero confidence.
func (s *Store) Apply(eto float64, providerName string, lat, lon float64, date time.Time) Applied {
	s.ensureHydrated(lat, lon)
	key := Key(CellID(lat, lon), providerName, SeasonOf(date))

	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return Applied{ETo: eto}
	}

	e.mu.Lock()
	factor := e.cal.CorrectionFactor
	bias := e.cal.Bias
	confidence := e.cal.Confidence
	e.mu.Unlock()

	calibrated := eto*factor - bias
	return Applied{
		ETo:        calibrated,
		Correction: calibrated - eto,
		Confidence: confidence,
		Found:      true,
	}
}

// Update feeds one (api, measured) pair into the exponential moving
// average for the key, creating the entry on first sight. Intentionally
// a simple auditable statistic, not a trained model.
func (s *Store) Update(providerName string, lat, lon float64, date time.Time, apiETo, measuredETo float64) models.RegionalCalibration {
	s.ensureHydrated(lat, lon)
	cellID := CellID(lat, lon)
	season := SeasonOf(date)
	key := Key(cellID, providerName, season)

	s.mu.Lock()
	e, ok := s.entries[key]
	if !ok {
		e = &entry{cal: models.RegionalCalibration{
			RegionCellID:     cellID,
			Provider:         providerName,
			Season:           season,
			CorrectionFactor: 1.0,
			Bias:             0,
		}}
		s.entries[key] = e
	}
	s.mu.Unlock()

	e.mu.Lock()
	if apiETo != 0 {
		ratio := measuredETo / apiETo
		e.cal.CorrectionFactor = e.cal.CorrectionFactor*(1-alpha) + ratio*alpha
	}
	errVal := apiETo - measuredETo
	e.cal.Bias = e.cal.Bias*(1-alpha) + errVal*alpha
	e.cal.SampleSize++
	e.cal.Confidence = confidenceFor(e.cal.SampleSize)
	e.cal.LastUpdated = time.Now().UTC()
	updated := e.cal
	e.mu.Unlock()

	metrics.CalibrationUpdates.WithLabelValues(providerName, string(season)).Inc()

	if s.repo != nil {
		if err := s.repo.Save(updated); err != nil {
			log.Printf("calibration: persist %s failed: %v", key, err)
		}
	}
	return updated
}

// Get returns a copy of the entry for the key, if present.
func (s *Store) Get(cellID, providerName string, season models.Season) (models.RegionalCalibration, bool) {
	s.mu.RLock()
	e, ok := s.entries[Key(cellID, providerName, season)]
	s.mu.RUnlock()
	if !ok {
		return models.RegionalCalibration{}, false
	}
	e.mu.Lock()
	cal := e.cal
	e.mu.Unlock()
	return cal, true
}

// Len reports the number of learned entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// confidenceFor saturates at 0.95 after 30 samples.
func confidenceFor(sampleSize int) float64 {
	c := float64(sampleSize) / 30
	if c > 0.95 {
		return 0.95
	}
	return c
}
