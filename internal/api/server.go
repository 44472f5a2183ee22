// Package api exposes the accuracy engine over a small JSON HTTP
// surface. The engine itself stays a library; this is the serving shell
// used by the etofusion command.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lox/etofusion/internal/enhance"
	"github.com/lox/etofusion/internal/ensemble"
	"github.com/lox/etofusion/internal/models"
	"github.com/lox/etofusion/internal/provider"
	"github.com/lox/etofusion/internal/validation"
)

type Server struct {
	orchestrator *enhance.Orchestrator
	registry     *provider.Registry
	port         string
}

func NewServer(orchestrator *enhance.Orchestrator, registry *provider.Registry, port string) *Server {
	return &Server{
		orchestrator: orchestrator,
		registry:     registry,
		port:         port,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/eto", s.handleETo)
	mux.HandleFunc("/api/calibration", s.handleCalibration)
	mux.HandleFunc("/api/providers/compare", s.handleCompare)
	mux.HandleFunc("/api/strategy", s.handleStrategy)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    ":" + s.port,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// GET /api/eto?lat=..&lon=..&date=2024-06-15&ensemble=true&calibrate=true
func (s *Server) handleETo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	lat, latErr := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lon, lonErr := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	if latErr != nil || lonErr != nil {
		writeError(w, http.StatusBadRequest, "lat and lon are required")
		return
	}

	date := time.Now().UTC()
	if d := r.URL.Query().Get("date"); d != "" {
		parsed, err := time.Parse("2006-01-02", d)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		date = parsed
	}

	opts := enhance.Options{
		UseEnsemble:            r.URL.Query().Get("ensemble") == "true",
		UseRegionalCalibration: r.URL.Query().Get("calibrate") == "true",
		Provider:               r.URL.Query().Get("provider"),
	}

	result, err := s.orchestrator.GetEnhancedETo(r.Context(), lat, lon, date, opts)
	if err != nil {
		status := http.StatusBadGateway
		var noProviders *ensemble.NoProvidersError
		switch {
		case errors.Is(err, provider.ErrInvalidCoordinates), errors.Is(err, provider.ErrInvalidDateRange):
			status = http.StatusBadRequest
		case errors.As(err, &noProviders):
			status = http.StatusServiceUnavailable
		}
		log.Printf("api: eto request (%.4f, %.4f) failed: %v", lat, lon, err)
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, result)
}

type calibrationRequest struct {
	Provider    string  `json:"provider"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Date        string  `json:"date"`
	APIETo      float64 `json:"apiEto"`
	MeasuredETo float64 `json:"measuredEto"`
}

// POST /api/calibration
func (s *Server) handleCalibration(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req calibrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed body: "+err.Error())
		return
	}
	if req.Provider == "" {
		writeError(w, http.StatusBadRequest, "provider is required")
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	if err := s.orchestrator.AddCalibrationData(req.Provider, req.Latitude, req.Longitude, date, req.APIETo, req.MeasuredETo); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type compareRequest struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Providers []string `json:"providers"`
	Station   []struct {
		Date string  `json:"date"`
		ETo  float64 `json:"eto"`
	} `json:"station"`
}

// POST /api/providers/compare scores providers against caller-supplied
// station measurements.
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req compareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed body: "+err.Error())
		return
	}

	station := make([]models.WeatherObservation, 0, len(req.Station))
	for _, m := range req.Station {
		date, err := time.Parse("2006-01-02", m.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "station dates must be YYYY-MM-DD")
			return
		}
		station = append(station, models.WeatherObservation{Date: date, ETo: m.ETo, Provider: "station"})
	}

	providers := req.Providers
	if len(providers) == 0 {
		providers = s.registry.Names()
	}

	cmp, err := s.orchestrator.CompareProviders(r.Context(), providers, station, req.Latitude, req.Longitude)
	if err != nil {
		status := http.StatusBadGateway
		var insufficient *validation.InsufficientDataError
		if errors.Is(err, provider.ErrInvalidCoordinates) || errors.As(err, &insufficient) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, cmp)
}

// GET /api/strategy?sensors=true&calibrated=true&samples=25
func (s *Server) handleStrategy(w http.ResponseWriter, r *http.Request) {
	samples, _ := strconv.Atoi(r.URL.Query().Get("samples"))
	rec := enhance.RecommendStrategy(enhance.StrategyContext{
		HasLocalSensors:    r.URL.Query().Get("sensors") == "true",
		HasCalibration:     r.URL.Query().Get("calibrated") == "true",
		ValidationSamples:  samples,
		AvailableProviders: s.registry.Len(),
	})
	writeJSON(w, rec)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"status":    "ok",
		"providers": s.registry.Names(),
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
