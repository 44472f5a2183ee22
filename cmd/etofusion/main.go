package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"
	_ "modernc.org/sqlite"

	"github.com/lox/etofusion/internal/api"
	"github.com/lox/etofusion/internal/calibration"
	"github.com/lox/etofusion/internal/enhance"
	"github.com/lox/etofusion/internal/models"
	"github.com/lox/etofusion/internal/provider"
)

type cli struct {
	DB             string `name:"db" default:"data/etofusion.db" help:"Path to SQLite calibration database."`
	OpenWeatherKey string `name:"openweather-key" env:"OPENWEATHER_API_KEY" help:"OpenWeatherMap API key (optional)."`
	PWSKey         string `name:"pws-key" env:"PWS_API_KEY" help:"Weather Underground PWS API key (optional)."`
	PWSStation     string `name:"pws-station" env:"PWS_STATION_ID" help:"Weather Underground station ID (optional)."`

	Serve    serveCmd    `cmd:"" help:"Run the HTTP API."`
	Estimate estimateCmd `cmd:"" help:"Print one enhanced ETo estimate as JSON."`
	Compare  compareCmd  `cmd:"" help:"Compare provider accuracy against station measurements."`
}

type serveCmd struct {
	Port string `default:"8080" env:"PORT" help:"HTTP listen port."`
}

type estimateCmd struct {
	Lat       float64 `required:"" help:"Latitude."`
	Lon       float64 `required:"" help:"Longitude."`
	Date      string  `help:"Date (YYYY-MM-DD), defaults to today."`
	Ensemble  bool    `default:"true" help:"Combine all configured providers."`
	Calibrate bool    `help:"Apply learned regional calibration."`
	Provider  string  `help:"Pin a specific provider (disables ensemble)."`
}

type compareCmd struct {
	Lat         float64 `required:"" help:"Latitude."`
	Lon         float64 `required:"" help:"Longitude."`
	StationFile string  `required:"" type:"existingfile" help:"JSON file of station measurements: [{\"date\":\"YYYY-MM-DD\",\"eto\":5.2}, ...]."`
}

type app struct {
	orchestrator *enhance.Orchestrator
	registry     *provider.Registry
}

func main() {
	var c cli
	kctx := kong.Parse(&c,
		kong.Name("etofusion"),
		kong.Description("Multi-provider reference evapotranspiration estimates with accuracy enhancement."),
		kong.Configuration(kongdotenv.ENVFileReader, ".env"),
	)

	db, err := sql.Open("sqlite", c.DB)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")

	repo := calibration.NewSQLiteRepository(db)
	if err := repo.Migrate(); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	registry := buildRegistry(c)
	if registry.Len() == 0 {
		log.Fatal("no providers configured")
	}
	log.Printf("providers: %v", registry.Names())

	orchestrator := enhance.New(registry, calibration.NewStore(repo))

	kctx.FatalIfErrorf(kctx.Run(&app{orchestrator: orchestrator, registry: registry}))
}

// buildRegistry registers every provider that has the credentials it
// needs. Open-Meteo is keyless and always available; ordering doubles
// as the static quality ranking.
func buildRegistry(c cli) *provider.Registry {
	providers := []provider.Provider{provider.NewOpenMeteo()}
	if c.OpenWeatherKey != "" {
		providers = append(providers, provider.NewOpenWeather(c.OpenWeatherKey))
	}
	if c.PWSKey != "" && c.PWSStation != "" {
		providers = append(providers, provider.NewPWS(c.PWSKey, c.PWSStation))
	}
	return provider.NewRegistry(providers...)
}

func (cmd *serveCmd) Run(a *app) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	server := api.NewServer(a.orchestrator, a.registry, cmd.Port)
	log.Printf("starting server on :%s", cmd.Port)
	return server.Run(ctx)
}

func (cmd *estimateCmd) Run(a *app) error {
	date := time.Now().UTC()
	if cmd.Date != "" {
		parsed, err := time.Parse("2006-01-02", cmd.Date)
		if err != nil {
			return fmt.Errorf("parse date: %w", err)
		}
		date = parsed
	}

	opts := enhance.Options{
		UseEnsemble:            cmd.Ensemble && cmd.Provider == "",
		UseRegionalCalibration: cmd.Calibrate,
		Provider:               cmd.Provider,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	result, err := a.orchestrator.GetEnhancedETo(ctx, cmd.Lat, cmd.Lon, date, opts)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

type stationMeasurement struct {
	Date string  `json:"date"`
	ETo  float64 `json:"eto"`
}

func (cmd *compareCmd) Run(a *app) error {
	raw, err := os.ReadFile(cmd.StationFile)
	if err != nil {
		return fmt.Errorf("read station file: %w", err)
	}

	var measurements []stationMeasurement
	if err := json.Unmarshal(raw, &measurements); err != nil {
		return fmt.Errorf("parse station file: %w", err)
	}

	station := make([]models.WeatherObservation, 0, len(measurements))
	for _, m := range measurements {
		date, err := time.Parse("2006-01-02", m.Date)
		if err != nil {
			return fmt.Errorf("parse station date %q: %w", m.Date, err)
		}
		station = append(station, models.WeatherObservation{Date: date, ETo: m.ETo, Provider: "station"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	cmp, err := a.orchestrator.CompareProviders(ctx, a.registry.Names(), station, cmd.Lat, cmd.Lon)
	if err != nil {
		return err
	}

	fmt.Print(cmp.Report)
	return nil
}
