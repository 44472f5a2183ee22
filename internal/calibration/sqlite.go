package calibration

import (
	"database/sql"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/lox/etofusion/internal/models"
)

// SQLiteRepository persists calibrations in SQLite. Cell IDs encode the
// cell's south-west corner, so nearby lookup is a range query over the
// parsed coordinates.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Migrate() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS regional_calibrations (
			region_cell_id    TEXT NOT NULL,
			provider          TEXT NOT NULL,
			season            TEXT NOT NULL,
			correction_factor REAL NOT NULL,
			bias              REAL NOT NULL,
			sample_size       INTEGER NOT NULL,
			confidence        REAL NOT NULL,
			last_updated      TIMESTAMP NOT NULL,
			cell_lat          REAL NOT NULL,
			cell_lon          REAL NOT NULL,
			PRIMARY KEY (region_cell_id, provider, season)
		);
		CREATE INDEX IF NOT EXISTS idx_calibrations_cell ON regional_calibrations(cell_lat, cell_lon);
	`)
	if err != nil {
		return fmt.Errorf("migrate calibrations: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Save(cal models.RegionalCalibration) error {
	cellLat, cellLon, err := parseCellID(cal.RegionCellID)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(`
		INSERT INTO regional_calibrations (region_cell_id, provider, season, correction_factor, bias, sample_size, confidence, last_updated, cell_lat, cell_lon)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(region_cell_id, provider, season) DO UPDATE SET
			correction_factor = excluded.correction_factor,
			bias = excluded.bias,
			sample_size = excluded.sample_size,
			confidence = excluded.confidence,
			last_updated = excluded.last_updated
	`, cal.RegionCellID, cal.Provider, string(cal.Season), cal.CorrectionFactor, cal.Bias, cal.SampleSize, cal.Confidence, cal.LastUpdated, cellLat, cellLon)
	return err
}

func (r *SQLiteRepository) LoadNearby(lat, lon float64) ([]models.RegionalCalibration, error) {
	cellLat := math.Floor(lat*2) / 2
	cellLon := math.Floor(lon*2) / 2

	rows, err := r.db.Query(`
		SELECT region_cell_id, provider, season, correction_factor, bias, sample_size, confidence, last_updated
		FROM regional_calibrations
		WHERE cell_lat BETWEEN ? AND ? AND cell_lon BETWEEN ? AND ?
	`, cellLat-0.5, cellLat+0.5, cellLon-0.5, cellLon+0.5)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cals []models.RegionalCalibration
	for rows.Next() {
		var cal models.RegionalCalibration
		var season string
		var lastUpdated time.Time
		if err := rows.Scan(&cal.RegionCellID, &cal.Provider, &season, &cal.CorrectionFactor, &cal.Bias, &cal.SampleSize, &cal.Confidence, &lastUpdated); err != nil {
			return nil, err
		}
		cal.Season = models.Season(season)
		cal.LastUpdated = lastUpdated
		cals = append(cals, cal)
	}
	return cals, rows.Err()
}

func parseCellID(cellID string) (lat, lon float64, err error) {
	parts := strings.SplitN(cellID, ",", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("malformed cell id %q", cellID)
	}
	lat, err = strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed cell id %q: %w", cellID, err)
	}
	lon, err = strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed cell id %q: %w", cellID, err)
	}
	return lat, lon, nil
}
