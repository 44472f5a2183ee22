package calibration

import (
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lox/etofusion/internal/models"
)

func setupTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	repo := NewSQLiteRepository(db)
	if err := repo.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return repo
}

func TestSaveAndLoadNearby(t *testing.T) {
	repo := setupTestRepo(t)

	cal := models.RegionalCalibration{
		RegionCellID:     "19.5,73.5",
		Provider:         "open-meteo",
		Season:           models.SeasonMonsoon,
		CorrectionFactor: 0.96,
		Bias:             0.4,
		SampleSize:       1,
		Confidence:       1.0 / 30,
		LastUpdated:      time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC),
	}
	if err := repo.Save(cal); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := repo.LoadNearby(19.97, 73.78)
	if err != nil {
		t.Fatalf("LoadNearby: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0].RegionCellID != "19.5,73.5" {
		t.Errorf("RegionCellID = %q, want 19.5,73.5", got[0].RegionCellID)
	}
	if got[0].CorrectionFactor != 0.96 {
		t.Errorf("CorrectionFactor = %v, want 0.96", got[0].CorrectionFactor)
	}
	if got[0].Season != models.SeasonMonsoon {
		t.Errorf("Season = %q, want monsoon", got[0].Season)
	}
}

func TestSaveUpserts(t *testing.T) {
	repo := setupTestRepo(t)

	cal := models.RegionalCalibration{
		RegionCellID:     "19.5,73.5",
		Provider:         "open-meteo",
		Season:           models.SeasonMonsoon,
		CorrectionFactor: 0.96,
		Bias:             0.4,
		SampleSize:       1,
		Confidence:       1.0 / 30,
		LastUpdated:      time.Now().UTC(),
	}
	if err := repo.Save(cal); err != nil {
		t.Fatalf("Save: %v", err)
	}

	cal.CorrectionFactor = 0.93
	cal.SampleSize = 2
	if err := repo.Save(cal); err != nil {
		t.Fatalf("Save (update): %v", err)
	}

	got, err := repo.LoadNearby(19.97, 73.78)
	if err != nil {
		t.Fatalf("LoadNearby: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1 (upsert, not insert)", len(got))
	}
	if got[0].CorrectionFactor != 0.93 {
		t.Errorf("CorrectionFactor = %v, want updated 0.93", got[0].CorrectionFactor)
	}
	if got[0].SampleSize != 2 {
		t.Errorf("SampleSize = %d, want 2", got[0].SampleSize)
	}
}

func TestLoadNearbyExcludesFarCells(t *testing.T) {
	repo := setupTestRepo(t)

	near := models.RegionalCalibration{
		RegionCellID: "19.5,73.5", Provider: "open-meteo", Season: models.SeasonMonsoon,
		CorrectionFactor: 1, LastUpdated: time.Now().UTC(),
	}
	far := models.RegionalCalibration{
		RegionCellID: "28.5,77.0", Provider: "open-meteo", Season: models.SeasonMonsoon,
		CorrectionFactor: 1, LastUpdated: time.Now().UTC(),
	}
	if err := repo.Save(near); err != nil {
		t.Fatalf("Save near: %v", err)
	}
	if err := repo.Save(far); err != nil {
		t.Fatalf("Save far: %v", err)
	}

	got, err := repo.LoadNearby(19.97, 73.78)
	if err != nil {
		t.Fatalf("LoadNearby: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0].RegionCellID != "19.5,73.5" {
		t.Errorf("got cell %q, want 19.5,73.5", got[0].RegionCellID)
	}
}

func TestHydrateFromRepository(t *testing.T) {
	repo := setupTestRepo(t)

	cal := models.RegionalCalibration{
		RegionCellID:     "19.5,73.5",
		Provider:         "open-meteo",
		Season:           models.SeasonMonsoon,
		CorrectionFactor: 0.96,
		Bias:             0.4,
		SampleSize:       12,
		Confidence:       0.4,
		LastUpdated:      time.Now().UTC(),
	}
	if err := repo.Save(cal); err != nil {
		t.Fatalf("Save: %v", err)
	}

	store := NewStore(repo)
	store.Hydrate(19.97, 73.78)

	applied := store.Apply(10, "open-meteo", 19.97, 73.78, monsoonDay)
	if !applied.Found {
		t.Fatal("Found = false, want hydrated entry")
	}
	if applied.Confidence != 0.4 {
		t.Errorf("Confidence = %v, want 0.4", applied.Confidence)
	}
}

func TestStoreSurvivesRestart(t *testing.T) {
	repo := setupTestRepo(t)

	warm := NewStore(repo)
	for i := 0; i < 20; i++ {
		warm.Update("open-meteo", 19.97, 73.78, monsoonDay, 10, 8)
	}

	// A fresh store over the same repository hydrates the cell on first
	// touch, no explicit Hydrate call.
	cold := NewStore(repo)
	applied := cold.Apply(10, "open-meteo", 19.97, 73.78, monsoonDay)
	if !applied.Found {
		t.Fatal("Found = false, want entry recovered from repository")
	}
	if applied.ETo >= 10 {
		t.Errorf("ETo = %v, want corrected below the overestimating input", applied.ETo)
	}
	if applied.Confidence != 20.0/30 {
		t.Errorf("Confidence = %v, want 20/30", applied.Confidence)
	}
}
