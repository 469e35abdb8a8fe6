package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"evler_migrator/models"
)

func testStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "archive.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleMigration(jobID string, success bool) (*models.MigrationJob, *models.ListingRecord, *models.MigrationResult) {
	job := &models.MigrationJob{ID: jobID, URL: "https://www.101evler.com/satilik-daire/girne/1.html"}
	rec := &models.ListingRecord{
		URL:          job.URL,
		CategoryCode: 901,
		Title:        "Girne'de Satılık Daire",
		Price:        "95000",
		Currency:     "GBP",
		CityName:     "Girne",
		District:     "Girne Merkez",
	}
	res := &models.MigrationResult{
		Success:      success,
		ProfileType:  "residential",
		MappedValues: map[string]string{"baslik": rec.Title, "fiyat": rec.Price},
		Warnings:     []string{`required field "metrekare" resolved empty`},
		PhotosTotal:  4,
	}
	if !success {
		res.Diagnostics = []string{"İlan başlığı zorunludur"}
	}
	return job, rec, res
}

func TestSaveAndGetMigration(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	job, rec, res := sampleMigration("q_1_aaaa", true)
	if err := store.SaveMigration(ctx, job, rec, res); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, err := store.GetMigration(ctx, "q_1_aaaa")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got == nil {
		t.Fatalf("expected archived migration")
	}
	if got.Title != rec.Title || got.City != "Girne" || got.District != "Girne Merkez" {
		t.Fatalf("unexpected row %+v", got)
	}
	if !got.Success || got.ProfileType != "residential" {
		t.Fatalf("unexpected outcome %+v", got)
	}
	if got.MappedValues["baslik"] != rec.Title {
		t.Fatalf("mapped values lost: %v", got.MappedValues)
	}
	if len(got.Warnings) != 1 {
		t.Fatalf("warnings lost: %v", got.Warnings)
	}
	if len(got.Record) == 0 {
		t.Fatalf("expected record payload")
	}
}

func TestGetMigrationUnknownJob(t *testing.T) {
	store := testStore(t)

	got, err := store.GetMigration(context.Background(), "q_missing")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for unknown job, got %+v", got)
	}
}

func TestListMigrationsNewestFirst(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	for _, id := range []string{"q_1_a", "q_2_b", "q_3_c"} {
		job, rec, res := sampleMigration(id, true)
		if err := store.SaveMigration(ctx, job, rec, res); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}

	list, err := store.ListMigrations(ctx, 2)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(list))
	}
	if list[0].JobID != "q_3_c" || list[1].JobID != "q_2_b" {
		t.Fatalf("expected newest first, got %s, %s", list[0].JobID, list[1].JobID)
	}
	if len(list[0].Record) != 0 {
		t.Fatalf("list must not carry record payloads")
	}
}

func TestStats(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	job, rec, res := sampleMigration("q_ok", true)
	if err := store.SaveMigration(ctx, job, rec, res); err != nil {
		t.Fatalf("save: %v", err)
	}
	job, rec, res = sampleMigration("q_bad", false)
	if err := store.SaveMigration(ctx, job, rec, res); err != nil {
		t.Fatalf("save: %v", err)
	}
	job, rec, res = sampleMigration("q_dry", true)
	res.DryRun = true
	if err := store.SaveMigration(ctx, job, rec, res); err != nil {
		t.Fatalf("save: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.Total != 3 || stats.Succeeded != 2 || stats.Failed != 1 || stats.DryRuns != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

type failingSaver struct{ err error }

func (f *failingSaver) SaveMigration(context.Context, *models.MigrationJob, *models.ListingRecord, *models.MigrationResult) error {
	return f.err
}

type countingSaver struct{ calls int }

func (c *countingSaver) SaveMigration(context.Context, *models.MigrationJob, *models.ListingRecord, *models.MigrationResult) error {
	c.calls++
	return nil
}

func TestTeeContinuesPastFailures(t *testing.T) {
	boom := errors.New("mirror down")
	counter := &countingSaver{}
	tee := NewTee(&failingSaver{err: boom}, counter)

	job, rec, res := sampleMigration("q_tee", true)
	err := tee.SaveMigration(context.Background(), job, rec, res)
	if !errors.Is(err, boom) {
		t.Fatalf("expected mirror error surfaced, got %v", err)
	}
	if counter.calls != 1 {
		t.Fatalf("second backend must still be written, got %d calls", counter.calls)
	}
}
