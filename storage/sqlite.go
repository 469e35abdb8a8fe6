// Package storage archives finished migrations outside the queue
// document. SQLite is the always-on local archive; a Postgres mirror
// can be layered on top of it.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"evler_migrator/models"
)

// ArchivedMigration is one archived job outcome together with the
// scraped listing snapshot it was produced from.
type ArchivedMigration struct {
	ID             int64             `json:"id"`
	JobID          string            `json:"jobId"`
	SourceURL      string            `json:"sourceUrl"`
	ProfileType    string            `json:"profileType"`
	CategoryCode   int               `json:"categoryCode"`
	City           string            `json:"city,omitempty"`
	District       string            `json:"district,omitempty"`
	Title          string            `json:"title"`
	Price          string            `json:"price"`
	Currency       string            `json:"currency"`
	Success        bool              `json:"success"`
	DryRun         bool              `json:"dryRun"`
	ListingURL     string            `json:"listingUrl,omitempty"`
	MappedValues   map[string]string `json:"mappedValues,omitempty"`
	Warnings       []string          `json:"warnings,omitempty"`
	Diagnostics    []string          `json:"diagnostics,omitempty"`
	PhotosTotal    int               `json:"photosTotal"`
	PhotosUploaded int               `json:"photosUploaded"`
	Record         json.RawMessage   `json:"record,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`
}

// ArchiveStats summarizes the archive for the status endpoint.
type ArchiveStats struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	DryRuns   int `json:"dryRuns"`
}

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS migrations (
		id INTEGER PRIMARY KEY,
		job_id TEXT NOT NULL,
		source_url TEXT,
		profile_type TEXT,
		category_code INTEGER,
		city TEXT,
		district TEXT,
		title TEXT,
		price TEXT,
		currency TEXT,
		success BOOLEAN,
		dry_run BOOLEAN,
		listing_url TEXT,
		mapped_values JSON,
		warnings JSON,
		diagnostics JSON,
		photos_total INTEGER,
		photos_uploaded INTEGER,
		record JSON,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_migrations_job ON migrations(job_id);
	CREATE INDEX IF NOT EXISTS idx_migrations_created ON migrations(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveMigration archives one finished job. The scraped record is kept
// whole as JSON so failed mappings can be replayed later.
func (s *SQLiteStore) SaveMigration(ctx context.Context, job *models.MigrationJob, rec *models.ListingRecord, res *models.MigrationResult) error {
	mapped, _ := json.Marshal(res.MappedValues)
	warnings, _ := json.Marshal(res.Warnings)
	diagnostics, _ := json.Marshal(res.Diagnostics)
	record, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO migrations (job_id, source_url, profile_type, category_code, city, district,
			title, price, currency, success, dry_run, listing_url,
			mapped_values, warnings, diagnostics, photos_total, photos_uploaded, record, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.URL, res.ProfileType, rec.CategoryCode, rec.CityName, rec.District,
		rec.Title, rec.Price, rec.Currency, res.Success, res.DryRun, res.ListingURL,
		string(mapped), string(warnings), string(diagnostics), res.PhotosTotal, res.PhotosUploaded,
		string(record), time.Now().UTC())
	return err
}

// ListMigrations returns the newest archived migrations without the
// full record payload.
func (s *SQLiteStore) ListMigrations(ctx context.Context, limit int) ([]ArchivedMigration, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, job_id, source_url, profile_type, category_code, city, district,
			title, price, currency, success, dry_run, listing_url,
			mapped_values, warnings, diagnostics, photos_total, photos_uploaded, created_at
		FROM migrations ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var migrations []ArchivedMigration
	for rows.Next() {
		m, err := scanMigration(rows, false)
		if err != nil {
			return nil, err
		}
		migrations = append(migrations, *m)
	}
	return migrations, rows.Err()
}

// GetMigration returns the latest archived attempt for a job, record
// payload included.
func (s *SQLiteStore) GetMigration(ctx context.Context, jobID string) (*ArchivedMigration, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, job_id, source_url, profile_type, category_code, city, district,
			title, price, currency, success, dry_run, listing_url,
			mapped_values, warnings, diagnostics, photos_total, photos_uploaded, created_at, record
		FROM migrations WHERE job_id = ? ORDER BY created_at DESC, id DESC LIMIT 1`, jobID)

	m, err := scanMigration(row, true)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (s *SQLiteStore) Stats(ctx context.Context) (ArchiveStats, error) {
	var stats ArchiveStats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN success THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN NOT success THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN dry_run THEN 1 ELSE 0 END), 0)
		FROM migrations`).Scan(&stats.Total, &stats.Succeeded, &stats.Failed, &stats.DryRuns)
	return stats, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMigration(row rowScanner, withRecord bool) (*ArchivedMigration, error) {
	var m ArchivedMigration
	var city, district, listingURL sql.NullString
	var mapped, warnings, diagnostics string
	var record sql.NullString

	dest := []any{
		&m.ID, &m.JobID, &m.SourceURL, &m.ProfileType, &m.CategoryCode, &city, &district,
		&m.Title, &m.Price, &m.Currency, &m.Success, &m.DryRun, &listingURL,
		&mapped, &warnings, &diagnostics, &m.PhotosTotal, &m.PhotosUploaded, &m.CreatedAt,
	}
	if withRecord {
		dest = append(dest, &record)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	m.City = city.String
	m.District = district.String
	m.ListingURL = listingURL.String
	json.Unmarshal([]byte(mapped), &m.MappedValues)
	json.Unmarshal([]byte(warnings), &m.Warnings)
	json.Unmarshal([]byte(diagnostics), &m.Diagnostics)
	if record.Valid {
		m.Record = json.RawMessage(record.String)
	}
	return &m, nil
}
