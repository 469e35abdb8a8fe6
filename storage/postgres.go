package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"evler_migrator/models"
)

// PostgresStore mirrors the migration archive into a shared Postgres
// database. It is optional; the local SQLite archive stays the source
// of truth.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	store := &PostgresStore{pool: pool}
	if err := store.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS migrations (
			id BIGSERIAL PRIMARY KEY,
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
			mapped_values JSONB,
			warnings JSONB,
			diagnostics JSONB,
			photos_total INTEGER,
			photos_uploaded INTEGER,
			record JSONB,
			created_at TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_migrations_job ON migrations(job_id);
	`)
	return err
}

func (s *PostgresStore) SaveMigration(ctx context.Context, job *models.MigrationJob, rec *models.ListingRecord, res *models.MigrationResult) error {
	mapped, _ := json.Marshal(res.MappedValues)
	warnings, _ := json.Marshal(res.Warnings)
	diagnostics, _ := json.Marshal(res.Diagnostics)
	record, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO migrations (job_id, source_url, profile_type, category_code, city, district,
			title, price, currency, success, dry_run, listing_url,
			mapped_values, warnings, diagnostics, photos_total, photos_uploaded, record, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		job.ID, job.URL, res.ProfileType, rec.CategoryCode, rec.CityName, rec.District,
		rec.Title, rec.Price, rec.Currency, res.Success, res.DryRun, res.ListingURL,
		mapped, warnings, diagnostics, res.PhotosTotal, res.PhotosUploaded, record, time.Now().UTC())
	return err
}
