package storage

import (
	"context"
	"errors"

	"evler_migrator/models"
)

// Saver is the write side of the archive.
type Saver interface {
	SaveMigration(ctx context.Context, job *models.MigrationJob, rec *models.ListingRecord, res *models.MigrationResult) error
}

// Tee fans each migration out to every backend. All backends are
// attempted; errors are joined.
type Tee struct {
	targets []Saver
}

func NewTee(targets ...Saver) *Tee {
	return &Tee{targets: targets}
}

func (t *Tee) SaveMigration(ctx context.Context, job *models.MigrationJob, rec *models.ListingRecord, res *models.MigrationResult) error {
	var errs []error
	for _, target := range t.targets {
		if err := target.SaveMigration(ctx, job, rec, res); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
