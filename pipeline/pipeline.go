// Package pipeline runs one migration job end to end: scrape the
// source listing, resolve it through a category profile, download the
// gallery and publish everything onto the destination form.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"evler_migrator/formsync"
	"evler_migrator/media"
	"evler_migrator/models"
	"evler_migrator/parser"
	"evler_migrator/profiles"
	"evler_migrator/queue"
	"evler_migrator/scraper"
)

// Session is one browser page serving both sides of a job: the source
// listing page and the destination form.
type Session interface {
	scraper.Page
	formsync.Page
	Close()
}

// Archiver persists finished migrations outside the queue document.
// Failures are logged, never fatal.
type Archiver interface {
	SaveMigration(ctx context.Context, job *models.MigrationJob, rec *models.ListingRecord, res *models.MigrationResult) error
}

type Pipeline struct {
	openSession func() (Session, error)
	cfg         formsync.Config
	downloader  *media.Downloader
	archive     Archiver
	tempBase    string
}

func New(browser *formsync.Browser, cfg formsync.Config, archive Archiver) *Pipeline {
	return NewWithSessions(func() (Session, error) {
		page, err := browser.NewPage()
		if err != nil {
			return nil, err
		}
		return page, nil
	}, cfg, archive)
}

func NewWithSessions(open func() (Session, error), cfg formsync.Config, archive Archiver) *Pipeline {
	return &Pipeline{
		openSession: open,
		cfg:         cfg,
		downloader:  media.NewDownloader(),
		archive:     archive,
		tempBase:    os.TempDir(),
	}
}

// Process satisfies queue.ProcessFunc. A login rejection aborts the
// whole run; anything else fails only the current job.
func (p *Pipeline) Process(ctx context.Context, job *models.MigrationJob, creds models.Credentials, opts models.RunOptions, log func(string)) (*models.MigrationResult, error) {
	logf := func(format string, args ...any) { log(fmt.Sprintf(format, args...)) }

	session, err := p.openSession()
	if err != nil {
		return nil, fmt.Errorf("open browser page: %w", err)
	}
	defer session.Close()

	rec, err := scraper.New(session, logf).Scrape(ctx, job.URL)
	if err != nil {
		return nil, fmt.Errorf("scrape listing: %w", err)
	}
	parser.Enrich(rec)

	profile := profiles.ResolveProfile(rec.CategoryCode, rec.SaleType)
	rec.Derived = profiles.Derive(rec)
	resolution := profiles.Resolve(rec, profile)
	logf("profile %s: %d fields resolved, %d warnings", profile.Type, len(resolution.Values), len(resolution.Warnings))
	for _, w := range resolution.Warnings {
		log(w)
	}

	var photos []string
	if !opts.DryRun && len(rec.PhotoURLs) > 0 && opts.MaxPhotos != 0 {
		dir := filepath.Join(p.tempBase, "queue-"+job.ID)
		defer os.RemoveAll(dir)
		dl, err := p.downloader.DownloadAll(ctx, rec.PhotoURLs, dir, opts.MaxPhotos)
		if err != nil {
			logf("photo download: %v", err)
		}
		photos = dl.Files
		logf("downloaded %d/%d photos", dl.Downloaded, dl.Total)
	}

	syncer := formsync.New(session, p.cfg, logf)
	if err := syncer.Login(ctx, creds); err != nil {
		if errors.Is(err, formsync.ErrAuthFailed) {
			return nil, &queue.FatalError{Err: err}
		}
		return nil, fmt.Errorf("login: %w", err)
	}
	if _, err := syncer.OpenForm(ctx, rec.CategoryCode); err != nil {
		return nil, fmt.Errorf("open listing form: %w", err)
	}

	report, err := syncer.Publish(ctx, resolution.Values, photos, opts)
	if err != nil {
		return nil, fmt.Errorf("publish: %w", err)
	}

	result := &models.MigrationResult{
		Success:        report.Success,
		DryRun:         opts.DryRun,
		ProfileType:    profile.Type,
		ListingURL:     report.ListingURL,
		MappedValues:   mappedValues(resolution.Values),
		FilledFields:   report.FilledFields,
		SkippedFields:  report.SkippedFields,
		Warnings:       resolution.Warnings,
		PhotosTotal:    len(rec.PhotoURLs),
		PhotosUploaded: report.PhotosUploaded,
		Diagnostics:    report.Diagnostics,
	}

	if p.archive != nil {
		if err := p.archive.SaveMigration(ctx, job, rec, result); err != nil {
			logf("archive: %v", err)
		}
	}

	if !report.Success {
		return result, fmt.Errorf("form submission failed: %s", firstDiagnostic(report.Diagnostics))
	}
	return result, nil
}

func mappedValues(values []models.ResolvedValue) map[string]string {
	m := make(map[string]string, len(values))
	for _, v := range values {
		m[v.Field] = v.Value
	}
	return m
}

func firstDiagnostic(diags []string) string {
	if len(diags) == 0 {
		return "no error message on page"
	}
	return strings.TrimSpace(diags[0])
}
