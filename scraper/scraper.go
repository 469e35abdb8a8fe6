package scraper

import (
	"context"
	"fmt"

	"evler_migrator/media"
	"evler_migrator/models"
)

// Page is the browser surface the scraper needs. Satisfied by
// formsync.LivePage so one browser session serves both sides of a job.
type Page interface {
	Navigate(ctx context.Context, url string) error
	Content() (string, error)
	OpenGallery(ctx context.Context) error
}

type Scraper struct {
	page Page
	logf func(format string, args ...any)
}

func New(page Page, logf func(format string, args ...any)) *Scraper {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &Scraper{page: page, logf: logf}
}

// Scrape loads a listing page and returns its canonical record,
// including cleaned gallery photo URLs. A page without a title is
// treated as failed navigation rather than an empty listing.
func (s *Scraper) Scrape(ctx context.Context, url string) (*models.ListingRecord, error) {
	if err := s.page.Navigate(ctx, url); err != nil {
		return nil, err
	}
	html, err := s.page.Content()
	if err != nil {
		return nil, fmt.Errorf("read page content: %w", err)
	}

	rec, err := ExtractListing(url, html)
	if err != nil {
		return nil, err
	}
	if rec.Title == "" {
		return nil, fmt.Errorf("no listing found at %s", url)
	}
	s.logf("scraped %q (%s %s, category %d)", rec.Title, rec.Price, rec.Currency, rec.CategoryCode)

	if err := s.page.OpenGallery(ctx); err != nil {
		s.logf("gallery tab unavailable: %v", err)
		return rec, nil
	}
	galleryHTML, err := s.page.Content()
	if err != nil {
		s.logf("gallery content unavailable: %v", err)
		return rec, nil
	}
	for _, u := range ExtractGalleryURLs(galleryHTML) {
		rec.PhotoURLs = append(rec.PhotoURLs, media.CleanURL(u))
	}
	s.logf("found %d photos", len(rec.PhotoURLs))

	return rec, nil
}
