package formsync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"evler_migrator/models"
	"evler_migrator/turkish"
)

// ErrAuthFailed marks a rejected login. The worker treats it as fatal
// for the whole batch instead of retrying per job.
var ErrAuthFailed = errors.New("authentication failed")

// Config carries the destination endpoints and the timing knobs for
// cascade polling, upload settling and submit checks.
type Config struct {
	BaseURL        string
	LoginPath      string
	FormPath       string
	PollInterval   time.Duration
	CascadeTimeout time.Duration
	SubmitChecks   int
	SubmitInterval time.Duration
	UploadSettle   time.Duration
}

func DefaultConfig() Config {
	return Config{
		BaseURL:        "https://www.gelgezgor.com",
		LoginPath:      "/sayfa/giris-yap",
		FormPath:       "/sayfa/ilan-ekle",
		PollInterval:   250 * time.Millisecond,
		CascadeTimeout: 8 * time.Second,
		SubmitChecks:   5,
		SubmitInterval: 1500 * time.Millisecond,
		UploadSettle:   3 * time.Second,
	}
}

// Syncer fills and submits the destination listing form for one job.
type Syncer struct {
	page Page
	cfg  Config
	logf func(format string, args ...any)
}

func New(page Page, cfg Config, logf func(string, ...any)) *Syncer {
	if logf == nil {
		logf = log.Printf
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultConfig().PollInterval
	}
	if cfg.CascadeTimeout <= 0 {
		cfg.CascadeTimeout = DefaultConfig().CascadeTimeout
	}
	if cfg.SubmitChecks <= 0 {
		cfg.SubmitChecks = DefaultConfig().SubmitChecks
	}
	if cfg.SubmitInterval <= 0 {
		cfg.SubmitInterval = DefaultConfig().SubmitInterval
	}
	return &Syncer{page: page, cfg: cfg, logf: logf}
}

// Login signs the session in. A rejected credential pair returns
// ErrAuthFailed; transport errors come back as-is.
func (s *Syncer) Login(ctx context.Context, creds models.Credentials) error {
	if err := s.page.Navigate(ctx, s.cfg.BaseURL+s.cfg.LoginPath); err != nil {
		return fmt.Errorf("open login page: %w", err)
	}
	if err := s.page.TypeInto("email_adresi", creds.Email); err != nil {
		return fmt.Errorf("fill email: %w", err)
	}
	if err := s.page.TypeInto("parola", creds.Password); err != nil {
		return fmt.Errorf("fill password: %w", err)
	}
	if err := s.page.ClickButton("buton"); err != nil {
		return fmt.Errorf("submit login: %w", err)
	}
	content, err := s.page.Content()
	if err != nil {
		return fmt.Errorf("read login result: %w", err)
	}
	if strings.Contains(s.page.URL(), "giris-yap") &&
		(strings.Contains(content, "hatalı") || strings.Contains(content, "yanlış")) {
		return ErrAuthFailed
	}
	s.logf("login ok")
	return nil
}

// OpenForm navigates to the new-listing form for a category and
// returns the discovered fields.
func (s *Syncer) OpenForm(ctx context.Context, categoryCode int) ([]models.DiscoveredFormField, error) {
	url := fmt.Sprintf("%s%s?kat=%d", s.cfg.BaseURL, s.cfg.FormPath, categoryCode)
	if err := s.page.Navigate(ctx, url); err != nil {
		return nil, fmt.Errorf("open listing form: %w", err)
	}
	fields, err := s.page.DiscoverFields()
	if err != nil {
		return nil, fmt.Errorf("discover form fields: %w", err)
	}
	s.logf("discovered %d form fields", len(fields))
	return fields, nil
}

// Publish fills every resolved value onto the already-open form,
// uploads photos and submits. Dry runs stop after the fill pass and
// the required-empty check. Individual field failures degrade to
// skip entries; only page-level failures return an error.
func (s *Syncer) Publish(ctx context.Context, values []models.ResolvedValue, photos []string, opts models.RunOptions) (*models.SyncReport, error) {
	fields, err := s.page.DiscoverFields()
	if err != nil {
		return nil, fmt.Errorf("discover form fields: %w", err)
	}
	byName := make(map[string]models.DiscoveredFormField, len(fields))
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		if f.Name == "" {
			continue
		}
		byName[f.Name] = f
		names = append(names, f.Name)
	}

	report := &models.SyncReport{DryRun: opts.DryRun}

	for _, v := range values {
		switch v.Field {
		case "il":
			if s.selectCity(v, names) {
				report.FilledFields = append(report.FilledFields, v.Field)
			} else {
				report.SkippedFields = append(report.SkippedFields, v.Field)
			}
		case "ilce":
			if s.selectDistrict(ctx, v, names) {
				report.FilledFields = append(report.FilledFields, v.Field)
				s.selectFirstNeighborhood(ctx)
			} else {
				report.SkippedFields = append(report.SkippedFields, v.Field)
			}
		case "aciklama":
			if s.fillDescription(v, byName, names) {
				report.FilledFields = append(report.FilledFields, v.Field)
			} else {
				report.SkippedFields = append(report.SkippedFields, v.Field)
			}
		default:
			if s.fillByFormNames(v, byName, names) {
				report.FilledFields = append(report.FilledFields, v.Field)
			} else {
				report.SkippedFields = append(report.SkippedFields, v.Field)
				if sim := SimilarFieldNames(names, v.FormNames); len(sim) > 0 {
					s.logf("skipped %s, similar fields: %s", v.Field, strings.Join(sim, ", "))
				} else {
					s.logf("skipped %s, no matching field", v.Field)
				}
			}
		}
	}

	s.fillContactFields(byName)

	if err := s.page.FireValidation(); err != nil {
		s.logf("validation pass failed: %v", err)
	}
	if empty, err := s.page.EmptyRequiredFields(); err == nil && len(empty) > 0 {
		report.EmptyRequired = empty
		s.logf("required fields still empty: %s", strings.Join(empty, ", "))
	}

	if opts.DryRun {
		s.logf("dry run, skipping photo upload and submit")
		report.Success = true
		return report, nil
	}

	report.PhotosUploaded = s.uploadPhotos(ctx, photos, opts.MaxPhotos)

	return s.submit(ctx, report)
}

func (s *Syncer) selectCity(v models.ResolvedValue, names []string) bool {
	name, ok := FindFieldName(names, v.FormNames)
	if !ok {
		s.logf("no city select found")
		return false
	}
	// City is selected by option value, the dependent district list
	// only loads for a real id.
	if err := s.page.SelectValue(name, v.Value); err != nil {
		s.logf("could not select city: %v", err)
		return false
	}
	s.logf("set %s = %s", name, v.Value)
	return true
}

// selectDistrict polls for the AJAX-loaded district select instead of
// sleeping a fixed interval. Halfway through the budget the city change
// event is re-fired once in case the first trigger was lost.
func (s *Syncer) selectDistrict(ctx context.Context, v models.ResolvedValue, names []string) bool {
	want := turkish.Fold(strings.TrimSpace(v.Value))
	if want == "" {
		return false
	}
	deadline := time.Now().Add(s.cfg.CascadeTimeout)
	retried := false
	for {
		fields, err := s.page.DiscoverFields()
		if err == nil {
			for _, f := range fields {
				if f.Tag != "select" || f.Name == "" || f.Name == "il" || f.Name == "s" {
					continue
				}
				if len(f.Options) < 2 {
					continue
				}
				for _, opt := range f.Options {
					text := turkish.Fold(strings.TrimSpace(opt.Text))
					if text == "" || placeholderOption(opt.Value) {
						continue
					}
					if strings.Contains(text, want) || strings.Contains(want, text) {
						if err := s.page.SelectValue(f.Name, opt.Value); err != nil {
							s.logf("could not select district: %v", err)
							return false
						}
						s.logf("set %s = %s (matched %q)", f.Name, opt.Value, opt.Text)
						return true
					}
				}
			}
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			s.logf("district %q not found in cascade options", v.Value)
			return false
		}
		if !retried && remaining < s.cfg.CascadeTimeout/2 {
			retried = true
			if ilName, ok := FindFieldName(names, []string{"il", "sehir", "city"}); ok {
				if cur, err := s.page.SelectedValue(ilName); err == nil && cur != "" {
					s.logf("re-triggering city cascade")
					_ = s.page.SelectValue(ilName, cur)
				}
			}
		}
		if !s.sleep(ctx, s.cfg.PollInterval) {
			return false
		}
	}
}

// selectFirstNeighborhood picks the first real option of the mahalle
// select once its own cascade has loaded. Absence is not an error.
func (s *Syncer) selectFirstNeighborhood(ctx context.Context) {
	deadline := time.Now().Add(s.cfg.CascadeTimeout / 2)
	for {
		fields, err := s.page.DiscoverFields()
		if err == nil {
			for _, f := range fields {
				if f.Tag != "select" || !strings.Contains(turkish.Fold(f.Name), "mahalle") {
					continue
				}
				if len(f.Options) < 2 {
					continue
				}
				for _, opt := range f.Options {
					if placeholderOption(opt.Value) {
						continue
					}
					if err := s.page.SelectValue(f.Name, opt.Value); err == nil {
						s.logf("set %s = %s (%s)", f.Name, opt.Value, opt.Text)
					}
					return
				}
			}
		}
		if time.Until(deadline) <= 0 {
			s.logf("no neighborhood select appeared")
			return
		}
		if !s.sleep(ctx, s.cfg.PollInterval) {
			return
		}
	}
}

func (s *Syncer) fillDescription(v models.ResolvedValue, byName map[string]models.DiscoveredFormField, names []string) bool {
	ok, err := s.page.SetRichText(v.Value)
	if err != nil {
		s.logf("rich text editor write failed: %v", err)
	}
	if ok {
		s.logf("set description via rich text editor")
		return true
	}
	plain := models.ResolvedValue{
		Field:     v.Field,
		Value:     strings.TrimSpace(stripMarkup(v.Value)),
		Required:  v.Required,
		FormNames: v.FormNames,
	}
	return s.fillByFormNames(plain, byName, names)
}

func stripMarkup(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
			b.WriteByte(' ')
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (s *Syncer) fillByFormNames(v models.ResolvedValue, byName map[string]models.DiscoveredFormField, names []string) bool {
	if v.Value == "" {
		return false
	}
	name, ok := FindFieldName(names, v.FormNames)
	if !ok {
		return false
	}
	field := byName[name]
	switch field.Tag {
	case "select":
		return s.fillSelect(name, field, v.Value)
	case "textarea":
		if err := s.page.FillTextarea(name, v.Value); err != nil {
			s.logf("could not fill %s: %v", name, err)
			return false
		}
	default:
		if err := s.page.TypeInto(name, v.Value); err != nil {
			s.logf("could not fill %s: %v", name, err)
			return false
		}
	}
	s.logf("set %s = %s", name, truncate(v.Value, 60))
	return true
}

// fillSelect writes a fuzzy-matched option and verifies the value
// stuck. A write that left the select on its placeholder falls back
// to the unspecified option, or the first real one.
func (s *Syncer) fillSelect(name string, field models.DiscoveredFormField, value string) bool {
	matched, ok := FuzzyMatchOption(field.Options, value)
	if !ok {
		matched = value
	}
	if err := s.page.SelectValue(name, matched); err != nil {
		s.logf("could not select %s: %v", name, err)
		return false
	}
	actual, err := s.page.SelectedValue(name)
	if err == nil && !placeholderOption(actual) {
		s.logf("set %s = %s (option %s)", name, value, matched)
		return true
	}
	fb, ok := FallbackOption(field.Options)
	if !ok {
		s.logf("no usable option for %s, wanted %q", name, value)
		return false
	}
	if err := s.page.SelectValue(name, fb.Value); err != nil {
		s.logf("fallback select for %s failed: %v", name, err)
		return false
	}
	s.logf("no option matched %q for %s, fell back to %q", value, name, fb.Text)
	return true
}

// fillContactFields checks the profile-contact and terms checkboxes.
// Both are best-effort, the submit pass re-checks the terms box.
func (s *Syncer) fillContactFields(byName map[string]models.DiscoveredFormField) {
	if _, ok := byName["yetkili"]; ok {
		if err := s.page.EnsureChecked("uye_numara"); err != nil {
			s.logf("could not check uye_numara: %v", err)
		} else {
			s.logf("checked profile contact info")
		}
	}
	if err := s.page.EnsureChecked("onay"); err != nil {
		s.logf("could not check onay: %v", err)
	}
}

func (s *Syncer) uploadPhotos(ctx context.Context, photos []string, maxPhotos int) int {
	if len(photos) == 0 || maxPhotos == 0 {
		return 0
	}
	if maxPhotos > 0 && maxPhotos < len(photos) {
		photos = photos[:maxPhotos]
	}
	s.logf("uploading %d photos", len(photos))
	uploaded := 0
	for i, path := range photos {
		if err := s.page.UploadPhoto(path); err != nil {
			s.logf("photo %d/%d failed: %v", i+1, len(photos), err)
			continue
		}
		uploaded++
		s.logf("photo %d/%d sent", i+1, len(photos))
		if !s.sleep(ctx, s.cfg.UploadSettle) {
			break
		}
	}
	return uploaded
}

func (s *Syncer) submit(ctx context.Context, report *models.SyncReport) (*models.SyncReport, error) {
	enabled := false
	for attempt := 1; attempt <= s.cfg.SubmitChecks; attempt++ {
		ok, err := s.page.SubmitEnabled()
		if err != nil {
			return nil, fmt.Errorf("check submit button: %w", err)
		}
		if ok {
			enabled = true
			break
		}
		s.logf("submit button disabled, check %d/%d", attempt, s.cfg.SubmitChecks)
		if attempt < s.cfg.SubmitChecks {
			if err := s.page.FireValidation(); err != nil {
				s.logf("revalidation failed: %v", err)
			}
			_ = s.page.EnsureChecked("onay")
			if !s.sleep(ctx, s.cfg.SubmitInterval) {
				return nil, ctx.Err()
			}
		}
	}
	if !enabled {
		s.logf("force-enabling submit button")
		if err := s.page.ForceEnableSubmit(); err != nil {
			return nil, fmt.Errorf("enable submit button: %w", err)
		}
	}

	if err := s.page.ClickSubmit(ctx); err != nil {
		return nil, fmt.Errorf("click submit: %w", err)
	}

	url := s.page.URL()
	content, err := s.page.Content()
	if err != nil {
		return nil, fmt.Errorf("read submit result: %w", err)
	}

	if submitSucceeded(url, content) {
		report.Success = true
		report.ListingURL = url
		if !strings.Contains(url, "ilan/") {
			if link, err := s.page.ListingLink(); err == nil && link != "" {
				report.ListingURL = link
			}
		}
		s.logf("listing published: %s", report.ListingURL)
		return report, nil
	}

	report.Success = false
	report.ListingURL = url
	if msgs, err := s.page.ErrorMessages(); err == nil {
		report.Diagnostics = msgs
	}
	s.logf("submission failed, %d diagnostics", len(report.Diagnostics))
	return report, nil
}

func submitSucceeded(url, content string) bool {
	return strings.Contains(url, "ilan/") ||
		strings.Contains(url, "ilanlarim") ||
		strings.Contains(content, "başarıyla") ||
		strings.Contains(content, "basariyla") ||
		strings.Contains(content, "eklendi")
}

// sleep waits for d unless the context ends first.
func (s *Syncer) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
