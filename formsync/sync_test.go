package formsync

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"evler_migrator/models"
)

type fakePage struct {
	url     string
	content string

	fields     []models.DiscoveredFormField
	onDiscover func(p *fakePage, call int)
	discovers  int

	inputs    map[string]string
	textareas map[string]string
	selected  map[string]string
	checked   map[string]bool

	hasEditor bool
	richText  string

	uploads []string

	submitEnabled  bool
	forceEnabled   bool
	submitClicked  bool
	afterSubmitURL string
	afterSubmit    string

	pageErrors  []string
	listingLink string
	loginFails  bool
}

func newFakePage(fields []models.DiscoveredFormField) *fakePage {
	return &fakePage{
		fields:    fields,
		inputs:    map[string]string{},
		textareas: map[string]string{},
		selected:  map[string]string{},
		checked:   map[string]bool{},
	}
}

func (p *fakePage) Navigate(ctx context.Context, url string) error {
	p.url = url
	return nil
}

func (p *fakePage) URL() string { return p.url }

func (p *fakePage) Content() (string, error) { return p.content, nil }

func (p *fakePage) DiscoverFields() ([]models.DiscoveredFormField, error) {
	p.discovers++
	if p.onDiscover != nil {
		p.onDiscover(p, p.discovers)
	}
	out := make([]models.DiscoveredFormField, len(p.fields))
	copy(out, p.fields)
	return out, nil
}

func (p *fakePage) field(name string) *models.DiscoveredFormField {
	for i := range p.fields {
		if p.fields[i].Name == name {
			return &p.fields[i]
		}
	}
	return nil
}

func (p *fakePage) TypeInto(name, value string) error {
	if p.field(name) == nil {
		return errors.New("field not found")
	}
	p.inputs[name] = value
	return nil
}

func (p *fakePage) FillTextarea(name, value string) error {
	if p.field(name) == nil {
		return errors.New("field not found")
	}
	p.textareas[name] = value
	return nil
}

func (p *fakePage) SelectValue(name, value string) error {
	f := p.field(name)
	if f == nil {
		return errors.New("field not found")
	}
	for _, opt := range f.Options {
		if opt.Value == value {
			p.selected[name] = value
			return nil
		}
	}
	// Writes of unknown values leave the select unchanged, like a
	// real DOM does.
	return nil
}

func (p *fakePage) SelectedValue(name string) (string, error) {
	return p.selected[name], nil
}

func (p *fakePage) SetRichText(html string) (bool, error) {
	if !p.hasEditor {
		return false, nil
	}
	p.richText = html
	return true, nil
}

func (p *fakePage) EnsureChecked(name string) error {
	p.checked[name] = true
	return nil
}

func (p *fakePage) UploadPhoto(path string) error {
	p.uploads = append(p.uploads, path)
	return nil
}

func (p *fakePage) FireValidation() error { return nil }

func (p *fakePage) EmptyRequiredFields() ([]string, error) {
	var empty []string
	for _, f := range p.fields {
		if !f.Required {
			continue
		}
		if p.inputs[f.Name] == "" && p.selected[f.Name] == "" && p.textareas[f.Name] == "" {
			empty = append(empty, f.Name)
		}
	}
	return empty, nil
}

func (p *fakePage) SubmitEnabled() (bool, error) {
	return p.submitEnabled || p.forceEnabled, nil
}

func (p *fakePage) ForceEnableSubmit() error {
	p.forceEnabled = true
	return nil
}

func (p *fakePage) ClickSubmit(ctx context.Context) error {
	p.submitClicked = true
	if p.afterSubmitURL != "" {
		p.url = p.afterSubmitURL
	}
	if p.afterSubmit != "" {
		p.content = p.afterSubmit
	}
	return nil
}

func (p *fakePage) ErrorMessages() ([]string, error) { return p.pageErrors, nil }

func (p *fakePage) ListingLink() (string, error) { return p.listingLink, nil }

func (p *fakePage) ClickButton(name string) error {
	if p.loginFails {
		p.content = "E-posta veya parola hatalı"
		return nil
	}
	p.url = "https://dest.example/hesabim"
	return nil
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.BaseURL = "https://dest.example"
	cfg.PollInterval = time.Millisecond
	cfg.CascadeTimeout = 50 * time.Millisecond
	cfg.SubmitInterval = time.Millisecond
	cfg.UploadSettle = time.Millisecond
	return cfg
}

func discardLog(string, ...any) {}

func TestFuzzyMatchOption(t *testing.T) {
	options := []models.SelectOption{
		{Value: "", Text: "Seçiniz"},
		{Value: "1", Text: "Evet"},
		{Value: "2", Text: "Hayır"},
		{Value: "3", Text: "Belirtilmemiş"},
	}
	cases := []struct {
		target string
		want   string
		ok     bool
	}{
		{"Evet", "1", true},
		{"HAYIR", "2", true},
		{"Var", "1", true},
		{"Yok", "2", true},
		{"Bilinmiyor", "3", true},
		{"belirtilmemiş", "3", true},
		{"Mor", "", false},
	}
	for _, tc := range cases {
		got, ok := FuzzyMatchOption(options, tc.target)
		if ok != tc.ok || got != tc.want {
			t.Errorf("FuzzyMatchOption(%q) = %q, %v; want %q, %v", tc.target, got, ok, tc.want, tc.ok)
		}
	}
}

func TestFuzzyMatchOptionContainment(t *testing.T) {
	options := []models.SelectOption{
		{Value: "10", Text: "Açık Otopark"},
		{Value: "11", Text: "Kapalı ve Açık Otopark"},
	}
	got, ok := FuzzyMatchOption(options, "Açık Otopark")
	if !ok || got != "10" {
		t.Fatalf("exact containment matched %q, %v", got, ok)
	}
	// Short targets never containment-match.
	if _, ok := FuzzyMatchOption(options, "ve"); ok {
		t.Error("two-character target matched by containment")
	}
}

func TestFindFieldName(t *testing.T) {
	names := []string{"s", "il", "baslik", "Oda_sayisi", "kiralama_suresi_x"}
	cases := []struct {
		candidates []string
		want       string
		ok         bool
	}{
		{[]string{"baslik", "title"}, "baslik", true},
		{[]string{"oda_sayisi"}, "Oda_sayisi", true},
		{[]string{"il"}, "il", true},                  // literal match beats the length floor
		{[]string{"kiralama_suresi"}, "kiralama_suresi_x", true},
		{[]string{"fiyat"}, "", false},
	}
	for _, tc := range cases {
		got, ok := FindFieldName(names, tc.candidates)
		if ok != tc.ok || got != tc.want {
			t.Errorf("FindFieldName(%v) = %q, %v; want %q, %v", tc.candidates, got, ok, tc.want, tc.ok)
		}
	}
}

func TestFindFieldNameLengthBound(t *testing.T) {
	// The discovered name is more than 5 characters longer than the
	// candidate, so containment must not match.
	names := []string{"oda_sayisi_ekstra_uzun_alan"}
	if _, ok := FindFieldName(names, []string{"oda_sayisi"}); ok {
		t.Error("containment matched past the length bound")
	}
}

func TestFindFieldNameContainmentBothWays(t *testing.T) {
	// A live name shorter than the candidate still matches when the
	// length difference stays within the bound.
	got, ok := FindFieldName([]string{"izni"}, []string{"kat_izni"})
	if !ok || got != "izni" {
		t.Fatalf("FindFieldName = %q, %v; want izni", got, ok)
	}
	// The same direction past the bound must not.
	if _, ok := FindFieldName([]string{"izni"}, []string{"kat_cikma_izni_x"}); ok {
		t.Error("reverse containment matched past the length bound")
	}
}

func TestFallbackOption(t *testing.T) {
	opt, ok := FallbackOption([]models.SelectOption{
		{Value: "", Text: "Seçiniz"},
		{Value: "4", Text: "Merkezi"},
		{Value: "9", Text: "Belirtilmemiş"},
	})
	if !ok || opt.Value != "9" {
		t.Fatalf("fallback = %+v, want the unspecified option", opt)
	}
	opt, ok = FallbackOption([]models.SelectOption{
		{Value: "0", Text: "Seçiniz"},
		{Value: "4", Text: "Merkezi"},
	})
	if !ok || opt.Value != "4" {
		t.Fatalf("fallback = %+v, want first real option", opt)
	}
}

func TestLoginRejectedCredentials(t *testing.T) {
	page := newFakePage([]models.DiscoveredFormField{
		{Tag: "input", Name: "email_adresi"},
		{Tag: "input", Name: "parola"},
	})
	page.loginFails = true
	page.url = "https://dest.example/sayfa/giris-yap"
	s := New(page, testConfig(), discardLog)

	err := s.Login(context.Background(), models.Credentials{Email: "a@b.c", Password: "nope"})
	if !errors.Is(err, ErrAuthFailed) {
		t.Fatalf("err = %v, want ErrAuthFailed", err)
	}
}

func TestLoginSuccess(t *testing.T) {
	page := newFakePage([]models.DiscoveredFormField{
		{Tag: "input", Name: "email_adresi"},
		{Tag: "input", Name: "parola"},
	})
	s := New(page, testConfig(), discardLog)
	if err := s.Login(context.Background(), models.Credentials{Email: "a@b.c", Password: "pw"}); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if page.inputs["email_adresi"] != "a@b.c" || page.inputs["parola"] != "pw" {
		t.Error("credentials not typed into the login form")
	}
}

func formFixture() []models.DiscoveredFormField {
	return []models.DiscoveredFormField{
		{Tag: "input", Type: "text", Name: "s"},
		{Tag: "input", Type: "text", Name: "baslik", Required: true},
		{Tag: "input", Type: "text", Name: "fiyat", Required: true},
		{Tag: "select", Name: "il", Required: true, Options: []models.SelectOption{
			{Value: "", Text: "Seçiniz"}, {Value: "86", Text: "Girne"}, {Value: "82", Text: "Lefkoşa"},
		}},
		{Tag: "select", Name: "asansor", Options: []models.SelectOption{
			{Value: "", Text: "Seçiniz"}, {Value: "1", Text: "Evet"}, {Value: "2", Text: "Hayır"}, {Value: "3", Text: "Belirtilmemiş"},
		}},
		{Tag: "select", Name: "isitma", Options: []models.SelectOption{
			{Value: "", Text: "Seçiniz"}, {Value: "1", Text: "Kombi"}, {Value: "2", Text: "Belirtilmemiş"},
		}},
		{Tag: "textarea", Name: "aciklama"},
		{Tag: "input", Type: "checkbox", Name: "onay", Required: true},
	}
}

func resolvedFixture() []models.ResolvedValue {
	return []models.ResolvedValue{
		{Field: "baslik", Value: "Girne'de daire", Required: true, FormNames: []string{"baslik", "title"}},
		{Field: "fiyat", Value: "185.000", Required: true, FormNames: []string{"fiyat", "price"}},
		{Field: "il", Value: "86", Required: true, FormNames: []string{"il", "sehir", "city"}},
		{Field: "ilce", Value: "Girne", Required: true, FormNames: []string{"ilce", "district"}},
		{Field: "asansor", Value: "Var", Required: true, FormNames: []string{"asansor", "elevator"}},
		{Field: "aciklama", Value: "<p>Ferah daire</p>", FormNames: []string{"aciklama", "description"}},
	}
}

func TestPublishFillsAndMatchesSynonyms(t *testing.T) {
	page := newFakePage(formFixture())
	page.submitEnabled = true
	page.afterSubmitURL = "https://dest.example/ilan/12345"
	// District select appears after a few polls, like the AJAX
	// cascade on the live form.
	page.onDiscover = func(p *fakePage, call int) {
		if call == 3 && p.field("ilce") == nil {
			p.fields = append(p.fields, models.DiscoveredFormField{
				Tag: "select", Name: "ilce", Options: []models.SelectOption{
					{Value: "", Text: "Seçiniz"}, {Value: "7", Text: "Girne Merkez"},
				},
			})
		}
	}

	s := New(page, testConfig(), discardLog)
	report, err := s.Publish(context.Background(), resolvedFixture(), nil, models.RunOptions{MaxPhotos: -1})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if !report.Success {
		t.Fatalf("report not successful: %+v", report)
	}
	if page.inputs["baslik"] != "Girne'de daire" {
		t.Errorf("baslik = %q", page.inputs["baslik"])
	}
	if page.selected["il"] != "86" {
		t.Errorf("il = %q", page.selected["il"])
	}
	if page.selected["ilce"] != "7" {
		t.Errorf("ilce = %q, want the cascade-loaded option", page.selected["ilce"])
	}
	// "Var" has no literal option and must land on "Evet".
	if page.selected["asansor"] != "1" {
		t.Errorf("asansor = %q, want option 1", page.selected["asansor"])
	}
	if page.textareas["aciklama"] == "" {
		t.Error("description not written to the textarea fallback")
	}
	if !page.checked["onay"] {
		t.Error("terms checkbox not checked")
	}
	if report.ListingURL != "https://dest.example/ilan/12345" {
		t.Errorf("listing url = %q", report.ListingURL)
	}
}

func TestPublishRichTextEditorPreferred(t *testing.T) {
	page := newFakePage(formFixture())
	page.hasEditor = true
	page.submitEnabled = true
	page.afterSubmit = "İlanınız başarıyla eklendi"

	s := New(page, testConfig(), discardLog)
	if _, err := s.Publish(context.Background(), resolvedFixture(), nil, models.RunOptions{MaxPhotos: -1}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if page.richText != "<p>Ferah daire</p>" {
		t.Errorf("editor html = %q", page.richText)
	}
	if page.textareas["aciklama"] != "" {
		t.Error("textarea written despite a live editor")
	}
}

func TestPublishSelectFallsBackToUnspecified(t *testing.T) {
	page := newFakePage(formFixture())
	page.submitEnabled = true
	page.afterSubmitURL = "https://dest.example/ilanlarim"

	values := []models.ResolvedValue{
		{Field: "isitma", Value: "Yerden Isıtma", Required: true, FormNames: []string{"isitma", "heating"}},
	}
	s := New(page, testConfig(), discardLog)
	report, err := s.Publish(context.Background(), values, nil, models.RunOptions{MaxPhotos: -1})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if page.selected["isitma"] != "2" {
		t.Errorf("isitma = %q, want the unspecified option", page.selected["isitma"])
	}
	if len(report.FilledFields) != 1 {
		t.Errorf("filled = %v", report.FilledFields)
	}
}

func TestPublishDistrictTimeoutRecordsSkip(t *testing.T) {
	page := newFakePage(formFixture())
	page.submitEnabled = true
	page.afterSubmitURL = "https://dest.example/ilanlarim"

	s := New(page, testConfig(), discardLog)
	report, err := s.Publish(context.Background(), resolvedFixture(), nil, models.RunOptions{MaxPhotos: -1})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	found := false
	for _, f := range report.SkippedFields {
		if f == "ilce" {
			found = true
		}
	}
	if !found {
		t.Errorf("ilce missing from skipped fields: %v", report.SkippedFields)
	}
}

func TestPublishDryRunSkipsUploadAndSubmit(t *testing.T) {
	page := newFakePage(formFixture())
	s := New(page, testConfig(), discardLog)

	report, err := s.Publish(context.Background(), resolvedFixture(), []string{"/tmp/a.jpg"}, models.RunOptions{DryRun: true, MaxPhotos: -1})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if !report.Success || !report.DryRun {
		t.Fatalf("report = %+v", report)
	}
	if page.submitClicked {
		t.Error("dry run clicked submit")
	}
	if len(page.uploads) != 0 {
		t.Error("dry run uploaded photos")
	}
}

func TestPublishPhotoCap(t *testing.T) {
	page := newFakePage(formFixture())
	page.submitEnabled = true
	page.afterSubmitURL = "https://dest.example/ilanlarim"

	s := New(page, testConfig(), discardLog)
	photos := []string{"a.jpg", "b.jpg", "c.jpg"}
	report, err := s.Publish(context.Background(), nil, photos, models.RunOptions{MaxPhotos: 2})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(page.uploads) != 2 || report.PhotosUploaded != 2 {
		t.Errorf("uploads = %v, reported %d", page.uploads, report.PhotosUploaded)
	}
}

func TestPublishForceEnablesDisabledSubmit(t *testing.T) {
	page := newFakePage(formFixture())
	page.afterSubmitURL = "https://dest.example/ilanlarim"

	s := New(page, testConfig(), discardLog)
	report, err := s.Publish(context.Background(), resolvedFixture(), nil, models.RunOptions{MaxPhotos: -1})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if !page.forceEnabled {
		t.Error("submit button never force-enabled")
	}
	if !page.submitClicked || !report.Success {
		t.Errorf("report = %+v", report)
	}
}

func TestPublishFailureCollectsDiagnostics(t *testing.T) {
	page := newFakePage(formFixture())
	page.submitEnabled = true
	page.afterSubmitURL = "https://dest.example/sayfa/ilan-ekle"
	page.pageErrors = []string{"fiyat: Bu alan zorunludur"}

	s := New(page, testConfig(), discardLog)
	report, err := s.Publish(context.Background(), nil, nil, models.RunOptions{MaxPhotos: -1})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if report.Success {
		t.Fatal("failed submit reported success")
	}
	if len(report.Diagnostics) != 1 || !strings.Contains(report.Diagnostics[0], "fiyat") {
		t.Errorf("diagnostics = %v", report.Diagnostics)
	}
}
