package scraper

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"evler_migrator/models"
	"evler_migrator/parser"
)

func loadFixture(t *testing.T, name string) []byte {
	t.Helper()
	path := filepath.Join("testdata", name)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read fixture %s: %v", name, err)
	}
	return data
}

func TestExtractListing_SaleVilla(t *testing.T) {
	html := loadFixture(t, "listing_sale_villa.html")
	url := "https://www.101evler.com/satilik-villa/alsancak-girne/12345.html"

	rec, err := ExtractListing(url, string(html))
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}

	if rec.Title != "Alsancak'ta Denize Yakın 3+1 Lüks Villa" {
		t.Fatalf("unexpected title %q", rec.Title)
	}
	if rec.Price != "350000" {
		t.Fatalf("expected price 350000, got %q", rec.Price)
	}
	if rec.Currency != "GBP" {
		t.Fatalf("expected GBP, got %q", rec.Currency)
	}
	if rec.CategoryCode != parser.CatVillaSale {
		t.Fatalf("expected category %d, got %d", parser.CatVillaSale, rec.CategoryCode)
	}
	if rec.SaleType != models.SaleTypeSale {
		t.Fatalf("expected sale type %q, got %q", models.SaleTypeSale, rec.SaleType)
	}
	if rec.CityID != 86 || rec.CityName != "Girne" {
		t.Fatalf("expected city Girne/86, got %q/%d", rec.CityName, rec.CityID)
	}
	if rec.District != "Alsancak" {
		t.Fatalf("expected district Alsancak, got %q", rec.District)
	}
	if rec.Subtitle != "Satılık Villa, Alsancak, Girne" {
		t.Fatalf("unexpected subtitle %q", rec.Subtitle)
	}

	if rec.Details.Len() != 5 {
		t.Fatalf("expected 5 detail rows, got %d", rec.Details.Len())
	}
	for _, want := range []struct{ label, value string }{
		{"Oda Sayısı", "3+1"},
		{"Metrekare", "220"},
		{"Bina Yaşı", "3"},
		{"Kat Sayısı", "2"},
		{"Arsa Büyüklüğü", "580 m2"},
	} {
		got, ok := rec.Details.Get(want.label)
		if !ok {
			t.Fatalf("missing detail %q", want.label)
		}
		if got != want.value {
			t.Fatalf("detail %q: expected %q, got %q", want.label, want.value, got)
		}
	}

	if !strings.Contains(rec.DescriptionText, "özel havuzlu") {
		t.Fatalf("unexpected description text %q", rec.DescriptionText)
	}
	if !strings.Contains(rec.DescriptionHTML, "<strong>") {
		t.Fatalf("expected markup preserved in description html")
	}
}

func TestExtractListing_RentApartment(t *testing.T) {
	html := loadFixture(t, "listing_rent_apartment.html")
	url := "https://www.101evler.com/kiralik-daire/girne-merkez-girne/99887.html"

	rec, err := ExtractListing(url, string(html))
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}

	if rec.Price != "1200" || rec.Currency != "USD" {
		t.Fatalf("expected 1200 USD, got %q %q", rec.Price, rec.Currency)
	}
	if rec.CategoryCode != parser.CatApartmentRent {
		t.Fatalf("expected category %d, got %d", parser.CatApartmentRent, rec.CategoryCode)
	}
	if rec.SaleType != models.SaleTypeRental {
		t.Fatalf("expected rental, got %q", rec.SaleType)
	}
	if rec.District != "Girne Merkez" {
		t.Fatalf("expected district from URL slug, got %q", rec.District)
	}

	// Quick stats fill gaps but never overwrite the detail table.
	if v, _ := rec.Details.Get("Oda Sayısı"); v != "2+1" {
		t.Fatalf("quick stat overwrote detail row: %q", v)
	}
	if v, _ := rec.Details.Get("Metrekare"); v != "85" {
		t.Fatalf("expected quick stat Metrekare 85, got %q", v)
	}

	if !strings.Contains(rec.DescriptionText, "beyaz eşyaları") {
		t.Fatalf("unexpected description %q", rec.DescriptionText)
	}
}

func TestExtractListing_NoTitleStillParses(t *testing.T) {
	rec, err := ExtractListing("https://www.101evler.com/x", "<html><body></body></html>")
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if rec.Title != "" {
		t.Fatalf("expected empty title, got %q", rec.Title)
	}
}

func TestExtractGalleryURLs_FancyboxDeduped(t *testing.T) {
	html := loadFixture(t, "listing_sale_villa.html")

	urls := ExtractGalleryURLs(string(html))
	if len(urls) != 2 {
		t.Fatalf("expected 2 unique photos, got %d: %v", len(urls), urls)
	}
	if urls[0] != "https://cdn.101evler.com/property_wm/12345/photo-a.jpg" {
		t.Fatalf("unexpected first photo %s", urls[0])
	}
	if urls[1] != "https://cdn.101evler.com/property_wm/12345/photo-b.jpg" {
		t.Fatalf("unexpected second photo %s", urls[1])
	}
}

func TestExtractGalleryURLs_ImageFallback(t *testing.T) {
	html := loadFixture(t, "listing_rent_apartment.html")

	urls := ExtractGalleryURLs(string(html))
	if len(urls) != 2 {
		t.Fatalf("expected 2 photos, got %d: %v", len(urls), urls)
	}
	if urls[0] != "https://cdn.101evler.com/property_wm/99887/salon.jpg" {
		t.Fatalf("unexpected first photo %s", urls[0])
	}
	if urls[1] != "https://cdn.101evler.com/property_wm/99887/mutfak.jpg" {
		t.Fatalf("unexpected second photo %s", urls[1])
	}
}

func TestExtractGalleryURLs_NoContainer(t *testing.T) {
	if urls := ExtractGalleryURLs("<html><body><img src='https://cdn.101evler.com/a.jpg'></body></html>"); urls != nil {
		t.Fatalf("expected no photos without gallery container, got %v", urls)
	}
}

func TestExtractPriceCurrencies(t *testing.T) {
	cases := []struct {
		text     string
		price    string
		currency string
	}{
		{"£ 350.000", "350000", "GBP"},
		{"$1,200", "1200", "USD"},
		{"€ 95.500", "95500", "EUR"},
		{"₺ 4.250.000", "4250000", "TL"},
		{"250.000", "250000", "GBP"},
	}
	for _, tc := range cases {
		html := `<html><body><h3 class="ilanDetayFontPrice">` + tc.text + `</h3></body></html>`
		rec, err := ExtractListing("https://www.101evler.com/satilik-daire/girne/1.html", html)
		if err != nil {
			t.Fatalf("extract failed: %v", err)
		}
		if rec.Price != tc.price || rec.Currency != tc.currency {
			t.Fatalf("%q: expected %s %s, got %s %s", tc.text, tc.price, tc.currency, rec.Price, rec.Currency)
		}
	}
}

func TestExtractDistrict(t *testing.T) {
	cases := []struct {
		name     string
		location string
		url      string
		want     string
	}{
		{"location wins", "Çatalköy / Girne", "https://www.101evler.com/satilik-villa/alsancak-girne/1.html", "Çatalköy"},
		{"slug city suffix stripped", "", "https://www.101evler.com/kiralik-daire/karsiyaka-girne/2.html", "Karsiyaka"},
		{"multi word slug", "", "https://www.101evler.com/kiralik-daire/girne-merkez-girne/3.html", "Girne Merkez"},
		{"no city suffix", "", "https://www.101evler.com/satilik-arsa/catalkoy/4.html", "Catalkoy"},
		{"too few slugs", "", "https://www.101evler.com/ilan", ""},
	}
	for _, tc := range cases {
		if got := extractDistrict(tc.location, tc.url); got != tc.want {
			t.Fatalf("%s: expected %q, got %q", tc.name, tc.want, got)
		}
	}
}
