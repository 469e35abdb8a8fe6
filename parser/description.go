// Package parser extracts structured attributes from free-form listing
// descriptions. Patterns cover both Turkish and English phrasing; a
// miss is never an error, extractors just return ok=false.
package parser

import (
	"regexp"
	"strings"

	"evler_migrator/models"
	"evler_migrator/turkish"
)

var (
	roomPlusRe = regexp.MustCompile(`(\d)\s*\+\s*(\d)`)
	roomOdaRe  = regexp.MustCompile(`(\d+)\s*(?:oda|yatak\s*odasi)`)
	roomBedRe  = regexp.MustCompile(`(\d+)\s*(?:bedroom|bed\b)`)

	bathBanyoRe = regexp.MustCompile(`(\d+)\s*banyo`)
	bathBathRe  = regexp.MustCompile(`(\d+)\s*(?:bathroom|bath\b)`)

	areaM2Re    = regexp.MustCompile(`(\d[\d.,]*)\s*m[²2]`)
	areaSqmRe   = regexp.MustCompile(`(\d[\d.,]*)\s*(?:sqm|sq\.?\s*m|square\s*met)`)
	areaDonumRe = regexp.MustCompile(`(\d[\d.,]*)\s*donum`)

	floorKatRe     = regexp.MustCompile(`(\d+)\s*\.?\s*kat`)
	floorOrdinalRe = regexp.MustCompile(`(\d+)\s*(?:st|nd|rd|th)\s*floor`)

	ageYearsRe = regexp.MustCompile(`(\d+)\s*(?:yasinda|yillik|years?\s*old)`)
	ageRangeRe = regexp.MustCompile(`(\d+)\s*-\s*(\d+)\s*(?:yil|year)`)

	totalKatliRe = regexp.MustCompile(`(\d+)\s*katli`)
	totalStoryRe = regexp.MustCompile(`(\d+)\s*stor(?:e?y|ies)`)

	separatorRe = regexp.MustCompile(`[.,]`)
	tagRe       = regexp.MustCompile(`<[^>]*>`)
)

// StripTags removes HTML tags, leaving plain text.
func StripTags(html string) string {
	return tagRe.ReplaceAllString(html, " ")
}

// RoomCount extracts a room layout like "3+1" or a bare count.
// A studio mention maps to "1+0".
func RoomCount(text string) (string, bool) {
	n := turkish.Fold(text)
	if m := roomPlusRe.FindStringSubmatch(n); m != nil {
		return m[1] + "+" + m[2], true
	}
	if m := roomOdaRe.FindStringSubmatch(n); m != nil {
		return m[1], true
	}
	if m := roomBedRe.FindStringSubmatch(n); m != nil {
		return m[1], true
	}
	if strings.Contains(n, "studio") || strings.Contains(n, "studyo") {
		return "1+0", true
	}
	return "", false
}

func BathCount(text string) (string, bool) {
	n := turkish.Fold(text)
	if m := bathBanyoRe.FindStringSubmatch(n); m != nil {
		return m[1], true
	}
	if m := bathBathRe.FindStringSubmatch(n); m != nil {
		return m[1], true
	}
	return "", false
}

// Area extracts a square-measure value with thousands separators
// stripped. Dönüm is accepted for land listings.
func Area(text string) (string, bool) {
	n := turkish.Fold(text)
	for _, re := range []*regexp.Regexp{areaM2Re, areaSqmRe, areaDonumRe} {
		if m := re.FindStringSubmatch(n); m != nil {
			return separatorRe.ReplaceAllString(m[1], ""), true
		}
	}
	return "", false
}

// Floor extracts the floor label: special literals for ground, basement
// and penthouse floors, otherwise a numeric floor.
func Floor(text string) (string, bool) {
	n := turkish.Fold(text)
	if strings.Contains(n, "zemin kat") || strings.Contains(n, "ground floor") {
		return "Zemin", true
	}
	if strings.Contains(n, "bodrum") || strings.Contains(n, "basement") {
		return "Bodrum", true
	}
	if strings.Contains(n, "cati kat") || strings.Contains(n, "penthouse") || strings.Contains(n, "top floor") {
		return "Cati", true
	}
	if m := floorKatRe.FindStringSubmatch(n); m != nil {
		return m[1], true
	}
	if m := floorOrdinalRe.FindStringSubmatch(n); m != nil {
		return m[1], true
	}
	return "", false
}

// Furnished detects furnished status. A negative keyword always wins
// over a positive one when both appear.
func Furnished(text string) (string, bool) {
	n := turkish.Fold(text)
	negative := strings.Contains(n, "esyasiz") || strings.Contains(n, "unfurnished") || strings.Contains(n, "mobilyasiz")
	positive := strings.Contains(n, "esyali") || strings.Contains(n, "mobilyali") || strings.Contains(n, "furnished")
	if negative {
		return "Eşyasız", true
	}
	if positive {
		return "Eşyalı", true
	}
	return "", false
}

// BuildingAge extracts the building age in years. "Sıfır"/"yeni bina"
// maps to "0"; a year range takes its upper bound.
func BuildingAge(text string) (string, bool) {
	n := turkish.Fold(text)
	if strings.Contains(n, "sifir") || strings.Contains(n, "yeni bina") || strings.Contains(n, "new build") {
		return "0", true
	}
	if m := ageYearsRe.FindStringSubmatch(n); m != nil {
		return m[1], true
	}
	if m := ageRangeRe.FindStringSubmatch(n); m != nil {
		return m[2], true
	}
	return "", false
}

func TotalFloors(text string) (string, bool) {
	n := turkish.Fold(text)
	if m := totalKatliRe.FindStringSubmatch(n); m != nil {
		return m[1], true
	}
	if m := totalStoryRe.FindStringSubmatch(n); m != nil {
		return m[1], true
	}
	return "", false
}

// featurePatterns maps keyword patterns to canonical feature labels.
// Order only affects output ordering; matches are multi-label.
var featurePatterns = []struct {
	re    *regexp.Regexp
	label string
}{
	{regexp.MustCompile(`havuz|pool`), "Havuzlu"},
	{regexp.MustCompile(`deniz\s*manzara|sea\s*view`), "Deniz Manzarali"},
	{regexp.MustCompile(`dag\s*manzara|mountain\s*view`), "Dag Manzarali"},
	{regexp.MustCompile(`klima|air\s*condition`), "Klimali"},
	{regexp.MustCompile(`otopark|garaj|parking|garage`), "Otoparkli"},
	{regexp.MustCompile(`asansor|elevator|lift`), "Asansorlu"},
	{regexp.MustCompile(`bahce|garden`), "Bahceli"},
	{regexp.MustCompile(`teras|terrace`), "Terasli"},
	{regexp.MustCompile(`balkon|balcon`), "Balkonlu"},
	{regexp.MustCompile(`guvenlik|security`), "Guvenlikli"},
	{regexp.MustCompile(`jenerator|generator`), "Jeneratorlu"},
	{regexp.MustCompile(`gunes\s*enerjisi|solar`), "Gunes Enerjili"},
	{regexp.MustCompile(`merkezi\s*isitma|central\s*heat`), "Merkezi Isitma"},
	{regexp.MustCompile(`soba|fireplace|somine`), "Sobali"},
	{regexp.MustCompile(`beyaz\s*esya|white\s*goods`), "Beyaz Esyali"},
	{regexp.MustCompile(`mobilya|furnished`), "Mobilyali"},
}

// Features returns every matching feature label, deduplicated.
func Features(text string) []string {
	n := turkish.Fold(text)
	var features []string
	seen := make(map[string]bool)
	for _, fp := range featurePatterns {
		if fp.re.MatchString(n) && !seen[fp.label] {
			features = append(features, fp.label)
			seen[fp.label] = true
		}
	}
	return features
}

// District matches the text against the known district gazetteer.
// First match wins; the list order is load-bearing.
func District(text string) (string, bool) {
	n := turkish.Fold(text)
	for _, d := range districts {
		if strings.Contains(n, turkish.Fold(d)) {
			return d, true
		}
	}
	return "", false
}

// Known districts on the destination side. Kept in source-site spelling;
// comparison is folded.
var districts = []string{
	"Alsancak", "Catalkoy", "Edremit", "Karsiyaka",
	"Lapta", "Ozankoy", "Bellapais", "Beylerbeyi",
	"Karakum", "Zeytinlik", "Arapkoy", "Dikmen",
	"Bogaz", "Bafra", "Tatlisu",
	"Yenibogazici", "Mehmetcik",
	"Gecitkale", "Akdogan",
	"Gonyeli", "Hamitkoy",
	"Yenisehir", "Kumsal", "Ortakoy",
	"Marmara", "Kaymakli", "Kizilbas",
	"Haspolat", "Alaykoy", "Degirmenlik",
	"Famagusta", "Sakarya", "Baykal", "Canakkale",
	"Maras", "Yeniiskele",
	"Guzelyurt", "Lefke", "Morphou",
}

// Synonymous detail labels checked before an extracted value may be
// written. An attribute already present under any of these is never
// overwritten.
var knownLabels = map[string][]string{
	"rooms":   {"oda sayısı", "oda"},
	"baths":   {"banyo sayısı", "banyo"},
	"area":    {"m2", "m²", "metrekare", "net m²", "alan ölçüsü"},
	"floor":   {"bulunduğu kat", "kat"},
	"floors":  {"kat sayısı", "toplam kat"},
	"furnish": {"eşya durumu", "eşyalı"},
	"age":     {"bina yaşı"},
}

// Enrich fills missing details on the record from its description text.
// Explicit details always win: an attribute already present under any
// known synonymous label is left untouched. Features are the exception
// and are fully recomputed from the current text, which also makes the
// whole pass idempotent.
func Enrich(rec *models.ListingRecord) {
	text := rec.DescriptionText + " " + StripTags(rec.DescriptionHTML)

	if !rec.Details.HasAnyFold(knownLabels["rooms"]...) {
		if v, ok := RoomCount(text); ok {
			rec.Details.Set("Oda Sayısı", v)
		}
	}
	if !rec.Details.HasAnyFold(knownLabels["baths"]...) {
		if v, ok := BathCount(text); ok {
			rec.Details.Set("Banyo Sayısı", v)
		}
	}
	if !rec.Details.HasAnyFold(knownLabels["area"]...) {
		if v, ok := Area(text); ok {
			rec.Details.Set("m²", v)
		}
	}
	if !rec.Details.HasAnyFold(knownLabels["floor"]...) {
		if v, ok := Floor(text); ok {
			rec.Details.Set("Bulunduğu Kat", v)
		}
	}
	if !rec.Details.HasAnyFold(knownLabels["floors"]...) {
		if v, ok := TotalFloors(text); ok {
			rec.Details.Set("Kat Sayısı", v)
		}
	}
	if !rec.Details.HasAnyFold(knownLabels["furnish"]...) {
		if v, ok := Furnished(text); ok {
			rec.Details.Set("Eşya Durumu", v)
		}
	}
	if !rec.Details.HasAnyFold(knownLabels["age"]...) {
		if v, ok := BuildingAge(text); ok {
			rec.Details.Set("Bina Yaşı", v)
		}
	}
	if rec.District == "" {
		if d, ok := District(text); ok {
			rec.District = d
		}
	}

	rec.Features = Features(text)
}
