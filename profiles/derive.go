package profiles

import (
	"strconv"
	"strings"

	"evler_migrator/models"
	"evler_migrator/parser"
	"evler_migrator/turkish"
)

// Derive infers the form attributes the source never states outright.
// It reads the record only and returns the derived attribute map; the
// caller decides where to store it. Every rule works on folded text so
// Turkish casing never splits a match.
func Derive(rec *models.ListingRecord) map[string]string {
	d := make(map[string]string)

	// The keyword rules read the description only. A detail row like
	// "Havuz: Yok" must not flip a keyword rule positive; explicit
	// detail values reach the form through field resolution instead.
	desc := turkish.Fold(rec.DescriptionText)
	corpus := foldedCorpus(rec)

	d["asansor"] = deriveElevator(rec)
	d["isitma"] = deriveHeating(desc)
	d["kullanimDurumu"] = deriveOccupancy(rec, desc)
	d["siteIci"] = deriveComplex(desc)
	d["havuz"] = derivePool(desc)
	d["otopark"] = deriveParking(desc)
	d["kdvTrafo"] = deriveTaxStatus(corpus)
	if rec.CategoryCode == parser.CatLand {
		d["imarDurumu"] = deriveZoning(corpus)
	}
	return d
}

// foldedCorpus concatenates every free-text surface of the record:
// title, description and all detail labels and values. Only the
// paid-tax and zoning rules read this wide corpus.
func foldedCorpus(rec *models.ListingRecord) string {
	var b strings.Builder
	b.WriteString(rec.Title)
	b.WriteByte(' ')
	b.WriteString(rec.DescriptionText)
	for _, p := range rec.Details.Pairs() {
		b.WriteByte(' ')
		b.WriteString(p.Label)
		b.WriteByte(' ')
		b.WriteString(p.Value)
	}
	return turkish.Fold(b.String())
}

func detailNumber(rec *models.ListingRecord, labels ...string) (int, bool) {
	for _, label := range labels {
		v, ok := rec.Details.GetFold(label)
		if !ok {
			continue
		}
		if m := numberExtract.FindStringSubmatch(v); m != nil {
			raw := strings.NewReplacer(".", "", ",", "").Replace(m[1])
			if n, err := strconv.Atoi(raw); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}

// deriveElevator assumes tall buildings have one and low-rises do not.
// The middle band (4 floors) and unknown floor counts stay unspecified.
func deriveElevator(rec *models.ListingRecord) string {
	floors, ok := detailNumber(rec, "Kat Sayısı", "kat sayisi", "toplam kat")
	if !ok {
		return "Belirtilmemiş"
	}
	switch {
	case floors >= 5:
		return "Var"
	case floors > 0 && floors <= 3:
		return "Hayır"
	default:
		return "Belirtilmemiş"
	}
}

func deriveHeating(text string) string {
	if strings.Contains(text, "vrf") {
		return "VRF"
	}
	if strings.Contains(text, "merkezi isitma") || strings.Contains(text, "central heat") {
		return "Merkezi"
	}
	return "Klima"
}

func deriveOccupancy(rec *models.ListingRecord, text string) string {
	age, ok := rec.Details.GetFold("Bina Yaşı")
	if !ok {
		age, _ = rec.Details.GetFold("bina yasi")
	}
	n := turkish.Fold(strings.TrimSpace(age))
	if n == "0" || n == "sifir" || strings.Contains(text, "proje") {
		return "Sıfır"
	}
	return "Boş"
}

func deriveComplex(text string) string {
	for _, kw := range []string{"site", "complex", "residence"} {
		if strings.Contains(text, kw) {
			return "Evet"
		}
	}
	return "Hayır"
}

func derivePool(text string) string {
	if strings.Contains(text, "ozel havuz") || strings.Contains(text, "private pool") {
		return "Özel"
	}
	for _, kw := range []string{"ortak havuz", "communal pool", "common pool"} {
		if strings.Contains(text, kw) {
			return "Ortak"
		}
	}
	if strings.Contains(text, "havuz") || strings.Contains(text, "pool") {
		return "Ortak"
	}
	return "Hayır"
}

func deriveParking(text string) string {
	for _, kw := range []string{"kapali otopark", "kapali garaj", "closed parking", "indoor parking"} {
		if strings.Contains(text, kw) {
			return "Kapalı ve Açık Otopark"
		}
	}
	return "Açık Otopark"
}

func deriveTaxStatus(text string) string {
	taxPaid := containsNear(text, []string{"kdv", "vergi", "vat"}, []string{"odenmis", "dahil", "paid", "included"})
	trafoPaid := containsNear(text, []string{"trafo", "altyapi"}, []string{"odenmis", "dahil", "paid", "included"})
	switch {
	case taxPaid && trafoPaid:
		return "KDV ve Trafo Ödenmiş"
	case taxPaid:
		return "KDV Ödenmiş"
	case trafoPaid:
		return "Trafo Ödenmiş"
	default:
		return "Belirtilmemiş"
	}
}

// containsNear reports whether any subject keyword occurs with any
// status keyword within the same 60-rune window following it.
func containsNear(text string, subjects, statuses []string) bool {
	for _, subj := range subjects {
		idx := 0
		for {
			i := strings.Index(text[idx:], subj)
			if i < 0 {
				break
			}
			start := idx + i
			end := start + len(subj) + 60
			if end > len(text) {
				end = len(text)
			}
			window := text[start:end]
			for _, st := range statuses {
				if strings.Contains(window, st) {
					return true
				}
			}
			idx = start + len(subj)
		}
	}
	return false
}

func deriveZoning(text string) string {
	switch {
	case strings.Contains(text, "tarla"):
		return "Tarla"
	case strings.Contains(text, "zeytinlik"):
		return "Zeytinlik"
	case strings.Contains(text, "ticari"):
		return "Ticari"
	default:
		return "Konut"
	}
}
