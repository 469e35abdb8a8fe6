// Package formsync drives the destination site's listing form: login,
// field discovery, fuzzy filling, the city/district AJAX cascade and
// final submission. Browser access goes through the Page interface so
// the protocol is testable without a browser.
package formsync

import (
	"strings"

	"evler_migrator/models"
	"evler_migrator/turkish"
)

// optionSynonyms maps folded option text to interchangeable phrasings.
// The destination mixes Hayır/Yok and Evet/Var across its selects.
var optionSynonyms = map[string][]string{
	"hayir":         {"yok"},
	"yok":           {"hayir"},
	"evet":          {"var"},
	"var":           {"evet"},
	"belirtilmemis": {"bilinmiyor"},
	"bilinmiyor":    {"belirtilmemis"},
}

// FuzzyMatchOption finds the option value for a desired text. Tiers:
// exact folded match, synonym match, then containment in either
// direction for targets of at least 3 folded characters.
func FuzzyMatchOption(options []models.SelectOption, target string) (string, bool) {
	want := turkish.Fold(strings.TrimSpace(target))
	if want == "" {
		return "", false
	}
	for _, opt := range options {
		if turkish.Fold(strings.TrimSpace(opt.Text)) == want {
			return opt.Value, true
		}
	}
	for _, syn := range optionSynonyms[want] {
		for _, opt := range options {
			if turkish.Fold(strings.TrimSpace(opt.Text)) == syn {
				return opt.Value, true
			}
		}
	}
	if len(want) < 3 {
		return "", false
	}
	for _, opt := range options {
		text := turkish.Fold(strings.TrimSpace(opt.Text))
		if len(text) < 3 {
			continue
		}
		if strings.Contains(text, want) || strings.Contains(want, text) {
			return opt.Value, true
		}
	}
	return "", false
}

// placeholderOption reports select values that carry no real choice.
func placeholderOption(value string) bool {
	return value == "" || value == "0"
}

// FallbackOption picks a safe option when fuzzy matching failed: the
// unspecified option when present, otherwise the first real one.
func FallbackOption(options []models.SelectOption) (models.SelectOption, bool) {
	for _, opt := range options {
		if placeholderOption(opt.Value) {
			continue
		}
		if turkish.FoldEqual(strings.TrimSpace(opt.Text), "Belirtilmemiş") {
			return opt, true
		}
	}
	for _, opt := range options {
		if !placeholderOption(opt.Value) {
			return opt, true
		}
	}
	return models.SelectOption{}, false
}

// FindFieldName resolves a profile's candidate form names against the
// discovered field names. Tiers: literal match, folded equality, then
// folded containment in either direction with a length difference of
// at most 5 characters. Names shorter than 3 characters never
// fuzzy-match; the site has stray single-letter inputs like the
// search box.
func FindFieldName(fieldNames []string, candidates []string) (string, bool) {
	for _, cand := range candidates {
		for _, name := range fieldNames {
			if name == cand {
				return name, true
			}
		}
	}
	for _, cand := range candidates {
		if len(cand) < 3 {
			continue
		}
		want := turkish.Fold(cand)
		for _, name := range fieldNames {
			if len(name) < 3 {
				continue
			}
			if turkish.Fold(name) == want {
				return name, true
			}
		}
	}
	for _, cand := range candidates {
		if len(cand) < 3 {
			continue
		}
		want := turkish.Fold(cand)
		for _, name := range fieldNames {
			if len(name) < 3 {
				continue
			}
			got := turkish.Fold(name)
			if !strings.Contains(got, want) && !strings.Contains(want, got) {
				continue
			}
			if len(got)-len(want) <= 5 && len(want)-len(got) <= 5 {
				return name, true
			}
		}
	}
	return "", false
}

// SimilarFieldNames suggests up to five discovered names that share a
// 3-character prefix with any candidate, for skip diagnostics.
func SimilarFieldNames(fieldNames []string, candidates []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, cand := range candidates {
		want := turkish.Fold(cand)
		if len(want) < 3 {
			continue
		}
		for _, name := range fieldNames {
			got := turkish.Fold(name)
			if len(got) < 3 || seen[name] {
				continue
			}
			if strings.Contains(got, want[:3]) || strings.Contains(want, got[:3]) {
				seen[name] = true
				out = append(out, name)
				if len(out) == 5 {
					return out
				}
			}
		}
	}
	return out
}
