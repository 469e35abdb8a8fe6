package models

import (
	"encoding/json"

	"evler_migrator/turkish"
)

// Detail is one label/value row as it appears on the source listing page.
// Labels are kept verbatim; the same semantic key may appear under
// different spellings, so lookups go through GetFold.
type Detail struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Details is an ordered label→value mapping.
type Details struct {
	pairs []Detail
}

func (d *Details) Set(label, value string) {
	for i := range d.pairs {
		if d.pairs[i].Label == label {
			d.pairs[i].Value = value
			return
		}
	}
	d.pairs = append(d.pairs, Detail{Label: label, Value: value})
}

// Get returns the value stored under the exact label.
func (d *Details) Get(label string) (string, bool) {
	for _, p := range d.pairs {
		if p.Label == label {
			return p.Value, true
		}
	}
	return "", false
}

// GetFold returns the value stored under any label that folds to the
// same form as the given label.
func (d *Details) GetFold(label string) (string, bool) {
	want := turkish.Fold(label)
	for _, p := range d.pairs {
		if turkish.Fold(p.Label) == want {
			return p.Value, true
		}
	}
	return "", false
}

// HasAnyFold reports whether any of the given synonymous labels is
// present under folded comparison.
func (d *Details) HasAnyFold(labels ...string) bool {
	for _, l := range labels {
		if _, ok := d.GetFold(l); ok {
			return true
		}
	}
	return false
}

func (d *Details) Pairs() []Detail {
	return d.pairs
}

func (d *Details) Len() int {
	return len(d.pairs)
}

func (d Details) MarshalJSON() ([]byte, error) {
	if d.pairs == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(d.pairs)
}

func (d *Details) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &d.pairs)
}

// Sale types detected from the source URL.
const (
	SaleTypeSale   = "satilik"
	SaleTypeRental = "kiralik"
)

// ListingRecord is the canonical representation of one source listing.
// Details holds the explicit label/value rows from the page; Derived is
// populated only by profiles.Derive and the two namespaces never overlap.
type ListingRecord struct {
	URL          string `json:"url"`
	CategoryCode int    `json:"category_code"`
	SaleType     string `json:"sale_type"`

	Title    string `json:"title"`
	Price    string `json:"price"`
	Currency string `json:"currency"`
	CityID   int    `json:"city_id"`
	CityName string `json:"city_name"`
	District string `json:"district"`
	Location string `json:"location"`
	Subtitle string `json:"subtitle"`

	Details         Details `json:"details"`
	DescriptionText string  `json:"description_text"`
	DescriptionHTML string  `json:"description_html"`

	Features  []string          `json:"features,omitempty"`
	Derived   map[string]string `json:"derived,omitempty"`
	PhotoURLs []string          `json:"photo_urls,omitempty"`
}
