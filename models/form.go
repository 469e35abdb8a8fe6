package models

// SelectOption is one option of a live select control.
type SelectOption struct {
	Value string `json:"value"`
	Text  string `json:"text"`
}

// DiscoveredFormField describes one live control on the destination
// form. Snapshots are rebuilt on every migration attempt and never
// cached across jobs.
type DiscoveredFormField struct {
	Tag      string         `json:"tag"`  // input, select, textarea
	Type     string         `json:"type"` // text, checkbox, file, ...
	Name     string         `json:"name"`
	ID       string         `json:"id"`
	Label    string         `json:"label,omitempty"`
	Required bool           `json:"required"`
	Options  []SelectOption `json:"options,omitempty"`
}

// ResolvedValue is the final string computed for one destination field
// together with the candidate form names to try on the live form.
type ResolvedValue struct {
	Field     string   `json:"field"`
	Value     string   `json:"value"`
	Required  bool     `json:"required"`
	FormNames []string `json:"formNames"`
}

// SyncReport is the outcome of one form synchronization attempt.
type SyncReport struct {
	Success        bool     `json:"success"`
	DryRun         bool     `json:"dryRun"`
	ListingURL     string   `json:"listingUrl,omitempty"`
	FilledFields   []string `json:"filledFields"`
	SkippedFields  []string `json:"skippedFields"`
	PhotosUploaded int      `json:"photosUploaded,omitempty"`
	EmptyRequired  []string `json:"emptyRequired,omitempty"`
	Diagnostics    []string `json:"diagnostics,omitempty"`
}
