package formsync

import (
	"context"

	"evler_migrator/models"
)

// Page is the browser surface the syncer drives. The playwright
// adapter implements it against a live page; tests swap in a fake.
// Field-addressed methods take the DOM name attribute. Methods that
// read DOM state re-query on every call so the cascade polling sees
// AJAX-loaded options.
type Page interface {
	Navigate(ctx context.Context, url string) error
	URL() string
	Content() (string, error)

	// DiscoverFields lists every named input, select and textarea,
	// selects with their current options.
	DiscoverFields() ([]models.DiscoveredFormField, error)

	// TypeInto replaces an input's value and fires the native and
	// jQuery change events the site's validation listens on.
	TypeInto(name, value string) error
	FillTextarea(name, value string) error
	SelectValue(name, value string) error
	SelectedValue(name string) (string, error)

	// SetRichText writes HTML into the WYSIWYG editor body when one
	// exists; ok is false when the page has no editor.
	SetRichText(html string) (bool, error)
	EnsureChecked(name string) error
	UploadPhoto(path string) error

	// FireValidation re-dispatches change events on every filled
	// field so conditional validation state settles.
	FireValidation() error
	EmptyRequiredFields() ([]string, error)

	SubmitEnabled() (bool, error)
	ForceEnableSubmit() error
	ClickSubmit(ctx context.Context) error
	ErrorMessages() ([]string, error)
	ListingLink() (string, error)

	ClickButton(name string) error
}
