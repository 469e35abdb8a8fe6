// Package scraper pulls listing records off the source marketplace.
// Page HTML is captured through a browser session and parsed offline,
// so extraction stays testable against fixture snapshots.
package scraper

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"evler_migrator/models"
	"evler_migrator/parser"
	"evler_migrator/turkish"
)

// descriptionSelectors are tried in order; the first element with a
// meaningful amount of text wins.
var descriptionSelectors = []string{
	".div-block-361 .f-s-16",
	".f-s-16",
	".w-richtext",
	"[class*='ilan-aciklama']",
	".col-10",
}

var citySlugSuffixes = []string{
	"girne", "lefkosa", "gazimagusa", "guzelyurt", "iskele", "lefke",
}

// ExtractListing parses a listing page snapshot into a canonical
// record. The URL contributes category, sale type and the district
// fallback.
func ExtractListing(pageURL, html string) (*models.ListingRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse listing page: %w", err)
	}

	rec := &models.ListingRecord{URL: pageURL}

	rec.Title = strings.TrimSpace(doc.Find("h1").First().Text())
	if rec.Title == "" {
		rec.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	rec.Price, rec.Currency = extractPrice(doc)

	for _, sel := range descriptionSelectors {
		el := doc.Find(sel).First()
		if el.Length() == 0 {
			continue
		}
		text := strings.TrimSpace(el.Text())
		if len(text) <= 20 {
			continue
		}
		rec.DescriptionText = text
		if inner, err := el.Html(); err == nil {
			rec.DescriptionHTML = strings.TrimSpace(inner)
		}
		break
	}

	extractDetails(doc, rec)

	rec.Location = firstText(doc, ".locationpremiumdivcopy", "[class*='location']")
	rec.Subtitle = firstText(doc, "h2.text-block-139", "h2")

	rec.CategoryCode = parser.DetectCategoryCode(pageURL, &rec.Details)
	rec.SaleType = parser.DetectSaleType(pageURL)

	if id, name, ok := parser.DetectCity(rec.Location + " " + rec.Subtitle); ok {
		rec.CityID = id
		rec.CityName = name
	}

	rec.District = extractDistrict(rec.Location, pageURL)

	return rec, nil
}

func firstText(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if text := strings.TrimSpace(doc.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

func extractPrice(doc *goquery.Document) (price, currency string) {
	text := strings.TrimSpace(doc.Find("h3.ilanDetayFontPrice").First().Text())
	if text == "" {
		return "", ""
	}
	var digits strings.Builder
	for _, r := range text {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	price = digits.String()
	switch {
	case strings.Contains(text, "£"):
		currency = "GBP"
	case strings.Contains(text, "$"):
		currency = "USD"
	case strings.Contains(text, "€"):
		currency = "EUR"
	case strings.Contains(text, "₺"):
		currency = "TL"
	default:
		currency = "GBP"
	}
	return price, currency
}

// extractDetails reads the label/value rows of the detail table, then
// the quick-stat blocks without overwriting anything already seen.
func extractDetails(doc *goquery.Document, rec *models.ListingRecord) {
	collect := func(sel string, overwrite bool) {
		doc.Find(sel).Each(func(_ int, el *goquery.Selection) {
			label, value, ok := splitDetailRow(el.Text())
			if !ok {
				return
			}
			if !overwrite {
				if _, exists := rec.Details.Get(label); exists {
					return
				}
			}
			rec.Details.Set(label, value)
		})
	}
	collect(".text-block-141, .ilandetaycomponent", true)
	collect(".div-block-358", false)
}

func splitDetailRow(text string) (label, value string, ok bool) {
	var parts []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			parts = append(parts, line)
		}
	}
	if len(parts) < 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// extractDistrict prefers the "district / city" location text, then
// falls back to the URL slug with the city suffix stripped.
func extractDistrict(location, pageURL string) string {
	if strings.Contains(location, "/") {
		if d := strings.TrimSpace(strings.SplitN(location, "/", 2)[0]); d != "" {
			return d
		}
	}

	u, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	var slugs []string
	for _, part := range strings.Split(u.Path, "/") {
		if part != "" {
			slugs = append(slugs, part)
		}
	}
	if len(slugs) < 2 {
		return ""
	}
	slug := slugs[1]
	folded := turkish.Fold(slug)
	for _, city := range citySlugSuffixes {
		if strings.HasSuffix(folded, "-"+city) {
			slug = slug[:len(folded)-len(city)-1]
			break
		}
	}
	if slug == "" {
		return ""
	}
	words := strings.Split(slug, "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// ExtractGalleryURLs lists the clean photo URLs of the gallery tab.
// Fancybox anchors come first; stray inline images are the fallback.
func ExtractGalleryURLs(html string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	container := doc.Find(".gallery-tab-content#st, .w-tab-pane.gallery-tab-content").First()
	if container.Length() == 0 {
		return nil
	}

	var urls []string
	seen := map[string]bool{}
	add := func(u string) {
		if u == "" || seen[u] {
			return
		}
		seen[u] = true
		urls = append(urls, u)
	}

	container.Find("a.fancybox-link[data-fancybox]").Each(func(_ int, a *goquery.Selection) {
		if href, ok := a.Attr("href"); ok {
			add(href)
		}
	})
	if len(urls) == 0 {
		container.Find("img").Each(func(_ int, img *goquery.Selection) {
			src, ok := img.Attr("src")
			if !ok || src == "" {
				src, _ = img.Attr("data-src")
			}
			if strings.Contains(src, "101evler") {
				add(src)
			}
		})
	}
	return urls
}
