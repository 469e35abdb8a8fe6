package parser

import (
	"strings"

	"evler_migrator/models"
	"evler_migrator/turkish"
)

// Destination category codes.
const (
	CatApartmentSale   = 901
	CatStudioSale      = 902
	CatDetachedSale    = 903
	CatVillaSale       = 904
	CatApartmentRent   = 912
	CatDetachedRent    = 914
	CatVillaRent       = 915
	CatPenthouseSale   = 18260
	CatPenthouseRent   = 19100
	CatTwinVillaSale   = 19633
	CatLand            = 101
	CatCommercial      = 970
	CatTouristFacility = 1162
)

// categorySlugs maps URL slug keywords directly to category codes.
// Checked before the generic type keywords.
var categorySlugs = []struct {
	slug string
	code int
}{
	{"kiralik-daire", CatApartmentRent},
	{"kiralik-villa", CatVillaRent},
	{"kiralik-penthouse", CatPenthouseRent},
	{"kiralik-mustakil-ev", CatDetachedRent},
	{"kiralik-dukkan", CatCommercial},
	{"kiralik-isyeri", CatCommercial},
	{"satilik-daire", CatApartmentSale},
	{"satilik-studio", CatStudioSale},
	{"satilik-mustakil-ev", CatDetachedSale},
	{"satilik-villa", CatVillaSale},
	{"satilik-ikiz-villa", CatTwinVillaSale},
	{"satilik-penthouse", CatPenthouseSale},
	{"satilik-arsa", CatLand},
	{"satilik-tarla", CatLand},
	{"satilik-isyeri", CatCommercial},
	{"satilik-dukkan", CatCommercial},
	{"satilik-otel", CatTouristFacility},
}

var saleTypeKeywords = []struct {
	kw   string
	code int
}{
	{"ikiz villa", CatTwinVillaSale},
	{"villa", CatVillaSale},
	{"penthouse", CatPenthouseSale},
	{"studio", CatStudioSale},
	{"mustakil ev", CatDetachedSale},
	{"arsa", CatLand},
	{"tarla", CatLand},
	{"otel", CatTouristFacility},
	{"isyeri", CatCommercial},
	{"dukkan", CatCommercial},
	{"daire", CatApartmentSale},
}

var rentTypeKeywords = []struct {
	kw   string
	code int
}{
	{"villa", CatVillaRent},
	{"penthouse", CatPenthouseRent},
	{"mustakil ev", CatDetachedRent},
	{"isyeri", CatCommercial},
	{"dukkan", CatCommercial},
	{"daire", CatApartmentRent},
}

// DetectSaleType reads the transaction type from the source URL.
func DetectSaleType(url string) string {
	if strings.Contains(turkish.Fold(url), "satilik") {
		return models.SaleTypeSale
	}
	return models.SaleTypeRental
}

// DetectCategoryCode maps a source URL plus explicit detail rows to a
// destination category code. Slug keywords are tried first, then the
// property-type keywords over the URL and the "Emlak Tipi"-style
// details, falling back to the residential apartment code.
func DetectCategoryCode(url string, details *models.Details) int {
	urlFold := turkish.Fold(url)

	for _, cs := range categorySlugs {
		if strings.Contains(urlFold, cs.slug) {
			return cs.code
		}
	}

	isSale := strings.Contains(urlFold, "satilik")

	var typeText string
	if details != nil {
		for _, label := range []string{"Emlak Tipi", "Emlak Türü", "Durumu"} {
			if v, ok := details.GetFold(label); ok {
				typeText += " " + v
			}
		}
	}
	combined := strings.ReplaceAll(urlFold, "-", " ") + " " + turkish.Fold(typeText)

	keywords := rentTypeKeywords
	if isSale {
		keywords = saleTypeKeywords
	}
	for _, tk := range keywords {
		if strings.Contains(combined, tk.kw) {
			return tk.code
		}
	}

	if isSale {
		return CatApartmentSale
	}
	return CatApartmentRent
}

// City codes on the destination form.
var cities = []struct {
	name string
	id   int
}{
	{"Lefkoşa", 82},
	{"Gazimağusa", 83},
	{"Güzelyurt", 84},
	{"Lefke", 85},
	{"Girne", 86},
	{"İskele", 88},
}

// DetectCity matches known city names in location text and returns the
// destination city id and canonical name.
func DetectCity(locationText string) (int, string, bool) {
	n := turkish.Fold(locationText)
	for _, c := range cities {
		if strings.Contains(n, turkish.Fold(c.name)) {
			return c.id, c.name, true
		}
	}
	return 0, "", false
}
