// Package profiles maps canonical listing records onto the destination
// form's category-dependent field schema. Each property category has a
// static profile of field definitions; resolution walks a prioritized
// source chain per field and derivation fills the attributes that can
// only be guessed from context.
package profiles

import (
	"regexp"
	"strconv"
	"strings"

	"evler_migrator/turkish"
)

// FieldDef declares how one destination form field is resolved from a
// listing record. At most one of ValueMap/Transform meaningfully alters
// a value: the remap is tried first, the transform always runs when
// declared (even on an empty value, so it can manufacture a default).
type FieldDef struct {
	Name      string
	Required  bool
	Source    string
	SourceAlt []string
	Extract   *regexp.Regexp
	ValueMap  map[string]string
	Transform func(string) string
	Default   string
	FormNames []string
}

// Profile bundles the field definitions for one property category,
// plus the fields the destination form omits for that category.
type Profile struct {
	Type          string
	Label         string
	CategoryCodes []int
	Fields        []FieldDef
	SkippedFields []string
}

var numberExtract = regexp.MustCompile(`(\d[\d.,]*)`)

// MapBuildingAge maps a raw building-age value onto the destination's
// age select options: Belirtilmemiş, Proje Aşamasında, 1..5, then
// banded ranges up to "31 ve üzeri".
func MapBuildingAge(raw string) string {
	if raw == "" {
		return "Belirtilmemiş"
	}
	n := turkish.Fold(strings.TrimSpace(raw))

	if n == "belirtilmemis" || n == "-" {
		return "Belirtilmemiş"
	}
	if strings.Contains(n, "proje") || n == "sifir" || n == "yeni" {
		return "Proje Aşamasında"
	}

	num, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return "Belirtilmemiş"
	}

	switch {
	case num == 0:
		return "Proje Aşamasında"
	case num >= 1 && num <= 5:
		return strconv.Itoa(num)
	case num <= 10:
		return "6-10 arası"
	case num <= 15:
		return "11-15 arası"
	case num <= 20:
		return "16-20 arası"
	case num <= 25:
		return "21-25 arası"
	case num <= 30:
		return "26-30 arası"
	default:
		return "31 ve üzeri"
	}
}

var rentalYearRe = regexp.MustCompile(`(\d+)\s*yil`)

// MapRentalPeriod maps source lease/payment cadence phrasing onto the
// destination's options. Longer patterns are checked first so "6 aylık"
// is not swallowed by the bare monthly match.
func MapRentalPeriod(raw string) string {
	if raw == "" {
		return "Belirtilmemiş"
	}
	n := turkish.Fold(raw)
	if strings.Contains(n, "6 aylik") {
		return "6 Aylık"
	}
	if strings.Contains(n, "3 aylik") {
		return "3 Aylık"
	}
	if strings.Contains(n, "aylik") {
		return "Aylık"
	}
	if m := rentalYearRe.FindStringSubmatch(n); m != nil {
		return m[1] + " yıl"
	}
	return "Belirtilmemiş"
}

// commonFields are shared by every profile.
func commonFields() []FieldDef {
	return []FieldDef{
		{
			Name:      "baslik",
			Required:  true,
			Source:    "title",
			FormNames: []string{"baslik", "ilan_baslik", "title"},
		},
		{
			Name:      "fiyat",
			Required:  true,
			Source:    "price",
			FormNames: []string{"fiyat", "price"},
		},
		{
			Name:      "para_birimi",
			Required:  true,
			Source:    "currency",
			FormNames: []string{"para_birimi", "currency"},
		},
		{
			Name:      "il",
			Required:  true,
			Source:    "cityId",
			FormNames: []string{"il", "sehir", "city"},
		},
		{
			Name:      "ilce",
			Required:  true,
			Source:    "district",
			FormNames: []string{"ilce", "ilçe", "district", "semt"},
		},
		{
			Name:     "metrekare",
			Required: true,
			Source:   "details.m²",
			SourceAlt: []string{
				"details.m2", "details.Metrekare", "details.metrekare",
				"details.net m²", "details.Alan Ölçüsü", "details.alan olcusu",
			},
			Extract:   numberExtract,
			FormNames: []string{"metrekare", "m2", "alan"},
		},
		{
			Name:      "kimden",
			Required:  true,
			Default:   "Emlak Ofisi",
			FormNames: []string{"kimden"},
		},
		{
			Name:      "aciklama",
			Source:    "descriptionHtml",
			FormNames: []string{"aciklama", "icerik", "description", "detay"},
		},
	}
}

// residentialFields extend the common set with the full dwelling form.
func residentialFields() []FieldDef {
	return append(commonFields(), []FieldDef{
		{
			Name:      "oda_sayisi",
			Required:  true,
			Source:    "details.Oda Sayısı",
			SourceAlt: []string{"details.oda sayısı", "details.oda sayisi", "details.oda", "details.Oda"},
			FormNames: []string{"Oda_sayisi", "oda_sayisi", "oda", "rooms"},
		},
		{
			Name:      "bina_yasi",
			Required:  true,
			Source:    "details.Bina Yaşı",
			SourceAlt: []string{"details.bina yasi", "details.bina yaşı"},
			Transform: MapBuildingAge,
			Default:   "Belirtilmemiş",
			FormNames: []string{"bina_yasi", "yasi"},
		},
		{
			Name:      "kat_sayisi",
			Required:  true,
			Source:    "details.Kat Sayısı",
			SourceAlt: []string{"details.kat sayisi", "details.kat sayısı", "details.toplam kat"},
			FormNames: []string{"kat_sayisi", "toplam_kat"},
		},
		{
			Name:      "bulundugu_kat",
			Required:  true,
			Source:    "details.Bulunduğu Kat",
			SourceAlt: []string{"details.bulundugu kat", "details.bulunduğu kat", "details.kat"},
			FormNames: []string{"bulundugu_kat", "kat"},
		},
		{
			Name:      "asansor",
			Required:  true,
			Source:    "derived.asansor",
			Default:   "Hayır",
			FormNames: []string{"Asansör", "asansor", "asansör", "elevator"},
		},
		{
			Name:      "banyo_sayisi",
			Required:  true,
			Source:    "details.Banyo Sayısı",
			SourceAlt: []string{"details.banyo sayısı", "details.banyo sayisi", "details.banyo", "details.Banyo"},
			Default:   "1",
			FormNames: []string{"banyo_sayisi", "banyo", "bathrooms"},
		},
		{
			Name:      "balkon_sayisi",
			Required:  true,
			Default:   "1",
			FormNames: []string{"balkon_sayisi", "balkon"},
		},
		{
			Name:      "isitma",
			Required:  true,
			Source:    "derived.isitma",
			Default:   "Klima",
			FormNames: []string{"isitma", "ısıtma", "heating"},
		},
		{
			Name:      "esyali",
			Required:  true,
			Source:    "details.Eşya Durumu",
			SourceAlt: []string{"details.esya durumu", "details.eşyalı", "details.esyali"},
			ValueMap:  map[string]string{"-": "Belirtilmemiş", "Eşyasız": "Hayır", "Eşyalı": "Evet"},
			Default:   "Belirtilmemiş",
			FormNames: []string{"Esyali", "esyali", "eşyalı", "furnished"},
		},
		{
			Name:      "kullanim_durumu",
			Required:  true,
			Source:    "derived.kullanimDurumu",
			Default:   "Boş",
			FormNames: []string{"kullanim_durumu", "kullanım_durumu"},
		},
		{
			Name:      "site_ici",
			Required:  true,
			Source:    "derived.siteIci",
			Default:   "Hayır",
			FormNames: []string{"site_ici", "site_içi", "site"},
		},
		{
			Name:      "aidat",
			Required:  true,
			Source:    "details.Aidat",
			SourceAlt: []string{"details.aidat"},
			Default:   "-",
			FormNames: []string{"Aidat", "aidat"},
		},
		{
			Name:      "havuz",
			Required:  true,
			Source:    "derived.havuz",
			Default:   "Hayır",
			FormNames: []string{"Havuz", "havuz", "pool"},
		},
		{
			Name:      "otopark",
			Required:  true,
			Source:    "derived.otopark",
			Default:   "Açık Otopark",
			FormNames: []string{"Otopark", "otopark", "parking"},
		},
		{
			Name:      "krediye_uygun",
			Required:  true,
			Default:   "Belirtilmemiş",
			FormNames: []string{"krediye_uygun", "kredi"},
		},
		{
			Name:      "tapu_turu",
			Required:  true,
			Source:    "details.Tapu Türü",
			SourceAlt: []string{"details.tapu turu", "details.tapu türü"},
			Default:   "Belirtilmemiş",
			FormNames: []string{"tapu_turu", "tapu_türü", "tapu"},
		},
		{
			Name:      "kdv_trafo",
			Required:  true,
			Source:    "derived.kdvTrafo",
			Default:   "Belirtilmemiş",
			FormNames: []string{"Kdv-Trafo", "kdv_trafo", "kdv"},
		},
		{
			Name:      "takas",
			Required:  true,
			Default:   "Hayır",
			FormNames: []string{"takas"},
		},
		{
			Name:      "arsa_metrekaresi",
			Source:    "details.m²",
			SourceAlt: []string{"details.m2", "details.Alan Ölçüsü", "details.alan olcusu", "details.Metrekare"},
			Extract:   numberExtract,
			FormNames: []string{"arsa_metrekaresi"},
		},
	}...)
}

// rentalFields are injected into non-commercial profiles for rental
// listings. Same-named profile fields are overridden.
func rentalFields() []FieldDef {
	return []FieldDef{
		{
			Name:      "depozito",
			Required:  true,
			Default:   "1 Kira Bedeli",
			FormNames: []string{"Depotizo", "depotizo", "Depozito", "depozito"},
		},
		{
			Name:      "kiralama_suresi",
			Required:  true,
			Source:    "details.En Az Kiralama",
			SourceAlt: []string{"details.en az kiralama", "details.Kiralama Süresi", "details.kiralama suresi"},
			Transform: MapRentalPeriod,
			Default:   "1 yıl",
			FormNames: []string{"Kiralama_Suresi", "kiralama_suresi", "Kiralamasüresi_", "kiralama"},
		},
		{
			Name:      "kira_odemesi",
			Required:  true,
			Source:    "details.Kira Ödeme Aralığı",
			SourceAlt: []string{"details.kira odeme araligi", "details.Ödeme Şekli", "details.odeme sekli"},
			Transform: MapRentalPeriod,
			Default:   "Aylık",
			FormNames: []string{"Kira_odemesi", "kira_odemesi"},
		},
	}
}

// overrideFields replaces same-named definitions in place, appending
// any replacement that has no counterpart. Declaration order of the
// base list is preserved.
func overrideFields(base []FieldDef, repl ...FieldDef) []FieldDef {
	out := append([]FieldDef(nil), base...)
	for _, r := range repl {
		replaced := false
		for i := range out {
			if out[i].Name == r.Name {
				out[i] = r
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, r)
		}
	}
	return out
}
