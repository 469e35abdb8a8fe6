package profiles

import (
	"evler_migrator/models"
	"evler_migrator/parser"
)

const (
	TypeResidential = "residential"
	TypeVilla       = "villa"
	TypeLand        = "land"
	TypeHotel       = "hotel"
	TypeCommercial  = "commercial"
)

func residentialProfile() *Profile {
	return &Profile{
		Type:  TypeResidential,
		Label: "Konut",
		CategoryCodes: []int{
			parser.CatApartmentSale, parser.CatStudioSale, parser.CatDetachedSale,
			parser.CatApartmentRent, parser.CatDetachedRent,
			parser.CatPenthouseSale, parser.CatPenthouseRent,
		},
		Fields: residentialFields(),
	}
}

func villaProfile() *Profile {
	fields := overrideFields(residentialFields(),
		FieldDef{
			Name:      "bulundugu_kat",
			Source:    "details.Bulunduğu Kat",
			SourceAlt: []string{"details.bulundugu kat", "details.bulunduğu kat", "details.kat"},
			FormNames: []string{"bulundugu_kat", "kat"},
		},
		FieldDef{
			Name:      "arsa_metrekaresi",
			Required:  true,
			Source:    "details.Arsa Büyüklüğü",
			SourceAlt: []string{"details.arsa buyuklugu", "details.Arsa m²", "details.arsa m2"},
			Extract:   numberExtract,
			Default:   "-",
			FormNames: []string{"arsa_metrekaresi", "arsa"},
		},
	)
	return &Profile{
		Type:          TypeVilla,
		Label:         "Villa",
		CategoryCodes: []int{parser.CatVillaSale, parser.CatVillaRent, parser.CatTwinVillaSale},
		Fields:        fields,
	}
}

func landProfile() *Profile {
	fields := append(commonFields(), []FieldDef{
		{
			Name:      "imar_durumu",
			Required:  true,
			Source:    "details.İmar Durumu",
			SourceAlt: []string{"details.imar durumu", "details.Imar Durumu", "derived.imarDurumu"},
			Default:   "Konut",
			FormNames: []string{"imar_durumu"},
		},
		{
			Name:      "tapu_durumu",
			Required:  true,
			Source:    "details.Tapu Türü",
			SourceAlt: []string{"details.tapu turu", "details.tapu türü", "details.tapu durumu", "details.Tapu Durumu"},
			Default:   "Belirtilmemiş",
			FormNames: []string{"tapu_durumu"},
		},
		{
			Name:      "kat_izni",
			Required:  true,
			Source:    "details.Kat İzni",
			SourceAlt: []string{"details.kat izni", "details.Kat Izni", "details.kat İzni"},
			Default:   "Belirtilmemiş",
			FormNames: []string{"kat_izni"},
		},
		{
			Name:      "imar_orani",
			Required:  true,
			Default:   "Belirtilmemiş",
			FormNames: []string{"imar_orani"},
		},
		{
			Name:      "krediye_uygun",
			Required:  true,
			Default:   "Evet",
			FormNames: []string{"krediye_uygun", "kredi"},
		},
		{
			Name:      "takas",
			Required:  true,
			Default:   "Hayır",
			FormNames: []string{"takas"},
		},
		{
			Name:      "metrekare_fiyati",
			Source:    "details.m² Fiyatı",
			SourceAlt: []string{"details.m2 fiyati", "details.m² fiyati", "details.Metrekare Fiyatı", "details.metrekare fiyati"},
			Extract:   numberExtract,
			FormNames: []string{"metrekare_fiyati", "m2_fiyati"},
		},
	}...)
	return &Profile{
		Type:          TypeLand,
		Label:         "Arsa",
		CategoryCodes: []int{parser.CatLand},
		Fields:        fields,
		SkippedFields: []string{
			"oda_sayisi", "banyo_sayisi", "bina_yasi", "kat_sayisi",
			"bulundugu_kat", "esyali", "asansor", "balkon_sayisi", "isitma",
			"kullanim_durumu", "site_ici", "aidat", "havuz", "otopark",
			"tapu_turu", "kdv_trafo", "arsa_metrekaresi",
		},
	}
}

func hotelProfile() *Profile {
	fields := append(commonFields(), []FieldDef{
		{
			Name:      "acik_metrekare",
			Source:    "details.m²",
			SourceAlt: []string{"details.m2", "details.Metrekare", "details.Alan Ölçüsü", "details.alan olcusu"},
			Extract:   numberExtract,
			FormNames: []string{"acik_metrekare"},
		},
		{
			Name:      "kapali_metrekare",
			Required:  true,
			Source:    "details.net m²",
			SourceAlt: []string{"details.net m2", "details.Kapalı Alan", "details.m²", "details.Metrekare", "details.Alan Ölçüsü"},
			Extract:   numberExtract,
			Default:   "-",
			FormNames: []string{"kapali_metrekare"},
		},
		{
			Name:      "yatak_sayisi",
			Required:  true,
			Source:    "details.Yatak Sayısı",
			SourceAlt: []string{"details.yatak sayisi", "details.yatak sayısı", "details.Oda Sayısı", "details.oda sayısı"},
			Default:   "Belirtilmemiş",
			FormNames: []string{"yatak_sayisi", "yatak"},
		},
		{
			Name:      "oda_sayisi",
			Required:  true,
			Source:    "details.Oda Sayısı",
			SourceAlt: []string{"details.oda sayısı", "details.oda sayisi", "details.oda", "details.Oda"},
			Default:   "Belirtilmemiş",
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
			Name:      "banyo_sayisi",
			Required:  true,
			Source:    "details.Banyo Sayısı",
			SourceAlt: []string{"details.banyo sayısı", "details.banyo sayisi", "details.banyo", "details.Banyo"},
			Default:   "1",
			FormNames: []string{"banyo_sayisi", "banyo", "bathrooms"},
		},
		{
			Name:      "asansor",
			Required:  true,
			Source:    "derived.asansor",
			Default:   "Hayır",
			FormNames: []string{"Asansör", "asansor", "asansör", "elevator"},
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
			Name:      "zemin_etudu",
			Default:   "Belirtilmemiş",
			FormNames: []string{"zemin_etudu"},
		},
		{
			Name:      "havuz",
			Required:  true,
			Source:    "derived.havuz",
			Default:   "Hayır",
			FormNames: []string{"Havuz", "havuz", "pool"},
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
	}...)
	return &Profile{
		Type:          TypeHotel,
		Label:         "Turistik Tesis",
		CategoryCodes: []int{parser.CatTouristFacility},
		Fields:        fields,
	}
}

func commercialProfile() *Profile {
	fields := overrideFields(residentialFields(),
		FieldDef{
			Name:      "oda_sayisi",
			Required:  true,
			Source:    "details.Oda Sayısı",
			SourceAlt: []string{"details.oda sayısı", "details.oda sayisi", "details.oda", "details.Bölüm Sayısı"},
			Default:   "Belirtilmemiş",
			FormNames: []string{"Oda_sayisi", "oda_sayisi", "oda", "bolum_sayisi"},
		},
	)
	fields = overrideFields(fields, rentalFields()...)
	return &Profile{
		Type:          TypeCommercial,
		Label:         "İşyeri",
		CategoryCodes: []int{parser.CatCommercial},
		Fields:        fields,
		SkippedFields: []string{
			"havuz", "krediye_uygun", "tapu_turu", "kdv_trafo", "takas",
			"arsa_metrekaresi",
		},
	}
}

// AllProfiles returns a fresh copy of every registered profile, in a
// stable order. Used by diagnostics and tests.
func AllProfiles() []*Profile {
	return []*Profile{
		residentialProfile(), villaProfile(), landProfile(),
		hotelProfile(), commercialProfile(),
	}
}

// ResolveProfile picks the first profile covering a category code.
// Unknown codes fall back to the residential profile. Rental listings
// of every type except commercial get the rental fields injected,
// overriding any same-named field; the commercial profile already
// carries them.
func ResolveProfile(categoryCode int, saleType string) *Profile {
	p := residentialProfile()
scan:
	for _, cand := range AllProfiles() {
		for _, code := range cand.CategoryCodes {
			if code == categoryCode {
				p = cand
				break scan
			}
		}
	}
	if saleType == models.SaleTypeRental && p.Type != TypeCommercial {
		p.Fields = overrideFields(p.Fields, rentalFields()...)
	}
	return p
}

// ProfileSummary describes one profile for diagnostics: which source
// categories it covers and which destination fields it requires.
type ProfileSummary struct {
	Type          string   `json:"type"`
	Label         string   `json:"label"`
	CategoryCodes []int    `json:"categoryCodes"`
	Required      []string `json:"required"`
	Skipped       []string `json:"skipped,omitempty"`
}

func Summaries() []ProfileSummary {
	all := AllProfiles()
	out := make([]ProfileSummary, 0, len(all))
	for _, p := range all {
		s := ProfileSummary{
			Type:          p.Type,
			Label:         p.Label,
			CategoryCodes: p.CategoryCodes,
			Skipped:       p.SkippedFields,
		}
		for _, f := range p.Fields {
			if f.Required {
				s.Required = append(s.Required, f.Name)
			}
		}
		out = append(out, s)
	}
	return out
}
