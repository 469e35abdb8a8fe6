package profiles

import (
	"fmt"
	"strconv"
	"strings"

	"evler_migrator/models"
)

// Resolution carries the ordered resolved values for one listing plus
// any warnings raised along the way. Resolution never aborts: a field
// that stays empty is dropped, with exactly one warning if required.
type Resolution struct {
	Values   []models.ResolvedValue
	Warnings []string
}

// Resolve walks the profile's field definitions in declaration order
// and resolves each against the record. The chain per field is:
// primary source, alternates, regex extract, value remap, transform
// (always applied when declared, even to an empty value), default.
// Fields on the profile's skip list are suppressed entirely: no
// value, no warning.
func Resolve(rec *models.ListingRecord, p *Profile) Resolution {
	skipped := make(map[string]bool, len(p.SkippedFields))
	for _, name := range p.SkippedFields {
		skipped[name] = true
	}
	var res Resolution
	for _, def := range p.Fields {
		if skipped[def.Name] {
			continue
		}
		value := resolveField(rec, def)
		if value == "" {
			if def.Required {
				res.Warnings = append(res.Warnings, fmt.Sprintf("required field %q resolved empty", def.Name))
			}
			continue
		}
		res.Values = append(res.Values, models.ResolvedValue{
			Field:     def.Name,
			Value:     value,
			Required:  def.Required,
			FormNames: def.FormNames,
		})
	}
	return res
}

func resolveField(rec *models.ListingRecord, def FieldDef) string {
	value := lookup(rec, def.Source)
	if value == "" {
		for _, alt := range def.SourceAlt {
			if value = lookup(rec, alt); value != "" {
				break
			}
		}
	}
	if value != "" && def.Extract != nil {
		if m := def.Extract.FindStringSubmatch(value); m != nil && len(m) > 1 {
			value = m[1]
		}
	}
	if def.ValueMap != nil {
		if mapped, ok := def.ValueMap[value]; ok {
			value = mapped
		}
	}
	if def.Transform != nil {
		value = def.Transform(value)
	}
	if value == "" {
		value = def.Default
	}
	return strings.TrimSpace(value)
}

// lookup reads one dotted source path off the record. The details and
// derived namespaces address the detail table and inferred attributes;
// everything else is a scalar record field.
func lookup(rec *models.ListingRecord, path string) string {
	if path == "" {
		return ""
	}
	if label, ok := strings.CutPrefix(path, "details."); ok {
		if v, ok := rec.Details.Get(label); ok {
			return strings.TrimSpace(v)
		}
		if v, ok := rec.Details.GetFold(label); ok {
			return strings.TrimSpace(v)
		}
		return ""
	}
	if key, ok := strings.CutPrefix(path, "derived."); ok {
		return strings.TrimSpace(rec.Derived[key])
	}
	switch path {
	case "title":
		return strings.TrimSpace(rec.Title)
	case "price":
		return strings.TrimSpace(rec.Price)
	case "currency":
		return strings.TrimSpace(rec.Currency)
	case "cityId":
		if rec.CityID == 0 {
			return ""
		}
		return strconv.Itoa(rec.CityID)
	case "district":
		return strings.TrimSpace(rec.District)
	case "description":
		return strings.TrimSpace(rec.DescriptionText)
	case "descriptionHtml":
		v := strings.TrimSpace(rec.DescriptionHTML)
		if v == "" {
			v = strings.TrimSpace(rec.DescriptionText)
		}
		return v
	}
	return ""
}
