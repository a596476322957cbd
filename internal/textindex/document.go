package textindex

import (
	"regexp"

	"github.com/basincode/cypress/internal/domain"
)

// langFieldRe matches the language-code filter from spec §4.11: 2-10
// chars, alphabetic with '-' allowed. Names stored under any other key
// (apart from "default") are left out of name_all.
var langFieldRe = regexp.MustCompile(`^[A-Za-z-]{2,10}$`)

// ToDocument flattens a Place into the wire shape the places collection
// indexes. The document's Typesense "id" is the place's SourceID.
func ToDocument(p domain.Place) map[string]interface{} {
	doc := map[string]interface{}{
		"id":               p.SourceID,
		"source_id":        p.SourceID,
		"layer":            string(p.Layer),
		"name_all":         nameAll(p),
		"phrase":           p.Phrase,
		"center_point":     []float64{p.CenterPoint.Lat, p.CenterPoint.Lon},
		"source_file":      p.SourceFile,
		"import_timestamp": p.ImportTimestamp,
	}

	if p.WikidataID != "" {
		doc["wikidata_id"] = p.WikidataID
	}
	if p.Importance != nil {
		doc["importance"] = *p.Importance
	}
	if len(p.Categories) > 0 {
		doc["categories"] = p.Categories
	}
	if p.Address != nil {
		if p.Address.Street != "" {
			doc["street"] = p.Address.Street
		}
		if p.Address.City != "" {
			doc["city"] = p.Address.City
		}
		if p.Address.Postcode != "" {
			doc["postcode"] = p.Address.Postcode
		}
	}

	for _, level := range p.Parent.Levels() {
		entry := p.Parent.Get(level)
		if entry == nil || entry.Name == "" {
			continue
		}
		if field, ok := parentNameField(level); ok {
			doc[field] = entry.Name
		}
	}

	return doc
}

func nameAll(p domain.Place) []string {
	seen := map[string]bool{}
	var out []string
	add := func(v string) {
		if v == "" || seen[v] {
			return
		}
		seen[v] = true
		out = append(out, v)
	}

	add(p.Phrase)
	for lang, name := range p.Name {
		if lang != "default" && !langFieldRe.MatchString(lang) {
			continue
		}
		add(name)
	}
	return out
}

func parentNameField(level domain.AdminLevel) (string, bool) {
	switch level {
	case domain.AdminLevelCountry:
		return "parent_country_name", true
	case domain.AdminLevelMacroRegion:
		return "parent_macro_region_name", true
	case domain.AdminLevelRegion:
		return "parent_region_name", true
	case domain.AdminLevelMacroCounty:
		return "parent_macro_county_name", true
	case domain.AdminLevelCounty:
		return "parent_county_name", true
	case domain.AdminLevelLocalAdmin:
		return "parent_local_admin_name", true
	case domain.AdminLevelLocality:
		return "parent_locality_name", true
	case domain.AdminLevelBorough:
		return "parent_borough_name", true
	case domain.AdminLevelNeighbourhood:
		return "parent_neighbourhood_name", true
	default:
		return "", false
	}
}
