package ingest

import (
	"strings"

	"github.com/paulmach/orb"

	"github.com/basincode/cypress/internal/domain"
	"github.com/basincode/cypress/internal/geometry"
	"github.com/basincode/cypress/internal/importance"
	"github.com/basincode/cypress/internal/pbf"
	"github.com/basincode/cypress/internal/synonym"
)

// categoryKeys are the tags extract_place turns into "k:v" category
// entries (spec §4.11 step 6; extends the original extractor's
// amenity/shop/tourism/leisure/cuisine/building set with historic and
// office per spec.md's explicit list).
var categoryKeys = []string{"amenity", "shop", "tourism", "leisure", "cuisine", "building", "historic", "office"}

// poiKeys determine Venue layer when no place=* tag wins out.
var poiKeys = []string{"amenity", "shop", "tourism", "leisure", "office"}

// DetermineLayer resolves a Place's Layer from its tags, with the POI
// tag winning over a coexisting place=* tag (Open Question 1: a
// place=village node also tagged amenity=townhall is still more useful
// indexed as a venue than as a generic settlement marker).
func DetermineLayer(tags map[string]string) (domain.Layer, bool) {
	for _, key := range poiKeys {
		if _, ok := tags[key]; ok {
			return domain.LayerVenue, true
		}
	}

	if placeType, ok := tags["place"]; ok {
		switch placeType {
		case "country":
			return domain.LayerCountry, true
		case "state":
			return domain.LayerRegion, true
		case "province", "region":
			return domain.LayerRegion, true
		case "county":
			return domain.LayerCounty, true
		case "city", "town", "village", "hamlet":
			return domain.LayerLocality, true
		case "suburb", "neighbourhood", "quarter":
			return domain.LayerNeighbourhood, true
		default:
			return domain.LayerVenue, true
		}
	}

	if tags["addr:housenumber"] != "" && tags["addr:street"] != "" {
		return domain.LayerAddress, true
	}

	switch tags["highway"] {
	case "residential", "primary", "secondary", "tertiary", "living_street", "unclassified":
		return domain.LayerStreet, true
	}

	return "", false
}

// Extractor turns raw PBF objects into enriched Places (spec §4.11
// step 6), applying synonym normalization to the default name and
// street/city address parts, and the importance scorer's tag-based
// default when no Wikidata importance override will later apply.
type Extractor struct {
	resolver   *geometry.Resolver
	synonyms   *synonym.Normalizer
	importance importance.Table
}

// NewExtractor builds an Extractor. synonyms and importanceTable may be
// nil (or empty), in which case normalization/importance lookup is a
// no-op / falls through to the tag-based default.
func NewExtractor(resolver *geometry.Resolver, synonyms *synonym.Normalizer, importanceTable importance.Table) *Extractor {
	return &Extractor{resolver: resolver, synonyms: synonyms, importance: importanceTable}
}

// ExtractPlace attempts to build a Place from a node or way object.
// Relations are not extracted here (admin boundaries are handled
// separately by internal/admin; non-administrative relations are out
// of scope).
func (e *Extractor) ExtractPlace(obj pbf.Object, sourceFile string) (domain.Place, bool) {
	switch obj.Kind {
	case pbf.KindNode:
		return e.extractNode(obj, sourceFile)
	case pbf.KindWay:
		return e.extractWay(obj, sourceFile)
	default:
		return domain.Place{}, false
	}
}

func (e *Extractor) extractNode(obj pbf.Object, sourceFile string) (domain.Place, bool) {
	if obj.Tags["name"] == "" {
		return domain.Place{}, false
	}
	layer, ok := DetermineLayer(obj.Tags)
	if !ok {
		return domain.Place{}, false
	}

	place := domain.NewPlace(domain.OsmTypeNode, obj.ID, layer, domain.GeoPoint{Lat: obj.Lat, Lon: obj.Lon}, sourceFile)
	e.applyTags(&place, obj.Tags)
	return place, true
}

func (e *Extractor) extractWay(obj pbf.Object, sourceFile string) (domain.Place, bool) {
	if obj.Tags["name"] == "" {
		return domain.Place{}, false
	}
	layer, ok := DetermineLayer(obj.Tags)
	if !ok {
		return domain.Place{}, false
	}
	// A named road way only reaches the extractor at all when the
	// caller's way merger didn't claim it first — either because
	// road-merging is disabled, or (for an excluded highway value like
	// motorway) waymerge.IsCandidate rejected it. Either way, extracting
	// it here as a single-way Street place is correct: the spec's
	// "else, attempt extract_place" fallback (§4.11 step 6). WayPolygon
	// only resolves a closed ring, so an open road way yields no place
	// here and is skipped.

	poly, ok := e.resolver.WayPolygon(obj.ID)
	if !ok {
		return domain.Place{}, false
	}
	mp := orb.MultiPolygon{poly}
	center := geometry.MultiPolygonCentroid(mp)
	minLon, minLat, maxLon, maxLat, hasBbox := geometry.MultiPolygonBound(mp)

	place := domain.NewPlace(domain.OsmTypeWay, obj.ID, layer, domain.GeoPoint{Lat: center[1], Lon: center[0]}, sourceFile)
	if hasBbox {
		bbox := domain.NewGeoBbox(minLon, minLat, maxLon, maxLat)
		place.Bbox = &bbox
	}
	e.applyTags(&place, obj.Tags)
	return place, true
}

func (e *Extractor) applyTags(place *domain.Place, tags map[string]string) {
	for key, value := range tags {
		switch {
		case key == "name":
			place.AddName("default", e.normalize(value))
		case strings.HasPrefix(key, "name:"):
			place.AddName(strings.TrimPrefix(key, "name:"), value)
		case key == "wikidata":
			place.WikidataID = value
		case key == "addr:housenumber":
			placeAddress(place).HouseNumber = value
		case key == "addr:street":
			placeAddress(place).Street = e.normalize(value)
		case key == "addr:postcode":
			placeAddress(place).Postcode = value
		case key == "addr:city":
			placeAddress(place).City = e.normalize(value)
		default:
			for _, ck := range categoryKeys {
				if key == ck {
					place.AddCategory(ck + ":" + value)
				}
			}
		}
	}

	place.Importance = e.resolveImportance(place.WikidataID, tags)
}

// resolveImportance applies spec §4.11 step 6's "wikidata override beats
// default": a hit in the loaded importance table (keyed by wikidata_id)
// wins over the tag-based default score.
func (e *Extractor) resolveImportance(wikidataID string, tags map[string]string) *float64 {
	if wikidataID != "" {
		if score, ok := e.importance[wikidataID]; ok {
			return &score
		}
	}
	score := importance.DefaultScore(tags)
	return &score
}

func (e *Extractor) normalize(s string) string {
	if e.synonyms == nil {
		return s
	}
	return e.synonyms.Normalize(s)
}

// placeAddress lazily allocates a Place's Address.
func placeAddress(p *domain.Place) *domain.Address {
	if p.Address == nil {
		p.Address = &domain.Address{}
	}
	return p.Address
}
