// Package admin extracts administrative boundaries from OSM relations,
// indexes them for point-in-polygon lookup, and assembles the admin
// hierarchy for a coordinate (spec §4.2-§4.4).
package admin

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/paulmach/orb"

	"github.com/basincode/cypress/internal/domain"
	"github.com/basincode/cypress/internal/geometry"
	"github.com/basincode/cypress/internal/observability"
	"github.com/basincode/cypress/internal/pbf"
)

var isoCountryKeys = []string{"ISO3166-1", "ISO3166-1:alpha2", "ISO3166-1:alpha3"}

// IsAdministrativeBoundary is the geometry.Predicate used to build the
// Resolver this extractor runs against: relations tagged
// boundary=administrative of type boundary or multipolygon (spec §4.2).
func IsAdministrativeBoundary(tags map[string]string) bool {
	if tags["boundary"] != "administrative" {
		return false
	}
	t := tags["type"]
	return t == "boundary" || t == "multipolygon"
}

// ExtractBoundaries performs the relations pass described in spec §4.2
// over r (which must support a fresh Rewind), resolving each qualifying
// relation's geometry from resolver. The result is sorted by level
// ascending (Country first). metrics is optional; pass nil to skip
// instrumentation.
func ExtractBoundaries(r *pbf.Reader, resolver *geometry.Resolver, metrics *observability.Metrics) ([]domain.AdminBoundary, error) {
	if err := r.Rewind(); err != nil {
		return nil, fmt.Errorf("admin: rewind for relation scan: %w", err)
	}

	var boundaries []domain.AdminBoundary
	for {
		obj, ok, err := r.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		if obj.Kind != pbf.KindRelation {
			continue
		}
		if metrics != nil {
			metrics.RelationsProcessed.Inc()
		}
		if !IsAdministrativeBoundary(obj.Tags) {
			continue
		}

		area, ok := buildArea(obj.ID, obj.Tags)
		if !ok {
			continue
		}

		mp, ok := resolver.RelationMultipolygon(obj.ID)
		if !ok || len(mp) == 0 {
			continue
		}

		minLon, minLat, maxLon, maxLat, ok := geometry.MultiPolygonBound(mp)
		if ok {
			bbox := domain.NewGeoBbox(minLon, minLat, maxLon, maxLat)
			area.Bbox = &bbox
		}

		boundaries = append(boundaries, domain.AdminBoundary{
			Area:     area,
			Geometry: toGeoPointRings(mp),
		})
	}

	sort.SliceStable(boundaries, func(i, j int) bool {
		return boundaries[i].Area.Level < boundaries[j].Area.Level
	})

	return boundaries, nil
}

// buildArea parses an AdminArea out of a relation's tags. ok is false
// when the relation should be dropped: no recognizable admin_level, a
// Country-level relation missing an ISO code, or no names at all.
func buildArea(osmID int64, tags map[string]string) (domain.AdminArea, bool) {
	levelNum, err := strconv.Atoi(tags["admin_level"])
	if err != nil {
		return domain.AdminArea{}, false
	}
	level, ok := domain.AdminLevelFromOSM(levelNum)
	if !ok {
		return domain.AdminArea{}, false
	}

	area := domain.AdminArea{OsmID: osmID, Level: level, Name: map[string]string{}}

	for key, value := range tags {
		switch {
		case key == "name":
			area.Name["default"] = value
		case strings.HasPrefix(key, "name:"):
			area.Name[strings.TrimPrefix(key, "name:")] = value
		case key == "short_name" || key == "ISO3166-1:alpha2" || key == "ISO3166-1:alpha3":
			area.Abbr = value
		case key == "wikidata":
			area.WikidataID = value
		}
	}

	if level == domain.AdminLevelCountry {
		iso, ok := firstISOCode(tags)
		if !ok {
			return domain.AdminArea{}, false
		}
		area.IsoCountryCode = iso
	}

	if len(area.Name) == 0 {
		return domain.AdminArea{}, false
	}

	return area, true
}

func firstISOCode(tags map[string]string) (string, bool) {
	for _, key := range isoCountryKeys {
		if v, ok := tags[key]; ok && v != "" {
			return v, true
		}
	}
	return "", false
}

// toGeoPointRings flattens an orb.MultiPolygon into the plain
// [][]GeoPoint outer-ring list domain.AdminBoundary stores (one entry
// per outer ring; holes are not modeled, per spec §4.1).
func toGeoPointRings(mp orb.MultiPolygon) [][]domain.GeoPoint {
	rings := make([][]domain.GeoPoint, 0, len(mp))
	for _, poly := range mp {
		if len(poly) == 0 {
			continue
		}
		ring := make([]domain.GeoPoint, len(poly[0]))
		for i, p := range poly[0] {
			ring[i] = domain.GeoPoint{Lon: p[0], Lat: p[1]}
		}
		rings = append(rings, ring)
	}
	return rings
}
