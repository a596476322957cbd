package admin

import (
	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"

	"github.com/basincode/cypress/internal/domain"
	"github.com/basincode/cypress/internal/geometry"
)

// minExtent keeps rtreego.NewRect happy for point-like or degenerate
// boundaries whose bbox has zero width/height on one axis.
const minExtent = 1e-9

// indexedBoundary adapts a domain.AdminBoundary to rtreego.Spatial by
// caching its bounding rectangle (spec §4.3).
type indexedBoundary struct {
	boundary domain.AdminBoundary
	polygon  orb.MultiPolygon
	rect     rtreego.Rect
}

func (b *indexedBoundary) Bounds() rtreego.Rect { return b.rect }

// SpatialIndex is an R-tree over administrative boundary envelopes,
// filled by one-at-a-time inserts (it is not bulk-loaded), with exact containment refinement by polygon.contains
// (spec §4.3) and a secondary level -> boundaries bucket for by-level
// iteration and diagnostics.
type SpatialIndex struct {
	tree    *rtreego.Rtree
	byLevel map[domain.AdminLevel][]*indexedBoundary
	size    int
}

// BuildSpatialIndex inserts every boundary's bounding envelope into an
// R-tree one boundary at a time; the tree is not bulk-loaded.
func BuildSpatialIndex(boundaries []domain.AdminBoundary) *SpatialIndex {
	idx := &SpatialIndex{
		tree:    rtreego.NewTree(2, 25, 50),
		byLevel: map[domain.AdminLevel][]*indexedBoundary{},
	}

	for _, b := range boundaries {
		mp := toMultiPolygon(b.Geometry)
		minLon, minLat, maxLon, maxLat, ok := geometry.MultiPolygonBound(mp)
		if !ok {
			continue
		}

		lengths := []float64{extent(maxLon - minLon), extent(maxLat - minLat)}
		rect, err := rtreego.NewRect(rtreego.Point{minLon, minLat}, lengths)
		if err != nil {
			continue
		}

		ib := &indexedBoundary{boundary: b, polygon: mp, rect: rect}
		idx.tree.Insert(ib)
		idx.byLevel[b.Area.Level] = append(idx.byLevel[b.Area.Level], ib)
		idx.size++
	}

	return idx
}

func extent(v float64) float64 {
	if v < minExtent {
		return minExtent
	}
	return v
}

// toMultiPolygon converts the plain GeoPoint rings an AdminBoundary
// stores back into orb geometry for exact-containment and area math.
func toMultiPolygon(rings [][]domain.GeoPoint) orb.MultiPolygon {
	mp := make(orb.MultiPolygon, 0, len(rings))
	for _, ring := range rings {
		r := make(orb.Ring, len(ring))
		for i, p := range ring {
			r[i] = orb.Point{p.Lon, p.Lat}
		}
		mp = append(mp, orb.Polygon{r})
	}
	return mp
}

// Len reports how many boundaries are indexed.
func (idx *SpatialIndex) Len() int { return idx.size }

// BoundariesAtLevel returns every indexed boundary at a level, for
// diagnostics/by-level iteration.
func (idx *SpatialIndex) BoundariesAtLevel(level domain.AdminLevel) []domain.AdminBoundary {
	ibs := idx.byLevel[level]
	out := make([]domain.AdminBoundary, len(ibs))
	for i, ib := range ibs {
		out[i] = ib.boundary
	}
	return out
}

// candidate bundles a matched boundary with its parsed polygon and
// unsigned area, so callers (PIP enclave disambiguation) don't
// re-convert or re-sum repeatedly.
type candidate struct {
	boundary domain.AdminBoundary
	polygon  orb.MultiPolygon
	area     float64
}

// Lookup returns every boundary whose geometry contains (lon, lat),
// found via envelope intersection then refined by exact polygon
// containment (spec §4.3).
func (idx *SpatialIndex) Lookup(lon, lat float64) []candidate {
	pt := rtreego.Point{lon, lat}
	queryRect, err := rtreego.NewRect(pt, []float64{minExtent, minExtent})
	if err != nil {
		return nil
	}

	point := orb.Point{lon, lat}
	var out []candidate
	for _, obj := range idx.tree.SearchIntersect(queryRect) {
		ib := obj.(*indexedBoundary)
		if !geometry.MultiPolygonContains(ib.polygon, point) {
			continue
		}
		out = append(out, candidate{
			boundary: ib.boundary,
			polygon:  ib.polygon,
			area:     geometry.PolygonArea(ib.polygon),
		})
	}
	return out
}

// LookupAtLevel returns one boundary at level containing (lon, lat), or
// ok=false if none match (implementation-defined pick among ties, spec
// §4.3).
func (idx *SpatialIndex) LookupAtLevel(lon, lat float64, level domain.AdminLevel) (domain.AdminBoundary, bool) {
	for _, c := range idx.Lookup(lon, lat) {
		if c.boundary.Area.Level == level {
			return c.boundary, true
		}
	}
	return domain.AdminBoundary{}, false
}
