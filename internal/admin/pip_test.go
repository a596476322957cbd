package admin

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/basincode/cypress/internal/domain"
)

func box(minLon, minLat, maxLon, maxLat float64) [][]domain.GeoPoint {
	return [][]domain.GeoPoint{{
		{Lon: minLon, Lat: minLat},
		{Lon: maxLon, Lat: minLat},
		{Lon: maxLon, Lat: maxLat},
		{Lon: minLon, Lat: maxLat},
		{Lon: minLon, Lat: minLat},
	}}
}

func TestPIPCountryEnforcement(t *testing.T) {
	// US and CA both cover (0,0)-(10,10). Ontario (CA) covers (5,5)-(6,6),
	// New York (US) covers (1,1)-(2,2). Grounded directly on the original
	// Rust test of the same name.
	us := domain.AdminBoundary{
		Area:     domain.AdminArea{OsmID: 1, Level: domain.AdminLevelCountry, Abbr: "US", Name: map[string]string{"default": "United States"}},
		Geometry: box(0, 0, 10, 10),
	}
	ca := domain.AdminBoundary{
		Area:     domain.AdminArea{OsmID: 2, Level: domain.AdminLevelCountry, Abbr: "CA", Name: map[string]string{"default": "Canada"}},
		Geometry: box(0, 0, 10, 10),
	}
	ontario := domain.AdminBoundary{
		Area:     domain.AdminArea{OsmID: 3, Level: domain.AdminLevelRegion, IsoCountryCode: "CA", Name: map[string]string{"default": "Ontario"}},
		Geometry: box(5, 5, 6, 6),
	}
	newYork := domain.AdminBoundary{
		Area:     domain.AdminArea{OsmID: 4, Level: domain.AdminLevelRegion, IsoCountryCode: "US", Name: map[string]string{"default": "New York"}},
		Geometry: box(1, 1, 2, 2),
	}

	idx := BuildSpatialIndex([]domain.AdminBoundary{us, ca, ontario, newYork})
	svc := NewService(idx)

	h := svc.Lookup(5.5, 5.5, nil)
	assert.Equal(t, "relation/3", h.Get(domain.AdminLevelRegion).ID)
	assert.Equal(t, "CA", h.Country().Abbr)

	h = svc.Lookup(1.5, 1.5, nil)
	assert.Equal(t, "relation/4", h.Get(domain.AdminLevelRegion).ID)
	assert.Equal(t, "US", h.Country().Abbr)
}

func TestPIPEnclaveSmallestAreaWins(t *testing.T) {
	vaticanArea := domain.AdminArea{OsmID: 10, Level: domain.AdminLevelCountry, Abbr: "VA", Name: map[string]string{"default": "Vatican City"}}
	vatican := domain.AdminBoundary{Area: vaticanArea, Geometry: box(12.445, 41.900, 12.458, 41.908)}

	italyArea := domain.AdminArea{OsmID: 11, Level: domain.AdminLevelCountry, Abbr: "IT", Name: map[string]string{"default": "Italy"}}
	italy := domain.AdminBoundary{Area: italyArea, Geometry: box(6, 36, 19, 47)}

	idx := BuildSpatialIndex([]domain.AdminBoundary{vatican, italy})
	svc := NewService(idx)

	h := svc.Lookup(12.45, 41.904, nil)
	assert.Equal(t, "VA", h.Country().Abbr)
}

func TestPIPEmptyIndexReturnsEmptyHierarchy(t *testing.T) {
	idx := BuildSpatialIndex(nil)
	svc := NewService(idx)
	h := svc.Lookup(8.5, 47.4, nil)
	assert.Nil(t, h.Country())
}

func TestPIPLimitLevelExcludesSelfParenting(t *testing.T) {
	country := domain.AdminBoundary{
		Area:     domain.AdminArea{OsmID: 1, Level: domain.AdminLevelCountry, Abbr: "CH", Name: map[string]string{"default": "Switzerland"}},
		Geometry: box(0, 0, 10, 10),
	}
	idx := BuildSpatialIndex([]domain.AdminBoundary{country})
	svc := NewService(idx)

	limit := domain.AdminLevelCountry
	h := svc.Lookup(5, 5, &limit)
	assert.Nil(t, h.Country())
}
