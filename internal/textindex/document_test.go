package textindex

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/basincode/cypress/internal/domain"
)

func TestToDocumentFlattensAddressAndParents(t *testing.T) {
	importance := 0.42
	p := domain.NewPlace(domain.OsmTypeNode, 1, domain.LayerVenue,
		domain.GeoPoint{Lat: 47.4, Lon: 8.5}, "switzerland-latest.osm.pbf")
	p.AddName("default", "Cafe Central")
	p.AddName("de", "Café Central")
	p.Importance = &importance
	p.Address = &domain.Address{Street: "Bahnhofstrasse", City: "Zurich", Postcode: "8001"}
	p.Parent.Set(domain.AdminLevelCountry, domain.AdminEntry{Name: "Switzerland", ID: "relation/1"})
	p.Parent.Set(domain.AdminLevelRegion, domain.AdminEntry{Name: "Zurich", ID: "relation/2"})

	doc := ToDocument(p)

	assert.Equal(t, p.SourceID, doc["id"])
	assert.Equal(t, "venue", doc["layer"])
	assert.Equal(t, "Bahnhofstrasse", doc["street"])
	assert.Equal(t, "Zurich", doc["city"])
	assert.Equal(t, "8001", doc["postcode"])
	assert.Equal(t, "Switzerland", doc["parent_country_name"])
	assert.Equal(t, "Zurich", doc["parent_region_name"])
	assert.Equal(t, []float64{47.4, 8.5}, doc["center_point"])
	assert.Equal(t, 0.42, doc["importance"])

	names := doc["name_all"].([]string)
	assert.Contains(t, names, "Cafe Central")
	assert.Contains(t, names, "Café Central")
}

func TestNameAllDedupesIdenticalNames(t *testing.T) {
	p := domain.NewPlace(domain.OsmTypeNode, 1, domain.LayerVenue, domain.GeoPoint{}, "x")
	p.AddName("default", "Central")
	p.AddName("fr", "Central")

	names := nameAll(p)
	assert.Len(t, names, 1)
	assert.Equal(t, "Central", names[0])
}

func TestNameAllFiltersInvalidLanguageCodes(t *testing.T) {
	p := domain.NewPlace(domain.OsmTypeNode, 1, domain.LayerVenue, domain.GeoPoint{}, "x")
	p.AddName("default", "Main")
	p.Name["old:name:1"] = "Should Be Dropped"

	names := nameAll(p)
	assert.NotContains(t, names, "Should Be Dropped")
}

func TestParentNameFieldCoversAllLevels(t *testing.T) {
	for l := domain.AdminLevelCountry; l <= domain.AdminLevelNeighbourhood; l++ {
		_, ok := parentNameField(l)
		assert.True(t, ok, "level %d should map to a field", l)
	}
}
