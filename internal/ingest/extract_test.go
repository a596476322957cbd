package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basincode/cypress/internal/domain"
	"github.com/basincode/cypress/internal/geometry"
	"github.com/basincode/cypress/internal/importance"
	"github.com/basincode/cypress/internal/pbf"
	"github.com/basincode/cypress/internal/synonym"
)

func TestDetermineLayerPOIWinsOverPlaceTag(t *testing.T) {
	layer, ok := DetermineLayer(map[string]string{"place": "village", "amenity": "townhall"})
	require.True(t, ok)
	assert.Equal(t, domain.LayerVenue, layer)
}

func TestDetermineLayerPlaceCountry(t *testing.T) {
	layer, ok := DetermineLayer(map[string]string{"place": "country"})
	require.True(t, ok)
	assert.Equal(t, domain.LayerCountry, layer)
}

func TestDetermineLayerAddress(t *testing.T) {
	layer, ok := DetermineLayer(map[string]string{"addr:housenumber": "1", "addr:street": "Main St"})
	require.True(t, ok)
	assert.Equal(t, domain.LayerAddress, layer)
}

func TestDetermineLayerUnrecognizedReturnsFalse(t *testing.T) {
	_, ok := DetermineLayer(map[string]string{"natural": "water"})
	assert.False(t, ok)
}

func TestExtractNodeSingleNodePOI(t *testing.T) {
	e := NewExtractor(nil, nil, nil)
	obj := pbf.Object{
		Kind: pbf.KindNode,
		ID:   1,
		Lat:  47.37,
		Lon:  8.54,
		Tags: map[string]string{"name": "Opernhaus", "amenity": "theatre", "wikidata": "Q684092"},
	}

	place, ok := e.ExtractPlace(obj, "switzerland-latest.osm.pbf")
	require.True(t, ok)
	assert.Equal(t, "node/1", place.SourceID)
	assert.Equal(t, domain.LayerVenue, place.Layer)
	assert.Equal(t, "Opernhaus", place.Name["default"])
	assert.Contains(t, place.Categories, "amenity:theatre")
	require.NotNil(t, place.Importance)
	assert.Equal(t, 0.01, *place.Importance)
}

func TestExtractNodeImportanceTableOverridesDefault(t *testing.T) {
	table := importance.Table{"Q684092": 0.87}
	e := NewExtractor(nil, nil, table)
	obj := pbf.Object{
		Kind: pbf.KindNode,
		ID:   1,
		Tags: map[string]string{"name": "Opernhaus", "amenity": "theatre", "wikidata": "Q684092"},
	}

	place, ok := e.ExtractPlace(obj, "x")
	require.True(t, ok)
	require.NotNil(t, place.Importance)
	assert.Equal(t, 0.87, *place.Importance)
}

func TestExtractNodeWithoutNameIsSkipped(t *testing.T) {
	e := NewExtractor(nil, nil, nil)
	_, ok := e.ExtractPlace(pbf.Object{Kind: pbf.KindNode, Tags: map[string]string{"amenity": "cafe"}}, "x")
	assert.False(t, ok)
}

func TestExtractWithEmptySynonymTableKeepsDefaultName(t *testing.T) {
	n := synonym.New()
	n.LoadDir(t.TempDir()) // empty directory: no synonym entries are loaded
	e := NewExtractor(nil, n, nil)
	obj := pbf.Object{Kind: pbf.KindNode, Tags: map[string]string{"name": "Saint Gallen", "shop": "bakery"}}

	place, ok := e.ExtractPlace(obj, "x")
	require.True(t, ok)
	assert.Equal(t, "Saint Gallen", place.Name["default"])
}

func TestExtractWayNamedRoadIsExtractedAsStreetFallback(t *testing.T) {
	// The driver only reaches the extractor for a named road once its own
	// way merger has already declined to claim it (merging disabled, or
	// an excluded highway value) — at that point extractWay must still
	// index it, per spec §4.11 step 6's "else, attempt extract_place".
	resolver, cleanup, err := geometry.NewResolverForTesting(
		map[int64][2]float64{1: {0, 0}, 2: {0, 1}, 3: {1, 1}},
		map[int64][]int64{10: {1, 2, 3, 1}},
		nil,
	)
	require.NoError(t, err)
	defer cleanup()

	e := NewExtractor(resolver, nil, nil)
	place, ok := e.ExtractPlace(pbf.Object{Kind: pbf.KindWay, ID: 10, Tags: map[string]string{"name": "Main St", "highway": "residential"}}, "x")
	require.True(t, ok)
	assert.Equal(t, domain.LayerStreet, place.Layer)
	assert.Equal(t, "Main St", place.Name["default"])
}

func TestExtractWayNamedRoadWithUnresolvableGeometryIsSkipped(t *testing.T) {
	resolver, cleanup, err := geometry.NewResolverForTesting(
		map[int64][2]float64{1: {0, 0}, 2: {0, 1}},
		map[int64][]int64{10: {1, 2}}, // unclosed ring
		nil,
	)
	require.NoError(t, err)
	defer cleanup()

	e := NewExtractor(resolver, nil, nil)
	_, ok := e.ExtractPlace(pbf.Object{Kind: pbf.KindWay, ID: 10, Tags: map[string]string{"name": "Main St", "highway": "residential"}}, "x")
	assert.False(t, ok)
}
