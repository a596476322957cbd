package ingest

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basincode/cypress/internal/admin"
	"github.com/basincode/cypress/internal/domain"
	"github.com/basincode/cypress/internal/kvstore"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestKV(t *testing.T) *kvstore.Client {
	t.Helper()
	srv := miniredis.RunT(t)
	kv, err := kvstore.New(context.Background(), srv.Addr(), "", 0, "cypress-test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })
	return kv
}

func box(minLon, minLat, maxLon, maxLat float64) [][]domain.GeoPoint {
	return [][]domain.GeoPoint{{
		{Lon: minLon, Lat: minLat},
		{Lon: maxLon, Lat: minLat},
		{Lon: maxLon, Lat: maxLat},
		{Lon: minLon, Lat: maxLat},
		{Lon: minLon, Lat: minLat},
	}}
}

func switzerland() domain.AdminBoundary {
	return domain.AdminBoundary{
		Area: domain.AdminArea{
			OsmID:          51701,
			Level:          domain.AdminLevelCountry,
			IsoCountryCode: "CH",
			Abbr:           "CH",
			Name:           map[string]string{"default": "Switzerland"},
		},
		Geometry: box(5, 45, 11, 48),
	}
}

// TestConsumeForwardsBatchesAndUpsertsKV exercises the processing stage
// (spec §4.11 step 8) without a text index collaborator: consume never
// touches d.text, only the bulk indexer goroutine in Run does, so it is
// testable standalone against a real (miniredis-backed) KV client.
func TestConsumeForwardsBatchesAndUpsertsKV(t *testing.T) {
	kv := newTestKV(t)
	boundaries := []domain.AdminBoundary{switzerland()}
	pip := admin.NewService(admin.BuildSpatialIndex(boundaries))

	d := &Driver{pip: pip, kv: kv, logger: discardLogger(), batchSize: 2}

	in := make(chan domain.Place, 4)
	out := make(chan domain.Place, 4)

	p1 := domain.NewPlace(domain.OsmTypeNode, 1, domain.LayerVenue, domain.GeoPoint{Lat: 47.37, Lon: 8.54}, "ch.pbf")
	p1.AddName("default", "Opernhaus")
	p1.Parent = pip.Lookup(p1.CenterPoint.Lon, p1.CenterPoint.Lat, nil)

	p2 := domain.NewPlace(domain.OsmTypeWay, 2, domain.LayerVenue, domain.GeoPoint{Lat: 47.0, Lon: 8.0}, "ch.pbf")
	p2.AddName("default", "Hall")
	p2.Parent = pip.Lookup(p2.CenterPoint.Lon, p2.CenterPoint.Lat, nil)

	in <- p1
	in <- p2
	close(in)

	d.consume(context.Background(), in, out)

	var forwarded []domain.Place
	for p := range out {
		forwarded = append(forwarded, p)
	}
	require.Len(t, forwarded, 2)

	data, ok, err := kv.GetPlace(context.Background(), "node/1")
	require.NoError(t, err)
	require.True(t, ok)

	var stored domain.NormalizedPlace
	require.NoError(t, json.Unmarshal([]byte(data), &stored))
	assert.Equal(t, "node/1", stored.SourceID)
	assert.Equal(t, "relation/51701", stored.ParentIDs.Get(domain.AdminLevelCountry))

	areas, err := kv.GetAdminAreas(context.Background(), []string{"relation/51701"})
	require.NoError(t, err)
	require.Contains(t, areas, "relation/51701")
}

func TestEmitAdminPlaceSetsHierarchyAndImportance(t *testing.T) {
	boundaries := []domain.AdminBoundary{switzerland()}
	pip := admin.NewService(admin.BuildSpatialIndex(boundaries))
	d := &Driver{pip: pip}

	out := make(chan domain.Place, 1)
	level := domain.AdminLevelCountry
	d.emitAdminPlace(boundaries[0], "ch.pbf", level, out)
	close(out)

	place := <-out
	assert.Equal(t, domain.LayerCountry, place.Layer)
	assert.Equal(t, "Switzerland", place.Name["default"])
	require.NotNil(t, place.Importance)
	assert.InDelta(t, 0.4, *place.Importance, 1e-9) // default_score("place"="country")
	// limit_level excludes the boundary's own level (spec §4.4 step 2):
	// a country boundary never parents itself.
	assert.Nil(t, place.Parent.Get(domain.AdminLevelCountry))
}

func TestAdminCenterPrefersBbox(t *testing.T) {
	bbox := domain.NewGeoBbox(0, 0, 2, 2)
	b := domain.AdminBoundary{Area: domain.AdminArea{Bbox: &bbox}}
	center := adminCenter(b)
	assert.Equal(t, 1.0, center.Lon)
	assert.Equal(t, 1.0, center.Lat)
}

func TestAdminCenterFallsBackToFirstGeometryPoint(t *testing.T) {
	b := domain.AdminBoundary{Geometry: box(3, 4, 5, 6)}
	center := adminCenter(b)
	assert.Equal(t, 3.0, center.Lon)
	assert.Equal(t, 4.0, center.Lat)
}

func TestResolveAdminImportanceOrdersByLevel(t *testing.T) {
	country := resolveAdminImportance(domain.AdminLevelCountry)
	neighbourhood := resolveAdminImportance(domain.AdminLevelNeighbourhood)
	require.NotNil(t, country)
	require.NotNil(t, neighbourhood)
	assert.Greater(t, *country, *neighbourhood)
}
