package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminLevelFromOSM(t *testing.T) {
	cases := []struct {
		in   int
		want AdminLevel
		ok   bool
	}{
		{2, AdminLevelCountry, true},
		{6, AdminLevelCounty, true},
		{10, AdminLevelNeighbourhood, true},
		{11, AdminLevelNeighbourhood, true},
		{1, 0, false},
		{12, 0, false},
	}
	for _, tc := range cases {
		got, ok := AdminLevelFromOSM(tc.in)
		assert.Equal(t, tc.ok, ok, "admin_level=%d", tc.in)
		if ok {
			assert.Equal(t, tc.want, got, "admin_level=%d", tc.in)
		}
	}
}

func TestLayerRankOrdering(t *testing.T) {
	assert.Greater(t, LayerRank(LayerCountry), LayerRank(LayerRegion))
	assert.Greater(t, LayerRank(LayerRegion), LayerRank(LayerCounty))
	assert.Greater(t, LayerRank(LayerNeighbourhood), LayerRank(LayerStreet))
	assert.Equal(t, LayerRank(LayerStreet), LayerRank(LayerAddress))
	assert.Equal(t, LayerRank(LayerStreet), LayerRank(LayerVenue))
}

func TestGeoBboxRoundTrip(t *testing.T) {
	b := NewGeoBbox(0, 0, 1, 1)
	data, err := json.Marshal(b)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"envelope","coordinates":[[0,1],[1,0]]}`, string(data))

	var out GeoBbox
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, b, out)
}

func TestGeoBboxNormalizesCorners(t *testing.T) {
	b := NewGeoBbox(5, 5, 0, 0)
	assert.Equal(t, 0.0, b.MinLon)
	assert.Equal(t, 5.0, b.MaxLon)
}

func TestPlaceSourceIDAndPhraseInvariant(t *testing.T) {
	p := NewPlace(OsmTypeNode, 1, LayerVenue, GeoPoint{Lat: 47.37, Lon: 8.54}, "switzerland.osm.pbf")
	assert.Equal(t, "node/1", p.SourceID)

	p.AddName("default", "Opernhaus")
	assert.Equal(t, "Opernhaus", p.Phrase)
	assert.Equal(t, p.Name["default"], p.Phrase)
}

func TestPlaceAddCategoryDeduplicates(t *testing.T) {
	p := NewPlace(OsmTypeWay, 10, LayerVenue, GeoPoint{}, "test.pbf")
	p.AddCategory("building:yes")
	p.AddCategory("building:yes")
	assert.Equal(t, []string{"building:yes"}, p.Categories)
}

func TestAdminEntryTextIndexOmitsNames(t *testing.T) {
	e := AdminEntry{Name: "Switzerland", ID: "relation/51701", Names: map[string]string{"default": "Switzerland", "de": "Schweiz"}}
	data, err := json.Marshal(e)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "names")
	assert.NotContains(t, string(data), "Schweiz")

	kv, err := e.MarshalKV()
	require.NoError(t, err)
	assert.Contains(t, string(kv), "Schweiz")
}

func TestToNormalizedPreservesAdminIDs(t *testing.T) {
	p := NewPlace(OsmTypeNode, 1, LayerVenue, GeoPoint{}, "test.pbf")
	p.Parent.Set(AdminLevelCountry, AdminEntry{Name: "Switzerland", ID: "relation/51701"})

	np := ToNormalized(p)
	assert.Equal(t, "relation/51701", np.ParentIDs.Get(AdminLevelCountry))
	assert.Equal(t, "", np.ParentIDs.Get(AdminLevelRegion))
}

func TestAdminHierarchyIDsJSONRoundTrip(t *testing.T) {
	var ids AdminHierarchyIDs
	ids.Set(AdminLevelCountry, "relation/51701")
	ids.Set(AdminLevelRegion, "relation/1234")

	data, err := json.Marshal(ids)
	require.NoError(t, err)
	assert.JSONEq(t, `{"country":"relation/51701","region":"relation/1234"}`, string(data))

	var out AdminHierarchyIDs
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "relation/51701", out.Get(AdminLevelCountry))
	assert.Equal(t, "relation/1234", out.Get(AdminLevelRegion))
	assert.Equal(t, "", out.Get(AdminLevelCounty))
}

func TestNormalizedPlaceJSONRoundTripPreservesParent(t *testing.T) {
	p := NewPlace(OsmTypeNode, 1, LayerVenue, GeoPoint{Lat: 47.37, Lon: 8.54}, "switzerland.osm.pbf")
	p.Parent.Set(AdminLevelCountry, AdminEntry{Name: "Switzerland", Abbr: "CH", ID: "relation/51701"})
	np := ToNormalized(p)

	data, err := json.Marshal(np)
	require.NoError(t, err)

	var out NormalizedPlace
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "relation/51701", out.ParentIDs.Get(AdminLevelCountry))
}
