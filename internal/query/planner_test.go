package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basincode/cypress/internal/domain"
)

func ptr(f float64) *float64 { return &f }

func TestDisplayNamePrefersRequestedLanguage(t *testing.T) {
	names := map[string]string{"default": "Zurich", "de": "Zürich", "fr": "Zurich"}
	assert.Equal(t, "Zürich", displayName(names, "de"))
}

func TestDisplayNameFallsBackToDefault(t *testing.T) {
	names := map[string]string{"default": "Zurich", "fr": "Zurich"}
	assert.Equal(t, "Zurich", displayName(names, "it"))
}

func TestDisplayNameFallsBackToAnyEntry(t *testing.T) {
	names := map[string]string{"de": "Zürich"}
	assert.Equal(t, "Zürich", displayName(names, "it"))
}

func TestDisplayNameEmptyWhenNoNames(t *testing.T) {
	assert.Equal(t, "", displayName(nil, "de"))
}

func TestResolveParentsOmitsSelfAndLowerRanks(t *testing.T) {
	p := domain.NormalizedPlace{Layer: domain.LayerRegion}
	p.ParentIDs.Set(domain.AdminLevelCountry, "relation/1")
	p.ParentIDs.Set(domain.AdminLevelRegion, "relation/2") // same rank as the place itself: must be omitted
	p.ParentIDs.Set(domain.AdminLevelCounty, "relation/3") // lower rank than the place: must be omitted

	entries := map[string]domain.AdminEntry{
		"relation/1": {ID: "relation/1", Names: map[string]string{"default": "Switzerland"}},
		"relation/2": {ID: "relation/2", Names: map[string]string{"default": "Zurich (region)"}},
		"relation/3": {ID: "relation/3", Names: map[string]string{"default": "Zurich (county)"}},
	}

	parents := resolveParents(p, entries, "")
	require.Len(t, parents, 1)
	assert.Equal(t, domain.AdminLevelCountry, parents[0].Level)
	assert.Equal(t, "Switzerland", parents[0].Name)
}

func TestResolveParentsDropsHierarchyMiss(t *testing.T) {
	p := domain.NormalizedPlace{Layer: domain.LayerVenue}
	p.ParentIDs.Set(domain.AdminLevelCountry, "relation/1")

	parents := resolveParents(p, map[string]domain.AdminEntry{}, "")
	assert.Empty(t, parents)
}

func TestRescoreWithoutFocusRanksHigherImportanceAbove(t *testing.T) {
	results := []Result{
		{Place: domain.NormalizedPlace{Importance: ptr(0.0)}},
		{Place: domain.NormalizedPlace{Importance: ptr(1.0)}},
	}
	rescore(results, nil)
	// hit order gives the first result text rank 2 and the second text
	// rank 1; importance 1.0 raises the second's multiplier to
	// 1+2·ln(2) ≈ 2.39 against the first's 1.0, so the higher-importance
	// second result must end up with a strictly higher score despite its
	// worse text rank.
	assert.Greater(t, results[1].Score, results[0].Score)
}

func TestRescoreWithFocusPrefersNearerPoint(t *testing.T) {
	results := []Result{
		{Place: domain.NormalizedPlace{CenterPoint: domain.GeoPoint{Lat: 40.75, Lon: -73.98}, Importance: ptr(0.1)}},
		{Place: domain.NormalizedPlace{CenterPoint: domain.GeoPoint{Lat: 51.5, Lon: -0.12}, Importance: ptr(0.1)}}, // London: far from focus
	}
	rescore(results, &FocusPoint{Lat: 40.75, Lon: -73.98, Weight: 3})
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestMaxAdminBatchMatchesKVCap(t *testing.T) {
	// spec §4.9: "hierarchy lookups <= 9 per place are always safe".
	assert.Equal(t, 9, maxAdminBatch)
}
