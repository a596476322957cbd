package admin

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/basincode/cypress/internal/domain"
)

func TestIsAdministrativeBoundary(t *testing.T) {
	assert.True(t, IsAdministrativeBoundary(map[string]string{"boundary": "administrative", "type": "boundary"}))
	assert.True(t, IsAdministrativeBoundary(map[string]string{"boundary": "administrative", "type": "multipolygon"}))
	assert.False(t, IsAdministrativeBoundary(map[string]string{"boundary": "administrative", "type": "site"}))
	assert.False(t, IsAdministrativeBoundary(map[string]string{"type": "boundary"}))
}

func TestBuildAreaRequiresISOForCountry(t *testing.T) {
	_, ok := buildArea(1, map[string]string{
		"admin_level": "2",
		"name":        "Switzerland",
	})
	assert.False(t, ok, "country without an ISO code should be dropped")

	area, ok := buildArea(1, map[string]string{
		"admin_level":      "2",
		"name":             "Switzerland",
		"ISO3166-1:alpha2": "CH",
	})
	assert.True(t, ok)
	assert.Equal(t, "CH", area.IsoCountryCode)
	assert.Equal(t, domain.AdminLevelCountry, area.Level)
}

func TestBuildAreaMultilingualNames(t *testing.T) {
	area, ok := buildArea(2, map[string]string{
		"admin_level": "4",
		"name":        "Zurich",
		"name:de":     "Zürich",
		"short_name":  "ZH",
		"wikidata":    "Q11943",
	})
	assert.True(t, ok)
	assert.Equal(t, "Zurich", area.Name["default"])
	assert.Equal(t, "Zürich", area.Name["de"])
	assert.Equal(t, "ZH", area.Abbr)
	assert.Equal(t, "Q11943", area.WikidataID)
}

func TestBuildAreaDropsUnknownAdminLevel(t *testing.T) {
	_, ok := buildArea(3, map[string]string{"admin_level": "1", "name": "x"})
	assert.False(t, ok)
}

func TestBuildAreaDropsNoName(t *testing.T) {
	_, ok := buildArea(4, map[string]string{"admin_level": "4"})
	assert.False(t, ok)
}
