package ingestconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromFileParsesGlobalAndRegions(t *testing.T) {
	content := `
[global]
es_url = "http://typesense:8108"
tmp_dir = "/tmp/cypress"

[[regions]]
name = "switzerland"
url = "https://download.geofabrik.de/europe/switzerland-latest.osm.pbf"

[[regions]]
name = "andorra"
url = "https://download.geofabrik.de/europe/andorra-latest.osm.pbf"
`
	path := filepath.Join(t.TempDir(), "regions.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "http://typesense:8108", cfg.Global.ESURL)
	assert.Equal(t, "/tmp/cypress", cfg.Global.TmpDir)
	require.Len(t, cfg.Regions, 2)
	assert.Equal(t, "switzerland", cfg.Regions[0].Name)
	assert.Equal(t, "andorra", cfg.Regions[1].Name)
}

func TestLoadFromFileMissingFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestLoadFromFileMalformedTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("not: valid: toml: ["), 0o644))

	_, err := LoadFromFile(path)
	assert.Error(t, err)
}
