package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTypesenseAPIKey = "ts-test-key"

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("TYPESENSE_API_KEY", testTypesenseAPIKey)
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8108", cfg.TypesenseURL)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 0, cfg.RedisDB)
	assert.Equal(t, "https://www.wikidata.org/w/api.php", cfg.WikidataEndpoint)
	assert.Equal(t, 10*time.Second, cfg.WikidataTimeout)
	assert.Equal(t, 24*time.Hour, cfg.WikidataCacheTTL)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 1000, cfg.BatchSize)
	assert.False(t, cfg.CreateIndex)
}

func TestLoad_CustomEnv(t *testing.T) {
	setRequired(t)
	t.Setenv("PBF_PATH", "/data/switzerland.osm.pbf")
	t.Setenv("REGION_TOML", "/data/regions.toml")
	t.Setenv("BATCH_SIZE", "250")
	t.Setenv("CREATE_INDEX", "true")
	t.Setenv("TYPESENSE_URL", "http://typesense:8108")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("WIKIDATA_TIMEOUT", "5s")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/data/switzerland.osm.pbf", cfg.PBFPath)
	assert.Equal(t, "/data/regions.toml", cfg.RegionTOML)
	assert.Equal(t, 250, cfg.BatchSize)
	assert.True(t, cfg.CreateIndex)
	assert.Equal(t, "http://typesense:8108", cfg.TypesenseURL)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, 5*time.Second, cfg.WikidataTimeout)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	setRequired(t)
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_NegativeShutdownTimeout(t *testing.T) {
	setRequired(t)
	t.Setenv("SHUTDOWN_TIMEOUT", "-1s")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidBatchSize(t *testing.T) {
	setRequired(t)
	t.Setenv("BATCH_SIZE", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BATCH_SIZE")
}

func TestLoad_InvalidRedisDB(t *testing.T) {
	setRequired(t)
	t.Setenv("REDIS_DB", "-1")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REDIS_DB")
}

func TestLoad_InvalidWikidataTimeout(t *testing.T) {
	setRequired(t)
	t.Setenv("WIKIDATA_TIMEOUT", "bad")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WIKIDATA_TIMEOUT")
}

func TestLoad_MissingTypesenseAPIKey(t *testing.T) {
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TYPESENSE_API_KEY")
}
