package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	// Ingest driver
	PBFPath        string
	NodeScratchDir string
	SynonymDir     string
	ImportanceFile string
	RegionTOML     string
	BatchSize      int
	CreateIndex    bool

	// Typesense (full-text/search sink)
	TypesenseURL    string
	TypesenseAPIKey string

	// Redis (KV sink)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Wikidata enrichment
	WikidataEndpoint string
	WikidataTimeout  time.Duration
	WikidataCacheTTL time.Duration

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applying
// defaults where unset.
func Load() (*Config, error) {
	shutdownStr := envOrDefault("SHUTDOWN_TIMEOUT", "10s")
	shutdownTimeout, err := time.ParseDuration(shutdownStr)
	if err != nil || shutdownTimeout <= 0 {
		return nil, errors.New("invalid SHUTDOWN_TIMEOUT")
	}

	wikidataTimeoutStr := envOrDefault("WIKIDATA_TIMEOUT", "10s")
	wikidataTimeout, err := time.ParseDuration(wikidataTimeoutStr)
	if err != nil || wikidataTimeout <= 0 {
		return nil, errors.New("invalid WIKIDATA_TIMEOUT")
	}

	wikidataCacheTTLStr := envOrDefault("WIKIDATA_CACHE_TTL", "24h")
	wikidataCacheTTL, err := time.ParseDuration(wikidataCacheTTLStr)
	if err != nil || wikidataCacheTTL <= 0 {
		return nil, errors.New("invalid WIKIDATA_CACHE_TTL")
	}

	batchSize := 1000
	if s := os.Getenv("BATCH_SIZE"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return nil, errors.New("invalid BATCH_SIZE")
		}
		batchSize = n
	}

	redisDB := 0
	if s := os.Getenv("REDIS_DB"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return nil, errors.New("invalid REDIS_DB")
		}
		redisDB = n
	}

	cfg := &Config{
		PBFPath:        os.Getenv("PBF_PATH"),
		NodeScratchDir: envOrDefault("NODE_SCRATCH_DIR", os.TempDir()),
		SynonymDir:     os.Getenv("SYNONYM_DIR"),
		ImportanceFile: os.Getenv("IMPORTANCE_FILE"),
		RegionTOML:     os.Getenv("REGION_TOML"),
		BatchSize:      batchSize,
		CreateIndex:    os.Getenv("CREATE_INDEX") == "true",

		TypesenseURL:    envOrDefault("TYPESENSE_URL", "http://localhost:8108"),
		TypesenseAPIKey: os.Getenv("TYPESENSE_API_KEY"),

		RedisAddr:     envOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,

		WikidataEndpoint: envOrDefault("WIKIDATA_ENDPOINT", "https://www.wikidata.org/w/api.php"),
		WikidataTimeout:  wikidataTimeout,
		WikidataCacheTTL: wikidataCacheTTL,

		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
	}

	if cfg.TypesenseURL == "" {
		return nil, errors.New("TYPESENSE_URL is required")
	}
	if cfg.RedisAddr == "" {
		return nil, errors.New("REDIS_ADDR is required")
	}
	if cfg.TypesenseAPIKey == "" {
		return nil, errors.New("TYPESENSE_API_KEY is required")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
