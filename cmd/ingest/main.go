// Command ingest runs one offline ETL pass over a region's OSM PBF
// extract: it resolves geometry, extracts admin boundaries and places,
// enriches them with Wikidata labels and importance scores, assembles
// the admin hierarchy, and writes the result to the KV store and text
// index (spec §4.1-§4.11, §6).
package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/typesense/typesense-go/v2/typesense"

	"github.com/basincode/cypress/internal/admin"
	"github.com/basincode/cypress/internal/config"
	"github.com/basincode/cypress/internal/geometry"
	"github.com/basincode/cypress/internal/importance"
	"github.com/basincode/cypress/internal/ingest"
	"github.com/basincode/cypress/internal/ingestconfig"
	"github.com/basincode/cypress/internal/kvstore"
	"github.com/basincode/cypress/internal/observability"
	"github.com/basincode/cypress/internal/pbf"
	"github.com/basincode/cypress/internal/synonym"
	"github.com/basincode/cypress/internal/textindex"
	"github.com/basincode/cypress/internal/waymerge"
	"github.com/basincode/cypress/internal/wikidata"
)

// region is one PBF file to ingest, named for version tracking.
type region struct {
	name string
	path string
}

func main() {
	if err := run(); err != nil {
		slog.Error("ingest failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := newLogger(cfg)

	regions, err := resolveRegions(cfg)
	if err != nil {
		return fmt.Errorf("resolve regions: %w", err)
	}
	if len(regions) == 0 {
		return errors.New("no regions configured: set PBF_PATH or REGION_TOML")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := observability.NewMetrics()

	kv, err := kvstore.New(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, "cypress")
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}

	text := typesense.NewClient(
		typesense.WithServer(cfg.TypesenseURL),
		typesense.WithAPIKey(cfg.TypesenseAPIKey),
	)

	if err := textindex.EnsureSchema(ctx, text, cfg.CreateIndex); err != nil {
		return fmt.Errorf("ensure text index schema: %w", err)
	}

	synonyms := synonym.New()
	if cfg.SynonymDir != "" {
		if err := synonyms.LoadDir(cfg.SynonymDir); err != nil {
			return fmt.Errorf("load synonym dir: %w", err)
		}
		logger.Info("loaded synonym tables", "tokens", synonyms.Len())
	}

	importanceTable := importance.Table{}
	if cfg.ImportanceFile != "" {
		importanceTable, err = importance.LoadFromTable(cfg.ImportanceFile)
		if err != nil {
			return fmt.Errorf("load importance table: %w", err)
		}
		logger.Info("loaded importance table", "entries", len(importanceTable))
	}

	wd := wikidata.New(cfg.WikidataEndpoint, cfg.WikidataTimeout, logger).WithMetrics(metrics)

	// create_index forces a full reimport of every region (Open Question
	// 2): a recreated collection schema starts empty, so a partial run
	// would silently drop every other region's existing documents.
	forceReimport := cfg.CreateIndex

	var failed int
	for _, r := range regions {
		if err := ingestRegion(ctx, cfg, logger, metrics, kv, text, synonyms, importanceTable, wd, r, forceReimport); err != nil {
			logger.Error("region ingest failed", "region", r.name, "error", err)
			failed++
			continue
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d regions failed", failed, len(regions))
	}
	return nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.LogFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

// resolveRegions builds the region list from either REGION_TOML (batch
// mode) or a single PBF_PATH.
func resolveRegions(cfg *config.Config) ([]region, error) {
	if cfg.RegionTOML != "" {
		rc, err := ingestconfig.LoadFromFile(cfg.RegionTOML)
		if err != nil {
			return nil, err
		}
		out := make([]region, 0, len(rc.Regions))
		for _, r := range rc.Regions {
			out = append(out, region{name: r.Name, path: r.URL})
		}
		return out, nil
	}
	if cfg.PBFPath == "" {
		return nil, nil
	}
	name := filepath.Base(cfg.PBFPath)
	return []region{{name: name, path: cfg.PBFPath}}, nil
}

// geometryPredicate selects every relation or way whose geometry the
// ingest run might need: administrative boundaries (consumed by
// internal/admin) and anything internal/ingest.DetermineLayer would
// accept as a place, including named road ways routed through the way
// merger instead of extracted directly.
func geometryPredicate(tags map[string]string) bool {
	if admin.IsAdministrativeBoundary(tags) {
		return true
	}
	if tags["name"] == "" {
		return false
	}
	if _, ok := ingest.DetermineLayer(tags); ok {
		return true
	}
	return false
}

func ingestRegion(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	metrics *observability.Metrics,
	kv *kvstore.Client,
	text *typesense.Client,
	synonyms *synonym.Normalizer,
	importanceTable importance.Table,
	wd *wikidata.Client,
	r region,
	forceReimport bool,
) error {
	logger.Info("starting region ingest", "region", r.name, "path", r.path)

	hash, err := fileHash(r.path)
	if err != nil {
		return fmt.Errorf("hash pbf file: %w", err)
	}

	if !forceReimport {
		if prior, found, err := textindex.GetVersion(ctx, text, r.name); err != nil {
			return fmt.Errorf("check prior version: %w", err)
		} else if found && prior.Hash == hash {
			logger.Info("region unchanged since last import, skipping", "region", r.name)
			return nil
		}
	}

	scratchPath := filepath.Join(cfg.NodeScratchDir, fmt.Sprintf("cypress-%s-nodes.bin", r.name))

	reader, err := pbf.Open(r.path, 4)
	if err != nil {
		return fmt.Errorf("open pbf: %w", err)
	}
	defer reader.Close()

	resolver, err := geometry.Build(reader, geometryPredicate, scratchPath)
	if err != nil {
		return fmt.Errorf("build geometry resolver: %w", err)
	}
	resolver.WithMetrics(metrics)
	defer os.Remove(scratchPath)

	boundaries, err := admin.ExtractBoundaries(reader, resolver, metrics)
	if err != nil {
		return fmt.Errorf("extract admin boundaries: %w", err)
	}
	index := admin.BuildSpatialIndex(boundaries)
	pip := admin.NewService(index).WithMetrics(metrics)

	extractor := ingest.NewExtractor(resolver, synonyms, importanceTable)
	merger := waymerge.NewMerger(resolver)
	driver := ingest.New(extractor, pip, wd, kv, text, metrics, logger, cfg.BatchSize, true)

	importStart := time.Now()
	stats, err := driver.Run(ctx, reader, merger, boundaries, r.name, importStart)
	if err != nil {
		return fmt.Errorf("run ingest driver: %w", err)
	}

	if err := textindex.PutVersion(ctx, text, textindex.VersionRecord{
		RegionName: r.name,
		Filename:   r.path,
		Hash:       hash,
		Timestamp:  importStart.Unix(),
	}); err != nil {
		return fmt.Errorf("record version: %w", err)
	}

	logger.Info("region ingest complete",
		"region", r.name,
		"admin_boundaries", stats.AdminBoundaries,
		"objects_scanned", stats.ObjectsScanned,
		"places_extracted", stats.PlacesExtracted,
		"indexed", stats.Indexed,
		"index_errors", stats.IndexErrors,
	)
	return nil
}

func fileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
