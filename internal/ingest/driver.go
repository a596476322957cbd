// Package ingest orchestrates the end-to-end ingest run: admin boundary
// emission, place extraction, road merging, PIP enrichment, batched
// Wikidata/KV enrichment, and forwarding to the bulk text indexer (spec
// §4.11), using a channel-based producer/consumer/indexer topology that
// fits a single bounded PBF scan instead of a continuous topic.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/typesense/typesense-go/v2/typesense"

	"github.com/basincode/cypress/internal/admin"
	"github.com/basincode/cypress/internal/domain"
	"github.com/basincode/cypress/internal/importance"
	"github.com/basincode/cypress/internal/kvstore"
	"github.com/basincode/cypress/internal/observability"
	"github.com/basincode/cypress/internal/pbf"
	"github.com/basincode/cypress/internal/textindex"
	"github.com/basincode/cypress/internal/waymerge"
	"github.com/basincode/cypress/internal/wikidata"
)

// extractionBufferSize sizes the extraction -> processing channel (spec
// §4.11/§5: ~2000); the processing -> indexer channel is sized inline at
// 2x batch_size.
const extractionBufferSize = 2000

// Stats summarizes one completed ingest run.
type Stats struct {
	AdminBoundaries int
	ObjectsScanned  int64
	PlacesExtracted int
	Indexed         int
	IndexErrors     int
}

// Driver runs one region's ingest: it owns no long-lived resources of
// its own beyond what's passed in, so the same Driver can run multiple
// regions in sequence (e.g. driven by internal/ingestconfig).
type Driver struct {
	extractor  *Extractor
	pip        *admin.Service
	wikidata   *wikidata.Client
	kv         *kvstore.Client
	text       *typesense.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
	batchSize  int
	mergeRoads bool
}

// New builds a Driver from its fully-constructed collaborators.
func New(extractor *Extractor, pip *admin.Service, wd *wikidata.Client, kv *kvstore.Client, text *typesense.Client, metrics *observability.Metrics, logger *slog.Logger, batchSize int, mergeRoads bool) *Driver {
	return &Driver{
		extractor:  extractor,
		pip:        pip,
		wikidata:   wd,
		kv:         kv,
		text:       text,
		metrics:    metrics,
		logger:     logger,
		batchSize:  batchSize,
		mergeRoads: mergeRoads,
	}
}

// Run executes steps 3-9 of spec §4.11 over boundaries (already
// extracted and spatially indexed by the caller, since the resolver
// used to build them may be shared with or distinct from the place
// resolver) and the object stream in r. sourceFile names the PBF for
// Place.source_file/the stale-document filter; importStart marks the
// run's start for stale-document deletion.
func (d *Driver) Run(ctx context.Context, r *pbf.Reader, merger *waymerge.Merger, boundaries []domain.AdminBoundary, sourceFile string, importStart time.Time) (Stats, error) {
	var stats Stats
	d.metrics.IngestRunning.Set(1)
	defer d.metrics.IngestRunning.Set(0)

	placesCh := make(chan domain.Place, extractionBufferSize)
	indexerCh := make(chan domain.Place, 2*d.batchSize)

	var wg sync.WaitGroup
	var runErr error
	var runErrOnce sync.Once
	fail := func(err error) {
		runErrOnce.Do(func() { runErr = err })
	}

	indexer := textindex.NewBulkIndexer(d.text, d.metrics, d.logger, d.batchSize, indexerCh)
	wg.Add(1)
	go func() {
		defer wg.Done()
		indexed, errored, err := indexer.Run(ctx)
		stats.Indexed = indexed
		stats.IndexErrors = errored
		if err != nil {
			fail(fmt.Errorf("ingest: bulk indexer: %w", err))
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		d.consume(ctx, placesCh, indexerCh)
	}()

	stats.AdminBoundaries = len(boundaries)
	for _, b := range boundaries {
		level := b.Area.Level
		d.emitAdminPlace(b, sourceFile, level, placesCh)
	}

	count, err := countObjects(r)
	if err != nil {
		close(placesCh)
		wg.Wait()
		return stats, fmt.Errorf("ingest: count objects: %w", err)
	}
	stats.ObjectsScanned = count

	if err := d.extractPass(r, merger, sourceFile, placesCh, &stats); err != nil {
		close(placesCh)
		wg.Wait()
		return stats, fmt.Errorf("ingest: extraction pass: %w", err)
	}

	if merger != nil {
		for _, road := range merger.Merge() {
			place, ok := road.ToPlace(sourceFile)
			if !ok {
				continue
			}
			d.enrichPlace(&place)
			placesCh <- place
			stats.PlacesExtracted++
		}
	}

	close(placesCh)
	wg.Wait()

	if runErr != nil {
		return stats, runErr
	}

	if d.text != nil {
		deleted, err := textindex.DeleteStale(ctx, d.text, sourceFile, importStart.UnixMilli())
		if err != nil {
			d.logger.Warn("ingest: stale document deletion failed", "error", err)
			if d.metrics != nil {
				d.metrics.IngestErrors.Inc()
			}
		} else if d.metrics != nil {
			d.metrics.StaleDocsPurged.Add(float64(deleted))
		}
	}

	return stats, nil
}

func (d *Driver) emitAdminPlace(b domain.AdminBoundary, sourceFile string, level domain.AdminLevel, out chan<- domain.Place) {
	center := adminCenter(b)
	place := domain.NewPlace(domain.OsmTypeRelation, b.Area.OsmID, domain.LayerForAdminLevel(level), center, sourceFile)
	place.Bbox = b.Area.Bbox
	for lang, name := range b.Area.Name {
		place.AddName(lang, name)
	}
	place.WikidataID = b.Area.WikidataID
	if b.Area.Abbr != "" {
		place.AddCategory("admin:" + b.Area.Abbr)
	}

	hierarchy := d.pip.Lookup(center.Lon, center.Lat, &level)
	place.Parent = hierarchy
	if d.metrics != nil {
		d.metrics.PIPLookups.Inc()
	}
	place.Importance = resolveAdminImportance(level)

	out <- place
}

func adminCenter(b domain.AdminBoundary) domain.GeoPoint {
	if b.Area.Bbox != nil {
		return domain.GeoPoint{
			Lat: (b.Area.Bbox.MinLat + b.Area.Bbox.MaxLat) / 2,
			Lon: (b.Area.Bbox.MinLon + b.Area.Bbox.MaxLon) / 2,
		}
	}
	if len(b.Geometry) > 0 && len(b.Geometry[0]) > 0 {
		return b.Geometry[0][0]
	}
	return domain.GeoPoint{}
}

// resolveAdminImportance uses the importance scorer's place=* granularity
// so admin boundary documents rank sensibly without needing a Wikidata
// table hit (most boundaries won't have one).
func resolveAdminImportance(level domain.AdminLevel) *float64 {
	tag := map[domain.AdminLevel]string{
		domain.AdminLevelCountry:        "country",
		domain.AdminLevelMacroRegion:    "state",
		domain.AdminLevelRegion:         "region",
		domain.AdminLevelMacroCounty:    "county",
		domain.AdminLevelCounty:         "county",
		domain.AdminLevelLocalAdmin:     "city",
		domain.AdminLevelLocality:       "town",
		domain.AdminLevelBorough:        "suburb",
		domain.AdminLevelNeighbourhood:  "suburb",
	}[level]
	score := importance.DefaultScore(map[string]string{"place": tag})
	return &score
}

func countObjects(r *pbf.Reader) (int64, error) {
	if err := r.Rewind(); err != nil {
		return 0, err
	}
	var n int64
	for {
		_, ok, err := r.Next()
		if err != nil {
			return n, err
		}
		if !ok {
			break
		}
		n++
	}
	return n, nil
}

// extractPass is the single re-opened pass over every node/way, routing
// nameful road ways to the merger and everything else through the
// place extractor (spec §4.11 step 6).
func (d *Driver) extractPass(r *pbf.Reader, merger *waymerge.Merger, sourceFile string, out chan<- domain.Place, stats *Stats) error {
	if err := r.Rewind(); err != nil {
		return err
	}

	for {
		obj, ok, err := r.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}

		if obj.Kind == pbf.KindWay && merger != nil && waymerge.IsCandidate(obj.Tags) {
			merger.AddRoad(obj.ID, obj.Tags, obj.Nodes)
			continue
		}

		place, ok := d.extractor.ExtractPlace(obj, sourceFile)
		if !ok {
			continue
		}
		d.enrichPlace(&place)
		out <- place
		stats.PlacesExtracted++
	}
	return nil
}

// enrichPlace runs PIP hierarchy assembly over an already-extracted
// place (spec §4.11 step 6).
func (d *Driver) enrichPlace(place *domain.Place) {
	start := time.Now()
	hierarchy := d.pip.Lookup(place.CenterPoint.Lon, place.CenterPoint.Lat, nil)
	place.Parent = hierarchy
	if d.metrics != nil {
		d.metrics.PIPLookups.Inc()
		d.metrics.PIPLookupDuration.Observe(time.Since(start).Seconds())
	}
}

// consume is the processing stage (spec §4.11 step 8): batches places,
// fetches missing Wikidata labels for the batch, upserts admin parents
// and the normalized place into KV concurrently, then forwards each
// place to the bulk indexer.
func (d *Driver) consume(ctx context.Context, in <-chan domain.Place, out chan<- domain.Place) {
	defer close(out)

	batch := make([]domain.Place, 0, d.batchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		d.processBatch(ctx, batch)
		for _, p := range batch {
			out <- p
		}
		batch = batch[:0]
	}

	for place := range in {
		batch = append(batch, place)
		if len(batch) >= d.batchSize {
			flush()
		}
	}
	flush()
}

func (d *Driver) processBatch(ctx context.Context, batch []domain.Place) {
	if d.wikidata != nil {
		qids := make([]string, 0, len(batch))
		seen := map[string]bool{}
		for _, p := range batch {
			if p.WikidataID != "" && !seen[p.WikidataID] {
				seen[p.WikidataID] = true
				qids = append(qids, p.WikidataID)
			}
		}
		if len(qids) > 0 {
			start := time.Now()
			d.wikidata.FetchBatch(ctx, qids)
			if d.metrics != nil {
				d.metrics.WikidataLatency.Observe(time.Since(start).Seconds())
			}
		}
		for i := range batch {
			if batch[i].WikidataID != "" {
				d.wikidata.MergeLabels(batch[i].WikidataID, batch[i].Name)
			}
		}
	}

	var wg sync.WaitGroup
	for i := range batch {
		wg.Add(1)
		go func(p domain.Place) {
			defer wg.Done()
			d.upsertKV(ctx, p)
		}(batch[i])
	}
	wg.Wait()
}

func (d *Driver) upsertKV(ctx context.Context, p domain.Place) {
	for _, level := range p.Parent.Levels() {
		entry := p.Parent.Get(level)
		if entry == nil || entry.ID == "" {
			continue
		}
		data, err := entry.MarshalKV()
		if err != nil {
			continue
		}
		if err := d.kv.UpsertAdminArea(ctx, entry.ID, string(data)); err != nil {
			d.logger.Warn("ingest: admin area KV upsert failed", "id", entry.ID, "error", err)
			if d.metrics != nil {
				d.metrics.KVErrors.WithLabelValues("admin_areas").Inc()
				d.metrics.IngestErrors.Inc()
			}
			continue
		}
		if d.metrics != nil {
			d.metrics.KVUpserts.WithLabelValues("admin_areas").Inc()
		}
	}

	normalized := domain.ToNormalized(p)
	data, err := json.Marshal(normalized)
	if err != nil {
		d.logger.Warn("ingest: normalize place for KV failed", "source_id", p.SourceID, "error", err)
		if d.metrics != nil {
			d.metrics.IngestErrors.Inc()
		}
		return
	}
	if err := d.kv.UpsertPlace(ctx, p.SourceID, string(data)); err != nil {
		d.logger.Warn("ingest: place KV upsert failed", "source_id", p.SourceID, "error", err)
		if d.metrics != nil {
			d.metrics.KVErrors.WithLabelValues("places").Inc()
			d.metrics.IngestErrors.Inc()
		}
		return
	}
	if d.metrics != nil {
		d.metrics.KVUpserts.WithLabelValues("places").Inc()
		d.metrics.PlacesIndexed.Inc()
	}
}
