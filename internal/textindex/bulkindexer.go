package textindex

import (
	"context"
	"log/slog"
	"time"

	"github.com/typesense/typesense-go/v2/typesense"
	"github.com/typesense/typesense-go/v2/typesense/api"

	"github.com/basincode/cypress/internal/domain"
	"github.com/basincode/cypress/internal/observability"
)

// maxLoggedErrorsPerBatch caps the per-batch error examples logged
// (spec §4.8: "up to 5 first examples per batch").
const maxLoggedErrorsPerBatch = 5

// BulkIndexer is a background task fed by a bounded channel of places.
// It buffers up to batchSize documents, then submits one bulk upsert.
// Per-item failures are counted and logged (first few only); a whole-
// batch failure is fatal and terminates Run.
type BulkIndexer struct {
	client    *typesense.Client
	metrics   *observability.Metrics
	log       *slog.Logger
	batchSize int
	input     chan domain.Place

	indexed int
	errored int
}

// NewBulkIndexer returns a BulkIndexer reading from input, which the
// caller owns and must close to signal completion.
func NewBulkIndexer(client *typesense.Client, metrics *observability.Metrics, log *slog.Logger, batchSize int, input chan domain.Place) *BulkIndexer {
	return &BulkIndexer{client: client, metrics: metrics, log: log, batchSize: batchSize, input: input}
}

// Run drains the input channel, submitting a bulk import every time a
// full batch accumulates, until the channel closes, then flushes the
// remainder. It returns (indexed_count, error_count, err) — err is
// non-nil only on a whole-batch (network/server) failure.
func (b *BulkIndexer) Run(ctx context.Context) (int, int, error) {
	buf := make([]domain.Place, 0, b.batchSize)

	for place := range b.input {
		buf = append(buf, place)
		if len(buf) >= b.batchSize {
			if err := b.flush(ctx, buf); err != nil {
				return b.indexed, b.errored, err
			}
			buf = buf[:0]
		}
	}

	if len(buf) > 0 {
		if err := b.flush(ctx, buf); err != nil {
			return b.indexed, b.errored, err
		}
	}

	return b.indexed, b.errored, nil
}

func (b *BulkIndexer) flush(ctx context.Context, batch []domain.Place) error {
	start := time.Now()
	if b.metrics != nil {
		defer func() {
			b.metrics.BatchFlushDuration.Observe(time.Since(start).Seconds())
		}()
	}

	docs := make([]interface{}, len(batch))
	for i, p := range batch {
		docs[i] = ToDocument(p)
	}

	action := "upsert"
	results, err := b.client.Collection(PlacesCollection).Documents().Import(ctx, docs, &api.ImportDocumentsParams{Action: &action})
	if err != nil {
		if b.metrics != nil {
			b.metrics.IndexErrors.WithLabelValues(PlacesCollection).Inc()
		}
		return err
	}

	logged := 0
	batchErrored := 0
	for i, result := range results {
		if result == nil || result.Success {
			b.indexed++
			continue
		}
		b.errored++
		batchErrored++
		if b.metrics != nil {
			b.metrics.IndexErrors.WithLabelValues(PlacesCollection).Inc()
		}
		if logged < maxLoggedErrorsPerBatch && b.log != nil {
			msg := result.Error
			b.log.Warn("textindex: per-document import failure",
				"source_id", batch[i].SourceID, "error", msg)
			logged++
		}
	}
	if b.metrics != nil {
		b.metrics.IndexUpserts.WithLabelValues(PlacesCollection).Add(float64(len(batch) - batchErrored))
		b.metrics.BatchSize.Observe(float64(len(batch)))
	}

	return nil
}
