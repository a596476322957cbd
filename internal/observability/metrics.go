package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// ingest driver and the query service.
type Metrics struct {
	// Ingest driver.
	RelationsProcessed prometheus.Counter
	PlacesIndexed      prometheus.Counter
	IngestErrors       prometheus.Counter
	IngestRunning      prometheus.Gauge
	BatchSize          prometheus.Histogram
	BatchFlushDuration prometheus.Histogram

	// Geometry resolution.
	GeometryResolveDuration prometheus.Histogram
	UnresolvedGeometry      prometheus.Counter

	// Admin hierarchy / point-in-polygon lookups.
	PIPLookups         prometheus.Counter
	PIPLookupDuration  prometheus.Histogram
	PIPCandidatesFound prometheus.Histogram

	// Text index (Typesense) + KV store (Redis) sinks.
	IndexUpserts    *prometheus.CounterVec // labels: collection
	IndexErrors     *prometheus.CounterVec // labels: collection
	KVUpserts       *prometheus.CounterVec // labels: table
	KVErrors        *prometheus.CounterVec // labels: table
	StaleDocsPurged prometheus.Counter

	// Wikidata enrichment.
	WikidataFetches *prometheus.CounterVec // labels: outcome={hit,miss,error}
	WikidataLatency prometheus.Histogram

	// Query service.
	QueryRequests *prometheus.CounterVec   // labels: kind={forward,autocomplete,reverse}, outcome={success,error,empty}
	QueryLatency  *prometheus.HistogramVec // labels: kind
}

const namespace = "cypress"

// NewMetrics creates and registers all metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(collectors(m)...)
	return m
}

// NewMetricsForTesting builds Metrics against a private registry, so
// repeated construction across tests never panics on double
// registration.
func NewMetricsForTesting() *Metrics {
	m := newMetrics()
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors(m)...)
	return m
}

func collectors(m *Metrics) []prometheus.Collector {
	return []prometheus.Collector{
		m.RelationsProcessed,
		m.PlacesIndexed,
		m.IngestErrors,
		m.IngestRunning,
		m.BatchSize,
		m.BatchFlushDuration,
		m.GeometryResolveDuration,
		m.UnresolvedGeometry,
		m.PIPLookups,
		m.PIPLookupDuration,
		m.PIPCandidatesFound,
		m.IndexUpserts,
		m.IndexErrors,
		m.KVUpserts,
		m.KVErrors,
		m.StaleDocsPurged,
		m.WikidataFetches,
		m.WikidataLatency,
		m.QueryRequests,
		m.QueryLatency,
	}
}

func newMetrics() *Metrics {
	return &Metrics{
		RelationsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "relations_processed_total",
			Help: "Total OSM relations scanned during admin boundary extraction.",
		}),
		PlacesIndexed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "places_indexed_total",
			Help: "Total places written to the KV store.",
		}),
		IngestErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "ingest_errors_total",
			Help: "Total errors logged and skipped during ingest (KV upsert, normalization, stale deletion).",
		}),
		IngestRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "ingest_running",
			Help: "1 while an ingest run is in progress, 0 otherwise.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "batch_size",
			Help:    "Number of places per commit batch.",
			Buckets: []float64{10, 50, 100, 250, 500, 1000, 2500, 5000},
		}),
		BatchFlushDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "batch_flush_duration_seconds",
			Help:    "Duration of a two-sink batch commit (text index + KV store).",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		GeometryResolveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "geometry_resolve_duration_seconds",
			Help:    "Duration of a way/relation geometry resolution.",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 1},
		}),
		UnresolvedGeometry: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "unresolved_geometry_total",
			Help: "Total ways/relations dropped for missing node coordinates or unclosed rings.",
		}),
		PIPLookups: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "pip_lookups_total",
			Help: "Total point-in-polygon hierarchy lookups performed.",
		}),
		PIPLookupDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "pip_lookup_duration_seconds",
			Help:    "Duration of a single point-in-polygon hierarchy lookup.",
			Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1},
		}),
		PIPCandidatesFound: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "pip_candidates_found",
			Help:    "Number of overlapping admin boundary candidates per lookup.",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 13},
		}),
		IndexUpserts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "index_upserts_total",
			Help: "Total documents upserted into the text index, by collection.",
		}, []string{"collection"}),
		IndexErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "index_errors_total",
			Help: "Total text index write failures, by collection.",
		}, []string{"collection"}),
		KVUpserts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "kv_upserts_total",
			Help: "Total records upserted into the KV store, by table.",
		}, []string{"table"}),
		KVErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "kv_errors_total",
			Help: "Total KV store write failures, by table.",
		}, []string{"table"}),
		StaleDocsPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "stale_docs_purged_total",
			Help: "Total stale documents deleted from the text index after a region re-import.",
		}),
		WikidataFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "wikidata_fetches_total",
			Help: "Total Wikidata label fetches, by cache outcome.",
		}, []string{"outcome"}),
		WikidataLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "wikidata_fetch_duration_seconds",
			Help:    "Duration of a Wikidata batch label fetch.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		QueryRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "query_requests_total",
			Help: "Geocoding query requests by kind and outcome.",
		}, []string{"kind", "outcome"}),
		QueryLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "query_duration_seconds",
			Help:    "Query service request duration in seconds.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"kind"}),
	}
}
