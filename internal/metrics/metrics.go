// Package metrics provides Prometheus metrics for the card catalog API.
// Scrape these at /metrics for Grafana dashboards and alerting.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ptcg_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ptcg_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Import Metrics
	CardsImportedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ptcg_cards_imported_total",
			Help: "Total number of card import attempts",
		},
		[]string{"result"}, // "success" or "failed"
	)

	CardImportDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ptcg_card_import_duration_seconds",
			Help:    "Time taken to import a single card",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
	)

	CardImportRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ptcg_card_import_retries_total",
			Help: "Card imports retried after a unique constraint violation",
		},
	)

	UnmappedEnumValuesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ptcg_unmapped_enum_values_total",
			Help: "Source values that matched no canonical enum value",
		},
		[]string{"field"},
	)

	ProductsImportedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ptcg_products_imported_total",
			Help: "Total number of product import attempts",
		},
		[]string{"result"},
	)

	// Query Metrics
	CardQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ptcg_card_queries_total",
			Help: "Card list queries by execution path",
		},
		[]string{"path"}, // "orm" or "raw"
	)

	// Cache Metrics
	VariantCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ptcg_variant_cache_lookups_total",
			Help: "Language variant cache lookups",
		},
		[]string{"result"}, // "hit" or "miss"
	)

	// Storage Metrics
	StorageReadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ptcg_storage_reads_total",
			Help: "Blob reads served by the storage API",
		},
		[]string{"kind", "result"}, // kind: image, thumbnail, event, deck
	)

	HTMLArchivesDeletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ptcg_html_archives_deleted_total",
			Help: "HTML archives removed by the cleanup job",
		},
	)
)
