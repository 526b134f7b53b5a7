// Package observability holds the Prometheus metrics the catalog service exports.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// CacheLookups counts cache reads by outcome: hit, miss, expired, stale_version.
var CacheLookups = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "roastery_cache_lookups_total",
		Help: "Total number of cache store lookups by outcome",
	},
	[]string{"outcome"},
)

// CacheErrors counts swallowed cache store failures by stage.
var CacheErrors = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "roastery_cache_errors_total",
		Help: "Total number of cache store failures that were treated as misses",
	},
	[]string{"stage"},
)

// CatalogFetches counts list-level catalog loads by domain and result.
var CatalogFetches = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "roastery_catalog_fetches_total",
		Help: "Total number of catalog list loads by domain and result",
	},
	[]string{"domain", "result"},
)

// CatalogFetchDuration observes list-level load latency including normalization.
var CatalogFetchDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "roastery_catalog_fetch_duration_seconds",
		Help:    "Duration of catalog loads from the upstream API, including normalization",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	},
	[]string{"domain"},
)

// ProductEnrichments counts per-product detail fetches: enriched or baseline.
var ProductEnrichments = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "roastery_product_enrichments_total",
		Help: "Total number of per-product detail enrichments by outcome",
	},
	[]string{"outcome"},
)

// StaleResultsDiscarded counts loads superseded by a newer request before commit.
var StaleResultsDiscarded = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "roastery_stale_results_discarded_total",
		Help: "Total number of catalog load results dropped because a newer load started",
	},
	[]string{"domain"},
)

// ImagePreloads counts image warm attempts by result: ok or failed.
var ImagePreloads = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "roastery_image_preloads_total",
		Help: "Total number of image preload attempts by result",
	},
	[]string{"result"},
)

// ImagePreloadsInFlight tracks concurrent image loads.
var ImagePreloadsInFlight = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "roastery_image_preloads_in_flight",
		Help: "Number of image preloads currently in flight",
	},
)

// CatalogBreakerOpen is 1 while the catalog API circuit breaker is open.
var CatalogBreakerOpen = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "roastery_catalog_breaker_open",
		Help: "Whether the catalog API circuit breaker is currently open (1) or not (0)",
	},
)
