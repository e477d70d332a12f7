// Package metrics is the reference for the Prometheus metrics exported by the
// range scanner. All metrics are defined via promauto in their own packages
// (scan, source, cache) and registered on the default registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler returns the HTTP handler exposing every registered metric.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Metrics Documentation
//
// Scan Metrics (pkg/scan):
//   - scan_cohorts_total (Counter): Cohorts dispatched
//   - scan_ranges_total{outcome} (Counter): Ranges by outcome (ok, found, empty, failed)
//   - scan_fetch_duration_seconds (Histogram): Range fetch duration including decode
//   - scan_termination_total{reason} (Counter): Finished runs (found, exhausted, cancelled)
//
// Source Metrics (pkg/source):
//   - source_requests_total{status} (Counter): Upstream requests by HTTP status
//   - source_request_duration_seconds (Histogram): Upstream request duration
//   - source_errors_total{class} (Counter): Errors by class (client, server, status, network)
//   - source_retries_total{error_class} (Counter): Retry attempts (retry is opt-in)
//   - source_retry_backoff_seconds{error_class} (Histogram): Backoff durations
//   - source_retry_exhausted_total{error_class} (Counter): Requests that used every attempt
//
// Cache Metrics (pkg/cache):
//   - source_cache_hits_total (Counter)
//   - source_cache_misses_total (Counter)
//   - source_cache_errors_total{operation} (Counter)
//
// Example Prometheus Queries:
//
//   # Failed range ratio
//   sum(rate(scan_ranges_total{outcome="failed"}[5m])) / sum(rate(scan_ranges_total[5m]))
//
//   # P95 fetch latency
//   histogram_quantile(0.95, rate(scan_fetch_duration_seconds_bucket[5m]))
//
//   # Cache hit rate
//   rate(source_cache_hits_total[5m]) /
//   (rate(source_cache_hits_total[5m]) + rate(source_cache_misses_total[5m]))
