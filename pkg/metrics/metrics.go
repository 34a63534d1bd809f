// Package metrics exposes the Prometheus registry used by the catalog client.
// Metrics are defined in their own packages (client, ratelimit, catalog) via
// promauto; this package serves them and documents what exists.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registerer all catalog metrics are registered with.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the gatherer Handler serves from.
var Gatherer = prometheus.DefaultGatherer

// Handler returns the /metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - catalog_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status
//     (status is also network_error, rate_limited or circuit_open)
//   - catalog_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - catalog_errors_total{class} (Counter): Transport errors by class
//     (client, server, rate_limit, network, decode, circuit_open)
//   - catalog_requests_in_flight (Gauge): Requests awaiting a response
//
// Rate Limit Metrics (pkg/ratelimit):
//   - catalog_rate_limit_remaining (Gauge): Requests remaining in the current quota window
//   - catalog_rate_limit_blocks_total (Counter): Requests blocked below the critical threshold
//   - catalog_rate_limit_throttles_total (Counter): Requests delayed below the warning threshold
//
// Store Metrics (pkg/catalog):
//   - catalog_store_operations_total{operation, outcome} (Counter): fetch_page / load_more by success or failed
//   - catalog_notifications_total{severity} (Counter): User notifications emitted
//
// Example Prometheus Queries:
//
//   # Failed page loads per minute
//   sum(rate(catalog_store_operations_total{outcome="failed"}[1m])) * 60
//
//   # Quota close to exhaustion
//   catalog_rate_limit_remaining < 20
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(catalog_request_duration_seconds_bucket[5m]))
