// Package telemetry provides application-level observability for the trips
// management backend.
//
// # Prometheus Metrics Endpoint
//
// All metrics are registered against the default Prometheus registry and are
// automatically available on the side-channel HTTP server started by main.go:
//
//	GET http(s)://<host>:<TMA_TELEMETRY_METRICS_PROMETHEUS_PORT>/metrics
//
// Default port: 9090.  The endpoint is NOT served by the Gin router so it stays
// off the public ingress and outside the API rate limits.
//
// # Label Cardinality
//
// HTTP metrics use c.FullPath() (route template such as /api/v1/trips/:id)
// rather than the raw request URL to prevent unbounded label cardinality from
// user-supplied path segments such as trip or group IDs.
package telemetry

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics — labelled by method, route template, and status code.
//
// HTTPRequestsTotal is a CounterVec with labels {method, path, status}.
// HTTPRequestDuration is a HistogramVec with labels {method, path} and
// exponential-ish buckets from 5 ms to 30 s.
//
// Example PromQL queries:
//   - Request rate (req/s, 5 m window):  rate(http_requests_total[5m])
//   - Error rate (%):                    sum(rate(http_requests_total{status=~"5.."}[5m])) / sum(rate(http_requests_total[5m])) * 100
//   - p99 latency per route:             histogram_quantile(0.99, sum by (path, le) (rate(http_request_duration_seconds_bucket[5m])))
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed, by method, route template, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, by method and route template.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)
)

// Optimization lifecycle metrics — recorded by the optimizer service.
//
// OptimizationGroupsTotal is a CounterVec with label {decision} taking the
// values "proposed", "approved", and "rejected".  The gap between the proposed
// rate and the decided rates shows how long proposals sit undecided.
//
// Example PromQL queries:
//   - Approval ratio:  sum(rate(optimization_groups_total{decision="approved"}[7d])) / sum(rate(optimization_groups_total{decision="proposed"}[7d]))
//
// TempTripsCleanedTotal counts TEMP shadow rows removed by the stale-proposal
// cleanup job.  A persistently non-zero rate means admins are abandoning
// proposals instead of deciding them.
var (
	OptimizationGroupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "optimization_groups_total",
			Help: "Total number of optimization group lifecycle events, by decision (proposed/approved/rejected).",
		},
		[]string{"decision"},
	)

	TempTripsCleanedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "temp_trips_cleaned_total",
			Help: "Total number of stale TEMP trip rows removed by the cleanup job.",
		},
	)
)

// NotificationEmailsSentTotal is a CounterVec with label {kind} incremented once
// per email successfully handed to the SMTP relay.  A stalled counter combined
// with ongoing group decisions is a useful alert signal for SMTP failures.
var NotificationEmailsSentTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "notification_emails_sent_total",
		Help: "Total number of notification emails successfully sent, by notification kind.",
	},
	[]string{"kind"},
)

// DBOpenConnections is a Gauge that tracks the number of open connections currently
// held by the sql.DB connection pool.  It is sampled every 30 seconds by
// StartDBStatsCollector rather than per-request to avoid the overhead of sql.DB.Stats().
var DBOpenConnections = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "db_open_connections",
		Help: "Current number of open database connections in the pool.",
	},
)

// StartDBStatsCollector launches a background goroutine that samples sql.DB connection
// pool statistics every 30 seconds and updates the DBOpenConnections gauge.
// The goroutine exits cleanly when the database becomes unreachable (db.Ping fails),
// which happens automatically when the application shuts down and defers db.Close().
//
// Call this once, immediately after db.Connect() succeeds in main.go:
//
//	telemetry.StartDBStatsCollector(database)
func StartDBStatsCollector(db *sql.DB) {
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			if err := db.Ping(); err != nil {
				slog.Warn("db stats collector: database unreachable, stopping collector", "error", err)
				return
			}
			DBOpenConnections.Set(float64(db.Stats().OpenConnections))
		}
	}()
}
