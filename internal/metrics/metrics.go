// Package metrics holds Prometheus instruments that are used across the
// engine, the transports, and the supervisor.  All collectors are
// registered with the global registry, so importing this package is enough
// to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conductor_requests_total",
			Help: "Requests handed to the engine, by transport.",
		}, []string{"transport"})

	RequestErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conductor_request_errors_total",
			Help: "Requests that ended on the error-reporting path, by kind.",
		}, []string{"kind"})

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "conductor_request_duration_seconds",
			Help:    "Wall time of the full lifecycle per request.",
			Buckets: prometheus.DefBuckets,
		}, []string{"transport"})

	DeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "conductor_denied_requests_total",
			Help: "Requests rejected with 403 for direct port access.",
		})

	WebSocketSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "conductor_websocket_sessions",
			Help: "Open WebSocket sessions in this process.",
		})

	WorkersActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "conductor_workers_active",
			Help: "Worker processes currently alive under the supervisor.",
		})

	WorkerRestartsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "conductor_worker_restarts_total",
			Help: "Cumulative number of worker exits that were replaced.",
		})
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestErrorsTotal,
		RequestDuration,
		DeniedTotal,
		WebSocketSessions,
		WorkersActive,
		WorkerRestartsTotal,
	)
}
