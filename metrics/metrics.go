// Package metrics exposes the Prometheus instrumentation of the cinehub server.
//
// Metrics are registered on the default registry and served at /metrics:
//
//	api_requests_total{method,endpoint,status}
//	api_request_duration_seconds{method,endpoint}
//	api_active_requests
//	prefs_persisted_total
//	prefs_rejected_total
//	stream_responses_total{status}
//	stream_bytes_sent_total
//	events_connections_active
//	events_messages_total{direction}
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Request Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// Preference Metrics
	PrefsPersisted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "prefs_persisted_total",
			Help: "Total number of preference rows written",
		},
	)

	PrefsRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "prefs_rejected_total",
			Help: "Total number of submitted preferences reported back as errors",
		},
	)

	// Streaming Metrics
	StreamResponses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stream_responses_total",
			Help: "Total number of streaming responses by status",
		},
		[]string{"status"}, // "200", "206", "400", "error"
	)

	StreamBytesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stream_bytes_sent_total",
			Help: "Total number of media bytes written to clients",
		},
	)

	// Events Metrics
	EventsConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "events_connections_active",
			Help: "Current number of connected event clients",
		},
	)

	EventsMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_messages_total",
			Help: "Total number of event messages",
		},
		[]string{"direction"}, // "sent", "received"
	)
)

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordUpsert records the outcome of one preference upsert.
func RecordUpsert(persisted, rejected int) {
	PrefsPersisted.Add(float64(persisted))
	PrefsRejected.Add(float64(rejected))
}

// RecordStream records a finished streaming response. status is "error" for
// responses that failed after the headers were sent.
func RecordStream(status string, written int64) {
	StreamResponses.WithLabelValues(status).Inc()
	if written > 0 {
		StreamBytesSent.Add(float64(written))
	}
}

// TrackEventsConnection tracks connected event clients
func TrackEventsConnection(inc bool) {
	if inc {
		EventsConnectionsActive.Inc()
	} else {
		EventsConnectionsActive.Dec()
	}
}

// RecordEventMessage records one event message; direction is "sent" or "received".
func RecordEventMessage(direction string) {
	EventsMessages.WithLabelValues(direction).Inc()
}
