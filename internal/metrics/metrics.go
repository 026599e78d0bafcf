// Package metrics exposes Prometheus collectors for every network
// suspension point: AI provider calls, bridge requests, the event stream,
// and the tool loop.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// AI provider metrics
	providerRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "peppercloud_ai_requests_total",
		Help: "Total number of AI provider calls",
	}, []string{"provider", "status"})

	providerLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "peppercloud_ai_latency_seconds",
		Help:    "AI provider call latency in seconds",
		Buckets: []float64{0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0},
	}, []string{"provider"})

	// Bridge metrics
	bridgeRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "peppercloud_bridge_requests_total",
		Help: "Total number of bridge HTTP requests",
	}, []string{"endpoint", "status"})

	bridgeLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "peppercloud_bridge_latency_seconds",
		Help:    "Bridge HTTP request latency in seconds",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 15.0},
	}, []string{"endpoint"})

	// Event stream metrics
	streamReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "peppercloud_events_reconnects_total",
		Help: "Total number of event stream reconnect attempts",
	})

	streamEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "peppercloud_events_received_total",
		Help: "Total number of robot events received",
	}, []string{"type"})

	streamConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "peppercloud_events_connected",
		Help: "Whether the event stream is currently connected (1) or not (0)",
	})

	// Tool loop metrics
	toolExecutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "peppercloud_tool_executions_total",
		Help: "Total number of tool executions",
	}, []string{"tool", "status"})

	conversationRounds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "peppercloud_conversation_rounds",
		Help:    "Provider rounds used per user turn",
		Buckets: []float64{1, 2, 3, 4, 5, 6, 8, 10},
	})
)

func status(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// RecordProviderCall records one AI provider call.
func RecordProviderCall(provider string, success bool, d time.Duration) {
	providerRequests.WithLabelValues(provider, status(success)).Inc()
	providerLatency.WithLabelValues(provider).Observe(d.Seconds())
}

// RecordBridgeRequest records one bridge HTTP exchange. Status is the HTTP
// status code as text, or "transport" when no response arrived.
func RecordBridgeRequest(endpoint, status string, d time.Duration) {
	bridgeRequests.WithLabelValues(endpoint, status).Inc()
	bridgeLatency.WithLabelValues(endpoint).Observe(d.Seconds())
}

// RecordReconnect counts an event stream reconnect attempt.
func RecordReconnect() {
	streamReconnects.Inc()
}

// RecordEvent counts a received robot event.
func RecordEvent(eventType string) {
	streamEvents.WithLabelValues(eventType).Inc()
}

// SetStreamConnected reports event stream connectivity.
func SetStreamConnected(connected bool) {
	if connected {
		streamConnected.Set(1)
		return
	}
	streamConnected.Set(0)
}

// RecordToolExecution records one tool invocation outcome.
func RecordToolExecution(tool string, success bool) {
	toolExecutions.WithLabelValues(tool, status(success)).Inc()
}

// RecordRounds records how many provider rounds a turn used.
func RecordRounds(n int) {
	conversationRounds.Observe(float64(n))
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
