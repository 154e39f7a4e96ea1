package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "linker_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// ModeSwitchTotal counts mode transitions by direction and outcome.
	// Direction is "enter" or "exit"; outcome is one of "ok", "noop",
	// "forced", "verification_required", "not_found", "credential_failed".
	ModeSwitchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "linker_mode_switch_total",
		Help: "Total number of mode switch attempts by direction and outcome",
	}, []string{"direction", "outcome"})

	// AnonymousSessionsActive is the gauge of sessions currently in anonymous mode.
	AnonymousSessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "linker_anonymous_sessions_active",
		Help: "Number of sessions currently in anonymous mode",
	})

	// CredentialExchangeLatency records persona credential issue/revoke latency.
	CredentialExchangeLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "linker_credential_exchange_latency_seconds",
		Help:    "Persona credential exchange latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	// WebSocketConnectionsTotal is the gauge of total WebSocket connections.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "linker_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "linker_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)

// RecordModeSwitch increments the mode-switch counter.
func RecordModeSwitch(direction, outcome string) {
	ModeSwitchTotal.WithLabelValues(direction, outcome).Inc()
}

// TrackCredentialExchange returns a function that records exchange latency
// when called (e.g. defer).
func TrackCredentialExchange(operation string) func() {
	start := time.Now()
	return func() {
		CredentialExchangeLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}
