// Package metrics defines the Prometheus collectors exposed via /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Relay metrics
var (
	// RelaySubscribers tracks the number of connected push-channel subscribers
	RelaySubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_subscribers",
			Help: "Number of connected push-channel subscribers",
		},
	)

	// RelaySnapshotSize tracks the number of prompts held in the relay snapshot
	RelaySnapshotSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_snapshot_size",
			Help: "Number of prompts held in the relay snapshot",
		},
	)

	// RelayEventsEmitted counts delta events fanned out, by event type
	RelayEventsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_events_emitted_total",
			Help: "Delta events fanned out to subscribers, by event type",
		},
		[]string{"event"},
	)

	// RelaySlowSubscribersEvicted counts subscribers dropped for full send buffers
	RelaySlowSubscribersEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_slow_subscribers_evicted_total",
			Help: "Subscribers disconnected because their send buffer overflowed",
		},
	)

	// RelayNotifyFailures counts write-path notifications that exhausted retries
	RelayNotifyFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_notify_failures_total",
			Help: "Write-path relay notifications that failed after retries",
		},
	)
)

// Upstream model metrics
var (
	// ChatCompletionDuration tracks upstream model call latency in seconds
	ChatCompletionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chat_completion_duration_seconds",
			Help:    "Upstream chat-completion call duration in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)

	// ChatCompletionErrors counts upstream model call failures
	ChatCompletionErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_completion_errors_total",
			Help: "Total upstream chat-completion call failures",
		},
	)

	// ChatCircuitBreakerState tracks the upstream breaker state (0=closed, 1=half-open, 2=open)
	ChatCircuitBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_circuit_breaker_state",
			Help: "Upstream chat circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)
)
