// Package metrics exposes Prometheus collectors for voice sessions.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/GriffinCanCode/voiceorder/internal/resilience"
)

const namespace = "voiceorder"

// Metrics holds the collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	SessionsActive  prometheus.Gauge
	SessionsTotal   *prometheus.CounterVec
	SessionDuration prometheus.Histogram
	SessionErrors   *prometheus.CounterVec

	ToolCallsTotal *prometheus.CounterVec
	AudioBytes     *prometheus.CounterVec
	PlaybackUnits  prometheus.Counter
	Interruptions  prometheus.Counter
	DecodeErrors   prometheus.Counter

	BreakerState *prometheus.GaugeVec
}

// New registers all collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of connected voice sessions",
		}),
		SessionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Voice session connect attempts by outcome",
		}, []string{"status"}),
		SessionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Connected voice session duration in seconds",
			Buckets:   []float64{5, 15, 30, 60, 120, 300, 600, 1800},
		}),
		SessionErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_errors_total",
			Help:      "Session-ending errors by kind",
		}, []string{"kind"}),
		ToolCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Tool calls answered, by tool and status",
		}, []string{"tool", "status"}),
		AudioBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_bytes_total",
			Help:      "PCM bytes streamed, by direction",
		}, []string{"direction"}),
		PlaybackUnits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "playback_units_total",
			Help:      "Audio chunks scheduled for playback",
		}),
		Interruptions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interruptions_total",
			Help:      "Barge-in interruptions",
		}),
		DecodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_errors_total",
			Help:      "Audio chunks skipped because they failed to decode",
		}),
		BreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "breaker_state",
			Help:      "Circuit breaker state per collaborator (0 closed, 1 open, 2 half-open)",
		}, []string{"breaker"}),
	}

	registry.MustRegister(
		m.SessionsActive,
		m.SessionsTotal,
		m.SessionDuration,
		m.SessionErrors,
		m.ToolCallsTotal,
		m.AudioBytes,
		m.PlaybackUnits,
		m.Interruptions,
		m.DecodeErrors,
		m.BreakerState,
	)
	return m
}

// Handler serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) SessionStarted() {
	m.SessionsActive.Inc()
	m.SessionsTotal.WithLabelValues("connected").Inc()
}

func (m *Metrics) SessionEnded(d time.Duration) {
	m.SessionsActive.Dec()
	m.SessionDuration.Observe(d.Seconds())
}

// SessionFailed counts a connect failure or an error close.
func (m *Metrics) SessionFailed(kind string) {
	m.SessionsTotal.WithLabelValues("error").Inc()
	m.SessionErrors.WithLabelValues(kind).Inc()
}

func (m *Metrics) ToolCall(name string, failed bool) {
	status := "ok"
	if failed {
		status = "error"
	}
	m.ToolCallsTotal.WithLabelValues(name, status).Inc()
}

func (m *Metrics) AudioSent(n int)     { m.AudioBytes.WithLabelValues("up").Add(float64(n)) }
func (m *Metrics) AudioReceived(n int) { m.AudioBytes.WithLabelValues("down").Add(float64(n)) }

// BreakerHook reports breaker transitions; pass it to Breaker.WithHook.
func (m *Metrics) BreakerHook(name string, _, to resilience.State) {
	m.BreakerState.WithLabelValues(name).Set(float64(to))
}
