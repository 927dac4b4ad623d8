// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	MessagesParsed       prometheus.Counter
	MessagesSpoken       prometheus.Counter
	MessagesFiltered     prometheus.Counter
	SynthesisFailures    prometheus.Counter
	TransportDisconnects prometheus.Counter
	RedemptionsFulfilled prometheus.Counter
	RedemptionsCanceled  prometheus.Counter

	// Histograms (seconds)
	SynthesisDuration prometheus.Observer
	PlaybackDuration  prometheus.Observer

	// Gauges
	QueueDepthGauge prometheus.Gauge
	ConnectedGauge  prometheus.Gauge // 1=chat session ready, 0=disconnected
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		MessagesParsed = promauto.NewCounter(prometheus.CounterOpts{Name: "tts_messages_parsed_total", Help: "Chat messages successfully parsed"})
		MessagesSpoken = promauto.NewCounter(prometheus.CounterOpts{Name: "tts_messages_spoken_total", Help: "Chat messages queued for speech"})
		MessagesFiltered = promauto.NewCounter(prometheus.CounterOpts{Name: "tts_messages_filtered_total", Help: "Chat messages suppressed by the speakability filters"})
		SynthesisFailures = promauto.NewCounter(prometheus.CounterOpts{Name: "tts_synthesis_failures_total", Help: "Synthesis requests that returned a non-success response"})
		TransportDisconnects = promauto.NewCounter(prometheus.CounterOpts{Name: "tts_transport_disconnects_total", Help: "Chat transport teardowns not initiated locally"})
		RedemptionsFulfilled = promauto.NewCounter(prometheus.CounterOpts{Name: "tts_redemptions_fulfilled_total", Help: "Reward redemptions fulfilled"})
		RedemptionsCanceled = promauto.NewCounter(prometheus.CounterOpts{Name: "tts_redemptions_canceled_total", Help: "Reward redemptions canceled"})
		SynthesisDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "tts_synthesis_duration_seconds", Help: "Synthesis request duration seconds", Buckets: prometheus.DefBuckets})
		PlaybackDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "tts_playback_duration_seconds", Help: "Playback slot occupancy seconds", Buckets: prometheus.DefBuckets})
		QueueDepthGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "tts_queue_depth", Help: "Utterances waiting for a playback slot"})
		ConnectedGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "tts_chat_connected", Help: "Chat session ready=1 disconnected=0"})
	})
}

// SetQueueDepth records the current number of queued utterances.
func SetQueueDepth(n int) {
	if QueueDepthGauge != nil {
		QueueDepthGauge.Set(float64(n))
	}
}

// SetConnected sets the chat connectivity gauge.
func SetConnected(up bool) {
	if ConnectedGauge != nil {
		if up {
			ConnectedGauge.Set(1)
		} else {
			ConnectedGauge.Set(0)
		}
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------

type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding correlation id (if absent) and the id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	if s, ok := ctx.Value(corrKey).(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
