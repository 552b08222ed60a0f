// Package observe provides application-wide observability primitives for
// intervox: OpenTelemetry metrics with a Prometheus exporter bridge so the
// standard /metrics endpoint keeps working.
//
// A package-level default [Metrics] instance ([DefaultMetrics]) is provided
// for convenience; tests should use [NewMetrics] with a custom
// [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all intervox metrics.
const meterName = "github.com/MrWong99/intervox"

// Fallback kinds recorded by [Metrics.RecordFallback].
const (
	FallbackCannedQuestion     = "canned_question"
	FallbackMockEvaluation     = "mock_evaluation"
	FallbackSentinelTranscript = "sentinel_transcript"
)

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// STTDuration tracks speech-to-text transcription latency.
	STTDuration metric.Float64Histogram

	// LLMDuration tracks question-generation and grading latency.
	LLMDuration metric.Float64Histogram

	// TTSDuration tracks text-to-speech synthesis latency.
	TTSDuration metric.Float64Histogram

	// --- Counters ---

	// Fallbacks counts degraded-path events. Use with attribute:
	//   attribute.String("kind", ...) with one of the Fallback* constants.
	Fallbacks metric.Int64Counter

	// ChunksRejected counts audio fragments dropped because the session was
	// not capturing an answer.
	ChunksRejected metric.Int64Counter

	// TurnsCompleted counts answered turns across all interviews.
	TurnsCompleted metric.Int64Counter

	// InterviewsCompleted counts interviews that reached their final turn.
	InterviewsCompleted metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks the number of live interview sessions.
	ActiveSessions metric.Int64UpDownCounter

	// --- HTTP ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// model and recogniser round trips.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.STTDuration, err = m.Float64Histogram("intervox.stt.duration",
		metric.WithDescription("Latency of speech-to-text transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.LLMDuration, err = m.Float64Histogram("intervox.llm.duration",
		metric.WithDescription("Latency of question generation and grading calls."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TTSDuration, err = m.Float64Histogram("intervox.tts.duration",
		metric.WithDescription("Latency of text-to-speech synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.Fallbacks, err = m.Int64Counter("intervox.fallbacks",
		metric.WithDescription("Degraded-path events by kind (canned question, mock evaluation, sentinel transcript)."),
	); err != nil {
		return nil, err
	}
	if met.ChunksRejected, err = m.Int64Counter("intervox.chunks.rejected",
		metric.WithDescription("Audio fragments dropped outside answer capture."),
	); err != nil {
		return nil, err
	}
	if met.TurnsCompleted, err = m.Int64Counter("intervox.turns.completed",
		metric.WithDescription("Answered interview turns."),
	); err != nil {
		return nil, err
	}
	if met.InterviewsCompleted, err = m.Int64Counter("intervox.interviews.completed",
		metric.WithDescription("Interviews that reached their final turn."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSessions, err = m.Int64UpDownCounter("intervox.active_sessions",
		metric.WithDescription("Number of live interview sessions."),
	); err != nil {
		return nil, err
	}

	// HTTP histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("intervox.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordFallback records one degraded-path event of the given kind.
func (m *Metrics) RecordFallback(ctx context.Context, kind string) {
	m.Fallbacks.Add(ctx, 1,
		metric.WithAttributes(attribute.String("kind", kind)),
	)
}

// RecordStageDuration records one pipeline stage latency with its status.
func RecordStageDuration(ctx context.Context, hist metric.Float64Histogram, seconds float64, status string) {
	hist.Record(ctx, seconds,
		metric.WithAttributes(attribute.String("status", status)),
	)
}
