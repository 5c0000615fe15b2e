// Package observe provides application-wide observability primitives for
// Parley: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Parley metrics.
const meterName = "github.com/callistoworks/parley"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// JudgeDuration tracks scoring-provider latency. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("status", ...)
	JudgeDuration metric.Float64Histogram

	// TurnDuration tracks full Advance latency per negotiation turn. Use with
	// attribute: attribute.String("kind", ...)
	TurnDuration metric.Float64Histogram

	// --- Counters ---

	// JudgeRequests counts scoring calls. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("status", ...)
	JudgeRequests metric.Int64Counter

	// JudgeErrors counts scoring failures by provider.
	JudgeErrors metric.Int64Counter

	// SessionsResolved counts terminal outcomes. Use with attributes:
	//   attribute.String("kind", ...), attribute.String("decision", ...),
	//   attribute.String("reason", ...)
	SessionsResolved metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks the number of open negotiation sessions.
	ActiveSessions metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// LLM-judge calls, which dominate turn latency.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.JudgeDuration, err = m.Float64Histogram("parley.judge.duration",
		metric.WithDescription("Latency of scoring-provider calls."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TurnDuration, err = m.Float64Histogram("parley.turn.duration",
		metric.WithDescription("End-to-end latency of one negotiation turn."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.JudgeRequests, err = m.Int64Counter("parley.judge.requests",
		metric.WithDescription("Total scoring calls by provider and status."),
	); err != nil {
		return nil, err
	}
	if met.JudgeErrors, err = m.Int64Counter("parley.judge.errors",
		metric.WithDescription("Total scoring failures by provider."),
	); err != nil {
		return nil, err
	}
	if met.SessionsResolved, err = m.Int64Counter("parley.sessions.resolved",
		metric.WithDescription("Terminal outcomes by kind, decision, and reason."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSessions, err = m.Int64UpDownCounter("parley.active_sessions",
		metric.WithDescription("Number of open negotiation sessions."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("parley.http.request.duration",
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

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordJudgeCall records one scoring call: the request counter, the error
// counter when status is not "ok", and the latency histogram.
func (m *Metrics) RecordJudgeCall(ctx context.Context, provider, status string, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("status", status),
	)
	m.JudgeRequests.Add(ctx, 1, attrs)
	m.JudgeDuration.Record(ctx, elapsed.Seconds(), attrs)
	if status != "ok" {
		m.JudgeErrors.Add(ctx, 1,
			metric.WithAttributes(attribute.String("provider", provider)),
		)
	}
}

// RecordTurn records the latency of one full Advance call.
func (m *Metrics) RecordTurn(ctx context.Context, kind string, elapsed time.Duration) {
	m.TurnDuration.Record(ctx, elapsed.Seconds(),
		metric.WithAttributes(attribute.String("kind", kind)),
	)
}

// RecordSessionResolved records a terminal outcome.
func (m *Metrics) RecordSessionResolved(ctx context.Context, kind, decision, reason string) {
	m.SessionsResolved.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("kind", kind),
			attribute.String("decision", decision),
			attribute.String("reason", reason),
		),
	)
}
