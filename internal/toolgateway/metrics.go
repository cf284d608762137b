package toolgateway

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/fyrsmithlabs/courtside/internal/toolgateway"

// Metrics holds tool gateway instrumentation.
type Metrics struct {
	meter      metric.Meter
	logger     *zap.Logger
	calls      metric.Int64Counter
	violations metric.Int64Counter
	failures   metric.Int64Counter
	duration   metric.Float64Histogram
}

// NewMetrics creates gateway metrics on the global meter provider.
func NewMetrics(logger *zap.Logger) *Metrics {
	m := &Metrics{
		meter:  otel.Meter(instrumentationName),
		logger: logger,
	}
	m.init()
	return m
}

func (m *Metrics) init() {
	var err error

	m.calls, err = m.meter.Int64Counter(
		"courtside.toolgateway.calls_total",
		metric.WithDescription("Total tool calls by agent and tool"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		m.logger.Warn("failed to create calls counter", zap.Error(err))
	}

	m.violations, err = m.meter.Int64Counter(
		"courtside.toolgateway.capability_violations_total",
		metric.WithDescription("Tool calls rejected for lack of capability"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		m.logger.Warn("failed to create violations counter", zap.Error(err))
	}

	m.failures, err = m.meter.Int64Counter(
		"courtside.toolgateway.failures_total",
		metric.WithDescription("Tool calls that failed after passing the capability check"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		m.logger.Warn("failed to create failures counter", zap.Error(err))
	}

	m.duration, err = m.meter.Float64Histogram(
		"courtside.toolgateway.call_duration_seconds",
		metric.WithDescription("Duration of tool calls"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0),
	)
	if err != nil {
		m.logger.Warn("failed to create duration histogram", zap.Error(err))
	}
}

// RecordCall records one completed tool call.
func (m *Metrics) RecordCall(ctx context.Context, agentID, tool string, d time.Duration, err error) {
	attrs := metric.WithAttributes(
		attribute.String("agent", agentID),
		attribute.String("tool", tool),
	)
	if m.calls != nil {
		m.calls.Add(ctx, 1, attrs)
	}
	if err != nil && m.failures != nil {
		m.failures.Add(ctx, 1, attrs)
	}
	if m.duration != nil {
		m.duration.Record(ctx, d.Seconds(), attrs)
	}
}

// RecordViolation records a rejected tool call.
func (m *Metrics) RecordViolation(ctx context.Context, agentID, tool string) {
	if m.violations == nil {
		return
	}
	m.violations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("agent", agentID),
		attribute.String("tool", tool),
	))
}
