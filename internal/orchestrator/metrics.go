package orchestrator

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/fyrsmithlabs/courtside/internal/orchestrator"

// Metrics holds orchestration instrumentation.
type Metrics struct {
	meter    metric.Meter
	logger   *zap.Logger
	turns    metric.Int64Counter
	steps    metric.Int64Counter
	retries  metric.Int64Counter
	duration metric.Float64Histogram
}

// NewMetrics creates orchestration metrics on the global meter provider.
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

	m.turns, err = m.meter.Int64Counter(
		"courtside.orchestrator.turns_total",
		metric.WithDescription("Completed turns by outcome"),
		metric.WithUnit("{turn}"),
	)
	if err != nil {
		m.logger.Warn("failed to create turns counter", zap.Error(err))
	}

	m.steps, err = m.meter.Int64Counter(
		"courtside.orchestrator.steps_total",
		metric.WithDescription("Executed workflow steps by agent and status"),
		metric.WithUnit("{step}"),
	)
	if err != nil {
		m.logger.Warn("failed to create steps counter", zap.Error(err))
	}

	m.retries, err = m.meter.Int64Counter(
		"courtside.orchestrator.step_retries_total",
		metric.WithDescription("Step retry attempts"),
		metric.WithUnit("{retry}"),
	)
	if err != nil {
		m.logger.Warn("failed to create retries counter", zap.Error(err))
	}

	m.duration, err = m.meter.Float64Histogram(
		"courtside.orchestrator.turn_duration_seconds",
		metric.WithDescription("End-to-end turn duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0, 120.0),
	)
	if err != nil {
		m.logger.Warn("failed to create duration histogram", zap.Error(err))
	}
}

// RecordTurn records a completed turn.
func (m *Metrics) RecordTurn(ctx context.Context, outcome string, d time.Duration) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	if m.turns != nil {
		m.turns.Add(ctx, 1, attrs)
	}
	if m.duration != nil {
		m.duration.Record(ctx, d.Seconds(), attrs)
	}
}

// RecordStep records an executed step.
func (m *Metrics) RecordStep(ctx context.Context, agentID, status string) {
	if m.steps == nil {
		return
	}
	m.steps.Add(ctx, 1, metric.WithAttributes(
		attribute.String("agent", agentID),
		attribute.String("status", status),
	))
}

// RecordRetry records a step retry.
func (m *Metrics) RecordRetry(ctx context.Context, agentID string) {
	if m.retries == nil {
		return
	}
	m.retries.Add(ctx, 1, metric.WithAttributes(attribute.String("agent", agentID)))
}
