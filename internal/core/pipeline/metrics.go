package pipeline

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/SscSPs/procureflow/internal/core/pipeline"

// MetricsBehavior opens a span per call and records the commands.executed counter and the
// commands.duration histogram.
type MetricsBehavior struct {
	tracer   trace.Tracer
	executed metric.Int64Counter
	duration metric.Float64Histogram
}

// NewMetricsBehavior creates the instruments on the given providers.
func NewMetricsBehavior(tp trace.TracerProvider, mp metric.MeterProvider) (*MetricsBehavior, error) {
	meter := mp.Meter(instrumentationName)
	executed, err := meter.Int64Counter("commands.executed",
		metric.WithDescription("Number of executed commands and queries by type and outcome."))
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram("commands.duration",
		metric.WithDescription("Duration of command execution."),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	return &MetricsBehavior{
		tracer:   tp.Tracer(instrumentationName),
		executed: executed,
		duration: duration,
	}, nil
}

func (b *MetricsBehavior) Name() string                 { return "metrics" }
func (b *MetricsBehavior) Priority() int                { return PriorityMetrics }
func (b *MetricsBehavior) AppliesTo(d *Descriptor) bool { return true }

func (b *MetricsBehavior) Handle(ctx context.Context, call *Call, next Next) Result {
	ctx, span := b.tracer.Start(ctx, call.Command.Type,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("command.type", call.Command.Type),
			attribute.String("command.kind", call.Descriptor.Kind.String()),
			attribute.String("correlation.id", call.Actor.CorrelationID),
		))
	defer span.End()

	start := time.Now()
	res := next(ctx)

	outcome := "success"
	if !res.Success {
		outcome = string(res.Kind)
		span.SetStatus(codes.Error, res.Error)
	}
	attrs := metric.WithAttributes(
		attribute.String("command.type", call.Command.Type),
		attribute.String("outcome", outcome),
	)
	b.executed.Add(ctx, 1, attrs)
	b.duration.Record(ctx, time.Since(start).Seconds(), attrs)
	return res
}
