package operations

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"hinosemi/internal/infrastructure"
)

const (
	TracerName = "hinosemi.operations"
)

// runTracer wraps spans and metrics for a run.
type runTracer struct {
	tracer  trace.Tracer
	metrics *infrastructure.IndexMetrics
}

func newRunTracer(metrics *infrastructure.IndexMetrics) *runTracer {
	return &runTracer{tracer: otel.Tracer(TracerName), metrics: metrics}
}

func (rt *runTracer) startRun(ctx context.Context, runID, key string) (context.Context, trace.Span) {
	return rt.tracer.Start(ctx, "index.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("index.key", key),
		),
	)
}

// step runs fn inside a child span and records its duration.
func (rt *runTracer) step(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := rt.tracer.Start(ctx, fmt.Sprintf("index.step.%s", name),
		trace.WithAttributes(attribute.String("step", name)))
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	rt.metrics.RecordStep(ctx, name, time.Since(start), err == nil)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

func (rt *runTracer) finishRun(ctx context.Context, span trace.Span, summary *RunSummary) {
	span.SetAttributes(
		attribute.String("run.status", string(summary.Status)),
		attribute.Int("run.contributors", len(summary.Contributors)),
		attribute.Int("run.excluded", len(summary.Excluded)),
		attribute.Int("run.points", summary.Points),
	)
	if summary.Status == RunStatusFailed {
		span.SetStatus(codes.Error, summary.Error)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()

	var latest float64
	if summary.Snapshot != nil {
		latest = summary.Snapshot.PctIntraday
	}
	rt.metrics.RecordRun(ctx, string(summary.Status), summary.Duration(),
		len(summary.Contributors), len(summary.Excluded), latest, summary.Snapshot != nil)
}
