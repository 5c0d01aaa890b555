package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Span names.
const (
	SpanCycle = "health.cycle"
	SpanProbe = "health.probe"
)

// Tracer wraps OpenTelemetry tracing for refresh cycles.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartCycle starts the root span of a refresh cycle.
	StartCycle(ctx context.Context, trigger string) (context.Context, trace.Span)

	// StartProbe starts a child span around one probe call.
	StartProbe(ctx context.Context, component string) (context.Context, trace.Span)

	// EndSpan ends the span, recording err when non-nil.
	EndSpan(span trace.Span, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer wraps an OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	if t == nil {
		t = tracenoop.NewTracerProvider().Tracer("noop")
	}
	return &tracerImpl{tracer: t}
}

func (t *tracerImpl) StartCycle(ctx context.Context, trigger string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, SpanCycle,
		trace.WithAttributes(attribute.String("health.trigger", trigger)),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (t *tracerImpl) StartProbe(ctx context.Context, component string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, SpanProbe,
		trace.WithAttributes(attribute.String("health.component", component)),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
