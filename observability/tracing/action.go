package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ActionTracer creates spans around row actions and their steps.
type ActionTracer struct {
	tracer trace.Tracer
}

// NewActionTracer creates an ActionTracer. If tracer is nil, the global
// tracer provider is used.
func NewActionTracer(tracer trace.Tracer) *ActionTracer {
	if tracer == nil {
		tracer = otel.GetTracerProvider().Tracer(InstrumentationName)
	}
	return &ActionTracer{tracer: tracer}
}

// StartAction begins a span for one row action.
func (a *ActionTracer) StartAction(ctx context.Context, kind, action, scopeID string) (context.Context, trace.Span) {
	return a.tracer.Start(ctx, "storeadmin.action."+action,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("storeadmin.kind", kind),
			attribute.String("storeadmin.action", action),
			attribute.String("storeadmin.store_id", scopeID),
		),
	)
}

// StartStep begins a child span for one step of a multi-call action.
func (a *ActionTracer) StartStep(ctx context.Context, step string) (context.Context, trace.Span) {
	return a.tracer.Start(ctx, "storeadmin.step."+step,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("storeadmin.step", step)),
	)
}

// End records err on span, sets the status and ends it.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
