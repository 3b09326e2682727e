package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer starts spans for resolutions, factories and renders. A nil
// *Tracer starts no spans.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer returns a Tracer backed by the global OTel tracer provider.
// Configure the provider before calling it:
//
//	otel.SetTracerProvider(yourProvider)
func NewTracer() *Tracer {
	return &Tracer{tracer: otel.Tracer("blueprint")}
}

// NewTracerFrom returns a Tracer backed by tp.
func NewTracerFrom(tp trace.TracerProvider) *Tracer {
	return &Tracer{tracer: tp.Tracer("blueprint")}
}

// StartResolveSpan starts a span for one component resolution.
func (t *Tracer) StartResolveSpan(ctx context.Context, component, view string, nestLevel int) (context.Context, trace.Span) {
	if t == nil {
		return ctx, nil
	}
	return t.tracer.Start(ctx, "blueprint.resolve",
		trace.WithAttributes(
			attribute.String("component", component),
			attribute.String("view", view),
			attribute.Int("nest_level", nestLevel),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartFactorySpan starts a span for one factory execution.
func (t *Tracer) StartFactorySpan(ctx context.Context, component, factory, scope string) (context.Context, trace.Span) {
	if t == nil {
		return ctx, nil
	}
	return t.tracer.Start(ctx, "blueprint.factory",
		trace.WithAttributes(
			attribute.String("component", component),
			attribute.String("factory", factory),
			attribute.String("scope", scope),
		),
	)
}

// StartRenderSpan starts a span for one renderer invocation.
func (t *Tracer) StartRenderSpan(ctx context.Context, component, kind string) (context.Context, trace.Span) {
	if t == nil {
		return ctx, nil
	}
	return t.tracer.Start(ctx, "blueprint.render",
		trace.WithAttributes(
			attribute.String("component", component),
			attribute.String("kind", kind),
		),
	)
}

// EndSpan completes span, recording err when non-nil. A nil span is
// ignored.
func EndSpan(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
