package telemetry

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestLoggerFrom(t *testing.T) {
	fallback := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	scoped := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	assert.Same(t, fallback, LoggerFrom(context.Background(), fallback))
	assert.Same(t, scoped, LoggerFrom(WithLogger(context.Background(), scoped), fallback))
	assert.Same(t, slog.Default(), LoggerFrom(context.Background(), nil))
}

func TestLogHelpers(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	enriched := EnrichLogger(logger, "page", "home", 2)
	LogResolveStart(enriched, "id-1")
	LogChildError(enriched, "footer", "footer/main", errors.New("gone"))
	LogFactoryError(enriched, "page", "home", "load", "view", errors.New("db down"))
	LogRenderError(enriched, "page", "home", "html", errors.New("parse"))
	LogResolveComplete(enriched, "id-1", 1.5, 3)

	out := buf.String()
	for _, want := range []string{
		"component=page", "view=home", "nest_level=2",
		"child=footer", "address=footer/main",
		"factory=load", "scope=view", `error="db down"`,
		"kind=html",
	} {
		assert.Contains(t, out, want)
	}
	assert.Equal(t, 5, strings.Count(out, "\n"))

	// Nil loggers are ignored.
	assert.Nil(t, EnrichLogger(nil, "a", "b", 0))
	LogResolveStart(nil, "x")
	LogRenderError(nil, "a", "b", "html", errors.New("x"))
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	m.ObserveResolve("page", 10*time.Millisecond, nil)
	m.ObserveResolve("page", 10*time.Millisecond, errors.New("x"))
	m.ObserveFactory("page", "view", time.Millisecond, nil)
	m.ObserveFactory("page", "view", time.Millisecond, errors.New("x"))
	m.RenderError("ejs")
	m.DepthExceeded()
	m.ChildErrorFragment("footer")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.resolves.WithLabelValues("page", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.resolves.WithLabelValues("page", "error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.factoryRuns.WithLabelValues("page", "view")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.factoryErrors.WithLabelValues("page", "view")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.renderErrors.WithLabelValues("ejs")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.depthExceeded))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.childSubstitute.WithLabelValues("footer")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.resolveLatency))

	_, err = NewMetrics(reg)
	assert.Error(t, err, "registering twice fails")
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.ObserveResolve("a", time.Second, nil)
	m.ObserveFactory("a", "view", time.Second, nil)
	m.RenderError("html")
	m.DepthExceeded()
	m.ChildErrorFragment("a")
}

func TestTracer(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tracer := NewTracerFrom(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr)))

	ctx, resolve := tracer.StartResolveSpan(context.Background(), "page", "home", 0)
	_, factory := tracer.StartFactorySpan(ctx, "page", "load", "view")
	EndSpan(factory, errors.New("db down"))
	_, render := tracer.StartRenderSpan(ctx, "page", "html")
	EndSpan(render, nil)
	EndSpan(resolve, nil)

	spans := sr.Ended()
	require.Len(t, spans, 3)

	byName := make(map[string]sdktrace.ReadOnlySpan)
	for _, s := range spans {
		byName[s.Name()] = s
	}
	assert.Equal(t, codes.Error, byName["blueprint.factory"].Status().Code)
	assert.Equal(t, "db down", byName["blueprint.factory"].Status().Description)
	assert.Len(t, byName["blueprint.factory"].Events(), 1, "error recorded as event")
	assert.Equal(t, codes.Ok, byName["blueprint.render"].Status().Code)
	assert.Equal(t, byName["blueprint.resolve"].SpanContext().SpanID(), byName["blueprint.render"].Parent().SpanID())
}

func TestNilTracer(t *testing.T) {
	var tracer *Tracer
	ctx := context.Background()
	got, span := tracer.StartResolveSpan(ctx, "a", "b", 0)
	assert.Equal(t, ctx, got)
	assert.Nil(t, span)
	EndSpan(span, errors.New("ignored"))
}
