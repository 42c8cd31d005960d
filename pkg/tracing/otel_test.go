package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func recorderTracer() (*tracetest.SpanRecorder, *sdktrace.TracerProvider) {
	rec := tracetest.NewSpanRecorder()
	return rec, sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
}

func TestInitialize_Disabled(t *testing.T) {
	tp, err := Initialize(context.Background(), DefaultConfig("svc"))
	require.NoError(t, err)

	assert.NotNil(t, tp.Tracer())
	assert.NoError(t, tp.Shutdown(context.Background()))
}

func TestTracedOperation(t *testing.T) {
	rec, provider := recorderTracer()
	tracer := provider.Tracer("test")

	got, err := TracedOperation(context.Background(), tracer, "train", func(ctx context.Context) (int, error) {
		assert.NotEmpty(t, GetTraceID(ctx))
		return 7, nil
	}, PipelineSpanAttributes("train", "modelo.xlsx", 10)...)
	require.NoError(t, err)
	assert.Equal(t, 7, got)

	_, err = TracedOperation(context.Background(), tracer, "predict", func(context.Context) (int, error) {
		return 0, errors.New("bad input")
	})
	assert.Error(t, err)

	spans := rec.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "train", spans[0].Name())
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
	assert.Equal(t, codes.Error, spans[1].Status().Code)
}

func TestTimedSpan(t *testing.T) {
	rec, provider := recorderTracer()

	_, span := StartTimedSpan(context.Background(), provider.Tracer("test"), "load")
	span.End(errors.New("missing"))

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Len(t, spans[0].Events(), 1, "error recorded as span event")
}

func TestMapCarrier(t *testing.T) {
	c := MapCarrier{}
	c.Set("traceparent", "x")

	assert.Equal(t, "x", c.Get("traceparent"))
	assert.Equal(t, []string{"traceparent"}, c.Keys())
	assert.Empty(t, GetTraceID(context.Background()))
}
