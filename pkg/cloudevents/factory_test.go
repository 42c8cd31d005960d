package cloudevents

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/danu-shop/insights/pkg/logging"
)

func TestCreateModelTrainedEvent(t *testing.T) {
	f := NewEventFactory(SourceInsights)
	f.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("x", 3600)) }
	ctx := logging.ContextWithCorrelationID(context.Background(), "corr-9")

	event := f.CreateModelTrainedEvent(ctx, ModelTrainedData{RunID: "run-1", Accuracy: 0.9})

	assert.Equal(t, "1.0", event.SpecVersion)
	assert.Equal(t, ModelTrained, event.Type)
	assert.Equal(t, SourceInsights, event.Source)
	assert.Equal(t, "model/run-1", event.Subject)
	assert.Equal(t, "corr-9", event.CorrelationID)
	assert.Equal(t, time.UTC, event.Time.Location())
	assert.NotEmpty(t, event.ID)
	assert.Empty(t, event.TraceParent, "no span in context")

	raw, err := json.Marshal(event)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "application/json", decoded["datacontenttype"])
	assert.Equal(t, "run-1", decoded["data"].(map[string]any)["runId"])
}

func TestCreateEvent_CarriesTraceParent(t *testing.T) {
	provider := sdktrace.NewTracerProvider()
	ctx, span := provider.Tracer("test").Start(context.Background(), "publish")
	defer span.End()

	event := NewEventFactory(SourceInsights).CreatePredictionsLabeledEvent(ctx, PredictionsLabeledData{BatchID: "b1"})

	assert.Equal(t, "batch/b1", event.Subject)
	assert.Contains(t, event.TraceParent, span.SpanContext().TraceID().String())
}
