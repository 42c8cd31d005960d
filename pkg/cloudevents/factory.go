package cloudevents

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/propagation"

	"github.com/danu-shop/insights/pkg/logging"
)

// EventFactory creates CloudEvents for insights events
type EventFactory struct {
	source string
	now    func() time.Time
}

// NewEventFactory creates a new EventFactory for a specific source
func NewEventFactory(source string) *EventFactory {
	return &EventFactory{source: source, now: time.Now}
}

// CreateEvent builds an envelope, copying the correlation ID and W3C trace
// context carried by ctx
func (f *EventFactory) CreateEvent(ctx context.Context, eventType, subject string, data any) *CloudEvent {
	event := &CloudEvent{
		SpecVersion:     "1.0",
		Type:            eventType,
		Source:          f.source,
		Subject:         subject,
		ID:              uuid.NewString(),
		Time:            f.now().UTC(),
		DataContentType: "application/json",
		Data:            data,
		CorrelationID:   logging.CorrelationIDFromContext(ctx),
	}

	carrier := propagation.MapCarrier{}
	propagation.TraceContext{}.Inject(ctx, carrier)
	event.TraceParent = carrier.Get("traceparent")
	event.TraceState = carrier.Get("tracestate")

	return event
}

// CreateModelTrainedEvent creates an insights.model.trained event
func (f *EventFactory) CreateModelTrainedEvent(ctx context.Context, data ModelTrainedData) *CloudEvent {
	return f.CreateEvent(ctx, ModelTrained, "model/"+data.RunID, data)
}

// CreatePredictionsLabeledEvent creates an insights.predictions.labeled event
func (f *EventFactory) CreatePredictionsLabeledEvent(ctx context.Context, data PredictionsLabeledData) *CloudEvent {
	return f.CreateEvent(ctx, PredictionsLabeled, "batch/"+data.BatchID, data)
}
