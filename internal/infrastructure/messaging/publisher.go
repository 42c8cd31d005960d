package messaging

import (
	"context"

	"go.opentelemetry.io/otel/trace"

	"github.com/danu-shop/insights/internal/domain"
	"github.com/danu-shop/insights/pkg/cloudevents"
	"github.com/danu-shop/insights/pkg/kafka"
	"github.com/danu-shop/insights/pkg/logging"
	"github.com/danu-shop/insights/pkg/metrics"
	"github.com/danu-shop/insights/pkg/resilience"
	"github.com/danu-shop/insights/pkg/tracing"
)

// EventProducer sends an envelope to a topic; *kafka.Producer satisfies it
type EventProducer interface {
	PublishEvent(ctx context.Context, topic string, event *cloudevents.CloudEvent) error
}

// KafkaPublisher announces pipeline outcomes as CloudEvents on Kafka
type KafkaPublisher struct {
	producer EventProducer
	factory  *cloudevents.EventFactory
	breaker  *resilience.CircuitBreaker
	tracer   trace.Tracer
	metrics  *metrics.Metrics
	logger   *logging.Logger
}

// NewKafkaPublisher creates a publisher guarded by a circuit breaker
func NewKafkaPublisher(producer EventProducer, factory *cloudevents.EventFactory, breaker *resilience.CircuitBreaker, tracer trace.Tracer, m *metrics.Metrics, logger *logging.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		producer: producer,
		factory:  factory,
		breaker:  breaker,
		tracer:   tracer,
		metrics:  m,
		logger:   logger.WithComponent("kafka-publisher"),
	}
}

func (p *KafkaPublisher) publish(ctx context.Context, topic string, event *cloudevents.CloudEvent) error {
	ctx, span := tracing.StartTimedSpan(ctx, p.tracer, "kafka.publish", tracing.MessagingSpanAttributes(topic, "publish")...)
	err := p.breaker.Execute(ctx, func(ctx context.Context) error {
		return p.producer.PublishEvent(ctx, topic, event)
	})
	elapsed := span.End(err)
	p.metrics.RecordKafkaPublish(topic, event.Type, err == nil, elapsed)

	if err != nil {
		return err
	}
	p.logger.WithContext(ctx).Debug("Event published",
		"topic", topic, "type", event.Type, "eventId", event.ID, "subject", event.Subject)
	return nil
}

// PublishModelTrained emits insights.model.trained
func (p *KafkaPublisher) PublishModelTrained(ctx context.Context, report *domain.TrainingReport) error {
	event := p.factory.CreateModelTrainedEvent(ctx, ModelTrainedData(report))
	return p.publish(ctx, kafka.Topics.ModelEvents, event)
}

// PublishPredictionsLabeled emits insights.predictions.labeled
func (p *KafkaPublisher) PublishPredictionsLabeled(ctx context.Context, batch *domain.PredictionBatch) error {
	event := p.factory.CreatePredictionsLabeledEvent(ctx, PredictionsLabeledData(batch))
	return p.publish(ctx, kafka.Topics.PredictionEvents, event)
}

// ModelTrainedData maps a training report to its event payload
func ModelTrainedData(r *domain.TrainingReport) cloudevents.ModelTrainedData {
	data := cloudevents.ModelTrainedData{
		RunID:            r.RunID,
		DatasetSignature: r.DatasetSignature,
		TrainedAt:        r.TrainedAt,
		Rows:             r.Rows,
		TrainRows:        r.TrainRows,
		TestRows:         r.TestRows,
		Neighbors:        r.Neighbors,
		Before:           tierCounts(r.Before),
		After:            tierCounts(r.After),
	}
	if ev := r.Evaluation; ev != nil {
		data.Accuracy = ev.Accuracy
		data.MacroF1 = ev.MacroAvg.F1
		for _, tier := range domain.AllTiers() {
			m := ev.PerClass[tier]
			data.Classes = append(data.Classes, cloudevents.ClassScore{
				Tier:      string(tier),
				Precision: m.Precision,
				Recall:    m.Recall,
				F1:        m.F1,
				Support:   m.Support,
			})
		}
	}
	return data
}

// PredictionsLabeledData maps a prediction batch to its event payload
func PredictionsLabeledData(b *domain.PredictionBatch) cloudevents.PredictionsLabeledData {
	return cloudevents.PredictionsLabeledData{
		BatchID:       b.BatchID,
		Source:        b.Source,
		ModelRunID:    b.ModelRunID,
		Rows:          b.Rows,
		TierCounts:    tierCounts(b.TierCounts),
		UnknownValues: b.UnknownValues,
	}
}

func tierCounts(d domain.ClassDistribution) map[string]int {
	out := make(map[string]int, 3)
	for _, tier := range domain.AllTiers() {
		out[string(tier)] = d[tier]
	}
	return out
}

// NoopPublisher drops events. It is used when Kafka is disabled.
type NoopPublisher struct {
	logger *logging.Logger
}

// NewNoopPublisher creates a publisher that only logs
func NewNoopPublisher(logger *logging.Logger) *NoopPublisher {
	return &NoopPublisher{logger: logger.WithComponent("noop-publisher")}
}

func (p *NoopPublisher) PublishModelTrained(ctx context.Context, report *domain.TrainingReport) error {
	p.logger.WithContext(ctx).Debug("Event publishing disabled", "type", cloudevents.ModelTrained, "runId", report.RunID)
	return nil
}

func (p *NoopPublisher) PublishPredictionsLabeled(ctx context.Context, batch *domain.PredictionBatch) error {
	p.logger.WithContext(ctx).Debug("Event publishing disabled", "type", cloudevents.PredictionsLabeled, "batchId", batch.BatchID)
	return nil
}

var (
	_ domain.EventPublisher = (*KafkaPublisher)(nil)
	_ domain.EventPublisher = (*NoopPublisher)(nil)
	_ EventProducer         = (*kafka.Producer)(nil)
)
