package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danu-shop/insights/pkg/cloudevents"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func newTestProducer() (*Producer, map[string]*fakeWriter) {
	p := NewProducer(DefaultConfig())
	writers := map[string]*fakeWriter{}
	p.newWriter = func(topic string) MessageWriter {
		w := &fakeWriter{}
		writers[topic] = w
		return w
	}
	return p, writers
}

func testEvent() *cloudevents.CloudEvent {
	return &cloudevents.CloudEvent{
		SpecVersion:   "1.0",
		Type:          cloudevents.ModelTrained,
		Source:        cloudevents.SourceInsights,
		Subject:       "model/run-1",
		ID:            "evt-1",
		Time:          time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Data:          map[string]int{"rows": 3},
		CorrelationID: "corr-1",
	}
}

func headers(msg kafka.Message) map[string]string {
	out := map[string]string{}
	for _, h := range msg.Headers {
		out[h.Key] = string(h.Value)
	}
	return out
}

func TestMessage(t *testing.T) {
	msg, err := Message(testEvent())
	require.NoError(t, err)

	assert.Equal(t, "model/run-1", string(msg.Key))
	h := headers(msg)
	assert.Equal(t, cloudevents.ModelTrained, h["ce-type"])
	assert.Equal(t, "2024-01-02T03:04:05Z", h["ce-time"])
	assert.Equal(t, "corr-1", h["ce-correlationid"])
	_, hasTrace := h["ce-traceparent"]
	assert.False(t, hasTrace)

	var body map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &body))
	assert.Equal(t, "evt-1", body["id"])
}

func TestProducer_ReusesWriterPerTopic(t *testing.T) {
	p, writers := newTestProducer()

	require.NoError(t, p.PublishEvent(context.Background(), Topics.ModelEvents, testEvent()))
	require.NoError(t, p.PublishEvent(context.Background(), Topics.ModelEvents, testEvent()))
	require.NoError(t, p.PublishEvent(context.Background(), Topics.PredictionEvents, testEvent()))

	assert.Len(t, writers, 2)
	assert.Len(t, writers[Topics.ModelEvents].messages, 2)

	require.NoError(t, p.Close())
	assert.True(t, writers[Topics.PredictionEvents].closed)
}

func TestProducer_WrapsWriteError(t *testing.T) {
	p, _ := newTestProducer()
	boom := errors.New("no leader")
	p.newWriter = func(string) MessageWriter { return &fakeWriter{err: boom} }

	err := p.PublishEvent(context.Background(), Topics.ModelEvents, testEvent())

	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), Topics.ModelEvents)
}

func TestParseBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, ParseBrokers(" a:9092, ,b:9092"))
	assert.Nil(t, ParseBrokers(""))
}
