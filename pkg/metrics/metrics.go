package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the insights service collectors
type Metrics struct {
	serviceName string
	registry    *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Pipeline metrics
	TrainingRuns        *prometheus.CounterVec
	StageDuration       *prometheus.HistogramVec
	PredictionsTotal    *prometheus.CounterVec
	UnknownCategories   *prometheus.CounterVec
	ModelState          *prometheus.GaugeVec
	DatasetRows         *prometheus.GaugeVec
	CacheLookups        *prometheus.CounterVec

	// Infrastructure metrics
	KafkaEventsPublished     *prometheus.CounterVec
	KafkaPublishDuration     *prometheus.HistogramVec
	MongoDBOperations        *prometheus.CounterVec
	MongoDBOperationDuration *prometheus.HistogramVec
	CircuitBreakerState      *prometheus.GaugeVec
	CircuitBreakerTrips      *prometheus.CounterVec
}

// Config holds metrics configuration
type Config struct {
	ServiceName string
	Namespace   string
}

// DefaultConfig returns default metrics configuration
func DefaultConfig(serviceName string) *Config {
	return &Config{
		ServiceName: serviceName,
		Namespace:   "insights",
	}
}

var (
	latencyBuckets  = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	pipelineBuckets = []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120}
)

// New creates a new Metrics instance on its own registry
func New(config *Config) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ns := config.Namespace
	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: name, Help: help}, append([]string{"service"}, labels...))
	}
	histogram := func(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
		return prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: ns, Name: name, Help: help, Buckets: buckets}, append([]string{"service"}, labels...))
	}
	gauge := func(name, help string, labels ...string) *prometheus.GaugeVec {
		return prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: ns, Name: name, Help: help}, append([]string{"service"}, labels...))
	}

	m := &Metrics{
		serviceName: config.ServiceName,
		registry:    registry,

		HTTPRequestsTotal:   counter("http_requests_total", "Total number of HTTP requests", "method", "path", "status"),
		HTTPRequestDuration: histogram("http_request_duration_seconds", "HTTP request duration in seconds", latencyBuckets, "method", "path"),
		HTTPRequestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   ns,
			Name:        "http_requests_in_flight",
			Help:        "Number of HTTP requests currently being processed",
			ConstLabels: prometheus.Labels{"service": config.ServiceName},
		}),

		TrainingRuns:      counter("training_runs_total", "Total number of model training runs", "status"),
		StageDuration:     histogram("pipeline_stage_duration_seconds", "Duration of pipeline stages in seconds", pipelineBuckets, "stage"),
		PredictionsTotal:  counter("predictions_total", "Rows classified per delivery tier", "source", "tier"),
		UnknownCategories: counter("unknown_category_values_total", "Unseen categorical values mapped to the reference level", "column"),
		ModelState:        gauge("model_state", "1 for the current model lifecycle state", "state"),
		DatasetRows:       gauge("dataset_rows", "Rows in the last loaded dataset", "dataset"),
		CacheLookups:      counter("cache_lookups_total", "Memo cache lookups", "cache", "result"),

		KafkaEventsPublished:     counter("kafka_events_published_total", "Total number of Kafka events published", "topic", "event_type", "status"),
		KafkaPublishDuration:     histogram("kafka_publish_duration_seconds", "Kafka publish duration in seconds", latencyBuckets[:9], "topic"),
		MongoDBOperations:        counter("mongodb_operations_total", "Total number of MongoDB operations", "collection", "operation", "status"),
		MongoDBOperationDuration: histogram("mongodb_operation_duration_seconds", "MongoDB operation duration in seconds", latencyBuckets[:10], "collection", "operation"),
		CircuitBreakerState:      gauge("circuit_breaker_state", "Circuit breaker state (0=closed, 1=half-open, 2=open)", "name"),
		CircuitBreakerTrips:      counter("circuit_breaker_trips_total", "Total number of circuit breaker trips", "name"),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.TrainingRuns,
		m.StageDuration,
		m.PredictionsTotal,
		m.UnknownCategories,
		m.ModelState,
		m.DatasetRows,
		m.CacheLookups,
		m.KafkaEventsPublished,
		m.KafkaPublishDuration,
		m.MongoDBOperations,
		m.MongoDBOperationDuration,
		m.CircuitBreakerState,
		m.CircuitBreakerTrips,
	)

	return m
}

// Handler returns an HTTP handler for metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func status(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path string, code int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(m.serviceName, method, path, strconv.Itoa(code)).Inc()
	m.HTTPRequestDuration.WithLabelValues(m.serviceName, method, path).Observe(duration.Seconds())
}

// IncrementHTTPRequestsInFlight increments in-flight requests
func (m *Metrics) IncrementHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Inc()
}

// DecrementHTTPRequestsInFlight decrements in-flight requests
func (m *Metrics) DecrementHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Dec()
}

// RecordTrainingRun records a finished training attempt
func (m *Metrics) RecordTrainingRun(success bool) {
	m.TrainingRuns.WithLabelValues(m.serviceName, status(success)).Inc()
}

// RecordStage records the duration of one pipeline stage
func (m *Metrics) RecordStage(stage string, duration time.Duration) {
	m.StageDuration.WithLabelValues(m.serviceName, stage).Observe(duration.Seconds())
}

// RecordPredictions adds classified rows per tier
func (m *Metrics) RecordPredictions(source string, perTier map[string]int) {
	for tier, n := range perTier {
		m.PredictionsTotal.WithLabelValues(m.serviceName, source, tier).Add(float64(n))
	}
}

// RecordUnknownValues counts unseen categorical values per column
func (m *Metrics) RecordUnknownValues(column string, n int) {
	m.UnknownCategories.WithLabelValues(m.serviceName, column).Add(float64(n))
}

// SetModelState marks the current lifecycle state
func (m *Metrics) SetModelState(current string, all ...string) {
	for _, s := range all {
		v := 0.0
		if s == current {
			v = 1
		}
		m.ModelState.WithLabelValues(m.serviceName, s).Set(v)
	}
}

// SetDatasetRows records the size of a loaded dataset
func (m *Metrics) SetDatasetRows(dataset string, rows int) {
	m.DatasetRows.WithLabelValues(m.serviceName, dataset).Set(float64(rows))
}

// RecordCacheLookup records a memo cache hit or miss
func (m *Metrics) RecordCacheLookup(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(m.serviceName, cache, result).Inc()
}

// RecordKafkaPublish records a Kafka publish event
func (m *Metrics) RecordKafkaPublish(topic, eventType string, success bool, duration time.Duration) {
	m.KafkaEventsPublished.WithLabelValues(m.serviceName, topic, eventType, status(success)).Inc()
	m.KafkaPublishDuration.WithLabelValues(m.serviceName, topic).Observe(duration.Seconds())
}

// RecordMongoDBOperation records a MongoDB operation
func (m *Metrics) RecordMongoDBOperation(collection, operation string, success bool, duration time.Duration) {
	m.MongoDBOperations.WithLabelValues(m.serviceName, collection, operation, status(success)).Inc()
	m.MongoDBOperationDuration.WithLabelValues(m.serviceName, collection, operation).Observe(duration.Seconds())
}

// SetCircuitBreakerState sets the circuit breaker state
func (m *Metrics) SetCircuitBreakerState(name string, state int) {
	m.CircuitBreakerState.WithLabelValues(m.serviceName, name).Set(float64(state))
}

// RecordCircuitBreakerTrip records a circuit breaker trip
func (m *Metrics) RecordCircuitBreakerTrip(name string) {
	m.CircuitBreakerTrips.WithLabelValues(m.serviceName, name).Inc()
}
