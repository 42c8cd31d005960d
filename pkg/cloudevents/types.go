package cloudevents

import (
	"time"
)

// Event types emitted by the insights service
const (
	ModelTrained       = "insights.model.trained"
	PredictionsLabeled = "insights.predictions.labeled"
)

// SourceInsights identifies events produced by this service
const SourceInsights = "/danu/insights-service"

// CloudEvent is a CloudEvents v1.0 structured-mode envelope
type CloudEvent struct {
	SpecVersion     string    `json:"specversion"`
	Type            string    `json:"type"`
	Source          string    `json:"source"`
	Subject         string    `json:"subject,omitempty"`
	ID              string    `json:"id"`
	Time            time.Time `json:"time"`
	DataContentType string    `json:"datacontenttype"`
	Data            any       `json:"data"`

	CorrelationID string `json:"correlationid,omitempty"`
	TraceParent   string `json:"traceparent,omitempty"`
	TraceState    string `json:"tracestate,omitempty"`
}

// ClassScore is the per-tier slice of an evaluation
type ClassScore struct {
	Tier      string  `json:"tier"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// ModelTrainedData is the payload of insights.model.trained
type ModelTrainedData struct {
	RunID            string         `json:"runId"`
	DatasetSignature string         `json:"datasetSignature"`
	TrainedAt        time.Time      `json:"trainedAt"`
	Rows             int            `json:"rows"`
	TrainRows        int            `json:"trainRows"`
	TestRows         int            `json:"testRows"`
	Neighbors        int            `json:"neighbors"`
	Accuracy         float64        `json:"accuracy"`
	MacroF1          float64        `json:"macroF1"`
	Classes          []ClassScore   `json:"classes"`
	Before           map[string]int `json:"classesBefore"`
	After            map[string]int `json:"classesAfter"`
}

// PredictionsLabeledData is the payload of insights.predictions.labeled
type PredictionsLabeledData struct {
	BatchID       string              `json:"batchId"`
	Source        string              `json:"source"`
	ModelRunID    string              `json:"modelRunId"`
	Rows          int                 `json:"rows"`
	TierCounts    map[string]int      `json:"tierCounts"`
	UnknownValues map[string][]string `json:"unknownValues,omitempty"`
}
