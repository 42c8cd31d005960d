package domain

import (
	"fmt"
	"time"
)

// ModelState tracks the lifecycle of the in-memory classifier
type ModelState string

const (
	ModelUntrained ModelState = "untrained"
	ModelTrained   ModelState = "trained"
	ModelReady     ModelState = "ready"
)

// CanTransition checks if the state transition is allowed.
// Retraining from ready goes back through trained.
func (s ModelState) CanTransition(to ModelState) bool {
	switch s {
	case ModelUntrained:
		return to == ModelTrained
	case ModelTrained:
		return to == ModelReady
	case ModelReady:
		return to == ModelTrained
	default:
		return false
	}
}

// Transition returns the next state or ErrInvalidTransition
func (s ModelState) Transition(to ModelState) (ModelState, error) {
	if !s.CanTransition(to) {
		return s, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s, to)
	}
	return to, nil
}

// ClassDistribution counts rows per tier
type ClassDistribution map[DeliveryTier]int

// Count builds a distribution from a label slice
func Count(labels []DeliveryTier) ClassDistribution {
	d := make(ClassDistribution, 3)
	for _, l := range labels {
		d[l]++
	}
	return d
}

// Total returns the number of rows across all tiers
func (d ClassDistribution) Total() int {
	n := 0
	for _, c := range d {
		n += c
	}
	return n
}

// Majority returns the most frequent tier, ties broken by label order
func (d ClassDistribution) Majority() DeliveryTier {
	var best DeliveryTier
	bestN := -1
	for _, t := range AllTiers() {
		if d[t] > bestN {
			best, bestN = t, d[t]
		}
	}
	return best
}

// ClassMetrics holds per-class scores of an evaluation
type ClassMetrics struct {
	Precision float64 `bson:"precision" json:"precision"`
	Recall    float64 `bson:"recall" json:"recall"`
	F1        float64 `bson:"f1" json:"f1"`
	Support   int     `bson:"support" json:"support"`
}

// EvaluationReport summarizes a hold-out evaluation.
// Confusion rows are true labels and columns predictions, both in AllTiers order.
type EvaluationReport struct {
	Labels      []DeliveryTier                `bson:"labels" json:"labels"`
	Confusion   [3][3]int                     `bson:"confusion" json:"confusion"`
	PerClass    map[DeliveryTier]ClassMetrics `bson:"perClass" json:"perClass"`
	Accuracy    float64                       `bson:"accuracy" json:"accuracy"`
	MacroAvg    ClassMetrics                  `bson:"macroAvg" json:"macroAvg"`
	WeightedAvg ClassMetrics                  `bson:"weightedAvg" json:"weightedAvg"`
	Samples     int                           `bson:"samples" json:"samples"`
}

// TrainingReport is persisted after every training run
type TrainingReport struct {
	RunID            string            `bson:"runId" json:"runId"`
	DatasetSignature string            `bson:"datasetSignature" json:"datasetSignature"`
	TrainedAt        time.Time         `bson:"trainedAt" json:"trainedAt"`
	Rows             int               `bson:"rows" json:"rows"`
	DroppedRows      int               `bson:"droppedRows" json:"droppedRows"`
	TrainRows        int               `bson:"trainRows" json:"trainRows"`
	TestRows         int               `bson:"testRows" json:"testRows"`
	Neighbors        int               `bson:"neighbors" json:"neighbors"`
	Seed             int64             `bson:"seed" json:"seed"`
	Features         []string          `bson:"features" json:"features"`
	Before           ClassDistribution `bson:"before" json:"before"`
	After            ClassDistribution `bson:"after" json:"after"`
	SyntheticRows    int               `bson:"syntheticRows" json:"syntheticRows"`
	RemovedRows      int               `bson:"removedRows" json:"removedRows"`
	Evaluation       *EvaluationReport `bson:"evaluation,omitempty" json:"evaluation,omitempty"`
	DurationMs       int64             `bson:"durationMs" json:"durationMs"`
}

// PredictionBatch summarizes one labelled upload
type PredictionBatch struct {
	BatchID       string              `bson:"batchId" json:"batchId"`
	Source        string              `bson:"source" json:"source"`
	ModelRunID    string              `bson:"modelRunId" json:"modelRunId"`
	Rows          int                 `bson:"rows" json:"rows"`
	TierCounts    ClassDistribution   `bson:"tierCounts" json:"tierCounts"`
	UnknownValues map[string][]string `bson:"unknownValues,omitempty" json:"unknownValues,omitempty"`
	CreatedAt     time.Time           `bson:"createdAt" json:"createdAt"`
}
