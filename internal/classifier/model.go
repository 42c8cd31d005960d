package classifier

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/danu-shop/insights/internal/domain"
	"github.com/danu-shop/insights/internal/features"
	"github.com/danu-shop/insights/internal/resample"
)

// Config holds trainer parameters
type Config struct {
	Neighbors    int
	TestSize     float64
	Seed         int64
	SMOTEK       int
	ENNNeighbors int
	Schema       features.Schema
	// InferSchema replaces the inputs of Schema with the columns classified
	// from the training table, keeping its label and drop list.
	InferSchema bool
}

// DefaultConfig returns k=5, a 70/30 split and seed 42
func DefaultConfig() Config {
	return Config{
		Neighbors:    5,
		TestSize:     0.3,
		Seed:         42,
		SMOTEK:       5,
		ENNNeighbors: 3,
		Schema:       features.DefaultSchema(),
	}
}

// Key identifies the parameters for memoization
func (c Config) Key() string {
	return fmt.Sprintf("k=%d;test=%g;seed=%d;smote=%d;enn=%d;label=%s;in=%v;infer=%t",
		c.Neighbors, c.TestSize, c.Seed, c.SMOTEK, c.ENNNeighbors, c.Schema.Label, c.Schema.Inputs(), c.InferSchema)
}

// Model is a trained, immutable classifier artifact
type Model struct {
	Layout *features.Layout
	Scaler *Scaler
	KNN    *KNN
	Report domain.TrainingReport
}

// Prediction is the result of classifying raw rows
type Prediction struct {
	Labels  []domain.DeliveryTier
	Unknown map[string][]string
}

// PredictMatrix classifies rows already encoded to the model layout
func (m *Model) PredictMatrix(X [][]float64) ([]domain.DeliveryTier, error) {
	scaled, err := m.Scaler.Transform(X)
	if err != nil {
		return nil, err
	}
	return m.KNN.Predict(scaled)
}

// PredictTable re-encodes raw rows to the training layout, scales and classifies them
func (m *Model) PredictTable(table *domain.Table) (*Prediction, error) {
	X, unknown, err := m.Layout.Encode(table)
	if err != nil {
		return nil, err
	}
	labels, err := m.PredictMatrix(X)
	if err != nil {
		return nil, err
	}
	return &Prediction{Labels: labels, Unknown: unknown}, nil
}

// Trainer runs prepare, split, scale, balance, fit and evaluate
type Trainer struct {
	cfg Config
}

// NewTrainer creates a trainer
func NewTrainer(cfg Config) *Trainer {
	return &Trainer{cfg: cfg}
}

// Config returns the trainer parameters
func (t *Trainer) Config() Config {
	return t.cfg
}

// Train fits a model on a labelled table
func (t *Trainer) Train(ctx context.Context, table *domain.Table) (*Model, error) {
	start := time.Now()

	schema := t.cfg.Schema
	if t.cfg.InferSchema {
		schema = features.InferSchema(table, schema.Label, schema.Drop)
	}
	prepared, err := features.NewPreparer(schema).Fit(table)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	trainIdx, testIdx := StratifiedSplit(prepared.Labels, t.cfg.TestSize, t.cfg.Seed)
	xTrain, yTrain := subset(prepared.X, prepared.Labels, trainIdx)
	xTest, yTest := subset(prepared.X, prepared.Labels, testIdx)

	scaler := &Scaler{}
	if err := scaler.Fit(xTrain); err != nil {
		return nil, err
	}
	xTrainScaled, err := scaler.Transform(xTrain)
	if err != nil {
		return nil, err
	}

	balancer := resample.SMOTEENN{K: t.cfg.SMOTEK, ENNNeighbors: t.cfg.ENNNeighbors, Seed: t.cfg.Seed}
	xBal, yBal, stats, err := balancer.Resample(xTrainScaled, yTrain)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	knn := NewKNN(t.cfg.Neighbors)
	if err := knn.Fit(xBal, yBal); err != nil {
		return nil, err
	}

	model := &Model{Layout: prepared.Layout, Scaler: scaler, KNN: knn}

	var evaluation *domain.EvaluationReport
	if len(xTest) > 0 {
		pred, err := model.PredictMatrix(xTest)
		if err != nil {
			return nil, err
		}
		r := Evaluate(yTest, pred)
		evaluation = &r
	}

	model.Report = domain.TrainingReport{
		RunID:         uuid.NewString(),
		TrainedAt:     time.Now().UTC(),
		Rows:          table.Len(),
		DroppedRows:   prepared.Dropped,
		TrainRows:     len(trainIdx),
		TestRows:      len(testIdx),
		Neighbors:     knn.EffectiveK(),
		Seed:          t.cfg.Seed,
		Features:      prepared.Layout.Columns,
		Before:        stats.Before,
		After:         stats.After,
		SyntheticRows: stats.Synthetic,
		RemovedRows:   stats.Removed,
		Evaluation:    evaluation,
		DurationMs:    time.Since(start).Milliseconds(),
	}
	return model, nil
}
