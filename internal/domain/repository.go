package domain

import (
	"context"
)

// ReportRepository persists training reports and prediction batch summaries
type ReportRepository interface {
	// SaveTrainingReport stores a finished training run
	SaveTrainingReport(ctx context.Context, report *TrainingReport) error

	// LatestTrainingReport returns the most recent run, or nil when none exists
	LatestTrainingReport(ctx context.Context) (*TrainingReport, error)

	// SavePredictionBatch stores the summary of a labelled upload
	SavePredictionBatch(ctx context.Context, batch *PredictionBatch) error

	// ListPredictionBatches returns the newest batches first
	ListPredictionBatches(ctx context.Context, limit int) ([]*PredictionBatch, error)

	// HealthCheck reports whether the store is reachable
	HealthCheck(ctx context.Context) error
}

// EventPublisher announces pipeline outcomes to other systems
type EventPublisher interface {
	PublishModelTrained(ctx context.Context, report *TrainingReport) error
	PublishPredictionsLabeled(ctx context.Context, batch *PredictionBatch) error
}
