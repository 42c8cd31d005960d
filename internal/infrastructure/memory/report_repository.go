package memory

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"

	"github.com/danu-shop/insights/internal/domain"
)

// ReportRepository keeps reports in process memory. It backs local runs
// without MongoDB and loses everything on restart.
type ReportRepository struct {
	mu      sync.RWMutex
	reports map[string]*domain.TrainingReport
	latest  string
	batches []*domain.PredictionBatch
}

// NewReportRepository creates an empty repository
func NewReportRepository() *ReportRepository {
	return &ReportRepository{reports: make(map[string]*domain.TrainingReport)}
}

func (r *ReportRepository) SaveTrainingReport(ctx context.Context, report *domain.TrainingReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := cloneReport(report)
	r.reports[report.RunID] = stored
	if cur, ok := r.reports[r.latest]; !ok || !stored.TrainedAt.Before(cur.TrainedAt) {
		r.latest = report.RunID
	}
	return nil
}

func (r *ReportRepository) LatestTrainingReport(ctx context.Context) (*domain.TrainingReport, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	report, ok := r.reports[r.latest]
	if !ok {
		return nil, nil
	}
	return cloneReport(report), nil
}

func (r *ReportRepository) SavePredictionBatch(ctx context.Context, batch *domain.PredictionBatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := cloneBatch(batch)
	for i, b := range r.batches {
		if b.BatchID == batch.BatchID {
			r.batches[i] = stored
			return nil
		}
	}
	r.batches = append(r.batches, stored)
	return nil
}

func (r *ReportRepository) ListPredictionBatches(ctx context.Context, limit int) ([]*domain.PredictionBatch, error) {
	r.mu.RLock()
	sorted := make([]*domain.PredictionBatch, len(r.batches))
	for i, b := range r.batches {
		sorted[i] = cloneBatch(b)
	}
	r.mu.RUnlock()

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted, nil
}

func (r *ReportRepository) HealthCheck(ctx context.Context) error {
	return nil
}

// stored values share no maps or slices with callers
func cloneReport(report *domain.TrainingReport) *domain.TrainingReport {
	out := *report
	out.Features = slices.Clone(report.Features)
	out.Before = maps.Clone(report.Before)
	out.After = maps.Clone(report.After)
	if report.Evaluation != nil {
		eval := *report.Evaluation
		eval.Labels = slices.Clone(report.Evaluation.Labels)
		eval.PerClass = maps.Clone(report.Evaluation.PerClass)
		out.Evaluation = &eval
	}
	return &out
}

func cloneBatch(batch *domain.PredictionBatch) *domain.PredictionBatch {
	out := *batch
	out.TierCounts = maps.Clone(batch.TierCounts)
	if batch.UnknownValues != nil {
		out.UnknownValues = make(map[string][]string, len(batch.UnknownValues))
		for col, values := range batch.UnknownValues {
			out.UnknownValues[col] = slices.Clone(values)
		}
	}
	return &out
}
