package application

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/danu-shop/insights/internal/classifier"
	"github.com/danu-shop/insights/internal/dataset"
	"github.com/danu-shop/insights/internal/domain"
	"github.com/danu-shop/insights/pkg/logging"
	"github.com/danu-shop/insights/pkg/metrics"
	"github.com/danu-shop/insights/pkg/tracing"
)

// PipelineDeps wires the pipeline service
type PipelineDeps struct {
	Datasets *Datasets
	Loader   *dataset.Loader
	Config   classifier.Config
	Models   *Memo
	Uploads  *Memo
	Reports  domain.ReportRepository
	Events   domain.EventPublisher
	Tracer   trace.Tracer
	Metrics  *metrics.Metrics
	Logger   *logging.Logger
}

// PipelineService trains the delivery tier classifier and serves predictions
type PipelineService struct {
	datasets *Datasets
	loader   *dataset.Loader
	config   classifier.Config
	models   *Memo
	uploads  *Memo
	reports  domain.ReportRepository
	events   domain.EventPublisher
	tracer   trace.Tracer
	metrics  *metrics.Metrics
	logger   *logging.Logger

	mu      sync.RWMutex
	state   domain.ModelState
	current *classifier.Model
}

// NewPipelineService creates a pipeline service with an untrained model
func NewPipelineService(deps PipelineDeps) *PipelineService {
	s := &PipelineService{
		datasets: deps.Datasets,
		loader:   deps.Loader,
		config:   deps.Config,
		models:   deps.Models,
		uploads:  deps.Uploads,
		reports:  deps.Reports,
		events:   deps.Events,
		tracer:   deps.Tracer,
		metrics:  deps.Metrics,
		logger:   deps.Logger.WithComponent("pipeline"),
		state:    domain.ModelUntrained,
	}
	s.publishState()
	return s
}

func (s *PipelineService) publishState() {
	s.metrics.SetModelState(string(s.state),
		string(domain.ModelUntrained), string(domain.ModelTrained), string(domain.ModelReady))
}

func (s *PipelineService) trainerConfig(cmd TrainModelCommand) classifier.Config {
	cfg := s.config
	if cmd.Neighbors > 0 {
		cfg.Neighbors = cmd.Neighbors
	}
	if cmd.TestSize > 0 {
		cfg.TestSize = cmd.TestSize
	}
	if cmd.Seed != nil {
		cfg.Seed = *cmd.Seed
	}
	return cfg
}

// TrainModel trains on the current training dataset. A model trained earlier
// on the same file and parameters is reused without retraining.
func (s *PipelineService) TrainModel(ctx context.Context, cmd TrainModelCommand) (*ModelDTO, error) {
	ctx, span := tracing.StartTimedSpan(ctx, s.tracer, "pipeline.train")
	model, cached, err := s.train(ctx, cmd)
	elapsed := span.End(err)
	s.metrics.RecordTrainingRun(err == nil)

	log := s.logger.WithContext(ctx)
	if err != nil {
		log.WithError(err).Error("Model training failed")
		s.logger.Performance(ctx, "train_model", elapsed, false, nil)
		return nil, err
	}
	s.logger.Performance(ctx, "train_model", elapsed, true, map[string]any{
		"runId":  model.Report.RunID,
		"cached": cached,
	})

	if err := s.promote(model); err != nil {
		return nil, err
	}

	if !cached {
		report := model.Report
		if err := s.reports.SaveTrainingReport(ctx, &report); err != nil {
			log.WithError(err).Warn("Failed to store training report", "runId", report.RunID)
		}
		if err := s.events.PublishModelTrained(ctx, &report); err != nil {
			log.WithError(err).Warn("Failed to publish model trained event", "runId", report.RunID)
		}
		s.logger.Event(ctx, "model.trained", map[string]any{
			"runId":    report.RunID,
			"rows":     report.Rows,
			"accuracy": accuracyOf(&report),
		})
	}

	return s.modelDTO(model, cached), nil
}

func (s *PipelineService) train(ctx context.Context, cmd TrainModelCommand) (*classifier.Model, bool, error) {
	loaded, err := s.datasets.Load(ctx, DatasetTraining)
	if err != nil {
		return nil, false, err
	}
	cfg := s.trainerConfig(cmd)

	// one fit serves every caller waiting on the key
	shared := context.WithoutCancel(ctx)
	return Remember(s.models, loaded.Signature+"|"+cfg.Key(), func() (*classifier.Model, error) {
		return tracing.TracedOperation(shared, s.tracer, "classifier.fit", func(ctx context.Context) (*classifier.Model, error) {
			start := time.Now()
			model, err := classifier.NewTrainer(cfg).Train(ctx, loaded.Table)
			if err != nil {
				return nil, err
			}
			model.Report.DatasetSignature = loaded.Signature
			s.metrics.RecordStage("train", time.Since(start))
			return model, nil
		}, tracing.PipelineSpanAttributes("train", loaded.Name, loaded.Table.Len())...)
	})
}

// promote walks the state machine to ready with model as the serving artifact
func (s *PipelineService) promote(model *classifier.Model) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	trained, err := s.state.Transition(domain.ModelTrained)
	if err != nil {
		return err
	}
	ready, err := trained.Transition(domain.ModelReady)
	if err != nil {
		return err
	}
	s.state = ready
	s.current = model
	s.publishState()
	return nil
}

func (s *PipelineService) snapshot() (domain.ModelState, *classifier.Model) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state, s.current
}

func (s *PipelineService) readyModel() (*classifier.Model, error) {
	state, model := s.snapshot()
	if state != domain.ModelReady || model == nil {
		return nil, domain.ErrModelNotReady
	}
	return model, nil
}

func (s *PipelineService) modelDTO(model *classifier.Model, cached bool) *ModelDTO {
	state, _ := s.snapshot()
	report := model.Report
	return &ModelDTO{
		State:    string(state),
		Cached:   cached,
		Features: model.Layout.Columns,
		Report:   &report,
	}
}

// ModelStatus reports the lifecycle state and the most recent training report.
// Before the first in-process training the stored report of an earlier run is shown.
func (s *PipelineService) ModelStatus(ctx context.Context) (*ModelDTO, error) {
	state, model := s.snapshot()
	if model != nil {
		return s.modelDTO(model, false), nil
	}

	dto := &ModelDTO{State: string(state)}
	report, err := s.reports.LatestTrainingReport(ctx)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("Failed to read latest training report")
		return dto, nil
	}
	dto.Report = report
	return dto, nil
}

// Predict classifies the manual form row
func (s *PipelineService) Predict(ctx context.Context, cmd PredictCommand) (*PredictionDTO, error) {
	model, err := s.readyModel()
	if err != nil {
		return nil, err
	}
	volume := 0.0
	if cmd.Volume != nil {
		volume = *cmd.Volume
	}

	row := domain.NewTable(
		[]string{domain.ColVolume, domain.ColRegion, domain.ColCategoryGroup},
		[][]string{{domain.FormatNumber(volume), cmd.Region, cmd.Category}},
	)
	pred, err := tracing.TracedOperation(ctx, s.tracer, "classifier.predict", func(context.Context) (*classifier.Prediction, error) {
		return model.PredictTable(row)
	}, tracing.PipelineSpanAttributes("predict", "form", 1)...)
	if err != nil {
		return nil, err
	}

	tier := pred.Labels[0]
	s.recordPrediction("form", pred)
	return &PredictionDTO{
		Tier:          string(tier),
		Range:         tierRange(tier),
		ModelRunID:    model.Report.RunID,
		UnknownValues: pred.Unknown,
	}, nil
}

type labelledUpload struct {
	table      *domain.Table
	prediction *classifier.Prediction
	csv        []byte
}

// PredictUpload labels every row of an uploaded table with its predicted tier
func (s *PipelineService) PredictUpload(ctx context.Context, cmd PredictUploadCommand) (*UploadResultDTO, error) {
	model, err := s.readyModel()
	if err != nil {
		return nil, err
	}
	if len(cmd.Content) == 0 {
		return nil, fmt.Errorf("%w: empty upload", domain.ErrMalformedFile)
	}

	ctx, span := tracing.StartTimedSpan(ctx, s.tracer, "pipeline.predict_upload",
		attribute.String("upload.name", cmd.Filename), attribute.Int("upload.bytes", len(cmd.Content)))
	key := dataset.ContentSignature(cmd.Filename, cmd.Content) + "|" + model.Report.RunID
	shared := context.WithoutCancel(ctx)
	result, cached, err := Remember(s.uploads, key, func() (*labelledUpload, error) {
		return s.labelUpload(shared, model, cmd)
	})
	elapsed := span.End(err)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("Upload prediction failed", "file", cmd.Filename)
		return nil, err
	}
	s.logger.Performance(ctx, "predict_upload", elapsed, true, map[string]any{
		"file":   cmd.Filename,
		"rows":   result.table.Len(),
		"cached": cached,
	})

	batch := &domain.PredictionBatch{
		BatchID:       uuid.NewString(),
		Source:        cmd.Filename,
		ModelRunID:    model.Report.RunID,
		Rows:          len(result.prediction.Labels),
		TierCounts:    domain.Count(result.prediction.Labels),
		UnknownValues: result.prediction.Unknown,
		CreatedAt:     time.Now().UTC(),
	}
	s.recordPrediction("upload", result.prediction)

	log := s.logger.WithContext(ctx)
	if err := s.reports.SavePredictionBatch(ctx, batch); err != nil {
		log.WithError(err).Warn("Failed to store prediction batch", "batchId", batch.BatchID)
	}
	if err := s.events.PublishPredictionsLabeled(ctx, batch); err != nil {
		log.WithError(err).Warn("Failed to publish predictions labeled event", "batchId", batch.BatchID)
	}

	return &UploadResultDTO{
		Batch:   ToBatchDTO(batch),
		Columns: result.table.Columns,
		Rows:    result.table.Rows,
		CSV:     result.csv,
	}, nil
}

func (s *PipelineService) labelUpload(ctx context.Context, model *classifier.Model, cmd PredictUploadCommand) (*labelledUpload, error) {
	table, err := s.loader.Read(ctx, cmd.Filename, bytes.NewReader(cmd.Content))
	if err != nil {
		return nil, err
	}

	start := time.Now()
	pred, err := model.PredictTable(table)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordStage("predict", time.Since(start))

	labels := make([]string, len(pred.Labels))
	for i, l := range pred.Labels {
		labels[i] = string(l)
	}
	labelled := table.AppendColumn(domain.ColPredictedTier, labels)

	csv, err := dataset.EncodeCSV(labelled)
	if err != nil {
		return nil, err
	}
	return &labelledUpload{table: labelled, prediction: pred, csv: csv}, nil
}

func (s *PipelineService) recordPrediction(source string, pred *classifier.Prediction) {
	counts := make(map[string]int, 3)
	for tier, n := range domain.Count(pred.Labels) {
		counts[string(tier)] = n
	}
	s.metrics.RecordPredictions(source, counts)
	for col, values := range pred.Unknown {
		s.metrics.RecordUnknownValues(col, len(values))
	}
}

// ListBatches returns the newest prediction batches first
func (s *PipelineService) ListBatches(ctx context.Context, query ListBatchesQuery) ([]BatchDTO, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = 20
	}
	limit = min(limit, 100)
	batches, err := s.reports.ListPredictionBatches(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list prediction batches: %w", err)
	}
	return ToBatchDTOs(batches), nil
}

// Ready reports whether the training dataset and the report store are reachable
func (s *PipelineService) Ready(ctx context.Context) error {
	if err := s.datasets.Check(DatasetTraining); err != nil {
		return err
	}
	return s.reports.HealthCheck(ctx)
}

func accuracyOf(r *domain.TrainingReport) float64 {
	if r.Evaluation == nil {
		return 0
	}
	return r.Evaluation.Accuracy
}
