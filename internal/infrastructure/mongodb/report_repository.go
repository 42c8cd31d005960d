package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/danu-shop/insights/internal/domain"
	"github.com/danu-shop/insights/pkg/metrics"
	"github.com/danu-shop/insights/pkg/mongodb"
)

// Collection names
const (
	TrainingReportsCollection   = "training_reports"
	PredictionBatchesCollection = "prediction_batches"
)

type mongoCollection interface {
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) mongoSingleResult
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (mongoCursor, error)
}

type mongoSingleResult interface {
	Decode(v interface{}) error
}

type mongoCursor interface {
	All(ctx context.Context, results interface{}) error
	Close(ctx context.Context) error
}

type mongoCollectionWrapper struct {
	collection *mongo.Collection
}

func (w mongoCollectionWrapper) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	return w.collection.UpdateOne(ctx, filter, update, opts...)
}

func (w mongoCollectionWrapper) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) mongoSingleResult {
	return w.collection.FindOne(ctx, filter, opts...)
}

func (w mongoCollectionWrapper) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (mongoCursor, error) {
	cursor, err := w.collection.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	return cursor, nil
}

// ReportRepository stores training reports and prediction batches in MongoDB
type ReportRepository struct {
	reports mongoCollection
	batches mongoCollection
	ping    func(ctx context.Context) error
	metrics *metrics.Metrics
}

// NewReportRepository binds the repository to client's database and creates its indexes
func NewReportRepository(ctx context.Context, client *mongodb.Client, m *metrics.Metrics) (*ReportRepository, error) {
	reports := client.Collection(TrainingReportsCollection)
	batches := client.Collection(PredictionBatchesCollection)

	indexCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := mongodb.EnsureUniqueIndex(indexCtx, reports, "runId"); err != nil {
		return nil, err
	}
	if err := mongodb.EnsureDescendingIndex(indexCtx, reports, "trainedAt"); err != nil {
		return nil, err
	}
	if err := mongodb.EnsureUniqueIndex(indexCtx, batches, "batchId"); err != nil {
		return nil, err
	}
	if err := mongodb.EnsureDescendingIndex(indexCtx, batches, "createdAt"); err != nil {
		return nil, err
	}

	return newReportRepository(
		mongoCollectionWrapper{collection: reports},
		mongoCollectionWrapper{collection: batches},
		client.HealthCheck,
		m,
	), nil
}

func newReportRepository(reports, batches mongoCollection, ping func(ctx context.Context) error, m *metrics.Metrics) *ReportRepository {
	return &ReportRepository{reports: reports, batches: batches, ping: ping, metrics: m}
}

func (r *ReportRepository) observe(collection, operation string, start time.Time, err error) {
	if r.metrics != nil {
		r.metrics.RecordMongoDBOperation(collection, operation, err == nil, time.Since(start))
	}
}

func (r *ReportRepository) SaveTrainingReport(ctx context.Context, report *domain.TrainingReport) (err error) {
	defer func(start time.Time) { r.observe(TrainingReportsCollection, "upsert", start, err) }(time.Now())

	filter := bson.M{"runId": report.RunID}
	update := bson.M{"$set": report}
	if _, err = r.reports.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
		return fmt.Errorf("failed to save training report: %w", err)
	}
	return nil
}

func (r *ReportRepository) LatestTrainingReport(ctx context.Context) (*domain.TrainingReport, error) {
	start := time.Now()
	opts := options.FindOne().SetSort(bson.D{{Key: "trainedAt", Value: -1}})

	var report domain.TrainingReport
	err := r.reports.FindOne(ctx, bson.M{}, opts).Decode(&report)
	if errors.Is(err, mongo.ErrNoDocuments) {
		r.observe(TrainingReportsCollection, "find_latest", start, nil)
		return nil, nil
	}
	r.observe(TrainingReportsCollection, "find_latest", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to read latest training report: %w", err)
	}
	return &report, nil
}

func (r *ReportRepository) SavePredictionBatch(ctx context.Context, batch *domain.PredictionBatch) (err error) {
	defer func(start time.Time) { r.observe(PredictionBatchesCollection, "upsert", start, err) }(time.Now())

	filter := bson.M{"batchId": batch.BatchID}
	update := bson.M{"$set": batch}
	if _, err = r.batches.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
		return fmt.Errorf("failed to save prediction batch: %w", err)
	}
	return nil
}

func (r *ReportRepository) ListPredictionBatches(ctx context.Context, limit int) ([]*domain.PredictionBatch, error) {
	start := time.Now()
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.batches.Find(ctx, bson.M{}, opts)
	if err != nil {
		r.observe(PredictionBatchesCollection, "find", start, err)
		return nil, fmt.Errorf("failed to list prediction batches: %w", err)
	}
	defer cursor.Close(ctx)

	var batches []*domain.PredictionBatch
	err = cursor.All(ctx, &batches)
	r.observe(PredictionBatchesCollection, "find", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to decode prediction batches: %w", err)
	}
	return batches, nil
}

func (r *ReportRepository) HealthCheck(ctx context.Context) error {
	return r.ping(ctx)
}
