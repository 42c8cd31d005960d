package application

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/danu-shop/insights/internal/analytics"
	"github.com/danu-shop/insights/internal/classifier"
	"github.com/danu-shop/insights/internal/dataset"
	"github.com/danu-shop/insights/internal/domain"
	"github.com/danu-shop/insights/pkg/logging"
	"github.com/danu-shop/insights/pkg/metrics"
)

// MockReportRepository keeps reports in memory
type MockReportRepository struct {
	mu        sync.Mutex
	reports   []*domain.TrainingReport
	batches   []*domain.PredictionBatch
	saveErr   error
	healthErr error
	lastLimit int
}

func (m *MockReportRepository) SaveTrainingReport(ctx context.Context, report *domain.TrainingReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.reports = append(m.reports, report)
	return nil
}

func (m *MockReportRepository) LatestTrainingReport(ctx context.Context) (*domain.TrainingReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.reports) == 0 {
		return nil, nil
	}
	return m.reports[len(m.reports)-1], nil
}

func (m *MockReportRepository) SavePredictionBatch(ctx context.Context, batch *domain.PredictionBatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.batches = append(m.batches, batch)
	return nil
}

func (m *MockReportRepository) ListPredictionBatches(ctx context.Context, limit int) ([]*domain.PredictionBatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastLimit = limit
	var out []*domain.PredictionBatch
	for i := len(m.batches) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.batches[i])
	}
	return out, nil
}

func (m *MockReportRepository) HealthCheck(ctx context.Context) error {
	return m.healthErr
}

// MockEventPublisher records published events
type MockEventPublisher struct {
	mu         sync.Mutex
	trained    []*domain.TrainingReport
	labeled    []*domain.PredictionBatch
	publishErr error
}

func (m *MockEventPublisher) PublishModelTrained(ctx context.Context, report *domain.TrainingReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.publishErr != nil {
		return m.publishErr
	}
	m.trained = append(m.trained, report)
	return nil
}

func (m *MockEventPublisher) PublishPredictionsLabeled(ctx context.Context, batch *domain.PredictionBatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.publishErr != nil {
		return m.publishErr
	}
	m.labeled = append(m.labeled, batch)
	return nil
}

var trainingColumns = []string{
	domain.ColOrderStatus, domain.ColPaymentType, domain.ColInstallments, domain.ColPayment,
	domain.ColProductID, domain.ColPrice, domain.ColFreightCost,
	domain.ColProductCategory, domain.ColPurchaseFrequency,
	domain.ColItemsPerOrder, domain.ColVolume, domain.ColCategoryGroup,
	domain.ColCorrectedSequence, domain.ColRegion, domain.ColDeliveryClass,
	domain.ColDeliveryDays,
}

func trainingRow(volume int, region, group string, days int) []string {
	return []string{
		"delivered", "credit_card", "1", "100",
		fmt.Sprintf("p%d", volume), "90", "10",
		"cama_mesa_banho", "1",
		"1", fmt.Sprint(volume), group,
		"1", region, "x",
		fmt.Sprint(days),
	}
}

// trainingTable is separable: small Sur orders ship fast, big Norte orders ship slow
func trainingTable() *domain.Table {
	var rows [][]string
	for i := 0; i < 12; i++ {
		rows = append(rows, trainingRow(1+i%3, "Sur", "Hogar", 1+i%3))
	}
	for i := 0; i < 6; i++ {
		rows = append(rows, trainingRow(50+i%2, "Centro", "Moda", 5+i%2))
	}
	for i := 0; i < 20; i++ {
		rows = append(rows, trainingRow(200+i%5, "Norte", "Tecnologia", 10+i%10))
	}
	return domain.NewTable(trainingColumns, rows)
}

func deliveryFixture() *domain.Table {
	return domain.NewTable(
		[]string{
			domain.ColCustomerID, domain.ColPurchaseTimestamp, domain.ColVolume, domain.ColProductCategory,
			domain.ColCustomerState, domain.ColDeliveryDays,
		},
		[][]string{
			{"c1", "2018-01-05 10:00:00", "10", "cama", "SP", "2"},
			{"c1", "2018-02-05 10:00:00", "20", "cama", "SP", "5"},
			{"c2", "2018-01-10 10:00:00", "30", "cama", "RJ", "10"},
			{"c3", "2018-01-11 10:00:00", "40", "belleza", "SP", "12"},
			{"c3", "2018-01-20 10:00:00", "50", "belleza", "SP", "3"},
		},
	)
}

func projectionFixture() *domain.Table {
	return domain.NewTable(
		[]string{domain.ColCategoryGroup, domain.ColRegion, domain.ColVolume, domain.ColSimulatedDelivery, domain.ColRetention},
		[][]string{
			{"Hogar", "Sur", "10", "2", "1"},
			{"Hogar", "Norte", "20", "5", "0"},
			{"Moda", "Sur", "30", "9", "1"},
		},
	)
}

func writeCSV(t *testing.T, dir, name string, table *domain.Table) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, dataset.WriteCSV(f, table))
	return path
}

type testEnv struct {
	paths    DatasetPaths
	reports  *MockReportRepository
	events   *MockEventPublisher
	metrics  *metrics.Metrics
	datasets *Datasets
	pipeline *PipelineService
	board    *DashboardService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	paths := DatasetPaths{
		Training:   writeCSV(t, dir, "UPDINTEGRADO.csv", trainingTable()),
		Delivery:   writeCSV(t, dir, "entregas.csv", deliveryFixture()),
		Projection: writeCSV(t, dir, "ProyeccionesFinal.csv", projectionFixture()),
	}
	return newTestEnvWithPaths(t, paths)
}

func newTestEnvWithPaths(t *testing.T, paths DatasetPaths) *testEnv {
	t.Helper()
	m := metrics.New(metrics.DefaultConfig("test-service"))
	logger := logging.NewNop()
	tracer := noop.NewTracerProvider().Tracer("test")
	loader := dataset.NewLoader()

	datasets := NewDatasets(paths, loader, NewMemo("datasets", 0, m), tracer, m, logger)
	reports := &MockReportRepository{}
	events := &MockEventPublisher{}

	pipeline := NewPipelineService(PipelineDeps{
		Datasets: datasets,
		Loader:   loader,
		Config:   classifier.DefaultConfig(),
		Models:   NewMemo("models", 0, m),
		Uploads:  NewMemo("uploads", 0, m),
		Reports:  reports,
		Events:   events,
		Tracer:   tracer,
		Metrics:  m,
		Logger:   logger,
	})
	board := NewDashboardService(datasets, NewMemo("kpis", 0, m), analytics.DefaultBaselines(), logger)

	return &testEnv{
		paths:    paths,
		reports:  reports,
		events:   events,
		metrics:  m,
		datasets: datasets,
		pipeline: pipeline,
		board:    board,
	}
}

func touch(t *testing.T, path string) {
	t.Helper()
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))
}
