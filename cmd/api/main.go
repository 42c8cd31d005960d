package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"github.com/danu-shop/insights/internal/analytics"
	"github.com/danu-shop/insights/internal/api/handlers"
	"github.com/danu-shop/insights/internal/application"
	"github.com/danu-shop/insights/internal/classifier"
	"github.com/danu-shop/insights/internal/dataset"
	"github.com/danu-shop/insights/internal/domain"
	"github.com/danu-shop/insights/internal/infrastructure/memory"
	"github.com/danu-shop/insights/internal/infrastructure/messaging"
	mongoRepo "github.com/danu-shop/insights/internal/infrastructure/mongodb"
	"github.com/danu-shop/insights/pkg/cloudevents"
	"github.com/danu-shop/insights/pkg/kafka"
	"github.com/danu-shop/insights/pkg/logging"
	"github.com/danu-shop/insights/pkg/metrics"
	"github.com/danu-shop/insights/pkg/middleware"
	"github.com/danu-shop/insights/pkg/mongodb"
	"github.com/danu-shop/insights/pkg/resilience"
	"github.com/danu-shop/insights/pkg/tracing"
)

const serviceName = "insights-service"

// Report store backends
const (
	ReportStoreMemory  = "memory"
	ReportStoreMongoDB = "mongodb"
)

func main() {
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)

	if err := run(context.Background(), loadConfig(), appDependencies{}, signalCh); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type tracerProvider interface {
	Tracer() trace.Tracer
	Shutdown(ctx context.Context) error
}

type eventProducer interface {
	messaging.EventProducer
	Close() error
}

type httpServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

type appDependencies struct {
	initTracing         func(ctx context.Context, cfg *tracing.Config) (tracerProvider, error)
	newMetrics          func(cfg *metrics.Config) *metrics.Metrics
	loadBaselines       func(path string) (analytics.Baselines, error)
	newMongoClient      func(ctx context.Context, cfg *mongodb.Config) (*mongodb.Client, error)
	closeMongoClient    func(ctx context.Context, client *mongodb.Client) error
	newMongoReportRepo  func(ctx context.Context, client *mongodb.Client, m *metrics.Metrics) (domain.ReportRepository, error)
	newMemoryReportRepo func() domain.ReportRepository
	newKafkaProducer    func(cfg *kafka.Config) eventProducer
	newEventFactory     func(source string) *cloudevents.EventFactory
	newHTTPServer       func(addr string, handler http.Handler) httpServer
}

func defaultDependencies() appDependencies {
	return appDependencies{
		initTracing: func(ctx context.Context, cfg *tracing.Config) (tracerProvider, error) {
			return tracing.Initialize(ctx, cfg)
		},
		newMetrics:     metrics.New,
		loadBaselines:  analytics.LoadBaselines,
		newMongoClient: mongodb.NewClient,
		closeMongoClient: func(ctx context.Context, client *mongodb.Client) error {
			return client.Close(ctx)
		},
		newMongoReportRepo: func(ctx context.Context, client *mongodb.Client, m *metrics.Metrics) (domain.ReportRepository, error) {
			return mongoRepo.NewReportRepository(ctx, client, m)
		},
		newMemoryReportRepo: func() domain.ReportRepository {
			return memory.NewReportRepository()
		},
		newKafkaProducer: func(cfg *kafka.Config) eventProducer {
			return kafka.NewProducer(cfg)
		},
		newEventFactory: cloudevents.NewEventFactory,
		newHTTPServer: func(addr string, handler http.Handler) httpServer {
			return &http.Server{
				Addr:         addr,
				Handler:      handler,
				ReadTimeout:  30 * time.Second,
				WriteTimeout: 120 * time.Second,
			}
		},
	}
}

func (d appDependencies) withDefaults() appDependencies {
	def := defaultDependencies()
	if d.initTracing == nil {
		d.initTracing = def.initTracing
	}
	if d.newMetrics == nil {
		d.newMetrics = def.newMetrics
	}
	if d.loadBaselines == nil {
		d.loadBaselines = def.loadBaselines
	}
	if d.newMongoClient == nil {
		d.newMongoClient = def.newMongoClient
	}
	if d.closeMongoClient == nil {
		d.closeMongoClient = def.closeMongoClient
	}
	if d.newMongoReportRepo == nil {
		d.newMongoReportRepo = def.newMongoReportRepo
	}
	if d.newMemoryReportRepo == nil {
		d.newMemoryReportRepo = def.newMemoryReportRepo
	}
	if d.newKafkaProducer == nil {
		d.newKafkaProducer = def.newKafkaProducer
	}
	if d.newEventFactory == nil {
		d.newEventFactory = def.newEventFactory
	}
	if d.newHTTPServer == nil {
		d.newHTTPServer = def.newHTTPServer
	}
	return d
}

func run(ctx context.Context, config *Config, deps appDependencies, signalCh <-chan os.Signal) error {
	deps = deps.withDefaults()
	if config == nil {
		config = loadConfig()
	}

	logger := logging.New(logging.DefaultConfig(serviceName))
	logger.SetDefault()

	logger.Info("Starting insights-service API")

	// Tracing failures fall back to a no-op tracer
	var tp tracerProvider = tracing.Noop(serviceName)
	provider, err := deps.initTracing(ctx, config.Tracing)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
	} else if provider != nil {
		tp = provider
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := provider.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Failed to shutdown tracer")
			}
		}()
		logger.Info("Tracing initialized", "enabled", config.Tracing.Enabled, "endpoint", config.Tracing.OTLPEndpoint)
	}
	tracer := tp.Tracer()

	m := deps.newMetrics(metrics.DefaultConfig(serviceName))
	logger.Info("Metrics initialized")

	baselines, err := deps.loadBaselines(config.BaselinesFile)
	if err != nil {
		logger.WithError(err).Error("Failed to load KPI baselines", "file", config.BaselinesFile)
		return fmt.Errorf("failed to load kpi baselines: %w", err)
	}

	var reports domain.ReportRepository
	switch config.ReportStore {
	case ReportStoreMongoDB:
		mongoClient, err := deps.newMongoClient(ctx, config.MongoDB)
		if err != nil {
			logger.WithError(err).Error("Failed to connect to MongoDB")
			return fmt.Errorf("failed to connect to mongodb: %w", err)
		}
		defer func() {
			if err := deps.closeMongoClient(context.Background(), mongoClient); err != nil {
				logger.WithError(err).Warn("Failed to close MongoDB client")
			}
		}()
		reports, err = deps.newMongoReportRepo(ctx, mongoClient, m)
		if err != nil {
			logger.WithError(err).Error("Failed to initialize report repository")
			return fmt.Errorf("failed to initialize report repository: %w", err)
		}
		logger.Info("Connected to MongoDB", "database", config.MongoDB.Database)
	case ReportStoreMemory, "":
		reports = deps.newMemoryReportRepo()
		logger.Info("Using in-memory report store")
	default:
		return fmt.Errorf("unknown report store %q", config.ReportStore)
	}

	var events domain.EventPublisher
	if config.KafkaEnabled {
		producer := deps.newKafkaProducer(config.Kafka)
		defer func() {
			if err := producer.Close(); err != nil {
				logger.WithError(err).Warn("Failed to close Kafka producer")
			}
		}()
		breaker := resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("kafka"), logger, m)
		events = messaging.NewKafkaPublisher(producer, deps.newEventFactory(cloudevents.SourceInsights), breaker, tracer, m, logger)
		logger.Info("Kafka producer initialized", "brokers", config.Kafka.Brokers)
	} else {
		events = messaging.NewNoopPublisher(logger)
	}

	loader := dataset.NewLoader()
	datasets := application.NewDatasets(config.Datasets, loader,
		application.NewMemo("datasets", config.CacheTTL, m), tracer, m, logger)

	pipelineService := application.NewPipelineService(application.PipelineDeps{
		Datasets: datasets,
		Loader:   loader,
		Config:   config.Model,
		Models:   application.NewMemo("models", config.CacheTTL, m),
		Uploads:  application.NewMemo("uploads", config.CacheTTL, m),
		Reports:  reports,
		Events:   events,
		Tracer:   tracer,
		Metrics:  m,
		Logger:   logger,
	})
	dashboardService := application.NewDashboardService(datasets,
		application.NewMemo("kpis", config.CacheTTL, m), baselines, logger)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	middlewareConfig := middleware.DefaultConfig(serviceName, logger)
	middlewareConfig.Metrics = m
	middlewareConfig.EnableTracing = config.Tracing.Enabled
	middlewareConfig.ErrorMapper = application.ToAppError
	middleware.Setup(router, middlewareConfig)

	router.GET("/health", middleware.HealthCheck(serviceName))
	router.GET("/ready", middleware.ReadinessCheck(serviceName, pipelineService.Ready))
	router.GET("/metrics", middleware.MetricsEndpoint(m))

	apiV1 := router.Group("/api/v1")
	handlers.NewPipelineHandlers(pipelineService, logger).RegisterRoutes(apiV1)
	handlers.NewDashboardHandlers(dashboardService, logger).RegisterRoutes(apiV1)

	srv := deps.newHTTPServer(config.ServerAddr, router)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server error", "error", err)
		}
	}()
	logger.Info("Server started", "addr", config.ServerAddr)

	if config.TrainOnStart {
		if _, err := pipelineService.TrainModel(ctx, application.TrainModelCommand{}); err != nil {
			logger.WithError(err).Warn("Initial training failed, model stays untrained")
		}
	}

	if signalCh == nil {
		signalCh = make(chan os.Signal, 1)
	}
	select {
	case <-signalCh:
	case <-ctx.Done():
	}
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server stopped")
	return nil
}

// Config holds application configuration
type Config struct {
	ServerAddr    string
	Datasets      application.DatasetPaths
	BaselinesFile string
	Model         classifier.Config
	TrainOnStart  bool
	CacheTTL      time.Duration
	ReportStore   string
	MongoDB       *mongodb.Config
	KafkaEnabled  bool
	Kafka         *kafka.Config
	Tracing       *tracing.Config
}

func loadConfig() *Config {
	model := classifier.DefaultConfig()
	model.Seed = int64(getEnvInt("MODEL_SEED", int(model.Seed)))
	model.Neighbors = getEnvInt("MODEL_NEIGHBORS", model.Neighbors)
	model.TestSize = getEnvFloat("MODEL_TEST_SIZE", model.TestSize)
	model.InferSchema = getEnv("MODEL_SCHEMA", "default") == "infer"

	mongoConfig := mongodb.DefaultConfig()
	mongoConfig.URI = getEnv("MONGODB_URI", mongoConfig.URI)
	mongoConfig.Database = getEnv("MONGODB_DATABASE", mongoConfig.Database)

	kafkaConfig := kafka.DefaultConfig()
	if brokers := kafka.ParseBrokers(getEnv("KAFKA_BROKERS", "")); len(brokers) > 0 {
		kafkaConfig.Brokers = brokers
	}

	tracingConfig := tracing.DefaultConfig(serviceName)
	tracingConfig.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", tracingConfig.OTLPEndpoint)
	tracingConfig.Environment = getEnv("ENVIRONMENT", tracingConfig.Environment)
	tracingConfig.Enabled = getEnv("TRACING_ENABLED", "false") == "true"

	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8080"),
		Datasets: application.DatasetPaths{
			Training:   getEnv("TRAINING_DATASET", "UPDINTEGRADO_MODELO_FINAL.xlsx"),
			Delivery:   getEnv("DELIVERY_DATASET", "UPDINTEGRADO.xlsx"),
			Projection: getEnv("PROJECTION_DATASET", "baseProyeccion.xlsx"),
		},
		BaselinesFile: getEnv("KPI_BASELINES_FILE", ""),
		Model:         model,
		TrainOnStart:  getEnv("TRAIN_ON_START", "false") == "true",
		CacheTTL:      getEnvDuration("CACHE_TTL", 30*time.Minute),
		ReportStore:   getEnv("REPORT_STORE", ReportStoreMemory),
		MongoDB:       mongoConfig,
		KafkaEnabled:  getEnv("KAFKA_ENABLED", "false") == "true",
		Kafka:         kafkaConfig,
		Tracing:       tracingConfig,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvFloat(key string, defaultValue float64) float64 {
	v, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	v, err := time.ParseDuration(getEnv(key, ""))
	if err != nil || v < 0 {
		return defaultValue
	}
	return v
}
