package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/danu-shop/insights/internal/analytics"
	"github.com/danu-shop/insights/internal/application"
	"github.com/danu-shop/insights/internal/classifier"
	"github.com/danu-shop/insights/internal/dataset"
	"github.com/danu-shop/insights/internal/domain"
	"github.com/danu-shop/insights/internal/infrastructure/memory"
	"github.com/danu-shop/insights/internal/infrastructure/messaging"
	"github.com/danu-shop/insights/pkg/logging"
	"github.com/danu-shop/insights/pkg/metrics"
	"github.com/danu-shop/insights/pkg/tracing"
)

const serviceName = "insights-cli"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

type globalOptions struct {
	logLevel string
}

// session is the set of services a command runs against
type session struct {
	pipeline  *application.PipelineService
	dashboard *application.DashboardService
	loader    *dataset.Loader
}

func (o *globalOptions) newRuntime(paths application.DatasetPaths, model classifier.Config, baselinesFile string) (*session, error) {
	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.LogLevel(o.logLevel)
	logConfig.Output = os.Stderr
	logger := logging.New(logConfig)

	baselines, err := analytics.LoadBaselines(baselinesFile)
	if err != nil {
		return nil, err
	}

	m := metrics.New(metrics.DefaultConfig(serviceName))
	tracer := tracing.Noop(serviceName).Tracer()
	loader := dataset.NewLoader()
	datasets := application.NewDatasets(paths, loader, application.NewMemo("datasets", 0, m), tracer, m, logger)

	return &session{
		pipeline: application.NewPipelineService(application.PipelineDeps{
			Datasets: datasets,
			Loader:   loader,
			Config:   model,
			Models:   application.NewMemo("models", 0, m),
			Uploads:  application.NewMemo("uploads", 0, m),
			Reports:  memory.NewReportRepository(),
			Events:   messaging.NewNoopPublisher(logger),
			Tracer:   tracer,
			Metrics:  m,
			Logger:   logger,
		}),
		dashboard: application.NewDashboardService(datasets, application.NewMemo("kpis", 0, m), baselines, logger),
		loader:    loader,
	}, nil
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:          "insights",
		Short:        "Delivery tier analytics and classification against local files",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(
		newTrainCmd(opts),
		newPredictCmd(opts),
		newKPIsCmd(opts),
		newProfileCmd(opts),
	)
	return root
}

type modelFlags struct {
	dataset string
	schema  string
	config  classifier.Config
}

func (f *modelFlags) register(cmd *cobra.Command) {
	f.config = classifier.DefaultConfig()
	cmd.Flags().StringVar(&f.dataset, "dataset", "UPDINTEGRADO_MODELO_FINAL.xlsx", "training dataset (csv or xlsx)")
	cmd.Flags().IntVar(&f.config.Neighbors, "neighbors", f.config.Neighbors, "number of neighbors")
	cmd.Flags().Float64Var(&f.config.TestSize, "test-size", f.config.TestSize, "held-out share of each class")
	cmd.Flags().Int64Var(&f.config.Seed, "seed", f.config.Seed, "random seed for split and resampling")
	cmd.Flags().StringVar(&f.schema, "schema", "default", "input columns: default, or infer from the training dataset")
}

// model returns the trainer parameters selected on the command line
func (f *modelFlags) model() (classifier.Config, error) {
	cfg := f.config
	switch f.schema {
	case "default":
	case "infer":
		cfg.InferSchema = true
	default:
		return cfg, fmt.Errorf("unknown schema %q, want default or infer", f.schema)
	}
	return cfg, nil
}

func newTrainCmd(opts *globalOptions) *cobra.Command {
	flags := &modelFlags{}
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the classifier and print its evaluation report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			model, err := flags.model()
			if err != nil {
				return err
			}
			rt, err := opts.newRuntime(application.DatasetPaths{Training: flags.dataset}, model, "")
			if err != nil {
				return err
			}
			trained, err := rt.pipeline.TrainModel(cmd.Context(), application.TrainModelCommand{})
			if err != nil {
				return describe(err)
			}
			return printJSON(cmd.OutOrStdout(), trained)
		},
	}
	flags.register(cmd)
	return cmd
}

func newPredictCmd(opts *globalOptions) *cobra.Command {
	flags := &modelFlags{}
	var input, output string

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Train, then label every row of an input file with its predicted tier",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := os.ReadFile(input)
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			model, err := flags.model()
			if err != nil {
				return err
			}
			rt, err := opts.newRuntime(application.DatasetPaths{Training: flags.dataset}, model, "")
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if _, err := rt.pipeline.TrainModel(ctx, application.TrainModelCommand{}); err != nil {
				return describe(err)
			}
			result, err := rt.pipeline.PredictUpload(ctx, application.PredictUploadCommand{
				Filename: filepath.Base(input),
				Content:  content,
			})
			if err != nil {
				return describe(err)
			}

			if output == "" {
				_, err := cmd.OutOrStdout().Write(result.CSV)
				return err
			}
			if err := writeResult(output, result); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result.Batch)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&input, "input", "", "file to label (csv or xlsx)")
	cmd.Flags().StringVar(&output, "output", "", "labelled output file, csv or xlsx by extension (default stdout as csv)")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func writeResult(path string, result *application.UploadResultDTO) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		err = dataset.WriteXLSX(f, domain.NewTable(result.Columns, result.Rows))
	} else {
		_, err = f.Write(result.CSV)
	}
	if err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return f.Close()
}

func newKPIsCmd(opts *globalOptions) *cobra.Command {
	var file, category, state, region, tier, baselines string

	cmd := &cobra.Command{
		Use:       "kpis delivery|projection",
		Short:     "Print the dashboard indicators for one filter selection",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{application.DatasetDelivery, application.DatasetProjection},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			switch args[0] {
			case application.DatasetDelivery:
				rt, err := opts.newRuntime(application.DatasetPaths{Delivery: fileOr(file, "UPDINTEGRADO.xlsx")}, classifier.DefaultConfig(), baselines)
				if err != nil {
					return err
				}
				kpis, err := rt.dashboard.DeliveryKPIs(ctx, application.DeliveryKPIQuery{Category: category, State: state, Tier: tier})
				if err != nil {
					return describe(err)
				}
				return printJSON(cmd.OutOrStdout(), kpis)
			default:
				rt, err := opts.newRuntime(application.DatasetPaths{Projection: fileOr(file, "baseProyeccion.xlsx")}, classifier.DefaultConfig(), baselines)
				if err != nil {
					return err
				}
				kpis, err := rt.dashboard.ProjectionKPIs(ctx, application.ProjectionKPIQuery{Category: category, Region: region, Tier: tier})
				if err != nil {
					return describe(err)
				}
				return printJSON(cmd.OutOrStdout(), kpis)
			}
		},
	}
	cmd.Flags().StringVar(&file, "dataset", "", "dataset file (defaults to the standard file for the dashboard)")
	cmd.Flags().StringVar(&category, "category", "all", "product category")
	cmd.Flags().StringVar(&state, "state", "all", "customer state (delivery only)")
	cmd.Flags().StringVar(&region, "region", "all", "region (projection only)")
	cmd.Flags().StringVar(&tier, "tier", "all", "delivery tier: all, prime, express, regular")
	cmd.Flags().StringVar(&baselines, "baselines", "", "YAML overlay for the projection baselines")
	return cmd
}

func newProfileCmd(opts *globalOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Summarize the columns of a dataset file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.newRuntime(application.DatasetPaths{}, classifier.DefaultConfig(), "")
			if err != nil {
				return err
			}
			table, err := rt.loader.Load(cmd.Context(), file)
			if err != nil {
				return describe(err)
			}
			return printJSON(cmd.OutOrStdout(), dataset.ProfileTable(table))
		},
	}
	cmd.Flags().StringVar(&file, "dataset", "", "dataset file (csv or xlsx)")
	_ = cmd.MarkFlagRequired("dataset")
	return cmd
}

func fileOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// describe renders pipeline errors with their API code so scripts can match on it
func describe(err error) error {
	appErr := application.ToAppError(err)
	if len(appErr.Details) == 0 {
		return fmt.Errorf("%s: %s", appErr.Code, appErr.Message)
	}
	return fmt.Errorf("%s: %s %v", appErr.Code, appErr.Message, appErr.Details)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
