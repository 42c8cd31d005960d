package application

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/danu-shop/insights/internal/dataset"
	"github.com/danu-shop/insights/internal/domain"
	"github.com/danu-shop/insights/pkg/logging"
	"github.com/danu-shop/insights/pkg/metrics"
	"github.com/danu-shop/insights/pkg/tracing"
)

// Dataset names accepted by the API
const (
	DatasetTraining   = "training"
	DatasetDelivery   = "delivery"
	DatasetProjection = "projection"
)

// DatasetPaths locates the three source files
type DatasetPaths struct {
	Training   string
	Delivery   string
	Projection string
}

// LoadedDataset is a validated table together with the signature it was read at
type LoadedDataset struct {
	Name      string
	Path      string
	Signature string
	Table     *domain.Table
}

// Datasets loads the named source files, memoized by file signature
type Datasets struct {
	paths   map[string]string
	loader  *dataset.Loader
	memo    *Memo
	tracer  trace.Tracer
	metrics *metrics.Metrics
	logger  *logging.Logger
}

// NewDatasets creates a dataset source
func NewDatasets(paths DatasetPaths, loader *dataset.Loader, memo *Memo, tracer trace.Tracer, m *metrics.Metrics, logger *logging.Logger) *Datasets {
	return &Datasets{
		paths: map[string]string{
			DatasetTraining:   paths.Training,
			DatasetDelivery:   paths.Delivery,
			DatasetProjection: paths.Projection,
		},
		loader:  loader,
		memo:    memo,
		tracer:  tracer,
		metrics: m,
		logger:  logger.WithComponent("datasets"),
	}
}

// Path returns the configured file for a dataset name
func (d *Datasets) Path(name string) (string, error) {
	p, ok := d.paths[name]
	if !ok || p == "" {
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownDataset, name)
	}
	return p, nil
}

func (d *Datasets) signature(name string) (string, string, error) {
	path, err := d.Path(name)
	if err != nil {
		return "", "", err
	}
	sig, err := dataset.Signature(path)
	if err != nil {
		file := filepath.Base(path)
		if errors.Is(err, fs.ErrNotExist) {
			return path, "", &DatasetError{File: file, Err: fmt.Errorf("%w: %s", domain.ErrDatasetNotFound, file)}
		}
		return path, "", &DatasetError{File: file, Err: fmt.Errorf("%w: %s: %v", domain.ErrDatasetUnreadable, file, err)}
	}
	return path, sig, nil
}

// Check reports whether a dataset file is present and readable without parsing it
func (d *Datasets) Check(name string) error {
	_, _, err := d.signature(name)
	return err
}

// Load returns the validated table for a dataset name. The table is shared
// between callers and must not be modified.
func (d *Datasets) Load(ctx context.Context, name string) (*LoadedDataset, error) {
	path, sig, err := d.signature(name)
	if err != nil {
		return nil, err
	}
	spec, ok := dataset.SpecFor(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownDataset, name)
	}

	ctx, span := tracing.StartTimedSpan(ctx, d.tracer, "dataset.load",
		attribute.String("pipeline.stage", "load"), attribute.String("pipeline.dataset", name))
	shared := context.WithoutCancel(ctx)
	loaded, cached, err := Remember(d.memo, name+"|"+sig, func() (*LoadedDataset, error) {
		table, err := d.loader.LoadSpec(shared, path, spec)
		if err != nil {
			if errors.Is(err, domain.ErrDatasetNotFound) || errors.Is(err, domain.ErrDatasetUnreadable) {
				err = &DatasetError{File: filepath.Base(path), Err: err}
			}
			return nil, err
		}
		return &LoadedDataset{Name: name, Path: path, Signature: sig, Table: table}, nil
	})
	if err == nil {
		span.SetAttributes(attribute.Int("pipeline.rows", loaded.Table.Len()), attribute.Bool("cache.hit", cached))
	}
	elapsed := span.End(err)
	if err != nil {
		d.logger.WithContext(ctx).WithError(err).Warn("Dataset load failed", "dataset", name)
		return nil, err
	}

	d.logger.DatasetLoad(ctx, name, loaded.Table.Len(), len(loaded.Table.Columns), elapsed, cached)
	if !cached {
		d.metrics.RecordStage("load", elapsed)
		d.metrics.SetDatasetRows(name, loaded.Table.Len())
	}
	return loaded, nil
}
