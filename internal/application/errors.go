package application

import (
	"context"
	"errors"

	"github.com/danu-shop/insights/internal/domain"
	apperrors "github.com/danu-shop/insights/pkg/errors"
)

// ToAppError maps pipeline errors onto the API taxonomy. Messages stay static;
// the underlying error is only kept for logging.
func ToAppError(err error) *apperrors.AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr
	}

	if mc, ok := domain.AsMissingColumnError(err); ok {
		return apperrors.ErrMissingColumns(mc.Source, mc.Columns).Wrap(err)
	}

	switch {
	case errors.Is(err, domain.ErrDatasetNotFound), errors.Is(err, domain.ErrDatasetUnreadable):
		return apperrors.ErrDatasetUnavailable(datasetName(err)).Wrap(err)
	case errors.Is(err, domain.ErrMalformedFile):
		return apperrors.ErrMalformedUpload("").Wrap(err)
	case errors.Is(err, domain.ErrModelNotReady):
		return apperrors.ErrModelNotReady().Wrap(err)
	case errors.Is(err, domain.ErrNoTrainingRows):
		return apperrors.ErrInsufficientData("").Wrap(err)
	case errors.Is(err, domain.ErrUnknownTierFilter):
		return apperrors.ErrValidationWithFields("invalid delivery tier filter",
			map[string]string{"tier": "must be one of: all, prime, express, regular"}).Wrap(err)
	case errors.Is(err, domain.ErrUnknownDataset):
		return apperrors.ErrNotFound("dataset").Wrap(err)
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.ErrTimeout("request").Wrap(err)
	}
	return apperrors.ErrInternal("").Wrap(err)
}

// DatasetError ties a load failure to the dataset file that caused it
type DatasetError struct {
	File string
	Err  error
}

func (e *DatasetError) Error() string {
	return e.Err.Error()
}

func (e *DatasetError) Unwrap() error {
	return e.Err
}

func datasetName(err error) string {
	var de *DatasetError
	if errors.As(err, &de) {
		return de.File
	}
	return "dataset"
}
