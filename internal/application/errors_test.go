package application

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/danu-shop/insights/internal/domain"
	apperrors "github.com/danu-shop/insights/pkg/errors"
)

func TestToAppError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   string
		wantStatus int
	}{
		{
			name:       "missing columns",
			err:        &domain.MissingColumnError{Source: "input", Columns: []string{"region"}},
			wantCode:   apperrors.CodeMissingColumns,
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "dataset not found",
			err:        &DatasetError{File: "UPDINTEGRADO.xlsx", Err: fmt.Errorf("%w: UPDINTEGRADO.xlsx", domain.ErrDatasetNotFound)},
			wantCode:   apperrors.CodeDatasetUnavailable,
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "malformed dataset on disk stays unavailable",
			err:        fmt.Errorf("%w: base.xlsx: %w", domain.ErrDatasetUnreadable, domain.ErrMalformedFile),
			wantCode:   apperrors.CodeDatasetUnavailable,
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "malformed upload",
			err:        fmt.Errorf("%w: unsupported extension", domain.ErrMalformedFile),
			wantCode:   apperrors.CodeMalformedUpload,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "model not ready",
			err:        domain.ErrModelNotReady,
			wantCode:   apperrors.CodeModelNotReady,
			wantStatus: http.StatusConflict,
		},
		{
			name:       "no training rows",
			err:        fmt.Errorf("%w: 3 rows dropped", domain.ErrNoTrainingRows),
			wantCode:   apperrors.CodeInsufficientData,
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "unknown tier filter",
			err:        fmt.Errorf("%w: \"ultra\"", domain.ErrUnknownTierFilter),
			wantCode:   apperrors.CodeValidationError,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown dataset",
			err:        fmt.Errorf("%w: \"sales\"", domain.ErrUnknownDataset),
			wantCode:   apperrors.CodeNotFound,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "deadline",
			err:        context.DeadlineExceeded,
			wantCode:   apperrors.CodeTimeout,
			wantStatus: http.StatusGatewayTimeout,
		},
		{
			name:       "anything else",
			err:        errors.New("disk on fire"),
			wantCode:   apperrors.CodeInternalError,
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := ToAppError(tt.err)
			assert.Equal(t, tt.wantCode, appErr.Code)
			assert.Equal(t, tt.wantStatus, appErr.HTTPStatus)
			assert.ErrorIs(t, appErr, tt.err)
		})
	}
}

func TestToAppError_PassesThroughAppErrors(t *testing.T) {
	original := apperrors.ErrConflict("already running")
	assert.Same(t, original, ToAppError(fmt.Errorf("wrapped: %w", original)))
	assert.Nil(t, ToAppError(nil))
}

func TestToAppError_NamesTheDatasetFile(t *testing.T) {
	err := &DatasetError{File: "ProyeccionesFinal.xlsx", Err: domain.ErrDatasetNotFound}
	appErr := ToAppError(err)
	assert.Contains(t, appErr.Message, "ProyeccionesFinal.xlsx")
}
