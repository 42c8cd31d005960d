package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		err    *AppError
		code   string
		status int
	}{
		{"validation", ErrValidation("bad"), CodeValidationError, http.StatusBadRequest},
		{"not found", ErrNotFound("dataset"), CodeNotFound, http.StatusNotFound},
		{"internal", ErrInternal(""), CodeInternalError, http.StatusInternalServerError},
		{"dataset", ErrDatasetUnavailable("UPDINTEGRADO.xlsx"), CodeDatasetUnavailable, http.StatusServiceUnavailable},
		{"columns", ErrMissingColumns("upload", []string{"region"}), CodeMissingColumns, http.StatusUnprocessableEntity},
		{"malformed", ErrMalformedUpload(""), CodeMalformedUpload, http.StatusBadRequest},
		{"model", ErrModelNotReady(), CodeModelNotReady, http.StatusConflict},
		{"insufficient", ErrInsufficientData(""), CodeInsufficientData, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.status, tt.err.HTTPStatus)
			assert.NotEmpty(t, tt.err.Message)
		})
	}
}

func TestErrMissingColumns_Details(t *testing.T) {
	err := ErrMissingColumns("upload", []string{"region", "volumen"})

	assert.Contains(t, err.Message, "region, volumen")
	assert.Equal(t, "region,volumen", err.Details["columns"])
	assert.Equal(t, "upload", err.Details["source"])
}

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(nil))

	app := ErrModelNotReady()
	wrapped := fmt.Errorf("predict: %w", app)
	assert.Same(t, app, FromError(wrapped))

	plain := errors.New("disk on fire")
	converted := FromError(plain)
	require.NotNil(t, converted)
	assert.Equal(t, CodeInternalError, converted.Code)
	assert.ErrorIs(t, converted, plain)
}
