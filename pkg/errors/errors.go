package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error codes returned in API error bodies
const (
	CodeValidationError    = "VALIDATION_ERROR"
	CodeNotFound           = "RESOURCE_NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodeInternalError      = "INTERNAL_ERROR"
	CodeBadRequest         = "BAD_REQUEST"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeTimeout            = "TIMEOUT"

	CodeDatasetUnavailable = "DATASET_UNAVAILABLE"
	CodeMissingColumns     = "MISSING_COLUMNS"
	CodeMalformedUpload    = "MALFORMED_UPLOAD"
	CodeModelNotReady      = "MODEL_NOT_READY"
	CodeInsufficientData   = "INSUFFICIENT_DATA"
)

// AppError represents an application error with HTTP status and error code
type AppError struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details,omitempty"`
	HTTPStatus int               `json:"-"`
	Err        error             `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetails replaces the error details
func (e *AppError) WithDetails(details map[string]string) *AppError {
	e.Details = details
	return e
}

// WithDetail adds a single detail to the error
func (e *AppError) WithDetail(key, value string) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// Wrap wraps an existing error
func (e *AppError) Wrap(err error) *AppError {
	e.Err = err
	return e
}

// NewAppError creates a new AppError
func NewAppError(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// ErrValidation creates a validation error
func ErrValidation(message string) *AppError {
	return NewAppError(CodeValidationError, message, http.StatusBadRequest)
}

// ErrValidationWithFields creates a validation error with field details
func ErrValidationWithFields(message string, fields map[string]string) *AppError {
	return ErrValidation(message).WithDetails(fields)
}

// ErrNotFound creates a not found error
func ErrNotFound(resource string) *AppError {
	return NewAppError(CodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

// ErrConflict creates a conflict error
func ErrConflict(message string) *AppError {
	return NewAppError(CodeConflict, message, http.StatusConflict)
}

// ErrInternal creates an internal error
func ErrInternal(message string) *AppError {
	if message == "" {
		message = "an internal error occurred"
	}
	return NewAppError(CodeInternalError, message, http.StatusInternalServerError)
}

// ErrBadRequest creates a bad request error
func ErrBadRequest(message string) *AppError {
	return NewAppError(CodeBadRequest, message, http.StatusBadRequest)
}

// ErrTimeout creates a timeout error
func ErrTimeout(operation string) *AppError {
	return NewAppError(CodeTimeout, fmt.Sprintf("%s timed out", operation), http.StatusGatewayTimeout)
}

// ErrDatasetUnavailable reports a dataset file that is missing or unreadable
func ErrDatasetUnavailable(name string) *AppError {
	return NewAppError(CodeDatasetUnavailable, fmt.Sprintf("dataset file %s not found or unreadable", name), http.StatusServiceUnavailable).
		WithDetail("dataset", name)
}

// ErrMissingColumns reports required columns absent from an input table
func ErrMissingColumns(source string, columns []string) *AppError {
	msg := fmt.Sprintf("required columns are missing: %s", strings.Join(columns, ", "))
	e := NewAppError(CodeMissingColumns, msg, http.StatusUnprocessableEntity).
		WithDetail("columns", strings.Join(columns, ","))
	if source != "" {
		e.WithDetail("source", source)
	}
	return e
}

// ErrMalformedUpload reports an upload that could not be parsed as a table
func ErrMalformedUpload(message string) *AppError {
	if message == "" {
		message = "uploaded file could not be read as a csv or xlsx table"
	}
	return NewAppError(CodeMalformedUpload, message, http.StatusBadRequest)
}

// ErrModelNotReady reports an inference request made before training finished
func ErrModelNotReady() *AppError {
	return NewAppError(CodeModelNotReady, "model is not trained yet; train it before requesting predictions", http.StatusConflict)
}

// ErrInsufficientData reports a training set with no usable labelled rows
func ErrInsufficientData(message string) *AppError {
	if message == "" {
		message = "dataset has no labelled rows to train on"
	}
	return NewAppError(CodeInsufficientData, message, http.StatusUnprocessableEntity)
}

// AsAppError converts an error to an AppError if possible
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// FromError converts a standard error to an AppError
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	if appErr, ok := AsAppError(err); ok {
		return appErr
	}

	return ErrInternal("").Wrap(err)
}
