package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Errors raised by the insights pipeline
var (
	ErrDatasetNotFound   = errors.New("dataset file not found")
	ErrDatasetUnreadable = errors.New("dataset file could not be read")
	ErrMalformedFile     = errors.New("file is not a readable csv or xlsx table")
	ErrModelNotReady     = errors.New("model is not ready")
	ErrNoTrainingRows    = errors.New("no labelled rows to train on")
	ErrInvalidTransition = errors.New("invalid model state transition")
	ErrUnknownTierFilter = errors.New("unknown delivery tier filter")
	ErrUnknownDataset    = errors.New("unknown dataset")
)

// MissingColumnError lists every required column absent from a table
type MissingColumnError struct {
	Columns []string
	Source  string
}

func (e *MissingColumnError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("missing required columns: %s", strings.Join(e.Columns, ", "))
	}
	return fmt.Sprintf("%s: missing required columns: %s", e.Source, strings.Join(e.Columns, ", "))
}

// AsMissingColumnError unwraps err into a MissingColumnError
func AsMissingColumnError(err error) (*MissingColumnError, bool) {
	var mc *MissingColumnError
	if errors.As(err, &mc) {
		return mc, true
	}
	return nil, false
}
