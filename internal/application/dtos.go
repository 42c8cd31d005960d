package application

import (
	"fmt"
	"time"

	"github.com/danu-shop/insights/internal/domain"
)

// ModelDTO describes the classifier lifecycle and its latest run
type ModelDTO struct {
	State    string                 `json:"state"`
	Cached   bool                   `json:"cached,omitempty"`
	Features []string               `json:"features,omitempty"`
	Report   *domain.TrainingReport `json:"report,omitempty"`
}

// PredictionDTO is the answer to a single-row prediction
type PredictionDTO struct {
	Tier          string              `json:"tier"`
	Range         string              `json:"range"`
	ModelRunID    string              `json:"modelRunId"`
	UnknownValues map[string][]string `json:"unknownValues,omitempty"`
}

// UploadResultDTO carries a labelled upload
type UploadResultDTO struct {
	Batch   BatchDTO   `json:"batch"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
	CSV     []byte     `json:"-"`
}

// BatchDTO summarizes a labelled upload
type BatchDTO struct {
	BatchID       string              `json:"batchId"`
	Source        string              `json:"source"`
	ModelRunID    string              `json:"modelRunId"`
	Rows          int                 `json:"rows"`
	TierCounts    map[string]int      `json:"tierCounts"`
	UnknownValues map[string][]string `json:"unknownValues,omitempty"`
	CreatedAt     time.Time           `json:"createdAt"`
}

// ToBatchDTO maps a stored batch to its API shape, listing every tier
func ToBatchDTO(b *domain.PredictionBatch) BatchDTO {
	counts := make(map[string]int, 3)
	for _, t := range domain.AllTiers() {
		counts[string(t)] = b.TierCounts[t]
	}
	return BatchDTO{
		BatchID:       b.BatchID,
		Source:        b.Source,
		ModelRunID:    b.ModelRunID,
		Rows:          b.Rows,
		TierCounts:    counts,
		UnknownValues: b.UnknownValues,
		CreatedAt:     b.CreatedAt,
	}
}

// ToBatchDTOs maps a slice of stored batches
func ToBatchDTOs(batches []*domain.PredictionBatch) []BatchDTO {
	out := make([]BatchDTO, 0, len(batches))
	for _, b := range batches {
		out = append(out, ToBatchDTO(b))
	}
	return out
}

func tierRange(t domain.DeliveryTier) string {
	lo, hi := t.Range()
	return fmt.Sprintf("%d-%d", lo, hi)
}
