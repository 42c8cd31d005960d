package classifier

import (
	"fmt"

	"github.com/danu-shop/insights/internal/domain"
	"github.com/danu-shop/insights/internal/neighbors"
)

// KNN is a uniform-vote k-nearest-neighbours classifier over Euclidean distance
type KNN struct {
	K int

	index  *neighbors.Index
	labels []domain.DeliveryTier
}

// NewKNN creates a classifier voting over k neighbours
func NewKNN(k int) *KNN {
	return &KNN{K: k}
}

// Fit stores the training rows
func (m *KNN) Fit(X [][]float64, y []domain.DeliveryTier) error {
	if len(X) != len(y) {
		return fmt.Errorf("knn: %d rows but %d labels", len(X), len(y))
	}
	if len(X) == 0 {
		return fmt.Errorf("knn: %w", domain.ErrNoTrainingRows)
	}
	if m.K <= 0 {
		return fmt.Errorf("knn: k must be positive, got %d", m.K)
	}
	m.index = neighbors.NewIndex(X)
	m.labels = y
	return nil
}

// EffectiveK is the number of neighbours actually consulted
func (m *KNN) EffectiveK() int {
	if m.index == nil {
		return 0
	}
	return min(m.K, m.index.Len())
}

// Predict labels each row. A tied vote goes to the tied class whose member is nearest.
func (m *KNN) Predict(X [][]float64) ([]domain.DeliveryTier, error) {
	if m.index == nil {
		return nil, ErrNotFitted
	}
	k := m.EffectiveK()
	out := make([]domain.DeliveryTier, len(X))
	for i, q := range X {
		out[i] = m.vote(m.index.Search(q, k, nil))
	}
	return out, nil
}

func (m *KNN) vote(nbs []neighbors.Neighbor) domain.DeliveryTier {
	votes := make(map[domain.DeliveryTier]int, 3)
	best := 0
	for _, nb := range nbs {
		l := m.labels[nb.Index]
		votes[l]++
		best = max(best, votes[l])
	}
	// neighbours are ordered nearest first
	for _, nb := range nbs {
		if l := m.labels[nb.Index]; votes[l] == best {
			return l
		}
	}
	return ""
}
