// Package resample balances delivery tier classes before training.
package resample

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/floats"

	"github.com/danu-shop/insights/internal/domain"
	"github.com/danu-shop/insights/internal/neighbors"
)

// Stats describes what a resampling run did
type Stats struct {
	Before     domain.ClassDistribution `json:"before"`
	AfterSMOTE domain.ClassDistribution `json:"afterSmote"`
	After      domain.ClassDistribution `json:"after"`
	Synthetic  int                      `json:"synthetic"`
	Removed    int                      `json:"removed"`
}

// SMOTEENN oversamples smaller classes with SMOTE and then cleans the result
// with edited nearest neighbours.
type SMOTEENN struct {
	K            int
	ENNNeighbors int
	Seed         int64
}

// New returns a balancer with 5 SMOTE neighbours and 3 ENN neighbours
func New(seed int64) SMOTEENN {
	return SMOTEENN{K: 5, ENNNeighbors: 3, Seed: seed}
}

// Resample returns a new balanced set; X and y are not modified.
// Classes below the majority never end below their original count and no
// class is ever emptied.
func (s SMOTEENN) Resample(X [][]float64, y []domain.DeliveryTier) ([][]float64, []domain.DeliveryTier, Stats, error) {
	if len(X) != len(y) {
		return nil, nil, Stats{}, fmt.Errorf("resample: %d rows but %d labels", len(X), len(y))
	}
	if len(X) == 0 {
		return nil, nil, Stats{}, fmt.Errorf("resample: %w", domain.ErrNoTrainingRows)
	}

	stats := Stats{Before: domain.Count(y)}
	rng := rand.New(rand.NewSource(s.Seed))

	xs, ys, synthetic := s.oversample(X, y, stats.Before, rng)
	stats.AfterSMOTE = domain.Count(ys)
	stats.Synthetic = len(xs) - len(X)

	keep := s.clean(xs, ys, synthetic, stats.Before)

	outX := make([][]float64, 0, len(keep))
	outY := make([]domain.DeliveryTier, 0, len(keep))
	for _, i := range keep {
		outX = append(outX, xs[i])
		outY = append(outY, ys[i])
	}
	stats.After = domain.Count(outY)
	stats.Removed = len(xs) - len(keep)
	return outX, outY, stats, nil
}

func (s SMOTEENN) oversample(X [][]float64, y []domain.DeliveryTier, before domain.ClassDistribution, rng *rand.Rand) ([][]float64, []domain.DeliveryTier, []bool) {
	target := before[before.Majority()]

	xs := make([][]float64, len(X), len(X)*2)
	copy(xs, X)
	ys := make([]domain.DeliveryTier, len(y), len(y)*2)
	copy(ys, y)
	synthetic := make([]bool, len(X), len(X)*2)

	ix := neighbors.NewIndex(X)
	for _, tier := range domain.AllTiers() {
		n := before[tier]
		if n < 2 || n >= target {
			continue
		}
		members := make([]int, 0, n)
		for i, l := range y {
			if l == tier {
				members = append(members, i)
			}
		}

		k := min(s.K, n-1)
		nbs := make(map[int][]neighbors.Neighbor, n)
		for _, m := range members {
			nbs[m] = ix.Among(X[m], k, members, m)
		}

		width := len(X[members[0]])
		for j := 0; j < target-n; j++ {
			base := members[rng.Intn(n)]
			pick := nbs[base][rng.Intn(len(nbs[base]))]
			gap := rng.Float64()

			diff := make([]float64, width)
			floats.SubTo(diff, X[pick.Index], X[base])
			row := make([]float64, width)
			floats.AddScaledTo(row, X[base], gap, diff)

			xs = append(xs, row)
			ys = append(ys, tier)
			synthetic = append(synthetic, true)
		}
	}
	return xs, ys, synthetic
}

// clean returns the indexes that survive edited nearest neighbours, in order
func (s SMOTEENN) clean(X [][]float64, y []domain.DeliveryTier, synthetic []bool, before domain.ClassDistribution) []int {
	target := before[before.Majority()]
	ix := neighbors.NewIndex(X)

	candidate := make([]bool, len(X))
	for i := range X {
		for _, nb := range ix.Search(X[i], s.ENNNeighbors, func(j int) bool { return j == i }) {
			if y[nb.Index] != y[i] {
				candidate[i] = true
				break
			}
		}
	}

	count := domain.Count(y)
	removed := make([]bool, len(X))
	for _, tier := range domain.AllTiers() {
		floor := 1
		if before[tier] < target {
			floor = before[tier]
		}
		// synthetic rows go first, then originals, each in index order
		for _, wantSynthetic := range []bool{true, false} {
			for i := range X {
				if count[tier] <= floor {
					break
				}
				if y[i] == tier && candidate[i] && synthetic[i] == wantSynthetic {
					removed[i] = true
					count[tier]--
				}
			}
		}
	}

	keep := make([]int, 0, len(X))
	for i := range X {
		if !removed[i] {
			keep = append(keep, i)
		}
	}
	return keep
}
