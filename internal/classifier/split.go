package classifier

import (
	"math"
	"math/rand"
	"slices"

	"github.com/danu-shop/insights/internal/domain"
)

// StratifiedSplit assigns round(testSize*n) rows of every class to the test set.
// A class always keeps at least one training row. Both index sets are ascending.
func StratifiedSplit(y []domain.DeliveryTier, testSize float64, seed int64) (train, test []int) {
	rng := rand.New(rand.NewSource(seed))

	byClass := map[domain.DeliveryTier][]int{}
	for i, l := range y {
		byClass[l] = append(byClass[l], i)
	}

	for _, tier := range domain.AllTiers() {
		idx := byClass[tier]
		if len(idx) == 0 {
			continue
		}
		rng.Shuffle(len(idx), func(a, b int) { idx[a], idx[b] = idx[b], idx[a] })

		nTest := int(math.Round(testSize * float64(len(idx))))
		nTest = max(0, min(nTest, len(idx)-1))
		test = append(test, idx[:nTest]...)
		train = append(train, idx[nTest:]...)
	}

	slices.Sort(train)
	slices.Sort(test)
	return train, test
}

func subset(X [][]float64, y []domain.DeliveryTier, idx []int) ([][]float64, []domain.DeliveryTier) {
	xs := make([][]float64, len(idx))
	ys := make([]domain.DeliveryTier, len(idx))
	for i, j := range idx {
		xs[i] = X[j]
		ys[i] = y[j]
	}
	return xs, ys
}
