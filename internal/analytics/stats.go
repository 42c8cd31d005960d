// Package analytics computes the delivery and projection dashboard indicators.
package analytics

import (
	"cmp"
	"math"
	"slices"

	"github.com/danu-shop/insights/internal/domain"
)

// Quantile returns the q-th quantile with linear interpolation between the
// closest ranks (h = (n-1)q). NaN for an empty sample.
func Quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	h := float64(len(sorted)-1) * q
	lo := int(math.Floor(h))
	hi := int(math.Ceil(h))
	return sorted[lo] + (h-float64(lo))*(sorted[hi]-sorted[lo])
}

// Median is the 0.5 quantile
func Median(values []float64) float64 {
	return Quantile(values, 0.5)
}

// Mean returns the arithmetic mean, NaN for an empty sample
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// RoundHalfEven rounds to the given number of decimals, ties to even
func RoundHalfEven(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.RoundToEven(v*p) / p
}

// numbers collects the parseable values of a column
func numbers(t *domain.Table, col string) []float64 {
	out := make([]float64, 0, t.Len())
	for r := range t.Rows {
		if v, ok := t.Float(r, col); ok {
			out = append(out, v)
		}
	}
	return out
}

// CategoryCount is one bar of a top-N ranking
type CategoryCount struct {
	Category string `json:"category"`
	Orders   int    `json:"orders"`
}

// TopN ranks non-empty values of a column by frequency, ties in first-seen order
func TopN(t *domain.Table, col string, n int) []CategoryCount {
	counts := map[string]int{}
	var order []string
	for r := range t.Rows {
		v := t.Value(r, col)
		if v == "" {
			continue
		}
		if _, ok := counts[v]; !ok {
			order = append(order, v)
		}
		counts[v]++
	}

	out := make([]CategoryCount, 0, len(order))
	for _, v := range order {
		out = append(out, CategoryCount{Category: v, Orders: counts[v]})
	}
	slices.SortStableFunc(out, func(a, b CategoryCount) int {
		return cmp.Compare(b.Orders, a.Orders)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// DayCount is one point of a delivery-day histogram
type DayCount struct {
	Day   int `json:"day"`
	Count int `json:"count"`
}

// Histogram counts whole delivery days in [lo, hi], zero-filled
func Histogram(days []float64, lo, hi int) []DayCount {
	out := make([]DayCount, 0, hi-lo+1)
	for d := lo; d <= hi; d++ {
		out = append(out, DayCount{Day: d})
	}
	for _, v := range days {
		if v != math.Trunc(v) {
			continue
		}
		if d := int(v); d >= lo && d <= hi {
			out[d-lo].Count++
		}
	}
	return out
}

// between keeps values inside the inclusive range
func between(values []float64, lo, hi int) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if v >= float64(lo) && v <= float64(hi) {
			out = append(out, v)
		}
	}
	return out
}

// isAll reports whether a selector value means no filter
func isAll(v string) bool {
	switch v {
	case "", "all", "Todos", "todos", "Todas", "todas":
		return true
	default:
		return false
	}
}
