// Package neighbors implements exact k-nearest-neighbour search over dense rows.
package neighbors

import (
	"cmp"
	"slices"

	"gonum.org/v1/gonum/floats"
)

// Neighbor is a row index and its Euclidean distance to the query
type Neighbor struct {
	Index    int
	Distance float64
}

// Index is a brute-force search index over a set of points
type Index struct {
	points [][]float64
}

// NewIndex indexes points; the slice is retained, not copied
func NewIndex(points [][]float64) *Index {
	return &Index{points: points}
}

// Len returns the number of indexed points
func (ix *Index) Len() int {
	return len(ix.points)
}

// Point returns the indexed row at i
func (ix *Index) Point(i int) []float64 {
	return ix.points[i]
}

// Distance is the Euclidean distance between two rows of equal width
func Distance(a, b []float64) float64 {
	return floats.Distance(a, b, 2)
}

// Search returns up to k nearest points to query, nearest first. Equal
// distances are ordered by index. Points for which skip returns true are ignored.
func (ix *Index) Search(query []float64, k int, skip func(i int) bool) []Neighbor {
	if k <= 0 {
		return nil
	}
	all := make([]Neighbor, 0, len(ix.points))
	for i, p := range ix.points {
		if skip != nil && skip(i) {
			continue
		}
		all = append(all, Neighbor{Index: i, Distance: Distance(query, p)})
	}
	return nearest(all, k)
}

// Among searches only the listed candidate rows, returning their indexes in the full set
func (ix *Index) Among(query []float64, k int, candidates []int, exclude int) []Neighbor {
	if k <= 0 {
		return nil
	}
	all := make([]Neighbor, 0, len(candidates))
	for _, i := range candidates {
		if i == exclude {
			continue
		}
		all = append(all, Neighbor{Index: i, Distance: Distance(query, ix.points[i])})
	}
	return nearest(all, k)
}

func nearest(all []Neighbor, k int) []Neighbor {
	slices.SortFunc(all, func(a, b Neighbor) int {
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		return cmp.Compare(a.Index, b.Index)
	})
	if len(all) > k {
		all = all[:k]
	}
	return all
}
