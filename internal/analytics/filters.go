package analytics

import (
	"slices"

	"github.com/danu-shop/insights/internal/domain"
)

// FilterOptions lists the selector values offered by both dashboards
type FilterOptions struct {
	Categories     []string `json:"categories"`
	States         []string `json:"states"`
	CategoryGroups []string `json:"categoryGroups"`
	Regions        []string `json:"regions"`
	Tiers          []string `json:"tiers"`
}

// Options collects sorted distinct selector values from the delivery and projection bases.
// Either table may be nil.
func Options(delivery, projection *domain.Table) FilterOptions {
	o := FilterOptions{
		Tiers: []string{
			string(domain.FilterAll), string(domain.FilterPrime),
			string(domain.FilterExpress), string(domain.FilterRegular),
		},
	}
	if delivery != nil {
		o.Categories = sortedDistinct(delivery, domain.ColProductCategory)
		o.States = sortedDistinct(delivery, domain.ColCustomerState)
	}
	if projection != nil {
		o.CategoryGroups = sortedDistinct(projection, domain.ColCategoryGroup)
		o.Regions = sortedDistinct(projection, domain.ColRegion)
	}
	return o
}

func sortedDistinct(t *domain.Table, col string) []string {
	v := t.Distinct(col)
	slices.Sort(v)
	return v
}
