package analytics

import (
	"math"

	"github.com/danu-shop/insights/internal/dataset"
	"github.com/danu-shop/insights/internal/domain"
)

// IdealDeliveryDays is the average delivery time the business aims to stay under
const IdealDeliveryDays = 7

// DeliveryFilter selects the slice of the historical order base
type DeliveryFilter struct {
	Category string
	State    string
	Tier     domain.TierFilter
}

// DeliveryKPIs are the indicators of the delivery dashboard
type DeliveryKPIs struct {
	Orders              int             `json:"orders"`
	HighVolumeThreshold float64         `json:"highVolumeThreshold"`
	HighVolumeOrders    int             `json:"highVolumeOrders"`
	FastShareHighVolume float64         `json:"fastShareHighVolume"`
	Customers           int             `json:"customers"`
	RetainedCustomers   int             `json:"retainedCustomers"`
	RetentionRate       float64         `json:"retentionRate"`
	NotRetained         float64         `json:"notRetained"`
	AverageTitle        string          `json:"averageTitle"`
	AverageDeliveryDays int             `json:"averageDeliveryDays"`
	WithinIdeal         bool            `json:"withinIdeal"`
	TopCategories       []CategoryCount `json:"topCategories"`
	TopCategory         string          `json:"topCategory"`
	TopCategorySales    int             `json:"topCategorySales"`
	SavingsExpress      *float64        `json:"savingsExpress,omitempty"`
	SavingsPrime        *float64        `json:"savingsPrime,omitempty"`
	Histogram           []DayCount      `json:"histogram"`
}

// NoCategory is shown when a slice has no orders
const NoCategory = "—"

// ComputeDeliveryKPIs evaluates the delivery dashboard. The category filter
// applies to every indicator; the customer state filter applies to the volume,
// ranking and savings indicators only.
func ComputeDeliveryKPIs(table *domain.Table, f DeliveryFilter) DeliveryKPIs {
	byCategory := table
	if !isAll(f.Category) {
		byCategory = table.Filter(func(r int) bool { return table.Value(r, domain.ColProductCategory) == f.Category })
	}
	byState := byCategory
	if !isAll(f.State) {
		byState = byCategory.Filter(func(r int) bool { return byCategory.Value(r, domain.ColCustomerState) == f.State })
	}

	k := DeliveryKPIs{Orders: byState.Len()}

	k.HighVolumeThreshold, k.HighVolumeOrders, k.FastShareHighVolume = fastHighVolume(byState)
	k.Customers, k.RetainedCustomers = retention(byCategory)
	if k.Customers > 0 {
		k.RetentionRate = float64(k.RetainedCustomers) / float64(k.Customers) * 100
	}
	k.NotRetained = 100 - k.RetentionRate

	lo, hi := f.Tier.Range()
	days := between(numbers(byCategory, domain.ColDeliveryDays), lo, hi)
	k.AverageTitle = averageTitle(f.Tier)
	if len(days) > 0 {
		k.AverageDeliveryDays = int(math.RoundToEven(Mean(days)))
	}
	k.WithinIdeal = k.AverageDeliveryDays < IdealDeliveryDays
	k.Histogram = Histogram(days, lo, hi)

	k.TopCategories = TopN(byState, domain.ColProductCategory, 5)
	k.TopCategory = NoCategory
	if len(k.TopCategories) > 0 {
		k.TopCategory = k.TopCategories[0].Category
		k.TopCategorySales = k.TopCategories[0].Orders
	}

	k.SavingsExpress, k.SavingsPrime = savings(byState)
	return k
}

func fastHighVolume(t *domain.Table) (threshold float64, orders int, share float64) {
	threshold = Quantile(numbers(t, domain.ColVolume), 0.75)
	if math.IsNaN(threshold) {
		return 0, 0, 0
	}
	fast := 0
	for r := range t.Rows {
		v, ok := t.Float(r, domain.ColVolume)
		if !ok || v <= threshold {
			continue
		}
		orders++
		if d, ok := t.Float(r, domain.ColDeliveryDays); ok && d <= IdealDeliveryDays {
			fast++
		}
	}
	if orders > 0 {
		share = float64(fast) / float64(orders) * 100
	}
	return threshold, orders, share
}

// retention counts customers and those who bought in more than one calendar month
func retention(t *domain.Table) (customers, retained int) {
	periods := map[string]map[string]struct{}{}
	for r := range t.Rows {
		id := t.Value(r, domain.ColCustomerID)
		if id == "" {
			continue
		}
		if periods[id] == nil {
			periods[id] = map[string]struct{}{}
		}
		if ts, err := dataset.ParseTimestamp(t.Value(r, domain.ColPurchaseTimestamp)); err == nil {
			periods[id][dataset.Period(ts)] = struct{}{}
		}
	}
	for _, p := range periods {
		if len(p) > 1 {
			retained++
		}
	}
	return len(periods), retained
}

func averageTitle(f domain.TierFilter) string {
	if tier, ok := f.Tier(); ok {
		return "Entrega Promedio " + string(tier) + " (días)"
	}
	return "Entrega Promedio (días)"
}

// savingsTier buckets delivery days into (-1,3], (3,7] and (7,inf)
func savingsTier(days float64) (domain.DeliveryTier, bool) {
	switch {
	case days <= -1:
		return "", false
	case days <= 3:
		return domain.TierPrime, true
	case days <= 7:
		return domain.TierExpress, true
	default:
		return domain.TierRegular, true
	}
}

// savings compares the mean order value of Express and Prime against Regular
func savings(t *domain.Table) (express, prime *float64) {
	if !t.Has(domain.ColTotalValue) || !t.Has(domain.ColDeliveryDays) {
		return nil, nil
	}
	sum := map[domain.DeliveryTier]float64{}
	n := map[domain.DeliveryTier]int{}
	for r := range t.Rows {
		d, ok := t.Float(r, domain.ColDeliveryDays)
		if !ok {
			continue
		}
		tier, ok := savingsTier(d)
		if !ok {
			continue
		}
		v, ok := t.Float(r, domain.ColTotalValue)
		if !ok {
			continue
		}
		sum[tier] += v
		n[tier]++
	}
	if n[domain.TierRegular] == 0 {
		return nil, nil
	}
	baseline := sum[domain.TierRegular] / float64(n[domain.TierRegular])
	if baseline <= 0 {
		return nil, nil
	}
	pct := func(tier domain.DeliveryTier) *float64 {
		if n[tier] == 0 {
			return nil
		}
		s := 100 * (baseline - sum[tier]/float64(n[tier])) / baseline
		return &s
	}
	return pct(domain.TierExpress), pct(domain.TierPrime)
}
