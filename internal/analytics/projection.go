package analytics

import (
	"math"

	"github.com/danu-shop/insights/internal/domain"
)

// ProjectionFilter selects the slice of the simulated base
type ProjectionFilter struct {
	Category string
	Region   string
	Tier     domain.TierFilter
}

// ProjectionKPIs are the indicators of the projection dashboard
type ProjectionKPIs struct {
	Orders              int             `json:"orders"`
	RetainedProjected   int             `json:"retainedProjected"`
	RetentionProjected  float64         `json:"retentionProjected"`
	RetentionCurrent    float64         `json:"retentionCurrent"`
	RetentionDelta      float64         `json:"retentionDelta"`
	AboveTarget         bool            `json:"aboveTarget"`
	MedianDelivery      int             `json:"medianDelivery"`
	DeliveryCurrent     float64         `json:"deliveryCurrent"`
	DeliveryImprovement float64         `json:"deliveryImprovement"`
	MedianVolume        float64         `json:"medianVolume"`
	MedianVolumeAll     float64         `json:"medianVolumeAll"`
	TopCategories       []CategoryCount `json:"topCategories"`
	Histogram           []DayCount      `json:"histogram"`
}

// ComputeProjectionKPIs evaluates the projection dashboard. Retention is
// expressed over the whole base so slices add up to the overall figure.
func ComputeProjectionKPIs(table *domain.Table, f ProjectionFilter, b Baselines) ProjectionKPIs {
	lo, hi := f.Tier.Range()
	inTier := func(t *domain.Table, r int) bool {
		d, ok := t.Float(r, domain.ColSimulatedDelivery)
		return ok && d >= float64(lo) && d <= float64(hi)
	}
	inRegion := func(t *domain.Table, r int) bool {
		return isAll(f.Region) || t.Value(r, domain.ColRegion) == f.Region
	}

	filtered := table.Filter(func(r int) bool {
		if !isAll(f.Category) && table.Value(r, domain.ColCategoryGroup) != f.Category {
			return false
		}
		return inRegion(table, r) && inTier(table, r)
	})

	k := ProjectionKPIs{
		Orders:           filtered.Len(),
		RetentionCurrent: b.Retention(f.Tier),
		DeliveryCurrent:  b.DeliveryCurrentDays,
	}

	if filtered.Has(domain.ColRetention) {
		sum := 0.0
		for _, v := range numbers(filtered, domain.ColRetention) {
			sum += v
		}
		k.RetainedProjected = int(sum)
		if total := table.Len(); total > 0 {
			k.RetentionProjected = float64(k.RetainedProjected) / float64(total) * 100
		}
	}
	k.RetentionDelta = k.RetentionProjected - k.RetentionCurrent
	k.AboveTarget = k.RetentionProjected >= b.RetentionTarget

	simulated := numbers(filtered, domain.ColSimulatedDelivery)
	if m := Median(simulated); !math.IsNaN(m) {
		k.MedianDelivery = int(math.RoundToEven(m))
		k.DeliveryImprovement = b.DeliveryCurrentDays - float64(k.MedianDelivery)
	}
	if m := Median(numbers(filtered, domain.ColVolume)); !math.IsNaN(m) {
		k.MedianVolume = RoundHalfEven(m, 2)
	}
	if m := Median(numbers(table, domain.ColVolume)); !math.IsNaN(m) {
		k.MedianVolumeAll = RoundHalfEven(m, 2)
	}

	ranking := table.Filter(func(r int) bool { return inRegion(table, r) && inTier(table, r) })
	k.TopCategories = TopN(ranking, domain.ColCategoryGroup, 5)
	k.Histogram = Histogram(simulated, lo, hi)
	return k
}
