package domain

import (
	"fmt"
	"strings"
)

// DeliveryTier is the class label derived from total delivery days
type DeliveryTier string

const (
	TierPrime   DeliveryTier = "Prime"
	TierExpress DeliveryTier = "Express"
	TierRegular DeliveryTier = "Regular"
)

// MaxDeliveryDays is the upper bound of the labelled range
const MaxDeliveryDays = 30

// AllTiers returns the tiers in label order
func AllTiers() []DeliveryTier {
	return []DeliveryTier{TierPrime, TierExpress, TierRegular}
}

// TierFor buckets a delivery duration. Durations outside 0-30 days are not labelled.
func TierFor(days float64) (DeliveryTier, bool) {
	switch {
	case days < 0 || days > MaxDeliveryDays:
		return "", false
	case days <= 3:
		return TierPrime, true
	case days <= 7:
		return TierExpress, true
	default:
		return TierRegular, true
	}
}

// IsValid checks if the tier is one of the known labels
func (t DeliveryTier) IsValid() bool {
	switch t {
	case TierPrime, TierExpress, TierRegular:
		return true
	default:
		return false
	}
}

// Index returns the position of the tier in AllTiers, or -1
func (t DeliveryTier) Index() int {
	for i, tier := range AllTiers() {
		if tier == t {
			return i
		}
	}
	return -1
}

// Range returns the inclusive whole-day range of the tier
func (t DeliveryTier) Range() (int, int) {
	switch t {
	case TierPrime:
		return 0, 3
	case TierExpress:
		return 4, 7
	case TierRegular:
		return 8, MaxDeliveryDays
	default:
		return 0, MaxDeliveryDays
	}
}

// TierFilter is a dashboard tier selector
type TierFilter string

const (
	FilterAll     TierFilter = "all"
	FilterPrime   TierFilter = "prime"
	FilterExpress TierFilter = "express"
	FilterRegular TierFilter = "regular"
)

// ParseTierFilter accepts the API values and the dashboard selector labels
func ParseTierFilter(s string) (TierFilter, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch {
	case v == "" || v == "all" || strings.HasPrefix(v, "todas") || strings.HasPrefix(v, "todos"):
		return FilterAll, nil
	case strings.HasPrefix(v, "prime"):
		return FilterPrime, nil
	case strings.HasPrefix(v, "express"):
		return FilterExpress, nil
	case strings.HasPrefix(v, "regular"):
		return FilterRegular, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownTierFilter, s)
	}
}

// Tier returns the selected tier; ok is false for the all selector
func (f TierFilter) Tier() (DeliveryTier, bool) {
	switch f {
	case FilterPrime:
		return TierPrime, true
	case FilterExpress:
		return TierExpress, true
	case FilterRegular:
		return TierRegular, true
	default:
		return "", false
	}
}

// Range returns the inclusive whole-day range covered by the selector
func (f TierFilter) Range() (int, int) {
	if tier, ok := f.Tier(); ok {
		return tier.Range()
	}
	return 0, MaxDeliveryDays
}

// Contains reports whether a delivery duration falls under the selector
func (f TierFilter) Contains(days float64) bool {
	got, ok := TierFor(days)
	if !ok {
		return false
	}
	want, selected := f.Tier()
	return !selected || got == want
}

// Key is the lowercase name used for baseline lookups
func (f TierFilter) Key() string {
	if f == "" {
		return string(FilterAll)
	}
	return string(f)
}
