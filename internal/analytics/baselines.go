package analytics

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/danu-shop/insights/internal/domain"
)

// Baselines are the current-state figures the projection is compared against
type Baselines struct {
	RetentionCurrent    map[string]float64 `yaml:"retention_current" json:"retentionCurrent"`
	DeliveryCurrentDays float64            `yaml:"delivery_current_days" json:"deliveryCurrentDays"`
	RetentionTarget     float64            `yaml:"retention_target" json:"retentionTarget"`
}

// DefaultBaselines returns the measured retention per tier and a 10 day delivery
func DefaultBaselines() Baselines {
	return Baselines{
		RetentionCurrent: map[string]float64{
			string(domain.FilterAll):     2.95,
			string(domain.FilterPrime):   0.25,
			string(domain.FilterExpress): 0.73,
			string(domain.FilterRegular): 1.97,
		},
		DeliveryCurrentDays: 10,
		RetentionTarget:     3.0,
	}
}

// LoadBaselines overlays a YAML file on the defaults. An empty path returns the defaults.
func LoadBaselines(path string) (Baselines, error) {
	b := DefaultBaselines()
	if path == "" {
		return b, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return b, fmt.Errorf("read baselines: %w", err)
	}

	var overlay Baselines
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return b, fmt.Errorf("parse baselines %s: %w", path, err)
	}
	for k, v := range overlay.RetentionCurrent {
		if _, err := domain.ParseTierFilter(k); err != nil {
			return b, fmt.Errorf("baselines %s: %w", path, err)
		}
		b.RetentionCurrent[k] = v
	}
	if overlay.DeliveryCurrentDays > 0 {
		b.DeliveryCurrentDays = overlay.DeliveryCurrentDays
	}
	if overlay.RetentionTarget > 0 {
		b.RetentionTarget = overlay.RetentionTarget
	}
	return b, nil
}

// Retention returns the current retention for a tier selector, falling back to all tiers
func (b Baselines) Retention(f domain.TierFilter) float64 {
	if v, ok := b.RetentionCurrent[f.Key()]; ok {
		return v
	}
	return b.RetentionCurrent[string(domain.FilterAll)]
}
