package dataset

import (
	"context"

	"github.com/danu-shop/insights/internal/domain"
)

// Spec describes the columns a dataset must carry and which of them are numeric
type Spec struct {
	Name     string
	Required []string
	Numeric  []string
}

// TrainingSpec is the consolidated order base used to train the classifier
var TrainingSpec = Spec{
	Name: "training",
	Required: []string{
		domain.ColOrderStatus, domain.ColPaymentType, domain.ColInstallments, domain.ColPayment,
		domain.ColProductID, domain.ColPrice, domain.ColFreightCost,
		domain.ColProductCategory, domain.ColPurchaseFrequency,
		domain.ColItemsPerOrder, domain.ColVolume, domain.ColCategoryGroup,
		domain.ColCorrectedSequence, domain.ColRegion, domain.ColDeliveryClass,
		domain.ColDeliveryDays,
	},
	Numeric: []string{
		domain.ColPayment, domain.ColPrice, domain.ColFreightCost, domain.ColVolume,
		domain.ColDeliveryDays,
	},
}

// DeliverySpec is the historical order base behind the delivery dashboard
var DeliverySpec = Spec{
	Name: "delivery",
	Required: []string{
		domain.ColCustomerID, domain.ColPurchaseTimestamp, domain.ColVolume,
		domain.ColProductCategory, domain.ColCustomerState, domain.ColDeliveryDays,
	},
	Numeric: []string{
		domain.ColVolume, domain.ColDeliveryDays, domain.ColTotalValue,
		domain.ColPrice, domain.ColFreightCost, domain.ColPayment,
	},
}

// ProjectionSpec is the simulated base behind the projection dashboard
var ProjectionSpec = Spec{
	Name: "projection",
	Required: []string{
		domain.ColCategoryGroup, domain.ColRegion, domain.ColVolume,
		domain.ColSimulatedDelivery,
	},
	Numeric: []string{
		domain.ColVolume, domain.ColSimulatedDelivery, domain.ColRetention,
		domain.ColFreightCost, domain.ColDeliveryDays,
	},
}

// SpecFor resolves a dataset spec by name
func SpecFor(name string) (Spec, bool) {
	for _, s := range []Spec{TrainingSpec, DeliverySpec, ProjectionSpec} {
		if s.Name == name {
			return s, true
		}
	}
	return Spec{}, false
}

// Apply validates the required columns and coerces numeric columns in place.
// Unparseable numeric cells become empty.
func (s Spec) Apply(table *domain.Table) error {
	if err := table.Require(s.Name, s.Required...); err != nil {
		return err
	}
	for _, col := range s.Numeric {
		if !table.Has(col) {
			continue
		}
		for r := range table.Rows {
			if f, ok := table.Float(r, col); ok {
				table.Set(r, col, domain.FormatNumber(f))
			} else {
				table.Set(r, col, "")
			}
		}
	}
	return nil
}

// LoadSpec loads a file and applies spec to it
func (l *Loader) LoadSpec(ctx context.Context, path string, spec Spec) (*domain.Table, error) {
	table, err := l.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := spec.Apply(table); err != nil {
		return nil, err
	}
	return table, nil
}
