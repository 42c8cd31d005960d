package features

import (
	"fmt"
	"slices"

	"github.com/danu-shop/insights/internal/dataset"
	"github.com/danu-shop/insights/internal/domain"
)

// Schema selects the label and the input columns of the classifier
type Schema struct {
	Label       string
	Numeric     []string
	Categorical []string
	Boolean     []string
	Drop        []string
}

// DefaultDrop lists leakage and identifier columns never used as inputs
func DefaultDrop() []string {
	return []string{
		domain.ColPrice, domain.ColPayment, domain.ColPaymentType, domain.ColInstallments,
		domain.ColOrderStatus, domain.ColDeliveryClass, domain.ColOrderID,
		domain.ColCustomerID, domain.ColProductID, domain.ColPurchaseTimestamp,
	}
}

// DefaultSchema trains on volume, region and category group
func DefaultSchema() Schema {
	return Schema{
		Label:       domain.ColDeliveryDays,
		Numeric:     []string{domain.ColVolume},
		Categorical: []string{domain.ColRegion, domain.ColCategoryGroup},
		Drop:        DefaultDrop(),
	}
}

// Inputs returns the raw input columns: numeric, boolean, then categorical
func (s Schema) Inputs() []string {
	out := make([]string, 0, len(s.Numeric)+len(s.Boolean)+len(s.Categorical))
	out = append(out, s.Numeric...)
	out = append(out, s.Boolean...)
	out = append(out, s.Categorical...)
	return out
}

// Validate rejects schemas whose inputs overlap the label or the drop list
func (s Schema) Validate() error {
	if s.Label == "" {
		return fmt.Errorf("schema has no label column")
	}
	seen := map[string]struct{}{}
	for _, c := range s.Inputs() {
		if c == s.Label {
			return fmt.Errorf("label %q is also an input", c)
		}
		if slices.Contains(s.Drop, c) {
			return fmt.Errorf("input %q is in the drop list", c)
		}
		if _, dup := seen[c]; dup {
			return fmt.Errorf("input %q listed twice", c)
		}
		seen[c] = struct{}{}
	}
	if len(seen) == 0 {
		return fmt.Errorf("schema has no input columns")
	}
	return nil
}

// InferSchema classifies every column that is neither the label nor dropped,
// in table order.
func InferSchema(table *domain.Table, label string, drop []string) Schema {
	s := Schema{Label: label, Drop: drop}
	for _, col := range table.Columns {
		if col == label || slices.Contains(drop, col) {
			continue
		}
		numeric, boolean, seen := true, true, false
		for r := range table.Rows {
			v := table.Value(r, col)
			if v == "" {
				continue
			}
			seen = true
			if _, ok := domain.ParseNumber(v); !ok {
				numeric = false
			}
			if _, ok := dataset.ParseBool(v); !ok {
				boolean = false
			}
		}
		switch {
		case !seen:
			continue
		case numeric:
			s.Numeric = append(s.Numeric, col)
		case boolean:
			s.Boolean = append(s.Boolean, col)
		default:
			s.Categorical = append(s.Categorical, col)
		}
	}
	return s
}
