package features

import (
	"fmt"
	"slices"

	"github.com/danu-shop/insights/internal/dataset"
	"github.com/danu-shop/insights/internal/domain"
)

// CategoricalColumn is a one-hot encoded column. Reference is the first level
// in sorted order and gets no indicator.
type CategoricalColumn struct {
	Name      string   `json:"name"`
	Reference string   `json:"reference"`
	Levels    []string `json:"levels"`
}

// Layout is the fitted feature layout reproduced at inference
type Layout struct {
	Columns     []string            `json:"columns"`
	Numeric     []string            `json:"numeric"`
	Boolean     []string            `json:"boolean"`
	Categorical []CategoricalColumn `json:"categorical"`
	Means       []float64           `json:"means"`
}

// Prepared is the encoded training matrix
type Prepared struct {
	Layout  *Layout
	X       [][]float64
	Labels  []domain.DeliveryTier
	Dropped int
}

// Preparer fits a Layout on a labelled table
type Preparer struct {
	schema Schema
}

// NewPreparer creates a preparer for schema
func NewPreparer(schema Schema) *Preparer {
	return &Preparer{schema: schema}
}

// Fit validates the inputs, drops unusable rows and one-hot encodes the rest.
// Rows with a missing numeric input or a label outside 0-30 days are dropped.
func (p *Preparer) Fit(table *domain.Table) (*Prepared, error) {
	if err := p.schema.Validate(); err != nil {
		return nil, err
	}
	required := append([]string{p.schema.Label}, p.schema.Inputs()...)
	if err := table.Require("training", required...); err != nil {
		return nil, err
	}

	var keep []int
	var labels []domain.DeliveryTier
	dropped := 0
	for r := range table.Rows {
		if tier, ok := labelOf(table, r, p.schema.Label); ok && numericComplete(table, r, p.schema.Numeric) {
			keep = append(keep, r)
			labels = append(labels, tier)
			continue
		}
		dropped++
	}
	if len(keep) == 0 {
		return nil, fmt.Errorf("%w: %d rows dropped", domain.ErrNoTrainingRows, dropped)
	}

	layout := &Layout{
		Numeric: slices.Clone(p.schema.Numeric),
		Boolean: slices.Clone(p.schema.Boolean),
		Means:   make([]float64, len(p.schema.Numeric)),
	}
	for i, col := range layout.Numeric {
		sum := 0.0
		for _, r := range keep {
			v, _ := table.Float(r, col)
			sum += v
		}
		layout.Means[i] = sum / float64(len(keep))
	}
	for _, col := range p.schema.Categorical {
		layout.Categorical = append(layout.Categorical, fitLevels(table, keep, col))
	}
	layout.Columns = layout.buildColumns()

	X := make([][]float64, len(keep))
	for i, r := range keep {
		X[i], _ = layout.encodeRow(table, r)
	}

	return &Prepared{Layout: layout, X: X, Labels: labels, Dropped: dropped}, nil
}

func labelOf(table *domain.Table, row int, label string) (domain.DeliveryTier, bool) {
	days, ok := table.Float(row, label)
	if !ok {
		return "", false
	}
	return domain.TierFor(days)
}

func numericComplete(table *domain.Table, row int, cols []string) bool {
	for _, c := range cols {
		if _, ok := table.Float(row, c); !ok {
			return false
		}
	}
	return true
}

func fitLevels(table *domain.Table, rows []int, col string) CategoricalColumn {
	seen := map[string]struct{}{}
	var levels []string
	for _, r := range rows {
		v := table.Value(r, col)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			levels = append(levels, v)
		}
	}
	slices.Sort(levels)

	cc := CategoricalColumn{Name: col}
	if len(levels) > 0 {
		cc.Reference = levels[0]
		cc.Levels = levels[1:]
	}
	return cc
}

func (l *Layout) buildColumns() []string {
	cols := make([]string, 0, len(l.Numeric)+len(l.Boolean))
	cols = append(cols, l.Numeric...)
	cols = append(cols, l.Boolean...)
	for _, cc := range l.Categorical {
		for _, lvl := range cc.Levels {
			cols = append(cols, cc.Name+"_"+lvl)
		}
	}
	return cols
}

// Width is the number of encoded features
func (l *Layout) Width() int {
	return len(l.Columns)
}

// RequiredInputs lists the raw columns inference needs
func (l *Layout) RequiredInputs() []string {
	out := make([]string, 0, len(l.Numeric)+len(l.Boolean)+len(l.Categorical))
	out = append(out, l.Numeric...)
	out = append(out, l.Boolean...)
	for _, cc := range l.Categorical {
		out = append(out, cc.Name)
	}
	return out
}

// Encode re-encodes raw rows to exactly the training columns. Missing numeric
// cells take the training mean; unseen categorical values fall back to the
// reference level and are reported per column.
func (l *Layout) Encode(table *domain.Table) ([][]float64, map[string][]string, error) {
	if err := table.Require("input", l.RequiredInputs()...); err != nil {
		return nil, nil, err
	}

	unknownSets := map[string]map[string]struct{}{}
	X := make([][]float64, table.Len())
	for r := range table.Rows {
		row, unknown := l.encodeRow(table, r)
		X[r] = row
		for col, v := range unknown {
			if unknownSets[col] == nil {
				unknownSets[col] = map[string]struct{}{}
			}
			unknownSets[col][v] = struct{}{}
		}
	}

	var unknown map[string][]string
	if len(unknownSets) > 0 {
		unknown = make(map[string][]string, len(unknownSets))
		for col, set := range unknownSets {
			vals := make([]string, 0, len(set))
			for v := range set {
				vals = append(vals, v)
			}
			slices.Sort(vals)
			unknown[col] = vals
		}
	}
	return X, unknown, nil
}

func (l *Layout) encodeRow(table *domain.Table, r int) ([]float64, map[string]string) {
	row := make([]float64, 0, len(l.Columns))
	for i, col := range l.Numeric {
		v, ok := table.Float(r, col)
		if !ok {
			v = l.Means[i]
		}
		row = append(row, v)
	}
	for _, col := range l.Boolean {
		b, _ := dataset.ParseBool(table.Value(r, col))
		if b {
			row = append(row, 1)
		} else {
			row = append(row, 0)
		}
	}

	var unknown map[string]string
	for _, cc := range l.Categorical {
		v := table.Value(r, cc.Name)
		matched := v == "" || v == cc.Reference
		for _, lvl := range cc.Levels {
			if v == lvl {
				row = append(row, 1)
				matched = true
			} else {
				row = append(row, 0)
			}
		}
		if !matched {
			if unknown == nil {
				unknown = map[string]string{}
			}
			unknown[cc.Name] = v
		}
	}
	return row, unknown
}
