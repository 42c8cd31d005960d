package dataset

import (
	"math"
	"strings"

	"github.com/danu-shop/insights/internal/domain"
)

// ColumnKind is the inferred type of a column
type ColumnKind string

const (
	KindNumeric  ColumnKind = "numeric"
	KindBoolean  ColumnKind = "boolean"
	KindDatetime ColumnKind = "datetime"
	KindText     ColumnKind = "text"
	KindEmpty    ColumnKind = "empty"
)

// ColumnProfile describes one column
type ColumnProfile struct {
	Name     string     `json:"name"`
	Kind     ColumnKind `json:"kind"`
	NonNull  int        `json:"nonNull"`
	Nulls    int        `json:"nulls"`
	Distinct int        `json:"distinct"`
}

// Profile is the data exploration summary of a table
type Profile struct {
	Rows           int             `json:"rows"`
	Columns        []ColumnProfile `json:"columns"`
	TotalCells     int             `json:"totalCells"`
	NullCells      int             `json:"nullCells"`
	NullPercentage float64         `json:"nullPercentage"`
	Preview        [][]string      `json:"preview,omitempty"`
}

// PreviewRows is the number of leading rows included in a profile
const PreviewRows = 5

// ProfileTable infers column kinds and counts nulls
func ProfileTable(table *domain.Table) Profile {
	p := Profile{Rows: table.Len()}

	for i, name := range table.Columns {
		cp := ColumnProfile{Name: name}
		distinct := make(map[string]struct{})
		numeric, boolean, datetime := true, true, true

		for _, row := range table.Rows {
			v := strings.TrimSpace(row[i])
			if v == "" || strings.EqualFold(v, "nan") {
				cp.Nulls++
				continue
			}
			cp.NonNull++
			distinct[v] = struct{}{}
			if numeric {
				_, numeric = domain.ParseNumber(v)
			}
			if boolean {
				_, boolean = ParseBool(v)
			}
			if datetime {
				datetime = looksLikeTimestamp(v)
			}
		}
		cp.Distinct = len(distinct)

		switch {
		case cp.NonNull == 0:
			cp.Kind = KindEmpty
		case boolean && !numeric:
			cp.Kind = KindBoolean
		case numeric:
			cp.Kind = KindNumeric
		case datetime:
			cp.Kind = KindDatetime
		default:
			cp.Kind = KindText
		}

		p.NullCells += cp.Nulls
		p.Columns = append(p.Columns, cp)
	}

	p.TotalCells = p.Rows * len(table.Columns)
	if p.TotalCells > 0 {
		p.NullPercentage = math.Round(float64(p.NullCells)/float64(p.TotalCells)*10000) / 100
	}

	n := min(PreviewRows, table.Len())
	p.Preview = append(p.Preview, table.Rows[:n]...)
	return p
}

// looksLikeTimestamp rejects bare numbers, which would otherwise parse as serial dates
func looksLikeTimestamp(v string) bool {
	if _, ok := domain.ParseNumber(v); ok {
		return false
	}
	_, err := ParseTimestamp(v)
	return err == nil
}

// ParseBool accepts the textual boolean spellings found in exported spreadsheets
func ParseBool(v string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "yes", "si", "sí", "verdadero", "1":
		return true, true
	case "false", "no", "falso", "0":
		return false, true
	default:
		return false, false
	}
}
