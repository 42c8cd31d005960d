package domain

import (
	"math"
	"strconv"
	"strings"
)

// Table is an in-memory rectangular dataset with string cells
type Table struct {
	Columns []string
	Rows    [][]string

	index map[string]int
}

// NewTable builds a table, padding short rows with empty cells
func NewTable(columns []string, rows [][]string) *Table {
	for i, row := range rows {
		if len(row) < len(columns) {
			padded := make([]string, len(columns))
			copy(padded, row)
			rows[i] = padded
		}
	}
	t := &Table{Columns: columns, Rows: rows}
	t.reindex()
	return t
}

func (t *Table) reindex() {
	t.index = make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		t.index[c] = i
	}
}

// Len returns the number of rows
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Index returns the position of a column, or -1
func (t *Table) Index(name string) int {
	if t.index == nil {
		t.reindex()
	}
	if i, ok := t.index[name]; ok {
		return i
	}
	return -1
}

// Has reports whether the column exists
func (t *Table) Has(name string) bool {
	return t.Index(name) >= 0
}

// Require fails with a MissingColumnError listing every absent name in order
func (t *Table) Require(source string, names ...string) error {
	var missing []string
	for _, n := range names {
		if !t.Has(n) {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return &MissingColumnError{Columns: missing, Source: source}
	}
	return nil
}

// Value returns the trimmed cell, or "" when the column is absent
func (t *Table) Value(row int, name string) string {
	i := t.Index(name)
	if i < 0 || i >= len(t.Rows[row]) {
		return ""
	}
	return strings.TrimSpace(t.Rows[row][i])
}

// Float parses the cell as a number
func (t *Table) Float(row int, name string) (float64, bool) {
	return ParseNumber(t.Value(row, name))
}

// Column returns a copy of every cell of the column
func (t *Table) Column(name string) []string {
	i := t.Index(name)
	if i < 0 {
		return nil
	}
	out := make([]string, len(t.Rows))
	for r, row := range t.Rows {
		out[r] = row[i]
	}
	return out
}

// Set overwrites one cell
func (t *Table) Set(row int, name, value string) {
	if i := t.Index(name); i >= 0 {
		t.Rows[row][i] = value
	}
}

// Filter returns a table with the rows for which keep is true; rows are shared
func (t *Table) Filter(keep func(row int) bool) *Table {
	out := &Table{Columns: t.Columns, index: t.index}
	for r, row := range t.Rows {
		if keep(r) {
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}

// AppendColumn returns a copy of the table with one more column; t is not modified
func (t *Table) AppendColumn(name string, values []string) *Table {
	cols := make([]string, len(t.Columns), len(t.Columns)+1)
	copy(cols, t.Columns)
	cols = append(cols, name)

	rows := make([][]string, len(t.Rows))
	for r, row := range t.Rows {
		nr := make([]string, len(row), len(row)+1)
		copy(nr, row)
		v := ""
		if r < len(values) {
			v = values[r]
		}
		rows[r] = append(nr, v)
	}
	return NewTable(cols, rows)
}

// Distinct returns the non-empty values of a column in first-seen order
func (t *Table) Distinct(name string) []string {
	i := t.Index(name)
	if i < 0 {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, row := range t.Rows {
		v := strings.TrimSpace(row[i])
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// ParseNumber parses a cell, accepting a comma decimal separator. When both
// separators appear the rightmost one is the decimal point and the other must
// group thousands. Empty, NaN and unparseable cells are missing.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	comma, dot := strings.LastIndex(s, ","), strings.LastIndex(s, ".")
	switch {
	case comma >= 0 && dot >= 0:
		decimal, thousands := ".", ","
		if comma > dot {
			decimal, thousands = ",", "."
		}
		at := strings.LastIndex(s, decimal)
		whole, ok := ungroup(s[:at], thousands)
		if !ok || strings.Contains(s[at+1:], thousands) {
			return 0, false
		}
		s = whole + "." + s[at+1:]
	case comma >= 0:
		s = strings.ReplaceAll(s, ",", ".")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ungroup strips thousands separators from the integer part, requiring a
// leading group of one to three digits followed by groups of exactly three.
func ungroup(s, sep string) (string, bool) {
	sign := ""
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		sign, s = s[:1], s[1:]
	}
	groups := strings.Split(s, sep)
	for i, g := range groups {
		if len(g) == 0 || len(g) > 3 || (i > 0 && len(g) != 3) {
			return "", false
		}
		for _, r := range g {
			if r < '0' || r > '9' {
				return "", false
			}
		}
	}
	return sign + strings.Join(groups, ""), true
}

// FormatNumber renders a float the way coerced cells are stored
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
