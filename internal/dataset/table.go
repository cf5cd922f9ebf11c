// Package dataset holds the in-memory table shared by every pipeline stage.
package dataset

import (
	"errors"
	"fmt"
	"math"
)

// Kind is the semantic type of a column.
type Kind string

const (
	KindUnknown     Kind = "unknown"
	KindNumeric     Kind = "numeric"
	KindCategorical Kind = "categorical"
	KindText        Kind = "text"
)

// maxCategoryLen mirrors the short-token rule used for categorical detection.
const maxCategoryLen = 64

var (
	ErrDuplicateColumn = errors.New("duplicate column name")
	ErrWidthMismatch   = errors.New("row width does not match column count")
	// ErrNoTable is returned by stages invoked before a table was loaded.
	ErrNoTable = errors.New("no table loaded")
)

// Table is an ordered set of rows over a fixed, ordered column set.
// Column order is significant: the last column is the target for splitting.
type Table struct {
	Name string

	columns []string
	index   map[string]int
	kinds   []Kind
	rows    [][]Value
}

// New creates an empty table with the given columns.
func New(name string, columns []string) (*Table, error) {
	idx := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, dup := idx[c]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, c)
		}
		idx[c] = i
	}
	cols := make([]string, len(columns))
	copy(cols, columns)
	kinds := make([]Kind, len(columns))
	for i := range kinds {
		kinds[i] = KindUnknown
	}
	return &Table{Name: name, columns: cols, index: idx, kinds: kinds}, nil
}

// AppendRow adds a row. The row must have exactly one value per column.
func (t *Table) AppendRow(vals []Value) error {
	if len(vals) != len(t.columns) {
		return fmt.Errorf("%w: got %d values, want %d", ErrWidthMismatch, len(vals), len(t.columns))
	}
	row := make([]Value, len(vals))
	copy(row, vals)
	t.rows = append(t.rows, row)
	return nil
}

func (t *Table) Len() int { return len(t.rows) }
func (t *Table) Width() int { return len(t.columns) }

// Columns returns the column names in table order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

func (t *Table) ColumnIndex(name string) (int, bool) {
	i, ok := t.index[name]
	return i, ok
}

// Row returns a copy of row i.
func (t *Table) Row(i int) []Value {
	out := make([]Value, len(t.rows[i]))
	copy(out, t.rows[i])
	return out
}

// Record returns row i as a column-name keyed map.
func (t *Table) Record(i int) map[string]Value {
	m := make(map[string]Value, len(t.columns))
	for j, c := range t.columns {
		m[c] = t.rows[i][j]
	}
	return m
}

func (t *Table) At(i, j int) Value { return t.rows[i][j] }
func (t *Table) Set(i, j int, v Value) { t.rows[i][j] = v }
func (t *Table) Kind(j int) Kind { return t.kinds[j] }
func (t *Table) HasMissing(i int) bool { return hasMissing(t.rows[i]) }
func (t *Table) ColumnName(j int) string { return t.columns[j] }

func hasMissing(row []Value) bool {
	for _, v := range row {
		if v.IsMissing() {
			return true
		}
	}
	return false
}

// InferKinds recomputes every column kind from the current rows.
// Set does not re-infer; call this after bulk edits.
func (t *Table) InferKinds() {
	for j := range t.columns {
		t.kinds[j] = t.inferKind(j)
	}
}

func (t *Table) inferKind(j int) Kind {
	var nums, texts, long int
	for _, row := range t.rows {
		v := row[j]
		switch {
		case v.IsNumber():
			nums++
		case v.IsText():
			texts++
			if len(v.text) > maxCategoryLen {
				long++
			}
		}
	}
	switch {
	case nums > 0 && texts == 0:
		return KindNumeric
	case nums+texts == 0:
		return KindUnknown
	case long > 0:
		return KindText
	default:
		return KindCategorical
	}
}

// NumericColumns returns the indices of numeric columns in table order.
func (t *Table) NumericColumns() []int {
	var out []int
	for j, k := range t.kinds {
		if k == KindNumeric {
			out = append(out, j)
		}
	}
	return out
}

// Floats returns column j as floats; non-numeric cells become NaN.
func (t *Table) Floats(j int) []float64 {
	out := make([]float64, len(t.rows))
	for i, row := range t.rows {
		if f, ok := row[j].Float(); ok {
			out[i] = f
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// Retain keeps the rows for which keep returns true, preserving order,
// and returns the number of rows removed.
func (t *Table) Retain(keep func(row []Value) bool) int {
	kept := t.rows[:0]
	for _, row := range t.rows {
		if keep(row) {
			kept = append(kept, row)
		}
	}
	removed := len(t.rows) - len(kept)
	for i := len(kept); i < len(t.rows); i++ {
		t.rows[i] = nil
	}
	t.rows = kept
	return removed
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	c, _ := New(t.Name, t.columns)
	copy(c.kinds, t.kinds)
	c.rows = make([][]Value, len(t.rows))
	for i, row := range t.rows {
		r := make([]Value, len(row))
		copy(r, row)
		c.rows[i] = r
	}
	return c
}
