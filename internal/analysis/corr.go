// Package analysis computes correlation matrices and dataset summaries over
// a loaded table.
package analysis

import (
	"encoding/json"
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/tabloom-cli/internal/dataset"
)

// ErrNoNumericColumns is returned when a table has no numeric column to correlate.
var ErrNoNumericColumns = errors.New("no numeric columns")

// CorrMatrix holds a symmetric Pearson correlation matrix across numeric columns.
// Rows and columns of Values follow Columns. Entries involving a degenerate
// column are NaN, including its diagonal.
type CorrMatrix struct {
	Columns    []string
	Values     *mat.SymDense
	Degenerate []string
}

// PairCorr is one off-diagonal coefficient.
type PairCorr struct {
	A, B string
	R    float64
}

// Correlate computes pairwise Pearson coefficients for every numeric column of t.
// A column with fewer than two rows, zero variance or any non-finite value is
// degenerate.
func Correlate(t *dataset.Table) (*CorrMatrix, error) {
	if t == nil {
		return nil, dataset.ErrNoTable
	}
	idx := t.NumericColumns()
	if len(idx) == 0 {
		return nil, ErrNoNumericColumns
	}
	n := len(idx)
	cols := make([][]float64, n)
	names := make([]string, n)
	ok := make([]bool, n)
	m := &CorrMatrix{Columns: names, Values: mat.NewSymDense(n, nil)}
	for k, j := range idx {
		names[k] = t.ColumnName(j)
		cols[k] = t.Floats(j)
		ok[k] = usable(cols[k])
		if !ok[k] {
			m.Degenerate = append(m.Degenerate, names[k])
		}
	}
	for a := 0; a < n; a++ {
		for b := a; b < n; b++ {
			r := math.NaN()
			switch {
			case !ok[a] || !ok[b]:
			case a == b:
				r = 1
			default:
				r = clamp(stat.Correlation(cols[a], cols[b], nil))
			}
			m.Values.SetSym(a, b, r)
		}
	}
	return m, nil
}

func usable(xs []float64) bool {
	if len(xs) < 2 {
		return false
	}
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return stat.Variance(xs, nil) > 0
}

func clamp(r float64) float64 {
	switch {
	case math.IsNaN(r):
		return r
	case r > 1:
		return 1
	case r < -1:
		return -1
	}
	return r
}

// Len returns the number of columns in the matrix.
func (m *CorrMatrix) Len() int { return len(m.Columns) }

// At returns the coefficient between columns i and j.
func (m *CorrMatrix) At(i, j int) float64 { return m.Values.At(i, j) }

// Index returns the position of a column name.
func (m *CorrMatrix) Index(name string) (int, bool) {
	for i, c := range m.Columns {
		if c == name {
			return i, true
		}
	}
	return -1, false
}

// Rows returns the matrix as row-major slices, convenient for JSON output.
// NaN entries are reported as nil.
func (m *CorrMatrix) Rows() [][]*float64 {
	n := m.Len()
	out := make([][]*float64, n)
	for i := range out {
		out[i] = make([]*float64, n)
		for j := range out[i] {
			if v := m.At(i, j); !math.IsNaN(v) {
				out[i][j] = &v
			}
		}
	}
	return out
}

// MarshalJSON encodes the matrix with NaN entries as null.
func (m *CorrMatrix) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Columns    []string     `json:"columns"`
		Values     [][]*float64 `json:"values"`
		Degenerate []string     `json:"degenerate,omitempty"`
	}{m.Columns, m.Rows(), m.Degenerate})
}

// TopPairs lists the off-diagonal pairs with a defined coefficient, strongest
// first; limit <= 0 returns all of them.
func (m *CorrMatrix) TopPairs(limit int) []PairCorr {
	var pairs []PairCorr
	n := m.Len()
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			r := m.At(i, j)
			if math.IsNaN(r) {
				continue
			}
			pairs = append(pairs, PairCorr{A: m.Columns[i], B: m.Columns[j], R: r})
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		return math.Abs(pairs[i].R) > math.Abs(pairs[j].R)
	})
	if limit > 0 && len(pairs) > limit {
		pairs = pairs[:limit]
	}
	return pairs
}
