package analysis_test

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/tabloom-cli/internal/analysis"
	"github.com/KaramelBytes/tabloom-cli/internal/dataset"
)

func table(t *testing.T, cols []string, rows ...[]string) *dataset.Table {
	t.Helper()
	tbl, err := dataset.New("sample.csv", cols)
	require.NoError(t, err)
	for _, r := range rows {
		vals := make([]dataset.Value, len(r))
		for i, s := range r {
			vals[i] = dataset.ParseValue(s)
		}
		require.NoError(t, tbl.AppendRow(vals))
	}
	tbl.InferKinds()
	return tbl
}

func TestCorrelateSymmetricUnitDiagonal(t *testing.T) {
	tbl := table(t, []string{"x", "y", "z", "label"},
		[]string{"1", "2", "9", "a"},
		[]string{"2", "4.1", "7", "b"},
		[]string{"3", "5.9", "8", "a"},
		[]string{"4", "8.2", "3", "b"},
		[]string{"5", "9.9", "1", "a"},
	)
	m, err := analysis.Correlate(tbl)
	require.NoError(t, err)
	require.Equal(t, []string{"x", "y", "z"}, m.Columns)
	assert.Empty(t, m.Degenerate)
	for i := 0; i < m.Len(); i++ {
		assert.Equal(t, 1.0, m.At(i, i))
		for j := 0; j < m.Len(); j++ {
			assert.Equal(t, m.At(i, j), m.At(j, i))
			assert.LessOrEqual(t, math.Abs(m.At(i, j)), 1.0)
		}
	}
	assert.Greater(t, m.At(0, 1), 0.99)
	assert.Less(t, m.At(0, 2), 0.0)
}

func TestCorrelatePerfectLinear(t *testing.T) {
	tbl := table(t, []string{"a", "b"}, []string{"1", "-2"}, []string{"2", "-4"}, []string{"3", "-6"})
	m, err := analysis.Correlate(tbl)
	require.NoError(t, err)
	assert.InDelta(t, -1, m.At(0, 1), 1e-12)
}

func TestCorrelateDegenerateColumnIsNaN(t *testing.T) {
	tbl := table(t, []string{"x", "c"}, []string{"1", "5"}, []string{"2", "5"}, []string{"3", "5"})
	m, err := analysis.Correlate(tbl)
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, m.Degenerate)
	assert.Equal(t, 1.0, m.At(0, 0))
	assert.True(t, math.IsNaN(m.At(1, 1)))
	assert.True(t, math.IsNaN(m.At(0, 1)))
	rows := m.Rows()
	assert.Nil(t, rows[0][1])
	require.NotNil(t, rows[0][0])
	assert.Equal(t, 1.0, *rows[0][0])
	assert.Empty(t, m.TopPairs(0))
}

func TestCorrelateNoNumericColumns(t *testing.T) {
	tbl := table(t, []string{"a"}, []string{"x"}, []string{"y"})
	_, err := analysis.Correlate(tbl)
	assert.ErrorIs(t, err, analysis.ErrNoNumericColumns)

	_, err = analysis.Correlate(nil)
	assert.ErrorIs(t, err, dataset.ErrNoTable)
}

func TestTopPairsOrder(t *testing.T) {
	tbl := table(t, []string{"a", "b", "c"},
		[]string{"1", "1", "3"}, []string{"2", "2", "1"}, []string{"3", "3", "4"}, []string{"4", "4.5", "2"})
	m, err := analysis.Correlate(tbl)
	require.NoError(t, err)
	pairs := m.TopPairs(1)
	require.Len(t, pairs, 1)
	assert.Equal(t, "a", pairs[0].A)
	assert.Equal(t, "b", pairs[0].B)
	idx, ok := m.Index("c")
	assert.True(t, ok)
	assert.Equal(t, 2, idx)
}

func TestDescribeMarkdown(t *testing.T) {
	tbl := table(t, []string{"plot", "alpha", "notes"},
		[]string{"A1", "12.5", strings.Repeat("long note ", 10)},
		[]string{"A1", "11.8", ""},
		[]string{"B3", "10.2", "short"},
		[]string{"B3", "100", "short"},
	)
	s, err := analysis.Describe(tbl, analysis.DefaultOptions())
	require.NoError(t, err)
	require.Len(t, s.Cols, 3)

	alpha := s.Cols[1]
	assert.Equal(t, dataset.KindNumeric, alpha.Kind)
	assert.Equal(t, 10.2, alpha.Min)
	assert.Equal(t, 100.0, alpha.Max)
	assert.Equal(t, 1, alpha.OutliersCount)

	plot := s.Cols[0]
	assert.Equal(t, dataset.KindCategorical, plot.Kind)
	require.Len(t, plot.TopValues, 2)
	assert.Equal(t, "A1", plot.TopValues[0].Value)

	assert.Equal(t, dataset.KindText, s.Cols[2].Kind)
	assert.Equal(t, 1, s.Cols[2].Missing)

	md := s.Markdown()
	assert.Contains(t, md, "[DATASET SUMMARY]")
	assert.Contains(t, md, "File: sample.csv")
	assert.Contains(t, md, "- alpha: numeric")
	assert.Contains(t, md, "top: A1(2), B3(2)")
	assert.Contains(t, md, "[HEAD]")
}

func TestDescribeWarnsWithoutNumericColumns(t *testing.T) {
	tbl := table(t, []string{"a"}, []string{"x"}, []string{"y"})
	s, err := analysis.Describe(tbl, analysis.DefaultOptions())
	require.NoError(t, err)
	assert.Nil(t, s.Corr)
	assert.Contains(t, s.Markdown(), "no numeric columns")
}

func TestCorrMatrixJSON(t *testing.T) {
	tbl := table(t, []string{"x", "c"}, []string{"1", "5"}, []string{"2", "5"})
	m, err := analysis.Correlate(tbl)
	require.NoError(t, err)
	b, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"columns":["x","c"],"values":[[1,null],[null,null]],"degenerate":["c"]}`, string(b))
}
