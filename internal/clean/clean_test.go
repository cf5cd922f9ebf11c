package clean_test

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/tabloom-cli/internal/clean"
	"github.com/KaramelBytes/tabloom-cli/internal/dataset"
)

func table(t *testing.T, cols []string, rows ...[]string) *dataset.Table {
	t.Helper()
	tbl, err := dataset.New("test", cols)
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

func TestCleanFiveRowScenario(t *testing.T) {
	tbl := table(t, []string{"a", "b", "label"},
		[]string{"1", "10", "0"},
		[]string{"2", "", "1"},
		[]string{"3", "30", "0"},
		[]string{"4", "40", "1"},
		[]string{"5", "50", "1"},
	)
	rep, err := clean.Clean(tbl, clean.DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, 5, rep.RowsBefore)
	assert.Equal(t, 4, rep.RowsAfter)
	assert.Equal(t, 1, rep.Dropped)
	require.Len(t, rep.Columns, 3)
	for j, cs := range rep.Columns {
		assert.Equal(t, clean.Normalized, cs.Status, cs.Name)
		mean, std := stat.MeanStdDev(tbl.Floats(j), nil)
		assert.InDelta(t, 0, mean, 1e-9, cs.Name)
		assert.InDelta(t, 1, std, 1e-9, cs.Name)
	}
	// first column before normalization: 1,3,4,5
	assert.InDelta(t, 3.25, rep.Columns[0].Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(2.9166666666666665), rep.Columns[0].Std, 1e-12)
}

func TestDropIncompleteNoMissingIsNoop(t *testing.T) {
	tbl := table(t, []string{"a", "b"}, []string{"1", "x"}, []string{"2", "y"})
	before := tbl.Clone()
	n, err := clean.DropIncomplete(tbl)
	require.NoError(t, err)
	assert.Zero(t, n)
	require.Equal(t, before.Len(), tbl.Len())
	for i := 0; i < tbl.Len(); i++ {
		for j := 0; j < tbl.Width(); j++ {
			assert.True(t, before.At(i, j).Equal(tbl.At(i, j)))
		}
	}
}

func TestDropIncompletePreservesOrder(t *testing.T) {
	tbl := table(t, []string{"id", "v"},
		[]string{"1", "a"}, []string{"2", "NA"}, []string{"3", "c"}, []string{"", "d"}, []string{"5", "e"})
	n, err := clean.DropIncomplete(tbl)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []float64{1, 3, 5}, tbl.Floats(0))
}

func TestNormalizeIsIdempotent(t *testing.T) {
	tbl := table(t, []string{"x", "y"},
		[]string{"3", "100"}, []string{"7", "-2"}, []string{"11", "40"}, []string{"2", "8"})
	_, err := clean.Normalize(tbl, clean.DefaultOptions())
	require.NoError(t, err)
	first := [][]float64{tbl.Floats(0), tbl.Floats(1)}

	_, err = clean.Normalize(tbl, clean.DefaultOptions())
	require.NoError(t, err)
	assert.InDeltaSlice(t, first[0], tbl.Floats(0), 1e-9)
	assert.InDeltaSlice(t, first[1], tbl.Floats(1), 1e-9)
}

func TestNormalizeLeavesTextColumns(t *testing.T) {
	tbl := table(t, []string{"name", "x"}, []string{"a", "1"}, []string{"b", "2"})
	rep, err := clean.Normalize(tbl, clean.DefaultOptions())
	require.NoError(t, err)
	require.Len(t, rep.Columns, 1)
	assert.Equal(t, "x", rep.Columns[0].Name)
	assert.Equal(t, "a", tbl.At(0, 0).String())
}

func TestConstantColumnPolicies(t *testing.T) {
	rows := [][]string{{"5", "1"}, {"5", "2"}, {"5", "3"}}

	t.Run("skip", func(t *testing.T) {
		tbl := table(t, []string{"c", "x"}, rows...)
		rep, err := clean.Normalize(tbl, clean.Options{Constant: clean.ConstantSkip})
		require.NoError(t, err)
		assert.Equal(t, clean.Degenerate, rep.Columns[0].Status)
		assert.Equal(t, []string{"c"}, rep.DegenerateColumns())
		assert.Equal(t, []float64{5, 5, 5}, tbl.Floats(0))
	})

	t.Run("mark", func(t *testing.T) {
		tbl := table(t, []string{"c", "x"}, rows...)
		rep, err := clean.Normalize(tbl, clean.Options{Constant: clean.ConstantMark})
		require.NoError(t, err)
		assert.Equal(t, clean.Degenerate, rep.Columns[0].Status)
		for _, f := range tbl.Floats(0) {
			assert.True(t, math.IsNaN(f))
		}
		assert.Equal(t, clean.Normalized, rep.Columns[1].Status)
	})

	t.Run("fail", func(t *testing.T) {
		tbl := table(t, []string{"c", "x"}, rows...)
		_, err := clean.Normalize(tbl, clean.Options{Constant: clean.ConstantFail})
		var de *clean.DegenerateColumnError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, "c", de.Column)
		assert.Equal(t, []float64{1, 2, 3}, tbl.Floats(1), "table must be untouched")
	})
}

func TestSingleRowIsDegenerate(t *testing.T) {
	tbl := table(t, []string{"x"}, []string{"4"})
	rep, err := clean.Normalize(tbl, clean.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, clean.Degenerate, rep.Columns[0].Status)
	assert.True(t, math.IsNaN(rep.Columns[0].Std))
}

func TestNilTable(t *testing.T) {
	_, err := clean.Clean(nil, clean.DefaultOptions())
	assert.ErrorIs(t, err, clean.ErrNoTable)
	_, err = clean.DropIncomplete(nil)
	assert.ErrorIs(t, err, clean.ErrNoTable)
}

func TestParsePolicy(t *testing.T) {
	p, err := clean.ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, clean.ConstantSkip, p)
	_, err = clean.ParsePolicy("explode")
	assert.Error(t, err)
}

func TestColumnStatsJSONHandlesNaN(t *testing.T) {
	b, err := json.Marshal(clean.ColumnStats{Name: "x", Mean: 4, Std: math.NaN(), Status: clean.Degenerate})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"x","mean":4,"std":null,"status":"degenerate"}`, string(b))
}

func TestCleanDropsNonFiniteSpellings(t *testing.T) {
	tbl := table(t, []string{"a", "b", "y"},
		[]string{"1", "2", "0"},
		[]string{"NAN", "3", "1"},
		[]string{"4", "inf", "0"},
		[]string{"6", "7", "1"},
		[]string{"8", "Nan", "0"},
		[]string{"9", "1", "1"},
	)
	rep, err := clean.Clean(tbl, clean.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Dropped)
	assert.Equal(t, 3, tbl.Len())
	assert.Empty(t, rep.DegenerateColumns())
	for j := 0; j < tbl.Width(); j++ {
		assert.Equal(t, dataset.KindNumeric, tbl.Kind(j))
		for _, f := range tbl.Floats(j) {
			assert.False(t, math.IsNaN(f) || math.IsInf(f, 0), "non-finite cell in %s", tbl.ColumnName(j))
		}
	}
}
