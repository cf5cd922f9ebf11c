package split_test

import (
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/tabloom-cli/internal/dataset"
	"github.com/KaramelBytes/tabloom-cli/internal/split"
)

func numericTable(t *testing.T, rows int) *dataset.Table {
	t.Helper()
	tbl, err := dataset.New("n", []string{"f1", "f2", "target"})
	require.NoError(t, err)
	for i := 0; i < rows; i++ {
		require.NoError(t, tbl.AppendRow([]dataset.Value{
			dataset.Number(float64(i)),
			dataset.Number(float64(i * i)),
			dataset.Number(float64(i % 2)),
		}))
	}
	tbl.InferKinds()
	return tbl
}

func TestHundredRowsSeed42(t *testing.T) {
	tbl := numericTable(t, 100)
	s, err := split.New(tbl, split.DefaultOptions())
	require.NoError(t, err)

	assert.Len(t, s.TestRows, 20)
	assert.Len(t, s.TrainRows, 80)
	assert.Equal(t, []string{"f1", "f2"}, s.Features)
	assert.Equal(t, "target", s.Target)

	again, err := split.New(tbl, split.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, s.TestRows, again.TestRows)
	assert.Equal(t, s.TrainRows, again.TrainRows)

	other, err := split.New(tbl, split.Options{TestSize: 0.2, Seed: 7})
	require.NoError(t, err)
	assert.NotEqual(t, s.TestRows, other.TestRows)
}

func TestSplitIsDisjointCover(t *testing.T) {
	for _, n := range []int{2, 3, 10, 37} {
		t.Run(fmt.Sprint(n), func(t *testing.T) {
			s, err := split.New(numericTable(t, n), split.DefaultOptions())
			require.NoError(t, err)
			all := append(append([]int(nil), s.TrainRows...), s.TestRows...)
			sort.Ints(all)
			want := make([]int, n)
			for i := range want {
				want[i] = i
			}
			assert.Equal(t, want, all)
			assert.NotEmpty(t, s.TrainRows)
			assert.NotEmpty(t, s.TestRows)
		})
	}
}

func TestRowsStayAligned(t *testing.T) {
	tbl := numericTable(t, 30)
	s, err := split.New(tbl, split.DefaultOptions())
	require.NoError(t, err)
	for k, i := range s.TrainRows {
		f, _ := s.XTrain[k][0].Float()
		assert.Equal(t, float64(i), f)
		y, _ := s.YTrain[k].Float()
		assert.Equal(t, float64(i%2), y)
		assert.Len(t, s.XTrain[k], 2)
	}
	for k, i := range s.TestRows {
		f, _ := s.XTest[k][1].Float()
		assert.Equal(t, float64(i*i), f)
	}
}

func TestSplitErrors(t *testing.T) {
	one, err := dataset.New("one", []string{"only"})
	require.NoError(t, err)
	require.NoError(t, one.AppendRow([]dataset.Value{dataset.Number(1)}))
	require.NoError(t, one.AppendRow([]dataset.Value{dataset.Number(2)}))

	_, err = split.New(one, split.DefaultOptions())
	assert.ErrorIs(t, err, split.ErrInsufficientColumns)

	_, err = split.New(numericTable(t, 1), split.DefaultOptions())
	assert.ErrorIs(t, err, split.ErrTooFewRows)

	_, err = split.New(numericTable(t, 2), split.Options{TestSize: 0.9, Seed: 42})
	assert.ErrorIs(t, err, split.ErrTooFewRows)

	for _, ts := range []float64{0, 1, -0.5, 1.5} {
		_, err = split.New(numericTable(t, 10), split.Options{TestSize: ts, Seed: 42})
		assert.ErrorIs(t, err, split.ErrInvalidTestSize, "test size %v", ts)
	}

	_, err = split.New(nil, split.DefaultOptions())
	assert.ErrorIs(t, err, dataset.ErrNoTable)
}

func TestDense(t *testing.T) {
	s, err := split.New(numericTable(t, 10), split.DefaultOptions())
	require.NoError(t, err)
	train, test, err := s.Dense()
	require.NoError(t, err)
	r, c := train.Dims()
	assert.Equal(t, 8, r)
	assert.Equal(t, 2, c)
	r, _ = test.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, float64(s.TestRows[0]), test.At(0, 0))

	ytrain, ytest, err := s.Targets()
	require.NoError(t, err)
	assert.Equal(t, 8, ytrain.Len())
	assert.Equal(t, 2, ytest.Len())
}

func TestDenseRejectsTextFeature(t *testing.T) {
	tbl, err := dataset.New("mixed", []string{"name", "y"})
	require.NoError(t, err)
	for _, r := range [][]string{{"a", "1"}, {"b", "0"}, {"c", "1"}} {
		require.NoError(t, tbl.AppendRow([]dataset.Value{dataset.ParseValue(r[0]), dataset.ParseValue(r[1])}))
	}
	tbl.InferKinds()
	s, err := split.New(tbl, split.DefaultOptions())
	require.NoError(t, err)
	_, _, err = s.Dense()
	assert.ErrorIs(t, err, split.ErrNonNumericFeature)
}
