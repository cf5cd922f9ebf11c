// Package split partitions a table into training and evaluation subsets,
// using the last column as the target.
package split

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/KaramelBytes/tabloom-cli/internal/dataset"
)

var (
	ErrInsufficientColumns = errors.New("need at least one feature column and a target column")
	ErrTooFewRows          = errors.New("too few rows to split")
	ErrInvalidTestSize     = errors.New("test size must be within (0, 1)")
	ErrNonNumericFeature   = errors.New("feature column is not numeric")
)

// Options controls the partition.
type Options struct {
	TestSize float64
	Seed     int64
}

// DefaultOptions returns a 80/20 split seeded with 42.
func DefaultOptions() Options {
	return Options{TestSize: 0.2, Seed: 42}
}

// Split is a reproducible train/test partition. TrainRows and TestRows hold
// the original row positions; X and Y slices are aligned with them.
type Split struct {
	Features  []string
	Target    string
	TrainRows []int
	TestRows  []int
	XTrain    [][]dataset.Value
	XTest     [][]dataset.Value
	YTrain    []dataset.Value
	YTest     []dataset.Value

	kinds []dataset.Kind
}

// New partitions t. The same table and seed always give the same split.
func New(t *dataset.Table, opt Options) (*Split, error) {
	if t == nil {
		return nil, dataset.ErrNoTable
	}
	if t.Width() < 2 {
		return nil, fmt.Errorf("%w: table has %d column(s)", ErrInsufficientColumns, t.Width())
	}
	if !(opt.TestSize > 0 && opt.TestSize < 1) {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidTestSize, opt.TestSize)
	}
	n := t.Len()
	if n < 2 {
		return nil, fmt.Errorf("%w: %d row(s)", ErrTooFewRows, n)
	}
	nTest := int(math.Ceil(opt.TestSize*float64(n) - 1e-9))
	if nTest < 1 {
		nTest = 1
	}
	nTrain := n - nTest
	if nTrain < 1 {
		return nil, fmt.Errorf("%w: no training rows left with test size %v", ErrTooFewRows, opt.TestSize)
	}

	perm := rand.New(rand.NewSource(opt.Seed)).Perm(n)
	cols := t.Columns()
	last := len(cols) - 1
	s := &Split{
		Features:  cols[:last],
		Target:    cols[last],
		TestRows:  perm[:nTest],
		TrainRows: perm[nTest:],
		kinds:     make([]dataset.Kind, last),
	}
	for j := range s.kinds {
		s.kinds[j] = t.Kind(j)
	}
	s.XTest, s.YTest = gather(t, s.TestRows, last)
	s.XTrain, s.YTrain = gather(t, s.TrainRows, last)
	return s, nil
}

func gather(t *dataset.Table, rows []int, target int) ([][]dataset.Value, []dataset.Value) {
	x := make([][]dataset.Value, len(rows))
	y := make([]dataset.Value, len(rows))
	for k, i := range rows {
		row := t.Row(i)
		x[k] = row[:target:target]
		y[k] = row[target]
	}
	return x, y
}

// NumFeatures returns the number of feature columns.
func (s *Split) NumFeatures() int { return len(s.Features) }

// Dense returns the feature sets as matrices with one row per sample.
func (s *Split) Dense() (train, test *mat.Dense, err error) {
	for j, k := range s.kinds {
		if k != dataset.KindNumeric {
			return nil, nil, fmt.Errorf("%w: %s is %s", ErrNonNumericFeature, s.Features[j], k)
		}
	}
	if train, err = dense(s.XTrain, len(s.Features)); err != nil {
		return nil, nil, err
	}
	if test, err = dense(s.XTest, len(s.Features)); err != nil {
		return nil, nil, err
	}
	return train, test, nil
}

// Targets returns the target values as vectors. Non-numeric targets fail.
func (s *Split) Targets() (train, test *mat.VecDense, err error) {
	if train, err = vector(s.YTrain, s.Target); err != nil {
		return nil, nil, err
	}
	if test, err = vector(s.YTest, s.Target); err != nil {
		return nil, nil, err
	}
	return train, test, nil
}

func dense(x [][]dataset.Value, width int) (*mat.Dense, error) {
	data := make([]float64, 0, len(x)*width)
	for _, row := range x {
		for _, v := range row {
			f, ok := v.Float()
			if !ok {
				return nil, fmt.Errorf("%w: value %q", ErrNonNumericFeature, v.String())
			}
			data = append(data, f)
		}
	}
	return mat.NewDense(len(x), width, data), nil
}

func vector(y []dataset.Value, name string) (*mat.VecDense, error) {
	data := make([]float64, len(y))
	for i, v := range y {
		f, ok := v.Float()
		if !ok {
			return nil, fmt.Errorf("target %s: value %q is not numeric", name, v.String())
		}
		data[i] = f
	}
	return mat.NewVecDense(len(data), data), nil
}
