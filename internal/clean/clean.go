// Package clean removes incomplete rows and rescales numeric columns to zero
// mean and unit standard deviation.
package clean

import (
	"encoding/json"
	"fmt"
	"math"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/tabloom-cli/internal/dataset"
)

// ErrNoTable is returned when a stage is invoked without a loaded table.
var ErrNoTable = dataset.ErrNoTable

// ConstantPolicy selects how Normalize treats a column whose standard
// deviation is zero or undefined.
type ConstantPolicy string

const (
	// ConstantSkip leaves the column unchanged.
	ConstantSkip ConstantPolicy = "skip"
	// ConstantMark replaces every value of the column with NaN.
	ConstantMark ConstantPolicy = "mark"
	// ConstantFail aborts normalization with a DegenerateColumnError.
	ConstantFail ConstantPolicy = "fail"
)

// ParsePolicy maps a configuration string to a policy. Empty means skip.
func ParsePolicy(s string) (ConstantPolicy, error) {
	switch ConstantPolicy(s) {
	case "", ConstantSkip:
		return ConstantSkip, nil
	case ConstantMark:
		return ConstantMark, nil
	case ConstantFail:
		return ConstantFail, nil
	}
	return "", fmt.Errorf("invalid constant column policy %q (want skip, mark or fail)", s)
}

// Status is the outcome of normalizing one column.
type Status string

const (
	Normalized Status = "normalized"
	Degenerate Status = "degenerate"
)

// ColumnStats records the statistics a numeric column was normalized with.
// Std is the sample standard deviation; it is NaN when fewer than two values
// were present.
type ColumnStats struct {
	Name   string  `json:"name" yaml:"name"`
	Mean   float64 `json:"mean" yaml:"mean"`
	Std    float64 `json:"std" yaml:"std"`
	Status Status  `json:"status" yaml:"status"`
}

// MarshalJSON encodes undefined statistics as null.
func (c ColumnStats) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name   string   `json:"name"`
		Mean   *float64 `json:"mean"`
		Std    *float64 `json:"std"`
		Status Status   `json:"status"`
	}{c.Name, finite(c.Mean), finite(c.Std), c.Status})
}

func finite(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// DegenerateColumnError reports a column that cannot be normalized.
type DegenerateColumnError struct {
	Column string
	Std    float64
}

func (e *DegenerateColumnError) Error() string {
	return fmt.Sprintf("column %q has zero or undefined standard deviation", e.Column)
}

// Options controls cleaning.
type Options struct {
	Constant ConstantPolicy
}

// DefaultOptions returns the default cleaning options.
func DefaultOptions() Options {
	return Options{Constant: ConstantSkip}
}

// Report summarizes a cleaning pass.
type Report struct {
	RowsBefore int           `json:"rows_before" yaml:"rows_before"`
	RowsAfter  int           `json:"rows_after" yaml:"rows_after"`
	Dropped    int           `json:"dropped" yaml:"dropped"`
	Columns    []ColumnStats `json:"columns" yaml:"columns"`
}

// DegenerateColumns lists the names of columns that were not normalized.
func (r *Report) DegenerateColumns() []string {
	var out []string
	for _, c := range r.Columns {
		if c.Status == Degenerate {
			out = append(out, c.Name)
		}
	}
	return out
}

// DropIncomplete removes every row with a missing value in any column and
// re-infers column kinds. Remaining rows keep their order.
func DropIncomplete(t *dataset.Table) (int, error) {
	if t == nil {
		return 0, ErrNoTable
	}
	dropped := t.Retain(func(row []dataset.Value) bool {
		for _, v := range row {
			if v.IsMissing() {
				return false
			}
		}
		return true
	})
	t.InferKinds()
	return dropped, nil
}

// Normalize rescales every numeric column in place to (v - mean) / std.
// Missing values are ignored when computing statistics and left missing.
// With ConstantFail the table is not modified if any column is degenerate.
func Normalize(t *dataset.Table, opt Options) (*Report, error) {
	if t == nil {
		return nil, ErrNoTable
	}
	policy, err := ParsePolicy(string(opt.Constant))
	if err != nil {
		return nil, err
	}
	rep := &Report{RowsBefore: t.Len(), RowsAfter: t.Len()}
	cols := t.NumericColumns()
	stats := make([]ColumnStats, len(cols))
	for k, j := range cols {
		vals := present(t.Floats(j))
		cs := ColumnStats{Name: t.ColumnName(j), Mean: math.NaN(), Std: math.NaN(), Status: Normalized}
		if len(vals) > 0 {
			cs.Mean = stat.Mean(vals, nil)
		}
		if len(vals) > 1 {
			cs.Std = stat.StdDev(vals, nil)
		}
		if !(cs.Std > 0) || math.IsInf(cs.Std, 0) {
			cs.Status = Degenerate
			if policy == ConstantFail {
				return nil, &DegenerateColumnError{Column: cs.Name, Std: cs.Std}
			}
		}
		stats[k] = cs
	}
	for k, j := range cols {
		cs := stats[k]
		switch {
		case cs.Status == Normalized:
			for i := 0; i < t.Len(); i++ {
				if f, ok := t.At(i, j).Float(); ok {
					t.Set(i, j, dataset.Number((f-cs.Mean)/cs.Std))
				}
			}
		case policy == ConstantMark:
			for i := 0; i < t.Len(); i++ {
				if t.At(i, j).IsNumber() {
					t.Set(i, j, dataset.Number(math.NaN()))
				}
			}
			log.WithFields(log.Fields{"column": cs.Name, "policy": policy}).Warn("degenerate column marked invalid")
		default:
			log.WithFields(log.Fields{"column": cs.Name, "policy": policy}).Warn("degenerate column left unnormalized")
		}
	}
	rep.Columns = stats
	return rep, nil
}

// Clean drops incomplete rows and normalizes numeric columns.
func Clean(t *dataset.Table, opt Options) (*Report, error) {
	if t == nil {
		return nil, ErrNoTable
	}
	before := t.Len()
	dropped, err := DropIncomplete(t)
	if err != nil {
		return nil, err
	}
	rep, err := Normalize(t, opt)
	if err != nil {
		return nil, err
	}
	rep.RowsBefore = before
	rep.Dropped = dropped
	log.WithFields(log.Fields{
		"rows_before": before,
		"rows_after":  rep.RowsAfter,
		"dropped":     dropped,
		"degenerate":  len(rep.DegenerateColumns()),
	}).Debug("cleaned table")
	return rep, nil
}

func present(xs []float64) []float64 {
	out := xs[:0:0]
	for _, x := range xs {
		if !math.IsNaN(x) {
			out = append(out, x)
		}
	}
	return out
}
