package analysis

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/tabloom-cli/internal/dataset"
)

// Options controls dataset summaries.
type Options struct {
	// SampleRows determines how many leading rows to include in the summary.
	SampleRows int
	// TopValues caps the category counts listed per categorical column.
	TopValues int
	// Outliers counts values with robust |z| (median/MAD) above OutlierThreshold.
	Outliers         bool
	OutlierThreshold float64
	// Correlations includes the strongest pairs of the correlation matrix.
	Correlations bool
}

// DefaultOptions returns reasonable defaults for dataset summaries.
func DefaultOptions() Options {
	return Options{
		SampleRows:       5,
		TopValues:        5,
		Outliers:         true,
		OutlierThreshold: 3.5,
		Correlations:     true,
	}
}

// Summary is a markdown-friendly description of a table.
type Summary struct {
	Name     string
	Rows     int
	Cols     []ColumnSummary
	Samples  [][]string
	Corr     *CorrMatrix
	Warnings []string
}

// ColumnSummary captures kind and statistics per column.
type ColumnSummary struct {
	Name    string
	Kind    dataset.Kind
	NonNull int
	Missing int
	Unique  int
	// numeric
	Min, Max, Mean, Std float64
	OutliersCount       int
	OutliersMaxAbsZ     float64
	OutlierThreshold    float64
	// categorical / text
	TopValues    []CategoryCount
	ExampleTexts []string
}

type CategoryCount struct {
	Value string
	Count int
}

// Describe builds a Summary of t without modifying it.
func Describe(t *dataset.Table, opt Options) (*Summary, error) {
	if t == nil {
		return nil, dataset.ErrNoTable
	}
	s := &Summary{Name: t.Name, Rows: t.Len()}
	for j := 0; j < t.Width(); j++ {
		s.Cols = append(s.Cols, describeColumn(t, j, opt))
	}
	for i := 0; i < t.Len() && i < opt.SampleRows; i++ {
		row := t.Row(i)
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = v.String()
		}
		s.Samples = append(s.Samples, cells)
	}
	if opt.Correlations {
		m, err := Correlate(t)
		switch {
		case err == nil:
			s.Corr = m
			for _, c := range m.Degenerate {
				s.Warnings = append(s.Warnings, fmt.Sprintf("column %s has no variance; excluded from correlations", c))
			}
		case errors.Is(err, ErrNoNumericColumns):
			s.Warnings = append(s.Warnings, "no numeric columns; correlations skipped")
		default:
			return nil, err
		}
	}
	return s, nil
}

func describeColumn(t *dataset.Table, j int, opt Options) ColumnSummary {
	c := ColumnSummary{Name: t.ColumnName(j), Kind: t.Kind(j)}
	counts := map[string]int{}
	var nums []float64
	for i := 0; i < t.Len(); i++ {
		v := t.At(i, j)
		if v.IsMissing() {
			c.Missing++
			continue
		}
		c.NonNull++
		counts[v.String()]++
		if f, ok := v.Float(); ok && !math.IsNaN(f) {
			nums = append(nums, f)
		}
	}
	c.Unique = len(counts)
	switch c.Kind {
	case dataset.KindNumeric:
		if len(nums) == 0 {
			break
		}
		c.Min, c.Max = floats.Min(nums), floats.Max(nums)
		c.Mean, c.Std = stat.MeanStdDev(nums, nil)
		if len(nums) < 2 {
			c.Std = 0
		}
		if opt.Outliers && opt.OutlierThreshold > 0 {
			c.OutlierThreshold = opt.OutlierThreshold
			c.OutliersCount, c.OutliersMaxAbsZ = robustOutliers(nums, opt.OutlierThreshold)
		}
	case dataset.KindCategorical:
		c.TopValues = topCounts(counts, opt.TopValues)
	case dataset.KindText:
		for i := 0; i < t.Len() && len(c.ExampleTexts) < 3; i++ {
			if v := t.At(i, j); v.IsText() {
				c.ExampleTexts = append(c.ExampleTexts, truncate(v.String(), 60))
			}
		}
	}
	return c
}

func topCounts(counts map[string]int, limit int) []CategoryCount {
	out := make([]CategoryCount, 0, len(counts))
	for v, n := range counts {
		out = append(out, CategoryCount{Value: v, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Value < out[j].Value
		}
		return out[i].Count > out[j].Count
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// robustOutliers counts values whose modified z-score 0.6745*(x-median)/MAD
// exceeds threshold.
func robustOutliers(vals []float64, threshold float64) (int, float64) {
	median, mad := medianMAD(vals)
	if mad == 0 {
		return 0, 0
	}
	count, maxZ := 0, 0.0
	for _, v := range vals {
		z := math.Abs(0.6745 * (v - median) / mad)
		if z > threshold {
			count++
		}
		maxZ = math.Max(maxZ, z)
	}
	return count, maxZ
}

func medianMAD(vals []float64) (median, mad float64) {
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	median = stat.Quantile(0.5, stat.LinInterp, sorted, nil)
	dev := make([]float64, len(sorted))
	for i, v := range sorted {
		dev[i] = math.Abs(v - median)
	}
	sort.Float64s(dev)
	mad = stat.Quantile(0.5, stat.LinInterp, dev, nil)
	return median, mad
}

// Markdown renders the summary as compact sections.
func (s *Summary) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if s.Name != "" {
		fmt.Fprintf(&b, "File: %s\n", s.Name)
	}
	fmt.Fprintf(&b, "Rows: %d\nColumns: %d\n\n", s.Rows, len(s.Cols))

	b.WriteString("[SCHEMA]\n")
	for _, c := range s.Cols {
		missPct := 0.0
		if total := c.NonNull + c.Missing; total > 0 {
			missPct = float64(c.Missing) * 100 / float64(total)
		}
		fmt.Fprintf(&b, "- %s: %s (non-null %d, missing %.1f%%)", safeName(c.Name), c.Kind, c.NonNull, missPct)
		switch c.Kind {
		case dataset.KindNumeric:
			fmt.Fprintf(&b, "; min %.4g, max %.4g, mean %.4g, std %.4g", c.Min, c.Max, c.Mean, c.Std)
			if c.OutlierThreshold > 0 {
				fmt.Fprintf(&b, "; outliers: %d above |z|>%.1f", c.OutliersCount, c.OutlierThreshold)
			}
		case dataset.KindCategorical:
			if len(c.TopValues) > 0 {
				parts := make([]string, len(c.TopValues))
				for i, kv := range c.TopValues {
					parts[i] = fmt.Sprintf("%s(%d)", safeVal(kv.Value), kv.Count)
				}
				fmt.Fprintf(&b, "; top: %s", strings.Join(parts, ", "))
				if c.Unique > len(c.TopValues) {
					fmt.Fprintf(&b, "; unique=%d", c.Unique)
				}
			}
		case dataset.KindText:
			if len(c.ExampleTexts) > 0 {
				ex := make([]string, len(c.ExampleTexts))
				for i, e := range c.ExampleTexts {
					ex[i] = safeVal(e)
				}
				fmt.Fprintf(&b, "; e.g., %s", strings.Join(ex, " | "))
			}
		}
		b.WriteString("\n")
	}

	if s.Corr != nil {
		if pairs := s.Corr.TopPairs(10); len(pairs) > 0 {
			b.WriteString("\n[CORRELATIONS]\n")
			for _, p := range pairs {
				fmt.Fprintf(&b, "- %s ~ %s: r=%.3f\n", p.A, p.B, p.R)
			}
		}
	}

	if len(s.Samples) > 0 && len(s.Cols) > 0 {
		b.WriteString("\n[HEAD]\n")
		names := make([]string, len(s.Cols))
		seps := make([]string, len(s.Cols))
		for i, c := range s.Cols {
			names[i] = safeVal(safeName(c.Name))
			seps[i] = "---"
		}
		fmt.Fprintf(&b, "| %s |\n| %s |\n", strings.Join(names, " | "), strings.Join(seps, " | "))
		for _, row := range s.Samples {
			cells := make([]string, len(s.Cols))
			for i := range cells {
				if i < len(row) {
					cells[i] = safeVal(truncate(row[i], 80))
				}
			}
			fmt.Fprintf(&b, "| %s |\n", strings.Join(cells, " | "))
		}
	}

	if len(s.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range s.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}
	return b.String()
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.NewReplacer("\n", " ", "|", "/").Replace(s) }

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
