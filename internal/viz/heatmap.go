// Package viz renders correlation matrices as image artifacts.
package viz

import (
	"bytes"
	"fmt"
	"image/color"
	"math"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/KaramelBytes/tabloom-cli/internal/analysis"
	"github.com/KaramelBytes/tabloom-cli/internal/utils"
)

// DefaultPath is where the heatmap is written when no path is configured.
const DefaultPath = "correlation_matrix.png"

// ErrNoNumericColumns is returned when there is nothing to draw.
var ErrNoNumericColumns = analysis.ErrNoNumericColumns

// Renderer draws a correlation matrix to path.
type Renderer interface {
	Render(m *analysis.CorrMatrix, path string) error
}

// Heatmap renders an annotated diverging heatmap. The image format follows
// the path suffix (.png, .svg, .pdf, ...); PNG is used when there is none.
type Heatmap struct {
	Title  string
	Width  vg.Length
	Height vg.Length
	// Annotate writes each coefficient in its cell.
	Annotate bool
}

// NewHeatmap returns a 12x8 inch annotated heatmap renderer.
func NewHeatmap() *Heatmap {
	return &Heatmap{
		Title:    "Data Correlation Matrix",
		Width:    12 * vg.Inch,
		Height:   8 * vg.Inch,
		Annotate: true,
	}
}

// corrGrid adapts a CorrMatrix to plotter.GridXYZ. Row 0 is drawn at the top.
type corrGrid struct {
	m *analysis.CorrMatrix
}

func (g corrGrid) Dims() (c, r int)   { return g.m.Len(), g.m.Len() }
func (g corrGrid) Z(c, r int) float64 { return g.m.At(g.m.Len()-1-r, c) }
func (g corrGrid) X(c int) float64    { return float64(c) }
func (g corrGrid) Y(r int) float64    { return float64(r) }

// Render writes the heatmap to path, replacing any previous file.
func (h *Heatmap) Render(m *analysis.CorrMatrix, path string) error {
	if m == nil || m.Len() < 1 {
		return ErrNoNumericColumns
	}
	if path == "" {
		path = DefaultPath
	}
	p, err := h.plot(m)
	if err != nil {
		return err
	}
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if format == "" {
		format = "png"
	}
	wt, err := p.WriterTo(h.Width, h.Height, format)
	if err != nil {
		return fmt.Errorf("heatmap %s: %w", format, err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return fmt.Errorf("encode heatmap: %w", err)
	}
	if err := utils.SafeWriteFile(path, buf.Bytes()); err != nil {
		return err
	}
	log.WithFields(log.Fields{"path": path, "columns": m.Len(), "bytes": buf.Len()}).Debug("heatmap written")
	return nil
}

func (h *Heatmap) plot(m *analysis.CorrMatrix) (*plot.Plot, error) {
	n := m.Len()
	cmap := moreland.SmoothBlueRed()
	cmap.SetMin(-1)
	cmap.SetMax(1)

	hm := plotter.NewHeatMap(corrGrid{m: m}, cmap.Palette(255))
	hm.Min, hm.Max = -1, 1
	hm.NaN = color.Gray{Y: 0xbb}

	p := plot.New()
	p.Title.Text = h.Title
	p.Add(hm)

	xt := make([]plot.Tick, n)
	yt := make([]plot.Tick, n)
	for i, name := range m.Columns {
		xt[i] = plot.Tick{Value: float64(i), Label: name}
		yt[i] = plot.Tick{Value: float64(n - 1 - i), Label: name}
	}
	p.X.Tick.Marker = plot.ConstantTicks(xt)
	p.Y.Tick.Marker = plot.ConstantTicks(yt)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter

	if h.Annotate {
		lbl, err := annotations(m)
		if err != nil {
			return nil, err
		}
		p.Add(lbl)
	}
	return p, nil
}

func annotations(m *analysis.CorrMatrix) (*plotter.Labels, error) {
	n := m.Len()
	xy := plotter.XYLabels{
		XYs:    make(plotter.XYs, 0, n*n),
		Labels: make([]string, 0, n*n),
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v := m.At(i, j)
			s := "NaN"
			if !math.IsNaN(v) {
				s = fmt.Sprintf("%.2f", v)
			}
			xy.XYs = append(xy.XYs, plotter.XY{X: float64(j), Y: float64(n - 1 - i)})
			xy.Labels = append(xy.Labels, s)
		}
	}
	lbl, err := plotter.NewLabels(xy)
	if err != nil {
		return nil, fmt.Errorf("heatmap labels: %w", err)
	}
	for i := range lbl.TextStyle {
		lbl.TextStyle[i].XAlign = draw.XCenter
		lbl.TextStyle[i].YAlign = draw.YCenter
	}
	return lbl, nil
}
