// Package pipeline sequences the load, clean, correlate, split and model
// stages over one table.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/KaramelBytes/tabloom-cli/internal/analysis"
	"github.com/KaramelBytes/tabloom-cli/internal/clean"
	"github.com/KaramelBytes/tabloom-cli/internal/dataset"
	"github.com/KaramelBytes/tabloom-cli/internal/fetch"
	"github.com/KaramelBytes/tabloom-cli/internal/model"
	"github.com/KaramelBytes/tabloom-cli/internal/parser"
	"github.com/KaramelBytes/tabloom-cli/internal/split"
	"github.com/KaramelBytes/tabloom-cli/internal/viz"
)

// Stage names a pipeline step.
type Stage string

const (
	StageLoad      Stage = "load"
	StageClean     Stage = "clean"
	StageCorrelate Stage = "correlate"
	StageVisualize Stage = "visualize"
	StageSplit     Stage = "split"
	StageModel     Stage = "model"
	StageFetch     Stage = "fetch"
)

// StageError wraps the failure of one stage.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

// Options configures a pipeline. Zero values take the package defaults.
type Options struct {
	Parser      parser.Options
	Clean       clean.Options
	Split       split.Options
	HeatmapPath string
	Renderer    viz.Renderer
	// SkipHeatmap computes correlations without writing an artifact.
	SkipHeatmap bool
	// ModelPath, if set, receives the model spec (.yaml/.yml or .json).
	ModelPath string
	// FetchURL, if set, is fetched after the run; failure is only a warning.
	FetchURL string
	Fetcher  *fetch.Client
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Parser:      parser.DefaultOptions(),
		Clean:       clean.DefaultOptions(),
		Split:       split.DefaultOptions(),
		HeatmapPath: viz.DefaultPath,
	}
}

// Pipeline runs the stages. It holds no per-run state and may be reused.
type Pipeline struct {
	opts Options
}

// New returns a pipeline with opts, filling unset fields with defaults.
func New(opts Options) *Pipeline {
	if opts.HeatmapPath == "" {
		opts.HeatmapPath = viz.DefaultPath
	}
	if opts.Renderer == nil {
		opts.Renderer = viz.NewHeatmap()
	}
	if opts.Clean.Constant == "" {
		opts.Clean.Constant = clean.ConstantSkip
	}
	// Seed 0 means the default seed.
	def := split.DefaultOptions()
	if opts.Split.TestSize == 0 {
		opts.Split.TestSize = def.TestSize
	}
	if opts.Split.Seed == 0 {
		opts.Split.Seed = def.Seed
	}
	if opts.Parser.SheetIndex == 0 && opts.Parser.Sheet == "" {
		opts.Parser.SheetIndex = 1
	}
	return &Pipeline{opts: opts}
}

// Report describes one run.
type Report struct {
	RunID      string               `json:"run_id"`
	Source     string               `json:"source"`
	RowsLoaded int                  `json:"rows_loaded"`
	RowsKept   int                  `json:"rows_kept"`
	Dropped    int                  `json:"dropped"`
	Clean      *clean.Report        `json:"clean,omitempty"`
	Corr       *analysis.CorrMatrix `json:"correlation,omitempty"`
	Artifact   string               `json:"artifact,omitempty"`
	TrainRows  int                  `json:"train_rows,omitempty"`
	TestRows   int                  `json:"test_rows,omitempty"`
	Model      *model.Spec          `json:"model,omitempty"`
	ModelPath  string               `json:"model_path,omitempty"`
	Fetch      *fetch.Result        `json:"fetch,omitempty"`
	Warnings   []string             `json:"warnings,omitempty"`
	Elapsed    time.Duration        `json:"elapsed"`

	Table *dataset.Table `json:"-"`
	Split *split.Split   `json:"-"`
}

func (p *Pipeline) newReport(path string) (*Report, *log.Entry) {
	rep := &Report{RunID: uuid.NewString(), Source: path}
	return rep, log.WithFields(log.Fields{"run_id": rep.RunID, "source": path})
}

// Load reads and cleans path, returning the prepared table.
func (p *Pipeline) Load(ctx context.Context, path string) (*Report, error) {
	rep, lg := p.newReport(path)
	start := time.Now()
	if err := p.prepare(ctx, rep, lg); err != nil {
		return nil, err
	}
	rep.Elapsed = time.Since(start)
	return rep, nil
}

// Analyze runs load, clean and visualize. Any stage failure aborts the run.
func (p *Pipeline) Analyze(ctx context.Context, path string) (*Report, error) {
	rep, lg := p.newReport(path)
	start := time.Now()
	if err := p.prepare(ctx, rep, lg); err != nil {
		return nil, err
	}
	return p.analyze(ctx, rep, lg, start)
}

// AnalyzeTable runs clean and visualize over an already loaded table, which
// is modified in place. source only labels the report.
func (p *Pipeline) AnalyzeTable(ctx context.Context, source string, t *dataset.Table) (*Report, error) {
	if t == nil {
		return nil, &StageError{Stage: StageLoad, Err: dataset.ErrNoTable}
	}
	rep, lg := p.newReport(source)
	start := time.Now()
	p.adopt(rep, lg, t)
	if err := p.clean(ctx, rep, lg); err != nil {
		return nil, err
	}
	return p.analyze(ctx, rep, lg, start)
}

func (p *Pipeline) analyze(ctx context.Context, rep *Report, lg *log.Entry, start time.Time) (*Report, error) {
	if err := p.visualize(ctx, rep, lg); err != nil {
		return nil, err
	}
	rep.Elapsed = time.Since(start)
	lg.WithField("elapsed_ms", rep.Elapsed.Milliseconds()).Info("analysis completed")
	return rep, nil
}

// Run executes the whole flow. Correlation and rendering failures become
// warnings; load, clean, split and model failures abort.
func (p *Pipeline) Run(ctx context.Context, path string) (*Report, error) {
	rep, lg := p.newReport(path)
	start := time.Now()
	if err := p.prepare(ctx, rep, lg); err != nil {
		return nil, err
	}
	if err := p.visualize(ctx, rep, lg); err != nil {
		rep.Warnings = append(rep.Warnings, err.Error())
		lg.WithError(err).Warn("continuing without heatmap")
	}
	if err := ctx.Err(); err != nil {
		return nil, &StageError{Stage: StageSplit, Err: err}
	}
	sp, err := split.New(rep.Table, p.opts.Split)
	if err != nil {
		return nil, &StageError{Stage: StageSplit, Err: err}
	}
	rep.Split = sp
	rep.TrainRows, rep.TestRows = len(sp.TrainRows), len(sp.TestRows)
	lg.WithFields(log.Fields{"stage": StageSplit, "train": rep.TrainRows, "test": rep.TestRows, "target": sp.Target}).Info("split rows")

	spec, err := model.FromSplit(sp)
	if err != nil {
		return nil, &StageError{Stage: StageModel, Err: err}
	}
	rep.Model = spec
	if p.opts.ModelPath != "" {
		if err := spec.WriteFile(p.opts.ModelPath); err != nil {
			return nil, &StageError{Stage: StageModel, Err: err}
		}
		rep.ModelPath = p.opts.ModelPath
	}
	lg.WithFields(log.Fields{"stage": StageModel, "inputs": spec.InputWidth(), "params": spec.ParamCount()}).Info("model assembled")

	if p.opts.FetchURL != "" {
		res, err := p.fetch(ctx)
		if err != nil {
			rep.Warnings = append(rep.Warnings, (&StageError{Stage: StageFetch, Err: err}).Error())
		} else {
			rep.Fetch = res
		}
	}
	rep.Elapsed = time.Since(start)
	lg.WithFields(log.Fields{"elapsed_ms": rep.Elapsed.Milliseconds(), "warnings": len(rep.Warnings)}).Info("run completed")
	return rep, nil
}

func (p *Pipeline) prepare(ctx context.Context, rep *Report, lg *log.Entry) error {
	if err := ctx.Err(); err != nil {
		return &StageError{Stage: StageLoad, Err: err}
	}
	t, err := parser.Load(rep.Source, p.opts.Parser)
	if err != nil {
		return &StageError{Stage: StageLoad, Err: err}
	}
	p.adopt(rep, lg, t)
	return p.clean(ctx, rep, lg)
}

func (p *Pipeline) adopt(rep *Report, lg *log.Entry, t *dataset.Table) {
	rep.Table = t
	rep.RowsLoaded = t.Len()
	lg.WithFields(log.Fields{"stage": StageLoad, "rows": t.Len(), "columns": t.Width()}).Info("loaded table")
}

func (p *Pipeline) clean(ctx context.Context, rep *Report, lg *log.Entry) error {
	t := rep.Table
	if err := ctx.Err(); err != nil {
		return &StageError{Stage: StageClean, Err: err}
	}
	cr, err := clean.Clean(t, p.opts.Clean)
	if err != nil {
		return &StageError{Stage: StageClean, Err: err}
	}
	rep.Clean = cr
	rep.RowsKept = t.Len()
	rep.Dropped = cr.Dropped
	for _, c := range cr.DegenerateColumns() {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("column %s has zero or undefined standard deviation", c))
	}
	lg.WithFields(log.Fields{"stage": StageClean, "rows": t.Len(), "dropped": cr.Dropped}).Info("cleaned table")
	return nil
}

func (p *Pipeline) visualize(ctx context.Context, rep *Report, lg *log.Entry) error {
	if err := ctx.Err(); err != nil {
		return &StageError{Stage: StageCorrelate, Err: err}
	}
	m, err := analysis.Correlate(rep.Table)
	if err != nil {
		return &StageError{Stage: StageCorrelate, Err: err}
	}
	rep.Corr = m
	if p.opts.SkipHeatmap {
		return nil
	}
	if err := p.opts.Renderer.Render(m, p.opts.HeatmapPath); err != nil {
		return &StageError{Stage: StageVisualize, Err: err}
	}
	rep.Artifact = p.opts.HeatmapPath
	lg.WithFields(log.Fields{"stage": StageVisualize, "path": p.opts.HeatmapPath, "columns": m.Len()}).Info("heatmap written")
	return nil
}

func (p *Pipeline) fetch(ctx context.Context) (*fetch.Result, error) {
	c := p.opts.Fetcher
	if c == nil {
		c = fetch.NewClient(fetch.DefaultTimeout)
	}
	return c.Fetch(ctx, p.opts.FetchURL)
}

// StageOf returns the stage named by err, or "" when err is not a StageError.
func StageOf(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
