package cmd

import (
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/tabloom-cli/internal/clean"
	cfgpkg "github.com/KaramelBytes/tabloom-cli/internal/config"
	"github.com/KaramelBytes/tabloom-cli/internal/fetch"
	"github.com/KaramelBytes/tabloom-cli/internal/parser"
	"github.com/KaramelBytes/tabloom-cli/internal/pipeline"
	"github.com/KaramelBytes/tabloom-cli/internal/split"
)

// sourceFlags are the loader flags shared by every command that reads a table.
type sourceFlags struct {
	delimiter  string
	maxRows    int
	sheetName  string
	sheetIndex int
}

func (s *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&s.delimiter, "delimiter", "", "delimiter for text tables: ',' | ';' | '|' | 'tab' (default by suffix)")
	cmd.Flags().IntVar(&s.maxRows, "max-rows", 0, "maximum rows to load (0 = unlimited)")
	cmd.Flags().StringVar(&s.sheetName, "sheet-name", "", "XLSX: sheet name to load")
	cmd.Flags().IntVar(&s.sheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
}

// pipelineOptions builds pipeline options from configuration and flags.
func pipelineOptions(c *cfgpkg.Global, src *sourceFlags) (pipeline.Options, error) {
	if err := c.Validate(); err != nil {
		return pipeline.Options{}, err
	}
	opts := pipeline.DefaultOptions()

	po := parser.DefaultOptions()
	po.MaxRows = c.MaxRows
	eff := *c
	if src != nil {
		if src.delimiter != "" {
			eff.Delimiter = src.delimiter
		}
		if src.maxRows > 0 {
			po.MaxRows = src.maxRows
		}
		po.Sheet = src.sheetName
		if src.sheetIndex > 0 {
			po.SheetIndex = src.sheetIndex
		}
	}
	d, err := eff.DelimiterRune()
	if err != nil {
		return pipeline.Options{}, err
	}
	po.Delimiter = d
	opts.Parser = po

	policy, err := clean.ParsePolicy(c.ConstantColumns)
	if err != nil {
		return pipeline.Options{}, err
	}
	opts.Clean = clean.Options{Constant: policy}
	opts.Split = split.Options{TestSize: c.TestSize, Seed: c.Seed}
	opts.HeatmapPath = c.HeatmapPath
	opts.Fetcher = fetch.NewClient(c.FetchTimeout())
	return opts, nil
}
