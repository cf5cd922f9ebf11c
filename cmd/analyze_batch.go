package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/tabloom-cli/internal/pipeline"
)

var (
	abSource sourceFlags
	abOutDir string
	abQuiet  bool
)

var analyzeBatchCmd = &cobra.Command{
	Use:   "analyze-batch <files...>",
	Short: "Analyze multiple tables, writing one heatmap per file",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := expandInputs(args)
		if err != nil {
			return err
		}
		opts, err := pipelineOptions(current(), &abSource)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(abOutDir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}

		out := cmd.OutOrStdout()
		used := map[string]int{}
		total := len(files)
		for i, path := range files {
			if !abQuiet {
				fmt.Fprintf(out, "[%d/%d] Processing %s...\n", i+1, total, filepath.Base(path))
			}
			o := opts
			o.HeatmapPath = filepath.Join(abOutDir, heatmapName(path, used))
			rep, err := pipeline.New(o).Analyze(cmd.Context(), path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			if !abQuiet {
				fmt.Fprintf(out, "✓ %s: %d rows kept, %d dropped -> %s\n", filepath.Base(path), rep.RowsKept, rep.Dropped, rep.Artifact)
				printWarnings(cmd, rep.Warnings)
			}
		}
		fmt.Fprintf(out, "✓ Analyzed %d file(s)\n", total)
		return nil
	},
}

// expandInputs resolves globs, keeps literal paths that exist and returns the
// de-duplicated list in sorted order.
func expandInputs(args []string) ([]string, error) {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no input files matched")
	}
	sort.Strings(files)
	return files, nil
}

// heatmapName derives "<base>.png" for path, suffixing __2, __3... when two
// inputs share a base name.
func heatmapName(path string, used map[string]int) string {
	base := filepath.Base(path)
	safe := strings.TrimSuffix(base, filepath.Ext(base))
	used[safe]++
	if n := used[safe]; n > 1 {
		safe = fmt.Sprintf("%s__%d", safe, n)
	}
	return safe + ".png"
}

func init() {
	rootCmd.AddCommand(analyzeBatchCmd)
	abSource.register(analyzeBatchCmd)
	analyzeBatchCmd.Flags().StringVar(&abOutDir, "out-dir", "heatmaps", "directory receiving one heatmap per input")
	analyzeBatchCmd.Flags().BoolVar(&abQuiet, "quiet", false, "suppress progress and non-essential output")
}
