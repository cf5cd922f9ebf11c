package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/tabloom-cli/internal/pipeline"
	"github.com/KaramelBytes/tabloom-cli/internal/utils"
)

var (
	runSource    sourceFlags
	runModelOut  string
	runFetchURL  string
	runJSON      bool
	runNoHeatmap bool
)

var runPipelineCmd = &cobra.Command{
	Use:   "run <file>",
	Short: "Run the full pipeline: clean, heatmap, split and model",
	Long: `Run every stage over one table. A failed heatmap or fetch is reported as a
warning; failures while loading, cleaning, splitting or assembling the model
abort the run.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := current()
		opts, err := pipelineOptions(c, &runSource)
		if err != nil {
			return err
		}
		opts.ModelPath = runModelOut
		opts.FetchURL = runFetchURL
		opts.SkipHeatmap = runNoHeatmap

		rep, err := pipeline.New(opts).Run(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if runJSON {
			b, err := utils.PrettyJSON(rep)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
			return nil
		}
		fmt.Fprintf(out, "✓ Loaded %d rows from %s (%d dropped, %d kept)\n", rep.RowsLoaded, rep.Source, rep.Dropped, rep.RowsKept)
		if rep.Artifact != "" {
			fmt.Fprintf(out, "✓ Wrote heatmap to %s\n", rep.Artifact)
		}
		fmt.Fprintf(out, "✓ Split on target %q: %d train / %d test rows\n", rep.Split.Target, rep.TrainRows, rep.TestRows)
		fmt.Fprintln(out, rep.Model.Summary())
		if rep.ModelPath != "" {
			fmt.Fprintf(out, "✓ Wrote model spec to %s\n", rep.ModelPath)
		}
		if rep.Fetch != nil {
			fmt.Fprintf(out, "✓ Fetched %s (HTTP %d)\n", rep.Fetch.URL, rep.Fetch.StatusCode)
		}
		printWarnings(cmd, rep.Warnings)
		fmt.Fprintf(out, "Run %s finished in %s\n", rep.RunID, rep.Elapsed.Round(time.Millisecond))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runPipelineCmd)
	runSource.register(runPipelineCmd)
	runPipelineCmd.Flags().StringVar(&runModelOut, "model-out", "", "write the model spec here (.yaml/.yml or .json)")
	runPipelineCmd.Flags().StringVar(&runFetchURL, "fetch-url", "", "fetch this JSON endpoint after the run")
	runPipelineCmd.Flags().BoolVar(&runJSON, "json", false, "print the run report as JSON")
	runPipelineCmd.Flags().BoolVar(&runNoHeatmap, "no-heatmap", false, "skip writing the heatmap")
}
