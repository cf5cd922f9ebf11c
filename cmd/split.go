package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/tabloom-cli/internal/pipeline"
	"github.com/KaramelBytes/tabloom-cli/internal/split"
)

var splitSource sourceFlags

var splitCmd = &cobra.Command{
	Use:   "split <file>",
	Short: "Show the reproducible train/test partition of a cleaned table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := current()
		opts, err := pipelineOptions(c, &splitSource)
		if err != nil {
			return err
		}
		rep, err := pipeline.New(opts).Load(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		sp, err := split.New(rep.Table, opts.Split)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Features (%d): %s\n", sp.NumFeatures(), strings.Join(sp.Features, ", "))
		fmt.Fprintf(out, "Target: %s\n", sp.Target)
		fmt.Fprintf(out, "Train rows (%d): %s\n", len(sp.TrainRows), joinInts(sp.TrainRows))
		fmt.Fprintf(out, "Test rows (%d): %s\n", len(sp.TestRows), joinInts(sp.TestRows))
		fmt.Fprintf(out, "Seed %d, test size %.2f\n", opts.Split.Seed, opts.Split.TestSize)
		return nil
	},
}

func joinInts(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = fmt.Sprint(x)
	}
	return strings.Join(parts, " ")
}

func init() {
	rootCmd.AddCommand(splitCmd)
	splitSource.register(splitCmd)
}
