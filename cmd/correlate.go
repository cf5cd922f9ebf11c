package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/tabloom-cli/internal/analysis"
	"github.com/KaramelBytes/tabloom-cli/internal/pipeline"
	"github.com/KaramelBytes/tabloom-cli/internal/utils"
)

var (
	corrSource sourceFlags
	corrTop    int
	corrJSON   bool
)

var correlateCmd = &cobra.Command{
	Use:   "correlate <file>",
	Short: "Print Pearson correlations of the cleaned numeric columns",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := pipelineOptions(current(), &corrSource)
		if err != nil {
			return err
		}
		rep, err := pipeline.New(opts).Load(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		m, err := analysis.Correlate(rep.Table)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if corrJSON {
			b, err := utils.PrettyJSON(m)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
			return nil
		}
		pairs := m.TopPairs(corrTop)
		if len(pairs) == 0 {
			fmt.Fprintln(out, "No defined correlations")
		}
		for _, p := range pairs {
			fmt.Fprintf(out, "%s ~ %s: %.3f\n", p.A, p.B, p.R)
		}
		for _, c := range m.Degenerate {
			fmt.Fprintf(cmd.ErrOrStderr(), "⚠ Warning: column %s has no variance; correlations undefined\n", c)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(correlateCmd)
	corrSource.register(correlateCmd)
	correlateCmd.Flags().IntVar(&corrTop, "top", 10, "number of strongest pairs to print (0 = all)")
	correlateCmd.Flags().BoolVar(&corrJSON, "json", false, "print the full matrix as JSON")
}
