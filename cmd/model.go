package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/tabloom-cli/internal/model"
	"github.com/KaramelBytes/tabloom-cli/internal/pipeline"
	"github.com/KaramelBytes/tabloom-cli/internal/split"
)

var (
	modelSource   sourceFlags
	modelFeatures int
	modelOut      string
)

var modelCmd = &cobra.Command{
	Use:   "model [file]",
	Short: "Assemble the binary classifier spec for a table or a feature count",
	Long: `Assemble the classifier configuration: dense 64 relu, dense 32 relu, dense 1
sigmoid, compiled with Adam, binary cross-entropy and accuracy. The input
width comes from --features or from the feature columns of <file>.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var spec *model.Spec
		switch {
		case len(args) == 1:
			opts, err := pipelineOptions(current(), &modelSource)
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
			if spec, err = model.FromSplit(sp); err != nil {
				return err
			}
		case cmd.Flags().Changed("features"):
			var err error
			if spec, err = model.Assemble(modelFeatures); err != nil {
				return err
			}
		default:
			return fmt.Errorf("provide a data file or --features")
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, spec.Summary())
		if modelOut != "" {
			if err := spec.WriteFile(modelOut); err != nil {
				return err
			}
			fmt.Fprintf(out, "✓ Wrote model spec to %s\n", modelOut)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelCmd)
	modelSource.register(modelCmd)
	modelCmd.Flags().IntVar(&modelFeatures, "features", 0, "input width when no data file is given")
	modelCmd.Flags().StringVarP(&modelOut, "output", "o", "", "write the model spec here (.yaml/.yml or .json)")
}
