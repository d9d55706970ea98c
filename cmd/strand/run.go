package main

import (
	"github.com/aretw0/strand/internal/cli"
	"github.com/aretw0/strand/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run [unit]",
	Short: "Run a unit until its fibers finish or block for good",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := loadOptions(cmd)
		if err != nil {
			return err
		}
		if len(args) == 1 {
			opts.Unit = args[0]
		}
		opts.Quiet, _ = cmd.Flags().GetBool("quiet")

		out := cmd.OutOrStdout()
		if !opts.JSON && !opts.Quiet {
			tui.PrintBanner(out)
		}

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()
		return cli.Execute(ctx, opts, out)
	},
}

func init() {
	runCmd.Flags().BoolP("quiet", "q", false, "Print nothing but errors")
	rootCmd.AddCommand(runCmd)
}
