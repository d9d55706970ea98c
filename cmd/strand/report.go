package main

import (
	"github.com/aretw0/strand/internal/cli"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report [run-id]",
	Short: "Show a stored run report, or list stored runs",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := loadOptions(cmd)
		if err != nil {
			return err
		}
		var id string
		if len(args) == 1 {
			id = args[0]
		}
		return cli.ShowReport(cmd.Context(), opts, id, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
}
