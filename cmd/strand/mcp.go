package main

import (
	"os/signal"
	"syscall"

	"github.com/aretw0/strand/internal/cli"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server",
	Long:  `Exposes run_unit, get_report, list_runs and list_units as MCP tools over stdio, or SSE with --port.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := loadOptions(cmd)
		if err != nil {
			return err
		}
		port, _ := cmd.Flags().GetInt("port")

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return cli.ServeMCP(ctx, opts, port)
	},
}

func init() {
	mcpCmd.Flags().IntP("port", "p", 0, "Serve over SSE on this port instead of stdio")
	rootCmd.AddCommand(mcpCmd)
}
