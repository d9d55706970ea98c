package main

import (
	"os/signal"
	"syscall"

	"github.com/aretw0/strand/internal/cli"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Exposes the units in --dir over a JSON API, with Prometheus metrics and an SSE event stream.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := loadOptions(cmd)
		if err != nil {
			return err
		}
		port, _ := cmd.Flags().GetInt("port")

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return cli.Serve(ctx, opts, port, cmd.OutOrStdout())
	},
}

func init() {
	serveCmd.Flags().IntP("port", "p", 0, "Port to listen on (default from strand.yaml, else 8080)")
	rootCmd.AddCommand(serveCmd)
}
