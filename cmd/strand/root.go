package main

import (
	"fmt"
	"os"

	"github.com/aretw0/strand/internal/cli"
	"github.com/aretw0/strand/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "strand",
	Short:         "strand runs cooperative fibers on a single thread",
	Long:          `strand links program units and runs their fibers to completion, rendezvous by rendezvous.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return cli.ExitCode(err)
	}
	return cli.ExitOK
}

func init() {
	rootCmd.PersistentFlags().String("dir", ".", "Directory containing the units and strand.yaml")
	rootCmd.PersistentFlags().Bool("debug", false, "Log every scheduler transition")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("store", "", "Report store backend (memory, file, redis)")
	rootCmd.PersistentFlags().Bool("json", false, "Print machine readable JSON")
}

// loadOptions reads the persistent flags and the project config.
func loadOptions(cmd *cobra.Command) (cli.RunOptions, error) {
	dir, _ := cmd.Flags().GetString("dir")
	debug, _ := cmd.Flags().GetBool("debug")
	level, _ := cmd.Flags().GetString("log-level")
	store, _ := cmd.Flags().GetString("store")
	jsonMode, _ := cmd.Flags().GetBool("json")

	cfg, err := config.Load(dir)
	if err != nil {
		return cli.RunOptions{}, err
	}
	return cli.RunOptions{
		Dir:      dir,
		Debug:    debug,
		LogLevel: level,
		Store:    store,
		JSON:     jsonMode,
		Config:   cfg,
	}, nil
}
