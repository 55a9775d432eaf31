// Command frosthaven runs the Frost Haven colony server and its
// maintenance tools.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/talgya/frost-haven/internal/config"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "frosthaven",
		Short: "Frost Haven colony survival simulation",
		Long: `Frost Haven keeps a small colony alive through an endless winter.
The server ticks the colony in real time, serves it over HTTP and a
websocket stream, and saves progress to SQLite.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "frosthaven.yaml", "path to the YAML config file")

	rootCmd.AddCommand(
		newServeCmd(),
		newSimulateCmd(),
		newStatusCmd(),
		newResetCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig resolves the config file and installs the default logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Resolve(configPath)
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)
	return cfg, nil
}
