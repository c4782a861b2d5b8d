// Package main is the entry point for the changepoll CLI.
//
// Usage:
//
//	changepoll serve -c config.yaml     # Run the poller service
//	changepoll run -c config.yaml -t acme  # Run one cycle for one tenant
//	changepoll validate -c config.yaml  # Validate configuration
//	changepoll prune -c config.yaml -t acme --window 2160h
//	changepoll version                  # Show version info
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/njbennett/changepoll/internal/version"
)

// rootCmd is the base command; functionality lives in subcommands.
var rootCmd = &cobra.Command{
	Use:   "changepoll",
	Short: "Incremental entity-change poller",
	Long: `changepoll polls a remote entity API on behalf of subscriptions,
classifies returned records as new or modified against persisted dedup
state, and emits one change event per record to a downstream sink.`,
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("changepoll " + version.String())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// newLogger creates the structured logger used by all subcommands.
func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already printed the error.
		os.Exit(1)
	}
}
