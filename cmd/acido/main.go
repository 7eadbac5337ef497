package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/merabytes/acido/pkg/log"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCodeFor(err))
	}
}

var rootCmd = &cobra.Command{
	Use:   "acido",
	Short: "acido - fleet orchestrator for short-lived container scan jobs",
	Long: `acido shards an input file across many short-lived container
groups, runs a scanning task against each shard in parallel across one
or more regions, and collects the results into a single report.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"acido version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(configureCmd)
	rootCmd.AddCommand(fleetCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(selectCmd)
	rootCmd.AddCommand(ipCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

// exitCodeWrapper lets a RunE return a specific process exit code without
// collapsing every error into the generic usage-error code.
type exitCodeWrapper struct {
	code int
	err  error
}

func (e *exitCodeWrapper) Error() string { return e.err.Error() }
func (e *exitCodeWrapper) Unwrap() error { return e.err }

func withExitCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &exitCodeWrapper{code: code, err: err}
}

func exitCodeFor(err error) int {
	if ew, ok := err.(*exitCodeWrapper); ok {
		return ew.code
	}
	return 1
}
