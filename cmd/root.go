/*
Copyright © 2025 GenOps HQ <dev@genopshq.io>
*/
package cmd

import (
	"errors"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/genopshq/guardian/internal/analysis"
	"github.com/genopshq/guardian/internal/ops"
	"github.com/genopshq/guardian/pkg/buildinfo"
	"github.com/genopshq/guardian/pkg/exitcode"
	"github.com/genopshq/guardian/pkg/logger"
)

// newRootCommand creates a fresh root command instance.
// This factory pattern allows tests to create isolated command trees without shared state.
func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "guardian",
		Short: "Multi-language static analysis orchestration",
		Long: `Guardian detects the languages and platforms present in a repository,
runs the matching static analyzers concurrently, normalizes their output
into a unified finding model, and produces an auditable 0-100 risk score.

Examples:
   guardian scan                  # Analyze the current repository
   guardian scan --mode pr --diff changes.patch
   guardian tools                 # List registered analyzers and availability
   guardian version               # Show version (use --extended for build info)`,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			initializeLogger(cmd)
		},
	}

	// Accept snake_case spellings of multi-word flags
	cmd.PersistentFlags().SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	// Add global flags
	cmd.PersistentFlags().String("log-level", "info", "Set log level (trace|debug|info|warn|error)")
	cmd.PersistentFlags().Bool("json", false, "Output logs in JSON format")
	cmd.PersistentFlags().Bool("no-color", false, "Disable colored output")

	cmd.Version = buildinfo.BinaryVersion
	cmd.SetVersionTemplate("guardian {{.Version}}\n")

	// Grouped help (Analysis → Support)
	cmd.SetHelpFunc(func(cmd *cobra.Command, _ []string) {
		reg := ops.GetRegistry()
		cmd.Println(cmd.Long)
		cmd.Println()
		cmd.Println("Analysis Commands:")
		for _, c := range reg.GetCommandsByGroup(ops.GroupAnalysis) {
			cmd.Printf("  %-12s %s\n", c.Name, c.Description)
		}
		cmd.Println()
		cmd.Println("Support Commands:")
		for _, c := range reg.GetCommandsByGroup(ops.GroupSupport) {
			cmd.Printf("  %-12s %s\n", c.Name, c.Description)
		}
		cmd.Println()
		cmd.Println("Flags:")
		cmd.Print(cmd.UsageString())
	})

	return cmd
}

// registerSubcommands adds all subcommands to the root command.
// Called from init() for production; tests call it on fresh trees.
func registerSubcommands(cmd *cobra.Command) {
	cmd.AddCommand(scanCmd)
	cmd.AddCommand(toolsCmd)
	cmd.AddCommand(versionCmd)
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = newRootCommand()

// Execute runs the root command and maps the error taxonomy onto exit codes.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logger.Error("Command execution failed", logger.Err(err))
		os.Exit(exitFor(err))
	}
}

// exitFor maps known error types to their exit codes.
func exitFor(err error) int {
	var detErr *analysis.DetectionError
	if errors.As(err, &detErr) {
		return exitcode.DetectionError
	}
	var sinkErr *analysis.SinkError
	if errors.As(err, &sinkErr) {
		return exitcode.SinkError
	}
	return exitcode.GeneralError
}

func init() {
	registerSubcommands(rootCmd)
}

// initializeLogger sets up the logger based on command flags
func initializeLogger(cmd *cobra.Command) {
	logLevelStr, _ := cmd.Flags().GetString("log-level")
	jsonLogs, _ := cmd.Flags().GetBool("json")
	noColor, _ := cmd.Flags().GetBool("no-color")

	config := logger.Config{
		Level:     logger.ParseLevel(logLevelStr),
		UseColor:  !noColor,
		JSON:      jsonLogs,
		Component: "guardian",
	}

	if err := logger.Initialize(config); err != nil {
		if _, writeErr := os.Stderr.WriteString("Failed to initialize logger: " + err.Error() + "\n"); writeErr != nil {
			_ = writeErr
		}
		os.Exit(exitcode.ConfigError)
	}
}
