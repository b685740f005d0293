/*
Copyright © 2025 GenOps HQ <dev@genopshq.io>
*/
package cmd

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/genopshq/guardian/internal/ops"
	"github.com/genopshq/guardian/pkg/buildinfo"
	"github.com/genopshq/guardian/pkg/logger"
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show guardian version",
	RunE:  runVersionCmd,
}

func init() {
	versionCmd.Flags().Bool("extended", false, "Show detailed build information")
	versionCmd.Flags().Bool("json", false, "Output version information in JSON format")

	if err := ops.RegisterCommand("version", ops.GroupSupport, versionCmd, "Show guardian version"); err != nil {
		logger.Error("Failed to register version command", logger.Err(err))
	}
}

func runVersionCmd(cmd *cobra.Command, _ []string) error {
	extended, _ := cmd.Flags().GetBool("extended")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	out := cmd.OutOrStdout()

	if jsonOutput {
		info := map[string]string{
			"version":   buildinfo.BinaryVersion,
			"goVersion": runtime.Version(),
			"platform":  runtime.GOOS,
			"arch":      runtime.GOARCH,
		}
		if extended {
			info["module"] = buildinfo.ModuleVersion()
		}
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	fmt.Fprintf(out, "guardian %s\n", buildinfo.BinaryVersion)
	if extended {
		fmt.Fprintf(out, "  module:   %s\n", buildinfo.ModuleVersion())
		fmt.Fprintf(out, "  go:       %s\n", runtime.Version())
		fmt.Fprintf(out, "  platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	}
	return nil
}
