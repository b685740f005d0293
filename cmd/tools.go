/*
Copyright © 2025 GenOps HQ <dev@genopshq.io>
*/
package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/genopshq/guardian/internal/analysis"
	"github.com/genopshq/guardian/internal/ops"
	"github.com/genopshq/guardian/pkg/logger"
)

// toolsCmd lists the analyzer registry and host availability.
var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List registered analyzers and their availability",
	Long: `Tools prints every analyzer guardian knows about, the ecosystem it
applies to, the command it runs, and whether the binary is installed on
this host. Unavailable analyzers are skipped at scan time, never failed.`,
	RunE: runTools,
}

func init() {
	toolsCmd.Flags().Bool("json", false, "Output the registry in JSON format")

	if err := ops.RegisterCommand("tools", ops.GroupSupport, toolsCmd, "List registered analyzers and their availability"); err != nil {
		logger.Error("Failed to register tools command", logger.Err(err))
	}
}

type toolInfo struct {
	Tool      string `json:"tool"`
	Ecosystem string `json:"ecosystem"`
	Command   string `json:"command"`
	Format    string `json:"format"`
	Available bool   `json:"available"`
}

func runTools(cmd *cobra.Command, _ []string) error {
	registry := analysis.NewRegistry(true)
	var infos []toolInfo
	for _, spec := range registry.AllSpecs() {
		infos = append(infos, toolInfo{
			Tool:      spec.Tool,
			Ecosystem: spec.Tag,
			Command:   strings.Join(append([]string{spec.Command}, spec.Args...), " "),
			Format:    string(spec.Format),
			Available: registry.Available(spec),
		})
	}

	out := cmd.OutOrStdout()
	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		data, err := json.MarshalIndent(infos, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	fmt.Fprintf(out, "%-12s %-12s %-10s %s\n", "TOOL", "ECOSYSTEM", "AVAILABLE", "COMMAND")
	for _, info := range infos {
		avail := "no"
		if info.Available {
			avail = "yes"
		}
		fmt.Fprintf(out, "%-12s %-12s %-10s %s\n", info.Tool, info.Ecosystem, avail, info.Command)
	}
	return nil
}
