/*
Copyright © 2025 GenOps HQ <dev@genopshq.io>
*/
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/genopshq/guardian/internal/analysis"
	"github.com/genopshq/guardian/internal/gitctx"
	"github.com/genopshq/guardian/internal/ops"
	"github.com/genopshq/guardian/internal/policy"
	"github.com/genopshq/guardian/internal/sink"
	"github.com/genopshq/guardian/internal/summarize"
	"github.com/genopshq/guardian/pkg/config"
	"github.com/genopshq/guardian/pkg/logger"
)

// scanCmd runs the full analysis pipeline against a repository.
var scanCmd = &cobra.Command{
	Use:   "scan [target]",
	Short: "Analyze a repository and produce a risk report",
	Long: `Scan detects the ecosystems present in a repository, runs the matching
analyzers, and writes the risk report artifacts.

In pr mode, supply the change-set as a unified diff (--diff file, or
"-" for stdin); the changed files feed the contextual score modifiers.
In manual mode the change context is taken from the git worktree when
the target is a repository.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().String("mode", "manual", "Run mode (pr|manual)")
	scanCmd.Flags().String("diff", "", "Unified diff for pr mode (path, or '-' for stdin)")
	scanCmd.Flags().Bool("semgrep", false, "Also run semgrep across all ecosystems")
	scanCmd.Flags().String("output-dir", "", "Artifact directory (overrides config)")
	scanCmd.Flags().Bool("no-bundle", false, "Skip the tar.gz artifact bundle")
	scanCmd.Flags().Bool("summarize", false, "Summarize findings with the configured LLM provider")
	scanCmd.Flags().String("policy", "", "Per-tool threshold policy file (overrides config)")
	scanCmd.Flags().Bool("fail-on-violation", false, "Exit nonzero when the policy reports FAIL")
	scanCmd.Flags().String("github-repo", "", "Post PR comments to this owner/name repository")
	scanCmd.Flags().Int("github-pr", 0, "Pull request number for comment delivery")
	scanCmd.Flags().String("github-token-env", "GITHUB_TOKEN", "Environment variable holding the GitHub token")
	scanCmd.Flags().Bool("enforce", false, "Flag high-risk PRs with a blocking comment")

	if err := ops.RegisterCommand("scan", ops.GroupAnalysis, scanCmd, "Analyze a repository and produce a risk report"); err != nil {
		logger.Error("Failed to register scan command", logger.Err(err))
	}
}

func runScan(cmd *cobra.Command, args []string) error {
	target := "."
	if len(args) == 1 {
		target = args[0]
	}

	cfg, err := config.Load(target)
	if err != nil {
		return err
	}

	modeStr, _ := cmd.Flags().GetString("mode")
	mode := analysis.RunMode(modeStr)
	if mode != analysis.ModePR && mode != analysis.ModeManual {
		return fmt.Errorf("unknown mode %q (want pr or manual)", modeStr)
	}

	change, err := collectChange(cmd, mode, target)
	if err != nil {
		return err
	}

	semgrep, _ := cmd.Flags().GetBool("semgrep")
	opts := analysis.Options{
		Target:     target,
		Mode:       mode,
		Semgrep:    semgrep || cfg.Runner.Semgrep,
		RunTimeout: cfg.Runner.RunTimeout,
		Runner: analysis.RunnerOptions{
			Concurrency:        cfg.Runner.Concurrency,
			ConcurrencyPercent: cfg.Runner.ConcurrencyPercent,
			DefaultTimeout:     cfg.Runner.ToolTimeout,
		},
		Dedup: analysis.DedupOptions{
			LineTolerance: cfg.Dedup.LineTolerance,
			Similarity:    cfg.Dedup.Similarity,
		},
		Weights: analysis.ScoreWeights{
			Critical: cfg.Score.Weights.Critical,
			High:     cfg.Score.Weights.High,
			Medium:   cfg.Score.Weights.Medium,
			Low:      cfg.Score.Weights.Low,
			Info:     cfg.Score.Weights.Info,
		},
		Modifiers: analysis.ScoreModifiers{
			CIChanges:       cfg.Score.Modifiers.CIChanges,
			ManifestChanges: cfg.Score.Modifiers.ManifestChanges,
			CleanWithTests:  cfg.Score.Modifiers.CleanWithTests,
		},
	}
	if change != nil {
		opts.ChangedFiles = change.ChangedFiles
		opts.AddedLines = change.AddedLines
	}

	result, runErr := analysis.NewEngine(opts).Run(cmd.Context())
	if runErr != nil {
		// Aborted runs still deliver their status artifact
		if sinkErr := fileSink(cmd, cfg).Deliver(cmd.Context(), result); sinkErr != nil {
			logger.Error("artifact delivery failed after abort", logger.Err(sinkErr))
		}
		return runErr
	}

	summarizeResult(cmd, cfg, result)

	compliance, err := evaluatePolicy(cmd, cfg, result)
	if err != nil {
		return err
	}

	if err := deliver(cmd, cfg, result); err != nil {
		return err
	}

	failOn, _ := cmd.Flags().GetBool("fail-on-violation")
	if failOn && compliance != nil && compliance.OverallStatus == "FAIL" {
		return fmt.Errorf("policy violations: %d tool(s) over threshold", len(compliance.Violations))
	}
	return nil
}

// collectChange resolves the change context for the run mode.
func collectChange(cmd *cobra.Command, mode analysis.RunMode, target string) (*gitctx.ChangeContext, error) {
	diffPath, _ := cmd.Flags().GetString("diff")
	if mode == analysis.ModePR && diffPath != "" {
		var patch []byte
		var err error
		if diffPath == "-" {
			patch, err = io.ReadAll(cmd.InOrStdin())
		} else {
			patch, err = os.ReadFile(diffPath) // #nosec G304 -- operator-supplied diff path
		}
		if err != nil {
			return nil, fmt.Errorf("read diff: %w", err)
		}
		change, err := gitctx.FromPatch(patch)
		if err != nil {
			return nil, fmt.Errorf("parse diff: %w", err)
		}
		return change, nil
	}
	return gitctx.Collect(target), nil
}

// summarizeResult fills Summary/Detail, degrading to the placeholder
// when the LLM provider is unavailable or disabled.
func summarizeResult(cmd *cobra.Command, cfg *config.Config, result *analysis.AggregateResult) {
	useLLM, _ := cmd.Flags().GetBool("summarize")
	if useLLM {
		s, err := summarize.NewOpenAI(cfg.Summarizer.Model, cfg.Summarizer.APIKeyEnv, cfg.Summarizer.MaxChars)
		if err == nil {
			summary, detail, serr := s.Summarize(cmd.Context(), result, result.Metadata.Mode)
			if serr == nil {
				result.Summary = summary
				result.Detail = detail
				if remediations, rerr := s.Remediate(cmd.Context(), result); rerr == nil {
					result.Remediations = remediations
				} else {
					logger.Warn("remediation suggestions unavailable", logger.Err(rerr))
				}
				return
			}
			err = serr
		}
		logger.Warn("summarizer unavailable, using placeholder", logger.Err(err))
	}
	result.Summary, result.Detail = summarize.Placeholder(result)
}

// evaluatePolicy loads and applies the threshold policy, appending the
// compliance block to the detailed payload.
func evaluatePolicy(cmd *cobra.Command, cfg *config.Config, result *analysis.AggregateResult) (*policy.Compliance, error) {
	path, _ := cmd.Flags().GetString("policy")
	if path == "" {
		path = cfg.Policy.Path
	}
	if path == "" {
		return nil, nil
	}
	pol, err := policy.Load(path)
	if err != nil {
		return nil, err
	}
	compliance := pol.Evaluate(result)
	if data, merr := json.MarshalIndent(compliance, "", "  "); merr == nil {
		result.Detail = strings.TrimRight(result.Detail, "\n") + "\n\nPolicy compliance:\n" + string(data) + "\n"
	}
	if compliance.OverallStatus == "FAIL" {
		logger.Warn("policy violations detected", logger.Int("violations", len(compliance.Violations)))
	}
	return &compliance, nil
}

// deliver writes file artifacts and, when configured, PR comments.
func deliver(cmd *cobra.Command, cfg *config.Config, result *analysis.AggregateResult) error {
	sinks := []sink.Sink{fileSink(cmd, cfg)}

	repo, _ := cmd.Flags().GetString("github-repo")
	prNumber, _ := cmd.Flags().GetInt("github-pr")
	if repo != "" && prNumber > 0 {
		tokenEnv, _ := cmd.Flags().GetString("github-token-env")
		token := os.Getenv(tokenEnv)
		if token == "" {
			return fmt.Errorf("github delivery requested but %s is not set", tokenEnv)
		}
		enforce, _ := cmd.Flags().GetBool("enforce")
		sinks = append(sinks, sink.NewGitHubSink(token, repo, prNumber, enforce))
	}

	for _, s := range sinks {
		if err := s.Deliver(cmd.Context(), result); err != nil {
			return err
		}
	}
	return nil
}

func fileSink(cmd *cobra.Command, cfg *config.Config) *sink.FileSink {
	dir, _ := cmd.Flags().GetString("output-dir")
	if dir == "" {
		dir = cfg.Output.Dir
	}
	noBundle, _ := cmd.Flags().GetBool("no-bundle")
	return sink.NewFileSink(dir, cfg.Output.Bundle && !noBundle)
}
