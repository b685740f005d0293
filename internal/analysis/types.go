/*
Copyright © 2025 GenOps HQ <dev@genopshq.io>
*/
package analysis

import (
	"time"
)

// Severity is the unified severity level of a normalized finding
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank returns an integer ordering for severities (higher is worse).
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// Ecosystem is a detected language/platform with its supporting evidence.
type Ecosystem struct {
	Tag      string   `json:"tag"`
	Evidence []string `json:"evidence"`
}

// OutputFormat selects one of the closed set of normalizer parsers.
type OutputFormat string

const (
	FormatRuffJSON       OutputFormat = "ruff-json"
	FormatBanditJSON     OutputFormat = "bandit-json"
	FormatESLintJSON     OutputFormat = "eslint-json"
	FormatCheckstyleXML  OutputFormat = "checkstyle-xml"
	FormatSpotBugsXML    OutputFormat = "spotbugs-xml"
	FormatPMDJSON        OutputFormat = "pmd-json"
	FormatGCCLines       OutputFormat = "gcc-lines"
	FormatStaticcheckNDJ OutputFormat = "staticcheck-ndjson"
	FormatSARIF          OutputFormat = "sarif"
	FormatTrivyJSON      OutputFormat = "trivy-json"
	FormatCheckovJSON    OutputFormat = "checkov-json"
	FormatKubeLinterJSON OutputFormat = "kubelinter-json"
	FormatRuboCopJSON    OutputFormat = "rubocop-json"
	FormatPHPCSJSON      OutputFormat = "phpcs-json"
	FormatPsalmJSON      OutputFormat = "psalm-json"
	FormatMSBuildLines   OutputFormat = "msbuild-lines"
)

// AnalyzerSpec describes one analyzer invocation template.
// Specs are static registry data and never mutated at runtime.
type AnalyzerSpec struct {
	Tool    string        `json:"tool"`
	Tag     string        `json:"tag"` // ecosystem tag this spec applies to
	Command string        `json:"command"`
	Args    []string      `json:"args"` // {root} expands to the repository root
	Format  OutputFormat  `json:"format"`
	Timeout time.Duration `json:"timeout,omitempty"` // 0 inherits the runner default
	// StderrOutput marks tools whose diagnostics go to stderr (go vet).
	StderrOutput bool `json:"stderr_output,omitempty"`
}

// ExecStatus is the terminal state of one invocation.
type ExecStatus string

const (
	ExecSuccess ExecStatus = "success"
	ExecTimeout ExecStatus = "timeout"
	ExecError   ExecStatus = "error"
	ExecSkipped ExecStatus = "skipped"
)

// Invocation binds an AnalyzerSpec to a concrete working directory.
type Invocation struct {
	Spec    AnalyzerSpec
	WorkDir string
}

// Execution is the captured outcome of one invocation.
// A timed-out execution carries no output: partial structured output
// must never reach the normalizer.
type Execution struct {
	Spec     AnalyzerSpec  `json:"spec"`
	Status   ExecStatus    `json:"status"`
	Stdout   []byte        `json:"-"`
	Stderr   []byte        `json:"-"`
	ExitCode int           `json:"exit_code"`
	Duration time.Duration `json:"duration"`
	Err      string        `json:"error,omitempty"`
}

// Finding is a single normalized issue reported by an analyzer.
// Immutable once created by the normalizer.
type Finding struct {
	Tool           string   `json:"tool"`
	Severity       Severity `json:"severity"`
	File           string   `json:"file,omitempty"`
	Line           int      `json:"line,omitempty"`
	Rule           string   `json:"rule,omitempty"`
	Message        string   `json:"message"`
	Raw            bool     `json:"raw,omitempty"` // verbatim unparsed output, low confidence
	CorroboratedBy []string `json:"corroborated_by,omitempty"`
}

// Remediation is one suggested fix for a finding, produced by the
// remediation collaborator and persisted as its own artifact.
type Remediation struct {
	Tool       string `json:"tool"`
	File       string `json:"file,omitempty"`
	Line       int    `json:"line,omitempty"`
	Rule       string `json:"rule,omitempty"`
	Suggestion string `json:"suggestion"`
}

// ToolStatus records how one tool's invocation ended.
type ToolStatus struct {
	Tool     string        `json:"tool"`
	Status   ExecStatus    `json:"status"`
	Duration time.Duration `json:"duration,omitempty"`
	Detail   string        `json:"detail,omitempty"`
}

// BreakdownEntry is one auditable contribution to the risk score.
type BreakdownEntry struct {
	Factor string `json:"factor"`
	Count  int    `json:"count,omitempty"`
	Points int    `json:"points"`
}

// RunStatus is the overall outcome of a run.
type RunStatus string

const (
	RunCompleted          RunStatus = "completed"
	RunCompletedWithSkips RunStatus = "completed_with_skips"
	RunAborted            RunStatus = "aborted"
)

// RiskLevel buckets the 0-100 score.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"    // 0-29
	RiskMedium RiskLevel = "medium" // 30-59
	RiskHigh   RiskLevel = "high"   // 60-100
)

// LevelForScore maps a clamped score to its risk level.
func LevelForScore(score int) RiskLevel {
	switch {
	case score >= 60:
		return RiskHigh
	case score >= 30:
		return RiskMedium
	default:
		return RiskLow
	}
}

// RunMode distinguishes PR-scoped runs from full scans.
type RunMode string

const (
	ModePR     RunMode = "pr"
	ModeManual RunMode = "manual"
)

// Metadata describes one run.
type Metadata struct {
	RunID         string        `json:"run_id"`
	GeneratedAt   time.Time     `json:"generated_at"`
	Version       string        `json:"version"`
	Target        string        `json:"target"`
	Mode          RunMode       `json:"mode"`
	ExecutionTime time.Duration `json:"execution_time"`
}

// AggregateResult is the complete structured outcome of a run.
// Constructed once by the report builder and handed to the sink.
type AggregateResult struct {
	Metadata   Metadata         `json:"metadata"`
	Status     RunStatus        `json:"status"`
	RiskScore  int              `json:"risk_score"`
	RiskLevel  RiskLevel        `json:"risk_level"`
	Findings   []Finding        `json:"findings"`
	Breakdown  []BreakdownEntry `json:"breakdown"`
	ToolStatus []ToolStatus     `json:"tool_status"`
	Ecosystems []Ecosystem      `json:"ecosystems,omitempty"`
	Summary    string           `json:"summary,omitempty"`
	Detail     string           `json:"detail,omitempty"`
	// Remediations are optional LLM-suggested fixes; absent when the
	// provider is disabled or unavailable.
	Remediations []Remediation `json:"remediations,omitempty"`
}

// SkippedTools lists the tools whose invocations were skipped.
func (r *AggregateResult) SkippedTools() []string {
	var out []string
	for _, ts := range r.ToolStatus {
		if ts.Status == ExecSkipped {
			out = append(out, ts.Tool)
		}
	}
	return out
}
