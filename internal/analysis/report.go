/*
Copyright © 2025 GenOps HQ <dev@genopshq.io>
*/
package analysis

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/aymerick/raymond"
	"github.com/xeipuuv/gojsonschema"
)

// BuildResult assembles the final structured result. The status is
// completed_with_skips when any tool was skipped; aborted results are
// produced only by the engine's detection phase.
func BuildResult(meta Metadata, findings []Finding, breakdown []BreakdownEntry, statuses []ToolStatus, ecosystems []Ecosystem, score int) *AggregateResult {
	status := RunCompleted
	for _, ts := range statuses {
		if ts.Status == ExecSkipped {
			status = RunCompletedWithSkips
			break
		}
	}
	return &AggregateResult{
		Metadata:   meta,
		Status:     status,
		RiskScore:  score,
		RiskLevel:  LevelForScore(score),
		Findings:   findings,
		Breakdown:  append(breakdown, StatusBreakdown(statuses)...),
		ToolStatus: statuses,
		Ecosystems: ecosystems,
	}
}

// StatusBreakdown adds zero-point entries for skip/timeout/crash counts
// so a run never looks clean when tools failed.
func StatusBreakdown(statuses []ToolStatus) []BreakdownEntry {
	counts := map[ExecStatus]int{}
	for _, ts := range statuses {
		counts[ts.Status]++
	}
	var entries []BreakdownEntry
	for _, st := range []ExecStatus{ExecSkipped, ExecTimeout, ExecError} {
		if n := counts[st]; n > 0 {
			entries = append(entries, BreakdownEntry{
				Factor: fmt.Sprintf("tools_%s", st),
				Count:  n,
			})
		}
	}
	return entries
}

// guardianReport is the persisted genops_guardian.json shape.
type guardianReport struct {
	RiskScore int              `json:"risk_score"`
	RiskLevel RiskLevel        `json:"risk_level"`
	Findings  []Finding        `json:"findings"`
	Breakdown []guardianFactor `json:"breakdown"`
}

type guardianFactor struct {
	Factor string `json:"factor"`
	Points int    `json:"points"`
}

// guardianSchema validates the payload before it leaves the builder.
const guardianSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["risk_score", "risk_level", "findings", "breakdown"],
  "properties": {
    "risk_score": {"type": "integer", "minimum": 0, "maximum": 100},
    "risk_level": {"enum": ["low", "medium", "high"]},
    "findings": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["tool", "severity", "message"],
        "properties": {
          "tool": {"type": "string"},
          "severity": {"enum": ["info", "low", "medium", "high", "critical"]},
          "file": {"type": "string"},
          "line": {"type": "integer"},
          "rule": {"type": "string"},
          "message": {"type": "string"},
          "raw": {"type": "boolean"},
          "corroborated_by": {"type": "array", "items": {"type": "string"}}
        }
      }
    },
    "breakdown": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["factor", "points"],
        "properties": {
          "factor": {"type": "string"},
          "points": {"type": "integer"}
        }
      }
    }
  }
}`

// EncodeGuardianJSON serializes the persisted report format and
// validates it against the embedded schema.
func EncodeGuardianJSON(result *AggregateResult) ([]byte, error) {
	report := guardianReport{
		RiskScore: result.RiskScore,
		RiskLevel: result.RiskLevel,
		Findings:  result.Findings,
	}
	if report.Findings == nil {
		report.Findings = []Finding{}
	}
	report.Breakdown = make([]guardianFactor, 0, len(result.Breakdown))
	for _, b := range result.Breakdown {
		report.Breakdown = append(report.Breakdown, guardianFactor{Factor: b.Factor, Points: b.Points})
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode guardian report: %w", err)
	}

	res, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(guardianSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("schema validation errored: %w", err)
	}
	if !res.Valid() {
		var msgs []string
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("guardian report failed schema validation: %s", strings.Join(msgs, "; "))
	}
	return data, nil
}

// DecodeGuardianJSON parses a persisted report back into a partial
// AggregateResult (score, level, findings, breakdown).
func DecodeGuardianJSON(data []byte) (*AggregateResult, error) {
	var report guardianReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to decode guardian report: %w", err)
	}
	out := &AggregateResult{
		RiskScore: report.RiskScore,
		RiskLevel: report.RiskLevel,
		Findings:  report.Findings,
	}
	for _, b := range report.Breakdown {
		out.Breakdown = append(out.Breakdown, BreakdownEntry{Factor: b.Factor, Points: b.Points})
	}
	return out, nil
}

// Markdown templates for the two PR comments and the findings artifact.
const healthCommentTemplate = `## Repository Health (guardian)

**Status:** {{status}} - {{findingCount}} finding(s) across {{toolCount}} tool(s)

{{#if skipped}}
**Skipped tools:** {{skipped}}
{{/if}}

{{summary}}
`

const riskCommentTemplate = `## GenOps Risk Review

**Risk Score:** {{score}} ({{level}})

### Top Findings
{{#each findings}}
- **{{severity}}** {{tool}}: {{message}}{{#if file}} ({{file}}{{#if line}}:{{line}}{{/if}}){{/if}}
{{/each}}
{{#unless findings}}
- None
{{/unless}}

Full analysis available as workflow artifacts.
`

const findingsTableTemplate = `# Analyzer Findings

| Severity | Tool | File | Line | Rule | Message |
|---|---|---|---|---|---|
{{#each findings}}
| {{severity}} | {{tool}} | {{file}} | {{line}} | {{rule}} | {{message}} |
{{/each}}
`

// RenderHealthComment renders the health/summary comment body.
func RenderHealthComment(result *AggregateResult) (string, error) {
	ctx := map[string]interface{}{
		"status":       string(result.Status),
		"findingCount": len(result.Findings),
		"toolCount":    len(result.ToolStatus),
		"skipped":      strings.Join(result.SkippedTools(), ", "),
		"summary":      result.Summary,
	}
	return raymond.Render(healthCommentTemplate, ctx)
}

// RenderRiskComment renders the risk/score comment body with up to
// five leading findings (the list is already severity-sorted per file).
func RenderRiskComment(result *AggregateResult) (string, error) {
	top := topBySeverity(result.Findings, 5)
	ctx := map[string]interface{}{
		"score":    result.RiskScore,
		"level":    string(result.RiskLevel),
		"findings": findingMaps(top),
	}
	return raymond.Render(riskCommentTemplate, ctx)
}

// RenderFindingsTable renders the full findings table artifact.
func RenderFindingsTable(result *AggregateResult) (string, error) {
	ctx := map[string]interface{}{
		"findings": findingMaps(result.Findings),
	}
	return raymond.Render(findingsTableTemplate, ctx)
}

func topBySeverity(findings []Finding, n int) []Finding {
	sorted := make([]Finding, len(findings))
	copy(sorted, findings)
	SortFindings(sorted)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Severity.Rank() > sorted[j].Severity.Rank()
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func findingMaps(findings []Finding) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(findings))
	for _, f := range findings {
		msg := f.Message
		if len(msg) > 200 {
			cut := 200
			for cut > 0 && !utf8.RuneStart(msg[cut]) {
				cut--
			}
			msg = msg[:cut] + "…"
		}
		out = append(out, map[string]interface{}{
			"severity": string(f.Severity),
			"tool":     f.Tool,
			"file":     f.File,
			"line":     f.Line,
			"rule":     f.Rule,
			"message":  strings.ReplaceAll(msg, "|", "\\|"),
		})
	}
	return out
}
