/*
Copyright © 2025 GenOps HQ <dev@genopshq.io>
*/
package analysis

import (
	"encoding/json"
	"fmt"
	"strings"
)

// parseSARIF converts SARIF 2.1.0 logs (semgrep --sarif, tfsec
// --format sarif). The driver name, when present, replaces the tool tag
// so corroboration across wrappers still lines up.
func parseSARIF(tool string, data []byte) ([]Finding, error) {
	type sarifRegion struct {
		StartLine int `json:"startLine"`
	}
	type sarifLocation struct {
		PhysicalLocation struct {
			ArtifactLocation struct {
				URI string `json:"uri"`
			} `json:"artifactLocation"`
			Region sarifRegion `json:"region"`
		} `json:"physicalLocation"`
	}
	type sarifResult struct {
		RuleID  string `json:"ruleId"`
		Level   string `json:"level"`
		Message struct {
			Text string `json:"text"`
		} `json:"message"`
		Locations []sarifLocation `json:"locations"`
	}
	type sarifRun struct {
		Tool struct {
			Driver struct {
				Name string `json:"name"`
			} `json:"driver"`
		} `json:"tool"`
		Results []sarifResult `json:"results"`
	}
	type sarifLog struct {
		Version string     `json:"version"`
		Runs    []sarifRun `json:"runs"`
	}

	var log sarifLog
	if err := json.Unmarshal(data, &log); err != nil {
		return nil, fmt.Errorf("failed to parse sarif log: %w", err)
	}
	if len(log.Runs) == 0 {
		return nil, fmt.Errorf("sarif log has no runs")
	}

	var findings []Finding
	for _, run := range log.Runs {
		source := tool
		if run.Tool.Driver.Name != "" {
			source = strings.ToLower(run.Tool.Driver.Name)
		}
		for _, res := range run.Results {
			sev := SeverityInfo
			switch strings.ToLower(res.Level) {
			case "error":
				sev = SeverityHigh
			case "warning":
				sev = SeverityMedium
			case "note":
				sev = SeverityLow
			}
			var file string
			var line int
			if len(res.Locations) > 0 {
				file = res.Locations[0].PhysicalLocation.ArtifactLocation.URI
				line = res.Locations[0].PhysicalLocation.Region.StartLine
			}
			findings = append(findings, Finding{
				Tool:     source,
				Severity: sev,
				File:     file,
				Line:     line,
				Rule:     res.RuleID,
				Message:  res.Message.Text,
			})
		}
	}
	return findings, nil
}
