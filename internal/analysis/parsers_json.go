/*
Copyright © 2025 GenOps HQ <dev@genopshq.io>
*/
package analysis

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strings"
)

// parseRuffJSON converts `ruff check --output-format json` output.
// Ruff reports no severity; rule-code prefixes drive the mapping.
func parseRuffJSON(tool string, data []byte) ([]Finding, error) {
	type ruffDiag struct {
		Code     string `json:"code"`
		Message  string `json:"message"`
		Filename string `json:"filename"`
		Location struct {
			Row int `json:"row"`
		} `json:"location"`
	}
	var diags []ruffDiag
	if err := json.Unmarshal(data, &diags); err != nil {
		return nil, fmt.Errorf("failed to parse ruff output: %w", err)
	}
	var findings []Finding
	for _, d := range diags {
		findings = append(findings, Finding{
			Tool:     tool,
			Severity: ruffSeverity(d.Code),
			File:     d.Filename,
			Line:     d.Location.Row,
			Rule:     d.Code,
			Message:  d.Message,
		})
	}
	return findings, nil
}

func ruffSeverity(code string) Severity {
	switch {
	case strings.HasPrefix(code, "S"): // flake8-bandit rules
		return SeverityHigh
	case strings.HasPrefix(code, "F"): // pyflakes correctness
		return SeverityMedium
	case strings.HasPrefix(code, "E"), strings.HasPrefix(code, "W"):
		return SeverityLow
	default:
		return SeverityInfo
	}
}

// parseBanditJSON converts `bandit -f json` output.
func parseBanditJSON(tool string, data []byte) ([]Finding, error) {
	type banditResult struct {
		Severity string `json:"issue_severity"`
		Text     string `json:"issue_text"`
		Filename string `json:"filename"`
		Line     int    `json:"line_number"`
		TestID   string `json:"test_id"`
	}
	type banditReport struct {
		Results []banditResult `json:"results"`
	}
	var report banditReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to parse bandit output: %w", err)
	}
	var findings []Finding
	for _, r := range report.Results {
		sev := SeverityInfo
		switch strings.ToLower(r.Severity) {
		case "high":
			sev = SeverityHigh
		case "medium":
			sev = SeverityMedium
		case "low":
			sev = SeverityLow
		}
		findings = append(findings, Finding{
			Tool:     tool,
			Severity: sev,
			File:     r.Filename,
			Line:     r.Line,
			Rule:     r.TestID,
			Message:  r.Text,
		})
	}
	return findings, nil
}

// parseESLintJSON converts `eslint -f json` output.
func parseESLintJSON(tool string, data []byte) ([]Finding, error) {
	type eslintMessage struct {
		RuleID   string `json:"ruleId"`
		Severity int    `json:"severity"` // 1 warn, 2 error
		Message  string `json:"message"`
		Line     int    `json:"line"`
	}
	type eslintFile struct {
		FilePath string          `json:"filePath"`
		Messages []eslintMessage `json:"messages"`
	}
	var files []eslintFile
	if err := json.Unmarshal(data, &files); err != nil {
		return nil, fmt.Errorf("failed to parse eslint output: %w", err)
	}
	var findings []Finding
	for _, f := range files {
		for _, m := range f.Messages {
			sev := SeverityInfo
			switch m.Severity {
			case 2:
				sev = SeverityMedium
			case 1:
				sev = SeverityLow
			}
			findings = append(findings, Finding{
				Tool:     tool,
				Severity: sev,
				File:     f.FilePath,
				Line:     m.Line,
				Rule:     m.RuleID,
				Message:  m.Message,
			})
		}
	}
	return findings, nil
}

// parsePMDJSON converts `pmd check -f json` output. PMD priority 1 is
// the most severe.
func parsePMDJSON(tool string, data []byte) ([]Finding, error) {
	type pmdViolation struct {
		BeginLine   int    `json:"beginline"`
		Rule        string `json:"rule"`
		Description string `json:"description"`
		Priority    int    `json:"priority"`
	}
	type pmdFile struct {
		Filename   string         `json:"filename"`
		Violations []pmdViolation `json:"violations"`
	}
	type pmdReport struct {
		Files []pmdFile `json:"files"`
	}
	var report pmdReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to parse pmd output: %w", err)
	}
	var findings []Finding
	for _, f := range report.Files {
		for _, v := range f.Violations {
			sev := SeverityInfo
			switch v.Priority {
			case 1:
				sev = SeverityHigh
			case 2:
				sev = SeverityMedium
			case 3, 4:
				sev = SeverityLow
			}
			findings = append(findings, Finding{
				Tool:     tool,
				Severity: sev,
				File:     f.Filename,
				Line:     v.BeginLine,
				Rule:     v.Rule,
				Message:  v.Description,
			})
		}
	}
	return findings, nil
}

// parseStaticcheckNDJSON converts `staticcheck -f json` NDJSON output.
func parseStaticcheckNDJSON(tool string, data []byte) ([]Finding, error) {
	type scDiag struct {
		Code     string `json:"code"`
		Severity string `json:"severity"`
		Message  string `json:"message"`
		Location struct {
			File string `json:"file"`
			Line int    `json:"line"`
		} `json:"location"`
	}
	var findings []Finding
	parsedAny := false
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var d scDiag
		if err := json.Unmarshal([]byte(line), &d); err != nil {
			continue
		}
		parsedAny = true
		sev := SeverityInfo
		switch strings.ToLower(d.Severity) {
		case "error":
			sev = SeverityMedium
		case "warning":
			sev = SeverityLow
		}
		findings = append(findings, Finding{
			Tool:     tool,
			Severity: sev,
			File:     d.Location.File,
			Line:     d.Location.Line,
			Rule:     d.Code,
			Message:  d.Message,
		})
	}
	if !parsedAny {
		return nil, fmt.Errorf("no parseable staticcheck events")
	}
	return findings, nil
}

// parseTrivyJSON converts `trivy config --format json` output. Both
// misconfigurations and vulnerabilities are mapped.
func parseTrivyJSON(tool string, data []byte) ([]Finding, error) {
	type trivyMisconf struct {
		ID            string `json:"ID"`
		Title         string `json:"Title"`
		Message       string `json:"Message"`
		Severity      string `json:"Severity"`
		CauseMetadata struct {
			StartLine int `json:"StartLine"`
		} `json:"CauseMetadata"`
	}
	type trivyVuln struct {
		ID       string `json:"VulnerabilityID"`
		PkgName  string `json:"PkgName"`
		Title    string `json:"Title"`
		Severity string `json:"Severity"`
	}
	type trivyResult struct {
		Target            string         `json:"Target"`
		Misconfigurations []trivyMisconf `json:"Misconfigurations"`
		Vulnerabilities   []trivyVuln    `json:"Vulnerabilities"`
	}
	type trivyReport struct {
		Results []trivyResult `json:"Results"`
	}
	var report trivyReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to parse trivy output: %w", err)
	}
	var findings []Finding
	for _, res := range report.Results {
		for _, m := range res.Misconfigurations {
			msg := m.Message
			if msg == "" {
				msg = m.Title
			}
			findings = append(findings, Finding{
				Tool:     tool,
				Severity: upperSeverity(m.Severity),
				File:     res.Target,
				Line:     m.CauseMetadata.StartLine,
				Rule:     m.ID,
				Message:  msg,
			})
		}
		for _, v := range res.Vulnerabilities {
			findings = append(findings, Finding{
				Tool:     tool,
				Severity: upperSeverity(v.Severity),
				File:     res.Target,
				Rule:     v.ID,
				Message:  fmt.Sprintf("%s in %s", v.Title, v.PkgName),
			})
		}
	}
	return findings, nil
}

// upperSeverity maps CRITICAL/HIGH/MEDIUM/LOW style levels; anything
// else (UNKNOWN, empty) defaults to info.
func upperSeverity(s string) Severity {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CRITICAL":
		return SeverityCritical
	case "HIGH":
		return SeverityHigh
	case "MEDIUM":
		return SeverityMedium
	case "LOW":
		return SeverityLow
	default:
		return SeverityInfo
	}
}

// parseCheckovJSON converts `checkov -o json` output. Checkov often
// omits severity; failed checks without one count as medium.
func parseCheckovJSON(tool string, data []byte) ([]Finding, error) {
	type checkovCheck struct {
		CheckID   string `json:"check_id"`
		CheckName string `json:"check_name"`
		FilePath  string `json:"file_path"`
		Severity  string `json:"severity"`
		LineRange []int  `json:"file_line_range"`
	}
	type checkovReport struct {
		Results struct {
			FailedChecks []checkovCheck `json:"failed_checks"`
		} `json:"results"`
	}
	// checkov emits either a single report or an array of per-framework reports
	var reports []checkovReport
	if err := json.Unmarshal(data, &reports); err != nil {
		var single checkovReport
		if err2 := json.Unmarshal(data, &single); err2 != nil {
			return nil, fmt.Errorf("failed to parse checkov output: %w", err2)
		}
		reports = append(reports, single)
	}
	var findings []Finding
	for _, report := range reports {
		for _, c := range report.Results.FailedChecks {
			sev := SeverityMedium
			if c.Severity != "" {
				sev = upperSeverity(c.Severity)
			}
			line := 0
			if len(c.LineRange) > 0 {
				line = c.LineRange[0]
			}
			findings = append(findings, Finding{
				Tool:     tool,
				Severity: sev,
				File:     c.FilePath,
				Line:     line,
				Rule:     c.CheckID,
				Message:  c.CheckName,
			})
		}
	}
	return findings, nil
}

// parseKubeLinterJSON converts `kube-linter lint --format json` output.
func parseKubeLinterJSON(tool string, data []byte) ([]Finding, error) {
	type klReport struct {
		Check      string `json:"Check"`
		Diagnostic struct {
			Message string `json:"Message"`
		} `json:"Diagnostic"`
		Object struct {
			Metadata struct {
				FilePath string `json:"FilePath"`
			} `json:"Metadata"`
		} `json:"Object"`
	}
	type klOutput struct {
		Reports []klReport `json:"Reports"`
	}
	var out klOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse kube-linter output: %w", err)
	}
	var findings []Finding
	for _, r := range out.Reports {
		findings = append(findings, Finding{
			Tool:     tool,
			Severity: SeverityMedium,
			File:     r.Object.Metadata.FilePath,
			Rule:     r.Check,
			Message:  r.Diagnostic.Message,
		})
	}
	return findings, nil
}

// parseRuboCopJSON converts `rubocop -f json` output.
func parseRuboCopJSON(tool string, data []byte) ([]Finding, error) {
	type rcOffense struct {
		Severity string `json:"severity"`
		Message  string `json:"message"`
		CopName  string `json:"cop_name"`
		Location struct {
			Line int `json:"line"`
		} `json:"location"`
	}
	type rcFile struct {
		Path     string      `json:"path"`
		Offenses []rcOffense `json:"offenses"`
	}
	type rcReport struct {
		Files []rcFile `json:"files"`
	}
	var report rcReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to parse rubocop output: %w", err)
	}
	var findings []Finding
	for _, f := range report.Files {
		for _, o := range f.Offenses {
			sev := SeverityInfo
			switch strings.ToLower(o.Severity) {
			case "fatal":
				sev = SeverityHigh
			case "error":
				sev = SeverityMedium
			case "warning":
				sev = SeverityLow
			}
			findings = append(findings, Finding{
				Tool:     tool,
				Severity: sev,
				File:     f.Path,
				Line:     o.Location.Line,
				Rule:     o.CopName,
				Message:  o.Message,
			})
		}
	}
	return findings, nil
}

// parsePHPCSJSON converts `phpcs --report=json` output.
func parsePHPCSJSON(tool string, data []byte) ([]Finding, error) {
	type phpcsMessage struct {
		Message string `json:"message"`
		Source  string `json:"source"`
		Type    string `json:"type"` // ERROR | WARNING
		Line    int    `json:"line"`
	}
	type phpcsFile struct {
		Messages []phpcsMessage `json:"messages"`
	}
	type phpcsReport struct {
		Files map[string]phpcsFile `json:"files"`
	}
	var report phpcsReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to parse phpcs output: %w", err)
	}
	var findings []Finding
	for path, f := range report.Files {
		for _, m := range f.Messages {
			sev := SeverityInfo
			switch strings.ToUpper(m.Type) {
			case "ERROR":
				sev = SeverityMedium
			case "WARNING":
				sev = SeverityLow
			}
			findings = append(findings, Finding{
				Tool:     tool,
				Severity: sev,
				File:     path,
				Line:     m.Line,
				Rule:     m.Source,
				Message:  m.Message,
			})
		}
	}
	return findings, nil
}

// parsePsalmJSON converts `psalm --output-format=json` output.
func parsePsalmJSON(tool string, data []byte) ([]Finding, error) {
	type psalmIssue struct {
		Severity string `json:"severity"` // error | info
		Type     string `json:"type"`
		Message  string `json:"message"`
		FileName string `json:"file_name"`
		LineFrom int    `json:"line_from"`
	}
	var issues []psalmIssue
	if err := json.Unmarshal(data, &issues); err != nil {
		return nil, fmt.Errorf("failed to parse psalm output: %w", err)
	}
	var findings []Finding
	for _, iss := range issues {
		sev := SeverityInfo
		if strings.EqualFold(iss.Severity, "error") {
			sev = SeverityMedium
		}
		findings = append(findings, Finding{
			Tool:     tool,
			Severity: sev,
			File:     iss.FileName,
			Line:     iss.LineFrom,
			Rule:     iss.Type,
			Message:  iss.Message,
		})
	}
	return findings, nil
}
