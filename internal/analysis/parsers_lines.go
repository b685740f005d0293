/*
Copyright © 2025 GenOps HQ <dev@genopshq.io>
*/
package analysis

import (
	"bufio"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// gccLineRe matches the classic compiler diagnostic shape
// file:line[:col]: message, emitted by go vet and friends.
var gccLineRe = regexp.MustCompile(`^(.+?):(\d+)(?::(\d+))?:\s*(.+)$`)

// parseGCCLines converts line-oriented file:line:col diagnostics.
// Lines that do not match are ignored; a fully non-matching payload is
// a parse error so the raw-output fallback can preserve it.
func parseGCCLines(tool string, data []byte) ([]Finding, error) {
	var findings []Finding
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		m := gccLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		lineNum, _ := strconv.Atoi(m[2])
		findings = append(findings, Finding{
			Tool:     tool,
			Severity: SeverityMedium,
			File:     m[1],
			Line:     lineNum,
			Message:  strings.TrimSpace(m[4]),
		})
	}
	if len(findings) == 0 {
		return nil, fmt.Errorf("no parseable diagnostics in %s output", tool)
	}
	return findings, nil
}

// msbuildLineRe matches roslyn diagnostics emitted by dotnet build:
// file(line,col): warning CS0219: message [project.csproj]
var msbuildLineRe = regexp.MustCompile(`^(.+?)\((\d+),(\d+)\): (warning|error) ([A-Z]+\d+): (.+?)(?:\s+\[[^\]]+\])?$`)

// parseMSBuildLines converts roslyn compiler diagnostics. The build runs
// with warnings-as-errors, so roslyn reports warnings as errors; both
// keywords are accepted.
func parseMSBuildLines(tool string, data []byte) ([]Finding, error) {
	var findings []Finding
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		m := msbuildLineRe.FindStringSubmatch(strings.TrimSpace(scanner.Text()))
		if m == nil {
			continue
		}
		severity := SeverityLow
		if m[4] == "error" {
			severity = SeverityMedium
		}
		lineNum, _ := strconv.Atoi(m[2])
		findings = append(findings, Finding{
			Tool:     tool,
			Severity: severity,
			File:     m[1],
			Line:     lineNum,
			Rule:     m[5],
			Message:  strings.TrimSpace(m[6]),
		})
	}
	if len(findings) == 0 {
		return nil, fmt.Errorf("no parseable diagnostics in %s output", tool)
	}
	return findings, nil
}
