/*
Copyright © 2025 GenOps HQ <dev@genopshq.io>
*/
package analysis

import (
	"fmt"
	"strings"

	"github.com/genopshq/guardian/pkg/logger"
)

// parserFunc converts one tool's raw output into findings.
// Parsers are pure: raw bytes in, findings or a parse error out.
type parserFunc func(tool string, data []byte) ([]Finding, error)

// parsers is the closed set of output-format parsers. An AnalyzerSpec's
// Format selects exactly one.
var parsers = map[OutputFormat]parserFunc{
	FormatRuffJSON:       parseRuffJSON,
	FormatBanditJSON:     parseBanditJSON,
	FormatESLintJSON:     parseESLintJSON,
	FormatPMDJSON:        parsePMDJSON,
	FormatCheckstyleXML:  parseCheckstyleXML,
	FormatSpotBugsXML:    parseSpotBugsXML,
	FormatGCCLines:       parseGCCLines,
	FormatStaticcheckNDJ: parseStaticcheckNDJSON,
	FormatSARIF:          parseSARIF,
	FormatTrivyJSON:      parseTrivyJSON,
	FormatCheckovJSON:    parseCheckovJSON,
	FormatKubeLinterJSON: parseKubeLinterJSON,
	FormatRuboCopJSON:    parseRuboCopJSON,
	FormatPHPCSJSON:      parsePHPCSJSON,
	FormatPsalmJSON:      parsePsalmJSON,
	FormatMSBuildLines:   parseMSBuildLines,
}

// Normalize converts an execution's captured output into findings.
// Only successful executions carry output; timeouts, skips and crashes
// yield nothing here and are accounted for via their status records.
// Unparseable output degrades to a single raw finding so information
// is never silently lost.
func Normalize(ex Execution) []Finding {
	if ex.Status != ExecSuccess {
		return nil
	}
	out := ex.Stdout
	if ex.Spec.StderrOutput {
		out = ex.Stderr
	}
	if len(strings.TrimSpace(string(out))) == 0 {
		return nil
	}

	parse, ok := parsers[ex.Spec.Format]
	if !ok {
		logger.Warn("no parser for output format",
			logger.String("tool", ex.Spec.Tool),
			logger.String("format", string(ex.Spec.Format)))
		return []Finding{rawFinding(ex.Spec.Tool, out)}
	}

	findings, err := parse(ex.Spec.Tool, out)
	if err != nil {
		logger.Warn("analyzer output unparseable, keeping raw",
			logger.String("tool", ex.Spec.Tool), logger.Err(err))
		return []Finding{rawFinding(ex.Spec.Tool, out)}
	}
	return findings
}

// rawFinding preserves unparseable output verbatim as a low-confidence
// finding tagged with the originating tool.
func rawFinding(tool string, data []byte) Finding {
	return Finding{
		Tool:     tool,
		Severity: SeverityInfo,
		Raw:      true,
		Message:  fmt.Sprintf("unparsed %s output: %s", tool, strings.TrimSpace(string(data))),
	}
}
