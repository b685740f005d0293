/*
Copyright © 2025 GenOps HQ <dev@genopshq.io>
*/
package analysis

import (
	"os/exec"
)

// analyzerTable is the static mapping from ecosystem tag to analyzer
// invocations. Adding a tool means adding an entry here plus, if its
// output shape is new, a parser for its OutputFormat.
var analyzerTable = map[string][]AnalyzerSpec{
	"python": {
		{Tool: "ruff", Tag: "python", Command: "ruff", Args: []string{"check", "--output-format", "json", "."}, Format: FormatRuffJSON},
		{Tool: "bandit", Tag: "python", Command: "bandit", Args: []string{"-r", ".", "-f", "json"}, Format: FormatBanditJSON},
	},
	"javascript": {
		{Tool: "eslint", Tag: "javascript", Command: "npx", Args: []string{"eslint", ".", "-f", "json"}, Format: FormatESLintJSON},
	},
	"java": {
		{Tool: "pmd", Tag: "java", Command: "pmd", Args: []string{"check", "-d", "src", "-R", "rulesets/java/quickstart.xml", "-f", "json"}, Format: FormatPMDJSON},
		{Tool: "checkstyle", Tag: "java", Command: "checkstyle", Args: []string{"-c", "/google_checks.xml", "-f", "xml", "src"}, Format: FormatCheckstyleXML},
		{Tool: "spotbugs", Tag: "java", Command: "spotbugs", Args: []string{"-textui", "-xml:withMessages", "target/classes"}, Format: FormatSpotBugsXML},
	},
	"go": {
		{Tool: "govet", Tag: "go", Command: "go", Args: []string{"vet", "./..."}, Format: FormatGCCLines, StderrOutput: true},
		{Tool: "staticcheck", Tag: "go", Command: "staticcheck", Args: []string{"-f", "json", "./..."}, Format: FormatStaticcheckNDJ},
	},
	"dotnet": {
		// /warnaserror makes the build fail on warnings so a warning-only
		// build still exits nonzero with diagnostics on stdout.
		{Tool: "roslyn", Tag: "dotnet", Command: "dotnet", Args: []string{"build", "--nologo", "/warnaserror"}, Format: FormatMSBuildLines},
	},
	"ruby": {
		{Tool: "rubocop", Tag: "ruby", Command: "rubocop", Args: []string{"-f", "json"}, Format: FormatRuboCopJSON},
	},
	"php": {
		{Tool: "phpcs", Tag: "php", Command: "phpcs", Args: []string{"--report=json", "."}, Format: FormatPHPCSJSON},
		{Tool: "psalm", Tag: "php", Command: "psalm", Args: []string{"--output-format=json"}, Format: FormatPsalmJSON},
	},
	"docker": {
		{Tool: "trivy", Tag: "docker", Command: "trivy", Args: []string{"config", "--format", "json", "{root}"}, Format: FormatTrivyJSON},
	},
	"terraform": {
		{Tool: "checkov", Tag: "terraform", Command: "checkov", Args: []string{"-d", "{root}", "-o", "json"}, Format: FormatCheckovJSON},
		{Tool: "tfsec", Tag: "terraform", Command: "tfsec", Args: []string{"--format", "sarif", "{root}"}, Format: FormatSARIF},
	},
	"kubernetes": {
		{Tool: "kube-linter", Tag: "kubernetes", Command: "kube-linter", Args: []string{"lint", "{root}", "--format", "json"}, Format: FormatKubeLinterJSON},
	},
}

// semgrepSpec applies to every ecosystem; opt-in via config.
var semgrepSpec = AnalyzerSpec{
	Tool: "semgrep", Tag: "all",
	Command: "semgrep", Args: []string{"scan", "--config", "auto", "--sarif", "--quiet"},
	Format: FormatSARIF,
}

// Registry is a pure lookup from ecosystem tags to analyzer specs.
type Registry struct {
	table   map[string][]AnalyzerSpec
	semgrep bool
	// lookPath is swappable for tests
	lookPath func(string) (string, error)
}

// NewRegistry returns the built-in registry.
func NewRegistry(enableSemgrep bool) *Registry {
	return &Registry{table: analyzerTable, semgrep: enableSemgrep, lookPath: exec.LookPath}
}

// SpecsFor returns the ordered, deduplicated analyzer specs for the
// detected ecosystems. Specs are returned regardless of host
// availability; the scheduler marks unavailable ones skipped.
func (r *Registry) SpecsFor(ecosystems []Ecosystem) []AnalyzerSpec {
	seen := make(map[string]bool)
	var specs []AnalyzerSpec
	for _, eco := range ecosystems {
		for _, spec := range r.table[eco.Tag] {
			if seen[spec.Tool] {
				continue
			}
			seen[spec.Tool] = true
			specs = append(specs, spec)
		}
	}
	if r.semgrep && len(ecosystems) > 0 && !seen[semgrepSpec.Tool] {
		specs = append(specs, semgrepSpec)
	}
	return specs
}

// Available reports whether the spec's binary is installed on the host.
func (r *Registry) Available(spec AnalyzerSpec) bool {
	_, err := r.lookPath(spec.Command)
	return err == nil
}

// AllSpecs returns every registered spec in deterministic tag order
// (used by the tools listing command).
func (r *Registry) AllSpecs() []AnalyzerSpec {
	var specs []AnalyzerSpec
	for _, tag := range ecosystemOrder {
		specs = append(specs, r.table[tag]...)
	}
	specs = append(specs, semgrepSpec)
	return specs
}
