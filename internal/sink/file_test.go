package sink

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/genopshq/guardian/internal/analysis"
)

func sampleResult() *analysis.AggregateResult {
	return &analysis.AggregateResult{
		Status:    analysis.RunCompleted,
		RiskScore: 15,
		RiskLevel: analysis.RiskLow,
		Findings: []analysis.Finding{
			{Tool: "bandit", Severity: analysis.SeverityHigh, File: "auth.py", Line: 10, Rule: "B105", Message: "hardcoded password"},
		},
		Breakdown:  []analysis.BreakdownEntry{{Factor: "severity:high", Count: 1, Points: 10}},
		ToolStatus: []analysis.ToolStatus{{Tool: "bandit", Status: analysis.ExecSuccess}},
		Summary:    "1 finding, low risk",
		Detail:     "1 finding, low risk. Nothing else to report.",
	}
}

func TestFileSink_WritesArtifacts(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	s := NewFileSink(dir, false)

	if err := s.Deliver(context.Background(), sampleResult()); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	summary, err := os.ReadFile(filepath.Join(dir, SummaryFile))
	if err != nil {
		t.Fatalf("read summary: %v", err)
	}
	if !strings.Contains(string(summary), "Nothing else to report") {
		t.Errorf("summary artifact missing detail text: %q", summary)
	}

	data, err := os.ReadFile(filepath.Join(dir, GuardianFile))
	if err != nil {
		t.Fatalf("read guardian json: %v", err)
	}
	back, err := analysis.DecodeGuardianJSON(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if back.RiskScore != 15 || len(back.Findings) != 1 {
		t.Errorf("persisted report lost data: %+v", back)
	}

	table, err := os.ReadFile(filepath.Join(dir, FindingsFile))
	if err != nil {
		t.Fatalf("read findings table: %v", err)
	}
	if !strings.Contains(string(table), "hardcoded password") {
		t.Errorf("findings table missing finding: %q", table)
	}

	if _, err := os.Stat(filepath.Join(dir, BundleFile)); !os.IsNotExist(err) {
		t.Error("bundle written despite Bundle=false")
	}
}

func TestFileSink_Bundle(t *testing.T) {
	dir := t.TempDir()
	s := NewFileSink(dir, true)
	if err := s.Deliver(context.Background(), sampleResult()); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	f, err := os.Open(filepath.Join(dir, BundleFile))
	if err != nil {
		t.Fatalf("open bundle: %v", err)
	}
	defer func() { _ = f.Close() }()

	gz, err := gzip.NewReader(f)
	if err != nil {
		t.Fatalf("gzip: %v", err)
	}
	names := map[string]bool{}
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("tar: %v", err)
		}
		names[hdr.Name] = true
	}
	for _, want := range []string{SummaryFile, GuardianFile, FindingsFile} {
		if !names[want] {
			t.Errorf("bundle missing %s", want)
		}
	}
}

func TestFileSink_UnwritableDir(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not bind as root")
	}
	base := t.TempDir()
	if err := os.Chmod(base, 0o500); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	t.Cleanup(func() { _ = os.Chmod(base, 0o755) })

	s := NewFileSink(filepath.Join(base, "out"), false)
	err := s.Deliver(context.Background(), sampleResult())
	if err == nil {
		t.Fatal("expected a sink error")
	}
	var sinkErr *analysis.SinkError
	if !errors.As(err, &sinkErr) {
		t.Fatalf("expected SinkError, got %T", err)
	}
}

func TestFileSink_RemediationArtifact(t *testing.T) {
	dir := t.TempDir()
	s := NewFileSink(dir, false)

	result := sampleResult()
	result.Remediations = []analysis.Remediation{
		{Tool: "bandit", File: "auth.py", Line: 10, Rule: "B105", Suggestion: "load the secret from the environment"},
	}
	if err := s.Deliver(context.Background(), result); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, RemediationFile))
	if err != nil {
		t.Fatalf("read remediations: %v", err)
	}
	var back []analysis.Remediation
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("decode remediations: %v", err)
	}
	if len(back) != 1 || back[0].Suggestion == "" {
		t.Errorf("persisted remediations lost data: %+v", back)
	}
}

func TestFileSink_NoRemediationFileWithoutSuggestions(t *testing.T) {
	dir := t.TempDir()
	s := NewFileSink(dir, false)
	if err := s.Deliver(context.Background(), sampleResult()); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, RemediationFile)); !os.IsNotExist(err) {
		t.Error("remediation artifact must be absent when no suggestions exist")
	}
}
