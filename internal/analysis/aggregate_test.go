package analysis

import (
	"reflect"
	"testing"
)

var testDedupOpts = DedupOptions{LineTolerance: 2, Similarity: 0.82}

var testWeights = ScoreWeights{Critical: 25, High: 10, Medium: 3, Low: 1, Info: 0}

var testModifiers = ScoreModifiers{CIChanges: 5, ManifestChanges: 5, CleanWithTests: -5}

func TestSortFindings(t *testing.T) {
	findings := []Finding{
		{Tool: "b", File: "b.py", Line: 1, Severity: SeverityLow},
		{Tool: "a", File: "a.py", Line: 9, Severity: SeverityLow},
		{Tool: "a", File: "a.py", Line: 3, Severity: SeverityLow},
		{Tool: "z", File: "a.py", Line: 3, Severity: SeverityHigh},
	}
	SortFindings(findings)
	if findings[0].File != "a.py" || findings[0].Line != 3 || findings[0].Severity != SeverityHigh {
		t.Errorf("expected a.py:3 high first, got %+v", findings[0])
	}
	if findings[3].File != "b.py" {
		t.Errorf("expected b.py last, got %+v", findings[3])
	}
}

func TestDedup_MergesCorroboratingTools(t *testing.T) {
	findings := []Finding{
		{Tool: "bandit", File: "auth.py", Line: 10, Severity: SeverityHigh, Message: "Possible hardcoded password detected"},
		{Tool: "ruff", File: "auth.py", Line: 11, Severity: SeverityMedium, Message: "possible hardcoded password detected"},
	}
	out := Dedup(findings, testDedupOpts)
	if len(out) != 1 {
		t.Fatalf("expected 1 merged finding, got %d", len(out))
	}
	f := out[0]
	if f.Severity != SeverityHigh || f.Tool != "bandit" {
		t.Errorf("higher-severity finding must survive, got %+v", f)
	}
	if !reflect.DeepEqual(f.CorroboratedBy, []string{"ruff"}) {
		t.Errorf("expected CorroboratedBy [ruff], got %v", f.CorroboratedBy)
	}
}

func TestDedup_DistinctIssuesKept(t *testing.T) {
	findings := []Finding{
		{Tool: "ruff", File: "a.py", Line: 10, Severity: SeverityLow, Message: "unused import os"},
		{Tool: "ruff", File: "a.py", Line: 50, Severity: SeverityLow, Message: "unused import os"},
		{Tool: "ruff", File: "b.py", Line: 10, Severity: SeverityLow, Message: "unused import os"},
		{Tool: "ruff", File: "a.py", Line: 10, Severity: SeverityLow, Message: "completely different diagnostic text"},
	}
	out := Dedup(findings, testDedupOpts)
	if len(out) != 4 {
		t.Fatalf("expected all 4 distinct findings kept, got %d", len(out))
	}
}

func TestDedup_Idempotent(t *testing.T) {
	findings := []Finding{
		{Tool: "bandit", File: "auth.py", Line: 10, Severity: SeverityHigh, Message: "hardcoded password"},
		{Tool: "semgrep", File: "auth.py", Line: 10, Severity: SeverityMedium, Message: "hardcoded password"},
		{Tool: "ruff", File: "app.py", Line: 3, Severity: SeverityLow, Message: "unused import"},
	}
	once := Dedup(findings, testDedupOpts)
	twice := Dedup(once, testDedupOpts)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("dedup not idempotent:\nonce:  %+v\ntwice: %+v", once, twice)
	}
}

func TestDedup_RawNeverMerges(t *testing.T) {
	findings := []Finding{
		{Tool: "a", Raw: true, Severity: SeverityInfo, Message: "unparsed a output: blob"},
		{Tool: "b", Raw: true, Severity: SeverityInfo, Message: "unparsed a output: blob"},
	}
	if out := Dedup(findings, testDedupOpts); len(out) != 2 {
		t.Fatalf("raw findings must never merge, got %d", len(out))
	}
}

func TestDedup_LineToleranceBoundary(t *testing.T) {
	mk := func(line int) Finding {
		return Finding{Tool: "x", File: "f.go", Line: line, Severity: SeverityLow, Message: "same message"}
	}
	within := Dedup([]Finding{mk(10), mk(12)}, testDedupOpts)
	if len(within) != 1 {
		t.Errorf("lines within tolerance should merge, got %d", len(within))
	}
	beyond := Dedup([]Finding{mk(10), mk(13)}, testDedupOpts)
	if len(beyond) != 2 {
		t.Errorf("lines beyond tolerance must not merge, got %d", len(beyond))
	}
}

func TestScore_SeverityWeights(t *testing.T) {
	findings := []Finding{
		{Severity: SeverityCritical},
		{Severity: SeverityHigh},
		{Severity: SeverityHigh},
		{Severity: SeverityMedium},
		{Severity: SeverityLow},
		{Severity: SeverityInfo},
	}
	score, breakdown := Score(findings, ChangeSignals{}, RepoFacts{}, testWeights, testModifiers)
	if score != 25+20+3+1 {
		t.Fatalf("expected 49, got %d", score)
	}
	factors := map[string]BreakdownEntry{}
	for _, b := range breakdown {
		factors[b.Factor] = b
	}
	if e := factors["severity:critical"]; e.Count != 1 || e.Points != 25 {
		t.Errorf("unexpected critical entry: %+v", e)
	}
	if e := factors["severity:high"]; e.Count != 2 || e.Points != 20 {
		t.Errorf("unexpected high entry: %+v", e)
	}
	if _, ok := factors["severity:info"]; ok {
		t.Error("zero-weight info should not appear in the breakdown")
	}
}

func TestScore_ClampedUnderMassiveFindings(t *testing.T) {
	findings := make([]Finding, 10000)
	for i := range findings {
		findings[i] = Finding{Severity: SeverityCritical}
	}
	score, breakdown := Score(findings, ChangeSignals{TouchesCI: true, TouchesManifests: true}, RepoFacts{}, testWeights, testModifiers)
	if score != 100 {
		t.Fatalf("expected score clamped to 100, got %d", score)
	}
	found := false
	for _, b := range breakdown {
		if b.Factor == "base_cap" {
			found = true
		}
	}
	if !found {
		t.Error("expected base_cap entry in breakdown")
	}
}

func TestScore_Modifiers(t *testing.T) {
	findings := []Finding{{Severity: SeverityMedium}}
	score, _ := Score(findings, ChangeSignals{TouchesCI: true, TouchesManifests: true}, RepoFacts{}, testWeights, testModifiers)
	if score != 3+5+5 {
		t.Fatalf("expected 13, got %d", score)
	}
}

func TestScore_CleanWithTests(t *testing.T) {
	score, breakdown := Score(nil, ChangeSignals{}, RepoFacts{HasTests: true}, testWeights, testModifiers)
	if score != 0 {
		t.Fatalf("score must clamp at 0, got %d", score)
	}
	var modifier, clamp bool
	for _, b := range breakdown {
		switch b.Factor {
		case "modifier:clean_with_tests":
			modifier = true
		case "clamp":
			clamp = true
		}
	}
	if !modifier || !clamp {
		t.Errorf("expected modifier and clamp entries, got %+v", breakdown)
	}

	// The bonus does not apply when findings exist.
	score, _ = Score([]Finding{{Severity: SeverityLow}}, ChangeSignals{}, RepoFacts{HasTests: true}, testWeights, testModifiers)
	if score != 1 {
		t.Fatalf("expected 1, got %d", score)
	}
}

func TestScore_ZeroFindingsZeroScore(t *testing.T) {
	score, breakdown := Score(nil, ChangeSignals{}, RepoFacts{}, testWeights, testModifiers)
	if score != 0 {
		t.Fatalf("expected 0, got %d", score)
	}
	if len(breakdown) != 0 {
		t.Fatalf("expected empty breakdown, got %+v", breakdown)
	}
}

func TestLevelForScore(t *testing.T) {
	cases := []struct {
		score int
		want  RiskLevel
	}{
		{0, RiskLow}, {29, RiskLow}, {30, RiskMedium}, {59, RiskMedium}, {60, RiskHigh}, {100, RiskHigh},
	}
	for _, tc := range cases {
		if got := LevelForScore(tc.score); got != tc.want {
			t.Errorf("LevelForScore(%d) = %s, want %s", tc.score, got, tc.want)
		}
	}
}

func TestMessageSimilarity(t *testing.T) {
	if s := messageSimilarity("Unused import os", "unused  import os"); s != 1.0 {
		t.Errorf("normalized-equal messages should score 1.0, got %f", s)
	}
	if s := messageSimilarity("completely different", "nothing alike here at all"); s >= 0.82 {
		t.Errorf("dissimilar messages scored %f", s)
	}
}
