/*
Copyright © 2025 GenOps HQ <dev@genopshq.io>
*/
package analysis

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// DedupOptions tunes duplicate detection across tools.
type DedupOptions struct {
	LineTolerance int
	Similarity    float64
}

// ScoreWeights maps severity counts to points.
type ScoreWeights struct {
	Critical int
	High     int
	Medium   int
	Low      int
	Info     int
}

// ScoreModifiers are the bounded contextual deltas.
type ScoreModifiers struct {
	CIChanges       int
	ManifestChanges int
	CleanWithTests  int
}

// SortFindings orders findings deterministically by
// (file, line, severity desc, tool) for stable output.
func SortFindings(findings []Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Severity.Rank() != b.Severity.Rank() {
			return a.Severity.Rank() > b.Severity.Rank()
		}
		return a.Tool < b.Tool
	})
}

// Dedup merges findings that refer to the same underlying issue: same
// file, lines within tolerance, and message similarity at or above the
// threshold. The higher-severity finding survives and records the other
// tool as corroborating. The operation is idempotent.
func Dedup(findings []Finding, opts DedupOptions) []Finding {
	if len(findings) < 2 {
		out := make([]Finding, len(findings))
		copy(out, findings)
		SortFindings(out)
		return out
	}

	// Process per file, highest severity first, so the survivor of any
	// duplicate pair is always the one already kept.
	work := make([]Finding, len(findings))
	copy(work, findings)
	sort.SliceStable(work, func(i, j int) bool {
		a, b := work[i], work[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Severity.Rank() != b.Severity.Rank() {
			return a.Severity.Rank() > b.Severity.Rank()
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Tool < b.Tool
	})

	var kept []Finding
	for _, f := range work {
		merged := false
		for i := range kept {
			k := &kept[i]
			if !sameIssue(*k, f, opts) {
				continue
			}
			if f.Tool != k.Tool && !contains(k.CorroboratedBy, f.Tool) {
				k.CorroboratedBy = append(k.CorroboratedBy, f.Tool)
				sort.Strings(k.CorroboratedBy)
			}
			merged = true
			break
		}
		if !merged {
			kept = append(kept, f)
		}
	}

	SortFindings(kept)
	return kept
}

// sameIssue applies the duplicate criteria. Raw findings never merge:
// they are whole-output blobs, not issue-level records.
func sameIssue(a, b Finding, opts DedupOptions) bool {
	if a.Raw || b.Raw {
		return false
	}
	if a.File == "" || a.File != b.File {
		return false
	}
	if abs(a.Line-b.Line) > opts.LineTolerance {
		return false
	}
	if a.Tool == b.Tool && a.Line == b.Line && a.Rule == b.Rule && a.Message == b.Message {
		// Exact re-run of an already-deduplicated finding
		return true
	}
	return messageSimilarity(a.Message, b.Message) >= opts.Similarity
}

var whitespaceRe = regexp.MustCompile(`\s+`)

func normalizeMessage(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return whitespaceRe.ReplaceAllString(s, " ")
}

// messageSimilarity returns 1 - editDistance/maxLen over normalized text.
func messageSimilarity(a, b string) float64 {
	na, nb := normalizeMessage(a), normalizeMessage(b)
	if na == nb {
		return 1.0
	}
	longest := len(na)
	if len(nb) > longest {
		longest = len(nb)
	}
	if longest == 0 {
		return 1.0
	}
	dist := levenshtein.ComputeDistance(na, nb)
	return 1.0 - float64(dist)/float64(longest)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

// Score computes the clamped 0-100 risk score and its auditable
// breakdown from deduplicated findings and contextual signals.
// The base score is monotonically non-decreasing in severity counts.
func Score(findings []Finding, signals ChangeSignals, facts RepoFacts, weights ScoreWeights, modifiers ScoreModifiers) (int, []BreakdownEntry) {
	counts := map[Severity]int{}
	for _, f := range findings {
		counts[f.Severity]++
	}

	var breakdown []BreakdownEntry
	base := 0
	addSeverity := func(sev Severity, weight int) {
		n := counts[sev]
		if n == 0 {
			return
		}
		points := n * weight
		base += points
		breakdown = append(breakdown, BreakdownEntry{
			Factor: fmt.Sprintf("severity:%s", sev),
			Count:  n,
			Points: points,
		})
	}
	addSeverity(SeverityCritical, weights.Critical)
	addSeverity(SeverityHigh, weights.High)
	addSeverity(SeverityMedium, weights.Medium)
	addSeverity(SeverityLow, weights.Low)
	addSeverity(SeverityInfo, weights.Info)

	if base > 100 {
		breakdown = append(breakdown, BreakdownEntry{Factor: "base_cap", Points: 100 - base})
		base = 100
	}

	score := base
	addModifier := func(factor string, points int) {
		if points == 0 {
			return
		}
		score += points
		breakdown = append(breakdown, BreakdownEntry{Factor: factor, Points: points})
	}
	if signals.TouchesCI {
		addModifier("modifier:ci_changes", modifiers.CIChanges)
	}
	if signals.TouchesManifests {
		addModifier("modifier:manifest_changes", modifiers.ManifestChanges)
	}
	if len(findings) == 0 && facts.HasTests {
		addModifier("modifier:clean_with_tests", modifiers.CleanWithTests)
	}

	if score > 100 {
		breakdown = append(breakdown, BreakdownEntry{Factor: "clamp", Points: 100 - score})
		score = 100
	}
	if score < 0 {
		breakdown = append(breakdown, BreakdownEntry{Factor: "clamp", Points: -score})
		score = 0
	}
	return score, breakdown
}
