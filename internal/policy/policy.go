/*
Copyright © 2025 GenOps HQ <dev@genopshq.io>
*/
package policy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/genopshq/guardian/internal/analysis"
)

// Rule caps the number of findings a single tool may report.
type Rule struct {
	Threshold int `yaml:"threshold"`
}

// Policy maps ecosystem tag → tool name → rule.
type Policy map[string]map[string]Rule

// Violation records one tool exceeding its threshold.
type Violation struct {
	Tool      string `json:"tool"`
	Findings  int    `json:"findings"`
	Threshold int    `json:"threshold"`
}

// Compliance is the evaluation outcome attached to the detailed payload.
type Compliance struct {
	OverallStatus string      `json:"overall_status"` // PASS | FAIL
	Violations    []Violation `json:"violations"`
	RiskLevel     string      `json:"risk_level"`
}

// Load reads a policy file. A missing path yields an empty policy, not
// an error: policies are opt-in.
func Load(path string) (Policy, error) {
	if path == "" {
		return Policy{}, nil
	}
	data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied policy path
	if err != nil {
		if os.IsNotExist(err) {
			return Policy{}, nil
		}
		return nil, fmt.Errorf("read policy: %w", err)
	}
	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse policy: %w", err)
	}
	if p == nil {
		p = Policy{}
	}
	return p, nil
}

// Evaluate checks per-tool finding counts against the policy thresholds.
func (p Policy) Evaluate(result *analysis.AggregateResult) Compliance {
	compliance := Compliance{
		OverallStatus: "PASS",
		RiskLevel:     string(result.RiskLevel),
	}

	perTool := make(map[string]int)
	for _, f := range result.Findings {
		perTool[f.Tool]++
		for _, other := range f.CorroboratedBy {
			perTool[other]++
		}
	}

	for _, tools := range p {
		for tool, rule := range tools {
			n, ok := perTool[tool]
			if !ok {
				continue
			}
			if n > rule.Threshold {
				compliance.OverallStatus = "FAIL"
				compliance.Violations = append(compliance.Violations, Violation{
					Tool:      tool,
					Findings:  n,
					Threshold: rule.Threshold,
				})
			}
		}
	}
	return compliance
}
