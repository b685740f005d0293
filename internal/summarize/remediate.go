/*
Copyright © 2025 GenOps HQ <dev@genopshq.io>
*/
package summarize

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/genopshq/guardian/internal/analysis"
	"github.com/genopshq/guardian/pkg/logger"
)

// remediationLimit caps how many findings are sent for suggestions so
// one noisy run cannot blow up the prompt.
const remediationLimit = 10

// Remediate asks the model for concrete fix suggestions for the most
// severe findings. An empty finding set yields no suggestions and no
// API call. Failures are reported so the caller can skip the artifact;
// the structured result is unaffected either way.
func (o *OpenAI) Remediate(ctx context.Context, result *analysis.AggregateResult) ([]analysis.Remediation, error) {
	targets := remediationTargets(result.Findings, remediationLimit)
	if len(targets) == 0 {
		return nil, nil
	}
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: 0.1,
		MaxTokens:   2000,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: buildRemediationPrompt(targets)},
		},
	})
	if err != nil {
		logger.Warn("remediation call failed", logger.Err(err))
		return nil, fmt.Errorf("%w: %v", analysis.ErrSummarizerUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty response", analysis.ErrSummarizerUnavailable)
	}
	return decodeRemediations([]byte(resp.Choices[0].Message.Content))
}

// remediationTargets picks the n most severe parsed findings. Raw
// findings carry no location or rule, so there is nothing to suggest.
func remediationTargets(findings []analysis.Finding, n int) []analysis.Finding {
	var targets []analysis.Finding
	for _, f := range findings {
		if f.Raw {
			continue
		}
		targets = append(targets, f)
	}
	sort.SliceStable(targets, func(i, j int) bool {
		return targets[i].Severity.Rank() > targets[j].Severity.Rank()
	})
	if len(targets) > n {
		targets = targets[:n]
	}
	return targets
}

func buildRemediationPrompt(targets []analysis.Finding) string {
	var b strings.Builder
	b.WriteString("You are a senior staff engineer. For each finding below, suggest one concrete fix.\n")
	b.WriteString("Respond with ONLY a JSON array; each element has the keys ")
	b.WriteString(`"tool", "file", "line", "rule", "suggestion".` + "\n\nFindings:\n")
	for _, f := range targets {
		fmt.Fprintf(&b, "- [%s] tool=%s file=%s line=%d rule=%s: %s\n",
			f.Severity, f.Tool, f.File, f.Line, f.Rule, f.Message)
	}
	return b.String()
}

// decodeRemediations parses the model response, tolerating markdown
// code fences around the JSON payload.
func decodeRemediations(data []byte) ([]analysis.Remediation, error) {
	text := strings.TrimSpace(string(data))
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	var out []analysis.Remediation
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &out); err != nil {
		return nil, fmt.Errorf("%w: unparseable remediation response: %v", analysis.ErrSummarizerUnavailable, err)
	}
	return out, nil
}
