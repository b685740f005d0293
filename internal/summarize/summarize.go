/*
Copyright © 2025 GenOps HQ <dev@genopshq.io>
*/
package summarize

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	openai "github.com/sashabaranov/go-openai"

	"github.com/genopshq/guardian/internal/analysis"
	"github.com/genopshq/guardian/pkg/logger"
)

// Summarizer turns a structured result into free-text summary and
// detail. Implementations may call external services; failures must be
// absorbed by the caller via Placeholder, never crash the run.
type Summarizer interface {
	Summarize(ctx context.Context, result *analysis.AggregateResult, mode analysis.RunMode) (summary, detail string, err error)
}

// Placeholder is the fallback text used when the summarizer is
// unavailable. The structured result is always delivered regardless.
func Placeholder(result *analysis.AggregateResult) (string, string) {
	summary := fmt.Sprintf("Analysis completed: %d finding(s), risk score %d (%s).",
		len(result.Findings), result.RiskScore, result.RiskLevel)
	detail := summary + " Automated summarization was unavailable for this run."
	return summary, detail
}

// OpenAI implements Summarizer against the OpenAI chat completions API.
type OpenAI struct {
	client   *openai.Client
	model    string
	maxChars int
}

// NewOpenAI builds the collaborator from config. Returns an error when
// the API key env var is unset so callers can fall back up front.
func NewOpenAI(model, apiKeyEnv string, maxChars int) (*OpenAI, error) {
	key := os.Getenv(apiKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("%w: %s not set", analysis.ErrSummarizerUnavailable, apiKeyEnv)
	}
	if maxChars <= 0 {
		maxChars = 1500
	}
	return &OpenAI{client: openai.NewClient(key), model: model, maxChars: maxChars}, nil
}

// Summarize implements Summarizer.
func (o *OpenAI) Summarize(ctx context.Context, result *analysis.AggregateResult, mode analysis.RunMode) (string, string, error) {
	prompt := o.buildPrompt(result, mode)
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: 0.1,
		MaxTokens:   2000,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		logger.Warn("summarizer call failed", logger.Err(err))
		return "", "", fmt.Errorf("%w: %v", analysis.ErrSummarizerUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return "", "", fmt.Errorf("%w: empty response", analysis.ErrSummarizerUnavailable)
	}
	detail := resp.Choices[0].Message.Content
	summary := headLines(detail, 8)
	return summary, detail, nil
}

// buildPrompt compacts the result the way the original reviewer prompt
// did: per-tool truncation so one noisy analyzer cannot crowd out the rest.
func (o *OpenAI) buildPrompt(result *analysis.AggregateResult, mode analysis.RunMode) string {
	var b strings.Builder
	b.WriteString("You are a senior staff engineer and security reviewer.\n\n")
	b.WriteString("Produce: 1) a repository health summary, 2) prioritized actionable items ")
	b.WriteString("(critical/high/medium/low), 3) remediation guidance with snippets, not full files.\n\n")
	fmt.Fprintf(&b, "Run mode: %s. Risk score: %d (%s).\n\n", mode, result.RiskScore, result.RiskLevel)

	perTool := make(map[string][]string)
	for _, f := range result.Findings {
		line := fmt.Sprintf("[%s] %s:%d %s", f.Severity, f.File, f.Line, f.Message)
		perTool[f.Tool] = append(perTool[f.Tool], line)
	}
	b.WriteString("Analyzer findings (truncated per tool):\n")
	for tool, lines := range perTool {
		joined := strings.Join(lines, "\n")
		if len(joined) > o.maxChars {
			joined = truncateRunes(joined, o.maxChars)
		}
		fmt.Fprintf(&b, "\n## %s\n%s\n", tool, joined)
	}
	for _, ts := range result.ToolStatus {
		if ts.Status != analysis.ExecSuccess {
			fmt.Fprintf(&b, "\nTool %s did not complete (%s).", ts.Tool, ts.Status)
		}
	}
	return b.String()
}

// truncateRunes cuts s to at most max bytes without splitting a rune.
func truncateRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func headLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	return strings.Join(lines, "\n")
}
