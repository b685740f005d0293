/*
Copyright © 2025 GenOps HQ <dev@genopshq.io>
*/
package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/genopshq/guardian/internal/analysis"
	"github.com/genopshq/guardian/pkg/logger"
)

// GitHubSink posts the result as two PR comments: a health summary and
// a risk review. With enforcement enabled it additionally flags
// high-risk PRs; actually closing the PR stays with the CI glue.
type GitHubSink struct {
	BaseURL  string // default https://api.github.com
	Token    string
	Repo     string // owner/name
	PRNumber int
	Enforce  bool
	Client   *http.Client
}

// NewGitHubSink builds a sink for one pull request.
func NewGitHubSink(token, repo string, prNumber int, enforce bool) *GitHubSink {
	return &GitHubSink{
		BaseURL:  "https://api.github.com",
		Token:    token,
		Repo:     repo,
		PRNumber: prNumber,
		Enforce:  enforce,
		Client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Name implements Sink.
func (s *GitHubSink) Name() string { return "github" }

// Deliver implements Sink.
func (s *GitHubSink) Deliver(ctx context.Context, result *analysis.AggregateResult) error {
	health, err := analysis.RenderHealthComment(result)
	if err != nil {
		return &analysis.SinkError{Sink: s.Name(), Err: fmt.Errorf("render health comment: %w", err)}
	}
	risk, err := analysis.RenderRiskComment(result)
	if err != nil {
		return &analysis.SinkError{Sink: s.Name(), Err: fmt.Errorf("render risk comment: %w", err)}
	}

	for _, body := range []string{health, risk} {
		if err := s.postComment(ctx, body); err != nil {
			return &analysis.SinkError{Sink: s.Name(), Err: err}
		}
	}

	if s.Enforce && result.RiskLevel == analysis.RiskHigh {
		blocked := fmt.Sprintf("PR flagged by guardian: high risk detected (score %d). Merging is blocked by policy.", result.RiskScore)
		if err := s.postComment(ctx, blocked); err != nil {
			return &analysis.SinkError{Sink: s.Name(), Err: err}
		}
		logger.Warn("high-risk PR flagged", logger.Int("pr", s.PRNumber), logger.Int("score", result.RiskScore))
	}
	return nil
}

func (s *GitHubSink) postComment(ctx context.Context, body string) error {
	payload, err := json.Marshal(map[string]string{"body": body})
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/repos/%s/issues/%d/comments", s.BaseURL, s.Repo, s.PRNumber)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.Token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("github comment failed: %s: %s", resp.Status, bytes.TrimSpace(msg))
	}
	return nil
}
