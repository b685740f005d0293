/*
Copyright © 2025 GenOps HQ <dev@genopshq.io>
*/
package sink

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/genopshq/guardian/internal/analysis"
	"github.com/genopshq/guardian/pkg/logger"
)

// Artifact file names, kept bit-compatible with the original action.
const (
	SummaryFile     = "universal_agent.txt"
	GuardianFile    = "genops_guardian.json"
	FindingsFile    = "analyzer_findings.md"
	RemediationFile = "remediation_suggestions.json"
	BundleFile      = "guardian_artifacts.tar.gz"
)

// FileSink persists the run artifacts under a directory.
type FileSink struct {
	Dir    string
	Bundle bool
}

// NewFileSink creates a file sink writing into dir.
func NewFileSink(dir string, bundle bool) *FileSink {
	return &FileSink{Dir: dir, Bundle: bundle}
}

// Name implements Sink.
func (s *FileSink) Name() string { return "file" }

// Deliver implements Sink. It writes the text summary, the persisted
// JSON report, the findings table, and optionally a tar.gz bundle.
func (s *FileSink) Deliver(_ context.Context, result *analysis.AggregateResult) error {
	if err := os.MkdirAll(s.Dir, 0o750); err != nil {
		return &analysis.SinkError{Sink: s.Name(), Err: err}
	}

	text := result.Detail
	if text == "" {
		text = result.Summary
	}
	files := map[string][]byte{
		SummaryFile: []byte(text),
	}

	guardianJSON, err := analysis.EncodeGuardianJSON(result)
	if err != nil {
		return &analysis.SinkError{Sink: s.Name(), Err: err}
	}
	files[GuardianFile] = guardianJSON

	if table, err := analysis.RenderFindingsTable(result); err == nil {
		files[FindingsFile] = []byte(table)
	} else {
		logger.Warn("findings table rendering failed", logger.Err(err))
	}

	if len(result.Remediations) > 0 {
		data, err := json.MarshalIndent(result.Remediations, "", "  ")
		if err != nil {
			return &analysis.SinkError{Sink: s.Name(), Err: fmt.Errorf("encode remediations: %w", err)}
		}
		files[RemediationFile] = data
	}

	for name, data := range files {
		path := filepath.Join(s.Dir, name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return &analysis.SinkError{Sink: s.Name(), Err: fmt.Errorf("write %s: %w", name, err)}
		}
	}

	if s.Bundle {
		if err := writeBundle(filepath.Join(s.Dir, BundleFile), files); err != nil {
			return &analysis.SinkError{Sink: s.Name(), Err: err}
		}
	}
	logger.Info("artifacts written", logger.String("dir", s.Dir), logger.Int("files", len(files)))
	return nil
}

// writeBundle packs the artifact files into a tar.gz for upload.
func writeBundle(path string, files map[string][]byte) error {
	f, err := os.Create(path) // #nosec G304 -- path is built from the configured output dir
	if err != nil {
		return fmt.Errorf("create bundle: %w", err)
	}
	defer func() { _ = f.Close() }()

	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)
	now := time.Now()
	for name, data := range files {
		hdr := &tar.Header{
			Name:    name,
			Mode:    0o644,
			Size:    int64(len(data)),
			ModTime: now,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return fmt.Errorf("bundle header %s: %w", name, err)
		}
		if _, err := tw.Write(data); err != nil {
			return fmt.Errorf("bundle write %s: %w", name, err)
		}
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("close tar: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("close gzip: %w", err)
	}
	return nil
}
