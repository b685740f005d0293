/*
Copyright © 2025 GenOps HQ <dev@genopshq.io>
*/
package analysis

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/genopshq/guardian/pkg/logger"
)

// RunnerOptions controls analyzer execution.
type RunnerOptions struct {
	// If Concurrency > 0 it is used directly. Otherwise ConcurrencyPercent
	// sizes the pool as a percentage of CPU cores (<=0 defaults to 50).
	Concurrency        int
	ConcurrencyPercent int
	// DefaultTimeout applies to invocations whose spec carries none.
	DefaultTimeout time.Duration
}

// Workers resolves the effective worker count.
func (o RunnerOptions) Workers() int {
	if o.Concurrency > 0 {
		return o.Concurrency
	}
	percent := o.ConcurrencyPercent
	if percent <= 0 {
		percent = 50
	}
	workers := (runtime.NumCPU() * percent) / 100
	if workers < 1 {
		workers = 1
	}
	return workers
}

// Runner executes invocations concurrently with bounded parallelism.
// It only reads the scanned repository; analyzer scratch output goes
// to each tool's own temp space, never back into the tree.
type Runner struct {
	registry *Registry
	opts     RunnerOptions
}

// NewRunner creates a runner backed by the given registry.
func NewRunner(registry *Registry, opts RunnerOptions) *Runner {
	return &Runner{registry: registry, opts: opts}
}

// Schedule binds specs to the repository root, producing invocations.
func (r *Runner) Schedule(specs []AnalyzerSpec, root string) []Invocation {
	invocations := make([]Invocation, 0, len(specs))
	for _, spec := range specs {
		bound := spec
		bound.Args = expandArgs(spec.Args, root)
		invocations = append(invocations, Invocation{Spec: bound, WorkDir: root})
	}
	return invocations
}

func expandArgs(args []string, root string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = strings.ReplaceAll(a, "{root}", root)
	}
	return out
}

// Run executes all invocations and returns one Execution per invocation.
// Collection order is unspecified; findings are sorted downstream.
// Cancelling ctx terminates still-running analyzers; completed results
// are preserved.
func (r *Runner) Run(ctx context.Context, invocations []Invocation) []Execution {
	workers := r.opts.Workers()
	logger.Info("executing analyzers",
		logger.Int("invocations", len(invocations)),
		logger.Int("workers", workers))

	var mu sync.Mutex
	executions := make([]Execution, 0, len(invocations))
	collect := func(ex Execution) {
		mu.Lock()
		executions = append(executions, ex)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, inv := range invocations {
		inv := inv
		g.Go(func() error {
			collect(r.runOne(gctx, inv))
			return nil
		})
	}
	// Workers never return errors; failures are recorded per execution
	_ = g.Wait()
	return executions
}

// runOne executes a single invocation and classifies its outcome.
func (r *Runner) runOne(ctx context.Context, inv Invocation) Execution {
	spec := inv.Spec
	start := time.Now()

	if !r.registry.Available(spec) {
		logger.Warn("analyzer not installed, skipping", logger.String("tool", spec.Tool))
		return Execution{Spec: spec, Status: ExecSkipped, Err: ErrToolUnavailable.Error()}
	}

	timeout := spec.Timeout
	if timeout <= 0 {
		timeout = r.opts.DefaultTimeout
	}
	rctx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		rctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(rctx, spec.Command, spec.Args...) // #nosec G204 -- commands come from the static registry
	cmd.Dir = inv.WorkDir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	duration := time.Since(start)

	if rctx.Err() != nil {
		// Timed out or cancelled: partial output is unusable and must
		// never reach the normalizer as if it were complete.
		logger.Warn("analyzer timed out", logger.String("tool", spec.Tool), logger.Duration("after", duration))
		return Execution{Spec: spec, Status: ExecTimeout, Duration: duration, Err: rctx.Err().Error()}
	}

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			// Spawn failure after LookPath succeeded (permissions, etc.)
			logger.Warn("analyzer failed to start", logger.String("tool", spec.Tool), logger.Err(err))
			return Execution{Spec: spec, Status: ExecSkipped, Duration: duration, Err: err.Error()}
		}
	}

	// Tools like go vet report on stderr; the spec names the stream
	// that carries diagnostics.
	out := stdout.Bytes()
	if spec.StderrOutput {
		out = stderr.Bytes()
	}
	if exitCode != 0 && len(bytes.TrimSpace(out)) == 0 {
		// Crash: nonzero exit with nothing parseable. Output discarded.
		logger.Warn("analyzer crashed without output",
			logger.String("tool", spec.Tool), logger.Int("exit", exitCode))
		return Execution{
			Spec: spec, Status: ExecError, ExitCode: exitCode, Duration: duration,
			Err: firstLine(stderr.String()),
		}
	}

	// Most analyzers exit nonzero when findings exist; that is not a
	// pipeline failure, so the output proceeds to normalization.
	logger.Debug("analyzer finished",
		logger.String("tool", spec.Tool),
		logger.Int("exit", exitCode),
		logger.Duration("took", duration))
	return Execution{
		Spec: spec, Status: ExecSuccess, Stdout: out, Stderr: stderr.Bytes(),
		ExitCode: exitCode, Duration: duration,
	}
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
