/*
Copyright © 2025 GenOps HQ <dev@genopshq.io>
*/
package analysis

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/genopshq/guardian/pkg/buildinfo"
	"github.com/genopshq/guardian/pkg/logger"
)

// Phase is one step of the run state machine.
type Phase string

const (
	PhaseDetecting   Phase = "detecting"
	PhaseScheduling  Phase = "scheduling"
	PhaseRunning     Phase = "running"
	PhaseNormalizing Phase = "normalizing"
	PhaseAggregating Phase = "aggregating"
	PhaseReporting   Phase = "reporting"
	PhaseDone        Phase = "done"
	PhaseAborted     Phase = "aborted"
)

// Options configures one engine run.
type Options struct {
	Target       string
	Mode         RunMode
	ChangedFiles []string // PR mode: files touched by the change
	AddedLines   int      // PR mode: added-line count from the diff
	Semgrep      bool
	RunTimeout   time.Duration
	Runner       RunnerOptions
	Dedup        DedupOptions
	Weights      ScoreWeights
	Modifiers    ScoreModifiers
}

// Engine drives one analysis run through the pipeline:
// detect → schedule → run → normalize → aggregate → report.
// Only the detection phase can abort; every later phase degrades
// per-invocation and the caller always receives a result.
type Engine struct {
	registry *Registry
	runner   *Runner
	opts     Options
}

// NewEngine wires a run from its options.
func NewEngine(opts Options) *Engine {
	registry := NewRegistry(opts.Semgrep)
	return &Engine{
		registry: registry,
		runner:   NewRunner(registry, opts.Runner),
		opts:     opts,
	}
}

// Run executes the full pipeline. The returned result is non-nil even
// on abort so the caller always has a status to deliver.
func (e *Engine) Run(ctx context.Context) (*AggregateResult, error) {
	start := time.Now()
	meta := Metadata{
		RunID:       uuid.NewString(),
		GeneratedAt: start,
		Version:     buildinfo.BinaryVersion,
		Target:      e.opts.Target,
		Mode:        e.opts.Mode,
	}
	logger.Info("run starting",
		logger.String("run_id", meta.RunID),
		logger.String("target", e.opts.Target),
		logger.String("mode", string(e.opts.Mode)))

	e.phase(PhaseDetecting)
	ecosystems, facts, err := Detect(e.opts.Target)
	if err != nil {
		e.phase(PhaseAborted)
		meta.ExecutionTime = time.Since(start)
		return &AggregateResult{
			Metadata:  meta,
			Status:    RunAborted,
			RiskLevel: RiskLow,
			Findings:  []Finding{},
		}, err
	}
	logger.Info("ecosystems detected", logger.Int("count", len(ecosystems)))

	e.phase(PhaseScheduling)
	specs := e.registry.SpecsFor(ecosystems)
	invocations := e.runner.Schedule(specs, e.opts.Target)

	e.phase(PhaseRunning)
	rctx := ctx
	if e.opts.RunTimeout > 0 {
		var cancel context.CancelFunc
		rctx, cancel = context.WithTimeout(ctx, e.opts.RunTimeout)
		defer cancel()
	}
	executions := e.runner.Run(rctx, invocations)

	e.phase(PhaseNormalizing)
	var findings []Finding
	statuses := make([]ToolStatus, 0, len(executions))
	for _, ex := range executions {
		findings = append(findings, Normalize(ex)...)
		statuses = append(statuses, ToolStatus{
			Tool:     ex.Spec.Tool,
			Status:   ex.Status,
			Duration: ex.Duration,
			Detail:   ex.Err,
		})
	}

	e.phase(PhaseAggregating)
	deduped := Dedup(findings, e.opts.Dedup)
	signals := Signals(e.opts.ChangedFiles, e.opts.AddedLines)
	score, breakdown := Score(deduped, signals, facts, e.opts.Weights, e.opts.Modifiers)

	e.phase(PhaseReporting)
	meta.ExecutionTime = time.Since(start)
	result := BuildResult(meta, deduped, breakdown, statuses, ecosystems, score)

	e.phase(PhaseDone)
	logger.Info("run finished",
		logger.String("status", string(result.Status)),
		logger.Int("findings", len(result.Findings)),
		logger.Int("risk_score", result.RiskScore),
		logger.Duration("took", meta.ExecutionTime))
	return result, nil
}

func (e *Engine) phase(p Phase) {
	logger.Debug("phase transition", logger.String("phase", string(p)))
}
