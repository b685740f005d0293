package analysis

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestRunner(opts RunnerOptions, installed ...string) *Runner {
	reg := NewRegistry(false)
	if len(installed) > 0 {
		reg.lookPath = fakeLookPath(installed...)
	}
	return NewRunner(reg, opts)
}

func findExecution(t *testing.T, executions []Execution, tool string) Execution {
	t.Helper()
	for _, ex := range executions {
		if ex.Spec.Tool == tool {
			return ex
		}
	}
	t.Fatalf("no execution for %s", tool)
	return Execution{}
}

func TestRunner_ScheduleExpandsRoot(t *testing.T) {
	r := newTestRunner(RunnerOptions{})
	specs := []AnalyzerSpec{
		{Tool: "trivy", Command: "trivy", Args: []string{"config", "{root}"}},
	}
	invocations := r.Schedule(specs, "/repo")
	if len(invocations) != 1 {
		t.Fatalf("expected 1 invocation, got %d", len(invocations))
	}
	if got := invocations[0].Spec.Args[1]; got != "/repo" {
		t.Errorf("expected {root} expanded to /repo, got %s", got)
	}
	if invocations[0].WorkDir != "/repo" {
		t.Errorf("expected workdir /repo, got %s", invocations[0].WorkDir)
	}
}

func TestRunner_SuccessCapturesOutput(t *testing.T) {
	r := newTestRunner(RunnerOptions{Concurrency: 2}, "sh")
	invocations := []Invocation{{
		Spec:    AnalyzerSpec{Tool: "fake", Command: "sh", Args: []string{"-c", "echo '[]'"}},
		WorkDir: t.TempDir(),
	}}
	executions := r.Run(context.Background(), invocations)
	ex := findExecution(t, executions, "fake")
	if ex.Status != ExecSuccess {
		t.Fatalf("expected success, got %s (%s)", ex.Status, ex.Err)
	}
	if string(ex.Stdout) != "[]\n" {
		t.Errorf("expected stdout captured, got %q", ex.Stdout)
	}
}

func TestRunner_NonzeroExitWithOutputIsSuccess(t *testing.T) {
	// Analyzers exit nonzero when findings exist; output must survive.
	r := newTestRunner(RunnerOptions{Concurrency: 1}, "sh")
	invocations := []Invocation{{
		Spec:    AnalyzerSpec{Tool: "fake", Command: "sh", Args: []string{"-c", "echo findings; exit 1"}},
		WorkDir: t.TempDir(),
	}}
	ex := findExecution(t, r.Run(context.Background(), invocations), "fake")
	if ex.Status != ExecSuccess {
		t.Fatalf("expected success, got %s", ex.Status)
	}
	if ex.ExitCode != 1 {
		t.Errorf("expected exit code 1, got %d", ex.ExitCode)
	}
	if len(ex.Stdout) == 0 {
		t.Error("expected stdout preserved")
	}
}

func TestRunner_CrashWithoutOutputIsError(t *testing.T) {
	r := newTestRunner(RunnerOptions{Concurrency: 1}, "sh")
	invocations := []Invocation{{
		Spec:    AnalyzerSpec{Tool: "fake", Command: "sh", Args: []string{"-c", "echo boom >&2; exit 2"}},
		WorkDir: t.TempDir(),
	}}
	ex := findExecution(t, r.Run(context.Background(), invocations), "fake")
	if ex.Status != ExecError {
		t.Fatalf("expected error status, got %s", ex.Status)
	}
	if ex.ExitCode != 2 {
		t.Errorf("expected exit code 2, got %d", ex.ExitCode)
	}
	if ex.Err != "boom" {
		t.Errorf("expected stderr first line recorded, got %q", ex.Err)
	}
}

func TestRunner_StderrDiagnosticsReachNormalizer(t *testing.T) {
	// go vet reports on stderr with a nonzero exit; that output is
	// diagnostics, not a crash.
	r := newTestRunner(RunnerOptions{Concurrency: 1}, "sh")
	invocations := []Invocation{{
		Spec: AnalyzerSpec{
			Tool: "govet", Command: "sh",
			Args:         []string{"-c", "echo 'main.go:3:2: unreachable code' >&2; exit 1"},
			Format:       FormatGCCLines,
			StderrOutput: true,
		},
		WorkDir: t.TempDir(),
	}}
	ex := findExecution(t, r.Run(context.Background(), invocations), "govet")
	if ex.Status != ExecSuccess {
		t.Fatalf("expected success, got %s (%s)", ex.Status, ex.Err)
	}
	findings := Normalize(ex)
	if len(findings) != 1 {
		t.Fatalf("expected 1 finding from stderr diagnostics, got %d", len(findings))
	}
	if f := findings[0]; f.File != "main.go" || f.Line != 3 || f.Raw {
		t.Errorf("unexpected finding: %+v", f)
	}
}

func TestRunner_StderrToolCrashWithoutOutputIsError(t *testing.T) {
	r := newTestRunner(RunnerOptions{Concurrency: 1}, "sh")
	invocations := []Invocation{{
		Spec:    AnalyzerSpec{Tool: "govet", Command: "sh", Args: []string{"-c", "exit 2"}, StderrOutput: true},
		WorkDir: t.TempDir(),
	}}
	ex := findExecution(t, r.Run(context.Background(), invocations), "govet")
	if ex.Status != ExecError {
		t.Fatalf("expected error status, got %s", ex.Status)
	}
}

func TestRunner_MissingBinarySkipped(t *testing.T) {
	r := newTestRunner(RunnerOptions{Concurrency: 1}, "sh")
	invocations := []Invocation{{
		Spec:    AnalyzerSpec{Tool: "ghost", Command: "definitely-not-installed"},
		WorkDir: t.TempDir(),
	}}
	ex := findExecution(t, r.Run(context.Background(), invocations), "ghost")
	if ex.Status != ExecSkipped {
		t.Fatalf("expected skipped, got %s", ex.Status)
	}
}

func TestRunner_TimeoutDiscardsOutput(t *testing.T) {
	r := newTestRunner(RunnerOptions{Concurrency: 1}, "sh")
	invocations := []Invocation{{
		Spec: AnalyzerSpec{
			Tool: "slow", Command: "sh",
			Args:    []string{"-c", "echo partial; sleep 5"},
			Timeout: 100 * time.Millisecond,
		},
		WorkDir: t.TempDir(),
	}}
	ex := findExecution(t, r.Run(context.Background(), invocations), "slow")
	if ex.Status != ExecTimeout {
		t.Fatalf("expected timeout, got %s", ex.Status)
	}
	if len(ex.Stdout) != 0 {
		t.Errorf("timed-out execution must carry no output, got %q", ex.Stdout)
	}
}

func TestRunner_OneExecutionPerInvocation(t *testing.T) {
	r := newTestRunner(RunnerOptions{Concurrency: 4}, "sh")
	dir := t.TempDir()
	var invocations []Invocation
	for _, tool := range []string{"a", "b", "c", "d", "e"} {
		invocations = append(invocations, Invocation{
			Spec:    AnalyzerSpec{Tool: tool, Command: "sh", Args: []string{"-c", "echo " + tool}},
			WorkDir: dir,
		})
	}
	executions := r.Run(context.Background(), invocations)
	if len(executions) != len(invocations) {
		t.Fatalf("expected %d executions, got %d", len(invocations), len(executions))
	}
}

func TestRunner_DoesNotWriteIntoRepo(t *testing.T) {
	r := newTestRunner(RunnerOptions{Concurrency: 1}, "sh")
	dir := t.TempDir()
	invocations := []Invocation{{
		Spec:    AnalyzerSpec{Tool: "fake", Command: "sh", Args: []string{"-c", "echo out"}},
		WorkDir: dir,
	}}
	r.Run(context.Background(), invocations)

	entries, err := filepath.Glob(filepath.Join(dir, "*"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("runner left files in the scanned tree: %v", entries)
	}
}

func TestRunnerOptions_Workers(t *testing.T) {
	if got := (RunnerOptions{Concurrency: 3}).Workers(); got != 3 {
		t.Errorf("explicit concurrency: got %d", got)
	}
	if got := (RunnerOptions{}).Workers(); got < 1 {
		t.Errorf("default workers must be at least 1, got %d", got)
	}
	if got := (RunnerOptions{ConcurrencyPercent: 1}).Workers(); got < 1 {
		t.Errorf("tiny percent must still yield one worker, got %d", got)
	}
}
