package analysis

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", rel, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
}

func tags(ecosystems []Ecosystem) []string {
	var out []string
	for _, e := range ecosystems {
		out = append(out, e.Tag)
	}
	return out
}

func TestDetect_ManifestClassification(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "requirements.txt", "flask==3.0\n")
	writeFile(t, root, "web/package.json", `{"name":"web"}`)
	writeFile(t, root, "go.mod", "module example.com/x\n")
	writeFile(t, root, "Dockerfile", "FROM alpine\n")
	writeFile(t, root, "infra/main.tf", `resource "aws_s3_bucket" "b" {}`)

	ecosystems, _, err := Detect(root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := tags(ecosystems)
	want := []string{"python", "javascript", "go", "docker", "terraform"}
	if len(got) != len(want) {
		t.Fatalf("expected tags %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected tags %v in order, got %v", want, got)
		}
	}
	if ecosystems[0].Evidence[0] != "requirements.txt" {
		t.Errorf("expected evidence requirements.txt, got %v", ecosystems[0].Evidence)
	}
}

func TestDetect_DeterministicOrder(t *testing.T) {
	root := t.TempDir()
	// Written in reverse of detection order; output order must not care.
	writeFile(t, root, "main.tf", "")
	writeFile(t, root, "go.mod", "module example.com/y\n")
	writeFile(t, root, "requirements.txt", "")

	for i := 0; i < 3; i++ {
		ecosystems, _, err := Detect(root)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got := tags(ecosystems)
		want := []string{"python", "go", "terraform"}
		for j := range want {
			if got[j] != want[j] {
				t.Fatalf("run %d: expected %v, got %v", i, want, got)
			}
		}
	}
}

func TestDetect_PyprojectProbe(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "pyproject.toml", "[project]\nname = \"demo\"\n")

	ecosystems, _, err := Detect(root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ecosystems) != 1 || ecosystems[0].Tag != "python" {
		t.Fatalf("expected python, got %v", tags(ecosystems))
	}

	// A pyproject.toml without any python tables is not evidence.
	root2 := t.TempDir()
	writeFile(t, root2, "pyproject.toml", "[unrelated]\nkey = 1\n")
	ecosystems, _, err = Detect(root2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ecosystems) != 0 {
		t.Fatalf("expected no ecosystems, got %v", tags(ecosystems))
	}
}

func TestDetect_KubernetesProbe(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "deploy.yaml", "apiVersion: apps/v1\nkind: Deployment\nmetadata:\n  name: x\n")
	writeFile(t, root, "values.yaml", "replicas: 3\n")

	ecosystems, _, err := Detect(root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ecosystems) != 1 || ecosystems[0].Tag != "kubernetes" {
		t.Fatalf("expected kubernetes only, got %v", tags(ecosystems))
	}
	if ecosystems[0].Evidence[0] != "deploy.yaml" {
		t.Errorf("expected deploy.yaml evidence, got %v", ecosystems[0].Evidence)
	}
}

func TestDetect_WorkflowYAMLIsNotKubernetes(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".github/workflows/ci.yml", "name: ci\non: push\njobs: {}\n")

	ecosystems, _, err := Detect(root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ecosystems) != 0 {
		t.Fatalf("expected no ecosystems for workflow files, got %v", tags(ecosystems))
	}
}

func TestDetect_RespectsGitignore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "generated/\n")
	writeFile(t, root, "generated/go.mod", "module example.com/gen\n")
	writeFile(t, root, "Gemfile", "source \"https://rubygems.org\"\n")

	ecosystems, _, err := Detect(root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := tags(ecosystems)
	if len(got) != 1 || got[0] != "ruby" {
		t.Fatalf("expected ruby only, got %v", got)
	}
}

func TestDetect_SkipsVendorDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "node_modules/dep/package.json", `{"name":"dep"}`)
	writeFile(t, root, "vendor/lib/go.mod", "module v\n")

	ecosystems, _, err := Detect(root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ecosystems) != 0 {
		t.Fatalf("expected vendored manifests ignored, got %v", tags(ecosystems))
	}
}

func TestDetect_HasTests(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "go.mod", "module example.com/z\n")
	writeFile(t, root, "pkg_test.go", "package z\n")

	_, facts, err := Detect(root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !facts.HasTests {
		t.Fatal("expected HasTests for *_test.go")
	}

	root2 := t.TempDir()
	writeFile(t, root2, "go.mod", "module example.com/z2\n")
	_, facts, err = Detect(root2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if facts.HasTests {
		t.Fatal("expected HasTests false without test files")
	}
}

func TestDetect_UnreadableRootAborts(t *testing.T) {
	_, _, err := Detect(filepath.Join(t.TempDir(), "does-not-exist"))
	if err == nil {
		t.Fatal("expected an error for a missing root")
	}
	var detErr *DetectionError
	if !errors.As(err, &detErr) {
		t.Fatalf("expected DetectionError, got %T", err)
	}
}

func TestSignals(t *testing.T) {
	cases := []struct {
		name          string
		changed       []string
		wantCI        bool
		wantManifests bool
	}{
		{"empty", nil, false, false},
		{"workflow", []string{".github/workflows/deploy.yml"}, true, false},
		{"jenkins", []string{"Jenkinsfile"}, true, false},
		{"manifest", []string{"api/go.mod"}, false, true},
		{"lockfile", []string{"package-lock.json"}, false, true},
		{"plain code", []string{"internal/server.go"}, false, false},
		{"both", []string{".github/workflows/ci.yml", "requirements.txt"}, true, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sig := Signals(tc.changed, 10)
			if sig.TouchesCI != tc.wantCI {
				t.Errorf("TouchesCI = %v, want %v", sig.TouchesCI, tc.wantCI)
			}
			if sig.TouchesManifests != tc.wantManifests {
				t.Errorf("TouchesManifests = %v, want %v", sig.TouchesManifests, tc.wantManifests)
			}
			if sig.ChangedFiles != len(tc.changed) {
				t.Errorf("ChangedFiles = %d, want %d", sig.ChangedFiles, len(tc.changed))
			}
		})
	}
}
