/*
Copyright © 2025 GenOps HQ <dev@genopshq.io>
*/
package analysis

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/beevik/etree"
	"github.com/bmatcuk/doublestar/v4"
	toml "github.com/pelletier/go-toml/v2"
	ignore "github.com/sabhiram/go-gitignore"
	"gopkg.in/yaml.v3"

	"github.com/genopshq/guardian/pkg/logger"
)

// RepoFacts carries contextual signals the scorer consumes alongside findings.
type RepoFacts struct {
	HasTests bool `json:"has_tests"`
}

// detectMaxDepth bounds the manifest walk; manifests live near the root.
const detectMaxDepth = 3

// ecosystemOrder fixes the deterministic order of detected tags.
var ecosystemOrder = []string{
	"python", "javascript", "java", "go", "ruby", "php", "dotnet",
	"docker", "terraform", "kubernetes",
}

// testFilePatterns mark the repository as having a test suite.
var testFilePatterns = []string{
	"**/*_test.go", "**/test_*.py", "**/*_test.py", "**/*.spec.js",
	"**/*.test.js", "**/tests/**", "**/spec/**",
}

// Detect inspects the repository file tree and manifests to determine
// which ecosystems are present. It never executes processes or touches
// the network. Only an unreadable root is fatal (DetectionError).
func Detect(root string) ([]Ecosystem, RepoFacts, error) {
	if _, err := os.ReadDir(root); err != nil {
		return nil, RepoFacts{}, &DetectionError{Path: root, Err: err}
	}

	ignorer := loadIgnore(root)
	evidence := make(map[string][]string)
	facts := RepoFacts{}

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Per-file errors are skipped, not fatal
			logger.Debug("detect: skipping unreadable entry", logger.String("path", path), logger.Err(err))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		rel, rerr := filepath.Rel(root, path)
		if rerr != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			base := d.Name()
			if base == ".git" || base == "vendor" || base == "node_modules" || base == "__pycache__" {
				return filepath.SkipDir
			}
			if strings.Count(rel, "/") >= detectMaxDepth {
				return filepath.SkipDir
			}
			if ignorer != nil && ignorer.MatchesPath(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if ignorer != nil && ignorer.MatchesPath(rel) {
			return nil
		}

		classify(root, rel, d.Name(), evidence)

		if !facts.HasTests {
			for _, pat := range testFilePatterns {
				if ok, _ := doublestar.Match(pat, rel); ok {
					facts.HasTests = true
					break
				}
			}
		}
		return nil
	})
	if walkErr != nil {
		return nil, RepoFacts{}, &DetectionError{Path: root, Err: walkErr}
	}

	var out []Ecosystem
	for _, tag := range ecosystemOrder {
		if ev, ok := evidence[tag]; ok {
			sort.Strings(ev)
			out = append(out, Ecosystem{Tag: tag, Evidence: ev})
		}
	}
	return out, facts, nil
}

// classify maps one file to zero or more ecosystem tags.
func classify(root, rel, base string, evidence map[string][]string) {
	add := func(tag string) {
		evidence[tag] = append(evidence[tag], rel)
	}

	switch base {
	case "requirements.txt":
		add("python")
	case "pyproject.toml":
		if probePyproject(filepath.Join(root, rel)) {
			add("python")
		}
	case "package.json":
		add("javascript")
	case "build.gradle", "build.gradle.kts":
		add("java")
	case "pom.xml":
		if probeXMLRoot(filepath.Join(root, rel), "project") {
			add("java")
		}
	case "go.mod":
		add("go")
	case "Gemfile":
		add("ruby")
	case "composer.json":
		add("php")
	case "Dockerfile":
		add("docker")
	}

	switch {
	case strings.HasSuffix(base, ".csproj"):
		if probeXMLRoot(filepath.Join(root, rel), "Project") {
			add("dotnet")
		}
	case strings.HasSuffix(base, ".tf"):
		add("terraform")
	case strings.HasSuffix(base, ".yaml") || strings.HasSuffix(base, ".yml"):
		if ok, _ := doublestar.Match(".github/workflows/**", rel); ok {
			return // CI workflows are a change signal, not an ecosystem
		}
		if probeK8sManifest(filepath.Join(root, rel)) {
			add("kubernetes")
		}
	}
}

// probePyproject confirms a pyproject.toml actually describes a Python
// project ([project] or [tool.*] tables) rather than stray metadata.
func probePyproject(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	var doc map[string]interface{}
	if err := toml.Unmarshal(data, &doc); err != nil {
		// Malformed manifest still signals a Python repo
		return true
	}
	if _, ok := doc["project"]; ok {
		return true
	}
	if _, ok := doc["tool"]; ok {
		return true
	}
	if _, ok := doc["build-system"]; ok {
		return true
	}
	return false
}

// probeXMLRoot checks the document root element name.
func probeXMLRoot(path, want string) bool {
	doc := etree.NewDocument()
	if err := doc.ReadFromFile(path); err != nil {
		return false
	}
	rootEl := doc.Root()
	return rootEl != nil && rootEl.Tag == want
}

// probeK8sManifest reports whether a YAML file looks like a Kubernetes
// object (apiVersion + kind at the top level of any document).
func probeK8sManifest(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	for _, docSrc := range strings.Split(string(data), "\n---") {
		var doc map[string]interface{}
		if err := yaml.Unmarshal([]byte(docSrc), &doc); err != nil {
			continue
		}
		if _, ok := doc["apiVersion"]; !ok {
			continue
		}
		if _, ok := doc["kind"]; ok {
			return true
		}
	}
	return false
}

// loadIgnore builds a matcher from the repo's .gitignore, if present.
func loadIgnore(root string) *ignore.GitIgnore {
	ig, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return ig
}

// ChangeSignals derives the contextual score inputs from a changed-file list.
type ChangeSignals struct {
	TouchesCI        bool `json:"touches_ci"`
	TouchesManifests bool `json:"touches_manifests"`
	ChangedFiles     int  `json:"changed_files"`
	AddedLines       int  `json:"added_lines"`
}

// dependencyManifests are the files whose modification raises risk.
var dependencyManifests = map[string]bool{
	"requirements.txt":  true,
	"pyproject.toml":    true,
	"package.json":      true,
	"package-lock.json": true,
	"pom.xml":           true,
	"build.gradle":      true,
	"go.mod":            true,
	"go.sum":            true,
	"Gemfile":           true,
	"Gemfile.lock":      true,
	"composer.json":     true,
}

// Signals classifies a changed-file list for the scorer.
func Signals(changed []string, addedLines int) ChangeSignals {
	sig := ChangeSignals{ChangedFiles: len(changed), AddedLines: addedLines}
	for _, f := range changed {
		f = filepath.ToSlash(f)
		if ok, _ := doublestar.Match(".github/workflows/**", f); ok {
			sig.TouchesCI = true
		}
		if strings.HasPrefix(f, ".gitlab-ci") || f == "Jenkinsfile" || strings.HasPrefix(f, ".circleci/") {
			sig.TouchesCI = true
		}
		if dependencyManifests[filepath.Base(f)] {
			sig.TouchesManifests = true
		}
	}
	return sig
}
