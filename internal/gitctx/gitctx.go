/*
Copyright © 2025 GenOps HQ <dev@genopshq.io>
*/
package gitctx

import (
	"path/filepath"
	"sort"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/sourcegraph/go-diff/diff"
)

// ChangeContext captures a minimal view of the change-set under review.
type ChangeContext struct {
	ChangedFiles []string `json:"changed_files"`
	AddedLines   int      `json:"added_lines"`
	ChangeScope  string   `json:"change_scope"` // small | medium | large
	GitSHA       string   `json:"git_sha,omitempty"`
	Branch       string   `json:"branch,omitempty"`
}

// Collect gathers change context for the repo at target path using the
// worktree status. Returns nil if target is not a git repository;
// callers treat a missing context as a full-tree scan.
func Collect(target string) *ChangeContext {
	repo, err := git.PlainOpenWithOptions(target, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil
	}

	ctx := &ChangeContext{}
	if head, err := repo.Head(); err == nil {
		ctx.Branch = head.Name().Short()
		ctx.GitSHA = head.Hash().String()
	}

	wt, err := repo.Worktree()
	if err != nil {
		return ctx
	}
	st, err := wt.Status()
	if err != nil {
		return ctx
	}
	for path, s := range st {
		if s.Staging != git.Unmodified || s.Worktree != git.Unmodified {
			ctx.ChangedFiles = append(ctx.ChangedFiles, filepath.ToSlash(path))
		}
	}
	sort.Strings(ctx.ChangedFiles)
	ctx.ChangeScope = classifyByFileCount(len(ctx.ChangedFiles))
	return ctx
}

// FromPatch builds a change context from a unified diff (the PR patch
// text supplied by the CI glue). Paths are normalized to the b/ side.
func FromPatch(patch []byte) (*ChangeContext, error) {
	fileDiffs, err := diff.NewMultiFileDiffReader(strings.NewReader(string(patch))).ReadAllFiles()
	if err != nil {
		return nil, err
	}
	ctx := &ChangeContext{}
	for _, fd := range fileDiffs {
		name := strings.TrimPrefix(fd.NewName, "b/")
		if name == "/dev/null" || name == "" {
			name = strings.TrimPrefix(fd.OrigName, "a/")
		}
		if name != "" && name != "/dev/null" {
			ctx.ChangedFiles = append(ctx.ChangedFiles, filepath.ToSlash(name))
		}
		for _, hunk := range fd.Hunks {
			for _, line := range strings.Split(string(hunk.Body), "\n") {
				if strings.HasPrefix(line, "+") {
					ctx.AddedLines++
				}
			}
		}
	}
	sort.Strings(ctx.ChangedFiles)
	ctx.ChangeScope = classifyScope(ctx.AddedLines)
	if ctx.AddedLines == 0 {
		ctx.ChangeScope = classifyByFileCount(len(ctx.ChangedFiles))
	}
	return ctx, nil
}

func classifyScope(totalAdded int) string {
	switch {
	case totalAdded > 500:
		return "large"
	case totalAdded > 50:
		return "medium"
	default:
		return "small"
	}
}

func classifyByFileCount(n int) string {
	switch {
	case n > 20:
		return "large"
	case n > 5:
		return "medium"
	default:
		return "small"
	}
}
