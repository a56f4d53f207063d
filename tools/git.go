package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/lexcodex/reliquary/framework"
)

// CheckGitStatusTool reports whether a path lives inside a git repository and
// whether it is matched by that repository's .gitignore. Classification leans
// on this: an ignored build directory is a much safer delete than a tracked
// one.
type CheckGitStatusTool struct{}

func (t *CheckGitStatusTool) Name() string        { return "check_git_status" }
func (t *CheckGitStatusTool) Category() string    { return "git" }
func (t *CheckGitStatusTool) Description() string {
	return "Check whether a path is inside a git repository and gitignored"
}

func (t *CheckGitStatusTool) Parameters() []framework.ToolParameter {
	return []framework.ToolParameter{
		{Name: "path", Type: "string", Description: "Path to check", Required: true},
	}
}

func (t *CheckGitStatusTool) Available(ctx context.Context, session *framework.Session) bool {
	return true
}

func (t *CheckGitStatusTool) Execute(ctx context.Context, session *framework.Session, args map[string]any) (any, error) {
	path, err := requireString(args, "path")
	if err != nil {
		return nil, err
	}
	target, err := filepath.Abs(expandHome(path))
	if err != nil {
		return nil, err
	}

	start := target
	if info, err := os.Stat(target); err == nil && !info.IsDir() {
		start = filepath.Dir(target)
	}

	isRepo := false
	ignored := false
	for current := start; ; current = filepath.Dir(current) {
		if _, err := os.Stat(filepath.Join(current, ".git")); err == nil {
			isRepo = true
			ignored = matchesGitignore(filepath.Join(current, ".gitignore"), current, target)
			break
		}
		if current == filepath.Dir(current) {
			break
		}
	}

	return map[string]any{
		"is_git_repo":  isRepo,
		"in_gitignore": ignored,
		"path":         target,
	}, nil
}

// matchesGitignore applies the simple prefix/name matching the rest of the
// pipeline relies on; full gitignore glob semantics are deliberately out.
func matchesGitignore(gitignorePath, repoRoot, target string) bool {
	data, err := os.ReadFile(gitignorePath)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(repoRoot, target)
	if err != nil {
		return false
	}
	base := filepath.Base(target)
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		pattern := strings.TrimSuffix(line, "/")
		pattern = strings.TrimPrefix(pattern, "/")
		if pattern == "" {
			continue
		}
		if strings.HasPrefix(rel, pattern) || base == pattern {
			return true
		}
	}
	return false
}
