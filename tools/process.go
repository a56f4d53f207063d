package tools

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/lexcodex/reliquary/framework"
)

const lsofTimeout = time.Second

// CheckDependenciesTool probes whether anything still depends on a path:
// symlinks in the parent directory pointing at it, and processes holding open
// handles (via lsof, bounded to a second since lsof can stall on network
// mounts).
type CheckDependenciesTool struct{}

func (t *CheckDependenciesTool) Name() string        { return "check_dependencies" }
func (t *CheckDependenciesTool) Category() string    { return "system" }
func (t *CheckDependenciesTool) Description() string {
	return "Check for symlinks and open file handles referencing a path"
}

func (t *CheckDependenciesTool) Parameters() []framework.ToolParameter {
	return []framework.ToolParameter{
		{Name: "path", Type: "string", Description: "Path to check", Required: true},
	}
}

func (t *CheckDependenciesTool) Available(ctx context.Context, session *framework.Session) bool {
	return true
}

func (t *CheckDependenciesTool) Execute(ctx context.Context, session *framework.Session, args map[string]any) (any, error) {
	path, err := requireString(args, "path")
	if err != nil {
		return nil, err
	}
	target, err := filepath.Abs(expandHome(path))
	if err != nil {
		return nil, err
	}

	symlinks := findSymlinksTo(filepath.Dir(target), target)
	openHandles, lsofErr := openHandleCount(ctx, target)

	result := map[string]any{
		"path":             target,
		"symlinks":         symlinks,
		"open_handles":     openHandles,
		"has_dependencies": len(symlinks) > 0 || openHandles > 0,
	}
	if lsofErr != "" {
		result["lsof_error"] = lsofErr
	}
	return result, nil
}

// findSymlinksTo scans dir for links resolving to target.
func findSymlinksTo(dir, target string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var links []string
	for _, entry := range entries {
		if entry.Type()&os.ModeSymlink == 0 {
			continue
		}
		full := filepath.Join(dir, entry.Name())
		dest, err := filepath.EvalSymlinks(full)
		if err != nil {
			continue
		}
		if dest == target || strings.HasPrefix(dest, target+string(os.PathSeparator)) {
			links = append(links, full)
		}
	}
	return links
}

// openHandleCount shells out to lsof with a hard timeout. A missing binary or
// timeout is reported, not fatal: the caller treats unknown as "be careful".
func openHandleCount(ctx context.Context, target string) (int, string) {
	runCtx, cancel := context.WithTimeout(ctx, lsofTimeout)
	defer cancel()
	out, err := exec.CommandContext(runCtx, "lsof", "+D", target).Output()
	if err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return 0, "lsof timed out"
		}
		// lsof exits non-zero when nothing matches; that's a clean zero
		if len(out) == 0 {
			return 0, ""
		}
	}
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) <= 1 {
		return 0, ""
	}
	return len(lines) - 1, ""
}
