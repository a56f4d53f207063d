package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/lexcodex/reliquary/framework"
)

// DetectDirectoryType maps well-known directory names to artifact types.
func DetectDirectoryType(name string) string {
	lower := strings.ToLower(name)
	switch {
	case lower == "node_modules":
		return "node_modules"
	case lower == "venv" || lower == ".venv" || lower == "env" || lower == ".env":
		return "venv"
	case strings.Contains(lower, "cache"):
		return "cache_dir"
	case lower == "build" || lower == "dist" || lower == "target" || lower == ".next" || lower == "out":
		return "build_dir"
	case lower == "temp" || lower == "tmp":
		return "temp_dir"
	case lower == ".git":
		return "git_dir"
	default:
		return "other"
	}
}

// dirSize sums file sizes below path, skipping symlinks and unreadable
// entries rather than failing the whole walk.
func dirSize(path string) int64 {
	var total int64
	_ = filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.Mode()&os.ModeSymlink != 0 {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.Mode().IsRegular() {
			total += info.Size()
		}
		return nil
	})
	return total
}

func entrySize(path string, info os.FileInfo) int64 {
	if info.IsDir() {
		return dirSize(path)
	}
	return info.Size()
}

// ScanDirectoryTool lists the large entries under a path, the discovery
// agent's primary probe. A successful scan bumps the session scan counter,
// which unlocks the analysis tool.
type ScanDirectoryTool struct {
	DefaultMinSizeMB float64
}

func (t *ScanDirectoryTool) Name() string        { return "scan_directory" }
func (t *ScanDirectoryTool) Category() string    { return "filesystem" }
func (t *ScanDirectoryTool) Description() string {
	return "Scan a directory and summarize items above a size threshold"
}

func (t *ScanDirectoryTool) Parameters() []framework.ToolParameter {
	return []framework.ToolParameter{
		{Name: "path", Type: "string", Description: "Directory to scan", Required: true},
		{Name: "depth", Type: "int", Description: "Recursion depth", Default: 1},
		{Name: "min_size_mb", Type: "number", Description: "Minimum item size in MB", Default: 100},
	}
}

func (t *ScanDirectoryTool) Available(ctx context.Context, session *framework.Session) bool {
	return true
}

func (t *ScanDirectoryTool) Execute(ctx context.Context, session *framework.Session, args map[string]any) (any, error) {
	path, err := requireString(args, "path")
	if err != nil {
		return nil, err
	}
	depth := intArg(args, "depth", 1)
	if depth < 0 {
		return nil, fmt.Errorf("depth must be non-negative, got %d", depth)
	}
	minSizeMB := floatArg(args, "min_size_mb", t.DefaultMinSizeMB)

	target, err := resolveDir(path)
	if err != nil {
		return nil, err
	}

	var items []map[string]any
	var totalSize int64
	var scan func(dir string, level int)
	scan = func(dir string, level int) {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return
		}
		for _, entry := range entries {
			if level == 0 && strings.HasPrefix(entry.Name(), ".") {
				continue
			}
			full := filepath.Join(dir, entry.Name())
			info, err := entry.Info()
			if err != nil {
				continue
			}
			size := entrySize(full, info)
			totalSize += size
			sizeMB := float64(size) / (1024 * 1024)
			if sizeMB >= minSizeMB {
				items = append(items, map[string]any{
					"path":         full,
					"name":         entry.Name(),
					"is_directory": entry.IsDir(),
					"size_bytes":   size,
					"size_mb":      sizeMB,
					"size_gb":      float64(size) / (1024 * 1024 * 1024),
				})
			}
			if entry.IsDir() && level < depth {
				scan(full, level+1)
			}
		}
	}
	scan(target, 0)

	sort.Slice(items, func(i, j int) bool {
		return items[i]["size_bytes"].(int64) > items[j]["size_bytes"].(int64)
	})
	if len(items) > 20 {
		items = items[:20]
	}
	session.RecordScanCompletion()
	return map[string]any{
		"path":             target,
		"total_items":      len(items),
		"total_size_bytes": totalSize,
		"total_size_gb":    float64(totalSize) / (1024 * 1024 * 1024),
		"items":            items,
	}, nil
}

// AnalyseDirectoryTool performs deep analysis of one directory: type
// detection, file-type breakdown, counts and size. It stays hidden until at
// least one scan has succeeded, since analysing without discovery targets is
// model flailing.
type AnalyseDirectoryTool struct{}

func (t *AnalyseDirectoryTool) Name() string        { return "analyse_directory" }
func (t *AnalyseDirectoryTool) Category() string    { return "filesystem" }
func (t *AnalyseDirectoryTool) Description() string {
	return "Deep analysis of a directory: type, file breakdown, size"
}

func (t *AnalyseDirectoryTool) Parameters() []framework.ToolParameter {
	return []framework.ToolParameter{
		{Name: "path", Type: "string", Description: "Path to analyse", Required: true},
		{Name: "depth", Type: "int", Description: "Recursion depth, -1 for unlimited", Default: -1},
	}
}

func (t *AnalyseDirectoryTool) Available(ctx context.Context, session *framework.Session) bool {
	return session != nil && session.ScanCompletions() > 0
}

func (t *AnalyseDirectoryTool) Execute(ctx context.Context, session *framework.Session, args map[string]any) (any, error) {
	path, err := requireString(args, "path")
	if err != nil {
		return nil, err
	}
	depth := intArg(args, "depth", -1)

	target, err := filepath.Abs(expandHome(path))
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(target)
	if err != nil {
		return nil, fmt.Errorf("path does not exist: %s", path)
	}
	if !info.IsDir() {
		ext := filepath.Ext(target)
		if ext == "" {
			ext = "no_extension"
		}
		return map[string]any{
			"path":               target,
			"is_directory":       false,
			"file_count":         1,
			"subdirectory_count": 0,
			"file_types":         map[string]int{ext: 1},
			"size_bytes":         info.Size(),
			"size_gb":            float64(info.Size()) / (1024 * 1024 * 1024),
		}, nil
	}

	fileTypes := map[string]int{}
	var fileCount, dirCount int
	var count func(dir string, level int)
	count = func(dir string, level int) {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return
		}
		for _, entry := range entries {
			if entry.IsDir() {
				dirCount++
				if depth < 0 || level < depth {
					count(filepath.Join(dir, entry.Name()), level+1)
				}
				continue
			}
			fileCount++
			ext := filepath.Ext(entry.Name())
			if ext == "" {
				ext = "no_extension"
			}
			fileTypes[ext]++
		}
	}
	count(target, 0)

	size := dirSize(target)
	return map[string]any{
		"path":               target,
		"directory_type":     DetectDirectoryType(filepath.Base(target)),
		"file_count":         fileCount,
		"subdirectory_count": dirCount,
		"file_types":         topFileTypes(fileTypes, 10),
		"size_bytes":         size,
		"size_gb":            float64(size) / (1024 * 1024 * 1024),
	}, nil
}

// DiskUsageTool reports usage statistics for the filesystem holding a path.
type DiskUsageTool struct{}

func (t *DiskUsageTool) Name() string        { return "disk_usage" }
func (t *DiskUsageTool) Category() string    { return "filesystem" }
func (t *DiskUsageTool) Description() string { return "Disk usage statistics for a path" }

func (t *DiskUsageTool) Parameters() []framework.ToolParameter {
	return []framework.ToolParameter{
		{Name: "path", Type: "string", Description: "Path on the target filesystem", Required: true},
	}
}

func (t *DiskUsageTool) Available(ctx context.Context, session *framework.Session) bool { return true }

func (t *DiskUsageTool) Execute(ctx context.Context, session *framework.Session, args map[string]any) (any, error) {
	path, err := requireString(args, "path")
	if err != nil {
		return nil, err
	}
	target := expandHome(path)
	var stat syscall.Statfs_t
	if err := syscall.Statfs(target, &stat); err != nil {
		return nil, fmt.Errorf("statfs %s: %w", path, err)
	}
	total := stat.Blocks * uint64(stat.Bsize)
	free := stat.Bavail * uint64(stat.Bsize)
	used := total - free
	freePercent := 0.0
	if total > 0 {
		freePercent = float64(free) / float64(total) * 100
	}
	return map[string]any{
		"path":         target,
		"total_bytes":  total,
		"used_bytes":   used,
		"free_bytes":   free,
		"free_percent": freePercent,
	}, nil
}

// FileAgeTool reports age since last modification.
type FileAgeTool struct{}

func (t *FileAgeTool) Name() string        { return "file_age" }
func (t *FileAgeTool) Category() string    { return "filesystem" }
func (t *FileAgeTool) Description() string { return "Age of a file or directory since last modification" }

func (t *FileAgeTool) Parameters() []framework.ToolParameter {
	return []framework.ToolParameter{
		{Name: "path", Type: "string", Description: "Path to check", Required: true},
	}
}

func (t *FileAgeTool) Available(ctx context.Context, session *framework.Session) bool { return true }

func (t *FileAgeTool) Execute(ctx context.Context, session *framework.Session, args map[string]any) (any, error) {
	path, err := requireString(args, "path")
	if err != nil {
		return nil, err
	}
	target := expandHome(path)
	info, err := os.Stat(target)
	if err != nil {
		return nil, fmt.Errorf("path does not exist: %s", path)
	}
	ageDays := int(time.Since(info.ModTime()).Hours() / 24)
	return map[string]any{
		"path":          target,
		"age_days":      ageDays,
		"age_months":    ageDays / 30,
		"last_modified": info.ModTime().UTC().Format(time.RFC3339),
	}, nil
}

// --- shared helpers ---

func expandHome(path string) string {
	if strings.HasPrefix(path, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

func resolveDir(path string) (string, error) {
	target, err := filepath.Abs(expandHome(path))
	if err != nil {
		return "", err
	}
	info, err := os.Stat(target)
	if err != nil {
		return "", fmt.Errorf("path does not exist: %s", path)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("path is not a directory: %s", path)
	}
	return target, nil
}

func requireString(args map[string]any, key string) (string, error) {
	v, ok := args[key].(string)
	if !ok || v == "" {
		return "", fmt.Errorf("missing required argument %q", key)
	}
	return v, nil
}

func intArg(args map[string]any, key string, fallback int) int {
	switch v := args[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return fallback
	}
}

func floatArg(args map[string]any, key string, fallback float64) float64 {
	switch v := args[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return fallback
	}
}

func topFileTypes(types map[string]int, limit int) map[string]int {
	type kv struct {
		ext   string
		count int
	}
	sorted := make([]kv, 0, len(types))
	for ext, count := range types {
		sorted = append(sorted, kv{ext, count})
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].count > sorted[j].count })
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	out := make(map[string]int, len(sorted))
	for _, item := range sorted {
		out[item.ext] = item.count
	}
	return out
}
