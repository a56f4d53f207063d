package persistence

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/lexcodex/reliquary/framework"
)

// SQLiteMemoryStore persists cleanup decisions and reflection outcomes. It
// implements framework.DecisionMemory and framework.ReflectionMemory; the
// core only ever sees those interfaces, so the schema can evolve freely.
type SQLiteMemoryStore struct {
	db *sql.DB
}

// NewSQLiteMemoryStore opens/creates the database at dbPath.
func NewSQLiteMemoryStore(dbPath string) (*SQLiteMemoryStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	store := &SQLiteMemoryStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteMemoryStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS memory_entries (
		path_pattern TEXT PRIMARY KEY,
		file_type TEXT,
		directory_type TEXT,
		user_decision TEXT NOT NULL,
		confidence TEXT,
		approval_count INTEGER DEFAULT 0,
		rejection_count INTEGER DEFAULT 0,
		created_at TIMESTAMP,
		updated_at TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS reflection_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		path TEXT NOT NULL,
		original_confidence TEXT,
		was_downgraded BOOLEAN,
		user_agreed BOOLEAN,
		critiqued_at TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_reflection_path ON reflection_history(path);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close releases the underlying database handle.
func (s *SQLiteMemoryStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save upserts a pattern entry.
func (s *SQLiteMemoryStore) Save(ctx context.Context, entry framework.PatternEntry) error {
	if entry.PathPattern == "" {
		return errors.New("path pattern required")
	}
	now := time.Now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now
	query := `
	INSERT INTO memory_entries (
		path_pattern, file_type, directory_type, user_decision, confidence,
		approval_count, rejection_count, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(path_pattern) DO UPDATE SET
		file_type=excluded.file_type,
		directory_type=excluded.directory_type,
		user_decision=excluded.user_decision,
		confidence=excluded.confidence,
		approval_count=excluded.approval_count,
		rejection_count=excluded.rejection_count,
		updated_at=excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		entry.PathPattern,
		entry.FileType,
		entry.DirectoryType,
		entry.UserDecision,
		entry.Confidence,
		entry.ApprovalCount,
		entry.RejectionCount,
		entry.CreatedAt,
		entry.UpdatedAt,
	)
	return err
}

// FindByPattern returns the entry with the exact pattern, if stored.
func (s *SQLiteMemoryStore) FindByPattern(ctx context.Context, patternStr string) (*framework.PatternEntry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT path_pattern, file_type, directory_type,
		user_decision, confidence, approval_count, rejection_count, created_at, updated_at
		FROM memory_entries WHERE path_pattern = ?`, patternStr)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return entry, nil
}

// RecordDecision upserts the pattern extracted from path, bumping the
// approval or rejection counter.
func (s *SQLiteMemoryStore) RecordDecision(ctx context.Context, path, fileType, dirType string, approved bool) error {
	patternStr := ExtractPattern(path)
	existing, err := s.FindByPattern(ctx, patternStr)
	if err != nil {
		return err
	}
	entry := framework.PatternEntry{PathPattern: patternStr, FileType: fileType, DirectoryType: dirType}
	if existing != nil {
		entry = *existing
	}
	if approved {
		entry.ApprovalCount++
		entry.UserDecision = "approved"
	} else {
		entry.RejectionCount++
		entry.UserDecision = "rejected"
	}
	return s.Save(ctx, entry)
}

// All returns every stored entry, newest first.
func (s *SQLiteMemoryStore) All(ctx context.Context) ([]framework.PatternEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT path_pattern, file_type, directory_type,
		user_decision, confidence, approval_count, rejection_count, created_at, updated_at
		FROM memory_entries ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []framework.PatternEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

// similarity strategy scores, highest first.
const (
	scoreExact     = 1.0
	scoreExtension = 0.8
	scoreParentDir = 0.6
	scoreName      = 0.4
)

const similarLimit = 5

// FindSimilar ranks stored entries against path using four strategies:
// exact extracted-pattern match, extension match, parent-directory match and
// bare-name match. Results are deduplicated by pattern (best score wins) and
// capped at five.
func (s *SQLiteMemoryStore) FindSimilar(ctx context.Context, path string) ([]framework.ScoredEntry, error) {
	type candidate struct {
		pattern  string
		score    float64
		strategy string
	}
	base := filepath.Base(path)
	candidates := []candidate{
		{ExtractPattern(path), scoreExact, "exact_pattern"},
	}
	if ext := filepath.Ext(base); ext != "" {
		candidates = append(candidates, candidate{"*" + ext, scoreExtension, "extension"})
	}
	if parent := filepath.Base(filepath.Dir(path)); parent != "" && parent != "." && parent != "/" {
		candidates = append(candidates, candidate{"*/" + parent, scoreParentDir, "parent_dir"})
	}
	candidates = append(candidates, candidate{"*/" + base, scoreName, "name"})

	best := map[string]framework.ScoredEntry{}
	for _, c := range candidates {
		entry, err := s.FindByPattern(ctx, c.pattern)
		if err != nil {
			return nil, err
		}
		if entry == nil {
			continue
		}
		if prev, ok := best[entry.PathPattern]; ok && prev.Score >= c.score {
			continue
		}
		best[entry.PathPattern] = framework.ScoredEntry{Entry: *entry, Score: c.score, Strategy: c.strategy}
	}

	scored := make([]framework.ScoredEntry, 0, len(best))
	for _, e := range best {
		scored = append(scored, e)
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > similarLimit {
		scored = scored[:similarLimit]
	}
	return scored, nil
}

// RecordReflection appends a reflection outcome.
func (s *SQLiteMemoryStore) RecordReflection(ctx context.Context, record framework.ReflectionRecord) error {
	if record.Path == "" {
		return errors.New("path required")
	}
	if record.CritiquedAt.IsZero() {
		record.CritiquedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO reflection_history
		(path, original_confidence, was_downgraded, user_agreed, critiqued_at)
		VALUES (?, ?, ?, ?, ?)`,
		record.Path, record.OriginalConfidence, record.WasDowngraded, record.UserAgreed, record.CritiquedAt)
	return err
}

// ReflectionHistory returns the most recent outcomes for a path.
func (s *SQLiteMemoryStore) ReflectionHistory(ctx context.Context, path string, limit int) ([]framework.ReflectionRecord, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.db.QueryContext(ctx, `SELECT path, original_confidence, was_downgraded,
		user_agreed, critiqued_at FROM reflection_history
		WHERE path = ? ORDER BY critiqued_at DESC LIMIT ?`, path, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []framework.ReflectionRecord
	for rows.Next() {
		var r framework.ReflectionRecord
		if err := rows.Scan(&r.Path, &r.OriginalConfidence, &r.WasDowngraded, &r.UserAgreed, &r.CritiquedAt); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// ReflectionAccuracy aggregates downgrade/agreement rates.
func (s *SQLiteMemoryStore) ReflectionAccuracy(ctx context.Context) (map[string]float64, error) {
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(*),
		COALESCE(SUM(CASE WHEN was_downgraded THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN was_downgraded AND user_agreed THEN 1 ELSE 0 END), 0)
		FROM reflection_history`)
	var total, downgraded, agreed int
	if err := row.Scan(&total, &downgraded, &agreed); err != nil {
		return nil, err
	}
	metrics := map[string]float64{
		"total_reflections": float64(total),
		"downgrade_rate":    0,
		"agreement_rate":    0,
	}
	if total > 0 {
		metrics["downgrade_rate"] = float64(downgraded) / float64(total)
	}
	if downgraded > 0 {
		metrics["agreement_rate"] = float64(agreed) / float64(downgraded)
	}
	return metrics, nil
}

// ExtractPattern generalizes a concrete path into the stored pattern form:
// well-known directory names become "*/<name>", cache-ish names become
// "*/cache/*", files become "*<ext>", everything else "*/<base>".
func ExtractPattern(path string) string {
	base := filepath.Base(strings.TrimRight(path, "/"))
	lower := strings.ToLower(base)
	switch lower {
	case "node_modules", ".git", ".venv", "venv", "env":
		return "*/" + lower
	case "build", "dist", "target", ".next", "out":
		return "*/" + lower
	}
	if strings.Contains(lower, "cache") {
		return "*/cache/*"
	}
	if ext := filepath.Ext(base); ext != "" {
		return "*" + ext
	}
	return "*/" + base
}

// scanner abstracts sql.Row/sql.Rows for scanEntry.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*framework.PatternEntry, error) {
	var entry framework.PatternEntry
	var fileType, dirType, confidence sql.NullString
	err := row.Scan(
		&entry.PathPattern,
		&fileType,
		&dirType,
		&entry.UserDecision,
		&confidence,
		&entry.ApprovalCount,
		&entry.RejectionCount,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	entry.FileType = fileType.String
	entry.DirectoryType = dirType.String
	entry.Confidence = confidence.String
	return &entry, nil
}
