package framework

import (
	"context"
	"time"
)

// PatternEntry is one remembered cleanup decision, keyed by a path pattern
// such as "*/node_modules" or "*.log" rather than a literal path so a single
// decision generalizes across projects.
type PatternEntry struct {
	PathPattern    string    `json:"path_pattern"`
	FileType       string    `json:"file_type,omitempty"`
	DirectoryType  string    `json:"directory_type,omitempty"`
	UserDecision   string    `json:"user_decision"`
	Confidence     string    `json:"confidence"`
	ApprovalCount  int       `json:"approval_count"`
	RejectionCount int       `json:"rejection_count"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ApprovalRate returns approvals over total decisions, or 0 with no history.
func (e PatternEntry) ApprovalRate() float64 {
	total := e.ApprovalCount + e.RejectionCount
	if total == 0 {
		return 0
	}
	return float64(e.ApprovalCount) / float64(total)
}

// ScoredEntry annotates a pattern entry with the similarity score and the
// strategy that produced it.
type ScoredEntry struct {
	Entry    PatternEntry `json:"entry"`
	Score    float64      `json:"score"`
	Strategy string       `json:"strategy"`
}

// DecisionMemory is the narrow contract the core depends on. Result
// compilation and replanning never look past FindSimilar/Save, so the backing
// store can change format freely.
type DecisionMemory interface {
	FindSimilar(ctx context.Context, path string) ([]ScoredEntry, error)
	Save(ctx context.Context, entry PatternEntry) error
}

// ReflectionRecord is one stored reflection outcome, used to measure whether
// the reflection pass is actually improving classifications over time.
type ReflectionRecord struct {
	Path               string    `json:"path"`
	OriginalConfidence string    `json:"original_confidence"`
	CritiquedAt        time.Time `json:"critiqued_at"`
	WasDowngraded      bool      `json:"was_downgraded"`
	UserAgreed         bool      `json:"user_agreed"`
}

// ReflectionMemory extends decision memory with reflection-outcome history.
// Only the reflection agent's optional tools use it.
type ReflectionMemory interface {
	RecordReflection(ctx context.Context, record ReflectionRecord) error
	ReflectionHistory(ctx context.Context, path string, limit int) ([]ReflectionRecord, error)
	ReflectionAccuracy(ctx context.Context) (map[string]float64, error)
}
