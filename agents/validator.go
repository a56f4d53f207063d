package agents

import (
	"context"
	"fmt"
	"os"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/lexcodex/reliquary/framework"
)

// ValidatorAgent is the final, deliberately non-agentic pass: no model, no
// tools, just rules. Every classification recommending deletion is checked
// against system paths, existence, and write permission; anything failing a
// check is downgraded to unsafe with the risk recorded.
type ValidatorAgent struct {
	Log zerolog.Logger
}

// Name implements framework.Agent.
func (a *ValidatorAgent) Name() string { return "ValidatorAgent" }

// Execute validates the session's classifications in place.
func (a *ValidatorAgent) Execute(ctx context.Context, task *framework.Task, session *framework.Session) (*framework.AgentResult, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	classifications := session.Classifications()
	unsafeCount := 0
	reasoning := make([]string, 0, len(classifications))

	for i := range classifications {
		c := &classifications[i]
		if c.Recommendation != framework.RecommendDelete {
			reasoning = append(reasoning, fmt.Sprintf("skipped %s (%s)", c.Path, c.Recommendation))
			continue
		}
		risks := validateDeletion(c.Path)
		if len(risks) > 0 {
			c.Confidence = framework.ConfidenceUnsafe
			c.Risks = append(c.Risks, risks...)
			unsafeCount++
			a.Log.Warn().Str("path", c.Path).Strs("risks", risks).Msg("classification downgraded to unsafe")
			reasoning = append(reasoning, fmt.Sprintf("unsafe %s: %s", c.Path, risks[0]))
			continue
		}
		reasoning = append(reasoning, fmt.Sprintf("validated %s", c.Path))
	}
	session.ReplaceClassifications(classifications)

	return &framework.AgentResult{
		Success:   true,
		Reasoning: reasoning,
		Data: map[string]any{
			"validated": len(classifications),
			"unsafe":    unsafeCount,
		},
		Metadata: map[string]any{"agent": a.Name()},
	}, nil
}

// validateDeletion returns the risks blocking deletion of path, empty when
// the deletion looks executable.
func validateDeletion(path string) []string {
	var risks []string
	if IsSystemPath(path) {
		risks = append(risks, "path is a protected system location")
	}
	if name := containedImportantDir(path); name != "" {
		risks = append(risks, fmt.Sprintf("path is inside protected directory %q", name))
	}
	if _, err := os.Stat(path); err != nil {
		risks = append(risks, "path no longer exists")
		return risks
	}
	// 0x2 is W_OK
	if err := syscall.Access(path, 0x2); err != nil {
		risks = append(risks, "no write permission on path")
	}
	return risks
}
