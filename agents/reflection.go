package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/lexcodex/reliquary/agents/pattern"
	"github.com/lexcodex/reliquary/framework"
	"github.com/lexcodex/reliquary/tools"
)

const reflectionPrompt = `You are a reflection agent. Second-guess each classification: is the
confidence justified, are there risks the classifier missed? Review each item, consult reflection
history where available, then call finish with a "critiques" list (classification_path,
issues_found, suggested_confidence, additional_risks, should_review, critique_reasoning).`

// Paths and names the reflection pass treats as off-limits or suspicious.
var (
	systemPathPrefixes = []string{
		"/bin", "/sbin", "/usr", "/etc", "/var", "/boot", "/lib",
		"/System", "/Library", "/Applications",
	}
	importantDirNames = []string{
		"Documents", "Desktop", "Pictures", "Photos", "src", "projects", ".ssh", ".gnupg",
	}
	cleanupSafeExtensions = []string{
		".log", ".tmp", ".cache", ".dmg", ".pkg", ".o", ".pyc",
	}
)

// NewReflectionAgent builds the critique pass. The memory tools are only
// offered when a reflection memory is wired; availability is rechecked each
// iteration so the prompt never advertises tools that would fail.
func NewReflectionAgent(model framework.LanguageModel, memory framework.ReflectionMemory, settings *Settings, log zerolog.Logger) *pattern.ReActLoop {
	registry := framework.NewToolRegistry()
	for _, tool := range []framework.Tool{
		&reviewClassificationTool{},
		&storeReflectionOutcomeTool{memory: memory},
		&queryReflectionHistoryTool{memory: memory},
		&reflectionAccuracyTool{memory: memory},
		&tools.FinishTool{Desc: "Finish reflection, passing the critiques list"},
	} {
		if err := registry.Register(tool); err != nil {
			log.Error().Err(err).Msg("reflection tool registration failed")
		}
	}

	provider := &pattern.LLMThoughtProvider{
		Model:        model,
		Tools:        registry,
		SystemPrompt: reflectionPrompt,
		Options: &framework.LLMOptions{
			Model:       settings.Model,
			Temperature: settings.Temperature,
			MaxTokens:   800,
		},
		Log: log,
	}
	loop := pattern.NewReActLoop("ReflectionAgent", provider, registry, settings.MaxIterations, log)
	loop.Compiler = &reflectionCompiler{}
	return loop
}

// reflectionCompiler collects critique payloads from every observation that
// carries them, not just finish: review_classification emits critiques inline.
type reflectionCompiler struct{}

func (c *reflectionCompiler) Compile(session *framework.Session, history *framework.History, status framework.LoopStatus) *framework.AgentResult {
	result := (&pattern.FinishCompiler{}).Compile(session, history, status)
	critiques := []any{}
	for _, obs := range history.Observations {
		raw, ok := obs.Result["critiques"]
		if !ok {
			if single, ok := obs.Result["critique"]; ok {
				critiques = append(critiques, single)
			}
			continue
		}
		if list, ok := raw.([]any); ok {
			critiques = append(critiques, list...)
		}
	}
	result.Data = map[string]any{"critiques": critiques}
	return result
}

// reviewClassificationTool applies the deterministic safety checks to one
// classification and emits a critique.
type reviewClassificationTool struct{}

func (t *reviewClassificationTool) Name() string        { return "review_classification" }
func (t *reviewClassificationTool) Category() string    { return "reflection" }
func (t *reviewClassificationTool) Description() string {
	return "Run safety checks against one classification and produce a critique"
}

func (t *reviewClassificationTool) Parameters() []framework.ToolParameter {
	return []framework.ToolParameter{
		{Name: "path", Type: "string", Description: "Classified path", Required: true},
		{Name: "confidence", Type: "string", Description: "Classifier's confidence", Required: false},
		{Name: "recommendation", Type: "string", Description: "Classifier's recommendation", Required: false},
	}
}

func (t *reviewClassificationTool) Available(ctx context.Context, session *framework.Session) bool {
	return true
}

func (t *reviewClassificationTool) Execute(ctx context.Context, session *framework.Session, args map[string]any) (any, error) {
	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, fmt.Errorf("missing required argument %q", "path")
	}
	confidence, _ := args["confidence"].(string)
	recommendation, _ := args["recommendation"].(string)

	var issues, risks []string
	if IsSystemPath(path) {
		issues = append(issues, "path is under a system directory")
		risks = append(risks, "deleting system files can break the OS or installed applications")
	}
	if name := containedImportantDir(path); name != "" {
		issues = append(issues, fmt.Sprintf("path is inside the user's %s directory", name))
		risks = append(risks, "user-curated content may be irreplaceable")
	}
	if recommendation == string(framework.RecommendDelete) && !hasSafeExtension(path) && confidence == string(framework.ConfidenceSafe) {
		issues = append(issues, "delete marked safe without a known-regenerable extension or directory type")
	}

	critique := map[string]any{
		"classification_path": path,
		"issues_found":        issues,
		"additional_risks":    risks,
		"should_review":       len(issues) > 0,
		"critique_reasoning":  critiqueReason(issues),
	}
	if len(issues) > 0 && confidence != string(framework.ConfidenceUncertain) {
		critique["suggested_confidence"] = string(framework.ConfidenceUncertain)
	}
	return map[string]any{"critique": critique}, nil
}

// IsSystemPath reports whether the path sits under a protected system root.
func IsSystemPath(path string) bool {
	for _, prefix := range systemPathPrefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

func containedImportantDir(path string) string {
	parts := strings.Split(path, "/")
	for _, part := range parts {
		for _, name := range importantDirNames {
			if part == name {
				return name
			}
		}
	}
	return ""
}

func hasSafeExtension(path string) bool {
	lower := strings.ToLower(path)
	for _, ext := range cleanupSafeExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

func critiqueReason(issues []string) string {
	if len(issues) == 0 {
		return "no safety concerns found"
	}
	return strings.Join(issues, "; ")
}

// storeReflectionOutcomeTool persists a reflection outcome for later accuracy
// analysis. Hidden without a reflection memory.
type storeReflectionOutcomeTool struct {
	memory framework.ReflectionMemory
}

func (t *storeReflectionOutcomeTool) Name() string        { return "store_reflection_outcome" }
func (t *storeReflectionOutcomeTool) Category() string    { return "memory" }
func (t *storeReflectionOutcomeTool) Description() string {
	return "Persist a reflection outcome for accuracy tracking"
}

func (t *storeReflectionOutcomeTool) Parameters() []framework.ToolParameter {
	return []framework.ToolParameter{
		{Name: "path", Type: "string", Description: "Classified path", Required: true},
		{Name: "original_confidence", Type: "string", Description: "Confidence before critique", Required: false},
		{Name: "was_downgraded", Type: "bool", Description: "Whether the critique downgraded confidence", Required: false},
	}
}

func (t *storeReflectionOutcomeTool) Available(ctx context.Context, session *framework.Session) bool {
	return t.memory != nil
}

func (t *storeReflectionOutcomeTool) Execute(ctx context.Context, session *framework.Session, args map[string]any) (any, error) {
	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, fmt.Errorf("missing required argument %q", "path")
	}
	confidence, _ := args["original_confidence"].(string)
	downgraded, _ := args["was_downgraded"].(bool)
	record := framework.ReflectionRecord{
		Path:               path,
		OriginalConfidence: confidence,
		WasDowngraded:      downgraded,
	}
	if err := t.memory.RecordReflection(ctx, record); err != nil {
		return nil, err
	}
	return map[string]any{"stored": true, "path": path}, nil
}

// queryReflectionHistoryTool fetches prior reflection outcomes for a path.
type queryReflectionHistoryTool struct {
	memory framework.ReflectionMemory
}

func (t *queryReflectionHistoryTool) Name() string        { return "query_reflection_history" }
func (t *queryReflectionHistoryTool) Category() string    { return "memory" }
func (t *queryReflectionHistoryTool) Description() string {
	return "Fetch prior reflection outcomes for a path"
}

func (t *queryReflectionHistoryTool) Parameters() []framework.ToolParameter {
	return []framework.ToolParameter{
		{Name: "path", Type: "string", Description: "Path to look up", Required: true},
		{Name: "limit", Type: "int", Description: "Max records", Default: 5},
	}
}

func (t *queryReflectionHistoryTool) Available(ctx context.Context, session *framework.Session) bool {
	return t.memory != nil
}

func (t *queryReflectionHistoryTool) Execute(ctx context.Context, session *framework.Session, args map[string]any) (any, error) {
	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, fmt.Errorf("missing required argument %q", "path")
	}
	limit := 5
	if v, ok := args["limit"].(float64); ok && v > 0 {
		limit = int(v)
	}
	records, err := t.memory.ReflectionHistory(ctx, path, limit)
	if err != nil {
		return nil, err
	}
	history := make([]map[string]any, 0, len(records))
	for _, r := range records {
		history = append(history, map[string]any{
			"path":                r.Path,
			"original_confidence": r.OriginalConfidence,
			"was_downgraded":      r.WasDowngraded,
			"user_agreed":         r.UserAgreed,
		})
	}
	return map[string]any{"path": path, "history": history}, nil
}

// reflectionAccuracyTool summarizes how often reflection downgrades matched
// eventual user decisions.
type reflectionAccuracyTool struct {
	memory framework.ReflectionMemory
}

func (t *reflectionAccuracyTool) Name() string        { return "reflection_accuracy" }
func (t *reflectionAccuracyTool) Category() string    { return "memory" }
func (t *reflectionAccuracyTool) Description() string {
	return "Aggregate accuracy metrics for past reflection outcomes"
}

func (t *reflectionAccuracyTool) Parameters() []framework.ToolParameter { return nil }

func (t *reflectionAccuracyTool) Available(ctx context.Context, session *framework.Session) bool {
	return t.memory != nil
}

func (t *reflectionAccuracyTool) Execute(ctx context.Context, session *framework.Session, args map[string]any) (any, error) {
	metrics, err := t.memory.ReflectionAccuracy(ctx)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	for k, v := range metrics {
		out[k] = v
	}
	return out, nil
}
