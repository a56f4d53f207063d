package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/lexcodex/reliquary/agents/pattern"
	"github.com/lexcodex/reliquary/framework"
	"github.com/lexcodex/reliquary/tools"
)

const classifierPrompt = `You are a filesystem classification agent. For each discovered artifact,
classify it (use classify_item), check git status and live dependencies where deletion is on the
table, and consult prior user decisions. Call finish with a "classifications" list.`

// NewClassifierAgent builds the ReAct agent that judges discovered artifacts.
// The memory-backed tool hides itself when no decision memory is wired.
func NewClassifierAgent(model framework.LanguageModel, memory framework.DecisionMemory, settings *Settings, log zerolog.Logger) *pattern.ReActLoop {
	registry := framework.NewToolRegistry()
	for _, tool := range []framework.Tool{
		&classifyItemTool{model: model, settings: settings, log: log},
		&tools.CheckGitStatusTool{},
		&tools.CheckDependenciesTool{},
		&querySimilarDecisionsTool{memory: memory},
		&tools.FinishTool{Desc: "Finish classification, passing the classifications list"},
	} {
		if err := registry.Register(tool); err != nil {
			log.Error().Err(err).Msg("classifier tool registration failed")
		}
	}

	provider := &pattern.LLMThoughtProvider{
		Model:        model,
		Tools:        registry,
		SystemPrompt: classifierPrompt,
		Options: &framework.LLMOptions{
			Model:       settings.Model,
			Temperature: settings.Temperature,
			MaxTokens:   800,
		},
		Log: log,
	}
	loop := pattern.NewReActLoop("ClassifierAgent", provider, registry, settings.MaxIterations, log)
	loop.Compiler = &classifierCompiler{}
	return loop
}

// classifierCompiler lifts the finish payload's classifications.
type classifierCompiler struct{}

func (c *classifierCompiler) Compile(session *framework.Session, history *framework.History, status framework.LoopStatus) *framework.AgentResult {
	result := (&pattern.FinishCompiler{}).Compile(session, history, status)
	classifications := []any{}
	if obs, ok := history.FindObservation(pattern.FinishAction); ok {
		if raw, ok := obs.Result["classifications"]; ok {
			if list, ok := raw.([]any); ok {
				classifications = list
			}
		} else if raw, ok := obs.Result["items"]; ok {
			if list, ok := raw.([]any); ok {
				classifications = list
			}
		}
	}
	result.Data = map[string]any{"classifications": classifications}
	return result
}

// classifyItemTool classifies one path. The decision is an explicit two-path
// split: ask the model first, and on any model or parse failure fall through
// to the deterministic pattern rules. The fallback path is the one the tests
// pin down; the LLM path only ever narrows uncertainty.
type classifyItemTool struct {
	model    framework.LanguageModel
	settings *Settings
	log      zerolog.Logger
}

func (t *classifyItemTool) Name() string        { return "classify_item" }
func (t *classifyItemTool) Category() string    { return "classification" }
func (t *classifyItemTool) Description() string { return "Classify one filesystem artifact" }

func (t *classifyItemTool) Parameters() []framework.ToolParameter {
	return []framework.ToolParameter{
		{Name: "path", Type: "string", Description: "Path to classify", Required: true},
		{Name: "size_bytes", Type: "int", Description: "Known size in bytes", Required: false},
		{Name: "age_days", Type: "int", Description: "Known age in days", Required: false},
	}
}

func (t *classifyItemTool) Available(ctx context.Context, session *framework.Session) bool {
	return true
}

func (t *classifyItemTool) Execute(ctx context.Context, session *framework.Session, args map[string]any) (any, error) {
	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, fmt.Errorf("missing required argument %q", "path")
	}
	classification, err := t.tryLLMClassification(ctx, path, args)
	if err != nil {
		t.log.Warn().Err(err).Str("path", path).Msg("llm classification failed, using pattern fallback")
		classification = FallbackClassification(path, args)
	}
	return classificationMap(classification), nil
}

// tryLLMClassification asks the model for a structured judgement.
func (t *classifyItemTool) tryLLMClassification(ctx context.Context, path string, args map[string]any) (framework.Classification, error) {
	if t.model == nil {
		return framework.Classification{}, fmt.Errorf("no model configured")
	}
	prompt := fmt.Sprintf(`Classify this filesystem artifact for cleanup.
Path: %s
Known facts: %v
Respond with JSON: {"path": "...", "file_type": "...", "directory_type": "...",
"recommendation": "keep|delete|review", "confidence": "safe|likely_safe|uncertain",
"reasoning": "...", "is_regenerable": true|false}`, path, args)
	resp, err := t.model.Generate(ctx, prompt, &framework.LLMOptions{
		Model:       t.settings.Model,
		Temperature: t.settings.Temperature,
		MaxTokens:   400,
	})
	if err != nil {
		return framework.Classification{}, err
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(pattern.ExtractJSON(resp.Text)), &payload); err != nil {
		return framework.Classification{}, fmt.Errorf("unparseable classification: %w", err)
	}
	if _, ok := payload["path"]; !ok {
		payload["path"] = path
	}
	c, err := framework.ClassificationFromMap(payload)
	if err != nil {
		return framework.Classification{}, err
	}
	if sz := intFromArgs(args, "size_bytes"); sz > 0 && c.EstimatedSavingsBytes == 0 {
		c.EstimatedSavingsBytes = sz
	}
	return c, nil
}

// FallbackClassification is the deterministic pattern path. Exported so the
// validator tests and the classifier tests share one source of truth.
func FallbackClassification(path string, args map[string]any) framework.Classification {
	c := framework.Classification{
		Path:           path,
		Recommendation: framework.RecommendKeep,
		Confidence:     framework.ConfidenceUncertain,
		Reasoning:      "no matching cleanup pattern",
	}
	c.EstimatedSavingsBytes = intFromArgs(args, "size_bytes")

	base := filepath.Base(path)
	isDir := strings.HasSuffix(path, string(os.PathSeparator))
	if info, err := os.Stat(path); err == nil {
		isDir = info.IsDir()
		if c.EstimatedSavingsBytes == 0 && !isDir {
			c.EstimatedSavingsBytes = info.Size()
		}
	}

	if isDir {
		switch dirType := tools.DetectDirectoryType(base); dirType {
		case "node_modules", "venv":
			c.DirectoryType = dirType
			c.Recommendation = framework.RecommendDelete
			c.Confidence = framework.ConfidenceSafe
			c.IsRegenerable = true
			c.Reasoning = fmt.Sprintf("%s directories are regenerated by the package manager", dirType)
		case "cache_dir", "build_dir", "temp_dir":
			c.DirectoryType = dirType
			c.Recommendation = framework.RecommendDelete
			c.Confidence = framework.ConfidenceLikelySafe
			c.IsRegenerable = true
			c.Reasoning = fmt.Sprintf("%s contents are regenerated on demand", dirType)
		}
		return c
	}

	switch strings.ToLower(filepath.Ext(base)) {
	case ".dmg", ".pkg":
		c.FileType = "old_download"
		c.Recommendation = framework.RecommendDelete
		c.Confidence = framework.ConfidenceLikelySafe
		c.Reasoning = "installer images are redundant once the app is installed"
	case ".log":
		c.FileType = "log_file"
		c.Recommendation = framework.RecommendDelete
		c.Confidence = framework.ConfidenceLikelySafe
		c.Reasoning = "log files are append-only output, safe to remove when stale"
	}
	return c
}

// querySimilarDecisionsTool surfaces prior user decisions for similar paths.
// Hidden when no decision memory is configured.
type querySimilarDecisionsTool struct {
	memory framework.DecisionMemory
}

func (t *querySimilarDecisionsTool) Name() string        { return "query_similar_decisions" }
func (t *querySimilarDecisionsTool) Category() string    { return "memory" }
func (t *querySimilarDecisionsTool) Description() string {
	return "Look up past user decisions for similar paths"
}

func (t *querySimilarDecisionsTool) Parameters() []framework.ToolParameter {
	return []framework.ToolParameter{
		{Name: "path", Type: "string", Description: "Path to find precedents for", Required: true},
	}
}

func (t *querySimilarDecisionsTool) Available(ctx context.Context, session *framework.Session) bool {
	return t.memory != nil
}

func (t *querySimilarDecisionsTool) Execute(ctx context.Context, session *framework.Session, args map[string]any) (any, error) {
	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, fmt.Errorf("missing required argument %q", "path")
	}
	scored, err := t.memory.FindSimilar(ctx, path)
	if err != nil {
		return nil, err
	}
	decisions := make([]map[string]any, 0, len(scored))
	for _, s := range scored {
		decisions = append(decisions, map[string]any{
			"pattern":       s.Entry.PathPattern,
			"decision":      s.Entry.UserDecision,
			"approval_rate": s.Entry.ApprovalRate(),
			"score":         s.Score,
			"strategy":      s.Strategy,
		})
	}
	return map[string]any{"path": path, "decisions": decisions}, nil
}

// classificationMap flattens a Classification for observation transport.
func classificationMap(c framework.Classification) map[string]any {
	return map[string]any{
		"path":                    c.Path,
		"file_type":               c.FileType,
		"directory_type":          c.DirectoryType,
		"recommendation":          string(c.Recommendation),
		"confidence":              string(c.Confidence),
		"reasoning":               c.Reasoning,
		"estimated_savings_bytes": c.EstimatedSavingsBytes,
		"is_regenerable":          c.IsRegenerable,
		"dependencies":            c.Dependencies,
		"risks":                   c.Risks,
	}
}

func intFromArgs(args map[string]any, key string) int64 {
	switch v := args[key].(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	default:
		return 0
	}
}
