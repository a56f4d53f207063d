package agents

import (
	"github.com/rs/zerolog"

	"github.com/lexcodex/reliquary/agents/pattern"
	"github.com/lexcodex/reliquary/framework"
	"github.com/lexcodex/reliquary/tools"
)

const discoveryPrompt = `You are a filesystem discovery agent. Find large, old, likely-redundant
artifacts (dependency dirs, caches, build output, stale downloads) under the target path.
Scan first, analyse promising directories, then call finish with a "findings" list where each
finding has path, size_bytes, age_days and a short note.`

// NewDiscoveryAgent builds the ReAct agent that excavates candidate
// artifacts. Analysis tooling only becomes visible after the first successful
// scan; the registry re-checks availability every iteration.
func NewDiscoveryAgent(model framework.LanguageModel, settings *Settings, log zerolog.Logger) *pattern.ReActLoop {
	registry := framework.NewToolRegistry()
	for _, tool := range []framework.Tool{
		&tools.ScanDirectoryTool{DefaultMinSizeMB: 100},
		&tools.AnalyseDirectoryTool{},
		&tools.DiskUsageTool{},
		&tools.FileAgeTool{},
		&tools.FinishTool{Desc: "Finish discovery, passing the findings list"},
	} {
		if err := registry.Register(tool); err != nil {
			log.Error().Err(err).Msg("discovery tool registration failed")
		}
	}

	provider := &pattern.LLMThoughtProvider{
		Model:        model,
		Tools:        registry,
		SystemPrompt: discoveryPrompt,
		Options: &framework.LLMOptions{
			Model:       settings.Model,
			Temperature: settings.Temperature,
			MaxTokens:   800,
		},
		Log: log,
	}
	loop := pattern.NewReActLoop("DiscoveryAgent", provider, registry, settings.MaxIterations, log)
	loop.Compiler = &discoveryCompiler{}
	return loop
}

// discoveryCompiler lifts the finish payload's findings into the result's
// discoveries field.
type discoveryCompiler struct{}

func (c *discoveryCompiler) Compile(session *framework.Session, history *framework.History, status framework.LoopStatus) *framework.AgentResult {
	result := (&pattern.FinishCompiler{}).Compile(session, history, status)
	findings := []any{}
	if obs, ok := history.FindObservation(pattern.FinishAction); ok {
		if raw, ok := obs.Result["findings"]; ok {
			if list, ok := raw.([]any); ok {
				findings = list
			}
		} else if raw, ok := obs.Result["items"]; ok {
			// array-coerced finish payload
			if list, ok := raw.([]any); ok {
				findings = list
			}
		}
	}
	result.Data = map[string]any{"discoveries": findings}
	return result
}
