package agents

import (
	"github.com/rs/zerolog"

	"github.com/lexcodex/reliquary/agents/pattern"
	"github.com/lexcodex/reliquary/framework"
)

// Memory bundles the two memory contracts the pipeline consumes. The SQLite
// store satisfies both; passing nil simply hides the memory-backed tools.
type Memory interface {
	framework.DecisionMemory
	framework.ReflectionMemory
}

// NewOrchestrator wires the excavation pipeline: a static
// discovery→classification→reflection→validation plan supervised with the
// midpoint replanning policy, plus the merge rules that fold each step's
// loosely-typed payload into the session.
func NewOrchestrator(model framework.LanguageModel, memory Memory, settings *Settings, log zerolog.Logger) (*pattern.Supervisor, error) {
	registry := NewRegistry()

	var decisionMemory framework.DecisionMemory
	var reflectionMemory framework.ReflectionMemory
	if memory != nil {
		decisionMemory = memory
		reflectionMemory = memory
	}

	subAgents := []framework.Agent{
		NewDiscoveryAgent(model, settings, log),
		NewClassifierAgent(model, decisionMemory, settings, log),
		&ValidatorAgent{Log: log},
	}
	if settings.EnableReflection {
		subAgents = append(subAgents, NewReflectionAgent(model, reflectionMemory, settings, log))
	}
	for _, agent := range subAgents {
		if err := registry.Register(agent); err != nil {
			return nil, err
		}
	}

	planner := &pattern.StaticPlanner{
		Build: func() []*framework.PlanStep {
			steps := []*framework.PlanStep{
				{ID: "discovery", AgentName: "DiscoveryAgent", Description: "Discover large, stale filesystem artifacts"},
				{ID: "classification", AgentName: "ClassifierAgent", Description: "Classify discovered artifacts", Dependencies: []string{"discovery"}},
			}
			if settings.EnableReflection {
				steps = append(steps, &framework.PlanStep{
					ID: "reflection", AgentName: "ReflectionAgent",
					Description:  "Critique classifications for missed risks",
					Dependencies: []string{"classification"},
				})
			}
			steps = append(steps, &framework.PlanStep{
				ID: "validation", AgentName: "ValidatorAgent",
				Description:  "Validate deletions against safety rules",
				Dependencies: []string{"classification"},
			})
			return steps
		},
	}

	return &pattern.Supervisor{
		SupervisorName: "Orchestrator",
		Planner:        planner,
		Agents:         registry,
		Merge:          mergeStepResult(log),
		Log:            log,
	}, nil
}

// mergeStepResult installs the per-agent merge rules. Loosely-typed payload
// entries that fail conversion are logged and skipped, never fatal to the
// step.
func mergeStepResult(log zerolog.Logger) pattern.MergeFunc {
	return func(session *framework.Session, step *framework.PlanStep, result *framework.AgentResult) {
		switch step.AgentName {
		case "DiscoveryAgent":
			for _, raw := range anySlice(result.Data["discoveries"]) {
				if m, ok := raw.(map[string]any); ok {
					session.AppendDiscoveries(m)
				} else {
					session.AppendDiscoveries(map[string]any{"finding": raw})
				}
			}
			session.Set("discoveries", session.Discoveries())

		case "ClassifierAgent":
			for _, raw := range anySlice(result.Data["classifications"]) {
				m, ok := raw.(map[string]any)
				if !ok {
					log.Warn().Interface("entry", raw).Msg("classification payload is not an object, skipped")
					continue
				}
				c, err := framework.ClassificationFromMap(m)
				if err != nil {
					log.Warn().Err(err).Msg("classification conversion failed, skipped")
					continue
				}
				session.AppendClassifications(c)
			}
			session.Set("classifications", session.Classifications())

		case "ReflectionAgent":
			critiques := make([]framework.Critique, 0)
			for _, raw := range anySlice(result.Data["critiques"]) {
				m, ok := raw.(map[string]any)
				if !ok {
					log.Warn().Interface("entry", raw).Msg("critique payload is not an object, skipped")
					continue
				}
				cr, err := framework.CritiqueFromMap(m)
				if err != nil {
					log.Warn().Err(err).Msg("critique conversion failed, skipped")
					continue
				}
				critiques = append(critiques, cr)
			}
			session.AppendCritiques(critiques...)
			applyCritiques(session, critiques)
			session.Set("critiques", session.Critiques())

		case "ValidatorAgent":
			session.Set("validation", result.Data)
		}
	}
}

// applyCritiques folds accepted critiques back onto matching classifications.
func applyCritiques(session *framework.Session, critiques []framework.Critique) {
	if len(critiques) == 0 {
		return
	}
	byPath := make(map[string]framework.Critique, len(critiques))
	for _, cr := range critiques {
		byPath[cr.ClassificationPath] = cr
	}
	classifications := session.Classifications()
	for i := range classifications {
		cr, ok := byPath[classifications[i].Path]
		if !ok {
			continue
		}
		if cr.SuggestedConfidence != "" {
			classifications[i].Confidence = cr.SuggestedConfidence
		}
		classifications[i].Risks = append(classifications[i].Risks, cr.AdditionalRisks...)
	}
	session.ReplaceClassifications(classifications)
}

func anySlice(v any) []any {
	switch list := v.(type) {
	case []any:
		return list
	case []map[string]any:
		out := make([]any, 0, len(list))
		for _, m := range list {
			out = append(out, m)
		}
		return out
	default:
		return nil
	}
}
