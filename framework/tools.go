package framework

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Tool defines a capability invokable by agents. Execute may return any
// JSON-serializable value; the registry normalizes non-mapping results before
// they reach an observation. Available lets a tool hide itself based on
// session state (for example, analysis tools before any scan has succeeded);
// the registry re-evaluates it on every lookup, never caching the answer.
type Tool interface {
	Name() string
	Description() string
	Category() string
	Parameters() []ToolParameter
	Execute(ctx context.Context, session *Session, args map[string]any) (any, error)
	Available(ctx context.Context, session *Session) bool
}

// ToolParameter describes an argument the tool accepts.
type ToolParameter struct {
	Name        string
	Type        string
	Description string
	Required    bool
	Default     any
}

// ToolRegistry maps names to tools. Registration is static; visibility is
// not, so callers must always resolve through Available/Invoke with the live
// session rather than holding onto a tool list.
type ToolRegistry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewToolRegistry builds an empty registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: make(map[string]Tool)}
}

// Register adds a tool.
func (r *ToolRegistry) Register(tool Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[tool.Name()]; exists {
		return fmt.Errorf("tool %s already registered", tool.Name())
	}
	r.tools[tool.Name()] = tool
	return nil
}

// Get fetches a registered tool regardless of availability.
func (r *ToolRegistry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// Available returns the tools currently visible for the session.
func (r *ToolRegistry) Available(ctx context.Context, session *Session) []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		if t.Available(ctx, session) {
			res = append(res, t)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name() < res[j].Name() })
	return res
}

// AvailableNames returns the sorted names visible for the session.
func (r *ToolRegistry) AvailableNames(ctx context.Context, session *Session) []string {
	tools := r.Available(ctx, session)
	names := make([]string, 0, len(tools))
	for _, t := range tools {
		names = append(names, t.Name())
	}
	return names
}

// Invoke resolves name against the currently available set and executes the
// tool. An unknown or hidden name yields a ToolNotFoundError listing the
// valid names at call time. A tool failure is wrapped as ToolExecutionError.
// Non-mapping results are wrapped under the "result" key so observations stay
// uniform.
func (r *ToolRegistry) Invoke(ctx context.Context, session *Session, name string, args map[string]any) (map[string]any, error) {
	tool, ok := r.Get(name)
	if !ok || !tool.Available(ctx, session) {
		return nil, &ToolNotFoundError{Name: name, Available: r.AvailableNames(ctx, session)}
	}
	if args == nil {
		args = map[string]any{}
	}
	value, err := tool.Execute(ctx, session, args)
	if err != nil {
		return nil, &ToolExecutionError{Tool: name, Err: err}
	}
	return WrapResult(value), nil
}

// WrapResult normalizes a tool return value into a mapping.
func WrapResult(value any) map[string]any {
	switch v := value.(type) {
	case nil:
		return map[string]any{}
	case map[string]any:
		return v
	default:
		return map[string]any{"result": v}
	}
}
