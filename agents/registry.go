package agents

import (
	"fmt"
	"sort"
	"sync"

	"github.com/lexcodex/reliquary/framework"
)

// Registry is the name→agent dispatch table the supervisor resolves steps
// against.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]framework.Agent
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{agents: make(map[string]framework.Agent)}
}

// Register adds an agent under its own name.
func (r *Registry) Register(agent framework.Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.agents[agent.Name()]; exists {
		return fmt.Errorf("agent %s already registered", agent.Name())
	}
	r.agents[agent.Name()] = agent
	return nil
}

// Lookup implements pattern.AgentDirectory.
func (r *Registry) Lookup(name string) (framework.Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	agent, ok := r.agents[name]
	return agent, ok
}

// Names returns the registered agent names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.agents))
	for name := range r.agents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
