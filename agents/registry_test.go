package agents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexcodex/reliquary/framework"
)

type namedAgent struct{ name string }

func (a *namedAgent) Name() string { return a.name }

func (a *namedAgent) Execute(ctx context.Context, task *framework.Task, session *framework.Session) (*framework.AgentResult, error) {
	return &framework.AgentResult{Success: true}, nil
}

func TestRegistryRegisterAndLookup(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(&namedAgent{name: "Scanner"}))
	require.NoError(t, reg.Register(&namedAgent{name: "Classifier"}))

	agent, ok := reg.Lookup("Scanner")
	require.True(t, ok)
	assert.Equal(t, "Scanner", agent.Name())

	_, ok = reg.Lookup("Ghost")
	assert.False(t, ok)
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(&namedAgent{name: "Scanner"}))
	assert.Error(t, reg.Register(&namedAgent{name: "Scanner"}))
}

func TestRegistryNamesSorted(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(&namedAgent{name: "zeta"}))
	require.NoError(t, reg.Register(&namedAgent{name: "alpha"}))
	assert.Equal(t, []string{"alpha", "zeta"}, reg.Names())
}
