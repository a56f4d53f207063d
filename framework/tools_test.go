package framework

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTool struct {
	name      string
	available bool
	result    any
	err       error
	calls     int
}

func (t *fakeTool) Name() string                { return t.name }
func (t *fakeTool) Description() string         { return "fake" }
func (t *fakeTool) Category() string            { return "test" }
func (t *fakeTool) Parameters() []ToolParameter { return nil }

func (t *fakeTool) Available(ctx context.Context, session *Session) bool { return t.available }

func (t *fakeTool) Execute(ctx context.Context, session *Session, args map[string]any) (any, error) {
	t.calls++
	return t.result, t.err
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	reg := NewToolRegistry()
	require.NoError(t, reg.Register(&fakeTool{name: "x", available: true}))
	assert.Error(t, reg.Register(&fakeTool{name: "x", available: true}))
}

func TestAvailableNamesAreSortedAndFiltered(t *testing.T) {
	reg := NewToolRegistry()
	require.NoError(t, reg.Register(&fakeTool{name: "zeta", available: true}))
	require.NoError(t, reg.Register(&fakeTool{name: "alpha", available: true}))
	require.NoError(t, reg.Register(&fakeTool{name: "hidden", available: false}))

	names := reg.AvailableNames(context.Background(), NewSession())
	assert.Equal(t, []string{"alpha", "zeta"}, names)
}

func TestInvokeHiddenToolReturnsNotFound(t *testing.T) {
	reg := NewToolRegistry()
	require.NoError(t, reg.Register(&fakeTool{name: "secret", available: false}))
	require.NoError(t, reg.Register(&fakeTool{name: "visible", available: true}))

	_, err := reg.Invoke(context.Background(), NewSession(), "secret", nil)
	var notFound *ToolNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "secret", notFound.Name)
	assert.Equal(t, []string{"visible"}, notFound.Available)
}

func TestInvokeWrapsToolError(t *testing.T) {
	reg := NewToolRegistry()
	cause := errors.New("underlying")
	require.NoError(t, reg.Register(&fakeTool{name: "fail", available: true, err: cause}))

	_, err := reg.Invoke(context.Background(), NewSession(), "fail", map[string]any{})
	var execErr *ToolExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, "fail", execErr.Tool)
	assert.ErrorIs(t, err, cause)
}

func TestInvokeNormalizesResults(t *testing.T) {
	reg := NewToolRegistry()
	require.NoError(t, reg.Register(&fakeTool{name: "scalar", available: true, result: 42}))
	require.NoError(t, reg.Register(&fakeTool{name: "mapping", available: true, result: map[string]any{"k": "v"}}))
	require.NoError(t, reg.Register(&fakeTool{name: "none", available: true, result: nil}))

	session := NewSession()
	out, err := reg.Invoke(context.Background(), session, "scalar", nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"result": 42}, out)

	out, err = reg.Invoke(context.Background(), session, "mapping", nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"k": "v"}, out)

	out, err = reg.Invoke(context.Background(), session, "none", nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestInvokeDefaultsNilArgs(t *testing.T) {
	reg := NewToolRegistry()
	tool := &fakeTool{name: "t", available: true, result: map[string]any{}}
	require.NoError(t, reg.Register(tool))

	_, err := reg.Invoke(context.Background(), NewSession(), "t", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, tool.calls)
}
