package tools

import (
	"context"

	"github.com/lexcodex/reliquary/framework"
)

// FinishTool is the conventional terminal action. It echoes its arguments
// back as the observation result, so finish(findings) leaves the findings in
// history for the result compiler to pick up.
type FinishTool struct {
	Desc string
}

func (t *FinishTool) Name() string     { return "finish" }
func (t *FinishTool) Category() string { return "terminal" }

func (t *FinishTool) Description() string {
	if t.Desc != "" {
		return t.Desc
	}
	return "Finish the task, passing the final payload"
}

func (t *FinishTool) Parameters() []framework.ToolParameter {
	return []framework.ToolParameter{
		{Name: "items", Type: "object", Description: "Final payload", Required: false},
	}
}

func (t *FinishTool) Available(ctx context.Context, session *framework.Session) bool { return true }

func (t *FinishTool) Execute(ctx context.Context, session *framework.Session, args map[string]any) (any, error) {
	return args, nil
}
