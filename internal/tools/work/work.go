// Package work implements the work-on tool.
package work

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/taskmill/mcp-tasks/internal/engine"
	"github.com/taskmill/mcp-tasks/internal/mcp"
	"github.com/taskmill/mcp-tasks/internal/tools/reply"
)

type workParams struct {
	TaskID int `json:"task-id"`
}

type WorkOn struct {
	engine *engine.Engine
}

func NewWorkOn(e *engine.Engine) *WorkOn { return &WorkOn{engine: e} }

func (t *WorkOn) Name() string { return "work-on" }
func (t *WorkOn) Description() string {
	return "Mark a task as the one currently being worked on. Writes the execution-state file and, when branch or worktree management is enabled, puts the working copy on the task's branch, creating the per-story worktree if needed."
}
func (t *WorkOn) InputSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "task-id": {"type": "integer", "description": "Id of the task to start working on"}
  },
  "required": ["task-id"]
}`)
}

func (t *WorkOn) Execute(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p workParams
	if err := json.Unmarshal(params, &p); err != nil {
		return mcp.ErrorResult(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	if p.TaskID == 0 {
		return mcp.ErrorResult("task-id is required"), nil
	}

	res, terr := t.engine.WorkOn(ctx, p.TaskID)
	if terr != nil {
		return reply.FromError(terr), nil
	}
	return reply.FromResult(res)
}
