// Package query implements the read-only select-tasks tool.
package query

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/taskmill/mcp-tasks/internal/engine"
	"github.com/taskmill/mcp-tasks/internal/mcp"
	"github.com/taskmill/mcp-tasks/internal/query"
	"github.com/taskmill/mcp-tasks/internal/tools/reply"
)

type selectParams struct {
	TaskID       *int   `json:"task-id,omitempty"`
	ParentID     *int   `json:"parent-id,omitempty"`
	Category     string `json:"category,omitempty"`
	Type         string `json:"type,omitempty"`
	Status       string `json:"status,omitempty"`
	TitlePattern string `json:"title-pattern,omitempty"`
	Limit        *int   `json:"limit,omitempty"`
	Unique       bool   `json:"unique,omitempty"`
}

type Select struct {
	engine *engine.Engine
}

func NewSelect(e *engine.Engine) *Select { return &Select{engine: e} }

func (t *Select) Name() string { return "select-tasks" }
func (t *Select) Description() string {
	return "Filter tasks by id, parent, category, type, status (default: open), or exact title. Returns at most 'limit' tasks (default 5) plus match-set metadata; tasks with blocked-by relations are annotated with their blocked status."
}
func (t *Select) InputSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "task-id": {"type": "integer", "description": "Exact task id"},
    "parent-id": {"type": "integer", "description": "Restrict to children of this story; adds completed-task-count to the metadata"},
    "category": {"type": "string"},
    "type": {"type": "string", "enum": ["task", "bug", "feature", "story", "chore"]},
    "status": {"type": "string", "enum": ["open", "in-progress", "blocked", "closed", "deleted"], "description": "Default: open (ignored when task-id is given)"},
    "title-pattern": {"type": "string", "description": "Exact title match"},
    "limit": {"type": "integer", "description": "Max tasks to return (default 5)"},
    "unique": {"type": "boolean", "description": "Require exactly one match"}
  }
}`)
}

func (t *Select) Execute(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p selectParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return mcp.ErrorResult(fmt.Sprintf("invalid parameters: %v", err)), nil
		}
	}

	qp := query.Params{
		TaskID:       p.TaskID,
		ParentID:     p.ParentID,
		Category:     p.Category,
		Type:         p.Type,
		Status:       p.Status,
		TitlePattern: p.TitlePattern,
		Unique:       p.Unique,
	}
	if p.Limit != nil {
		if *p.Limit <= 0 {
			return mcp.ErrorResult("limit must be positive"), nil
		}
		qp.Limit = *p.Limit
	}

	st, terr := t.engine.Snapshot()
	if terr != nil {
		return reply.FromError(terr), nil
	}
	sel, terr := query.SelectTasks(st, qp)
	if terr != nil {
		return reply.FromError(terr), nil
	}
	return mcp.JSONResult(sel)
}
