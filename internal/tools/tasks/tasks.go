// Package tasks implements the mutating task tools: add-task, update-task,
// complete-task, delete-task, reopen-task.
package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/taskmill/mcp-tasks/internal/engine"
	"github.com/taskmill/mcp-tasks/internal/mcp"
	"github.com/taskmill/mcp-tasks/internal/task"
	"github.com/taskmill/mcp-tasks/internal/taskerr"
	"github.com/taskmill/mcp-tasks/internal/tools/reply"
)

// --- add-task ---

type addParams struct {
	Category    string          `json:"category"`
	Title       string          `json:"title"`
	Type        string          `json:"type,omitempty"`
	Description string          `json:"description,omitempty"`
	Design      string          `json:"design,omitempty"`
	ParentID    *int            `json:"parent-id,omitempty"`
	Relations   []task.Relation `json:"relations,omitempty"`
}

type Add struct {
	engine *engine.Engine
}

func NewAdd(e *engine.Engine) *Add { return &Add{engine: e} }

func (t *Add) Name() string { return "add-task" }
func (t *Add) Description() string {
	return "Create a new task. Assigns the next id, defaults type to 'task' and status to 'open'. A parent-id must reference an existing story. Relations may declare blocked-by, related, or discovered-during links to existing tasks."
}
func (t *Add) InputSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "category": {"type": "string", "description": "Free-form grouping label"},
    "title": {"type": "string", "description": "Short task title"},
    "type": {"type": "string", "enum": ["task", "bug", "feature", "story", "chore"], "description": "Task type (default: task)"},
    "description": {"type": "string", "description": "What needs doing"},
    "design": {"type": "string", "description": "How it should be done"},
    "parent-id": {"type": "integer", "description": "Id of the parent story"},
    "relations": {
      "type": "array",
      "description": "Typed links to existing tasks",
      "items": {
        "type": "object",
        "properties": {
          "id": {"type": "integer", "description": "Positional tag within this task"},
          "relates-to": {"type": "integer", "description": "Target task id"},
          "as-type": {"type": "string", "enum": ["blocked-by", "related", "discovered-during"]}
        },
        "required": ["id", "relates-to", "as-type"]
      }
    }
  },
  "required": ["category", "title"]
}`)
}

func (t *Add) Execute(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p addParams
	if err := json.Unmarshal(params, &p); err != nil {
		return mcp.ErrorResult(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	if p.Title == "" {
		return mcp.ErrorResult("title is required"), nil
	}

	res, terr := t.engine.AddTask(ctx, engine.AddParams{
		Category:    p.Category,
		Title:       p.Title,
		Type:        p.Type,
		Description: p.Description,
		Design:      p.Design,
		ParentID:    p.ParentID,
		Relations:   p.Relations,
	})
	if terr != nil {
		return reply.FromError(terr), nil
	}
	return reply.FromResult(res)
}

// --- update-task ---

type Update struct {
	engine *engine.Engine
}

func NewUpdate(e *engine.Engine) *Update { return &Update{engine: e} }

func (t *Update) Name() string { return "update-task" }
func (t *Update) Description() string {
	return "Update fields of an existing task. Provided fields replace the stored value whole; meta and relations set to null clear to empty; shared-context and session-events entries are appended, never replaced. Empty strings leave a field untouched."
}
func (t *Update) InputSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "task-id": {"type": "integer", "description": "Id of the task to update"},
    "title": {"type": "string"},
    "description": {"type": "string"},
    "design": {"type": "string"},
    "category": {"type": "string"},
    "type": {"type": "string", "enum": ["task", "bug", "feature", "story", "chore"]},
    "status": {"type": "string", "enum": ["open", "in-progress", "blocked", "closed", "deleted"]},
    "parent-id": {"type": ["integer", "null"], "description": "New parent story id; null detaches"},
    "meta": {"type": ["object", "null"], "description": "String-to-string map; replaces the stored map, null clears"},
    "relations": {
      "type": ["array", "null"],
      "description": "Replaces the stored relations, null clears",
      "items": {
        "type": "object",
        "properties": {
          "id": {"type": "integer"},
          "relates-to": {"type": "integer"},
          "as-type": {"type": "string", "enum": ["blocked-by", "related", "discovered-during"]}
        },
        "required": ["id", "relates-to", "as-type"]
      }
    },
    "shared-context": {"type": "array", "items": {"type": "string"}, "description": "Entries to append to the story's shared context"},
    "session-events": {
      "type": "array",
      "description": "Events to append; a missing timestamp is filled with the current time",
      "items": {
        "type": "object",
        "properties": {
          "event-type": {"type": "string", "enum": ["user-prompt", "session-start", "session-end", "compaction"]},
          "timestamp": {"type": "string"}
        },
        "required": ["event-type"]
      }
    },
    "code-reviewed": {"type": "string", "description": "ISO-8601 review timestamp"},
    "pr-num": {"type": "integer"}
  },
  "required": ["task-id"]
}`)
}

func (t *Update) Execute(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
	// Field presence matters here: an absent meta leaves the map alone while
	// an explicit null clears it. Decode to raw fields first.
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(params, &raw); err != nil {
		return mcp.ErrorResult(fmt.Sprintf("invalid parameters: %v", err)), nil
	}

	p := engine.UpdateParams{}
	if terr := decodeUpdate(raw, &p); terr != nil {
		return reply.FromError(terr), nil
	}
	if p.TaskID == 0 {
		return mcp.ErrorResult("task-id is required"), nil
	}

	res, terr := t.engine.UpdateTask(ctx, p)
	if terr != nil {
		return reply.FromError(terr), nil
	}
	return reply.FromResult(res)
}

func decodeUpdate(raw map[string]json.RawMessage, p *engine.UpdateParams) *taskerr.Error {
	get := func(key string, dst any) *taskerr.Error {
		v, ok := raw[key]
		if !ok || string(v) == "null" {
			return nil
		}
		if err := json.Unmarshal(v, dst); err != nil {
			return taskerr.New(taskerr.KindInvalidInput, "invalid %s: %v", key, err)
		}
		return nil
	}

	if terr := get("task-id", &p.TaskID); terr != nil {
		return terr
	}
	for key, dst := range map[string]**string{
		"title":         &p.Title,
		"description":   &p.Description,
		"design":        &p.Design,
		"category":      &p.Category,
		"type":          &p.Type,
		"status":        &p.Status,
		"code-reviewed": &p.CodeReviewed,
	} {
		if terr := get(key, dst); terr != nil {
			return terr
		}
	}
	if terr := get("pr-num", &p.PRNum); terr != nil {
		return terr
	}

	if v, ok := raw["parent-id"]; ok {
		if string(v) == "null" {
			p.ParentIDNull = true
		} else if terr := get("parent-id", &p.ParentID); terr != nil {
			return terr
		}
	}

	if v, ok := raw["meta"]; ok {
		p.MetaSet = true
		if string(v) == "null" {
			p.MetaNull = true
		} else {
			var m map[string]any
			if err := json.Unmarshal(v, &m); err != nil {
				return taskerr.New(taskerr.KindInvalidInput, "invalid meta: %v", err)
			}
			coerced, terr := coerceMeta(m)
			if terr != nil {
				return terr
			}
			p.Meta = coerced
		}
	}

	if v, ok := raw["relations"]; ok {
		p.RelationsSet = true
		if string(v) == "null" {
			p.RelationsNull = true
		} else if err := json.Unmarshal(v, &p.Relations); err != nil {
			return taskerr.New(taskerr.KindInvalidInput, "invalid relations: %v", err)
		}
	}

	if terr := get("shared-context", &p.SharedContext); terr != nil {
		return terr
	}
	if terr := get("session-events", &p.SessionEvents); terr != nil {
		return terr
	}
	return nil
}

// coerceMeta flattens scalar values to strings and rejects everything else.
func coerceMeta(in map[string]any) (map[string]string, *taskerr.Error) {
	out := make(map[string]string, len(in))
	for k, v := range in {
		switch val := v.(type) {
		case string:
			out[k] = val
		case float64:
			out[k] = strconv.FormatFloat(val, 'f', -1, 64)
		case bool:
			out[k] = strconv.FormatBool(val)
		default:
			return nil, taskerr.New(taskerr.KindInvalidInput, "meta value for %q must be a string", k).
				With("key", k)
		}
	}
	return out, nil
}

// --- complete-task ---

type completeParams struct {
	TaskID            *int   `json:"task-id,omitempty"`
	Title             string `json:"title,omitempty"`
	CompletionComment string `json:"completion-comment,omitempty"`
}

type Complete struct {
	engine *engine.Engine
}

func NewComplete(e *engine.Engine) *Complete { return &Complete{engine: e} }

func (t *Complete) Name() string { return "complete-task" }
func (t *Complete) Description() string {
	return "Close a task by id, by unique title, or both in agreement. Regular tasks are archived to complete.ednl; story children stay put until their story archives; a story archives itself and all children atomically once every child is closed or deleted."
}
func (t *Complete) InputSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "task-id": {"type": "integer", "description": "Id of the task to complete"},
    "title": {"type": "string", "description": "Exact title; must be unique among live tasks"},
    "completion-comment": {"type": "string", "description": "Appended to the task description"}
  }
}`)
}

func (t *Complete) Execute(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p completeParams
	if err := json.Unmarshal(params, &p); err != nil {
		return mcp.ErrorResult(fmt.Sprintf("invalid parameters: %v", err)), nil
	}

	res, terr := t.engine.CompleteTask(ctx, engine.CompleteParams{
		TaskID:            p.TaskID,
		Title:             p.Title,
		CompletionComment: p.CompletionComment,
	})
	if terr != nil {
		return reply.FromError(terr), nil
	}
	return reply.FromResult(res)
}

// --- delete-task ---

type idParams struct {
	TaskID int `json:"task-id"`
}

type Delete struct {
	engine *engine.Engine
}

func NewDelete(e *engine.Engine) *Delete { return &Delete{engine: e} }

func (t *Delete) Name() string { return "delete-task" }
func (t *Delete) Description() string {
	return "Mark a task deleted and archive it. Fails when any child is still open or in progress. Deleted tasks never transition again."
}
func (t *Delete) InputSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "task-id": {"type": "integer", "description": "Id of the task to delete"}
  },
  "required": ["task-id"]
}`)
}

func (t *Delete) Execute(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p idParams
	if err := json.Unmarshal(params, &p); err != nil {
		return mcp.ErrorResult(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	if p.TaskID == 0 {
		return mcp.ErrorResult("task-id is required"), nil
	}

	res, terr := t.engine.DeleteTask(ctx, p.TaskID)
	if terr != nil {
		return reply.FromError(terr), nil
	}
	return reply.FromResult(res)
}

// --- reopen-task ---

type Reopen struct {
	engine *engine.Engine
}

func NewReopen(e *engine.Engine) *Reopen { return &Reopen{engine: e} }

func (t *Reopen) Name() string { return "reopen-task" }
func (t *Reopen) Description() string {
	return "Set a closed task back to open, moving it out of the archive file if needed. Open tasks are rejected; deleted tasks cannot be reopened."
}
func (t *Reopen) InputSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "task-id": {"type": "integer", "description": "Id of the task to reopen"}
  },
  "required": ["task-id"]
}`)
}

func (t *Reopen) Execute(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p idParams
	if err := json.Unmarshal(params, &p); err != nil {
		return mcp.ErrorResult(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	if p.TaskID == 0 {
		return mcp.ErrorResult("task-id is required"), nil
	}

	res, terr := t.engine.ReopenTask(ctx, p.TaskID)
	if terr != nil {
		return reply.FromError(terr), nil
	}
	return reply.FromResult(res)
}
