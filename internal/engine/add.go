package engine

import (
	"context"
	"fmt"

	"github.com/taskmill/mcp-tasks/internal/store"
	"github.com/taskmill/mcp-tasks/internal/task"
	"github.com/taskmill/mcp-tasks/internal/taskerr"
	"github.com/taskmill/mcp-tasks/internal/validation"
)

// AddParams are the add-task inputs.
type AddParams struct {
	Category    string
	Title       string
	Type        string
	Description string
	Design      string
	ParentID    *int
	Relations   []task.Relation
}

// AddTask creates a new task with the next id and appends it to the live
// file.
func (e *Engine) AddTask(ctx context.Context, p AddParams) (*Result, *taskerr.Error) {
	return e.mutate(ctx, func(st *store.Store) (*Result, string, *taskerr.Error) {
		typ := task.Type(p.Type)
		if p.Type == "" {
			typ = task.TypeTask
		}

		t := &task.Task{
			ID:          st.NextID(),
			ParentID:    p.ParentID,
			Title:       p.Title,
			Description: p.Description,
			Design:      p.Design,
			Category:    p.Category,
			Type:        typ,
			Status:      task.StatusOpen,
			Meta:        map[string]string{},
			Relations:   p.Relations,
		}
		if t.Relations == nil {
			t.Relations = []task.Relation{}
		}

		if terr := validation.CheckTask(st, t); terr != nil {
			return nil, "", terr
		}
		if terr := validation.CheckTaskCycles(st, t); terr != nil {
			return nil, "", terr
		}

		st.Add(t)
		res := &Result{
			Message: fmt.Sprintf("Created task #%d: %s", t.ID, t.Title),
			Data:    t.Clone(),
		}
		return res, commitAdd(t.ID, t.Title), nil
	})
}
