package engine

import (
	"context"
	"fmt"

	"github.com/taskmill/mcp-tasks/internal/store"
	"github.com/taskmill/mcp-tasks/internal/task"
	"github.com/taskmill/mcp-tasks/internal/taskerr"
)

// DeleteTask marks a task deleted and archives it. Tasks with unsettled
// children cannot be deleted; settled children of a deleted story are
// archived with it.
func (e *Engine) DeleteTask(ctx context.Context, taskID int) (*Result, *taskerr.Error) {
	return e.mutate(ctx, func(st *store.Store) (*Result, string, *taskerr.Error) {
		t, found := st.ByID(taskID)
		if !found {
			return nil, "", taskerr.New(taskerr.KindNotFound, "task %d not found", taskID).
				With("task-id", taskID)
		}
		if t.Status == task.StatusDeleted {
			return nil, "", taskerr.New(taskerr.KindState, "task %d is already deleted", taskID).
				With("task-id", taskID)
		}

		children := st.ChildrenOf(taskID)
		var open []int
		for _, cid := range children {
			c, _ := st.ByID(cid)
			if c != nil && !c.Settled() {
				open = append(open, cid)
			}
		}
		if len(open) > 0 {
			return nil, "", taskerr.New(taskerr.KindState, "Cannot delete task with children").
				With("task-id", taskID).
				With("non-closed-children", open)
		}

		t.Status = task.StatusDeleted
		if _, live := st.Live(taskID); live {
			if err := st.Archive(taskID); err != nil {
				return nil, "", taskerr.New(taskerr.KindState, "%v", err)
			}
		}
		for _, cid := range children {
			if !st.Archived(cid) {
				if err := st.Archive(cid); err != nil {
					return nil, "", taskerr.New(taskerr.KindState, "%v", err)
				}
			}
		}

		res := &Result{
			Message: fmt.Sprintf("Deleted task #%d: %s", t.ID, t.Title),
			Data: map[string]any{
				"deleted": t.Clone(),
				"metadata": map[string]any{
					"count":  1,
					"status": "deleted",
				},
			},
		}
		return res, commitDelete(t.ID, t.Title), nil
	})
}
