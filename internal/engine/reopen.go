package engine

import (
	"context"
	"fmt"

	"github.com/taskmill/mcp-tasks/internal/store"
	"github.com/taskmill/mcp-tasks/internal/task"
	"github.com/taskmill/mcp-tasks/internal/taskerr"
	"github.com/taskmill/mcp-tasks/internal/validation"
)

// ReopenTask sets a closed task back to open, moving it out of the archive
// file when needed. Deleted tasks stay deleted.
func (e *Engine) ReopenTask(ctx context.Context, taskID int) (*Result, *taskerr.Error) {
	return e.mutate(ctx, func(st *store.Store) (*Result, string, *taskerr.Error) {
		t, found := st.ByID(taskID)
		if !found {
			return nil, "", taskerr.New(taskerr.KindNotFound, "task %d not found", taskID).
				With("task-id", taskID)
		}
		if t.Status == task.StatusOpen {
			return nil, "", taskerr.New(taskerr.KindState, "task %d is already open", taskID).
				With("task-id", taskID)
		}
		if terr := validation.CheckStatusChange(t.Status, task.StatusOpen); terr != nil {
			return nil, "", terr
		}
		// A child cannot come back alone while its story sits in the
		// archive; that would leave a live task under an archived story.
		if pid, ok := t.Parent(); ok && st.Archived(pid) {
			return nil, "", taskerr.New(taskerr.KindState,
				"task %d belongs to archived story %d; reopen the story first", taskID, pid).
				With("task-id", taskID).
				With("parent-id", pid)
		}

		t.Status = task.StatusOpen
		if st.Archived(taskID) {
			if err := st.Unarchive(taskID); err != nil {
				return nil, "", taskerr.New(taskerr.KindState, "%v", err)
			}
		}

		res := &Result{
			Message: fmt.Sprintf("Reopened task #%d: %s", t.ID, t.Title),
			Data:    t.Clone(),
		}
		return res, commitReopen(t.ID, t.Title), nil
	})
}
