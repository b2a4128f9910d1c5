package engine

import (
	"context"
	"fmt"

	"github.com/taskmill/mcp-tasks/internal/execstate"
	"github.com/taskmill/mcp-tasks/internal/store"
	"github.com/taskmill/mcp-tasks/internal/task"
	"github.com/taskmill/mcp-tasks/internal/taskerr"
	"github.com/taskmill/mcp-tasks/internal/validation"
)

// CompleteParams identify the task to close. At least one of TaskID and
// Title must be set; when both are, they must name the same task.
type CompleteParams struct {
	TaskID            *int
	Title             string
	CompletionComment string
}

// CompleteTask closes a task. Regular tasks are archived immediately; story
// children stay in the live file until their story archives them; a story
// archives itself and every child atomically once all children are settled.
func (e *Engine) CompleteTask(ctx context.Context, p CompleteParams) (*Result, *taskerr.Error) {
	var completedStoryChild bool

	res, terr := e.mutate(ctx, func(st *store.Store) (*Result, string, *taskerr.Error) {
		t, terr := resolveLive(st, p.TaskID, p.Title)
		if terr != nil {
			return nil, "", terr
		}

		if p.CompletionComment != "" {
			if t.Description != "" {
				t.Description += "\n\n"
			}
			t.Description += p.CompletionComment
		}

		if t.IsStory() {
			return completeStory(st, t)
		}

		if terr := validation.CheckStatusChange(t.Status, task.StatusClosed); terr != nil {
			return nil, "", terr
		}
		t.Status = task.StatusClosed

		if _, isChild := t.Parent(); isChild {
			// Story children wait for their story's archival.
			completedStoryChild = true
		} else {
			if err := st.Archive(t.ID); err != nil {
				return nil, "", taskerr.New(taskerr.KindState, "%v", err)
			}
		}

		res := &Result{
			Message: fmt.Sprintf("Completed task #%d: %s", t.ID, t.Title),
			Data:    t.Clone(),
		}
		return res, commitComplete(t.ID, t.Title), nil
	})
	if terr != nil {
		return nil, terr
	}

	e.completePostActions(ctx, res, completedStoryChild)
	return res, nil
}

// completeStory archives the story with all of its children, or reports the
// children still in the way.
func completeStory(st *store.Store, s *task.Task) (*Result, string, *taskerr.Error) {
	children := st.ChildrenOf(s.ID)

	var open []int
	for _, cid := range children {
		c, _ := st.ByID(cid)
		if c != nil && !c.Settled() {
			open = append(open, cid)
		}
	}
	if len(open) > 0 {
		return nil, "", taskerr.New(taskerr.KindState,
			"cannot complete story #%d: %d tasks are not closed", s.ID, len(open)).
			With("blocking-children", open)
	}

	if terr := validation.CheckStatusChange(s.Status, task.StatusClosed); terr != nil {
		return nil, "", terr
	}
	s.Status = task.StatusClosed

	if err := st.Archive(s.ID); err != nil {
		return nil, "", taskerr.New(taskerr.KindState, "%v", err)
	}
	for _, cid := range children {
		if !st.Archived(cid) {
			if err := st.Archive(cid); err != nil {
				return nil, "", taskerr.New(taskerr.KindState, "%v", err)
			}
		}
	}

	res := &Result{
		Message: fmt.Sprintf("Completed story #%d: %s (with %d tasks)", s.ID, s.Title, len(children)),
		Data: map[string]any{
			"story":    s.Clone(),
			"archived": append([]int{s.ID}, children...),
		},
	}
	return res, commitCompleteStory(s.ID, s.Title, len(children)), nil
}

// completePostActions clears the execution-state file and, for regular tasks
// and stories, removes the enclosing worktree when it is clean. Failures here
// never undo the completion; they surface as warnings.
func (e *Engine) completePostActions(ctx context.Context, res *Result, storyChild bool) {
	if err := execstate.Clear(e.cfg.BaseDir); err != nil {
		e.log.Warn("clearing execution state failed", "error", err)
	}

	if storyChild || !e.cfg.Flags.WorktreeManagement {
		return
	}
	if warn := e.wt.Cleanup(ctx, e.cfg.BaseDir); warn != "" {
		e.log.Warn("worktree cleanup", "warning", warn)
		res.Message += "\nWarning: " + warn
	}
}

// resolveLive finds a live task by id, unique title, or both in agreement.
func resolveLive(st *store.Store, id *int, title string) (*task.Task, *taskerr.Error) {
	if id == nil && title == "" {
		return nil, taskerr.New(taskerr.KindInvalidInput, "either task-id or title is required")
	}

	if id != nil {
		t, ok := st.Live(*id)
		if !ok {
			if st.Archived(*id) {
				return nil, taskerr.New(taskerr.KindState, "task %d is already archived", *id).
					With("task-id", *id)
			}
			return nil, taskerr.New(taskerr.KindNotFound, "task %d not found", *id).
				With("task-id", *id)
		}
		if title != "" && t.Title != title {
			return nil, taskerr.New(taskerr.KindInvalidInput,
				"task %d has title %q, not %q", *id, t.Title, title).
				With("task-id", *id).
				With("title", title)
		}
		return t, nil
	}

	var matches []*task.Task
	for _, t := range st.All() {
		if t.Title == title {
			matches = append(matches, t)
		}
	}
	switch len(matches) {
	case 0:
		return nil, taskerr.New(taskerr.KindNotFound, "no task titled %q", title).
			With("title", title)
	case 1:
		return matches[0], nil
	default:
		return nil, taskerr.New(taskerr.KindAmbiguous, "%d tasks titled %q; use task-id", len(matches), title).
			With("title", title).
			With("count", len(matches))
	}
}
