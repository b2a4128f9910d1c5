package engine

import (
	"context"
	"fmt"

	"github.com/taskmill/mcp-tasks/internal/execstate"
	"github.com/taskmill/mcp-tasks/internal/taskerr"
	"github.com/taskmill/mcp-tasks/internal/worktree"
)

// WorkOn marks a task as the one in flight. With branch management on it
// also puts the working copy on the task's branch; with worktree management
// on it finds or creates the per-story worktree and writes the execution
// state there instead.
//
// WorkOn never touches the record files and never commits.
func (e *Engine) WorkOn(ctx context.Context, taskID int) (*Result, *taskerr.Error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, terr := e.load()
	if terr != nil {
		return nil, terr
	}

	t, found := st.ByID(taskID)
	if !found {
		return nil, taskerr.New(taskerr.KindNotFound, "task %d not found", taskID).
			With("task-id", taskID)
	}

	root, terr := worktree.Root(st, t)
	if terr != nil {
		return nil, terr
	}

	es := &execstate.State{TaskID: t.ID, StartedAt: nowISO()}
	if pid, ok := t.Parent(); ok {
		es.StoryID = &pid
	}

	data := map[string]any{
		"task-id":  t.ID,
		"story-id": es.StoryID,
		"title":    t.Title,
	}
	message := fmt.Sprintf("Working on task #%d: %s", t.ID, t.Title)
	stateDir := e.cfg.BaseDir

	if e.cfg.Flags.WorktreeManagement {
		branch := worktree.BranchName(root)
		slug := worktree.Slug(root.Title)
		wt, terr := e.wt.EnsureWorktree(ctx, e.cfg.BaseDir, branch, e.cfg.Flags.BaseBranch, slug)
		if terr != nil {
			return nil, terr
		}
		stateDir = wt.Path
		data["branch"] = branch
		data["worktree"] = wt.Path
		switch {
		case wt.Created:
			message += fmt.Sprintf("\nCreated worktree %s on branch %s; switch your working directory there.", wt.Path, branch)
		case wt.NeedSwitch:
			message += fmt.Sprintf("\nBranch %s already has worktree %s; switch your working directory there.", branch, wt.Path)
		}
	} else if e.cfg.Flags.BranchManagement {
		branch := worktree.BranchName(root)
		br, terr := e.wt.EnsureBranch(ctx, e.cfg.BaseDir, branch, e.cfg.Flags.BaseBranch)
		if terr != nil {
			return nil, terr
		}
		data["branch"] = branch
		if br.Created {
			message += fmt.Sprintf("\nCreated branch %s.", branch)
		} else if br.Switched {
			message += fmt.Sprintf("\nSwitched to branch %s.", branch)
		}
		for _, note := range br.Notes {
			message += "\nWarning: " + note
		}
	}

	if err := execstate.Write(stateDir, es); err != nil {
		return nil, taskerr.New(taskerr.KindFilesystem, "%v", err)
	}

	return &Result{Message: message, Data: data}, nil
}
