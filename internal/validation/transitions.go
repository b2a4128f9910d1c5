package validation

import (
	"github.com/taskmill/mcp-tasks/internal/task"
	"github.com/taskmill/mcp-tasks/internal/taskerr"
)

// statusTransitions lists the permitted status moves. Deleted is terminal.
var statusTransitions = map[task.Status][]task.Status{
	task.StatusOpen:       {task.StatusInProgress, task.StatusBlocked, task.StatusClosed, task.StatusDeleted},
	task.StatusInProgress: {task.StatusOpen, task.StatusBlocked, task.StatusClosed, task.StatusDeleted},
	task.StatusBlocked:    {task.StatusOpen, task.StatusInProgress, task.StatusClosed, task.StatusDeleted},
	task.StatusClosed:     {task.StatusOpen, task.StatusDeleted},
	task.StatusDeleted:    {},
}

func isAllowedTransition(from, to task.Status) bool {
	if from == to {
		return true
	}
	for _, allowed := range statusTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// CheckStatusChange guards a status replacement.
func CheckStatusChange(from, to task.Status) *taskerr.Error {
	if !isAllowedTransition(from, to) {
		return taskerr.New(taskerr.KindState, "cannot transition status from %s to %s", string(from), string(to)).
			With("from", string(from)).
			With("to", string(to))
	}
	return nil
}
