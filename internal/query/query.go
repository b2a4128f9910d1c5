// Package query implements select-tasks: filter, project, limit, and the
// blocked-status and child-progress enrichments.
package query

import (
	"github.com/taskmill/mcp-tasks/internal/store"
	"github.com/taskmill/mcp-tasks/internal/task"
	"github.com/taskmill/mcp-tasks/internal/taskerr"
	"github.com/taskmill/mcp-tasks/internal/validation"
)

// DefaultLimit caps result size when the caller does not set one.
const DefaultLimit = 5

// Params are the select-tasks filters. Status empty means "open" unless
// task-id pins a single task, in which case status is not filtered.
type Params struct {
	TaskID       *int
	ParentID     *int
	Category     string
	Type         string
	Status       string
	TitlePattern string
	Limit        int // 0 means unset
	Unique       bool
}

// TaskView is a task plus its blocked enrichment. Blocked fields are only
// present for tasks that carry blocked-by relations.
type TaskView struct {
	*task.Task
	Blocked     *bool `json:"blocked?,omitempty"`
	BlockingIDs []int `json:"blocking-ids,omitempty"`
}

// Metadata summarizes the match set beyond what was returned.
type Metadata struct {
	OpenTaskCount      int  `json:"open-task-count"`
	CompletedTaskCount *int `json:"completed-task-count,omitempty"`
	ReturnedCount      int  `json:"returned-count"`
	TotalMatches       int  `json:"total-matches"`
	Limited            bool `json:"limited?"`
}

// Selection is the select-tasks reply payload.
type Selection struct {
	Tasks    []TaskView `json:"tasks"`
	Metadata Metadata   `json:"metadata"`
}

// SelectTasks filters the store and shapes the reply.
func SelectTasks(st *store.Store, p Params) (*Selection, *taskerr.Error) {
	limit := p.Limit
	if limit == 0 {
		if p.Unique {
			limit = 1
		} else {
			limit = DefaultLimit
		}
	}
	if limit < 0 {
		return nil, taskerr.New(taskerr.KindInvalidInput, "limit must be positive").
			With("limit", p.Limit)
	}
	if p.Unique && limit > 1 {
		return nil, taskerr.New(taskerr.KindInvalidInput, "unique requires limit 1").
			With("limit", limit)
	}

	status := p.Status
	if status == "" && p.TaskID == nil {
		status = string(task.StatusOpen)
	}
	if status != "" && !task.ValidStatuses[task.Status(status)] {
		return nil, taskerr.New(taskerr.KindInvalidInput, "invalid status filter %q", status).
			With("status", status)
	}
	if p.Type != "" && !task.ValidTypes[task.Type(p.Type)] {
		return nil, taskerr.New(taskerr.KindInvalidInput, "invalid type filter %q", p.Type).
			With("type", p.Type)
	}

	match := func(t *task.Task, withStatus bool) bool {
		if p.TaskID != nil && t.ID != *p.TaskID {
			return false
		}
		if p.ParentID != nil {
			pid, ok := t.Parent()
			if !ok || pid != *p.ParentID {
				return false
			}
		}
		if p.Category != "" && t.Category != p.Category {
			return false
		}
		if p.Type != "" && t.Type != task.Type(p.Type) {
			return false
		}
		if p.TitlePattern != "" && t.Title != p.TitlePattern {
			return false
		}
		if withStatus && status != "" && t.Status != task.Status(status) {
			return false
		}
		return true
	}

	var matched []*task.Task
	openCount := 0
	for _, t := range st.Union() {
		if match(t, true) {
			matched = append(matched, t)
		}
		if match(t, false) && t.Status == task.StatusOpen {
			openCount++
		}
	}

	if p.Unique && len(matched) > 1 {
		return nil, taskerr.New(taskerr.KindAmbiguous, "%d tasks match a unique query", len(matched)).
			With("count", len(matched))
	}

	returned := matched
	if len(returned) > limit {
		returned = returned[:limit]
	}

	sel := &Selection{
		Tasks: enrich(st, returned),
		Metadata: Metadata{
			OpenTaskCount: openCount,
			ReturnedCount: len(returned),
			TotalMatches:  len(matched),
			Limited:       len(returned) < len(matched),
		},
	}

	if p.ParentID != nil {
		completed := 0
		for _, cid := range st.ChildrenOf(*p.ParentID) {
			if c, ok := st.ByID(cid); ok && c.Settled() {
				completed++
			}
		}
		sel.Metadata.CompletedTaskCount = &completed
	}
	return sel, nil
}

// enrich attaches blocked status to tasks with blocked-by relations, one
// batched traversal for the whole result page.
func enrich(st *store.Store, tasks []*task.Task) []TaskView {
	var blockedIDs []int
	for _, t := range tasks {
		if len(t.BlockedByIDs()) > 0 {
			blockedIDs = append(blockedIDs, t.ID)
		}
	}
	statuses := validation.BlockedStatuses(st, blockedIDs)

	views := make([]TaskView, 0, len(tasks))
	for _, t := range tasks {
		v := TaskView{Task: t.Clone()}
		if info, ok := statuses[t.ID]; ok && len(t.BlockedByIDs()) > 0 {
			b := info.Blocked
			v.Blocked = &b
			v.BlockingIDs = info.BlockingIDs
		}
		views = append(views, v)
	}
	return views
}
