package engine

import (
	"context"
	"fmt"

	"olympos.io/encoding/edn"

	"github.com/taskmill/mcp-tasks/internal/execstate"
	"github.com/taskmill/mcp-tasks/internal/store"
	"github.com/taskmill/mcp-tasks/internal/task"
	"github.com/taskmill/mcp-tasks/internal/taskerr"
	"github.com/taskmill/mcp-tasks/internal/validation"
)

// UpdateParams carries update-task inputs. Pointer fields distinguish
// "absent" from "provided"; the Set/Null pairs do the same for the two
// collections where an explicit null means "clear to empty".
type UpdateParams struct {
	TaskID int

	Title        *string
	Description  *string
	Design       *string
	Category     *string
	Type         *string
	Status       *string
	CodeReviewed *string
	PRNum        *int

	ParentID     *int
	ParentIDNull bool

	Meta     map[string]string
	MetaSet  bool
	MetaNull bool

	Relations     []task.Relation
	RelationsSet  bool
	RelationsNull bool

	SharedContext []string
	SessionEvents []map[string]any
}

// UpdateTask replaces provided fields whole. Empty strings are no-ops so a
// caller can pass a full parameter map without clobbering fields. The two
// append-only collections, shared-context and session-events, only ever
// grow.
func (e *Engine) UpdateTask(ctx context.Context, p UpdateParams) (*Result, *taskerr.Error) {
	return e.mutate(ctx, func(st *store.Store) (*Result, string, *taskerr.Error) {
		cur, found := st.ByID(p.TaskID)
		if !found {
			return nil, "", taskerr.New(taskerr.KindNotFound, "task %d not found", p.TaskID).
				With("task-id", p.TaskID)
		}

		next := cur.Clone()
		parentChanged := false

		setStr := func(dst *string, v *string) {
			if v != nil && *v != "" {
				*dst = *v
			}
		}
		setStr(&next.Title, p.Title)
		setStr(&next.Description, p.Description)
		setStr(&next.Design, p.Design)
		setStr(&next.Category, p.Category)
		setStr(&next.CodeReviewed, p.CodeReviewed)
		if p.PRNum != nil && *p.PRNum > 0 {
			next.PRNum = *p.PRNum
		}

		if p.Type != nil && *p.Type != "" {
			next.Type = task.Type(*p.Type)
			if cur.IsStory() && !next.IsStory() {
				if kids := st.ChildrenOf(cur.ID); len(kids) > 0 {
					return nil, "", taskerr.New(taskerr.KindState,
						"cannot change type of story %d while it has children", cur.ID).
						With("task-id", cur.ID).
						With("child-ids", kids)
				}
			}
		}
		if p.Status != nil && *p.Status != "" {
			to := task.Status(*p.Status)
			if terr := validation.CheckStatusChange(cur.Status, to); terr != nil {
				return nil, "", terr
			}
			next.Status = to
		}

		switch {
		case p.ParentIDNull:
			next.ParentID = nil
			parentChanged = cur.ParentID != nil
		case p.ParentID != nil:
			next.ParentID = p.ParentID
			parentChanged = cur.ParentID == nil || *cur.ParentID != *p.ParentID
		}

		if p.MetaSet {
			if p.MetaNull {
				next.Meta = map[string]string{}
			} else {
				next.Meta = p.Meta
			}
		}
		relationsChanged := false
		if p.RelationsSet {
			relationsChanged = true
			if p.RelationsNull {
				next.Relations = []task.Relation{}
			} else {
				next.Relations = p.Relations
			}
		}

		if len(p.SharedContext) > 0 {
			prefix := ""
			if es, _ := execstate.Read(e.cfg.BaseDir); es != nil {
				prefix = fmt.Sprintf("Task %d: ", es.TaskID)
			}
			for _, entry := range p.SharedContext {
				if entry == "" {
					continue
				}
				next.SharedContext = append(next.SharedContext, prefix+entry)
			}
		}
		for _, raw := range p.SessionEvents {
			ev := toSessionEvent(raw)
			if terr := validation.CheckSessionEvent(ev); terr != nil {
				return nil, "", terr
			}
			next.SessionEvents = append(next.SessionEvents, ev)
		}

		if terr := validation.CheckTask(st, next); terr != nil {
			return nil, "", terr
		}
		if relationsChanged {
			if terr := validation.CheckTaskCycles(st, next); terr != nil {
				return nil, "", terr
			}
		}

		*cur = *next
		if parentChanged {
			st.Relink()
		}

		res := &Result{
			Message: fmt.Sprintf("Updated task #%d: %s", cur.ID, cur.Title),
			Data:    cur.Clone(),
		}
		return res, commitUpdate(cur.ID, cur.Title), nil
	})
}

// toSessionEvent converts a JSON event map to its EDN form, keywordizing
// event-type and filling a missing timestamp.
func toSessionEvent(m map[string]any) task.SessionEvent {
	ev := make(task.SessionEvent, len(m)+1)
	for k, v := range m {
		if k == "event-type" {
			if s, ok := v.(string); ok {
				ev[edn.Keyword(k)] = edn.Keyword(s)
				continue
			}
		}
		ev[edn.Keyword(k)] = v
	}
	if _, ok := ev[edn.Keyword("timestamp")]; !ok {
		ev[edn.Keyword("timestamp")] = nowISO()
	}
	return ev
}
