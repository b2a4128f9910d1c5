// Package validation checks task records against the store before the
// engine commits a mutation: schema and enum membership, referential
// integrity, blocked-by cycle prevention, and payload size limits. It also
// computes blocked status for the query side.
package validation

import (
	"fmt"

	"olympos.io/encoding/edn"

	"github.com/taskmill/mcp-tasks/internal/store"
	"github.com/taskmill/mcp-tasks/internal/task"
	"github.com/taskmill/mcp-tasks/internal/taskerr"
)

// MaxPayloadBytes bounds the serialized size of shared-context and
// session-events, each measured as EDN bytes of the whole collection.
const MaxPayloadBytes = 50 * 1024

// CheckTask validates a single (possibly not yet stored) task against the
// store. The task's own id is exempt from existence checks so new tasks can
// be validated before insertion.
func CheckTask(st *store.Store, t *task.Task) *taskerr.Error {
	if t.Title == "" {
		return taskerr.New(taskerr.KindInvalidInput, "title must be a non-empty string")
	}
	if !task.ValidTypes[t.Type] {
		return taskerr.New(taskerr.KindInvalidInput, "invalid task type %q", string(t.Type)).
			With("type", string(t.Type))
	}
	if !task.ValidStatuses[t.Status] {
		return taskerr.New(taskerr.KindInvalidInput, "invalid task status %q", string(t.Status)).
			With("status", string(t.Status))
	}

	if pid, ok := t.Parent(); ok {
		parent, found := st.ByID(pid)
		if !found {
			return taskerr.New(taskerr.KindIntegrity, "parent task %d not found", pid).
				With("parent-id", pid)
		}
		if !parent.IsStory() {
			return taskerr.New(taskerr.KindIntegrity, "parent task %d is not a story", pid).
				With("parent-id", pid).
				With("parent-type", string(parent.Type))
		}
		// An archived story must never gain live children; its archive
		// entry asserts every child is settled alongside it. Children
		// already archived with the story stay editable in place.
		if st.Archived(pid) && !st.Archived(t.ID) {
			return taskerr.New(taskerr.KindState, "parent story %d is archived; reopen it first", pid).
				With("parent-id", pid)
		}
	}

	var missing []int
	for _, r := range t.Relations {
		if !task.ValidRelTypes[r.AsType] {
			return taskerr.New(taskerr.KindInvalidInput, "invalid relation as-type %q", string(r.AsType)).
				With("as-type", string(r.AsType))
		}
		if _, found := st.ByID(r.RelatesTo); !found && r.RelatesTo != t.ID {
			missing = append(missing, r.RelatesTo)
		}
	}
	if len(missing) > 0 {
		return taskerr.New(taskerr.KindIntegrity, "relations reference missing tasks %v", missing).
			With("missing-ids", missing)
	}

	if len(t.SharedContext) > 0 && !t.IsStory() {
		return taskerr.New(taskerr.KindInvalidInput, "shared-context is only valid on stories").
			With("type", string(t.Type))
	}
	if err := CheckPayloadSize("shared-context", t.SharedContext); err != nil {
		return err
	}
	if err := CheckPayloadSize("session-events", t.SessionEvents); err != nil {
		return err
	}
	for _, ev := range t.SessionEvents {
		if err := CheckSessionEvent(ev); err != nil {
			return err
		}
	}
	return nil
}

// CheckSessionEvent validates one session-event map.
func CheckSessionEvent(ev task.SessionEvent) *taskerr.Error {
	et, ok := ev[edn.Keyword("event-type")]
	if !ok {
		return taskerr.New(taskerr.KindInvalidInput, "session event missing event-type")
	}
	kw, ok := et.(edn.Keyword)
	if !ok || !task.ValidEventTypes[kw] {
		return taskerr.New(taskerr.KindInvalidInput, "invalid session event-type %v", et).
			With("event-type", fmt.Sprintf("%v", et))
	}
	return nil
}

// CheckPayloadSize rejects a collection whose serialized form exceeds
// MaxPayloadBytes. An empty collection always passes.
func CheckPayloadSize(field string, v any) *taskerr.Error {
	b, err := edn.Marshal(v)
	if err != nil {
		return taskerr.New(taskerr.KindInvalidInput, "cannot serialize %s: %v", field, err)
	}
	if len(b) > MaxPayloadBytes {
		return taskerr.New(taskerr.KindSizeLimit, "%s exceeds %d bytes (got %d)", field, MaxPayloadBytes, len(b)).
			With("field", field).
			With("size", len(b)).
			With("limit", MaxPayloadBytes)
	}
	return nil
}
