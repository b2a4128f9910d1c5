// Package task defines the task record and its enumerations.
//
// Tasks are stored on disk as EDN maps, one per line. Field values that are
// symbolic (status, type, relation kinds) are EDN keywords so that the files
// stay hand-editable and diff well under git.
package task

import (
	"olympos.io/encoding/edn"
)

// Status, Type and RelType are EDN keywords on disk (:open, :story, ...).
// Aliases keep reflection-based EDN encoding intact while giving the
// constants readable homes.
type (
	Status  = edn.Keyword
	Type    = edn.Keyword
	RelType = edn.Keyword
)

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in-progress"
	StatusBlocked    Status = "blocked"
	StatusClosed     Status = "closed"
	StatusDeleted    Status = "deleted"
)

const (
	TypeTask    Type = "task"
	TypeBug     Type = "bug"
	TypeFeature Type = "feature"
	TypeStory   Type = "story"
	TypeChore   Type = "chore"
)

const (
	RelBlockedBy        RelType = "blocked-by"
	RelRelated          RelType = "related"
	RelDiscoveredDuring RelType = "discovered-during"
)

// ValidStatuses is the set of all valid task statuses.
var ValidStatuses = map[Status]bool{
	StatusOpen:       true,
	StatusInProgress: true,
	StatusBlocked:    true,
	StatusClosed:     true,
	StatusDeleted:    true,
}

// ValidTypes is the set of all valid task types.
var ValidTypes = map[Type]bool{
	TypeTask:    true,
	TypeBug:     true,
	TypeFeature: true,
	TypeStory:   true,
	TypeChore:   true,
}

// ValidRelTypes is the set of all valid relation kinds.
var ValidRelTypes = map[RelType]bool{
	RelBlockedBy:        true,
	RelRelated:          true,
	RelDiscoveredDuring: true,
}

// ValidEventTypes is the set of accepted session-event kinds.
var ValidEventTypes = map[edn.Keyword]bool{
	"user-prompt":   true,
	"session-start": true,
	"session-end":   true,
	"compaction":    true,
}

// Relation is a typed link from the owning task to another task.
// ID is a positional tag within the owning task's relation list.
type Relation struct {
	ID        int     `edn:"id" json:"id"`
	RelatesTo int     `edn:"relates-to" json:"relates-to"`
	AsType    RelType `edn:"as-type" json:"as-type"`
}

// SessionEvent is an open map: {:timestamp ... :event-type ... ...}.
// Extra keys are preserved as written.
type SessionEvent = map[edn.Keyword]any

// Task is one work item. A Task with Type == TypeStory may parent others.
type Task struct {
	ID            int               `edn:"id" json:"id"`
	ParentID      *int              `edn:"parent-id,omitempty" json:"parent-id,omitempty"`
	Title         string            `edn:"title" json:"title"`
	Description   string            `edn:"description" json:"description"`
	Design        string            `edn:"design" json:"design"`
	Category      string            `edn:"category" json:"category"`
	Type          Type              `edn:"type" json:"type"`
	Status        Status            `edn:"status" json:"status"`
	Meta          map[string]string `edn:"meta" json:"meta"`
	Relations     []Relation        `edn:"relations" json:"relations"`
	SharedContext []string          `edn:"shared-context,omitempty" json:"shared-context,omitempty"`
	SessionEvents []SessionEvent    `edn:"session-events,omitempty" json:"session-events,omitempty"`
	CodeReviewed  string            `edn:"code-reviewed,omitempty" json:"code-reviewed,omitempty"`
	PRNum         int               `edn:"pr-num,omitempty" json:"pr-num,omitempty"`

	// Extra holds keys read from disk that this version does not know about.
	// The codec writes them back verbatim so hand-edited or newer files
	// survive a round trip.
	Extra map[edn.Keyword]any `edn:"-" json:"-"`
}

// IsStory reports whether the task can parent other tasks.
func (t *Task) IsStory() bool {
	return t.Type == TypeStory
}

// Settled reports whether the task no longer blocks anything and no longer
// counts against story archival: closed or deleted.
func (t *Task) Settled() bool {
	return t.Status == StatusClosed || t.Status == StatusDeleted
}

// BlockedByIDs returns the ids of tasks this task is blocked by.
func (t *Task) BlockedByIDs() []int {
	var ids []int
	for _, r := range t.Relations {
		if r.AsType == RelBlockedBy {
			ids = append(ids, r.RelatesTo)
		}
	}
	return ids
}

// Parent returns the parent story id and whether one is set.
func (t *Task) Parent() (int, bool) {
	if t.ParentID == nil {
		return 0, false
	}
	return *t.ParentID, true
}

// Clone returns a deep copy. Callers outside the store receive clones so
// that replies never alias live index state.
func (t *Task) Clone() *Task {
	c := *t
	if t.ParentID != nil {
		pid := *t.ParentID
		c.ParentID = &pid
	}
	if t.Meta != nil {
		c.Meta = make(map[string]string, len(t.Meta))
		for k, v := range t.Meta {
			c.Meta[k] = v
		}
	}
	if t.Relations != nil {
		// make+copy so an empty slice stays empty rather than becoming nil;
		// replies rely on cleared collections serializing as [].
		c.Relations = make([]Relation, len(t.Relations))
		copy(c.Relations, t.Relations)
	}
	if t.SharedContext != nil {
		c.SharedContext = make([]string, len(t.SharedContext))
		copy(c.SharedContext, t.SharedContext)
	}
	if t.SessionEvents != nil {
		c.SessionEvents = make([]SessionEvent, len(t.SessionEvents))
		for i, ev := range t.SessionEvents {
			m := make(SessionEvent, len(ev))
			for k, v := range ev {
				m[k] = v
			}
			c.SessionEvents[i] = m
		}
	}
	if t.Extra != nil {
		c.Extra = make(map[edn.Keyword]any, len(t.Extra))
		for k, v := range t.Extra {
			c.Extra[k] = v
		}
	}
	return &c
}

// IntP is a convenience for building optional id fields.
func IntP(v int) *int { return &v }
