// Package store holds the in-memory index over the two record files.
//
// A Store is loaded fresh at the start of every engine operation, mutated in
// memory, then flushed whole. The engine's write gate serializes all of this,
// so the store itself carries no locking.
package store

import (
	"fmt"
	"sort"

	"github.com/taskmill/mcp-tasks/internal/ednl"
	"github.com/taskmill/mcp-tasks/internal/task"
)

// Store indexes live tasks (tasks.ednl) and archived tasks (complete.ednl).
type Store struct {
	live     map[int]*task.Task
	archived map[int]*task.Task

	// Record order within each file is preserved across rewrites.
	liveOrder     []int
	archivedOrder []int

	children map[int][]int // parent id -> child ids, across both files
	parents  map[int]int   // child id -> parent id

	nextID int
}

// Load reads both record files and builds the index. Ids must be unique
// across the union of the files.
func Load(tasksPath, completePath string) (*Store, error) {
	liveRecs, err := ednl.Read(tasksPath)
	if err != nil {
		return nil, err
	}
	archRecs, err := ednl.Read(completePath)
	if err != nil {
		return nil, err
	}

	s := &Store{
		live:     make(map[int]*task.Task, len(liveRecs)),
		archived: make(map[int]*task.Task, len(archRecs)),
		children: make(map[int][]int),
		parents:  make(map[int]int),
		nextID:   1,
	}

	for _, t := range liveRecs {
		if _, dup := s.live[t.ID]; dup {
			return nil, fmt.Errorf("duplicate task id %d in %s", t.ID, tasksPath)
		}
		s.live[t.ID] = t
		s.liveOrder = append(s.liveOrder, t.ID)
	}
	for _, t := range archRecs {
		if _, dup := s.archived[t.ID]; dup {
			return nil, fmt.Errorf("duplicate task id %d in %s", t.ID, completePath)
		}
		if _, dup := s.live[t.ID]; dup {
			return nil, fmt.Errorf("task id %d present in both record files", t.ID)
		}
		s.archived[t.ID] = t
		s.archivedOrder = append(s.archivedOrder, t.ID)
	}

	s.reindex()
	return s, nil
}

// reindex rebuilds the parent/child maps and the id watermark.
func (s *Store) reindex() {
	s.children = make(map[int][]int)
	s.parents = make(map[int]int)
	maxID := 0
	for _, ids := range [][]int{s.liveOrder, s.archivedOrder} {
		for _, id := range ids {
			t := s.byIDInternal(id)
			if id > maxID {
				maxID = id
			}
			if pid, ok := t.Parent(); ok {
				s.parents[id] = pid
				s.children[pid] = append(s.children[pid], id)
			}
		}
	}
	for _, kids := range s.children {
		sort.Ints(kids)
	}
	s.nextID = maxID + 1
}

func (s *Store) byIDInternal(id int) *task.Task {
	if t, ok := s.live[id]; ok {
		return t
	}
	return s.archived[id]
}

// ByID looks a task up in either file.
func (s *Store) ByID(id int) (*task.Task, bool) {
	t := s.byIDInternal(id)
	return t, t != nil
}

// Live returns the task if it is in tasks.ednl.
func (s *Store) Live(id int) (*task.Task, bool) {
	t, ok := s.live[id]
	return t, ok
}

// Archived reports whether the task sits in complete.ednl.
func (s *Store) Archived(id int) bool {
	_, ok := s.archived[id]
	return ok
}

// All returns live tasks in file order.
func (s *Store) All() []*task.Task {
	out := make([]*task.Task, 0, len(s.liveOrder))
	for _, id := range s.liveOrder {
		out = append(out, s.live[id])
	}
	return out
}

// AllArchived returns archived tasks in file order.
func (s *Store) AllArchived() []*task.Task {
	out := make([]*task.Task, 0, len(s.archivedOrder))
	for _, id := range s.archivedOrder {
		out = append(out, s.archived[id])
	}
	return out
}

// Union returns every task in both files, live first.
func (s *Store) Union() []*task.Task {
	out := make([]*task.Task, 0, len(s.liveOrder)+len(s.archivedOrder))
	out = append(out, s.All()...)
	out = append(out, s.AllArchived()...)
	return out
}

// ChildrenOf returns child ids across both files, ascending.
func (s *Store) ChildrenOf(id int) []int {
	return append([]int(nil), s.children[id]...)
}

// ParentOf returns the parent story id, if any.
func (s *Store) ParentOf(id int) (int, bool) {
	pid, ok := s.parents[id]
	return pid, ok
}

// NextID returns the id the next Add will take.
func (s *Store) NextID() int { return s.nextID }

// Add appends a new live task, assigning the next id.
func (s *Store) Add(t *task.Task) {
	t.ID = s.nextID
	s.nextID++
	s.live[t.ID] = t
	s.liveOrder = append(s.liveOrder, t.ID)
	if pid, ok := t.Parent(); ok {
		s.parents[t.ID] = pid
		s.children[pid] = append(s.children[pid], t.ID)
		sort.Ints(s.children[pid])
	}
}

// Relink refreshes the parent/child index after a task's parent-id changed.
func (s *Store) Relink() { s.reindex() }

// Archive moves a live task to complete.ednl, preserving append order.
func (s *Store) Archive(id int) error {
	t, ok := s.live[id]
	if !ok {
		return fmt.Errorf("task %d is not in tasks.ednl", id)
	}
	delete(s.live, id)
	s.liveOrder = removeID(s.liveOrder, id)
	s.archived[id] = t
	s.archivedOrder = append(s.archivedOrder, id)
	return nil
}

// Unarchive moves an archived task back to tasks.ednl.
func (s *Store) Unarchive(id int) error {
	t, ok := s.archived[id]
	if !ok {
		return fmt.Errorf("task %d is not in complete.ednl", id)
	}
	delete(s.archived, id)
	s.archivedOrder = removeID(s.archivedOrder, id)
	s.live[id] = t
	s.liveOrder = append(s.liveOrder, id)
	return nil
}

func removeID(ids []int, id int) []int {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

// Write flushes both files atomically (each on its own).
func (s *Store) Write(tasksPath, completePath string) error {
	if err := ednl.Write(tasksPath, s.All()); err != nil {
		return err
	}
	return ednl.Write(completePath, s.AllArchived())
}
