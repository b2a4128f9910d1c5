package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmill/mcp-tasks/internal/ednl"
	"github.com/taskmill/mcp-tasks/internal/task"
)

func writeFiles(t *testing.T, live, archived []*task.Task) (string, string) {
	t.Helper()
	dir := t.TempDir()
	tasksPath := filepath.Join(dir, "tasks.ednl")
	completePath := filepath.Join(dir, "complete.ednl")
	require.NoError(t, ednl.Write(tasksPath, live))
	require.NoError(t, ednl.Write(completePath, archived))
	return tasksPath, completePath
}

func mk(id int, typ task.Type, status task.Status, parent *int) *task.Task {
	return &task.Task{
		ID:        id,
		ParentID:  parent,
		Title:     "t",
		Type:      typ,
		Status:    status,
		Meta:      map[string]string{},
		Relations: []task.Relation{},
	}
}

func TestLoadBuildsIndexes(t *testing.T) {
	live := []*task.Task{
		mk(10, task.TypeStory, task.StatusOpen, nil),
		mk(11, task.TypeTask, task.StatusOpen, task.IntP(10)),
		mk(12, task.TypeTask, task.StatusClosed, task.IntP(10)),
	}
	archived := []*task.Task{
		mk(5, task.TypeTask, task.StatusClosed, nil),
	}
	tp, cp := writeFiles(t, live, archived)

	s, err := Load(tp, cp)
	require.NoError(t, err)

	assert.Equal(t, 13, s.NextID())
	assert.Equal(t, []int{11, 12}, s.ChildrenOf(10))

	pid, ok := s.ParentOf(11)
	require.True(t, ok)
	assert.Equal(t, 10, pid)

	_, ok = s.Live(5)
	assert.False(t, ok)
	assert.True(t, s.Archived(5))

	got, ok := s.ByID(5)
	require.True(t, ok)
	assert.Equal(t, task.StatusClosed, got.Status)
}

func TestLoadRejectsDuplicateIDs(t *testing.T) {
	live := []*task.Task{
		mk(1, task.TypeTask, task.StatusOpen, nil),
	}
	archived := []*task.Task{
		mk(1, task.TypeTask, task.StatusClosed, nil),
	}
	tp, cp := writeFiles(t, live, archived)

	_, err := Load(tp, cp)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "both record files")
}

func TestLoadMissingFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := Load(filepath.Join(dir, "tasks.ednl"), filepath.Join(dir, "complete.ednl"))
	require.NoError(t, err)
	assert.Equal(t, 1, s.NextID())
	assert.Empty(t, s.All())
}

func TestAddAssignsNextID(t *testing.T) {
	tp, cp := writeFiles(t, []*task.Task{mk(4, task.TypeTask, task.StatusOpen, nil)}, nil)
	s, err := Load(tp, cp)
	require.NoError(t, err)

	n := mk(0, task.TypeTask, task.StatusOpen, nil)
	s.Add(n)
	assert.Equal(t, 5, n.ID)
	assert.Equal(t, 6, s.NextID())

	got, ok := s.Live(5)
	require.True(t, ok)
	assert.Same(t, n, got)
}

func TestArchiveUnarchive(t *testing.T) {
	tp, cp := writeFiles(t, []*task.Task{
		mk(1, task.TypeTask, task.StatusOpen, nil),
		mk(2, task.TypeTask, task.StatusOpen, nil),
	}, nil)
	s, err := Load(tp, cp)
	require.NoError(t, err)

	require.NoError(t, s.Archive(1))
	assert.True(t, s.Archived(1))
	_, live := s.Live(1)
	assert.False(t, live)
	require.Error(t, s.Archive(1))

	require.NoError(t, s.Unarchive(1))
	_, live = s.Live(1)
	assert.True(t, live)
	require.Error(t, s.Unarchive(1))

	// Order: 2 first (never moved), then 1 re-appended.
	all := s.All()
	require.Len(t, all, 2)
	assert.Equal(t, 2, all[0].ID)
	assert.Equal(t, 1, all[1].ID)
}

func TestWritePersistsBothFiles(t *testing.T) {
	tp, cp := writeFiles(t, []*task.Task{
		mk(1, task.TypeTask, task.StatusOpen, nil),
		mk(2, task.TypeTask, task.StatusOpen, nil),
	}, nil)
	s, err := Load(tp, cp)
	require.NoError(t, err)

	require.NoError(t, s.Archive(2))
	require.NoError(t, s.Write(tp, cp))

	reloaded, err := Load(tp, cp)
	require.NoError(t, err)
	assert.Len(t, reloaded.All(), 1)
	assert.True(t, reloaded.Archived(2))

	// Files written by the engine read back to the same state.
	data1, err := os.ReadFile(tp)
	require.NoError(t, err)
	require.NoError(t, reloaded.Write(tp, cp))
	data2, err := os.ReadFile(tp)
	require.NoError(t, err)
	assert.Equal(t, string(data1), string(data2))
}
