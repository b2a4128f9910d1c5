package engine

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmill/mcp-tasks/internal/config"
	"github.com/taskmill/mcp-tasks/internal/execstate"
	"github.com/taskmill/mcp-tasks/internal/taskerr"
	"github.com/taskmill/mcp-tasks/internal/testutil"
)

func newFlagEngine(t *testing.T, flags string) (*Engine, *testutil.FakeGit, *config.Config) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, config.ConfigFileName), []byte(flags+"\n"), 0o644))
	cfg, err := config.Load(dir)
	require.NoError(t, err)

	fake := testutil.NewFakeGit()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(cfg, fake, logger), fake, cfg
}

func TestWorkOnWritesExecutionState(t *testing.T) {
	e, fake, cfg := newTestEngine(t, false)
	created := addTask(t, e, AddParams{Category: "c", Title: "fix login"})

	res, terr := e.WorkOn(context.Background(), created.ID)
	require.Nil(t, terr)
	assert.Contains(t, res.Message, "Working on task #1: fix login")

	es, err := execstate.Read(cfg.BaseDir)
	require.NoError(t, err)
	require.NotNil(t, es)
	assert.Equal(t, created.ID, es.TaskID)
	assert.Nil(t, es.StoryID)
	assert.NotEmpty(t, es.StartedAt)

	// No record mutation, no commit.
	assert.Empty(t, fake.Commits)
	data, ok := res.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, created.ID, data["task-id"])
	assert.Equal(t, "fix login", data["title"])
}

func TestWorkOnUnknownTask(t *testing.T) {
	e, _, _ := newTestEngine(t, false)

	_, terr := e.WorkOn(context.Background(), 99)
	require.NotNil(t, terr)
	assert.Equal(t, taskerr.KindNotFound, terr.Kind)
}

func TestWorkOnCreatesBranch(t *testing.T) {
	e, fake, _ := newFlagEngine(t, "{:use-git? true :branch-management? true}")
	created := addTask(t, e, AddParams{Category: "c", Title: "Fix Login!"})

	res, terr := e.WorkOn(context.Background(), created.ID)
	require.Nil(t, terr)

	assert.Equal(t, []string{"1-fix-login"}, fake.CreatedBrch)
	assert.Equal(t, "1-fix-login", fake.Branch)
	assert.Contains(t, res.Message, "Created branch 1-fix-login")

	data := res.Data.(map[string]any)
	assert.Equal(t, "1-fix-login", data["branch"])
}

func TestWorkOnStoryChildrenShareBranch(t *testing.T) {
	e, fake, _ := newFlagEngine(t, "{:use-git? true :branch-management? true}")
	story := addTask(t, e, AddParams{Category: "c", Title: "User Auth", Type: "story"})
	a := addTask(t, e, AddParams{Category: "c", Title: "login form", ParentID: &story.ID})
	b := addTask(t, e, AddParams{Category: "c", Title: "session store", ParentID: &story.ID})

	_, terr := e.WorkOn(context.Background(), a.ID)
	require.Nil(t, terr)
	_, terr = e.WorkOn(context.Background(), b.ID)
	require.Nil(t, terr)

	// Both tasks land on the story's branch, created once.
	assert.Equal(t, []string{"1-user-auth"}, fake.CreatedBrch)
	assert.Equal(t, "1-user-auth", fake.Branch)
}

func TestWorkOnCreatesWorktree(t *testing.T) {
	e, fake, cfg := newFlagEngine(t, "{:use-git? true :worktree-management? true}")
	story := addTask(t, e, AddParams{Category: "c", Title: "User Auth", Type: "story"})
	child := addTask(t, e, AddParams{Category: "c", Title: "login form", ParentID: &story.ID})

	mainDir := filepath.Join(cfg.BaseDir, "acme")
	wtPath := filepath.Join(cfg.BaseDir, "acme-user-auth")
	require.NoError(t, os.MkdirAll(mainDir, 0o755))
	require.NoError(t, os.MkdirAll(wtPath, 0o755))
	fake.MainDir = mainDir

	res, terr := e.WorkOn(context.Background(), child.ID)
	require.Nil(t, terr)

	require.Len(t, fake.AddedTrees, 1)
	assert.Equal(t, wtPath, fake.AddedTrees[0].Path)
	assert.Equal(t, "1-user-auth", fake.AddedTrees[0].Branch)
	assert.Contains(t, res.Message, "switch your working directory")

	// Execution state lives in the worktree, not the main checkout.
	es, err := execstate.Read(wtPath)
	require.NoError(t, err)
	require.NotNil(t, es)
	assert.Equal(t, child.ID, es.TaskID)
	require.NotNil(t, es.StoryID)
	assert.Equal(t, story.ID, *es.StoryID)

	base, err := execstate.Read(cfg.BaseDir)
	require.NoError(t, err)
	assert.Nil(t, base)

	// A second work-on for a sibling finds the same worktree.
	res, terr = e.WorkOn(context.Background(), child.ID)
	require.Nil(t, terr)
	assert.Len(t, fake.AddedTrees, 1)
	data := res.Data.(map[string]any)
	assert.Equal(t, wtPath, data["worktree"])
}
