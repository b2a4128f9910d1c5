package worktree

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmill/mcp-tasks/internal/git"
	"github.com/taskmill/mcp-tasks/internal/task"
	"github.com/taskmill/mcp-tasks/internal/taskerr"
	"github.com/taskmill/mcp-tasks/internal/testutil"
)

func TestSlug(t *testing.T) {
	cases := map[string]string{
		"Implement user auth":      "implement-user-auth",
		"Fix  the -- parser!!":     "fix-the-parser",
		"  spaces  ":               "spaces",
		"CamelCase123":             "camelcase123",
		"###":                      "",
		"v2.0 rollout (phase one)": "v2-0-rollout-phase-one",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slug(in), "Slug(%q)", in)
	}
}

func TestBranchName(t *testing.T) {
	root := &task.Task{ID: 42, Title: "Implement user auth"}
	assert.Equal(t, "42-implement-user-auth", BranchName(root))
}

func TestEnsureBranchAlreadyOnTarget(t *testing.T) {
	fake := testutil.NewFakeGit()
	fake.Branch = "7-fix-login"
	m := &Manager{Git: fake}

	res, terr := m.EnsureBranch(context.Background(), "/repo", "7-fix-login", "")
	require.Nil(t, terr)
	assert.False(t, res.Switched)
	assert.False(t, res.Created)
	assert.Empty(t, fake.CheckedOut)
}

func TestEnsureBranchCreatesFromBase(t *testing.T) {
	fake := testutil.NewFakeGit()
	m := &Manager{Git: fake}

	res, terr := m.EnsureBranch(context.Background(), "/repo", "7-fix-login", "")
	require.Nil(t, terr)
	assert.True(t, res.Created)
	assert.True(t, res.Switched)
	assert.Equal(t, "7-fix-login", fake.Branch)
	assert.Equal(t, []string{"main"}, fake.CheckedOut)
	assert.Equal(t, []string{"7-fix-login"}, fake.CreatedBrch)
	assert.Equal(t, 1, fake.PullCalls)
}

func TestEnsureBranchSwitchesToExisting(t *testing.T) {
	fake := testutil.NewFakeGit()
	fake.Branches["7-fix-login"] = true
	m := &Manager{Git: fake}

	res, terr := m.EnsureBranch(context.Background(), "/repo", "7-fix-login", "")
	require.Nil(t, terr)
	assert.False(t, res.Created)
	assert.True(t, res.Switched)
	assert.Empty(t, fake.CreatedBrch)
	assert.Equal(t, "7-fix-login", fake.Branch)
}

func TestEnsureBranchDirtyTree(t *testing.T) {
	fake := testutil.NewFakeGit()
	fake.Dirty = true
	m := &Manager{Git: fake}

	_, terr := m.EnsureBranch(context.Background(), "/repo", "7-fix-login", "")
	require.NotNil(t, terr)
	assert.Equal(t, taskerr.KindState, terr.Kind)
	assert.Equal(t, "main", terr.Metadata["current-branch"])
	assert.Equal(t, "7-fix-login", terr.Metadata["target-branch"])
	// No checkout happened.
	assert.Empty(t, fake.CheckedOut)
}

func TestEnsureBranchMissingBase(t *testing.T) {
	fake := testutil.NewFakeGit()
	m := &Manager{Git: fake}

	_, terr := m.EnsureBranch(context.Background(), "/repo", "7-fix-login", "develop")
	require.NotNil(t, terr)
	assert.Equal(t, taskerr.KindGitOther, terr.Kind)
	assert.Equal(t, "develop", terr.Metadata["base-branch"])
}

func TestEnsureBranchPullConflictFatal(t *testing.T) {
	fake := testutil.NewFakeGit()
	fake.PullResult = &git.PullResult{Class: git.PullConflict, Err: "merge conflict"}
	m := &Manager{Git: fake}

	_, terr := m.EnsureBranch(context.Background(), "/repo", "7-fix-login", "")
	require.NotNil(t, terr)
	assert.Equal(t, taskerr.KindGitConflict, terr.Kind)
}

func TestEnsureBranchPullNetworkNoteOnly(t *testing.T) {
	fake := testutil.NewFakeGit()
	fake.PullResult = &git.PullResult{Class: git.PullNetwork, Err: "could not resolve host"}
	m := &Manager{Git: fake}

	res, terr := m.EnsureBranch(context.Background(), "/repo", "7-fix-login", "")
	require.Nil(t, terr)
	assert.True(t, res.Created)
	require.Len(t, res.Notes, 1)
	assert.Contains(t, res.Notes[0], "branching from local state")
}

func TestEnsureWorktreeCreates(t *testing.T) {
	fake := testutil.NewFakeGit()
	fake.MainDir = "/home/dev/acme"
	m := &Manager{Git: fake}

	res, terr := m.EnsureWorktree(context.Background(), "/home/dev/acme", "7-fix-login", "", "fix-login")
	require.Nil(t, terr)
	assert.True(t, res.Created)
	assert.True(t, res.NeedSwitch)
	assert.Equal(t, filepath.Join("/home/dev", "acme-fix-login"), res.Path)
	require.Len(t, fake.AddedTrees, 1)
	assert.Equal(t, "7-fix-login", fake.AddedTrees[0].Branch)
}

func TestEnsureWorktreeReusedFromInside(t *testing.T) {
	fake := testutil.NewFakeGit()
	fake.Worktrees = []git.Worktree{{Path: "/home/dev/acme-fix-login", Branch: "7-fix-login"}}
	m := &Manager{Git: fake}

	res, terr := m.EnsureWorktree(context.Background(), "/home/dev/acme-fix-login", "7-fix-login", "", "fix-login")
	require.Nil(t, terr)
	assert.False(t, res.Created)
	assert.False(t, res.NeedSwitch)
	assert.Equal(t, "/home/dev/acme-fix-login", res.Path)
	assert.Empty(t, fake.AddedTrees)
}

func TestEnsureWorktreeExistingElsewhere(t *testing.T) {
	fake := testutil.NewFakeGit()
	fake.Worktrees = []git.Worktree{{Path: "/home/dev/acme-fix-login", Branch: "7-fix-login"}}
	m := &Manager{Git: fake}

	res, terr := m.EnsureWorktree(context.Background(), "/home/dev/acme", "7-fix-login", "", "fix-login")
	require.Nil(t, terr)
	assert.False(t, res.Created)
	assert.True(t, res.NeedSwitch)
	assert.Equal(t, "/home/dev/acme-fix-login", res.Path)
	// Existing worktree is reused, never recreated.
	assert.Empty(t, fake.AddedTrees)
}

func TestCleanupOutsideWorktree(t *testing.T) {
	fake := testutil.NewFakeGit()
	m := &Manager{Git: fake}

	assert.Empty(t, m.Cleanup(context.Background(), "/home/dev/acme"))
	assert.Empty(t, fake.RemovedWT)
}

func TestCleanupDirtyWorktree(t *testing.T) {
	fake := testutil.NewFakeGit()
	fake.InWT = true
	fake.Dirty = true
	m := &Manager{Git: fake}

	warn := m.Cleanup(context.Background(), "/home/dev/acme-fix-login")
	assert.Contains(t, warn, "uncommitted changes")
	assert.Empty(t, fake.RemovedWT)
}

func TestCleanupRemovesCleanWorktree(t *testing.T) {
	fake := testutil.NewFakeGit()
	fake.InWT = true
	fake.MainDir = "/home/dev/acme"
	fake.Worktrees = []git.Worktree{{Path: "/home/dev/acme-fix-login", Branch: "7-fix-login"}}
	m := &Manager{Git: fake}

	warn := m.Cleanup(context.Background(), "/home/dev/acme-fix-login")
	assert.Empty(t, warn)
	assert.Equal(t, []string{"/home/dev/acme-fix-login"}, fake.RemovedWT)
}
