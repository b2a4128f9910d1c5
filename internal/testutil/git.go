// Package testutil provides a scripted git adapter for engine and worktree
// tests.
package testutil

import (
	"context"
	"fmt"

	"github.com/taskmill/mcp-tasks/internal/git"
)

// FakeGit implements git.Git against in-memory state. Fields are plain so
// tests can script outcomes directly.
type FakeGit struct {
	Branch   string
	Default  string
	Branches map[string]bool
	Dirty    bool

	PullResult *git.PullResult // nil means a clean pull
	PullCalls  int

	Commits   []string // commit messages, in order
	CommitErr error
	AddErr    error
	AddedDirs []string

	Worktrees   []git.Worktree
	AddedTrees  []git.Worktree
	RemovedWT   []string
	InWT        bool
	MainDir     string
	CheckedOut  []string
	CreatedBrch []string
}

// NewFakeGit returns a stub on branch main with a clean tree.
func NewFakeGit() *FakeGit {
	return &FakeGit{
		Branch:   "main",
		Default:  "main",
		Branches: map[string]bool{"main": true},
	}
}

func (f *FakeGit) StatusPorcelain(ctx context.Context, dir string) (string, error) {
	if f.Dirty {
		return " M somefile\n", nil
	}
	return "", nil
}

func (f *FakeGit) HasUncommitted(ctx context.Context, dir string) (bool, error) {
	return f.Dirty, nil
}

func (f *FakeGit) Add(ctx context.Context, dir string, paths ...string) error {
	if f.AddErr != nil {
		return f.AddErr
	}
	f.AddedDirs = append(f.AddedDirs, dir)
	return nil
}

func (f *FakeGit) Commit(ctx context.Context, dir, message string) (string, error) {
	if f.CommitErr != nil {
		return "", f.CommitErr
	}
	f.Commits = append(f.Commits, message)
	return fmt.Sprintf("sha%04d", len(f.Commits)), nil
}

func (f *FakeGit) Pull(ctx context.Context, dir, branch string) git.PullResult {
	f.PullCalls++
	if f.PullResult != nil {
		return *f.PullResult
	}
	return git.PullResult{Pulled: true}
}

func (f *FakeGit) CurrentBranch(ctx context.Context, dir string) (string, error) {
	return f.Branch, nil
}

func (f *FakeGit) DefaultBranch(ctx context.Context, dir string) (string, error) {
	if f.Default == "" {
		return "", fmt.Errorf("no default branch")
	}
	return f.Default, nil
}

func (f *FakeGit) BranchExists(ctx context.Context, dir, name string) bool {
	return f.Branches[name]
}

func (f *FakeGit) Checkout(ctx context.Context, dir, name string) error {
	if !f.Branches[name] {
		return fmt.Errorf("branch %s does not exist", name)
	}
	f.Branch = name
	f.CheckedOut = append(f.CheckedOut, name)
	return nil
}

func (f *FakeGit) CreateAndCheckout(ctx context.Context, dir, name, base string) error {
	if f.Branches == nil {
		f.Branches = map[string]bool{}
	}
	f.Branches[name] = true
	f.Branch = name
	f.CreatedBrch = append(f.CreatedBrch, name)
	return nil
}

func (f *FakeGit) WorktreeList(ctx context.Context, dir string) ([]git.Worktree, error) {
	return append([]git.Worktree(nil), f.Worktrees...), nil
}

func (f *FakeGit) WorktreeAdd(ctx context.Context, dir, path, branch, base string) error {
	wt := git.Worktree{Path: path, Branch: branch}
	f.Worktrees = append(f.Worktrees, wt)
	f.AddedTrees = append(f.AddedTrees, wt)
	if f.Branches == nil {
		f.Branches = map[string]bool{}
	}
	f.Branches[branch] = true
	return nil
}

func (f *FakeGit) WorktreeRemove(ctx context.Context, dir, path string) error {
	f.RemovedWT = append(f.RemovedWT, path)
	for i, wt := range f.Worktrees {
		if wt.Path == path {
			f.Worktrees = append(f.Worktrees[:i], f.Worktrees[i+1:]...)
			break
		}
	}
	return nil
}

func (f *FakeGit) InWorktree(ctx context.Context, dir string) (bool, error) {
	return f.InWT, nil
}

func (f *FakeGit) MainRepoDir(ctx context.Context, dir string) (string, error) {
	if f.MainDir != "" {
		return f.MainDir, nil
	}
	return dir, nil
}
