// Package worktree derives branch and worktree names from tasks and manages
// the per-story worktree lifecycle.
package worktree

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/taskmill/mcp-tasks/internal/git"
	"github.com/taskmill/mcp-tasks/internal/store"
	"github.com/taskmill/mcp-tasks/internal/task"
	"github.com/taskmill/mcp-tasks/internal/taskerr"
)

// Slug lowercases a title, replaces every run of non-alphanumeric characters
// with a single hyphen, and trims leading and trailing hyphens.
func Slug(title string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(title) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastHyphen = false
		} else if !lastHyphen {
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// Root resolves the task whose id and title name the branch: the parent story
// for story children, the task itself otherwise.
func Root(st *store.Store, t *task.Task) (*task.Task, *taskerr.Error) {
	pid, ok := t.Parent()
	if !ok {
		return t, nil
	}
	parent, found := st.ByID(pid)
	if !found {
		return nil, taskerr.New(taskerr.KindIntegrity, "parent task %d not found", pid).
			With("parent-id", pid)
	}
	return parent, nil
}

// BranchName returns "<root-id>-<slug>" for the given root task.
func BranchName(root *task.Task) string {
	return fmt.Sprintf("%d-%s", root.ID, Slug(root.Title))
}

// Manager handles branch switching and worktree creation for work-on.
type Manager struct {
	Git git.Git
}

// EnsureBranchResult reports what EnsureBranch did.
type EnsureBranchResult struct {
	Branch   string
	Switched bool
	Created  bool
	Notes    []string
}

// EnsureBranch puts dir on the target branch, creating it from the base
// branch when needed. A dirty working tree is an error unless dir is already
// on the target branch.
func (m *Manager) EnsureBranch(ctx context.Context, dir, target, baseOverride string) (*EnsureBranchResult, *taskerr.Error) {
	res := &EnsureBranchResult{Branch: target}

	current, err := m.Git.CurrentBranch(ctx, dir)
	if err != nil {
		return nil, taskerr.New(taskerr.KindGitOther, "cannot determine current branch: %v", err)
	}
	if current == target {
		return res, nil
	}

	base := baseOverride
	if base == "" {
		base, err = m.Git.DefaultBranch(ctx, dir)
		if err != nil {
			return nil, taskerr.New(taskerr.KindGitOther, "cannot determine base branch: %v", err)
		}
	}
	if !m.Git.BranchExists(ctx, dir, base) {
		return nil, taskerr.New(taskerr.KindGitOther, "base branch %q does not exist", base).
			With("base-branch", base)
	}

	dirty, err := m.Git.HasUncommitted(ctx, dir)
	if err != nil {
		return nil, taskerr.New(taskerr.KindGitOther, "cannot check working tree: %v", err)
	}
	if dirty {
		return nil, taskerr.New(taskerr.KindState,
			"working tree has uncommitted changes; commit or stash before switching to %s", target).
			With("current-branch", current).
			With("target-branch", target)
	}

	if err := m.Git.Checkout(ctx, dir, base); err != nil {
		return nil, taskerr.New(taskerr.KindGitOther, "checkout %s: %v", base, err)
	}
	if pr := m.Git.Pull(ctx, dir, base); !pr.Pulled && pr.Class != git.PullNoRemote {
		// Stale base is survivable; a conflicted one is not.
		if pr.Class == git.PullConflict {
			return nil, taskerr.New(taskerr.KindGitConflict, "pull on %s conflicted: %s", base, pr.Err)
		}
		res.Notes = append(res.Notes, fmt.Sprintf("pull on %s failed (%s); branching from local state", base, pr.Class))
	}

	if m.Git.BranchExists(ctx, dir, target) {
		if err := m.Git.Checkout(ctx, dir, target); err != nil {
			return nil, taskerr.New(taskerr.KindGitOther, "checkout %s: %v", target, err)
		}
	} else {
		if err := m.Git.CreateAndCheckout(ctx, dir, target, base); err != nil {
			return nil, taskerr.New(taskerr.KindGitOther, "create branch %s: %v", target, err)
		}
		res.Created = true
	}
	res.Switched = true
	return res, nil
}

// EnsureWorktreeResult reports where the target branch lives and whether the
// caller must switch directories to reach it.
type EnsureWorktreeResult struct {
	Path       string
	Branch     string
	Created    bool
	NeedSwitch bool
}

// EnsureWorktree finds or creates the worktree for the target branch.
//
// When the branch already has a worktree and dir resolves inside it the
// worktree is reused silently; when it lives elsewhere the caller gets
// NeedSwitch so the tool can emit a change-directory directive. New worktrees
// are created as "<project>-<slug>" siblings of the main repository.
func (m *Manager) EnsureWorktree(ctx context.Context, dir, target, baseOverride, slug string) (*EnsureWorktreeResult, *taskerr.Error) {
	list, err := m.Git.WorktreeList(ctx, dir)
	if err != nil {
		return nil, taskerr.New(taskerr.KindGitOther, "list worktrees: %v", err)
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, taskerr.New(taskerr.KindFilesystem, "resolve %s: %v", dir, err)
	}
	for _, wt := range list {
		if wt.Branch != target {
			continue
		}
		inside := absDir == wt.Path || strings.HasPrefix(absDir, wt.Path+string(filepath.Separator))
		return &EnsureWorktreeResult{Path: wt.Path, Branch: target, NeedSwitch: !inside}, nil
	}

	mainDir, err := m.Git.MainRepoDir(ctx, dir)
	if err != nil {
		return nil, taskerr.New(taskerr.KindGitOther, "locate main repository: %v", err)
	}
	base := baseOverride
	if base == "" {
		base, err = m.Git.DefaultBranch(ctx, mainDir)
		if err != nil {
			return nil, taskerr.New(taskerr.KindGitOther, "cannot determine base branch: %v", err)
		}
	}

	path := filepath.Join(filepath.Dir(mainDir), filepath.Base(mainDir)+"-"+slug)
	if err := m.Git.WorktreeAdd(ctx, mainDir, path, target, base); err != nil {
		return nil, taskerr.New(taskerr.KindGitOther, "create worktree %s: %v", path, err)
	}
	return &EnsureWorktreeResult{Path: path, Branch: target, Created: true, NeedSwitch: true}, nil
}

// Cleanup removes the worktree containing dir if its tree is clean. The
// returned string is a human-readable warning when cleanup was skipped or
// failed; completion never fails on it.
func (m *Manager) Cleanup(ctx context.Context, dir string) string {
	inWT, err := m.Git.InWorktree(ctx, dir)
	if err != nil || !inWT {
		return ""
	}
	dirty, err := m.Git.HasUncommitted(ctx, dir)
	if err != nil {
		return fmt.Sprintf("worktree cleanup skipped: %v", err)
	}
	if dirty {
		return "worktree has uncommitted changes; not removed"
	}
	mainDir, err := m.Git.MainRepoDir(ctx, dir)
	if err != nil {
		return fmt.Sprintf("worktree cleanup skipped: %v", err)
	}
	if err := m.Git.WorktreeRemove(ctx, mainDir, dir); err != nil {
		return fmt.Sprintf("worktree removal failed: %v", err)
	}
	return ""
}
