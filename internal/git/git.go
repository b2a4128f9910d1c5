// Package git wraps shell invocations of git for the task engine.
//
// Every operation targets an explicit working directory because the engine
// talks to both the base repository and per-story worktrees. The adapter
// never logs and never panics; git's own stderr text is returned verbatim so
// tools can surface it in structured replies.
//
// Engine code depends on the Git interface, not on CLI, so tests can inject
// a scripted stub.
package git

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Worktree is one entry of `git worktree list`.
type Worktree struct {
	Path   string
	Branch string
}

// PullClass classifies a failed pull so the engine can decide whether the
// mutation may proceed.
type PullClass string

const (
	PullOK       PullClass = ""
	PullConflict PullClass = "conflict"
	PullNetwork  PullClass = "network"
	PullNoRemote PullClass = "no-remote"
	PullOther    PullClass = "other"
)

// PullResult reports the outcome of a pull without raising an error.
type PullResult struct {
	Pulled bool
	Class  PullClass
	Err    string // git stderr, verbatim
}

// Git is the adapter surface the engine and worktree manager need.
type Git interface {
	StatusPorcelain(ctx context.Context, dir string) (string, error)
	HasUncommitted(ctx context.Context, dir string) (bool, error)
	Add(ctx context.Context, dir string, paths ...string) error
	Commit(ctx context.Context, dir, message string) (string, error)
	Pull(ctx context.Context, dir, branch string) PullResult
	CurrentBranch(ctx context.Context, dir string) (string, error)
	DefaultBranch(ctx context.Context, dir string) (string, error)
	BranchExists(ctx context.Context, dir, name string) bool
	Checkout(ctx context.Context, dir, name string) error
	CreateAndCheckout(ctx context.Context, dir, name, base string) error
	WorktreeList(ctx context.Context, dir string) ([]Worktree, error)
	WorktreeAdd(ctx context.Context, dir, path, branch, base string) error
	WorktreeRemove(ctx context.Context, dir, path string) error
	InWorktree(ctx context.Context, dir string) (bool, error)
	MainRepoDir(ctx context.Context, dir string) (string, error)
}

// CLI shells out to the git binary.
type CLI struct{}

// New returns the real git adapter.
func New() *CLI { return &CLI{} }

func (c *CLI) run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("%s", msg)
	}
	return stdout.String(), nil
}

func (c *CLI) StatusPorcelain(ctx context.Context, dir string) (string, error) {
	out, err := c.run(ctx, dir, "status", "--porcelain")
	if err != nil {
		return "", fmt.Errorf("git status: %w", err)
	}
	return out, nil
}

func (c *CLI) HasUncommitted(ctx context.Context, dir string) (bool, error) {
	out, err := c.StatusPorcelain(ctx, dir)
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) != "", nil
}

func (c *CLI) Add(ctx context.Context, dir string, paths ...string) error {
	args := append([]string{"add", "--"}, paths...)
	if _, err := c.run(ctx, dir, args...); err != nil {
		return fmt.Errorf("git add: %w", err)
	}
	return nil
}

func (c *CLI) Commit(ctx context.Context, dir, message string) (string, error) {
	if _, err := c.run(ctx, dir, "commit", "-m", message); err != nil {
		return "", fmt.Errorf("git commit: %w", err)
	}
	out, err := c.run(ctx, dir, "rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("get commit hash: %w", err)
	}
	return strings.TrimSpace(out), nil
}

func (c *CLI) Pull(ctx context.Context, dir, branch string) PullResult {
	args := []string{"pull"}
	if branch != "" {
		args = append(args, "origin", branch)
	}
	if _, err := c.run(ctx, dir, args...); err != nil {
		return PullResult{Class: ClassifyPullError(err.Error()), Err: err.Error()}
	}
	return PullResult{Pulled: true}
}

// ClassifyPullError buckets git's pull stderr into the classes the engine
// distinguishes. Anything unrecognized is PullOther; the engine treats that
// as fatal to preserve pull-before-write.
func ClassifyPullError(msg string) PullClass {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "conflict"),
		strings.Contains(lower, "automatic merge failed"),
		strings.Contains(lower, "needs merge"),
		strings.Contains(lower, "would be overwritten"):
		return PullConflict
	case strings.Contains(lower, "no remote repository"),
		strings.Contains(lower, "does not appear to be a git repository"),
		strings.Contains(lower, "no tracking information"),
		strings.Contains(lower, "no such remote"),
		strings.Contains(lower, "couldn't find remote ref"):
		return PullNoRemote
	case strings.Contains(lower, "could not resolve host"),
		strings.Contains(lower, "unable to access"),
		strings.Contains(lower, "connection refused"),
		strings.Contains(lower, "connection timed out"),
		strings.Contains(lower, "operation timed out"),
		strings.Contains(lower, "network is unreachable"),
		strings.Contains(lower, "could not read from remote repository"),
		strings.Contains(lower, "context deadline exceeded"):
		return PullNetwork
	default:
		return PullOther
	}
}

func (c *CLI) CurrentBranch(ctx context.Context, dir string) (string, error) {
	out, err := c.run(ctx, dir, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", fmt.Errorf("get current branch: %w", err)
	}
	return strings.TrimSpace(out), nil
}

func (c *CLI) DefaultBranch(ctx context.Context, dir string) (string, error) {
	// origin/HEAD names the remote default when a remote exists.
	if out, err := c.run(ctx, dir, "symbolic-ref", "refs/remotes/origin/HEAD"); err == nil {
		ref := strings.TrimSpace(out)
		if name := strings.TrimPrefix(ref, "refs/remotes/origin/"); name != ref {
			return name, nil
		}
	}
	for _, name := range []string{"main", "master"} {
		if c.BranchExists(ctx, dir, name) {
			return name, nil
		}
	}
	return "", fmt.Errorf("no default branch: neither main nor master exists")
}

func (c *CLI) BranchExists(ctx context.Context, dir, name string) bool {
	_, err := c.run(ctx, dir, "rev-parse", "--verify", "refs/heads/"+name)
	return err == nil
}

func (c *CLI) Checkout(ctx context.Context, dir, name string) error {
	if _, err := c.run(ctx, dir, "checkout", name); err != nil {
		return fmt.Errorf("git checkout %s: %w", name, err)
	}
	return nil
}

func (c *CLI) CreateAndCheckout(ctx context.Context, dir, name, base string) error {
	args := []string{"checkout", "-b", name}
	if base != "" {
		args = append(args, base)
	}
	if _, err := c.run(ctx, dir, args...); err != nil {
		return fmt.Errorf("git checkout -b %s: %w", name, err)
	}
	return nil
}

func (c *CLI) WorktreeList(ctx context.Context, dir string) ([]Worktree, error) {
	out, err := c.run(ctx, dir, "worktree", "list", "--porcelain")
	if err != nil {
		return nil, fmt.Errorf("list worktrees: %w", err)
	}

	var worktrees []Worktree
	var current Worktree
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			if current.Path != "" {
				worktrees = append(worktrees, current)
				current = Worktree{}
			}
			continue
		}
		switch {
		case strings.HasPrefix(line, "worktree "):
			current.Path = strings.TrimPrefix(line, "worktree ")
		case strings.HasPrefix(line, "branch "):
			branch := strings.TrimPrefix(line, "branch ")
			current.Branch = strings.TrimPrefix(branch, "refs/heads/")
		}
	}
	if current.Path != "" {
		worktrees = append(worktrees, current)
	}
	return worktrees, nil
}

func (c *CLI) WorktreeAdd(ctx context.Context, dir, path, branch, base string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return fmt.Errorf("create parent directory: %w", err)
	}

	var args []string
	if c.BranchExists(ctx, dir, branch) {
		args = []string{"worktree", "add", absPath, branch}
	} else {
		args = []string{"worktree", "add", "-b", branch, absPath}
		if base != "" {
			args = append(args, base)
		}
	}
	if _, err := c.run(ctx, dir, args...); err != nil {
		return fmt.Errorf("create worktree: %w", err)
	}
	return nil
}

func (c *CLI) WorktreeRemove(ctx context.Context, dir, path string) error {
	if _, err := c.run(ctx, dir, "worktree", "remove", path); err != nil {
		return fmt.Errorf("remove worktree: %w", err)
	}
	return nil
}

func (c *CLI) InWorktree(ctx context.Context, dir string) (bool, error) {
	root, err := c.run(ctx, dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return false, fmt.Errorf("not a git repository: %w", err)
	}
	gitPath := filepath.Join(strings.TrimSpace(root), ".git")
	info, err := os.Stat(gitPath)
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", gitPath, err)
	}
	// Worktrees have .git as a file pointing at the main repo.
	return !info.IsDir(), nil
}

func (c *CLI) MainRepoDir(ctx context.Context, dir string) (string, error) {
	out, err := c.run(ctx, dir, "rev-parse", "--git-common-dir")
	if err != nil {
		return "", fmt.Errorf("get git common dir: %w", err)
	}
	commonDir := strings.TrimSpace(out)
	if !filepath.IsAbs(commonDir) {
		root, err := c.run(ctx, dir, "rev-parse", "--show-toplevel")
		if err != nil {
			return "", fmt.Errorf("resolve repo root: %w", err)
		}
		commonDir = filepath.Join(strings.TrimSpace(root), commonDir)
	}
	commonDir, err = filepath.Abs(commonDir)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path: %w", err)
	}
	return filepath.Dir(commonDir), nil
}
