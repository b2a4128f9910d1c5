// Package engine runs the mutating tool operations.
//
// Every mutation follows the same pipeline: acquire the write gate, pull
// from the remote when git is on, load both record files, validate, mutate
// in memory, rewrite the files atomically, then commit. Pull failures abort
// the mutation; commit failures do not, they are reported in the reply's
// git status instead.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/taskmill/mcp-tasks/internal/config"
	"github.com/taskmill/mcp-tasks/internal/git"
	"github.com/taskmill/mcp-tasks/internal/store"
	"github.com/taskmill/mcp-tasks/internal/taskerr"
	"github.com/taskmill/mcp-tasks/internal/worktree"
)

// GitStatus is the third content item of mutation replies when git is on.
type GitStatus struct {
	Status string  `json:"status"`
	Commit *string `json:"commit"`
	Error  string  `json:"error,omitempty"`
}

// Result is what an operation hands back to the tool layer: a human message,
// an optional structured payload, and the git outcome when git is enabled.
type Result struct {
	Message string
	Data    any
	Git     *GitStatus
}

// Engine owns the write gate and the pipeline around each mutation.
type Engine struct {
	cfg *config.Config
	git git.Git
	wt  *worktree.Manager
	log *slog.Logger

	mu sync.RWMutex
}

// New builds an engine over the given config and git adapter.
func New(cfg *config.Config, g git.Git, log *slog.Logger) *Engine {
	return &Engine{
		cfg: cfg,
		git: g,
		wt:  &worktree.Manager{Git: g},
		log: log,
	}
}

// Config exposes the engine's configuration to the tool layer.
func (e *Engine) Config() *config.Config { return e.cfg }

// Reload re-reads the project flag file under the write gate. Used by the
// config watcher while the server runs.
func (e *Engine) Reload() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg.Reload()
}

// Snapshot loads a fresh store for read-only use. It waits for any
// in-progress mutation to publish its files first.
func (e *Engine) Snapshot() (*store.Store, *taskerr.Error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.load()
}

func (e *Engine) load() (*store.Store, *taskerr.Error) {
	st, err := store.Load(e.cfg.TasksFile(), e.cfg.CompleteFile())
	if err != nil {
		return nil, taskerr.New(taskerr.KindFilesystem, "load task files: %v", err)
	}
	return st, nil
}

// mutate runs one operation through the pipeline. apply mutates the store
// and returns the reply plus the commit message; a nil commit message means
// the operation changed nothing on disk.
func (e *Engine) mutate(ctx context.Context, apply func(st *store.Store) (*Result, string, *taskerr.Error)) (*Result, *taskerr.Error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if terr := e.sync(ctx); terr != nil {
		return nil, terr
	}

	st, terr := e.load()
	if terr != nil {
		return nil, terr
	}

	res, commitMsg, terr := apply(st)
	if terr != nil {
		return nil, terr
	}
	if commitMsg == "" {
		return res, nil
	}

	if err := st.Write(e.cfg.TasksFile(), e.cfg.CompleteFile()); err != nil {
		return nil, taskerr.New(taskerr.KindFilesystem, "write task files: %v", err)
	}

	if e.cfg.Flags.UseGit {
		res.Git = e.commit(ctx, commitMsg)
	}
	return res, nil
}

// sync pulls the data-file branch before a write. Transient network failures
// are retried briefly; conflicts and persistent failures abort the mutation.
// A repository with no remote skips the pull.
func (e *Engine) sync(ctx context.Context) *taskerr.Error {
	if !e.cfg.Flags.UseGit {
		return nil
	}

	branch, err := e.git.CurrentBranch(ctx, e.cfg.BaseDir)
	if err != nil {
		return taskerr.New(taskerr.KindGitOther, "cannot determine current branch: %v", err)
	}

	var last git.PullResult
	op := func() error {
		last = e.git.Pull(ctx, e.cfg.BaseDir, branch)
		if last.Pulled || last.Class == git.PullNoRemote {
			return nil
		}
		if last.Class == git.PullNetwork {
			return taskerr.New(taskerr.KindGitNetwork, "pull failed: %s", last.Err)
		}
		return backoff.Permanent(taskerr.New(taskerr.KindGitOther, "pull failed: %s", last.Err))
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxElapsedTime = 5 * time.Second
	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, 2), ctx)); err != nil {
		switch last.Class {
		case git.PullConflict:
			return taskerr.New(taskerr.KindGitConflict, "pull conflict on %s: %s", branch, last.Err).
				With("branch", branch)
		case git.PullNetwork:
			return taskerr.New(taskerr.KindGitNetwork, "cannot reach remote: %s", last.Err).
				With("branch", branch)
		default:
			return taskerr.New(taskerr.KindGitOther, "pull failed on %s: %s", branch, last.Err).
				With("branch", branch)
		}
	}
	return nil
}

// commit stages the record files and commits. Failures are reported, not
// raised; the data files already hold the mutation.
func (e *Engine) commit(ctx context.Context, message string) *GitStatus {
	paths := []string{
		config.DataDirName + "/" + config.TasksFileName,
		config.DataDirName + "/" + config.CompleteFileName,
	}
	if err := e.git.Add(ctx, e.cfg.BaseDir, paths...); err != nil {
		e.log.Warn("git add failed", "error", err)
		return &GitStatus{Status: "error", Error: err.Error()}
	}
	sha, err := e.git.Commit(ctx, e.cfg.BaseDir, message)
	if err != nil {
		e.log.Warn("git commit failed", "error", err)
		return &GitStatus{Status: "error", Error: err.Error()}
	}
	e.log.Info("committed", "sha", sha, "message", message)
	return &GitStatus{Status: "committed", Commit: &sha}
}

// nowISO is stubbed in tests.
var nowISO = func() string {
	return time.Now().UTC().Format(time.RFC3339)
}
