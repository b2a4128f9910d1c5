// Package execstate tracks the single in-flight task via the
// .mcp-tasks-current.edn file in a working copy's base directory.
//
// work-on writes the file (into the target worktree when worktrees are in
// play), complete-task removes it. Its presence is the only signal used to
// auto-prefix shared-context entries.
package execstate

import (
	"fmt"
	"os"
	"path/filepath"

	"olympos.io/encoding/edn"

	"github.com/taskmill/mcp-tasks/internal/config"
)

// State is the contents of .mcp-tasks-current.edn.
type State struct {
	TaskID    int    `edn:"task-id" json:"task-id"`
	StoryID   *int   `edn:"story-id,omitempty" json:"story-id,omitempty"`
	StartedAt string `edn:"started-at" json:"started-at"`
}

// Path returns the state file location under dir.
func Path(dir string) string {
	return filepath.Join(dir, config.ExecStateFileName)
}

// Read loads the state, returning nil when no task is in progress.
func Read(dir string) (*State, error) {
	data, err := os.ReadFile(Path(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read execution state: %w", err)
	}
	var st State
	if err := edn.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parse execution state: %w", err)
	}
	return &st, nil
}

// Write records the in-flight task.
func Write(dir string, st *State) error {
	data, err := edn.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode execution state: %w", err)
	}
	if err := os.WriteFile(Path(dir), append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write execution state: %w", err)
	}
	return nil
}

// Clear removes the state file. Removing an absent file is not an error.
func Clear(dir string) error {
	if err := os.Remove(Path(dir)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clear execution state: %w", err)
	}
	return nil
}
