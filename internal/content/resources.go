// Package content exposes the record files as MCP resources so hosts can
// read the raw data without going through select-tasks.
package content

import (
	"fmt"
	"os"

	"github.com/taskmill/mcp-tasks/internal/config"
	"github.com/taskmill/mcp-tasks/internal/mcp"
)

// --- mcp-tasks://tasks resource ---

// TasksResource exposes the live tasks.ednl file verbatim.
type TasksResource struct {
	cfg *config.Config
}

func NewTasksResource(cfg *config.Config) *TasksResource {
	return &TasksResource{cfg: cfg}
}

func (r *TasksResource) Definition() mcp.ResourceDefinition {
	return mcp.ResourceDefinition{
		URI:         "mcp-tasks://tasks",
		Name:        "Live tasks",
		Description: "The tasks.ednl record file: one EDN map per line, all live tasks",
		MimeType:    "application/edn",
	}
}

func (r *TasksResource) Read() (*mcp.ResourcesReadResult, error) {
	return readFile("mcp-tasks://tasks", r.cfg.TasksFile())
}

// --- mcp-tasks://complete resource ---

// CompleteResource exposes the archive complete.ednl file verbatim.
type CompleteResource struct {
	cfg *config.Config
}

func NewCompleteResource(cfg *config.Config) *CompleteResource {
	return &CompleteResource{cfg: cfg}
}

func (r *CompleteResource) Definition() mcp.ResourceDefinition {
	return mcp.ResourceDefinition{
		URI:         "mcp-tasks://complete",
		Name:        "Archived tasks",
		Description: "The complete.ednl record file: closed and deleted tasks",
		MimeType:    "application/edn",
	}
}

func (r *CompleteResource) Read() (*mcp.ResourcesReadResult, error) {
	return readFile("mcp-tasks://complete", r.cfg.CompleteFile())
}

func readFile(uri, path string) (*mcp.ResourcesReadResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			data = nil
		} else {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
	}
	return &mcp.ResourcesReadResult{
		Contents: []mcp.ResourceContent{
			{
				URI:      uri,
				MimeType: "application/edn",
				Text:     string(data),
			},
		},
	}, nil
}
