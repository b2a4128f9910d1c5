package content

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmill/mcp-tasks/internal/config"
)

func newConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(cfg.DataDir(), 0o755))
	return cfg
}

func TestTasksResourceReadsFileVerbatim(t *testing.T) {
	cfg := newConfig(t)
	line := "{:id 1 :title \"t\" :status :open}\n"
	require.NoError(t, os.WriteFile(cfg.TasksFile(), []byte(line), 0o644))

	r := NewTasksResource(cfg)
	assert.Equal(t, "mcp-tasks://tasks", r.Definition().URI)
	assert.Equal(t, "application/edn", r.Definition().MimeType)

	res, err := r.Read()
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)
	assert.Equal(t, line, res.Contents[0].Text)
	assert.Equal(t, "mcp-tasks://tasks", res.Contents[0].URI)
}

func TestCompleteResourceMissingFile(t *testing.T) {
	cfg := newConfig(t)

	r := NewCompleteResource(cfg)
	res, err := r.Read()
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)
	assert.Empty(t, res.Contents[0].Text)
}
