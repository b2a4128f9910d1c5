package query

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmill/mcp-tasks/internal/config"
	"github.com/taskmill/mcp-tasks/internal/engine"
	"github.com/taskmill/mcp-tasks/internal/testutil"
)

func newSelect(t *testing.T) *Select {
	t.Helper()
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	e := engine.New(cfg, testutil.NewFakeGit(), logger)

	for _, title := range []string{"first", "second", "third"} {
		_, terr := e.AddTask(context.Background(), engine.AddParams{Category: "c", Title: title})
		require.Nil(t, terr)
	}
	return NewSelect(e)
}

func TestSelectExecute(t *testing.T) {
	sel := newSelect(t)

	res, err := sel.Execute(context.Background(), json.RawMessage(`{"limit": 2}`))
	require.NoError(t, err)
	require.False(t, res.IsError)

	var body struct {
		Tasks    []json.RawMessage `json:"tasks"`
		Metadata struct {
			OpenTaskCount int  `json:"open-task-count"`
			ReturnedCount int  `json:"returned-count"`
			TotalMatches  int  `json:"total-matches"`
			Limited       bool `json:"limited?"`
		} `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.Content[0].Text), &body))
	assert.Len(t, body.Tasks, 2)
	assert.Equal(t, 3, body.Metadata.OpenTaskCount)
	assert.Equal(t, 2, body.Metadata.ReturnedCount)
	assert.Equal(t, 3, body.Metadata.TotalMatches)
	assert.True(t, body.Metadata.Limited)
}

func TestSelectExecuteNoArguments(t *testing.T) {
	sel := newSelect(t)

	res, err := sel.Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, res.IsError)
}

func TestSelectExecuteRejectsNonPositiveLimit(t *testing.T) {
	sel := newSelect(t)

	res, err := sel.Execute(context.Background(), json.RawMessage(`{"limit": 0}`))
	require.NoError(t, err)
	require.True(t, res.IsError)
	assert.Contains(t, res.Content[0].Text, "limit must be positive")
}

func TestSelectExecuteAmbiguousUnique(t *testing.T) {
	sel := newSelect(t)

	res, err := sel.Execute(context.Background(), json.RawMessage(`{"unique": true}`))
	require.NoError(t, err)
	require.True(t, res.IsError)

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.Content[1].Text), &body))
	meta := body["metadata"].(map[string]any)
	assert.Equal(t, "ambiguous", meta["kind"])
	assert.Equal(t, float64(3), meta["count"])
}
