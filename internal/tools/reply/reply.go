// Package reply shapes engine outcomes into MCP tool results.
//
// Success replies carry one to three text items: a human message, an
// optional JSON payload, and the git status when git is enabled. Error
// replies carry the message plus a JSON object {error, metadata}.
package reply

import (
	"github.com/taskmill/mcp-tasks/internal/engine"
	"github.com/taskmill/mcp-tasks/internal/mcp"
	"github.com/taskmill/mcp-tasks/internal/taskerr"
)

// FromResult renders a successful engine result.
func FromResult(res *engine.Result) (*mcp.ToolsCallResult, error) {
	content := []mcp.ContentBlock{mcp.TextContent(res.Message)}
	if res.Data != nil {
		block, err := mcp.JSONBlock(res.Data)
		if err != nil {
			return nil, err
		}
		content = append(content, block)
	}
	if res.Git != nil {
		block, err := mcp.JSONBlock(res.Git)
		if err != nil {
			return nil, err
		}
		content = append(content, block)
	}
	return &mcp.ToolsCallResult{Content: content}, nil
}

// FromError renders a domain error as an MCP error result.
func FromError(terr *taskerr.Error) *mcp.ToolsCallResult {
	meta := make(map[string]any, len(terr.Metadata)+1)
	for k, v := range terr.Metadata {
		meta[k] = v
	}
	meta["kind"] = string(terr.Kind)

	payload := map[string]any{
		"error":    terr.Message,
		"metadata": meta,
	}
	block, err := mcp.JSONBlock(payload)
	if err != nil {
		return mcp.ErrorResult(terr.Message)
	}
	return &mcp.ToolsCallResult{
		Content: []mcp.ContentBlock{mcp.TextContent(terr.Message), block},
		IsError: true,
	}
}
