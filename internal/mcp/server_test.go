package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoTool struct{}

func (echoTool) Name() string                 { return "echo" }
func (echoTool) Description() string          { return "echoes its message argument" }
func (echoTool) InputSchema() json.RawMessage { return json.RawMessage(`{"type": "object"}`) }
func (echoTool) Execute(ctx context.Context, params json.RawMessage) (*ToolsCallResult, error) {
	var p struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return ErrorResult("bad params"), nil
	}
	return &ToolsCallResult{Content: []ContentBlock{TextContent(p.Message)}}, nil
}

type staticResource struct{}

func (staticResource) Definition() ResourceDefinition {
	return ResourceDefinition{URI: "test://static", Name: "static", MimeType: "text/plain"}
}
func (staticResource) Read() (*ResourcesReadResult, error) {
	return &ResourcesReadResult{Contents: []ResourceContent{{URI: "test://static", Text: "hello"}}}, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	reg := NewRegistry()
	reg.Register(echoTool{})
	reg.RegisterResource(staticResource{})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(reg, ServerInfo{Name: "test", Version: "0.0.1"}, logger)
}

func handle(t *testing.T, s *Server, msg string) *Response {
	t.Helper()
	return s.HandleMessage(context.Background(), []byte(msg))
}

func TestInitialize(t *testing.T) {
	s := newTestServer(t)

	resp := handle(t, s, `{"jsonrpc": "2.0", "id": 1, "method": "initialize", "params": {"protocolVersion": "2024-11-05", "clientInfo": {"name": "test-client"}}}`)
	require.NotNil(t, resp)
	require.Nil(t, resp.Error)

	result, ok := resp.Result.(*InitializeResult)
	require.True(t, ok)
	assert.Equal(t, "2024-11-05", result.ProtocolVersion)
	assert.NotNil(t, result.Capabilities.Tools)
	assert.NotNil(t, result.Capabilities.Resources)
	assert.Equal(t, "test", result.ServerInfo.Name)
}

func TestNotificationGetsNoResponse(t *testing.T) {
	s := newTestServer(t)
	resp := handle(t, s, `{"jsonrpc": "2.0", "method": "notifications/initialized"}`)
	assert.Nil(t, resp)
}

func TestToolsList(t *testing.T) {
	s := newTestServer(t)

	resp := handle(t, s, `{"jsonrpc": "2.0", "id": 2, "method": "tools/list"}`)
	require.Nil(t, resp.Error)
	result, ok := resp.Result.(*ToolsListResult)
	require.True(t, ok)
	require.Len(t, result.Tools, 1)
	assert.Equal(t, "echo", result.Tools[0].Name)
}

func TestToolsCall(t *testing.T) {
	s := newTestServer(t)

	resp := handle(t, s, `{"jsonrpc": "2.0", "id": 3, "method": "tools/call", "params": {"name": "echo", "arguments": {"message": "hi"}}}`)
	require.Nil(t, resp.Error)
	result, ok := resp.Result.(*ToolsCallResult)
	require.True(t, ok)
	require.Len(t, result.Content, 1)
	assert.Equal(t, "hi", result.Content[0].Text)
}

func TestToolsCallUnknownTool(t *testing.T) {
	s := newTestServer(t)

	resp := handle(t, s, `{"jsonrpc": "2.0", "id": 4, "method": "tools/call", "params": {"name": "nope", "arguments": {}}}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeMethodNotFound, resp.Error.Code)
}

func TestUnknownMethod(t *testing.T) {
	s := newTestServer(t)

	resp := handle(t, s, `{"jsonrpc": "2.0", "id": 5, "method": "prompts/list"}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeMethodNotFound, resp.Error.Code)
}

func TestParseError(t *testing.T) {
	s := newTestServer(t)

	resp := handle(t, s, `{not json`)
	require.NotNil(t, resp)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeParse, resp.Error.Code)
}

func TestResourcesListAndRead(t *testing.T) {
	s := newTestServer(t)

	resp := handle(t, s, `{"jsonrpc": "2.0", "id": 6, "method": "resources/list"}`)
	require.Nil(t, resp.Error)
	list, ok := resp.Result.(*ResourcesListResult)
	require.True(t, ok)
	require.Len(t, list.Resources, 1)
	assert.Equal(t, "test://static", list.Resources[0].URI)

	resp = handle(t, s, `{"jsonrpc": "2.0", "id": 7, "method": "resources/read", "params": {"uri": "test://static"}}`)
	require.Nil(t, resp.Error)
	read, ok := resp.Result.(*ResourcesReadResult)
	require.True(t, ok)
	require.Len(t, read.Contents, 1)
	assert.Equal(t, "hello", read.Contents[0].Text)

	resp = handle(t, s, `{"jsonrpc": "2.0", "id": 8, "method": "resources/read", "params": {"uri": "test://missing"}}`)
	require.NotNil(t, resp.Error)
}
