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

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(tools ...Tool) *Server {
	r := NewRegistry()
	for _, t := range tools {
		r.Register(t)
	}
	return NewServer(r, ServerInfo{Name: "workitem-mcp", Version: "test"}, discardLogger())
}

func TestHandleMessageInitializeReportsToolsCapability(t *testing.T) {
	s := newTestServer()
	req := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test"}}}`
	resp := s.HandleMessage(context.Background(), []byte(req))
	require.NotNil(t, resp)
	require.Nil(t, resp.Error)

	b, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	var result InitializeResult
	require.NoError(t, json.Unmarshal(b, &result))
	assert.NotNil(t, result.Capabilities.Tools)
	assert.Nil(t, result.Capabilities.Prompts, "no prompts are registered, so the capability must be omitted")
	assert.Nil(t, result.Capabilities.Resources)
}

func TestHandleMessageToolsListReturnsRegisteredTools(t *testing.T) {
	s := newTestServer(&fakeTool{name: "manage_items"})
	resp := s.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`))
	require.NotNil(t, resp)
	require.Nil(t, resp.Error)

	b, _ := json.Marshal(resp.Result)
	var result ToolsListResult
	require.NoError(t, json.Unmarshal(b, &result))
	require.Len(t, result.Tools, 1)
	assert.Equal(t, "manage_items", result.Tools[0].Name)
}

func TestHandleMessageToolsCallDispatchesToTool(t *testing.T) {
	tool := &fakeTool{name: "manage_items", result: &ToolsCallResult{Content: []ContentBlock{TextContent(`{"ok":true}`)}}}
	s := newTestServer(tool)

	req := `{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"manage_items","arguments":{}}}`
	resp := s.HandleMessage(context.Background(), []byte(req))
	require.NotNil(t, resp)
	require.Nil(t, resp.Error)

	b, _ := json.Marshal(resp.Result)
	var result ToolsCallResult
	require.NoError(t, json.Unmarshal(b, &result))
	require.Len(t, result.Content, 1)
	assert.Equal(t, `{"ok":true}`, result.Content[0].Text)
}

func TestHandleMessageToolsCallUnknownToolReturnsRPCError(t *testing.T) {
	s := newTestServer()
	req := `{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"ghost","arguments":{}}}`
	resp := s.HandleMessage(context.Background(), []byte(req))
	require.NotNil(t, resp)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeMethodNotFound, resp.Error.Code)
}

func TestHandleMessageUnknownMethodReturnsRPCError(t *testing.T) {
	s := newTestServer()
	resp := s.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","id":5,"method":"nope"}`))
	require.NotNil(t, resp)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeMethodNotFound, resp.Error.Code)
}

func TestHandleMessageNotificationReturnsNilResponse(t *testing.T) {
	s := newTestServer()
	resp := s.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","method":"notifications/initialized"}`))
	assert.Nil(t, resp)
}

func TestHandleMessageMalformedJSONReturnsParseError(t *testing.T) {
	s := newTestServer()
	resp := s.HandleMessage(context.Background(), []byte(`{not json`))
	require.NotNil(t, resp)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeParse, resp.Error.Code)
}
