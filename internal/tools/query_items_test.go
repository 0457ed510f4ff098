package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/workitem-mcp/workitem-mcp/internal/apperr"
)

func TestQueryItemsGetByID(t *testing.T) {
	ctx := context.Background()
	d := newTestDeps(t)
	createQueueItem(ctx, t, d, "wi-1", "")
	tool := NewQueryItems(d)

	res, err := tool.Execute(ctx, toJSON(t, map[string]any{"operation": "get", "id": "wi-1"}))
	require.NoError(t, err)
	env := decodeEnvelope(t, res)
	require.True(t, env.Ok)
	data := env.Data.(map[string]any)
	assert.Equal(t, "wi-1", data["id"])
}

func TestQueryItemsGetRequiresID(t *testing.T) {
	ctx := context.Background()
	d := newTestDeps(t)
	tool := NewQueryItems(d)

	res, err := tool.Execute(ctx, toJSON(t, map[string]any{"operation": "get"}))
	require.NoError(t, err)
	env := decodeEnvelope(t, res)
	assert.False(t, env.Ok)
	require.NotNil(t, env.Error)
	assert.Equal(t, apperr.ValidationError, env.Error.Code)
}

func TestQueryItemsGetNotFound(t *testing.T) {
	ctx := context.Background()
	d := newTestDeps(t)
	tool := NewQueryItems(d)

	res, err := tool.Execute(ctx, toJSON(t, map[string]any{"operation": "get", "id": "missing"}))
	require.NoError(t, err)
	env := decodeEnvelope(t, res)
	assert.False(t, env.Ok)
	require.NotNil(t, env.Error)
	assert.Equal(t, apperr.NotFound, env.Error.Code)
}

func TestQueryItemsSearchFiltersByStatusAndText(t *testing.T) {
	ctx := context.Background()
	d := newTestDeps(t)
	createQueueItem(ctx, t, d, "wi-1", "")
	createQueueItem(ctx, t, d, "wi-2", "")
	tool := NewQueryItems(d)

	res, err := tool.Execute(ctx, toJSON(t, map[string]any{
		"operation": "search", "text": "wi-1", "status": "pending",
	}))
	require.NoError(t, err)
	env := decodeEnvelope(t, res)
	require.True(t, env.Ok)
	data := env.Data.(map[string]any)
	assert.Equal(t, float64(1), data["count"])
}

func TestQueryItemsSearchByRole(t *testing.T) {
	ctx := context.Background()
	d := newTestDeps(t)
	createQueueItem(ctx, t, d, "wi-1", "")
	tool := NewQueryItems(d)

	res, err := tool.Execute(ctx, toJSON(t, map[string]any{
		"operation": "search", "role": "queue",
	}))
	require.NoError(t, err)
	env := decodeEnvelope(t, res)
	require.True(t, env.Ok)
	data := env.Data.(map[string]any)
	assert.Equal(t, float64(1), data["count"])
}

func TestQueryItemsOverviewCountsByRole(t *testing.T) {
	ctx := context.Background()
	d := newTestDeps(t)
	root := createQueueItem(ctx, t, d, "wi-root", "")
	createQueueItem(ctx, t, d, "wi-child", root.ID)
	tool := NewQueryItems(d)

	res, err := tool.Execute(ctx, toJSON(t, map[string]any{
		"operation": "overview", "includeChildren": true,
	}))
	require.NoError(t, err)
	env := decodeEnvelope(t, res)
	require.True(t, env.Ok)
	data := env.Data.(map[string]any)
	assert.Equal(t, float64(2), data["totalItems"])
	roots := data["roots"].([]any)
	require.Len(t, roots, 1)
	rootMap := roots[0].(map[string]any)
	kids := rootMap["children"].([]any)
	require.Len(t, kids, 1)
}
