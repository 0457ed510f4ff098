package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/workitem-mcp/workitem-mcp/internal/apperr"
)

func TestManageItemsCreateSingle(t *testing.T) {
	ctx := context.Background()
	d := newTestDeps(t)
	tool := NewManageItems(d)

	res, err := tool.Execute(ctx, toJSON(t, map[string]any{
		"operation": "create",
		"item":      map[string]any{"title": "New item"},
	}))
	require.NoError(t, err)
	env := decodeEnvelope(t, res)
	require.True(t, env.Ok)
	data, ok := env.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "New item", data["title"])
	assert.NotEmpty(t, data["id"])
}

func TestManageItemsCreateRejectsEmptyTitle(t *testing.T) {
	ctx := context.Background()
	d := newTestDeps(t)
	tool := NewManageItems(d)

	res, err := tool.Execute(ctx, toJSON(t, map[string]any{
		"operation": "create",
		"item":      map[string]any{},
	}))
	require.NoError(t, err)
	env := decodeEnvelope(t, res)
	assert.False(t, env.Ok)
	require.NotNil(t, env.Error)
	assert.Equal(t, apperr.ValidationError, env.Error.Code)
}

func TestManageItemsUpdateRequiresID(t *testing.T) {
	ctx := context.Background()
	d := newTestDeps(t)
	tool := NewManageItems(d)

	res, err := tool.Execute(ctx, toJSON(t, map[string]any{
		"operation": "update",
		"item":      map[string]any{"title": "x"},
	}))
	require.NoError(t, err)
	env := decodeEnvelope(t, res)
	assert.False(t, env.Ok)
	require.NotNil(t, env.Error)
	assert.Equal(t, apperr.ValidationError, env.Error.Code)
}

func TestManageItemsDeleteByID(t *testing.T) {
	ctx := context.Background()
	d := newTestDeps(t)
	createQueueItem(ctx, t, d, "wi-1", "")
	tool := NewManageItems(d)

	res, err := tool.Execute(ctx, toJSON(t, map[string]any{
		"operation": "delete",
		"item":      map[string]any{"id": "wi-1"},
	}))
	require.NoError(t, err)
	env := decodeEnvelope(t, res)
	require.True(t, env.Ok)

	_, getErr := d.Store.GetItem(ctx, "wi-1")
	assert.Error(t, getErr)
}

func TestManageItemsBatchIsolatesFailures(t *testing.T) {
	ctx := context.Background()
	d := newTestDeps(t)
	tool := NewManageItems(d)

	res, err := tool.Execute(ctx, toJSON(t, map[string]any{
		"operation": "create",
		"items": []map[string]any{
			{"title": "ok item"},
			{},
		},
	}))
	require.NoError(t, err)
	env := decodeEnvelope(t, res)
	require.True(t, env.Ok, "a batch call reports ok=true even with failing items")
	require.NotNil(t, env.Summary)
	assert.Equal(t, 2, env.Summary.Total)
	assert.Equal(t, 1, env.Summary.Succeeded)
	assert.Equal(t, 1, env.Summary.Failed)
}

func TestManageItemsRequiresItemOrItems(t *testing.T) {
	ctx := context.Background()
	d := newTestDeps(t)
	tool := NewManageItems(d)

	res, err := tool.Execute(ctx, toJSON(t, map[string]any{"operation": "create"}))
	require.NoError(t, err)
	env := decodeEnvelope(t, res)
	assert.False(t, env.Ok)
}
