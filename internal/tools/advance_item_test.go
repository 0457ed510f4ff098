package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/workitem-mcp/workitem-mcp/internal/apperr"
)

func TestAdvanceItemSingleStart(t *testing.T) {
	ctx := context.Background()
	d := newTestDeps(t)
	createQueueItem(ctx, t, d, "wi-1", "")
	tool := NewAdvanceItem(d)

	res, err := tool.Execute(ctx, toJSON(t, map[string]any{
		"itemId": "wi-1", "trigger": "start", "actor": "tester",
	}))
	require.NoError(t, err)
	env := decodeEnvelope(t, res)
	require.True(t, env.Ok)
	data := env.Data.(map[string]any)
	assert.True(t, data["roleCrossed"].(bool))
	item := data["item"].(map[string]any)
	assert.Equal(t, "in_progress", item["status"])
}

func TestAdvanceItemRequiresItemIDAndTrigger(t *testing.T) {
	ctx := context.Background()
	d := newTestDeps(t)
	tool := NewAdvanceItem(d)

	res, err := tool.Execute(ctx, toJSON(t, map[string]any{}))
	require.NoError(t, err)
	env := decodeEnvelope(t, res)
	assert.False(t, env.Ok)
	require.NotNil(t, env.Error)
	assert.Equal(t, apperr.ValidationError, env.Error.Code)
}

func TestAdvanceItemBatchTransitions(t *testing.T) {
	ctx := context.Background()
	d := newTestDeps(t)
	createQueueItem(ctx, t, d, "wi-1", "")
	createQueueItem(ctx, t, d, "wi-2", "")
	tool := NewAdvanceItem(d)

	res, err := tool.Execute(ctx, toJSON(t, map[string]any{
		"transitions": []map[string]any{
			{"itemId": "wi-1", "trigger": "start"},
			{"itemId": "missing", "trigger": "start"},
		},
	}))
	require.NoError(t, err)
	env := decodeEnvelope(t, res)
	require.True(t, env.Ok)
	require.NotNil(t, env.Summary)
	assert.Equal(t, 1, env.Summary.Succeeded)
	assert.Equal(t, 1, env.Summary.Failed)
}

func TestAdvanceItemUnknownItemErrors(t *testing.T) {
	ctx := context.Background()
	d := newTestDeps(t)
	tool := NewAdvanceItem(d)

	res, err := tool.Execute(ctx, toJSON(t, map[string]any{
		"itemId": "missing", "trigger": "start",
	}))
	require.NoError(t, err)
	env := decodeEnvelope(t, res)
	assert.False(t, env.Ok)
}
