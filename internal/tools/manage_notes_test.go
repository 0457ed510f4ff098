package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/workitem-mcp/workitem-mcp/internal/apperr"
)

func TestManageNotesUpsertThenDelete(t *testing.T) {
	ctx := context.Background()
	d := newTestDeps(t)
	createQueueItem(ctx, t, d, "wi-1", "")
	tool := NewManageNotes(d)

	res, err := tool.Execute(ctx, toJSON(t, map[string]any{
		"operation": "upsert",
		"note":      map[string]any{"itemId": "wi-1", "key": "plan", "phase": "queue", "body": "do it"},
	}))
	require.NoError(t, err)
	env := decodeEnvelope(t, res)
	require.True(t, env.Ok)

	notes, err := d.Store.NotesByItem(ctx, "wi-1")
	require.NoError(t, err)
	require.Len(t, notes, 1)

	res, err = tool.Execute(ctx, toJSON(t, map[string]any{
		"operation": "delete",
		"note":      map[string]any{"itemId": "wi-1", "key": "plan"},
	}))
	require.NoError(t, err)
	env = decodeEnvelope(t, res)
	require.True(t, env.Ok)

	notes, err = d.Store.NotesByItem(ctx, "wi-1")
	require.NoError(t, err)
	assert.Empty(t, notes)
}

func TestManageNotesUpsertRequiresPhase(t *testing.T) {
	ctx := context.Background()
	d := newTestDeps(t)
	createQueueItem(ctx, t, d, "wi-1", "")
	tool := NewManageNotes(d)

	res, err := tool.Execute(ctx, toJSON(t, map[string]any{
		"operation": "upsert",
		"note":      map[string]any{"itemId": "wi-1", "key": "plan"},
	}))
	require.NoError(t, err)
	env := decodeEnvelope(t, res)
	assert.False(t, env.Ok)
	require.NotNil(t, env.Error)
	assert.Equal(t, apperr.ValidationError, env.Error.Code)
}

func TestManageNotesBatchUsesCompositeIDs(t *testing.T) {
	ctx := context.Background()
	d := newTestDeps(t)
	createQueueItem(ctx, t, d, "wi-1", "")
	tool := NewManageNotes(d)

	res, err := tool.Execute(ctx, toJSON(t, map[string]any{
		"operation": "upsert",
		"notes": []map[string]any{
			{"itemId": "wi-1", "key": "plan", "phase": "queue", "body": "a"},
			{"itemId": "wi-1", "key": "risk", "phase": "queue", "body": "b"},
		},
	}))
	require.NoError(t, err)
	env := decodeEnvelope(t, res)
	require.True(t, env.Ok)
	require.Len(t, env.Results, 2)
	assert.Equal(t, "wi-1:plan", env.Results[0].ID)
	assert.Equal(t, "wi-1:risk", env.Results[1].ID)
}
