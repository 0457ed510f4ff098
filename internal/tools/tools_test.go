package tools

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/workitem-mcp/workitem-mcp/internal/cascade"
	"github.com/workitem-mcp/workitem-mcp/internal/dispatch"
	"github.com/workitem-mcp/workitem-mcp/internal/mcp"
	"github.com/workitem-mcp/workitem-mcp/internal/model"
	"github.com/workitem-mcp/workitem-mcp/internal/store"
	"github.com/workitem-mcp/workitem-mcp/internal/wfconfig"
	"github.com/workitem-mcp/workitem-mcp/internal/workflow"
)

func newTestDeps(t *testing.T) *Deps {
	t.Helper()
	ctx := context.Background()
	s, err := store.Open(ctx, filepath.Join(t.TempDir(), "test.db"), 4)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	cache := wfconfig.NewCache(t.TempDir(), time.Minute)
	engine := workflow.NewEngine(s, cache, cascade.New())
	return &Deps{Store: s, Config: cache, Engine: engine}
}

func createQueueItem(ctx context.Context, t *testing.T, d *Deps, id, parentID string) *model.WorkItem {
	t.Helper()
	now := time.Now().UTC()
	it := &model.WorkItem{
		ID: id, ParentID: parentID, Title: "item " + id, Priority: model.PriorityMedium,
		Status: "pending", Role: model.RoleQueue, CreatedAt: now, ModifiedAt: now,
	}
	require.NoError(t, d.Store.CreateItem(ctx, it))
	return it
}

// decodeEnvelope unmarshals a tool's *mcp.ToolsCallResult content into a
// dispatch.Envelope, as an MCP client would after receiving a tools/call
// response.
func decodeEnvelope(t *testing.T, res *mcp.ToolsCallResult) dispatch.Envelope {
	t.Helper()
	require.Len(t, res.Content, 1)
	var env dispatch.Envelope
	require.NoError(t, json.Unmarshal([]byte(res.Content[0].Text), &env))
	return env
}

func toJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}
