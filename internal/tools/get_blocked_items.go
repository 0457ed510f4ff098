package tools

import (
	"context"
	"encoding/json"

	"github.com/workitem-mcp/workitem-mcp/internal/apperr"
	"github.com/workitem-mcp/workitem-mcp/internal/dispatch"
	"github.com/workitem-mcp/workitem-mcp/internal/graph"
	"github.com/workitem-mcp/workitem-mcp/internal/mcp"
	"github.com/workitem-mcp/workitem-mcp/internal/model"
)

type getBlockedItemsParams struct {
	Tag string `json:"tag,omitempty"`
}

// GetBlockedItems implements get_blocked_items: items whose role is
// blocked (blockType "explicit"), plus queue/work items with unresolved
// dependency blockers (blockType "dependency") (§4.6).
type GetBlockedItems struct {
	deps *Deps
}

func NewGetBlockedItems(deps *Deps) *GetBlockedItems { return &GetBlockedItems{deps: deps} }

func (t *GetBlockedItems) Name() string { return "get_blocked_items" }
func (t *GetBlockedItems) Description() string {
	return "List items that cannot currently proceed: items parked in the blocked role, and queue/work items held back by unresolved BLOCKS dependencies. Each result is annotated with blockType (explicit or dependency)."
}
func (t *GetBlockedItems) InputSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "tag": {"type": "string", "description": "restrict to items whose tags contain this substring"}
  }
}`)
}

func (t *GetBlockedItems) Execute(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p getBlockedItemsParams
	if err := json.Unmarshal(params, &p); err != nil {
		return dispatch.ToolResult(dispatch.Failure(apperr.Newf(apperr.ValidationError, "invalid parameters: %v", err)))
	}

	all, err := t.deps.Store.AllItems(ctx)
	if err != nil {
		return dispatch.ToolResult(dispatch.Failure(err))
	}
	reader := t.deps.Store.Reader(ctx)

	var out []map[string]any
	for _, it := range all {
		if p.Tag != "" && !hasTagSubstring(it.Tags, p.Tag) {
			continue
		}
		if it.Role == model.RoleBlocked {
			m := itemMap(it, nil)
			m["blockType"] = "explicit"
			out = append(out, m)
			continue
		}
		if it.Role != model.RoleQueue && it.Role != model.RoleWork {
			continue
		}
		unresolved, err := graph.UnresolvedBlockers(reader, it.ID)
		if err != nil {
			return dispatch.ToolResult(dispatch.Failure(err))
		}
		if len(unresolved) == 0 {
			continue
		}
		m := itemMap(it, nil)
		m["blockType"] = "dependency"
		blockers := make([]map[string]any, 0, len(unresolved))
		for _, b := range unresolved {
			blockers = append(blockers, map[string]any{"id": b.ID, "title": b.Title, "role": b.Role, "status": b.Status})
		}
		m["unresolvedBlockers"] = blockers
		out = append(out, m)
	}
	if out == nil {
		out = []map[string]any{}
	}
	return dispatch.ToolResult(dispatch.Success(map[string]any{"items": out, "count": len(out)}))
}
