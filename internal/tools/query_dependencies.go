package tools

import (
	"context"
	"encoding/json"

	"github.com/workitem-mcp/workitem-mcp/internal/apperr"
	"github.com/workitem-mcp/workitem-mcp/internal/dispatch"
	"github.com/workitem-mcp/workitem-mcp/internal/graph"
	"github.com/workitem-mcp/workitem-mcp/internal/mcp"
)

type queryDependenciesParams struct {
	ItemID        string `json:"itemId"`
	Direction     string `json:"direction,omitempty"`
	NeighborsOnly *bool  `json:"neighborsOnly,omitempty"`
	MaxDepth      int    `json:"maxDepth,omitempty"`
}

// QueryDependencies implements query_dependencies: direct neighbors by
// default, or a full BFS chain across BLOCKS/RELATES_TO edges when
// neighborsOnly is explicitly false (§4.2, §4.6).
type QueryDependencies struct {
	deps *Deps
}

func NewQueryDependencies(deps *Deps) *QueryDependencies { return &QueryDependencies{deps: deps} }

func (t *QueryDependencies) Name() string { return "query_dependencies" }
func (t *QueryDependencies) Description() string {
	return "List an item's dependency edges. By default returns direct neighbors only; set neighborsOnly to false to walk the full BLOCKS/RELATES_TO chain up to maxDepth."
}
func (t *QueryDependencies) InputSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "itemId": {"type": "string"},
    "direction": {"type": "string", "enum": ["outgoing", "incoming"], "description": "default outgoing"},
    "neighborsOnly": {"type": "boolean", "description": "default true"},
    "maxDepth": {"type": "integer", "description": "chain mode only; 0 means unlimited"}
  },
  "required": ["itemId"]
}`)
}

func (t *QueryDependencies) Execute(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p queryDependenciesParams
	if err := json.Unmarshal(params, &p); err != nil {
		return dispatch.ToolResult(dispatch.Failure(apperr.Newf(apperr.ValidationError, "invalid parameters: %v", err)))
	}
	if p.ItemID == "" {
		return dispatch.ToolResult(dispatch.Failure(apperr.New(apperr.ValidationError, "itemId is required")))
	}
	if _, err := t.deps.Store.GetItem(ctx, p.ItemID); err != nil {
		return dispatch.ToolResult(dispatch.Failure(err))
	}

	direction := graph.DirectionOutgoing
	if p.Direction == string(graph.DirectionIncoming) {
		direction = graph.DirectionIncoming
	}
	neighborsOnly := p.NeighborsOnly == nil || *p.NeighborsOnly

	reader := t.deps.Store.Reader(ctx)

	if neighborsOnly {
		var edges []map[string]any
		if direction == graph.DirectionOutgoing {
			deps, err := t.deps.Store.DependenciesFrom(ctx, p.ItemID)
			if err != nil {
				return dispatch.ToolResult(dispatch.Failure(err))
			}
			for _, d := range deps {
				edges = append(edges, depMap(d))
			}
		} else {
			deps, err := t.deps.Store.DependenciesTo(ctx, p.ItemID)
			if err != nil {
				return dispatch.ToolResult(dispatch.Failure(err))
			}
			for _, d := range deps {
				edges = append(edges, depMap(d))
			}
		}
		if edges == nil {
			edges = []map[string]any{}
		}
		return dispatch.ToolResult(dispatch.Success(map[string]any{"itemId": p.ItemID, "direction": direction, "dependencies": edges}))
	}

	chain, err := graph.DependencyChain(reader, []string{p.ItemID}, direction, p.MaxDepth)
	if err != nil {
		return dispatch.ToolResult(dispatch.Failure(err))
	}
	out := make([]map[string]any, 0, len(chain))
	for _, c := range chain {
		out = append(out, map[string]any{
			"id": c.Item.ID, "title": c.Item.Title, "role": c.Item.Role, "status": c.Item.Status, "depth": c.Depth,
		})
	}
	return dispatch.ToolResult(dispatch.Success(map[string]any{"itemId": p.ItemID, "direction": direction, "chain": out}))
}
