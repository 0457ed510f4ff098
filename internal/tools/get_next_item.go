package tools

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/workitem-mcp/workitem-mcp/internal/apperr"
	"github.com/workitem-mcp/workitem-mcp/internal/dispatch"
	"github.com/workitem-mcp/workitem-mcp/internal/graph"
	"github.com/workitem-mcp/workitem-mcp/internal/mcp"
	"github.com/workitem-mcp/workitem-mcp/internal/model"
)

var priorityRank = map[model.Priority]int{
	model.PriorityHigh:   0,
	model.PriorityMedium: 1,
	model.PriorityLow:    2,
}

const defaultNextItemLimit = 5

type getNextItemParams struct {
	Tag   string `json:"tag,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

// GetNextItem implements get_next_item: the priority-ranked queue of
// actionable work, items in role queue or work ordered by (priority
// desc, unresolved-blocker count asc, createdAt asc) (§4.6, SPEC_FULL §12).
type GetNextItem struct {
	deps *Deps
}

func NewGetNextItem(deps *Deps) *GetNextItem { return &GetNextItem{deps: deps} }

func (t *GetNextItem) Name() string { return "get_next_item" }
func (t *GetNextItem) Description() string {
	return "Return the priority-ranked queue of actionable work items: role queue or work, ordered by priority, then fewest unresolved blockers, then age."
}
func (t *GetNextItem) InputSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "tag": {"type": "string", "description": "restrict to items whose tags contain this substring"},
    "limit": {"type": "integer", "description": "default 5"}
  }
}`)
}

func (t *GetNextItem) Execute(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p getNextItemParams
	if err := json.Unmarshal(params, &p); err != nil {
		return dispatch.ToolResult(dispatch.Failure(apperr.Newf(apperr.ValidationError, "invalid parameters: %v", err)))
	}
	limit := p.Limit
	if limit <= 0 {
		limit = defaultNextItemLimit
	}

	all, err := t.deps.Store.AllItems(ctx)
	if err != nil {
		return dispatch.ToolResult(dispatch.Failure(err))
	}
	reader := t.deps.Store.Reader(ctx)

	var candidates []*model.WorkItem
	blockerCount := map[string]int{}
	for _, it := range all {
		if it.Role != model.RoleQueue && it.Role != model.RoleWork {
			continue
		}
		if p.Tag != "" && !hasTagSubstring(it.Tags, p.Tag) {
			continue
		}
		unresolved, err := graph.UnresolvedBlockers(reader, it.ID)
		if err != nil {
			return dispatch.ToolResult(dispatch.Failure(err))
		}
		blockerCount[it.ID] = len(unresolved)
		candidates = append(candidates, it)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		ri, rj := priorityRank[candidates[i].Priority], priorityRank[candidates[j].Priority]
		if ri != rj {
			return ri < rj
		}
		bi, bj := blockerCount[candidates[i].ID], blockerCount[candidates[j].ID]
		if bi != bj {
			return bi < bj
		}
		return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	out := make([]map[string]any, 0, len(candidates))
	for _, it := range candidates {
		m := itemMap(it, nil)
		m["unresolvedBlockerCount"] = blockerCount[it.ID]
		out = append(out, m)
	}
	return dispatch.ToolResult(dispatch.Success(map[string]any{"items": out, "count": len(out)}))
}
