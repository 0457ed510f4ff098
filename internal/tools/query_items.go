package tools

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/workitem-mcp/workitem-mcp/internal/apperr"
	"github.com/workitem-mcp/workitem-mcp/internal/dispatch"
	"github.com/workitem-mcp/workitem-mcp/internal/mcp"
	"github.com/workitem-mcp/workitem-mcp/internal/model"
)

type queryItemsParams struct {
	Operation        string `json:"operation"`
	ID               string `json:"id,omitempty"`
	Text             string `json:"text,omitempty"`
	Tag              string `json:"tag,omitempty"`
	Role             string `json:"role,omitempty"`
	Status           string `json:"status,omitempty"`
	ParentID         string `json:"parentId,omitempty"`
	IncludeAncestors bool   `json:"includeAncestors,omitempty"`
	IncludeChildren  bool   `json:"includeChildren,omitempty"`
}

// QueryItems implements query_items: get/search/overview (§4.6).
type QueryItems struct {
	deps *Deps
}

func NewQueryItems(deps *Deps) *QueryItems { return &QueryItems{deps: deps} }

func (t *QueryItems) Name() string { return "query_items" }
func (t *QueryItems) Description() string {
	return "Read work items: get a single item by id, search by text/tag/role/status/parent, or get a global overview. Supports includeAncestors and includeChildren enrichment."
}
func (t *QueryItems) InputSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "operation": {"type": "string", "enum": ["get", "search", "overview"]},
    "id": {"type": "string", "description": "get: item id"},
    "text": {"type": "string", "description": "search: case-insensitive title/description substring"},
    "tag": {"type": "string", "description": "search: tag substring"},
    "role": {"type": "string", "enum": ["queue", "work", "review", "blocked", "terminal"]},
    "status": {"type": "string"},
    "parentId": {"type": "string", "description": "search: restrict to direct children of this item"},
    "includeAncestors": {"type": "boolean"},
    "includeChildren": {"type": "boolean", "description": "overview: include each root's direct children"}
  },
  "required": ["operation"]
}`)
}

func (t *QueryItems) Execute(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p queryItemsParams
	if err := json.Unmarshal(params, &p); err != nil {
		return dispatch.ToolResult(dispatch.Failure(apperr.Newf(apperr.ValidationError, "invalid parameters: %v", err)))
	}

	switch p.Operation {
	case "get":
		if p.ID == "" {
			return dispatch.ToolResult(dispatch.Failure(apperr.New(apperr.ValidationError, "id is required for get")))
		}
		it, err := t.deps.Store.GetItem(ctx, p.ID)
		if err != nil {
			return dispatch.ToolResult(dispatch.Failure(err))
		}
		ancestors, err := withAncestors(ctx, t.deps, p.ID, p.IncludeAncestors)
		if err != nil {
			return dispatch.ToolResult(dispatch.Failure(err))
		}
		return dispatch.ToolResult(dispatch.Success(itemMap(it, ancestors)))

	case "search":
		return t.search(ctx, p)

	case "overview":
		return t.overview(ctx, p)

	default:
		return dispatch.ToolResult(dispatch.Failure(apperr.Newf(apperr.ValidationError, "unknown operation %q", p.Operation)))
	}
}

func (t *QueryItems) search(ctx context.Context, p queryItemsParams) (*mcp.ToolsCallResult, error) {
	all, err := t.deps.Store.AllItems(ctx)
	if err != nil {
		return dispatch.ToolResult(dispatch.Failure(err))
	}

	var out []map[string]any
	for _, it := range all {
		if p.Text != "" && !containsFoldSearch(it.Title, p.Text) && !containsFoldSearch(it.Description, p.Text) {
			continue
		}
		if p.Tag != "" && !hasTagSubstring(it.Tags, p.Tag) {
			continue
		}
		if p.Role != "" && string(it.Role) != p.Role {
			continue
		}
		if p.Status != "" && it.Status != p.Status {
			continue
		}
		if p.ParentID != "" && it.ParentID != p.ParentID {
			continue
		}
		ancestors, err := withAncestors(ctx, t.deps, it.ID, p.IncludeAncestors)
		if err != nil {
			return dispatch.ToolResult(dispatch.Failure(err))
		}
		out = append(out, itemMap(it, ancestors))
	}
	if out == nil {
		out = []map[string]any{}
	}
	return dispatch.ToolResult(dispatch.Success(map[string]any{"items": out, "count": len(out)}))
}

func (t *QueryItems) overview(ctx context.Context, p queryItemsParams) (*mcp.ToolsCallResult, error) {
	all, err := t.deps.Store.AllItems(ctx)
	if err != nil {
		return dispatch.ToolResult(dispatch.Failure(err))
	}

	byRole := map[model.Role]int{}
	var roots []*model.WorkItem
	childrenOf := map[string][]*model.WorkItem{}
	for _, it := range all {
		byRole[it.Role]++
		if it.ParentID == "" {
			roots = append(roots, it)
		} else {
			childrenOf[it.ParentID] = append(childrenOf[it.ParentID], it)
		}
	}

	rootMaps := make([]map[string]any, 0, len(roots))
	for _, r := range roots {
		m := itemMap(r, nil)
		if p.IncludeChildren {
			kids := childrenOf[r.ID]
			kidMaps := make([]map[string]any, 0, len(kids))
			for _, k := range kids {
				kidMaps = append(kidMaps, map[string]any{
					"id": k.ID, "title": k.Title, "role": k.Role, "depth": k.Depth,
				})
			}
			m["children"] = kidMaps
		}
		rootMaps = append(rootMaps, m)
	}

	return dispatch.ToolResult(dispatch.Success(map[string]any{
		"totalItems": len(all),
		"byRole":     byRole,
		"roots":      rootMaps,
	}))
}

func containsFoldSearch(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func hasTagSubstring(tags []string, substr string) bool {
	for _, t := range tags {
		if containsFoldSearch(t, substr) {
			return true
		}
	}
	return false
}
