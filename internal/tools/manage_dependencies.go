package tools

import (
	"context"
	"encoding/json"
	"time"

	"github.com/workitem-mcp/workitem-mcp/internal/apperr"
	"github.com/workitem-mcp/workitem-mcp/internal/dispatch"
	"github.com/workitem-mcp/workitem-mcp/internal/graph"
	"github.com/workitem-mcp/workitem-mcp/internal/idgen"
	"github.com/workitem-mcp/workitem-mcp/internal/mcp"
	"github.com/workitem-mcp/workitem-mcp/internal/model"
	"github.com/workitem-mcp/workitem-mcp/internal/store"
)

type depEdge struct {
	FromID string `json:"fromId"`
	ToID   string `json:"toId"`
	Type   string `json:"type"`
}

// patternSpec expands a shortcut shape into explicit edges (§4.6
// "linear"/"fan-out"/"fan-in" patterns): linear chains items[i]->items[i+1];
// fan-out edges items[0] to every later item; fan-in edges every earlier
// item to items[len-1]. All generated edges carry Type.
type patternSpec struct {
	Shape string   `json:"shape"`
	Type  string   `json:"type"`
	Items []string `json:"items"`
}

func (p *patternSpec) expand() ([]depEdge, error) {
	if len(p.Items) < 2 {
		return nil, apperr.New(apperr.ValidationError, "a pattern needs at least two items")
	}
	var out []depEdge
	switch p.Shape {
	case "linear":
		for i := 0; i < len(p.Items)-1; i++ {
			out = append(out, depEdge{FromID: p.Items[i], ToID: p.Items[i+1], Type: p.Type})
		}
	case "fan-out":
		for _, to := range p.Items[1:] {
			out = append(out, depEdge{FromID: p.Items[0], ToID: to, Type: p.Type})
		}
	case "fan-in":
		last := p.Items[len(p.Items)-1]
		for _, from := range p.Items[:len(p.Items)-1] {
			out = append(out, depEdge{FromID: from, ToID: last, Type: p.Type})
		}
	default:
		return nil, apperr.Newf(apperr.ValidationError, "unknown pattern shape %q", p.Shape)
	}
	return out, nil
}

type manageDependenciesParams struct {
	Operation    string       `json:"operation"`
	Dependencies []depEdge    `json:"dependencies,omitempty"`
	Pattern      *patternSpec `json:"pattern,omitempty"`
	ID           string       `json:"id,omitempty"`
	IDs          []string     `json:"ids,omitempty"`
}

// ManageDependencies implements manage_dependencies: create/delete,
// explicit array or shortcut pattern form (§3, §4.2, §4.6).
type ManageDependencies struct {
	deps *Deps
}

func NewManageDependencies(deps *Deps) *ManageDependencies { return &ManageDependencies{deps: deps} }

func (t *ManageDependencies) Name() string { return "manage_dependencies" }
func (t *ManageDependencies) Description() string {
	return "Create or delete dependency edges (BLOCKS, IS_BLOCKED_BY, RELATES_TO). Accepts an explicit dependencies array or a shortcut pattern (linear, fan-out, fan-in) over an ordered items list. Each edge is validated and applied independently."
}
func (t *ManageDependencies) InputSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "operation": {"type": "string", "enum": ["create", "delete"]},
    "dependencies": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "fromId": {"type": "string"},
          "toId": {"type": "string"},
          "type": {"type": "string", "enum": ["BLOCKS", "IS_BLOCKED_BY", "RELATES_TO"]}
        },
        "required": ["fromId", "toId", "type"]
      }
    },
    "pattern": {
      "type": "object",
      "properties": {
        "shape": {"type": "string", "enum": ["linear", "fan-out", "fan-in"]},
        "type": {"type": "string", "enum": ["BLOCKS", "IS_BLOCKED_BY", "RELATES_TO"]},
        "items": {"type": "array", "items": {"type": "string"}}
      },
      "required": ["shape", "type", "items"]
    },
    "id": {"type": "string", "description": "delete: single dependency id"},
    "ids": {"type": "array", "items": {"type": "string"}, "description": "delete: batch of dependency ids"}
  },
  "required": ["operation"]
}`)
}

func (t *ManageDependencies) Execute(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p manageDependenciesParams
	if err := json.Unmarshal(params, &p); err != nil {
		return dispatch.ToolResult(dispatch.Failure(apperr.Newf(apperr.ValidationError, "invalid parameters: %v", err)))
	}

	switch p.Operation {
	case "create":
		edges := p.Dependencies
		if p.Pattern != nil {
			expanded, err := p.Pattern.expand()
			if err != nil {
				return dispatch.ToolResult(dispatch.Failure(err))
			}
			edges = append(edges, expanded...)
		}
		if len(edges) == 0 {
			return dispatch.ToolResult(dispatch.Failure(apperr.New(apperr.ValidationError, "either dependencies or pattern is required")))
		}
		results := make([]dispatch.BatchItem, 0, len(edges))
		for _, e := range edges {
			dep, err := t.createOne(ctx, e)
			label := e.FromID + "->" + e.ToID
			if err != nil {
				results = append(results, dispatch.ItemErr(label, err))
				continue
			}
			results = append(results, dispatch.ItemOK(dep.ID, depMap(dep)))
		}
		if len(edges) == 1 && p.Pattern == nil {
			if !results[0].Ok {
				return dispatch.ToolResult(dispatch.Failure(&apperr.Error{Code: results[0].Error.Code, Message: results[0].Error.Message, Details: results[0].Error.Details}))
			}
			return dispatch.ToolResult(dispatch.Success(results[0].Data))
		}
		return dispatch.ToolResult(dispatch.Batch(results))

	case "delete":
		ids := p.IDs
		if p.ID != "" {
			ids = append(ids, p.ID)
		}
		if len(ids) == 0 {
			return dispatch.ToolResult(dispatch.Failure(apperr.New(apperr.ValidationError, "either id or ids is required")))
		}
		results := make([]dispatch.BatchItem, 0, len(ids))
		for _, id := range ids {
			if err := t.deps.Store.DeleteDependency(ctx, id); err != nil {
				results = append(results, dispatch.ItemErr(id, err))
				continue
			}
			results = append(results, dispatch.ItemOK(id, map[string]any{"id": id, "deleted": true}))
		}
		if len(ids) == 1 {
			if !results[0].Ok {
				return dispatch.ToolResult(dispatch.Failure(&apperr.Error{Code: results[0].Error.Code, Message: results[0].Error.Message, Details: results[0].Error.Details}))
			}
			return dispatch.ToolResult(dispatch.Success(results[0].Data))
		}
		return dispatch.ToolResult(dispatch.Batch(results))

	default:
		return dispatch.ToolResult(dispatch.Failure(apperr.Newf(apperr.ValidationError, "unknown operation %q", p.Operation)))
	}
}

func (t *ManageDependencies) createOne(ctx context.Context, e depEdge) (*model.Dependency, error) {
	if e.FromID == "" || e.ToID == "" {
		return nil, apperr.New(apperr.ValidationError, "fromId and toId are required")
	}
	if e.FromID == e.ToID {
		return nil, apperr.New(apperr.ValidationError, "a dependency cannot reference the same item on both ends")
	}
	depType := model.DependencyType(e.Type)

	now := time.Now().UTC()
	var dep *model.Dependency
	err := t.deps.Store.Transact(ctx, func(tx *store.Tx) error {
		if _, err := tx.GetItem(e.FromID); err != nil {
			return err
		}
		if _, err := tx.GetItem(e.ToID); err != nil {
			return err
		}
		if depType != model.DepRelatesTo {
			cyc, path, err := graph.WouldIntroduceDependencyCycle(tx, e.FromID, e.ToID, depType)
			if err != nil {
				return err
			}
			if cyc {
				return apperr.New(apperr.ConflictError, "dependency would introduce a cycle").WithDetails(map[string]any{"cycle": path})
			}
		}
		d := &model.Dependency{
			ID:        idgen.New("dep", e.FromID+string(depType)+e.ToID, now, 0),
			FromID:    e.FromID,
			ToID:      e.ToID,
			Type:      depType,
			CreatedAt: now,
		}
		if err := tx.CreateDependency(d); err != nil {
			return err
		}
		dep = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dep, nil
}

func depMap(d *model.Dependency) map[string]any {
	return map[string]any{
		"id": d.ID, "fromId": d.FromID, "toId": d.ToID, "type": d.Type, "createdAt": d.CreatedAt,
	}
}
