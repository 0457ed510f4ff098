package tools

import (
	"context"
	"encoding/json"

	"github.com/workitem-mcp/workitem-mcp/internal/apperr"
	"github.com/workitem-mcp/workitem-mcp/internal/dispatch"
	"github.com/workitem-mcp/workitem-mcp/internal/graph"
	"github.com/workitem-mcp/workitem-mcp/internal/mcp"
	"github.com/workitem-mcp/workitem-mcp/internal/workflow"
)

type getNextStatusParams struct {
	ItemID             string   `json:"itemId"`
	HypotheticalStatus string   `json:"hypotheticalStatus,omitempty"`
	HypotheticalTags   []string `json:"hypotheticalTags,omitempty"`
}

// GetNextStatus implements get_next_status: a read-only recommendation
// for what trigger would move an item forward, why it's blocked, or
// that it's already terminal. Supports a what-if override of status
// and/or tags without mutating the item (§4.3, §4.6).
type GetNextStatus struct {
	deps *Deps
}

func NewGetNextStatus(deps *Deps) *GetNextStatus { return &GetNextStatus{deps: deps} }

func (t *GetNextStatus) Name() string { return "get_next_status" }
func (t *GetNextStatus) Description() string {
	return "Recommend the next status transition for a work item without applying it. Optionally override status and/or tags for a what-if projection against a hypothetical flow position."
}
func (t *GetNextStatus) InputSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "itemId": {"type": "string"},
    "hypotheticalStatus": {"type": "string"},
    "hypotheticalTags": {"type": "array", "items": {"type": "string"}}
  },
  "required": ["itemId"]
}`)
}

func (t *GetNextStatus) Execute(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p getNextStatusParams
	if err := json.Unmarshal(params, &p); err != nil {
		return dispatch.ToolResult(dispatch.Failure(apperr.Newf(apperr.ValidationError, "invalid parameters: %v", err)))
	}
	if p.ItemID == "" {
		return dispatch.ToolResult(dispatch.Failure(apperr.New(apperr.ValidationError, "itemId is required")))
	}

	if p.HypotheticalStatus == "" && p.HypotheticalTags == nil {
		rec, err := t.deps.Engine.NextStatus(ctx, p.ItemID)
		if err != nil {
			return dispatch.ToolResult(dispatch.Failure(err))
		}
		return dispatch.ToolResult(dispatch.Success(recommendationMap(rec)))
	}

	snap, err := t.deps.Config.Get()
	if err != nil {
		return dispatch.ToolResult(dispatch.Failure(apperr.Wrap(apperr.InternalError, "loading workflow config", err)))
	}
	item, err := t.deps.Store.GetItem(ctx, p.ItemID)
	if err != nil {
		return dispatch.ToolResult(dispatch.Failure(err))
	}
	hypo := *item
	if p.HypotheticalStatus != "" {
		hypo.Status = p.HypotheticalStatus
		if role, ok := snap.Workflow.RoleOf(p.HypotheticalStatus); ok {
			hypo.Role = role
		}
	}
	if p.HypotheticalTags != nil {
		hypo.Tags = p.HypotheticalTags
	}

	notes, err := t.deps.Store.NotesByItem(ctx, p.ItemID)
	if err != nil {
		return dispatch.ToolResult(dispatch.Failure(err))
	}
	reader := t.deps.Store.Reader(ctx)
	unresolved, err := graph.UnresolvedBlockers(reader, p.ItemID)
	if err != nil {
		return dispatch.ToolResult(dispatch.Failure(err))
	}
	history, err := t.deps.Store.TransitionsByItem(ctx, p.ItemID)
	if err != nil {
		return dispatch.ToolResult(dispatch.Failure(err))
	}

	rec, err := workflow.NextStatus(snap.Workflow, snap.Schemas, &hypo, notes, unresolved, history)
	if err != nil {
		return dispatch.ToolResult(dispatch.Failure(err))
	}
	out := recommendationMap(rec)
	out["hypothetical"] = true
	return dispatch.ToolResult(dispatch.Success(out))
}

func recommendationMap(r *workflow.Recommendation) map[string]any {
	return map[string]any{
		"kind":               r.Kind,
		"activeFlow":         r.ActiveFlow,
		"trigger":            r.Trigger,
		"targetStatus":       r.TargetStatus,
		"reason":             r.Reason,
		"missingNotes":       r.MissingNotes,
		"unresolvedBlockers": r.UnresolvedBlockers,
		"terminalStatus":     r.TerminalStatus,
	}
}
