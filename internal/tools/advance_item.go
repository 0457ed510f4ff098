package tools

import (
	"context"
	"encoding/json"

	"github.com/workitem-mcp/workitem-mcp/internal/apperr"
	"github.com/workitem-mcp/workitem-mcp/internal/dispatch"
	"github.com/workitem-mcp/workitem-mcp/internal/mcp"
	"github.com/workitem-mcp/workitem-mcp/internal/workflow"
)

type transitionInput struct {
	ItemID  string `json:"itemId"`
	Trigger string `json:"trigger"`
	Summary string `json:"summary,omitempty"`
	Actor   string `json:"actor,omitempty"`
}

type advanceItemParams struct {
	ItemID      string            `json:"itemId,omitempty"`
	Trigger     string            `json:"trigger,omitempty"`
	Summary     string            `json:"summary,omitempty"`
	Actor       string            `json:"actor,omitempty"`
	Transitions []transitionInput `json:"transitions,omitempty"`
}

// AdvanceItem implements advance_item: apply a symbolic trigger to a
// single item, or a transitions array for a batch (§4.3, §4.6).
type AdvanceItem struct {
	deps *Deps
}

func NewAdvanceItem(deps *Deps) *AdvanceItem { return &AdvanceItem{deps: deps} }

func (t *AdvanceItem) Name() string { return "advance_item" }
func (t *AdvanceItem) Description() string {
	return "Apply a symbolic trigger (start, complete, cancel, block, hold, resume, back) to advance a work item along its active flow. Crossing a role boundary runs the note-schema gate and dependency check, and may cascade to the item's ancestors. Accepts a single item or a transitions array for batch."
}
func (t *AdvanceItem) InputSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "itemId": {"type": "string"},
    "trigger": {"type": "string", "enum": ["start", "complete", "cancel", "block", "hold", "resume", "back"]},
    "summary": {"type": "string"},
    "actor": {"type": "string"},
    "transitions": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "itemId": {"type": "string"},
          "trigger": {"type": "string", "enum": ["start", "complete", "cancel", "block", "hold", "resume", "back"]},
          "summary": {"type": "string"},
          "actor": {"type": "string"}
        },
        "required": ["itemId", "trigger"]
      }
    }
  }
}`)
}

func (t *AdvanceItem) Execute(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p advanceItemParams
	if err := json.Unmarshal(params, &p); err != nil {
		return dispatch.ToolResult(dispatch.Failure(apperr.Newf(apperr.ValidationError, "invalid parameters: %v", err)))
	}

	if len(p.Transitions) > 0 {
		reqs := make([]workflow.AdvanceRequest, 0, len(p.Transitions))
		for _, tr := range p.Transitions {
			reqs = append(reqs, workflow.AdvanceRequest{
				ItemID: tr.ItemID, Trigger: workflow.Trigger(tr.Trigger), Summary: tr.Summary, Actor: tr.Actor,
			})
		}
		batchResults := t.deps.Engine.AdvanceBatch(ctx, reqs)
		items := make([]dispatch.BatchItem, 0, len(batchResults))
		for _, r := range batchResults {
			if r.Err != nil {
				items = append(items, dispatch.ItemErr(r.ItemID, r.Err))
				continue
			}
			items = append(items, dispatch.ItemOK(r.ItemID, appliedMap(r.Result)))
		}
		return dispatch.ToolResult(dispatch.Batch(items))
	}

	if p.ItemID == "" || p.Trigger == "" {
		return dispatch.ToolResult(dispatch.Failure(apperr.New(apperr.ValidationError, "itemId and trigger are required")))
	}
	applied, err := t.deps.Engine.Advance(ctx, p.ItemID, workflow.Trigger(p.Trigger), p.Summary, p.Actor)
	if err != nil {
		return dispatch.ToolResult(dispatch.Failure(err))
	}
	return dispatch.ToolResult(dispatch.Success(appliedMap(applied)))
}

func appliedMap(a *workflow.AppliedTransition) map[string]any {
	cascadeEvents := make([]map[string]any, 0, len(a.CascadeEvents))
	for _, ce := range a.CascadeEvents {
		cascadeEvents = append(cascadeEvents, map[string]any{
			"itemId": ce.ItemID, "event": ce.EventName, "applied": ce.Applied, "toStatus": ce.ToStatus, "reason": ce.Reason,
		})
	}
	return map[string]any{
		"item":           itemMap(a.Item, nil),
		"fromStatus":     a.FromStatus,
		"fromRole":       a.FromRole,
		"toRole":         a.ToRole,
		"roleCrossed":    a.RoleCrossed,
		"trigger":        a.Trigger,
		"activeFlow":     a.ActiveFlow,
		"flowSequence":   a.FlowSequence,
		"flowPosition":   a.FlowPosition,
		"cascadeEvents":  cascadeEvents,
		"unblockedItems": a.UnblockedItems,
	}
}
