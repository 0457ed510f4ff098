package tools

import (
	"context"
	"encoding/json"

	"github.com/workitem-mcp/workitem-mcp/internal/apperr"
	"github.com/workitem-mcp/workitem-mcp/internal/compound"
	"github.com/workitem-mcp/workitem-mcp/internal/dispatch"
	"github.com/workitem-mcp/workitem-mcp/internal/mcp"
	"github.com/workitem-mcp/workitem-mcp/internal/workflow"
)

type completeTreeParams struct {
	RootID  string `json:"rootId"`
	Trigger string `json:"trigger,omitempty"`
	Actor   string `json:"actor,omitempty"`
}

// CompleteTree implements complete_tree: batch-advance rootId's whole
// subtree, deepest items first, each in its own transaction so one
// item's failure doesn't block the rest (§4.6).
type CompleteTree struct {
	deps *Deps
}

func NewCompleteTree(deps *Deps) *CompleteTree { return &CompleteTree{deps: deps} }

func (t *CompleteTree) Name() string { return "complete_tree" }
func (t *CompleteTree) Description() string {
	return "Advance every item in a subtree (root and all descendants) through the given trigger, deepest items first. Defaults to complete; cancel bypasses the note-schema gate and dependency check the same way a single advance_item(cancel) does. Each item advances independently."
}
func (t *CompleteTree) InputSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "rootId": {"type": "string"},
    "trigger": {"type": "string", "enum": ["complete", "cancel"], "description": "default complete"},
    "actor": {"type": "string"}
  },
  "required": ["rootId"]
}`)
}

func (t *CompleteTree) Execute(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p completeTreeParams
	if err := json.Unmarshal(params, &p); err != nil {
		return dispatch.ToolResult(dispatch.Failure(apperr.Newf(apperr.ValidationError, "invalid parameters: %v", err)))
	}
	if p.RootID == "" {
		return dispatch.ToolResult(dispatch.Failure(apperr.New(apperr.ValidationError, "rootId is required")))
	}
	trigger := workflow.Trigger(p.Trigger)
	if trigger == "" {
		trigger = workflow.TriggerComplete
	}

	results, err := compound.CompleteTree(ctx, t.deps.Store, t.deps.Engine, p.RootID, trigger, p.Actor)
	if err != nil {
		return dispatch.ToolResult(dispatch.Failure(err))
	}

	items := make([]dispatch.BatchItem, 0, len(results))
	for _, r := range results {
		if r.Err != nil {
			items = append(items, dispatch.ItemErr(r.ItemID, r.Err))
			continue
		}
		items = append(items, dispatch.ItemOK(r.ItemID, appliedMap(r.Result)))
	}
	return dispatch.ToolResult(dispatch.Batch(items))
}
