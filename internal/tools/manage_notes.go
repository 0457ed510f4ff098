package tools

import (
	"context"
	"encoding/json"

	"github.com/workitem-mcp/workitem-mcp/internal/apperr"
	"github.com/workitem-mcp/workitem-mcp/internal/dispatch"
	"github.com/workitem-mcp/workitem-mcp/internal/mcp"
	"github.com/workitem-mcp/workitem-mcp/internal/model"
)

type noteInput struct {
	ItemID string `json:"itemId"`
	Key    string `json:"key"`
	Phase  string `json:"phase,omitempty"`
	Body   string `json:"body,omitempty"`
}

type manageNotesParams struct {
	Operation string      `json:"operation"`
	Note      *noteInput  `json:"note,omitempty"`
	Notes     []noteInput `json:"notes,omitempty"`
}

// ManageNotes implements manage_notes: upsert/delete, single or batch (§3, §4.4).
type ManageNotes struct {
	deps *Deps
}

func NewManageNotes(deps *Deps) *ManageNotes { return &ManageNotes{deps: deps} }

func (t *ManageNotes) Name() string { return "manage_notes" }
func (t *ManageNotes) Description() string {
	return "Upsert or delete structured notes attached to a work item. (itemId, key) is unique; upsert on an existing key overwrites its phase and body."
}
func (t *ManageNotes) InputSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "operation": {"type": "string", "enum": ["upsert", "delete"]},
    "note": {
      "type": "object",
      "properties": {
        "itemId": {"type": "string"},
        "key": {"type": "string"},
        "phase": {"type": "string", "enum": ["queue", "work", "review", "blocked", "terminal"]},
        "body": {"type": "string"}
      },
      "required": ["itemId", "key"]
    },
    "notes": {"type": "array", "items": {"type": "object"}}
  },
  "required": ["operation"]
}`)
}

func (t *ManageNotes) Execute(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p manageNotesParams
	if err := json.Unmarshal(params, &p); err != nil {
		return dispatch.ToolResult(dispatch.Failure(apperr.Newf(apperr.ValidationError, "invalid parameters: %v", err)))
	}

	var inputs []noteInput
	batched := p.Notes != nil
	if batched {
		inputs = p.Notes
	} else if p.Note != nil {
		inputs = []noteInput{*p.Note}
	} else {
		return dispatch.ToolResult(dispatch.Failure(apperr.New(apperr.ValidationError, "either note or notes is required")))
	}

	results := make([]dispatch.BatchItem, 0, len(inputs))
	for _, in := range inputs {
		data, err := t.applyOne(ctx, p.Operation, in)
		id := in.ItemID + ":" + in.Key
		if err != nil {
			results = append(results, dispatch.ItemErr(id, err))
			continue
		}
		results = append(results, dispatch.ItemOK(id, data))
	}

	if !batched {
		if len(results) == 1 && !results[0].Ok {
			return dispatch.ToolResult(dispatch.Failure(&apperr.Error{Code: results[0].Error.Code, Message: results[0].Error.Message, Details: results[0].Error.Details}))
		}
		return dispatch.ToolResult(dispatch.Success(results[0].Data))
	}
	return dispatch.ToolResult(dispatch.Batch(results))
}

func (t *ManageNotes) applyOne(ctx context.Context, op string, in noteInput) (any, error) {
	if in.ItemID == "" || in.Key == "" {
		return nil, apperr.New(apperr.ValidationError, "itemId and key are required")
	}
	switch op {
	case "upsert":
		if in.Phase == "" {
			return nil, apperr.New(apperr.ValidationError, "phase is required for upsert")
		}
		n := &model.Note{ItemID: in.ItemID, Key: in.Key, Phase: model.Role(in.Phase), Body: in.Body}
		if err := t.deps.Store.UpsertNote(ctx, n); err != nil {
			return nil, err
		}
		return map[string]any{"itemId": n.ItemID, "key": n.Key, "phase": n.Phase, "body": n.Body, "modifiedAt": n.ModifiedAt}, nil
	case "delete":
		if err := t.deps.Store.DeleteNote(ctx, in.ItemID, in.Key); err != nil {
			return nil, err
		}
		return map[string]any{"itemId": in.ItemID, "key": in.Key, "deleted": true}, nil
	default:
		return nil, apperr.Newf(apperr.ValidationError, "unknown operation %q", op)
	}
}
