package tools

import (
	"context"
	"encoding/json"

	"github.com/workitem-mcp/workitem-mcp/internal/apperr"
	"github.com/workitem-mcp/workitem-mcp/internal/dispatch"
	"github.com/workitem-mcp/workitem-mcp/internal/mcp"
	"github.com/workitem-mcp/workitem-mcp/internal/noteschema"
)

type queryNotesParams struct {
	ItemID           string `json:"itemId"`
	IncludeExpected  bool   `json:"includeExpected,omitempty"`
}

// QueryNotes implements query_notes: list an item's notes, optionally
// augmented with the schema-derived expected-notes set (§4.4 expectedNotes).
type QueryNotes struct {
	deps *Deps
}

func NewQueryNotes(deps *Deps) *QueryNotes { return &QueryNotes{deps: deps} }

func (t *QueryNotes) Name() string { return "query_notes" }
func (t *QueryNotes) Description() string {
	return "List the notes attached to a work item. With includeExpected, also returns the tag-matched schema's expected notes annotated with whether each already exists."
}
func (t *QueryNotes) InputSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "itemId": {"type": "string"},
    "includeExpected": {"type": "boolean"}
  },
  "required": ["itemId"]
}`)
}

func (t *QueryNotes) Execute(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p queryNotesParams
	if err := json.Unmarshal(params, &p); err != nil {
		return dispatch.ToolResult(dispatch.Failure(apperr.Newf(apperr.ValidationError, "invalid parameters: %v", err)))
	}
	if p.ItemID == "" {
		return dispatch.ToolResult(dispatch.Failure(apperr.New(apperr.ValidationError, "itemId is required")))
	}

	notes, err := t.deps.Store.NotesByItem(ctx, p.ItemID)
	if err != nil {
		return dispatch.ToolResult(dispatch.Failure(err))
	}
	noteMaps := make([]map[string]any, 0, len(notes))
	for _, n := range notes {
		noteMaps = append(noteMaps, map[string]any{
			"itemId": n.ItemID, "key": n.Key, "phase": n.Phase, "body": n.Body,
			"createdAt": n.CreatedAt, "modifiedAt": n.ModifiedAt,
		})
	}

	out := map[string]any{"notes": noteMaps}
	if p.IncludeExpected {
		item, err := t.deps.Store.GetItem(ctx, p.ItemID)
		if err != nil {
			return dispatch.ToolResult(dispatch.Failure(err))
		}
		snap, err := t.deps.Config.Get()
		if err != nil {
			return dispatch.ToolResult(dispatch.Failure(apperr.Wrap(apperr.InternalError, "loading workflow config", err)))
		}
		out["expectedNotes"] = noteschema.ExpectedNotes(snap.Schemas, item.TagSet(), notes)
	}
	return dispatch.ToolResult(dispatch.Success(out))
}
