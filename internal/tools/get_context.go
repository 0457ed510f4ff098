package tools

import (
	"context"
	"encoding/json"
	"time"

	"github.com/workitem-mcp/workitem-mcp/internal/apperr"
	"github.com/workitem-mcp/workitem-mcp/internal/dispatch"
	"github.com/workitem-mcp/workitem-mcp/internal/mcp"
	"github.com/workitem-mcp/workitem-mcp/internal/model"
	"github.com/workitem-mcp/workitem-mcp/internal/noteschema"
)

// stalledAfter is how long a role=work item can sit unmodified before
// get_context(health) reports it as stalled (SPEC_FULL §12).
const stalledAfter = 24 * time.Hour

// sessionWindow is how far back get_context(session) looks for
// "recently transitioned" items when the caller doesn't supply since.
const sessionWindow = 24 * time.Hour

type getContextParams struct {
	Mode             string `json:"mode"`
	ItemID           string `json:"itemId,omitempty"`
	Since            string `json:"since,omitempty"`
	IncludeAncestors bool   `json:"includeAncestors,omitempty"`
}

// GetContext implements get_context: item (schema + gate status for one
// item), session (active items and recent transitions), health (role
// counts and stalled items) (§4.5, §4.6).
type GetContext struct {
	deps *Deps
}

func NewGetContext(deps *Deps) *GetContext { return &GetContext{deps: deps} }

func (t *GetContext) Name() string { return "get_context" }
func (t *GetContext) Description() string {
	return "Fetch orientation context: item mode returns an item's expected notes and gate status; session mode returns active items and recent transitions; health mode returns role counts and stalled items."
}
func (t *GetContext) InputSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "mode": {"type": "string", "enum": ["item", "session", "health"]},
    "itemId": {"type": "string", "description": "required for item mode"},
    "since": {"type": "string", "description": "session mode; RFC3339 timestamp, defaults to the last 24 hours"},
    "includeAncestors": {"type": "boolean", "description": "session mode; include each active item's ancestor chain"}
  },
  "required": ["mode"]
}`)
}

func (t *GetContext) Execute(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p getContextParams
	if err := json.Unmarshal(params, &p); err != nil {
		return dispatch.ToolResult(dispatch.Failure(apperr.Newf(apperr.ValidationError, "invalid parameters: %v", err)))
	}

	switch p.Mode {
	case "item":
		return t.item(ctx, p)
	case "session":
		return t.session(ctx, p)
	case "health":
		return t.health(ctx)
	default:
		return dispatch.ToolResult(dispatch.Failure(apperr.Newf(apperr.ValidationError, "unknown mode %q", p.Mode)))
	}
}

func (t *GetContext) item(ctx context.Context, p getContextParams) (*mcp.ToolsCallResult, error) {
	if p.ItemID == "" {
		return dispatch.ToolResult(dispatch.Failure(apperr.New(apperr.ValidationError, "itemId is required for item mode")))
	}
	it, err := t.deps.Store.GetItem(ctx, p.ItemID)
	if err != nil {
		return dispatch.ToolResult(dispatch.Failure(err))
	}
	notes, err := t.deps.Store.NotesByItem(ctx, p.ItemID)
	if err != nil {
		return dispatch.ToolResult(dispatch.Failure(err))
	}
	snap, err := t.deps.Config.Get()
	if err != nil {
		return dispatch.ToolResult(dispatch.Failure(apperr.Wrap(apperr.InternalError, "loading workflow config", err)))
	}
	rec, err := t.deps.Engine.NextStatus(ctx, p.ItemID)
	if err != nil {
		return dispatch.ToolResult(dispatch.Failure(err))
	}
	missing := noteschema.MissingRequired(snap.Schemas, it.TagSet(), it.Role, notes)
	return dispatch.ToolResult(dispatch.Success(map[string]any{
		"item":          itemMap(it, nil),
		"expectedNotes": noteschema.ExpectedNotes(snap.Schemas, it.TagSet(), notes),
		"gate": map[string]any{
			"role":         it.Role,
			"missingNotes": missing,
			"satisfied":    len(missing) == 0,
		},
		"guidance": recommendationMap(rec),
	}))
}

func (t *GetContext) session(ctx context.Context, p getContextParams) (*mcp.ToolsCallResult, error) {
	since := time.Now().UTC().Add(-sessionWindow)
	if p.Since != "" {
		parsed, err := time.Parse(time.RFC3339, p.Since)
		if err != nil {
			return dispatch.ToolResult(dispatch.Failure(apperr.Newf(apperr.ValidationError, "since must be RFC3339: %v", err)))
		}
		since = parsed.UTC()
	}

	all, err := t.deps.Store.AllItems(ctx)
	if err != nil {
		return dispatch.ToolResult(dispatch.Failure(err))
	}
	var active []map[string]any
	for _, it := range all {
		if it.Role != model.RoleTerminal {
			ancestors, err := withAncestors(ctx, t.deps, it.ID, p.IncludeAncestors)
			if err != nil {
				return dispatch.ToolResult(dispatch.Failure(err))
			}
			active = append(active, itemMap(it, ancestors))
		}
	}
	if active == nil {
		active = []map[string]any{}
	}

	transitions, err := t.deps.Store.TransitionsSince(ctx, since)
	if err != nil {
		return dispatch.ToolResult(dispatch.Failure(err))
	}
	recent := make([]map[string]any, 0, len(transitions))
	for _, tr := range transitions {
		recent = append(recent, map[string]any{
			"itemId": tr.ItemID, "fromRole": tr.FromRole, "toRole": tr.ToRole,
			"fromStatus": tr.FromStatus, "toStatus": tr.ToStatus, "trigger": tr.Trigger,
			"appliedAt": tr.AppliedAt, "actor": tr.Actor,
		})
	}

	return dispatch.ToolResult(dispatch.Success(map[string]any{
		"since":               since,
		"activeItems":         active,
		"recentTransitions":   recent,
		"activeCount":         len(active),
		"recentTransitionCount": len(recent),
	}))
}

func (t *GetContext) health(ctx context.Context) (*mcp.ToolsCallResult, error) {
	all, err := t.deps.Store.AllItems(ctx)
	if err != nil {
		return dispatch.ToolResult(dispatch.Failure(err))
	}
	byRole := map[model.Role]int{}
	cutoff := time.Now().UTC().Add(-stalledAfter)
	var stalled []map[string]any
	for _, it := range all {
		byRole[it.Role]++
		if it.Role == model.RoleWork && it.ModifiedAt.Before(cutoff) {
			stalled = append(stalled, map[string]any{
				"id": it.ID, "title": it.Title, "role": it.Role, "status": it.Status, "modifiedAt": it.ModifiedAt,
			})
		}
	}
	if stalled == nil {
		stalled = []map[string]any{}
	}
	return dispatch.ToolResult(dispatch.Success(map[string]any{
		"totalItems":   len(all),
		"byRole":       byRole,
		"stalledAfter": stalledAfter.String(),
		"stalledItems": stalled,
		"stalledCount": len(stalled),
	}))
}
