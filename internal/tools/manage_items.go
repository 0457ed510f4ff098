package tools

import (
	"context"
	"encoding/json"
	"time"

	"github.com/workitem-mcp/workitem-mcp/internal/apperr"
	"github.com/workitem-mcp/workitem-mcp/internal/dispatch"
	"github.com/workitem-mcp/workitem-mcp/internal/itemops"
	"github.com/workitem-mcp/workitem-mcp/internal/mcp"
	"github.com/workitem-mcp/workitem-mcp/internal/model"
	"github.com/workitem-mcp/workitem-mcp/internal/noteschema"
	"github.com/workitem-mcp/workitem-mcp/internal/store"
)

// itemInput is one element of a manage_items request. Pointer fields
// distinguish "not supplied" (nil, leave unchanged on update) from
// "supplied as empty" for update; create treats a nil pointer as the
// zero value.
type itemInput struct {
	ID          string    `json:"id,omitempty"`
	ParentID    *string   `json:"parentId,omitempty"`
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	Priority    *string   `json:"priority,omitempty"`
	Status      string    `json:"status,omitempty"`
	Recursive   bool      `json:"recursive,omitempty"`
}

type manageItemsParams struct {
	Operation string      `json:"operation"`
	Item      *itemInput  `json:"item,omitempty"`
	Items     []itemInput `json:"items,omitempty"`
}

// ManageItems implements manage_items: create/update/delete, single or
// batch (§4.6).
type ManageItems struct {
	deps *Deps
}

func NewManageItems(deps *Deps) *ManageItems { return &ManageItems{deps: deps} }

func (t *ManageItems) Name() string { return "manage_items" }
func (t *ManageItems) Description() string {
	return "Create, update, or delete work items. Accepts a single item object or an items array for batch; batch items are applied independently and each reports its own outcome."
}
func (t *ManageItems) InputSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "operation": {"type": "string", "enum": ["create", "update", "delete"]},
    "item": {
      "type": "object",
      "properties": {
        "id": {"type": "string", "description": "required for update/delete"},
        "parentId": {"type": "string"},
        "title": {"type": "string"},
        "description": {"type": "string"},
        "tags": {"type": "array", "items": {"type": "string"}},
        "priority": {"type": "string", "enum": ["low", "medium", "high"]},
        "status": {"type": "string", "description": "create only; defaults to the active flow's first status"},
        "recursive": {"type": "boolean", "description": "delete only; delete the subtree post-order"}
      }
    },
    "items": {
      "type": "array",
      "description": "batch form; each element has the same shape as item",
      "items": {"type": "object"}
    }
  },
  "required": ["operation"]
}`)
}

func (t *ManageItems) Execute(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p manageItemsParams
	if err := json.Unmarshal(params, &p); err != nil {
		return dispatch.ToolResult(dispatch.Failure(apperr.Newf(apperr.ValidationError, "invalid parameters: %v", err)))
	}

	var inputs []itemInput
	batched := p.Items != nil
	if batched {
		inputs = p.Items
	} else if p.Item != nil {
		inputs = []itemInput{*p.Item}
	} else {
		return dispatch.ToolResult(dispatch.Failure(apperr.New(apperr.ValidationError, "either item or items is required")))
	}

	results := make([]dispatch.BatchItem, 0, len(inputs))
	for _, in := range inputs {
		data, err := t.applyOne(ctx, p.Operation, in)
		if err != nil {
			results = append(results, dispatch.ItemErr(in.ID, err))
			continue
		}
		id := in.ID
		if m, ok := data.(map[string]any); ok {
			if v, ok := m["id"].(string); ok {
				id = v
			}
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

func (t *ManageItems) applyOne(ctx context.Context, op string, in itemInput) (any, error) {
	now := time.Now().UTC()

	switch op {
	case "create":
		snap, err := t.deps.Config.Get()
		if err != nil {
			return nil, apperr.Wrap(apperr.InternalError, "loading workflow config", err)
		}
		var priority model.Priority
		if in.Priority != nil {
			priority = model.Priority(*in.Priority)
		}
		var created *model.WorkItem
		err = t.deps.Store.Transact(ctx, func(tx *store.Tx) error {
			it, err := itemops.CreateInTx(tx, snap.Workflow, itemops.NewItemInput{
				ParentID:    strPtrVal(in.ParentID),
				Title:       strPtrVal(in.Title),
				Description: strPtrVal(in.Description),
				Tags:        in.Tags,
				Priority:    priority,
				Status:      in.Status,
			}, now, 0)
			if err != nil {
				return err
			}
			created = it
			return nil
		})
		if err != nil {
			return nil, err
		}
		m := itemMap(created, nil)
		expected := noteschema.ExpectedNotes(snap.Schemas, created.TagSet(), nil)
		if len(expected) > 0 {
			m["expectedNotes"] = expected
		}
		return m, nil

	case "update":
		if in.ID == "" {
			return nil, apperr.New(apperr.ValidationError, "id is required for update")
		}
		var priority *model.Priority
		if in.Priority != nil {
			p := model.Priority(*in.Priority)
			priority = &p
		}
		var updated *model.WorkItem
		err := t.deps.Store.Transact(ctx, func(tx *store.Tx) error {
			it, err := itemops.UpdateInTx(tx, in.ID, itemops.UpdateFields{
				ParentID:    in.ParentID,
				Title:       in.Title,
				Description: in.Description,
				Tags:        in.Tags,
				Priority:    priority,
			})
			if err != nil {
				return err
			}
			updated = it
			return nil
		})
		if err != nil {
			return nil, err
		}
		return itemMap(updated, nil), nil

	case "delete":
		if in.ID == "" {
			return nil, apperr.New(apperr.ValidationError, "id is required for delete")
		}
		err := t.deps.Store.Transact(ctx, func(tx *store.Tx) error {
			return itemops.DeleteInTx(tx, in.ID, in.Recursive)
		})
		if err != nil {
			return nil, err
		}
		return map[string]any{"id": in.ID, "deleted": true}, nil

	default:
		return nil, apperr.Newf(apperr.ValidationError, "unknown operation %q", op)
	}
}
