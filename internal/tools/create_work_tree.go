package tools

import (
	"context"
	"encoding/json"
	"time"

	"github.com/workitem-mcp/workitem-mcp/internal/apperr"
	"github.com/workitem-mcp/workitem-mcp/internal/compound"
	"github.com/workitem-mcp/workitem-mcp/internal/dispatch"
	"github.com/workitem-mcp/workitem-mcp/internal/mcp"
	"github.com/workitem-mcp/workitem-mcp/internal/model"
)

type nodeSpecInput struct {
	Ref         string          `json:"ref,omitempty"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Tags        []string        `json:"tags,omitempty"`
	Priority    string          `json:"priority,omitempty"`
	Status      string          `json:"status,omitempty"`
	Children    []nodeSpecInput `json:"children,omitempty"`
}

func (n nodeSpecInput) toSpec() compound.NodeSpec {
	children := make([]compound.NodeSpec, 0, len(n.Children))
	for _, c := range n.Children {
		children = append(children, c.toSpec())
	}
	return compound.NodeSpec{
		Ref: n.Ref, Title: n.Title, Description: n.Description, Tags: n.Tags,
		Priority: model.Priority(n.Priority), Status: n.Status, Children: children,
	}
}

type dependencySpecInput struct {
	FromRef string `json:"fromRef"`
	ToRef   string `json:"toRef"`
	Type    string `json:"type"`
}

type noteSpecInput struct {
	Ref   string `json:"ref"`
	Key   string `json:"key"`
	Phase string `json:"phase"`
	Body  string `json:"body,omitempty"`
}

type createWorkTreeParams struct {
	ParentID     string                 `json:"parentId,omitempty"`
	Root         nodeSpecInput          `json:"root"`
	Dependencies []dependencySpecInput  `json:"dependencies,omitempty"`
	Notes        []noteSpecInput        `json:"notes,omitempty"`
}

// CreateWorkTree implements create_work_tree: atomically build a root
// item, its nested children, dependency edges, and notes in a single
// transaction, wiring edges/notes to caller-chosen refs (§4.6).
type CreateWorkTree struct {
	deps *Deps
}

func NewCreateWorkTree(deps *Deps) *CreateWorkTree { return &CreateWorkTree{deps: deps} }

func (t *CreateWorkTree) Name() string { return "create_work_tree" }
func (t *CreateWorkTree) Description() string {
	return "Atomically create a root item with nested children, dependency edges, and notes in one transaction. Edges and notes reference nodes by the ref you assign them; a failure anywhere aborts the whole tree."
}
func (t *CreateWorkTree) InputSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "parentId": {"type": "string", "description": "attach the root under an existing item; omit for a new root"},
    "root": {
      "type": "object",
      "properties": {
        "ref": {"type": "string"},
        "title": {"type": "string"},
        "description": {"type": "string"},
        "tags": {"type": "array", "items": {"type": "string"}},
        "priority": {"type": "string", "enum": ["low", "medium", "high"]},
        "status": {"type": "string"},
        "children": {"type": "array", "items": {"type": "object"}}
      },
      "required": ["title"]
    },
    "dependencies": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "fromRef": {"type": "string"},
          "toRef": {"type": "string"},
          "type": {"type": "string", "enum": ["BLOCKS", "IS_BLOCKED_BY", "RELATES_TO"]}
        },
        "required": ["fromRef", "toRef", "type"]
      }
    },
    "notes": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "ref": {"type": "string"},
          "key": {"type": "string"},
          "phase": {"type": "string", "enum": ["queue", "work", "review", "blocked", "terminal"]},
          "body": {"type": "string"}
        },
        "required": ["ref", "key", "phase"]
      }
    }
  },
  "required": ["root"]
}`)
}

func (t *CreateWorkTree) Execute(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p createWorkTreeParams
	if err := json.Unmarshal(params, &p); err != nil {
		return dispatch.ToolResult(dispatch.Failure(apperr.Newf(apperr.ValidationError, "invalid parameters: %v", err)))
	}
	if p.Root.Title == "" {
		return dispatch.ToolResult(dispatch.Failure(apperr.New(apperr.ValidationError, "root.title is required")))
	}

	deps := make([]compound.DependencySpec, 0, len(p.Dependencies))
	for _, d := range p.Dependencies {
		deps = append(deps, compound.DependencySpec{FromRef: d.FromRef, ToRef: d.ToRef, Type: model.DependencyType(d.Type)})
	}
	notes := make([]compound.NoteSpec, 0, len(p.Notes))
	for _, n := range p.Notes {
		notes = append(notes, compound.NoteSpec{Ref: n.Ref, Key: n.Key, Phase: model.Role(n.Phase), Body: n.Body})
	}

	result, err := compound.CreateWorkTree(ctx, t.deps.Store, t.deps.Config, compound.WorkTreeInput{
		ParentID: p.ParentID, Root: p.Root.toSpec(), Dependencies: deps, Notes: notes,
	}, time.Now().UTC())
	if err != nil {
		return dispatch.ToolResult(dispatch.Failure(err))
	}

	items := make(map[string]any, len(result.Items))
	for ref, it := range result.Items {
		items[ref] = itemMap(it, nil)
	}
	edges := make([]map[string]any, 0, len(result.Dependencies))
	for _, d := range result.Dependencies {
		edges = append(edges, depMap(d))
	}
	return dispatch.ToolResult(dispatch.Success(map[string]any{
		"items": items, "dependencies": edges, "itemCount": len(result.Items),
	}))
}
