// Package compound implements the two atomic multi-item operations
// (§4.6 create_work_tree, complete_tree): building a whole subtree in
// one transaction, and driving an existing subtree to completion in
// dependency-and-hierarchy order.
package compound

import (
	"context"
	"time"

	"github.com/workitem-mcp/workitem-mcp/internal/apperr"
	"github.com/workitem-mcp/workitem-mcp/internal/graph"
	"github.com/workitem-mcp/workitem-mcp/internal/idgen"
	"github.com/workitem-mcp/workitem-mcp/internal/itemops"
	"github.com/workitem-mcp/workitem-mcp/internal/model"
	"github.com/workitem-mcp/workitem-mcp/internal/store"
	"github.com/workitem-mcp/workitem-mcp/internal/wfconfig"
)

// NodeSpec describes one item in a work-tree request, possibly with
// nested children. Ref is a caller-chosen key (need not be globally
// unique, just unique within one request) used to wire Dependencies and
// Notes to items that don't have a real id yet.
type NodeSpec struct {
	Ref         string
	Title       string
	Description string
	Tags        []string
	Priority    model.Priority
	Status      string
	Children    []NodeSpec
}

// DependencySpec wires a BLOCKS/IS_BLOCKED_BY/RELATES_TO edge between
// two nodes of the same request by Ref.
type DependencySpec struct {
	FromRef string
	ToRef   string
	Type    model.DependencyType
}

// NoteSpec attaches a note to a node of the same request by Ref.
type NoteSpec struct {
	Ref   string
	Key   string
	Phase model.Role
	Body  string
}

// WorkTreeInput is a create_work_tree request.
type WorkTreeInput struct {
	ParentID     string // attach the root under an existing item; "" for a new root
	Root         NodeSpec
	Dependencies []DependencySpec
	Notes        []NoteSpec
}

// WorkTreeResult is what create_work_tree returns: every created item
// keyed by its Ref (or its id, if the caller left Ref empty), and the
// dependency edges created.
type WorkTreeResult struct {
	Items        map[string]*model.WorkItem
	Dependencies []*model.Dependency
}

// CreateWorkTree creates Root and its nested Children, then
// Dependencies and Notes, all in a single transaction (§4.6). A
// validation failure anywhere aborts the whole tree — nothing commits.
func CreateWorkTree(ctx context.Context, s *store.Store, cfg *wfconfig.Cache, in WorkTreeInput, now time.Time) (*WorkTreeResult, error) {
	snap, err := cfg.Get()
	if err != nil {
		return nil, apperr.Wrap(apperr.InternalError, "loading workflow config", err)
	}

	result := &WorkTreeResult{Items: make(map[string]*model.WorkItem)}
	nonce := 0

	err = s.Transact(ctx, func(tx *store.Tx) error {
		var createRec func(parentID string, node NodeSpec) error
		createRec = func(parentID string, node NodeSpec) error {
			it, err := itemops.CreateInTx(tx, snap.Workflow, itemops.NewItemInput{
				ParentID:    parentID,
				Title:       node.Title,
				Description: node.Description,
				Tags:        node.Tags,
				Priority:    node.Priority,
				Status:      node.Status,
			}, now, nonce)
			nonce++
			if err != nil {
				return err
			}
			ref := node.Ref
			if ref == "" {
				ref = it.ID
			}
			if _, dup := result.Items[ref]; dup {
				return apperr.Newf(apperr.ValidationError, "duplicate node ref %q in work-tree request", ref)
			}
			result.Items[ref] = it
			for _, child := range node.Children {
				if err := createRec(it.ID, child); err != nil {
					return err
				}
			}
			return nil
		}
		if err := createRec(in.ParentID, in.Root); err != nil {
			return err
		}

		for _, d := range in.Dependencies {
			from, ok := result.Items[d.FromRef]
			if !ok {
				return apperr.Newf(apperr.ValidationError, "dependency references unknown ref %q", d.FromRef)
			}
			to, ok := result.Items[d.ToRef]
			if !ok {
				return apperr.Newf(apperr.ValidationError, "dependency references unknown ref %q", d.ToRef)
			}
			if from.ID == to.ID {
				return apperr.New(apperr.ValidationError, "a dependency cannot reference the same item on both ends")
			}
			if d.Type != model.DepRelatesTo {
				cyc, path, err := graph.WouldIntroduceDependencyCycle(tx, from.ID, to.ID, d.Type)
				if err != nil {
					return err
				}
				if cyc {
					return apperr.New(apperr.ConflictError, "dependency would introduce a cycle").
						WithDetails(map[string]any{"cycle": path})
				}
			}
			dep := &model.Dependency{
				ID:        idgen.New("dep", from.ID+string(d.Type)+to.ID, now, nonce),
				FromID:    from.ID,
				ToID:      to.ID,
				Type:      d.Type,
				CreatedAt: now,
			}
			nonce++
			if err := tx.CreateDependency(dep); err != nil {
				return err
			}
			result.Dependencies = append(result.Dependencies, dep)
		}

		for _, n := range in.Notes {
			item, ok := result.Items[n.Ref]
			if !ok {
				return apperr.Newf(apperr.ValidationError, "note references unknown ref %q", n.Ref)
			}
			note := &model.Note{ItemID: item.ID, Key: n.Key, Phase: n.Phase, Body: n.Body, CreatedAt: now, ModifiedAt: now}
			if err := tx.UpsertNote(note); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
