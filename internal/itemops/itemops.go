// Package itemops holds the work-item creation/update/delete validation
// shared by manage_items and the compound create_work_tree/complete_tree
// operations (§3 WorkItem invariants).
package itemops

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/workitem-mcp/workitem-mcp/internal/apperr"
	"github.com/workitem-mcp/workitem-mcp/internal/graph"
	"github.com/workitem-mcp/workitem-mcp/internal/idgen"
	"github.com/workitem-mcp/workitem-mcp/internal/model"
	"github.com/workitem-mcp/workitem-mcp/internal/store"
	"github.com/workitem-mcp/workitem-mcp/internal/wfconfig"
)

// MaxDepth is the hierarchy's enforced maximum (§3 invariant "depth ≤ 3").
const MaxDepth = 3

// NewItemInput is the validated, normalized shape a create operation
// accepts before an id and timestamps are assigned.
type NewItemInput struct {
	ParentID    string
	Title       string
	Description string
	Tags        []string
	Priority    model.Priority
	Status      string // optional; defaults to the active flow's first status
}

// NormalizeTags sorts and dedupes a tag list (§3 "order-insignificant").
func NormalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	var out []string
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// CreateInTx validates in.ParentID's existence and depth, resolves a
// default status from the active flow when Status is empty, assigns an
// id, and inserts the item, all within tx.
func CreateInTx(tx *store.Tx, wf *wfconfig.Workflow, in NewItemInput, now time.Time, nonce int) (*model.WorkItem, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, apperr.New(apperr.ValidationError, "title is required")
	}

	depth := 0
	if in.ParentID != "" {
		parent, err := tx.GetItem(in.ParentID)
		if err != nil {
			return nil, err
		}
		depth = parent.Depth + 1
		if depth > MaxDepth {
			return nil, apperr.Newf(apperr.ValidationError, "depth %d exceeds the maximum of %d", depth, MaxDepth)
		}
	}

	tags := NormalizeTags(in.Tags)
	priority := in.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}

	status := in.Status
	tagSet := tagSetOf(tags)
	flow := wf.SelectFlow(tagSet)
	if flow == nil {
		return nil, apperr.New(apperr.InternalError, "no workflow flow configured")
	}
	if status == "" {
		if len(flow.Sequence) == 0 {
			return nil, apperr.New(apperr.InternalError, "active flow has no statuses")
		}
		status = flow.Sequence[0]
	}
	role, ok := wf.RoleOf(status)
	if !ok {
		return nil, apperr.Newf(apperr.ValidationError, "status %q has no configured role", status)
	}

	item := &model.WorkItem{
		ID:            idgen.New("wi", in.Title+in.ParentID, now, nonce),
		ParentID:      in.ParentID,
		Depth:         depth,
		Title:         in.Title,
		Description:   in.Description,
		Tags:          tags,
		Priority:      priority,
		Status:        status,
		Role:          role,
		PreviousRole:  role,
		RoleChangedAt: now,
		CreatedAt:     now,
		ModifiedAt:    now,
	}
	if err := tx.CreateItem(item); err != nil {
		return nil, err
	}
	return item, nil
}

// UpdateFields are the user-settable fields manage_items(update) may
// change; nil means "leave unchanged", except Tags where a non-nil
// (possibly empty) slice replaces the set.
type UpdateFields struct {
	ParentID    *string
	Title       *string
	Description *string
	Tags        []string
	Priority    *model.Priority
}

// UpdateInTx applies fields to the item identified by id, validating a
// parentId change against depth and cycle constraints.
func UpdateInTx(tx *store.Tx, id string, fields UpdateFields) (*model.WorkItem, error) {
	item, err := tx.GetItem(id)
	if err != nil {
		return nil, err
	}

	if fields.ParentID != nil && *fields.ParentID != item.ParentID {
		newParent := *fields.ParentID
		if newParent != "" {
			cyc, err := graph.WouldIntroduceParentCycle(tx, id, newParent)
			if err != nil {
				return nil, err
			}
			if cyc {
				return nil, apperr.New(apperr.ConflictError, "reparenting would introduce a cycle")
			}
			parent, err := tx.GetItem(newParent)
			if err != nil {
				return nil, err
			}
			if parent.Depth+1 > MaxDepth {
				return nil, apperr.Newf(apperr.ValidationError, "depth %d exceeds the maximum of %d", parent.Depth+1, MaxDepth)
			}
			item.Depth = parent.Depth + 1
		} else {
			item.Depth = 0
		}
		item.ParentID = newParent
	}
	if fields.Title != nil {
		if strings.TrimSpace(*fields.Title) == "" {
			return nil, apperr.New(apperr.ValidationError, "title cannot be empty")
		}
		item.Title = *fields.Title
	}
	if fields.Description != nil {
		item.Description = *fields.Description
	}
	if fields.Tags != nil {
		item.Tags = NormalizeTags(fields.Tags)
	}
	if fields.Priority != nil {
		item.Priority = *fields.Priority
	}

	if err := tx.UpdateItem(item); err != nil {
		return nil, err
	}
	return item, nil
}

// DeleteInTx deletes id, and with recursive=true its whole subtree in
// post-order (children before parent). Without recursive, deletion
// fails if children exist (§3 "otherwise, deletion fails if children
// exist").
func DeleteInTx(tx *store.Tx, id string, recursive bool) error {
	children, err := tx.ItemsByParent(id)
	if err != nil {
		return err
	}
	if len(children) > 0 && !recursive {
		return apperr.Newf(apperr.ValidationError, "item %q has children; pass recursive=true to delete the subtree", id)
	}
	for _, c := range children {
		if err := DeleteInTx(tx, c.ID, true); err != nil {
			return err
		}
	}
	return tx.DeleteItem(id)
}

// GetSubtree returns id's descendants via graph.Descendants against the
// committed store, for callers outside a transaction (e.g. complete_tree
// planning a bottom-up order before opening per-item transactions).
func GetSubtree(ctx context.Context, s *store.Store, id string) ([]*model.WorkItem, error) {
	return graph.Descendants(s.Reader(ctx), id, 0)
}

func tagSetOf(tags []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		set[t] = struct{}{}
	}
	return set
}
