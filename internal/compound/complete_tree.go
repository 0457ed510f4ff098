package compound

import (
	"context"
	"sort"

	"github.com/workitem-mcp/workitem-mcp/internal/graph"
	"github.com/workitem-mcp/workitem-mcp/internal/itemops"
	"github.com/workitem-mcp/workitem-mcp/internal/model"
	"github.com/workitem-mcp/workitem-mcp/internal/store"
	"github.com/workitem-mcp/workitem-mcp/internal/workflow"
)

// CompleteTree drives every item in rootID's subtree (including the
// root) through trigger, in dependency-topological order, bottom-up:
// a child always precedes its parent and a BLOCKS/IS_BLOCKED_BY
// blocker always precedes the item it blocks, so a batch never fails
// an item on a prerequisite that completes later in the same batch
// (§4.6 "bottom-up, descendants first"). Each item advances in its own
// transaction; one item's failure never blocks another's (§5 batch
// semantics).
func CompleteTree(ctx context.Context, s *store.Store, eng *workflow.Engine, rootID string, trigger workflow.Trigger, actor string) ([]workflow.BatchResult, error) {
	root, err := s.GetItem(ctx, rootID)
	if err != nil {
		return nil, err
	}
	descendants, err := itemops.GetSubtree(ctx, s, rootID)
	if err != nil {
		return nil, err
	}

	items := append([]*model.WorkItem{root}, descendants...)
	ordered, err := topoOrderSubtree(items, s.Reader(ctx))
	if err != nil {
		return nil, err
	}

	reqs := make([]workflow.AdvanceRequest, 0, len(ordered))
	for _, it := range ordered {
		reqs = append(reqs, workflow.AdvanceRequest{ItemID: it.ID, Trigger: trigger, Actor: actor})
	}
	return eng.AdvanceBatch(ctx, reqs), nil
}

// topoOrderSubtree orders items so that every child precedes its parent
// and every unresolved BLOCKS/IS_BLOCKED_BY blocker precedes the item it
// blocks, picking among ready items by depth (deepest first) then
// CreatedAt to keep the result close to the prior depth+age ordering.
// Constraints that cycle against each other (e.g. a parent blocking its
// own child) fall back to depth+CreatedAt order for whatever remains.
func topoOrderSubtree(items []*model.WorkItem, src graph.Source) ([]*model.WorkItem, error) {
	inSet := make(map[string]bool, len(items))
	for _, it := range items {
		inSet[it.ID] = true
	}

	prereqs := make(map[string]map[string]bool, len(items))
	for _, it := range items {
		prereqs[it.ID] = map[string]bool{}
	}
	for _, it := range items {
		if it.ParentID != "" && inSet[it.ParentID] {
			prereqs[it.ParentID][it.ID] = true
		}
		blockers, err := graph.UnresolvedBlockers(src, it.ID)
		if err != nil {
			return nil, err
		}
		for _, b := range blockers {
			if inSet[b.ID] {
				prereqs[it.ID][b.ID] = true
			}
		}
	}

	remaining := append([]*model.WorkItem{}, items...)
	sort.SliceStable(remaining, func(i, j int) bool {
		if remaining[i].Depth != remaining[j].Depth {
			return remaining[i].Depth > remaining[j].Depth
		}
		return remaining[i].CreatedAt.Before(remaining[j].CreatedAt)
	})

	ordered := make([]*model.WorkItem, 0, len(remaining))
	done := make(map[string]bool, len(remaining))
	for len(ordered) < len(remaining) {
		progressed := false
		for _, it := range remaining {
			if done[it.ID] {
				continue
			}
			ready := true
			for dep := range prereqs[it.ID] {
				if !done[dep] {
					ready = false
					break
				}
			}
			if ready {
				ordered = append(ordered, it)
				done[it.ID] = true
				progressed = true
				break
			}
		}
		if !progressed {
			for _, it := range remaining {
				if !done[it.ID] {
					ordered = append(ordered, it)
					done[it.ID] = true
				}
			}
			break
		}
	}
	return ordered, nil
}
