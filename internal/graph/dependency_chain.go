package graph

import "github.com/workitem-mcp/workitem-mcp/internal/model"

// Direction selects which way dependencyChain walks BLOCKS/RELATES_TO edges.
type Direction string

const (
	DirectionOutgoing Direction = "outgoing" // follow BLOCKS/RELATES_TO from -> to
	DirectionIncoming Direction = "incoming" // reverse
)

// ChainEntry pairs a reachable item with its minimum BFS distance from
// the nearest seed.
type ChainEntry struct {
	Item  *model.WorkItem
	Depth int
}

// DependencyChain returns every item reachable from rootIDs by
// following BLOCKS/RELATES_TO edges in direction, each paired with its
// minimum distance from the nearest seed, ordered by increasing depth
// (§4.2).
func DependencyChain(src Source, rootIDs []string, direction Direction, maxDepth int) ([]ChainEntry, error) {
	visited := map[string]int{}
	var order []string
	queue := append([]string{}, rootIDs...)
	for _, id := range rootIDs {
		visited[id] = 0
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		depth := visited[cur]
		if maxDepth > 0 && depth >= maxDepth {
			continue
		}
		neighbors, err := chainNeighbors(src, cur, direction)
		if err != nil {
			return nil, err
		}
		for _, n := range neighbors {
			if _, seen := visited[n]; seen {
				continue
			}
			visited[n] = depth + 1
			order = append(order, n)
			queue = append(queue, n)
		}
	}

	out := make([]ChainEntry, 0, len(order))
	for _, id := range order {
		it, err := src.GetItem(id)
		if err != nil {
			return nil, err
		}
		out = append(out, ChainEntry{Item: it, Depth: visited[id]})
	}
	return out, nil
}

func chainNeighbors(src Source, id string, direction Direction) ([]string, error) {
	var out []string
	if direction == DirectionOutgoing {
		edges, err := src.DependenciesFrom(id)
		if err != nil {
			return nil, err
		}
		for _, d := range edges {
			if d.Type == model.DepBlocks || d.Type == model.DepRelatesTo {
				out = append(out, d.ToID)
			}
		}
		return out, nil
	}
	edges, err := src.DependenciesTo(id)
	if err != nil {
		return nil, err
	}
	for _, d := range edges {
		if d.Type == model.DepBlocks || d.Type == model.DepRelatesTo {
			out = append(out, d.FromID)
		}
	}
	return out, nil
}

// Blockers returns every item that blocks itemID: items with an
// outgoing BLOCKS edge into itemID, or items itemID declares an
// outgoing IS_BLOCKED_BY edge to (§4.2).
func Blockers(src Source, itemID string) ([]*model.WorkItem, error) {
	ids, err := forwardBlockersOf(src, itemID)
	if err != nil {
		return nil, err
	}
	out := make([]*model.WorkItem, 0, len(ids))
	for _, id := range ids {
		it, err := src.GetItem(id)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, nil
}

// forwardBlockersOf returns the ids of items that block itemID.
func forwardBlockersOf(src Source, itemID string) ([]string, error) {
	var out []string
	incoming, err := src.DependenciesTo(itemID)
	if err != nil {
		return nil, err
	}
	for _, d := range incoming {
		if d.Type == model.DepBlocks {
			out = append(out, d.FromID)
		}
	}
	outgoing, err := src.DependenciesFrom(itemID)
	if err != nil {
		return nil, err
	}
	for _, d := range outgoing {
		if d.Type == model.DepIsBlockedBy {
			out = append(out, d.ToID)
		}
	}
	return out, nil
}

// UnresolvedBlockers returns the blockers of itemID whose role is not
// yet terminal (§4.3 "Prerequisite checks").
func UnresolvedBlockers(src Source, itemID string) ([]*model.WorkItem, error) {
	all, err := Blockers(src, itemID)
	if err != nil {
		return nil, err
	}
	var out []*model.WorkItem
	for _, b := range all {
		if b.Role != model.RoleTerminal {
			out = append(out, b)
		}
	}
	return out, nil
}

// NewlyUnblocked returns items that have completedItemID as a blocker
// and now have zero unresolved blockers, i.e. completedItemID was their
// last one (§4.2).
func NewlyUnblocked(src Source, completedItemID string) ([]*model.WorkItem, error) {
	// Candidates: items with an outgoing BLOCKS edge FROM completedItemID
	// (completedItemID blocks them), or an IS_BLOCKED_BY edge pointing at it.
	var candidateIDs []string
	outgoing, err := src.DependenciesFrom(completedItemID)
	if err != nil {
		return nil, err
	}
	for _, d := range outgoing {
		if d.Type == model.DepBlocks {
			candidateIDs = append(candidateIDs, d.ToID)
		}
	}
	incoming, err := src.DependenciesTo(completedItemID)
	if err != nil {
		return nil, err
	}
	for _, d := range incoming {
		if d.Type == model.DepIsBlockedBy {
			candidateIDs = append(candidateIDs, d.FromID)
		}
	}

	var out []*model.WorkItem
	seen := map[string]bool{}
	for _, id := range candidateIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		unresolved, err := UnresolvedBlockers(src, id)
		if err != nil {
			return nil, err
		}
		if len(unresolved) == 0 {
			it, err := src.GetItem(id)
			if err != nil {
				return nil, err
			}
			out = append(out, it)
		}
	}
	return out, nil
}
