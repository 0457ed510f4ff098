// Package graph implements traversal and validation over the item
// hierarchy and the dependency DAG (§4.2). All operations are pure
// reads; they run against a Source so the same logic works against
// committed state (via store.Reader) or an in-flight transaction (via
// store.Tx).
package graph

import "github.com/workitem-mcp/workitem-mcp/internal/model"

// Source is the minimal read surface the graph service needs.
type Source interface {
	GetItem(id string) (*model.WorkItem, error)
	ItemsByParent(parentID string) ([]*model.WorkItem, error)
	DependenciesFrom(id string) ([]*model.Dependency, error)
	DependenciesTo(id string) ([]*model.Dependency, error)
	AllDependencies() ([]*model.Dependency, error)
}

// AncestorRef is the lightweight shape returned for an ancestor chain
// (§4.7 includeAncestors).
type AncestorRef struct {
	ID    string
	Title string
	Depth int
}

// Ancestors returns the chain root...direct-parent for id, ordered
// root-first. Roots return an empty slice.
func Ancestors(src Source, id string) ([]AncestorRef, error) {
	it, err := src.GetItem(id)
	if err != nil {
		return nil, err
	}
	var chain []AncestorRef
	cur := it
	for cur.ParentID != "" {
		parent, err := src.GetItem(cur.ParentID)
		if err != nil {
			return nil, err
		}
		chain = append(chain, AncestorRef{ID: parent.ID, Title: parent.Title, Depth: parent.Depth})
		cur = parent
	}
	// reverse to root-first
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// Descendants returns every item in id's subtree in BFS order, capped
// at maxDepth levels below id (0 = unlimited).
func Descendants(src Source, id string, maxDepth int) ([]*model.WorkItem, error) {
	var out []*model.WorkItem
	type frame struct {
		id    string
		level int
	}
	queue := []frame{{id: id, level: 0}}
	visited := map[string]bool{id: true}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if maxDepth > 0 && cur.level >= maxDepth {
			continue
		}
		children, err := src.ItemsByParent(cur.id)
		if err != nil {
			return nil, err
		}
		for _, c := range children {
			if visited[c.ID] {
				continue
			}
			visited[c.ID] = true
			out = append(out, c)
			queue = append(queue, frame{id: c.ID, level: cur.level + 1})
		}
	}
	return out, nil
}

// WouldIntroduceParentCycle reports whether setting childID's parent to
// newParentID would create a cycle: true iff childID appears among
// newParentID's own ancestors (or childID == newParentID).
func WouldIntroduceParentCycle(src Source, childID, newParentID string) (bool, error) {
	if childID == newParentID {
		return true, nil
	}
	cur := newParentID
	for cur != "" {
		if cur == childID {
			return true, nil
		}
		it, err := src.GetItem(cur)
		if err != nil {
			return false, err
		}
		cur = it.ParentID
	}
	return false, nil
}

// WouldIntroduceDependencyCycle reports whether adding a fromID->toID
// edge of the given type would close a cycle. IS_BLOCKED_BY is treated
// as the reverse of BLOCKS; RELATES_TO never cycles (§4.2).
func WouldIntroduceDependencyCycle(src Source, fromID, toID string, depType model.DependencyType) (bool, []string, error) {
	if depType == model.DepRelatesTo {
		return false, nil, nil
	}
	// Normalize to a BLOCKS edge start -> target for the DFS below.
	start, target := fromID, toID
	if depType == model.DepIsBlockedBy {
		start, target = toID, fromID
	}
	// A new start->target edge cycles iff target can already reach start
	// by following existing BLOCKS/IS_BLOCKED_BY edges forward.
	path, err := dfsBlocksPath(src, target, start, map[string]bool{})
	if err != nil {
		return false, nil, err
	}
	if path == nil {
		return false, nil, nil
	}
	full := append([]string{start}, path...)
	return true, full, nil
}

// dfsBlocksPath searches forward along BLOCKS/IS_BLOCKED_BY edges from
// cur looking for target, returning the path (including target) if found.
func dfsBlocksPath(src Source, cur, target string, visited map[string]bool) ([]string, error) {
	if cur == target {
		return []string{cur}, nil
	}
	if visited[cur] {
		return nil, nil
	}
	visited[cur] = true

	next, err := forwardBlockNeighbors(src, cur)
	if err != nil {
		return nil, err
	}
	for _, n := range next {
		path, err := dfsBlocksPath(src, n, target, visited)
		if err != nil {
			return nil, err
		}
		if path != nil {
			return append([]string{cur}, path...), nil
		}
	}
	return nil, nil
}

// forwardBlockNeighbors returns items reachable from id along one
// BLOCKS/IS_BLOCKED_BY hop, treating IS_BLOCKED_BY as reversed BLOCKS.
func forwardBlockNeighbors(src Source, id string) ([]string, error) {
	var out []string
	outgoing, err := src.DependenciesFrom(id)
	if err != nil {
		return nil, err
	}
	for _, d := range outgoing {
		switch d.Type {
		case model.DepBlocks:
			out = append(out, d.ToID)
		}
	}
	incoming, err := src.DependenciesTo(id)
	if err != nil {
		return nil, err
	}
	for _, d := range incoming {
		if d.Type == model.DepIsBlockedBy {
			out = append(out, d.FromID)
		}
	}
	return out, nil
}
