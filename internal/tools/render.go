package tools

import (
	"context"

	"github.com/workitem-mcp/workitem-mcp/internal/apperr"
	"github.com/workitem-mcp/workitem-mcp/internal/graph"
	"github.com/workitem-mcp/workitem-mcp/internal/model"
)

// itemMap renders a WorkItem as the JSON-friendly shape every tool
// returns it in, optionally augmented with its ancestor chain (§4.7
// includeAncestors).
func itemMap(it *model.WorkItem, ancestors []graph.AncestorRef) map[string]any {
	m := map[string]any{
		"id":            it.ID,
		"parentId":      it.ParentID,
		"depth":         it.Depth,
		"title":         it.Title,
		"description":   it.Description,
		"tags":          it.Tags,
		"priority":      it.Priority,
		"status":        it.Status,
		"role":          it.Role,
		"previousRole":  it.PreviousRole,
		"roleChangedAt": it.RoleChangedAt,
		"createdAt":     it.CreatedAt,
		"modifiedAt":    it.ModifiedAt,
	}
	if ancestors != nil {
		m["ancestors"] = ancestorMaps(ancestors)
	}
	return m
}

func ancestorMaps(ancestors []graph.AncestorRef) []map[string]any {
	out := make([]map[string]any, 0, len(ancestors))
	for _, a := range ancestors {
		out = append(out, map[string]any{"id": a.ID, "title": a.Title, "depth": a.Depth})
	}
	return out
}

// withAncestors resolves an item's ancestor chain when requested,
// returning nil (meaning "omit the field") when include is false.
func withAncestors(ctx context.Context, d *Deps, id string, include bool) ([]graph.AncestorRef, error) {
	if !include {
		return nil, nil
	}
	chain, err := graph.Ancestors(d.Store.Reader(ctx), id)
	if err != nil {
		return nil, err
	}
	if chain == nil {
		chain = []graph.AncestorRef{}
	}
	return chain, nil
}

func strPtrVal(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func classify(err error) *apperr.Error {
	if ae, ok := apperr.As(err); ok {
		return ae
	}
	return apperr.Wrap(apperr.InternalError, "unclassified error", err)
}
