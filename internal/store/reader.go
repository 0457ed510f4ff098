package store

import (
	"context"

	"github.com/workitem-mcp/workitem-mcp/internal/model"
)

// Reader adapts a ctx-bound Store to the ctx-free accessor shape the
// graph package consumes, so the same graph code works whether it is
// reading committed state or running inside an in-flight Tx.
type Reader struct {
	ctx context.Context
	s   *Store
}

// Reader returns a read-only adapter bound to ctx.
func (s *Store) Reader(ctx context.Context) *Reader { return &Reader{ctx: ctx, s: s} }

func (r *Reader) GetItem(id string) (*model.WorkItem, error) { return r.s.GetItem(r.ctx, id) }

func (r *Reader) ItemsByParent(parentID string) ([]*model.WorkItem, error) {
	return r.s.ItemsByParent(r.ctx, parentID)
}

func (r *Reader) DependenciesFrom(id string) ([]*model.Dependency, error) {
	return r.s.DependenciesFrom(r.ctx, id)
}

func (r *Reader) DependenciesTo(id string) ([]*model.Dependency, error) {
	return r.s.DependenciesTo(r.ctx, id)
}

func (r *Reader) AllDependencies() ([]*model.Dependency, error) { return r.s.AllDependencies(r.ctx) }
