package store

import (
	"context"
	"database/sql"

	"github.com/workitem-mcp/workitem-mcp/internal/model"
)

// Tx exposes the entity operations needed by multi-step, single-transaction
// callers (the workflow engine's advance+cascade, create_work_tree,
// complete_tree) so they never need to see database/sql directly.
type Tx struct {
	ctx context.Context
	tx  *sql.Tx
}

// Transact runs fn inside one write transaction with the store's bounded
// retry-on-contention behavior (§4.1, §5). Either everything fn does
// commits, or none of it does.
func (s *Store) Transact(ctx context.Context, fn func(tx *Tx) error) error {
	return s.withTx(ctx, func(sqlTx *sql.Tx) error {
		return fn(&Tx{ctx: ctx, tx: sqlTx})
	})
}

func (t *Tx) CreateItem(it *model.WorkItem) error       { return insertItemTx(t.ctx, t.tx, it) }
func (t *Tx) UpdateItem(it *model.WorkItem) error       { return updateItemTx(t.ctx, t.tx, it) }
func (t *Tx) GetItem(id string) (*model.WorkItem, error) { return getItemTx(t.ctx, t.tx, id) }

func (t *Tx) DeleteItem(id string) error {
	_, err := t.tx.ExecContext(t.ctx, `DELETE FROM items WHERE id = ?`, id)
	return err
}

func (t *Tx) UpsertNote(n *model.Note) error { return upsertNoteTx(t.ctx, t.tx, n) }

func (t *Tx) DeleteNote(itemID, key string) error {
	_, err := t.tx.ExecContext(t.ctx, `DELETE FROM notes WHERE item_id = ? AND key = ?`, itemID, key)
	return err
}

func (t *Tx) NotesByItem(itemID string) ([]*model.Note, error) {
	rows, err := t.tx.QueryContext(t.ctx, `SELECT `+noteColumns+` FROM notes WHERE item_id = ? ORDER BY key`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (t *Tx) CreateDependency(d *model.Dependency) error { return createDependencyTx(t.ctx, t.tx, d) }

func (t *Tx) DeleteDependency(id string) error {
	_, err := t.tx.ExecContext(t.ctx, `DELETE FROM dependencies WHERE id = ?`, id)
	return err
}

func (t *Tx) DependenciesFrom(id string) ([]*model.Dependency, error) {
	return t.queryDeps(`SELECT `+depColumns+` FROM dependencies WHERE from_id = ?`, id)
}

func (t *Tx) DependenciesTo(id string) ([]*model.Dependency, error) {
	return t.queryDeps(`SELECT `+depColumns+` FROM dependencies WHERE to_id = ?`, id)
}

func (t *Tx) AllDependencies() ([]*model.Dependency, error) {
	return t.queryDeps(`SELECT ` + depColumns + ` FROM dependencies`)
}

func (t *Tx) queryDeps(q string, args ...any) ([]*model.Dependency, error) {
	rows, err := t.tx.QueryContext(t.ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Dependency
	for rows.Next() {
		d, err := scanDependency(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (t *Tx) InsertTransition(rt *model.RoleTransition) error {
	return insertTransitionTx(t.ctx, t.tx, rt)
}

func (t *Tx) TransitionsByItem(itemID string) ([]*model.RoleTransition, error) {
	rows, err := t.tx.QueryContext(t.ctx, `SELECT `+transitionColumns+` FROM role_transitions WHERE item_id = ? ORDER BY applied_at DESC`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.RoleTransition
	for rows.Next() {
		rt, err := scanTransition(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}

func (t *Tx) ItemsByParent(parentID string) ([]*model.WorkItem, error) {
	rows, err := t.tx.QueryContext(t.ctx,
		`SELECT `+itemColumns+` FROM items WHERE `+parentClause(parentID)+` ORDER BY created_at`,
		parentArgs(parentID)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.WorkItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
