package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/workitem-mcp/workitem-mcp/internal/apperr"
	"github.com/workitem-mcp/workitem-mcp/internal/model"
)

const itemColumns = `id, parent_id, depth, title, description, tags, priority, status, role, previous_role, role_changed_at, created_at, modified_at`

func scanItem(row interface {
	Scan(dest ...any) error
}) (*model.WorkItem, error) {
	var it model.WorkItem
	var parentID sql.NullString
	var tags string
	var prevRole string
	if err := row.Scan(&it.ID, &parentID, &it.Depth, &it.Title, &it.Description, &tags,
		&it.Priority, &it.Status, &it.Role, &prevRole, &it.RoleChangedAt, &it.CreatedAt, &it.ModifiedAt); err != nil {
		return nil, err
	}
	it.ParentID = parentID.String
	it.PreviousRole = model.Role(prevRole)
	if tags != "" {
		it.Tags = strings.Split(tags, ",")
	}
	return &it, nil
}

// CreateItem inserts a new work item.
func (s *Store) CreateItem(ctx context.Context, it *model.WorkItem) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return insertItemTx(ctx, tx, it)
	})
}

func insertItemTx(ctx context.Context, tx *sql.Tx, it *model.WorkItem) error {
	var parentID any
	if it.ParentID != "" {
		parentID = it.ParentID
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO items (`+itemColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		it.ID, parentID, it.Depth, it.Title, it.Description, strings.Join(it.Tags, ","),
		it.Priority, it.Status, it.Role, string(it.PreviousRole), it.RoleChangedAt, it.CreatedAt, it.ModifiedAt)
	return err
}

// GetItem fetches a work item by id.
func (s *Store) GetItem(ctx context.Context, id string) (*model.WorkItem, error) {
	var it *model.WorkItem
	err := s.query(ctx, func(db *sql.DB) error {
		row := db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
		var err error
		it, err = scanItem(row)
		return err
	})
	if err == sql.ErrNoRows {
		return nil, apperr.Newf(apperr.NotFound, "work item %q not found", id)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.DatabaseError, "fetching item", err)
	}
	return it, nil
}

// getItemTx fetches within a transaction, for callers that need a
// consistent read inside the same write transaction.
func getItemTx(ctx context.Context, tx *sql.Tx, id string) (*model.WorkItem, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	it, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, apperr.Newf(apperr.NotFound, "work item %q not found", id)
	}
	return it, err
}

// UpdateItem overwrites a work item's mutable fields.
func (s *Store) UpdateItem(ctx context.Context, it *model.WorkItem) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return updateItemTx(ctx, tx, it)
	})
}

func updateItemTx(ctx context.Context, tx *sql.Tx, it *model.WorkItem) error {
	var parentID any
	if it.ParentID != "" {
		parentID = it.ParentID
	}
	it.ModifiedAt = time.Now()
	res, err := tx.ExecContext(ctx, `
		UPDATE items SET parent_id=?, depth=?, title=?, description=?, tags=?, priority=?,
			status=?, role=?, previous_role=?, role_changed_at=?, modified_at=?
		WHERE id=?`,
		parentID, it.Depth, it.Title, it.Description, strings.Join(it.Tags, ","), it.Priority,
		it.Status, it.Role, string(it.PreviousRole), it.RoleChangedAt, it.ModifiedAt, it.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.Newf(apperr.NotFound, "work item %q not found", it.ID)
	}
	return nil
}

// DeleteItem removes a single item. Foreign keys cascade its notes,
// dependency edges (either endpoint), and role-transition rows (§3
// invariant 7). It does not touch children — callers must delete a
// subtree post-order (graph/compound concerns, not the store's).
func (s *Store) DeleteItem(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return apperr.Newf(apperr.NotFound, "work item %q not found", id)
		}
		return nil
	})
}

// ItemsByParent lists direct children of parentID in creation order.
// parentID == "" lists roots.
func (s *Store) ItemsByParent(ctx context.Context, parentID string) ([]*model.WorkItem, error) {
	return s.queryItems(ctx,
		`SELECT `+itemColumns+` FROM items WHERE `+parentClause(parentID)+` ORDER BY created_at`,
		parentArgs(parentID)...)
}

func parentClause(parentID string) string {
	if parentID == "" {
		return "parent_id IS NULL"
	}
	return "parent_id = ?"
}

func parentArgs(parentID string) []any {
	if parentID == "" {
		return nil
	}
	return []any{parentID}
}

// ItemsByTagSubstring returns items whose comma-joined tag string
// contains substr.
func (s *Store) ItemsByTagSubstring(ctx context.Context, substr string) ([]*model.WorkItem, error) {
	return s.queryItems(ctx,
		`SELECT `+itemColumns+` FROM items WHERE tags LIKE ? ORDER BY created_at`,
		"%"+substr+"%")
}

// ItemsByRoleAndStatus filters by role and/or status; empty string means
// "any" for that dimension.
func (s *Store) ItemsByRoleAndStatus(ctx context.Context, role model.Role, status string) ([]*model.WorkItem, error) {
	q := `SELECT ` + itemColumns + ` FROM items WHERE 1=1`
	var args []any
	if role != "" {
		q += ` AND role = ?`
		args = append(args, string(role))
	}
	if status != "" {
		q += ` AND status = ?`
		args = append(args, status)
	}
	q += ` ORDER BY created_at`
	return s.queryItems(ctx, q, args...)
}

// SearchItemsByText does a case-insensitive LIKE search over title and description.
func (s *Store) SearchItemsByText(ctx context.Context, text string) ([]*model.WorkItem, error) {
	like := "%" + text + "%"
	return s.queryItems(ctx,
		`SELECT `+itemColumns+` FROM items WHERE title LIKE ? OR description LIKE ? ORDER BY created_at`,
		like, like)
}

// AllItems returns every item (used by overview/global summary).
func (s *Store) AllItems(ctx context.Context) ([]*model.WorkItem, error) {
	return s.queryItems(ctx, `SELECT `+itemColumns+` FROM items ORDER BY created_at`)
}

func (s *Store) queryItems(ctx context.Context, q string, args ...any) ([]*model.WorkItem, error) {
	var out []*model.WorkItem
	err := s.query(ctx, func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx, q, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			it, err := scanItem(rows)
			if err != nil {
				return err
			}
			out = append(out, it)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.DatabaseError, fmt.Sprintf("query %q", q), err)
	}
	return out, nil
}
