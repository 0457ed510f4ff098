package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/workitem-mcp/workitem-mcp/internal/apperr"
	"github.com/workitem-mcp/workitem-mcp/internal/model"
)

const noteColumns = `item_id, key, phase, body, created_at, modified_at`

func scanNote(row interface{ Scan(dest ...any) error }) (*model.Note, error) {
	var n model.Note
	var phase string
	if err := row.Scan(&n.ItemID, &n.Key, &phase, &n.Body, &n.CreatedAt, &n.ModifiedAt); err != nil {
		return nil, err
	}
	n.Phase = model.Role(phase)
	return &n, nil
}

// UpsertNote inserts or updates the (itemId, key) note (§3 invariant 6).
func (s *Store) UpsertNote(ctx context.Context, n *model.Note) error {
	if _, err := s.GetItem(ctx, n.ItemID); err != nil {
		return err
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return upsertNoteTx(ctx, tx, n)
	})
}

// upsertNoteTx is used by callers that need the upsert inside an existing
// transaction (e.g. create_work_tree's compound operation).
func upsertNoteTx(ctx context.Context, tx *sql.Tx, n *model.Note) error {
	now := time.Now()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	n.ModifiedAt = now
	_, err := tx.ExecContext(ctx, `
		INSERT INTO notes (`+noteColumns+`) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(item_id, key) DO UPDATE SET
			phase = excluded.phase,
			body = excluded.body,
			modified_at = excluded.modified_at`,
		n.ItemID, n.Key, string(n.Phase), n.Body, n.CreatedAt, n.ModifiedAt)
	return err
}

// NotesByItem lists every note on an item, ordered by key.
func (s *Store) NotesByItem(ctx context.Context, itemID string) ([]*model.Note, error) {
	var out []*model.Note
	err := s.query(ctx, func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx, `SELECT `+noteColumns+` FROM notes WHERE item_id = ? ORDER BY key`, itemID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			n, err := scanNote(rows)
			if err != nil {
				return err
			}
			out = append(out, n)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.DatabaseError, "listing notes", err)
	}
	return out, nil
}

// DeleteNote removes a single (itemID, key) note.
func (s *Store) DeleteNote(ctx context.Context, itemID, key string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM notes WHERE item_id = ? AND key = ?`, itemID, key)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return apperr.Newf(apperr.NotFound, "note %q on item %q not found", key, itemID)
		}
		return nil
	})
}
