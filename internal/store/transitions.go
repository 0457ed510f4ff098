package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/workitem-mcp/workitem-mcp/internal/apperr"
	"github.com/workitem-mcp/workitem-mcp/internal/model"
)

const transitionColumns = `id, item_id, from_role, to_role, from_status, to_status, trigger, applied_at, actor`

func scanTransition(row interface{ Scan(dest ...any) error }) (*model.RoleTransition, error) {
	var t model.RoleTransition
	var fromRole, toRole string
	if err := row.Scan(&t.ID, &t.ItemID, &fromRole, &toRole, &t.FromStatus, &t.ToStatus, &t.Trigger, &t.AppliedAt, &t.Actor); err != nil {
		return nil, err
	}
	t.FromRole, t.ToRole = model.Role(fromRole), model.Role(toRole)
	return &t, nil
}

// insertTransitionTx appends a role-transition row within an existing
// transaction (it is always written alongside the item update it
// records, §3 "never mutated").
func insertTransitionTx(ctx context.Context, tx *sql.Tx, t *model.RoleTransition) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO role_transitions (`+transitionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.ItemID, string(t.FromRole), string(t.ToRole), t.FromStatus, t.ToStatus, t.Trigger, t.AppliedAt, t.Actor)
	return err
}

// TransitionsByItem lists an item's transition log, most recent first.
func (s *Store) TransitionsByItem(ctx context.Context, itemID string) ([]*model.RoleTransition, error) {
	var out []*model.RoleTransition
	err := s.query(ctx, func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx, `SELECT `+transitionColumns+` FROM role_transitions WHERE item_id = ? ORDER BY applied_at DESC`, itemID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			t, err := scanTransition(rows)
			if err != nil {
				return err
			}
			out = append(out, t)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.DatabaseError, "listing role transitions", err)
	}
	return out, nil
}

// TransitionsSince lists every transition applied at or after since,
// most recent first (§4.5 get_context session mode).
func (s *Store) TransitionsSince(ctx context.Context, since time.Time) ([]*model.RoleTransition, error) {
	var out []*model.RoleTransition
	err := s.query(ctx, func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx, `SELECT `+transitionColumns+` FROM role_transitions WHERE applied_at >= ? ORDER BY applied_at DESC`, since)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			t, err := scanTransition(rows)
			if err != nil {
				return err
			}
			out = append(out, t)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.DatabaseError, "listing recent role transitions", err)
	}
	return out, nil
}
