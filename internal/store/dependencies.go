package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/workitem-mcp/workitem-mcp/internal/apperr"
	"github.com/workitem-mcp/workitem-mcp/internal/model"
)

const depColumns = `id, from_id, to_id, type, created_at`

func scanDependency(row interface{ Scan(dest ...any) error }) (*model.Dependency, error) {
	var d model.Dependency
	var typ string
	if err := row.Scan(&d.ID, &d.FromID, &d.ToID, &typ, &d.CreatedAt); err != nil {
		return nil, err
	}
	d.Type = model.DependencyType(typ)
	return &d, nil
}

// CreateDependency inserts a new dependency edge. Both endpoints must
// already exist (foreign keys enforce it); uniqueness on
// (from_id, to_id, type) is enforced by the schema.
func (s *Store) CreateDependency(ctx context.Context, d *model.Dependency) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return createDependencyTx(ctx, tx, d)
	})
}

func createDependencyTx(ctx context.Context, tx *sql.Tx, d *model.Dependency) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO dependencies (`+depColumns+`) VALUES (?, ?, ?, ?, ?)`,
		d.ID, d.FromID, d.ToID, string(d.Type), d.CreatedAt)
	if isUniqueViolation(err) {
		return apperr.Newf(apperr.ConflictError, "dependency %s -[%s]-> %s already exists", d.FromID, d.Type, d.ToID)
	}
	return err
}

// DeleteDependency removes a dependency edge by id.
func (s *Store) DeleteDependency(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM dependencies WHERE id = ?`, id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return apperr.Newf(apperr.NotFound, "dependency %q not found", id)
		}
		return nil
	})
}

// DependenciesFrom lists edges whose from_id matches id.
func (s *Store) DependenciesFrom(ctx context.Context, id string) ([]*model.Dependency, error) {
	return s.queryDeps(ctx, `SELECT `+depColumns+` FROM dependencies WHERE from_id = ?`, id)
}

// DependenciesTo lists edges whose to_id matches id.
func (s *Store) DependenciesTo(ctx context.Context, id string) ([]*model.Dependency, error) {
	return s.queryDeps(ctx, `SELECT `+depColumns+` FROM dependencies WHERE to_id = ?`, id)
}

// AllDependencies lists every dependency edge (used by cycle detection
// and dependencyChain traversal).
func (s *Store) AllDependencies(ctx context.Context) ([]*model.Dependency, error) {
	return s.queryDeps(ctx, `SELECT `+depColumns+` FROM dependencies`)
}

func (s *Store) queryDeps(ctx context.Context, q string, args ...any) ([]*model.Dependency, error) {
	var out []*model.Dependency
	err := s.query(ctx, func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx, q, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			d, err := scanDependency(rows)
			if err != nil {
				return err
			}
			out = append(out, d)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.DatabaseError, "listing dependencies", err)
	}
	return out, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint") || strings.Contains(msg, "SQLITE_CONSTRAINT")
}
