// Package store is the transactional persistence layer (§4.1): items,
// notes, dependencies, and the role-transition log, backed by an
// embedded SQLite database opened in WAL mode via ncruces/go-sqlite3
// (a pure-Go driver — no cgo).
//
// Two *sql.DB handles are kept: a single-connection write handle (the
// "single-writer discipline" of §4.1/§5) and a multi-connection read
// handle, so readers never block behind a writer holding the WAL lock.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/cenkalti/backoff/v4"

	"github.com/workitem-mcp/workitem-mcp/internal/apperr"
)

// writeRetryBudget bounds how long a writer waits to acquire the write
// path before the caller sees ConcurrencyExhausted (§4.1, §5: "≈5 seconds").
const writeRetryBudget = 5 * time.Second

// Store owns the database connections and exposes the item, note,
// dependency and transition operations as methods on *Store.
type Store struct {
	write *sql.DB
	read  *sql.DB
}

// Open opens (creating if absent) the SQLite database at path and runs
// the schema migration. maxReadConns bounds the read-connection pool.
func Open(ctx context.Context, path string, maxReadConns int) (*Store, error) {
	writeDSN := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate", path)
	readDSN := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&mode=ro", path)

	write, err := sql.Open("sqlite3", writeDSN)
	if err != nil {
		return nil, fmt.Errorf("opening write handle: %w", err)
	}
	write.SetMaxOpenConns(1) // single-writer discipline

	read, err := sql.Open("sqlite3", readDSN)
	if err != nil {
		write.Close()
		return nil, fmt.Errorf("opening read handle: %w", err)
	}
	if maxReadConns <= 0 {
		maxReadConns = 10
	}
	read.SetMaxOpenConns(maxReadConns)

	s := &Store{write: write, read: read}
	if err := s.migrate(ctx); err != nil {
		write.Close()
		read.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	return s, nil
}

// Close releases both database handles.
func (s *Store) Close() error {
	werr := s.write.Close()
	rerr := s.read.Close()
	if werr != nil {
		return werr
	}
	return rerr
}

// withTx runs fn inside a write transaction, retrying transparently on
// SQLITE_BUSY for up to writeRetryBudget before giving up (§4.1, §7). All
// statements in fn either all commit or all roll back.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	err := s.runTx(ctx, fn)
	if err != nil && isBusy(err) {
		return apperr.Wrap(apperr.ConcurrencyExhausted,
			"could not acquire the write path within the retry window", err)
	}
	return err
}

func (s *Store) runTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	b := backoff.WithContext(backoff.WithMaxElapsedTime(backoff.NewExponentialBackOff(), writeRetryBudget), ctx)

	return backoff.Retry(func() error {
		tx, err := s.write.BeginTx(ctx, nil)
		if err != nil {
			if isBusy(err) {
				return err // retryable
			}
			return backoff.Permanent(err)
		}

		if err := fn(tx); err != nil {
			_ = tx.Rollback()
			if isBusy(err) {
				return err // retryable
			}
			return backoff.Permanent(err)
		}

		if err := tx.Commit(); err != nil {
			if isBusy(err) {
				return err // retryable
			}
			return backoff.Permanent(err)
		}
		return nil
	}, b)
}

// query runs fn against the read handle; readers never block behind a
// writer (§4.1: "last committed snapshot, never partial state") because
// WAL mode gives readers a consistent snapshot independent of writers.
func (s *Store) query(ctx context.Context, fn func(db *sql.DB) error) error {
	return fn(s.read)
}

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	// ncruces/go-sqlite3 wraps SQLITE_BUSY/SQLITE_LOCKED in an error whose
	// message carries the SQLite result code text; matching on that text
	// avoids a hard dependency on the driver's internal error type.
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "SQLITE_LOCKED") || strings.Contains(msg, "database is locked")
}
