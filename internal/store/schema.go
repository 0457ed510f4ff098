package store

import "context"

// schema creates the four entity tables and their indexes (§6 "Persisted
// state layout"). Mirrors the beads family's embedded-SQL-string style.
const schema = `
CREATE TABLE IF NOT EXISTS items (
    id              TEXT PRIMARY KEY,
    parent_id       TEXT REFERENCES items(id),
    depth           INTEGER NOT NULL,
    title           TEXT NOT NULL,
    description     TEXT NOT NULL DEFAULT '',
    tags            TEXT NOT NULL DEFAULT '',
    priority        TEXT NOT NULL DEFAULT 'medium',
    status          TEXT NOT NULL,
    role            TEXT NOT NULL,
    previous_role   TEXT NOT NULL DEFAULT '',
    role_changed_at DATETIME NOT NULL,
    created_at      DATETIME NOT NULL,
    modified_at     DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_items_parent_id ON items(parent_id);
CREATE INDEX IF NOT EXISTS idx_items_status ON items(status);
CREATE INDEX IF NOT EXISTS idx_items_role ON items(role);

CREATE TABLE IF NOT EXISTS notes (
    item_id     TEXT NOT NULL REFERENCES items(id) ON DELETE CASCADE,
    key         TEXT NOT NULL,
    phase       TEXT NOT NULL,
    body        TEXT NOT NULL DEFAULT '',
    created_at  DATETIME NOT NULL,
    modified_at DATETIME NOT NULL,
    PRIMARY KEY (item_id, key)
);

CREATE INDEX IF NOT EXISTS idx_notes_item_id ON notes(item_id);

CREATE TABLE IF NOT EXISTS dependencies (
    id         TEXT PRIMARY KEY,
    from_id    TEXT NOT NULL REFERENCES items(id) ON DELETE CASCADE,
    to_id      TEXT NOT NULL REFERENCES items(id) ON DELETE CASCADE,
    type       TEXT NOT NULL,
    created_at DATETIME NOT NULL,
    UNIQUE (from_id, to_id, type)
);

CREATE INDEX IF NOT EXISTS idx_dependencies_from_id ON dependencies(from_id);
CREATE INDEX IF NOT EXISTS idx_dependencies_to_id ON dependencies(to_id);

CREATE TABLE IF NOT EXISTS role_transitions (
    id          TEXT PRIMARY KEY,
    item_id     TEXT NOT NULL REFERENCES items(id) ON DELETE CASCADE,
    from_role   TEXT NOT NULL,
    to_role     TEXT NOT NULL,
    from_status TEXT NOT NULL,
    to_status   TEXT NOT NULL,
    trigger     TEXT NOT NULL,
    applied_at  DATETIME NOT NULL,
    actor       TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_role_transitions_item_id ON role_transitions(item_id);
`

// migrate applies the schema. Statements are idempotent
// (CREATE TABLE/INDEX IF NOT EXISTS), so this also serves as the
// startup migration step for an existing database file.
func (s *Store) migrate(ctx context.Context) error {
	_, err := s.write.ExecContext(ctx, "PRAGMA foreign_keys = ON")
	if err != nil {
		return err
	}
	_, err = s.write.ExecContext(ctx, schema)
	return err
}
