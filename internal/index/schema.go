package index

import (
	"database/sql"
	"fmt"
)

// schemaVersion is bumped whenever a change requires a full rebuild
// rather than an additive migration. DDL lives here; additive
// non-destructive changes live in the migration list in migrations.go.
const schemaVersion = 1

const createSchemaSQL = `
CREATE TABLE IF NOT EXISTS notes (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	type TEXT NOT NULL DEFAULT 'fleeting',
	path TEXT NOT NULL,
	created TEXT,
	updated TEXT,
	body TEXT NOT NULL DEFAULT '',
	value INTEGER NOT NULL DEFAULT 50,
	mtime INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS tags (
	note_id TEXT NOT NULL REFERENCES notes(id) ON DELETE CASCADE,
	tag TEXT NOT NULL,
	UNIQUE(note_id, tag)
);
CREATE INDEX IF NOT EXISTS idx_tags_tag ON tags(tag);

CREATE TABLE IF NOT EXISTS edges (
	source_id TEXT NOT NULL,
	target_id TEXT NOT NULL,
	link_type TEXT NOT NULL,
	inline INTEGER NOT NULL DEFAULT 0,
	position INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(source_id);
CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(target_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_edges_dedup ON edges(source_id, target_id, link_type, inline);

CREATE TABLE IF NOT EXISTS unresolved (
	source_id TEXT NOT NULL,
	target_ref TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_unresolved_source ON unresolved(source_id);

CREATE VIRTUAL TABLE IF NOT EXISTS notes_fts USING fts5(
	id UNINDEXED,
	title,
	body,
	tags
);

CREATE TABLE IF NOT EXISTS index_meta (
	key TEXT PRIMARY KEY,
	value TEXT
);
`

func createSchema(db *sql.DB) error {
	if _, err := db.Exec(createSchemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func getMeta(db *sql.DB, key string) (string, bool, error) {
	var v string
	err := db.QueryRow(`SELECT value FROM index_meta WHERE key = ?`, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func setMeta(db *sql.DB, key, value string) error {
	_, err := db.Exec(`INSERT INTO index_meta(key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}
