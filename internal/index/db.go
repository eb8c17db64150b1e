// Package index implements qipu's derived SQLite index: schema, the
// open/rebuild/repair protocol, edge extraction, and the primitive
// queries every higher layer (graph, search, doctor) is built from.
package index

import (
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/mwaldstein/qipu-sub000/internal/noteparse"
	"github.com/mwaldstein/qipu-sub000/internal/qerrors"
	"github.com/mwaldstein/qipu-sub000/internal/qlog"
	"github.com/mwaldstein/qipu-sub000/internal/storeconfig"
)

// NoteDirs are the two directories a store's note files live under.
var NoteDirs = []string{"notes", "mocs"}

// NoteMetadata is the subset of a note's fields the database can answer
// queries about without re-parsing the file.
type NoteMetadata struct {
	ID      string
	Title   string
	Type    string
	Path    string
	Created *time.Time
	Updated *time.Time
	Value   uint8
	Tags    []string
}

// Edge is one row of the edges table.
type Edge struct {
	Source   string
	Target   string
	LinkType string
	Inline   bool
	Position int
}

// Database wraps the store's SQLite connection.
type Database struct {
	db   *sql.DB
	root string
	cfg  *storeconfig.Config
	lock *flock.Flock
}

// DBFileName is the SQLite file's name under a store root.
const DBFileName = "qipu.db"

// Open opens (creating if absent) the store's database, running the
// open protocol: WAL + foreign keys, schema creation, migrations, then
// a rebuild if the schema version is stale or the database is empty
// while the filesystem has notes.
func Open(root string, cfg *storeconfig.Config) (*Database, error) {
	dbPath := filepath.Join(root, DBFileName)
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, qerrors.DatabaseErr("open", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, qerrors.DatabaseErr("pragma", err)
		}
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, qerrors.DatabaseErr("create schema", err)
	}
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, qerrors.DatabaseErr("migrate", err)
	}

	idx := &Database{
		db:   db,
		root: root,
		cfg:  cfg,
		lock: flock.New(filepath.Join(root, DBFileName+".lock")),
	}

	needsRebuild, err := idx.checkNeedsRebuild()
	if err != nil {
		db.Close()
		return nil, err
	}
	if needsRebuild {
		if err := idx.Rebuild(); err != nil {
			db.Close()
			return nil, err
		}
	}

	return idx, nil
}

func (d *Database) checkNeedsRebuild() (bool, error) {
	verStr, ok, err := getMeta(d.db, "schema_version")
	if err != nil {
		return false, qerrors.DatabaseErr("read schema_version", err)
	}
	if !ok || verStr != fmt.Sprintf("%d", schemaVersion) {
		return true, nil
	}

	var count int
	if err := d.db.QueryRow(`SELECT COUNT(*) FROM notes`).Scan(&count); err != nil {
		return false, qerrors.DatabaseErr("count notes", err)
	}
	if count > 0 {
		return false, nil
	}

	files, err := d.walkNoteFiles()
	if err != nil {
		return false, err
	}
	return len(files) > 0, nil
}

// Close releases the underlying SQLite connection.
func (d *Database) Close() error {
	return d.db.Close()
}

// UnderlyingDB exposes the raw *sql.DB for packages (search) that need
// to run their own specialized SQL (FTS5 MATCH queries) without the
// index package growing one method per caller need.
func (d *Database) UnderlyingDB() *sql.DB { return d.db }

// Config returns the store config this database was opened with.
func (d *Database) Config() *storeconfig.Config { return d.cfg }

func (d *Database) withLock(fn func() error) error {
	if err := d.lock.Lock(); err != nil {
		return qerrors.DatabaseErr("acquire lock", err)
	}
	defer d.lock.Unlock()
	return fn()
}

type fileRecord struct {
	path  string
	mtime time.Time
}

func (d *Database) walkNoteFiles() ([]fileRecord, error) {
	var out []fileRecord
	for _, dir := range NoteDirs {
		base := filepath.Join(d.root, dir)
		err := filepath.WalkDir(base, func(path string, de fs.DirEntry, err error) error {
			if err != nil {
				if os.IsNotExist(err) && path == base {
					return nil
				}
				return err
			}
			if de.IsDir() || !strings.HasSuffix(path, ".md") {
				return nil
			}
			info, err := de.Info()
			if err != nil {
				return err
			}
			out = append(out, fileRecord{path: path, mtime: info.ModTime()})
			return nil
		})
		if err != nil && !os.IsNotExist(err) {
			return nil, qerrors.IoErr(base, err)
		}
	}
	return out, nil
}

// Rebuild drops every derived row and repopulates notes, tags, edges,
// unresolved refs, the FTS index, and aggregate corpus statistics from
// the filesystem.
func (d *Database) Rebuild() error {
	return d.withLock(func() error {
		files, err := d.walkNoteFiles()
		if err != nil {
			return err
		}

		notes := make([]*noteparse.Note, 0, len(files))
		for _, f := range files {
			content, err := os.ReadFile(f.path)
			if err != nil {
				qlog.L().Warn().Str("path", f.path).Err(err).Msg("skipping unreadable note during rebuild")
				continue
			}
			n, err := noteparse.Parse(f.path, content)
			if err != nil {
				qlog.L().Warn().Str("path", f.path).Err(err).Msg("skipping unparseable note during rebuild")
				continue
			}
			n.Path = f.path
			notes = append(notes, n)
		}

		tx, err := d.db.Begin()
		if err != nil {
			return qerrors.DatabaseErr("begin rebuild", err)
		}
		defer tx.Rollback()

		for _, stmt := range []string{
			"DELETE FROM notes", "DELETE FROM tags", "DELETE FROM edges",
			"DELETE FROM unresolved", "DELETE FROM notes_fts",
		} {
			if _, err := tx.Exec(stmt); err != nil {
				return qerrors.DatabaseErr("clear tables", err)
			}
		}

		pathIndex := buildPathIndex(notes, d.root)
		for _, n := range notes {
			mtime := mtimeOf(n.Path)
			if err := upsertNoteTx(tx, n, mtime); err != nil {
				return err
			}
			if err := extractEdgesTx(tx, n, pathIndex, d.root, d.cfg); err != nil {
				return err
			}
		}

		if err := recomputeStatsTx(tx, notes); err != nil {
			return err
		}

		if err := setMetaTx(tx, "schema_version", fmt.Sprintf("%d", schemaVersion)); err != nil {
			return err
		}
		if err := setMetaTx(tx, "last_sync", time.Now().UTC().Format(time.RFC3339)); err != nil {
			return err
		}

		if err := tx.Commit(); err != nil {
			return qerrors.DatabaseErr("commit rebuild", err)
		}
		return nil
	})
}

// IncrementalRepair reconciles the database against the filesystem:
// deletes rows whose file vanished, re-parses files whose mtime changed,
// inserts new files, and recomputes aggregate stats only if anything
// changed.
func (d *Database) IncrementalRepair() error {
	return d.withLock(func() error {
		files, err := d.walkNoteFiles()
		if err != nil {
			return err
		}
		onDisk := make(map[string]fileRecord, len(files))
		for _, f := range files {
			onDisk[f.path] = f
		}

		rows, err := d.db.Query(`SELECT id, path, mtime FROM notes`)
		if err != nil {
			return qerrors.DatabaseErr("scan notes", err)
		}
		type dbRow struct {
			id    string
			path  string
			mtime int64
		}
		var existing []dbRow
		for rows.Next() {
			var r dbRow
			if err := rows.Scan(&r.id, &r.path, &r.mtime); err != nil {
				rows.Close()
				return qerrors.DatabaseErr("scan note row", err)
			}
			existing = append(existing, r)
		}
		rows.Close()

		changed := false
		knownPaths := map[string]bool{}
		for _, r := range existing {
			knownPaths[r.path] = true
			f, stillThere := onDisk[r.path]
			if !stillThere {
				if err := d.deleteNoteByID(r.id); err != nil {
					return err
				}
				changed = true
				continue
			}
			if f.mtime.Unix() != r.mtime {
				if err := d.reparseAndUpsert(f); err != nil {
					return err
				}
				changed = true
			}
		}

		for _, f := range files {
			if knownPaths[f.path] {
				continue
			}
			if err := d.reparseAndUpsert(f); err != nil {
				return err
			}
			changed = true
		}

		if changed {
			if err := d.recomputeStats(); err != nil {
				return err
			}
		}
		return setMeta(d.db, "last_sync", time.Now().UTC().Format(time.RFC3339))
	})
}

func (d *Database) reparseAndUpsert(f fileRecord) error {
	content, err := os.ReadFile(f.path)
	if err != nil {
		return qerrors.IoErr(f.path, err)
	}
	n, err := noteparse.Parse(f.path, content)
	if err != nil {
		qlog.L().Warn().Str("path", f.path).Err(err).Msg("skipping unparseable note during repair")
		return nil
	}
	n.Path = f.path
	return d.UpsertNote(n)
}

// UpsertNote writes a single note's row, tags, and FTS entry, and
// re-extracts its edges. Used by Store.SaveNote after a note file is
// written.
func (d *Database) UpsertNote(n *noteparse.Note) error {
	return d.withLock(func() error {
		tx, err := d.db.Begin()
		if err != nil {
			return qerrors.DatabaseErr("begin upsert", err)
		}
		defer tx.Rollback()

		mtime := mtimeOf(n.Path)
		if err := upsertNoteTx(tx, n, mtime); err != nil {
			return err
		}

		allNotes, err := d.allNotesForPathIndex(tx, n)
		if err != nil {
			return err
		}
		pathIndex := buildPathIndex(allNotes, d.root)
		if err := extractEdgesTx(tx, n, pathIndex, d.root, d.cfg); err != nil {
			return err
		}

		// Bare-id references to this note recorded while it did not
		// exist yet become inline edges, as a rebuild would make them.
		if _, err := tx.Exec(`INSERT OR IGNORE INTO edges(source_id, target_id, link_type, inline, position)
			SELECT source_id, target_ref, 'related', 1, 0 FROM unresolved WHERE target_ref = ?`, n.Frontmatter.ID); err != nil {
			return qerrors.DatabaseErr("resolve pending refs", err)
		}
		if _, err := tx.Exec(`DELETE FROM unresolved WHERE target_ref = ?`, n.Frontmatter.ID); err != nil {
			return qerrors.DatabaseErr("clear resolved refs", err)
		}

		if err := tx.Commit(); err != nil {
			return qerrors.DatabaseErr("commit upsert", err)
		}
		return nil
	})
}

// allNotesForPathIndex loads enough of every note (id + path) to resolve
// relative markdown-link targets during edge extraction, without a full
// re-parse of file bodies.
func (d *Database) allNotesForPathIndex(tx *sql.Tx, extra *noteparse.Note) ([]*noteparse.Note, error) {
	rows, err := tx.Query(`SELECT id, path FROM notes`)
	if err != nil {
		return nil, qerrors.DatabaseErr("list paths", err)
	}
	defer rows.Close()

	var out []*noteparse.Note
	seen := map[string]bool{}
	for rows.Next() {
		var id, path string
		if err := rows.Scan(&id, &path); err != nil {
			return nil, qerrors.DatabaseErr("scan path row", err)
		}
		out = append(out, &noteparse.Note{Frontmatter: noteparse.Frontmatter{ID: id}, Path: path})
		seen[id] = true
	}
	if extra != nil && !seen[extra.Frontmatter.ID] {
		out = append(out, extra)
	}
	return out, nil
}

// DeleteNote removes a note's row, tags, edges, unresolved refs, and FTS
// entry.
func (d *Database) DeleteNote(id string) error {
	return d.withLock(func() error { return d.deleteNoteByID(id) })
}

func (d *Database) deleteNoteByID(id string) error {
	tx, err := d.db.Begin()
	if err != nil {
		return qerrors.DatabaseErr("begin delete", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		"DELETE FROM notes WHERE id = ?",
		"DELETE FROM tags WHERE note_id = ?",
		"DELETE FROM edges WHERE source_id = ? OR target_id = ?",
		"DELETE FROM unresolved WHERE source_id = ?",
		"DELETE FROM notes_fts WHERE id = ?",
	} {
		args := []any{id}
		if strings.Contains(stmt, "target_id") {
			args = []any{id, id}
		}
		if _, err := tx.Exec(stmt, args...); err != nil {
			return qerrors.DatabaseErr("delete note", err)
		}
	}
	return tx.Commit()
}

func mtimeOf(path string) int64 {
	if path == "" {
		return 0
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.ModTime().Unix()
}

func buildPathIndex(notes []*noteparse.Note, root string) map[string]string {
	idx := map[string]string{}
	for _, n := range notes {
		if n.Path == "" {
			continue
		}
		rel, err := filepath.Rel(root, n.Path)
		if err != nil {
			rel = n.Path
		}
		idx[filepath.ToSlash(rel)] = n.Frontmatter.ID
		idx[n.Path] = n.Frontmatter.ID
	}
	return idx
}

func setMetaTx(tx *sql.Tx, key, value string) error {
	_, err := tx.Exec(`INSERT INTO index_meta(key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return qerrors.DatabaseErr("write meta "+key, err)
	}
	return nil
}

func sortedTagCSV(tags []string) string {
	cp := append([]string(nil), tags...)
	sort.Strings(cp)
	return strings.Join(cp, ",")
}
