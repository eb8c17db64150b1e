package index

import (
	"database/sql"
	"sort"
	"time"

	"github.com/mwaldstein/qipu-sub000/internal/qerrors"
)

// GetNoteMetadata returns the DB-cached fields for one note, without
// re-parsing its file. Full Note reconstruction (with links, compacts,
// custom fields) lives in internal/store, which re-parses the file at
// the path this returns.
func (d *Database) GetNoteMetadata(id string) (*NoteMetadata, error) {
	row := d.db.QueryRow(`SELECT id, title, type, path, created, updated, value FROM notes WHERE id = ?`, id)
	meta, err := scanNoteMetadata(row)
	if err == sql.ErrNoRows {
		return nil, qerrors.NotFoundf("note %s not found", id)
	}
	if err != nil {
		return nil, qerrors.DatabaseErr("get note metadata", err)
	}
	tags, err := d.tagsFor(id)
	if err != nil {
		return nil, err
	}
	meta.Tags = tags
	return meta, nil
}

// GetNotePath resolves a note id to its file path, the fast O(1) path
// LoadByIDOrPath prefers before falling back to a directory scan.
func (d *Database) GetNotePath(id string) (string, bool, error) {
	var path string
	err := d.db.QueryRow(`SELECT path FROM notes WHERE id = ?`, id).Scan(&path)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, qerrors.DatabaseErr("get note path", err)
	}
	return path, true, nil
}

func scanNoteMetadata(row *sql.Row) (*NoteMetadata, error) {
	var m NoteMetadata
	var created, updated sql.NullString
	var value int
	if err := row.Scan(&m.ID, &m.Title, &m.Type, &m.Path, &created, &updated, &value); err != nil {
		return nil, err
	}
	m.Value = uint8(value)
	if created.Valid {
		if t, err := time.Parse(timeLayout, created.String); err == nil {
			m.Created = &t
		}
	}
	if updated.Valid {
		if t, err := time.Parse(timeLayout, updated.String); err == nil {
			m.Updated = &t
		}
	}
	return &m, nil
}

// ListNoteFilter narrows ListNotes to the SQL-pushable predicates; the
// richer conjunctive filter chain (min_value, custom expressions,
// hide_compacted) lives in internal/filter and internal/store, which
// apply it to file-parsed notes ListNotes here hands back.
type ListNoteFilter struct {
	Type  string
	Tag   string
	Since *time.Time
}

// ListNotes returns metadata for every note matching the SQL-pushable
// subset of a filter (type, tag, since). Callers needing the full
// conjunctive filter (min_value, custom, hide_compacted) narrow further
// themselves.
func (d *Database) ListNotes(f ListNoteFilter) ([]*NoteMetadata, error) {
	query := `SELECT DISTINCT n.id, n.title, n.type, n.path, n.created, n.updated, n.value
		FROM notes n`
	var args []any
	var where []string

	if f.Tag != "" {
		query += ` JOIN tags t ON t.note_id = n.id`
		where = append(where, "t.tag = ?")
		args = append(args, f.Tag)
	}
	if f.Type != "" {
		where = append(where, "n.type = ?")
		args = append(args, f.Type)
	}
	if f.Since != nil {
		where = append(where, "n.created >= ?")
		args = append(args, f.Since.Format(timeLayout))
	}
	if len(where) > 0 {
		query += " WHERE " + joinAnd(where)
	}
	query += " ORDER BY n.id"

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, qerrors.DatabaseErr("list notes", err)
	}
	defer rows.Close()

	var out []*NoteMetadata
	for rows.Next() {
		var m NoteMetadata
		var created, updated sql.NullString
		var value int
		if err := rows.Scan(&m.ID, &m.Title, &m.Type, &m.Path, &created, &updated, &value); err != nil {
			return nil, qerrors.DatabaseErr("scan note row", err)
		}
		m.Value = uint8(value)
		if created.Valid {
			if t, err := time.Parse(timeLayout, created.String); err == nil {
				m.Created = &t
			}
		}
		if updated.Valid {
			if t, err := time.Parse(timeLayout, updated.String); err == nil {
				m.Updated = &t
			}
		}
		out = append(out, &m)
	}
	for _, m := range out {
		tags, err := d.tagsFor(m.ID)
		if err != nil {
			return nil, err
		}
		m.Tags = tags
	}
	return out, nil
}

func joinAnd(clauses []string) string {
	out := clauses[0]
	for _, c := range clauses[1:] {
		out += " AND " + c
	}
	return out
}

// ListNoteIDs returns every note id in the index.
func (d *Database) ListNoteIDs() ([]string, error) {
	rows, err := d.db.Query(`SELECT id FROM notes ORDER BY id`)
	if err != nil {
		return nil, qerrors.DatabaseErr("list note ids", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, qerrors.DatabaseErr("scan id", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// TagFrequency is one entry of GetTagFrequencies, sorted by count desc
// then tag asc for determinism.
type TagFrequency struct {
	Tag   string
	Count int
}

func (d *Database) GetTagFrequencies() ([]TagFrequency, error) {
	rows, err := d.db.Query(`SELECT tag, COUNT(*) c FROM tags GROUP BY tag`)
	if err != nil {
		return nil, qerrors.DatabaseErr("tag frequencies", err)
	}
	defer rows.Close()
	var out []TagFrequency
	for rows.Next() {
		var tf TagFrequency
		if err := rows.Scan(&tf.Tag, &tf.Count); err != nil {
			return nil, qerrors.DatabaseErr("scan tag frequency", err)
		}
		out = append(out, tf)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Tag < out[j].Tag
	})
	return out, nil
}

// GetOutboundEdges returns id's out-edges sorted by (link_type, target)
// for deterministic traversal fanout.
func (d *Database) GetOutboundEdges(id string) ([]Edge, error) {
	return d.queryEdges(`SELECT source_id, target_id, link_type, inline, position FROM edges
		WHERE source_id = ? ORDER BY link_type, target_id`, id)
}

// GetInboundEdges returns edges targeting id, sorted the same way.
func (d *Database) GetInboundEdges(id string) ([]Edge, error) {
	return d.queryEdges(`SELECT source_id, target_id, link_type, inline, position FROM edges
		WHERE target_id = ? ORDER BY link_type, source_id`, id)
}

// GetAllTypedEdges returns every non-inline (frontmatter-declared) edge,
// sorted by (source, link_type, target).
func (d *Database) GetAllTypedEdges() ([]Edge, error) {
	return d.queryEdges(`SELECT source_id, target_id, link_type, inline, position FROM edges
		WHERE inline = 0 ORDER BY source_id, link_type, target_id`)
}

// GetAllEdges returns every edge, typed and inline alike.
func (d *Database) GetAllEdges() ([]Edge, error) {
	return d.queryEdges(`SELECT source_id, target_id, link_type, inline, position FROM edges
		ORDER BY source_id, link_type, target_id`)
}

func (d *Database) queryEdges(query string, args ...any) ([]Edge, error) {
	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, qerrors.DatabaseErr("query edges", err)
	}
	defer rows.Close()
	var out []Edge
	for rows.Next() {
		var e Edge
		var inline int
		if err := rows.Scan(&e.Source, &e.Target, &e.LinkType, &inline, &e.Position); err != nil {
			return nil, qerrors.DatabaseErr("scan edge", err)
		}
		e.Inline = inline != 0
		out = append(out, e)
	}
	return out, nil
}

// GetDuplicateIDs finds ids doctor should never see: the schema's
// primary key already forbids this, so it always returns empty unless a
// caller bypassed the normal upsert path (e.g. a hand-edited db). Kept
// as an explicit query so doctor's invariant check has a single place
// to call rather than special-casing "can't happen".
func (d *Database) GetDuplicateIDs() ([]string, error) {
	rows, err := d.db.Query(`SELECT id FROM notes GROUP BY id HAVING COUNT(*) > 1`)
	if err != nil {
		return nil, qerrors.DatabaseErr("duplicate ids", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, qerrors.DatabaseErr("scan duplicate id", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// GetMissingFiles returns notes whose indexed path no longer exists on
// disk, using a caller-supplied existence check so the index package
// doesn't itself decide what "the filesystem" means (tests can fake it).
func (d *Database) GetMissingFiles(exists func(path string) bool) ([]NoteMetadata, error) {
	rows, err := d.db.Query(`SELECT id, title, type, path, created, updated, value FROM notes`)
	if err != nil {
		return nil, qerrors.DatabaseErr("missing files scan", err)
	}
	defer rows.Close()
	var out []NoteMetadata
	for rows.Next() {
		var m NoteMetadata
		var created, updated sql.NullString
		var value int
		if err := rows.Scan(&m.ID, &m.Title, &m.Type, &m.Path, &created, &updated, &value); err != nil {
			return nil, qerrors.DatabaseErr("scan row", err)
		}
		m.Value = uint8(value)
		if !exists(m.Path) {
			out = append(out, m)
		}
	}
	return out, nil
}

// BrokenLink is an edge whose target id isn't a known note.
type BrokenLink struct {
	Edge
}

// GetBrokenLinks returns typed and inline edges whose target doesn't
// resolve to a note row, plus every unresolved body-link reference.
func (d *Database) GetBrokenLinks() ([]BrokenLink, error) {
	rows, err := d.db.Query(`
		SELECT e.source_id, e.target_id, e.link_type, e.inline, e.position
		FROM edges e
		LEFT JOIN notes n ON n.id = e.target_id
		WHERE n.id IS NULL
		ORDER BY e.source_id, e.link_type, e.target_id
	`)
	if err != nil {
		return nil, qerrors.DatabaseErr("broken links", err)
	}
	defer rows.Close()
	var out []BrokenLink
	for rows.Next() {
		var e Edge
		var inline int
		if err := rows.Scan(&e.Source, &e.Target, &e.LinkType, &inline, &e.Position); err != nil {
			return nil, qerrors.DatabaseErr("scan broken link", err)
		}
		e.Inline = inline != 0
		out = append(out, BrokenLink{Edge: e})
	}

	unresolvedRows, err := d.db.Query(`SELECT source_id, target_ref FROM unresolved ORDER BY source_id, target_ref`)
	if err != nil {
		return nil, qerrors.DatabaseErr("unresolved refs", err)
	}
	defer unresolvedRows.Close()
	for unresolvedRows.Next() {
		var source, ref string
		if err := unresolvedRows.Scan(&source, &ref); err != nil {
			return nil, qerrors.DatabaseErr("scan unresolved", err)
		}
		out = append(out, BrokenLink{Edge: Edge{Source: source, Target: ref, LinkType: "related", Inline: true}})
	}
	return out, nil
}

// GetOrphanedNotes returns notes with no inbound and no outbound edges
// of any kind.
func (d *Database) GetOrphanedNotes() ([]string, error) {
	rows, err := d.db.Query(`
		SELECT n.id FROM notes n
		WHERE NOT EXISTS (SELECT 1 FROM edges e WHERE e.source_id = n.id)
		  AND NOT EXISTS (SELECT 1 FROM edges e WHERE e.target_id = n.id)
		ORDER BY n.id
	`)
	if err != nil {
		return nil, qerrors.DatabaseErr("orphaned notes", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, qerrors.DatabaseErr("scan orphan", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ConsistencyCheck samples up to k notes and verifies db.mtime matches
// the file's current mtime. A single mismatch means repair is needed.
func (d *Database) ConsistencyCheck(k int) (bool, error) {
	rows, err := d.db.Query(`SELECT path, mtime FROM notes ORDER BY RANDOM() LIMIT ?`, k)
	if err != nil {
		return false, qerrors.DatabaseErr("consistency sample", err)
	}
	defer rows.Close()
	for rows.Next() {
		var path string
		var mtime int64
		if err := rows.Scan(&path, &mtime); err != nil {
			return false, qerrors.DatabaseErr("scan sample", err)
		}
		if mtimeOf(path) != mtime {
			return false, nil
		}
	}
	return true, nil
}
