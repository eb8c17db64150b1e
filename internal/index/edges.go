package index

import (
	"database/sql"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/mwaldstein/qipu-sub000/internal/noteparse"
	"github.com/mwaldstein/qipu-sub000/internal/qerrors"
	"github.com/mwaldstein/qipu-sub000/internal/storeconfig"
)

// wikiLinkRe matches [[target]] or [[target|label]].
var wikiLinkRe = regexp.MustCompile(`\[\[([^\]|]+)(?:\|[^\]]+)?\]\]`)

// markdownLinkRe matches [text](target).
var markdownLinkRe = regexp.MustCompile(`\[([^\]]*)\]\(([^)]+)\)`)

func upsertNoteTx(tx *sql.Tx, n *noteparse.Note, mtime int64) error {
	var created, updated any
	if n.Frontmatter.Created != nil {
		created = n.Frontmatter.Created.Format(timeLayout)
	}
	if n.Frontmatter.Updated != nil {
		updated = n.Frontmatter.Updated.Format(timeLayout)
	}

	_, err := tx.Exec(`
		INSERT INTO notes(id, title, type, path, created, updated, body, value, mtime)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title=excluded.title, type=excluded.type, path=excluded.path,
			created=excluded.created, updated=excluded.updated,
			body=excluded.body, value=excluded.value, mtime=excluded.mtime
	`, n.Frontmatter.ID, n.Frontmatter.Title, string(n.NoteTypeOf()), n.Path,
		created, updated, n.Body, n.ValueOf(), mtime)
	if err != nil {
		return qerrors.DatabaseErr("upsert note", err)
	}

	if _, err := tx.Exec(`DELETE FROM tags WHERE note_id = ?`, n.Frontmatter.ID); err != nil {
		return qerrors.DatabaseErr("clear tags", err)
	}
	for _, tag := range n.Frontmatter.Tags {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO tags(note_id, tag) VALUES (?, ?)`, n.Frontmatter.ID, tag); err != nil {
			return qerrors.DatabaseErr("insert tag", err)
		}
	}

	if _, err := tx.Exec(`DELETE FROM notes_fts WHERE id = ?`, n.Frontmatter.ID); err != nil {
		return qerrors.DatabaseErr("clear fts", err)
	}
	_, err = tx.Exec(`INSERT INTO notes_fts(id, title, body, tags) VALUES (?, ?, ?, ?)`,
		n.Frontmatter.ID, n.Frontmatter.Title, n.Body, sortedTagCSV(n.Frontmatter.Tags))
	if err != nil {
		return qerrors.DatabaseErr("insert fts", err)
	}

	return nil
}

const timeLayout = "2006-01-02T15:04:05Z07:00"

type rawEdge struct {
	target   string
	linkType string
	inline   bool
	position int
}

// extractEdgesTx deletes the note's existing edges, emits one per
// header link, then parses the body for wiki-links and markdown links,
// resolving relative-path targets through pathIndex, and recording
// unresolved targets.
func extractEdgesTx(tx *sql.Tx, n *noteparse.Note, pathIndex map[string]string, root string, cfg *storeconfig.Config) error {
	id := n.Frontmatter.ID

	if _, err := tx.Exec(`DELETE FROM edges WHERE source_id = ?`, id); err != nil {
		return qerrors.DatabaseErr("clear edges", err)
	}
	if _, err := tx.Exec(`DELETE FROM unresolved WHERE source_id = ?`, id); err != nil {
		return qerrors.DatabaseErr("clear unresolved", err)
	}

	prefix := "qp"
	if cfg != nil && cfg.IDPrefix != "" {
		prefix = cfg.IDPrefix
	}

	knownIDs := make(map[string]bool, len(pathIndex))
	for _, noteID := range pathIndex {
		knownIDs[noteID] = true
	}
	knownIDs[id] = true

	var edges []rawEdge
	unresolved := map[string]bool{}

	for i, link := range n.Frontmatter.Links {
		edges = append(edges, rawEdge{target: link.ID, linkType: link.Type, inline: false, position: i})
	}

	for _, m := range wikiLinkRe.FindAllStringSubmatch(n.Body, -1) {
		target := strings.TrimSpace(m[1])
		if !strings.HasPrefix(target, prefix+"-") {
			continue
		}
		if knownIDs[target] {
			edges = append(edges, rawEdge{target: target, linkType: "related", inline: true})
		} else {
			unresolved[target] = true
		}
	}

	noteDir := filepath.Dir(n.Path)
	for _, m := range markdownLinkRe.FindAllStringSubmatch(n.Body, -1) {
		target := strings.TrimSpace(m[2])
		if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") || strings.HasPrefix(target, "#") {
			continue
		}
		if strings.HasPrefix(target, prefix+"-") {
			parts := strings.SplitN(target, "-", 3)
			resolvedID := target
			if len(parts) >= 2 {
				resolvedID = parts[0] + "-" + parts[1]
			}
			if knownIDs[resolvedID] {
				edges = append(edges, rawEdge{target: resolvedID, linkType: "related", inline: true})
			} else {
				unresolved[target] = true
			}
			continue
		}

		abs := target
		if noteDir != "" && !filepath.IsAbs(target) {
			abs = filepath.Join(noteDir, target)
		}
		rel, relErr := filepath.Rel(root, abs)
		resolved := ""
		if relErr == nil {
			if id2, ok := pathIndex[filepath.ToSlash(rel)]; ok {
				resolved = id2
			}
		}
		if resolved == "" {
			if id2, ok := pathIndex[abs]; ok {
				resolved = id2
			}
		}
		if resolved != "" {
			edges = append(edges, rawEdge{target: resolved, linkType: "related", inline: true})
		} else {
			unresolved[target] = true
		}
	}

	seen := map[string]bool{}
	for _, e := range edges {
		key := id + "\x00" + e.target + "\x00" + e.linkType + "\x00" + boolKey(e.inline)
		if seen[key] {
			continue
		}
		seen[key] = true
		if e.target == "" {
			continue
		}
		_, err := tx.Exec(`
			INSERT INTO edges(source_id, target_id, link_type, inline, position)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(source_id, target_id, link_type, inline) DO UPDATE SET position=excluded.position
		`, id, e.target, e.linkType, e.inline, e.position)
		if err != nil {
			return qerrors.DatabaseErr("insert edge", err)
		}
	}

	for target := range unresolved {
		if _, err := tx.Exec(`INSERT INTO unresolved(source_id, target_ref) VALUES (?, ?)`, id, target); err != nil {
			return qerrors.DatabaseErr("insert unresolved", err)
		}
	}

	return nil
}

func boolKey(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
