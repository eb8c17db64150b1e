// Package search implements ranked full-text search over the SQLite
// FTS5 index, plus the similarity family used for related-note
// discovery: TF-IDF cosine similarity, tag Jaccard overlap, and 2-hop
// graph neighborhood scoring.
package search

import (
	"strings"
	"time"

	"github.com/mwaldstein/qipu-sub000/internal/index"
	"github.com/mwaldstein/qipu-sub000/internal/qerrors"
)

// Result is one ranked search hit. Via is set when the hit was
// resolved to its compaction digest; Relevance is higher-is-better.
type Result struct {
	ID        string
	Title     string
	Type      string
	Path      string
	Tags      []string
	Value     uint8
	Relevance float64
	Via       string
}

// Options narrows a search by type/tag/since in addition to the
// free-text query, and bounds how many ranked hits come back.
type Options struct {
	Type  string
	Tag   string
	Since *time.Time
	Limit int
}

const defaultLimit = 20

// Search runs query against the FTS5 index, boosting title and tag
// matches over body matches and adding a small recency bonus, then
// returns the top-ranked notes.
//
// The ranking query unions three differently-boosted FTS5 matches
// against the same table (title, tags, body) so a note that only
// matches in its tags still surfaces, then deduplicates by keeping
// each note's best-ranked row. bm25() returns a more-negative score
// for a better match, so it is negated before the boosts are added
// (not multiplied) and the final ORDER BY is descending, ties broken
// by id ascending.
//
// Type/tag narrowing uses parameterized placeholders rather than
// string-interpolating the filter into the query text.
func Search(db *index.Database, query string, opts Options) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, qerrors.Otherf("search query must not be empty")
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	phrase := quotePhrase(query)
	var filterClauses []string
	var filterArgs []any
	if opts.Type != "" {
		filterClauses = append(filterClauses, "n.type = ?")
		filterArgs = append(filterArgs, opts.Type)
	}
	if opts.Tag != "" {
		filterClauses = append(filterClauses, "EXISTS (SELECT 1 FROM tags t WHERE t.note_id = n.id AND t.tag = ?)")
		filterArgs = append(filterArgs, opts.Tag)
	}
	if opts.Since != nil {
		filterClauses = append(filterClauses, "n.created >= ?")
		filterArgs = append(filterArgs, opts.Since.Format(time.RFC3339))
	}
	filterSQL := ""
	if len(filterClauses) > 0 {
		filterSQL = " AND " + strings.Join(filterClauses, " AND ")
	}

	const recencyExpr = `0.1 / (1.0 + COALESCE((julianday('now') - julianday(COALESCE(n.updated, n.created))), 0.0) / 7.0)`

	sqlQuery := `
WITH ranked_results AS (
	SELECT f.id AS rowid, -bm25(notes_fts, 1.0, 1.0, 1.0) + 5.0 + ` + recencyExpr + ` AS rank
	FROM notes_fts f JOIN notes n ON n.id = f.id
	WHERE notes_fts MATCH 'title:' || ?` + filterSQL + `
	UNION ALL
	SELECT f.id AS rowid, -bm25(notes_fts, 1.0, 1.0, 1.0) + 8.0 + ` + recencyExpr + ` AS rank
	FROM notes_fts f JOIN notes n ON n.id = f.id
	WHERE notes_fts MATCH 'tags:' || ?` + filterSQL + `
	UNION ALL
	SELECT f.id AS rowid, -bm25(notes_fts, 1.0, 1.0, 1.0) + 0.0 + ` + recencyExpr + ` AS rank
	FROM notes_fts f JOIN notes n ON n.id = f.id
	WHERE notes_fts MATCH ?` + filterSQL + `
)
SELECT rowid, MAX(rank) AS rank FROM ranked_results GROUP BY rowid ORDER BY rank DESC, rowid ASC LIMIT ?`

	args := make([]any, 0, 3*(1+len(filterArgs))+1)
	args = append(args, phrase)
	args = append(args, filterArgs...)
	args = append(args, phrase)
	args = append(args, filterArgs...)
	args = append(args, phrase)
	args = append(args, filterArgs...)
	args = append(args, limit)

	rows, err := db.UnderlyingDB().Query(sqlQuery, args...)
	if err != nil {
		return nil, qerrors.DatabaseErr("search", err)
	}
	defer rows.Close()

	var out []Result
	for rows.Next() {
		var id string
		var rank float64
		if err := rows.Scan(&id, &rank); err != nil {
			return nil, qerrors.DatabaseErr("scan search row", err)
		}
		meta, err := db.GetNoteMetadata(id)
		if err != nil {
			if qe, ok := err.(*qerrors.Error); ok && qe.Kind == qerrors.NotFound {
				continue
			}
			return nil, err
		}
		out = append(out, Result{
			ID:        meta.ID,
			Title:     meta.Title,
			Type:      meta.Type,
			Path:      meta.Path,
			Tags:      meta.Tags,
			Value:     meta.Value,
			Relevance: rank,
		})
	}
	return out, nil
}

// quotePhrase wraps a user query as an FTS5 phrase, doubling internal
// quotes, so characters FTS5 treats specially (notably hyphens, which
// it otherwise reads as column-filter syntax) are matched literally.
func quotePhrase(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
