package index

import (
	"database/sql"
	"encoding/json"
	"strconv"

	"github.com/mwaldstein/qipu-sub000/internal/noteparse"
	"github.com/mwaldstein/qipu-sub000/internal/qerrors"
	"github.com/mwaldstein/qipu-sub000/internal/tokenize"
)

// Stats is the corpus-wide aggregate statistics index_meta holds:
// document count, total token length, and per-term document frequency
// (the IDF input of TF-IDF similarity). Full-text search ranking uses
// FTS5's own bm25() statistics, not these.
type Stats struct {
	TotalDocs int
	TotalLen  int
	TermDF    map[string]int
}

func recomputeStatsTx(tx *sql.Tx, notes []*noteparse.Note) error {
	stats := computeStats(notes)
	return writeStatsTx(tx, stats)
}

func (d *Database) recomputeStats() error {
	rows, err := d.db.Query(`SELECT id, title, body FROM notes`)
	if err != nil {
		return qerrors.DatabaseErr("list for stats", err)
	}
	defer rows.Close()

	var notes []*noteparse.Note
	for rows.Next() {
		var id, title, body string
		if err := rows.Scan(&id, &title, &body); err != nil {
			return qerrors.DatabaseErr("scan stats row", err)
		}
		tagRows, err := d.db.Query(`SELECT tag FROM tags WHERE note_id = ?`, id)
		if err != nil {
			return qerrors.DatabaseErr("list tags for stats", err)
		}
		var tags []string
		for tagRows.Next() {
			var t string
			if err := tagRows.Scan(&t); err == nil {
				tags = append(tags, t)
			}
		}
		tagRows.Close()

		notes = append(notes, &noteparse.Note{
			Frontmatter: noteparse.Frontmatter{ID: id, Title: title, Tags: tags},
			Body:        body,
		})
	}

	stats := computeStats(notes)
	tx, err := d.db.Begin()
	if err != nil {
		return qerrors.DatabaseErr("begin stats", err)
	}
	defer tx.Rollback()
	if err := writeStatsTx(tx, stats); err != nil {
		return err
	}
	return tx.Commit()
}

func computeStats(notes []*noteparse.Note) Stats {
	df := map[string]int{}
	totalLen := 0
	for _, n := range notes {
		seen := map[string]bool{}
		bodyTerms := tokenize.Tokenize(n.Body)
		totalLen += len(bodyTerms)
		for _, t := range bodyTerms {
			seen[t] = true
		}
		for _, t := range tokenize.Tokenize(n.Frontmatter.Title) {
			seen[t] = true
		}
		for _, tag := range n.Frontmatter.Tags {
			for _, t := range tokenize.Tokenize(tag) {
				seen[t] = true
			}
		}
		for t := range seen {
			df[t]++
		}
	}
	return Stats{TotalDocs: len(notes), TotalLen: totalLen, TermDF: df}
}

func writeStatsTx(tx *sql.Tx, stats Stats) error {
	dfJSON, err := json.Marshal(stats.TermDF)
	if err != nil {
		return qerrors.Otherf("marshal term df: %v", err)
	}
	for k, v := range map[string]string{
		"total_docs":   strconv.Itoa(stats.TotalDocs),
		"total_len":    strconv.Itoa(stats.TotalLen),
		"term_df_json": string(dfJSON),
	} {
		if err := setMetaTx(tx, k, v); err != nil {
			return err
		}
	}
	return nil
}

// GetStats reads the corpus-wide aggregate statistics back out of
// index_meta.
func (d *Database) GetStats() (Stats, error) {
	var stats Stats
	totalDocsStr, _, err := getMeta(d.db, "total_docs")
	if err != nil {
		return stats, qerrors.DatabaseErr("read total_docs", err)
	}
	totalLenStr, _, err := getMeta(d.db, "total_len")
	if err != nil {
		return stats, qerrors.DatabaseErr("read total_len", err)
	}
	dfJSON, _, err := getMeta(d.db, "term_df_json")
	if err != nil {
		return stats, qerrors.DatabaseErr("read term_df_json", err)
	}

	stats.TotalDocs, _ = strconv.Atoi(totalDocsStr)
	stats.TotalLen, _ = strconv.Atoi(totalLenStr)
	stats.TermDF = map[string]int{}
	if dfJSON != "" {
		_ = json.Unmarshal([]byte(dfJSON), &stats.TermDF)
	}
	return stats, nil
}

// NoteTermVector computes the weighted term-frequency vector for a note
// (title weight 2.0, tags 1.5, body 1.0) used by TF-IDF similarity.
// Vectors are derived on demand from stored content rather than
// persisted, keeping the schema limited to a small fixed set of tables.
func (d *Database) NoteTermVector(id string) (map[string]float64, error) {
	var title, body string
	err := d.db.QueryRow(`SELECT title, body FROM notes WHERE id = ?`, id).Scan(&title, &body)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, qerrors.DatabaseErr("read note for term vector", err)
	}

	tags, err := d.tagsFor(id)
	if err != nil {
		return nil, err
	}

	freqs := map[string]float64{}
	tokenize.TermFreqs(title, 2.0, freqs)
	for _, tag := range tags {
		tokenize.TermFreqs(tag, 1.5, freqs)
	}
	tokenize.TermFreqs(body, 1.0, freqs)
	return freqs, nil
}

func (d *Database) tagsFor(id string) ([]string, error) {
	rows, err := d.db.Query(`SELECT tag FROM tags WHERE note_id = ? ORDER BY tag`, id)
	if err != nil {
		return nil, qerrors.DatabaseErr("list tags", err)
	}
	defer rows.Close()
	var tags []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, qerrors.DatabaseErr("scan tag", err)
		}
		tags = append(tags, t)
	}
	return tags, nil
}
