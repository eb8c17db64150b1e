package store

import (
	"os"

	"github.com/mwaldstein/qipu-sub000/internal/compaction"
	"github.com/mwaldstein/qipu-sub000/internal/filter"
	"github.com/mwaldstein/qipu-sub000/internal/index"
	"github.com/mwaldstein/qipu-sub000/internal/noteparse"
)

// ListNotes loads and returns every note matching f. The SQL-pushable
// parts of the filter (type, tag, since) narrow the candidate set
// first; the full conjunctive chain (min_value, custom, hide_compacted)
// then applies to each candidate's parsed file, since those predicates
// need data the notes table doesn't retain.
func (s *Store) ListNotes(f filter.Filter) ([]*noteparse.Note, error) {
	dbFilter := index.ListNoteFilter{
		Tag:   f.Tag,
		Type:  string(f.NoteType),
		Since: f.Since,
	}
	if len(f.EquivalentTags) > 0 {
		dbFilter.Tag = "" // equivalent-tag matching happens in Go below
	}

	candidates, err := s.Index.ListNotes(dbFilter)
	if err != nil {
		return nil, err
	}

	var compactionCtx *compaction.Context
	if f.HideCompacted {
		compactionCtx, err = s.buildCompactionContext()
		if err != nil {
			return nil, err
		}
	}

	var out []*noteparse.Note
	for _, meta := range candidates {
		n, err := s.loadNoteFile(meta.Path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		var checker filter.CompactionChecker
		if compactionCtx != nil {
			checker = compactionCtx
		}
		if f.Matches(n, checker) {
			out = append(out, n)
		}
	}
	return out, nil
}

// buildCompactionContext loads every note's frontmatter to build the
// corpus-wide compaction relation. Kept lightweight: file bodies aren't
// needed, but noteparse.Parse has no header-only mode, so this reuses
// loadNoteFile rather than adding one.
func (s *Store) buildCompactionContext() (*compaction.Context, error) {
	ids, err := s.Index.ListNoteIDs()
	if err != nil {
		return nil, err
	}
	notes := make([]*noteparse.Note, 0, len(ids))
	for _, id := range ids {
		n, err := s.GetNote(id)
		if err != nil {
			continue
		}
		notes = append(notes, n)
	}
	return compaction.Build(notes)
}
