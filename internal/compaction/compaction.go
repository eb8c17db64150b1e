// Package compaction implements the digest/source relation: a digest
// note's frontmatter "compacts" list builds a compactor map, canon()
// walks that map to its fixed point, and notes can be grouped by their
// canonical id.
package compaction

import (
	"sort"

	"github.com/mwaldstein/qipu-sub000/internal/noteparse"
	"github.com/mwaldstein/qipu-sub000/internal/qerrors"
)

// Context tracks which notes compact which. Invariant: at most one
// compactor per note, enforced at Build time.
type Context struct {
	compactors  map[string]string   // source id -> digest id
	compactedBy map[string][]string // digest id -> source ids
}

// Build constructs a Context from a note set, returning a
// CompactionInvariant error naming both compactors if any note is
// compacted by more than one digest.
func Build(notes []*noteparse.Note) (*Context, error) {
	compactors := map[string]string{}
	compactedBy := map[string][]string{}

	for _, n := range notes {
		digestID := n.Frontmatter.ID
		compacts := n.Frontmatter.Compacts
		if len(compacts) == 0 {
			continue
		}

		compactedBy[digestID] = append([]string(nil), compacts...)

		for _, sourceID := range compacts {
			if existing, ok := compactors[sourceID]; ok {
				return nil, qerrors.CompactionInvariantf(
					"note %s has multiple compactors: %s and %s", sourceID, existing, digestID)
			}
			compactors[sourceID] = digestID
		}
	}

	return &Context{compactors: compactors, compactedBy: compactedBy}, nil
}

// Canon follows the compaction chain to its fixed point, returning id
// itself if it has no compactor. Detects cycles via a visited set.
func (c *Context) Canon(id string) (string, error) {
	current := id
	visited := map[string]bool{}

	for {
		if visited[current] {
			return "", qerrors.CompactionInvariantf("compaction cycle detected involving note %s", current)
		}
		visited[current] = true

		compactor, ok := c.compactors[current]
		if !ok {
			return current, nil
		}
		current = compactor
	}
}

// IsCompacted reports whether id has a direct compactor. Satisfies
// internal/filter.CompactionChecker.
func (c *Context) IsCompacted(id string) bool {
	_, ok := c.compactors[id]
	return ok
}

// GetCompactor returns the direct compactor of id, if any.
func (c *Context) GetCompactor(id string) (string, bool) {
	d, ok := c.compactors[id]
	return d, ok
}

// GetCompactedNotes returns the source ids a digest directly compacts.
func (c *Context) GetCompactedNotes(digestID string) []string {
	return c.compactedBy[digestID]
}

// CompactsCount returns how many notes a digest directly compacts (0 if
// it isn't a digest).
func (c *Context) CompactsCount(digestID string) int {
	return len(c.compactedBy[digestID])
}

// BuildEquivalenceMap groups every note's id under its canonical id.
func (c *Context) BuildEquivalenceMap(notes []*noteparse.Note) (map[string][]string, error) {
	out := map[string][]string{}
	for _, n := range notes {
		canon, err := c.Canon(n.Frontmatter.ID)
		if err != nil {
			return nil, err
		}
		out[canon] = append(out[canon], n.Frontmatter.ID)
	}
	for canon, ids := range out {
		sort.Strings(ids)
		out[canon] = dedupSorted(ids)
	}
	return out, nil
}

func dedupSorted(ids []string) []string {
	if len(ids) < 2 {
		return ids
	}
	out := ids[:1]
	for _, id := range ids[1:] {
		if id != out[len(out)-1] {
			out = append(out, id)
		}
	}
	return out
}

// Validate checks the compaction invariants that Build alone can't
// catch: references to unknown notes, self-compaction, and cycles.
// Returns every violation found rather than stopping at the first, for
// doctor to report in one pass.
func (c *Context) Validate(notes []*noteparse.Note) []string {
	var errs []string
	ids := map[string]bool{}
	for _, n := range notes {
		ids[n.Frontmatter.ID] = true
	}

	sourceIDs := make([]string, 0, len(c.compactors))
	for sourceID := range c.compactors {
		sourceIDs = append(sourceIDs, sourceID)
	}
	sort.Strings(sourceIDs)
	for _, sourceID := range sourceIDs {
		digestID := c.compactors[sourceID]
		if !ids[sourceID] {
			errs = append(errs, "compaction references unknown source note: "+sourceID)
		}
		if !ids[digestID] {
			errs = append(errs, "compaction references unknown digest note: "+digestID)
		}
	}

	for _, n := range notes {
		for _, c := range n.Frontmatter.Compacts {
			if c == n.Frontmatter.ID {
				errs = append(errs, "note "+n.Frontmatter.ID+" compacts itself (self-compaction not allowed)")
			}
		}
	}

	for _, n := range notes {
		if _, err := c.Canon(n.Frontmatter.ID); err != nil {
			errs = append(errs, err.Error())
		}
	}

	return errs
}

// GetCompactedIDs returns the ids a digest compacts, walking the
// compacts relation down to depth levels (a digest's direct sources can
// themselves be digests), capped at maxNodes. Output is sorted by id
// for determinism; the second return reports whether maxNodes cut the
// walk short.
func (c *Context) GetCompactedIDs(digestID string, depth, maxNodes int) ([]string, bool) {
	visited := map[string]bool{digestID: true}
	var result []string
	truncated := false

	type frontierNode struct {
		id    string
		level int
	}
	queue := []frontierNode{{digestID, 0}}

	for len(queue) > 0 && !truncated {
		cur := queue[0]
		queue = queue[1:]
		if cur.level >= depth {
			continue
		}
		for _, child := range c.compactedBy[cur.id] {
			if visited[child] {
				continue
			}
			if len(result) >= maxNodes {
				truncated = true
				break
			}
			visited[child] = true
			result = append(result, child)
			queue = append(queue, frontierNode{child, cur.level + 1})
		}
	}

	sort.Strings(result)
	return result, truncated
}

// CompactionPct reports a digest's content-reduction percentage:
// 100 * (1 - size(digest) / sum of size(source)), where size(note) is
// the length of its resolved summary. Returns 0 if the digest compacts
// no notes or its sources have no summary content to compare against.
func CompactionPct(ctx *Context, digestID string, notesByID map[string]*noteparse.Note) (float64, error) {
	sourceIDs := ctx.GetCompactedNotes(digestID)
	if len(sourceIDs) == 0 {
		return 0, nil
	}

	digest, ok := notesByID[digestID]
	if !ok {
		return 0, qerrors.NotFoundf("digest note %s not found", digestID)
	}

	var totalSourceSize int
	for _, sourceID := range sourceIDs {
		source, ok := notesByID[sourceID]
		if !ok {
			return 0, qerrors.NotFoundf("compacted source note %s not found", sourceID)
		}
		totalSourceSize += len(noteparse.Summary(source))
	}
	if totalSourceSize == 0 {
		return 0, nil
	}

	digestSize := len(noteparse.Summary(digest))
	return 100 * (1 - float64(digestSize)/float64(totalSourceSize)), nil
}
