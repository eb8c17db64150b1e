package search

import (
	"sort"

	"github.com/mwaldstein/qipu-sub000/internal/compaction"
	"github.com/mwaldstein/qipu-sub000/internal/index"
)

// ResolveCompaction replaces each result that has been folded into a
// digest with that digest, tagging it with Via so callers can show
// "matched via <original id>". When two results canonicalize to the
// same digest, the higher-relevance one wins, but a Via from either is
// kept rather than discarded. Results are then re-sorted by relevance
// descending (ties broken by id) for determinism.
func ResolveCompaction(results []Result, db *index.Database, ctx *compaction.Context) ([]Result, error) {
	if ctx == nil {
		return results, nil
	}

	byCanonical := make(map[string]Result, len(results))
	order := make([]string, 0, len(results))

	for _, r := range results {
		canon, err := ctx.Canon(r.ID)
		if err != nil {
			return nil, err
		}
		if canon != r.ID {
			if meta, mErr := db.GetNoteMetadata(canon); mErr == nil {
				r.Via = r.ID
				r.ID = canon
				r.Title = meta.Title
				r.Type = meta.Type
				r.Path = meta.Path
				r.Tags = meta.Tags
				r.Value = meta.Value
			}
		}

		existing, ok := byCanonical[r.ID]
		switch {
		case !ok:
			byCanonical[r.ID] = r
			order = append(order, r.ID)
		case r.Relevance > existing.Relevance:
			if existing.Via != "" && r.Via == "" {
				r.Via = existing.Via
			}
			byCanonical[r.ID] = r
		case r.Via != "" && existing.Via == "":
			existing.Via = r.Via
			byCanonical[r.ID] = existing
		}
	}

	sort.Strings(order)
	out := make([]Result, 0, len(order))
	for _, id := range order {
		out = append(out, byCanonical[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Relevance != out[j].Relevance {
			return out[i].Relevance > out[j].Relevance
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// SortByValue re-sorts results by their declared value field
// descending, ties broken by id. Value is already fully resolved by
// the time it reaches a Result (UpsertNote stores noteparse.ValueOf(),
// which defaults a missing value to 50 but leaves an explicit 0
// alone), so 0 here means the note really is valued at the bottom of
// the scale, not that its value is unset.
func SortByValue(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Value != results[j].Value {
			return results[i].Value > results[j].Value
		}
		return results[i].ID < results[j].ID
	})
}

// ExcludeMOCs filters out map-of-content notes from a result set, for
// callers that only want primary content.
func ExcludeMOCs(results []Result) []Result {
	out := make([]Result, 0, len(results))
	for _, r := range results {
		if r.Type != "moc" {
			out = append(out, r)
		}
	}
	return out
}
