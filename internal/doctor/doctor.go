// Package doctor implements the store's invariant checks: a single
// pass over (store, parsed notes, index) through a composable set of
// Check functions, each contributing zero or more Issues. Modeled on
// the validator-chain pattern used for issue validation, generalized
// from "first error wins" to "every issue collected" since doctor
// reports everything wrong in one pass rather than failing fast.
package doctor

import (
	"sort"

	"github.com/mwaldstein/qipu-sub000/internal/compaction"
	"github.com/mwaldstein/qipu-sub000/internal/noteparse"
	"github.com/mwaldstein/qipu-sub000/internal/store"
)

// Severity classifies how serious an Issue is.
type Severity string

const (
	Warning Severity = "warning"
	Error   Severity = "error"
)

// Issue is one reported problem.
type Issue struct {
	Severity Severity
	Category string
	Message  string
	NoteID   string
	Path     string
	Fixable  bool

	// LinkTarget and LinkType are set only on "broken-link" issues, so
	// Fix can prune the exact offending link without re-parsing Message.
	LinkTarget string
	LinkType   string
}

// Context bundles everything a Check needs: the opened store, every
// note currently parseable from disk, and the ids of indexed notes that
// failed to load (so a parse-error check can report them without every
// other check needing its own parse pass).
type Context struct {
	Store      *store.Store
	Notes      []*noteparse.Note
	ParseFails map[string]error // note id -> load/parse error
}

// Check inspects ctx and returns the issues it finds. A Check must not
// mutate ctx.
type Check func(ctx *Context) []Issue

// AllChecks is the full default set, run in a fixed order so output is
// stable across runs of the same corpus.
func AllChecks() []Check {
	return []Check{
		CheckStructure,
		CheckParseErrors,
		CheckDuplicateIDs,
		CheckMissingFiles,
		CheckBrokenLinks,
		CheckRequiredFields,
		CheckCompactionInvariants,
		CheckSemanticLinkMisuse,
	}
}

// Run builds a Context from s and executes every check in checks,
// returning the combined, sorted issue list.
func Run(s *store.Store, checks []Check) ([]Issue, error) {
	ctx, err := buildContext(s)
	if err != nil {
		return nil, err
	}

	var all []Issue
	for _, check := range checks {
		all = append(all, check(ctx)...)
	}

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Category != all[j].Category {
			return all[i].Category < all[j].Category
		}
		return all[i].NoteID < all[j].NoteID
	})
	return all, nil
}

// BuildContext is the exported form of buildContext, for callers (such
// as the fix step) that need a Context without running checks.
func BuildContext(s *store.Store) (*Context, error) {
	return buildContext(s)
}

func buildContext(s *store.Store) (*Context, error) {
	ids, err := s.ListNoteIDs()
	if err != nil {
		return nil, err
	}
	ctx := &Context{Store: s, ParseFails: map[string]error{}}
	for _, id := range ids {
		n, err := s.GetNote(id)
		if err != nil {
			ctx.ParseFails[id] = err
			continue
		}
		ctx.Notes = append(ctx.Notes, n)
	}
	return ctx, nil
}

// buildCompactionContext is shared by CheckCompactionInvariants and any
// other check that needs the compaction relation.
func buildCompactionContext(ctx *Context) (*compaction.Context, error) {
	return compaction.Build(ctx.Notes)
}
