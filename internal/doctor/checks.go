package doctor

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/mwaldstein/qipu-sub000/internal/noteparse"
)

// CheckStructure reports missing required store directories or a
// missing config.toml. Fixable: Fix recreates them with defaults.
func CheckStructure(ctx *Context) []Issue {
	var issues []Issue
	for _, dir := range []string{"notes", "mocs", "attachments", "workspaces"} {
		path := filepath.Join(ctx.Store.Root, dir)
		if info, err := os.Stat(path); err != nil || !info.IsDir() {
			issues = append(issues, Issue{
				Severity: Error, Category: "structure",
				Message: "missing required directory: " + dir, Path: path, Fixable: true,
			})
		}
	}
	if _, err := os.Stat(filepath.Join(ctx.Store.Root, "config.toml")); err != nil {
		issues = append(issues, Issue{
			Severity: Error, Category: "structure",
			Message: "missing config.toml", Path: filepath.Join(ctx.Store.Root, "config.toml"), Fixable: true,
		})
	}
	return issues
}

// CheckParseErrors reports every note file that failed to parse.
func CheckParseErrors(ctx *Context) []Issue {
	ids := make([]string, 0, len(ctx.ParseFails))
	for id := range ctx.ParseFails {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var issues []Issue
	for _, id := range ids {
		issues = append(issues, Issue{
			Severity: Error, Category: "parse", NoteID: id,
			Message: "note failed to parse: " + ctx.ParseFails[id].Error(),
		})
	}
	return issues
}

// CheckDuplicateIDs reports ids assigned to more than one note. In
// practice this can only arise from a corrupted index (id is the
// notes table's primary key), so this surfaces an index inconsistency
// that calls for a rebuild rather than a per-note fix.
func CheckDuplicateIDs(ctx *Context) []Issue {
	dups, err := ctx.Store.Index.GetDuplicateIDs()
	if err != nil || len(dups) == 0 {
		return nil
	}
	issues := make([]Issue, 0, len(dups))
	for _, id := range dups {
		issues = append(issues, Issue{
			Severity: Error, Category: "duplicate-id", NoteID: id,
			Message: "note id appears more than once in the index; rebuild the index",
		})
	}
	return issues
}

// CheckMissingFiles reports notes the index still references whose
// backing file no longer exists on disk.
func CheckMissingFiles(ctx *Context) []Issue {
	missing, err := ctx.Store.Index.GetMissingFiles(func(path string) bool {
		_, statErr := os.Stat(path)
		return statErr == nil
	})
	if err != nil {
		return nil
	}
	issues := make([]Issue, 0, len(missing))
	for _, m := range missing {
		issues = append(issues, Issue{
			Severity: Error, Category: "missing-file", NoteID: m.ID, Path: m.Path,
			Message: "indexed note's file no longer exists",
		})
	}
	return issues
}

// CheckBrokenLinks reports edges whose target doesn't resolve to any
// note: an error for a declared (typed) link, a warning for an inline
// one, since an inline link is often just a typo in prose rather than
// a structural break.
func CheckBrokenLinks(ctx *Context) []Issue {
	broken, err := ctx.Store.Index.GetBrokenLinks()
	if err != nil {
		return nil
	}
	issues := make([]Issue, 0, len(broken))
	for _, b := range broken {
		sev := Error
		if b.Inline {
			sev = Warning
		}
		issues = append(issues, Issue{
			Severity: sev, Category: "broken-link", NoteID: b.Source,
			Message:    "link to " + b.Target + " (type " + b.LinkType + ") does not resolve to any note",
			Fixable:    !b.Inline,
			LinkTarget: b.Target,
			LinkType:   b.LinkType,
		})
	}
	return issues
}

// CheckRequiredFields reports notes missing an id or title, the two
// frontmatter fields every note must carry.
func CheckRequiredFields(ctx *Context) []Issue {
	var issues []Issue
	for _, n := range ctx.Notes {
		if n.Frontmatter.ID == "" {
			issues = append(issues, Issue{
				Severity: Error, Category: "required-field", Path: n.Path,
				Message: "note has no id",
			})
		}
		if n.Frontmatter.Title == "" {
			issues = append(issues, Issue{
				Severity: Error, Category: "required-field", NoteID: n.Frontmatter.ID, Path: n.Path,
				Message: "note has no title",
			})
		}
	}
	return issues
}

// CheckCompactionInvariants reports unresolved compaction references,
// self-compaction, and compaction cycles via compaction.Context.Validate.
func CheckCompactionInvariants(ctx *Context) []Issue {
	cctx, err := buildCompactionContext(ctx)
	if err != nil {
		// Build itself only fails on a multi-compactor invariant break;
		// that is itself the issue to report.
		return []Issue{{Severity: Error, Category: "compaction", Message: err.Error()}}
	}
	violations := cctx.Validate(ctx.Notes)
	issues := make([]Issue, 0, len(violations))
	for _, v := range violations {
		issues = append(issues, Issue{Severity: Error, Category: "compaction", Message: v})
	}
	return issues
}

// CheckSemanticLinkMisuse reports links whose declared typed
// relationship is internally inconsistent: a note both supporting and
// contradicting the same target, a note declaring an identity link
// (same-as/alias-of/part-of) to itself, and cycles in the follows
// chain (which should form a linear sequence, not a loop).
func CheckSemanticLinkMisuse(ctx *Context) []Issue {
	var issues []Issue

	for _, n := range ctx.Notes {
		supports := map[string]bool{}
		contradicts := map[string]bool{}
		for _, l := range n.Frontmatter.Links {
			switch l.Type {
			case "supports":
				supports[l.ID] = true
			case "contradicts":
				contradicts[l.ID] = true
			case "same-as", "alias-of", "part-of":
				if l.ID == n.Frontmatter.ID {
					issues = append(issues, Issue{
						Severity: Error, Category: "semantic-misuse", NoteID: n.Frontmatter.ID,
						Message: "note declares " + l.Type + " to itself",
					})
				}
			}
		}
		for target := range supports {
			if contradicts[target] {
				issues = append(issues, Issue{
					Severity: Warning, Category: "semantic-misuse", NoteID: n.Frontmatter.ID,
					Message: "note both supports and contradicts " + target,
				})
			}
		}
	}

	issues = append(issues, checkFollowsCycles(ctx.Notes)...)
	return issues
}

// checkFollowsCycles reports a cycle in the "follows" relation, which
// is meant to form a linear (or tree-shaped) sequence, via DFS with a
// recursion-stack cycle check.
func checkFollowsCycles(notes []*noteparse.Note) []Issue {
	adj := map[string][]string{}
	for _, n := range notes {
		for _, l := range n.Frontmatter.Links {
			if l.Type == "follows" {
				adj[n.Frontmatter.ID] = append(adj[n.Frontmatter.ID], l.ID)
			}
		}
	}

	const (
		unvisited = 0
		onStack   = 1
		done      = 2
	)
	state := map[string]int{}
	var cyclic []string
	reported := map[string]bool{}

	var visit func(id string) bool
	visit = func(id string) bool {
		state[id] = onStack
		for _, next := range adj[id] {
			switch state[next] {
			case onStack:
				if !reported[next] {
					cyclic = append(cyclic, next)
					reported[next] = true
				}
				return true
			case unvisited:
				if visit(next) {
					return true
				}
			}
		}
		state[id] = done
		return false
	}

	ids := make([]string, 0, len(adj))
	for id := range adj {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if state[id] == unvisited {
			visit(id)
		}
	}

	sort.Strings(cyclic)
	issues := make([]Issue, 0, len(cyclic))
	for _, id := range cyclic {
		issues = append(issues, Issue{
			Severity: Error, Category: "semantic-misuse", NoteID: id,
			Message: "note participates in a follows cycle",
		})
	}
	return issues
}
