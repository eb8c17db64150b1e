package doctor

import (
	"os"
	"path/filepath"

	"github.com/mwaldstein/qipu-sub000/internal/noteparse"
	"github.com/mwaldstein/qipu-sub000/internal/storeconfig"
)

// FixResult reports what Fix actually changed.
type FixResult struct {
	DirsCreated     []string
	ConfigCreated   bool
	LinksPruned     int
}

// Fix applies the only two auto-repairs doctor performs: recreating
// missing store directories and default config, and pruning typed
// links whose target no longer resolves to any note. It does not
// rewrite note bodies or attempt any other repair; everything else
// Issues reports needs a human decision.
//
// Any applied fix invalidates index state derived from what it
// touched (a pruned link changes the edge table, a recreated config
// changes thresholds), so whenever Fix applied at least one repair it
// triggers a full index rebuild before returning.
func Fix(ctx *Context, issues []Issue) (*FixResult, error) {
	result := &FixResult{}

	for _, issue := range issues {
		if !issue.Fixable {
			continue
		}
		switch issue.Category {
		case "structure":
			if err := fixStructureIssue(ctx, issue, result); err != nil {
				return nil, err
			}
		case "broken-link":
			if err := pruneBrokenLink(ctx, issue, result); err != nil {
				return nil, err
			}
		}
	}

	if len(result.DirsCreated) > 0 || result.ConfigCreated || result.LinksPruned > 0 {
		if err := ctx.Store.Index.Rebuild(); err != nil {
			return nil, err
		}
	}

	return result, nil
}

func fixStructureIssue(ctx *Context, issue Issue, result *FixResult) error {
	if filepath.Base(issue.Path) == "config.toml" {
		cfg := storeconfig.Default()
		if err := storeconfig.Save(ctx.Store.Root, cfg); err != nil {
			return err
		}
		result.ConfigCreated = true
		return nil
	}
	if err := os.MkdirAll(issue.Path, 0o755); err != nil {
		return err
	}
	result.DirsCreated = append(result.DirsCreated, issue.Path)
	return nil
}

func pruneBrokenLink(ctx *Context, issue Issue, result *FixResult) error {
	n, err := ctx.Store.GetNote(issue.NoteID)
	if err != nil {
		return nil // already gone; nothing to prune
	}
	var kept []noteparse.TypedLink
	pruned := false
	for _, l := range n.Frontmatter.Links {
		if l.ID == issue.LinkTarget && l.Type == issue.LinkType {
			pruned = true
			continue
		}
		kept = append(kept, l)
	}
	if !pruned {
		return nil
	}
	n.Frontmatter.Links = kept
	if err := ctx.Store.SaveNote(n); err != nil {
		return err
	}
	result.LinksPruned++
	return nil
}
