package pack

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/mwaldstein/qipu-sub000/internal/graph"
	"github.com/mwaldstein/qipu-sub000/internal/store"
)

// Selection describes which notes to pull into a pack.
type Selection struct {
	IDs         []string
	Tag         string
	MOCOutbound string // id of a MOC note: select its typed outbound targets
	Query       string // matched against title/body substring; internal/search covers ranked search separately
	Expand      *ExpandOptions
}

// ExpandOptions optionally grows a selection via graph traversal from
// each initially-selected note.
type ExpandOptions struct {
	Direction  graph.Direction
	MaxHops    int
	TypeInclude []string
	TypeExclude []string
	TypedOnly  bool
	InlineOnly bool
}

// localLinkRe matches both markdown images and links whose target
// looks like a relative path rather than a URL or a note id.
var localLinkRe = regexp.MustCompile(`!?\[[^\]]*\]\(([^)]+)\)`)

// BuildSelection resolves a Selection to the concrete set of notes,
// their outbound+inbound links restricted to the selected set, and
// the attachments those notes' bodies reference.
func BuildSelection(s *store.Store, provider graph.Provider, sel Selection) (Pack, error) {
	ids := map[string]bool{}

	for _, id := range sel.IDs {
		ids[id] = true
	}

	if sel.Tag != "" {
		all, err := s.ListNoteIDs()
		if err != nil {
			return Pack{}, err
		}
		for _, id := range all {
			n, err := s.GetNote(id)
			if err != nil {
				continue
			}
			if containsTag(n.Frontmatter.Tags, sel.Tag) {
				ids[id] = true
			}
		}
	}

	if sel.MOCOutbound != "" {
		n, err := s.GetNote(sel.MOCOutbound)
		if err != nil {
			return Pack{}, err
		}
		ids[n.Frontmatter.ID] = true
		for _, l := range n.Frontmatter.Links {
			ids[l.ID] = true
		}
	}

	if sel.Query != "" {
		all, err := s.ListNoteIDs()
		if err != nil {
			return Pack{}, err
		}
		q := strings.ToLower(sel.Query)
		for _, id := range all {
			n, err := s.GetNote(id)
			if err != nil {
				continue
			}
			if strings.Contains(strings.ToLower(n.Frontmatter.Title), q) || strings.Contains(strings.ToLower(n.Body), q) {
				ids[id] = true
			}
		}
	}

	if sel.Expand != nil {
		seeds := make([]string, 0, len(ids))
		for id := range ids {
			seeds = append(seeds, id)
		}
		opts := graph.TreeOptions{
			Direction:   sel.Expand.Direction,
			MaxHops:     sel.Expand.MaxHops,
			TypeInclude: sel.Expand.TypeInclude,
			TypeExclude: sel.Expand.TypeExclude,
			TypedOnly:   sel.Expand.TypedOnly,
			InlineOnly:  sel.Expand.InlineOnly,
		}
		for _, seed := range seeds {
			result, err := graph.BFSTraverse(provider, s.Cfg, seed, opts, nil, nil)
			if err != nil {
				continue
			}
			for _, tn := range result.Notes {
				ids[tn.ID] = true
			}
		}
	}

	sortedIDs := make([]string, 0, len(ids))
	for id := range ids {
		sortedIDs = append(sortedIDs, id)
	}
	sort.Strings(sortedIDs)

	var p Pack
	var attachments []Attachment
	seenAttachments := map[string]bool{}

	for _, id := range sortedIDs {
		n, err := s.GetNote(id)
		if err != nil {
			continue
		}
		note := Note{
			ID: n.Frontmatter.ID, Type: string(n.NoteTypeOf()), Title: n.Frontmatter.Title,
			Tags: n.Frontmatter.Tags, Created: n.Frontmatter.Created, Path: n.Path, Body: n.Body,
			Compacts: n.Frontmatter.Compacts, Value: n.Frontmatter.Value,
		}
		for _, src := range n.Frontmatter.Sources {
			note.Sources = append(note.Sources, Source{URL: src.URL, Title: src.Title, Accessed: src.Accessed})
		}
		p.Notes = append(p.Notes, note)

		for _, l := range n.Frontmatter.Links {
			if ids[l.ID] {
				p.Links = append(p.Links, Link{From: n.Frontmatter.ID, To: l.ID, Type: l.Type, Inline: false})
			}
		}

		for _, target := range localAttachmentTargets(n.Body) {
			if seenAttachments[target] {
				continue
			}
			abs := filepath.Join(filepath.Dir(n.Path), target)
			data, err := os.ReadFile(abs)
			if err != nil {
				continue
			}
			seenAttachments[target] = true
			attachments = append(attachments, Attachment{
				Path: target, Name: filepath.Base(target), ContentType: guessContentType(target), Data: data,
			})
		}
	}

	p.Attachments = attachments
	return p, nil
}

func containsTag(tags []string, want string) bool {
	for _, t := range tags {
		if t == want {
			return true
		}
	}
	return false
}

// localAttachmentTargets extracts relative (non-URL) link/image
// targets from a note body, skipping anything that looks like a full
// URL or a wiki-style note reference.
func localAttachmentTargets(body string) []string {
	var out []string
	for _, m := range localLinkRe.FindAllStringSubmatch(body, -1) {
		target := strings.TrimSpace(m[1])
		if target == "" || strings.Contains(target, "://") || strings.HasPrefix(target, "#") {
			continue
		}
		out = append(out, target)
	}
	return out
}

func guessContentType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".svg":
		return "image/svg+xml"
	case ".pdf":
		return "application/pdf"
	default:
		return ""
	}
}
