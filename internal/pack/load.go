package pack

import (
	"time"

	"github.com/mwaldstein/qipu-sub000/internal/noteparse"
	"github.com/mwaldstein/qipu-sub000/internal/store"
)

// LoadStrategy controls how a loaded pack reconciles with notes that
// already exist in the target store.
type LoadStrategy string

const (
	// StrategySkip leaves an existing note's file untouched.
	StrategySkip LoadStrategy = "skip"
	// StrategyOverwrite replaces an existing note's file contents with
	// the packed copy.
	StrategyOverwrite LoadStrategy = "overwrite"
	// StrategyMergeLinks keeps an existing note's content but appends
	// any packed link whose target was itself newly loaded by this
	// pack (never a link to a pre-existing, unchanged note).
	StrategyMergeLinks LoadStrategy = "merge-links"
)

// LoadResult reports what a Load call did.
type LoadResult struct {
	Created []string
	Updated []string
	Skipped []string
}

// Load applies p to s under strategy, writing new notes, and handling
// existing ones per strategy. Every packed attachment is then written
// under the store's attachments directory at its packed relative path,
// whichever strategy applied to the notes that reference it.
func Load(s *store.Store, p *Pack, strategy LoadStrategy) (*LoadResult, error) {
	existing, err := s.ExistingIDs()
	if err != nil {
		return nil, err
	}

	result := &LoadResult{}
	// Every packed note absent from the store counts as newly loaded
	// before any existing note is merged, so a merge-links target listed
	// later in the pack than its source is still recognized.
	newlyCreated := map[string]bool{}
	for _, n := range p.Notes {
		if _, already := existing[n.ID]; !already {
			newlyCreated[n.ID] = true
		}
	}

	linksByFrom := map[string][]Link{}
	for _, l := range p.Links {
		linksByFrom[l.From] = append(linksByFrom[l.From], l)
	}

	for _, n := range p.Notes {
		_, already := existing[n.ID]
		if !already {
			if err := createFromPacked(s, n, linksByFrom[n.ID]); err != nil {
				return nil, err
			}
			newlyCreated[n.ID] = true
			result.Created = append(result.Created, n.ID)
			continue
		}

		switch strategy {
		case StrategySkip:
			result.Skipped = append(result.Skipped, n.ID)
		case StrategyOverwrite:
			if err := overwriteExisting(s, n, linksByFrom[n.ID]); err != nil {
				return nil, err
			}
			result.Updated = append(result.Updated, n.ID)
		case StrategyMergeLinks:
			changed, err := mergeLinksInto(s, n.ID, linksByFrom[n.ID], newlyCreated)
			if err != nil {
				return nil, err
			}
			if changed {
				result.Updated = append(result.Updated, n.ID)
			} else {
				result.Skipped = append(result.Skipped, n.ID)
			}
		}
	}

	if err := writeAttachments(s, p.Attachments); err != nil {
		return nil, err
	}

	return result, nil
}

func createFromPacked(s *store.Store, n Note, links []Link) error {
	fm := noteparse.Frontmatter{
		ID: n.ID, Title: n.Title, Type: noteparse.NoteType(n.Type), Tags: n.Tags,
		Created: n.Created, Compacts: n.Compacts, Value: n.Value,
	}
	now := time.Now().UTC()
	fm.Updated = &now
	if fm.Created == nil {
		fm.Created = &now
	}
	for _, src := range n.Sources {
		fm.Sources = append(fm.Sources, noteparse.Source{URL: src.URL, Title: src.Title, Accessed: src.Accessed})
	}
	for _, l := range links {
		fm.Links = append(fm.Links, noteparse.TypedLink{Type: l.Type, ID: l.To})
	}

	note := &noteparse.Note{Frontmatter: fm, Body: n.Body, Path: n.Path}
	return s.ImportNote(note)
}

func overwriteExisting(s *store.Store, n Note, links []Link) error {
	existing, err := s.GetNote(n.ID)
	if err != nil {
		return err
	}
	existing.Frontmatter.Title = n.Title
	existing.Frontmatter.Tags = n.Tags
	existing.Frontmatter.Compacts = n.Compacts
	existing.Frontmatter.Value = n.Value
	existing.Body = n.Body
	existing.Frontmatter.Links = nil
	for _, l := range links {
		existing.Frontmatter.Links = append(existing.Frontmatter.Links, noteparse.TypedLink{Type: l.Type, ID: l.To})
	}
	return s.SaveNote(existing)
}

func mergeLinksInto(s *store.Store, id string, links []Link, newlyCreated map[string]bool) (bool, error) {
	var toAdd []Link
	for _, l := range links {
		if newlyCreated[l.To] {
			toAdd = append(toAdd, l)
		}
	}
	if len(toAdd) == 0 {
		return false, nil
	}

	existing, err := s.GetNote(id)
	if err != nil {
		return false, err
	}
	have := map[string]bool{}
	for _, l := range existing.Frontmatter.Links {
		have[l.Type+"\x00"+l.ID] = true
	}
	changed := false
	for _, l := range toAdd {
		key := l.Type + "\x00" + l.To
		if have[key] {
			continue
		}
		existing.Frontmatter.Links = append(existing.Frontmatter.Links, noteparse.TypedLink{Type: l.Type, ID: l.To})
		have[key] = true
		changed = true
	}
	if !changed {
		return false, nil
	}
	return true, s.SaveNote(existing)
}

func writeAttachments(s *store.Store, attachments []Attachment) error {
	for _, a := range attachments {
		if err := s.WriteAttachment(a.Path, a.Data); err != nil {
			return err
		}
	}
	return nil
}
