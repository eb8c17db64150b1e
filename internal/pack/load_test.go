package pack

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwaldstein/qipu-sub000/internal/noteparse"
	"github.com/mwaldstein/qipu-sub000/internal/store"
)

func openLoadTestStore(t *testing.T) *store.Store {
	t.Helper()
	root := t.TempDir()
	s, err := store.Init(root, store.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLoadCreatesNewNotesWithTheirLinks(t *testing.T) {
	s := openLoadTestStore(t)
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	p := &Pack{
		Notes: []Note{
			{ID: "qp-1", Type: "permanent", Title: "One", Body: "body one", Created: &created},
			{ID: "qp-2", Type: "permanent", Title: "Two", Body: "body two", Created: &created},
		},
		Links: []Link{{From: "qp-1", To: "qp-2", Type: "related"}},
	}

	result, err := Load(s, p, StrategySkip)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"qp-1", "qp-2"}, result.Created)
	assert.Empty(t, result.Updated)
	assert.Empty(t, result.Skipped)

	got, err := s.GetNote("qp-1")
	require.NoError(t, err)
	require.Len(t, got.Frontmatter.Links, 1)
	assert.Equal(t, "qp-2", got.Frontmatter.Links[0].ID)
}

func TestLoadSkipStrategyLeavesExistingNoteUntouched(t *testing.T) {
	s := openLoadTestStore(t)
	existing, err := s.CreateNote("Original", noteparse.TypePermanent, nil, "original body")
	require.NoError(t, err)

	p := &Pack{Notes: []Note{{ID: existing.Frontmatter.ID, Type: "permanent", Title: "Incoming", Body: "incoming body"}}}
	result, err := Load(s, p, StrategySkip)
	require.NoError(t, err)
	assert.Equal(t, []string{existing.Frontmatter.ID}, result.Skipped)

	got, err := s.GetNote(existing.Frontmatter.ID)
	require.NoError(t, err)
	assert.Equal(t, "original body", got.Body)
}

func TestLoadOverwriteStrategyReplacesContent(t *testing.T) {
	s := openLoadTestStore(t)
	existing, err := s.CreateNote("Original", noteparse.TypePermanent, nil, "original body")
	require.NoError(t, err)

	p := &Pack{Notes: []Note{{ID: existing.Frontmatter.ID, Type: "permanent", Title: "Incoming", Body: "incoming body"}}}
	result, err := Load(s, p, StrategyOverwrite)
	require.NoError(t, err)
	assert.Equal(t, []string{existing.Frontmatter.ID}, result.Updated)

	got, err := s.GetNote(existing.Frontmatter.ID)
	require.NoError(t, err)
	assert.Equal(t, "incoming body", got.Body)
}

func TestLoadMergeLinksOnlyAppendsLinksToNewlyCreatedNotes(t *testing.T) {
	s := openLoadTestStore(t)
	existingA, err := s.CreateNote("A", noteparse.TypePermanent, nil, "body a")
	require.NoError(t, err)
	existingB, err := s.CreateNote("B", noteparse.TypePermanent, nil, "body b")
	require.NoError(t, err)

	p := &Pack{
		Notes: []Note{
			{ID: existingA.Frontmatter.ID, Type: "permanent", Title: "A", Body: "body a"},
			{ID: "qp-new", Type: "permanent", Title: "New", Body: "new body"},
		},
		Links: []Link{
			{From: existingA.Frontmatter.ID, To: existingB.Frontmatter.ID, Type: "related"},
			{From: existingA.Frontmatter.ID, To: "qp-new", Type: "related"},
		},
	}

	result, err := Load(s, p, StrategyMergeLinks)
	require.NoError(t, err)
	assert.Contains(t, result.Created, "qp-new")
	assert.Contains(t, result.Updated, existingA.Frontmatter.ID)

	got, err := s.GetNote(existingA.Frontmatter.ID)
	require.NoError(t, err)
	var targets []string
	for _, l := range got.Frontmatter.Links {
		targets = append(targets, l.ID)
	}
	assert.Equal(t, []string{"qp-new"}, targets, "merge-links must not link to a pre-existing, unchanged note")
}

func TestLoadMergeLinksNoNewLinksLeavesNoteSkipped(t *testing.T) {
	s := openLoadTestStore(t)
	existingA, err := s.CreateNote("A", noteparse.TypePermanent, nil, "body a")
	require.NoError(t, err)
	existingB, err := s.CreateNote("B", noteparse.TypePermanent, nil, "body b")
	require.NoError(t, err)

	p := &Pack{
		Notes: []Note{{ID: existingA.Frontmatter.ID, Type: "permanent", Title: "A", Body: "body a"}},
		Links: []Link{{From: existingA.Frontmatter.ID, To: existingB.Frontmatter.ID, Type: "related"}},
	}

	result, err := Load(s, p, StrategyMergeLinks)
	require.NoError(t, err)
	assert.Equal(t, []string{existingA.Frontmatter.ID}, result.Skipped)
}

func TestLoadWritesPackedAttachments(t *testing.T) {
	s := openLoadTestStore(t)
	p := &Pack{
		Notes:       []Note{{ID: "qp-1", Type: "permanent", Title: "One", Body: "body"}},
		Attachments: []Attachment{{Path: "img/a.png", Name: "a.png", Data: []byte{1, 2, 3}}},
	}
	_, err := Load(s, p, StrategySkip)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(s.Root, "attachments", "img", "a.png"))
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, data)
}
