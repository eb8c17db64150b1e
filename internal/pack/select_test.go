package pack

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwaldstein/qipu-sub000/internal/graph"
	"github.com/mwaldstein/qipu-sub000/internal/noteparse"
	"github.com/mwaldstein/qipu-sub000/internal/store"
)

func openSelectTestStore(t *testing.T) *store.Store {
	t.Helper()
	root := t.TempDir()
	s, err := store.Init(root, store.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func idsOfPack(p Pack) []string {
	out := make([]string, len(p.Notes))
	for i, n := range p.Notes {
		out[i] = n.ID
	}
	return out
}

func TestBuildSelectionByIDs(t *testing.T) {
	s := openSelectTestStore(t)
	a, err := s.CreateNote("A", noteparse.TypePermanent, nil, "body a")
	require.NoError(t, err)
	_, err = s.CreateNote("B", noteparse.TypePermanent, nil, "body b")
	require.NoError(t, err)

	p, err := BuildSelection(s, s.Index, Selection{IDs: []string{a.Frontmatter.ID}})
	require.NoError(t, err)
	assert.Equal(t, []string{a.Frontmatter.ID}, idsOfPack(p))
}

func TestBuildSelectionByTag(t *testing.T) {
	s := openSelectTestStore(t)
	tagged, err := s.CreateNote("Tagged", noteparse.TypePermanent, []string{"keep"}, "body")
	require.NoError(t, err)
	_, err = s.CreateNote("Untagged", noteparse.TypePermanent, nil, "body")
	require.NoError(t, err)

	p, err := BuildSelection(s, s.Index, Selection{Tag: "keep"})
	require.NoError(t, err)
	assert.Equal(t, []string{tagged.Frontmatter.ID}, idsOfPack(p))
}

func TestBuildSelectionByMOCOutbound(t *testing.T) {
	s := openSelectTestStore(t)
	target, err := s.CreateNote("Target", noteparse.TypePermanent, nil, "body")
	require.NoError(t, err)
	moc, err := s.CreateNote("Map", noteparse.TypeMoc, nil, "overview")
	require.NoError(t, err)
	moc.Frontmatter.Links = []noteparse.TypedLink{{Type: "related", ID: target.Frontmatter.ID}}
	require.NoError(t, s.SaveNote(moc))

	p, err := BuildSelection(s, s.Index, Selection{MOCOutbound: moc.Frontmatter.ID})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{moc.Frontmatter.ID, target.Frontmatter.ID}, idsOfPack(p))

	require.Len(t, p.Links, 1)
	assert.Equal(t, moc.Frontmatter.ID, p.Links[0].From)
	assert.Equal(t, target.Frontmatter.ID, p.Links[0].To)
}

func TestBuildSelectionByQueryMatchesTitleOrBody(t *testing.T) {
	s := openSelectTestStore(t)
	match, err := s.CreateNote("Caching strategies", noteparse.TypePermanent, nil, "irrelevant body")
	require.NoError(t, err)
	_, err = s.CreateNote("Other note", noteparse.TypePermanent, nil, "nothing related")
	require.NoError(t, err)

	p, err := BuildSelection(s, s.Index, Selection{Query: "caching"})
	require.NoError(t, err)
	assert.Equal(t, []string{match.Frontmatter.ID}, idsOfPack(p))
}

func TestBuildSelectionExpandsViaGraphTraversal(t *testing.T) {
	s := openSelectTestStore(t)
	seed, err := s.CreateNote("Seed", noteparse.TypePermanent, nil, "body")
	require.NoError(t, err)
	neighbor, err := s.CreateNote("Neighbor", noteparse.TypePermanent, nil, "body")
	require.NoError(t, err)
	seed.Frontmatter.Links = []noteparse.TypedLink{{Type: "related", ID: neighbor.Frontmatter.ID}}
	require.NoError(t, s.SaveNote(seed))

	p, err := BuildSelection(s, s.Index, Selection{
		IDs:    []string{seed.Frontmatter.ID},
		Expand: &ExpandOptions{Direction: graph.Out, MaxHops: 1},
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{seed.Frontmatter.ID, neighbor.Frontmatter.ID}, idsOfPack(p))
}

func TestBuildSelectionCollectsLocalAttachments(t *testing.T) {
	s := openSelectTestStore(t)
	require.NoError(t, os.MkdirAll(filepath.Join(s.Root, "attachments"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(s.Root, "attachments", "pic.png"), []byte{0x89, 'P', 'N', 'G'}, 0o644))

	n, err := s.CreateNote("With image", noteparse.TypePermanent, nil, "see ![pic](../attachments/pic.png)")
	require.NoError(t, err)

	p, err := BuildSelection(s, s.Index, Selection{IDs: []string{n.Frontmatter.ID}})
	require.NoError(t, err)
	require.Len(t, p.Attachments, 1)
	assert.Equal(t, "pic.png", p.Attachments[0].Name)
	assert.Equal(t, "image/png", p.Attachments[0].ContentType)
}

func TestBuildSelectionOnlyIncludesLinksWithinSelection(t *testing.T) {
	s := openSelectTestStore(t)
	a, err := s.CreateNote("A", noteparse.TypePermanent, nil, "body")
	require.NoError(t, err)
	b, err := s.CreateNote("B", noteparse.TypePermanent, nil, "body")
	require.NoError(t, err)
	a.Frontmatter.Links = []noteparse.TypedLink{{Type: "related", ID: b.Frontmatter.ID}}
	require.NoError(t, s.SaveNote(a))

	p, err := BuildSelection(s, s.Index, Selection{IDs: []string{a.Frontmatter.ID}})
	require.NoError(t, err)
	assert.Empty(t, p.Links, "link to an unselected note must not appear in the pack")
}
