package store

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwaldstein/qipu-sub000/internal/noteparse"
)

func TestInitOpenDiscoverRoundTrip(t *testing.T) {
	root := t.TempDir()

	s, err := Init(root, Options{IDPrefix: "zz"})
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, "zz", s.Cfg.IDPrefix)

	found, err := Discover(filepath.Join(root, "notes"))
	require.NoError(t, err)
	assert.Equal(t, root, found)

	reopened, err := Open(root)
	require.NoError(t, err)
	defer reopened.Close()
	assert.Equal(t, "zz", reopened.Cfg.IDPrefix)
}

func TestDiscoverFailsOutsideAnyStore(t *testing.T) {
	_, err := Discover(t.TempDir())
	assert.Error(t, err)
}

func TestCreateGetAndListNotes(t *testing.T) {
	root := t.TempDir()
	s, err := Init(root, Options{})
	require.NoError(t, err)
	defer s.Close()

	n, err := s.CreateNote("My First Note", noteparse.TypePermanent, []string{"go", "search"}, "hello world")
	require.NoError(t, err)
	assert.NotEmpty(t, n.Frontmatter.ID)
	assert.FileExists(t, n.Path)

	got, err := s.GetNote(n.Frontmatter.ID)
	require.NoError(t, err)
	assert.Equal(t, "My First Note", got.Frontmatter.Title)
	assert.Equal(t, []string{"go", "search"}, got.Frontmatter.Tags)
	assert.Equal(t, "hello world", got.Body)

	ids, err := s.ListNoteIDs()
	require.NoError(t, err)
	assert.Contains(t, ids, n.Frontmatter.ID)
}

func TestLoadByIDOrPath(t *testing.T) {
	root := t.TempDir()
	s, err := Init(root, Options{})
	require.NoError(t, err)
	defer s.Close()

	n, err := s.CreateNote("Another note", "", nil, "body")
	require.NoError(t, err)

	byID, err := s.LoadByIDOrPath(n.Frontmatter.ID)
	require.NoError(t, err)
	assert.Equal(t, n.Path, byID.Path)

	byPath, err := s.LoadByIDOrPath(n.Path)
	require.NoError(t, err)
	assert.Equal(t, n.Frontmatter.ID, byPath.Frontmatter.ID)
}

func TestSaveNoteUpdatesIndex(t *testing.T) {
	root := t.TempDir()
	s, err := Init(root, Options{})
	require.NoError(t, err)
	defer s.Close()

	n, err := s.CreateNote("Editable", "", nil, "original body")
	require.NoError(t, err)

	n.Body = "revised body"
	require.NoError(t, s.SaveNote(n))

	got, err := s.GetNote(n.Frontmatter.ID)
	require.NoError(t, err)
	assert.Equal(t, "revised body", got.Body)
}

func TestDeleteNoteRemovesFromIndex(t *testing.T) {
	root := t.TempDir()
	s, err := Init(root, Options{})
	require.NoError(t, err)
	defer s.Close()

	n, err := s.CreateNote("Disposable", "", nil, "x")
	require.NoError(t, err)

	require.NoError(t, s.DeleteNote(n.Frontmatter.ID))
	_, err = s.GetNote(n.Frontmatter.ID)
	assert.Error(t, err)
}

func TestImportNoteAndWriteAttachment(t *testing.T) {
	root := t.TempDir()
	s, err := Init(root, Options{})
	require.NoError(t, err)
	defer s.Close()

	n := &noteparse.Note{
		Frontmatter: noteparse.Frontmatter{ID: "zz-imported", Title: "Imported", Type: noteparse.TypeLiterature},
		Body:        "imported body",
	}
	require.NoError(t, s.ImportNote(n))

	got, err := s.GetNote("zz-imported")
	require.NoError(t, err)
	assert.Equal(t, "imported body", got.Body)

	require.NoError(t, s.WriteAttachment("sub/dir/file.bin", []byte{1, 2, 3}))
	assert.FileExists(t, filepath.Join(root, "attachments", "sub", "dir", "file.bin"))
}

func TestImportNoteIgnoresIncomingAbsolutePath(t *testing.T) {
	root := t.TempDir()
	s, err := Init(root, Options{})
	require.NoError(t, err)
	defer s.Close()

	outside := t.TempDir()
	foreignPath := filepath.Join(outside, "qp-1-one.md")
	n := &noteparse.Note{
		Frontmatter: noteparse.Frontmatter{ID: "qp-1", Title: "One", Type: noteparse.TypeLiterature},
		Body:        "imported body",
		Path:        foreignPath,
	}
	require.NoError(t, s.ImportNote(n))

	assert.NoFileExists(t, foreignPath)
	assert.True(t, strings.HasPrefix(n.Path, root), "expected note written under the destination store, got %s", n.Path)
	got, err := s.GetNote("qp-1")
	require.NoError(t, err)
	assert.Equal(t, "imported body", got.Body)
}

func TestWriteAttachmentRejectsPathTraversal(t *testing.T) {
	root := t.TempDir()
	s, err := Init(root, Options{})
	require.NoError(t, err)
	defer s.Close()

	err = s.WriteAttachment("../../../../etc/passwd-clobber", []byte("x"))
	require.Error(t, err)
}

func TestWriteAttachmentRejectsAbsolutePath(t *testing.T) {
	root := t.TempDir()
	s, err := Init(root, Options{})
	require.NoError(t, err)
	defer s.Close()

	outside := filepath.Join(t.TempDir(), "clobbered.bin")
	err = s.WriteAttachment(outside, []byte("x"))
	require.Error(t, err)
	assert.NoFileExists(t, outside)
}
