// Package store implements the store root: directory layout, note
// creation/loading/saving against both the filesystem and the derived
// index, and discovery of a store from a working directory.
package store

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/mwaldstein/qipu-sub000/internal/index"
	"github.com/mwaldstein/qipu-sub000/internal/noteidgen"
	"github.com/mwaldstein/qipu-sub000/internal/noteparse"
	"github.com/mwaldstein/qipu-sub000/internal/qerrors"
	"github.com/mwaldstein/qipu-sub000/internal/storeconfig"
)

// MarkerDir is the directory whose presence identifies a store root.
// Init creates the hidden form; Discover also recognizes the visible
// "qipu" form for stores that want their marker browsable.
const MarkerDir = ".qipu"

// VisibleMarkerDir is the alternate, non-hidden marker name Discover
// also accepts.
const VisibleMarkerDir = "qipu"

// Store is an opened note store: its root directory, config, and
// derived index.
type Store struct {
	Root  string
	Cfg   *storeconfig.Config
	Index *index.Database
}

// Options configures Init.
type Options struct {
	IDPrefix string
}

// Init creates a new store at root: the notes/mocs/attachments/
// workspaces directories, a marker directory, a default config.toml,
// and opens (creating) the derived index.
func Init(root string, opts Options) (*Store, error) {
	for _, dir := range []string{"notes", "mocs", "attachments", "workspaces", MarkerDir} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			return nil, qerrors.IoErr(filepath.Join(root, dir), err)
		}
	}

	cfg := storeconfig.Default()
	if opts.IDPrefix != "" {
		cfg.IDPrefix = opts.IDPrefix
	}
	if err := storeconfig.Save(root, cfg); err != nil {
		return nil, err
	}

	return Open(root)
}

// Open opens an existing store at root, loading its config and
// index.
func Open(root string) (*Store, error) {
	cfg, err := storeconfig.Load(root)
	if err != nil {
		return nil, err
	}
	db, err := index.Open(root, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{Root: root, Cfg: cfg, Index: db}, nil
}

// Close releases the store's database handle.
func (s *Store) Close() error {
	return s.Index.Close()
}

// Discover walks up from startingPath looking for a store marker
// directory (hidden .qipu by default, or the visible "qipu" form),
// returning the directory that contains it.
func Discover(startingPath string) (string, error) {
	dir, err := filepath.Abs(startingPath)
	if err != nil {
		return "", qerrors.IoErr(startingPath, err)
	}
	for {
		for _, marker := range []string{MarkerDir, VisibleMarkerDir} {
			info, err := os.Stat(filepath.Join(dir, marker))
			if err == nil && info.IsDir() {
				return dir, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", qerrors.NotFoundf("no store found above %s", startingPath)
		}
		dir = parent
	}
}

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = slugRe.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > 60 {
		s = s[:60]
		s = strings.TrimRight(s, "-")
	}
	if s == "" {
		s = "note"
	}
	return s
}

func dirFor(t noteparse.NoteType) string {
	if t == noteparse.TypeMoc {
		return "mocs"
	}
	return "notes"
}

// ExistingIDs returns every note id currently in the index, for
// noteidgen's collision check.
func (s *Store) ExistingIDs() (map[string]struct{}, error) {
	ids, err := s.Index.ListNoteIDs()
	if err != nil {
		return nil, err
	}
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out, nil
}

// CreateNote allocates an id, writes a new note file under notes/ or
// mocs/, and indexes it.
func (s *Store) CreateNote(title string, noteType noteparse.NoteType, tags []string, body string) (*noteparse.Note, error) {
	if noteType == "" {
		noteType = noteparse.TypeFleeting
	}
	if !noteType.Valid() {
		return nil, qerrors.Otherf("unknown note type %q", noteType)
	}

	existing, err := s.ExistingIDs()
	if err != nil {
		return nil, err
	}
	id := noteidgen.Generate(s.Cfg.IDPrefix, existing)

	now := time.Now().UTC()
	filename := id + "-" + slugify(title) + ".md"
	path := filepath.Join(s.Root, dirFor(noteType), filename)

	n := &noteparse.Note{
		Frontmatter: noteparse.Frontmatter{
			ID:      id,
			Title:   title,
			Type:    noteType,
			Created: &now,
			Updated: &now,
			Tags:    tags,
		},
		Body: body,
		Path: path,
	}

	if err := s.writeNoteFile(n); err != nil {
		return nil, err
	}
	if err := s.Index.UpsertNote(n); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *Store) writeNoteFile(n *noteparse.Note) error {
	content, err := noteparse.ToMarkdown(n)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(n.Path), 0o755); err != nil {
		return qerrors.IoErr(filepath.Dir(n.Path), err)
	}
	if err := os.WriteFile(n.Path, []byte(content), 0o644); err != nil {
		return qerrors.IoErr(n.Path, err)
	}
	return nil
}

// GetNote loads a note by id: the index resolves id to a path in O(1),
// then the file is re-parsed for full fidelity (links, compacts,
// custom fields the index's notes table doesn't retain).
func (s *Store) GetNote(id string) (*noteparse.Note, error) {
	path, ok, err := s.Index.GetNotePath(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, qerrors.NotFoundf("note %s not found", id)
	}
	return s.loadNoteFile(path)
}

func (s *Store) loadNoteFile(path string) (*noteparse.Note, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, qerrors.IoErr(path, err)
	}
	n, err := noteparse.Parse(path, content)
	if err != nil {
		return nil, err
	}
	n.Path = path
	return n, nil
}

// LoadByIDOrPath accepts either a note id ("qp-abc123") or a filesystem
// path and returns the parsed note.
func (s *Store) LoadByIDOrPath(arg string) (*noteparse.Note, error) {
	if id, ok := noteidgen.ExtractID(arg, s.Cfg.IDPrefix); ok {
		if n, err := s.GetNote(id); err == nil {
			return n, nil
		} else if qerrErr, ok := err.(*qerrors.Error); !ok || qerrErr.Kind != qerrors.NotFound {
			return nil, err
		}
		// index miss: fall back to a directory scan in case the index
		// is stale relative to an unsynced file.
		if n, err := s.scanForID(id); err == nil {
			return n, nil
		}
	}

	path := arg
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.Root, path)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, qerrors.NotFoundf("no note at %s", arg)
	}
	return s.loadNoteFile(path)
}

func (s *Store) scanForID(id string) (*noteparse.Note, error) {
	for _, dir := range index.NoteDirs {
		base := filepath.Join(s.Root, dir)
		entries, err := os.ReadDir(base)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasPrefix(e.Name(), id+"-") && e.Name() != id+".md" {
				continue
			}
			if n, err := s.loadNoteFile(filepath.Join(base, e.Name())); err == nil {
				return n, nil
			}
		}
	}
	return nil, qerrors.NotFoundf("note %s not found", id)
}

// SaveNote sets updated, rewrites the note file, and re-indexes it.
func (s *Store) SaveNote(n *noteparse.Note) error {
	now := time.Now().UTC()
	n.Frontmatter.Updated = &now
	if err := s.writeNoteFile(n); err != nil {
		return err
	}
	return s.Index.UpsertNote(n)
}

// DeleteNote removes a note's file and its index rows.
func (s *Store) DeleteNote(id string) error {
	n, err := s.GetNote(id)
	if err != nil {
		return err
	}
	if err := os.Remove(n.Path); err != nil && !os.IsNotExist(err) {
		return qerrors.IoErr(n.Path, err)
	}
	return s.Index.DeleteNote(id)
}

// ListNoteIDs returns every note id in the store.
func (s *Store) ListNoteIDs() ([]string, error) {
	return s.Index.ListNoteIDs()
}

// ImportNote writes a fully-formed note (id, type and all, as produced
// by unpacking a pack) to its designated directory and indexes it. The
// filename is always derived the same way CreateNote does; any incoming
// n.Path is replaced.
func (s *Store) ImportNote(n *noteparse.Note) error {
	// A path carried in from another store (e.g. an unpacked pack file)
	// means nothing here; always derive a fresh destination path rather
	// than trusting it, absolute or not.
	filename := n.Frontmatter.ID + "-" + slugify(n.Frontmatter.Title) + ".md"
	n.Path = filepath.Join(s.Root, dirFor(n.NoteTypeOf()), filename)
	if err := s.writeNoteFile(n); err != nil {
		return err
	}
	return s.Index.UpsertNote(n)
}

// WriteAttachment writes raw attachment data to relPath under the
// store's attachments directory, creating parent directories as
// needed. relPath comes from pack files that may originate on another
// machine, so it's cleaned and rejected outright if it would resolve
// outside the attachments directory (an absolute path or a ".."
// escape).
func (s *Store) WriteAttachment(relPath string, data []byte) error {
	attachmentsDir := filepath.Join(s.Root, "attachments")
	cleaned := filepath.Clean(filepath.Join(string(filepath.Separator), relPath))
	path := filepath.Join(attachmentsDir, cleaned)
	if path != attachmentsDir && !strings.HasPrefix(path, attachmentsDir+string(filepath.Separator)) {
		return qerrors.Otherf("attachment path %q escapes the attachments directory", relPath)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return qerrors.IoErr(filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return qerrors.IoErr(path, err)
	}
	return nil
}
