// Package pack implements the transport codec that bundles a selected
// set of notes, their links, and referenced attachments into a single
// file for moving between stores: a line-oriented records form and an
// isomorphic JSON form, plus the load strategies that reconcile a pack
// against an existing store.
package pack

import (
	"time"

	"golang.org/x/mod/semver"

	"github.com/mwaldstein/qipu-sub000/internal/qerrors"
	"github.com/mwaldstein/qipu-sub000/internal/storeconfig"
)

// FormatVersion is the pack codec's own version, independent of the
// store format version it was created from. Compared with semver
// ordering: a higher major version than this loader understands is
// rejected, anything else is accepted.
const FormatVersion = "v1.0"

// Header describes the pack as a whole.
type Header struct {
	FormatVersion string
	StoreVersion  string
	CreatedAt     time.Time
	SourceStore   string
	NoteCount     int
	LinkCount     int
	AttachmentCount int
}

// Note is one packed note: its frontmatter fields (re-serialized
// rather than carrying the raw file bytes, so records-form and
// JSON-form agree byte-for-byte) plus body.
type Note struct {
	ID       string
	Type     string
	Title    string
	Tags     []string
	Created  *time.Time
	Path     string
	Body     string
	Sources  []Source
	Compacts []string
	Value    *uint8
}

// Source is a packed bibliographic reference.
type Source struct {
	URL      string
	Title    string
	Accessed string
}

// Link is one packed edge between two notes in the pack.
type Link struct {
	From     string
	To       string
	Type     string
	Inline   bool
}

// Attachment is one packed binary file referenced by a note's body.
type Attachment struct {
	Path        string
	Name        string
	ContentType string
	Data        []byte
}

// Pack is the full decoded contents of a pack file.
type Pack struct {
	Header      Header
	Notes       []Note
	Links       []Link
	Attachments []Attachment
}

// CheckVersion validates a pack's declared versions against what this
// loader understands. Only a strictly higher major format or store
// version is rejected; equal or lower majors (including different
// minors) load normally, matching the original's tolerant-downgrade
// policy.
func CheckVersion(h Header) error {
	if err := checkMajor(h.FormatVersion, FormatVersion, "pack format"); err != nil {
		return err
	}
	return checkMajor(h.StoreVersion, storeconfig.StoreFormatVersion, "store format")
}

func checkMajor(declared, supported, what string) error {
	d := "v" + normalizeVersion(declared)
	s := "v" + normalizeVersion(supported)
	if !semver.IsValid(d) || !semver.IsValid(s) {
		return qerrors.PackFormatf("unrecognized %s version %q", what, declared)
	}
	if semver.Compare(semver.Major(d), semver.Major(s)) > 0 {
		return qerrors.PackFormatf("%s version %s requires a newer qipu (have %s); upgrade qipu", what, declared, supported)
	}
	return nil
}

// normalizeVersion strips a leading "v" so callers can pass either
// "v1.0" or "1.0" without semver.IsValid rejecting a doubled prefix.
func normalizeVersion(v string) string {
	if len(v) > 0 && v[0] == 'v' {
		return v[1:]
	}
	return v
}
