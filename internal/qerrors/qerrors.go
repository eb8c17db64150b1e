// Package qerrors defines the tagged error kinds used across qipu.
//
// Callers match on Kind rather than message text; the same Error value
// carries enough context (path, note id) for every output format to
// render a useful message without re-deriving it.
package qerrors

import "fmt"

// Kind tags the category of failure. It is never used for control flow
// beyond equality checks against the constants below.
type Kind int

const (
	Other Kind = iota
	NotFound
	InvalidStore
	InvalidFrontmatter
	CompactionInvariant
	LinkTypeUnknown
	Io
	DatabaseError
	PackFormat
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case InvalidStore:
		return "invalid_store"
	case InvalidFrontmatter:
		return "invalid_frontmatter"
	case CompactionInvariant:
		return "compaction_invariant"
	case LinkTypeUnknown:
		return "link_type_unknown"
	case Io:
		return "io"
	case DatabaseError:
		return "database_error"
	case PackFormat:
		return "pack_format"
	default:
		return "other"
	}
}

// Error is qipu's single error type. Path and Note are optional context;
// Err, when set, is the wrapped underlying cause.
type Error struct {
	Kind Kind
	Msg  string
	Path string
	Note string
	Err  error
}

func (e *Error) Error() string {
	s := e.Msg
	if e.Note != "" {
		s = fmt.Sprintf("%s: note %s", s, e.Note)
	}
	if e.Path != "" {
		s = fmt.Sprintf("%s: %s", s, e.Path)
	}
	if e.Err != nil {
		s = fmt.Sprintf("%s: %v", s, e.Err)
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

// Is makes errors.Is report a match between two *Error values of the
// same Kind, whatever their messages; any other target never matches.
// The primary matching path is errors.As plus a check of the Kind field.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func newErr(k Kind, msg string) *Error { return &Error{Kind: k, Msg: msg} }

func NotFoundf(format string, args ...any) *Error {
	return newErr(NotFound, fmt.Sprintf(format, args...))
}

func InvalidStoref(root, reason string) *Error {
	return &Error{Kind: InvalidStore, Msg: "invalid store", Path: root, Err: fmt.Errorf("%s", reason)}
}

func NewInvalidFrontmatter(path, reason string) *Error {
	return &Error{Kind: InvalidFrontmatter, Msg: "invalid frontmatter", Path: path, Err: fmt.Errorf("%s", reason)}
}

func CompactionInvariantf(format string, args ...any) *Error {
	return newErr(CompactionInvariant, fmt.Sprintf(format, args...))
}

func LinkTypeUnknownf(linkType string) *Error {
	return newErr(LinkTypeUnknown, fmt.Sprintf("unknown link type %q", linkType))
}

func IoErr(path string, err error) *Error {
	return &Error{Kind: Io, Msg: "io error", Path: path, Err: err}
}

func DatabaseErr(op string, err error) *Error {
	return &Error{Kind: DatabaseError, Msg: "database error: " + op, Err: err}
}

func PackFormatf(format string, args ...any) *Error {
	return newErr(PackFormat, fmt.Sprintf(format, args...))
}

func Otherf(format string, args ...any) *Error {
	return newErr(Other, fmt.Sprintf(format, args...))
}
