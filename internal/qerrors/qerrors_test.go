package qerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindString(t *testing.T) {
	assert.Equal(t, "not_found", NotFound.String())
	assert.Equal(t, "other", Other.String())
	assert.Equal(t, "pack_format", PackFormat.String())
}

func TestErrorMessageIncludesContext(t *testing.T) {
	err := NewInvalidFrontmatter("notes/qp-1.md", "missing id")
	msg := err.Error()
	assert.Contains(t, msg, "invalid frontmatter")
	assert.Contains(t, msg, "notes/qp-1.md")
	assert.Contains(t, msg, "missing id")
}

func TestUnwrapExposesCause(t *testing.T) {
	cause := errors.New("disk full")
	err := IoErr("/tmp/x", cause)
	assert.Same(t, cause, errors.Unwrap(err))
}

func TestIsMatchesByKindOnly(t *testing.T) {
	a := NotFoundf("note %s missing", "qp-1")
	b := NotFoundf("note %s missing", "qp-2")
	assert.True(t, errors.Is(a, b))

	c := PackFormatf("bad header")
	assert.False(t, errors.Is(a, c))
}

func TestErrAsRecoversKind(t *testing.T) {
	var wrapped error = CompactionInvariantf("note %s has multiple compactors", "qp-1")
	var qe *Error
	require.True(t, errors.As(wrapped, &qe))
	assert.Equal(t, CompactionInvariant, qe.Kind)
}
