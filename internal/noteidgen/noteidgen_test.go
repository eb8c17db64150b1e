package noteidgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateProducesPrefixedID(t *testing.T) {
	id := Generate("qp", map[string]struct{}{})
	assert.True(t, LooksLikeID(id, "qp"))
}

func TestGenerateAvoidsCollisions(t *testing.T) {
	first := Generate("qp", map[string]struct{}{})
	existing := map[string]struct{}{first: {}}
	second := Generate("qp", existing)
	assert.NotEqual(t, first, second)
}

func TestLooksLikeID(t *testing.T) {
	assert.True(t, LooksLikeID("qp-abc123", "qp"))
	assert.False(t, LooksLikeID("other-abc123", "qp"))
	assert.False(t, LooksLikeID("qp-", "qp"))
	assert.False(t, LooksLikeID("qp", "qp"))
}

func TestExtractID(t *testing.T) {
	id, ok := ExtractID("qp-abc123-my-note-title.md", "qp")
	assert.True(t, ok)
	assert.Equal(t, "qp-abc123", id)

	id, ok = ExtractID("qp-abc123.md", "qp")
	assert.True(t, ok)
	assert.Equal(t, "qp-abc123", id)

	_, ok = ExtractID("not-an-id", "qp")
	assert.False(t, ok)
}
