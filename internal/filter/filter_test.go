package filter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwaldstein/qipu-sub000/internal/noteparse"
)

type stubCompaction struct {
	compacted map[string]bool
}

func (s stubCompaction) IsCompacted(id string) bool { return s.compacted[id] }

func noteWith(tags []string, typ noteparse.NoteType, custom map[string]any) *noteparse.Note {
	return &noteparse.Note{
		Frontmatter: noteparse.Frontmatter{
			ID:     "qp-1",
			Title:  "a note",
			Tags:   tags,
			Type:   typ,
			Custom: custom,
		},
	}
}

func TestMatchesTag(t *testing.T) {
	n := noteWith([]string{"go", "search"}, "", nil)
	assert.True(t, Filter{Tag: "go"}.Matches(n, nil))
	assert.False(t, Filter{Tag: "rust"}.Matches(n, nil))
	assert.True(t, Filter{}.Matches(n, nil))
}

func TestMatchesEquivalentTagsIsOr(t *testing.T) {
	n := noteWith([]string{"go"}, "", nil)
	f := Filter{EquivalentTags: []string{"rust", "go"}}
	assert.True(t, f.Matches(n, nil))

	f2 := Filter{EquivalentTags: []string{"rust", "python"}}
	assert.False(t, f2.Matches(n, nil))
}

func TestMatchesType(t *testing.T) {
	n := noteWith(nil, noteparse.TypePermanent, nil)
	assert.True(t, Filter{NoteType: noteparse.TypePermanent}.Matches(n, nil))
	assert.False(t, Filter{NoteType: noteparse.TypeFleeting}.Matches(n, nil))
}

func TestMatchesSince(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	n := noteWith(nil, "", nil)
	n.Frontmatter.Created = &created

	before := created.Add(-time.Hour)
	after := created.Add(time.Hour)
	assert.True(t, Filter{Since: &before}.Matches(n, nil))
	assert.False(t, Filter{Since: &after}.Matches(n, nil))
}

func TestMatchesMinValue(t *testing.T) {
	v := uint8(70)
	n := noteWith(nil, "", nil)
	n.Frontmatter.Value = &v

	low := uint8(50)
	high := uint8(90)
	assert.True(t, Filter{MinValue: &low}.Matches(n, nil))
	assert.False(t, Filter{MinValue: &high}.Matches(n, nil))
}

func TestMatchesCompactionHidesCompactedByDefault(t *testing.T) {
	n := noteWith(nil, "", nil)
	comp := stubCompaction{compacted: map[string]bool{"qp-1": true}}

	assert.False(t, New().Matches(n, comp))
	assert.True(t, (Filter{HideCompacted: false}).Matches(n, comp))
	assert.True(t, New().Matches(n, nil))
}

func TestMatchesCustomExpressions(t *testing.T) {
	cases := []struct {
		name   string
		expr   string
		custom map[string]any
		want   bool
	}{
		{"bare key present", "priority", map[string]any{"priority": "high"}, true},
		{"bare key absent", "priority", map[string]any{}, false},
		{"negated key absent", "!priority", map[string]any{}, true},
		{"negated key present", "!priority", map[string]any{"priority": "high"}, false},
		{"equality match", "priority=high", map[string]any{"priority": "high"}, true},
		{"equality mismatch", "priority=high", map[string]any{"priority": "low"}, false},
		{"gte true", "score>=5", map[string]any{"score": 7.0}, true},
		{"gte false", "score>=5", map[string]any{"score": 3.0}, false},
		{"gt vs gte disambiguation", "score>5", map[string]any{"score": 5.0}, false},
		{"lte true", "score<=5", map[string]any{"score": 5.0}, true},
		{"lt true", "score<5", map[string]any{"score": 4.0}, true},
		{"numeric from string", "score>=5", map[string]any{"score": "7"}, true},
		{"missing custom field", "score>=5", map[string]any{}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			n := noteWith(nil, "", c.custom)
			f := Filter{Custom: c.expr}
			assert.Equal(t, c.want, f.Matches(n, nil), "expr=%q custom=%v", c.expr, c.custom)
		})
	}
}

func TestMatchesIsConjunctive(t *testing.T) {
	n := noteWith([]string{"go"}, noteparse.TypePermanent, map[string]any{"priority": "high"})
	f := Filter{Tag: "go", NoteType: noteparse.TypePermanent, Custom: "priority=high"}
	assert.True(t, f.Matches(n, nil))

	f.Tag = "rust"
	assert.False(t, f.Matches(n, nil))
}

func TestParseSinceRFC3339(t *testing.T) {
	now := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	got, err := ParseSince("2026-01-01T00:00:00Z", now)
	require.NoError(t, err)
	assert.Equal(t, 2026, got.Year())
}

func TestParseSinceNaturalLanguage(t *testing.T) {
	now := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	got, err := ParseSince("3 days ago", now)
	require.NoError(t, err)
	assert.True(t, got.Before(now))
}
