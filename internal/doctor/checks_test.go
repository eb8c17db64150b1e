package doctor

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mwaldstein/qipu-sub000/internal/noteparse"
)

func link(typ, id string) noteparse.TypedLink { return noteparse.TypedLink{Type: typ, ID: id} }

func TestCheckRequiredFieldsFlagsMissingIDAndTitle(t *testing.T) {
	ctx := &Context{Notes: []*noteparse.Note{
		{Frontmatter: noteparse.Frontmatter{ID: "", Title: "has no id"}},
		{Frontmatter: noteparse.Frontmatter{ID: "qp-1", Title: ""}},
		{Frontmatter: noteparse.Frontmatter{ID: "qp-2", Title: "fine"}},
	}}
	issues := CheckRequiredFields(ctx)
	assert.Len(t, issues, 2)
	for _, i := range issues {
		assert.Equal(t, "required-field", i.Category)
	}
}

func TestCheckCompactionInvariantsReportsSelfCompaction(t *testing.T) {
	ctx := &Context{Notes: []*noteparse.Note{
		{Frontmatter: noteparse.Frontmatter{ID: "qp-self", Compacts: []string{"qp-self"}}},
	}}
	issues := CheckCompactionInvariants(ctx)
	assert.NotEmpty(t, issues)
	assert.Equal(t, "compaction", issues[0].Category)
}

func TestCheckCompactionInvariantsReportsMultiCompactorAsBuildFailure(t *testing.T) {
	ctx := &Context{Notes: []*noteparse.Note{
		{Frontmatter: noteparse.Frontmatter{ID: "qp-1"}},
		{Frontmatter: noteparse.Frontmatter{ID: "qp-digest-a", Compacts: []string{"qp-1"}}},
		{Frontmatter: noteparse.Frontmatter{ID: "qp-digest-b", Compacts: []string{"qp-1"}}},
	}}
	issues := CheckCompactionInvariants(ctx)
	assert.Len(t, issues, 1)
	assert.Equal(t, Error, issues[0].Severity)
}

func TestCheckSemanticLinkMisuseSupportsAndContradicts(t *testing.T) {
	ctx := &Context{Notes: []*noteparse.Note{
		{Frontmatter: noteparse.Frontmatter{ID: "qp-1", Links: []noteparse.TypedLink{
			link("supports", "qp-2"), link("contradicts", "qp-2"),
		}}},
	}}
	issues := CheckSemanticLinkMisuse(ctx)
	assert.Len(t, issues, 1)
	assert.Equal(t, Warning, issues[0].Severity)
}

func TestCheckSemanticLinkMisuseSelfIdentity(t *testing.T) {
	ctx := &Context{Notes: []*noteparse.Note{
		{Frontmatter: noteparse.Frontmatter{ID: "qp-1", Links: []noteparse.TypedLink{
			link("same-as", "qp-1"),
		}}},
	}}
	issues := CheckSemanticLinkMisuse(ctx)
	assert.Len(t, issues, 1)
	assert.Equal(t, Error, issues[0].Severity)
}

func TestCheckSemanticLinkMisuseFollowsCycle(t *testing.T) {
	ctx := &Context{Notes: []*noteparse.Note{
		{Frontmatter: noteparse.Frontmatter{ID: "qp-a", Links: []noteparse.TypedLink{link("follows", "qp-b")}}},
		{Frontmatter: noteparse.Frontmatter{ID: "qp-b", Links: []noteparse.TypedLink{link("follows", "qp-a")}}},
	}}
	issues := CheckSemanticLinkMisuse(ctx)
	found := false
	for _, i := range issues {
		if i.Category == "semantic-misuse" && i.Message != "" {
			found = true
		}
	}
	assert.True(t, found, "expected a follows-cycle issue, got %+v", issues)
}

func TestCheckSemanticLinkMisuseNoIssuesOnCleanLinks(t *testing.T) {
	ctx := &Context{Notes: []*noteparse.Note{
		{Frontmatter: noteparse.Frontmatter{ID: "qp-a", Links: []noteparse.TypedLink{link("follows", "qp-b")}}},
		{Frontmatter: noteparse.Frontmatter{ID: "qp-b"}},
	}}
	assert.Empty(t, CheckSemanticLinkMisuse(ctx))
}
