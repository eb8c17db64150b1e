// Package noteparse implements the note file format: a YAML frontmatter
// block followed by a markdown body, and the derived-summary fallback
// chain used when a note has no explicit summary.
package noteparse

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mwaldstein/qipu-sub000/internal/qerrors"
	"gopkg.in/yaml.v3"
)

// NoteType is the curation stage of a note.
type NoteType string

const (
	TypeFleeting  NoteType = "fleeting"
	TypeLiterature NoteType = "literature"
	TypePermanent NoteType = "permanent"
	TypeMoc       NoteType = "moc"
)

// ValidTypes lists every note type the ontology accepts.
var ValidTypes = []NoteType{TypeFleeting, TypeLiterature, TypePermanent, TypeMoc}

func (t NoteType) Valid() bool {
	for _, v := range ValidTypes {
		if v == t {
			return true
		}
	}
	return false
}

// Source is one bibliographic reference under frontmatter `sources`.
type Source struct {
	URL      string `yaml:"url"`
	Title    string `yaml:"title,omitempty"`
	Accessed string `yaml:"accessed,omitempty"`
}

// TypedLink is a header-declared link.
type TypedLink struct {
	Type string `yaml:"type"`
	ID   string `yaml:"id"`
}

// Frontmatter is the decoded YAML header of a note file. Provenance
// fields (source/author/generated_by/prompt_hash/verified) are flat
// rather than nested, matching the header shape notes are actually
// written in.
type Frontmatter struct {
	ID       string     `yaml:"id"`
	Title    string     `yaml:"title"`
	Type     NoteType   `yaml:"type,omitempty"`
	Created  *time.Time `yaml:"created,omitempty"`
	Updated  *time.Time `yaml:"updated,omitempty"`
	Tags     []string   `yaml:"tags,omitempty"`
	Sources  []Source   `yaml:"sources,omitempty"`
	Links    []TypedLink `yaml:"links,omitempty"`
	Compacts []string   `yaml:"compacts,omitempty"`
	Summary  string     `yaml:"summary,omitempty"`
	Value    *uint8     `yaml:"value,omitempty"`

	Source      string `yaml:"source,omitempty"`
	Author      string `yaml:"author,omitempty"`
	GeneratedBy string `yaml:"generated_by,omitempty"`
	PromptHash  string `yaml:"prompt_hash,omitempty"`
	Verified    bool   `yaml:"verified,omitempty"`

	// Custom holds every frontmatter key not otherwise recognized, so
	// arbitrary agent- or user-defined metadata survives round-trips.
	Custom map[string]any `yaml:"-"`
}

// Note is a parsed note: frontmatter plus body, with an optional on-disk
// path for notes loaded from a store.
type Note struct {
	Frontmatter Frontmatter
	Body        string
	Path        string
}

// NoteTypeOf returns the note's type, defaulting to fleeting.
func (n *Note) NoteTypeOf() NoteType {
	if n.Frontmatter.Type == "" {
		return TypeFleeting
	}
	return n.Frontmatter.Type
}

// ValueOf returns the note's value, defaulting to 50.
func (n *Note) ValueOf() uint8 {
	if n.Frontmatter.Value == nil {
		return 50
	}
	return *n.Frontmatter.Value
}

var knownFrontmatterKeys = map[string]struct{}{
	"id": {}, "title": {}, "type": {}, "created": {}, "updated": {},
	"tags": {}, "sources": {}, "links": {}, "compacts": {}, "summary": {},
	"value": {}, "source": {}, "author": {}, "generated_by": {},
	"prompt_hash": {}, "verified": {},
}

// Parse splits raw file content into frontmatter and body and decodes the
// frontmatter. It requires a well-formed `---\n...\n---\n` header with a
// non-empty id and title.
func Parse(path string, content []byte) (*Note, error) {
	text := string(content)
	if !strings.HasPrefix(text, "---") {
		return nil, qerrors.NewInvalidFrontmatter(path, "missing opening --- delimiter")
	}

	rest := text[3:]
	// Allow an optional newline directly after the opening delimiter.
	rest = strings.TrimPrefix(rest, "\n")

	closeIdx := strings.Index(rest, "\n---")
	if closeIdx < 0 {
		return nil, qerrors.NewInvalidFrontmatter(path, "missing closing --- delimiter")
	}

	yamlBlock := rest[:closeIdx]
	after := rest[closeIdx+len("\n---"):]
	body := strings.TrimPrefix(after, "\n")
	body = strings.TrimPrefix(body, "\n")

	var raw map[string]yaml.Node
	if err := yaml.Unmarshal([]byte(yamlBlock), &raw); err != nil {
		return nil, qerrors.NewInvalidFrontmatter(path, fmt.Sprintf("yaml parse error: %v", err))
	}

	var fm Frontmatter
	if err := yaml.Unmarshal([]byte(yamlBlock), &fm); err != nil {
		return nil, qerrors.NewInvalidFrontmatter(path, fmt.Sprintf("yaml parse error: %v", err))
	}

	if strings.TrimSpace(fm.ID) == "" {
		return nil, qerrors.NewInvalidFrontmatter(path, "missing or empty id")
	}
	if strings.TrimSpace(fm.Title) == "" {
		return nil, qerrors.NewInvalidFrontmatter(path, "missing or empty title")
	}

	fm.Custom = map[string]any{}
	for key, node := range raw {
		if _, known := knownFrontmatterKeys[key]; known {
			continue
		}
		var v any
		if err := node.Decode(&v); err == nil {
			fm.Custom[key] = v
		}
	}

	return &Note{Frontmatter: fm, Body: body, Path: path}, nil
}

// ToMarkdown emits the note back to its file representation. Fields are
// written in a fixed order (known keys first, then custom keys sorted
// by name) rather than through a plain map, so repeated round-trips of
// the same note produce byte-identical output.
func ToMarkdown(n *Note) (string, error) {
	fm := n.Frontmatter
	var entries []yamlEntry

	entries = append(entries, yamlEntry{"id", fm.ID})
	entries = append(entries, yamlEntry{"title", fm.Title})
	if fm.Type != "" {
		entries = append(entries, yamlEntry{"type", fm.Type})
	}
	if fm.Created != nil {
		entries = append(entries, yamlEntry{"created", fm.Created})
	}
	if fm.Updated != nil {
		entries = append(entries, yamlEntry{"updated", fm.Updated})
	}
	if len(fm.Tags) > 0 {
		entries = append(entries, yamlEntry{"tags", fm.Tags})
	}
	if len(fm.Sources) > 0 {
		entries = append(entries, yamlEntry{"sources", fm.Sources})
	}
	if len(fm.Links) > 0 {
		entries = append(entries, yamlEntry{"links", fm.Links})
	}
	if len(fm.Compacts) > 0 {
		entries = append(entries, yamlEntry{"compacts", fm.Compacts})
	}
	if fm.Summary != "" {
		entries = append(entries, yamlEntry{"summary", fm.Summary})
	}
	if fm.Value != nil {
		entries = append(entries, yamlEntry{"value", *fm.Value})
	}
	if fm.Source != "" {
		entries = append(entries, yamlEntry{"source", fm.Source})
	}
	if fm.Author != "" {
		entries = append(entries, yamlEntry{"author", fm.Author})
	}
	if fm.GeneratedBy != "" {
		entries = append(entries, yamlEntry{"generated_by", fm.GeneratedBy})
	}
	if fm.PromptHash != "" {
		entries = append(entries, yamlEntry{"prompt_hash", fm.PromptHash})
	}
	if fm.Verified {
		entries = append(entries, yamlEntry{"verified", fm.Verified})
	}

	customKeys := make([]string, 0, len(fm.Custom))
	for k := range fm.Custom {
		customKeys = append(customKeys, k)
	}
	sort.Strings(customKeys)
	for _, k := range customKeys {
		entries = append(entries, yamlEntry{k, fm.Custom[k]})
	}

	node, err := buildMappingNode(entries)
	if err != nil {
		return "", qerrors.Otherf("build frontmatter node: %v", err)
	}
	out, err := yaml.Marshal(node)
	if err != nil {
		return "", qerrors.Otherf("marshal frontmatter: %v", err)
	}

	return fmt.Sprintf("---\n%s---\n\n%s", string(out), n.Body), nil
}

type yamlEntry struct {
	key   string
	value any
}

func buildMappingNode(entries []yamlEntry) (*yaml.Node, error) {
	mapping := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, e := range entries {
		keyNode := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: e.key}
		valueNode := &yaml.Node{}
		if err := valueNode.Encode(e.value); err != nil {
			return nil, err
		}
		mapping.Content = append(mapping.Content, keyNode, valueNode)
	}
	return mapping, nil
}

// Summary resolves a note's summary through the three-tier fallback:
// explicit frontmatter summary, a "## Summary" section, the first body
// paragraph, or empty string.
func Summary(n *Note) string {
	if strings.TrimSpace(n.Frontmatter.Summary) != "" {
		return strings.TrimSpace(n.Frontmatter.Summary)
	}
	if s := extractSummarySection(n.Body); s != "" {
		return s
	}
	return extractFirstParagraph(n.Body)
}

func extractSummarySection(body string) string {
	lines := strings.Split(body, "\n")
	start := -1
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.EqualFold(trimmed, "## summary") {
			start = i + 1
			break
		}
	}
	if start < 0 {
		return ""
	}

	var collected []string
	started := false
	for i := start; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if strings.HasPrefix(trimmed, "#") {
			break
		}
		if trimmed == "" {
			if started {
				break
			}
			continue
		}
		started = true
		collected = append(collected, trimmed)
	}
	return strings.TrimSpace(strings.Join(collected, "\n"))
}

func extractFirstParagraph(body string) string {
	lines := strings.Split(body, "\n")
	var collected []string
	started := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !started {
			if trimmed == "" || strings.HasPrefix(trimmed, "#") {
				continue
			}
			started = true
		}
		if trimmed == "" {
			break
		}
		collected = append(collected, trimmed)
	}
	return strings.TrimSpace(strings.Join(collected, " "))
}
