// Package filter implements the conjunctive note filter: tag/type/
// since/min-value/custom-expression matching plus compaction
// visibility.
package filter

import (
	"strconv"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"github.com/mwaldstein/qipu-sub000/internal/noteparse"
	"github.com/mwaldstein/qipu-sub000/internal/qerrors"
)

var sinceParser = newSinceParser()

func newSinceParser() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}

// ParseSince accepts an RFC3339 timestamp or a natural-language
// expression ("last week", "3 days ago") and returns the resolved
// instant, relative to now.
func ParseSince(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	res, err := sinceParser.Parse(s, now)
	if err != nil {
		return time.Time{}, qerrors.Otherf("parse since %q: %v", s, err)
	}
	if res == nil {
		return time.Time{}, qerrors.Otherf("could not understand since expression %q", s)
	}
	return res.Time, nil
}

// CompactionChecker answers whether a note id has been folded into a
// digest by the compaction relation. internal/compaction.Context
// implements this; filter only depends on the interface to avoid an
// import cycle (compaction doesn't need to know about filtering).
type CompactionChecker interface {
	IsCompacted(id string) bool
}

// Filter is the conjunctive note filter: every configured predicate
// must match.
type Filter struct {
	Tag            string
	EquivalentTags []string
	NoteType       noteparse.NoteType
	Since          *time.Time
	MinValue       *uint8
	Custom         string
	HideCompacted  bool
}

// New returns a filter with hide_compacted defaulted to true, matching
// the original's Default impl.
func New() Filter {
	return Filter{HideCompacted: true}
}

// Matches reports whether note passes every configured predicate.
// compaction may be nil when hide_compacted is false or callers have no
// compaction context to check against.
func (f Filter) Matches(n *noteparse.Note, compaction CompactionChecker) bool {
	if !f.matchesCompaction(n, compaction) {
		return false
	}
	if !f.matchesTag(n) {
		return false
	}
	if !f.matchesType(n) {
		return false
	}
	if !f.matchesSince(n) {
		return false
	}
	if !f.matchesMinValue(n) {
		return false
	}
	return f.matchesCustom(n)
}

func (f Filter) matchesCompaction(n *noteparse.Note, compaction CompactionChecker) bool {
	if !f.HideCompacted || compaction == nil {
		return true
	}
	return !compaction.IsCompacted(n.Frontmatter.ID)
}

func (f Filter) matchesTag(n *noteparse.Note) bool {
	if len(f.EquivalentTags) > 0 {
		for _, want := range f.EquivalentTags {
			for _, t := range n.Frontmatter.Tags {
				if t == want {
					return true
				}
			}
		}
		return false
	}
	if f.Tag == "" {
		return true
	}
	for _, t := range n.Frontmatter.Tags {
		if t == f.Tag {
			return true
		}
	}
	return false
}

func (f Filter) matchesType(n *noteparse.Note) bool {
	if f.NoteType == "" {
		return true
	}
	return n.NoteTypeOf() == f.NoteType
}

func (f Filter) matchesSince(n *noteparse.Note) bool {
	if f.Since == nil {
		return true
	}
	return n.Frontmatter.Created != nil && !n.Frontmatter.Created.Before(*f.Since)
}

func (f Filter) matchesMinValue(n *noteparse.Note) bool {
	if f.MinValue == nil {
		return true
	}
	return n.ValueOf() >= *f.MinValue
}

// matchesCustom implements the custom expression grammar exactly:
// check "!key" (absence) first, then ">=" before ">", then "<=" before
// "<", then "=" (equality), then bare key existence. Each branch's
// operator is tried in this order because ">=" contains ">" and "<="
// contains "<" as substrings.
func (f Filter) matchesCustom(n *noteparse.Note) bool {
	expr := strings.TrimSpace(f.Custom)
	if expr == "" {
		return true
	}

	if key, ok := strings.CutPrefix(expr, "!"); ok {
		key = strings.TrimSpace(key)
		if key == "" {
			return false
		}
		_, present := n.Frontmatter.Custom[key]
		return !present
	}

	if k, v, ok := strings.Cut(expr, ">="); ok {
		return matchNumeric(n, k, v, func(a, b float64) bool { return a >= b })
	}
	if k, v, ok := strings.Cut(expr, ">"); ok {
		return matchNumeric(n, k, v, func(a, b float64) bool { return a > b })
	}
	if k, v, ok := strings.Cut(expr, "<="); ok {
		return matchNumeric(n, k, v, func(a, b float64) bool { return a <= b })
	}
	if k, v, ok := strings.Cut(expr, "<"); ok {
		return matchNumeric(n, k, v, func(a, b float64) bool { return a < b })
	}
	if k, v, ok := strings.Cut(expr, "="); ok {
		key, value := strings.TrimSpace(k), strings.TrimSpace(v)
		if key == "" {
			return false
		}
		raw, present := n.Frontmatter.Custom[key]
		if !present {
			return false
		}
		return matchCustomValue(raw, value)
	}

	key := strings.TrimSpace(expr)
	if key == "" {
		return false
	}
	_, present := n.Frontmatter.Custom[key]
	return present
}

func matchNumeric(n *noteparse.Note, key, value string, cmp func(a, b float64) bool) bool {
	key, value = strings.TrimSpace(key), strings.TrimSpace(value)
	if key == "" || value == "" {
		return false
	}
	target, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return false
	}
	raw, present := n.Frontmatter.Custom[key]
	if !present {
		return false
	}
	actual, ok := numericValue(raw)
	if !ok {
		return false
	}
	return cmp(actual, target)
}

func numericValue(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	case bool:
		if v {
			return 1.0, true
		}
		return 0.0, true
	default:
		return 0, false
	}
}

func matchCustomValue(raw any, filterValue string) bool {
	switch v := raw.(type) {
	case string:
		return v == filterValue
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64) == filterValue || trimFloat(v) == filterValue
	case int:
		return strconv.Itoa(v) == filterValue
	case bool:
		return strconv.FormatBool(v) == filterValue
	default:
		return false
	}
}

func trimFloat(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
