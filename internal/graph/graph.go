// Package graph implements bounded BFS traversal (spanning tree and
// shortest path) over the note link graph, with hop costs, fanout/node/
// edge caps, and semantic inversion of inbound edges.
package graph

import (
	"sort"

	"github.com/mwaldstein/qipu-sub000/internal/compaction"
	"github.com/mwaldstein/qipu-sub000/internal/index"
	"github.com/mwaldstein/qipu-sub000/internal/qerrors"
	"github.com/mwaldstein/qipu-sub000/internal/storeconfig"
)

// Direction selects which edges a traversal follows from each node.
type Direction string

const (
	Out  Direction = "out"
	In   Direction = "in"
	Both Direction = "both"
)

// LinkSource distinguishes where an edge in a traversal result came
// from: declared in frontmatter, parsed from the body, or synthesized
// at query time by inverting a declared/inline edge.
type LinkSource string

const (
	SourceTyped   LinkSource = "typed"
	SourceInline  LinkSource = "inline"
	SourceVirtual LinkSource = "virtual"
)

// Provider supplies the adjacency and metadata a traversal needs. The
// derived index satisfies this directly.
type Provider interface {
	GetOutboundEdges(id string) ([]index.Edge, error)
	GetInboundEdges(id string) ([]index.Edge, error)
	GetNoteMetadata(id string) (*index.NoteMetadata, error)
}

// TreeOptions parameterizes a traversal.
type TreeOptions struct {
	Direction         Direction
	MaxHops           int
	TypeInclude       []string
	TypeExclude       []string
	TypedOnly         bool
	InlineOnly        bool
	MaxNodes          *int
	MaxEdges          *int
	MaxFanout         *int
	SemanticInversion bool
}

// DefaultTreeOptions is the default traversal shape: both directions,
// 3 hops, semantic inversion on, no caps.
func DefaultTreeOptions() TreeOptions {
	return TreeOptions{Direction: Both, MaxHops: 3, SemanticInversion: true}
}

type graphEdge struct {
	From     string
	To       string
	LinkType string
	Source   LinkSource
}

func (e graphEdge) filterBy(opts TreeOptions) bool {
	if opts.TypedOnly && e.Source != SourceTyped {
		return false
	}
	if opts.InlineOnly && e.Source != SourceInline {
		return false
	}
	if len(opts.TypeInclude) > 0 && !contains(opts.TypeInclude, e.LinkType) {
		return false
	}
	if contains(opts.TypeExclude, e.LinkType) {
		return false
	}
	return true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func toTyped(e index.Edge) graphEdge {
	src := SourceTyped
	if e.Inline {
		src = SourceInline
	}
	return graphEdge{From: e.Source, To: e.Target, LinkType: e.LinkType, Source: src}
}

func invert(e graphEdge, cfg *storeconfig.Config) graphEdge {
	return graphEdge{From: e.To, To: e.From, LinkType: cfg.Inverse(e.LinkType), Source: SourceVirtual}
}

// TreeNote is one note in a traversal result.
type TreeNote struct {
	ID    string
	Title string
	Type  string
	Tags  []string
	Path  string
}

// TreeLink is one edge in a traversal result.
type TreeLink struct {
	From     string
	To       string
	LinkType string
	Source   string
}

// SpanningTreeEntry records the hop at which a node was first
// discovered.
type SpanningTreeEntry struct {
	From     string
	To       string
	Hop      int
	LinkType string
}

// TreeResult is a full BFS spanning-tree traversal.
type TreeResult struct {
	Root             string
	Direction        Direction
	MaxHops          int
	Truncated        bool
	TruncationReason string
	Notes            []TreeNote
	Links            []TreeLink
	SpanningTree     []SpanningTreeEntry
}

type queueEntry struct {
	id   string
	cost int
}

// BFSTraverse performs a bounded BFS spanning-tree walk from root.
// compactionCtx and equivalenceMap may both be nil to disable
// compaction contraction.
func BFSTraverse(
	provider Provider,
	cfg *storeconfig.Config,
	root string,
	opts TreeOptions,
	compactionCtx *compaction.Context,
	equivalenceMap map[string][]string,
) (*TreeResult, error) {
	visited := map[string]bool{root: true}
	queue := []queueEntry{{id: root, cost: 0}}

	var notes []TreeNote
	var links []TreeLink
	var spanningTree []SpanningTreeEntry
	truncated := false
	truncationReason := ""

	if meta, err := provider.GetNoteMetadata(root); err == nil && meta != nil {
		notes = append(notes, toTreeNote(meta))
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if opts.MaxNodes != nil && len(visited) >= *opts.MaxNodes {
			truncated = true
			truncationReason = "max_nodes"
			break
		}
		if opts.MaxEdges != nil && len(links) >= *opts.MaxEdges {
			truncated = true
			truncationReason = "max_edges"
			break
		}

		if current.cost >= opts.MaxHops {
			sourceIDs := sourcesFor(current.id, equivalenceMap)
			if hasUnexpandedNeighbors(provider, sourceIDs, opts) {
				truncated = true
				if truncationReason == "" {
					truncationReason = "max_hops"
				}
			}
			continue
		}

		sourceIDs := sourcesFor(current.id, equivalenceMap)
		neighbors, err := collectNeighbors(provider, cfg, sourceIDs, opts)
		if err != nil {
			return nil, err
		}

		if opts.MaxFanout != nil && len(neighbors) > *opts.MaxFanout {
			truncated = true
			truncationReason = "max_fanout"
			neighbors = neighbors[:*opts.MaxFanout]
		}

		for _, e := range neighbors {
			canonicalFrom, canonicalTo, canonicalNeighbor, err := canonicalizeEdge(compactionCtx, e)
			if err != nil {
				return nil, err
			}
			if canonicalFrom == canonicalTo {
				continue
			}

			if opts.MaxEdges != nil && len(links) >= *opts.MaxEdges {
				truncated = true
				truncationReason = "max_edges"
				break
			}
			links = append(links, TreeLink{From: canonicalFrom, To: canonicalTo, LinkType: e.LinkType, Source: string(e.Source)})

			if visited[canonicalNeighbor] {
				continue
			}
			if opts.MaxNodes != nil && len(visited) >= *opts.MaxNodes {
				truncated = true
				truncationReason = "max_nodes"
				break
			}
			visited[canonicalNeighbor] = true

			newCost := current.cost + int(cfg.HopCost(e.LinkType))
			spanningTree = append(spanningTree, SpanningTreeEntry{From: current.id, To: canonicalNeighbor, Hop: newCost, LinkType: e.LinkType})

			if meta, err := provider.GetNoteMetadata(canonicalNeighbor); err == nil && meta != nil {
				notes = append(notes, toTreeNote(meta))
			}
			queue = append(queue, queueEntry{id: canonicalNeighbor, cost: newCost})
		}
	}

	sort.Slice(notes, func(i, j int) bool { return notes[i].ID < notes[j].ID })
	sort.Slice(links, func(i, j int) bool {
		if links[i].From != links[j].From {
			return links[i].From < links[j].From
		}
		if links[i].LinkType != links[j].LinkType {
			return links[i].LinkType < links[j].LinkType
		}
		return links[i].To < links[j].To
	})
	sort.Slice(spanningTree, func(i, j int) bool {
		if spanningTree[i].Hop != spanningTree[j].Hop {
			return spanningTree[i].Hop < spanningTree[j].Hop
		}
		if spanningTree[i].LinkType != spanningTree[j].LinkType {
			return spanningTree[i].LinkType < spanningTree[j].LinkType
		}
		return spanningTree[i].To < spanningTree[j].To
	})

	return &TreeResult{
		Root: root, Direction: opts.Direction, MaxHops: opts.MaxHops,
		Truncated: truncated, TruncationReason: truncationReason,
		Notes: notes, Links: links, SpanningTree: spanningTree,
	}, nil
}

func toTreeNote(meta *index.NoteMetadata) TreeNote {
	return TreeNote{ID: meta.ID, Title: meta.Title, Type: meta.Type, Tags: meta.Tags, Path: meta.Path}
}

func sourcesFor(id string, equivalenceMap map[string][]string) []string {
	if ids, ok := equivalenceMap[id]; ok && len(ids) > 0 {
		return ids
	}
	return []string{id}
}

func hasUnexpandedNeighbors(provider Provider, sourceIDs []string, opts TreeOptions) bool {
	if opts.Direction == Out || opts.Direction == Both {
		for _, id := range sourceIDs {
			edges, err := provider.GetOutboundEdges(id)
			if err != nil {
				continue
			}
			for _, e := range edges {
				if toTyped(e).filterBy(opts) {
					return true
				}
			}
		}
	}
	if opts.Direction == In || opts.Direction == Both {
		for _, id := range sourceIDs {
			edges, err := provider.GetInboundEdges(id)
			if err != nil {
				continue
			}
			for _, e := range edges {
				if toTyped(e).filterBy(opts) {
					return true
				}
			}
		}
	}
	return false
}

// collectNeighbors gathers out/in edges (inbound inverted when
// semantic inversion is enabled), filters, and sorts them by
// (link_type, target id) for deterministic fanout.
func collectNeighbors(provider Provider, cfg *storeconfig.Config, sourceIDs []string, opts TreeOptions) ([]graphEdge, error) {
	var neighbors []graphEdge

	if opts.Direction == Out || opts.Direction == Both {
		for _, id := range sourceIDs {
			edges, err := provider.GetOutboundEdges(id)
			if err != nil {
				return nil, err
			}
			for _, e := range edges {
				te := toTyped(e)
				if te.filterBy(opts) {
					neighbors = append(neighbors, te)
				}
			}
		}
	}

	if opts.Direction == In || opts.Direction == Both {
		for _, id := range sourceIDs {
			edges, err := provider.GetInboundEdges(id)
			if err != nil {
				return nil, err
			}
			for _, e := range edges {
				te := toTyped(e)
				if opts.SemanticInversion {
					inv := invert(te, cfg)
					if inv.filterBy(opts) {
						neighbors = append(neighbors, inv)
					}
				} else if te.filterBy(opts) {
					neighbors = append(neighbors, te)
				}
			}
		}
	}

	sort.SliceStable(neighbors, func(i, j int) bool {
		if neighbors[i].LinkType != neighbors[j].LinkType {
			return neighbors[i].LinkType < neighbors[j].LinkType
		}
		return neighbors[i].To < neighbors[j].To
	})
	return neighbors, nil
}

func canonicalizeEdge(ctx *compaction.Context, e graphEdge) (from, to, neighbor string, err error) {
	if ctx == nil {
		return e.From, e.To, e.To, nil
	}
	from, err = ctx.Canon(e.From)
	if err != nil {
		return "", "", "", err
	}
	to, err = ctx.Canon(e.To)
	if err != nil {
		return "", "", "", err
	}
	return from, to, to, nil
}

// PathResult is a BFS shortest-path search result.
type PathResult struct {
	From       string
	To         string
	Direction  Direction
	Found      bool
	Notes      []TreeNote
	Links      []TreeLink
	PathLength int
}

type predecessor struct {
	id   string
	edge graphEdge
}

// BFSFindPath finds a shortest path (by hop count, not hop cost) from
// `from` to `to`, honoring the same edge filters and compaction
// contraction as BFSTraverse.
func BFSFindPath(
	provider Provider,
	cfg *storeconfig.Config,
	from, to string,
	opts TreeOptions,
	compactionCtx *compaction.Context,
	equivalenceMap map[string][]string,
) (*PathResult, error) {
	visited := map[string]bool{from: true}
	queue := []queueEntry{{id: from, cost: 0}}
	predecessors := map[string]predecessor{}
	found := from == to

	for len(queue) > 0 && !found {
		current := queue[0]
		queue = queue[1:]

		if current.id == to {
			found = true
			break
		}
		if current.cost >= opts.MaxHops {
			continue
		}

		sourceIDs := sourcesFor(current.id, equivalenceMap)
		neighbors, err := collectNeighbors(provider, cfg, sourceIDs, opts)
		if err != nil {
			return nil, err
		}

		for _, e := range neighbors {
			canonicalFrom, canonicalTo, canonicalNeighbor, err := canonicalizeEdge(compactionCtx, e)
			if err != nil {
				return nil, err
			}
			if canonicalFrom == canonicalTo {
				continue
			}
			if visited[canonicalNeighbor] {
				continue
			}
			visited[canonicalNeighbor] = true
			predecessors[canonicalNeighbor] = predecessor{
				id:   current.id,
				edge: graphEdge{From: canonicalFrom, To: canonicalTo, LinkType: e.LinkType, Source: e.Source},
			}
			newCost := current.cost + int(cfg.HopCost(e.LinkType))
			queue = append(queue, queueEntry{id: canonicalNeighbor, cost: newCost})
			if canonicalNeighbor == to {
				found = true
				break
			}
		}
	}

	var notes []TreeNote
	var links []TreeLink
	if found {
		var pathNodes []string
		current := to
		pathNodes = append(pathNodes, current)
		for current != from {
			pred, ok := predecessors[current]
			if !ok {
				break
			}
			links = append(links, TreeLink{From: pred.edge.From, To: pred.edge.To, LinkType: pred.edge.LinkType, Source: string(pred.edge.Source)})
			current = pred.id
			pathNodes = append(pathNodes, current)
		}
		reverseStrings(pathNodes)
		reverseLinks(links)

		for _, id := range pathNodes {
			if meta, err := provider.GetNoteMetadata(id); err == nil && meta != nil {
				notes = append(notes, toTreeNote(meta))
			}
		}
	}

	return &PathResult{
		From: from, To: to, Direction: opts.Direction, Found: found,
		Notes: notes, Links: links, PathLength: len(links),
	}, nil
}

func reverseStrings(s []string) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

func reverseLinks(s []TreeLink) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

// ParseDirection converts a string into a Direction, mirroring the
// original's FromStr impl.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "out":
		return Out, nil
	case "in":
		return In, nil
	case "both", "":
		return Both, nil
	default:
		return "", qerrors.Otherf("unknown direction %q (expected: out, in, both)", s)
	}
}
