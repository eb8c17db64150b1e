package search

import (
	"math"
	"sort"

	"github.com/mwaldstein/qipu-sub000/internal/index"
	"github.com/mwaldstein/qipu-sub000/internal/qerrors"
)

// SimilarityResult pairs a note id with a similarity or co-occurrence
// score. Higher is more similar; the scale depends on which function
// produced it (cosine similarity is 0..1, Jaccard is 0..1, 2-hop
// neighborhood score is an unbounded path count).
type SimilarityResult struct {
	ID    string
	Score float64
}

// TFIDFVector converts a field-weighted term frequency map into a
// TF-IDF vector using corpus-wide document frequencies. A term absent
// from the corpus (df unknown) is treated as df=1 rather than 0, so a
// term unique to this note doesn't produce an infinite idf.
func TFIDFVector(stats index.Stats, termFreqs map[string]float64) map[string]float64 {
	vec := make(map[string]float64, len(termFreqs))
	for term, tf := range termFreqs {
		df, ok := stats.TermDF[term]
		if !ok {
			df = 1
		}
		idf := math.Log(float64(stats.TotalDocs+1)/float64(df+1)) + 1.0
		vec[term] = tf * idf
	}
	return vec
}

// CosineSimilarity returns the cosine of the angle between two TF-IDF
// vectors, 0.0 if either has zero norm.
func CosineSimilarity(a, b map[string]float64) float64 {
	var dot, normA, normB float64
	for term, wa := range a {
		normA += wa * wa
		if wb, ok := b[term]; ok {
			dot += wa * wb
		}
	}
	for _, wb := range b {
		normB += wb * wb
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// CalculateSimilarity returns the TF-IDF cosine similarity between two
// notes' already-weighted term vectors (title x2.0, tags x1.5, body
// x1.0, applied when the vectors were built). Returns 0.0 if either
// note has no recorded term vector or an empty one.
func CalculateSimilarity(db *index.Database, stats index.Stats, idA, idB string) (float64, error) {
	vecA, err := db.NoteTermVector(idA)
	if err != nil {
		return 0, err
	}
	vecB, err := db.NoteTermVector(idB)
	if err != nil {
		return 0, err
	}
	if len(vecA) == 0 || len(vecB) == 0 {
		return 0.0, nil
	}
	return CosineSimilarity(TFIDFVector(stats, vecA), TFIDFVector(stats, vecB)), nil
}

// FindByTagOverlap ranks notes by Jaccard similarity of their tag sets
// against target's tags, descending, truncated to limit. Returns no
// results if target has no tags; skips any note with zero shared tags.
func FindByTagOverlap(db *index.Database, targetID string, limit int) ([]SimilarityResult, error) {
	target, err := db.GetNoteMetadata(targetID)
	if err != nil {
		return nil, err
	}
	if len(target.Tags) == 0 {
		return nil, nil
	}
	targetSet := toSet(target.Tags)

	all, err := db.ListNoteIDs()
	if err != nil {
		return nil, err
	}

	var out []SimilarityResult
	for _, id := range all {
		if id == targetID {
			continue
		}
		meta, err := db.GetNoteMetadata(id)
		if err != nil {
			continue
		}
		otherSet := toSet(meta.Tags)
		shared := 0
		for t := range targetSet {
			if otherSet[t] {
				shared++
			}
		}
		if shared == 0 {
			continue
		}
		union := len(targetSet) + len(otherSet) - shared
		out = append(out, SimilarityResult{ID: id, Score: float64(shared) / float64(union)})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func toSet(tags []string) map[string]bool {
	m := make(map[string]bool, len(tags))
	for _, t := range tags {
		m[t] = true
	}
	return m
}

// FindBy2HopNeighborhood scores notes reachable via exactly two link
// hops from noteID, regardless of direction or link type: it collects
// 1-hop neighbors (both directions), then for each of those collects
// their own neighbors, counting occurrences of anything that is
// neither noteID itself nor already a 1-hop neighbor. A note reached
// through two different 1-hop intermediaries scores 2, and so on.
// Results are sorted by score descending and truncated to limit.
func FindBy2HopNeighborhood(db *index.Database, noteID string, limit int) ([]SimilarityResult, error) {
	oneHop, err := neighborsOf(db, noteID)
	if err != nil {
		return nil, err
	}

	counts := map[string]int{}
	for neighborID := range oneHop {
		neighbors, err := neighborsOf(db, neighborID)
		if err != nil {
			return nil, err
		}
		for id := range neighbors {
			if id == noteID || oneHop[id] {
				continue
			}
			counts[id]++
		}
	}

	ids := make([]string, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]SimilarityResult, 0, len(ids))
	for _, id := range ids {
		out = append(out, SimilarityResult{ID: id, Score: float64(counts[id])})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func neighborsOf(db *index.Database, id string) (map[string]bool, error) {
	out := map[string]bool{}
	outbound, err := db.GetOutboundEdges(id)
	if err != nil {
		return nil, err
	}
	for _, e := range outbound {
		out[e.Target] = true
	}
	inbound, err := db.GetInboundEdges(id)
	if err != nil {
		return nil, err
	}
	for _, e := range inbound {
		out[e.Source] = true
	}
	return out, nil
}

// FindSimilar ranks every other note in the corpus by TF-IDF cosine
// similarity to noteID, keeping only scores at or above threshold
// (0.3 if threshold <= 0), sorted descending and truncated to limit.
// Unlike FindDuplicates this scores one note against the whole corpus
// rather than all pairs.
func FindSimilar(db *index.Database, noteID string, limit int, threshold float64) ([]SimilarityResult, error) {
	if threshold <= 0 {
		threshold = 0.3
	}

	target, err := db.NoteTermVector(noteID)
	if err != nil {
		return nil, err
	}
	if len(target) == 0 {
		return nil, nil
	}

	stats, err := db.GetStats()
	if err != nil {
		return nil, err
	}
	targetVec := TFIDFVector(stats, target)

	ids, err := db.ListNoteIDs()
	if err != nil {
		return nil, err
	}

	var out []SimilarityResult
	for _, id := range ids {
		if id == noteID {
			continue
		}
		tf, err := db.NoteTermVector(id)
		if err != nil {
			return nil, err
		}
		if len(tf) == 0 {
			continue
		}
		score := CosineSimilarity(targetVec, TFIDFVector(stats, tf))
		if score < threshold {
			continue
		}
		out = append(out, SimilarityResult{ID: id, Score: score})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// DuplicateCandidate pairs two notes whose TF-IDF cosine similarity
// exceeds a configured threshold, a coarse near-duplicate signal for
// doctor and corpus maintenance.
type DuplicateCandidate struct {
	IDA   string
	IDB   string
	Score float64
}

// FindDuplicates compares every pair of notes' TF-IDF vectors and
// returns those above threshold, sorted by score descending. O(n^2) in
// note count; intended for periodic maintenance runs, not interactive
// use.
func FindDuplicates(db *index.Database, threshold float64) ([]DuplicateCandidate, error) {
	if threshold <= 0 || threshold > 1 {
		return nil, qerrors.Otherf("duplicate threshold must be in (0, 1], got %v", threshold)
	}
	ids, err := db.ListNoteIDs()
	if err != nil {
		return nil, err
	}
	stats, err := db.GetStats()
	if err != nil {
		return nil, err
	}

	vectors := make(map[string]map[string]float64, len(ids))
	for _, id := range ids {
		tf, err := db.NoteTermVector(id)
		if err != nil {
			return nil, err
		}
		if len(tf) == 0 {
			continue
		}
		vectors[id] = TFIDFVector(stats, tf)
	}

	var out []DuplicateCandidate
	for i := 0; i < len(ids); i++ {
		vecA, ok := vectors[ids[i]]
		if !ok {
			continue
		}
		for j := i + 1; j < len(ids); j++ {
			vecB, ok := vectors[ids[j]]
			if !ok {
				continue
			}
			score := CosineSimilarity(vecA, vecB)
			if score >= threshold {
				out = append(out, DuplicateCandidate{IDA: ids[i], IDB: ids[j], Score: score})
			}
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}
