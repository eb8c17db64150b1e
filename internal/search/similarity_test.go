package search

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwaldstein/qipu-sub000/internal/index"
	"github.com/mwaldstein/qipu-sub000/internal/noteparse"
	"github.com/mwaldstein/qipu-sub000/internal/storeconfig"
)

func openSimilarityTestDB(t *testing.T) (*index.Database, string) {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "notes"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "mocs"), 0o755))
	db, err := index.Open(root, storeconfig.Default())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, root
}

func upsertSimilarityNote(t *testing.T, db *index.Database, root, id, title, body string) {
	t.Helper()
	path := filepath.Join(root, "notes", id+".md")
	content := "---\nid: " + id + "\ntitle: " + title + "\n---\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	n, err := noteparse.Parse(path, []byte(content))
	require.NoError(t, err)
	require.NoError(t, db.UpsertNote(n))
}

func TestCosineSimilarityOfIdenticalVectorsIsOne(t *testing.T) {
	v := map[string]float64{"graph": 2.0, "theory": 1.0}
	assert.InDelta(t, 1.0, CosineSimilarity(v, v), 0.0001)
}

func TestCosineSimilarityZeroNormIsZero(t *testing.T) {
	empty := map[string]float64{}
	v := map[string]float64{"graph": 1.0}
	assert.Equal(t, 0.0, CosineSimilarity(empty, v))
	assert.Equal(t, 0.0, CosineSimilarity(v, empty))
}

func TestCosineSimilarityOfDisjointVectorsIsZero(t *testing.T) {
	a := map[string]float64{"graph": 1.0}
	b := map[string]float64{"tokenize": 1.0}
	assert.Equal(t, 0.0, CosineSimilarity(a, b))
}

func TestTFIDFVectorUnseenTermDefaultsDFToOne(t *testing.T) {
	stats := index.Stats{TotalDocs: 9, TermDF: map[string]int{}}
	vec := TFIDFVector(stats, map[string]float64{"novel": 2.0})
	// idf = ln((9+1)/(1+1)) + 1 = ln(5) + 1
	want := 2.0 * (1.6094379124341003 + 1.0)
	assert.InDelta(t, want, vec["novel"], 0.0001)
}

func TestTFIDFVectorKnownTermUsesCorpusDF(t *testing.T) {
	stats := index.Stats{TotalDocs: 9, TermDF: map[string]int{"common": 9}}
	vec := TFIDFVector(stats, map[string]float64{"common": 1.0})
	// idf = ln((9+1)/(9+1)) + 1 = 1.0
	assert.InDelta(t, 1.0, vec["common"], 0.0001)
}

func TestFindSimilarRanksAndThresholdsCorpusNeighbors(t *testing.T) {
	db, root := openSimilarityTestDB(t)
	upsertSimilarityNote(t, db, root, "qp-1", "Graph traversal notes", "graph traversal breadth first search")
	upsertSimilarityNote(t, db, root, "qp-2", "Graph search notes", "graph traversal depth first search")
	upsertSimilarityNote(t, db, root, "qp-3", "Unrelated cooking", "recipe for bread and butter")

	results, err := FindSimilar(db, "qp-1", 10, 0)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "qp-2", results[0].ID, "qp-2 shares far more vocabulary with qp-1 than qp-3 does")
	for _, r := range results {
		assert.NotEqual(t, "qp-1", r.ID)
	}
}

func TestFindSimilarLimitTruncates(t *testing.T) {
	db, root := openSimilarityTestDB(t)
	upsertSimilarityNote(t, db, root, "qp-1", "Graph traversal notes", "graph traversal breadth first search")
	upsertSimilarityNote(t, db, root, "qp-2", "Graph search notes", "graph traversal depth first search")
	upsertSimilarityNote(t, db, root, "qp-3", "Graph theory notes", "graph traversal shortest path search")

	results, err := FindSimilar(db, "qp-1", 1, 0)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestFindSimilarEmptyForUnknownOrEmptyNote(t *testing.T) {
	db, _ := openSimilarityTestDB(t)
	results, err := FindSimilar(db, "qp-missing", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}
