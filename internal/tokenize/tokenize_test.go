package tokenize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenizeLowercasesAndSplits(t *testing.T) {
	got := Tokenize("The Quick-Brown Fox, jumps!")
	assert.Equal(t, []string{"quick", "brown", "fox", "jumps"}, got)
}

func TestTokenizeDropsStopWords(t *testing.T) {
	got := Tokenize("this is a note about the graph and its edges")
	assert.Equal(t, []string{"note", "about", "graph", "its", "edges"}, got)
}

func TestTokenizeEmpty(t *testing.T) {
	assert.Empty(t, Tokenize(""))
	assert.Empty(t, Tokenize("   "))
	assert.Empty(t, Tokenize("the a an"))
}

func TestTokenizeNumbers(t *testing.T) {
	got := Tokenize("note qp-1234 v2")
	assert.Equal(t, []string{"note", "qp", "1234", "v2"}, got)
}

func TestTermFreqsAccumulatesAcrossFields(t *testing.T) {
	into := map[string]float64{}
	TermFreqs("graph theory", 2.0, into)
	TermFreqs("graph traversal", 1.0, into)
	assert.Equal(t, 3.0, into["graph"])
	assert.Equal(t, 2.0, into["theory"])
	assert.Equal(t, 1.0, into["traversal"])
}
