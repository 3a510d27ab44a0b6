package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercase and strip punctuation", "Graph Neural Networks: A Survey!", "graph neural networks a survey"},
		{"collapse whitespace", "deep   learning \t methods", "deep learning methods"},
		{"already normalized", "attention is all you need", "attention is all you need"},
		{"empty", "", ""},
		{"punctuation only", "...!!!", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeTitle(tt.input))
		})
	}
}

func TestTitleSimilarity_IdenticalTitles(t *testing.T) {
	assert.Equal(t, 1.0, TitleSimilarity("Graph Neural Networks", "graph neural networks"))
}

func TestTitleSimilarity_SmallEdit(t *testing.T) {
	// One character apart: normalized distance formula applies.
	sim := TitleSimilarity("graph neural networks", "graph neural network")
	assert.Greater(t, sim, 0.94)
	assert.Less(t, sim, 1.0)
}

func TestTitleSimilarity_ReorderedWords(t *testing.T) {
	// Large edit distance, bigram Jaccard fallback.
	sim := TitleSimilarity(
		"a survey of graph neural networks",
		"graph neural networks a survey",
	)
	assert.Greater(t, sim, 0.3)
	assert.Less(t, sim, 0.85)
}

func TestTitleSimilarity_UnrelatedTitles(t *testing.T) {
	sim := TitleSimilarity(
		"quantum error correction codes",
		"social media sentiment analysis",
	)
	assert.Less(t, sim, 0.2)
}

func TestTitleSimilarity_EmptyInput(t *testing.T) {
	assert.Equal(t, 0.0, TitleSimilarity("", "anything"))
	assert.Equal(t, 0.0, TitleSimilarity("anything", ""))
}

func TestEditDistance(t *testing.T) {
	assert.Equal(t, 0, editDistance("abc", "abc"))
	assert.Equal(t, 1, editDistance("abc", "abd"))
	assert.Equal(t, 3, editDistance("", "abc"))
	assert.Equal(t, 3, editDistance("kitten", "sitting"))
}

func TestJaccardSimilarity_Bounds(t *testing.T) {
	a := map[string]bool{"x": true, "y": true}
	b := map[string]bool{"y": true, "z": true}
	assert.InDelta(t, 1.0/3.0, JaccardSimilarity(a, b), 1e-9)
	assert.Equal(t, 1.0, JaccardSimilarity(map[string]bool{}, map[string]bool{}))
	assert.Equal(t, 0.0, JaccardSimilarity(a, map[string]bool{}))
}
