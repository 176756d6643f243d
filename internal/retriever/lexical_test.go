package retriever

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/docqa/docqa/internal/model"
)

func lexicalChunks(texts ...string) []model.Chunk {
	chunks := make([]model.Chunk, 0, len(texts))
	for i, text := range texts {
		chunks = append(chunks, model.Chunk{Text: text, Filename: "doc.txt", ChunkIndex: i, TokenEstimate: 1})
	}
	return chunks
}

func TestLexicalSearch_ExactTextRanksFirst(t *testing.T) {
	b := NewLexicalBackend()
	_, err := b.Add(context.Background(), lexicalChunks(
		"cats chase mice around old barns",
		"dogs guard houses near quiet streets",
		"fish swim deep below cold rivers",
	))
	require.NoError(t, err)

	results, err := b.Search(context.Background(), "dogs guard houses near quiet streets", 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	require.Equal(t, 1, results[0].Chunk.ChunkIndex)
	require.InDelta(t, 1.0, results[0].Score, 1e-9)
	for _, r := range results {
		require.GreaterOrEqual(t, r.Score, 0.0)
		require.LessOrEqual(t, r.Score, 1.0+1e-9)
	}
}

func TestLexicalAdd_RebuildsOverFullCorpus(t *testing.T) {
	b := NewLexicalBackend()
	_, err := b.Add(context.Background(), lexicalChunks("cats chase mice"))
	require.NoError(t, err)
	firstDim := b.Stats().Dimension

	_, err = b.Add(context.Background(), []model.Chunk{
		{Text: "volcanoes erupt molten lava", Filename: "geo.txt", ChunkIndex: 0},
	})
	require.NoError(t, err)

	stats := b.Stats()
	require.Equal(t, 2, stats.TotalChunks)
	require.Equal(t, 2, stats.IndexSize)
	// New vocabulary from the second document widens the feature space.
	require.Greater(t, stats.Dimension, firstDim)
	require.Equal(t, "tfidf", stats.Model)

	// Chunks from the first ingestion stay searchable after the rebuild.
	results, err := b.Search(context.Background(), "cats chase mice", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "cats chase mice", results[0].Chunk.Text)
}

func TestLexicalSearch_EmptyStore(t *testing.T) {
	b := NewLexicalBackend()
	results, err := b.Search(context.Background(), "anything", 5)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestLexicalSearch_ClampsTopK(t *testing.T) {
	b := NewLexicalBackend()
	_, err := b.Add(context.Background(), lexicalChunks("cats chase mice", "dogs guard houses"))
	require.NoError(t, err)

	results, err := b.Search(context.Background(), "cats", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
}

func TestLexicalSearch_NoMatchingTerms(t *testing.T) {
	b := NewLexicalBackend()
	_, err := b.Add(context.Background(), lexicalChunks("cats chase mice"))
	require.NoError(t, err)

	// Unknown vocabulary yields zero scores but still honors the result
	// shape contract.
	results, err := b.Search(context.Background(), "zzqx", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, 0.0, results[0].Score)
	require.Equal(t, 1, results[0].Rank)
}

func TestLexicalClear_ResetsState(t *testing.T) {
	b := NewLexicalBackend()
	_, err := b.Add(context.Background(), lexicalChunks("cats chase mice"))
	require.NoError(t, err)

	b.Clear()
	stats := b.Stats()
	require.Equal(t, 0, stats.TotalChunks)
	require.Equal(t, 0, stats.Dimension)

	results, err := b.Search(context.Background(), "cats", 3)
	require.NoError(t, err)
	require.Empty(t, results)
}
