package retriever

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/docqa/docqa/internal/model"
)

// stubEmbed returns fixed vectors per text so distances are controlled.
func stubEmbed(vectors map[string][]float32) EmbedFunc {
	return func(_ context.Context, text string) ([]float32, error) {
		vec, ok := vectors[text]
		if !ok {
			return nil, fmt.Errorf("no stub vector for %q", text)
		}
		return vec, nil
	}
}

func denseChunk(text string, index int) model.Chunk {
	return model.Chunk{Text: text, Filename: "doc.txt", ChunkIndex: index, TokenEstimate: 1}
}

func TestDenseSearch_OrdersByDistance(t *testing.T) {
	embed := stubEmbed(map[string][]float32{
		"alpha": {1, 0},
		"beta":  {0, 1},
		"query": {1, 0},
	})
	b := NewDenseBackend(embed, "stub-model")
	added, err := b.Add(context.Background(), []model.Chunk{denseChunk("alpha", 0), denseChunk("beta", 1)})
	require.NoError(t, err)
	require.Equal(t, 2, added)

	results, err := b.Search(context.Background(), "query", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "alpha", results[0].Chunk.Text)
	require.Equal(t, 1, results[0].Rank)
	require.Equal(t, 2, results[1].Rank)
	// Zero distance maps to a perfect score; every score stays in (0,1].
	require.InDelta(t, 1.0, results[0].Score, 1e-9)
	require.Greater(t, results[0].Score, results[1].Score)
	require.Greater(t, results[1].Score, 0.0)
}

func TestDenseSearch_TieBreaksOnChunkIndex(t *testing.T) {
	embed := stubEmbed(map[string][]float32{
		"same":  {1, 0},
		"query": {1, 0},
	})
	b := NewDenseBackend(embed, "stub-model")
	chunks := []model.Chunk{
		{Text: "same", Filename: "doc.txt", ChunkIndex: 3},
		{Text: "same", Filename: "doc.txt", ChunkIndex: 1},
	}
	_, err := b.Add(context.Background(), chunks)
	require.NoError(t, err)

	results, err := b.Search(context.Background(), "query", 2)
	require.NoError(t, err)
	require.Equal(t, 1, results[0].Chunk.ChunkIndex)
	require.Equal(t, 3, results[1].Chunk.ChunkIndex)
}

func TestDenseSearch_ClampsTopK(t *testing.T) {
	embed := stubEmbed(map[string][]float32{
		"alpha": {1, 0},
		"beta":  {0, 1},
		"query": {1, 1},
	})
	b := NewDenseBackend(embed, "stub-model")
	_, err := b.Add(context.Background(), []model.Chunk{denseChunk("alpha", 0), denseChunk("beta", 1)})
	require.NoError(t, err)

	results, err := b.Search(context.Background(), "query", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
}

func TestDenseSearch_EmptyStore(t *testing.T) {
	b := NewDenseBackend(stubEmbed(nil), "stub-model")
	results, err := b.Search(context.Background(), "anything", 5)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestDenseClear_ResetsIndex(t *testing.T) {
	embed := stubEmbed(map[string][]float32{
		"alpha": {1, 0},
		"beta":  {0, 1},
	})
	b := NewDenseBackend(embed, "stub-model")
	_, err := b.Add(context.Background(), []model.Chunk{denseChunk("alpha", 0), denseChunk("beta", 1)})
	require.NoError(t, err)
	require.Equal(t, 2, b.Stats().TotalChunks)

	b.Clear()
	stats := b.Stats()
	require.Equal(t, 0, stats.TotalChunks)
	require.Equal(t, 0, stats.IndexSize)

	results, err := b.Search(context.Background(), "alpha", 3)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestDenseAdd_AppendOnly(t *testing.T) {
	embed := stubEmbed(map[string][]float32{
		"alpha": {1, 0},
		"beta":  {0, 1},
	})
	b := NewDenseBackend(embed, "stub-model")
	_, err := b.Add(context.Background(), []model.Chunk{denseChunk("alpha", 0)})
	require.NoError(t, err)
	_, err = b.Add(context.Background(), []model.Chunk{denseChunk("beta", 1)})
	require.NoError(t, err)

	stats := b.Stats()
	require.Equal(t, 2, stats.TotalChunks)
	require.Equal(t, 2, stats.IndexSize)
	require.Equal(t, 2, stats.Dimension)
	require.Equal(t, "stub-model", stats.Model)
}

func TestDenseAdd_DimensionMismatch(t *testing.T) {
	embed := stubEmbed(map[string][]float32{
		"alpha": {1, 0},
		"bad":   {1, 0, 0},
	})
	b := NewDenseBackend(embed, "stub-model")
	_, err := b.Add(context.Background(), []model.Chunk{denseChunk("alpha", 0)})
	require.NoError(t, err)
	_, err = b.Add(context.Background(), []model.Chunk{denseChunk("bad", 1)})
	require.Error(t, err)
	require.Equal(t, 1, b.Stats().TotalChunks)

	// A failed batch must not leave any of its entries behind, even the
	// ones that preceded the bad vector.
	_, err = b.Add(context.Background(), []model.Chunk{denseChunk("alpha", 1), denseChunk("bad", 2)})
	require.Error(t, err)
	stats := b.Stats()
	require.Equal(t, 1, stats.TotalChunks)
	require.Equal(t, 1, stats.IndexSize)
}
