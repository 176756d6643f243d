package retriever

import (
	"context"
	"sort"

	"github.com/docqa/docqa/internal/model"
)

// Stats describes the current state of a backend's in-memory index.
type Stats struct {
	TotalChunks int    `json:"total_chunks"`
	IndexSize   int    `json:"index_size"`
	Dimension   int    `json:"dimension"`
	Model       string `json:"model"`
}

// Backend is the retrieval abstraction shared by the dense and lexical
// variants. The rest of the pipeline is agnostic to which one is configured.
//
// Add appends chunks and updates the searchable index; it does not
// deduplicate, so callers must avoid re-ingesting the same filename.
// Search returns at most topK results ordered by descending score, ties
// broken by ascending chunk index; an empty store yields an empty result,
// not an error. Clear resets the backend to its initial empty state.
type Backend interface {
	Add(ctx context.Context, chunks []model.Chunk) (int, error)
	Search(ctx context.Context, query string, topK int) ([]model.SearchResult, error)
	Stats() Stats
	Clear()
}

// rankResults sorts scored chunks into the shared result contract and
// assigns 1-based ranks to the top-k survivors.
func rankResults(chunks []model.Chunk, scores []float64, topK int) []model.SearchResult {
	if len(chunks) == 0 {
		return nil
	}
	if topK > len(chunks) {
		topK = len(chunks)
	}
	if topK <= 0 {
		return nil
	}
	order := make([]int, len(chunks))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		i, j := order[a], order[b]
		if scores[i] != scores[j] {
			return scores[i] > scores[j]
		}
		return chunks[i].ChunkIndex < chunks[j].ChunkIndex
	})
	results := make([]model.SearchResult, 0, topK)
	for rank := 0; rank < topK; rank++ {
		idx := order[rank]
		results = append(results, model.SearchResult{
			Chunk: chunks[idx],
			Score: scores[idx],
			Rank:  rank + 1,
		})
	}
	return results
}
