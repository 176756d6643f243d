package retriever

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/docqa/docqa/internal/model"
)

// EmbedFunc turns text into a fixed-length vector. The numerics behind it
// are a black box; the dense backend only requires a stable dimension.
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

// DenseBackend is a flat similarity index over normalized embedding
// vectors. Ingestion is append-only: new vectors join the index without
// touching prior entries. Distances are Euclidean on normalized vectors and
// converted to scores via 1/(1+distance), so scores fall in (0,1] and
// decrease monotonically with distance.
type DenseBackend struct {
	embed     EmbedFunc
	modelName string

	mu        sync.RWMutex
	dimension int
	vectors   [][]float64
	chunks    []model.Chunk
}

func NewDenseBackend(embed EmbedFunc, modelName string) *DenseBackend {
	return &DenseBackend{embed: embed, modelName: modelName}
}

func (b *DenseBackend) Add(ctx context.Context, chunks []model.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}
	// Embed outside the lock; only the append mutates shared state.
	vectors := make([][]float64, 0, len(chunks))
	for _, ch := range chunks {
		vec, err := b.embedNormalized(ctx, ch.Text)
		if err != nil {
			return 0, fmt.Errorf("embed chunk %d of %s: %w", ch.ChunkIndex, ch.Filename, err)
		}
		vectors = append(vectors, vec)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	// Validate the whole batch before touching the index so a bad vector
	// cannot leave a partially applied Add behind.
	dim := b.dimension
	if dim == 0 {
		dim = len(vectors[0])
	}
	for _, vec := range vectors {
		if len(vec) != dim {
			return 0, fmt.Errorf("embedding dimension mismatch: got %d, index has %d", len(vec), dim)
		}
	}
	b.dimension = dim
	b.vectors = append(b.vectors, vectors...)
	b.chunks = append(b.chunks, chunks...)
	logutil.GetLogger(ctx).Info("chunks added to dense index",
		zap.Int("added", len(chunks)),
		zap.Int("index_size", len(b.vectors)),
	)
	return len(chunks), nil
}

func (b *DenseBackend) Search(ctx context.Context, query string, topK int) ([]model.SearchResult, error) {
	b.mu.RLock()
	empty := len(b.chunks) == 0
	b.mu.RUnlock()
	if empty {
		return nil, nil
	}
	queryVec, err := b.embedNormalized(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	scores := make([]float64, len(b.vectors))
	for i, vec := range b.vectors {
		scores[i] = 1 / (1 + euclidean(queryVec, vec))
	}
	return rankResults(b.chunks, scores, topK), nil
}

func (b *DenseBackend) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return Stats{
		TotalChunks: len(b.chunks),
		IndexSize:   len(b.vectors),
		Dimension:   b.dimension,
		Model:       b.modelName,
	}
}

func (b *DenseBackend) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.vectors = nil
	b.chunks = nil
}

func (b *DenseBackend) embedNormalized(ctx context.Context, text string) ([]float64, error) {
	raw, err := b.embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("embedder returned empty vector")
	}
	vec := make([]float64, len(raw))
	norm := 0.0
	for i, v := range raw {
		vec[i] = float64(v)
		norm += vec[i] * vec[i]
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec, nil
}

func euclidean(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
