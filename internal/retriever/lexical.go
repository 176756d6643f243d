package retriever

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/docqa/docqa/internal/model"
)

// LexicalBackend is a TF-IDF weighted sparse index over the accumulated
// corpus. Vocabulary and IDF weights depend on every retained chunk, so each
// Add rebuilds the whole representation instead of appending — the opposite
// of the dense backend's append-only discipline. Similarity is cosine over
// L2-normalized weighted vectors, which already lands scores in [0,1].
type LexicalBackend struct {
	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}

	mu      sync.RWMutex
	chunks  []model.Chunk
	vocab   map[string]int
	idf     []float64
	vectors [][]float64
}

func NewLexicalBackend() *LexicalBackend {
	return &LexicalBackend{
		tokenPattern: regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`),
		stopwords:    defaultStopwords(),
	}
}

func (b *LexicalBackend) Add(ctx context.Context, chunks []model.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.chunks = append(b.chunks, chunks...)
	b.rebuildLocked()
	logutil.GetLogger(ctx).Info("lexical index rebuilt",
		zap.Int("added", len(chunks)),
		zap.Int("total_chunks", len(b.chunks)),
		zap.Int("vocabulary", len(b.vocab)),
	)
	return len(chunks), nil
}

func (b *LexicalBackend) Search(ctx context.Context, query string, topK int) ([]model.SearchResult, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.chunks) == 0 {
		return nil, nil
	}
	queryVec := b.weightLocked(query)
	scores := make([]float64, len(b.vectors))
	for i, vec := range b.vectors {
		scores[i] = dot(queryVec, vec)
	}
	return rankResults(b.chunks, scores, topK), nil
}

func (b *LexicalBackend) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return Stats{
		TotalChunks: len(b.chunks),
		IndexSize:   len(b.vectors),
		Dimension:   len(b.vocab),
		Model:       "tfidf",
	}
}

func (b *LexicalBackend) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.chunks = nil
	b.vocab = nil
	b.idf = nil
	b.vectors = nil
}

// rebuildLocked recomputes vocabulary, smoothed IDF weights, and per-chunk
// vectors from the full retained chunk set. Caller holds the write lock.
func (b *LexicalBackend) rebuildLocked() {
	df := make(map[string]int)
	tokenized := make([][]string, len(b.chunks))
	for i, ch := range b.chunks {
		tokens := b.tokenize(ch.Text)
		tokenized[i] = tokens
		seen := make(map[string]struct{}, len(tokens))
		for _, tok := range tokens {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}
	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	b.vocab = make(map[string]int, len(terms))
	b.idf = make([]float64, len(terms))
	n := float64(len(b.chunks))
	for i, term := range terms {
		b.vocab[term] = i
		b.idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1.0
	}
	b.vectors = make([][]float64, len(b.chunks))
	for i := range b.chunks {
		b.vectors[i] = b.weightTokens(tokenized[i])
	}
}

func (b *LexicalBackend) weightLocked(text string) []float64 {
	return b.weightTokens(b.tokenize(text))
}

func (b *LexicalBackend) weightTokens(tokens []string) []float64 {
	vec := make([]float64, len(b.vocab))
	tf := make(map[int]int)
	total := 0
	for _, tok := range tokens {
		if idx, ok := b.vocab[tok]; ok {
			tf[idx]++
			total++
		}
	}
	if total == 0 {
		return vec
	}
	norm := 0.0
	for idx, count := range tf {
		v := float64(count) / float64(total) * b.idf[idx]
		vec[idx] = v
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for idx := range tf {
			vec[idx] /= norm
		}
	}
	return vec
}

func (b *LexicalBackend) tokenize(text string) []string {
	raw := b.tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, t := range raw {
		if _, isStop := b.stopwords[t]; isStop {
			continue
		}
		out = append(out, t)
	}
	return out
}

func dot(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to",
		"of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were",
		"be", "been", "being", "it", "this", "that", "these", "those", "from",
		"up", "down", "over", "under", "again", "than", "so", "such", "into",
		"about", "between", "through", "during", "before", "after", "above",
		"below", "out", "off", "own", "same", "too", "very", "can", "will",
		"just", "should", "now",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
