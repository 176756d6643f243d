package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/docqa/docqa/internal/chunker"
	"github.com/docqa/docqa/internal/llm"
	"github.com/docqa/docqa/internal/model"
	"github.com/docqa/docqa/internal/retriever"
)

type generatorFunc func(ctx context.Context, prompt string) (string, error)

func (f generatorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

func testRouter(gen generatorFunc) *llm.Router {
	return llm.NewRouter([]llm.Entry{{
		Spec:      llm.ModelSpec{Name: "stub", Identifier: "stub", MaxContextTokens: 100000, Timeout: time.Second},
		Generator: gen,
	}})
}

func echoGenerator(answer string, lastPrompt *string) generatorFunc {
	return func(_ context.Context, prompt string) (string, error) {
		if lastPrompt != nil {
			*lastPrompt = prompt
		}
		return answer, nil
	}
}

func TestAsk_EmptyStore(t *testing.T) {
	svc := NewQAService(retriever.NewLexicalBackend(), testRouter(echoGenerator("x", nil)))
	_, err := svc.Ask(context.Background(), "anything?", 3)
	require.ErrorIs(t, err, ErrEmptyStore)
}

func TestAsk_EndToEndSingleChunk(t *testing.T) {
	backend := retriever.NewLexicalBackend()
	ingest := NewIngestService(chunker.New(600, 100), backend)
	_, err := ingest.Ingest(context.Background(),
		[]byte("Cats are mammals. Dogs are mammals too. Fish are not mammals."), "animals.txt")
	require.NoError(t, err)

	var prompt string
	svc := NewQAService(backend, testRouter(echoGenerator("Cats and dogs are mammals.", &prompt)))
	res, err := svc.Ask(context.Background(), "What are mammals?", 3)
	require.NoError(t, err)
	require.Equal(t, "Cats and dogs are mammals.", res.Answer)
	require.Equal(t, "stub", res.ModelUsed)
	require.Equal(t, 1, res.ChunksUsed)
	require.Len(t, res.Citations, 1)
	require.Equal(t, "animals.txt", res.Citations[0].Filename)
	require.Equal(t, 0, res.Citations[0].ChunkIndex)
	require.Contains(t, prompt, "[source: animals.txt, chunk 0]")
	require.Contains(t, prompt, "What are mammals?")
	require.Greater(t, res.ContextTokens, promptOverheadTokens)
}

func TestAsk_GenerationFailureCarriesCitations(t *testing.T) {
	backend := retriever.NewLexicalBackend()
	ingest := NewIngestService(chunker.New(600, 100), backend)
	_, err := ingest.Ingest(context.Background(), []byte("Cats are mammals."), "animals.txt")
	require.NoError(t, err)

	failRouter := llm.NewRouter([]llm.Entry{{
		Spec:      llm.ModelSpec{Name: "broken", MaxContextTokens: 100000, Timeout: time.Second},
		Generator: generatorFunc(func(context.Context, string) (string, error) { return "", errors.New("down") }),
	}})
	svc := NewQAService(backend, failRouter)
	_, err = svc.Ask(context.Background(), "What are mammals?", 3)

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	require.Len(t, genErr.Citations, 1)
	require.Equal(t, "animals.txt", genErr.Citations[0].Filename)
	var allFailed *llm.AllFailedError
	require.ErrorAs(t, err, &allFailed)
}

func TestAsk_NoEligibleModelSurfaces(t *testing.T) {
	backend := retriever.NewLexicalBackend()
	ingest := NewIngestService(chunker.New(600, 100), backend)
	_, err := ingest.Ingest(context.Background(), []byte("Cats are mammals."), "animals.txt")
	require.NoError(t, err)

	tinyRouter := llm.NewRouter([]llm.Entry{{
		Spec:      llm.ModelSpec{Name: "tiny", MaxContextTokens: 1, Timeout: time.Second},
		Generator: echoGenerator("never", nil),
	}})
	svc := NewQAService(backend, tinyRouter)
	_, err = svc.Ask(context.Background(), "What are mammals?", 3)

	var noEligible *llm.NoEligibleModelError
	require.ErrorAs(t, err, &noEligible)
}

// stubBackend lets tests force retrieval outcomes the real backends cannot
// produce, such as zero results over a non-empty store.
type stubBackend struct {
	stats   retriever.Stats
	results []model.SearchResult
}

func (s *stubBackend) Add(ctx context.Context, chunks []model.Chunk) (int, error) {
	return len(chunks), nil
}
func (s *stubBackend) Search(ctx context.Context, query string, topK int) ([]model.SearchResult, error) {
	return s.results, nil
}
func (s *stubBackend) Stats() retriever.Stats { return s.stats }
func (s *stubBackend) Clear()                 {}

func TestAsk_NoRelevantResults(t *testing.T) {
	backend := &stubBackend{stats: retriever.Stats{TotalChunks: 4}}
	svc := NewQAService(backend, testRouter(echoGenerator("x", nil)))
	_, err := svc.Ask(context.Background(), "unrelated?", 3)
	require.ErrorIs(t, err, ErrNoRelevantResults)
}
