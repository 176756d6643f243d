package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/docqa/docqa/internal/chunker"
	"github.com/docqa/docqa/internal/llm"
	"github.com/docqa/docqa/internal/model"
	"github.com/docqa/docqa/internal/retriever"
)

var (
	// ErrEmptyStore is returned when a question arrives before any document
	// has been ingested.
	ErrEmptyStore = errors.New("no documents uploaded, please upload a document first")
	// ErrNoRelevantResults is returned when retrieval finds nothing for a
	// question against a non-empty store.
	ErrNoRelevantResults = errors.New("no relevant content found for your question")
)

// GenerationError is a routing failure that happened after retrieval
// succeeded; it carries the citations so callers can still show what the
// answer would have been grounded on.
type GenerationError struct {
	Citations []model.Citation
	Err       error
}

func (e *GenerationError) Error() string { return e.Err.Error() }
func (e *GenerationError) Unwrap() error { return e.Err }

// AskResult is a fully answered question.
type AskResult struct {
	Answer        string
	Citations     []model.Citation
	ModelUsed     string
	ChunksUsed    int
	ContextTokens int
}

// QAService runs the question pipeline: retrieve, assemble context, route
// to a model, cite.
type QAService struct {
	backend retriever.Backend
	router  *llm.Router
}

func NewQAService(backend retriever.Backend, router *llm.Router) *QAService {
	return &QAService{backend: backend, router: router}
}

func (s *QAService) Ask(ctx context.Context, question string, topK int) (*AskResult, error) {
	if s.backend.Stats().TotalChunks == 0 {
		return nil, ErrEmptyStore
	}
	results, err := s.backend.Search(ctx, question, topK)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	if len(results) == 0 {
		return nil, ErrNoRelevantResults
	}

	contextText := BuildContext(results)
	totalTokens := chunker.EstimateTokens(contextText) + chunker.EstimateTokens(question) + promptOverheadTokens
	prompt := fmt.Sprintf(ragPromptTemplate, contextText, question)

	logutil.GetLogger(ctx).Info("asking with retrieved context",
		zap.Int("chunks_used", len(results)),
		zap.Int("context_tokens", totalTokens),
	)

	outcome, err := s.router.Generate(ctx, prompt, totalTokens)
	if err != nil {
		return nil, &GenerationError{Citations: FormatCitations(results), Err: err}
	}
	return &AskResult{
		Answer:        outcome.Text,
		Citations:     FormatCitations(results),
		ModelUsed:     outcome.ModelName,
		ChunksUsed:    len(results),
		ContextTokens: totalTokens,
	}, nil
}

// AvailableModels exposes the router's priority-ordered model names.
func (s *QAService) AvailableModels() []string {
	return s.router.AvailableModels()
}
