package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/docqa/docqa/internal/chunker"
	"github.com/docqa/docqa/internal/loader"
	"github.com/docqa/docqa/internal/retriever"
)

var (
	// ErrExtractionEmpty marks a document that yields no usable text.
	ErrExtractionEmpty = errors.New("no text content extracted from document")
	// ErrChunkingEmpty marks non-empty text that produced zero chunks.
	ErrChunkingEmpty = errors.New("failed to create chunks from document")
)

// IngestResult summarizes one successful ingestion.
type IngestResult struct {
	Filename      string
	ChunksCreated int
	TotalChunks   int
}

// IngestService turns uploaded bytes into indexed chunks.
type IngestService struct {
	chunker *chunker.Chunker
	backend retriever.Backend
}

func NewIngestService(c *chunker.Chunker, backend retriever.Backend) *IngestService {
	return &IngestService{chunker: c, backend: backend}
}

func (s *IngestService) Ingest(ctx context.Context, content []byte, filename string) (*IngestResult, error) {
	text, err := loader.Load(content, filename)
	if err != nil {
		return nil, fmt.Errorf("extract text: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrExtractionEmpty
	}
	chunks := s.chunker.Chunk(ctx, text, filename)
	if len(chunks) == 0 {
		return nil, ErrChunkingEmpty
	}
	added, err := s.backend.Add(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("index chunks: %w", err)
	}
	total := s.backend.Stats().TotalChunks
	logutil.GetLogger(ctx).Info("document ingested",
		zap.String("filename", filename),
		zap.Int("chunks_created", added),
		zap.Int("total_chunks", total),
	)
	return &IngestResult{Filename: filename, ChunksCreated: added, TotalChunks: total}, nil
}

// Stats reports the backend's current index statistics.
func (s *IngestService) Stats() retriever.Stats {
	return s.backend.Stats()
}

// Clear drops every ingested chunk; the next Ingest starts a fresh index.
func (s *IngestService) Clear(ctx context.Context) {
	s.backend.Clear()
	logutil.GetLogger(ctx).Info("retrieval store cleared")
}
