package service

import (
	"fmt"
	"math"
	"strings"

	"github.com/docqa/docqa/internal/model"
)

const (
	contextSeparator = "\n\n---\n\n"
	previewMaxRunes  = 200

	// Fixed allowance for the prompt template text around the context.
	promptOverheadTokens = 150
)

const ragPromptTemplate = `You are a retrieval-augmented assistant.
Answer using ONLY the provided context.
If the answer is not in the context, say "I don't know."

Cite sources using:
[source: filename, chunk]

Context:
%s

Question:
%s

Answer:`

// BuildContext renders ranked results into the prompt context, one labeled
// block per chunk, preserving the input order.
func BuildContext(results []model.SearchResult) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		parts = append(parts, fmt.Sprintf("[source: %s, chunk %d]\n%s", r.Chunk.Filename, r.Chunk.ChunkIndex, r.Chunk.Text))
	}
	return strings.Join(parts, contextSeparator)
}

// FormatCitations produces one citation per result with a bounded text
// preview and the score rounded to three decimals.
func FormatCitations(results []model.SearchResult) []model.Citation {
	citations := make([]model.Citation, 0, len(results))
	for _, r := range results {
		preview := r.Chunk.Text
		if runes := []rune(preview); len(runes) > previewMaxRunes {
			preview = string(runes[:previewMaxRunes]) + "..."
		}
		citations = append(citations, model.Citation{
			Filename:       r.Chunk.Filename,
			ChunkIndex:     r.Chunk.ChunkIndex,
			TextPreview:    preview,
			RelevanceScore: math.Round(r.Score*1000) / 1000,
		})
	}
	return citations
}
