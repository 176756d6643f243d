package chunker

import (
	"context"
	"math"
	"regexp"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/docqa/docqa/internal/model"
)

const (
	defaultTargetTokens  = 600
	defaultOverlapTokens = 100
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// Chunker splits document text into overlapping sentence-window chunks.
// Chunking is deterministic: the same input always yields the same chunks.
type Chunker struct {
	targetTokens  int
	overlapTokens int
}

func New(targetTokens, overlapTokens int) *Chunker {
	if targetTokens <= 0 {
		targetTokens = defaultTargetTokens
	}
	if overlapTokens < 0 {
		overlapTokens = defaultOverlapTokens
	}
	return &Chunker{targetTokens: targetTokens, overlapTokens: overlapTokens}
}

// EstimateTokens approximates LLM token usage as round(words * 1.3).
// It is a fixed heuristic, not a tokenizer; the retrieval and routing layers
// rely on this exact formula for context-size accounting.
func EstimateTokens(text string) int {
	words := len(strings.Fields(text))
	return int(math.Round(float64(words) * 1.3))
}

// Chunk splits text into ordered chunks for filename. Empty or
// whitespace-only input yields no chunks.
func (c *Chunker) Chunk(ctx context.Context, text string, filename string) []model.Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	text = strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
	sentences := splitSentences(text)

	var chunks []model.Chunk
	var current []string
	currentTokens := 0
	index := 0

	flush := func(parts []string) {
		joined := strings.Join(parts, " ")
		chunks = append(chunks, model.Chunk{
			Text:          joined,
			Filename:      filename,
			ChunkIndex:    index,
			TokenEstimate: EstimateTokens(joined),
		})
		index++
	}

	for _, sentence := range sentences {
		sentenceTokens := EstimateTokens(sentence)

		// A single sentence larger than the window falls back to
		// word-granularity splitting with proportional word overlap.
		if sentenceTokens > c.targetTokens {
			if len(current) > 0 {
				flush(current)
				current = nil
				currentTokens = 0
			}
			words := strings.Fields(sentence)
			var wordBuf []string
			wordTokens := 0
			for _, word := range words {
				wordTokenCount := EstimateTokens(word)
				if wordTokens+wordTokenCount > c.targetTokens && len(wordBuf) > 0 {
					flush(wordBuf)
					overlapWords := len(wordBuf) * c.overlapTokens / c.targetTokens
					if overlapWords < 1 {
						overlapWords = 1
					}
					// Overlap can never exceed the flushed buffer, even when
					// the configured overlap is larger than the window.
					if overlapWords > len(wordBuf) {
						overlapWords = len(wordBuf)
					}
					wordBuf = append([]string(nil), wordBuf[len(wordBuf)-overlapWords:]...)
					wordTokens = EstimateTokens(strings.Join(wordBuf, " "))
				}
				wordBuf = append(wordBuf, word)
				wordTokens += wordTokenCount
			}
			// Leftover words seed the next sentence buffer so they can
			// merge with whatever follows.
			if len(wordBuf) > 0 {
				current = wordBuf
				currentTokens = wordTokens
			}
			continue
		}

		if currentTokens+sentenceTokens > c.targetTokens && len(current) > 0 {
			flush(current)
			// Seed the next buffer with a suffix of whole sentences whose
			// cumulative estimate fits within the overlap budget.
			overlapTokens := 0
			var overlap []string
			for i := len(current) - 1; i >= 0; i-- {
				t := EstimateTokens(current[i])
				if overlapTokens+t > c.overlapTokens {
					break
				}
				overlap = append([]string{current[i]}, overlap...)
				overlapTokens += t
			}
			current = overlap
			currentTokens = overlapTokens
		}

		current = append(current, sentence)
		currentTokens += sentenceTokens
	}

	if len(current) > 0 {
		flush(current)
	}

	logutil.GetLogger(ctx).Debug("chunking completed",
		zap.String("filename", filename),
		zap.Int("sentences", len(sentences)),
		zap.Int("chunks", len(chunks)),
	)
	return chunks
}

// splitSentences splits normalized text at sentence terminators followed by
// whitespace. The terminator stays with its sentence. Text without any
// terminator comes back as a single sentence.
func splitSentences(text string) []string {
	var sentences []string
	runes := []rune(text)
	start := 0
	for i := 0; i < len(runes)-1; i++ {
		if isTerminator(runes[i]) && runes[i+1] == ' ' {
			sentences = append(sentences, string(runes[start:i+1]))
			start = i + 2
			i++
		}
	}
	if start < len(runes) {
		sentences = append(sentences, string(runes[start:]))
	}
	return sentences
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
