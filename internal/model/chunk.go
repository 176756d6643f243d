package model

// Chunk is a bounded, citable segment of a document. Chunks are immutable
// once produced by the chunker; the retrieval backend owns them after Add.
type Chunk struct {
	Text          string `json:"text"`
	Filename      string `json:"filename"`
	ChunkIndex    int    `json:"chunk_index"`
	TokenEstimate int    `json:"token_estimate"`
}

// SearchResult is a scored chunk returned by a retrieval backend.
// Score is in [0,1], higher is more relevant. Rank is 1-based.
type SearchResult struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
	Rank  int     `json:"rank"`
}

// Citation references the chunk an answer was grounded on.
type Citation struct {
	Filename       string  `json:"filename"`
	ChunkIndex     int     `json:"chunk_index"`
	TextPreview    string  `json:"text_preview"`
	RelevanceScore float64 `json:"relevance_score"`
}
