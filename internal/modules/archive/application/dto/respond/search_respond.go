package respond

// SearchHit is one ranked chunk returned by the search surfaces.
type SearchHit struct {
	VectorID     string  `json:"vector_id"`
	ChunkID      int64   `json:"chunk_id"`
	DocID        string  `json:"doc_id"`
	ChunkIdx     int     `json:"chunk_idx"`
	SourceType   string  `json:"source_type"`
	Score        float32 `json:"score"`
	QualityScore float64 `json:"quality_score"`
	Content      string  `json:"content"`
}

type SearchRespond struct {
	QueryID       string      `json:"query_id"`
	Query         string      `json:"query"`
	Hits          []SearchHit `json:"hits"`
	TotalHits     int         `json:"total_hits"`
	ReturnedCount int         `json:"returned_count"`
	DurationMs    int64       `json:"duration_ms"`
	EmbeddingMs   int64       `json:"embedding_ms"`
	SearchMs      int64       `json:"search_ms"`
	IsEmpty       bool        `json:"is_empty"`
	Message       string      `json:"message"`
}
