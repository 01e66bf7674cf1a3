package repository

import "context"

// VectorIndex is the domain-level abstraction over the vector database.
//
// application and domain code depend on this interface only; infrastructure
// adapts a concrete backend (Milvus here). IDs are deterministic UUID strings
// derived from business keys, never surrogate keys.

// VectorPoint is the full payload stored per vector id.
type VectorPoint struct {
	ID           string
	Vector       []float32
	ChunkID      int64
	DocID        string
	ChunkIdx     int
	QualityScore float64
	SourceType   string
	Timestamp    string
	Content      string
}

// VectorSearchHit is one ANN search result.
type VectorSearchHit struct {
	ID           string
	Score        float32
	ChunkID      int64
	DocID        string
	ChunkIdx     int
	QualityScore float64
	SourceType   string
	Content      string
}

type VectorIndex interface {
	// Upsert writes points in one batch and returns the ids written.
	Upsert(ctx context.Context, points []VectorPoint) ([]string, error)

	// DeleteByIDs removes points by id.
	DeleteByIDs(ctx context.Context, ids []string) error

	// FetchPoints loads points (vector included) by id; absent ids are skipped.
	FetchPoints(ctx context.Context, ids []string) ([]VectorPoint, error)

	// ScrollIDs pages through the full id set, invoking fn per page. It never
	// loads the whole set in one call.
	ScrollIDs(ctx context.Context, pageSize int, fn func(ids []string) error) error

	// CollectionStats returns the collection point count.
	CollectionStats(ctx context.Context) (int64, error)

	// Search runs a filtered ANN query.
	Search(ctx context.Context, vector []float32, topK int, expr string) ([]VectorSearchHit, error)
}
