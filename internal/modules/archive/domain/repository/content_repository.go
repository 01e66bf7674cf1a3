package repository

import (
	"context"

	"CaseVault/internal/modules/archive/domain/content"
)

// ContentRepository persists archive content rows (MySQL).
type ContentRepository interface {
	// ListChunkableParents returns parents with ready_for_embedding set, of the
	// given source types, that no document_chunk row references yet, ordered by
	// id. limit <= 0 means no limit.
	ListChunkableParents(ctx context.Context, sourceTypes []string, limit int) ([]content.Record, error)

	// HasChunks reports whether any document_chunk row references parentSourceID.
	HasChunks(ctx context.Context, parentSourceID string) (bool, error)

	// InsertChunk persists one document_chunk row. Inserting an existing
	// business key is a no-op; the bool reports whether a row was created.
	InsertChunk(ctx context.Context, rec *content.Record) (bool, error)

	// ListEmbeddable returns document_chunk rows awaiting embedding: ready,
	// not yet embedded, quality at or above minQuality, id greater than
	// afterID, ordered by id, at most limit rows.
	ListEmbeddable(ctx context.Context, minQuality float64, afterID int64, limit int) ([]content.Record, error)

	// MarkEmbedded flips embedding_generated for one business key.
	MarkEmbedded(ctx context.Context, sourceType, sourceID string) error

	// ListEligible returns every document_chunk row that should have a vector
	// point: ready and at or above minQuality, regardless of the embedded flag.
	ListEligible(ctx context.Context, minQuality float64) ([]content.Record, error)

	// GetBySource fetches one row by business key; nil when absent.
	GetBySource(ctx context.Context, sourceType, sourceID string) (*content.Record, error)

	// Stats aggregates the store counters.
	Stats(ctx context.Context, minQuality float64) (*content.StoreStats, error)
}
