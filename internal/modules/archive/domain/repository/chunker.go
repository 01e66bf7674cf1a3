package repository

import (
	"context"

	"CaseVault/internal/modules/archive/domain/content"
)

// ChunkSource is one parent document handed to a Chunker.
type ChunkSource struct {
	DocID   string
	Title   string
	Body    string
	DocType string
}

// Chunker splits a parent document into an ordered chunk sequence. Chunk
// boundaries are the collaborator's concern; the pipeline only relies on
// ordering and token accounting.
type Chunker interface {
	Chunk(ctx context.Context, src ChunkSource) ([]content.Chunk, error)
}
