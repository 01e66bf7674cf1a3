package content

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Source types stored in archive_content.source_type.
const (
	SourceTypeEmail         = "email"
	SourceTypeAttachment    = "attachment"
	SourceTypeDocument      = "document"
	SourceTypeDocumentChunk = "document_chunk"
)

// DefaultParentSourceTypes lists the chunkable parent types.
func DefaultParentSourceTypes() []string {
	return []string{SourceTypeEmail, SourceTypeAttachment, SourceTypeDocument}
}

// Record is one archive content row. Parents are written by ingestion;
// document_chunk rows are written once by the chunk pipeline and afterwards
// only quality_score (set once) and embedding_generated (false to true) move.
type Record struct {
	Id                 int64           `gorm:"column:id;primaryKey;autoIncrement"`
	SourceType         string          `gorm:"column:source_type;type:varchar(30);not null;uniqueIndex:uniq_archive_source,priority:1"`
	SourceId           string          `gorm:"column:source_id;type:varchar(191);not null;uniqueIndex:uniq_archive_source,priority:2"`
	Title              string          `gorm:"column:title;type:varchar(512)"`
	Body               string          `gorm:"column:body;type:mediumtext"`
	MetadataJson       string          `gorm:"column:metadata_json;type:json"`
	QualityScore       sql.NullFloat64 `gorm:"column:quality_score"`
	ReadyForEmbedding  bool            `gorm:"column:ready_for_embedding;not null;default:false;index:idx_archive_ready"`
	EmbeddingGenerated bool            `gorm:"column:embedding_generated;not null;default:false;index:idx_archive_embedded"`
	CreatedAt          time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Record) TableName() string {
	return "archive_content"
}

// ChunkSourceID derives a chunk row's business key from its parent and index.
func ChunkSourceID(parentSourceID string, index int) string {
	return fmt.Sprintf("%s:%d", parentSourceID, index)
}

// SplitChunkSourceID returns the parent key (before the last colon) and the
// chunk index. A key without an index suffix maps to (key, 0).
func SplitChunkSourceID(sourceID string) (string, int) {
	i := strings.LastIndex(sourceID, ":")
	if i < 0 {
		return sourceID, 0
	}
	idx, err := strconv.Atoi(sourceID[i+1:])
	if err != nil {
		return sourceID, 0
	}
	return sourceID[:i], idx
}

// Chunk is the ephemeral unit produced by a Chunker before persistence.
type Chunk struct {
	DocID        string
	ChunkIdx     int
	Text         string
	TokenCount   int
	TokenStart   int
	TokenEnd     int
	SectionTitle string
	QuoteDepth   int
	QualityScore float64
	Scored       bool
}

// ChunkMetadata is the JSON persisted with each document_chunk row.
type ChunkMetadata struct {
	TokenStart   int    `json:"token_start"`
	TokenEnd     int    `json:"token_end"`
	SectionTitle string `json:"section_title,omitempty"`
	QuoteDepth   int    `json:"quote_depth"`
	DocType      string `json:"doc_type"`
}

// StoreStats aggregates content-store counters for the stats surfaces.
type StoreStats struct {
	TotalRecords   int64 `json:"total_records"`
	ParentRecords  int64 `json:"parent_records"`
	ChunkRecords   int64 `json:"chunk_records"`
	ReadyChunks    int64 `json:"ready_chunks"`
	EmbeddedChunks int64 `json:"embedded_chunks"`
	PendingChunks  int64 `json:"pending_chunks"`
	BelowThreshold int64 `json:"below_threshold"`
}
