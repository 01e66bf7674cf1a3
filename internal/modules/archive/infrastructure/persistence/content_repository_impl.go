package persistence

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"CaseVault/internal/modules/archive/domain/content"
	"CaseVault/internal/modules/archive/domain/repository"
)

type contentRepositoryImpl struct {
	db *gorm.DB
}

func NewContentRepository(db *gorm.DB) repository.ContentRepository {
	return &contentRepositoryImpl{db: db}
}

// Chunk ids are parent + ":" + index. ";" is the code point after ":", so
// the half-open range [parent+":", parent+";") covers exactly the chunk ids
// of one parent and stays an index range, unlike a LIKE with an unescaped id.
func (r *contentRepositoryImpl) ListChunkableParents(ctx context.Context, sourceTypes []string, limit int) ([]content.Record, error) {
	if len(sourceTypes) == 0 {
		sourceTypes = content.DefaultParentSourceTypes()
	}

	q := r.db.WithContext(ctx).
		Model(&content.Record{}).
		Where("source_type IN ?", sourceTypes).
		Where("ready_for_embedding = ?", true).
		Where("NOT EXISTS (SELECT 1 FROM archive_content AS c WHERE c.source_type = ?"+
			" AND c.source_id >= CONCAT(archive_content.source_id, ':')"+
			" AND c.source_id < CONCAT(archive_content.source_id, ';'))",
			content.SourceTypeDocumentChunk).
		Order("id")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rows []content.Record
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *contentRepositoryImpl) HasChunks(ctx context.Context, parentSourceID string) (bool, error) {
	parentSourceID = strings.TrimSpace(parentSourceID)
	if parentSourceID == "" {
		return false, nil
	}
	var n int64
	err := r.db.WithContext(ctx).
		Model(&content.Record{}).
		Where("source_type = ?", content.SourceTypeDocumentChunk).
		Where("source_id >= ? AND source_id < ?", parentSourceID+":", parentSourceID+";").
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// InsertChunk writes one chunk row; a duplicate business key is a no-op so
// re-running the chunk pipeline never creates second copies.
func (r *contentRepositoryImpl) InsertChunk(ctx context.Context, rec *content.Record) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "source_type"}, {Name: "source_id"}},
		DoNothing: true,
	}).Create(rec)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *contentRepositoryImpl) ListEmbeddable(ctx context.Context, minQuality float64, afterID int64, limit int) ([]content.Record, error) {
	q := r.db.WithContext(ctx).
		Where("source_type = ?", content.SourceTypeDocumentChunk).
		Where("ready_for_embedding = ? AND embedding_generated = ?", true, false).
		Where("quality_score >= ?", minQuality).
		Where("id > ?", afterID).
		Order("id")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rows []content.Record
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *contentRepositoryImpl) MarkEmbedded(ctx context.Context, sourceType, sourceID string) error {
	res := r.db.WithContext(ctx).
		Model(&content.Record{}).
		Where("source_type = ? AND source_id = ?", strings.TrimSpace(sourceType), strings.TrimSpace(sourceID)).
		Update("embedding_generated", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("mark embedded %s:%s: no row updated", sourceType, sourceID)
	}
	return nil
}

func (r *contentRepositoryImpl) ListEligible(ctx context.Context, minQuality float64) ([]content.Record, error) {
	var rows []content.Record
	err := r.db.WithContext(ctx).
		Where("source_type = ?", content.SourceTypeDocumentChunk).
		Where("ready_for_embedding = ?", true).
		Where("quality_score >= ?", minQuality).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *contentRepositoryImpl) GetBySource(ctx context.Context, sourceType, sourceID string) (*content.Record, error) {
	var rec content.Record
	err := r.db.WithContext(ctx).
		Where("source_type = ? AND source_id = ?", strings.TrimSpace(sourceType), strings.TrimSpace(sourceID)).
		Take(&rec).Error
	if err == nil {
		return &rec, nil
	}
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	return nil, err
}

func (r *contentRepositoryImpl) Stats(ctx context.Context, minQuality float64) (*content.StoreStats, error) {
	stats := &content.StoreStats{}
	db := r.db.WithContext(ctx).Model(&content.Record{})

	type countQuery struct {
		dest *int64
		cond func(*gorm.DB) *gorm.DB
	}
	chunkType := content.SourceTypeDocumentChunk
	queries := []countQuery{
		{&stats.TotalRecords, func(q *gorm.DB) *gorm.DB { return q }},
		{&stats.ParentRecords, func(q *gorm.DB) *gorm.DB { return q.Where("source_type <> ?", chunkType) }},
		{&stats.ChunkRecords, func(q *gorm.DB) *gorm.DB { return q.Where("source_type = ?", chunkType) }},
		{&stats.ReadyChunks, func(q *gorm.DB) *gorm.DB {
			return q.Where("source_type = ? AND ready_for_embedding = ?", chunkType, true)
		}},
		{&stats.EmbeddedChunks, func(q *gorm.DB) *gorm.DB {
			return q.Where("source_type = ? AND embedding_generated = ?", chunkType, true)
		}},
		{&stats.PendingChunks, func(q *gorm.DB) *gorm.DB {
			return q.Where("source_type = ? AND ready_for_embedding = ? AND embedding_generated = ? AND quality_score >= ?",
				chunkType, true, false, minQuality)
		}},
		{&stats.BelowThreshold, func(q *gorm.DB) *gorm.DB {
			return q.Where("source_type = ? AND quality_score IS NOT NULL AND quality_score < ?", chunkType, minQuality)
		}},
	}
	for _, cq := range queries {
		if err := cq.cond(db.Session(&gorm.Session{})).Count(cq.dest).Error; err != nil {
			return nil, err
		}
	}
	return stats, nil
}
