package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"CaseVault/internal/modules/archive/application/dto/respond"
	"CaseVault/internal/modules/archive/domain/repository"
	"CaseVault/pkg/zlog"
)

// StatsService aggregates content-store counters and the vector point
// count for the stats surfaces.
type StatsService interface {
	Stats(ctx context.Context) (*respond.StatsRespond, error)
}

type statsServiceImpl struct {
	repo       repository.ContentRepository
	index      repository.VectorIndex
	minQuality float64
}

func NewStatsService(repo repository.ContentRepository, index repository.VectorIndex, minQuality float64) StatsService {
	if minQuality <= 0 {
		minQuality = 0.35
	}
	return &statsServiceImpl{repo: repo, index: index, minQuality: minQuality}
}

func (s *statsServiceImpl) Stats(ctx context.Context) (*respond.StatsRespond, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("content repository is nil")
	}
	stats, err := s.repo.Stats(ctx, s.minQuality)
	if err != nil {
		return nil, err
	}

	out := &respond.StatsRespond{
		TotalRecords:   stats.TotalRecords,
		ParentRecords:  stats.ParentRecords,
		ChunkRecords:   stats.ChunkRecords,
		ReadyChunks:    stats.ReadyChunks,
		EmbeddedChunks: stats.EmbeddedChunks,
		PendingChunks:  stats.PendingChunks,
		BelowThreshold: stats.BelowThreshold,
		MinQuality:     s.minQuality,
	}

	// The index being down must not hide the store counters.
	if s.index != nil {
		points, probeErr := s.index.CollectionStats(ctx)
		if probeErr != nil {
			out.VectorPointsError = probeErr.Error()
			zlog.Warn("vector point count unavailable", zap.Error(probeErr))
		} else {
			out.VectorPoints = points
		}
	}
	return out, nil
}
