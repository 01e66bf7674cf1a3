package service

import (
	"context"
	"fmt"
	"strings"

	"CaseVault/internal/modules/archive/application/dto/request"
	"CaseVault/internal/modules/archive/application/dto/respond"
	"CaseVault/internal/modules/archive/infrastructure/pipeline"
	"CaseVault/pkg/xerr"
)

// SearchService is the archive's read path.
type SearchService interface {
	Search(ctx context.Context, req request.SearchRequest) (*respond.SearchRespond, error)
}

type searchServiceImpl struct {
	pipeline *pipeline.SearchPipeline
}

func NewSearchService(p *pipeline.SearchPipeline) SearchService {
	return &searchServiceImpl{pipeline: p}
}

func (s *searchServiceImpl) Search(ctx context.Context, req request.SearchRequest) (*respond.SearchRespond, error) {
	if s.pipeline == nil {
		return nil, fmt.Errorf("search pipeline is nil")
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, xerr.New(xerr.BadRequest, "missing query")
	}

	result, err := s.pipeline.Search(ctx, &pipeline.SearchRequest{
		Query:       query,
		TopK:        req.TopK,
		MinQuality:  req.MinQuality,
		SourceTypes: req.SourceTypes,
		DedupByDoc:  req.DedupByDoc,
	})
	if err != nil {
		return nil, err
	}

	return &respond.SearchRespond{
		QueryID:       result.QueryID,
		Query:         result.Query,
		Hits:          result.Hits,
		TotalHits:     result.TotalHits,
		ReturnedCount: result.ReturnedCount,
		DurationMs:    result.DurationMs,
		EmbeddingMs:   result.EmbeddingMs,
		SearchMs:      result.SearchMs,
		IsEmpty:       result.IsEmpty,
		Message:       result.Message,
	}, nil
}
