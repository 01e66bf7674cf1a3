package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/compose"

	"CaseVault/internal/modules/archive/application/dto/respond"
	"CaseVault/internal/modules/archive/domain/repository"

	einoembed "github.com/cloudwego/eino/components/embedding"
)

// SearchRequest is the semantic search input.
type SearchRequest struct {
	Query string
	TopK  int
	// MinQuality filters hits below the given stored quality score;
	// <= 0 falls back to the pipeline default.
	MinQuality  float64
	SourceTypes []string
	// DedupByDoc keeps only the best-scoring chunk per parent document.
	DedupByDoc bool
}

// SearchResult is the assembled search output.
type SearchResult struct {
	QueryID       string
	Query         string
	Hits          []respond.SearchHit
	TotalHits     int
	ReturnedCount int
	DurationMs    int64
	EmbeddingMs   int64
	SearchMs      int64
	IsEmpty       bool
	Message       string
}

// SearchPipeline is the archive's read path: embed the query, run a
// filtered ANN search, post-process and rank. Built as an eino graph so the
// stages stay individually observable.
type SearchPipeline struct {
	embedder   einoembed.Embedder
	index      repository.VectorIndex
	vectorDim  int
	minQuality float64

	r compose.Runnable[*SearchRequest, *SearchResult]
}

func NewSearchPipeline(embedder einoembed.Embedder, index repository.VectorIndex, vectorDim int, defaultMinQuality float64) (*SearchPipeline, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is nil")
	}
	if index == nil {
		return nil, fmt.Errorf("vector index is nil")
	}
	if vectorDim <= 0 {
		return nil, fmt.Errorf("vector dim must be positive")
	}
	p := &SearchPipeline{embedder: embedder, index: index, vectorDim: vectorDim, minQuality: defaultMinQuality}
	r, err := p.buildGraph(context.Background())
	if err != nil {
		return nil, err
	}
	p.r = r
	return p, nil
}

func (p *SearchPipeline) Search(ctx context.Context, req *SearchRequest) (*SearchResult, error) {
	if req == nil {
		return nil, fmt.Errorf("search request is nil")
	}
	if p.r == nil {
		return nil, fmt.Errorf("pipeline runnable is nil")
	}
	return p.r.Invoke(ctx, req)
}

func normalizeTopK(topK int) int {
	if topK <= 0 {
		return 5
	}
	if topK > 50 {
		return 50
	}
	return topK
}

// buildFilterExpr renders the Milvus filter. The quality floor is always
// present; sub-threshold chunks stay stored but never surface in search.
func buildFilterExpr(minQuality float64, sourceTypes []string) string {
	expr := fmt.Sprintf("quality_score >= %g", minQuality)
	if len(sourceTypes) > 0 {
		valid := make([]string, 0, len(sourceTypes))
		for _, st := range sourceTypes {
			st = strings.TrimSpace(st)
			if st != "" {
				valid = append(valid, fmt.Sprintf("%q", st))
			}
		}
		if len(valid) > 0 {
			expr += fmt.Sprintf(` && source_type in [%s]`, strings.Join(valid, ","))
		}
	}
	return expr
}
