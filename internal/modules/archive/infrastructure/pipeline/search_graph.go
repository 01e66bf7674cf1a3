package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"go.uber.org/zap"

	"CaseVault/internal/modules/archive/application/dto/respond"
	"CaseVault/internal/modules/archive/domain/repository"
	"CaseVault/pkg/util"
	"CaseVault/pkg/zlog"
)

// searchState flows between the graph's nodes. Node-local failures park in
// Err so the graph always reaches BuildResult and the result carries timing
// even for failed queries.
type searchState struct {
	Req        *SearchRequest
	FilterExpr string
	QueryVec   []float32
	Hits       []repository.VectorSearchHit
	Filtered   []repository.VectorSearchHit

	Start       time.Time
	EmbeddingMs int64
	SearchMs    int64
	Err         error
}

// buildGraph wires Validate → EmbedQuery → SearchVector → PostProcess →
// BuildResult.
func (p *SearchPipeline) buildGraph(ctx context.Context) (compose.Runnable[*SearchRequest, *SearchResult], error) {
	const (
		Validate     = "Validate"
		EmbedQuery   = "EmbedQuery"
		SearchVector = "SearchVector"
		PostProcess  = "PostProcess"
		BuildResult  = "BuildResult"
	)
	g := compose.NewGraph[*SearchRequest, *SearchResult]()
	_ = g.AddLambdaNode(Validate, compose.InvokableLambdaWithOption(p.validateNode), compose.WithNodeName(Validate))
	_ = g.AddLambdaNode(EmbedQuery, compose.InvokableLambdaWithOption(p.embedQueryNode), compose.WithNodeName(EmbedQuery))
	_ = g.AddLambdaNode(SearchVector, compose.InvokableLambdaWithOption(p.searchVectorNode), compose.WithNodeName(SearchVector))
	_ = g.AddLambdaNode(PostProcess, compose.InvokableLambdaWithOption(p.postProcessNode), compose.WithNodeName(PostProcess))
	_ = g.AddLambdaNode(BuildResult, compose.InvokableLambdaWithOption(p.buildResultNode), compose.WithNodeName(BuildResult))
	_ = g.AddEdge(compose.START, Validate)
	_ = g.AddEdge(Validate, EmbedQuery)
	_ = g.AddEdge(EmbedQuery, SearchVector)
	_ = g.AddEdge(SearchVector, PostProcess)
	_ = g.AddEdge(PostProcess, BuildResult)
	_ = g.AddEdge(BuildResult, compose.END)
	return g.Compile(ctx, compose.WithGraphName("ArchiveSearchPipeline"), compose.WithNodeTriggerMode(compose.AllPredecessor))
}

func (p *SearchPipeline) validateNode(ctx context.Context, req *SearchRequest, _ ...any) (*searchState, error) {
	_ = ctx
	st := &searchState{Req: req, Start: time.Now()}
	if req == nil {
		st.Err = fmt.Errorf("search request is nil")
		return st, nil
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		st.Err = fmt.Errorf("missing query")
		return st, nil
	}
	req.TopK = normalizeTopK(req.TopK)
	if req.MinQuality <= 0 {
		req.MinQuality = p.minQuality
	}
	st.FilterExpr = buildFilterExpr(req.MinQuality, req.SourceTypes)
	return st, nil
}

func (p *SearchPipeline) embedQueryNode(ctx context.Context, st *searchState, _ ...any) (*searchState, error) {
	if st == nil {
		return &searchState{Err: fmt.Errorf("nil state"), Start: time.Now()}, nil
	}
	if st.Err != nil {
		return st, nil
	}
	embStart := time.Now()
	vecs, err := p.embedder.EmbedStrings(ctx, []string{st.Req.Query})
	if err != nil {
		st.Err = err
		return st, nil
	}
	if len(vecs) == 0 {
		st.Err = fmt.Errorf("embedding result is empty")
		return st, nil
	}
	vec64 := vecs[0]
	if len(vec64) != p.vectorDim {
		st.Err = fmt.Errorf("embedding dim mismatch: got=%d want=%d", len(vec64), p.vectorDim)
		return st, nil
	}
	vec32 := make([]float32, len(vec64))
	for i := range vec64 {
		vec32[i] = float32(vec64[i])
	}
	st.QueryVec = vec32
	st.EmbeddingMs = time.Since(embStart).Milliseconds()
	return st, nil
}

func (p *SearchPipeline) searchVectorNode(ctx context.Context, st *searchState, _ ...any) (*searchState, error) {
	if st == nil {
		return &searchState{Err: fmt.Errorf("nil state"), Start: time.Now()}, nil
	}
	if st.Err != nil {
		return st, nil
	}
	searchStart := time.Now()
	hits, err := p.index.Search(ctx, st.QueryVec, st.Req.TopK, st.FilterExpr)
	if err != nil {
		st.Err = err
		return st, nil
	}
	st.Hits = hits
	st.SearchMs = time.Since(searchStart).Milliseconds()
	return st, nil
}

func (p *SearchPipeline) postProcessNode(ctx context.Context, st *searchState, _ ...any) (*searchState, error) {
	_ = ctx
	if st == nil {
		return &searchState{Err: fmt.Errorf("nil state"), Start: time.Now()}, nil
	}
	if st.Err != nil {
		return st, nil
	}

	hits := st.Hits
	if st.Req.DedupByDoc && len(hits) > 0 {
		best := make(map[string]repository.VectorSearchHit, len(hits))
		for _, h := range hits {
			if prev, ok := best[h.DocID]; !ok || h.Score > prev.Score {
				best[h.DocID] = h
			}
		}
		hits = make([]repository.VectorSearchHit, 0, len(best))
		for _, h := range best {
			hits = append(hits, h)
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > st.Req.TopK {
		hits = hits[:st.Req.TopK]
	}
	st.Filtered = hits
	return st, nil
}

func (p *SearchPipeline) buildResultNode(ctx context.Context, st *searchState, _ ...any) (*SearchResult, error) {
	_ = ctx
	if st == nil {
		return nil, fmt.Errorf("nil state")
	}
	res := &SearchResult{QueryID: "q_" + util.GenerateShortUUID()}
	if st.Req != nil {
		res.Query = st.Req.Query
	}
	res.TotalHits = len(st.Hits)
	res.ReturnedCount = len(st.Filtered)
	res.EmbeddingMs = st.EmbeddingMs
	res.SearchMs = st.SearchMs
	res.DurationMs = time.Since(st.Start).Milliseconds()

	hits := make([]respond.SearchHit, 0, len(st.Filtered))
	for _, h := range st.Filtered {
		hits = append(hits, respond.SearchHit{
			VectorID:     h.ID,
			ChunkID:      h.ChunkID,
			DocID:        h.DocID,
			ChunkIdx:     h.ChunkIdx,
			SourceType:   h.SourceType,
			Score:        h.Score,
			QualityScore: h.QualityScore,
			Content:      h.Content,
		})
	}
	res.Hits = hits
	if res.ReturnedCount == 0 && st.Err == nil {
		res.IsEmpty = true
		res.Message = "no indexed chunks matched; run the embed pipeline or lower min quality"
	}

	query := ""
	topK := 0
	if st.Req != nil {
		query = st.Req.Query
		topK = st.Req.TopK
	}
	zlog.Info("archive search done",
		zap.String("query_id", res.QueryID),
		zap.String("query", query),
		zap.Int("top_k", topK),
		zap.String("filter_expr", st.FilterExpr),
		zap.Int("total_hits", res.TotalHits),
		zap.Int("returned", res.ReturnedCount),
		zap.Int64("embedding_ms", res.EmbeddingMs),
		zap.Int64("search_ms", res.SearchMs),
		zap.Int64("duration_ms", res.DurationMs),
		zap.Bool("is_empty", res.IsEmpty))
	return res, st.Err
}
