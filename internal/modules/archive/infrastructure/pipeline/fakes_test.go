package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"CaseVault/internal/modules/archive/domain/content"
	"CaseVault/internal/modules/archive/domain/repository"

	einoembed "github.com/cloudwego/eino/components/embedding"
)

// fakeContentRepo is an in-memory ContentRepository with the same key
// semantics as the MySQL table: unique (source_type, source_id), ascending
// surrogate ids.
type fakeContentRepo struct {
	mu     sync.Mutex
	rows   []*content.Record
	nextID int64

	listParentsErr error
	hasChunksErr   error
	insertErr      error
	listEmbedErr   error
	markErrFor     map[string]error

	// listParentsIgnoreChunks selects parents even when chunk rows exist,
	// simulating a stale selection that the per-document re-check must catch.
	listParentsIgnoreChunks bool
	// hasChunksForce overrides HasChunks, simulating the re-check racing an
	// insert.
	hasChunksForce *bool

	// scripted ListEmbeddable pages, served verbatim when set.
	scripted bool
	pages    [][]content.Record

	listEmbedCalls int
}

var _ repository.ContentRepository = (*fakeContentRepo)(nil)

func (f *fakeContentRepo) seed(recs ...content.Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range recs {
		cp := r
		f.nextID++
		cp.Id = f.nextID
		f.rows = append(f.rows, &cp)
	}
}

func (f *fakeContentRepo) hasChunksLocked(parentSourceID string) bool {
	lo, hi := parentSourceID+":", parentSourceID+";"
	for _, r := range f.rows {
		if r.SourceType == content.SourceTypeDocumentChunk && r.SourceId >= lo && r.SourceId < hi {
			return true
		}
	}
	return false
}

func (f *fakeContentRepo) ListChunkableParents(_ context.Context, sourceTypes []string, limit int) ([]content.Record, error) {
	if f.listParentsErr != nil {
		return nil, f.listParentsErr
	}
	if len(sourceTypes) == 0 {
		sourceTypes = content.DefaultParentSourceTypes()
	}
	allowed := make(map[string]bool, len(sourceTypes))
	for _, st := range sourceTypes {
		allowed[st] = true
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]content.Record, 0)
	for _, r := range f.sortedLocked() {
		if !allowed[r.SourceType] || !r.ReadyForEmbedding {
			continue
		}
		if !f.listParentsIgnoreChunks && f.hasChunksLocked(r.SourceId) {
			continue
		}
		out = append(out, *r)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeContentRepo) HasChunks(_ context.Context, parentSourceID string) (bool, error) {
	if f.hasChunksErr != nil {
		return false, f.hasChunksErr
	}
	if f.hasChunksForce != nil {
		return *f.hasChunksForce, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hasChunksLocked(parentSourceID), nil
}

func (f *fakeContentRepo) InsertChunk(_ context.Context, rec *content.Record) (bool, error) {
	if f.insertErr != nil {
		return false, f.insertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.SourceType == rec.SourceType && r.SourceId == rec.SourceId {
			return false, nil
		}
	}
	cp := *rec
	f.nextID++
	cp.Id = f.nextID
	f.rows = append(f.rows, &cp)
	rec.Id = cp.Id
	return true, nil
}

func (f *fakeContentRepo) ListEmbeddable(_ context.Context, minQuality float64, afterID int64, limit int) ([]content.Record, error) {
	f.listEmbedCalls++
	if f.listEmbedErr != nil {
		return nil, f.listEmbedErr
	}
	if f.scripted {
		if len(f.pages) == 0 {
			return nil, nil
		}
		page := f.pages[0]
		f.pages = f.pages[1:]
		return page, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]content.Record, 0)
	for _, r := range f.sortedLocked() {
		if r.SourceType != content.SourceTypeDocumentChunk {
			continue
		}
		if !r.ReadyForEmbedding || r.EmbeddingGenerated {
			continue
		}
		if !r.QualityScore.Valid || r.QualityScore.Float64 < minQuality {
			continue
		}
		if r.Id <= afterID {
			continue
		}
		out = append(out, *r)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeContentRepo) MarkEmbedded(_ context.Context, sourceType, sourceID string) error {
	if err, ok := f.markErrFor[sourceID]; ok {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.SourceType == sourceType && r.SourceId == sourceID {
			r.EmbeddingGenerated = true
			return nil
		}
	}
	return fmt.Errorf("mark embedded %s:%s: no row updated", sourceType, sourceID)
}

func (f *fakeContentRepo) ListEligible(_ context.Context, minQuality float64) ([]content.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]content.Record, 0)
	for _, r := range f.sortedLocked() {
		if r.SourceType != content.SourceTypeDocumentChunk || !r.ReadyForEmbedding {
			continue
		}
		if !r.QualityScore.Valid || r.QualityScore.Float64 < minQuality {
			continue
		}
		out = append(out, *r)
	}
	return out, nil
}

func (f *fakeContentRepo) GetBySource(_ context.Context, sourceType, sourceID string) (*content.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.SourceType == sourceType && r.SourceId == sourceID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeContentRepo) Stats(_ context.Context, minQuality float64) (*content.StoreStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := &content.StoreStats{}
	for _, r := range f.rows {
		stats.TotalRecords++
		if r.SourceType != content.SourceTypeDocumentChunk {
			stats.ParentRecords++
			continue
		}
		stats.ChunkRecords++
		if r.ReadyForEmbedding {
			stats.ReadyChunks++
		}
		if r.EmbeddingGenerated {
			stats.EmbeddedChunks++
		}
		if r.ReadyForEmbedding && !r.EmbeddingGenerated && r.QualityScore.Valid && r.QualityScore.Float64 >= minQuality {
			stats.PendingChunks++
		}
		if r.QualityScore.Valid && r.QualityScore.Float64 < minQuality {
			stats.BelowThreshold++
		}
	}
	return stats, nil
}

func (f *fakeContentRepo) sortedLocked() []*content.Record {
	out := make([]*content.Record, len(f.rows))
	copy(out, f.rows)
	sort.Slice(out, func(i, j int) bool { return out[i].Id < out[j].Id })
	return out
}

func (f *fakeContentRepo) chunkRows() []content.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]content.Record, 0)
	for _, r := range f.sortedLocked() {
		if r.SourceType == content.SourceTypeDocumentChunk {
			out = append(out, *r)
		}
	}
	return out
}

func (f *fakeContentRepo) row(sourceType, sourceID string) *content.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.SourceType == sourceType && r.SourceId == sourceID {
			cp := *r
			return &cp
		}
	}
	return nil
}

// fakeChunker returns canned chunks per document id.
type fakeChunker struct {
	chunks map[string][]content.Chunk
	errFor map[string]error
	calls  int
}

var _ repository.Chunker = (*fakeChunker)(nil)

func (f *fakeChunker) Chunk(_ context.Context, src repository.ChunkSource) ([]content.Chunk, error) {
	f.calls++
	if err, ok := f.errFor[src.DocID]; ok {
		return nil, err
	}
	out := make([]content.Chunk, len(f.chunks[src.DocID]))
	copy(out, f.chunks[src.DocID])
	return out, nil
}

// fakeEmbedder returns deterministic vectors: element j of text i is
// len(text_i) + j. failFirst fails that many leading calls; shortCount
// drops one vector from every response.
type fakeEmbedder struct {
	dim        int
	failFirst  int
	err        error
	shortCount bool

	calls   int
	batches [][]string
}

var _ einoembed.Embedder = (*fakeEmbedder)(nil)

func (f *fakeEmbedder) EmbedStrings(_ context.Context, texts []string, _ ...einoembed.Option) ([][]float64, error) {
	f.calls++
	f.batches = append(f.batches, append([]string(nil), texts...))
	if f.failFirst > 0 {
		f.failFirst--
		if f.err != nil {
			return nil, f.err
		}
		return nil, fmt.Errorf("embedder unavailable")
	}
	dim := f.dim
	if dim <= 0 {
		dim = 4
	}
	out := make([][]float64, 0, len(texts))
	for _, t := range texts {
		vec := make([]float64, dim)
		for j := range vec {
			vec[j] = float64(len(t) + j)
		}
		out = append(out, vec)
	}
	if f.shortCount && len(out) > 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

// fakeVectorIndex is an in-memory VectorIndex keyed by point id.
type fakeVectorIndex struct {
	mu     sync.Mutex
	points map[string]repository.VectorPoint

	upsertErr error
	deleteErr error
	searchErr error
	scrollErr error
	statsErr  error

	searchHits []repository.VectorSearchHit

	upsertCalls int
	deleted     [][]string
	lastExpr    string
	lastTopK    int
	lastVecLen  int
}

var _ repository.VectorIndex = (*fakeVectorIndex)(nil)

func newFakeVectorIndex() *fakeVectorIndex {
	return &fakeVectorIndex{points: make(map[string]repository.VectorPoint)}
}

func (f *fakeVectorIndex) Upsert(_ context.Context, points []repository.VectorPoint) ([]string, error) {
	f.upsertCalls++
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(points))
	for _, p := range points {
		f.points[p.ID] = p
		ids = append(ids, p.ID)
	}
	return ids, nil
}

func (f *fakeVectorIndex) DeleteByIDs(_ context.Context, ids []string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, append([]string(nil), ids...))
	for _, id := range ids {
		delete(f.points, id)
	}
	return nil
}

func (f *fakeVectorIndex) FetchPoints(_ context.Context, ids []string) ([]repository.VectorPoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]repository.VectorPoint, 0, len(ids))
	for _, id := range ids {
		if p, ok := f.points[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeVectorIndex) ScrollIDs(_ context.Context, pageSize int, fn func(ids []string) error) error {
	if f.scrollErr != nil {
		return f.scrollErr
	}
	if pageSize <= 0 {
		pageSize = 100
	}
	f.mu.Lock()
	ids := make([]string, 0, len(f.points))
	for id := range f.points {
		ids = append(ids, id)
	}
	f.mu.Unlock()
	sort.Strings(ids)
	for start := 0; start < len(ids); start += pageSize {
		end := start + pageSize
		if end > len(ids) {
			end = len(ids)
		}
		if err := fn(ids[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeVectorIndex) CollectionStats(_ context.Context) (int64, error) {
	if f.statsErr != nil {
		return 0, f.statsErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.points)), nil
}

func (f *fakeVectorIndex) Search(_ context.Context, vector []float32, topK int, expr string) ([]repository.VectorSearchHit, error) {
	f.lastVecLen = len(vector)
	f.lastTopK = topK
	f.lastExpr = expr
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	out := make([]repository.VectorSearchHit, len(f.searchHits))
	copy(out, f.searchHits)
	return out, nil
}

func (f *fakeVectorIndex) pointCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.points)
}

func (f *fakeVectorIndex) point(id string) (repository.VectorPoint, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.points[id]
	return p, ok
}
