package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"CaseVault/internal/modules/archive/domain/content"
	"CaseVault/internal/modules/archive/domain/repository"

	einoembed "github.com/cloudwego/eino/components/embedding"
)

type svcRepo struct {
	mu     sync.Mutex
	rows   []*content.Record
	nextID int64

	eligibleErr error
	statsErr    error
	markErr     map[string]error

	lastMinQuality float64
}

var _ repository.ContentRepository = (*svcRepo)(nil)

func (f *svcRepo) seed(recs ...content.Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range recs {
		cp := r
		f.nextID++
		cp.Id = f.nextID
		f.rows = append(f.rows, &cp)
	}
}

func (f *svcRepo) sortedLocked() []*content.Record {
	out := make([]*content.Record, len(f.rows))
	copy(out, f.rows)
	sort.Slice(out, func(i, j int) bool { return out[i].Id < out[j].Id })
	return out
}

func (f *svcRepo) ListChunkableParents(_ context.Context, sourceTypes []string, limit int) ([]content.Record, error) {
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
		if f.hasChunksLocked(r.SourceId) {
			continue
		}
		out = append(out, *r)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *svcRepo) hasChunksLocked(parentSourceID string) bool {
	lo, hi := parentSourceID+":", parentSourceID+";"
	for _, r := range f.rows {
		if r.SourceType == content.SourceTypeDocumentChunk && r.SourceId >= lo && r.SourceId < hi {
			return true
		}
	}
	return false
}

func (f *svcRepo) HasChunks(_ context.Context, parentSourceID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hasChunksLocked(parentSourceID), nil
}

func (f *svcRepo) InsertChunk(_ context.Context, rec *content.Record) (bool, error) {
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

func (f *svcRepo) ListEmbeddable(_ context.Context, minQuality float64, afterID int64, limit int) ([]content.Record, error) {
	f.lastMinQuality = minQuality
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]content.Record, 0)
	for _, r := range f.sortedLocked() {
		if r.SourceType != content.SourceTypeDocumentChunk || !r.ReadyForEmbedding || r.EmbeddingGenerated {
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

func (f *svcRepo) MarkEmbedded(_ context.Context, sourceType, sourceID string) error {
	if err, ok := f.markErr[sourceID]; ok {
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

func (f *svcRepo) ListEligible(_ context.Context, minQuality float64) ([]content.Record, error) {
	if f.eligibleErr != nil {
		return nil, f.eligibleErr
	}
	f.lastMinQuality = minQuality
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

func (f *svcRepo) GetBySource(_ context.Context, sourceType, sourceID string) (*content.Record, error) {
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

func (f *svcRepo) Stats(_ context.Context, minQuality float64) (*content.StoreStats, error) {
	if f.statsErr != nil {
		return nil, f.statsErr
	}
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

func (f *svcRepo) row(sourceType, sourceID string) *content.Record {
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

type svcIndex struct {
	mu     sync.Mutex
	points map[string]repository.VectorPoint

	upsertErr error
	deleteErr error
	scrollErr error
	statsErr  error
	searchErr error

	searchHits []repository.VectorSearchHit
	deleted    [][]string
}

var _ repository.VectorIndex = (*svcIndex)(nil)

func newSvcIndex() *svcIndex {
	return &svcIndex{points: make(map[string]repository.VectorPoint)}
}

func (f *svcIndex) put(pts ...repository.VectorPoint) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range pts {
		f.points[p.ID] = p
	}
}

func (f *svcIndex) Upsert(_ context.Context, points []repository.VectorPoint) ([]string, error) {
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

func (f *svcIndex) DeleteByIDs(_ context.Context, ids []string) error {
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

func (f *svcIndex) FetchPoints(_ context.Context, ids []string) ([]repository.VectorPoint, error) {
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

func (f *svcIndex) ScrollIDs(_ context.Context, pageSize int, fn func(ids []string) error) error {
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

func (f *svcIndex) CollectionStats(_ context.Context) (int64, error) {
	if f.statsErr != nil {
		return 0, f.statsErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.points)), nil
}

func (f *svcIndex) Search(_ context.Context, _ []float32, _ int, _ string) ([]repository.VectorSearchHit, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	out := make([]repository.VectorSearchHit, len(f.searchHits))
	copy(out, f.searchHits)
	return out, nil
}

func (f *svcIndex) pointCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.points)
}

func (f *svcIndex) point(id string) (repository.VectorPoint, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.points[id]
	return p, ok
}

func (f *svcIndex) ids() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.points))
	for id := range f.points {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// svcEmbedder returns vectors whose first element is the text length.
type svcEmbedder struct {
	dim       int
	failFirst int
	calls     int
}

var _ einoembed.Embedder = (*svcEmbedder)(nil)

func (f *svcEmbedder) EmbedStrings(_ context.Context, texts []string, _ ...einoembed.Option) ([][]float64, error) {
	f.calls++
	if f.failFirst > 0 {
		f.failFirst--
		return nil, fmt.Errorf("embedder unavailable")
	}
	dim := f.dim
	if dim <= 0 {
		dim = 4
	}
	out := make([][]float64, 0, len(texts))
	for _, t := range texts {
		vec := make([]float64, dim)
		vec[0] = float64(len(t))
		out = append(out, vec)
	}
	return out, nil
}
