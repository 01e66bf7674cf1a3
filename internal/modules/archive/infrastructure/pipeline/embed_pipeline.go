package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"CaseVault/internal/modules/archive/domain/content"
	"CaseVault/internal/modules/archive/domain/identity"
	"CaseVault/internal/modules/archive/domain/repository"
	"CaseVault/pkg/zlog"

	einoembed "github.com/cloudwego/eino/components/embedding"
)

type EmbedRequest struct {
	// Limit caps the number of chunk rows fetched across all batches;
	// <= 0 means run until the store is drained.
	Limit      int
	BatchSize  int
	MinQuality float64
	DryRun     bool
}

type EmbedResult struct {
	ChunksProcessed     int      `json:"chunks_processed"`
	EmbeddingsGenerated int      `json:"embeddings_generated"`
	VectorsStored       int      `json:"vectors_stored"`
	ChunksSkipped       int      `json:"chunks_skipped"`
	Errors              []string `json:"errors"`
	ElapsedSeconds      float64  `json:"elapsed_seconds"`
	EmbeddingsPerSecond float64  `json:"embeddings_per_second"`
}

// EmbedPipeline embeds quality-approved chunk rows batch by batch. A batch
// either lands whole (one embedding call, one upsert) or not at all;
// individual row marking afterwards is best-effort because the two stores
// share no transaction. Unmarked rows are simply re-selected next run and
// the deterministic point id makes the re-upsert harmless.
type EmbedPipeline struct {
	repo     repository.ContentRepository
	embedder einoembed.Embedder
	index    repository.VectorIndex

	batchSize int
	throttle  time.Duration
}

func NewEmbedPipeline(repo repository.ContentRepository, embedder einoembed.Embedder, index repository.VectorIndex, batchSize int, throttle time.Duration) (*EmbedPipeline, error) {
	if repo == nil {
		return nil, fmt.Errorf("content repository is nil")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder is nil")
	}
	if index == nil {
		return nil, fmt.Errorf("vector index is nil")
	}
	if batchSize <= 0 {
		batchSize = 64
	}
	if throttle < 0 {
		throttle = 0
	}
	return &EmbedPipeline{repo: repo, embedder: embedder, index: index, batchSize: batchSize, throttle: throttle}, nil
}

func (p *EmbedPipeline) ProcessChunks(ctx context.Context, req EmbedRequest) (*EmbedResult, error) {
	start := time.Now()
	res := &EmbedResult{Errors: []string{}}

	batchSize := req.BatchSize
	if batchSize <= 0 {
		batchSize = p.batchSize
	}

	// Keyset pagination: afterID advances past every fetched row, so a
	// failed or dry-run batch cannot be re-selected within this run.
	afterID := int64(0)
	fetched := 0
	for {
		size := batchSize
		if req.Limit > 0 {
			left := req.Limit - fetched
			if left <= 0 {
				break
			}
			if left < size {
				size = left
			}
		}

		rows, err := p.repo.ListEmbeddable(ctx, req.MinQuality, afterID, size)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("list embeddable: %v", err))
			break
		}
		if len(rows) == 0 {
			break
		}
		fetched += len(rows)
		afterID = rows[len(rows)-1].Id

		p.processBatch(ctx, rows, req.DryRun, res)

		if len(rows) == size && p.throttle > 0 {
			time.Sleep(p.throttle)
		}
	}

	res.ElapsedSeconds = time.Since(start).Seconds()
	if res.ElapsedSeconds > 0 {
		res.EmbeddingsPerSecond = float64(res.EmbeddingsGenerated) / res.ElapsedSeconds
	}
	zlog.Info("embed pipeline done",
		zap.Int("processed", res.ChunksProcessed),
		zap.Int("embedded", res.EmbeddingsGenerated),
		zap.Int("stored", res.VectorsStored),
		zap.Int("skipped", res.ChunksSkipped),
		zap.Int("errors", len(res.Errors)),
		zap.Bool("dry_run", req.DryRun),
		zap.Float64("elapsed_s", res.ElapsedSeconds))
	return res, nil
}

func (p *EmbedPipeline) processBatch(ctx context.Context, rows []content.Record, dryRun bool, res *EmbedResult) {
	batch := make([]content.Record, 0, len(rows))
	for _, r := range rows {
		if r.EmbeddingGenerated {
			res.ChunksSkipped++
			continue
		}
		batch = append(batch, r)
	}
	if len(batch) == 0 {
		return
	}
	res.ChunksProcessed += len(batch)

	texts := make([]string, len(batch))
	for i, r := range batch {
		texts[i] = r.Body
	}
	vecs, err := p.embedder.EmbedStrings(ctx, texts)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("embed batch of %d: %v", len(batch), err))
		return
	}
	if len(vecs) != len(batch) {
		res.Errors = append(res.Errors, fmt.Sprintf("embed batch of %d: got %d vectors", len(batch), len(vecs)))
		return
	}
	res.EmbeddingsGenerated += len(batch)
	if dryRun {
		return
	}

	now := time.Now().UTC().Format(time.RFC3339)
	points := make([]repository.VectorPoint, len(batch))
	for i := range batch {
		points[i] = BuildPoint(&batch[i], vecs[i], now)
	}
	if _, err := p.index.Upsert(ctx, points); err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("upsert batch of %d: %v", len(points), err))
		return
	}
	res.VectorsStored += len(points)

	for _, r := range batch {
		if err := p.repo.MarkEmbedded(ctx, r.SourceType, r.SourceId); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("mark embedded %s:%s: %v", r.SourceType, r.SourceId, err))
			zlog.Warn("vector stored but row not marked, will re-upsert next run",
				zap.String("source_type", r.SourceType),
				zap.String("source_id", r.SourceId),
				zap.Error(err))
		}
	}
}

// BuildPoint assembles the vector point for a chunk row. The id is the
// deterministic UUID of the row's business key; doc_id and chunk_idx come
// from splitting the chunk source id at its last colon.
func BuildPoint(r *content.Record, vec []float64, timestamp string) repository.VectorPoint {
	vec32 := make([]float32, len(vec))
	for i, v := range vec {
		vec32[i] = float32(v)
	}
	docID, chunkIdx := content.SplitChunkSourceID(r.SourceId)
	q := 0.0
	if r.QualityScore.Valid {
		q = r.QualityScore.Float64
	}
	return repository.VectorPoint{
		ID:           identity.PointID(r.SourceType, r.SourceId),
		Vector:       vec32,
		ChunkID:      r.Id,
		DocID:        docID,
		ChunkIdx:     chunkIdx,
		QualityScore: q,
		SourceType:   r.SourceType,
		Timestamp:    timestamp,
		Content:      r.Body,
	}
}
