package pipeline

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"CaseVault/internal/modules/archive/domain/content"
	"CaseVault/internal/modules/archive/domain/repository"
	"CaseVault/internal/modules/archive/infrastructure/chunking"
	"CaseVault/internal/modules/archive/infrastructure/quality"
	"CaseVault/pkg/zlog"
)

type ChunkRequest struct {
	// Limit caps the number of parent documents selected; <= 0 means all.
	Limit       int
	SourceTypes []string
	DryRun      bool
}

type ChunkResult struct {
	DocumentsProcessed   int      `json:"documents_processed"`
	ChunksCreated        int      `json:"chunks_created"`
	ChunksDroppedQuality int      `json:"chunks_dropped_quality"`
	ChunksAlreadyExist   int      `json:"chunks_already_exist"`
	Errors               []string `json:"errors"`
	ElapsedSeconds       float64  `json:"elapsed_seconds"`
}

// ChunkPipeline turns ready parent documents into quality-gated chunk rows.
// One document failing never aborts the batch; re-running over unchanged
// inputs creates zero new rows.
type ChunkPipeline struct {
	repo    repository.ContentRepository
	chunker repository.Chunker
	scorer  *quality.Scorer
}

func NewChunkPipeline(repo repository.ContentRepository, chunker repository.Chunker, scorer *quality.Scorer) (*ChunkPipeline, error) {
	if repo == nil {
		return nil, fmt.Errorf("content repository is nil")
	}
	if chunker == nil {
		return nil, fmt.Errorf("chunker is nil")
	}
	if scorer == nil {
		return nil, fmt.Errorf("scorer is nil")
	}
	return &ChunkPipeline{repo: repo, chunker: chunker, scorer: scorer}, nil
}

func (p *ChunkPipeline) ProcessDocuments(ctx context.Context, req ChunkRequest) (*ChunkResult, error) {
	start := time.Now()
	res := &ChunkResult{Errors: []string{}}

	sourceTypes := req.SourceTypes
	if len(sourceTypes) == 0 {
		sourceTypes = content.DefaultParentSourceTypes()
	}

	parents, err := p.repo.ListChunkableParents(ctx, sourceTypes, req.Limit)
	if err != nil {
		return nil, fmt.Errorf("list chunkable parents: %w", err)
	}

	gate := quality.NewGate(p.scorer, nil)
	for i := range parents {
		parent := &parents[i]
		if err := p.processOne(ctx, parent, gate, req.DryRun, res); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("%s:%s: %v", parent.SourceType, parent.SourceId, err))
			zlog.Warn("chunking document failed",
				zap.String("source_type", parent.SourceType),
				zap.String("source_id", parent.SourceId),
				zap.Error(err))
			continue
		}
		res.DocumentsProcessed++
	}

	stats := gate.Stats()
	res.ChunksDroppedQuality = stats.Failed
	res.ElapsedSeconds = time.Since(start).Seconds()
	zlog.Info("chunk pipeline done",
		zap.Int("documents", res.DocumentsProcessed),
		zap.Int("created", res.ChunksCreated),
		zap.Int("dropped_quality", res.ChunksDroppedQuality),
		zap.Int("already_exist", res.ChunksAlreadyExist),
		zap.Int("errors", len(res.Errors)),
		zap.Float64("pass_rate", stats.PassRate()),
		zap.Bool("dry_run", req.DryRun),
		zap.Float64("elapsed_s", res.ElapsedSeconds))
	return res, nil
}

func (p *ChunkPipeline) processOne(ctx context.Context, parent *content.Record, gate *quality.Gate, dryRun bool, res *ChunkResult) error {
	// Selection already excludes chunked parents; this re-check closes the
	// window between selection and processing.
	has, err := p.repo.HasChunks(ctx, parent.SourceId)
	if err != nil {
		return fmt.Errorf("check existing chunks: %w", err)
	}
	if has {
		res.ChunksAlreadyExist++
		return nil
	}

	docType := chunking.ClassifyDocType(parent.SourceType, parent.Title, parent.Body)
	chunks, err := p.chunker.Chunk(ctx, repository.ChunkSource{
		DocID:   parent.SourceId,
		Title:   parent.Title,
		Body:    parent.Body,
		DocType: docType,
	})
	if err != nil {
		return fmt.Errorf("chunk: %w", err)
	}

	gate.Reset(quality.SliceProducer(chunks))
	accepted, err := gate.Drain()
	if err != nil {
		return fmt.Errorf("quality gate: %w", err)
	}

	for _, ch := range accepted {
		if dryRun {
			res.ChunksCreated++
			continue
		}
		rec := buildChunkRecord(parent, ch, docType)
		created, err := p.repo.InsertChunk(ctx, rec)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: insert: %v", rec.SourceId, err))
			continue
		}
		if created {
			res.ChunksCreated++
		} else {
			res.ChunksAlreadyExist++
		}
	}
	return nil
}

func buildChunkRecord(parent *content.Record, ch *content.Chunk, docType string) *content.Record {
	meta := content.ChunkMetadata{
		TokenStart:   ch.TokenStart,
		TokenEnd:     ch.TokenEnd,
		SectionTitle: ch.SectionTitle,
		QuoteDepth:   ch.QuoteDepth,
		DocType:      docType,
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		metaJSON = []byte("{}")
	}
	return &content.Record{
		SourceType:         content.SourceTypeDocumentChunk,
		SourceId:           content.ChunkSourceID(parent.SourceId, ch.ChunkIdx),
		Title:              parent.Title,
		Body:               ch.Text,
		MetadataJson:       string(metaJSON),
		QualityScore:       sql.NullFloat64{Float64: ch.QualityScore, Valid: true},
		ReadyForEmbedding:  true,
		EmbeddingGenerated: false,
	}
}
