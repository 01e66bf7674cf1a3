package service

import (
	"context"
	"fmt"

	"CaseVault/internal/modules/archive/infrastructure/pipeline"
)

// RunResult combines the two halves of a chunk-and-embed run.
type RunResult struct {
	Chunk *pipeline.ChunkResult `json:"chunk"`
	Embed *pipeline.EmbedResult `json:"embed"`
}

// IndexService drives the write path: chunking parents and embedding chunks.
// All three operations hold the run guard for their whole duration.
type IndexService interface {
	ChunkDocuments(ctx context.Context, req pipeline.ChunkRequest) (*pipeline.ChunkResult, error)
	EmbedChunks(ctx context.Context, req pipeline.EmbedRequest) (*pipeline.EmbedResult, error)
	// Run chunks then embeds, so chunks created by the first half are
	// picked up by the second within the same guarded run.
	Run(ctx context.Context, chunkReq pipeline.ChunkRequest, embedReq pipeline.EmbedRequest) (*RunResult, error)
}

type indexServiceImpl struct {
	chunkPipe  *pipeline.ChunkPipeline
	embedPipe  *pipeline.EmbedPipeline
	guard      *RunGuard
	minQuality float64
}

func NewIndexService(chunkPipe *pipeline.ChunkPipeline, embedPipe *pipeline.EmbedPipeline, guard *RunGuard, defaultMinQuality float64) IndexService {
	return &indexServiceImpl{chunkPipe: chunkPipe, embedPipe: embedPipe, guard: guard, minQuality: defaultMinQuality}
}

func (s *indexServiceImpl) ChunkDocuments(ctx context.Context, req pipeline.ChunkRequest) (*pipeline.ChunkResult, error) {
	if s.chunkPipe == nil {
		return nil, fmt.Errorf("chunk pipeline is nil")
	}
	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	return s.chunkPipe.ProcessDocuments(ctx, req)
}

func (s *indexServiceImpl) EmbedChunks(ctx context.Context, req pipeline.EmbedRequest) (*pipeline.EmbedResult, error) {
	if s.embedPipe == nil {
		return nil, fmt.Errorf("embed pipeline is nil")
	}
	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	if req.MinQuality <= 0 {
		req.MinQuality = s.minQuality
	}
	return s.embedPipe.ProcessChunks(ctx, req)
}

func (s *indexServiceImpl) Run(ctx context.Context, chunkReq pipeline.ChunkRequest, embedReq pipeline.EmbedRequest) (*RunResult, error) {
	if s.chunkPipe == nil || s.embedPipe == nil {
		return nil, fmt.Errorf("index pipelines are nil")
	}
	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	out := &RunResult{}
	out.Chunk, err = s.chunkPipe.ProcessDocuments(ctx, chunkReq)
	if err != nil {
		return nil, err
	}
	if embedReq.MinQuality <= 0 {
		embedReq.MinQuality = s.minQuality
	}
	out.Embed, err = s.embedPipe.ProcessChunks(ctx, embedReq)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *indexServiceImpl) acquire(ctx context.Context) (func(), error) {
	if s.guard == nil {
		return func() {}, nil
	}
	return s.guard.Acquire(ctx)
}
