package initial

import (
	"context"
	"fmt"
	"time"

	"CaseVault/internal/config"
	"CaseVault/internal/modules/archive/application/service"
	"CaseVault/internal/modules/archive/infrastructure/chunking"
	"CaseVault/internal/modules/archive/infrastructure/embedding"
	"CaseVault/internal/modules/archive/infrastructure/persistence"
	"CaseVault/internal/modules/archive/infrastructure/pipeline"
	"CaseVault/internal/modules/archive/infrastructure/quality"
	"CaseVault/internal/modules/archive/infrastructure/vectordb"
)

// Archive bundles the wired application services. It is convenience only;
// every component also constructs directly from its collaborators.
type Archive struct {
	Index     service.IndexService
	Reconcile service.ReconcileService
	Search    service.SearchService
	Stats     service.StatsService

	VectorIndex *vectordb.MilvusIndex
	Embedder    *embedding.Service
}

// BuildArchive wires repositories, pipelines and services from the already
// initialised GormDB and MilvusClient.
func BuildArchive(ctx context.Context) (*Archive, error) {
	conf := config.GetConfig()

	if GormDB == nil {
		return nil, fmt.Errorf("gorm not initialised")
	}
	if MilvusClient == nil {
		return nil, fmt.Errorf("milvus not initialised")
	}

	repo := persistence.NewContentRepository(GormDB)

	index := vectordb.NewMilvusIndex(MilvusClient, vectordb.MilvusOptions{
		Collection: conf.MilvusConfig.CollectionName,
		VectorDim:  conf.MilvusConfig.VectorDim,
		MetricType: conf.MilvusConfig.MetricType,
	})
	if err := index.EnsureCollection(ctx); err != nil {
		return nil, fmt.Errorf("ensure vector collection: %w", err)
	}

	embedSvc, err := embedding.NewServiceFromConfig(ctx, conf)
	if err != nil {
		return nil, fmt.Errorf("build embedder: %w", err)
	}

	scorer := quality.NewScorer(quality.Config{
		Threshold:      conf.IndexConfig.Quality.MinScore,
		MinChars:       conf.IndexConfig.Quality.MinChars,
		MinTokens:      conf.IndexConfig.Quality.MinTokens,
		ExpectedTokens: conf.IndexConfig.Quality.ExpectedTokens,
	})
	chunker := chunking.NewRecursiveChunker(
		conf.IndexConfig.Chunking.ChunkSize,
		conf.IndexConfig.Chunking.ChunkOverlap,
	)

	chunkPipe, err := pipeline.NewChunkPipeline(repo, chunker, scorer)
	if err != nil {
		return nil, err
	}
	embedPipe, err := pipeline.NewEmbedPipeline(repo, embedSvc, index,
		conf.IndexConfig.BatchSize,
		time.Duration(conf.IndexConfig.ThrottleMs)*time.Millisecond)
	if err != nil {
		return nil, err
	}
	searchPipe, err := pipeline.NewSearchPipeline(embedSvc, index,
		embedSvc.Meta().Dim, scorer.Threshold())
	if err != nil {
		return nil, err
	}

	guard := service.NewRunGuard("archive_batch",
		time.Duration(conf.ReconcileConfig.LockTTLMinutes)*time.Minute)

	reconcileSvc, err := service.NewReconcileService(repo, index, embedSvc, guard, service.ReconcileConfig{
		MinQuality:     scorer.Threshold(),
		ScrollPageSize: conf.ReconcileConfig.ScrollPageSize,
		EmbedBatch:     conf.IndexConfig.BatchSize,
		LegacyModes:    conf.ReconcileConfig.LegacyIDModes,
		AuditDir:       conf.ReconcileConfig.AuditDir,
	})
	if err != nil {
		return nil, err
	}

	return &Archive{
		Index:       service.NewIndexService(chunkPipe, embedPipe, guard, scorer.Threshold()),
		Reconcile:   reconcileSvc,
		Search:      service.NewSearchService(searchPipe),
		Stats:       service.NewStatsService(repo, index, scorer.Threshold()),
		VectorIndex: index,
		Embedder:    embedSvc,
	}, nil
}
