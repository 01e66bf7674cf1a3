package vectordb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.uber.org/zap"

	"CaseVault/internal/modules/archive/domain/repository"
	"CaseVault/pkg/zlog"
)

// Collection field names. The id field holds deterministic UUID strings;
// legacy numeric ids from older deployments land in the same field, which is
// why it is VarChar rather than Int64.
const (
	fieldID         = "id"
	fieldVector     = "vector"
	fieldChunkID    = "chunk_id"
	fieldDocID      = "doc_id"
	fieldChunkIdx   = "chunk_idx"
	fieldQuality    = "quality_score"
	fieldSourceType = "source_type"
	fieldTimestamp  = "timestamp"
	fieldContent    = "content"
)

const maxContentRunes = 4096

type MilvusOptions struct {
	Collection string
	VectorDim  int
	MetricType string
}

// MilvusIndex adapts the Milvus client to the domain VectorIndex interface.
type MilvusIndex struct {
	cli        client.Client
	collection string
	vectorDim  int
	metricType entity.MetricType
}

var _ repository.VectorIndex = (*MilvusIndex)(nil)

func NewMilvusIndex(cli client.Client, opts MilvusOptions) *MilvusIndex {
	collection := strings.TrimSpace(opts.Collection)
	if collection == "" {
		collection = "casevault_chunks"
	}
	dim := opts.VectorDim
	if dim <= 0 {
		dim = 768
	}
	var metric entity.MetricType
	switch strings.ToUpper(strings.TrimSpace(opts.MetricType)) {
	case "IP":
		metric = entity.IP
	case "L2":
		metric = entity.L2
	default:
		metric = entity.COSINE
	}
	return &MilvusIndex{cli: cli, collection: collection, vectorDim: dim, metricType: metric}
}

func (m *MilvusIndex) Collection() string { return m.collection }
func (m *MilvusIndex) VectorDim() int     { return m.vectorDim }

// EnsureCollection creates the collection, index and load state on first
// use. Existing collections are only loaded, never altered.
func (m *MilvusIndex) EnsureCollection(ctx context.Context) error {
	has, err := m.cli.HasCollection(ctx, m.collection)
	if err != nil {
		return fmt.Errorf("check collection %s: %w", m.collection, err)
	}
	if !has {
		schema := entity.NewSchema().
			WithName(m.collection).
			WithDescription("archive chunk vectors keyed by deterministic business ids").
			WithField(entity.NewField().WithName(fieldID).WithDataType(entity.FieldTypeVarChar).WithMaxLength(128).WithIsPrimaryKey(true)).
			WithField(entity.NewField().WithName(fieldVector).WithDataType(entity.FieldTypeFloatVector).WithDim(int64(m.vectorDim))).
			WithField(entity.NewField().WithName(fieldChunkID).WithDataType(entity.FieldTypeInt64)).
			WithField(entity.NewField().WithName(fieldDocID).WithDataType(entity.FieldTypeVarChar).WithMaxLength(256)).
			WithField(entity.NewField().WithName(fieldChunkIdx).WithDataType(entity.FieldTypeInt64)).
			WithField(entity.NewField().WithName(fieldQuality).WithDataType(entity.FieldTypeDouble)).
			WithField(entity.NewField().WithName(fieldSourceType).WithDataType(entity.FieldTypeVarChar).WithMaxLength(64)).
			WithField(entity.NewField().WithName(fieldTimestamp).WithDataType(entity.FieldTypeVarChar).WithMaxLength(64)).
			WithField(entity.NewField().WithName(fieldContent).WithDataType(entity.FieldTypeVarChar).WithMaxLength(8192))
		if err := m.cli.CreateCollection(ctx, schema, 1); err != nil {
			return fmt.Errorf("create collection %s: %w", m.collection, err)
		}

		idx, err := entity.NewIndexAUTOINDEX(m.metricType)
		if err != nil {
			return fmt.Errorf("build index: %w", err)
		}
		if err := m.cli.CreateIndex(ctx, m.collection, fieldVector, idx, false); err != nil {
			return fmt.Errorf("create index on %s: %w", m.collection, err)
		}
		zlog.Info("created milvus collection",
			zap.String("collection", m.collection),
			zap.Int("dim", m.vectorDim),
			zap.String("metric", string(m.metricType)))
	}

	if err := m.cli.LoadCollection(ctx, m.collection, false); err != nil {
		return fmt.Errorf("load collection %s: %w", m.collection, err)
	}
	return nil
}

func (m *MilvusIndex) Upsert(ctx context.Context, points []repository.VectorPoint) ([]string, error) {
	if len(points) == 0 {
		return []string{}, nil
	}

	ids := make([]string, len(points))
	vectors := make([][]float32, len(points))
	chunkIDs := make([]int64, len(points))
	docIDs := make([]string, len(points))
	chunkIdxs := make([]int64, len(points))
	qualities := make([]float64, len(points))
	sourceTypes := make([]string, len(points))
	timestamps := make([]string, len(points))
	contents := make([]string, len(points))

	for i, p := range points {
		if len(p.Vector) != m.vectorDim {
			return nil, fmt.Errorf("point %s: vector dim %d, want %d", p.ID, len(p.Vector), m.vectorDim)
		}
		ids[i] = p.ID
		vectors[i] = p.Vector
		chunkIDs[i] = p.ChunkID
		docIDs[i] = p.DocID
		chunkIdxs[i] = int64(p.ChunkIdx)
		qualities[i] = p.QualityScore
		sourceTypes[i] = p.SourceType
		timestamps[i] = p.Timestamp
		contents[i] = truncateRunes(p.Content, maxContentRunes)
	}

	cols := []entity.Column{
		entity.NewColumnVarChar(fieldID, ids),
		entity.NewColumnFloatVector(fieldVector, m.vectorDim, vectors),
		entity.NewColumnInt64(fieldChunkID, chunkIDs),
		entity.NewColumnVarChar(fieldDocID, docIDs),
		entity.NewColumnInt64(fieldChunkIdx, chunkIdxs),
		entity.NewColumnDouble(fieldQuality, qualities),
		entity.NewColumnVarChar(fieldSourceType, sourceTypes),
		entity.NewColumnVarChar(fieldTimestamp, timestamps),
		entity.NewColumnVarChar(fieldContent, contents),
	}
	if _, err := m.cli.Upsert(ctx, m.collection, "", cols...); err != nil {
		return nil, fmt.Errorf("upsert %d points: %w", len(points), err)
	}
	return ids, nil
}

func (m *MilvusIndex) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	expr := fmt.Sprintf("%s in [%s]", fieldID, quoteIDs(ids))
	if err := m.cli.Delete(ctx, m.collection, "", expr); err != nil {
		return fmt.Errorf("delete %d points: %w", len(ids), err)
	}
	return nil
}

func (m *MilvusIndex) FetchPoints(ctx context.Context, ids []string) ([]repository.VectorPoint, error) {
	if len(ids) == 0 {
		return []repository.VectorPoint{}, nil
	}
	expr := fmt.Sprintf("%s in [%s]", fieldID, quoteIDs(ids))
	rs, err := m.cli.Query(ctx, m.collection, nil, expr,
		[]string{fieldID, fieldVector, fieldChunkID, fieldDocID, fieldChunkIdx, fieldQuality, fieldSourceType, fieldTimestamp, fieldContent},
		client.WithSearchQueryConsistencyLevel(entity.ClStrong))
	if err != nil {
		return nil, fmt.Errorf("fetch %d points: %w", len(ids), err)
	}
	return parsePoints(rs)
}

// ScrollIDs pages the whole id set through fn. Iteration stops on the first
// fn error.
func (m *MilvusIndex) ScrollIDs(ctx context.Context, pageSize int, fn func(ids []string) error) error {
	if pageSize <= 0 {
		pageSize = 1000
	}
	itr, err := m.cli.QueryIterator(ctx, client.NewQueryIteratorOption(m.collection).
		WithOutputFields(fieldID).
		WithBatchSize(pageSize))
	if err != nil {
		return fmt.Errorf("open id iterator: %w", err)
	}
	for {
		rs, err := itr.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("scroll ids: %w", err)
		}
		col := rs.GetColumn(fieldID)
		if col == nil {
			return fmt.Errorf("scroll ids: missing %s column", fieldID)
		}
		page := make([]string, 0, col.Len())
		for i := 0; i < col.Len(); i++ {
			id, err := col.GetAsString(i)
			if err != nil {
				return fmt.Errorf("scroll ids: %w", err)
			}
			page = append(page, id)
		}
		if len(page) == 0 {
			continue
		}
		if err := fn(page); err != nil {
			return err
		}
	}
}

func (m *MilvusIndex) CollectionStats(ctx context.Context) (int64, error) {
	stats, err := m.cli.GetCollectionStatistics(ctx, m.collection)
	if err != nil {
		return 0, fmt.Errorf("collection statistics: %w", err)
	}
	n, err := strconv.ParseInt(stats["row_count"], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse row_count %q: %w", stats["row_count"], err)
	}
	return n, nil
}

func (m *MilvusIndex) Search(ctx context.Context, vector []float32, topK int, expr string) ([]repository.VectorSearchHit, error) {
	if len(vector) != m.vectorDim {
		return nil, fmt.Errorf("query vector dim %d, want %d", len(vector), m.vectorDim)
	}
	if topK <= 0 {
		topK = 10
	}
	sp, err := entity.NewIndexAUTOINDEXSearchParam(1)
	if err != nil {
		return nil, fmt.Errorf("build search param: %w", err)
	}

	results, err := m.cli.Search(ctx, m.collection, nil, expr,
		[]string{fieldChunkID, fieldDocID, fieldChunkIdx, fieldQuality, fieldSourceType, fieldContent},
		[]entity.Vector{entity.FloatVector(vector)},
		fieldVector, m.metricType, topK, sp,
		client.WithSearchQueryConsistencyLevel(entity.ClStrong))
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	hits := make([]repository.VectorSearchHit, 0, topK)
	for _, r := range results {
		for i := 0; i < r.ResultCount; i++ {
			hit := repository.VectorSearchHit{}
			if r.IDs != nil {
				hit.ID, _ = r.IDs.GetAsString(i)
			}
			if i < len(r.Scores) {
				hit.Score = r.Scores[i]
			}
			if c := r.Fields.GetColumn(fieldChunkID); c != nil {
				hit.ChunkID, _ = c.GetAsInt64(i)
			}
			if c := r.Fields.GetColumn(fieldDocID); c != nil {
				hit.DocID, _ = c.GetAsString(i)
			}
			if c := r.Fields.GetColumn(fieldChunkIdx); c != nil {
				v, _ := c.GetAsInt64(i)
				hit.ChunkIdx = int(v)
			}
			if c := r.Fields.GetColumn(fieldQuality); c != nil {
				hit.QualityScore, _ = c.GetAsDouble(i)
			}
			if c := r.Fields.GetColumn(fieldSourceType); c != nil {
				hit.SourceType, _ = c.GetAsString(i)
			}
			if c := r.Fields.GetColumn(fieldContent); c != nil {
				hit.Content, _ = c.GetAsString(i)
			}
			hits = append(hits, hit)
		}
	}
	return hits, nil
}

func parsePoints(rs client.ResultSet) ([]repository.VectorPoint, error) {
	idCol := rs.GetColumn(fieldID)
	if idCol == nil {
		return []repository.VectorPoint{}, nil
	}

	var vectors [][]float32
	if vecCol, ok := rs.GetColumn(fieldVector).(*entity.ColumnFloatVector); ok {
		vectors = vecCol.Data()
	}

	points := make([]repository.VectorPoint, 0, idCol.Len())
	for i := 0; i < idCol.Len(); i++ {
		p := repository.VectorPoint{}
		var err error
		if p.ID, err = idCol.GetAsString(i); err != nil {
			return nil, fmt.Errorf("parse point id: %w", err)
		}
		if i < len(vectors) {
			p.Vector = vectors[i]
		}
		if c := rs.GetColumn(fieldChunkID); c != nil {
			p.ChunkID, _ = c.GetAsInt64(i)
		}
		if c := rs.GetColumn(fieldDocID); c != nil {
			p.DocID, _ = c.GetAsString(i)
		}
		if c := rs.GetColumn(fieldChunkIdx); c != nil {
			v, _ := c.GetAsInt64(i)
			p.ChunkIdx = int(v)
		}
		if c := rs.GetColumn(fieldQuality); c != nil {
			p.QualityScore, _ = c.GetAsDouble(i)
		}
		if c := rs.GetColumn(fieldSourceType); c != nil {
			p.SourceType, _ = c.GetAsString(i)
		}
		if c := rs.GetColumn(fieldTimestamp); c != nil {
			p.Timestamp, _ = c.GetAsString(i)
		}
		if c := rs.GetColumn(fieldContent); c != nil {
			p.Content, _ = c.GetAsString(i)
		}
		points = append(points, p)
	}
	return points, nil
}

// quoteIDs renders ids for a Milvus string expr, escaping quotes so raw
// legacy ids cannot break the expression.
func quoteIDs(ids []string) string {
	var b strings.Builder
	for i, id := range ids {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('"')
		b.WriteString(strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(id))
		b.WriteByte('"')
	}
	return b.String()
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
