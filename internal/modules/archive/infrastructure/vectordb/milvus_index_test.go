package vectordb

import (
	"strings"
	"testing"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"github.com/stretchr/testify/assert"
)

func TestNewMilvusIndexDefaults(t *testing.T) {
	m := NewMilvusIndex(nil, MilvusOptions{})
	assert.Equal(t, "casevault_chunks", m.Collection())
	assert.Equal(t, 768, m.VectorDim())
	assert.Equal(t, entity.COSINE, m.metricType)

	m = NewMilvusIndex(nil, MilvusOptions{Collection: "legal_chunks", VectorDim: 1536, MetricType: "ip"})
	assert.Equal(t, "legal_chunks", m.Collection())
	assert.Equal(t, 1536, m.VectorDim())
	assert.Equal(t, entity.IP, m.metricType)
}

func TestQuoteIDs(t *testing.T) {
	assert.Equal(t, `"a", "b"`, quoteIDs([]string{"a", "b"}))
	assert.Equal(t, `"say \"hi\""`, quoteIDs([]string{`say "hi"`}))
	assert.Equal(t, `"back\\slash"`, quoteIDs([]string{`back\slash`}))
	assert.Equal(t, "", quoteIDs(nil))
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "short", truncateRunes("short", 10))
	assert.Equal(t, strings.Repeat("é", 5), truncateRunes(strings.Repeat("é", 9), 5))
}
