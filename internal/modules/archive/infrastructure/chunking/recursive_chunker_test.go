package chunking

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CaseVault/internal/modules/archive/domain/content"
	"CaseVault/internal/modules/archive/domain/repository"
)

func legalBody(paragraphs int) string {
	var b strings.Builder
	for i := 0; i < paragraphs; i++ {
		fmt.Fprintf(&b, "Paragraph marker%03d states that the parties met and conferred regarding the scope of discovery, "+
			"the custodian list, and the schedule for rolling production of responsive documents in this matter.\n\n", i)
	}
	return b.String()
}

func TestClassifyDocType(t *testing.T) {
	assert.Equal(t, DocTypeEmail, ClassifyDocType(content.SourceTypeEmail, "anything", "anything"))
	assert.Equal(t, DocTypeLegal, ClassifyDocType(content.SourceTypeDocument, "Motion to Compel", "The plaintiff respectfully moves the court."))
	assert.Equal(t, DocTypeLegal, ClassifyDocType(content.SourceTypeAttachment, "", "EXHIBIT A attached to the declaration of counsel."))
	assert.Equal(t, DocTypeOCRScan, ClassifyDocType(content.SourceTypeDocument, "", "scanned copy of the original\n[page break]\nsecond page"))
	assert.Equal(t, DocTypeGeneral, ClassifyDocType(content.SourceTypeDocument, "Grocery list", "Apples, oranges and a loaf of bread for the weekend."))
}

func TestChunkEmptyBody(t *testing.T) {
	c := NewRecursiveChunker(200, 20)
	chunks, err := c.Chunk(context.Background(), repository.ChunkSource{DocID: "document:1", Body: "   \n\n "})
	require.NoError(t, err)
	require.Empty(t, chunks)
}

func TestChunkShortDocumentSingleChunk(t *testing.T) {
	c := NewRecursiveChunker(200, 20)
	body := "The parties met and conferred on Tuesday regarding the custodian list and agreed to exchange search terms before the next status conference set by the court."
	chunks, err := c.Chunk(context.Background(), repository.ChunkSource{DocID: "document:7", Body: body})
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	ch := chunks[0]
	assert.Equal(t, "document:7", ch.DocID)
	assert.Equal(t, 0, ch.ChunkIdx)
	assert.Equal(t, TokenLen(ch.Text), ch.TokenCount)
	assert.Equal(t, 0, ch.TokenStart)
	assert.Equal(t, ch.TokenCount, ch.TokenEnd)
}

func TestChunkLongDocument(t *testing.T) {
	c := NewRecursiveChunker(200, 20)
	body := legalBody(40)
	chunks, err := c.Chunk(context.Background(), repository.ChunkSource{DocID: "document:9", Body: body, DocType: DocTypeLegal})
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(chunks), 2)

	var joined strings.Builder
	prevStart := -1
	for i, ch := range chunks {
		assert.Equal(t, i, ch.ChunkIdx)
		assert.NotEmpty(t, ch.Text)
		assert.Equal(t, "document:9", ch.DocID)
		assert.Greater(t, ch.TokenEnd, ch.TokenStart)
		assert.Greater(t, ch.TokenStart, prevStart)
		prevStart = ch.TokenStart
		joined.WriteString(ch.Text)
		joined.WriteString("\n")
	}

	// Splitting never loses text: every paragraph lands in some chunk.
	all := joined.String()
	for i := 0; i < 40; i++ {
		assert.Contains(t, all, fmt.Sprintf("marker%03d", i))
	}
}

func TestChunkDetectsQuoteDepth(t *testing.T) {
	c := NewRecursiveChunker(200, 20)
	var b strings.Builder
	for i := 0; i < 10; i++ {
		fmt.Fprintf(&b, "> The witness stated on line %d that the records were produced in the ordinary course.\n", i)
	}
	chunks, err := c.Chunk(context.Background(), repository.ChunkSource{DocID: "email:3", Body: b.String(), DocType: DocTypeEmail})
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	assert.Equal(t, 1, chunks[0].QuoteDepth)
}

func TestChunkerDefaults(t *testing.T) {
	c := NewRecursiveChunker(0, -1)
	assert.Equal(t, 400, c.chunkSize)
	assert.Equal(t, 0, c.chunkOverlap)

	c = NewRecursiveChunker(100, 150)
	assert.Equal(t, 50, c.chunkOverlap)
}

func TestSectionHeading(t *testing.T) {
	cases := map[string]string{
		"SECTION 4 DISCOVERY\nThe parties shall exchange lists.": "SECTION 4 DISCOVERY",
		"Section 12 governs expert disclosures":                  "Section 12 governs expert disclosures",
		"1.2 Scope of Production\nAll custodial files.":          "1.2 Scope of Production",
		"EXHIBIT A\nDeclaration of counsel.":                     "EXHIBIT A",
		"The parties met and conferred.":                         "",
		"":                                                       "",
	}
	for text, want := range cases {
		assert.Equal(t, want, sectionHeading(text), "text %q", text)
	}
}

func TestTokenLen(t *testing.T) {
	assert.Equal(t, 0, TokenLen(""))
	assert.Equal(t, 0, TokenLen("   "))
	assert.Equal(t, 5, TokenLen("the court granted the motion"))
}

func TestDominantQuoteDepthMixed(t *testing.T) {
	text := "plain line one\n> quoted a\n> quoted b\n> quoted c\nplain line two"
	assert.Equal(t, 1, dominantQuoteDepth(text))
	assert.Equal(t, 0, dominantQuoteDepth("no quoting here\nat all"))
	assert.Equal(t, 0, dominantQuoteDepth("   "))
}
