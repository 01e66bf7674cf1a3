package chunking

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/cloudwego/eino-ext/components/document/transformer/splitter/recursive"
	"github.com/cloudwego/eino/components/document"
	"github.com/cloudwego/eino/schema"

	"CaseVault/internal/modules/archive/domain/content"
	"CaseVault/internal/modules/archive/domain/repository"
)

// RecursiveChunker splits documents into token-budgeted, overlapping chunks
// using a separator profile chosen by document type. Splitters are built
// lazily, one per profile, and reused across documents.
type RecursiveChunker struct {
	chunkSize    int
	chunkOverlap int

	mu        sync.Mutex
	splitters map[string]document.Transformer
}

var _ repository.Chunker = (*RecursiveChunker)(nil)

func NewRecursiveChunker(size, overlap int) *RecursiveChunker {
	if size <= 0 {
		size = 400
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 2
	}
	return &RecursiveChunker{
		chunkSize:    size,
		chunkOverlap: overlap,
		splitters:    make(map[string]document.Transformer),
	}
}

// TokenLen counts whitespace-separated tokens. All budgets in this package
// are measured with it.
func TokenLen(s string) int { return len(strings.Fields(s)) }

func separatorsFor(docType string) []string {
	switch docType {
	case DocTypeEmail:
		return []string{"\n\n", "\n-----", "\n--", "\n", ". ", " "}
	case DocTypeLegal:
		return []string{"\n\n", "\nSECTION", "\nSection", "\nARTICLE", "\n", ". ", "; ", " "}
	case DocTypeOCRScan:
		return []string{"\f", "\n\n", "\n", ". ", " "}
	default:
		return []string{"\n\n", "\n", ". ", " "}
	}
}

func (c *RecursiveChunker) splitterFor(ctx context.Context, docType string) (document.Transformer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if impl, ok := c.splitters[docType]; ok {
		return impl, nil
	}
	impl, err := recursive.NewSplitter(ctx, &recursive.Config{
		ChunkSize:   c.chunkSize,
		OverlapSize: c.chunkOverlap,
		Separators:  separatorsFor(docType),
		LenFunc:     TokenLen,
		KeepType:    recursive.KeepTypeEnd,
	})
	if err != nil {
		return nil, fmt.Errorf("build splitter for %s: %w", docType, err)
	}
	c.splitters[docType] = impl
	return impl, nil
}

// Chunk splits one document into ordered chunks. Chunk indexes are assigned
// sequentially from zero; token offsets advance by the fragment size minus
// the configured overlap so neighbouring chunks share a margin.
func (c *RecursiveChunker) Chunk(ctx context.Context, src repository.ChunkSource) ([]content.Chunk, error) {
	body := strings.TrimSpace(src.Body)
	if body == "" {
		return nil, nil
	}

	docType := src.DocType
	if docType == "" {
		docType = ClassifyDocType("", src.Title, body)
	}

	splitter, err := c.splitterFor(ctx, docType)
	if err != nil {
		return nil, err
	}
	frags, err := splitter.Transform(ctx, []*schema.Document{{ID: src.DocID, Content: body}})
	if err != nil {
		return nil, fmt.Errorf("split %s: %w", src.DocID, err)
	}

	chunks := make([]content.Chunk, 0, len(frags))
	cursor := 0
	for _, f := range frags {
		if f == nil {
			continue
		}
		text := strings.TrimSpace(f.Content)
		if text == "" {
			continue
		}
		tokens := TokenLen(text)
		ch := content.Chunk{
			DocID:        src.DocID,
			ChunkIdx:     len(chunks),
			Text:         text,
			TokenCount:   tokens,
			TokenStart:   cursor,
			TokenEnd:     cursor + tokens,
			SectionTitle: sectionHeading(text),
			QuoteDepth:   dominantQuoteDepth(text),
		}
		chunks = append(chunks, ch)

		advance := tokens - c.chunkOverlap
		if advance < 1 {
			advance = 1
		}
		cursor += advance
	}
	return chunks, nil
}

var headingPattern = regexp.MustCompile(`(?i)^((section|article|exhibit|schedule|appendix|part)\s+[0-9ivxlc]+\b.*|[0-9]+(\.[0-9]+)*[.)]?\s+\S.*)$`)

// sectionHeading returns the fragment's first line when it reads like a
// heading, so search hits can show where in the document a chunk sits.
func sectionHeading(text string) string {
	line := text
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(line)
	if line == "" || len(line) > 80 {
		return ""
	}
	if headingPattern.MatchString(line) {
		return line
	}
	if strings.HasSuffix(line, ".") || strings.HasSuffix(line, ",") {
		return ""
	}
	letters, uppers := 0, 0
	for _, r := range line {
		if r >= 'a' && r <= 'z' {
			letters++
		}
		if r >= 'A' && r <= 'Z' {
			letters++
			uppers++
		}
	}
	if letters >= 4 && uppers == letters {
		return line
	}
	return ""
}

// dominantQuoteDepth returns the most common leading '>' depth across the
// fragment's non-empty lines, preferring the deeper level on ties.
func dominantQuoteDepth(text string) int {
	counts := make(map[int]int)
	lines := 0
	for _, ln := range strings.Split(text, "\n") {
		if strings.TrimSpace(ln) == "" {
			continue
		}
		depth := 0
	scan:
		for _, r := range ln {
			switch r {
			case '>':
				depth++
			case ' ', '\t':
			default:
				break scan
			}
		}
		counts[depth]++
		lines++
	}
	if lines == 0 {
		return 0
	}
	best, bestCount := 0, -1
	for depth, c := range counts {
		if c > bestCount || (c == bestCount && depth > best) {
			best, bestCount = depth, c
		}
	}
	return best
}
