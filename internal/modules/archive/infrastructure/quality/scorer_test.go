package quality

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CaseVault/internal/modules/archive/domain/content"
)

const prosePassage = "The court granted our motion to compel production of the custodial files, " +
	"and opposing counsel must now deliver the remaining records within fourteen days. " +
	"We should schedule a short call this week to plan the review workflow, assign " +
	"reviewers to each batch, and flag any privileged material before the production deadline."

func newTestScorer() *Scorer {
	return NewScorer(DefaultConfig())
}

func TestScoreDeterministic(t *testing.T) {
	s := newTestScorer()
	a := s.Score(&content.Chunk{Text: prosePassage})
	b := s.Score(&content.Chunk{Text: prosePassage})
	require.Equal(t, a, b)

	other := NewScorer(DefaultConfig())
	require.Equal(t, a, other.Score(&content.Chunk{Text: prosePassage}))
}

func TestScoreRange(t *testing.T) {
	s := newTestScorer()
	texts := []string{
		prosePassage,
		strings.Repeat(prosePassage+"\n", 5),
		strings.Repeat("exhibit ", 200),
		"Deposition of the records custodian is set for the second week of June, pending confirmation from chambers and both parties of record.",
	}
	for _, text := range texts {
		score := s.Score(&content.Chunk{Text: text})
		assert.GreaterOrEqual(t, score, 0.0)
		assert.LessOrEqual(t, score, 1.0)
	}
}

func TestScoreMarksChunk(t *testing.T) {
	s := newTestScorer()
	ch := &content.Chunk{Text: prosePassage}
	require.False(t, ch.Scored)
	score := s.Score(ch)
	require.True(t, ch.Scored)
	require.Equal(t, score, ch.QualityScore)
}

func TestHardExclusionTooShort(t *testing.T) {
	s := newTestScorer()
	require.Zero(t, s.Score(&content.Chunk{Text: "Noted, thanks."}))
	require.Zero(t, s.Score(&content.Chunk{Text: ""}))
	require.Zero(t, s.Score(&content.Chunk{Text: "   \n\n  "}))
}

func TestHardExclusionTooFewTokens(t *testing.T) {
	s := newTestScorer()
	// Over a hundred characters but well under twenty tokens.
	text := strings.Repeat("acknowledgement ", 8)
	require.GreaterOrEqual(t, len(text), 100)
	require.Less(t, len(strings.Fields(text)), 20)
	require.Zero(t, s.Score(&content.Chunk{Text: text}))
}

func TestHardExclusionHeadersOnly(t *testing.T) {
	s := newTestScorer()
	lines := []string{
		"From: counsel@averyboone-example.com",
		"To: client.services@example.com, records@example.com",
		"Cc: paralegal@averyboone-example.com, docket@averyboone-example.com",
		"Subject: Amended discovery schedule and custodian list for review",
		"Date: Mon, 3 Mar 2025 10:15:00 -0500",
		"Sent: Mon, 3 Mar 2025 10:15:02 -0500",
		"From: mailer-daemon@example.com",
		"To: counsel@averyboone-example.com",
		"Subject: Delivery receipt for amended discovery schedule",
		"Please see the attached schedule.",
	}
	require.Zero(t, s.Score(&content.Chunk{Text: strings.Join(lines, "\n")}))
}

func TestHardExclusionSignatureOnly(t *testing.T) {
	s := newTestScorer()
	lines := []string{
		"--",
		"Jordan Avery, Partner",
		"Avery & Boone LLP, Litigation Group",
		"Tel: (555) 014-2288",
		"Fax: (555) 014-2289",
		"www.averyboone-example.com",
		"Confidentiality Notice: this message is privileged and confidential and intended only for the named recipient.",
	}
	require.Zero(t, s.Score(&content.Chunk{Text: strings.Join(lines, "\n")}))
}

func TestHardExclusionShortClosing(t *testing.T) {
	s := newTestScorer()
	text := "I have attached the revised settlement statement for your records. " +
		"Please review the figures and call me with any questions before Thursday.\n" +
		"Sincerely,\nDana"
	require.Less(t, len(text), 250)
	require.Zero(t, s.Score(&content.Chunk{Text: text}))

	// The same closing inside a substantial chunk does not zero it.
	long := prosePassage + "\nSincerely,\nDana"
	require.Greater(t, s.Score(&content.Chunk{Text: long}), 0.0)
}

func TestQuoteDepthLowersScore(t *testing.T) {
	s := newTestScorer()
	prev := 2.0
	for depth := 0; depth <= 6; depth++ {
		score := s.Score(&content.Chunk{Text: prosePassage, QuoteDepth: depth})
		assert.LessOrEqual(t, score, prev, "depth %d", depth)
		prev = score
	}

	// The penalty saturates at depth 5.
	atFive := s.Score(&content.Chunk{Text: prosePassage, QuoteDepth: 5})
	atNine := s.Score(&content.Chunk{Text: prosePassage, QuoteDepth: 9})
	assert.Equal(t, atFive, atNine)

	// Depth derived from the text itself when the chunk does not carry it.
	quoted := "> " + strings.ReplaceAll(prosePassage, ". ", ".\n> ")
	plain := s.Score(&content.Chunk{Text: prosePassage})
	derived := s.Score(&content.Chunk{Text: quoted})
	assert.Less(t, derived, plain)
}

func TestAcceptableAgainstThreshold(t *testing.T) {
	s := newTestScorer()
	require.True(t, s.IsAcceptable(&content.Chunk{Text: prosePassage}))
	require.False(t, s.IsAcceptable(&content.Chunk{Text: "Noted, thanks."}))

	// IsAcceptable scores unscored chunks on demand.
	ch := &content.Chunk{Text: prosePassage}
	s.IsAcceptable(ch)
	require.True(t, ch.Scored)
}

func TestLengthScorePiecewise(t *testing.T) {
	s := newTestScorer()
	assert.InDelta(t, 0.1, s.lengthScore(100), 1e-9)
	assert.InDelta(t, 0.5, s.lengthScore(500), 1e-9)
	assert.InDelta(t, 1.0, s.lengthScore(1000), 1e-9)
	assert.InDelta(t, 0.75, s.lengthScore(1500), 1e-9)
	assert.InDelta(t, 0.5, s.lengthScore(2000), 1e-9)
	assert.InDelta(t, 0.5, s.lengthScore(5000), 1e-9)
	assert.Greater(t, s.lengthScore(600), s.lengthScore(400))
}

func TestEntropyScore(t *testing.T) {
	varied := entropyScore(strings.Fields("the court granted relief after briefing closed on schedule"))
	uniform := entropyScore(strings.Fields(strings.Repeat("stamp ", 40)))
	assert.Greater(t, varied, uniform)
	assert.Zero(t, entropyScore(nil))

	// A single repeated word has zero entropy and minimal token variety.
	assert.InDelta(t, 0.3*1.0/40.0, uniform, 1e-9)
}

func TestLineQuoteDepth(t *testing.T) {
	cases := map[string]int{
		"plain text":        0,
		"> quoted once":     1,
		"> > quoted twice":  2,
		">>deep no spaces":  2,
		"  > indented":      1,
		">":                 1,
		"no > marker later": 0,
	}
	for line, want := range cases {
		assert.Equal(t, want, lineQuoteDepth(line), "line %q", line)
	}
}

func TestDominantQuoteDepthPrefersDeeperOnTie(t *testing.T) {
	lines := []string{"plain", "> quoted", "plain again", "> quoted again"}
	assert.Equal(t, 1, dominantQuoteDepth(lines))
	assert.Equal(t, 0, dominantQuoteDepth(nil))
}

func TestDefaultRulesClassify(t *testing.T) {
	s := newTestScorer()
	counts := s.classifyLines([]string{
		"From: a@example.com",
		"On Tue, Mar 4, 2025 at 9:02 AM Jordan Avery wrote:",
		"Sent from my iPhone",
		"Best regards,",
		"Page 3 of 12",
		"==========",
		"The merits panel will hear argument in October.",
	})
	assert.Equal(t, 2, counts[CategoryHeader])
	assert.Equal(t, 1, counts[CategorySignature])
	assert.Equal(t, 1, counts[CategoryClosing])
	assert.Equal(t, 2, counts[CategoryBoilerplate])
}

func TestScoreFavorsVariedProse(t *testing.T) {
	s := newTestScorer()
	varied := s.Score(&content.Chunk{Text: prosePassage})
	repeated := s.Score(&content.Chunk{Text: strings.TrimSpace(strings.Repeat("as noted below the filing stands. ", 12))})
	assert.Greater(t, varied, repeated)
}

func TestScoreLongDocumentScoresHigh(t *testing.T) {
	s := newTestScorer()
	var b strings.Builder
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&b, "Section %d reviews the procedural history of docket entry %d and the related exhibits produced during discovery.\n", i+1, 100+i)
	}
	score := s.Score(&content.Chunk{Text: b.String()})
	assert.Greater(t, score, 0.5)
	assert.LessOrEqual(t, score, 1.0)
}
