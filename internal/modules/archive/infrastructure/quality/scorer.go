package quality

import (
	"math"
	"strings"
	"unicode/utf8"

	"CaseVault/internal/modules/archive/domain/content"
)

// Weights for the blended quality score. The quote weight is applied to the
// inverted penalty, so deeper quoting always lowers the final score.
type Weights struct {
	Length  float64
	Entropy float64
	Content float64
	Quote   float64
}

func DefaultWeights() Weights {
	return Weights{Length: 0.4, Entropy: 0.3, Content: 0.2, Quote: 0.1}
}

type Config struct {
	// Threshold is the minimum acceptable score. Chunks below it are
	// stored but never embedded.
	Threshold float64

	// Hard exclusion floors. A chunk failing any of these scores 0
	// regardless of the blended formula.
	MinChars  int
	MinTokens int

	// ExpectedTokens is the token count at which the length component
	// saturates at 1.0.
	ExpectedTokens int

	// HeaderLineRatio and SignatureLineRatio are the fractions of
	// non-empty lines above which a chunk counts as headers-only or
	// signature-only.
	HeaderLineRatio    float64
	SignatureLineRatio float64

	// ShortSignatureChars marks chunks that end in a closing salutation
	// and are shorter than this as signature fragments.
	ShortSignatureChars int

	Weights Weights
	Rules   []Rule
}

func DefaultConfig() Config {
	return Config{
		Threshold:           0.35,
		MinChars:            100,
		MinTokens:           20,
		ExpectedTokens:      1000,
		HeaderLineRatio:     0.8,
		SignatureLineRatio:  0.6,
		ShortSignatureChars: 250,
		Weights:             DefaultWeights(),
		Rules:               DefaultRules(),
	}
}

// Scorer computes deterministic quality scores in [0,1] from chunk text
// alone. The same text always produces the same score.
type Scorer struct {
	cfg Config
}

func NewScorer(cfg Config) *Scorer {
	def := DefaultConfig()
	if cfg.Threshold <= 0 {
		cfg.Threshold = def.Threshold
	}
	if cfg.MinChars <= 0 {
		cfg.MinChars = def.MinChars
	}
	if cfg.MinTokens <= 0 {
		cfg.MinTokens = def.MinTokens
	}
	if cfg.ExpectedTokens <= 0 {
		cfg.ExpectedTokens = def.ExpectedTokens
	}
	if cfg.HeaderLineRatio <= 0 {
		cfg.HeaderLineRatio = def.HeaderLineRatio
	}
	if cfg.SignatureLineRatio <= 0 {
		cfg.SignatureLineRatio = def.SignatureLineRatio
	}
	if cfg.ShortSignatureChars <= 0 {
		cfg.ShortSignatureChars = def.ShortSignatureChars
	}
	if cfg.Weights == (Weights{}) {
		cfg.Weights = def.Weights
	}
	if len(cfg.Rules) == 0 {
		cfg.Rules = def.Rules
	}
	return &Scorer{cfg: cfg}
}

func (s *Scorer) Threshold() float64 { return s.cfg.Threshold }

// Score computes the chunk's quality score, records it on the chunk and
// returns it. Scoring is idempotent.
func (s *Scorer) Score(ch *content.Chunk) float64 {
	score := s.scoreText(ch.Text, ch.QuoteDepth)
	ch.QualityScore = score
	ch.Scored = true
	return score
}

// IsAcceptable reports whether the chunk meets the threshold, scoring it
// first if it has not been scored yet.
func (s *Scorer) IsAcceptable(ch *content.Chunk) bool {
	if !ch.Scored {
		s.Score(ch)
	}
	return ch.QualityScore >= s.cfg.Threshold
}

func (s *Scorer) scoreText(text string, quoteDepth int) float64 {
	trimmed := strings.TrimSpace(text)
	if utf8.RuneCountInString(trimmed) < s.cfg.MinChars {
		return 0
	}
	tokens := strings.Fields(trimmed)
	if len(tokens) < s.cfg.MinTokens {
		return 0
	}

	lines := nonEmptyLines(trimmed)
	counts := s.classifyLines(lines)
	total := float64(len(lines))
	if total > 0 {
		if float64(counts[CategoryHeader])/total > s.cfg.HeaderLineRatio {
			return 0
		}
		if float64(counts[CategorySignature])/total > s.cfg.SignatureLineRatio {
			return 0
		}
	}
	if counts[CategoryClosing] > 0 && utf8.RuneCountInString(trimmed) < s.cfg.ShortSignatureChars {
		return 0
	}

	depth := quoteDepth
	if depth == 0 {
		depth = dominantQuoteDepth(lines)
	}
	quotePenalty := math.Min(1.0, float64(depth)*0.2)

	w := s.cfg.Weights
	score := w.Length*s.lengthScore(len(tokens)) +
		w.Entropy*entropyScore(tokens) +
		w.Content*s.contentScore(lines, counts)
	score += w.Quote * (1.0 - quotePenalty)
	return clamp01(score)
}

// lengthScore peaks at ExpectedTokens: linear ramp below it, and above it a
// penalty that bottoms out at 0.5 for chunks twice the expected size.
func (s *Scorer) lengthScore(tokens int) float64 {
	r := float64(tokens) / float64(s.cfg.ExpectedTokens)
	if r <= 1.0 {
		return r
	}
	return clamp01(1.0 - math.Min(0.5, (r-1.0)/2.0))
}

// entropyScore blends the normalized Shannon entropy of the lowercased
// word-frequency distribution with the type-token ratio. Repetitive filler
// scores low on both.
func entropyScore(tokens []string) float64 {
	if len(tokens) == 0 {
		return 0
	}
	freq := make(map[string]int, len(tokens))
	for _, t := range tokens {
		freq[strings.ToLower(t)]++
	}

	var shannon float64
	if len(freq) > 1 {
		n := float64(len(tokens))
		var h float64
		for _, c := range freq {
			p := float64(c) / n
			h -= p * math.Log2(p)
		}
		shannon = h / math.Log2(float64(len(freq)))
	}
	ttr := float64(len(freq)) / float64(len(tokens))

	return clamp01(0.7*shannon + 0.3*ttr)
}

// contentScore rewards chunks whose lines are mostly prose rather than
// recognized boilerplate, and penalizes repeated identical lines.
func (s *Scorer) contentScore(lines []string, counts map[string]int) float64 {
	if len(lines) == 0 {
		return 0
	}
	boiler := counts[CategoryHeader] + counts[CategorySignature] + counts[CategoryClosing] + counts[CategoryBoilerplate]
	boilerRatio := float64(boiler) / float64(len(lines))

	seen := make(map[string]struct{}, len(lines))
	for _, ln := range lines {
		seen[ln] = struct{}{}
	}
	distinctRatio := float64(len(seen)) / float64(len(lines))

	return clamp01(0.7*(1.0-boilerRatio) + 0.3*distinctRatio)
}

func (s *Scorer) classifyLines(lines []string) map[string]int {
	counts := make(map[string]int)
	for _, ln := range lines {
		for _, rule := range s.cfg.Rules {
			if rule.Pattern.MatchString(ln) {
				counts[rule.Category]++
				break
			}
		}
	}
	return counts
}

func nonEmptyLines(text string) []string {
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, ln := range raw {
		if t := strings.TrimSpace(ln); t != "" {
			lines = append(lines, t)
		}
	}
	return lines
}

// dominantQuoteDepth returns the most common leading '>' depth across
// lines, preferring the deeper level on ties.
func dominantQuoteDepth(lines []string) int {
	if len(lines) == 0 {
		return 0
	}
	counts := make(map[int]int)
	for _, ln := range lines {
		counts[lineQuoteDepth(ln)]++
	}
	best, bestCount := 0, -1
	for depth, c := range counts {
		if c > bestCount || (c == bestCount && depth > best) {
			best, bestCount = depth, c
		}
	}
	return best
}

func lineQuoteDepth(line string) int {
	depth := 0
	for _, r := range line {
		switch r {
		case '>':
			depth++
		case ' ', '\t':
			continue
		default:
			return depth
		}
	}
	return depth
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
