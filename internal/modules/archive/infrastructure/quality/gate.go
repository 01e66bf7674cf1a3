package quality

import (
	"errors"
	"io"

	"CaseVault/internal/modules/archive/domain/content"
)

// Producer yields the next candidate chunk, or io.EOF when the source is
// exhausted. Producers are pulled lazily; nothing is scored ahead of demand.
type Producer func() (*content.Chunk, error)

// SliceProducer adapts an in-memory slice to a Producer.
func SliceProducer(chunks []content.Chunk) Producer {
	i := 0
	return func() (*content.Chunk, error) {
		if i >= len(chunks) {
			return nil, io.EOF
		}
		ch := &chunks[i]
		i++
		return ch, nil
	}
}

// GateStats accumulates across the gate's lifetime, surviving source swaps.
type GateStats struct {
	Passed int
	Failed int
}

func (s GateStats) Total() int { return s.Passed + s.Failed }

func (s GateStats) PassRate() float64 {
	if t := s.Total(); t > 0 {
		return float64(s.Passed) / float64(t)
	}
	return 0
}

// Gate filters a chunk stream through a Scorer. Chunks below the threshold
// are counted and dropped; callers only ever see passing chunks. Reset
// swaps in a new source while keeping the running statistics, so one gate
// can meter a whole run across many documents.
type Gate struct {
	scorer *Scorer
	src    Producer
	stats  GateStats
}

func NewGate(scorer *Scorer, src Producer) *Gate {
	return &Gate{scorer: scorer, src: src}
}

// Reset points the gate at a new source. Statistics are retained.
func (g *Gate) Reset(src Producer) { g.src = src }

// Next returns the next chunk that clears the threshold, scoring candidates
// on demand. It returns io.EOF when the source is exhausted.
func (g *Gate) Next() (*content.Chunk, error) {
	if g.src == nil {
		return nil, io.EOF
	}
	for {
		ch, err := g.src()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			return nil, err
		}
		if g.scorer.IsAcceptable(ch) {
			g.stats.Passed++
			return ch, nil
		}
		g.stats.Failed++
	}
}

// Drain pulls the remaining source to exhaustion and returns every passing
// chunk in order.
func (g *Gate) Drain() ([]*content.Chunk, error) {
	var out []*content.Chunk
	for {
		ch, err := g.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, ch)
	}
}

func (g *Gate) Stats() GateStats { return g.stats }
