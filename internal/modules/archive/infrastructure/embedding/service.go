package embedding

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/embedding"
	"go.uber.org/zap"

	"CaseVault/internal/config"
	"CaseVault/pkg/zlog"
)

type ServiceConfig struct {
	// SubBatchSize caps how many texts go to the provider in one call.
	SubBatchSize int
	// MaxInputRunes truncates oversized inputs before embedding.
	MaxInputRunes int
	// RetryTimes is the number of retries after the first attempt.
	RetryTimes   int
	RetryBackoff time.Duration
}

func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		SubBatchSize:  16,
		MaxInputRunes: 8000,
		RetryTimes:    2,
		RetryBackoff:  500 * time.Millisecond,
	}
}

// Service wraps a provider embedder with sub-batching, input truncation and
// retry. It is itself an embedding.Embedder, so pipelines and graphs can
// take either the raw provider or the hardened service.
type Service struct {
	inner embedding.Embedder
	meta  EmbedderMeta
	cfg   ServiceConfig
}

var _ embedding.Embedder = (*Service)(nil)

func NewService(inner embedding.Embedder, meta EmbedderMeta, cfg ServiceConfig) *Service {
	def := DefaultServiceConfig()
	if cfg.SubBatchSize <= 0 {
		cfg.SubBatchSize = def.SubBatchSize
	}
	if cfg.MaxInputRunes <= 0 {
		cfg.MaxInputRunes = def.MaxInputRunes
	}
	if cfg.RetryTimes < 0 {
		cfg.RetryTimes = def.RetryTimes
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = def.RetryBackoff
	}
	return &Service{inner: inner, meta: meta, cfg: cfg}
}

// NewServiceFromConfig builds the provider selected by config and wraps it.
func NewServiceFromConfig(ctx context.Context, conf *config.Config) (*Service, error) {
	inner, meta, err := NewEmbedderFromConfig(ctx, conf)
	if err != nil {
		return nil, err
	}
	cfg := DefaultServiceConfig()
	if conf.AIConfig.Embedding.SubBatchSize > 0 {
		cfg.SubBatchSize = conf.AIConfig.Embedding.SubBatchSize
	}
	if conf.AIConfig.Embedding.MaxInputRunes > 0 {
		cfg.MaxInputRunes = conf.AIConfig.Embedding.MaxInputRunes
	}
	if conf.AIConfig.Embedding.RetryTimes > 0 {
		cfg.RetryTimes = conf.AIConfig.Embedding.RetryTimes
	}
	return NewService(inner, meta, cfg), nil
}

func (s *Service) Meta() EmbedderMeta { return s.meta }

// EmbedStrings embeds all texts, splitting them into provider-sized
// sub-batches. Output order matches input order. Any sub-batch failure
// fails the whole call; partial results are never returned.
func (s *Service) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	if len(texts) == 0 {
		return [][]float64{}, nil
	}

	prepared := make([]string, len(texts))
	for i, t := range texts {
		prepared[i] = truncateRunes(strings.TrimSpace(t), s.cfg.MaxInputRunes)
	}

	out := make([][]float64, 0, len(prepared))
	for start := 0; start < len(prepared); start += s.cfg.SubBatchSize {
		end := start + s.cfg.SubBatchSize
		if end > len(prepared) {
			end = len(prepared)
		}
		sub := prepared[start:end]

		vecs, err := s.embedWithRetry(ctx, sub, opts...)
		if err != nil {
			return nil, fmt.Errorf("embed sub-batch [%d:%d): %w", start, end, err)
		}
		if len(vecs) != len(sub) {
			return nil, fmt.Errorf("embed sub-batch [%d:%d): got %d vectors for %d texts", start, end, len(vecs), len(sub))
		}
		if s.meta.Dim > 0 {
			for i, v := range vecs {
				if len(v) != s.meta.Dim {
					return nil, fmt.Errorf("embed sub-batch [%d:%d): vector %d has dim %d, want %d", start, end, start+i, len(v), s.meta.Dim)
				}
			}
		}
		out = append(out, vecs...)
	}
	return out, nil
}

// EmbedOne embeds a single text, typically a search query.
func (s *Service) EmbedOne(ctx context.Context, text string) ([]float64, error) {
	vecs, err := s.EmbedStrings(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("expected 1 vector, got %d", len(vecs))
	}
	return vecs[0], nil
}

func (s *Service) embedWithRetry(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	var lastErr error
	backoff := s.cfg.RetryBackoff
	for attempt := 0; attempt <= s.cfg.RetryTimes; attempt++ {
		if attempt > 0 {
			zlog.Warn("retrying embedding call",
				zap.Int("attempt", attempt),
				zap.Int("texts", len(texts)),
				zap.Error(lastErr))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
		vecs, err := s.inner.EmbedStrings(ctx, texts, opts...)
		if err == nil {
			return vecs, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
