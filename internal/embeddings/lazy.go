package embeddings

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/adanalyst/internal/logging"
)

// Factory builds a Provider. It runs at most once per Lazy.
type Factory func() (Provider, error)

// Lazy defers provider construction until the first embedding request.
// Model loading is expensive and a run that never validates a response
// should not pay for it. After the first call the provider (or the
// construction error) is fixed and shared read-only.
type Lazy struct {
	factory Factory
	logger  *logging.Logger

	once     sync.Once
	provider Provider
	initErr  error
}

// NewLazy wraps factory. A nil logger disables logging.
func NewLazy(factory Factory, logger *logging.Logger) *Lazy {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Lazy{factory: factory, logger: logger}
}

func (l *Lazy) init(ctx context.Context) {
	l.once.Do(func() {
		start := time.Now()
		p, err := l.factory()
		if err != nil {
			l.initErr = fmt.Errorf("%w: provider init: %v", ErrEmbeddingFailed, err)
			l.logger.Warn(ctx, "embedding provider unavailable", zap.Error(err))
			return
		}
		l.provider = p
		l.logger.Info(ctx, "embedding provider ready",
			zap.Int("dimension", p.Dimension()),
			zap.Duration("init", time.Since(start)))
	})
}

// EmbedQuery initializes the provider on first use and embeds text.
func (l *Lazy) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	l.init(ctx)
	if l.initErr != nil {
		return nil, l.initErr
	}
	return l.provider.EmbedQuery(ctx, text)
}

// Close releases the provider if it was ever built.
func (l *Lazy) Close() error {
	l.once.Do(func() {
		l.initErr = fmt.Errorf("%w: closed before first use", ErrEmbeddingFailed)
	})
	if l.provider == nil {
		return nil
	}
	return l.provider.Close()
}
