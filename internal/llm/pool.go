package llm

import (
	"context"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Pool dispatches chat-completion requests across an ordered, cyclic list
// of providers with exactly one fallback attempt. The selection cursor is a
// single shared counter that advances atomically; the pipeline itself is
// single-threaded, but the pool stays safe if callers ever parallelize.
type Pool struct {
	providers []Provider
	cursor    atomic.Uint64
}

// NewPool builds a pool over the given providers. An empty provider list is
// a configuration error and fails here, not at first use.
func NewPool(providers ...Provider) (*Pool, error) {
	if len(providers) == 0 {
		return nil, eris.New("llm: no providers configured")
	}
	return &Pool{providers: providers}, nil
}

// next returns the next provider in cyclic order, advancing the cursor.
func (p *Pool) next() Provider {
	idx := p.cursor.Add(1) - 1
	return p.providers[idx%uint64(len(p.providers))]
}

// Cursor reports how many selections the pool has made.
func (p *Pool) Cursor() uint64 {
	return p.cursor.Load()
}

// Invoke attempts the request against the next provider in cyclic order,
// then once more against the provider after it. There is no further retry
// and no backoff: after two failures the error surfaces immediately so the
// caller can decide whether to skip, log, or abort. With a single provider
// configured the fallback targets the same provider a second time.
func (p *Pool) Invoke(ctx context.Context, req Request) (string, error) {
	primary := p.next()
	zap.L().Info("llm: invoking provider", zap.String("provider", primary.Name()))

	text, err := primary.Complete(ctx, req)
	if err == nil {
		return text, nil
	}
	zap.L().Warn("llm: provider failed, falling back",
		zap.String("provider", primary.Name()),
		zap.Error(err),
	)

	fallback := p.next()
	zap.L().Info("llm: retrying with fallback", zap.String("provider", fallback.Name()))

	text, fbErr := fallback.Complete(ctx, req)
	if fbErr != nil {
		zap.L().Error("llm: fallback provider failed",
			zap.String("provider", fallback.Name()),
			zap.Error(fbErr),
		)
		return "", eris.Wrapf(fbErr, "llm: both providers failed (primary %s: %v)", primary.Name(), err)
	}
	return text, nil
}
