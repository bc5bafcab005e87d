package pipeline

import (
	"context"
	"math/rand"
	"time"
)

// Pacer inserts a jittered delay after each call to a rate-limited remote
// service. Pacing respects quota and avoids tripping abuse detection; it is
// not a correctness mechanism.
type Pacer struct {
	min time.Duration
	max time.Duration
}

// NewPacer builds a pacer sleeping a uniform random duration in [min, max].
func NewPacer(min, max time.Duration) *Pacer {
	if max < min {
		max = min
	}
	return &Pacer{min: min, max: max}
}

// Wait blocks for the jittered interval or until the context is canceled.
func (p *Pacer) Wait(ctx context.Context) {
	if p == nil || p.max <= 0 {
		return
	}
	delay := p.min
	if span := p.max - p.min; span > 0 {
		delay += time.Duration(rand.Int63n(int64(span)))
	}
	select {
	case <-ctx.Done():
	case <-time.After(delay):
	}
}
