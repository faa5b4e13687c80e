package ratelimit

import (
	"context"
	"time"
)

// DefaultCallsPerSecond keeps a batch under the provider's request ceiling.
const DefaultCallsPerSecond = 30

// Pacer spaces successive external calls within one batch.
// Every Wait suspends the caller for Interval. No jitter, no backoff.
type Pacer struct {
	Interval time.Duration
}

// NewPacer returns a pacer allowing at most callsPerSecond calls per second.
func NewPacer(callsPerSecond int) *Pacer {
	if callsPerSecond <= 0 {
		callsPerSecond = DefaultCallsPerSecond
	}
	return &Pacer{Interval: time.Second / time.Duration(callsPerSecond)}
}

// Wait blocks for the pacing interval or until ctx is canceled.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil || p.Interval <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(p.Interval)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
