package worker

import (
	"context"
	"math/rand"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces successful scrapes apart so the run resembles a person
// browsing. The limiter enforces a hard floor; on top of it each wait adds a
// randomized interval so consecutive gaps never look identical.
type Pacer struct {
	enabled bool
	limiter *rate.Limiter
	min     time.Duration
	max     time.Duration
	rng     *rand.Rand
}

// NewPacer builds a pacer for the given window. Disabled pacers wait for
// nothing.
func NewPacer(enabled bool, min, max time.Duration, rng *rand.Rand) *Pacer {
	if min <= 0 {
		min = 60 * time.Second
	}
	if max <= min {
		max = min + 25*time.Second
	}
	return &Pacer{
		enabled: enabled,
		limiter: rate.NewLimiter(rate.Every(min), 1),
		min:     min,
		max:     max,
		rng:     rng,
	}
}

// Wait blocks until the next scrape is allowed to start, or until the context
// is cancelled.
func (p *Pacer) Wait(ctx context.Context) error {
	if !p.enabled {
		return nil
	}
	// The limiter provides the minimum spacing, the jitter stretches it
	// toward the maximum. The first wait passes through on the burst token.
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}
	timer := time.NewTimer(p.jitter())
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (p *Pacer) jitter() time.Duration {
	span := int64(p.max - p.min)
	if p.rng != nil {
		return time.Duration(p.rng.Int63n(span))
	}
	return time.Duration(rand.Int63n(span))
}
