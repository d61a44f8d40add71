package scraper

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// pacer enforces a fixed pause between the end of one fetch and the start
// of the next, however long the fetch itself took.
type pacer struct {
	every   time.Duration
	limiter *rate.Limiter
}

func newPacer(every time.Duration) *pacer {
	return &pacer{every: every, limiter: rate.NewLimiter(rate.Inf, 1)}
}

// Wait blocks until the pause after the last finished fetch has elapsed.
func (p *pacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// Done marks a fetch as finished. The next Wait returns no sooner than
// every from now.
func (p *pacer) Done() {
	if p.every <= 0 {
		return
	}
	p.limiter = rate.NewLimiter(rate.Every(p.every), 1)
	p.limiter.Allow()
}
