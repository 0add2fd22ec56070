package notify

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// Throttled paces outbound mail so a burst of registrations does not trip the
// relay's own limits. Send blocks until a token is free or ctx ends.
type Throttled struct {
	next    Sender
	limiter *rate.Limiter
}

func NewThrottled(next Sender, perSecond float64, burst int) *Throttled {
	if burst < 1 {
		burst = 1
	}
	return &Throttled{next: next, limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

func (t *Throttled) Name() string { return t.next.Name() + "+throttled" }

func (t *Throttled) Send(ctx context.Context, m Message) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("notify: throttle: %w", err)
	}
	return t.next.Send(ctx, m)
}
