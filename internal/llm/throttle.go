package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// ThrottledCompleter paces outbound completions through a shared limiter.
type ThrottledCompleter struct {
	next    Completer
	limiter *rate.Limiter
}

// NewLimiter returns a limiter allowing rpm requests per minute, or nil when
// rpm <= 0. Burst is a tenth of rpm, at least 1.
func NewLimiter(rpm int) *rate.Limiter {
	if rpm <= 0 {
		return nil
	}
	burst := rpm / 10
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(float64(rpm)/60.0), burst)
}

// Throttle wraps next so each call waits on limiter. A nil limiter returns next unchanged.
func Throttle(next Completer, limiter *rate.Limiter) Completer {
	if limiter == nil {
		return next
	}
	return &ThrottledCompleter{next: next, limiter: limiter}
}

func (t *ThrottledCompleter) Complete(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}
	return t.next.Complete(ctx, req)
}
