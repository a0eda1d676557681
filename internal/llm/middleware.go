package llm

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

type rateLimited struct {
	next    Provider
	limiter *rate.Limiter
}

// RateLimited makes every call wait for a token: perSecond calls per second
// with the given burst. A non-positive rate returns next unchanged.
func RateLimited(next Provider, perSecond float64, burst int) Provider {
	if perSecond <= 0 {
		return next
	}
	if burst <= 0 {
		burst = 1
	}
	return &rateLimited{next: next, limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

func (r *rateLimited) Name() string { return r.next.Name() }

func (r *rateLimited) Generate(ctx context.Context, req *Request) (*Response, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRateLimited, err)
	}
	return r.next.Generate(ctx, req)
}

type timeoutProvider struct {
	next    Provider
	timeout time.Duration
}

// WithTimeout bounds each model call.
func WithTimeout(next Provider, d time.Duration) Provider {
	if d <= 0 {
		return next
	}
	return &timeoutProvider{next: next, timeout: d}
}

func (t *timeoutProvider) Name() string { return t.next.Name() }

func (t *timeoutProvider) Generate(ctx context.Context, req *Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Generate(ctx, req)
}
