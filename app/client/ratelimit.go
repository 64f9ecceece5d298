package client

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// rateLimiter throttles requests proactively and backs off when the API
// answers with Retry-After.
type rateLimiter struct {
	mu         sync.Mutex
	bucket     *rate.Limiter
	retryAfter time.Time
}

func newRateLimiter(perSecond float64) *rateLimiter {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &rateLimiter{bucket: rate.NewLimiter(limit, 1)}
}

func (r *rateLimiter) Wait(ctx context.Context) error {
	if err := r.bucket.Wait(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	until := r.retryAfter
	r.mu.Unlock()

	if wait := time.Until(until); wait > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil
}

func (r *rateLimiter) Update(resp *http.Response) {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return
	}

	r.mu.Lock()
	r.retryAfter = time.Now().Add(time.Duration(secs) * time.Second)
	r.mu.Unlock()
}
