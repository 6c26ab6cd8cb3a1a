package rpc

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"net/http"
	"time"
)

// RetryConfig configures retry behavior for transient errors.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	JitterFraction float64 // 0.0 to 1.0
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     2,
		InitialBackoff: 250 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		JitterFraction: 0.25,
	}
}

// isTransient reports whether another endpoint might succeed where this one failed.
// Protocol errors are answers from a working node and are never retried.
func isTransient(err error) bool {
	var ne *NetworkError
	if !errors.As(err, &ne) {
		return false
	}
	if ne.StatusCode == 0 {
		return true // no response, including a per-attempt timeout
	}
	return ne.StatusCode >= 500 || ne.StatusCode == http.StatusTooManyRequests
}

// backoff computes the delay before retry attempt with +/- jitter.
func (rc RetryConfig) backoff(attempt int) time.Duration {
	base := float64(rc.InitialBackoff) * math.Pow(2, float64(attempt))
	if base > float64(rc.MaxBackoff) {
		base = float64(rc.MaxBackoff)
	}
	jitter := base * rc.JitterFraction * (rand.Float64()*2 - 1)
	d := time.Duration(base + jitter)
	if d < 0 {
		d = 0
	}
	return d
}

// sleep waits for d or until ctx is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
