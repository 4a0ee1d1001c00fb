// Package resilience retries transient model-API failures with exponential
// backoff. The interview engine already degrades gracefully when extraction
// fails outright; retrying here just keeps momentary rate limits and network
// blips from costing the user a turn.
package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"net"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"go.uber.org/zap"
)

// Config controls retry behavior.
type Config struct {
	// MaxAttempts counts the first try. 1 disables retries.
	MaxAttempts int
	// InitialBackoff is the delay before the first retry.
	InitialBackoff time.Duration
	// MaxBackoff caps the delay.
	MaxBackoff time.Duration
}

// DefaultConfig suits interactive completion calls: two quick retries, never
// more than a few seconds of added latency on a conversational turn.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:    3,
		InitialBackoff: 400 * time.Millisecond,
		MaxBackoff:     3 * time.Second,
	}
}

// Do runs fn, retrying transient errors per cfg. Context cancellation stops
// retries immediately and returns fn's last error.
func Do(ctx context.Context, cfg Config, op string, fn func(ctx context.Context) error) error {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil || !Transient(lastErr) || attempt == cfg.MaxAttempts-1 {
			return lastErr
		}

		delay := backoff(cfg, attempt)
		zap.L().Warn("transient failure, retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", delay),
			zap.Error(lastErr))

		select {
		case <-ctx.Done():
			return lastErr
		case <-time.After(delay):
		}
	}
	return lastErr
}

// backoff doubles per attempt with ±25% jitter.
func backoff(cfg Config, attempt int) time.Duration {
	d := float64(cfg.InitialBackoff) * math.Pow(2, float64(attempt))
	if max := float64(cfg.MaxBackoff); d > max {
		d = max
	}
	d *= 1 + (rand.Float64()-0.5)*0.5
	return time.Duration(d)
}

// Transient reports whether err is worth retrying: a retryable API status,
// a network timeout, or a connection-level failure.
func Transient(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 408, 429, 500, 502, 503, 504, 529:
			return true
		}
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"connection reset by peer",
		"connection refused",
		"broken pipe",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
