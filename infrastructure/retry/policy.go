// Package retry holds the backoff and retryability rules shared by every
// platform adapter. Everything here is a pure function.
package retry

import (
	"math/rand"
	"net/http"
	"time"
)

const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = time.Second
	DefaultMaxDelay   = 30 * time.Second

	jitterFraction = 0.25
)

type Config struct {
	MaxRetries int           `json:"maxRetries"`
	BaseDelay  time.Duration `json:"baseDelay"`
	MaxDelay   time.Duration `json:"maxDelay"`
}

// Normalize fills zero values with defaults.
func (c Config) Normalize() Config {
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	} else if c.MaxRetries == 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = DefaultBaseDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = DefaultMaxDelay
	}
	if c.MaxDelay < c.BaseDelay {
		c.MaxDelay = c.BaseDelay
	}
	return c
}

// IsRetryable is true for request timeouts, rate limiting and server errors.
func IsRetryable(status int) bool {
	switch {
	case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests:
		return true
	case status >= 500 && status <= 599:
		return true
	}
	return false
}

// Ceiling is the capped exponential delay for attempt, before jitter.
func Ceiling(attempt int, cfg Config) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := cfg.BaseDelay
	for i := 0; i < attempt; i++ {
		if d >= cfg.MaxDelay/2 {
			return cfg.MaxDelay
		}
		d *= 2
	}
	if d > cfg.MaxDelay {
		return cfg.MaxDelay
	}
	return d
}

// BackoffDelay returns min(base*2^attempt, max) plus up to 25% uniform jitter.
// A nil rnd yields the delay without jitter.
func BackoffDelay(attempt int, cfg Config, rnd *rand.Rand) time.Duration {
	d := Ceiling(attempt, cfg)
	if rnd == nil || d <= 0 {
		return d
	}
	jitter := time.Duration(rnd.Float64() * jitterFraction * float64(d))
	return d + jitter
}
