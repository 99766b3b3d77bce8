package platform

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"blog-publisher/infrastructure/logger"
	"blog-publisher/infrastructure/retry"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
)

// Call performs exactly one network attempt.
type Call func(ctx context.Context) error

type Sleeper func(ctx context.Context, d time.Duration) error

// Runner applies the retry policy to a single network call. Each attempt is
// bounded by the HTTP client's own timeout, not by the runner.
type Runner struct {
	platform string
	cfg      retry.Config
	breaker  circuitbreaker.CircuitBreaker[any]
	sleep    Sleeper

	mu  sync.Mutex
	rnd *rand.Rand
}

type Option func(*Runner)

func WithBreaker(cb circuitbreaker.CircuitBreaker[any]) Option {
	return func(r *Runner) { r.breaker = cb }
}

func WithRand(rnd *rand.Rand) Option {
	return func(r *Runner) { r.rnd = rnd }
}

func WithSleeper(s Sleeper) Option {
	return func(r *Runner) { r.sleep = s }
}

func NewRunner(platform string, cfg retry.Config, opts ...Option) *Runner {
	r := &Runner{
		platform: platform,
		cfg:      cfg.Normalize(),
		sleep:    SleepContext,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runner) Config() retry.Config { return r.cfg }

// Do runs call until it succeeds, fails permanently or the retry budget is
// spent. It returns the number of retries performed.
func (r *Runner) Do(ctx context.Context, call Call) (int, error) {
	for attempt := 0; ; attempt++ {
		err := r.attempt(ctx, call)
		if err == nil {
			return attempt, nil
		}
		if !Retryable(err) {
			return attempt, err
		}
		if attempt >= r.cfg.MaxRetries {
			return attempt, &ExhaustedError{Retries: attempt, Last: err}
		}
		delay := r.delay(attempt)
		logger.GetLogger().WithFields(map[string]interface{}{
			"platform": r.platform,
			"attempt":  attempt + 1,
			"delay":    delay.String(),
			"error":    err.Error(),
		}).Warn("platform call failed, retrying")
		if sleepErr := r.sleep(ctx, delay); sleepErr != nil {
			return attempt, fmt.Errorf("retry interrupted: %w: %w", sleepErr, err)
		}
	}
}

func (r *Runner) attempt(ctx context.Context, call Call) error {
	if r.breaker == nil {
		return call(ctx)
	}
	_, err := failsafe.With(r.breaker).Get(func() (any, error) {
		return nil, call(ctx)
	})
	return err
}

func (r *Runner) delay(attempt int) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return retry.BackoffDelay(attempt, r.cfg, r.rnd)
}

// SleepContext waits for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// BreakerConfig describes a per-platform circuit breaker.
type BreakerConfig struct {
	FailureThreshold uint
	MinRequests      uint
	OpenFor          time.Duration
	OnStateChange    func(platform, from, to string)
}

// NewBreaker builds a circuit breaker that only counts transient failures,
// so rejected payloads never trip it.
func NewBreaker(platform string, cfg BreakerConfig) circuitbreaker.CircuitBreaker[any] {
	if cfg.MinRequests == 0 {
		cfg.MinRequests = 10
	}
	if cfg.FailureThreshold == 0 || cfg.FailureThreshold > cfg.MinRequests {
		cfg.FailureThreshold = cfg.MinRequests / 2
		if cfg.FailureThreshold == 0 {
			cfg.FailureThreshold = 1
		}
	}
	if cfg.OpenFor <= 0 {
		cfg.OpenFor = 30 * time.Second
	}
	return circuitbreaker.NewBuilder[any]().
		WithFailureThresholdRatio(cfg.FailureThreshold, cfg.MinRequests).
		WithDelay(cfg.OpenFor).
		WithSuccessThreshold(1).
		HandleIf(func(_ any, err error) bool {
			return err != nil && Retryable(err)
		}).
		OnStateChanged(func(event circuitbreaker.StateChangedEvent) {
			from, to := stateName(event.OldState), stateName(event.NewState)
			logger.GetLogger().WithFields(map[string]interface{}{
				"platform":   platform,
				"from_state": from,
				"to_state":   to,
			}).Warn("circuit breaker state change")
			if cfg.OnStateChange != nil {
				cfg.OnStateChange(platform, from, to)
			}
		}).
		Build()
}

func stateName(s circuitbreaker.State) string {
	switch s {
	case circuitbreaker.OpenState:
		return "open"
	case circuitbreaker.HalfOpenState:
		return "half-open"
	default:
		return "closed"
	}
}
