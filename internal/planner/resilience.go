package planner

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"

	"github.com/aristath/timeline/internal/persistence"
)

// RetryConfig configures exponential backoff for store operations.
type RetryConfig struct {
	InitialInterval     time.Duration // Initial retry interval (default 50ms)
	MaxInterval         time.Duration // Maximum retry interval (default 1s)
	MaxElapsedTime      time.Duration // Maximum total retry time (default 5s)
	Multiplier          float64       // Backoff multiplier (default 2.0)
	RandomizationFactor float64       // Jitter factor (default 0.5)
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		InitialInterval:     50 * time.Millisecond,
		MaxInterval:         time.Second,
		MaxElapsedTime:      5 * time.Second,
		Multiplier:          2.0,
		RandomizationFactor: 0.5,
	}
}

func (c RetryConfig) policy(ctx context.Context) backoff.BackOffContext {
	p := backoff.NewExponentialBackOff()
	p.InitialInterval = c.InitialInterval
	p.MaxInterval = c.MaxInterval
	p.MaxElapsedTime = c.MaxElapsedTime
	p.Multiplier = c.Multiplier
	p.RandomizationFactor = c.RandomizationFactor
	return backoff.WithContext(p, ctx)
}

// withRetry runs op until it succeeds, the policy gives up, or ctx ends.
// Missing rows and context errors are not retried.
func withRetry[T any](ctx context.Context, cfg RetryConfig, op func(context.Context) (T, error)) (T, error) {
	var out T
	operation := func() error {
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		v, err := op(ctx)
		if err != nil {
			if errors.Is(err, persistence.ErrNotFound) || ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		out = v
		return nil
	}
	err := backoff.Retry(operation, cfg.policy(ctx))
	return out, err
}

// BreakerSettings tunes the per-asset circuit breakers.
type BreakerSettings struct {
	FailureThreshold int           // Consecutive failures before the breaker opens (default 5)
	Cooldown         time.Duration // How long it stays open (default 30s)
	MaxRequests      uint32        // Trial requests allowed while half-open (default 3)
}

// BreakerRegistry manages one circuit breaker per asset. While an asset's
// breaker is open its schedule is served from the last-known-good snapshot
// without recomputing.
type BreakerRegistry struct {
	mu       sync.Mutex
	settings BreakerSettings
	logger   *slog.Logger
	breakers map[string]*gobreaker.CircuitBreaker
}

// NewBreakerRegistry creates a registry. Zero settings take their defaults.
func NewBreakerRegistry(settings BreakerSettings, logger *slog.Logger) *BreakerRegistry {
	if settings.FailureThreshold <= 0 {
		settings.FailureThreshold = 5
	}
	if settings.Cooldown <= 0 {
		settings.Cooldown = 30 * time.Second
	}
	if settings.MaxRequests == 0 {
		settings.MaxRequests = 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BreakerRegistry{
		settings: settings,
		logger:   logger,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

// Get returns the breaker for assetID, creating it on first use.
func (r *BreakerRegistry) Get(assetID string) *gobreaker.CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cb, ok := r.breakers[assetID]; ok {
		return cb
	}

	threshold := uint32(r.settings.FailureThreshold)
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        assetID,
		MaxRequests: r.settings.MaxRequests,
		Interval:    0, // Never clear counts while closed
		Timeout:     r.settings.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			r.logger.Warn("schedule breaker changed state", "asset", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: func(err error) bool {
			// Cancellation says nothing about the asset's schedule.
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
	})

	r.breakers[assetID] = cb
	return cb
}

// isBreakerRejection reports whether err means the breaker refused the call.
func isBreakerRejection(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
