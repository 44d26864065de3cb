package store

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/thomhuang/printnearby/internal/logging"
	"github.com/thomhuang/printnearby/internal/metrics"
)

// BreakerConfig tunes the circuit breaker in front of a ProviderStore.
type BreakerConfig struct {
	Name                string
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
}

// Breaker stops sending membership queries to a store that keeps failing.
// Caller mistakes (oversized filters, cancelled contexts) do not count as
// failures.
type Breaker struct {
	next ProviderStore
	cb   *gobreaker.CircuitBreaker[[]Provider]
}

// NewBreaker wraps next.
func NewBreaker(next ProviderStore, cfg BreakerConfig) *Breaker {
	if cfg.Name == "" {
		cfg.Name = "provider-store"
	}
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.BreakerState.WithLabelValues(name).Set(float64(to))
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("provider store breaker changed state")
		},
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, ErrFilterTooLarge) ||
				errors.Is(err, context.Canceled) ||
				errors.Is(err, context.DeadlineExceeded)
		},
	}
	metrics.BreakerState.WithLabelValues(cfg.Name).Set(float64(gobreaker.StateClosed))

	return &Breaker{
		next: next,
		cb:   gobreaker.NewCircuitBreaker[[]Provider](settings),
	}
}

func (b *Breaker) FindByZips(ctx context.Context, zips []string) ([]Provider, error) {
	return b.cb.Execute(func() ([]Provider, error) {
		return b.next.FindByZips(ctx, zips)
	})
}

func (b *Breaker) Upsert(ctx context.Context, p Provider) error {
	return b.next.Upsert(ctx, p)
}

func (b *Breaker) Close() error {
	return b.next.Close()
}

// State reports the breaker state.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}
