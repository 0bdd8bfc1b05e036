package tmdb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/Clark-Hu/movie-reviews/internal/metrics"
)

const breakerName = "tmdb-api"

var _ Client = (*BreakerClient)(nil)

// BreakerClient wraps a Client with a circuit breaker so a failing upstream
// is rejected fast instead of holding requests for the full timeout.
type BreakerClient struct {
	next   Client
	cb     *gobreaker.CircuitBreaker[interface{}]
	logger zerolog.Logger
}

// BreakerSettings tunes the breaker. Zero values fall back to defaults.
type BreakerSettings struct {
	// ConsecutiveFailures opens the circuit after this many failures in a row.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the circuit stays open before a trial request.
	OpenTimeout time.Duration
}

// NewBreakerClient wraps next with circuit breaker protection.
func NewBreakerClient(next Client, settings BreakerSettings, logger zerolog.Logger) *BreakerClient {
	if settings.ConsecutiveFailures == 0 {
		settings.ConsecutiveFailures = 5
	}
	if settings.OpenTimeout <= 0 {
		settings.OpenTimeout = 30 * time.Second
	}
	logger = logger.With().Str("component", "tmdb-breaker").Logger()

	metrics.GatewayBreakerState.WithLabelValues(breakerName).Set(0)

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.ConsecutiveFailures
		},
		// A missing movie is a valid answer, not an upstream failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
			metrics.GatewayBreakerState.WithLabelValues(name).Set(stateValue(to))
		},
	})

	return &BreakerClient{next: next, cb: cb, logger: logger}
}

// State reports the current breaker state.
func (b *BreakerClient) State() gobreaker.State {
	return b.cb.State()
}

// MovieDetails calls the wrapped client through the breaker.
func (b *BreakerClient) MovieDetails(ctx context.Context, id int64) (*Details, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.MovieDetails(ctx, id)
	})
	if err != nil {
		return nil, b.wrap(err)
	}
	details, ok := result.(*Details)
	if !ok {
		return nil, errors.New("circuit breaker: unexpected result type for MovieDetails")
	}
	return details, nil
}

// Trending calls the wrapped client through the breaker.
func (b *BreakerClient) Trending(ctx context.Context, window string, page int) (*Page, error) {
	return b.page("Trending", func() (interface{}, error) {
		return b.next.Trending(ctx, window, page)
	})
}

// Search calls the wrapped client through the breaker.
func (b *BreakerClient) Search(ctx context.Context, query string, page int) (*Page, error) {
	return b.page("Search", func() (interface{}, error) {
		return b.next.Search(ctx, query, page)
	})
}

func (b *BreakerClient) page(op string, fn func() (interface{}, error)) (*Page, error) {
	result, err := b.cb.Execute(fn)
	if err != nil {
		return nil, b.wrap(err)
	}
	page, ok := result.(*Page)
	if !ok {
		return nil, fmt.Errorf("circuit breaker: unexpected result type for %s", op)
	}
	return page, nil
}

func (b *BreakerClient) wrap(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		metrics.GatewayRequests.WithLabelValues("breaker", "rejected").Inc()
		b.logger.Debug().Err(err).Msg("request rejected by open circuit")
		return fmt.Errorf("tmdb unavailable: %w", err)
	}
	return err
}

func stateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
