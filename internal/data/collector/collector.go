package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/songzhibin97/prospector/internal/data"
	"github.com/songzhibin97/prospector/internal/models"
)

const (
	opBalance        = "balance"
	opTransactions   = "transactions"
	opTokenTransfers = "token_transfers"
)

// ErrNoProviders is recorded when a gateway has nothing to ask.
var ErrNoProviders = errors.New("no chain data providers configured")

type Logger interface {
	Warn(msg string, fields ...interface{})
	Debug(msg string, fields ...interface{})
}

// Recorder receives one observation per provider call.
type Recorder interface {
	ObserveProviderCall(provider, operation, outcome string, elapsed time.Duration)
}

// Gateway implements data.ChainData on top of one or more providers. Providers
// are asked in order and the first success wins; when all fail the caller gets
// an empty fallback result instead of an error.
type Gateway struct {
	sources  []source
	logger   Logger
	recorder Recorder
}

type source struct {
	provider data.ChainDataProvider
	breaker  *gobreaker.CircuitBreaker
}

var _ data.ChainData = (*Gateway)(nil)

// BreakerSettings tunes the per-provider circuit breaker.
type BreakerSettings struct {
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
}

func NewGateway(providers []data.ChainDataProvider, bs BreakerSettings, logger Logger, recorder Recorder) *Gateway {
	if bs.ConsecutiveFailures == 0 {
		bs.ConsecutiveFailures = 5
	}
	if bs.OpenTimeout <= 0 {
		bs.OpenTimeout = 30 * time.Second
	}

	sources := make([]source, 0, len(providers))
	for _, p := range providers {
		name := p.Name()
		sources = append(sources, source{
			provider: p,
			breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
				Name:    name,
				Timeout: bs.OpenTimeout,
				ReadyToTrip: func(counts gobreaker.Counts) bool {
					return counts.ConsecutiveFailures >= bs.ConsecutiveFailures
				},
				IsSuccessful: providerHealthy,
				OnStateChange: func(name string, from, to gobreaker.State) {
					logger.Warn("provider breaker state changed", "provider", name, "from", from.String(), "to", to.String())
				},
			}),
		})
	}

	return &Gateway{
		sources:  sources,
		logger:   logger,
		recorder: recorder,
	}
}

// Balance implements data.ChainData
func (g *Gateway) Balance(ctx context.Context, address string) data.Result[models.Balance] {
	return fetch(ctx, g, opBalance, address, func(ctx context.Context, p data.ChainDataProvider) (models.Balance, error) {
		b, err := p.GetBalance(ctx, address)
		if err != nil {
			return models.Balance{}, err
		}
		if b == nil {
			return models.Balance{}, fmt.Errorf("empty balance")
		}
		return *b, nil
	})
}

// Transactions implements data.ChainData
func (g *Gateway) Transactions(ctx context.Context, address string, limit int) data.Result[[]models.Transaction] {
	res := fetch(ctx, g, opTransactions, address, func(ctx context.Context, p data.ChainDataProvider) ([]models.Transaction, error) {
		return p.GetTransactions(ctx, address, limit)
	})
	if res.Value == nil {
		res.Value = []models.Transaction{}
	}
	return res
}

// TokenTransfers implements data.ChainData
func (g *Gateway) TokenTransfers(ctx context.Context, address string, limit int) data.Result[[]models.TokenTransfer] {
	res := fetch(ctx, g, opTokenTransfers, address, func(ctx context.Context, p data.ChainDataProvider) ([]models.TokenTransfer, error) {
		return p.GetTokenTransfers(ctx, address, limit)
	})
	if res.Value == nil {
		res.Value = []models.TokenTransfer{}
	}
	return res
}

func fetch[T any](ctx context.Context, g *Gateway, op, address string, call func(context.Context, data.ChainDataProvider) (T, error)) data.Result[T] {
	if len(g.sources) == 0 {
		return data.Fallback[T](ErrNoProviders)
	}

	var lastErr error
	for _, src := range g.sources {
		// 调用方已取消, 不再询问任何提供方, 也不影响断路器
		if err := ctx.Err(); err != nil {
			return data.Fallback[T](fmt.Errorf("%s for %s: %w", op, address, err))
		}

		start := time.Now()
		v, err := src.breaker.Execute(func() (interface{}, error) {
			v, err := call(ctx, src.provider)
			if err != nil && ctx.Err() != nil {
				return v, &callerAbort{err: err}
			}
			return v, err
		})
		g.observe(src.provider.Name(), op, err, time.Since(start))

		if err == nil {
			g.logger.Debug("fetched chain data", "provider", src.provider.Name(), "operation", op, "address", address)
			return data.Success(v.(T))
		}

		g.logger.Warn("chain data unavailable, falling back", "provider", src.provider.Name(),
			"operation", op, "address", address, "error", err)
		lastErr = err
	}

	return data.Fallback[T](fmt.Errorf("%s for %s: %w", op, address, lastErr))
}

// callerAbort marks a failure caused by the caller's context ending, not by
// the provider.
type callerAbort struct {
	err error
}

func (e *callerAbort) Error() string { return e.err.Error() }

func (e *callerAbort) Unwrap() error { return e.err }

// providerHealthy decides what the breaker counts as a provider failure.
// Caller cancellations and local throttling say nothing about the provider.
func providerHealthy(err error) bool {
	var abort *callerAbort
	return err == nil || errors.As(err, &abort) || errors.Is(err, data.ErrThrottled)
}

func (g *Gateway) observe(provider, op string, err error, elapsed time.Duration) {
	if g.recorder == nil {
		return
	}
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		outcome = "breaker_open"
	case errors.Is(err, data.ErrThrottled):
		outcome = "throttled"
	case errors.Is(err, context.Canceled):
		outcome = "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		outcome = "timeout"
	default:
		outcome = "error"
	}
	g.recorder.ObserveProviderCall(provider, op, outcome, elapsed)
}
