package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/songzhibin97/prospector/internal/data"
	"github.com/songzhibin97/prospector/internal/models"
)

type fakeProvider struct {
	name      string
	err       error
	balance   *models.Balance
	txs       []models.Transaction
	transfers []models.TokenTransfer

	mu    sync.Mutex
	calls int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) hit() {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
}

func (f *fakeProvider) GetBalance(context.Context, string) (*models.Balance, error) {
	f.hit()
	return f.balance, f.err
}

func (f *fakeProvider) GetTransactions(context.Context, string, int) ([]models.Transaction, error) {
	f.hit()
	return f.txs, f.err
}

func (f *fakeProvider) GetTokenTransfers(context.Context, string, int) ([]models.TokenTransfer, error) {
	f.hit()
	return f.transfers, f.err
}

type nopLogger struct{}

func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Debug(string, ...interface{}) {}

type call struct {
	provider, op, outcome string
}

type fakeRecorder struct {
	mu    sync.Mutex
	calls []call
}

func (r *fakeRecorder) ObserveProviderCall(provider, op, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call{provider, op, outcome})
}

const addr = "0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045"

func TestGateway_Success(t *testing.T) {
	p := &fakeProvider{
		name:    "primary",
		balance: &models.Balance{Wei: decimal.New(2, 18), ETH: 2},
		txs:     []models.Transaction{{Hash: "0x1"}},
	}
	rec := &fakeRecorder{}
	g := NewGateway([]data.ChainDataProvider{p}, BreakerSettings{}, nopLogger{}, rec)

	bal := g.Balance(context.Background(), addr)
	require.True(t, bal.OK())
	assert.Equal(t, 2.0, bal.Value.ETH)

	txs := g.Transactions(context.Background(), addr, 200)
	require.True(t, txs.OK())
	assert.Len(t, txs.Value, 1)

	// 提供方返回 nil 切片时归一为空切片
	tts := g.TokenTransfers(context.Background(), addr, 100)
	require.True(t, tts.OK())
	assert.NotNil(t, tts.Value)
	assert.Empty(t, tts.Value)

	assert.Equal(t, []call{
		{"primary", opBalance, "ok"},
		{"primary", opTransactions, "ok"},
		{"primary", opTokenTransfers, "ok"},
	}, rec.calls)
}

func TestGateway_FailSoft(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantOutcome string
	}{
		{"provider error", errors.New("boom"), "error"},
		{"timeout", context.DeadlineExceeded, "timeout"},
		{"wrapped status", data.ErrProviderStatus, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakeProvider{name: "primary", err: tt.err}
			rec := &fakeRecorder{}
			g := NewGateway([]data.ChainDataProvider{p}, BreakerSettings{}, nopLogger{}, rec)

			bal := g.Balance(context.Background(), addr)
			assert.False(t, bal.OK())
			assert.ErrorIs(t, bal.Err, tt.err)
			assert.Equal(t, 0.0, bal.Value.ETH)

			txs := g.Transactions(context.Background(), addr, 200)
			assert.False(t, txs.OK())
			assert.NotNil(t, txs.Value)
			assert.Empty(t, txs.Value)

			tts := g.TokenTransfers(context.Background(), addr, 100)
			assert.False(t, tts.OK())
			assert.NotNil(t, tts.Value)

			require.Len(t, rec.calls, 3)
			assert.Equal(t, tt.wantOutcome, rec.calls[0].outcome)
		})
	}
}

func TestGateway_FallsThroughToSecondProvider(t *testing.T) {
	primary := &fakeProvider{name: "primary", err: errors.New("down")}
	secondary := &fakeProvider{name: "secondary", balance: &models.Balance{ETH: 3}}
	g := NewGateway([]data.ChainDataProvider{primary, secondary}, BreakerSettings{}, nopLogger{}, nil)

	bal := g.Balance(context.Background(), addr)
	require.True(t, bal.OK())
	assert.Equal(t, 3.0, bal.Value.ETH)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, secondary.calls)
}

func TestGateway_NilBalanceIsFailure(t *testing.T) {
	p := &fakeProvider{name: "primary"}
	g := NewGateway([]data.ChainDataProvider{p}, BreakerSettings{}, nopLogger{}, nil)

	bal := g.Balance(context.Background(), addr)
	assert.False(t, bal.OK())
}

func TestGateway_NoProviders(t *testing.T) {
	g := NewGateway(nil, BreakerSettings{}, nopLogger{}, nil)

	bal := g.Balance(context.Background(), addr)
	assert.ErrorIs(t, bal.Err, ErrNoProviders)

	txs := g.Transactions(context.Background(), addr, 10)
	assert.ErrorIs(t, txs.Err, ErrNoProviders)
	assert.NotNil(t, txs.Value)
}

func TestGateway_BreakerOpens(t *testing.T) {
	p := &fakeProvider{name: "flaky", err: errors.New("503")}
	rec := &fakeRecorder{}
	g := NewGateway([]data.ChainDataProvider{p},
		BreakerSettings{ConsecutiveFailures: 2, OpenTimeout: time.Minute}, nopLogger{}, rec)

	for i := 0; i < 4; i++ {
		res := g.Balance(context.Background(), addr)
		assert.False(t, res.OK())
	}

	// 连续失败两次后断路器打开，后续请求不再到达提供方
	assert.Equal(t, 2, p.calls)
	require.Len(t, rec.calls, 4)
	assert.Equal(t, "error", rec.calls[1].outcome)
	assert.Equal(t, "breaker_open", rec.calls[2].outcome)
	assert.Equal(t, "breaker_open", rec.calls[3].outcome)
}

// ctxProvider answers normally unless the caller's context has ended.
type ctxProvider struct {
	mu    sync.Mutex
	calls int
	// onCall runs inside the call, before the context is checked
	onCall func()
}

func (p *ctxProvider) Name() string { return "ctx" }

func (p *ctxProvider) GetBalance(ctx context.Context, _ string) (*models.Balance, error) {
	p.mu.Lock()
	p.calls++
	hook := p.onCall
	p.mu.Unlock()
	if hook != nil {
		hook()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &models.Balance{ETH: 1}, nil
}

func (p *ctxProvider) GetTransactions(ctx context.Context, _ string, _ int) ([]models.Transaction, error) {
	return []models.Transaction{}, ctx.Err()
}

func (p *ctxProvider) GetTokenTransfers(ctx context.Context, _ string, _ int) ([]models.TokenTransfer, error) {
	return []models.TokenTransfer{}, ctx.Err()
}

func TestGateway_CancelledCallerDoesNotTripBreaker(t *testing.T) {
	p := &ctxProvider{}
	g := NewGateway([]data.ChainDataProvider{p},
		BreakerSettings{ConsecutiveFailures: 2, OpenTimeout: time.Minute}, nopLogger{}, nil)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	for i := 0; i < 5; i++ {
		res := g.Balance(cancelled, addr)
		assert.False(t, res.OK())
		assert.ErrorIs(t, res.Err, context.Canceled)
	}
	assert.Equal(t, 0, p.calls, "a cancelled caller never reaches the provider")

	res := g.Balance(context.Background(), addr)
	require.True(t, res.OK(), "breaker must stay closed: %v", res.Err)
	assert.Equal(t, 1.0, res.Value.ETH)
}

func TestGateway_CancelDuringCallDoesNotTripBreaker(t *testing.T) {
	p := &ctxProvider{}
	rec := &fakeRecorder{}
	g := NewGateway([]data.ChainDataProvider{p},
		BreakerSettings{ConsecutiveFailures: 2, OpenTimeout: time.Minute}, nopLogger{}, rec)

	for i := 0; i < 4; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		p.mu.Lock()
		p.onCall = cancel
		p.mu.Unlock()

		res := g.Balance(ctx, addr)
		assert.ErrorIs(t, res.Err, context.Canceled)
		cancel()
	}

	p.mu.Lock()
	p.onCall = nil
	p.mu.Unlock()

	res := g.Balance(context.Background(), addr)
	require.True(t, res.OK(), "breaker must stay closed: %v", res.Err)
	assert.Equal(t, 5, p.calls)
	assert.Equal(t, "canceled", rec.calls[0].outcome)
}

func TestGateway_ThrottlingDoesNotTripBreaker(t *testing.T) {
	throttled := &fakeProvider{name: "busy", err: fmt.Errorf("%w: rate: Wait(n=1) would exceed context deadline", data.ErrThrottled)}
	rec := &fakeRecorder{}
	g := NewGateway([]data.ChainDataProvider{throttled},
		BreakerSettings{ConsecutiveFailures: 2, OpenTimeout: time.Minute}, nopLogger{}, rec)

	for i := 0; i < 5; i++ {
		assert.False(t, g.Balance(context.Background(), addr).OK())
	}

	// 每次都到达提供方, 断路器未打开
	assert.Equal(t, 5, throttled.calls)
	for _, c := range rec.calls {
		assert.Equal(t, "throttled", c.outcome)
	}

	throttled.mu.Lock()
	throttled.err = nil
	throttled.balance = &models.Balance{ETH: 2}
	throttled.mu.Unlock()

	res := g.Balance(context.Background(), addr)
	require.True(t, res.OK())
	assert.Equal(t, 2.0, res.Value.ETH)
}
