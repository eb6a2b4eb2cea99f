package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/songzhibin97/prospector/internal/data"
	"github.com/songzhibin97/prospector/internal/models"
)

const (
	DefaultTransactionSample = 200
	DefaultTransferSample    = 100

	tokenValueEstimateUSD = 1000
	tokenValueCapRatio    = 0.5
	holdTimeRatio         = 0.6

	diversificationFullBuckets = 20
	concentrationThreshold     = 0.5
)

// IdentityResolver maps an address to a human-readable name such as an ENS
// domain. ok is false when the address has no name.
type IdentityResolver interface {
	Resolve(ctx context.Context, address string) (name string, ok bool)
}

// NoopResolver never resolves a name.
type NoopResolver struct{}

func (NoopResolver) Resolve(context.Context, string) (string, bool) { return "", false }

// Options tunes the Analyzer. Zero values fall back to defaults.
type Options struct {
	TransactionSample int
	TransferSample    int
	Resolver          IdentityResolver
	Now               func() time.Time
}

// Analyzer derives WalletMetrics from raw chain data.
type Analyzer struct {
	chain    data.ChainData
	prices   data.PriceFeed
	resolver IdentityResolver
	logger   *slog.Logger
	now      func() time.Time
	txSample int
	ttSample int
}

func NewAnalyzer(chain data.ChainData, prices data.PriceFeed, logger *slog.Logger, opts Options) *Analyzer {
	if opts.TransactionSample <= 0 {
		opts.TransactionSample = DefaultTransactionSample
	}
	if opts.TransferSample <= 0 {
		opts.TransferSample = DefaultTransferSample
	}
	if opts.Resolver == nil {
		opts.Resolver = NoopResolver{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Analyzer{
		chain:    chain,
		prices:   prices,
		resolver: opts.Resolver,
		logger:   logger.With("component", "analyzer"),
		now:      opts.Now,
		txSample: opts.TransactionSample,
		ttSample: opts.TransferSample,
	}
}

// AnalyzeWallet builds a fresh metrics snapshot for address. Unavailable chain
// data degrades the snapshot; only a cancelled context is reported as an error.
func (a *Analyzer) AnalyzeWallet(ctx context.Context, address string) (*models.WalletMetrics, error) {
	ethPrice := a.prices.Price(ctx)

	balance := a.chain.Balance(ctx, address)
	txs := a.chain.Transactions(ctx, address, a.txSample)
	transfers := a.chain.TokenTransfers(ctx, address, a.ttSample)

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("analyze %s: %w", address, err)
	}

	if !balance.OK() || !txs.OK() || !transfers.OK() {
		a.logger.Info("analyzing with degraded chain data", "address", address,
			"balance_ok", balance.OK(), "transactions_ok", txs.OK(), "transfers_ok", transfers.OK())
	}

	return a.buildMetrics(ctx, address, ethPrice, balance.Value.ETH, txs.Value, transfers.Value), nil
}

func (a *Analyzer) buildMetrics(ctx context.Context, address string, ethPrice, ethBalance float64,
	txs []models.Transaction, transfers []models.TokenTransfer) *models.WalletMetrics {
	now := a.now()

	// 交易按时间倒序排列，最后一条是样本中最早的交易
	var first, last *time.Time
	ageDays := 0
	if len(txs) > 0 {
		if ts := txs[len(txs)-1].Timestamp; ts.Unix() != 0 {
			t := ts
			first = &t
			ageDays = max(0, int(now.Sub(ts).Hours()/24))
		}
		if ts := txs[0].Timestamp; ts.Unix() != 0 {
			t := ts
			last = &t
		}
	}

	ethValue := ethBalance * ethPrice

	symbols := make(map[string]struct{})
	for _, tt := range transfers {
		symbols[tt.TokenSymbol] = struct{}{}
	}
	tokenCount := len(symbols)

	totalValue := ethValue + EstimateTokenValue(tokenCount, ethValue)

	largestPct := 100.0
	if totalValue > 0 {
		largestPct = ethValue / totalValue * 100
	}

	avgHold := 0.0
	if ageDays > 0 {
		avgHold = float64(ageDays) * holdTimeRatio
	}

	var ensName *string
	if name, ok := a.resolver.Resolve(ctx, address); ok {
		ensName = &name
	}

	return &models.WalletMetrics{
		Address:                 address,
		TotalValueUSD:           round(totalValue, 2),
		ETHBalance:              round(ethBalance, 4),
		TokenCount:              tokenCount,
		NFTCount:                0,
		FirstTransactionDate:    first,
		LastTransactionDate:     last,
		TransactionCount:        len(txs),
		WalletAgeDays:           ageDays,
		AvgHoldTimeDays:         round(avgHold, 1),
		LargestSingleHoldingPct: round(largestPct, 2),
		DefiProtocolCount:       CountProtocols(txs),
		StakingPositions:        0,
		HasENS:                  ensName != nil,
		ENSName:                 ensName,
		BehaviorType:            ClassifyBehavior(txs, ageDays, totalValue),
		DiversificationScore:    Diversification(ethValue, transfers),
		ETHPriceUSD:             ethPrice,
	}
}

// EstimateTokenValue is a rough stand-in for priced token holdings: a flat
// amount per distinct token, capped at half of the ETH value.
func EstimateTokenValue(tokenCount int, ethValueUSD float64) float64 {
	return math.Min(float64(tokenCount)*tokenValueEstimateUSD, ethValueUSD*tokenValueCapRatio)
}

// Diversification scores the number of holding buckets on a 0-100 scale and
// penalises a dominant bucket. Token buckets are valued by transfer count.
func Diversification(ethValueUSD float64, transfers []models.TokenTransfer) float64 {
	holdings := map[string]float64{"ETH": ethValueUSD}
	for _, tt := range transfers {
		symbol := tt.TokenSymbol
		if symbol == "" {
			symbol = "UNKNOWN"
		}
		holdings[symbol]++
	}

	score := math.Min(100, float64(len(holdings))/diversificationFullBuckets*100)

	var total, largest float64
	for _, v := range holdings {
		total += v
		largest = math.Max(largest, v)
	}
	if total > 0 {
		if share := largest / total; share > concentrationThreshold {
			score *= 1 - (share - concentrationThreshold)
		}
	}

	return round(score, 2)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.RoundToEven(v*p) / p
}
