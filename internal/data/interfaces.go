package data

import (
	"context"

	"github.com/songzhibin97/prospector/internal/models"
)

// ChainDataProvider reads raw account data from a chain indexer.
// Implementations return errors; callers that must never fail go through
// collector.Gateway instead.
type ChainDataProvider interface {
	// Name identifies the provider in logs and metrics
	Name() string

	// GetBalance retrieves the native balance of an address
	GetBalance(ctx context.Context, address string) (*models.Balance, error)

	// GetTransactions retrieves up to limit normal transactions, newest first
	GetTransactions(ctx context.Context, address string, limit int) ([]models.Transaction, error)

	// GetTokenTransfers retrieves up to limit ERC20 transfers, newest first
	GetTokenTransfers(ctx context.Context, address string, limit int) ([]models.TokenTransfer, error)
}

// ChainData is the fail-soft view of a ChainDataProvider.
type ChainData interface {
	Balance(ctx context.Context, address string) Result[models.Balance]
	Transactions(ctx context.Context, address string, limit int) Result[[]models.Transaction]
	TokenTransfers(ctx context.Context, address string, limit int) Result[[]models.TokenTransfer]
}

// PriceFeed returns the reference ETH/USD price. It never fails; a fallback
// value is returned when no live price is available.
type PriceFeed interface {
	Price(ctx context.Context) float64
}

// AddressSource lists candidate wallet addresses for discovery runs.
type AddressSource interface {
	ListAddresses(ctx context.Context, list string, limit int) ([]string, error)
}
