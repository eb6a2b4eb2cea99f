package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/songzhibin97/prospector/internal/data"

	_ "github.com/lib/pq"
)

// DefaultListLimit caps a watchlist read when the caller passes no limit.
const DefaultListLimit = 100

// PostgresWatchlist reads candidate addresses from the watchlist_addresses
// table. It never writes.
type PostgresWatchlist struct {
	db *sql.DB
}

var _ data.AddressSource = (*PostgresWatchlist)(nil)

func NewPostgresWatchlist(ctx context.Context, connStr string) (*PostgresWatchlist, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return NewWatchlistFromDB(db), nil
}

// NewWatchlistFromDB wraps an already opened database handle.
func NewWatchlistFromDB(db *sql.DB) *PostgresWatchlist {
	return &PostgresWatchlist{db: db}
}

// ListAddresses implements data.AddressSource. Most recently added addresses
// come first; rows that are not valid 0x-prefixed addresses are skipped.
func (s *PostgresWatchlist) ListAddresses(ctx context.Context, list string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := `
        SELECT address
        FROM watchlist_addresses
        WHERE list_name = $1
        ORDER BY added_at DESC
        LIMIT $2
    `

	rows, err := s.db.QueryContext(ctx, query, list, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query watchlist: %w", err)
	}
	defer rows.Close()

	addresses := make([]string, 0, limit)
	for rows.Next() {
		var address string
		if err := rows.Scan(&address); err != nil {
			return nil, fmt.Errorf("failed to scan watchlist row: %w", err)
		}
		address = strings.TrimSpace(address)
		if !strings.HasPrefix(address, "0x") || !common.IsHexAddress(address) {
			continue
		}
		addresses = append(addresses, address)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating watchlist rows: %w", err)
	}

	return addresses, nil
}

// Close 关闭数据库连接
func (s *PostgresWatchlist) Close() error {
	return s.db.Close()
}
