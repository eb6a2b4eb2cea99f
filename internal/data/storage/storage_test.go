package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listQuery = `SELECT address FROM watchlist_addresses WHERE list_name = \$1 ORDER BY added_at DESC LIMIT \$2`

func TestPostgresWatchlist_ListAddresses(t *testing.T) {
	tests := []struct {
		name     string
		limit    int
		wantArg  int
		rows     []string
		expected []string
	}{
		{
			name:    "valid rows",
			limit:   10,
			wantArg: 10,
			rows: []string{
				"0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045",
				"0x742d35Cc6634C0532925a3b844Bc454e4438f44e",
			},
			expected: []string{
				"0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045",
				"0x742d35Cc6634C0532925a3b844Bc454e4438f44e",
			},
		},
		{
			name:    "invalid rows skipped",
			limit:   5,
			wantArg: 5,
			rows: []string{
				"not-an-address",
				"d8dA6BF26964aF9D7eEd9e03E53415D37aA96045",
				" 0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045 ",
			},
			expected: []string{"0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045"},
		},
		{
			name:     "default limit",
			limit:    0,
			wantArg:  DefaultListLimit,
			rows:     nil,
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			rows := sqlmock.NewRows([]string{"address"})
			for _, r := range tt.rows {
				rows.AddRow(r)
			}
			mock.ExpectQuery(listQuery).WithArgs("whales", tt.wantArg).WillReturnRows(rows)

			got, err := NewWatchlistFromDB(db).ListAddresses(context.Background(), "whales", tt.limit)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresWatchlist_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	boom := errors.New("connection reset")
	mock.ExpectQuery(listQuery).WithArgs("whales", 10).WillReturnError(boom)

	_, err = NewWatchlistFromDB(db).ListAddresses(context.Background(), "whales", 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestPostgresWatchlist_RowError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"address"}).
		AddRow("0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045").
		RowError(0, errors.New("bad row"))
	mock.ExpectQuery(listQuery).WithArgs("whales", 10).WillReturnRows(rows)

	_, err = NewWatchlistFromDB(db).ListAddresses(context.Background(), "whales", 10)
	assert.Error(t, err)
}
