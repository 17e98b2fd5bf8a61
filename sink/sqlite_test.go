package sink

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/igfx/market"
)

func newTestSQLite(t *testing.T) (*SQLite, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s, path
}

func TestSQLiteSchemaCreated(t *testing.T) {
	t.Parallel()

	_, path := newTestSQLite(t)

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type='table' AND name IN ('candles','trades')`)
	require.NoError(t, err)
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		found[name] = true
	}
	require.NoError(t, rows.Err())

	assert.True(t, found["candles"])
	assert.True(t, found["trades"])
}

func TestSQLiteUpsertCandlesIsIdempotent(t *testing.T) {
	t.Parallel()

	s, path := newTestSQLite(t)
	ctx := context.Background()

	t0 := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	candles := []market.Candle{
		{Time: t0, Open: 1.1, High: 1.2, Low: 1.0, Close: 1.15, Volume: 100},
		{Time: t0.Add(5 * time.Minute), Open: 1.15, High: 1.25, Low: 1.1, Close: 1.2, Volume: 110},
	}

	require.NoError(t, s.UpsertCandles(ctx, "EURUSD", candles))

	// Re-writing the same bars with a revised close must update in place.
	candles[1].Close = 1.21
	require.NoError(t, s.UpsertCandles(ctx, "EURUSD", candles))

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM candles WHERE symbol='EURUSD'`).Scan(&count))
	assert.Equal(t, 2, count)

	var close float64
	require.NoError(t, db.QueryRow(
		`SELECT close FROM candles WHERE symbol='EURUSD' ORDER BY time DESC LIMIT 1`).Scan(&close))
	assert.InDelta(t, 1.21, close, 1e-9)
}

func TestSQLiteInsertTrade(t *testing.T) {
	t.Parallel()

	s, path := newTestSQLite(t)

	rec := TradeRecord{
		Time:       time.Date(2025, 6, 2, 10, 30, 0, 0, time.UTC),
		Epic:       "CS.D.EURUSD.MINI.IP",
		Symbol:     "EURUSD",
		Side:       "BUY",
		Size:       10000,
		Entry:      1.1000,
		StopLoss:   1.0990,
		TakeProfit: 1.1020,
		DealRef:    "DR1",
		Raw:        []byte(`{"dealReference":"DR1"}`),
	}
	require.NoError(t, s.InsertTrade(context.Background(), rec))

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var symbol, side, dealRef string
	var size float64
	require.NoError(t, db.QueryRow(
		`SELECT symbol, side, size, deal_ref FROM trades`).Scan(&symbol, &side, &size, &dealRef))
	assert.Equal(t, "EURUSD", symbol)
	assert.Equal(t, "BUY", side)
	assert.InDelta(t, 10000.0, size, 1e-9)
	assert.Equal(t, "DR1", dealRef)
}
