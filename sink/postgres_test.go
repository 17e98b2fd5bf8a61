package sink

import (
	"bytes"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A server without the TimescaleDB extension rejects CREATE EXTENSION; the
// sink must log a warning and keep working against the plain candles table.
func TestEnsureTimescaleDegradesWithoutExtension(t *testing.T) {
	t.Parallel()

	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "plain.db"))
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Exec(sqliteSchema)
	require.NoError(t, err)

	var buf bytes.Buffer
	ensureTimescale(db, zerolog.New(&buf))

	assert.Contains(t, buf.String(), "timescaledb extension unavailable")

	// The candle store stays usable after the failed conversion attempt.
	_, err = db.Exec(`INSERT INTO candles (symbol, time, open, high, low, close, volume)
		VALUES ('EURUSD', '2026-08-31T12:00:00Z', 1.1, 1.1, 1.1, 1.1, 0)`)
	assert.NoError(t, err)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM candles`).Scan(&n))
	assert.Equal(t, 1, n)
}
