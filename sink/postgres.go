package sink

import (
	"context"
	"database/sql"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/rustyeddy/igfx/market"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS candles (
	symbol TEXT NOT NULL,
	time   TIMESTAMPTZ NOT NULL,
	open   DOUBLE PRECISION NOT NULL,
	high   DOUBLE PRECISION NOT NULL,
	low    DOUBLE PRECISION NOT NULL,
	close  DOUBLE PRECISION NOT NULL,
	volume DOUBLE PRECISION NOT NULL,
	PRIMARY KEY(symbol, time)
);

CREATE INDEX IF NOT EXISTS idx_candles_symbol_time ON candles(symbol, time DESC);

CREATE TABLE IF NOT EXISTS trades (
	id BIGSERIAL PRIMARY KEY,
	ts TIMESTAMPTZ NOT NULL DEFAULT now(),
	epic TEXT NOT NULL,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	size DOUBLE PRECISION NOT NULL,
	entry DOUBLE PRECISION,
	sl DOUBLE PRECISION,
	tp DOUBLE PRECISION,
	deal_ref TEXT,
	raw JSONB
);
`

// Postgres persists candles and trades in a PostgreSQL database. When the
// TimescaleDB extension is available the candle store is converted to a
// hypertable; otherwise it degrades to a plain table.
type Postgres struct {
	db *sql.DB
}

var _ Sink = (*Postgres)(nil)

func NewPostgres(dsn string, log zerolog.Logger) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(postgresSchema); err != nil {
		db.Close()
		return nil, err
	}
	ensureTimescale(db, log)
	return &Postgres{db: db}, nil
}

// ensureTimescale converts the candles table to a TimescaleDB hypertable.
// Best-effort: on a server without the extension the sink keeps working
// against the plain table, so failures only warn.
func ensureTimescale(db *sql.DB, log zerolog.Logger) {
	if _, err := db.Exec(`CREATE EXTENSION IF NOT EXISTS timescaledb`); err != nil {
		log.Warn().Err(err).Msg("timescaledb extension unavailable, candles stay a plain table")
		return
	}
	if _, err := db.Exec(`SELECT create_hypertable('candles', 'time', if_not_exists => TRUE)`); err != nil {
		log.Warn().Err(err).Msg("could not convert candles to a hypertable")
		return
	}
	log.Info().Msg("timescaledb hypertable ensured for candles")
}

func (p *Postgres) UpsertCandles(ctx context.Context, symbol string, candles []market.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO candles (symbol, time, open, high, low, close, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (symbol, time) DO UPDATE
		SET open = EXCLUDED.open, high = EXCLUDED.high, low = EXCLUDED.low,
		    close = EXCLUDED.close, volume = EXCLUDED.volume`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, c := range candles {
		if _, err := stmt.ExecContext(ctx, symbol, c.Time.UTC(), c.Open, c.High, c.Low, c.Close, c.Volume); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (p *Postgres) InsertTrade(ctx context.Context, rec TradeRecord) error {
	var raw any
	if len(rec.Raw) > 0 {
		raw = string(rec.Raw)
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO trades (ts, epic, symbol, side, size, entry, sl, tp, deal_ref, raw)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rec.Time.UTC(), rec.Epic, rec.Symbol, rec.Side, rec.Size,
		rec.Entry, rec.StopLoss, rec.TakeProfit, rec.DealRef, raw,
	)
	return err
}

func (p *Postgres) Close() error {
	return p.db.Close()
}
