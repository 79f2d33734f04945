package store

// The partial unique index is the last line of defence for "one OPEN record
// per symbol": even a racing writer that skipped the check cannot land a
// second OPEN row.

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS trades (
	id           TEXT PRIMARY KEY,
	opened_at    TIMESTAMP NOT NULL,
	closed_at    TIMESTAMP NULL,
	symbol       TEXT NOT NULL,
	side         TEXT NOT NULL,
	entry_price  REAL NOT NULL,
	target_price REAL NOT NULL,
	stop_price   REAL NOT NULL,
	status       TEXT NOT NULL,
	exit_price   REAL NOT NULL DEFAULT 0,
	leverage     INTEGER NOT NULL,
	margin_usd   REAL NOT NULL,
	notional_usd REAL NOT NULL,
	reason       TEXT NOT NULL,
	UNIQUE (symbol, opened_at)
);

CREATE UNIQUE INDEX IF NOT EXISTS trades_one_open ON trades(symbol) WHERE status = 'OPEN';
CREATE INDEX IF NOT EXISTS trades_status ON trades(status);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS trades (
	id           TEXT PRIMARY KEY,
	opened_at    TIMESTAMPTZ NOT NULL,
	closed_at    TIMESTAMPTZ NULL,
	symbol       TEXT NOT NULL,
	side         TEXT NOT NULL,
	entry_price  DOUBLE PRECISION NOT NULL,
	target_price DOUBLE PRECISION NOT NULL,
	stop_price   DOUBLE PRECISION NOT NULL,
	status       TEXT NOT NULL,
	exit_price   DOUBLE PRECISION NOT NULL DEFAULT 0,
	leverage     INTEGER NOT NULL,
	margin_usd   DOUBLE PRECISION NOT NULL,
	notional_usd DOUBLE PRECISION NOT NULL,
	reason       TEXT NOT NULL,
	UNIQUE (symbol, opened_at)
);

CREATE UNIQUE INDEX IF NOT EXISTS trades_one_open ON trades(symbol) WHERE status = 'OPEN';
CREATE INDEX IF NOT EXISTS trades_status ON trades(status);
`

const tradeColumns = `id, opened_at, closed_at, symbol, side, entry_price, target_price, stop_price,
	status, exit_price, leverage, margin_usd, notional_usd, reason`
