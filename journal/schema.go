// journal/schema.go
package journal

const Schema = `
CREATE TABLE IF NOT EXISTS users (
	username TEXT PRIMARY KEY,
	password_hash TEXT NOT NULL,
	balance REAL NOT NULL,
	active INTEGER NOT NULL DEFAULT 1,
	role TEXT NOT NULL DEFAULT 'trader'
);

CREATE TABLE IF NOT EXISTS orders (
	trade_id TEXT PRIMARY KEY,
	order_id TEXT NOT NULL,
	time DATETIME NOT NULL,
	owner TEXT NOT NULL,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	type TEXT NOT NULL,
	quantity INTEGER NOT NULL,
	price REAL NOT NULL,
	gross REAL NOT NULL,
	fee REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_orders_owner_time ON orders(owner, time);

CREATE TABLE IF NOT EXISTS portfolio (
	owner TEXT NOT NULL,
	symbol TEXT NOT NULL,
	quantity INTEGER NOT NULL,
	avg_price REAL NOT NULL,
	PRIMARY KEY (owner, symbol)
);
`
