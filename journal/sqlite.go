package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
}

var _ Store = (*SQLite)(nil)

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// one connection keeps writers from tripping over SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) CreateUser(ctx context.Context, u User, password string) error {
	if err := validateUser(u); err != nil {
		return err
	}
	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	if u.Role == "" {
		u.Role = DefaultRole
	}

	_, err = j.db.ExecContext(ctx, `
		INSERT INTO users (username, password_hash, balance, active, role)
		VALUES (?, ?, ?, ?, ?)`,
		u.Username, hash, u.Balance, u.Active, u.Role,
	)
	var se sqlite3.Error
	if errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
		return fmt.Errorf("%w: %q", ErrUserExists, u.Username)
	}
	return err
}

func (j *SQLite) Authenticate(ctx context.Context, username, password string) (User, error) {
	var u User
	err := j.db.QueryRowContext(ctx, `
		SELECT username, password_hash, balance, active, role
		FROM users WHERE username = ?`, username).Scan(
		&u.Username, &u.PasswordHash, &u.Balance, &u.Active, &u.Role,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, fmt.Errorf("%w: %q", ErrAccountNotFound, username)
	}
	if err != nil {
		return User{}, err
	}
	return checkUser(u, password)
}

func (j *SQLite) Balance(ctx context.Context, owner string) (float64, error) {
	var bal float64
	err := j.db.QueryRowContext(ctx, `SELECT balance FROM users WHERE username = ?`, owner).Scan(&bal)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %q", ErrAccountNotFound, owner)
	}
	return bal, err
}

func (j *SQLite) Positions(ctx context.Context, owner string) ([]PositionRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT owner, symbol, quantity, avg_price
		FROM portfolio
		WHERE owner = ?
		ORDER BY symbol ASC`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PositionRecord
	for rows.Next() {
		var rec PositionRecord
		if err := rows.Scan(&rec.Owner, &rec.Symbol, &rec.Quantity, &rec.AvgPrice); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Trades returns up to limit of the most recent trades in chronological
// order. An empty owner matches every owner; limit <= 0 means no limit.
func (j *SQLite) Trades(ctx context.Context, owner string, limit int) ([]TradeRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT trade_id, order_id, time, owner, symbol, side, type, quantity, price, gross, fee
		FROM orders
		WHERE (? = '' OR owner = ?)
		ORDER BY time DESC, trade_id DESC
		LIMIT ?`, owner, owner, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var rec TradeRecord
		if err := rows.Scan(
			&rec.TradeID,
			&rec.OrderID,
			&rec.Time,
			&rec.Owner,
			&rec.Symbol,
			&rec.Side,
			&rec.Type,
			&rec.Quantity,
			&rec.Price,
			&rec.Gross,
			&rec.Fee,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	slices.Reverse(out)
	return out, nil
}

func (j *SQLite) Begin(ctx context.Context) (Tx, error) {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{ctx: ctx, tx: tx}, nil
}

func (j *SQLite) Close() error {
	return j.db.Close()
}

type sqliteTx struct {
	ctx context.Context
	tx  *sql.Tx
}

func (t *sqliteTx) SetBalance(owner string, balance float64) error {
	res, err := t.tx.ExecContext(t.ctx, `UPDATE users SET balance = ? WHERE username = ?`, balance, owner)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %q", ErrAccountNotFound, owner)
	}
	return nil
}

func (t *sqliteTx) AppendTrade(r TradeRecord) error {
	_, err := t.tx.ExecContext(t.ctx, `
		INSERT INTO orders
		(trade_id, order_id, time, owner, symbol, side, type, quantity, price, gross, fee)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.TradeID, r.OrderID, r.Time.UTC(), r.Owner, r.Symbol, strings.ToUpper(r.Side),
		strings.ToUpper(r.Type), r.Quantity, r.Price, r.Gross, r.Fee,
	)
	return err
}

func (t *sqliteTx) UpsertPosition(p PositionRecord) error {
	_, err := t.tx.ExecContext(t.ctx, `
		INSERT INTO portfolio (owner, symbol, quantity, avg_price)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(owner, symbol) DO UPDATE SET
			quantity = excluded.quantity,
			avg_price = excluded.avg_price`,
		p.Owner, p.Symbol, p.Quantity, p.AvgPrice,
	)
	return err
}

func (t *sqliteTx) DeletePosition(owner, symbol string) error {
	_, err := t.tx.ExecContext(t.ctx, `DELETE FROM portfolio WHERE owner = ? AND symbol = ?`, owner, symbol)
	return err
}

func (t *sqliteTx) Commit() error   { return t.tx.Commit() }
func (t *sqliteTx) Rollback() error { return t.tx.Rollback() }
