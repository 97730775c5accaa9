// journal/journal.go
package journal

import (
	"context"
	"errors"
	"time"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrUserExists      = errors.New("user already exists")
	ErrWrongPassword   = errors.New("wrong password")
	ErrUserInactive    = errors.New("user is inactive")
)

// TradeRecord is one immutable row of the trade log.
type TradeRecord struct {
	TradeID  string
	OrderID  string
	Time     time.Time
	Owner    string
	Symbol   string
	Side     string
	Type     string
	Quantity int
	Price    float64
	Gross    float64
	Fee      float64
}

// PositionRecord is a portfolio row keyed by (Owner, Symbol).
type PositionRecord struct {
	Owner    string
	Symbol   string
	Quantity int
	AvgPrice float64
}

// User is a row of the users table.
type User struct {
	Username     string
	PasswordHash string
	Balance      float64
	Active       bool
	Role         string
}

// Ledger is the persistence collaborator of the simulation. Writes go
// through a Tx so a settlement lands in storage all at once or not at all.
type Ledger interface {
	Balance(ctx context.Context, owner string) (float64, error)
	Positions(ctx context.Context, owner string) ([]PositionRecord, error)
	Trades(ctx context.Context, owner string, limit int) ([]TradeRecord, error)
	Begin(ctx context.Context) (Tx, error)
	Close() error
}

// Tx is a unit of work against the ledger.
type Tx interface {
	SetBalance(owner string, balance float64) error
	AppendTrade(TradeRecord) error
	UpsertPosition(PositionRecord) error
	DeletePosition(owner, symbol string) error
	Commit() error
	Rollback() error
}

// Users manages login accounts.
type Users interface {
	CreateUser(ctx context.Context, u User, password string) error
	Authenticate(ctx context.Context, username, password string) (User, error)
}

// Store is a Ledger that also manages users.
type Store interface {
	Ledger
	Users
}
