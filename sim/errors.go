package sim

import (
	"errors"
	"fmt"

	"github.com/rustyeddy/papertrade/market"
)

var (
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrUnknownAccount         = errors.New("unknown account")
	ErrPersistenceUnavailable = errors.New("persistence unavailable")

	// ErrUnknownSymbol is market.ErrUnknownSymbol, re-exported for callers
	// that only import sim.
	ErrUnknownSymbol = market.ErrUnknownSymbol
)

// PersistenceError reports a ledger failure. In-memory state is left as
// it was before the failed write.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, ErrPersistenceUnavailable, e.Err)
}

// Unwrap exposes both ErrPersistenceUnavailable and the cause.
func (e *PersistenceError) Unwrap() []error {
	return []error{ErrPersistenceUnavailable, e.Err}
}

// ValidationError represents a malformed order or request.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
