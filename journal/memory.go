package journal

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Memory is an in-process Store. Nothing survives a restart.
type Memory struct {
	mu        sync.RWMutex
	users     map[string]User
	positions map[string]map[string]PositionRecord
	trades    []TradeRecord
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		users:     make(map[string]User),
		positions: make(map[string]map[string]PositionRecord),
	}
}

func (m *Memory) CreateUser(ctx context.Context, u User, password string) error {
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
	u.PasswordHash = hash

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.Username]; ok {
		return fmt.Errorf("%w: %q", ErrUserExists, u.Username)
	}
	m.users[u.Username] = u
	return nil
}

func (m *Memory) Authenticate(ctx context.Context, username, password string) (User, error) {
	m.mu.RLock()
	u, ok := m.users[username]
	m.mu.RUnlock()
	if !ok {
		return User{}, fmt.Errorf("%w: %q", ErrAccountNotFound, username)
	}
	return checkUser(u, password)
}

func (m *Memory) Balance(ctx context.Context, owner string) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[owner]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrAccountNotFound, owner)
	}
	return u.Balance, nil
}

func (m *Memory) Positions(ctx context.Context, owner string) ([]PositionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []PositionRecord
	for _, p := range m.positions[owner] {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

func (m *Memory) Trades(ctx context.Context, owner string, limit int) ([]TradeRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []TradeRecord
	for _, t := range m.trades {
		if owner == "" || t.Owner == owner {
			out = append(out, t)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (m *Memory) Begin(ctx context.Context) (Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &memoryTx{m: m}, nil
}

func (m *Memory) Close() error { return nil }

// memoryTx buffers writes and applies them on Commit.
type memoryTx struct {
	m    *Memory
	ops  []func() error
	done bool
}

var errTxDone = errors.New("transaction already finished")

func (t *memoryTx) add(op func() error) error {
	if t.done {
		return errTxDone
	}
	t.ops = append(t.ops, op)
	return nil
}

func (t *memoryTx) SetBalance(owner string, balance float64) error {
	return t.add(func() error {
		u, ok := t.m.users[owner]
		if !ok {
			return fmt.Errorf("%w: %q", ErrAccountNotFound, owner)
		}
		u.Balance = balance
		t.m.users[owner] = u
		return nil
	})
}

func (t *memoryTx) AppendTrade(r TradeRecord) error {
	r.Side = strings.ToUpper(r.Side)
	r.Type = strings.ToUpper(r.Type)
	return t.add(func() error {
		t.m.trades = append(t.m.trades, r)
		return nil
	})
}

func (t *memoryTx) UpsertPosition(p PositionRecord) error {
	return t.add(func() error {
		byOwner, ok := t.m.positions[p.Owner]
		if !ok {
			byOwner = make(map[string]PositionRecord)
			t.m.positions[p.Owner] = byOwner
		}
		byOwner[p.Symbol] = p
		return nil
	})
}

func (t *memoryTx) DeletePosition(owner, symbol string) error {
	return t.add(func() error {
		delete(t.m.positions[owner], symbol)
		return nil
	})
}

// Commit applies every buffered write or, if one fails, none of them.
func (t *memoryTx) Commit() error {
	if t.done {
		return errTxDone
	}
	t.done = true

	t.m.mu.Lock()
	defer t.m.mu.Unlock()

	// snapshot so a failing op leaves the store untouched
	users := make(map[string]User, len(t.m.users))
	for k, v := range t.m.users {
		users[k] = v
	}
	positions := make(map[string]map[string]PositionRecord, len(t.m.positions))
	for owner, byOwner := range t.m.positions {
		cp := make(map[string]PositionRecord, len(byOwner))
		for k, v := range byOwner {
			cp[k] = v
		}
		positions[owner] = cp
	}
	ntrades := len(t.m.trades)

	for _, op := range t.ops {
		if err := op(); err != nil {
			t.m.users = users
			t.m.positions = positions
			t.m.trades = t.m.trades[:ntrades]
			return err
		}
	}
	return nil
}

func (t *memoryTx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.ops = nil
	return nil
}
