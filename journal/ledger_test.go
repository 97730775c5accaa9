package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stores runs fn against every Store implementation.
func stores(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Helper()

	t.Run("memory", func(t *testing.T) {
		t.Parallel()
		fn(t, NewMemory())
	})
	t.Run("sqlite", func(t *testing.T) {
		t.Parallel()
		s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		fn(t, s)
	})
}

func seedUser(t *testing.T, s Store, name string, balance float64) {
	t.Helper()
	err := s.CreateUser(context.Background(), User{Username: name, Balance: balance, Active: true}, "secret")
	require.NoError(t, err)
}

func TestLedgerBalance(t *testing.T) {
	t.Parallel()

	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		seedUser(t, s, "alice", 100000)

		bal, err := s.Balance(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, 100000.0, bal)

		_, err = s.Balance(ctx, "bob")
		assert.ErrorIs(t, err, ErrAccountNotFound)
	})
}

func TestLedgerCommitSettlement(t *testing.T) {
	t.Parallel()

	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		seedUser(t, s, "alice", 100000)

		ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
		tx, err := s.Begin(ctx)
		require.NoError(t, err)
		require.NoError(t, tx.SetBalance("alice", 700))
		require.NoError(t, tx.AppendTrade(TradeRecord{
			TradeID:  "T1",
			OrderID:  "O1",
			Time:     ts,
			Owner:    "alice",
			Symbol:   "Gold 05Feb",
			Side:     "BUY",
			Type:     "LIMIT",
			Quantity: 1,
			Price:    988,
			Gross:    98800,
			Fee:      500,
		}))
		require.NoError(t, tx.UpsertPosition(PositionRecord{Owner: "alice", Symbol: "Gold 05Feb", Quantity: 1, AvgPrice: 988}))
		require.NoError(t, tx.Commit())

		bal, err := s.Balance(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, 700.0, bal)

		pos, err := s.Positions(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, []PositionRecord{{Owner: "alice", Symbol: "Gold 05Feb", Quantity: 1, AvgPrice: 988}}, pos)

		trades, err := s.Trades(ctx, "alice", 0)
		require.NoError(t, err)
		require.Len(t, trades, 1)
		assert.Equal(t, "T1", trades[0].TradeID)
		assert.True(t, trades[0].Time.Equal(ts))
		assert.Equal(t, 98800.0, trades[0].Gross)
	})
}

func TestLedgerRollbackLeavesNothing(t *testing.T) {
	t.Parallel()

	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		seedUser(t, s, "alice", 500)

		tx, err := s.Begin(ctx)
		require.NoError(t, err)
		require.NoError(t, tx.UpsertPosition(PositionRecord{Owner: "alice", Symbol: "USDINR", Quantity: 3, AvgPrice: 90}))
		require.NoError(t, tx.Rollback())

		pos, err := s.Positions(ctx, "alice")
		require.NoError(t, err)
		assert.Empty(t, pos)
	})
}

func TestLedgerSetBalanceUnknownOwner(t *testing.T) {
	t.Parallel()

	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		tx, err := s.Begin(ctx)
		require.NoError(t, err)
		err = tx.SetBalance("ghost", 1)
		if err == nil {
			// memory defers the check to Commit
			err = tx.Commit()
		} else {
			_ = tx.Rollback()
		}
		assert.ErrorIs(t, err, ErrAccountNotFound)
	})
}

func TestLedgerUpsertAndDeletePosition(t *testing.T) {
	t.Parallel()

	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		seedUser(t, s, "alice", 0)

		commit := func(fn func(tx Tx) error) {
			tx, err := s.Begin(ctx)
			require.NoError(t, err)
			require.NoError(t, fn(tx))
			require.NoError(t, tx.Commit())
		}

		commit(func(tx Tx) error {
			return tx.UpsertPosition(PositionRecord{Owner: "alice", Symbol: "Zinc 31Dec", Quantity: 2, AvgPrice: 300})
		})
		commit(func(tx Tx) error {
			return tx.UpsertPosition(PositionRecord{Owner: "alice", Symbol: "Zinc 31Dec", Quantity: 5, AvgPrice: 310})
		})

		pos, err := s.Positions(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, []PositionRecord{{Owner: "alice", Symbol: "Zinc 31Dec", Quantity: 5, AvgPrice: 310}}, pos)

		commit(func(tx Tx) error { return tx.DeletePosition("alice", "Zinc 31Dec") })
		commit(func(tx Tx) error { return tx.DeletePosition("alice", "Zinc 31Dec") })

		pos, err = s.Positions(ctx, "alice")
		require.NoError(t, err)
		assert.Empty(t, pos)
	})
}

func TestLedgerTradesLimitAndOwner(t *testing.T) {
	t.Parallel()

	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

		tx, err := s.Begin(ctx)
		require.NoError(t, err)
		for i, owner := range []string{"alice", "bob", "alice", "alice"} {
			require.NoError(t, tx.AppendTrade(TradeRecord{
				TradeID: string(rune('A' + i)),
				Time:    t0.Add(time.Duration(i) * time.Minute),
				Owner:   owner,
				Symbol:  "USDINR",
				Side:    "buy",
				Type:    "market",
			}))
		}
		require.NoError(t, tx.Commit())

		all, err := s.Trades(ctx, "", 0)
		require.NoError(t, err)
		assert.Len(t, all, 4)
		assert.Equal(t, "BUY", all[0].Side)

		last2, err := s.Trades(ctx, "alice", 2)
		require.NoError(t, err)
		require.Len(t, last2, 2)
		assert.Equal(t, "C", last2[0].TradeID)
		assert.Equal(t, "D", last2[1].TradeID)
	})
}

func TestUsersAuthenticate(t *testing.T) {
	t.Parallel()

	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		require.NoError(t, s.CreateUser(ctx, User{Username: "alice", Balance: 50, Active: true}, "pw"))
		require.NoError(t, s.CreateUser(ctx, User{Username: "carol", Balance: 50, Active: false, Role: "admin"}, "pw"))

		u, err := s.Authenticate(ctx, "alice", "pw")
		require.NoError(t, err)
		assert.Equal(t, "alice", u.Username)
		assert.Equal(t, DefaultRole, u.Role)
		assert.Equal(t, 50.0, u.Balance)

		_, err = s.Authenticate(ctx, "alice", "nope")
		assert.ErrorIs(t, err, ErrWrongPassword)

		_, err = s.Authenticate(ctx, "carol", "pw")
		assert.ErrorIs(t, err, ErrUserInactive)

		_, err = s.Authenticate(ctx, "dave", "pw")
		assert.ErrorIs(t, err, ErrAccountNotFound)

		err = s.CreateUser(ctx, User{Username: "alice", Active: true}, "pw")
		assert.ErrorIs(t, err, ErrUserExists)

		assert.Error(t, s.CreateUser(ctx, User{Username: "", Active: true}, "pw"))
		assert.Error(t, s.CreateUser(ctx, User{Username: "erin", Active: true}, ""))
	})
}
