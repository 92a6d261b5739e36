// Copyright (C) 2025, Soulboard Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package ledger

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/soulboard/ledger/pkg/log"
	"github.com/soulboard/ledger/pkg/storage"
)

type counterRecord struct {
	Name  string `json:"name"`
	Count uint64 `json:"count"`
}

func (r *counterRecord) Key() string { return "counter/" + r.Name }

func (r *counterRecord) Clone() Record {
	cp := *r
	return &cp
}

func decodeCounter(key string, data []byte) (Record, error) {
	rec := new(counterRecord)
	return rec, json.Unmarshal(data, rec)
}

func newTestLedger(t *testing.T) (*Ledger, *storage.Storage) {
	t.Helper()
	store, err := storage.NewStorage("memory", "")
	require.NoError(t, err)
	return New(store, log.NoOp()), store
}

func TestUpdateCommitsStagedRecords(t *testing.T) {
	require := require.New(t)
	l, store := newTestLedger(t)
	defer l.Close()

	err := l.Update(func(txn *Txn) error {
		return txn.Stage(&counterRecord{Name: "views", Count: 7})
	})
	require.NoError(err)

	err = l.View(func(txn *Txn) error {
		rec, ok := txn.Get("counter/views")
		require.True(ok)
		require.Equal(uint64(7), rec.(*counterRecord).Count)
		return nil
	})
	require.NoError(err)

	// Commit is durable, not just in memory
	data, err := store.Get([]byte("counter/views"))
	require.NoError(err)
	stored := new(counterRecord)
	require.NoError(json.Unmarshal(data, stored))
	require.Equal(uint64(7), stored.Count)
}

func TestAbortedUpdateDiscardsStaging(t *testing.T) {
	require := require.New(t)
	l, _ := newTestLedger(t)
	defer l.Close()

	errBoom := errors.New("boom")
	err := l.Update(func(txn *Txn) error {
		require.NoError(txn.Stage(&counterRecord{Name: "views", Count: 1}))
		require.NoError(txn.Stage(&counterRecord{Name: "taps", Count: 2}))
		return errBoom
	})
	require.ErrorIs(err, errBoom)

	require.NoError(l.View(func(txn *Txn) error {
		require.False(txn.Has("counter/views"))
		require.False(txn.Has("counter/taps"))
		return nil
	}))
}

func TestGetReturnsPrivateCopy(t *testing.T) {
	require := require.New(t)
	l, _ := newTestLedger(t)
	defer l.Close()

	require.NoError(l.Update(func(txn *Txn) error {
		return txn.Stage(&counterRecord{Name: "views", Count: 10})
	}))

	// Mutating an unstaged read must not leak into committed state
	require.NoError(l.Update(func(txn *Txn) error {
		rec, ok := txn.Get("counter/views")
		require.True(ok)
		rec.(*counterRecord).Count = 999
		return nil
	}))

	require.NoError(l.View(func(txn *Txn) error {
		rec, _ := txn.Get("counter/views")
		require.Equal(uint64(10), rec.(*counterRecord).Count)
		return nil
	}))
}

func TestUpdateReadsOverlayStagedWrites(t *testing.T) {
	require := require.New(t)
	l, _ := newTestLedger(t)
	defer l.Close()

	require.NoError(l.Update(func(txn *Txn) error {
		require.NoError(txn.Stage(&counterRecord{Name: "views", Count: 1}))

		rec, ok := txn.Get("counter/views")
		require.True(ok)
		require.Equal(uint64(1), rec.(*counterRecord).Count)
		require.True(txn.Has("counter/views"))
		return nil
	}))
}

func TestViewRejectsStaging(t *testing.T) {
	require := require.New(t)
	l, _ := newTestLedger(t)
	defer l.Close()

	err := l.View(func(txn *Txn) error {
		return txn.Stage(&counterRecord{Name: "views"})
	})
	require.ErrorIs(err, ErrReadOnly)
}

func TestLoadRebuildsCommittedState(t *testing.T) {
	require := require.New(t)
	store, err := storage.NewStorage("memory", "")
	require.NoError(err)

	first := New(store, log.NoOp())
	require.NoError(first.Update(func(txn *Txn) error {
		require.NoError(txn.Stage(&counterRecord{Name: "views", Count: 42}))
		return txn.Stage(&counterRecord{Name: "taps", Count: 5})
	}))

	// A fresh ledger over the same store recovers every record
	second := New(store, log.NoOp())
	require.NoError(second.Load(decodeCounter))
	require.NoError(second.View(func(txn *Txn) error {
		rec, ok := txn.Get("counter/views")
		require.True(ok)
		require.Equal(uint64(42), rec.(*counterRecord).Count)
		rec, ok = txn.Get("counter/taps")
		require.True(ok)
		require.Equal(uint64(5), rec.(*counterRecord).Count)
		return nil
	}))
	require.NoError(second.Close())
}

func TestClosedLedgerRejectsTransactions(t *testing.T) {
	require := require.New(t)
	l, _ := newTestLedger(t)
	require.NoError(l.Close())

	err := l.Update(func(txn *Txn) error { return nil })
	require.ErrorIs(err, ErrClosed)
	err = l.View(func(txn *Txn) error { return nil })
	require.ErrorIs(err, ErrClosed)
	require.NoError(l.Close())
}
