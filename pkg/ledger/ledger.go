// Copyright (C) 2025, Soulboard Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/soulboard/ledger/pkg/log"
	"github.com/soulboard/ledger/pkg/storage"
)

var (
	ErrReadOnly = errors.New("transaction is read-only")
	ErrClosed   = errors.New("ledger is closed")
)

// Record is a single addressable ledger entity. Keys are deterministic from
// stable seeds so every entity type has collision-free addressing.
type Record interface {
	Key() string
	Clone() Record
}

// DecodeFunc rebuilds a concrete record from its stored form during Load
type DecodeFunc func(key string, data []byte) (Record, error)

// Ledger holds the committed state of every record and persists each commit
// through the storage layer. All state transitions run as serialized,
// all-or-nothing transactions: an operation either commits every touched
// record or none of them, with no observable partial state.
type Ledger struct {
	mu      sync.RWMutex
	records map[string]Record
	store   *storage.Storage
	log     log.Logger
	closed  bool
}

// New creates a ledger backed by the given store
func New(store *storage.Storage, logger log.Logger) *Ledger {
	return &Ledger{
		records: make(map[string]Record),
		store:   store,
		log:     logger,
	}
}

// Load rebuilds committed state from storage using decode to recover
// concrete record types from their keys
func (l *Ledger) Load(decode DecodeFunc) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	count := 0
	err := l.store.Iterate(nil, func(key, value []byte) error {
		rec, err := decode(string(key), value)
		if err != nil {
			return fmt.Errorf("decode record %q: %w", key, err)
		}
		l.records[string(key)] = rec
		count++
		return nil
	})
	if err != nil {
		return err
	}

	l.log.Info("ledger state loaded", "records", count)
	return nil
}

// Update runs fn inside a writable transaction. If fn returns an error the
// staged mutations are discarded; otherwise every staged record is committed
// atomically, both in memory and through a single storage batch. Updates are
// serialized, so fn re-validates preconditions against current committed
// state and the first committer wins any race.
func (l *Ledger) Update(fn func(*Txn) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrClosed
	}

	txn := &Txn{
		ledger: l,
		id:     uuid.NewString(),
		staged: make(map[string]Record),
	}

	if err := fn(txn); err != nil {
		l.log.Debug("transaction aborted", "txn", txn.id, "error", err)
		return err
	}

	return l.commit(txn)
}

// View runs fn inside a read-only transaction
func (l *Ledger) View(fn func(*Txn) error) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return ErrClosed
	}

	return fn(&Txn{ledger: l, id: uuid.NewString(), ro: true})
}

// commit publishes the staged records. Durability first: if the storage
// batch fails nothing is applied in memory either.
func (l *Ledger) commit(txn *Txn) error {
	if len(txn.staged) == 0 {
		return nil
	}

	batch := l.store.NewBatch()
	for key, rec := range txn.staged {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode record %q: %w", key, err)
		}
		batch.Put([]byte(key), data)
	}
	if err := l.store.Write(batch); err != nil {
		return fmt.Errorf("commit txn %s: %w", txn.id, err)
	}

	for key, rec := range txn.staged {
		l.records[key] = rec
	}

	l.log.Debug("transaction committed", "txn", txn.id, "records", len(txn.staged))
	return nil
}

// Close flushes and closes the backing store
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return l.store.Close()
}

// Txn is a staging area over committed state. Reads see committed records
// overlaid with this transaction's own staged writes; nothing becomes
// visible to other transactions before commit.
type Txn struct {
	ledger *Ledger
	id     string
	staged map[string]Record
	ro     bool
}

// ID returns the transaction's identifier
func (t *Txn) ID() string {
	return t.id
}

// Get returns the record at key, or false if absent. The returned record is
// this transaction's private copy: mutate it freely, then Stage it to make
// the mutation part of the commit.
func (t *Txn) Get(key string) (Record, bool) {
	if !t.ro {
		if rec, ok := t.staged[key]; ok {
			return rec, true
		}
	}
	rec, ok := t.ledger.records[key]
	if !ok {
		return nil, false
	}
	return rec.Clone(), true
}

// Has reports whether a record exists at key
func (t *Txn) Has(key string) bool {
	if !t.ro {
		if _, ok := t.staged[key]; ok {
			return true
		}
	}
	_, ok := t.ledger.records[key]
	return ok
}

// Stage queues the record for commit
func (t *Txn) Stage(rec Record) error {
	if t.ro {
		return ErrReadOnly
	}
	t.staged[rec.Key()] = rec
	return nil
}
