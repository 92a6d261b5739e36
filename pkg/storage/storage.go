// Copyright (C) 2025, Soulboard Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package storage

import (
	"github.com/syndtr/goleveldb/leveldb"
	lvlstorage "github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// Storage wraps a leveldb instance holding durable ledger records
type Storage struct {
	db *leveldb.DB
}

// NewStorage creates a new storage instance. dbType "memory" keeps records
// in process memory; anything else opens (or creates) a leveldb at path.
func NewStorage(dbType string, path string) (*Storage, error) {
	var db *leveldb.DB
	var err error

	switch dbType {
	case "memory":
		db, err = leveldb.Open(lvlstorage.NewMemStorage(), nil)
	default:
		db, err = leveldb.OpenFile(path, nil)
	}
	if err != nil {
		return nil, err
	}

	return &Storage{db: db}, nil
}

// Put stores a key-value pair
func (s *Storage) Put(key, value []byte) error {
	return s.db.Put(key, value, nil)
}

// Get retrieves a value by key
func (s *Storage) Get(key []byte) ([]byte, error) {
	return s.db.Get(key, nil)
}

// Has checks if a key exists
func (s *Storage) Has(key []byte) (bool, error) {
	return s.db.Has(key, nil)
}

// Delete removes a key-value pair
func (s *Storage) Delete(key []byte) error {
	return s.db.Delete(key, nil)
}

// NewBatch creates a new batch for atomic writes
func (s *Storage) NewBatch() *leveldb.Batch {
	return new(leveldb.Batch)
}

// Write commits a batch atomically
func (s *Storage) Write(batch *leveldb.Batch) error {
	return s.db.Write(batch, nil)
}

// Iterate walks every key sharing prefix, invoking fn with copies of the
// key and value. Iteration stops at the first error.
func (s *Storage) Iterate(prefix []byte, fn func(key, value []byte) error) error {
	iter := s.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()

	for iter.Next() {
		key := append([]byte(nil), iter.Key()...)
		value := append([]byte(nil), iter.Value()...)
		if err := fn(key, value); err != nil {
			return err
		}
	}
	return iter.Error()
}

// Close closes the database
func (s *Storage) Close() error {
	return s.db.Close()
}
