// Copyright (C) 2025, Soulboard Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPutGetDelete(t *testing.T) {
	require := require.New(t)
	s, err := NewStorage("memory", "")
	require.NoError(err)
	defer s.Close()

	require.NoError(s.Put([]byte("k1"), []byte("v1")))

	got, err := s.Get([]byte("k1"))
	require.NoError(err)
	require.Equal([]byte("v1"), got)

	ok, err := s.Has([]byte("k1"))
	require.NoError(err)
	require.True(ok)

	require.NoError(s.Delete([]byte("k1")))
	ok, err = s.Has([]byte("k1"))
	require.NoError(err)
	require.False(ok)
}

func TestBatchWriteIsAtomic(t *testing.T) {
	require := require.New(t)
	s, err := NewStorage("memory", "")
	require.NoError(err)
	defer s.Close()

	batch := s.NewBatch()
	batch.Put([]byte("a"), []byte("1"))
	batch.Put([]byte("b"), []byte("2"))
	require.NoError(s.Write(batch))

	got, err := s.Get([]byte("a"))
	require.NoError(err)
	require.Equal([]byte("1"), got)
	got, err = s.Get([]byte("b"))
	require.NoError(err)
	require.Equal([]byte("2"), got)
}

func TestIterateByPrefix(t *testing.T) {
	require := require.New(t)
	s, err := NewStorage("memory", "")
	require.NoError(err)
	defer s.Close()

	require.NoError(s.Put([]byte("provider/a"), []byte("1")))
	require.NoError(s.Put([]byte("provider/b"), []byte("2")))
	require.NoError(s.Put([]byte("campaign/a"), []byte("3")))

	seen := map[string]string{}
	err = s.Iterate([]byte("provider/"), func(key, value []byte) error {
		seen[string(key)] = string(value)
		return nil
	})
	require.NoError(err)
	require.Len(seen, 2)
	require.Equal("1", seen["provider/a"])
	require.Equal("2", seen["provider/b"])
}
