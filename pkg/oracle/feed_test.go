// Copyright (C) 2025, Soulboard Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package oracle

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/soulboard/ledger/pkg/ids"
)

func TestFeedAccumulatesDeltas(t *testing.T) {
	require := require.New(t)
	authority := ids.GenerateTestAddress()

	feed := NewDeviceFeed(7, authority)
	require.Equal(uint32(0), feed.LastEntryID)

	require.NoError(feed.ApplyUpdate(authority, 1, 100, 10))
	require.Equal(uint64(100), feed.TotalViews)
	require.Equal(uint64(10), feed.TotalTaps)
	require.Equal(uint32(1), feed.LastEntryID)

	// Deltas add onto running totals, entry ids may skip ahead
	require.NoError(feed.ApplyUpdate(authority, 5, 50, 5))
	require.Equal(uint64(150), feed.TotalViews)
	require.Equal(uint64(15), feed.TotalTaps)
	require.Equal(uint32(5), feed.LastEntryID)
}

func TestFeedRejectsReplayedEntries(t *testing.T) {
	require := require.New(t)
	authority := ids.GenerateTestAddress()

	feed := NewDeviceFeed(7, authority)
	require.NoError(feed.ApplyUpdate(authority, 3, 100, 10))

	// Same entry id and older entry id both fail, totals untouched
	require.ErrorIs(feed.ApplyUpdate(authority, 3, 25, 1), ErrNoNewData)
	require.ErrorIs(feed.ApplyUpdate(authority, 2, 25, 1), ErrNoNewData)
	require.Equal(uint64(100), feed.TotalViews)
	require.Equal(uint64(10), feed.TotalTaps)
	require.Equal(uint32(3), feed.LastEntryID)
}

func TestFeedRejectsBadAuthority(t *testing.T) {
	require := require.New(t)
	authority := ids.GenerateTestAddress()
	imposter := ids.GenerateTestAddress()

	feed := NewDeviceFeed(7, authority)
	require.NoError(feed.ApplyUpdate(authority, 1, 100, 10))

	require.ErrorIs(feed.ApplyUpdate(imposter, 2, 500, 50), ErrBadAuthority)
	require.Equal(uint64(100), feed.TotalViews)
	require.Equal(uint64(10), feed.TotalTaps)
	require.Equal(uint32(1), feed.LastEntryID)
}

func TestFeedRejectsOverflow(t *testing.T) {
	require := require.New(t)
	authority := ids.GenerateTestAddress()

	feed := NewDeviceFeed(7, authority)
	require.NoError(feed.ApplyUpdate(authority, 1, math.MaxUint64-10, 0))

	require.ErrorIs(feed.ApplyUpdate(authority, 2, 11, 0), ErrOverflow)
	require.Equal(uint64(math.MaxUint64-10), feed.TotalViews)
	require.Equal(uint32(1), feed.LastEntryID)
}
