// Copyright (C) 2025, Soulboard Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package campaign

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/soulboard/ledger/pkg/ids"
)

func newTestCampaign() *Campaign {
	return New(ids.GenerateTestAddress(), 1, "summer-launch", "city screens", 3, 10, 10_000_000)
}

func TestNewCampaignStartsActiveWithZeroBudget(t *testing.T) {
	require := require.New(t)
	c := newTestCampaign()

	require.Equal(StatusActive, c.Status)
	require.Zero(c.Budget)
	require.Zero(c.PlatformFee)
	require.Empty(c.Locations)
	require.Empty(c.Performance)
}

func TestAddBudgetAccruesPlatformFeePerCall(t *testing.T) {
	require := require.New(t)
	c := newTestCampaign()

	require.NoError(c.AddBudget(1_000_000_000))
	require.Equal(uint64(1_000_000_000), c.Budget)
	require.Equal(uint64(20_000_000), c.PlatformFee)

	// Second funding call accrues its own 2% on top
	require.NoError(c.AddBudget(500_000_000))
	require.Equal(uint64(1_500_000_000), c.Budget)
	require.Equal(uint64(30_000_000), c.PlatformFee)
}

func TestAddBudgetRoundsTowardZero(t *testing.T) {
	require := require.New(t)
	c := newTestCampaign()

	// 2% of 149 is 2.98, floored to 2
	require.NoError(c.AddBudget(149))
	require.Equal(uint64(2), c.PlatformFee)
}

func TestAddBudgetRequiresActive(t *testing.T) {
	require := require.New(t)
	c := newTestCampaign()

	require.NoError(c.Complete())
	require.ErrorIs(c.AddBudget(100), ErrCampaignNotActive)
}

func TestCompleteIsTerminal(t *testing.T) {
	require := require.New(t)
	c := newTestCampaign()

	require.NoError(c.Complete())
	require.Equal(StatusCompleted, c.Status)
	require.ErrorIs(c.Complete(), ErrCampaignNotActive)
}

func TestAddLocationSeedsZeroedPerformance(t *testing.T) {
	require := require.New(t)
	c := newTestCampaign()
	prov := ids.GenerateTestAddress()

	c.AddLocation(prov, 42)
	require.Len(c.Locations, 1)
	require.Len(c.Providers, 1)
	require.Len(c.Performance, 1)

	rec, err := c.PerformanceFor(42)
	require.NoError(err)
	require.Equal(prov, rec.Provider)
	require.Zero(rec.TotalViews)
	require.Zero(rec.TotalTaps)
}

func TestRemoveLocationRestoresMembership(t *testing.T) {
	require := require.New(t)
	c := newTestCampaign()
	prov := ids.GenerateTestAddress()

	c.AddLocation(prov, 42)
	require.NoError(c.RemoveLocation(prov, 42))

	require.Empty(c.Locations)
	require.Empty(c.Providers)
	require.Empty(c.Performance)
	require.False(c.HasProvider(prov))
}

func TestRemoveLocationKeepsOtherBookingsOfSameProvider(t *testing.T) {
	require := require.New(t)
	c := newTestCampaign()
	prov := ids.GenerateTestAddress()

	c.AddLocation(prov, 1)
	c.AddLocation(prov, 2)
	require.NoError(c.RemoveLocation(prov, 1))

	require.Len(c.Locations, 1)
	require.Equal(uint32(2), c.Locations[0].DeviceID)
	require.True(c.HasProvider(prov))
	_, err := c.PerformanceFor(2)
	require.NoError(err)
}

func TestRemoveLocationNotBooked(t *testing.T) {
	require := require.New(t)
	c := newTestCampaign()

	require.ErrorIs(c.RemoveLocation(ids.GenerateTestAddress(), 42), ErrLocationNotBooked)
}

func TestSyncPerformanceIsAbsoluteCopy(t *testing.T) {
	require := require.New(t)
	c := newTestCampaign()
	prov := ids.GenerateTestAddress()
	c.AddLocation(prov, 42)

	require.NoError(c.SyncPerformance(42, 300, 30))
	rec, err := c.PerformanceFor(42)
	require.NoError(err)
	require.Equal(uint64(300), rec.TotalViews)
	require.Equal(uint64(30), rec.TotalTaps)

	// Repeated sync with unchanged feed totals is a no-op
	require.NoError(c.SyncPerformance(42, 300, 30))
	require.Equal(uint64(300), rec.TotalViews)

	require.ErrorIs(c.SyncPerformance(99, 1, 1), ErrDeviceNotFound)
}

func TestTotalViewsChecksOverflow(t *testing.T) {
	require := require.New(t)
	c := newTestCampaign()

	c.AddLocation(ids.GenerateTestAddress(), 1)
	c.AddLocation(ids.GenerateTestAddress(), 2)
	require.NoError(c.SyncPerformance(1, 300, 0))
	require.NoError(c.SyncPerformance(2, 500, 0))

	total, err := c.TotalViews()
	require.NoError(err)
	require.Equal(uint64(800), total)

	// Each feed total is individually valid but the sum wraps
	require.NoError(c.SyncPerformance(1, 1<<63, 0))
	require.NoError(c.SyncPerformance(2, 1<<63+1, 0))
	_, err = c.TotalViews()
	require.ErrorIs(err, ErrOverflow)
}

func TestEscrowAddressIsDeterministic(t *testing.T) {
	require := require.New(t)
	authority := ids.GenerateTestAddress()

	a := New(authority, 1, "a", "", 1, 1, 1)
	b := New(authority, 1, "b", "", 2, 2, 2)
	other := New(authority, 2, "a", "", 1, 1, 1)

	require.Equal(a.EscrowAddress(), b.EscrowAddress())
	require.NotEqual(a.EscrowAddress(), other.EscrowAddress())
}
