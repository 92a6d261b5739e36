// Copyright (C) 2025, Soulboard Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package provider

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/soulboard/ledger/pkg/ids"
)

func TestClaimDevice(t *testing.T) {
	require := require.New(t)
	dir := NewDirectory(ids.GenerateTestAddress(), "corner-screens", "berlin", "ops@corner.example")

	require.NoError(dir.ClaimDevice(1))
	require.NoError(dir.ClaimDevice(2))
	require.ErrorIs(dir.ClaimDevice(1), ErrDeviceAlreadyClaimed)

	require.Len(dir.Devices, 2)
	require.Equal(uint32(2), dir.AvailableDevices())
}

func TestDeviceBookingStateMachine(t *testing.T) {
	require := require.New(t)
	dir := NewDirectory(ids.GenerateTestAddress(), "p", "loc", "p@example.com")
	require.NoError(dir.ClaimDevice(1))

	dev, err := dir.Device(1)
	require.NoError(err)
	require.Equal(DeviceAvailable, dev.State)

	// Available -> Booked, double-book rejected
	require.NoError(dev.Book())
	require.Equal(DeviceBooked, dev.State)
	require.ErrorIs(dev.Book(), ErrDeviceNotAvailable)

	// Booked -> Available, double-release rejected
	require.NoError(dev.Release())
	require.Equal(DeviceAvailable, dev.State)
	require.ErrorIs(dev.Release(), ErrDeviceNotBooked)

	_, err = dir.Device(99)
	require.ErrorIs(err, ErrDeviceNotFound)
}

func TestMetadataStaysInLockstep(t *testing.T) {
	require := require.New(t)
	dir := NewDirectory(ids.GenerateTestAddress(), "p", "loc", "p@example.com")
	meta := NewMetadata(dir)

	require.NoError(dir.ClaimDevice(1))
	require.NoError(dir.ClaimDevice(2))
	meta.SyncCounters(dir)
	require.Equal(uint32(2), meta.DeviceCount)
	require.Equal(uint32(2), meta.AvailableDevices)

	dev, err := dir.Device(1)
	require.NoError(err)
	require.NoError(dev.Book())
	meta.SyncCounters(dir)
	require.Equal(uint32(2), meta.DeviceCount)
	require.Equal(uint32(1), meta.AvailableDevices)

	name := "renamed"
	active := false
	dir.Apply(Update{Name: &name, IsActive: &active})
	meta.SyncProfile(dir)
	require.Equal("renamed", meta.Name)
	require.False(meta.IsActive)
}

func TestRegistryCountInvariant(t *testing.T) {
	require := require.New(t)
	registry := NewRegistry()

	for i := 0; i < 10; i++ {
		require.NoError(registry.Add(ids.GenerateTestAddress()))
		require.Equal(uint32(len(registry.Providers)), registry.TotalProviders)
	}

	dup := registry.Providers[3]
	require.ErrorIs(registry.Add(dup), ErrProviderExists)
	require.Equal(uint32(10), registry.TotalProviders)
	require.True(registry.Contains(dup))
}

func TestRegistryFull(t *testing.T) {
	require := require.New(t)
	registry := NewRegistry()

	for i := 0; i < MaxProvidersInRegistry; i++ {
		require.NoError(registry.Add(ids.GenerateTestAddress()))
	}
	require.ErrorIs(registry.Add(ids.GenerateTestAddress()), ErrRegistryFull)
	require.Equal(uint32(MaxProvidersInRegistry), registry.TotalProviders)
}

func TestPendingPaymentsSettlement(t *testing.T) {
	require := require.New(t)
	dir := NewDirectory(ids.GenerateTestAddress(), "p", "loc", "p@example.com")

	require.NoError(dir.CreditPending(500))
	require.NoError(dir.CreditPending(250))
	require.Equal(uint64(750), dir.PendingPayments)

	require.NoError(dir.SettlePending(750))
	require.Equal(uint64(0), dir.PendingPayments)
	require.Equal(uint64(750), dir.TotalEarnings)

	// Cannot settle more than pending
	require.Error(dir.SettlePending(1))
}

func TestDirectoryCloneIsDeep(t *testing.T) {
	require := require.New(t)
	dir := NewDirectory(ids.GenerateTestAddress(), "p", "loc", "p@example.com")
	require.NoError(dir.ClaimDevice(1))

	cp := dir.Clone().(*Directory)
	dev, err := cp.Device(1)
	require.NoError(err)
	require.NoError(dev.Book())

	orig, err := dir.Device(1)
	require.NoError(err)
	require.Equal(DeviceAvailable, orig.State, fmt.Sprintf("clone mutation leaked into original: %v", orig))
}
