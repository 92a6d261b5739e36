// Copyright (C) 2025, Soulboard Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package oracle

import (
	"errors"
	"math"
	"time"

	"github.com/soulboard/ledger/pkg/ids"
	"github.com/soulboard/ledger/pkg/ledger"
)

var (
	ErrBadAuthority = errors.New("caller not authorised")
	ErrNoNewData    = errors.New("nothing new to record")
	ErrOverflow     = errors.New("math overflow")
	ErrFeedExists   = errors.New("device feed already initialized")
	ErrFeedNotFound = errors.New("device feed not found")
)

// DeviceFeed is the authenticated telemetry record for one device. The
// feed's authority is the sole integrity guarantee against spoofed
// telemetry: only it may push updates. Totals are running accumulators and
// LastEntryID is strictly increasing, which rejects replayed or
// out-of-order pushes from the untrusted off-chain relay.
type DeviceFeed struct {
	DeviceID     uint32      `json:"device_id"`
	Authority    ids.Address `json:"authority"`
	TotalViews   uint64      `json:"total_views"`
	TotalTaps    uint64      `json:"total_taps"`
	LastEntryID  uint32      `json:"last_entry_id"`
	LastUpdateTS int64       `json:"last_update_ts"`
}

// NewDeviceFeed creates a zeroed feed owned by authority
func NewDeviceFeed(deviceID uint32, authority ids.Address) *DeviceFeed {
	return &DeviceFeed{
		DeviceID:  deviceID,
		Authority: authority,
	}
}

// Key implements ledger.Record
func (f *DeviceFeed) Key() string {
	return ledger.FeedKey(f.DeviceID)
}

// Clone implements ledger.Record
func (f *DeviceFeed) Clone() ledger.Record {
	cp := *f
	return &cp
}

// ApplyUpdate validates and applies one telemetry push. The signer must be
// the feed authority and entryID must advance past LastEntryID; deltas
// accumulate onto the running totals. On failure the feed is unchanged.
func (f *DeviceFeed) ApplyUpdate(signer ids.Address, entryID uint32, deltaViews, deltaTaps uint64) error {
	if entryID <= f.LastEntryID {
		return ErrNoNewData
	}
	if signer != f.Authority {
		return ErrBadAuthority
	}
	if deltaViews > math.MaxUint64-f.TotalViews {
		return ErrOverflow
	}
	if deltaTaps > math.MaxUint64-f.TotalTaps {
		return ErrOverflow
	}

	f.TotalViews += deltaViews
	f.TotalTaps += deltaTaps
	f.LastEntryID = entryID
	f.LastUpdateTS = time.Now().Unix()
	return nil
}
