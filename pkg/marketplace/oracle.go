// Copyright (C) 2025, Soulboard Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package marketplace

import (
	"errors"

	"github.com/soulboard/ledger/pkg/events"
	"github.com/soulboard/ledger/pkg/ids"
	"github.com/soulboard/ledger/pkg/ledger"
	"github.com/soulboard/ledger/pkg/oracle"
)

// InitializeDeviceFeed creates the zeroed telemetry feed for a device,
// owned by the caller. Duplicate creation fails; the feed exists once for
// the device's lifetime.
func (m *Marketplace) InitializeDeviceFeed(actor ids.Address, deviceID uint32) error {
	defer m.observe("initialize_device_feed")()

	err := m.ledger.Update(func(txn *ledger.Txn) error {
		if txn.Has(ledger.FeedKey(deviceID)) {
			return oracle.ErrFeedExists
		}
		return txn.Stage(oracle.NewDeviceFeed(deviceID, actor))
	})
	if err != nil {
		return err
	}

	ev := events.New(events.TypeFeedInitialized)
	ev.Authority = actor
	ev.DeviceID = deviceID
	m.bus.Publish(ev)

	m.log.Info("device feed initialized", "authority", actor.Short(), "device", deviceID)
	return nil
}

// UpdateDeviceFeed applies one telemetry push from the feed authority.
// Replayed or out-of-order entry ids are rejected, as are pushes from any
// other signer; deltas accumulate onto the running totals.
func (m *Marketplace) UpdateDeviceFeed(actor ids.Address, deviceID uint32, entryID uint32, deltaViews, deltaTaps uint64) error {
	defer m.observe("update_device_feed")()

	var totalViews, totalTaps uint64
	err := m.ledger.Update(func(txn *ledger.Txn) error {
		rec, ok := txn.Get(ledger.FeedKey(deviceID))
		if !ok {
			return oracle.ErrFeedNotFound
		}
		feed := rec.(*oracle.DeviceFeed)
		if err := feed.ApplyUpdate(actor, entryID, deltaViews, deltaTaps); err != nil {
			return err
		}
		totalViews, totalTaps = feed.TotalViews, feed.TotalTaps
		return txn.Stage(feed)
	})
	if err != nil {
		switch {
		case errors.Is(err, oracle.ErrNoNewData):
			m.metrics.OracleRejects.WithLabelValues("stale_entry").Inc()
		case errors.Is(err, oracle.ErrBadAuthority):
			m.metrics.OracleRejects.WithLabelValues("bad_authority").Inc()
		case errors.Is(err, oracle.ErrOverflow):
			m.metrics.OracleRejects.WithLabelValues("overflow").Inc()
		}
		return err
	}

	ev := events.New(events.TypeFeedUpdated)
	ev.Authority = actor
	ev.DeviceID = deviceID
	ev.EntryID = entryID
	ev.DeltaViews = deltaViews
	ev.DeltaTaps = deltaTaps
	ev.TotalViews = totalViews
	ev.TotalTaps = totalTaps
	m.bus.Publish(ev)

	m.metrics.OracleUpdates.Inc()
	return nil
}
