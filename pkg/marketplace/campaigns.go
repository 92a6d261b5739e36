// Copyright (C) 2025, Soulboard Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package marketplace

import (
	"errors"

	"github.com/soulboard/ledger/pkg/campaign"
	"github.com/soulboard/ledger/pkg/events"
	"github.com/soulboard/ledger/pkg/ids"
	"github.com/soulboard/ledger/pkg/ledger"
	"github.com/soulboard/ledger/pkg/oracle"
	"github.com/soulboard/ledger/pkg/provider"
)

// CreateCampaign creates an Active campaign with zero budget under the
// caller's authority. Campaign ids are unique per advertiser.
func (m *Marketplace) CreateCampaign(actor ids.Address, campaignID uint32, name, description string, runningDays, hoursPerDay uint16, baseFeePerHour uint64) error {
	defer m.observe("create_campaign")()

	err := m.ledger.Update(func(txn *ledger.Txn) error {
		if txn.Has(ledger.CampaignKey(actor, campaignID)) {
			return campaign.ErrCampaignExists
		}
		return txn.Stage(campaign.New(actor, campaignID, name, description, runningDays, hoursPerDay, baseFeePerHour))
	})
	if err != nil {
		return err
	}

	ev := events.New(events.TypeCampaignCreated)
	ev.Authority = actor
	ev.CampaignID = campaignID
	m.bus.Publish(ev)

	m.metrics.CampaignsCreated.Inc()
	m.metrics.CampaignsActive.Inc()

	m.log.Info("campaign created", "authority", actor.Short(), "campaign", campaignID)
	return nil
}

// AddBudget funds the caller's campaign. The transfer into the campaign
// escrow and the budget mutation commit in the same atomic unit; the 2%
// platform cut of this amount accrues cumulatively.
func (m *Marketplace) AddBudget(actor ids.Address, campaignID uint32, amount uint64) error {
	defer m.observe("add_budget")()

	err := m.ledger.Update(func(txn *ledger.Txn) error {
		rec, ok := txn.Get(ledger.CampaignKey(actor, campaignID))
		if !ok {
			return campaign.ErrCampaignNotFound
		}
		c := rec.(*campaign.Campaign)
		if err := c.AddBudget(amount); err != nil {
			return err
		}
		if err := m.transfer.Transfer(actor, c.EscrowAddress(), amount); err != nil {
			return err
		}
		return txn.Stage(c)
	})
	if err != nil {
		return err
	}

	ev := events.New(events.TypeBudgetAdded)
	ev.Authority = actor
	ev.CampaignID = campaignID
	ev.Amount = amount
	m.bus.Publish(ev)

	m.metrics.BudgetFunded.Add(float64(amount))
	return nil
}

// AddLocation books a provider's device for the caller's campaign. Device
// state, the provider's availability counter, and the campaign's location
// and performance lists all change in one transaction; whichever booking
// commits first wins a race for the same device.
func (m *Marketplace) AddLocation(actor ids.Address, campaignID uint32, providerAddr ids.Address, deviceID uint32) error {
	defer m.observe("add_location")()

	err := m.ledger.Update(func(txn *ledger.Txn) error {
		rec, ok := txn.Get(ledger.CampaignKey(actor, campaignID))
		if !ok {
			return campaign.ErrCampaignNotFound
		}
		c := rec.(*campaign.Campaign)

		dirRec, ok := txn.Get(ledger.ProviderKey(providerAddr))
		if !ok {
			return provider.ErrProviderNotFound
		}
		dir := dirRec.(*provider.Directory)

		dev, err := dir.Device(deviceID)
		if err != nil {
			return err
		}
		if err := dev.Book(); err != nil {
			return err
		}

		c.AddLocation(providerAddr, deviceID)
		dir.TotalCampaigns++

		metaRec, ok := txn.Get(ledger.ProviderMetaKey(providerAddr))
		if !ok {
			return provider.ErrProviderNotFound
		}
		meta := metaRec.(*provider.Metadata)
		meta.SyncCounters(dir)

		if err := txn.Stage(c); err != nil {
			return err
		}
		if err := txn.Stage(dir); err != nil {
			return err
		}
		return txn.Stage(meta)
	})
	if err != nil {
		if errors.Is(err, provider.ErrDeviceNotAvailable) {
			m.metrics.BookingConflicts.Inc()
		}
		return err
	}

	ev := events.New(events.TypeLocationAdded)
	ev.Authority = actor
	ev.Provider = providerAddr
	ev.CampaignID = campaignID
	ev.DeviceID = deviceID
	m.bus.Publish(ev)

	m.metrics.Bookings.Inc()
	m.metrics.DevicesAvailable.Dec()

	m.log.Info("location booked",
		"campaign", campaignID,
		"provider", providerAddr.Short(),
		"device", deviceID)
	return nil
}

// RemoveLocation releases a booked device back to Available and drops the
// matching location, provider, and performance entries from the campaign.
func (m *Marketplace) RemoveLocation(actor ids.Address, campaignID uint32, providerAddr ids.Address, deviceID uint32) error {
	defer m.observe("remove_location")()

	err := m.ledger.Update(func(txn *ledger.Txn) error {
		rec, ok := txn.Get(ledger.CampaignKey(actor, campaignID))
		if !ok {
			return campaign.ErrCampaignNotFound
		}
		c := rec.(*campaign.Campaign)

		dirRec, ok := txn.Get(ledger.ProviderKey(providerAddr))
		if !ok {
			return provider.ErrProviderNotFound
		}
		dir := dirRec.(*provider.Directory)

		dev, err := dir.Device(deviceID)
		if err != nil {
			return err
		}

		if err := c.RemoveLocation(providerAddr, deviceID); err != nil {
			// Booked elsewhere or never booked here: either way the
			// device is not booked to this campaign.
			return provider.ErrDeviceNotBooked
		}
		if err := dev.Release(); err != nil {
			return err
		}

		metaRec, ok := txn.Get(ledger.ProviderMetaKey(providerAddr))
		if !ok {
			return provider.ErrProviderNotFound
		}
		meta := metaRec.(*provider.Metadata)
		meta.SyncCounters(dir)

		if err := txn.Stage(c); err != nil {
			return err
		}
		if err := txn.Stage(dir); err != nil {
			return err
		}
		return txn.Stage(meta)
	})
	if err != nil {
		return err
	}

	ev := events.New(events.TypeLocationRemoved)
	ev.Authority = actor
	ev.Provider = providerAddr
	ev.CampaignID = campaignID
	ev.DeviceID = deviceID
	m.bus.Publish(ev)

	m.metrics.DevicesAvailable.Inc()
	return nil
}

// UpdateCampaignPerformance copies the device feed's current accumulated
// totals onto the campaign's performance record for that device. This is
// the only bridge between oracle telemetry and campaign financial state;
// the advertiser re-invokes it per device before fee calculation.
func (m *Marketplace) UpdateCampaignPerformance(actor ids.Address, campaignID uint32, deviceID uint32) error {
	defer m.observe("update_campaign_performance")()

	var views, taps uint64
	err := m.ledger.Update(func(txn *ledger.Txn) error {
		rec, ok := txn.Get(ledger.CampaignKey(actor, campaignID))
		if !ok {
			return campaign.ErrCampaignNotFound
		}
		c := rec.(*campaign.Campaign)

		feedRec, ok := txn.Get(ledger.FeedKey(deviceID))
		if !ok {
			return oracle.ErrFeedNotFound
		}
		feed := feedRec.(*oracle.DeviceFeed)

		if err := c.SyncPerformance(deviceID, feed.TotalViews, feed.TotalTaps); err != nil {
			return err
		}
		views, taps = feed.TotalViews, feed.TotalTaps
		return txn.Stage(c)
	})
	if err != nil {
		return err
	}

	ev := events.New(events.TypePerformanceUpdated)
	ev.Authority = actor
	ev.CampaignID = campaignID
	ev.DeviceID = deviceID
	ev.TotalViews = views
	ev.TotalTaps = taps
	m.bus.Publish(ev)
	return nil
}

// CompleteCampaign transitions the caller's campaign Active -> Completed.
// The transition is terminal; no operation re-opens a completed campaign.
func (m *Marketplace) CompleteCampaign(actor ids.Address, campaignID uint32) error {
	defer m.observe("complete_campaign")()

	err := m.ledger.Update(func(txn *ledger.Txn) error {
		rec, ok := txn.Get(ledger.CampaignKey(actor, campaignID))
		if !ok {
			return campaign.ErrCampaignNotFound
		}
		c := rec.(*campaign.Campaign)
		if err := c.Complete(); err != nil {
			return err
		}
		return txn.Stage(c)
	})
	if err != nil {
		return err
	}

	ev := events.New(events.TypeCampaignCompleted)
	ev.Authority = actor
	ev.CampaignID = campaignID
	m.bus.Publish(ev)

	m.metrics.CampaignsActive.Dec()

	m.log.Info("campaign completed", "authority", actor.Short(), "campaign", campaignID)
	return nil
}
