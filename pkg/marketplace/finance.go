// Copyright (C) 2025, Soulboard Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package marketplace

import (
	"github.com/soulboard/ledger/pkg/campaign"
	"github.com/soulboard/ledger/pkg/events"
	"github.com/soulboard/ledger/pkg/fees"
	"github.com/soulboard/ledger/pkg/ids"
	"github.com/soulboard/ledger/pkg/ledger"
	"github.com/soulboard/ledger/pkg/provider"
)

// CalculateAndDistributeFees runs the fee engine over the caller's
// completed campaign and credits every booked provider's pending balance.
// The campaign, every touched provider directory, and the distribution
// latch commit in one transaction; a successful run cannot be repeated.
func (m *Marketplace) CalculateAndDistributeFees(actor ids.Address, campaignID uint32) (*fees.Statement, error) {
	defer m.observe("calculate_and_distribute_fees")()

	var statement *fees.Statement
	err := m.ledger.Update(func(txn *ledger.Txn) error {
		rec, ok := txn.Get(ledger.CampaignKey(actor, campaignID))
		if !ok {
			return campaign.ErrCampaignNotFound
		}
		c := rec.(*campaign.Campaign)

		dirs := make(map[ids.Address]*provider.Directory, len(c.Providers))
		for _, addr := range c.Providers {
			if _, ok := dirs[addr]; ok {
				continue
			}
			dirRec, ok := txn.Get(ledger.ProviderKey(addr))
			if !ok {
				return fees.ErrMissingDirectory
			}
			dirs[addr] = dirRec.(*provider.Directory)
		}

		st, err := m.engine.Distribute(c, dirs)
		if err != nil {
			return err
		}
		statement = st

		if err := txn.Stage(c); err != nil {
			return err
		}
		for _, dir := range dirs {
			if err := txn.Stage(dir); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ev := events.New(events.TypeFeesDistributed)
	ev.Authority = actor
	ev.CampaignID = campaignID
	ev.Amount = statement.TotalDistributed
	m.bus.Publish(ev)

	m.metrics.FeesDistributed.Inc()
	return statement, nil
}

// WithdrawEarnings settles the caller's earned balance for one campaign.
// The pending amount moves to total earnings and the matching value leaves
// the campaign escrow through the host transfer primitive; an
// already-withdrawn balance cannot be withdrawn again.
func (m *Marketplace) WithdrawEarnings(actor ids.Address, advertiser ids.Address, campaignID uint32) (uint64, error) {
	defer m.observe("withdraw_earnings")()

	var amount uint64
	err := m.ledger.Update(func(txn *ledger.Txn) error {
		rec, ok := txn.Get(ledger.CampaignKey(advertiser, campaignID))
		if !ok {
			return campaign.ErrCampaignNotFound
		}
		c := rec.(*campaign.Campaign)

		dirRec, ok := txn.Get(ledger.ProviderKey(actor))
		if !ok {
			return provider.ErrProviderNotFound
		}
		dir := dirRec.(*provider.Directory)

		withdrawn, err := m.engine.Withdraw(c, dir)
		if err != nil {
			return err
		}
		if err := m.transfer.Transfer(c.EscrowAddress(), actor, withdrawn); err != nil {
			return err
		}
		amount = withdrawn

		if err := txn.Stage(c); err != nil {
			return err
		}
		return txn.Stage(dir)
	})
	if err != nil {
		return 0, err
	}

	ev := events.New(events.TypeEarningsWithdrawn)
	ev.Authority = actor
	ev.Provider = actor
	ev.CampaignID = campaignID
	ev.Amount = amount
	m.bus.Publish(ev)

	m.metrics.Withdrawals.Inc()
	return amount, nil
}
