// Copyright (C) 2025, Soulboard Labs. All rights reserved.
// See the file LICENSE for licensing terms.

// Package marketplace is the operation surface of the Soulboard ledger: it
// dispatches every caller-facing operation into a single serialized,
// all-or-nothing ledger transaction, enforcing authority and precondition
// checks against current committed state before any mutation.
package marketplace

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/soulboard/ledger/pkg/campaign"
	"github.com/soulboard/ledger/pkg/events"
	"github.com/soulboard/ledger/pkg/fees"
	"github.com/soulboard/ledger/pkg/ids"
	"github.com/soulboard/ledger/pkg/ledger"
	"github.com/soulboard/ledger/pkg/log"
	"github.com/soulboard/ledger/pkg/metric"
	"github.com/soulboard/ledger/pkg/oracle"
	"github.com/soulboard/ledger/pkg/provider"
)

var (
	ErrRegistryInitialized    = errors.New("registry already initialized")
	ErrRegistryNotInitialized = errors.New("registry not initialized")
)

// Marketplace wires the ledger, the fee engine, the event bus, and the
// metrics into one operation surface
type Marketplace struct {
	ledger   *ledger.Ledger
	bus      *events.Bus
	metrics  *metric.Metrics
	engine   *fees.Engine
	transfer fees.Transferrer
	log      log.Logger
}

// New creates a marketplace over the given ledger. transfer may be nil, in
// which case value transfers are no-ops (the host transfer primitive is an
// external collaborator).
func New(l *ledger.Ledger, bus *events.Bus, metrics *metric.Metrics, transfer fees.Transferrer, logger log.Logger) *Marketplace {
	if transfer == nil {
		transfer = fees.NoopTransferrer{}
	}
	return &Marketplace{
		ledger:   l,
		bus:      bus,
		metrics:  metrics,
		engine:   fees.NewEngine(logger),
		transfer: transfer,
		log:      logger,
	}
}

// Load rebuilds committed ledger state from storage
func (m *Marketplace) Load() error {
	return m.ledger.Load(DecodeRecord)
}

// DecodeRecord recovers a concrete record type from its deterministic key
func DecodeRecord(key string, data []byte) (ledger.Record, error) {
	var rec ledger.Record
	switch {
	case key == ledger.KeyRegistry:
		rec = &provider.Registry{}
	case strings.HasPrefix(key, ledger.PrefixProviderMeta):
		rec = &provider.Metadata{}
	case strings.HasPrefix(key, ledger.PrefixProvider):
		rec = &provider.Directory{}
	case strings.HasPrefix(key, ledger.PrefixCampaign):
		rec = &campaign.Campaign{}
	case strings.HasPrefix(key, ledger.PrefixFeed):
		rec = &oracle.DeviceFeed{}
	default:
		return nil, fmt.Errorf("unknown record key %q", key)
	}
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// observe times an operation into the op duration histogram
func (m *Marketplace) observe(op string) func() {
	start := time.Now()
	return func() {
		m.metrics.OpDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}
}

// GetAllProviders returns every registered provider authority
func (m *Marketplace) GetAllProviders() ([]ids.Address, error) {
	var providers []ids.Address
	err := m.ledger.View(func(txn *ledger.Txn) error {
		rec, ok := txn.Get(ledger.KeyRegistry)
		if !ok {
			return ErrRegistryNotInitialized
		}
		reg := rec.(*provider.Registry)
		providers = append([]ids.Address(nil), reg.Providers...)
		return nil
	})
	return providers, err
}

// GetProvider returns a provider's directory
func (m *Marketplace) GetProvider(authority ids.Address) (*provider.Directory, error) {
	var dir *provider.Directory
	err := m.ledger.View(func(txn *ledger.Txn) error {
		rec, ok := txn.Get(ledger.ProviderKey(authority))
		if !ok {
			return provider.ErrProviderNotFound
		}
		dir = rec.(*provider.Directory)
		return nil
	})
	return dir, err
}

// GetProviderMetadata returns a provider's companion metadata record
func (m *Marketplace) GetProviderMetadata(authority ids.Address) (*provider.Metadata, error) {
	var meta *provider.Metadata
	err := m.ledger.View(func(txn *ledger.Txn) error {
		rec, ok := txn.Get(ledger.ProviderMetaKey(authority))
		if !ok {
			return provider.ErrProviderNotFound
		}
		meta = rec.(*provider.Metadata)
		return nil
	})
	return meta, err
}

// GetCampaign returns a campaign by its (authority, id) key
func (m *Marketplace) GetCampaign(authority ids.Address, campaignID uint32) (*campaign.Campaign, error) {
	var c *campaign.Campaign
	err := m.ledger.View(func(txn *ledger.Txn) error {
		rec, ok := txn.Get(ledger.CampaignKey(authority, campaignID))
		if !ok {
			return campaign.ErrCampaignNotFound
		}
		c = rec.(*campaign.Campaign)
		return nil
	})
	return c, err
}

// GetDeviceFeed returns a device's oracle feed
func (m *Marketplace) GetDeviceFeed(deviceID uint32) (*oracle.DeviceFeed, error) {
	var feed *oracle.DeviceFeed
	err := m.ledger.View(func(txn *ledger.Txn) error {
		rec, ok := txn.Get(ledger.FeedKey(deviceID))
		if !ok {
			return oracle.ErrFeedNotFound
		}
		feed = rec.(*oracle.DeviceFeed)
		return nil
	})
	return feed, err
}
