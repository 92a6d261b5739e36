// Copyright (C) 2025, Soulboard Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package marketplace

import (
	"github.com/soulboard/ledger/pkg/events"
	"github.com/soulboard/ledger/pkg/ids"
	"github.com/soulboard/ledger/pkg/ledger"
	"github.com/soulboard/ledger/pkg/provider"
)

// InitializeRegistry creates the singleton provider registry. Called once
// at deployment by the bootstrap authority.
func (m *Marketplace) InitializeRegistry(actor ids.Address) error {
	defer m.observe("initialize_registry")()

	err := m.ledger.Update(func(txn *ledger.Txn) error {
		if txn.Has(ledger.KeyRegistry) {
			return ErrRegistryInitialized
		}
		return txn.Stage(provider.NewRegistry())
	})
	if err != nil {
		return err
	}

	ev := events.New(events.TypeRegistryInitialized)
	ev.Authority = actor
	m.bus.Publish(ev)

	m.log.Info("provider registry initialized", "authority", actor.Short())
	return nil
}

// RegisterProvider creates the caller's provider directory, its companion
// metadata record, and appends the authority to the global registry.
func (m *Marketplace) RegisterProvider(actor ids.Address, name, location, contactEmail string) error {
	defer m.observe("register_provider")()

	err := m.ledger.Update(func(txn *ledger.Txn) error {
		rec, ok := txn.Get(ledger.KeyRegistry)
		if !ok {
			return ErrRegistryNotInitialized
		}
		registry := rec.(*provider.Registry)

		if txn.Has(ledger.ProviderKey(actor)) {
			return provider.ErrProviderExists
		}
		if err := registry.Add(actor); err != nil {
			return err
		}

		dir := provider.NewDirectory(actor, name, location, contactEmail)
		meta := provider.NewMetadata(dir)

		if err := txn.Stage(registry); err != nil {
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

	ev := events.New(events.TypeProviderRegistered)
	ev.Authority = actor
	m.bus.Publish(ev)
	m.metrics.ProvidersRegistered.Inc()

	m.log.Info("provider registered", "authority", actor.Short(), "name", name)
	return nil
}

// UpdateProvider mutates the caller's descriptive fields. The authority
// itself is immutable; records are addressed by it, so a caller can only
// ever update its own directory.
func (m *Marketplace) UpdateProvider(actor ids.Address, update provider.Update) error {
	defer m.observe("update_provider")()

	err := m.ledger.Update(func(txn *ledger.Txn) error {
		rec, ok := txn.Get(ledger.ProviderKey(actor))
		if !ok {
			return provider.ErrProviderNotFound
		}
		dir := rec.(*provider.Directory)
		dir.Apply(update)

		metaRec, ok := txn.Get(ledger.ProviderMetaKey(actor))
		if !ok {
			return provider.ErrProviderNotFound
		}
		meta := metaRec.(*provider.Metadata)
		meta.SyncProfile(dir)

		if err := txn.Stage(dir); err != nil {
			return err
		}
		return txn.Stage(meta)
	})
	if err != nil {
		return err
	}

	ev := events.New(events.TypeProviderUpdated)
	ev.Authority = actor
	m.bus.Publish(ev)
	return nil
}

// ClaimDevice adds a new device to the caller's inventory in the Available
// state. Device ids are unique per provider and devices are never
// destroyed.
func (m *Marketplace) ClaimDevice(actor ids.Address, deviceID uint32) error {
	defer m.observe("claim_device")()

	err := m.ledger.Update(func(txn *ledger.Txn) error {
		rec, ok := txn.Get(ledger.ProviderKey(actor))
		if !ok {
			return provider.ErrProviderNotFound
		}
		dir := rec.(*provider.Directory)
		if err := dir.ClaimDevice(deviceID); err != nil {
			return err
		}

		metaRec, ok := txn.Get(ledger.ProviderMetaKey(actor))
		if !ok {
			return provider.ErrProviderNotFound
		}
		meta := metaRec.(*provider.Metadata)
		meta.SyncCounters(dir)

		if err := txn.Stage(dir); err != nil {
			return err
		}
		return txn.Stage(meta)
	})
	if err != nil {
		return err
	}

	ev := events.New(events.TypeDeviceClaimed)
	ev.Authority = actor
	ev.DeviceID = deviceID
	m.bus.Publish(ev)

	m.metrics.DevicesClaimed.Inc()
	m.metrics.DevicesAvailable.Inc()

	m.log.Info("device claimed", "authority", actor.Short(), "device", deviceID)
	return nil
}
