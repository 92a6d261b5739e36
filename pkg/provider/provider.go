// Copyright (C) 2025, Soulboard Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package provider

import (
	"errors"
	"math"

	"github.com/soulboard/ledger/pkg/ids"
	"github.com/soulboard/ledger/pkg/ledger"
)

var (
	ErrDeviceNotFound       = errors.New("device not found")
	ErrDeviceNotAvailable   = errors.New("device not available")
	ErrDeviceNotBooked      = errors.New("device not booked")
	ErrDeviceAlreadyClaimed = errors.New("device id already claimed")
	ErrProviderExists       = errors.New("provider already registered")
	ErrProviderNotFound     = errors.New("provider not found")
	ErrRegistryFull         = errors.New("registry is full")
	ErrOverflow             = errors.New("math overflow")
)

// DefaultRating is assigned to every newly registered provider
const DefaultRating = 50

// Directory is an advertising-space provider's on-ledger profile: identity,
// claimed devices, and the earnings ledger. The authority is immutable after
// registration; updates touch descriptive fields only.
type Directory struct {
	Authority       ids.Address `json:"authority"`
	Name            string      `json:"name"`
	Location        string      `json:"location"`
	ContactEmail    string      `json:"contact_email"`
	Rating          uint8       `json:"rating"`
	TotalCampaigns  uint32      `json:"total_campaigns"`
	IsActive        bool        `json:"is_active"`
	Devices         []Device    `json:"devices"`
	TotalEarnings   uint64      `json:"total_earnings"`
	PendingPayments uint64      `json:"pending_payments"`
}

// NewDirectory creates a provider directory for the given authority
func NewDirectory(authority ids.Address, name, location, contactEmail string) *Directory {
	return &Directory{
		Authority:    authority,
		Name:         name,
		Location:     location,
		ContactEmail: contactEmail,
		Rating:       DefaultRating,
		IsActive:     true,
		Devices:      make([]Device, 0),
	}
}

// Key implements ledger.Record
func (p *Directory) Key() string {
	return ledger.ProviderKey(p.Authority)
}

// Clone implements ledger.Record
func (p *Directory) Clone() ledger.Record {
	cp := *p
	cp.Devices = append([]Device(nil), p.Devices...)
	return &cp
}

// ClaimDevice appends a new device in the Available state. Device ids are
// unique within one provider.
func (p *Directory) ClaimDevice(deviceID uint32) error {
	for i := range p.Devices {
		if p.Devices[i].DeviceID == deviceID {
			return ErrDeviceAlreadyClaimed
		}
	}
	p.Devices = append(p.Devices, Device{DeviceID: deviceID, State: DeviceAvailable})
	return nil
}

// Device returns a pointer into the directory's device list
func (p *Directory) Device(deviceID uint32) (*Device, error) {
	for i := range p.Devices {
		if p.Devices[i].DeviceID == deviceID {
			return &p.Devices[i], nil
		}
	}
	return nil, ErrDeviceNotFound
}

// AvailableDevices counts devices currently in the Available state
func (p *Directory) AvailableDevices() uint32 {
	var n uint32
	for i := range p.Devices {
		if p.Devices[i].State == DeviceAvailable {
			n++
		}
	}
	return n
}

// CreditPending adds a calculated payout to the pending balance
func (p *Directory) CreditPending(amount uint64) error {
	if amount > math.MaxUint64-p.PendingPayments {
		return ErrOverflow
	}
	p.PendingPayments += amount
	return nil
}

// SettlePending moves a withdrawn amount from pending to total earnings
func (p *Directory) SettlePending(amount uint64) error {
	if amount > p.PendingPayments {
		return ErrOverflow
	}
	if amount > math.MaxUint64-p.TotalEarnings {
		return ErrOverflow
	}
	p.PendingPayments -= amount
	p.TotalEarnings += amount
	return nil
}

// Update is a descriptive-field update; nil fields keep their value
type Update struct {
	Name         *string `json:"name,omitempty"`
	Location     *string `json:"location,omitempty"`
	ContactEmail *string `json:"contact_email,omitempty"`
	IsActive     *bool   `json:"is_active,omitempty"`
}

// Apply merges the update into the directory
func (p *Directory) Apply(u Update) {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Location != nil {
		p.Location = *u.Location
	}
	if u.ContactEmail != nil {
		p.ContactEmail = *u.ContactEmail
	}
	if u.IsActive != nil {
		p.IsActive = *u.IsActive
	}
}

// Metadata is the companion record kept in lockstep with a Directory for
// cheap enumeration queries. DeviceCount and AvailableDevices always equal
// len(Devices) and the count of Available devices on the directory.
type Metadata struct {
	Authority        ids.Address `json:"authority"`
	Name             string      `json:"name"`
	Location         string      `json:"location"`
	DeviceCount      uint32      `json:"device_count"`
	AvailableDevices uint32      `json:"available_devices"`
	Rating           uint8       `json:"rating"`
	IsActive         bool        `json:"is_active"`
}

// NewMetadata creates the metadata record matching a fresh directory
func NewMetadata(p *Directory) *Metadata {
	return &Metadata{
		Authority: p.Authority,
		Name:      p.Name,
		Location:  p.Location,
		Rating:    p.Rating,
		IsActive:  p.IsActive,
	}
}

// Key implements ledger.Record
func (m *Metadata) Key() string {
	return ledger.ProviderMetaKey(m.Authority)
}

// Clone implements ledger.Record
func (m *Metadata) Clone() ledger.Record {
	cp := *m
	return &cp
}

// SyncCounters refreshes the counters from the directory's device list
func (m *Metadata) SyncCounters(p *Directory) {
	m.DeviceCount = uint32(len(p.Devices))
	m.AvailableDevices = p.AvailableDevices()
}

// SyncProfile refreshes the descriptive fields from the directory
func (m *Metadata) SyncProfile(p *Directory) {
	m.Name = p.Name
	m.Location = p.Location
	m.Rating = p.Rating
	m.IsActive = p.IsActive
}
