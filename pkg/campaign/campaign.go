// Copyright (C) 2025, Soulboard Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package campaign

import (
	"errors"
	"fmt"
	"math"

	"github.com/soulboard/ledger/pkg/ids"
	"github.com/soulboard/ledger/pkg/ledger"
)

var (
	ErrCampaignNotActive    = errors.New("campaign not active")
	ErrCampaignNotCompleted = errors.New("campaign not completed")
	ErrCampaignExists       = errors.New("campaign already exists")
	ErrCampaignNotFound     = errors.New("campaign not found")
	ErrDeviceNotFound       = errors.New("device not found in campaign")
	ErrLocationNotBooked    = errors.New("location not booked to campaign")
	ErrOverflow             = errors.New("math overflow")
)

// PlatformFeePercent is the marketplace operator's cut of funded budget
const PlatformFeePercent = 2

// Status is the campaign lifecycle state
type Status uint8

const (
	StatusActive Status = iota
	StatusCompleted
)

// String returns the status name
func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusCompleted:
		return "completed"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// Location is a booked (provider, device) pair. The campaign holds only
// this non-owning reference; the device itself stays with its provider.
type Location struct {
	Provider ids.Address `json:"provider"`
	DeviceID uint32      `json:"device_id"`
}

// PerformanceRecord tracks one booked location's measured performance and,
// after fee distribution, its earnings breakdown. Totals are absolute
// copies of the device feed's accumulators at the last sync.
type PerformanceRecord struct {
	Provider   ids.Address `json:"provider"`
	DeviceID   uint32      `json:"device_id"`
	TotalViews uint64      `json:"total_views"`
	TotalTaps  uint64      `json:"total_taps"`

	BaseFeeEarned        uint64 `json:"base_fee_earned"`
	PerformanceFeeEarned uint64 `json:"performance_fee_earned"`
	CalculatedEarnings   uint64 `json:"calculated_earnings"`
	Withdrawn            bool   `json:"withdrawn"`
}

// Campaign is an advertiser's funded request to display ads across booked
// devices for a fixed duration. Keyed by (authority, campaignID); one
// advertiser may own many campaigns. Created Active with zero budget;
// the budget only grows, and Active -> Completed happens exactly once.
type Campaign struct {
	Authority   ids.Address `json:"authority"`
	CampaignID  uint32      `json:"campaign_id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`

	Budget         uint64 `json:"budget"`
	PlatformFee    uint64 `json:"platform_fee"`
	BaseFeePerHour uint64 `json:"base_fee_per_hour"`
	RunningDays    uint16 `json:"running_days"`
	HoursPerDay    uint16 `json:"hours_per_day"`

	Status      Status              `json:"status"`
	Providers   []ids.Address       `json:"providers"`
	Locations   []Location          `json:"locations"`
	Performance []PerformanceRecord `json:"performance"`

	TotalDistributed       uint64 `json:"total_distributed"`
	UndistributedRemainder uint64 `json:"undistributed_remainder"`
	FeesDistributed        bool   `json:"fees_distributed"`
}

// New creates an Active campaign with zero budget. Duration and base fee
// parameters are fixed for the campaign's lifetime.
func New(authority ids.Address, campaignID uint32, name, description string, runningDays, hoursPerDay uint16, baseFeePerHour uint64) *Campaign {
	return &Campaign{
		Authority:      authority,
		CampaignID:     campaignID,
		Name:           name,
		Description:    description,
		BaseFeePerHour: baseFeePerHour,
		RunningDays:    runningDays,
		HoursPerDay:    hoursPerDay,
		Status:         StatusActive,
		Providers:      make([]ids.Address, 0),
		Locations:      make([]Location, 0),
		Performance:    make([]PerformanceRecord, 0),
	}
}

// Key implements ledger.Record
func (c *Campaign) Key() string {
	return ledger.CampaignKey(c.Authority, c.CampaignID)
}

// Clone implements ledger.Record
func (c *Campaign) Clone() ledger.Record {
	cp := *c
	cp.Providers = append([]ids.Address(nil), c.Providers...)
	cp.Locations = append([]Location(nil), c.Locations...)
	cp.Performance = append([]PerformanceRecord(nil), c.Performance...)
	return &cp
}

// EscrowAddress derives the deterministic address holding the campaign's
// funded budget on the host ledger
func (c *Campaign) EscrowAddress() ids.Address {
	return ids.Derive("campaign_escrow", c.Authority.Bytes(), ids.Uint32Seed(c.CampaignID))
}

// AddBudget grows the budget by amount and accrues the 2% platform cut of
// this funding call, rounded toward zero. Only valid while Active.
func (c *Campaign) AddBudget(amount uint64) error {
	if c.Status != StatusActive {
		return ErrCampaignNotActive
	}
	if amount > math.MaxUint64-c.Budget {
		return ErrOverflow
	}
	if amount > math.MaxUint64/PlatformFeePercent {
		return ErrOverflow
	}
	cut := amount * PlatformFeePercent / 100
	if cut > math.MaxUint64-c.PlatformFee {
		return ErrOverflow
	}

	c.Budget += amount
	c.PlatformFee += cut
	return nil
}

// Complete transitions Active -> Completed. The transition is terminal.
func (c *Campaign) Complete() error {
	if c.Status != StatusActive {
		return ErrCampaignNotActive
	}
	c.Status = StatusCompleted
	return nil
}

// AddLocation records a booked (provider, device) pair and seeds a zeroed
// performance record for it
func (c *Campaign) AddLocation(provider ids.Address, deviceID uint32) {
	c.Providers = append(c.Providers, provider)
	c.Locations = append(c.Locations, Location{Provider: provider, DeviceID: deviceID})
	c.Performance = append(c.Performance, PerformanceRecord{Provider: provider, DeviceID: deviceID})
}

// RemoveLocation drops the matching location, provider, and performance
// entries. A provider booked through several devices keeps its other
// entries.
func (c *Campaign) RemoveLocation(provider ids.Address, deviceID uint32) error {
	idx := -1
	for i, loc := range c.Locations {
		if loc.Provider == provider && loc.DeviceID == deviceID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrLocationNotBooked
	}
	c.Locations = append(c.Locations[:idx], c.Locations[idx+1:]...)

	for i, p := range c.Providers {
		if p == provider {
			c.Providers = append(c.Providers[:i], c.Providers[i+1:]...)
			break
		}
	}
	for i := range c.Performance {
		if c.Performance[i].Provider == provider && c.Performance[i].DeviceID == deviceID {
			c.Performance = append(c.Performance[:i], c.Performance[i+1:]...)
			break
		}
	}
	return nil
}

// PerformanceFor returns the performance record for a booked device
func (c *Campaign) PerformanceFor(deviceID uint32) (*PerformanceRecord, error) {
	for i := range c.Performance {
		if c.Performance[i].DeviceID == deviceID {
			return &c.Performance[i], nil
		}
	}
	return nil, ErrDeviceNotFound
}

// SyncPerformance overwrites a booked device's totals with the oracle
// feed's current accumulators. Absolute copy: repeated calls before
// further oracle updates are no-ops.
func (c *Campaign) SyncPerformance(deviceID uint32, totalViews, totalTaps uint64) error {
	rec, err := c.PerformanceFor(deviceID)
	if err != nil {
		return err
	}
	rec.TotalViews = totalViews
	rec.TotalTaps = totalTaps
	return nil
}

// HasProvider reports whether the provider appears in the campaign's
// provider list
func (c *Campaign) HasProvider(provider ids.Address) bool {
	for _, p := range c.Providers {
		if p == provider {
			return true
		}
	}
	return false
}

// TotalViews sums measured views across all performance records. Feed
// accumulators are only individually bounded, so the sum itself can exceed
// uint64; that surfaces as ErrOverflow rather than a wrapped total.
func (c *Campaign) TotalViews() (uint64, error) {
	var total uint64
	for i := range c.Performance {
		v := c.Performance[i].TotalViews
		if v > math.MaxUint64-total {
			return 0, ErrOverflow
		}
		total += v
	}
	return total, nil
}
