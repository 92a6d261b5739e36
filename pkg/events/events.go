// Copyright (C) 2025, Soulboard Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package events

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/soulboard/ledger/pkg/ids"
)

// Type identifies a ledger event
type Type string

const (
	TypeRegistryInitialized Type = "registry_initialized"
	TypeProviderRegistered  Type = "provider_registered"
	TypeProviderUpdated     Type = "provider_updated"
	TypeDeviceClaimed       Type = "device_claimed"
	TypeCampaignCreated     Type = "campaign_created"
	TypeBudgetAdded         Type = "budget_added"
	TypeLocationAdded       Type = "location_added"
	TypeLocationRemoved     Type = "location_removed"
	TypeFeedInitialized     Type = "feed_initialized"
	TypeFeedUpdated         Type = "feed_updated"
	TypePerformanceUpdated  Type = "performance_updated"
	TypeCampaignCompleted   Type = "campaign_completed"
	TypeFeesDistributed     Type = "fees_distributed"
	TypeEarningsWithdrawn   Type = "earnings_withdrawn"
)

// Event is a single ledger state-change notification
type Event struct {
	ID        string      `json:"id"`
	Type      Type        `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Authority ids.Address `json:"authority"`
	Provider  ids.Address `json:"provider"`

	CampaignID uint32 `json:"campaign_id,omitempty"`
	DeviceID   uint32 `json:"device_id,omitempty"`

	// Oracle feed fields
	EntryID    uint32 `json:"entry_id,omitempty"`
	DeltaViews uint64 `json:"delta_views,omitempty"`
	DeltaTaps  uint64 `json:"delta_taps,omitempty"`
	TotalViews uint64 `json:"total_views,omitempty"`
	TotalTaps  uint64 `json:"total_taps,omitempty"`

	// Financial fields
	Amount uint64 `json:"amount,omitempty"`
}

// New creates an event of the given type stamped with a fresh id
func New(t Type) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      t,
		Timestamp: time.Now().UTC(),
	}
}

// Bus fans ledger events out to subscribers. Publishing never blocks: a
// subscriber that falls behind drops events.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	nextID int
	buffer int
	closed bool
}

// NewBus creates an event bus with the given per-subscriber buffer size
func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = 256
	}
	return &Bus{
		subs:   make(map[int]chan Event),
		buffer: buffer,
	}
}

// Subscribe registers a new subscriber and returns its channel plus a
// cancel function that closes it
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Event, b.buffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			// Buffer full, drop event
		}
	}
}

// Close shuts the bus down and closes all subscriber channels
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
