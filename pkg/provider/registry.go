// Copyright (C) 2025, Soulboard Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package provider

import (
	"github.com/soulboard/ledger/pkg/ids"
	"github.com/soulboard/ledger/pkg/ledger"
)

// MaxProvidersInRegistry caps the global registry size
const MaxProvidersInRegistry = 50

// Registry is the singleton, append-only index of provider authorities.
// TotalProviders always equals len(Providers).
type Registry struct {
	Providers      []ids.Address `json:"providers"`
	TotalProviders uint32        `json:"total_providers"`
}

// NewRegistry creates the empty registry
func NewRegistry() *Registry {
	return &Registry{Providers: make([]ids.Address, 0)}
}

// Key implements ledger.Record
func (r *Registry) Key() string {
	return ledger.KeyRegistry
}

// Clone implements ledger.Record
func (r *Registry) Clone() ledger.Record {
	cp := *r
	cp.Providers = append([]ids.Address(nil), r.Providers...)
	return &cp
}

// Add appends a provider authority to the registry
func (r *Registry) Add(authority ids.Address) error {
	if len(r.Providers) >= MaxProvidersInRegistry {
		return ErrRegistryFull
	}
	for _, p := range r.Providers {
		if p == authority {
			return ErrProviderExists
		}
	}
	r.Providers = append(r.Providers, authority)
	r.TotalProviders++
	return nil
}

// Contains reports whether the authority is registered
func (r *Registry) Contains(authority ids.Address) bool {
	for _, p := range r.Providers {
		if p == authority {
			return true
		}
	}
	return false
}
