// Copyright (C) 2025, Soulboard Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package ids

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// Address identifies an on-ledger authority (advertiser, provider, or feed
// signer).
type Address [32]byte

// ZeroAddress is the empty address.
var ZeroAddress Address

// GenerateTestAddress creates a random address for testing
func GenerateTestAddress() Address {
	var addr Address
	rand.Read(addr[:])
	return addr
}

// String returns the hex representation of the address
func (a Address) String() string {
	return hex.EncodeToString(a[:])
}

// Short returns a truncated hex form for logging
func (a Address) Short() string {
	return hex.EncodeToString(a[:4])
}

// Bytes returns the byte representation of the address
func (a Address) Bytes() []byte {
	return a[:]
}

// IsZero reports whether the address is unset
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// MarshalText implements encoding.TextMarshaler; addresses serialize as hex
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (a *Address) UnmarshalText(text []byte) error {
	addr, err := FromString(string(text))
	if err != nil {
		return err
	}
	*a = addr
	return nil
}

// FromString creates an address from a hex string
func FromString(s string) (Address, error) {
	var addr Address
	bytes, err := hex.DecodeString(s)
	if err != nil {
		return addr, err
	}
	if len(bytes) != 32 {
		return addr, fmt.Errorf("invalid address length: expected 32, got %d", len(bytes))
	}
	copy(addr[:], bytes)
	return addr, nil
}

// Derive produces a deterministic address from a seed label and its parts.
// Record escrow accounts are addressed this way so that every entity maps
// to exactly one collision-free address.
func Derive(label string, parts ...[]byte) Address {
	h := sha256.New()
	h.Write([]byte(label))
	for _, p := range parts {
		h.Write(p)
	}
	var addr Address
	copy(addr[:], h.Sum(nil))
	return addr
}

// Uint32Seed encodes a numeric id as a derivation seed part
func Uint32Seed(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}
