// Copyright (C) 2025, Soulboard Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package provider

import "fmt"

// DeviceState is the booking state of a display device
type DeviceState uint8

const (
	DeviceAvailable DeviceState = iota
	DeviceBooked
)

// String returns the state name
func (s DeviceState) String() string {
	switch s {
	case DeviceAvailable:
		return "available"
	case DeviceBooked:
		return "booked"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// Device is one physical display. Devices are created by a provider's claim
// operation and never destroyed; only the booking state toggles.
type Device struct {
	DeviceID uint32      `json:"device_id"`
	State    DeviceState `json:"state"`
}

// Book transitions the device Available -> Booked
func (d *Device) Book() error {
	if d.State != DeviceAvailable {
		return ErrDeviceNotAvailable
	}
	d.State = DeviceBooked
	return nil
}

// Release transitions the device Booked -> Available
func (d *Device) Release() error {
	if d.State != DeviceBooked {
		return ErrDeviceNotBooked
	}
	d.State = DeviceAvailable
	return nil
}
