// go-uidreader
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-uidreader.
//
// go-uidreader is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-uidreader is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-uidreader; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

// Package pn532 drives an NXP PN532 NFC controller far enough to identify
// the chip and report the UID of ISO14443A tags.
package pn532

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DeviceConfig contains configuration options for the Device
type DeviceConfig struct {
	// Timeout bounds the wait for a command response
	Timeout time.Duration
}

// DefaultDeviceConfig returns default device configuration
func DefaultDeviceConfig() *DeviceConfig {
	return &DeviceConfig{
		Timeout: 1 * time.Second,
	}
}

// Device represents a PN532 NFC reader device
//
// Thread Safety: Device is NOT thread-safe. All methods must be called from
// a single goroutine or protected with external synchronization.
type Device struct {
	transport TransportContext
	config    *DeviceConfig
}

// Option configures a Device
type Option func(*Device) error

// WithTimeout sets the command response timeout
func WithTimeout(timeout time.Duration) Option {
	return func(d *Device) error {
		if timeout <= 0 {
			return fmt.Errorf("invalid timeout %s", timeout)
		}
		d.config.Timeout = timeout
		return nil
	}
}

// New creates a new PN532 device with the given transport
func New(transport Transport, opts ...Option) (*Device, error) {
	if transport == nil {
		return nil, errors.New("transport cannot be nil")
	}

	device := &Device{
		transport: AsTransportContext(transport),
		config:    DefaultDeviceConfig(),
	}

	for _, opt := range opts {
		if err := opt(device); err != nil {
			return nil, err
		}
	}

	return device, nil
}

// InitContext prepares the transport for command exchange
func (d *Device) InitContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !d.transport.IsConnected() {
		return NewTransportError("init", string(d.transport.Type()), ErrTransportClosed, ErrorTypePermanent)
	}
	if err := d.transport.SetTimeout(d.config.Timeout); err != nil {
		return fmt.Errorf("failed to set timeout on transport: %w", err)
	}
	return nil
}

// SAMConfigurationContext configures the Security Access Module. Normal mode
// with a 1s virtual card timeout is what tag reading needs
func (d *Device) SAMConfigurationContext(ctx context.Context, mode SAMMode, timeout byte, useIRQ bool) error {
	irq := byte(0x00)
	if useIRQ {
		irq = 0x01
	}

	resp, err := d.transport.SendCommandContext(ctx, cmdSamConfiguration, []byte{byte(mode), timeout, irq})
	if err != nil {
		return fmt.Errorf("SAMConfiguration failed: %w", err)
	}
	if len(resp) < 1 || resp[0] != cmdSamConfiguration+1 {
		return fmt.Errorf("%w: unexpected SAMConfiguration response %X", ErrInvalidResponse, resp)
	}
	return nil
}

// Close closes the device connection
func (d *Device) Close() error {
	if err := d.transport.Close(); err != nil {
		return fmt.Errorf("failed to close transport: %w", err)
	}
	return nil
}
