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

package pn532

import (
	"context"
	"errors"
	"fmt"
	"time"

	uidreader "github.com/ZaparooProject/go-uidreader"
)

const (
	// DetectTimeout bounds a single InListPassiveTarget
	DetectTimeout = 100 * time.Millisecond
	// IdleDelay is slept after every poll iteration, with or without a tag
	IdleDelay = 100 * time.Millisecond

	// samTimeout is the virtual card timeout in 50ms units (1s)
	samTimeout = 0x14
)

// DefaultWiringHint is printed when the chip does not answer
const DefaultWiringHint = "Check I2C connections"

// Reader adapts a Device to the uidreader.Reader capability set
type Reader struct {
	device *Device
	hint   string
}

// ReaderOption configures a Reader
type ReaderOption func(*Reader)

// WithWiringHint replaces the fault hint, typically to name the bus in use
func WithWiringHint(hint string) ReaderOption {
	return func(r *Reader) {
		r.hint = hint
	}
}

// NewReader creates a reader for device
func NewReader(device *Device, opts ...ReaderOption) *Reader {
	r := &Reader{device: device, hint: DefaultWiringHint}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Name implements uidreader.Reader
func (*Reader) Name() string { return "PN532" }

// WiringHint implements uidreader.Reader
func (r *Reader) WiringHint() string { return r.hint }

// Timing implements uidreader.Reader
func (*Reader) Timing() uidreader.Timing {
	return uidreader.Timing{IdleDelay: IdleDelay, IdleAfterEmit: true}
}

// Init implements uidreader.Reader
func (r *Reader) Init(ctx context.Context) error {
	return r.device.InitContext(ctx)
}

// Identify reads the firmware word. Any failure to obtain it, or a zero word,
// means the chip is not there.
func (r *Reader) Identify(ctx context.Context) (uidreader.Identity, error) {
	version, err := r.device.GetFirmwareVersionContext(ctx)
	if err != nil {
		return uidreader.Identity{}, fmt.Errorf("%w: %w", uidreader.ErrDeviceNotFound, err)
	}

	word := version.Word()
	if word == 0 {
		return uidreader.Identity{}, fmt.Errorf("%w: firmware version is zero", uidreader.ErrDeviceNotFound)
	}

	return uidreader.Identity{
		Label:  "Firmware Version",
		Value:  word,
		Detail: version.String(),
	}, nil
}

// Configure puts the SAM into normal mode so the chip can read tags
func (r *Reader) Configure(ctx context.Context) error {
	return r.device.SAMConfigurationContext(ctx, SAMModeNormal, samTimeout, true)
}

// DetectTag waits up to DetectTimeout for a tag
func (r *Reader) DetectTag(ctx context.Context) (uidreader.UID, error) {
	target, err := r.device.ReadPassiveTargetIDContext(ctx, DetectTimeout)
	if err != nil {
		if errors.Is(err, ErrNoTagDetected) {
			return nil, uidreader.ErrNoTag
		}
		return nil, err
	}
	uidreader.Debugf("PN532 target %d: SENS_RES=%X SEL_RES=%02X UID=%X",
		target.Number, target.SensRes, target.SelRes, target.UID)
	return target.UID, nil
}

// EndSession is a no-op: the next InListPassiveTarget starts a new session
func (*Reader) EndSession(context.Context) error {
	return nil
}

var _ uidreader.Reader = (*Reader)(nil)
