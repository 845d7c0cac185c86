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

package rc522

import (
	"context"
	"errors"
	"fmt"
	"time"

	uidreader "github.com/ZaparooProject/go-uidreader"
)

// IdleDelay is slept after a poll that found no card
const IdleDelay = 100 * time.Millisecond

// DefaultWiringHint is printed when the chip does not answer
const DefaultWiringHint = "Check SPI connections"

// Reader adapts a Device to the uidreader.Reader capability set
type Reader struct {
	device *Device
	hint   string
}

// ReaderOption configures a Reader
type ReaderOption func(*Reader)

// WithWiringHint replaces the fault hint
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
func (*Reader) Name() string { return "RC522" }

// WiringHint implements uidreader.Reader
func (r *Reader) WiringHint() string { return r.hint }

// Timing implements uidreader.Reader. A successful read goes straight back
// to polling; the debounce hold is the only pause.
func (*Reader) Timing() uidreader.Timing {
	return uidreader.Timing{IdleDelay: IdleDelay}
}

// Init implements uidreader.Reader
func (r *Reader) Init(ctx context.Context) error {
	return r.device.Init(ctx)
}

// Identify reads VersionReg. 0x00 and 0xFF are what an absent chip or a
// floating MISO line return.
func (r *Reader) Identify(context.Context) (uidreader.Identity, error) {
	v, err := r.device.Version()
	if err != nil {
		return uidreader.Identity{}, fmt.Errorf("%w: %w", uidreader.ErrDeviceNotFound, err)
	}
	if v == 0x00 || v == 0xFF {
		return uidreader.Identity{}, fmt.Errorf("%w: VersionReg reads %02X", uidreader.ErrDeviceNotFound, v)
	}

	return uidreader.Identity{
		Label:  "Version",
		Value:  uint32(v),
		Detail: VersionName(v),
	}, nil
}

// Configure implements uidreader.Reader; the RC522 needs no extra setup
func (*Reader) Configure(context.Context) error {
	return nil
}

// DetectTag asks for a new card and reads its serial
func (r *Reader) DetectTag(ctx context.Context) (uidreader.UID, error) {
	present, err := r.device.IsNewCardPresent(ctx)
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, uidreader.ErrNoTag
	}

	uid, sak, err := r.device.ReadCardSerial(ctx)
	if err != nil {
		if errors.Is(err, ErrTimeout) || errors.Is(err, ErrCollision) ||
			errors.Is(err, ErrProtocol) || errors.Is(err, ErrCRC) {
			return nil, fmt.Errorf("%w: %w", uidreader.ErrNoTag, err)
		}
		return nil, err
	}
	uidreader.Debugf("RC522 card: UID=%X SAK=%02X", uid, sak)
	return uid, nil
}

// EndSession halts the card and leaves any crypto session
func (r *Reader) EndSession(ctx context.Context) error {
	haltErr := r.device.HaltA(ctx)
	if err := r.device.StopCrypto1(); err != nil {
		return err
	}
	return haltErr
}

var _ uidreader.Reader = (*Reader)(nil)
