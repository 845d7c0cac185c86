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

package uidreader

import (
	"context"
	"fmt"
	"time"
)

// Timing describes how a reader variant spends the idle part of a poll
// iteration.
type Timing struct {
	// IdleDelay is slept after an iteration that found no tag.
	IdleDelay time.Duration
	// IdleAfterEmit also applies IdleDelay after an iteration that emitted a
	// tag event.
	IdleAfterEmit bool
}

// Identity is the answer of the reader identity query.
type Identity struct {
	Label  string
	Detail string
	Value  uint32
}

// String formats the identity the way the startup banner prints it, e.g.
// "Firmware Version: 0x32010607".
func (i Identity) String() string {
	s := fmt.Sprintf("%s: 0x%X", i.Label, i.Value)
	if i.Detail != "" {
		s += " (" + i.Detail + ")"
	}
	return s
}

// Reader is the capability set the poller needs from an NFC reader chip.
// Implementations are not safe for concurrent use.
type Reader interface {
	// Name is the chip name used in diagnostics, e.g. "PN532".
	Name() string

	// WiringHint is printed when the chip cannot be found.
	WiringHint() string

	// Init brings the chip into a known state.
	Init(ctx context.Context) error

	// Identify queries the chip identity. It returns ErrDeviceNotFound when
	// the answer is the chip's "not present" sentinel.
	Identify(ctx context.Context) (Identity, error)

	// Configure performs the post-identity setup step, if the chip has one.
	Configure(ctx context.Context) error

	// DetectTag looks for a single ISO14443A tag and returns its UID, or
	// ErrNoTag when none answered.
	DetectTag(ctx context.Context) (UID, error)

	// EndSession releases the tag selected by the last DetectTag call.
	EndSession(ctx context.Context) error

	// Timing returns the variant specific idle behaviour.
	Timing() Timing
}

// Indicator is a single binary status output such as an LED.
type Indicator interface {
	Set(on bool) error
}

// Unavailable returns a Reader whose Init always fails with err. It lets a
// caller that could not even open the reader bus drive the same fault
// signalling as a chip that does not answer.
func Unavailable(name, hint string, err error) Reader {
	return &unavailableReader{name: name, hint: hint, err: err}
}

type unavailableReader struct {
	err  error
	name string
	hint string
}

func (u *unavailableReader) Name() string       { return u.name }
func (u *unavailableReader) WiringHint() string { return u.hint }

func (u *unavailableReader) Init(context.Context) error {
	return fmt.Errorf("%w: %w", ErrDeviceNotFound, u.err)
}

func (u *unavailableReader) Identify(context.Context) (Identity, error) {
	return Identity{}, fmt.Errorf("%w: %w", ErrDeviceNotFound, u.err)
}

func (*unavailableReader) Configure(context.Context) error { return nil }

func (*unavailableReader) DetectTag(context.Context) (UID, error) { return nil, ErrNoTag }

func (*unavailableReader) EndSession(context.Context) error { return nil }

func (*unavailableReader) Timing() Timing { return Timing{IdleDelay: 100 * time.Millisecond} }
