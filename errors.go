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

import "errors"

var (
	// ErrNoTag is returned by Reader.DetectTag when no tag answered. It is an
	// expected outcome of polling, not a failure.
	ErrNoTag = errors.New("no tag detected")

	// ErrDeviceNotFound is returned when the reader identity query yields its
	// sentinel value, which means the chip is absent or miswired.
	ErrDeviceNotFound = errors.New("reader not found")

	// ErrFault is returned by the poller once it has entered the fault state.
	ErrFault = errors.New("reader fault")

	ErrInvalidUID     = errors.New("invalid UID")
	ErrNotEvent       = errors.New("line is not a tag event")
	ErrMalformedEvent = errors.New("malformed tag event")
)
