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

/*
Package uidreader reports the UID of NFC tags presented to a PN532 or RC522
reader as single JSON lines on a serial link.

The package holds the pieces shared by both reader variants: the UID type and
its hex formatting, the Reader capability interface, the status Indicator,
the Clock used for blocking delays and the tag event line codec. The poll loop
itself lives in the polling package; the chip drivers live in the pn532 and
rc522 packages.

Basic Usage:

	import (
	    "github.com/ZaparooProject/go-uidreader/led"
	    "github.com/ZaparooProject/go-uidreader/pn532"
	    "github.com/ZaparooProject/go-uidreader/pn532/i2c"
	    "github.com/ZaparooProject/go-uidreader/polling"
	)

	transport, err := i2c.New("/dev/i2c-1")
	if err != nil {
	    log.Fatal(err)
	}

	device, err := pn532.New(transport)
	if err != nil {
	    log.Fatal(err)
	}

	status, err := led.Open("GPIO17")
	if err != nil {
	    log.Fatal(err)
	}

	poller, err := polling.New(pn532.NewReader(device), status, os.Stdout)
	if err != nil {
	    log.Fatal(err)
	}

	// Blocks until ctx is cancelled.
	err = poller.Run(ctx)

Line Protocol:

Every detected tag produces exactly one line:

	{"nfc_uid":"04A32B1C"}

The UID is uppercase hex with two digits per byte. Startup banners are free
text and are not meant to be parsed. ParseEvent decodes event lines on the
host side.

Error Handling:

Only a reader that cannot be found at startup is an error; the poller then
blinks the indicator until the process is stopped:

	if errors.Is(err, uidreader.ErrFault) {
	    // reader missing or miswired
	}

A missing tag is reported by readers as ErrNoTag and never surfaces from the
poll loop.
*/
package uidreader
