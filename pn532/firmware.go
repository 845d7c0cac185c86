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
	"fmt"
)

// FirmwareVersion contains PN532 firmware information
type FirmwareVersion struct {
	IC       byte
	Version  byte
	Revision byte
	Support  byte
}

// Word packs the version the way the chip reports it: IC, Ver, Rev, Support
// from the most to the least significant byte. A zero word means no chip.
func (f FirmwareVersion) Word() uint32 {
	return uint32(f.IC)<<24 | uint32(f.Version)<<16 | uint32(f.Revision)<<8 | uint32(f.Support)
}

func (f FirmwareVersion) String() string {
	return fmt.Sprintf("PN5%02X v%d.%d", f.IC, f.Version, f.Revision)
}

// GetFirmwareVersionContext queries the chip identity
func (d *Device) GetFirmwareVersionContext(ctx context.Context) (*FirmwareVersion, error) {
	resp, err := d.transport.SendCommandContext(ctx, cmdGetFirmwareVersion, nil)
	if err != nil {
		return nil, fmt.Errorf("GetFirmwareVersion failed: %w", err)
	}

	// Response format: [response_cmd, IC, Ver, Rev, Support]
	if len(resp) < 5 || resp[0] != cmdGetFirmwareVersion+1 {
		return nil, fmt.Errorf("%w: unexpected GetFirmwareVersion response %X", ErrInvalidResponse, resp)
	}

	return &FirmwareVersion{
		IC:       resp[1],
		Version:  resp[2],
		Revision: resp[3],
		Support:  resp[4],
	}, nil
}
