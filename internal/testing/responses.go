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

// Package testing holds chip level fixtures shared by driver tests
package testing

import "github.com/ZaparooProject/go-uidreader/internal/frame"

// PN532 command codes
const (
	CmdGetFirmwareVersion  = 0x02
	CmdSAMConfiguration    = 0x14
	CmdInListPassiveTarget = 0x4A
)

// I2CReadLen is the read size the PN532 I2C transport uses for responses
const I2CReadLen = 64

// FirmwareVersionPayload is a GetFirmwareVersion response for a PN532 v1.6
// supporting ISO14443A and B
func FirmwareVersionPayload() []byte {
	return []byte{0x03, 0x32, 0x01, 0x06, 0x07}
}

// SAMConfigurationPayload is the SAMConfiguration response
func SAMConfigurationPayload() []byte {
	return []byte{0x15}
}

// TargetPayload is an InListPassiveTarget response with a single type A
// target. SENS_RES and SEL_RES follow the UID length: 4 bytes looks like a
// MIFARE Classic 1K, 7 bytes like an NTAG.
func TargetPayload(uid []byte) []byte {
	sensRes := []byte{0x00, 0x04}
	selRes := byte(0x08)
	if len(uid) > 4 {
		sensRes = []byte{0x00, 0x44}
		selRes = 0x00
	}

	resp := []byte{0x4B, 0x01, 0x01}
	resp = append(resp, sensRes...)
	resp = append(resp, selRes, byte(len(uid)))
	return append(resp, uid...)
}

// NoTargetPayload is an InListPassiveTarget response without targets
func NoTargetPayload() []byte {
	return []byte{0x4B, 0x00}
}

// ResponseFrame wraps a response payload in a PN532 to host frame
func ResponseFrame(payload []byte) []byte {
	frm, err := frame.Build(frame.Pn532ToHost, payload[0], payload[1:])
	if err != nil {
		panic(err)
	}
	return frm
}

// I2CRead is what an I2C read of I2CReadLen bytes returns when the PN532 has
// the response ready: status byte, frame, zero padding
func I2CRead(payload []byte) []byte {
	buf := make([]byte, I2CReadLen)
	buf[0] = 0x01
	copy(buf[1:], ResponseFrame(payload))
	return buf
}

// I2CAck is the 7 byte ACK read including the status byte
func I2CAck() []byte {
	return append([]byte{0x01}, frame.AckFrame...)
}
