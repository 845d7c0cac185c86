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

// MFRC522 registers (datasheet section 9)
const (
	regCommand     = 0x01
	regComIrq      = 0x04
	regError       = 0x06
	regStatus2     = 0x08
	regFIFOData    = 0x09
	regFIFOLevel   = 0x0A
	regControl     = 0x0C
	regBitFraming  = 0x0D
	regColl        = 0x0E
	regMode        = 0x11
	regTxMode      = 0x12
	regRxMode      = 0x13
	regTxControl   = 0x14
	regTxASK       = 0x15
	regModWidth    = 0x24
	regTMode       = 0x2A
	regTPrescaler  = 0x2B
	regTReloadHigh = 0x2C
	regTReloadLow  = 0x2D
	regVersion     = 0x37
)

// MFRC522 commands
const (
	pcdIdle       = 0x00
	pcdTransceive = 0x0C
	pcdSoftReset  = 0x0F
)

// ISO14443A commands sent to the card
const (
	piccReqA    = 0x26
	piccSelCL1  = 0x93
	piccSelCL2  = 0x95
	piccSelCL3  = 0x97
	piccHaltA   = 0x50
	cascadeTag  = 0x88
	nvbAnticoll = 0x20
	nvbSelect   = 0x70
	sakCascade  = 0x04
	atqaLength  = 2
	reqaBits    = 0x07
)

// Register bits
const (
	irqAll          = 0x7F
	irqRx           = 0x20
	irqIdle         = 0x10
	irqTimer        = 0x01
	fifoFlush       = 0x80
	startSend       = 0x80
	valuesAfterColl = 0x80
	antennaOn       = 0x03
	mfCrypto1On     = 0x08
	errProtocolMask = 0x13 // BufferOvfl, ParityErr, ProtocolErr
	errCollision    = 0x08
	rxLastBitsMask  = 0x07
)

// Known VersionReg values
const (
	versionClone = 0x88
	versionV1    = 0x91
	versionV2    = 0x92
)

// VersionName describes a VersionReg value
func VersionName(v byte) string {
	switch v {
	case versionV1:
		return "v1.0"
	case versionV2:
		return "v2.0"
	case versionClone:
		return "FM17522 clone"
	default:
		return "unknown"
	}
}

// readAddress and writeAddress build the SPI address byte: bit 7 selects
// read, bits 6..1 hold the register, bit 0 is zero
func readAddress(reg byte) byte {
	return ((reg << 1) & 0x7E) | 0x80
}

func writeAddress(reg byte) byte {
	return (reg << 1) & 0x7E
}
