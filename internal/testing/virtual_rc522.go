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

package testing

import (
	"bytes"
	"sync"

	"periph.io/x/conn/v3/gpio"
)

// MFRC522 registers and commands the simulator reacts to
const (
	rcCommand    = 0x01
	rcComIrq     = 0x04
	rcError      = 0x06
	rcFIFOData   = 0x09
	rcFIFOLevel  = 0x0A
	rcControl    = 0x0C
	rcBitFraming = 0x0D
	rcTxControl  = 0x14
	rcVersion    = 0x37

	rcTransceive = 0x0C
	rcSoftReset  = 0x0F
)

// VirtualCard is an ISO14443A card in the field of a VirtualRC522
type VirtualCard struct {
	UID      []byte
	ATQA     [2]byte
	SAK      byte
	halted   bool
	selected bool
	ready    bool
}

// NewVirtualCard creates a card whose ATQA and SAK match its UID size
func NewVirtualCard(uid []byte) *VirtualCard {
	card := &VirtualCard{UID: append([]byte(nil), uid...)}
	switch len(uid) {
	case 4:
		card.ATQA = [2]byte{0x04, 0x00}
		card.SAK = 0x08
	case 7:
		card.ATQA = [2]byte{0x44, 0x00}
	default:
		card.ATQA = [2]byte{0x84, 0x00}
	}
	return card
}

// levels splits the UID into the 4 byte chunks of each cascade level
func (c *VirtualCard) levels() [][]byte {
	switch len(c.UID) {
	case 7:
		return [][]byte{
			{0x88, c.UID[0], c.UID[1], c.UID[2]},
			c.UID[3:7],
		}
	case 10:
		return [][]byte{
			{0x88, c.UID[0], c.UID[1], c.UID[2]},
			{0x88, c.UID[3], c.UID[4], c.UID[5]},
			c.UID[6:10],
		}
	default:
		return [][]byte{c.UID}
	}
}

// VirtualRC522 simulates the MFRC522 register interface over SPI closely
// enough for the reader driver: FIFO, Transceive, interrupt and error flags
// and a single card with REQA, anticollision, select and HLTA.
type VirtualRC522 struct {
	txErr     error
	card      *VirtualCard
	fifo      []byte
	frames    [][]byte
	regs      [64]byte
	resets    int
	mu        sync.Mutex
	version   byte
	collide   bool
	resetLow  bool
	corruptCR bool
}

// NewVirtualRC522 creates a simulator reporting version in VersionReg
func NewVirtualRC522(version byte) *VirtualRC522 {
	v := &VirtualRC522{version: version}
	v.powerOn()
	return v
}

func (v *VirtualRC522) powerOn() {
	v.regs = [64]byte{}
	v.regs[rcCommand] = 0x20
	v.regs[rcTxControl] = 0x80
	v.fifo = nil
	v.resets++
}

// Insert places a card with uid in the field
func (v *VirtualRC522) Insert(uid []byte) *VirtualCard {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.card = NewVirtualCard(uid)
	return v.card
}

// Remove takes the card out of the field
func (v *VirtualRC522) Remove() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.card = nil
}

// SetCollision makes anticollision report a bit collision
func (v *VirtualRC522) SetCollision(collide bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.collide = collide
}

// SetCorruptSAK makes the card answer SELECT with a bad CRC_A
func (v *VirtualRC522) SetCorruptSAK(corrupt bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.corruptCR = corrupt
}

// SetTxError makes every SPI transfer fail with err
func (v *VirtualRC522) SetTxError(err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.txErr = err
}

// Resets returns the number of resets, power-on included
func (v *VirtualRC522) Resets() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.resets
}

// Reg returns the raw register value
func (v *VirtualRC522) Reg(reg byte) byte {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.regs[reg&0x3F]
}

// Frames returns every frame transmitted to the card
func (v *VirtualRC522) Frames() [][]byte {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([][]byte, len(v.frames))
	for i, f := range v.frames {
		out[i] = append([]byte(nil), f...)
	}
	return out
}

// Halted reports whether the card in the field is halted
func (v *VirtualRC522) Halted() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.card != nil && v.card.halted
}

// Out implements the reset pin: a low to high edge resets the chip
func (v *VirtualRC522) Out(l gpio.Level) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if l == gpio.Low {
		v.resetLow = true
		return nil
	}
	if v.resetLow {
		v.resetLow = false
		v.powerOn()
	}
	return nil
}

// Tx implements a full duplex SPI transfer
func (v *VirtualRC522) Tx(w, r []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.txErr != nil {
		return v.txErr
	}
	if len(w) == 0 {
		return nil
	}

	if w[0]&0x80 != 0 {
		for i := 1; i < len(w) && i < len(r); i++ {
			r[i] = v.read((w[i-1] >> 1) & 0x3F)
		}
		if len(r) > 0 {
			r[0] = 0
		}
		return nil
	}

	reg := (w[0] >> 1) & 0x3F
	for _, b := range w[1:] {
		v.write(reg, b)
	}
	return nil
}

func (v *VirtualRC522) read(reg byte) byte {
	switch reg {
	case rcFIFOData:
		if len(v.fifo) == 0 {
			return 0
		}
		b := v.fifo[0]
		v.fifo = v.fifo[1:]
		return b
	case rcFIFOLevel:
		return byte(len(v.fifo))
	case rcVersion:
		return v.version
	default:
		return v.regs[reg]
	}
}

func (v *VirtualRC522) write(reg, b byte) {
	switch reg {
	case rcCommand:
		v.regs[rcCommand] = b
		if b&0x0F == rcSoftReset {
			v.powerOn()
		}
	case rcComIrq:
		if b&0x80 != 0 {
			v.regs[rcComIrq] |= b & 0x7F
		} else {
			v.regs[rcComIrq] &^= b
		}
	case rcFIFOLevel:
		if b&0x80 != 0 {
			v.fifo = nil
		}
	case rcFIFOData:
		v.fifo = append(v.fifo, b)
	case rcBitFraming:
		v.regs[rcBitFraming] = b &^ 0x80
		if b&0x80 != 0 && v.regs[rcCommand]&0x0F == rcTransceive {
			v.transceive(b & 0x07)
		}
	default:
		v.regs[reg] = b
	}
}

func (v *VirtualRC522) transceive(txLastBits byte) {
	frm := v.fifo
	v.fifo = nil
	v.frames = append(v.frames, append([]byte(nil), frm...))
	v.regs[rcError] = 0
	v.regs[rcControl] = 0

	resp := v.answer(frm, txLastBits)
	if resp == nil {
		v.regs[rcComIrq] |= 0x01
		return
	}
	v.fifo = resp
	v.regs[rcComIrq] |= 0x30
}

// answer returns the card reply to frm, nil when the card stays silent
func (v *VirtualRC522) answer(frm []byte, txLastBits byte) []byte {
	card := v.card
	if card == nil || len(frm) == 0 {
		return nil
	}

	switch {
	case txLastBits == 7 && len(frm) == 1 && (frm[0] == 0x26 || frm[0] == 0x52):
		if card.halted && frm[0] == 0x26 {
			return nil
		}
		card.halted = false
		card.ready = true
		card.selected = false
		return append([]byte(nil), card.ATQA[:]...)

	case len(frm) == 4 && frm[0] == 0x50 && frm[1] == 0x00:
		if !bytes.Equal(frm[2:], crcA(frm[:2])) {
			return nil
		}
		card.halted = true
		card.ready = false
		card.selected = false
		return nil
	}

	level := cascadeLevel(frm[0])
	if level < 0 || !card.ready || len(frm) < 2 {
		return nil
	}
	levels := card.levels()
	if level >= len(levels) {
		return nil
	}
	data := levels[level]

	switch {
	case frm[1] == 0x20 && len(frm) == 2:
		if v.collide {
			v.regs[rcError] |= 0x08
		}
		resp := append([]byte(nil), data...)
		return append(resp, data[0]^data[1]^data[2]^data[3])

	case frm[1] == 0x70 && len(frm) == 9:
		if !bytes.Equal(frm[7:9], crcA(frm[:7])) || !bytes.Equal(frm[2:6], data) {
			return nil
		}
		sak := card.SAK
		if level < len(levels)-1 {
			sak = 0x04
		} else {
			card.selected = true
		}
		resp := append([]byte{sak}, crcA([]byte{sak})...)
		if v.corruptCR {
			resp[2] ^= 0xFF
		}
		return resp
	}
	return nil
}

func cascadeLevel(sel byte) int {
	switch sel {
	case 0x93:
		return 0
	case 0x95:
		return 1
	case 0x97:
		return 2
	default:
		return -1
	}
}

// crcA is the ISO14443A CRC, least significant byte first
func crcA(data []byte) []byte {
	crc := uint16(0x6363)
	for _, b := range data {
		b ^= byte(crc)
		b ^= b << 4
		crc = (crc >> 8) ^ uint16(b)<<8 ^ uint16(b)<<3 ^ uint16(b)>>4
	}
	return []byte{byte(crc), byte(crc >> 8)}
}
