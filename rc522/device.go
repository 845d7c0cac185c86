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

// Package rc522 drives an NXP MFRC522 reader far enough to identify the chip
// and report the UID of ISO14443A cards.
package rc522

import (
	"context"
	"errors"
	"fmt"
	"time"

	uidreader "github.com/ZaparooProject/go-uidreader"
	"github.com/ZaparooProject/go-uidreader/internal/transport"
	"periph.io/x/conn/v3/gpio"
)

// Card communication errors
var (
	ErrTimeout   = errors.New("no answer from card")
	ErrCollision = errors.New("collision detected")
	ErrProtocol  = errors.New("protocol error")
	ErrCRC       = errors.New("CRC_A mismatch")
	ErrHaltA     = errors.New("card answered HLTA")
)

const (
	// resetSettle covers the oscillator start-up after a reset
	resetSettle = 50 * time.Millisecond
	// resetPulse is how long the reset pin is held low
	resetPulse = 2 * time.Millisecond
	// transceiveTimeout is a little above the 25ms chip timer
	transceiveTimeout = 36 * time.Millisecond
)

// Conn is a full duplex SPI connection. periph.io spi.Conn satisfies it.
type Conn interface {
	Tx(w, r []byte) error
}

// ResetPin drives the NRSTPD line. periph.io gpio.PinOut satisfies it.
type ResetPin interface {
	Out(l gpio.Level) error
}

// Device represents an MFRC522 on an SPI bus
//
// Thread Safety: Device is NOT thread-safe.
type Device struct {
	conn  Conn
	reset ResetPin
	clock uidreader.Clock
}

// Option configures a Device
type Option func(*Device)

// WithResetPin enables hard resets through pin. Without it Init issues a
// SoftReset command.
func WithResetPin(pin ResetPin) Option {
	return func(d *Device) {
		d.reset = pin
	}
}

// WithClock sets the clock used for reset delays
func WithClock(clock uidreader.Clock) Option {
	return func(d *Device) {
		d.clock = clock
	}
}

// New creates a device on conn
func New(conn Conn, opts ...Option) *Device {
	d := &Device{conn: conn, clock: uidreader.SystemClock()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Device) readReg(reg byte) (byte, error) {
	w := []byte{readAddress(reg), 0x00}
	r := make([]byte, len(w))
	if err := d.conn.Tx(w, r); err != nil {
		return 0, fmt.Errorf("failed to read register %02X: %w", reg, err)
	}
	return r[1], nil
}

// readFIFO reads n bytes from the FIFO in one transfer: the read address is
// repeated for every byte and the last clock out carries a zero
func (d *Device) readFIFO(n int) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	w := make([]byte, n+1)
	for i := 0; i < n; i++ {
		w[i] = readAddress(regFIFOData)
	}
	r := make([]byte, len(w))
	if err := d.conn.Tx(w, r); err != nil {
		return nil, fmt.Errorf("failed to read FIFO: %w", err)
	}
	return r[1:], nil
}

func (d *Device) writeReg(reg byte, values ...byte) error {
	w := make([]byte, 0, 1+len(values))
	w = append(w, writeAddress(reg))
	w = append(w, values...)
	if err := d.conn.Tx(w, nil); err != nil {
		return fmt.Errorf("failed to write register %02X: %w", reg, err)
	}
	return nil
}

func (d *Device) setBits(reg, mask byte) error {
	v, err := d.readReg(reg)
	if err != nil {
		return err
	}
	return d.writeReg(reg, v|mask)
}

func (d *Device) clearBits(reg, mask byte) error {
	v, err := d.readReg(reg)
	if err != nil {
		return err
	}
	return d.writeReg(reg, v&^mask)
}

// writeRegs writes register/value pairs in order
func (d *Device) writeRegs(pairs ...[2]byte) error {
	for _, p := range pairs {
		if err := d.writeReg(p[0], p[1]); err != nil {
			return err
		}
	}
	return nil
}

// Reset brings the chip back to its power-on state
func (d *Device) Reset(ctx context.Context) error {
	if d.reset != nil {
		if err := d.reset.Out(gpio.Low); err != nil {
			return fmt.Errorf("failed to pull reset low: %w", err)
		}
		if err := d.clock.Sleep(ctx, resetPulse); err != nil {
			return err
		}
		if err := d.reset.Out(gpio.High); err != nil {
			return fmt.Errorf("failed to release reset: %w", err)
		}
	} else if err := d.writeReg(regCommand, pcdSoftReset); err != nil {
		return err
	}
	return d.clock.Sleep(ctx, resetSettle)
}

// Init resets the chip, arms the 25ms receive timer, forces 100% ASK and
// switches the antenna on
func (d *Device) Init(ctx context.Context) error {
	if err := d.Reset(ctx); err != nil {
		return err
	}

	err := d.writeRegs(
		[2]byte{regTxMode, 0x00},
		[2]byte{regRxMode, 0x00},
		[2]byte{regModWidth, 0x26},
		// TAuto=1, f_timer = 13.56MHz / (2*0x0A9+1) ~ 40kHz, reload 1000 ~ 25ms
		[2]byte{regTMode, 0x80},
		[2]byte{regTPrescaler, 0xA9},
		[2]byte{regTReloadHigh, 0x03},
		[2]byte{regTReloadLow, 0xE8},
		[2]byte{regTxASK, 0x40},
		// CRC preset 0x6363
		[2]byte{regMode, 0x3D},
	)
	if err != nil {
		return err
	}
	return d.AntennaOn()
}

// AntennaOn enables the TX1 and TX2 drivers
func (d *Device) AntennaOn() error {
	v, err := d.readReg(regTxControl)
	if err != nil {
		return err
	}
	if v&antennaOn == antennaOn {
		return nil
	}
	return d.writeReg(regTxControl, v|antennaOn)
}

// Version reads VersionReg. 0x00 and 0xFF mean no chip answered.
func (d *Device) Version() (byte, error) {
	return d.readReg(regVersion)
}

// transceive sends data to the card and returns its answer together with the
// number of valid bits in the last received byte (0 means all 8)
func (d *Device) transceive(ctx context.Context, data []byte, txLastBits byte) ([]byte, byte, error) {
	err := d.writeRegs(
		[2]byte{regCommand, pcdIdle},
		[2]byte{regComIrq, irqAll},
		[2]byte{regFIFOLevel, fifoFlush},
	)
	if err != nil {
		return nil, 0, err
	}
	if err := d.writeReg(regFIFOData, data...); err != nil {
		return nil, 0, err
	}
	if err := d.writeReg(regBitFraming, txLastBits); err != nil {
		return nil, 0, err
	}
	if err := d.writeReg(regCommand, pcdTransceive); err != nil {
		return nil, 0, err
	}
	if err := d.setBits(regBitFraming, startSend); err != nil {
		return nil, 0, err
	}

	deadline := time.Now().Add(transceiveTimeout)
	_, err = transport.PollUntil(ctx, deadline, 0, func() (struct{}, bool, error) {
		irq, err := d.readReg(regComIrq)
		if err != nil {
			return struct{}{}, false, err
		}
		if irq&(irqRx|irqIdle) != 0 {
			return struct{}{}, false, nil
		}
		if irq&irqTimer != 0 {
			return struct{}{}, false, ErrTimeout
		}
		return struct{}{}, true, nil
	})
	if errors.Is(err, transport.ErrDeadline) {
		return nil, 0, ErrTimeout
	}
	if err != nil {
		return nil, 0, err
	}

	errReg, err := d.readReg(regError)
	if err != nil {
		return nil, 0, err
	}
	if errReg&errProtocolMask != 0 {
		return nil, 0, fmt.Errorf("%w: ErrorReg=%02X", ErrProtocol, errReg)
	}

	level, err := d.readReg(regFIFOLevel)
	if err != nil {
		return nil, 0, err
	}
	resp, err := d.readFIFO(int(level))
	if err != nil {
		return nil, 0, err
	}
	control, err := d.readReg(regControl)
	if err != nil {
		return nil, 0, err
	}

	if errReg&errCollision != 0 {
		return nil, 0, ErrCollision
	}
	return resp, control & rxLastBitsMask, nil
}

// IsNewCardPresent sends REQA. Only idle cards answer, so a card that was
// halted stays silent until it leaves the field and comes back.
func (d *Device) IsNewCardPresent(ctx context.Context) (bool, error) {
	err := d.writeRegs(
		[2]byte{regTxMode, 0x00},
		[2]byte{regRxMode, 0x00},
		[2]byte{regModWidth, 0x26},
	)
	if err != nil {
		return false, err
	}
	if err := d.clearBits(regColl, valuesAfterColl); err != nil {
		return false, err
	}

	atqa, _, err := d.transceive(ctx, []byte{piccReqA}, reqaBits)
	switch {
	case errors.Is(err, ErrTimeout), errors.Is(err, ErrCollision):
		return false, nil
	case err != nil:
		return false, err
	}
	return len(atqa) == atqaLength, nil
}

// ReadCardSerial runs anticollision and select over up to three cascade
// levels and returns the complete UID and the final SAK. Collisions are
// not resolved: with more than one card in the field it fails.
func (d *Device) ReadCardSerial(ctx context.Context) ([]byte, byte, error) {
	uid := make([]byte, 0, uidreader.MaxUIDLen)

	for _, sel := range []byte{piccSelCL1, piccSelCL2, piccSelCL3} {
		if err := d.clearBits(regColl, valuesAfterColl); err != nil {
			return nil, 0, err
		}

		resp, _, err := d.transceive(ctx, []byte{sel, nvbAnticoll}, 0)
		if err != nil {
			return nil, 0, fmt.Errorf("anticollision %02X failed: %w", sel, err)
		}
		if len(resp) != 5 {
			return nil, 0, fmt.Errorf("%w: anticollision answer of %d bytes", ErrProtocol, len(resp))
		}
		if resp[0]^resp[1]^resp[2]^resp[3] != resp[4] {
			return nil, 0, fmt.Errorf("%w: BCC mismatch in %X", ErrProtocol, resp)
		}

		sak, err := d.selectCard(ctx, sel, resp)
		if err != nil {
			return nil, 0, err
		}

		if sak&sakCascade == 0 {
			uid = append(uid, resp[:4]...)
			return uid, sak, nil
		}
		if resp[0] != cascadeTag {
			return nil, 0, fmt.Errorf("%w: cascade SAK without cascade tag", ErrProtocol)
		}
		uid = append(uid, resp[1:4]...)
	}

	return nil, 0, fmt.Errorf("%w: UID longer than three cascade levels", ErrProtocol)
}

// selectCard sends SELECT with the 4 UID bytes and BCC of one cascade level
// and returns the SAK
func (d *Device) selectCard(ctx context.Context, sel byte, uidBCC []byte) (byte, error) {
	cmd := make([]byte, 0, 9)
	cmd = append(cmd, sel, nvbSelect)
	cmd = append(cmd, uidBCC...)
	cmd = append(cmd, CRCA(cmd)...)

	resp, _, err := d.transceive(ctx, cmd, 0)
	if err != nil {
		return 0, fmt.Errorf("select %02X failed: %w", sel, err)
	}
	if len(resp) != 3 {
		return 0, fmt.Errorf("%w: SAK answer of %d bytes", ErrProtocol, len(resp))
	}
	crc := CRCA(resp[:1])
	if resp[1] != crc[0] || resp[2] != crc[1] {
		return 0, fmt.Errorf("%w: SAK %X", ErrCRC, resp)
	}
	return resp[0], nil
}

// HaltA puts the selected card into the HALT state. A halted card does not
// answer, so a timeout is success.
func (d *Device) HaltA(ctx context.Context) error {
	cmd := []byte{piccHaltA, 0x00}
	cmd = append(cmd, CRCA(cmd)...)

	_, _, err := d.transceive(ctx, cmd, 0)
	switch {
	case errors.Is(err, ErrTimeout):
		return nil
	case err != nil:
		return fmt.Errorf("HLTA failed: %w", err)
	default:
		return ErrHaltA
	}
}

// StopCrypto1 leaves an authenticated session
func (d *Device) StopCrypto1() error {
	return d.clearBits(regStatus2, mfCrypto1On)
}

// CRCA computes the ISO14443A CRC (polynomial x^16+x^12+x^5+1, preset 0x6363)
// and returns it least significant byte first
func CRCA(data []byte) []byte {
	crc := uint16(0x6363)
	for _, b := range data {
		bb := b ^ byte(crc)
		bb ^= bb << 4
		crc = (crc >> 8) ^ uint16(bb)<<8 ^ uint16(bb)<<3 ^ uint16(bb)>>4
	}
	return []byte{byte(crc), byte(crc >> 8)}
}
