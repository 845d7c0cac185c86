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

// Package i2c provides I2C transport implementation for PN532
package i2c

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	uidreader "github.com/ZaparooProject/go-uidreader"
	"github.com/ZaparooProject/go-uidreader/internal/frame"
	"github.com/ZaparooProject/go-uidreader/internal/transport"
	"github.com/ZaparooProject/go-uidreader/pn532"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

const (
	// DefaultAddress is the 7-bit PN532 I2C address
	DefaultAddress = 0x24

	// pn532Ready is the status byte that precedes every I2C read once the
	// PN532 has data available
	pn532Ready = 0x01

	// Max clock frequency (400 kHz).
	maxClockFreq = 400 * physic.KiloHertz

	// responseBufLen covers status byte, envelope and the largest response
	// this module asks for
	responseBufLen = 64

	readyPollInterval = time.Millisecond
	maxFrameTries     = 3
)

// Transport implements the pn532.Transport interface for I2C communication
type Transport struct {
	dev     *i2c.Dev
	closer  io.Closer
	busName string
	timeout time.Duration
}

// New opens the named I2C bus (e.g. "/dev/i2c-1" or "I2C1") and talks to the
// PN532 at DefaultAddress
func New(busName string) (*Transport, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("failed to open I2C bus %s: %w", busName, err)
	}

	// Ignore error, continue with default speed
	_ = bus.SetSpeed(maxClockFreq)

	t := NewWithBus(bus, busName)
	t.closer = bus
	return t, nil
}

// NewWithBus creates a transport on an already opened bus
func NewWithBus(bus i2c.Bus, busName string) *Transport {
	return &Transport{
		dev:     &i2c.Dev{Addr: DefaultAddress, Bus: bus},
		busName: busName,
		timeout: time.Second,
	}
}

// SendCommand sends a command to the PN532 and waits for response
func (t *Transport) SendCommand(cmd byte, args []byte) ([]byte, error) {
	return t.SendCommandContext(context.Background(), cmd, args)
}

// SendCommandContext sends a command and waits for the response until the
// transport timeout or the context deadline, whichever comes first. A
// command still pending at that point is aborted with an ACK frame.
func (t *Transport) SendCommandContext(ctx context.Context, cmd byte, args []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled before sending command: %w", err)
	}
	if t.dev == nil {
		return nil, pn532.NewTransportError("SendCommand", t.busName, pn532.ErrTransportClosed, pn532.ErrorTypePermanent)
	}

	deadline := time.Now().Add(t.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}

	if err := t.sendFrame(cmd, args); err != nil {
		return nil, err
	}
	if err := t.waitAck(ctx, deadline); err != nil {
		return nil, err
	}

	resp, err := t.receiveFrame(ctx, deadline)
	if err != nil {
		return nil, err
	}
	uidreader.Debugf("PN532 I2C %02X -> %X", cmd, resp)
	return resp, nil
}

// SetTimeout sets the response timeout for the transport
func (t *Transport) SetTimeout(timeout time.Duration) error {
	if timeout <= 0 {
		return fmt.Errorf("invalid timeout %s", timeout)
	}
	t.timeout = timeout
	return nil
}

// Close releases the bus
func (t *Transport) Close() error {
	if t.closer == nil {
		return nil
	}
	err := t.closer.Close()
	t.closer = nil
	t.dev = nil
	if err != nil {
		return fmt.Errorf("failed to close I2C bus %s: %w", t.busName, err)
	}
	return nil
}

// IsConnected returns true if the transport is connected
func (t *Transport) IsConnected() bool {
	return t.dev != nil
}

// Type returns the transport type
func (*Transport) Type() pn532.TransportType {
	return pn532.TransportI2C
}

// sendFrame sends a command frame to the PN532
func (t *Transport) sendFrame(cmd byte, args []byte) error {
	frm, err := frame.Build(frame.HostToPn532, cmd, args)
	if err != nil {
		return pn532.NewDataTooLargeError("sendFrame", t.busName)
	}
	uidreader.Debugf("PN532 I2C write %X", frm)

	if err := t.dev.Tx(frm, nil); err != nil {
		return fmt.Errorf("failed to send I2C frame: %w", err)
	}
	return nil
}

// waitAck waits for the ACK frame that follows every accepted command. Each
// I2C read starts with the status byte.
func (t *Transport) waitAck(ctx context.Context, deadline time.Time) error {
	ackBuf := make([]byte, 1+len(frame.AckFrame))

	_, err := transport.PollUntil(ctx, deadline, readyPollInterval, func() (struct{}, bool, error) {
		if err := t.dev.Tx(nil, ackBuf); err != nil {
			return struct{}{}, false, fmt.Errorf("I2C ACK read failed: %w", err)
		}
		if ackBuf[0] != pn532Ready {
			return struct{}{}, true, nil
		}
		if !frame.IsAck(ackBuf[1:]) {
			return struct{}{}, false, pn532.NewNoACKError("waitAck", t.busName)
		}
		return struct{}{}, false, nil
	})

	switch {
	case err == nil:
		return nil
	case errors.Is(err, transport.ErrDeadline):
		return pn532.NewNoACKError("waitAck", t.busName)
	default:
		return err
	}
}

// waitReady polls the status byte until a response is available
func (t *Transport) waitReady(ctx context.Context, deadline time.Time) error {
	status := make([]byte, 1)

	_, err := transport.PollUntil(ctx, deadline, readyPollInterval, func() (struct{}, bool, error) {
		if err := t.dev.Tx(nil, status); err != nil {
			return struct{}{}, false, fmt.Errorf("I2C ready check failed: %w", err)
		}
		return struct{}{}, status[0] != pn532Ready, nil
	})

	if errors.Is(err, transport.ErrDeadline) {
		return pn532.NewTimeoutError("waitReady", t.busName)
	}
	return err
}

// receiveFrame reads the response frame, NACKing corrupted frames so the
// PN532 sends them again
func (t *Transport) receiveFrame(ctx context.Context, deadline time.Time) ([]byte, error) {
	buf := make([]byte, responseBufLen)

	for tries := 0; tries < maxFrameTries; tries++ {
		if err := t.waitReady(ctx, deadline); err != nil {
			t.abort()
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("context cancelled while waiting for command response: %w", ctxErr)
			}
			return nil, err
		}

		if err := t.dev.Tx(nil, buf); err != nil {
			return nil, fmt.Errorf("I2C frame data read failed: %w", err)
		}
		uidreader.Debugf("PN532 I2C read %X", buf)

		data, err := frame.Parse(buf[1:], frame.Pn532ToHost)
		if err == nil {
			return data, nil
		}
		if errors.Is(err, frame.ErrErrorFrame) {
			return nil, pn532.NewTransportError("receiveFrame", t.busName, err, pn532.ErrorTypePermanent)
		}

		uidreader.Debugf("PN532 I2C bad frame (%v), sending NACK", err)
		if err := t.sendNack(); err != nil {
			return nil, err
		}
	}

	return nil, pn532.NewTransportError("receiveFrame", t.busName, pn532.ErrFrameCorrupted, pn532.ErrorTypeTransient)
}

// sendNack asks the PN532 to send the last response again
func (t *Transport) sendNack() error {
	if err := t.dev.Tx(frame.NackFrame, nil); err != nil {
		return fmt.Errorf("failed to send NACK: %w", err)
	}
	return nil
}

// abort cancels the command in progress. The PN532 treats an ACK frame from
// the host as an abort request.
func (t *Transport) abort() {
	if err := t.dev.Tx(frame.AckFrame, nil); err != nil {
		uidreader.Debugf("PN532 I2C abort failed: %v", err)
	}
}

// Ensure Transport implements pn532.TransportContext
var _ pn532.TransportContext = (*Transport)(nil)
