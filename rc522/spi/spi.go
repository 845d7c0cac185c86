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

// Package spi opens the SPI port and reset pin an RC522 is wired to
package spi

import (
	"errors"
	"fmt"

	"github.com/ZaparooProject/go-uidreader/rc522"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

const (
	// DefaultPort is the first chip select of the first SPI controller
	DefaultPort = "/dev/spidev0.0"
	// DefaultResetPin drives NRSTPD
	DefaultResetPin = "GPIO25"
	// MaxSpeed is well inside the 10 Mbit/s the MFRC522 accepts
	MaxSpeed = 4 * physic.MegaHertz
)

// ErrPinNotFound is returned when the reset pin name is unknown
var ErrPinNotFound = errors.New("GPIO pin not found")

// Port is an open SPI connection plus the optional reset pin
type Port struct {
	port  spi.PortCloser
	conn  spi.Conn
	reset rc522.ResetPin
	name  string
}

// Open connects to the SPI port at MaxSpeed in mode 0. An empty resetPin
// leaves reset to the SoftReset command.
func Open(portName, resetPin string) (*Port, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	var reset rc522.ResetPin
	if resetPin != "" {
		pin := gpioreg.ByName(resetPin)
		if pin == nil {
			return nil, fmt.Errorf("%w: %s", ErrPinNotFound, resetPin)
		}
		reset = pin
	}

	p, err := spireg.Open(portName)
	if err != nil {
		return nil, fmt.Errorf("failed to open SPI port %s: %w", portName, err)
	}
	port, err := NewPort(p, reset)
	if err != nil {
		_ = p.Close()
		return nil, err
	}
	return port, nil
}

// NewPort connects to an already opened SPI port. reset may be nil.
func NewPort(p spi.PortCloser, reset rc522.ResetPin) (*Port, error) {
	conn, err := p.Connect(MaxSpeed, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SPI port %s: %w", p, err)
	}
	return &Port{port: p, conn: conn, reset: reset, name: p.String()}, nil
}

// Tx implements rc522.Conn
func (p *Port) Tx(w, r []byte) error {
	if err := p.conn.Tx(w, r); err != nil {
		return fmt.Errorf("SPI transfer on %s failed: %w", p.name, err)
	}
	return nil
}

// Device creates the RC522 device on this port, using the reset pin when
// one was given
func (p *Port) Device(opts ...rc522.Option) *rc522.Device {
	if p.reset != nil {
		opts = append([]rc522.Option{rc522.WithResetPin(p.reset)}, opts...)
	}
	return rc522.New(p, opts...)
}

func (p *Port) String() string {
	return p.name
}

// Close releases the SPI port
func (p *Port) Close() error {
	if p.port == nil {
		return nil
	}
	err := p.port.Close()
	p.port = nil
	if err != nil {
		return fmt.Errorf("failed to close SPI port %s: %w", p.name, err)
	}
	return nil
}

var _ rc522.Conn = (*Port)(nil)
