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

// Package hostlink carries the reader's line protocol over a serial link:
// the reader side opens the UART it writes to, the host side listens for tag
// events on it.
package hostlink

import (
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"
)

const (
	// DefaultBaudRate matches the reader console speed
	DefaultBaudRate = 115200
	// DefaultPort is where a USB attached reader usually shows up
	DefaultPort = "/dev/ttyUSB0"
)

// Port is the part of serial.Port the listener uses
type Port interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
}

// OpenPort opens name at baud, 8N1
func OpenPort(name string, baud int) (serial.Port, error) {
	if baud <= 0 {
		return nil, fmt.Errorf("invalid baud rate %d", baud)
	}
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", name, err)
	}
	return port, nil
}

// OpenSink opens the UART the reader writes its lines to
func OpenSink(name string, baud int) (io.WriteCloser, error) {
	port, err := OpenPort(name, baud)
	if err != nil {
		return nil, err
	}
	return port, nil
}

// ListPorts returns the serial ports present on the system
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	return ports, nil
}

var _ Port = serial.Port(nil)
