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

//go:build linux

package detection

import (
	"golang.org/x/sys/unix"
)

const (
	// i2cFuncs is the ioctl command to get adapter functionality
	i2cFuncs = 0x0705

	// i2cFuncI2C indicates plain I2C transfers
	i2cFuncI2C = 0x00000001
)

func findI2CBuses(opts *Options) ([]BusInfo, error) {
	buses, err := scan("/dev/i2c-*", KindI2C, opts, supportsPlainI2C)
	if err != nil {
		return nil, err
	}
	if len(buses) == 0 {
		return nil, ErrNoBusesFound
	}
	return buses, nil
}

func findSPIPorts(opts *Options) ([]BusInfo, error) {
	ports, err := scan("/dev/spidev*", KindSPI, opts, accessible)
	if err != nil {
		return nil, err
	}
	if len(ports) == 0 {
		return nil, ErrNoBusesFound
	}
	return ports, nil
}

// supportsPlainI2C opens the adapter and asks for its functionality. SMBus
// only adapters cannot carry PN532 frames.
func supportsPlainI2C(path string) bool {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return false
	}
	defer func() { _ = unix.Close(fd) }()

	funcs, err := unix.IoctlGetInt(fd, i2cFuncs)
	if err != nil {
		return false
	}
	return funcs&i2cFuncI2C != 0
}

func accessible(path string) bool {
	return unix.Access(path, unix.R_OK|unix.W_OK) == nil
}
