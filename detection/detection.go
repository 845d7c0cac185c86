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

// Package detection finds the I2C buses and SPI ports a reader can be
// attached to.
package detection

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Auto is the bus name that asks for discovery
const Auto = "auto"

// Common errors
var (
	ErrNoBusesFound        = errors.New("no buses found")
	ErrUnsupportedPlatform = errors.New("bus discovery is not supported on this platform")
)

// Kind is the bus type
type Kind string

const (
	// KindI2C is a Linux i2c-dev adapter
	KindI2C Kind = "i2c"
	// KindSPI is a Linux spidev chip select
	KindSPI Kind = "spi"
)

// BusInfo describes a discovered bus
type BusInfo struct {
	Path string
	Kind Kind
	// Number is the adapter or controller number
	Number int
	// ChipSelect is the SPI chip select, 0 for I2C
	ChipSelect int
}

func (b BusInfo) String() string {
	if b.Kind == KindSPI {
		return fmt.Sprintf("%s (SPI%d.%d)", b.Path, b.Number, b.ChipSelect)
	}
	return fmt.Sprintf("%s (I2C%d)", b.Path, b.Number)
}

// Options configures discovery
type Options struct {
	// IgnorePaths lists device paths that must not be used
	IgnorePaths []string
}

// FindI2CBuses returns the usable I2C adapters ordered by number
func FindI2CBuses(opts *Options) ([]BusInfo, error) {
	return findI2CBuses(opts)
}

// FindSPIPorts returns the spidev ports ordered by controller and chip select
func FindSPIPorts(opts *Options) ([]BusInfo, error) {
	return findSPIPorts(opts)
}

// SelectI2CBus returns name unless it is Auto, in which case the lowest
// numbered usable adapter is chosen
func SelectI2CBus(name string, opts *Options) (string, error) {
	if name != Auto {
		return name, nil
	}
	return first(FindI2CBuses(opts))
}

// SelectSPIPort returns name unless it is Auto, in which case the first
// spidev port is chosen
func SelectSPIPort(name string, opts *Options) (string, error) {
	if name != Auto {
		return name, nil
	}
	return first(FindSPIPorts(opts))
}

func first(buses []BusInfo, err error) (string, error) {
	if err != nil {
		return "", err
	}
	if len(buses) == 0 {
		return "", ErrNoBusesFound
	}
	return buses[0].Path, nil
}

// scan globs pattern, parses every match and keeps those accepted by probe
func scan(pattern string, kind Kind, opts *Options, probe func(path string) bool) ([]BusInfo, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to scan for %s devices: %w", kind, err)
	}

	var ignore []string
	if opts != nil {
		ignore = opts.IgnorePaths
	}

	buses := make([]BusInfo, 0, len(matches))
	for _, path := range matches {
		info, ok := parsePath(path, kind)
		if !ok || IsPathIgnored(path, ignore) {
			continue
		}
		if probe != nil && !probe(path) {
			continue
		}
		buses = append(buses, info)
	}

	sort.Slice(buses, func(i, j int) bool {
		if buses[i].Number != buses[j].Number {
			return buses[i].Number < buses[j].Number
		}
		return buses[i].ChipSelect < buses[j].ChipSelect
	})
	return buses, nil
}

// parsePath extracts the numbers from i2c-N and spidevN.M names
func parsePath(path string, kind Kind) (BusInfo, bool) {
	info := BusInfo{Path: path, Kind: kind}
	base := filepath.Base(path)

	switch kind {
	case KindI2C:
		var rest string
		n, _ := fmt.Sscanf(base, "i2c-%d%s", &info.Number, &rest)
		return info, n == 1
	case KindSPI:
		var rest string
		n, _ := fmt.Sscanf(base, "spidev%d.%d%s", &info.Number, &info.ChipSelect, &rest)
		return info, n == 2
	default:
		return info, false
	}
}

// IsPathIgnored checks if a device path should be ignored.
// Paths are compared after cleaning, case-insensitively.
func IsPathIgnored(devicePath string, ignorePaths []string) bool {
	if devicePath == "" || len(ignorePaths) == 0 {
		return false
	}

	normalizedDevice := normalizedPath(devicePath)
	for _, ignorePath := range ignorePaths {
		if ignorePath == "" {
			continue
		}
		if normalizedDevice == normalizedPath(ignorePath) {
			return true
		}
	}
	return false
}

func normalizedPath(path string) string {
	return strings.ToLower(filepath.Clean(path))
}
