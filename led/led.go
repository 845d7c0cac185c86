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

// Package led drives the status LED on a GPIO pin
package led

import (
	"errors"
	"fmt"
	"sync"

	uidreader "github.com/ZaparooProject/go-uidreader"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// DefaultPin is the header pin the LED is wired to
const DefaultPin = "GPIO17"

// ErrPinNotFound is returned when the pin name is unknown
var ErrPinNotFound = errors.New("GPIO pin not found")

// Pin is the part of gpio.PinOut the LED needs
type Pin interface {
	Out(l gpio.Level) error
}

// LED is a uidreader.Indicator on a GPIO output
type LED struct {
	pin       Pin
	name      string
	mu        sync.Mutex
	on        bool
	activeLow bool
}

// Option configures an LED
type Option func(*LED)

// ActiveLow inverts the output for LEDs wired between the pin and VCC
func ActiveLow() Option {
	return func(l *LED) {
		l.activeLow = true
	}
}

// Open looks up the named pin (e.g. "GPIO17") and switches the LED off
func Open(name string, opts ...Option) (*LED, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("%w: %s", ErrPinNotFound, name)
	}
	return New(pin, opts...)
}

// New drives pin and switches the LED off
func New(pin Pin, opts ...Option) (*LED, error) {
	if pin == nil {
		return nil, errors.New("pin cannot be nil")
	}
	l := &LED{pin: pin, name: fmt.Sprint(pin)}
	for _, opt := range opts {
		opt(l)
	}
	if err := l.Set(false); err != nil {
		return nil, err
	}
	return l, nil
}

// Set switches the LED on or off
func (l *LED) Set(on bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	level := gpio.Level(on != l.activeLow)
	if err := l.pin.Out(level); err != nil {
		return fmt.Errorf("failed to drive %s %s: %w", l.name, level, err)
	}
	l.on = on
	return nil
}

// On reports the last level set
func (l *LED) On() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.on
}

func (l *LED) String() string {
	return l.name
}

// Nop is an indicator for setups without an LED
type Nop struct{}

// Set does nothing
func (Nop) Set(bool) error { return nil }

var (
	_ uidreader.Indicator = (*LED)(nil)
	_ uidreader.Indicator = Nop{}
)
