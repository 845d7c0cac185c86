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

package polling

import (
	"errors"
	"log/slog"
	"time"

	uidreader "github.com/ZaparooProject/go-uidreader"
)

// Default timings of the startup and poll sequence.
const (
	DefaultStartupDelay    = 1000 * time.Millisecond
	DefaultReadyHold       = 2000 * time.Millisecond
	DefaultFaultHalfPeriod = 200 * time.Millisecond
	DefaultDebounceHold    = 1000 * time.Millisecond
)

// Config holds the fixed delays of the poller.
type Config struct {
	// StartupDelay lets the serial link settle before the first banner.
	StartupDelay time.Duration
	// ReadyHold is how long the indicator stays on after a successful start.
	ReadyHold time.Duration
	// FaultHalfPeriod is the on and off time of the fault blink.
	FaultHalfPeriod time.Duration
	// DebounceHold is how long the poller waits after emitting a tag event.
	DebounceHold time.Duration
}

// DefaultConfig returns the standard timings.
func DefaultConfig() *Config {
	return &Config{
		StartupDelay:    DefaultStartupDelay,
		ReadyHold:       DefaultReadyHold,
		FaultHalfPeriod: DefaultFaultHalfPeriod,
		DebounceHold:    DefaultDebounceHold,
	}
}

// Validate checks that the timings are usable.
func (c *Config) Validate() error {
	if c.StartupDelay < 0 {
		return errors.New("startup delay cannot be negative")
	}
	if c.ReadyHold <= 0 {
		return errors.New("ready hold must be positive")
	}
	if c.FaultHalfPeriod <= 0 {
		return errors.New("fault half period must be positive")
	}
	if c.DebounceHold <= 0 {
		return errors.New("debounce hold must be positive")
	}
	return nil
}

// Option configures a Poller.
type Option func(*Poller) error

// WithConfig replaces the default timings.
func WithConfig(config *Config) Option {
	return func(p *Poller) error {
		if config == nil {
			return errors.New("config cannot be nil")
		}
		if err := config.Validate(); err != nil {
			return err
		}
		clone := *config
		p.config = &clone
		return nil
	}
}

// WithClock sets the clock used for all delays.
func WithClock(clock uidreader.Clock) Option {
	return func(p *Poller) error {
		if clock == nil {
			return errors.New("clock cannot be nil")
		}
		p.clock = clock
		return nil
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Poller) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		p.log = logger
		return nil
	}
}
