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

// Package polling drives an NFC reader through its startup sequence and the
// endless tag poll loop.
package polling

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"

	uidreader "github.com/ZaparooProject/go-uidreader"
)

// Poller owns one reader session, its status indicator and the serial sink
// that tag events are written to.
//
// Poller runs in a single goroutine; Status may be read from any goroutine.
type Poller struct {
	reader    uidreader.Reader
	indicator uidreader.Indicator
	sink      io.Writer
	clock     uidreader.Clock
	log       *slog.Logger
	config    *Config
	status    atomic.Int32
}

// New creates a poller. Nothing is sent to the reader until Start or Run.
func New(reader uidreader.Reader, indicator uidreader.Indicator, sink io.Writer, opts ...Option) (*Poller, error) {
	if reader == nil {
		return nil, errors.New("reader cannot be nil")
	}
	if indicator == nil {
		return nil, errors.New("indicator cannot be nil")
	}
	if sink == nil {
		return nil, errors.New("sink cannot be nil")
	}

	p := &Poller{
		reader:    reader,
		indicator: indicator,
		sink:      sink,
		clock:     uidreader.SystemClock(),
		log:       slog.Default(),
		config:    DefaultConfig(),
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, fmt.Errorf("invalid poller option: %w", err)
		}
	}
	p.log = p.log.With("reader", reader.Name())

	return p, nil
}

// Status returns the current lifecycle state.
func (p *Poller) Status() uidreader.Status {
	return uidreader.Status(p.status.Load())
}

// Run starts the reader and then polls for tags until ctx is cancelled.
// If the reader cannot be found Run blinks the indicator until ctx is
// cancelled and returns an error wrapping ErrFault.
func (p *Poller) Run(ctx context.Context) error {
	if err := p.Start(ctx); err != nil {
		return err
	}

	for {
		if _, err := p.PollOnce(ctx); err != nil {
			return err
		}
	}
}

// Start performs the startup sequence: settle delay, banner, Init and
// Identify. On success it runs Configure, holds the indicator on for the
// ready period and returns nil. On failure it never returns before ctx is
// done; the indicator blinks in the meantime.
func (p *Poller) Start(ctx context.Context) error {
	if err := p.clock.Sleep(ctx, p.config.StartupDelay); err != nil {
		return err
	}

	name := p.reader.Name()
	p.println(fmt.Sprintf("NFC Reader (%s) Starting...", name))
	p.setIndicator(false)

	identity, err := p.identify(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		p.status.Store(int32(uidreader.StatusFault))
		p.log.Error("reader not found", "error", err)
		p.println(fmt.Sprintf("ERROR: %s not found!", name))
		if hint := p.reader.WiringHint(); hint != "" {
			p.println(hint)
		}
		return p.fault(ctx)
	}

	p.status.Store(int32(uidreader.StatusReady))
	p.log.Info("reader found", "identity", identity.String())
	p.println(fmt.Sprintf("%s %s", name, identity))

	if err := p.reader.Configure(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		p.log.Warn("reader configuration failed", "error", err)
	}

	p.println("NFC Reader Ready. Waiting for cards...")

	p.setIndicator(true)
	sleepErr := p.clock.Sleep(ctx, p.config.ReadyHold)
	p.setIndicator(false)
	return sleepErr
}

func (p *Poller) identify(ctx context.Context) (uidreader.Identity, error) {
	if err := p.reader.Init(ctx); err != nil {
		return uidreader.Identity{}, fmt.Errorf("init failed: %w", err)
	}
	identity, err := p.reader.Identify(ctx)
	if err != nil {
		return uidreader.Identity{}, fmt.Errorf("identify failed: %w", err)
	}
	return identity, nil
}

// fault blinks the indicator with a fixed half period. There is no way out
// other than cancelling ctx.
func (p *Poller) fault(ctx context.Context) error {
	half := p.config.FaultHalfPeriod
	for {
		p.setIndicator(true)
		if err := p.clock.Sleep(ctx, half); err != nil {
			p.setIndicator(false)
			return fmt.Errorf("%w: %w", uidreader.ErrFault, err)
		}
		p.setIndicator(false)
		if err := p.clock.Sleep(ctx, half); err != nil {
			return fmt.Errorf("%w: %w", uidreader.ErrFault, err)
		}
	}
}

// PollOnce runs a single poll iteration and reports whether a tag event was
// emitted. The only error it returns is the context error once ctx is done.
func (p *Poller) PollOnce(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	timing := p.reader.Timing()

	uid, err := p.detect(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		if !errors.Is(err, uidreader.ErrNoTag) {
			uidreader.Debugf("tag read failed: %v", err)
		}
		return false, p.clock.Sleep(ctx, timing.IdleDelay)
	}

	p.setIndicator(true)

	emitted := true
	if err := uidreader.WriteEvent(p.sink, uid); err != nil {
		emitted = false
		p.log.Error("failed to emit tag event", "uid", uid.Hex(), "error", err)
	} else {
		p.log.Info("tag detected", "uid", uid.Hex())
	}

	if err := p.reader.EndSession(ctx); err != nil {
		uidreader.Debugf("end session failed: %v", err)
	}

	sleepErr := p.clock.Sleep(ctx, p.config.DebounceHold)
	p.setIndicator(false)
	if sleepErr != nil {
		return emitted, sleepErr
	}

	if timing.IdleAfterEmit {
		if err := p.clock.Sleep(ctx, timing.IdleDelay); err != nil {
			return emitted, err
		}
	}
	return emitted, nil
}

// detect folds invalid identifiers into ErrNoTag.
func (p *Poller) detect(ctx context.Context) (uidreader.UID, error) {
	raw, err := p.reader.DetectTag(ctx)
	if err != nil {
		return nil, err
	}
	uid, err := uidreader.NewUID(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", uidreader.ErrNoTag, err)
	}
	return uid, nil
}

func (p *Poller) setIndicator(on bool) {
	if err := p.indicator.Set(on); err != nil {
		p.log.Warn("failed to set status indicator", "on", on, "error", err)
	}
}

// println writes a free text diagnostic line to the sink.
func (p *Poller) println(line string) {
	if _, err := io.WriteString(p.sink, line+"\n"); err != nil {
		p.log.Warn("failed to write diagnostic line", "error", err)
	}
}
