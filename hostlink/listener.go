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

package hostlink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	uidreader "github.com/ZaparooProject/go-uidreader"
)

const (
	// readTimeout bounds a single Read so cancellation is noticed
	readTimeout = time.Second
	// errorBackoff is slept after a failed Read
	errorBackoff = time.Second
	// maxLineLength drops runaway lines; the longest event is 36 bytes
	maxLineLength = 1024
)

// Handler receives every tag UID read from the link
type Handler func(ctx context.Context, uid uidreader.UID) error

// Listener reads the reader's line protocol and calls its handler once per
// tag event. Free text lines are skipped.
type Listener struct {
	port    Port
	handler Handler
	clock   uidreader.Clock
	log     *slog.Logger
	line    []byte
	dropped bool
}

// ListenerOption configures a Listener
type ListenerOption func(*Listener)

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) ListenerOption {
	return func(l *Listener) {
		l.log = logger
	}
}

// WithClock sets the clock used for the read error backoff
func WithClock(clock uidreader.Clock) ListenerOption {
	return func(l *Listener) {
		l.clock = clock
	}
}

// NewListener creates a listener on port
func NewListener(port Port, handler Handler, opts ...ListenerOption) (*Listener, error) {
	if port == nil {
		return nil, errors.New("port cannot be nil")
	}
	if handler == nil {
		return nil, errors.New("handler cannot be nil")
	}

	l := &Listener{
		port:    port,
		handler: handler,
		clock:   uidreader.SystemClock(),
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Run reads lines until ctx is cancelled or the port reports EOF. Read errors
// are logged and retried after a pause.
func (l *Listener) Run(ctx context.Context) error {
	if err := l.port.SetReadTimeout(readTimeout); err != nil {
		return fmt.Errorf("failed to set read timeout: %w", err)
	}

	buf := make([]byte, 256)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := l.port.Read(buf)
		l.feed(ctx, buf[:n])

		switch {
		case errors.Is(err, io.EOF):
			if len(l.line) > 0 {
				l.HandleLine(ctx, string(l.line))
				l.line = l.line[:0]
			}
			return nil
		case err != nil:
			l.log.Warn("serial read failed", "error", err)
			if sleepErr := l.clock.Sleep(ctx, errorBackoff); sleepErr != nil {
				return sleepErr
			}
		}
	}
}

// feed splits data into lines
func (l *Listener) feed(ctx context.Context, data []byte) {
	for _, b := range data {
		if b == '\n' {
			if !l.dropped {
				l.HandleLine(ctx, string(l.line))
			}
			l.line = l.line[:0]
			l.dropped = false
			continue
		}
		if len(l.line) >= maxLineLength {
			if !l.dropped {
				l.log.Warn("dropping overlong line", "limit", maxLineLength)
			}
			l.dropped = true
			continue
		}
		l.line = append(l.line, b)
	}
}

// HandleLine processes one received line
func (l *Listener) HandleLine(ctx context.Context, line string) {
	uid, err := uidreader.ParseEvent(line)
	switch {
	case errors.Is(err, uidreader.ErrNotEvent):
		uidreader.Debugf("reader: %s", line)
		return
	case err != nil:
		l.log.Warn("malformed tag event", "line", line, "error", err)
		return
	}

	l.log.Info("tag received", "uid", uid.Hex())
	if err := l.handler(ctx, uid); err != nil {
		l.log.Error("tag handler failed", "uid", uid.Hex(), "error", err)
	}
}
