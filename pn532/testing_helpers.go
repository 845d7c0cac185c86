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

package pn532

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockTransport is a scriptable Transport for tests. Responses and errors are
// configured per command code; unconfigured commands fail.
type MockTransport struct {
	responses map[byte][]byte
	errors    map[byte]error
	blocking  map[byte]bool
	calls     map[byte]int
	lastArgs  map[byte][]byte
	timeout   time.Duration
	mu        sync.Mutex
	closed    bool
}

// NewMockTransport creates an empty mock transport
func NewMockTransport() *MockTransport {
	return &MockTransport{
		responses: make(map[byte][]byte),
		errors:    make(map[byte]error),
		blocking:  make(map[byte]bool),
		calls:     make(map[byte]int),
		lastArgs:  make(map[byte][]byte),
		timeout:   time.Second,
	}
}

// SetResponse configures the payload returned for cmd
func (m *MockTransport) SetResponse(cmd byte, resp []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[cmd] = resp
	delete(m.errors, cmd)
}

// SetError configures the error returned for cmd
func (m *MockTransport) SetError(cmd byte, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[cmd] = err
}

// SetBlocking makes cmd wait for its context instead of answering, like a
// PN532 waiting for a tag that never comes
func (m *MockTransport) SetBlocking(cmd byte, blocking bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blocking[cmd] = blocking
}

// CallCount returns how many times cmd was sent
func (m *MockTransport) CallCount(cmd byte) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[cmd]
}

// LastArgs returns the arguments of the last cmd sent
func (m *MockTransport) LastArgs(cmd byte) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.lastArgs[cmd]...)
}

// Timeout returns the last timeout set by the device
func (m *MockTransport) Timeout() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timeout
}

// SendCommand implements Transport
func (m *MockTransport) SendCommand(cmd byte, args []byte) ([]byte, error) {
	return m.SendCommandContext(context.Background(), cmd, args)
}

// SendCommandContext implements TransportContext
func (m *MockTransport) SendCommandContext(ctx context.Context, cmd byte, args []byte) ([]byte, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrTransportClosed
	}
	m.calls[cmd]++
	m.lastArgs[cmd] = append([]byte(nil), args...)
	blocking := m.blocking[cmd]
	err, hasErr := m.errors[cmd]
	resp, hasResp := m.responses[cmd]
	m.mu.Unlock()

	if blocking {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if hasErr {
		return nil, err
	}
	if !hasResp {
		return nil, fmt.Errorf("mock: no response configured for command %02X", cmd)
	}
	return append([]byte(nil), resp...), nil
}

// Close implements Transport
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// SetTimeout implements Transport
func (m *MockTransport) SetTimeout(timeout time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeout = timeout
	return nil
}

// IsConnected implements Transport
func (m *MockTransport) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed
}

// Type implements Transport
func (*MockTransport) Type() TransportType {
	return TransportMock
}

var _ TransportContext = (*MockTransport)(nil)
