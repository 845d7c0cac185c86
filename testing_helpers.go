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

package uidreader

import (
	"context"
	"sync"
	"time"
)

// FakeClock is a Clock whose Sleep advances virtual time instantly. It records
// every requested delay.
type FakeClock struct {
	now      time.Time
	limit    time.Time
	onLimit  context.CancelFunc
	sleeps   []time.Duration
	mu       sync.Mutex
	hasLimit bool
}

// NewFakeClock creates a FakeClock starting at a fixed instant.
func NewFakeClock() *FakeClock {
	return &FakeClock{now: time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)}
}

// Now returns the current virtual time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Sleep advances virtual time by d. It returns ctx.Err() when ctx is done
// before or after the advance.
func (c *FakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	c.now = c.now.Add(d)
	c.sleeps = append(c.sleeps, d)
	var cancel context.CancelFunc
	if c.hasLimit && !c.now.Before(c.limit) {
		cancel = c.onLimit
	}
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return ctx.Err()
}

// CancelAfter calls cancel once virtual time has advanced by d from now.
// It bounds otherwise endless loops in tests.
func (c *FakeClock) CancelAfter(d time.Duration, cancel context.CancelFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.limit = c.now.Add(d)
	c.onLimit = cancel
	c.hasLimit = true
}

// Sleeps returns a copy of all requested delays in order.
func (c *FakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

// Transition is a recorded change of an Indicator level.
type Transition struct {
	At time.Time
	On bool
}

// MockIndicator records every Set call with the time read from its clock.
type MockIndicator struct {
	clock       Clock
	err         error
	transitions []Transition
	mu          sync.Mutex
	on          bool
}

// NewMockIndicator creates an indicator that timestamps transitions with clock.
func NewMockIndicator(clock Clock) *MockIndicator {
	return &MockIndicator{clock: clock}
}

// Set records the new level.
func (m *MockIndicator) Set(on bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.on = on
	m.transitions = append(m.transitions, Transition{At: m.clock.Now(), On: on})
	return m.err
}

// SetError makes every following Set call return err (the level is still
// recorded).
func (m *MockIndicator) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// On returns the current level.
func (m *MockIndicator) On() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.on
}

// Transitions returns a copy of all recorded Set calls.
func (m *MockIndicator) Transitions() []Transition {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Transition(nil), m.transitions...)
}

// MockReader is a scriptable Reader. DetectTag consumes Tags in order; a nil
// entry is a miss. Once Tags is exhausted, Present is returned on every call
// (nil meaning no tag).
type MockReader struct {
	IdentifyErr  error
	InitErr      error
	ConfigureErr error
	EndErr       error
	DetectErr    error
	Clock        Clock
	OnDetect     func(call int)
	NameValue    string
	Hint         string
	Identity     Identity
	Tags         []UID
	Present      UID
	detectTimes  []time.Time
	Timings      Timing
	// MissDelay is slept on Clock for every miss, modelling a chip that
	// blocks until its own detection timeout.
	MissDelay       time.Duration
	initCalls       int
	identifyCalls   int
	configureCalls  int
	detectCalls     int
	endSessionCalls int
	mu              sync.Mutex
}

// NewMockReader returns a reader that identifies successfully and never sees
// a tag.
func NewMockReader() *MockReader {
	return &MockReader{
		NameValue: "MOCK",
		Hint:      "Check mock wiring",
		Identity:  Identity{Label: "Version", Value: 0x92},
		Timings:   Timing{IdleDelay: 100 * time.Millisecond},
	}
}

func (m *MockReader) Name() string       { return m.NameValue }
func (m *MockReader) WiringHint() string { return m.Hint }
func (m *MockReader) Timing() Timing     { return m.Timings }

func (m *MockReader) Init(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initCalls++
	return m.InitErr
}

func (m *MockReader) Identify(context.Context) (Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.identifyCalls++
	if m.IdentifyErr != nil {
		return Identity{}, m.IdentifyErr
	}
	return m.Identity, nil
}

func (m *MockReader) Configure(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.configureCalls++
	return m.ConfigureErr
}

func (m *MockReader) DetectTag(ctx context.Context) (UID, error) {
	m.mu.Lock()
	m.detectCalls++
	call := m.detectCalls
	if m.Clock != nil {
		m.detectTimes = append(m.detectTimes, m.Clock.Now())
	}

	var uid UID
	if len(m.Tags) > 0 {
		uid = m.Tags[0]
		m.Tags = m.Tags[1:]
	} else {
		uid = m.Present
	}
	detectErr := m.DetectErr
	onDetect := m.OnDetect
	clock := m.Clock
	missDelay := m.MissDelay
	m.mu.Unlock()

	if onDetect != nil {
		onDetect(call)
	}
	if detectErr != nil {
		return nil, detectErr
	}
	if uid == nil {
		if clock != nil && missDelay > 0 {
			_ = clock.Sleep(ctx, missDelay)
		}
		return nil, ErrNoTag
	}
	return append(UID(nil), uid...), nil
}

func (m *MockReader) EndSession(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.endSessionCalls++
	return m.EndErr
}

// Calls returns the number of Init, Identify, Configure, DetectTag and
// EndSession calls.
func (m *MockReader) Calls() (initCalls, identify, configure, detect, endSession int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initCalls, m.identifyCalls, m.configureCalls, m.detectCalls, m.endSessionCalls
}

// DetectTimes returns the clock time of every DetectTag call.
func (m *MockReader) DetectTimes() []time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Time(nil), m.detectTimes...)
}

var (
	_ Reader    = (*MockReader)(nil)
	_ Indicator = (*MockIndicator)(nil)
	_ Clock     = (*FakeClock)(nil)
)
