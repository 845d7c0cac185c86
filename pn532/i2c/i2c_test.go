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

package i2c

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ZaparooProject/go-uidreader/internal/frame"
	testutil "github.com/ZaparooProject/go-uidreader/internal/testing"
	"github.com/ZaparooProject/go-uidreader/pn532"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/i2c/i2ctest"
	"periph.io/x/conn/v3/physic"
)

var firmwareCommand = []byte{0x00, 0x00, 0xFF, 0x02, 0xFE, 0xD4, 0x02, 0x2A, 0x00}

func write(w []byte) i2ctest.IO {
	return i2ctest.IO{Addr: DefaultAddress, W: w}
}

func read(r []byte) i2ctest.IO {
	return i2ctest.IO{Addr: DefaultAddress, R: r}
}

func TestSendCommand(t *testing.T) {
	t.Parallel()

	notReady := make([]byte, 7)
	corrupted := testutil.I2CRead(testutil.FirmwareVersionPayload())
	corrupted[7] ^= 0xFF

	tests := []struct {
		name string
		ops  []i2ctest.IO
	}{
		{
			name: "immediate",
			ops: []i2ctest.IO{
				write(firmwareCommand),
				read(testutil.I2CAck()),
				read([]byte{0x01}),
				read(testutil.I2CRead(testutil.FirmwareVersionPayload())),
			},
		},
		{
			name: "ack after busy status",
			ops: []i2ctest.IO{
				write(firmwareCommand),
				read(notReady),
				read(notReady),
				read(testutil.I2CAck()),
				read([]byte{0x00}),
				read([]byte{0x01}),
				read(testutil.I2CRead(testutil.FirmwareVersionPayload())),
			},
		},
		{
			name: "corrupted frame is nacked",
			ops: []i2ctest.IO{
				write(firmwareCommand),
				read(testutil.I2CAck()),
				read([]byte{0x01}),
				read(corrupted),
				write(frame.NackFrame),
				read([]byte{0x01}),
				read(testutil.I2CRead(testutil.FirmwareVersionPayload())),
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			bus := &i2ctest.Playback{Ops: tt.ops, DontPanic: true}
			tr := NewWithBus(bus, "playback")

			resp, err := tr.SendCommand(0x02, nil)
			require.NoError(t, err)
			assert.Equal(t, testutil.FirmwareVersionPayload(), resp)
			require.NoError(t, bus.Close())
		})
	}
}

func TestSendCommand_ErrorFrame(t *testing.T) {
	t.Parallel()

	errorFrame := make([]byte, testutil.I2CReadLen)
	copy(errorFrame, []byte{0x01, 0x00, 0x00, 0xFF, 0x01, 0xFF, 0x7F, 0x81, 0x00})

	bus := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			write(firmwareCommand),
			read(testutil.I2CAck()),
			read([]byte{0x01}),
			read(errorFrame),
		},
		DontPanic: true,
	}
	tr := NewWithBus(bus, "playback")

	_, err := tr.SendCommand(0x02, nil)
	require.Error(t, err)
	require.ErrorIs(t, err, frame.ErrErrorFrame)
	assert.False(t, pn532.IsRetryable(err))
}

func TestSendCommand_BadAck(t *testing.T) {
	t.Parallel()

	bus := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			write(firmwareCommand),
			read(append([]byte{0x01}, frame.NackFrame...)),
		},
		DontPanic: true,
	}
	tr := NewWithBus(bus, "playback")

	_, err := tr.SendCommand(0x02, nil)
	require.ErrorIs(t, err, pn532.ErrNoACK)
}

// silentBus acknowledges every command but never has a response ready
type silentBus struct {
	writes     [][]byte
	mu         sync.Mutex
	ackPending bool
}

func (*silentBus) String() string                  { return "silent" }
func (*silentBus) SetSpeed(physic.Frequency) error { return nil }

func (b *silentBus) Tx(_ uint16, w, r []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(w) > 0 {
		b.writes = append(b.writes, append([]byte(nil), w...))
		b.ackPending = !frame.IsAck(w)
	}
	if len(r) > 0 {
		for i := range r {
			r[i] = 0
		}
		if b.ackPending && len(r) == 1+len(frame.AckFrame) {
			copy(r, testutil.I2CAck())
			b.ackPending = false
		}
	}
	return nil
}

func (b *silentBus) Writes() [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.writes
}

func TestSendCommand_TimeoutAborts(t *testing.T) {
	t.Parallel()

	bus := &silentBus{}
	tr := NewWithBus(bus, "silent")
	require.NoError(t, tr.SetTimeout(20*time.Millisecond))

	_, err := tr.SendCommand(0x4A, []byte{0x01, 0x00})
	require.Error(t, err)
	assert.True(t, pn532.IsTimeout(err))

	writes := bus.Writes()
	require.Len(t, writes, 2)
	assert.Equal(t, frame.AckFrame, writes[1], "pending command must be aborted")
}

func TestSendCommand_ContextDeadlineAborts(t *testing.T) {
	t.Parallel()

	bus := &silentBus{}
	tr := NewWithBus(bus, "silent")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := tr.SendCommandContext(ctx, 0x4A, []byte{0x01, 0x00})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.True(t, errors.Is(err, context.DeadlineExceeded) || pn532.IsTimeout(err))

	writes := bus.Writes()
	require.NotEmpty(t, writes)
	assert.Equal(t, frame.AckFrame, writes[len(writes)-1])
}

func TestSendCommand_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	bus := &silentBus{}
	tr := NewWithBus(bus, "silent")

	_, err := tr.SendCommandContext(ctx, 0x02, nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, bus.Writes())
}

func TestSendCommand_DataTooLarge(t *testing.T) {
	t.Parallel()

	tr := NewWithBus(&silentBus{}, "silent")
	_, err := tr.SendCommand(0x40, make([]byte, 300))
	require.ErrorIs(t, err, pn532.ErrDataTooLarge)
}

func TestTransportLifecycle(t *testing.T) {
	t.Parallel()

	tr := NewWithBus(&silentBus{}, "silent")
	assert.True(t, tr.IsConnected())
	assert.Equal(t, pn532.TransportI2C, tr.Type())
	require.Error(t, tr.SetTimeout(0))
	require.NoError(t, tr.Close())
}
