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

package rc522

import (
	"context"
	"errors"
	"testing"

	uidreader "github.com/ZaparooProject/go-uidreader"
	testutil "github.com/ZaparooProject/go-uidreader/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDevice(t *testing.T, withReset bool) (*Device, *testutil.VirtualRC522, *uidreader.FakeClock) {
	t.Helper()
	sim := testutil.NewVirtualRC522(0x92)
	clock := uidreader.NewFakeClock()
	opts := []Option{WithClock(clock)}
	if withReset {
		opts = append(opts, WithResetPin(sim))
	}
	return New(sim, opts...), sim, clock
}

func TestCRCA(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
		want []byte
	}{
		{name: "HLTA", data: []byte{0x50, 0x00}, want: []byte{0x57, 0xCD}},
		{name: "Empty", data: nil, want: []byte{0x63, 0x63}},
		{name: "SAK_08", data: []byte{0x08}, want: []byte{0xB6, 0xDD}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, CRCA(tt.data))
		})
	}
}

func TestAddressBytes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, byte(0xEE), readAddress(regVersion))
	assert.Equal(t, byte(0x02), writeAddress(regCommand))
	assert.Equal(t, byte(0x92), readAddress(regFIFOData))
}

func TestDevice_Init(t *testing.T) {
	t.Parallel()

	for _, withReset := range []bool{true, false} {
		withReset := withReset
		name := "SoftReset"
		if withReset {
			name = "ResetPin"
		}
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			dev, sim, clock := newTestDevice(t, withReset)

			require.NoError(t, dev.Init(context.Background()))
			assert.Equal(t, 2, sim.Resets())
			assert.Equal(t, byte(0x83), sim.Reg(regTxControl), "antenna drivers must be on")
			assert.Equal(t, byte(0x80), sim.Reg(regTMode))
			assert.Equal(t, byte(0xA9), sim.Reg(regTPrescaler))
			assert.Equal(t, byte(0x03), sim.Reg(regTReloadHigh))
			assert.Equal(t, byte(0xE8), sim.Reg(regTReloadLow))
			assert.Equal(t, byte(0x40), sim.Reg(regTxASK))
			assert.Equal(t, byte(0x3D), sim.Reg(regMode))
			assert.Contains(t, clock.Sleeps(), resetSettle)
		})
	}
}

func TestDevice_InitTransferError(t *testing.T) {
	t.Parallel()

	dev, sim, _ := newTestDevice(t, false)
	sim.SetTxError(errors.New("spi down"))
	err := dev.Init(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "spi down")
}

func TestDevice_Version(t *testing.T) {
	t.Parallel()

	dev, _, _ := newTestDevice(t, false)
	v, err := dev.Version()
	require.NoError(t, err)
	assert.Equal(t, byte(0x92), v)
}

func TestDevice_ReadCardSerial(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		uid     []byte
		wantSAK byte
	}{
		{name: "Single_Size", uid: []byte{0xDE, 0xAD, 0xBE, 0xEF}, wantSAK: 0x08},
		{name: "Double_Size", uid: []byte{0x04, 0x11, 0x22, 0x33, 0x44, 0x55, 0x66}, wantSAK: 0x00},
		{
			name:    "Triple_Size",
			uid:     []byte{0x04, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09},
			wantSAK: 0x00,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			dev, sim, _ := newTestDevice(t, true)
			require.NoError(t, dev.Init(context.Background()))
			sim.Insert(tt.uid)

			present, err := dev.IsNewCardPresent(context.Background())
			require.NoError(t, err)
			require.True(t, present)

			uid, sak, err := dev.ReadCardSerial(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.uid, uid)
			assert.Equal(t, tt.wantSAK, sak)
		})
	}
}

func TestDevice_ReadCardSerialSelectsEachLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		uid  []byte
		want []byte
	}{
		{name: "Single_Size", uid: []byte{0xDE, 0xAD, 0xBE, 0xEF}, want: []byte{piccSelCL1}},
		{
			name: "Double_Size",
			uid:  []byte{0x04, 0x11, 0x22, 0x33, 0x44, 0x55, 0x66},
			want: []byte{piccSelCL1, piccSelCL2},
		},
		{
			name: "Triple_Size",
			uid:  []byte{0x04, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09},
			want: []byte{piccSelCL1, piccSelCL2, piccSelCL3},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			// No reset pin and no IRQ line: completion is polled over SPI only.
			dev, sim, _ := newTestDevice(t, false)
			require.NoError(t, dev.Init(context.Background()))
			sim.Insert(tt.uid)

			present, err := dev.IsNewCardPresent(context.Background())
			require.NoError(t, err)
			require.True(t, present)

			uid, _, err := dev.ReadCardSerial(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.uid, uid)

			var selects []byte
			for _, frm := range sim.Frames() {
				if len(frm) == 9 && frm[1] == nvbSelect {
					selects = append(selects, frm[0])
				}
			}
			assert.Equal(t, tt.want, selects)
		})
	}
}

func TestDevice_NoCard(t *testing.T) {
	t.Parallel()

	dev, _, _ := newTestDevice(t, true)
	require.NoError(t, dev.Init(context.Background()))

	present, err := dev.IsNewCardPresent(context.Background())
	require.NoError(t, err)
	assert.False(t, present)
}

func TestDevice_HaltA(t *testing.T) {
	t.Parallel()

	dev, sim, _ := newTestDevice(t, true)
	require.NoError(t, dev.Init(context.Background()))
	sim.Insert([]byte{0x01, 0x02, 0x03, 0x04})

	present, err := dev.IsNewCardPresent(context.Background())
	require.NoError(t, err)
	require.True(t, present)
	_, _, err = dev.ReadCardSerial(context.Background())
	require.NoError(t, err)

	require.NoError(t, dev.HaltA(context.Background()))
	require.NoError(t, dev.StopCrypto1())
	assert.True(t, sim.Halted())

	frames := sim.Frames()
	assert.Equal(t, []byte{0x50, 0x00, 0x57, 0xCD}, frames[len(frames)-1])

	present, err = dev.IsNewCardPresent(context.Background())
	require.NoError(t, err)
	assert.False(t, present, "halted card must not answer REQA")

	sim.Remove()
	sim.Insert([]byte{0x01, 0x02, 0x03, 0x04})
	present, err = dev.IsNewCardPresent(context.Background())
	require.NoError(t, err)
	assert.True(t, present, "re-presented card answers again")
}

func TestDevice_ReadCardSerialErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		setup   func(*testutil.VirtualRC522)
		wantErr error
		name    string
	}{
		{
			name:    "Collision",
			setup:   func(sim *testutil.VirtualRC522) { sim.SetCollision(true) },
			wantErr: ErrCollision,
		},
		{
			name:    "Bad_SAK_CRC",
			setup:   func(sim *testutil.VirtualRC522) { sim.SetCorruptSAK(true) },
			wantErr: ErrCRC,
		},
		{
			name:    "Card_Left",
			setup:   func(sim *testutil.VirtualRC522) { sim.Remove() },
			wantErr: ErrTimeout,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			dev, sim, _ := newTestDevice(t, true)
			require.NoError(t, dev.Init(context.Background()))
			sim.Insert([]byte{0xAA, 0xBB, 0xCC, 0xDD})

			present, err := dev.IsNewCardPresent(context.Background())
			require.NoError(t, err)
			require.True(t, present)

			tt.setup(sim)
			_, _, err = dev.ReadCardSerial(context.Background())
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}
