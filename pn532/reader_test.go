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
	"errors"
	"testing"

	uidreader "github.com/ZaparooProject/go-uidreader"
	testutil "github.com/ZaparooProject/go-uidreader/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestReader(t *testing.T, opts ...ReaderOption) (*Reader, *MockTransport) {
	t.Helper()
	mock := NewMockTransport()
	device, err := New(mock)
	require.NoError(t, err)
	return NewReader(device, opts...), mock
}

func TestReader_Descriptors(t *testing.T) {
	t.Parallel()

	reader, _ := newTestReader(t)
	assert.Equal(t, "PN532", reader.Name())
	assert.Equal(t, DefaultWiringHint, reader.WiringHint())
	assert.Equal(t, uidreader.Timing{IdleDelay: IdleDelay, IdleAfterEmit: true}, reader.Timing())

	custom, _ := newTestReader(t, WithWiringHint("Check I2C connections on /dev/i2c-3"))
	assert.Equal(t, "Check I2C connections on /dev/i2c-3", custom.WiringHint())
}

func TestReader_Identify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		setupMock func(*MockTransport)
		name      string
		wantValue uint32
		notFound  bool
	}{
		{
			name: "Firmware_Word",
			setupMock: func(m *MockTransport) {
				m.SetResponse(testutil.CmdGetFirmwareVersion, testutil.FirmwareVersionPayload())
			},
			wantValue: 0x32010607,
		},
		{
			name: "Zero_Word",
			setupMock: func(m *MockTransport) {
				m.SetResponse(testutil.CmdGetFirmwareVersion, []byte{0x03, 0x00, 0x00, 0x00, 0x00})
			},
			notFound: true,
		},
		{
			name: "No_Answer",
			setupMock: func(m *MockTransport) {
				m.SetError(testutil.CmdGetFirmwareVersion, NewNoACKError("waitAck", "mock"))
			},
			notFound: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			reader, mock := newTestReader(t)
			tt.setupMock(mock)

			identity, err := reader.Identify(context.Background())
			if tt.notFound {
				require.ErrorIs(t, err, uidreader.ErrDeviceNotFound)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantValue, identity.Value)
			assert.Equal(t, "Firmware Version: 0x32010607 (PN532 v1.6)", identity.String())
		})
	}
}

func TestReader_Configure(t *testing.T) {
	t.Parallel()

	reader, mock := newTestReader(t)
	mock.SetResponse(testutil.CmdSAMConfiguration, testutil.SAMConfigurationPayload())

	require.NoError(t, reader.Init(context.Background()))
	require.NoError(t, reader.Configure(context.Background()))
	assert.Equal(t, []byte{0x01, 0x14, 0x01}, mock.LastArgs(testutil.CmdSAMConfiguration))

	mock.SetError(testutil.CmdSAMConfiguration, errors.New("no ack"))
	require.Error(t, reader.Configure(context.Background()))
}

func TestReader_DetectTag(t *testing.T) {
	t.Parallel()

	tests := []struct {
		setupMock func(*MockTransport)
		wantErr   error
		name      string
		wantUID   uidreader.UID
	}{
		{
			name: "Tag_Present",
			setupMock: func(m *MockTransport) {
				m.SetResponse(testutil.CmdInListPassiveTarget, testutil.TargetPayload([]byte{0x04, 0xA1, 0xB2, 0xC3}))
			},
			wantUID: uidreader.UID{0x04, 0xA1, 0xB2, 0xC3},
		},
		{
			name: "No_Tag_Within_Timeout",
			setupMock: func(m *MockTransport) {
				m.SetBlocking(testutil.CmdInListPassiveTarget, true)
			},
			wantErr: uidreader.ErrNoTag,
		},
		{
			name: "Empty_Target_List",
			setupMock: func(m *MockTransport) {
				m.SetResponse(testutil.CmdInListPassiveTarget, testutil.NoTargetPayload())
			},
			wantErr: uidreader.ErrNoTag,
		},
		{
			name: "Malformed_Response",
			setupMock: func(m *MockTransport) {
				m.SetResponse(testutil.CmdInListPassiveTarget, []byte{0x4B})
			},
			wantErr: ErrInvalidResponse,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			reader, mock := newTestReader(t)
			tt.setupMock(mock)

			uid, err := reader.DetectTag(context.Background())
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, uid)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantUID, uid)
			require.NoError(t, reader.EndSession(context.Background()))
		})
	}
}
