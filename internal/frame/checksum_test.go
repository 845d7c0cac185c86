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

package frame

import "testing"

func TestCalculateChecksum(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		data []byte
		want byte
	}{
		{name: "empty data", data: []byte{}, want: 0},
		{name: "single byte", data: []byte{0x42}, want: 0x42},
		{name: "overflow handling", data: []byte{0xFF, 0x01}, want: 0x00},
		{name: "GetFirmwareVersion body", data: []byte{0xD4, 0x02}, want: 0xD6},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := CalculateChecksum(tt.data); got != tt.want {
				t.Errorf("CalculateChecksum() = %02X, want %02X", got, tt.want)
			}
		})
	}
}

func TestValidateChecksum(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		data     []byte
		wantNack bool
	}{
		{name: "zero sum", data: []byte{0x10, 0xF0}, wantNack: false},
		{name: "non zero sum", data: []byte{0x10, 0x20}, wantNack: true},
		{name: "firmware response with DCS", data: []byte{0xD5, 0x03, 0x32, 0x01, 0x06, 0x07, 0xE8}, wantNack: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ValidateChecksum(tt.data); got != tt.wantNack {
				t.Errorf("ValidateChecksum() = %v, want %v", got, tt.wantNack)
			}
		})
	}
}

func TestCalculateDataChecksum(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		data []byte
		tfi  byte
		want byte
	}{
		{name: "GetFirmwareVersion", tfi: HostToPn532, data: []byte{0x02}, want: 0x2A},
		{name: "empty data", tfi: HostToPn532, data: []byte{}, want: 0x2C},
		{name: "SAMConfiguration", tfi: HostToPn532, data: []byte{0x14, 0x01, 0x14, 0x01}, want: 0x02},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := CalculateDataChecksum(tt.tfi, tt.data); got != tt.want {
				t.Errorf("CalculateDataChecksum() = %02X, want %02X", got, tt.want)
			}
		})
	}
}

// TestLengthChecksumProperty verifies LEN + LCS == 0 (mod 256) for every length
func TestLengthChecksumProperty(t *testing.T) {
	t.Parallel()
	for i := 0; i < 256; i++ {
		length := byte(i)
		if sum := length + CalculateLengthChecksum(length); sum != 0 {
			t.Errorf("length=%d: LEN+LCS = %d, expected 0", length, sum)
		}
	}
}
