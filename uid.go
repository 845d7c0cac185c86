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
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"
)

// MaxUIDLen is the length of a triple size ISO14443A identifier.
const MaxUIDLen = 10

// UID is the identifier a passive tag reports during anticollision.
type UID []byte

// NewUID copies b into a UID. Empty identifiers and identifiers longer than
// MaxUIDLen are rejected with ErrInvalidUID.
func NewUID(b []byte) (UID, error) {
	if len(b) == 0 || len(b) > MaxUIDLen {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidUID, len(b))
	}
	uid := make(UID, len(b))
	copy(uid, b)
	return uid, nil
}

// ParseUID decodes the uppercase hex form produced by Hex.
func ParseUID(s string) (UID, error) {
	if len(s) == 0 || len(s)%2 != 0 {
		return nil, fmt.Errorf("%w: odd or empty hex %q", ErrInvalidUID, s)
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'A' || c > 'F') {
			return nil, fmt.Errorf("%w: non uppercase hex digit %q", ErrInvalidUID, c)
		}
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidUID, err)
	}
	return NewUID(b)
}

// Hex returns the identifier as uppercase hex, two digits per byte and no
// separators (e.g. "04A32B1C").
func (u UID) Hex() string {
	return strings.ToUpper(hex.EncodeToString(u))
}

// String implements fmt.Stringer.
func (u UID) String() string {
	return u.Hex()
}

// Equal reports whether both identifiers hold the same bytes.
func (u UID) Equal(other UID) bool {
	return bytes.Equal(u, other)
}
