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
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// TagEvent is the only machine read message on the serial link.
type TagEvent struct {
	UID string `json:"nfc_uid"`
}

// EncodeEvent returns the newline terminated event line for uid, e.g.
// {"nfc_uid":"DEADBEEF"}.
func EncodeEvent(uid UID) ([]byte, error) {
	if len(uid) == 0 {
		return nil, ErrInvalidUID
	}
	line, err := json.Marshal(TagEvent{UID: uid.Hex()})
	if err != nil {
		return nil, fmt.Errorf("failed to encode tag event: %w", err)
	}
	return append(line, '\n'), nil
}

// WriteEvent writes the event line for uid to w in a single Write call.
func WriteEvent(w io.Writer, uid UID) error {
	line, err := EncodeEvent(uid)
	if err != nil {
		return err
	}
	if _, err := w.Write(line); err != nil {
		return fmt.Errorf("failed to write tag event: %w", err)
	}
	return nil
}

// ParseEvent decodes one line received from a reader. Free text diagnostic
// lines yield ErrNotEvent; lines that look like JSON but do not carry a valid
// UID yield ErrMalformedEvent.
func ParseEvent(line string) (UID, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "{") {
		return nil, ErrNotEvent
	}

	var event TagEvent
	if err := json.Unmarshal([]byte(line), &event); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}
	if event.UID == "" {
		return nil, fmt.Errorf("%w: missing nfc_uid", ErrMalformedEvent)
	}

	uid, err := ParseUID(event.UID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}
	return uid, nil
}
