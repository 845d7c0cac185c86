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
	"fmt"
	"time"
)

// Target is an ISO14443A tag found by InListPassiveTarget
type Target struct {
	UID     []byte
	SensRes [2]byte
	Number  byte
	SelRes  byte
}

// ReadPassiveTargetIDContext looks for one ISO14443A tag and waits at most
// timeout for it. It returns ErrNoTagDetected when no tag answered in time;
// the pending InListPassiveTarget is aborted by the transport.
func (d *Device) ReadPassiveTargetIDContext(ctx context.Context, timeout time.Duration) (*Target, error) {
	cmdCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		cmdCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	resp, err := d.transport.SendCommandContext(cmdCtx, cmdInListPassiveTarget, []byte{0x01, brTy106kbpsTypeA})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, context.DeadlineExceeded) || IsTimeout(err) {
			return nil, ErrNoTagDetected
		}
		return nil, fmt.Errorf("InListPassiveTarget failed: %w", err)
	}

	return parseTarget(resp)
}

// parseTarget decodes an InListPassiveTarget response for 106 kbps type A:
// [0x4B, NbTg, Tg, SENS_RES(2), SEL_RES, NFCIDLength, NFCID...]
func parseTarget(resp []byte) (*Target, error) {
	if len(resp) < 2 || resp[0] != cmdInListPassiveTarget+1 {
		return nil, fmt.Errorf("%w: unexpected InListPassiveTarget response %X", ErrInvalidResponse, resp)
	}
	if resp[1] == 0 {
		return nil, ErrNoTagDetected
	}
	if len(resp) < 7 {
		return nil, fmt.Errorf("%w: target data too short: %d bytes", ErrInvalidResponse, len(resp))
	}

	uidLen := int(resp[6])
	if uidLen == 0 || len(resp) < 7+uidLen {
		return nil, fmt.Errorf("%w: UID length %d with %d bytes left", ErrInvalidResponse, uidLen, len(resp)-7)
	}

	uid := make([]byte, uidLen)
	copy(uid, resp[7:7+uidLen])

	return &Target{
		Number:  resp[2],
		SensRes: [2]byte{resp[3], resp[4]},
		SelRes:  resp[5],
		UID:     uid,
	}, nil
}
