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

import (
	"bytes"
	"errors"
	"fmt"
)

// Frame decoding errors
var (
	ErrTooLarge         = errors.New("frame data too large")
	ErrNoStartCode      = errors.New("frame start code not found")
	ErrLengthChecksum   = errors.New("frame length checksum mismatch")
	ErrDataChecksum     = errors.New("frame data checksum mismatch")
	ErrTruncated        = errors.New("frame truncated")
	ErrUnexpectedTFI    = errors.New("unexpected frame identifier")
	ErrUnexpectedAck    = errors.New("unexpected ACK frame")
	ErrUnexpectedNack   = errors.New("unexpected NACK frame")
	ErrErrorFrame       = errors.New("application level error frame")
	ErrEmptyFrameBody   = errors.New("empty frame body")
	errStartCodeMissing = fmt.Errorf("%w: need 0x00 0xFF", ErrNoStartCode)
)

// Build encodes a normal information frame carrying cmd and args
func Build(tfi, cmd byte, args []byte) ([]byte, error) {
	dataLen := 2 + len(args) // TFI + cmd + args
	if dataLen > MaxFrameDataLength {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, dataLen)
	}

	frm := make([]byte, 0, dataLen+Overhead)
	frm = append(frm, Preamble, StartCode1, StartCode2)
	frm = append(frm, byte(dataLen), CalculateLengthChecksum(byte(dataLen)))
	frm = append(frm, tfi, cmd)
	frm = append(frm, args...)
	frm = append(frm, CalculateDataChecksum(tfi, append([]byte{cmd}, args...)), Postamble)
	return frm, nil
}

// IsAck reports whether buf starts with an ACK frame
func IsAck(buf []byte) bool {
	return bytes.HasPrefix(buf, AckFrame)
}

// Parse finds the first frame in buf and returns its body after the TFI
// byte, i.e. the response code followed by the response data
func Parse(buf []byte, tfi byte) ([]byte, error) {
	off := bytes.Index(buf, []byte{StartCode1, StartCode2})
	if off < 0 {
		return nil, errStartCodeMissing
	}
	off += 2

	if len(buf) < off+2 {
		return nil, ErrTruncated
	}
	length, lcs := buf[off], buf[off+1]

	switch {
	case length == 0x00 && lcs == 0xFF:
		return nil, ErrUnexpectedAck
	case length == 0xFF && lcs == 0x00:
		return nil, ErrUnexpectedNack
	case length+lcs != 0:
		return nil, ErrLengthChecksum
	case length == 0:
		return nil, ErrEmptyFrameBody
	}

	body := off + 2
	if len(buf) < body+int(length)+1 {
		return nil, ErrTruncated
	}

	// Body plus DCS must sum to zero
	if ValidateChecksum(buf[body : body+int(length)+1]) {
		return nil, ErrDataChecksum
	}

	// Application level error frame: LEN=1, TFI=0x7F
	if length == 1 && buf[body] == 0x7F {
		return nil, ErrErrorFrame
	}

	if buf[body] != tfi {
		return nil, fmt.Errorf("%w: %02X", ErrUnexpectedTFI, buf[body])
	}

	data := make([]byte, int(length)-1)
	copy(data, buf[body+1:body+int(length)])
	return data, nil
}
