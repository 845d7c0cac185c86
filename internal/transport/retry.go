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

// Package transport provides internal polling helpers shared by the chip
// drivers
package transport

import (
	"context"
	"errors"
	"time"
)

// ErrDeadline is returned by PollUntil when the deadline passes before the
// operation reports completion
var ErrDeadline = errors.New("deadline reached while polling")

// RetryOperation represents one polling attempt
// Returns: data, shouldRetry, error
// - data: the result if successful
// - shouldRetry: true if the operation should run again
// - error: any permanent error that should stop polling
type RetryOperation[T any] func() (T, bool, error)

// PollUntil runs operation until it stops asking for a retry, the deadline
// passes or ctx is done. The operation always runs at least once.
func PollUntil[T any](ctx context.Context, deadline time.Time, interval time.Duration, operation RetryOperation[T]) (T, error) {
	var zero T

	for {
		result, shouldRetry, err := operation()
		if err != nil {
			return zero, err
		}
		if !shouldRetry {
			return result, nil
		}
		if !time.Now().Before(deadline) {
			return zero, ErrDeadline
		}
		if err := sleep(ctx, interval); err != nil {
			return zero, err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
