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

package transport

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPollUntil(t *testing.T) {
	t.Parallel()

	permanent := errors.New("bus error")

	tests := []struct {
		wantErr   error
		name      string
		results   []bool
		wantCalls int
		wantValue int
		failAt    int
	}{
		{name: "first_attempt", results: []bool{false}, wantCalls: 1, wantValue: 1},
		{name: "third_attempt", results: []bool{true, true, false}, wantCalls: 3, wantValue: 3},
		{name: "permanent_error", results: []bool{true, true}, failAt: 2, wantCalls: 2, wantErr: permanent},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			calls := 0
			got, err := PollUntil(context.Background(), time.Now().Add(time.Minute), 0, func() (int, bool, error) {
				calls++
				if calls == tt.failAt {
					return 0, false, permanent
				}
				return calls, tt.results[calls-1], nil
			})

			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantValue, got)
		})
	}
}

func TestPollUntil_Deadline(t *testing.T) {
	t.Parallel()

	calls := 0
	_, err := PollUntil(context.Background(), time.Now().Add(5*time.Millisecond), time.Millisecond,
		func() (struct{}, bool, error) {
			calls++
			return struct{}{}, true, nil
		})

	require.ErrorIs(t, err, ErrDeadline)
	assert.Greater(t, calls, 1)
}

func TestPollUntil_PastDeadlineRunsOnce(t *testing.T) {
	t.Parallel()

	calls := 0
	got, err := PollUntil(context.Background(), time.Now().Add(-time.Second), time.Millisecond,
		func() (string, bool, error) {
			calls++
			return "ready", false, nil
		})

	require.NoError(t, err)
	assert.Equal(t, "ready", got)
	assert.Equal(t, 1, calls)
}

func TestPollUntil_ContextCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := PollUntil(ctx, time.Now().Add(time.Minute), time.Millisecond,
		func() (int, bool, error) {
			calls++
			if calls == 3 {
				cancel()
			}
			return 0, true, nil
		})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, calls)
}
