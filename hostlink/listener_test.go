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

package hostlink

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	uidreader "github.com/ZaparooProject/go-uidreader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// scriptPort replays chunks, one per Read. A nil chunk is a read timeout,
// an error chunk fails that Read. After the script it returns EOF.
type scriptPort struct {
	reads   []any
	timeout time.Duration
	mu      sync.Mutex
}

func (p *scriptPort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.reads) == 0 {
		return 0, io.EOF
	}
	next := p.reads[0]
	p.reads = p.reads[1:]
	switch v := next.(type) {
	case string:
		n := copy(b, v)
		if n < len(v) {
			p.reads = append([]any{v[n:]}, p.reads...)
		}
		return n, nil
	case error:
		return 0, v
	default:
		return 0, nil
	}
}

func (*scriptPort) Write(b []byte) (int, error) { return len(b), nil }
func (*scriptPort) Close() error                { return nil }

func (p *scriptPort) SetReadTimeout(t time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.timeout = t
	return nil
}

type collector struct {
	uids []string
	mu   sync.Mutex
	err  error
}

func (c *collector) handle(_ context.Context, uid uidreader.UID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.uids = append(c.uids, uid.Hex())
	return c.err
}

func (c *collector) got() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.uids...)
}

func newTestListener(t *testing.T, port Port, c *collector) (*Listener, *bytes.Buffer) {
	t.Helper()
	logs := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(logs, nil))
	l, err := NewListener(port, c.handle, WithLogger(logger), WithClock(uidreader.NewFakeClock()))
	require.NoError(t, err)
	return l, logs
}

func TestListener_Run(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		reads    []any
		want     []string
		wantLogs []string
	}{
		{
			name: "banner and events",
			reads: []any{
				"NFC Reader (PN532) Starting...\nPN532 Firmware Version: 0x32010607 (PN532 v1.6)\n",
				"NFC Reader Ready. Waiting for cards...\n",
				`{"nfc_uid":"5A41B914524189"}` + "\n",
				`{"nfc_uid":"DEADBEEF"}` + "\r\n",
			},
			want: []string{"5A41B914524189", "DEADBEEF"},
		},
		{
			name:  "line split across reads",
			reads: []any{`{"nfc_u`, nil, `id":"0A`, `0B"}` + "\n"},
			want:  []string{"0A0B"},
		},
		{
			name:  "trailing line without newline at EOF",
			reads: []any{`{"nfc_uid":"01020304"}`},
			want:  []string{"01020304"},
		},
		{
			name:     "malformed JSON is reported",
			reads:    []any{"{not json\n", `{"other":1}` + "\n", `{"nfc_uid":"abc"}` + "\n"},
			wantLogs: []string{"malformed tag event"},
		},
		{
			name:     "read error is retried",
			reads:    []any{errors.New("device reports readiness to read but returned no data"), `{"nfc_uid":"AA"}` + "\n"},
			want:     []string{"AA"},
			wantLogs: []string{"serial read failed"},
		},
		{
			name:     "overlong line dropped",
			reads:    []any{strings.Repeat("x", maxLineLength+10) + "\n", `{"nfc_uid":"BB"}` + "\n"},
			want:     []string{"BB"},
			wantLogs: []string{"dropping overlong line"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			port := &scriptPort{reads: tt.reads}
			c := &collector{}
			l, logs := newTestListener(t, port, c)

			require.NoError(t, l.Run(context.Background()))
			assert.Equal(t, tt.want, c.got())
			assert.Equal(t, readTimeout, port.timeout)
			for _, want := range tt.wantLogs {
				assert.Contains(t, logs.String(), want)
			}
		})
	}
}

func TestListener_HandlerErrorDoesNotStop(t *testing.T) {
	t.Parallel()

	port := &scriptPort{reads: []any{`{"nfc_uid":"01"}` + "\n" + `{"nfc_uid":"02"}` + "\n"}}
	c := &collector{err: errors.New("locker API unavailable")}
	l, logs := newTestListener(t, port, c)

	require.NoError(t, l.Run(context.Background()))
	assert.Equal(t, []string{"01", "02"}, c.got())
	assert.Contains(t, logs.String(), "tag handler failed")
}

// blockingPort times out forever until closed
type blockingPort struct {
	scriptPort
	done chan struct{}
}

func (p *blockingPort) Read([]byte) (int, error) {
	select {
	case <-p.done:
		return 0, io.EOF
	case <-time.After(time.Millisecond):
		return 0, nil
	}
}

func TestListener_Cancel(t *testing.T) {
	t.Parallel()

	port := &blockingPort{done: make(chan struct{})}
	defer close(port.done)
	l, _ := newTestListener(t, port, &collector{})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- l.Run(ctx) }()

	cancel()
	select {
	case err := <-errCh:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop")
	}
}

func TestNewListener_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewListener(nil, func(context.Context, uidreader.UID) error { return nil })
	require.Error(t, err)
	_, err = NewListener(&scriptPort{}, nil)
	require.Error(t, err)
}

func TestOpenPort_InvalidBaud(t *testing.T) {
	t.Parallel()

	_, err := OpenPort("/dev/null", 0)
	require.Error(t, err)
}
