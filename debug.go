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
	"fmt"
	"log/slog"
	"sync/atomic"
)

var debugEnabled atomic.Bool

// SetDebugEnabled turns protocol level tracing on or off for all packages of
// this module.
func SetDebugEnabled(enabled bool) {
	debugEnabled.Store(enabled)
}

// DebugEnabled reports whether protocol tracing is on.
func DebugEnabled() bool {
	return debugEnabled.Load()
}

// Debugf logs a protocol trace at debug level when tracing is enabled.
func Debugf(format string, args ...any) {
	if !debugEnabled.Load() {
		return
	}
	slog.Debug(fmt.Sprintf(format, args...))
}
