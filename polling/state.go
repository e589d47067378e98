// go-atomlink
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-atomlink.
//
// go-atomlink is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-atomlink is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-atomlink; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package polling

import (
	"sync"
	"time"
)

// ActivityState tells whether the peer has been sending recently
type ActivityState int

const (
	StateIdle ActivityState = iota
	StateActive
)

func (s ActivityState) String() string {
	if s == StateActive {
		return "active"
	}
	return "idle"
}

// activity tracks the last message time and runs the idle timer
type activity struct {
	lastSeen  time.Time
	idleTimer *time.Timer
	state     ActivityState
	mu        sync.Mutex
}

// markActive records a message and re-arms the idle timer. onIdle runs on
// its own goroutine once timeout passes without another message.
func (a *activity) markActive(now time.Time, timeout time.Duration, onIdle func()) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.state = StateActive
	a.lastSeen = now
	if a.idleTimer != nil {
		a.idleTimer.Stop()
		a.idleTimer = nil
	}
	if timeout <= 0 {
		return
	}
	a.idleTimer = time.AfterFunc(timeout, func() {
		a.mu.Lock()
		if a.state != StateActive || time.Since(a.lastSeen) < timeout {
			a.mu.Unlock()
			return
		}
		a.state = StateIdle
		a.idleTimer = nil
		a.mu.Unlock()
		if onIdle != nil {
			onIdle()
		}
	})
}

// sinceLast returns how long ago the last message arrived, measured from start
// when nothing arrived yet
func (a *activity) sinceLast(now, start time.Time) time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.lastSeen.IsZero() {
		return now.Sub(start)
	}
	return now.Sub(a.lastSeen)
}

func (a *activity) current() ActivityState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// reset returns to idle without running the idle callback
func (a *activity) reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = StateIdle
	a.lastSeen = time.Time{}
	if a.idleTimer != nil {
		a.idleTimer.Stop()
		a.idleTimer = nil
	}
}
