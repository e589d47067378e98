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

package atomlink

import (
	"context"
	"sync"
	"sync/atomic"
)

// WorkerState is the lifecycle state of a link worker
type WorkerState int32

// Worker states
const (
	WorkerIdle WorkerState = iota
	WorkerRunning
	WorkerStopRequested
	WorkerStopped
)

func (s WorkerState) String() string {
	switch s {
	case WorkerIdle:
		return "idle"
	case WorkerRunning:
		return "running"
	case WorkerStopRequested:
		return "stop_requested"
	case WorkerStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// worker runs one loop goroutine. Starting a running worker and stopping
// an idle one are no-ops; stop waits for the goroutine to return.
type worker struct {
	cancel context.CancelFunc
	done   chan struct{}
	state  atomic.Int32
	mu     sync.Mutex
}

func (w *worker) State() WorkerState {
	return WorkerState(w.state.Load())
}

// start launches run in a goroutine. It reports false if already running.
func (w *worker) start(parent context.Context, run func(ctx context.Context)) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch w.State() {
	case WorkerRunning, WorkerStopRequested:
		return false
	case WorkerIdle, WorkerStopped:
	}

	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})
	w.cancel = cancel
	w.done = done
	w.state.Store(int32(WorkerRunning))

	go func() {
		defer close(done)
		defer cancel()
		defer w.state.Store(int32(WorkerStopped))
		run(ctx)
	}()
	return true
}

// stop signals the loop and joins it
func (w *worker) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.done == nil {
		return
	}
	w.state.CompareAndSwap(int32(WorkerRunning), int32(WorkerStopRequested))
	w.cancel()
	<-w.done
	w.done = nil
	w.cancel = nil
}
