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
	"context"
	"sync"
	"sync/atomic"
	"time"

	atomlink "github.com/ZaparooProject/go-atomlink"
)

// Source is where the actor pulls messages from; *atomlink.Link satisfies
// it. Sources that also implement PullCompleted are drained through it.
type Source interface {
	PullReceived() (atomlink.Message, bool)
}

// completedSource is a Source that can hold back messages still waiting
// for announced fragments
type completedSource interface {
	PullCompleted() (atomlink.Message, bool)
}

// Callbacks defines callback functions for link events
type Callbacks struct {
	// OnMessage receives every pulled message. A returned error is counted
	// and does not stop polling.
	OnMessage func(msg atomlink.Message) error
	// OnIdle is called once after IdleTimeout passes without a message
	OnIdle func()
}

// Metrics tracks operational metrics for an Actor
type Metrics struct {
	PollCycles      int64         // Total number of polling cycles
	Messages        int64         // Number of messages delivered
	Incomplete      int64         // Messages pulled before every fragment arrived
	CallbackErrors  int64         // Number of OnMessage errors
	LastPollLatency time.Duration // Duration of last drain
}

// Actor drains a Source on its own goroutine
type Actor struct {
	pull      func() (atomlink.Message, bool)
	config    *Config
	callbacks Callbacks
	cancel    context.CancelFunc
	done      chan struct{}
	activity  activity
	started   time.Time
	mu        sync.Mutex
	// Atomic counters for metrics
	pollCycles      atomic.Int64
	messages        atomic.Int64
	incomplete      atomic.Int64
	callbackErrors  atomic.Int64
	lastPollLatency atomic.Int64 // in nanoseconds
	currentInterval atomic.Int64 // in nanoseconds
}

// NewActor creates an actor for source. A nil config uses DefaultConfig.
func NewActor(source Source, config *Config, callbacks Callbacks) (*Actor, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	a := &Actor{
		pull:      source.PullReceived,
		config:    config,
		callbacks: callbacks,
	}
	if cs, ok := source.(completedSource); ok {
		a.pull = cs.PullCompleted
	}
	a.currentInterval.Store(config.PollInterval.Nanoseconds())
	return a, nil
}

// Start launches the polling goroutine. Starting a running actor is a no-op.
func (a *Actor) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.done != nil {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.done = make(chan struct{})
	a.started = time.Now()
	a.activity.reset()
	a.currentInterval.Store(a.config.PollInterval.Nanoseconds())

	go a.pollLoop(runCtx, a.done)
	return nil
}

// Stop cancels the polling goroutine and waits for it to exit. Stopping an
// actor that is not running is a no-op.
func (a *Actor) Stop() {
	a.mu.Lock()
	cancel, done := a.cancel, a.done
	a.cancel, a.done = nil, nil
	a.mu.Unlock()

	if done == nil {
		return
	}
	cancel()
	<-done
	a.activity.reset()
}

// Running reports whether the polling goroutine is active
func (a *Actor) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.done != nil
}

func (a *Actor) pollLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(a.config.PollInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		a.drain(ctx)
		a.adjustPollInterval(time.Now())
		timer.Reset(a.CurrentPollInterval())
	}
}

// drain delivers every message currently available
func (a *Actor) drain(ctx context.Context) {
	start := time.Now()
	defer func() {
		a.pollCycles.Add(1)
		a.lastPollLatency.Store(time.Since(start).Nanoseconds())
	}()

	for ctx.Err() == nil {
		msg, ok := a.pull()
		if !ok {
			return
		}
		a.messages.Add(1)
		if !msg.Complete() {
			a.incomplete.Add(1)
		}
		a.activity.markActive(time.Now(), a.config.IdleTimeout, a.callbacks.OnIdle)
		if a.callbacks.OnMessage != nil {
			if err := a.callbacks.OnMessage(msg); err != nil {
				a.callbackErrors.Add(1)
			}
		}
	}
}

// adjustPollInterval slows polling down once the peer has been quiet for
// SlowdownAfter and restores it as soon as a message arrives
func (a *Actor) adjustPollInterval(now time.Time) {
	a.mu.Lock()
	started := a.started
	a.mu.Unlock()

	interval := a.config.PollInterval
	if a.config.SlowdownAfter > 0 && a.activity.sinceLast(now, started) > a.config.SlowdownAfter {
		interval = a.config.slowInterval()
	}
	a.currentInterval.Store(interval.Nanoseconds())
}

// State returns whether messages arrived within IdleTimeout
func (a *Actor) State() ActivityState {
	return a.activity.current()
}

// GetMetrics returns current operational metrics
func (a *Actor) GetMetrics() Metrics {
	return Metrics{
		PollCycles:      a.pollCycles.Load(),
		Messages:        a.messages.Load(),
		Incomplete:      a.incomplete.Load(),
		CallbackErrors:  a.callbackErrors.Load(),
		LastPollLatency: time.Duration(a.lastPollLatency.Load()),
	}
}

// CurrentPollInterval returns the current adaptive polling interval
func (a *Actor) CurrentPollInterval() time.Duration {
	return time.Duration(a.currentInterval.Load())
}
