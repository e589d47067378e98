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
	"time"
)

// mockReceiveWait bounds how long MockTransport.Receive waits for a frame
const mockReceiveWait = 10 * time.Millisecond

// MockTransport is an in-memory transport for tests. Frames passed to
// Send are recorded and, when the mock is one end of a pipe, delivered to
// the other end. Frames queued with Inject are returned by Receive.
type MockTransport struct {
	// SendHook, when set, may rewrite each outgoing frame or return nil to drop it
	SendHook func(frame []byte) []byte
	// SendErr, when set, is consulted before each send
	SendErr func(frame []byte) error
	peer    *MockTransport
	arrived chan struct{}
	sentCh  chan struct{}
	sent    [][]byte
	inbound [][]byte
	mu      sync.Mutex
	closed  bool
}

// NewMockTransport creates an unconnected mock transport
func NewMockTransport() *MockTransport {
	return &MockTransport{
		arrived: make(chan struct{}, 1),
		sentCh:  make(chan struct{}, 1),
	}
}

// NewPipe creates two mock transports wired back to back
func NewPipe() (a, b *MockTransport) {
	a = NewMockTransport()
	b = NewMockTransport()
	a.peer = b
	b.peer = a
	return a, b
}

// Send records frame and forwards it to the peer, if any
func (m *MockTransport) Send(frame []byte) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return NewClosedError("Send", "mock")
	}
	hook, sendErr, peer := m.SendHook, m.SendErr, m.peer
	m.mu.Unlock()

	if sendErr != nil {
		if err := sendErr(frame); err != nil {
			return err
		}
	}

	data := append([]byte(nil), frame...)
	if hook != nil {
		data = hook(data)
	}

	m.mu.Lock()
	m.sent = append(m.sent, append([]byte(nil), frame...))
	m.mu.Unlock()
	signal(m.sentCh)

	if data != nil && peer != nil {
		peer.Inject(data)
	}
	return nil
}

// Receive returns the next injected frame, waiting briefly for one
func (m *MockTransport) Receive(ctx context.Context) ([]byte, error) {
	timer := time.NewTimer(mockReceiveWait)
	defer timer.Stop()

	for {
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return nil, NewClosedError("Receive", "mock")
		}
		if len(m.inbound) > 0 {
			f := m.inbound[0]
			m.inbound = m.inbound[1:]
			m.mu.Unlock()
			return f, nil
		}
		m.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			return nil, nil
		case <-m.arrived:
		}
	}
}

// Inject queues a frame for Receive
func (m *MockTransport) Inject(frame []byte) {
	m.mu.Lock()
	m.inbound = append(m.inbound, append([]byte(nil), frame...))
	m.mu.Unlock()
	signal(m.arrived)
}

// Sent returns a copy of every frame passed to Send
func (m *MockTransport) Sent() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.sent))
	for i, f := range m.sent {
		out[i] = append([]byte(nil), f...)
	}
	return out
}

// ResetSent forgets the recorded frames
func (m *MockTransport) ResetSent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = nil
}

// WaitForSent waits until at least n frames were sent and returns them.
// ok is false if the timeout passed first.
func (m *MockTransport) WaitForSent(n int, timeout time.Duration) (frames [][]byte, ok bool) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		if sent := m.Sent(); len(sent) >= n {
			return sent, true
		}
		select {
		case <-m.sentCh:
		case <-deadline.C:
			return m.Sent(), false
		}
	}
}

// Close marks the transport closed
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Type returns TransportMock
func (*MockTransport) Type() TransportType {
	return TransportMock
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
