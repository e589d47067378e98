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

import "sync"

// outboundFrame is one encoded frame waiting for the send worker
type outboundFrame struct {
	data  []byte
	index uint32
	id    uint16
}

// sendQueue is the bounded outbound FIFO. When full, the oldest waiting
// frame is dropped before the new one goes in. Frames pushed with priority
// go to the front instead of the back.
type sendQueue struct {
	notify   chan struct{}
	frames   []outboundFrame
	capacity int
	mu       sync.Mutex
}

func newSendQueue(capacity int) *sendQueue {
	return &sendQueue{
		capacity: capacity,
		notify:   make(chan struct{}, 1),
		frames:   make([]outboundFrame, 0, min(capacity, 64)),
	}
}

// push adds frames in order. With priority the whole batch lands at the
// front, keeping its internal order. The dropped frames are returned.
func (q *sendQueue) push(priority bool, frames ...outboundFrame) []outboundFrame {
	if len(frames) == 0 {
		return nil
	}

	var evicted []outboundFrame
	placed := 0 // frames of this priority batch sitting at the front
	q.mu.Lock()
	for _, f := range frames {
		if len(q.frames) >= q.capacity {
			if placed >= len(q.frames) {
				// the batch alone fills the queue; drop its oldest frame
				placed--
				evicted = append(evicted, q.frames[0])
				q.frames = q.frames[1:]
			} else {
				evicted = append(evicted, q.frames[placed])
				q.frames = append(q.frames[:placed], q.frames[placed+1:]...)
			}
		}
		if !priority {
			q.frames = append(q.frames, f)
			continue
		}
		q.frames = append(q.frames, outboundFrame{})
		copy(q.frames[placed+1:], q.frames[placed:])
		q.frames[placed] = f
		placed++
	}
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return evicted
}

// pop removes and returns the front frame
func (q *sendQueue) pop() (outboundFrame, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.frames) == 0 {
		return outboundFrame{}, false
	}
	f := q.frames[0]
	q.frames[0] = outboundFrame{}
	q.frames = q.frames[1:]
	return f, true
}

func (q *sendQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.frames)
}

// snapshot copies the queued frames, front first
func (q *sendQueue) snapshot() []outboundFrame {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]outboundFrame, len(q.frames))
	copy(out, q.frames)
	return out
}
