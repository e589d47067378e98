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
	"sync"
	"time"
)

// pendingRequest is a sent request still waiting for its reply frame
type pendingRequest struct {
	createdAt time.Time
	payload   []byte
	command   uint16
	sequence  byte
	userSeq   byte
}

// pendingTable maps correlation ids to outstanding sync-feedback requests
type pendingTable struct {
	rows     map[uint16]pendingRequest
	capacity int
	mu       sync.Mutex
}

func newPendingTable(capacity int) *pendingTable {
	return &pendingTable{
		rows:     make(map[uint16]pendingRequest),
		capacity: capacity,
	}
}

// insert stores a row, replacing any row with the same id. When the table
// is full the smallest id is evicted in the same critical section.
func (t *pendingTable) insert(id uint16, req pendingRequest) (evicted uint16, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.rows[id]; !exists && len(t.rows) >= t.capacity {
		evicted = smallestKey(t.rows)
		delete(t.rows, evicted)
		ok = true
	}
	t.rows[id] = req
	return evicted, ok
}

func (t *pendingTable) remove(id uint16) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.rows[id]; !ok {
		return false
	}
	delete(t.rows, id)
	return true
}

func (t *pendingTable) has(id uint16) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.rows[id]
	return ok
}

func (t *pendingTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.rows)
}

// expire drops rows created before cutoff and returns their ids
func (t *pendingTable) expire(cutoff time.Time) []uint16 {
	t.mu.Lock()
	defer t.mu.Unlock()
	var expired []uint16
	for id, req := range t.rows {
		if req.createdAt.Before(cutoff) {
			expired = append(expired, id)
			delete(t.rows, id)
		}
	}
	return expired
}

// smallestKey returns the numerically smallest key of a non-empty map
func smallestKey[V any](m map[uint16]V) uint16 {
	first := true
	var smallest uint16
	for id := range m {
		if first || id < smallest {
			smallest = id
			first = false
		}
	}
	return smallest
}
