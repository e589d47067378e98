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

	"github.com/ZaparooProject/go-atomlink/internal/frame"
)

// Message is a received message, reassembled from one or more fragments
type Message struct {
	Payload []byte
	// TotalBytes is the size announced by a total-info frame, zero if none arrived
	TotalBytes uint64
	// Fragments is the number of fragments accepted so far
	Fragments uint32
	// TotalFragments is the count announced by a total-info frame, zero if none arrived
	TotalFragments uint32
	CorrelationID  uint16
	Command        uint16
	Sequence       byte
	UserSeq        byte
}

// Complete reports whether every announced fragment and byte arrived. A
// message without a total-info announcement is always complete.
func (m *Message) Complete() bool {
	if m.TotalFragments == 0 && m.TotalBytes == 0 {
		return true
	}
	return m.Fragments >= m.TotalFragments && uint64(len(m.Payload)) >= m.TotalBytes
}

// IsReply reports whether the message arrived in the reply direction
func (m *Message) IsReply() bool {
	return frame.IsReply(m.Sequence)
}

// NeedsFeedback reports whether the sender expects SendReply for this message
func (m *Message) NeedsFeedback() bool {
	return frame.NeedsFeedback(m.Sequence)
}

func (m *Message) clone() Message {
	c := *m
	c.Payload = append([]byte(nil), m.Payload...)
	return c
}

type reassemblyEntry struct {
	msg       Message
	lastIndex uint32
}

// acceptOutcome is the result of offering a data fragment to the table.
// expected is the index the entry was waiting for; request is set when the
// peer should be asked to resend from it.
type acceptOutcome struct {
	result   DecodeResult
	expected uint32
	evicted  uint16
	request  bool
	didEvict bool
}

// reassemblyTable accumulates data fragments by correlation id
type reassemblyTable struct {
	rows map[uint16]*reassemblyEntry
	// requested remembers the resume index already asked for per id, so a
	// burst of out of order fragments triggers one request
	requested map[uint16]uint32
	// consumed holds the last index of a message pulled before its sender
	// finished, so the next fragment continues it instead of failing order
	consumed map[uint16]uint32
	capacity int
	mu       sync.Mutex
}

func newReassemblyTable(capacity int) *reassemblyTable {
	return &reassemblyTable{
		rows:      make(map[uint16]*reassemblyEntry),
		requested: make(map[uint16]uint32),
		consumed:  make(map[uint16]uint32),
		capacity:  capacity,
	}
}

// accept validates fragment ordering and then the checksum, and appends the
// fragment only when both hold. Index 1 on an entry that already holds
// fragments starts a new message under a reused id. A message pulled early
// continues at the index after the last one handed out.
func (t *reassemblyTable) accept(f *frame.Frame, checksumOK bool) acceptOutcome {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := f.CorrelationID
	entry, exists := t.rows[id]
	restart := exists && f.Index == 1 && entry.lastIndex > 0

	expected := uint32(1)
	watermark, continued := t.consumed[id]
	switch {
	case exists && !restart:
		expected = entry.lastIndex + 1
	case !exists && continued && f.Index != 1:
		expected = watermark + 1
	}

	switch {
	case f.Index == 0 || f.Index < expected:
		return acceptOutcome{result: PackageNumError, expected: expected}
	case f.Index > expected:
		return acceptOutcome{result: PackageNumError, expected: expected, request: t.markRequested(id, expected)}
	case !checksumOK:
		return acceptOutcome{result: ChecksumError, expected: expected, request: t.markRequested(id, expected)}
	}

	out := acceptOutcome{result: NoError, expected: expected}
	if !exists {
		out.evicted, out.didEvict = t.makeRoom()
		entry = &reassemblyEntry{}
		t.rows[id] = entry
	} else if restart {
		*entry = reassemblyEntry{}
	}

	if entry.lastIndex == 0 {
		entry.msg.CorrelationID = id
		entry.msg.Command = f.Command
		entry.msg.Sequence = f.Sequence
		entry.msg.UserSeq = f.UserSeq
	}
	entry.msg.Payload = append(entry.msg.Payload, f.Payload...)
	entry.msg.Fragments++
	entry.lastIndex = f.Index
	delete(t.requested, id)
	delete(t.consumed, id)
	return out
}

// setTotals records a total-info announcement. An announcement for an id
// that already holds fragments starts a fresh entry.
func (t *reassemblyTable) setTotals(id uint16, fragments uint32, totalBytes uint64) (evicted uint16, didEvict bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, exists := t.rows[id]
	switch {
	case !exists:
		evicted, didEvict = t.makeRoom()
		entry = &reassemblyEntry{}
		t.rows[id] = entry
	case entry.lastIndex > 0:
		*entry = reassemblyEntry{}
	}
	entry.msg.CorrelationID = id
	entry.msg.TotalFragments = fragments
	entry.msg.TotalBytes = totalBytes
	delete(t.requested, id)
	delete(t.consumed, id)
	return evicted, didEvict
}

// makeRoom evicts the smallest id when the table is full. Callers hold t.mu.
func (t *reassemblyTable) makeRoom() (uint16, bool) {
	if len(t.rows) < t.capacity {
		return 0, false
	}
	id := smallestKey(t.rows)
	delete(t.rows, id)
	delete(t.requested, id)
	return id, true
}

// markRequested reports whether a resend from index has not been asked for yet
func (t *reassemblyTable) markRequested(id uint16, index uint32) bool {
	if prev, ok := t.requested[id]; ok && prev == index {
		return false
	}
	if len(t.requested) >= t.capacity {
		clear(t.requested)
	}
	t.requested[id] = index
	return true
}

// pullSmallest removes and returns the message with the smallest id that
// holds at least one fragment
func (t *reassemblyTable) pullSmallest() (Message, bool) {
	return t.pullSmallestWhere(func(*Message) bool { return true })
}

// pullSmallestComplete is pullSmallest restricted to messages whose
// announced totals have arrived
func (t *reassemblyTable) pullSmallestComplete() (Message, bool) {
	return t.pullSmallestWhere((*Message).Complete)
}

func (t *reassemblyTable) pullSmallestWhere(ready func(*Message) bool) (Message, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	found := false
	var smallest uint16
	for id, entry := range t.rows {
		if entry.msg.Fragments == 0 || !ready(&entry.msg) {
			continue
		}
		if !found || id < smallest {
			smallest = id
			found = true
		}
	}
	if !found {
		return Message{}, false
	}
	return t.removeLocked(smallest), true
}

// pull removes and returns the message for id if it holds any fragment
func (t *reassemblyTable) pull(id uint16) (Message, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.rows[id]
	if !ok || entry.msg.Fragments == 0 {
		return Message{}, false
	}
	return t.removeLocked(id), true
}

// peek returns a copy of the message for id without removing it
func (t *reassemblyTable) peek(id uint16) (Message, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.rows[id]
	if !ok || entry.msg.Fragments == 0 {
		return Message{}, false
	}
	return entry.msg.clone(), true
}

// removeLocked hands out the entry for id and leaves a watermark at its
// last index. Callers hold t.mu.
func (t *reassemblyTable) removeLocked(id uint16) Message {
	entry := t.rows[id]
	delete(t.rows, id)
	delete(t.requested, id)
	if _, ok := t.consumed[id]; !ok && len(t.consumed) >= t.capacity {
		delete(t.consumed, smallestKey(t.consumed))
	}
	t.consumed[id] = entry.lastIndex
	return entry.msg
}

func (t *reassemblyTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.rows)
}
