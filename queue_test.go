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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func queuedIndexes(q *sendQueue) []uint32 {
	var out []uint32
	for _, f := range q.snapshot() {
		out = append(out, f.index)
	}
	return out
}

func TestSendQueuePriority(t *testing.T) {
	t.Parallel()

	q := newSendQueue(10)
	q.push(false, outboundFrame{index: 1}, outboundFrame{index: 2})
	q.push(true, outboundFrame{index: 7}, outboundFrame{index: 8})

	assert.Equal(t, []uint32{7, 8, 1, 2}, queuedIndexes(q))

	f, ok := q.pop()
	require.True(t, ok)
	assert.Equal(t, uint32(7), f.index)
	assert.Equal(t, 3, q.len())
}

func TestSendQueueEvictsFront(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		want        []uint32
		wantEvicted []uint32
		priority    bool
	}{
		{name: "append", priority: false, want: []uint32{3, 4, 5}, wantEvicted: []uint32{1, 2}},
		{name: "boost", priority: true, want: []uint32{4, 5, 3}, wantEvicted: []uint32{1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			q := newSendQueue(3)
			q.push(false, outboundFrame{index: 1}, outboundFrame{index: 2}, outboundFrame{index: 3})
			evicted := q.push(tt.priority, outboundFrame{index: 4}, outboundFrame{index: 5})

			var got []uint32
			for _, f := range evicted {
				got = append(got, f.index)
			}
			assert.Equal(t, tt.wantEvicted, got)
			assert.Equal(t, tt.want, queuedIndexes(q))
		})
	}
}

func TestSendQueueNotifies(t *testing.T) {
	t.Parallel()

	q := newSendQueue(4)
	q.push(false, outboundFrame{index: 1})
	select {
	case <-q.notify:
	default:
		t.Fatal("push should signal the send worker")
	}

	_, ok := q.pop()
	require.True(t, ok)
	_, ok = q.pop()
	assert.False(t, ok)
	assert.Nil(t, q.push(false))
}
