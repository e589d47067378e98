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

package frame

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitReassemblesToOriginal(t *testing.T) {
	t.Parallel()

	payload := make([]byte, 1000)
	for i := range payload {
		payload[i] = byte(i * 7)
	}

	for _, size := range []int{1, 3, 7, 64, 999, 1000, 1001, 4096} {
		fragments := Split(payload, size)
		require.Len(t, fragments, FragmentCount(len(payload), size), "fragment size %d", size)

		var joined []byte
		for i, frag := range fragments {
			assert.LessOrEqual(t, len(frag), size)
			if i < len(fragments)-1 {
				assert.Len(t, frag, size, "only the last fragment may be short")
			}
			joined = append(joined, frag...)
		}
		assert.Equal(t, payload, joined, "fragment size %d", size)
	}
}

func TestFragmentCount(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		length int
		size   int
		want   int
	}{
		{name: "empty payload", length: 0, size: 10, want: 1},
		{name: "exact fit", length: 10, size: 10, want: 1},
		{name: "one over", length: 11, size: 10, want: 2},
		{name: "many", length: 1006, size: 1006 / 3, want: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, FragmentCount(tt.length, tt.size))
		})
	}
}

func TestFragmentSize(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 1024-Overhead, FragmentSize(1024))
	assert.Equal(t, MaxFragmentLength, FragmentSize(1<<20))
}

func TestSplitEmptyPayload(t *testing.T) {
	t.Parallel()
	fragments := Split(nil, 16)
	require.Len(t, fragments, 1)
	assert.Empty(t, fragments[0])
}

func TestTotalInfoRoundTrip(t *testing.T) {
	t.Parallel()

	payload := EncodeTotalInfo(42, 1<<33)
	require.Len(t, payload, 32)

	frags, total, err := DecodeTotalInfo(payload)
	require.NoError(t, err)
	assert.Equal(t, uint32(42), frags)
	assert.Equal(t, uint64(1<<33), total)

	_, _, err = DecodeTotalInfo(payload[:31])
	require.ErrorIs(t, err, ErrTotalInfo)

	overflow := bytes.Clone(payload)
	overflow[0] = 0x01
	_, _, err = DecodeTotalInfo(overflow)
	require.ErrorIs(t, err, ErrTotalInfo)
}

func TestResumeIndex(t *testing.T) {
	t.Parallel()

	idx, ok := DecodeResumeIndex(EncodeResumeIndex(0x01020304))
	require.True(t, ok)
	assert.Equal(t, uint32(0x01020304), idx)

	_, ok = DecodeResumeIndex([]byte{1, 2})
	assert.False(t, ok)
}
