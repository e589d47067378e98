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
	"encoding/binary"
	"errors"
)

// ErrTotalInfo is returned for a total-info payload of the wrong size
var ErrTotalInfo = errors.New("frame: malformed total-info payload")

// FragmentSize returns the payload capacity of one frame for a maximum frame size
func FragmentSize(maxFrameSize int) int {
	size := maxFrameSize - Overhead
	if size > MaxFragmentLength {
		size = MaxFragmentLength
	}
	return size
}

// FragmentCount returns ceil(length/fragmentSize). An empty payload still
// travels as one empty fragment.
func FragmentCount(length, fragmentSize int) int {
	if length == 0 {
		return 1
	}
	return (length + fragmentSize - 1) / fragmentSize
}

// Split cuts a payload into ordered fragments of at most fragmentSize bytes.
// The fragments alias the payload.
func Split(payload []byte, fragmentSize int) [][]byte {
	count := FragmentCount(len(payload), fragmentSize)
	fragments := make([][]byte, 0, count)
	if len(payload) == 0 {
		return append(fragments, []byte{})
	}
	for start := 0; start < len(payload); start += fragmentSize {
		end := start + fragmentSize
		if end > len(payload) {
			end = len(payload)
		}
		fragments = append(fragments, payload[start:end])
	}
	return fragments
}

// EncodeTotalInfo builds a total-info payload: two 16-byte big-endian counters,
// fragment count then byte count
func EncodeTotalInfo(fragments uint32, totalBytes uint64) []byte {
	buf := make([]byte, 2*TotalInfoFieldLength)
	binary.BigEndian.PutUint32(buf[TotalInfoFieldLength-4:TotalInfoFieldLength], fragments)
	binary.BigEndian.PutUint64(buf[2*TotalInfoFieldLength-8:], totalBytes)
	return buf
}

// DecodeTotalInfo parses a total-info payload. Counters wider than the
// fields they are stored in are rejected.
func DecodeTotalInfo(payload []byte) (fragments uint32, totalBytes uint64, err error) {
	if len(payload) != 2*TotalInfoFieldLength {
		return 0, 0, ErrTotalInfo
	}
	for _, b := range payload[:TotalInfoFieldLength-4] {
		if b != 0 {
			return 0, 0, ErrTotalInfo
		}
	}
	for _, b := range payload[TotalInfoFieldLength : 2*TotalInfoFieldLength-8] {
		if b != 0 {
			return 0, 0, ErrTotalInfo
		}
	}
	fragments = binary.BigEndian.Uint32(payload[TotalInfoFieldLength-4 : TotalInfoFieldLength])
	totalBytes = binary.BigEndian.Uint64(payload[2*TotalInfoFieldLength-8:])
	return fragments, totalBytes, nil
}

// EncodeResumeIndex builds the payload of a lost-package or wrong-data request
func EncodeResumeIndex(index uint32) []byte {
	buf := make([]byte, IndexLength)
	binary.BigEndian.PutUint32(buf, index)
	return buf
}

// DecodeResumeIndex parses the payload of a lost-package or wrong-data request
func DecodeResumeIndex(payload []byte) (uint32, bool) {
	if len(payload) != IndexLength {
		return 0, false
	}
	return binary.BigEndian.Uint32(payload), true
}
