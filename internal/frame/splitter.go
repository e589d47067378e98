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

import "bytes"

// Splitter cuts whole frames out of a byte stream. Bytes before a header
// magic are discarded, so the splitter resynchronizes after line noise.
// It is not safe for concurrent use.
type Splitter struct {
	buf     []byte
	header  [HeaderLength]byte
	maxSize int
	dropped int
}

// NewSplitter creates a splitter for the given magic. Frames announcing more
// than maxFrameSize bytes are treated as noise.
func NewSplitter(header [HeaderLength]byte, maxFrameSize int) *Splitter {
	return &Splitter{header: header, maxSize: maxFrameSize}
}

// Write appends stream bytes. It never fails.
func (s *Splitter) Write(p []byte) (int, error) {
	s.buf = append(s.buf, p...)
	return len(p), nil
}

// Next returns the next complete frame, or false if more bytes are needed
func (s *Splitter) Next() ([]byte, bool) {
	for {
		start := bytes.Index(s.buf, s.header[:])
		if start < 0 {
			s.discardKeepingTail()
			return nil, false
		}
		if start > 0 {
			s.dropped += start
			s.buf = s.buf[start:]
		}

		size, ok := PeekLength(s.buf)
		if !ok {
			return nil, false
		}
		if size > s.maxSize {
			// Not a real frame: skip this magic and look for the next one
			s.dropped++
			s.buf = s.buf[1:]
			continue
		}
		if len(s.buf) < size {
			return nil, false
		}

		out := make([]byte, size)
		copy(out, s.buf[:size])
		s.buf = s.buf[size:]
		return out, true
	}
}

// Dropped returns how many noise bytes have been discarded so far
func (s *Splitter) Dropped() int {
	return s.dropped
}

// Buffered returns the number of bytes waiting for a complete frame
func (s *Splitter) Buffered() int {
	return len(s.buf)
}

// discardKeepingTail drops everything except a possible partial magic at the end
func (s *Splitter) discardKeepingTail() {
	keep := HeaderLength - 1
	if len(s.buf) <= keep {
		return
	}
	s.dropped += len(s.buf) - keep
	s.buf = append(s.buf[:0], s.buf[len(s.buf)-keep:]...)
}
