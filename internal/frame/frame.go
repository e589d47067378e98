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
	"fmt"
)

// Decode errors
var (
	ErrHeader = errors.New("frame: header magic mismatch")
	ErrLength = errors.New("frame: length mismatch")
)

// MaxFragmentLength is the largest payload fragment the 2-byte length field can describe
const MaxFragmentLength = 0xFFFF

// Frame is one decoded wire frame
type Frame struct {
	Payload       []byte
	Index         uint32
	CorrelationID uint16
	Length        uint16
	Checksum      uint16
	Command       uint16
	Sequence      byte
	UserSeq       byte
}

// SysCommand returns the system command carried by the sequence byte
func (f *Frame) SysCommand() SysCommand {
	return SysCommandOf(f.Sequence)
}

// IsReply reports whether the frame travels in the reply direction
func (f *Frame) IsReply() bool {
	return IsReply(f.Sequence)
}

// NeedsFeedback reports whether the frame asks for a synchronous reply
func (f *Frame) NeedsFeedback() bool {
	return NeedsFeedback(f.Sequence)
}

// Encode serializes a frame. Length and Checksum are computed from the
// payload and command; values already set on f are ignored.
func Encode(header [HeaderLength]byte, f *Frame) []byte {
	buf := make([]byte, Overhead+len(f.Payload))
	copy(buf[:HeaderLength], header[:])
	buf[offSequence] = f.Sequence
	buf[offUserSeq] = f.UserSeq
	binary.BigEndian.PutUint16(buf[offCorrelationID:], f.CorrelationID)
	binary.BigEndian.PutUint32(buf[offIndex:], f.Index)
	binary.BigEndian.PutUint16(buf[offDataLength:], uint16(len(f.Payload)))
	binary.BigEndian.PutUint16(buf[offChecksum:], Checksum(f.Command, f.Payload))
	binary.BigEndian.PutUint16(buf[offCommand:], f.Command)
	copy(buf[offPayload:], f.Payload)
	return buf
}

// Decode parses a raw frame. The header magic is checked first and nothing
// else is trusted on mismatch. The checksum is not validated here.
func Decode(header [HeaderLength]byte, raw []byte) (*Frame, error) {
	if len(raw) < HeaderLength {
		return nil, fmt.Errorf("%w: %d bytes", ErrHeader, len(raw))
	}
	for i := 0; i < HeaderLength; i++ {
		if raw[i] != header[i] {
			return nil, fmt.Errorf("%w: got % X", ErrHeader, raw[:HeaderLength])
		}
	}
	if len(raw) < Overhead {
		return nil, fmt.Errorf("%w: frame is %d bytes, minimum is %d", ErrLength, len(raw), Overhead)
	}

	f := &Frame{
		Sequence:      raw[offSequence],
		UserSeq:       raw[offUserSeq],
		CorrelationID: binary.BigEndian.Uint16(raw[offCorrelationID:]),
		Index:         binary.BigEndian.Uint32(raw[offIndex:]),
		Length:        binary.BigEndian.Uint16(raw[offDataLength:]),
		Checksum:      binary.BigEndian.Uint16(raw[offChecksum:]),
		Command:       binary.BigEndian.Uint16(raw[offCommand:]),
	}

	if int(f.Length) != len(raw)-Overhead {
		return nil, fmt.Errorf("%w: declared %d payload bytes, got %d", ErrLength, f.Length, len(raw)-Overhead)
	}

	f.Payload = make([]byte, f.Length)
	copy(f.Payload, raw[offPayload:])
	return f, nil
}

// PeekLength returns the total frame size announced by a buffer that starts
// with a frame header. ok is false if the buffer is too short to tell.
func PeekLength(buf []byte) (size int, ok bool) {
	if len(buf) < offChecksum {
		return 0, false
	}
	return Overhead + int(binary.BigEndian.Uint16(buf[offDataLength:])), true
}
