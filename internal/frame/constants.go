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

// Package frame provides the wire frame codec and protocol constants for atom links
package frame

// Field sizes in bytes, in wire order
const (
	HeaderLength        = 4
	SequenceLength      = 2 // sequence byte + user sequence byte
	CorrelationIDLength = 2
	IndexLength         = 4
	DataLengthLength    = 2
	ChecksumLength      = 2
	CommandLength       = 2

	// Overhead is the fixed size of every frame without its payload fragment
	Overhead = HeaderLength + SequenceLength + CorrelationIDLength + IndexLength +
		DataLengthLength + ChecksumLength + CommandLength
)

// Field offsets
const (
	offSequence      = HeaderLength
	offUserSeq       = offSequence + 1
	offCorrelationID = offSequence + SequenceLength
	offIndex         = offCorrelationID + CorrelationIDLength
	offDataLength    = offIndex + IndexLength
	offChecksum      = offDataLength + DataLengthLength
	offCommand       = offChecksum + ChecksumLength
	offPayload       = offCommand + CommandLength
)

// DefaultHeader is the magic used when a link is not configured otherwise
var DefaultHeader = [HeaderLength]byte{0xE5, 0x5E, 0xF2, 0x2F}

// Sequence byte layout: the high nibble carries direction and feedback bits,
// the low nibble carries the system command.
const (
	DirectionMask  = 0xF0
	SysCommandMask = 0x0F

	// ReplyBit marks the reply range 0x80..0xFF; 0x00..0x7F are requests
	ReplyBit = 0x80

	FeedbackNone = 0x00 // Request expects no reply
	FeedbackSync = 0x10 // Request expects a synchronous reply frame
)

// SysCommand is the control-plane sub-type carried in the low nibble of the sequence byte
type SysCommand byte

// System commands
const (
	SysNone         SysCommand = 0x01
	SysAuthenticate SysCommand = 0x02
	SysTotalInfo    SysCommand = 0x03
	SysLostPackage  SysCommand = 0x04
	SysWrongData    SysCommand = 0x05
)

// ControlCommand is the command field value carried by every control frame
const ControlCommand uint16 = 0xFFFF

// TotalInfoFieldLength is the width of each big-endian counter in a total-info payload
const TotalInfoFieldLength = 16

func (c SysCommand) String() string {
	switch c {
	case SysNone:
		return "none"
	case SysAuthenticate:
		return "authenticate"
	case SysTotalInfo:
		return "total-info"
	case SysLostPackage:
		return "lost-package"
	case SysWrongData:
		return "wrong-data"
	default:
		return "unknown"
	}
}

// Sequence builds a sequence byte from direction/feedback bits and a system command
func Sequence(direction byte, cmd SysCommand) byte {
	return direction&DirectionMask | byte(cmd)&SysCommandMask
}

// IsReply reports whether the sequence byte lies in the reply range
func IsReply(seq byte) bool {
	return seq&ReplyBit != 0
}

// NeedsFeedback reports whether the sender asked for a synchronous reply
func NeedsFeedback(seq byte) bool {
	return seq&FeedbackSync != 0
}

// SysCommandOf extracts the system command nibble
func SysCommandOf(seq byte) SysCommand {
	return SysCommand(seq & SysCommandMask)
}

// ReplySequence turns a request sequence byte into the matching reply sequence byte
func ReplySequence(seq byte) byte {
	return seq | ReplyBit
}
