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

const crcPoly = 0x1021

var crcTable = makeCRCTable()

func makeCRCTable() [256]uint16 {
	var table [256]uint16
	for i := range table {
		crc := uint16(i) << 8
		for bit := 0; bit < 8; bit++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ crcPoly
			} else {
				crc <<= 1
			}
		}
		table[i] = crc
	}
	return table
}

// CalculateCRC16 computes CRC-16/XMODEM (poly 0x1021, init 0x0000, no reflection)
func CalculateCRC16(data []byte) uint16 {
	return updateCRC16(0, data)
}

func updateCRC16(crc uint16, data []byte) uint16 {
	for _, b := range data {
		crc = crc<<8 ^ crcTable[byte(crc>>8)^b]
	}
	return crc
}

// Checksum computes the frame checksum over command ‖ payload.
// Header, sequence, correlation id, index and length are not covered.
func Checksum(command uint16, payload []byte) uint16 {
	crc := updateCRC16(0, []byte{byte(command >> 8), byte(command)})
	return updateCRC16(crc, payload)
}

// ChecksumMismatch returns true if the frame checksum does not match its
// command and payload (the frame must be discarded)
func ChecksumMismatch(f *Frame) bool {
	return Checksum(f.Command, f.Payload) != f.Checksum
}
