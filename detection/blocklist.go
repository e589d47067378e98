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

package detection

import (
	"path/filepath"
	"strings"
)

// DefaultBlocklist returns USB adapters that must never be opened while
// scanning, as VID:PID hex pairs
func DefaultBlocklist() []string {
	return []string{
		"1366:0105", // SEGGER J-Link VCOM, resets the attached target on open
	}
}

// IsBlocked checks if a VID:PID pair is in the blocklist. Matching is
// case-insensitive.
func IsBlocked(vidpid string, blocklist []string) bool {
	vidpid = strings.ToUpper(strings.TrimSpace(vidpid))
	if vidpid == "" {
		return false
	}
	for _, blocked := range blocklist {
		if vidpid == strings.ToUpper(strings.TrimSpace(blocked)) {
			return true
		}
	}
	return false
}

// FormatVIDPID joins vendor and product ids the way blocklists spell them
func FormatVIDPID(vid, pid string) string {
	vid = strings.ToUpper(strings.TrimSpace(vid))
	pid = strings.ToUpper(strings.TrimSpace(pid))
	if !isHex(vid) || !isHex(pid) {
		return ""
	}
	return vid + ":" + pid
}

// ParseVIDPID extracts VID:PID from descriptors such as "VID:1234 PID:5678",
// "vendor=1234 product=5678" or plain "1234:5678"
func ParseVIDPID(descriptor string) string {
	descriptor = strings.ToUpper(descriptor)

	vid := valueAfter(descriptor, "VID:", "VENDOR=", "VID=")
	pid := valueAfter(descriptor, "PID:", "PRODUCT=", "PID=")
	if vid != "" && pid != "" {
		return vid + ":" + pid
	}

	if parts := strings.Split(descriptor, ":"); len(parts) == 2 && isHex(parts[0]) && isHex(parts[1]) {
		return descriptor
	}
	return ""
}

// valueAfter returns the hex run following the first key found
func valueAfter(s string, keys ...string) string {
	for _, key := range keys {
		if idx := strings.Index(s, key); idx >= 0 {
			return extractHex(s[idx+len(key):])
		}
	}
	return ""
}

func extractHex(s string) string {
	end := 0
	for end < len(s) && isHexByte(s[end]) {
		end++
	}
	return s[:end]
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isHexByte(s[i]) {
			return false
		}
	}
	return true
}

func isHexByte(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'A' && c <= 'F') || (c >= 'a' && c <= 'f')
}

// IsPathIgnored reports whether devicePath matches one of ignorePaths after
// cleaning. Comparison is case-insensitive so COM ports match on Windows.
func IsPathIgnored(devicePath string, ignorePaths []string) bool {
	if devicePath == "" {
		return false
	}
	device := normalizedPath(devicePath)
	for _, ignorePath := range ignorePaths {
		if ignorePath != "" && normalizedPath(ignorePath) == device {
			return true
		}
	}
	return false
}

func normalizedPath(path string) string {
	return strings.ToLower(filepath.Clean(path))
}
