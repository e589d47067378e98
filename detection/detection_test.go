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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial/enumerator"
	"periph.io/x/conn/v3/i2c/i2creg"
)

func TestFilterPorts(t *testing.T) {
	t.Parallel()

	ports := []*enumerator.PortDetails{
		{Name: "/dev/ttyUSB1", IsUSB: true, VID: "0403", PID: "6001", Product: "FT232R", SerialNumber: "A1"},
		{Name: "/dev/ttyS0"},
		{Name: "/dev/ttyACM0", IsUSB: true, VID: "1366", PID: "0105"},
		{Name: "/dev/ttyUSB0", IsUSB: true, VID: "10c4", PID: "ea60"},
		nil,
		{Name: ""},
	}

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()
		got := filterPorts(ports, DefaultOptions())
		require.Len(t, got, 3)
		assert.Equal(t, "/dev/ttyS0", got[0].Path)
		assert.False(t, got[0].USB)
		assert.Equal(t, "/dev/ttyUSB0", got[1].Path)
		assert.Equal(t, "10C4:EA60", got[1].VIDPID)
		assert.Equal(t, DeviceInfo{
			Transport:    "uart",
			Path:         "/dev/ttyUSB1",
			Name:         "/dev/ttyUSB1",
			VIDPID:       "0403:6001",
			Product:      "FT232R",
			SerialNumber: "A1",
			USB:          true,
		}, got[2])
	})

	t.Run("usb only and ignored", func(t *testing.T) {
		t.Parallel()
		opts := DefaultOptions()
		opts.USBOnly = true
		opts.IgnorePaths = []string{"/dev/ttyUSB1"}
		got := filterPorts(ports, opts)
		require.Len(t, got, 1)
		assert.Equal(t, "/dev/ttyUSB0", got[0].Path)
	})

	t.Run("empty blocklist", func(t *testing.T) {
		t.Parallel()
		got := filterPorts(ports, Options{})
		assert.Len(t, got, 4)
	})
}

func TestFilterBuses(t *testing.T) {
	t.Parallel()

	refs := []*i2creg.Ref{
		{Name: "/dev/i2c-1", Aliases: []string{"I2C1"}, Number: 1},
		{Name: "/dev/i2c-2", Number: 2},
		nil,
	}
	got := filterBuses(refs, Options{IgnorePaths: []string{"/dev/i2c-2"}})
	require.Len(t, got, 1)
	assert.Equal(t, "I2C1", got[0].Name)
	assert.Equal(t, "/dev/i2c-1", got[0].Path)
	assert.Equal(t, "i2c", got[0].Transport)
}

func TestIsBlocked(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		vidpid    string
		blocklist []string
		want      bool
	}{
		{name: "default entry", vidpid: "1366:0105", blocklist: DefaultBlocklist(), want: true},
		{name: "case and space", vidpid: " abcd:ef01 ", blocklist: []string{"ABCD:EF01"}, want: true},
		{name: "not listed", vidpid: "0403:6001", blocklist: DefaultBlocklist(), want: false},
		{name: "empty id", vidpid: "", blocklist: []string{""}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsBlocked(tt.vidpid, tt.blocklist))
		})
	}
}

func TestIsPathIgnored(t *testing.T) {
	t.Parallel()

	ignore := []string{"", "/dev/ttyACM0", "COM7", "/dev/i2c-3/"}
	tests := []struct {
		name string
		path string
		want bool
	}{
		{name: "listed", path: "/dev/ttyACM0", want: true},
		{name: "other port", path: "/dev/ttyACM1", want: false},
		{name: "com port any case", path: "com7", want: true},
		{name: "dotted path cleaned", path: "/dev/./serial/../ttyACM0", want: true},
		{name: "trailing slash in list", path: "/dev/i2c-3", want: true},
		{name: "relative name", path: "ttyACM0", want: false},
		{name: "empty path", path: "", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsPathIgnored(tt.path, ignore))
		})
	}

	assert.False(t, IsPathIgnored("/dev/ttyACM0", nil))
}

func TestDefaultOptions(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	assert.Nil(t, opts.IgnorePaths)
	assert.False(t, opts.USBOnly)
	assert.Equal(t, DefaultBlocklist(), opts.Blocklist)
}

func TestParseVIDPID(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"VID:1234 PID:5678":          "1234:5678",
		"vendor=0403 product=6001":   "0403:6001",
		"USB VID=10c4&PID=ea60 x":    "10C4:EA60",
		"1a86:7523":                  "1A86:7523",
		"no ids here":                "",
		"VID:1234 without a product": "",
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseVIDPID(in), in)
	}
}

func TestFormatVIDPID(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "0403:6001", FormatVIDPID("0403", "6001"))
	assert.Equal(t, "10C4:EA60", FormatVIDPID(" 10c4", "ea60"))
	assert.Empty(t, FormatVIDPID("", "6001"))
	assert.Empty(t, FormatVIDPID("xyz", "6001"))
}
