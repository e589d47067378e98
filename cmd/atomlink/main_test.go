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

package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	atomlink "github.com/ZaparooProject/go-atomlink"
	"github.com/ZaparooProject/go-atomlink/detection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePayload(t *testing.T) {
	t.Parallel()

	got, err := decodePayload("0c 0c:7b7c")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x0C, 0x0C, 0x7B, 0x7C}, got)

	got, err = decodePayload("")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = decodePayload("zz")
	require.Error(t, err)
}

func TestWaitFor(t *testing.T) {
	t.Parallel()

	start := time.Now()
	assert.True(t, waitFor(context.Background(), time.Second, func() bool {
		return time.Since(start) > 10*time.Millisecond
	}))
	assert.False(t, waitFor(context.Background(), 10*time.Millisecond, func() bool { return false }))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, waitFor(ctx, time.Second, func() bool { return false }))
}

func TestPrintHelpers(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	printDevices(&buf, nil)
	assert.Contains(t, buf.String(), "No devices found")

	buf.Reset()
	printDevices(&buf, []detection.DeviceInfo{{Transport: "uart", Path: "/dev/ttyUSB0", VIDPID: "0403:6001"}})
	assert.Contains(t, buf.String(), "/dev/ttyUSB0")
	assert.Contains(t, buf.String(), "0403:6001")

	buf.Reset()
	printMessage(&buf, atomlink.Message{CorrelationID: 7, Command: 0x0C0C, Payload: []byte("hi"), TotalFragments: 2, Fragments: 1, TotalBytes: 4})
	assert.Contains(t, buf.String(), "id=7")
	assert.Contains(t, buf.String(), "partial 1/2")
}

func TestFlightLogDump(t *testing.T) {
	t.Parallel()

	logger, flight := newLogger(false)
	defer flight.close()
	logger.Debug().Str("field", "kept").Msg("hidden from console")

	var buf bytes.Buffer
	flight.dump(&buf)
	assert.Contains(t, buf.String(), "kept")
}
