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

// Package i2c provides an I2C transport for atom links. The peer is an I2C
// target that exposes outbound frames behind a 3-byte status register:
// a ready byte followed by the big-endian length of the waiting frame.
package i2c

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	atomlink "github.com/ZaparooProject/go-atomlink"
	"github.com/ZaparooProject/go-atomlink/internal/frame"
	"github.com/ZaparooProject/go-atomlink/internal/transport"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

const (
	// DefaultAddress is the 7-bit target address used when none is given
	DefaultAddress = 0x28

	statusReady  = 0x01
	statusLength = 3

	maxClockFreq = 400 * physic.KiloHertz
)

// txer is the part of i2c.Dev the transport uses
type txer interface {
	Tx(w, r []byte) error
}

// Transport implements atomlink.Transport over an I2C bus
type Transport struct {
	dev          txer
	bus          i2c.BusCloser
	busName      string
	header       [frame.HeaderLength]byte
	pollTimeout  time.Duration
	pollInterval time.Duration
	maxFrameSize int
	mu           sync.Mutex
}

// New opens busName and talks to the target at addr
func New(busName string, addr uint16) (*Transport, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, atomlink.NewTransportError("open", busName,
			fmt.Errorf("%w: %w", atomlink.ErrDeviceNotFound, err), atomlink.ErrorTypePermanent)
	}
	_ = bus.SetSpeed(maxClockFreq)

	if addr == 0 {
		addr = DefaultAddress
	}
	t := newTransport(&i2c.Dev{Addr: addr, Bus: bus}, busName)
	t.bus = bus
	return t, nil
}

func newTransport(dev txer, busName string) *Transport {
	return &Transport{
		dev:          dev,
		busName:      busName,
		header:       frame.DefaultHeader,
		pollTimeout:  20 * time.Millisecond,
		pollInterval: 2 * time.Millisecond,
		maxFrameSize: atomlink.DefaultMaxFrameSize,
	}
}

// SetFraming changes the header magic and size limit used to validate frames
func (t *Transport) SetFraming(header [frame.HeaderLength]byte, maxFrameSize int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.header = header
	t.maxFrameSize = maxFrameSize
}

// Send writes one encoded frame in a single bus transaction
func (t *Transport) Send(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.dev == nil {
		return atomlink.NewClosedError("Send", t.busName)
	}
	if err := t.dev.Tx(data, nil); err != nil {
		return atomlink.NewWriteError("Send", t.busName, err)
	}
	return nil
}

// Receive polls the status register until a frame is waiting or the poll
// window passes. It returns nil when the target had nothing to send.
func (t *Transport) Receive(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.dev == nil {
		return nil, atomlink.NewClosedError("Receive", t.busName)
	}

	size, err := transport.TimeoutRetry(ctx, t.pollTimeout, t.pollInterval, t.readStatus)
	if errors.Is(err, transport.ErrTimeout) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	buf := make([]byte, size)
	if err := t.dev.Tx(nil, buf); err != nil {
		return nil, atomlink.NewTransportError("Receive", t.busName,
			fmt.Errorf("%w: %w", atomlink.ErrTransportRead, err), atomlink.ErrorTypeTransient)
	}
	if !bytes.HasPrefix(buf, t.header[:]) {
		return nil, atomlink.NewTransportError("Receive", t.busName,
			fmt.Errorf("%w: frame does not start with the link header", atomlink.ErrTransportRead),
			atomlink.ErrorTypeTransient)
	}
	return buf, nil
}

// readStatus returns the waiting frame size, asking for a retry while the
// target is not ready
func (t *Transport) readStatus() (int, bool, error) {
	status := make([]byte, statusLength)
	if err := t.dev.Tx(nil, status); err != nil {
		return 0, false, atomlink.NewTransportError("status", t.busName,
			fmt.Errorf("%w: %w", atomlink.ErrTransportRead, err), atomlink.ErrorTypeTransient)
	}
	if status[0] != statusReady {
		return 0, true, nil
	}
	size := int(binary.BigEndian.Uint16(status[1:]))
	if size == 0 {
		return 0, true, nil
	}
	if size < frame.Overhead || size > t.maxFrameSize {
		return 0, false, atomlink.NewTransportError("status", t.busName,
			fmt.Errorf("%w: announced frame of %d bytes", atomlink.ErrTransportRead, size),
			atomlink.ErrorTypeTransient)
	}
	return size, false, nil
}

// Close releases the I2C bus
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dev = nil
	if t.bus == nil {
		return nil
	}
	bus := t.bus
	t.bus = nil
	if err := bus.Close(); err != nil {
		return atomlink.NewTransportError("close", t.busName, err, atomlink.ErrorTypePermanent)
	}
	return nil
}

// IsConnected returns true if the transport holds an open device
func (t *Transport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dev != nil
}

// Type returns the transport type
func (*Transport) Type() atomlink.TransportType {
	return atomlink.TransportI2C
}

var _ atomlink.Transport = (*Transport)(nil)
