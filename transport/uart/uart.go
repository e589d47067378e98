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

// Package uart provides a serial port transport for atom links
package uart

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	atomlink "github.com/ZaparooProject/go-atomlink"
	"github.com/ZaparooProject/go-atomlink/internal/frame"
	"go.bug.st/serial"
)

const (
	// DefaultBaudRate is used when New is given a zero baud rate
	DefaultBaudRate = 115200

	// readTimeout bounds a single Receive so the receive worker stays responsive
	readTimeout = 20 * time.Millisecond
	readChunk   = 512
)

// port is the part of serial.Port the transport uses
type port interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
}

// Transport implements atomlink.Transport over a serial port. Frames are
// cut out of the byte stream by matching the link header magic, so noise
// between frames is skipped.
type Transport struct {
	port     port
	splitter *frame.Splitter
	portName string
	buf      []byte
	writeMu  sync.Mutex
	readMu   sync.Mutex
}

// New opens portName at baud with the default frame header and size limit
func New(portName string, baud int) (*Transport, error) {
	return NewWithFraming(portName, baud, frame.DefaultHeader, atomlink.DefaultMaxFrameSize)
}

// NewWithFraming opens portName for a link using a custom header magic or
// maximum frame size
func NewWithFraming(portName string, baud int, header [frame.HeaderLength]byte, maxFrameSize int) (*Transport, error) {
	if baud <= 0 {
		baud = DefaultBaudRate
	}
	p, err := serial.Open(portName, &serial.Mode{
		BaudRate: baud,
		Parity:   serial.NoParity,
		DataBits: 8,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, atomlink.NewTransportError("open", portName,
			fmt.Errorf("%w: %w", atomlink.ErrDeviceNotFound, err), atomlink.ErrorTypePermanent)
	}
	if err := p.SetReadTimeout(readTimeout); err != nil {
		_ = p.Close()
		return nil, atomlink.NewTransportError("open", portName, err, atomlink.ErrorTypePermanent)
	}
	return newTransport(p, portName, header, maxFrameSize), nil
}

func newTransport(p port, portName string, header [frame.HeaderLength]byte, maxFrameSize int) *Transport {
	return &Transport{
		port:     p,
		portName: portName,
		splitter: frame.NewSplitter(header, maxFrameSize),
		buf:      make([]byte, readChunk),
	}
}

// Send writes one encoded frame
func (t *Transport) Send(data []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	for len(data) > 0 {
		n, err := t.port.Write(data)
		if err != nil {
			return atomlink.NewWriteError("Send", t.portName, err)
		}
		if n == 0 {
			return atomlink.NewWriteError("Send", t.portName, io.ErrShortWrite)
		}
		data = data[n:]
	}
	return nil
}

// Receive returns the next complete frame, reading from the port at most
// once. It returns nil when no whole frame arrived within the read timeout.
func (t *Transport) Receive(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.readMu.Lock()
	defer t.readMu.Unlock()

	if f, ok := t.splitter.Next(); ok {
		return f, nil
	}

	n, err := t.port.Read(t.buf)
	if n > 0 {
		_, _ = t.splitter.Write(t.buf[:n])
	}
	if err != nil && !errors.Is(err, io.EOF) {
		var portErr *serial.PortError
		if errors.As(err, &portErr) && portErr.Code() == serial.PortClosed {
			return nil, atomlink.NewClosedError("Receive", t.portName)
		}
		return nil, atomlink.NewTransportError("Receive", t.portName,
			fmt.Errorf("%w: %w", atomlink.ErrTransportRead, err), atomlink.ErrorTypeTransient)
	}

	if f, ok := t.splitter.Next(); ok {
		return f, nil
	}
	return nil, nil
}

// Dropped returns how many stream bytes were discarded while looking for frames
func (t *Transport) Dropped() int {
	t.readMu.Lock()
	defer t.readMu.Unlock()
	return t.splitter.Dropped()
}

// Close closes the serial port
func (t *Transport) Close() error {
	if t.port == nil {
		return nil
	}
	if err := t.port.Close(); err != nil {
		return atomlink.NewTransportError("close", t.portName, err, atomlink.ErrorTypePermanent)
	}
	return nil
}

// IsConnected returns true if the transport has an open port
func (t *Transport) IsConnected() bool {
	return t.port != nil
}

// PortName returns the serial device path
func (t *Transport) PortName() string {
	return t.portName
}

// Type returns the transport type
func (*Transport) Type() atomlink.TransportType {
	return atomlink.TransportUART
}

var _ atomlink.Transport = (*Transport)(nil)
