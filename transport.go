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

package atomlink

import (
	"context"
	"errors"
)

var errSendRejected = errors.New("send callback reported failure")

// Transport is the byte-level channel a link runs over: a serial port, a
// radio, a video side channel. It is the only collaborator the link needs.
type Transport interface {
	// Send writes one complete encoded frame
	Send(frame []byte) error

	// Receive returns the next received frame. It returns nil when nothing
	// is available and must give up within a short timeout or when ctx is
	// done, so the receive worker can observe its stop signal. Byte-stream
	// backends cut frames out of the stream before returning them.
	Receive(ctx context.Context) ([]byte, error)

	// Close closes the transport connection
	Close() error

	// Type returns the transport type
	Type() TransportType
}

// TransportType represents the type of transport
type TransportType string

const (
	// TransportUART represents UART/serial transport.
	TransportUART TransportType = "uart"
	// TransportI2C represents I2C bus transport.
	TransportI2C TransportType = "i2c"
	// TransportFunc represents a transport built from user callbacks
	TransportFunc TransportType = "func"
	// TransportMock represents a mock transport for testing
	TransportMock TransportType = "mock"
)

// SendFunc writes raw bytes and reports success
type SendFunc func(data []byte) bool

// ReceiveFunc returns one raw frame, or nil/empty when none is available
type ReceiveFunc func() []byte

// funcTransport adapts a pair of callbacks to the Transport interface
type funcTransport struct {
	send    SendFunc
	receive ReceiveFunc
}

// NewFuncTransport builds a Transport from send and receive callbacks.
// Both are required.
func NewFuncTransport(send SendFunc, receive ReceiveFunc) (Transport, error) {
	if send == nil || receive == nil {
		return nil, ErrNilTransport
	}
	return &funcTransport{send: send, receive: receive}, nil
}

func (t *funcTransport) Send(frame []byte) error {
	if !t.send(frame) {
		return NewWriteError("Send", string(TransportFunc), errSendRejected)
	}
	return nil
}

func (t *funcTransport) Receive(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return t.receive(), nil
}

func (*funcTransport) Close() error {
	return nil
}

func (*funcTransport) Type() TransportType {
	return TransportFunc
}
