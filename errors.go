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
	"errors"
	"fmt"
)

// Link errors
var (
	ErrNotAuthenticated   = errors.New("link not authenticated, handshake sent")
	ErrUnknownCorrelation = errors.New("unknown correlation id")
	ErrNilTransport       = errors.New("transport send and receive primitives are required")
	ErrInvalidConfig      = errors.New("invalid link configuration")
	ErrNotImplemented     = errors.New("not implemented")
	ErrPayloadTooLarge    = errors.New("payload needs more fragments than the index field allows")
	ErrInvalidFeedback    = errors.New("invalid feedback mode")
)

// Transport errors
var (
	ErrTransportWrite   = errors.New("transport write failed")
	ErrTransportRead    = errors.New("transport read failed")
	ErrTransportTimeout = errors.New("transport timeout")
	ErrTransportClosed  = errors.New("transport closed")
	ErrDeviceNotFound   = errors.New("device not found")
)

// ErrorType classifies transport failures for retry decisions
type ErrorType int

const (
	// ErrorTypePermanent errors will not go away by retrying
	ErrorTypePermanent ErrorType = iota
	// ErrorTypeTransient errors may succeed on retry
	ErrorTypeTransient
	// ErrorTypeTimeout errors are timeouts, usually retryable
	ErrorTypeTimeout
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeTransient:
		return "transient"
	case ErrorTypeTimeout:
		return "timeout"
	default:
		return "permanent"
	}
}

// TransportError describes a failed transport operation
type TransportError struct {
	Err       error
	Op        string
	Port      string
	Type      ErrorType
	Retryable bool
}

func (e *TransportError) Error() string {
	if e.Port != "" {
		return fmt.Sprintf("%s on %s: %v", e.Op, e.Port, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError creates a transport error; transient and timeout errors are retryable
func NewTransportError(op, port string, err error, errType ErrorType) *TransportError {
	return &TransportError{
		Op:        op,
		Port:      port,
		Err:       err,
		Type:      errType,
		Retryable: errType == ErrorTypeTransient || errType == ErrorTypeTimeout,
	}
}

// NewTimeoutError creates a retryable timeout error
func NewTimeoutError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrTransportTimeout, ErrorTypeTimeout)
}

// NewWriteError creates a retryable write error wrapping cause
func NewWriteError(op, port string, cause error) *TransportError {
	return NewTransportError(op, port, fmt.Errorf("%w: %w", ErrTransportWrite, cause), ErrorTypeTransient)
}

// NewClosedError creates a permanent error for a closed transport
func NewClosedError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrTransportClosed, ErrorTypePermanent)
}

// IsRetryable reports whether an operation failing with err may be retried
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var te *TransportError
	if errors.As(err, &te) {
		return te.Retryable
	}

	switch {
	case errors.Is(err, ErrTransportTimeout),
		errors.Is(err, ErrTransportRead),
		errors.Is(err, ErrTransportWrite):
		return true
	default:
		return false
	}
}

// GetErrorType returns the classification of err
func GetErrorType(err error) ErrorType {
	if err == nil {
		return ErrorTypePermanent
	}

	var te *TransportError
	if errors.As(err, &te) {
		return te.Type
	}

	switch {
	case errors.Is(err, ErrTransportTimeout):
		return ErrorTypeTimeout
	case errors.Is(err, ErrTransportRead), errors.Is(err, ErrTransportWrite):
		return ErrorTypeTransient
	default:
		return ErrorTypePermanent
	}
}

// DecodeResult is the outcome of processing one inbound frame. None of the
// failures are fatal to the receive worker: the frame is discarded and logged.
type DecodeResult int

// Decode results
const (
	NoError          DecodeResult = 0
	HeaderError      DecodeResult = -1
	SequenceError    DecodeResult = -2
	CorrelationError DecodeResult = -3
	PackageNumError  DecodeResult = -4
	LengthError      DecodeResult = -5
	ChecksumError    DecodeResult = -6
	CommandError     DecodeResult = -7
)

func (r DecodeResult) String() string {
	switch r {
	case NoError:
		return "no_error"
	case HeaderError:
		return "header_error"
	case SequenceError:
		return "sequence_error"
	case CorrelationError:
		return "correlation_error"
	case PackageNumError:
		return "package_num_error"
	case LengthError:
		return "length_error"
	case ChecksumError:
		return "checksum_error"
	case CommandError:
		return "command_error"
	default:
		return fmt.Sprintf("decode_result(%d)", int(r))
	}
}
