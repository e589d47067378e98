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

/*
Package atomlink provides a framed point-to-point packet protocol over any
byte channel: serial ports, I2C buses or plain callbacks.

A link splits payloads of any length into frames with a fixed 18 byte
header, protects each frame with a CRC-16 checksum, reassembles messages on
the far side by correlation id and matches replies to the requests that
asked for them. Data only flows after the peers exchanged a SHA-256 hash of
a shared secret.

Features:
  - Fragmentation and in-order reassembly with gap and checksum detection
  - Lost-package and wrong-data requests with range retransmission
  - Bounded queues and tables with oldest-entry eviction and an eviction hook
  - Independent send and receive workers with context-based shutdown
  - UART and I2C transports, frame capture and replay
  - TOML configuration and structured logging

Basic Usage:

	import (
	    "github.com/ZaparooProject/go-atomlink"
	    "github.com/ZaparooProject/go-atomlink/transport/uart"
	)

	transport, err := uart.New("/dev/ttyUSB0", 115200)
	if err != nil {
	    log.Fatal(err)
	}

	link, err := atomlink.New(transport, atomlink.WithSecret("atom_default"))
	if err != nil {
	    log.Fatal(err)
	}
	defer link.Close()

	if err := link.Start(ctx); err != nil {
	    log.Fatal(err)
	}
	link.Authenticate()

	// once link.SelfAuthenticated() reports true
	id, err := link.Send(0x0C0C, []byte{123, 124, 156, 144}, atomlink.FeedbackSync)

	if msg, ok := link.PullReceived(); ok {
	    fmt.Printf("message %d: % X\n", msg.CorrelationID, msg.Payload)
	}

Sending:

Send never blocks. While the peer has not confirmed our handshake, Send
queues a handshake instead of the payload and returns ErrNotAuthenticated;
the payload is not retried. When the outbound queue is full the oldest
frame is dropped.

Receiving:

PullReceived is a non-blocking poll returning the message with the
smallest correlation id. The polling package wraps it in a goroutine with
an adaptive interval.

Error Handling:

Malformed inbound frames never stop the receive worker. They are logged,
counted in Metrics and discarded. Transport errors carry an ErrorType:

	if atomlink.IsRetryable(err) {
	    // try again
	}

Thread Safety:

All Link methods are safe for concurrent use.
*/
package atomlink
