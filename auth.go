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
	"crypto/sha256"
	"crypto/subtle"
	"time"

	"github.com/ZaparooProject/go-atomlink/internal/frame"
)

// secretHash is the handshake payload both peers compute from the shared secret
func secretHash(secret string) []byte {
	sum := sha256.Sum256([]byte(secret))
	return sum[:]
}

// handshakeResendAfter is how long an unanswered handshake blocks Send from
// queueing another one
const handshakeResendAfter = time.Second

// Authenticate queues a handshake request ahead of other traffic. The
// link becomes self-authenticated once the peer confirms it.
func (l *Link) Authenticate() uint16 {
	id := l.ids.next()
	if prev := uint16(l.handshakeID.Swap(uint32(id))); prev != 0 {
		l.pending.remove(prev)
	}
	l.handshakeAt.Store(time.Now().UnixNano())
	seq := frame.Sequence(frame.FeedbackSync, frame.SysAuthenticate)
	l.addPending(id, pendingRequest{
		sequence: seq,
		userSeq:  byte(l.cfg.Role),
		command:  frame.ControlCommand,
		payload:  l.authHash,
	})
	l.metrics.handshakesSent.Add(1)
	l.logger.Info().Uint16("id", id).Msg("sending authentication handshake")
	l.enqueueControl(seq, id, l.authHash, true)
	return id
}

// ensureHandshake queues a handshake unless one is already waiting for the
// peer's answer and is younger than handshakeResendAfter
func (l *Link) ensureHandshake() {
	if id := uint16(l.handshakeID.Load()); id != 0 && l.pending.has(id) {
		sent := time.Unix(0, l.handshakeAt.Load())
		if time.Since(sent) < handshakeResendAfter {
			return
		}
	}
	l.Authenticate()
}

// SelfAuthenticated reports whether the peer confirmed our handshake
func (l *Link) SelfAuthenticated() bool {
	return l.selfAuthenticated.Load()
}

// PeerVerified reports whether the peer's handshake matched our secret
func (l *Link) PeerVerified() bool {
	return l.peerVerified.Load()
}

// handleAuthRequest verifies the peer's secret hash and always answers
// with a one byte verdict under the same correlation id
func handleAuthRequest(l *Link, f *frame.Frame) DecodeResult {
	if f.Command != frame.ControlCommand {
		return CommandError
	}

	ok := subtle.ConstantTimeCompare(f.Payload, l.authHash) == 1
	verdict := byte(0)
	if ok {
		verdict = 1
		l.peerVerified.Store(true)
		l.logger.Info().Uint16("id", f.CorrelationID).Msg("peer authenticated")
	} else {
		l.peerVerified.Store(false)
		l.metrics.authFailures.Add(1)
		l.logger.Warn().Uint16("id", f.CorrelationID).Msg("wrong authentication data from peer")
	}

	l.enqueueControl(frame.ReplySequence(f.Sequence), f.CorrelationID, []byte{verdict}, true)
	return NoError
}

// handleAuthReply records the peer's verdict on our handshake
func handleAuthReply(l *Link, f *frame.Frame) DecodeResult {
	if f.Command != frame.ControlCommand {
		return CommandError
	}
	accepted := false
	for _, b := range f.Payload {
		if b != 0 {
			accepted = true
			break
		}
	}
	l.selfAuthenticated.Store(accepted)
	if accepted {
		l.logger.Info().Uint16("id", f.CorrelationID).Msg("authentication confirmed by peer")
	} else {
		l.metrics.authFailures.Add(1)
		l.logger.Warn().Uint16("id", f.CorrelationID).Msg("peer rejected authentication")
	}
	return NoError
}
