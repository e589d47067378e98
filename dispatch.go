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
	"time"

	"github.com/ZaparooProject/go-atomlink/internal/frame"
)

// frameHandler processes one decoded frame
type frameHandler func(*Link, *frame.Frame) DecodeResult

type dispatchKey struct {
	cmd   frame.SysCommand
	reply bool
}

// dispatchTable routes frames by direction and system command. Pairs
// missing from the table are protocol violations.
var dispatchTable = map[dispatchKey]frameHandler{
	{reply: false, cmd: frame.SysNone}:         handleData,
	{reply: false, cmd: frame.SysAuthenticate}: handleAuthRequest,
	{reply: false, cmd: frame.SysTotalInfo}:    handleTotalInfo,
	{reply: false, cmd: frame.SysLostPackage}:  handleResendRequest,
	{reply: false, cmd: frame.SysWrongData}:    handleResendRequest,
	{reply: true, cmd: frame.SysNone}:          handleData,
	{reply: true, cmd: frame.SysAuthenticate}:  handleAuthReply,
	{reply: true, cmd: frame.SysTotalInfo}:     handleAck,
	{reply: true, cmd: frame.SysLostPackage}:   handleAck,
	{reply: true, cmd: frame.SysWrongData}:     handleAck,
}

// processFrame decodes one raw frame and dispatches it
func (l *Link) processFrame(raw []byte) DecodeResult {
	f, err := frame.Decode(l.cfg.Header, raw)
	if err != nil {
		if errors.Is(err, frame.ErrHeader) {
			return HeaderError
		}
		return LengthError
	}
	l.metrics.framesReceived.Add(1)
	logFrame(&l.logger, "received frame", f.Sequence, f.UserSeq, f.CorrelationID, f.Index, f.Command, len(f.Payload))

	handler, ok := dispatchTable[dispatchKey{reply: f.IsReply(), cmd: f.SysCommand()}]
	if !ok {
		return SequenceError
	}

	// a reply to a sync-feedback request settles the pending row first
	if f.IsReply() && f.NeedsFeedback() {
		l.pending.remove(f.CorrelationID)
	}
	return handler(l, f)
}

// handleData runs ordering and checksum validation on a data fragment and
// appends it to its message
func handleData(l *Link, f *frame.Frame) DecodeResult {
	if f.CorrelationID == 0 {
		return CorrelationError
	}

	out := l.reassembly.accept(f, !frame.ChecksumMismatch(f))
	if out.didEvict {
		l.recordEvictions(EvictionEvent{Table: EvictReassembly, CorrelationID: out.evicted})
	}
	if out.request {
		cmd := frame.SysLostPackage
		if out.result == ChecksumError {
			cmd = frame.SysWrongData
		}
		l.requestRetransmit(cmd, f.CorrelationID, out.expected)
	}
	return out.result
}

// handleTotalInfo records the announced size of an upcoming message
func handleTotalInfo(l *Link, f *frame.Frame) DecodeResult {
	if f.Command != frame.ControlCommand {
		return CommandError
	}
	if f.CorrelationID == 0 {
		return CorrelationError
	}
	fragments, totalBytes, err := frame.DecodeTotalInfo(f.Payload)
	if err != nil {
		return LengthError
	}
	if evicted, ok := l.reassembly.setTotals(f.CorrelationID, fragments, totalBytes); ok {
		l.recordEvictions(EvictionEvent{Table: EvictReassembly, CorrelationID: evicted})
	}
	return NoError
}

// handleAck accepts control replies that carry no state
func handleAck(_ *Link, f *frame.Frame) DecodeResult {
	if f.Command != frame.ControlCommand {
		return CommandError
	}
	return NoError
}

// expirePending drops sync-feedback requests older than the configured timeout
func (l *Link) expirePending(now time.Time) {
	if l.cfg.PendingTimeout <= 0 {
		return
	}
	for _, id := range l.pending.expire(now.Add(-l.cfg.PendingTimeout)) {
		l.logger.Warn().Uint16("id", id).Msg("pending request expired without reply")
		l.recordEvictions(EvictionEvent{Table: EvictPending, CorrelationID: id, Expired: true})
	}
}
