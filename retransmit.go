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
	"sync"

	"github.com/ZaparooProject/go-atomlink/internal/frame"
)

// sentHistory keeps the encoded data frames of recently originated
// messages so a lost-package or wrong-data request can be served.
// Oldest messages are forgotten first.
type sentHistory struct {
	messages map[uint16][]outboundFrame
	order    []uint16
	size     int
	mu       sync.Mutex
}

func newSentHistory(size int) *sentHistory {
	return &sentHistory{
		messages: make(map[uint16][]outboundFrame),
		size:     size,
	}
}

// record stores the frames of one message, replacing an older message
// that used the same id. It returns the ids dropped to stay within size.
func (h *sentHistory) record(id uint16, frames []outboundFrame) []uint16 {
	if h.size == 0 {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.messages[id]; ok {
		for i, old := range h.order {
			if old == id {
				h.order = append(h.order[:i], h.order[i+1:]...)
				break
			}
		}
	}
	h.messages[id] = frames
	h.order = append(h.order, id)

	var dropped []uint16
	for len(h.order) > h.size {
		oldest := h.order[0]
		h.order = h.order[1:]
		delete(h.messages, oldest)
		dropped = append(dropped, oldest)
	}
	return dropped
}

// from returns the stored frames of id whose index is at least index
func (h *sentHistory) from(id uint16, index uint32) ([]outboundFrame, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	frames, ok := h.messages[id]
	if !ok {
		return nil, false
	}
	var out []outboundFrame
	for _, f := range frames {
		if f.index >= index {
			out = append(out, f)
		}
	}
	return out, true
}

// requestRetransmit asks the peer to resend message id starting at index
func (l *Link) requestRetransmit(cmd frame.SysCommand, id uint16, index uint32) {
	if !l.cfg.RequestRetransmit {
		return
	}
	l.metrics.retransmitRequests.Add(1)
	l.logger.Debug().
		Stringer("reason", cmd).
		Uint16("id", id).
		Uint32("from", index).
		Msg("requesting retransmission")
	l.enqueueControl(frame.Sequence(frame.FeedbackNone, cmd), id, frame.EncodeResumeIndex(index), true)
}

// handleResendRequest serves a lost-package or wrong-data request by
// re-queueing, ahead of other traffic, every stored frame of the message
// from the requested index on
func handleResendRequest(l *Link, f *frame.Frame) DecodeResult {
	if f.Command != frame.ControlCommand {
		return CommandError
	}
	index, ok := frame.DecodeResumeIndex(f.Payload)
	if !ok || index == 0 {
		return LengthError
	}

	frames, ok := l.history.from(f.CorrelationID, index)
	switch {
	case !ok:
		l.logger.Warn().
			Stringer("reason", f.SysCommand()).
			Uint16("id", f.CorrelationID).
			Msg("retransmission requested for unknown message")
	case len(frames) == 0:
		l.logger.Warn().
			Uint16("id", f.CorrelationID).
			Uint32("from", index).
			Msg("retransmission requested past the last fragment")
	default:
		l.metrics.retransmissions.Add(uint64(len(frames)))
		l.enqueue(true, frames...)
	}

	if f.NeedsFeedback() {
		l.enqueueControl(frame.ReplySequence(f.Sequence), f.CorrelationID, nil, true)
	}
	return NoError
}
