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

import "sync/atomic"

// EvictionTable names the bounded table an entry was dropped from
type EvictionTable string

// Bounded tables
const (
	EvictSendQueue  EvictionTable = "send_queue"
	EvictReassembly EvictionTable = "reassembly"
	EvictPending    EvictionTable = "pending"
	EvictHistory    EvictionTable = "history"
)

// EvictionEvent reports an entry dropped to make room in a full table
type EvictionEvent struct {
	Table         EvictionTable
	CorrelationID uint16
	// Index is the fragment index for send queue evictions, zero otherwise
	Index uint32
	// Expired is set when a pending request was dropped for age, not capacity
	Expired bool
}

// LinkMetrics is a snapshot of link counters
type LinkMetrics struct {
	FramesSent          uint64
	FramesReceived      uint64
	SendErrors          uint64
	DecodeErrors        uint64
	ChecksumErrors      uint64
	PackageNumErrors    uint64
	QueueEvictions      uint64
	ReassemblyEvictions uint64
	PendingEvictions    uint64
	PendingExpired      uint64
	RetransmitRequests  uint64
	Retransmissions     uint64
	HandshakesSent      uint64
	AuthFailures        uint64
}

type linkMetrics struct {
	framesSent          atomic.Uint64
	framesReceived      atomic.Uint64
	sendErrors          atomic.Uint64
	decodeErrors        atomic.Uint64
	checksumErrors      atomic.Uint64
	packageNumErrors    atomic.Uint64
	queueEvictions      atomic.Uint64
	reassemblyEvictions atomic.Uint64
	pendingEvictions    atomic.Uint64
	pendingExpired      atomic.Uint64
	retransmitRequests  atomic.Uint64
	retransmissions     atomic.Uint64
	handshakesSent      atomic.Uint64
	authFailures        atomic.Uint64
}

func (m *linkMetrics) snapshot() LinkMetrics {
	return LinkMetrics{
		FramesSent:          m.framesSent.Load(),
		FramesReceived:      m.framesReceived.Load(),
		SendErrors:          m.sendErrors.Load(),
		DecodeErrors:        m.decodeErrors.Load(),
		ChecksumErrors:      m.checksumErrors.Load(),
		PackageNumErrors:    m.packageNumErrors.Load(),
		QueueEvictions:      m.queueEvictions.Load(),
		ReassemblyEvictions: m.reassemblyEvictions.Load(),
		PendingEvictions:    m.pendingEvictions.Load(),
		PendingExpired:      m.pendingExpired.Load(),
		RetransmitRequests:  m.retransmitRequests.Load(),
		Retransmissions:     m.retransmissions.Load(),
		HandshakesSent:      m.handshakesSent.Load(),
		AuthFailures:        m.authFailures.Load(),
	}
}

func (m *linkMetrics) countDecode(result DecodeResult) {
	switch result {
	case NoError:
		return
	case ChecksumError:
		m.checksumErrors.Add(1)
	case PackageNumError:
		m.packageNumErrors.Add(1)
	}
	m.decodeErrors.Add(1)
}

// recordEvictions counts evictions and hands them to the hook. Callers
// must not hold any table lock.
func (l *Link) recordEvictions(events ...EvictionEvent) {
	for _, ev := range events {
		switch ev.Table {
		case EvictSendQueue:
			l.metrics.queueEvictions.Add(1)
		case EvictReassembly:
			l.metrics.reassemblyEvictions.Add(1)
		case EvictPending:
			if ev.Expired {
				l.metrics.pendingExpired.Add(1)
			} else {
				l.metrics.pendingEvictions.Add(1)
			}
		case EvictHistory:
		}
		l.logger.Debug().
			Str("table", string(ev.Table)).
			Uint16("id", ev.CorrelationID).
			Uint32("index", ev.Index).
			Bool("expired", ev.Expired).
			Msg("evicted entry")
		if l.cfg.OnEvict != nil {
			l.cfg.OnEvict(ev)
		}
	}
}
