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

// Package capture records the raw frames crossing a transport as a CBOR
// stream and replays them later
package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	atomlink "github.com/ZaparooProject/go-atomlink"
	"github.com/fxamacker/cbor/v2"
)

// Direction tells which way a captured frame travelled
type Direction uint8

const (
	Outbound Direction = 1
	Inbound  Direction = 2
)

func (d Direction) String() string {
	switch d {
	case Outbound:
		return "out"
	case Inbound:
		return "in"
	default:
		return fmt.Sprintf("direction(%d)", uint8(d))
	}
}

// TransportReplay identifies a Replay transport
const TransportReplay atomlink.TransportType = "replay"

// Record is one captured frame
type Record struct {
	Time      time.Time `cbor:"1,keyasint"`
	Data      []byte    `cbor:"2,keyasint"`
	Direction Direction `cbor:"3,keyasint"`
}

// Recorder wraps a transport and writes every frame it moves to w
type Recorder struct {
	inner atomlink.Transport
	enc   *cbor.Encoder
	err   error
	now   func() time.Time
	count int
	mu    sync.Mutex
}

// NewRecorder returns a transport that behaves like inner and captures to w
func NewRecorder(inner atomlink.Transport, w io.Writer) *Recorder {
	return &Recorder{
		inner: inner,
		enc:   cbor.NewEncoder(w),
		now:   time.Now,
	}
}

// Send forwards the frame and records it
func (r *Recorder) Send(frame []byte) error {
	err := r.inner.Send(frame)
	if err == nil {
		r.record(Outbound, frame)
	}
	return err
}

// Receive forwards to the wrapped transport and records anything returned
func (r *Recorder) Receive(ctx context.Context) ([]byte, error) {
	data, err := r.inner.Receive(ctx)
	if len(data) > 0 {
		r.record(Inbound, data)
	}
	return data, err
}

func (r *Recorder) record(dir Direction, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return
	}
	rec := Record{Time: r.now().UTC(), Direction: dir, Data: data}
	if err := r.enc.Encode(rec); err != nil {
		r.err = fmt.Errorf("capture write: %w", err)
		return
	}
	r.count++
}

// Err returns the first capture write error. Recording stops after it.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Count returns the number of frames recorded
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Close closes the wrapped transport
func (r *Recorder) Close() error {
	return r.inner.Close()
}

// Type returns the wrapped transport type
func (r *Recorder) Type() atomlink.TransportType {
	return r.inner.Type()
}

// ReadAll decodes every record in a capture stream
func ReadAll(rd io.Reader) ([]Record, error) {
	dec := cbor.NewDecoder(rd)
	var records []Record
	for {
		var rec Record
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return records, fmt.Errorf("capture record %d: %w", len(records), err)
		}
		records = append(records, rec)
	}
}

// Replay is a transport that feeds captured inbound frames back to a link
// and collects what the link sends
type Replay struct {
	inbound [][]byte
	sent    [][]byte
	mu      sync.Mutex
	closed  bool
}

// NewReplay builds a replay transport from the inbound records of a capture
func NewReplay(records []Record) *Replay {
	r := &Replay{}
	for _, rec := range records {
		if rec.Direction == Inbound {
			r.inbound = append(r.inbound, rec.Data)
		}
	}
	return r
}

// Send collects the frame
func (r *Replay) Send(frame []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return atomlink.NewClosedError("Send", "replay")
	}
	r.sent = append(r.sent, append([]byte(nil), frame...))
	return nil
}

// Receive returns the next captured inbound frame, or nil once all were replayed
func (r *Replay) Receive(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, atomlink.NewClosedError("Receive", "replay")
	}
	if len(r.inbound) == 0 {
		return nil, nil
	}
	data := r.inbound[0]
	r.inbound = r.inbound[1:]
	return data, nil
}

// Remaining returns how many inbound frames have not been replayed yet
func (r *Replay) Remaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.inbound)
}

// Sent returns copies of the frames the link sent
func (r *Replay) Sent() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]byte, len(r.sent))
	copy(out, r.sent)
	return out
}

// Close marks the transport closed
func (r *Replay) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// Type returns TransportReplay
func (*Replay) Type() atomlink.TransportType {
	return TransportReplay
}

var (
	_ atomlink.Transport = (*Recorder)(nil)
	_ atomlink.Transport = (*Replay)(nil)
)
