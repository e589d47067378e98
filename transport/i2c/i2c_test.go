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

package i2c

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	atomlink "github.com/ZaparooProject/go-atomlink"
	"github.com/ZaparooProject/go-atomlink/internal/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTarget answers reads from a script and records writes
type fakeTarget struct {
	txErr   error
	reads   [][]byte
	written [][]byte
	mu      sync.Mutex
}

func (f *fakeTarget) Tx(w, r []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.txErr != nil {
		return f.txErr
	}
	if len(w) > 0 {
		f.written = append(f.written, append([]byte(nil), w...))
	}
	if len(r) > 0 {
		if len(f.reads) == 0 {
			clear(r)
			return nil
		}
		copy(r, f.reads[0])
		f.reads = f.reads[1:]
	}
	return nil
}

func readyStatus(size int) []byte {
	return []byte{statusReady, byte(size >> 8), byte(size)}
}

func testFrame(payload string) []byte {
	return frame.Encode(frame.DefaultHeader, &frame.Frame{
		Sequence:      frame.Sequence(frame.FeedbackNone, frame.SysNone),
		CorrelationID: 1,
		Index:         1,
		Command:       0x0C0C,
		Payload:       []byte(payload),
	})
}

func TestSend(t *testing.T) {
	t.Parallel()

	target := &fakeTarget{}
	tr := newTransport(target, "test")
	f := testFrame("hi")

	require.NoError(t, tr.Send(f))
	require.Len(t, target.written, 1)
	assert.Equal(t, f, target.written[0])
}

func TestSendBusError(t *testing.T) {
	t.Parallel()

	tr := newTransport(&fakeTarget{txErr: errors.New("nack")}, "test")
	err := tr.Send([]byte{1})
	require.ErrorIs(t, err, atomlink.ErrTransportWrite)
	assert.True(t, atomlink.IsRetryable(err))
}

func TestReceiveWaitsForReady(t *testing.T) {
	t.Parallel()

	f := testFrame("payload")
	target := &fakeTarget{reads: [][]byte{
		{0x00, 0x00, 0x00},
		{0x00, 0x00, 0x00},
		readyStatus(len(f)),
		f,
	}}
	tr := newTransport(target, "test")
	tr.pollTimeout = time.Second

	got, err := tr.Receive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, f, got)
}

func TestReceiveIdle(t *testing.T) {
	t.Parallel()

	tr := newTransport(&fakeTarget{}, "test")
	got, err := tr.Receive(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestReceiveRejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		reads [][]byte
	}{
		{name: "oversized", reads: [][]byte{readyStatus(atomlink.DefaultMaxFrameSize + 1)}},
		{name: "undersized", reads: [][]byte{readyStatus(frame.Overhead - 1)}},
		{name: "bad header", reads: [][]byte{readyStatus(frame.Overhead), make([]byte, frame.Overhead)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tr := newTransport(&fakeTarget{reads: tt.reads}, "test")
			_, err := tr.Receive(context.Background())
			require.ErrorIs(t, err, atomlink.ErrTransportRead)
			assert.Equal(t, atomlink.ErrorTypeTransient, atomlink.GetErrorType(err))
		})
	}
}

func TestReceiveCustomHeader(t *testing.T) {
	t.Parallel()

	header := [frame.HeaderLength]byte{1, 2, 3, 4}
	f := frame.Encode(header, &frame.Frame{CorrelationID: 2, Index: 1, Sequence: 0x01})
	tr := newTransport(&fakeTarget{reads: [][]byte{readyStatus(len(f)), f}}, "test")
	tr.SetFraming(header, 64)

	got, err := tr.Receive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, f, got)
}

func TestReceiveContextCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tr := newTransport(&fakeTarget{}, "test")
	_, err := tr.Receive(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestClose(t *testing.T) {
	t.Parallel()

	tr := newTransport(&fakeTarget{}, "test")
	assert.True(t, tr.IsConnected())
	assert.Equal(t, atomlink.TransportI2C, tr.Type())

	require.NoError(t, tr.Close())
	assert.False(t, tr.IsConnected())
	require.ErrorIs(t, tr.Send([]byte{1}), atomlink.ErrTransportClosed)
	_, err := tr.Receive(context.Background())
	require.ErrorIs(t, err, atomlink.ErrTransportClosed)
}
